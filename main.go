package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lexandro/tokenindex-mcp/config"
	"github.com/spf13/cobra"
)

// options holds the values of the global flags. Flags that were set on the
// command line override the configuration file and the environment.
type options struct {
	configFile string
	envFile    string

	logLevel        string
	logFile         string
	ignoredNames    []string
	pattern         string
	tokenizerKind   string
	ignoreFile      string
	workers         int
	queueSize       int
	readLockTimeout time.Duration
	debounce        time.Duration
	cacheSize       int
	indexWait       time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(&options{}).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(opts *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "tokenindex-mcp [paths...]",
		Short:        "Live token index over files and folders, served over MCP",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts, args)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "TOML configuration file")
	flags.StringVar(&opts.envFile, "env-file", ".env", "File with TOKENINDEX_* environment variables")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	flags.StringVar(&opts.logFile, "log-file", "", "Log file path (default: stderr)")
	flags.StringSliceVar(&opts.ignoredNames, "ignore", nil, "File name to ignore, glob allowed (repeatable)")
	flags.StringVar(&opts.pattern, "separator", "", "Regular expression splitting content into tokens")
	flags.StringVar(&opts.tokenizerKind, "tokenizer", config.TokenizerRegex, "Tokenizer: regex|unicode")
	flags.StringVar(&opts.ignoreFile, "ignore-file", "", "Gitignore-style file with extra ignore rules")
	flags.IntVar(&opts.workers, "workers", 0, "Tokenization workers (default: number of CPUs)")
	flags.IntVar(&opts.queueSize, "queue-size", 0, "Maximum queued tokenization tasks")
	flags.DurationVar(&opts.readLockTimeout, "read-timeout", 0, "Maximum wait of a query for the index")
	flags.DurationVar(&opts.debounce, "debounce", 0, "Event gathering interval, negative disables")
	flags.IntVar(&opts.cacheSize, "cache-size", 0, "Cached query results, negative disables")
	flags.DurationVar(&opts.indexWait, "index-wait", 0, "Maximum wait of an index request asking to wait")

	rootCmd.AddCommand(newServeCommand(opts), newQueryCommand(opts))
	return rootCmd
}

// loadConfig merges the configuration sources with the flags set on cmd.
func (o *options) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(o.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("log-file") {
		cfg.LogFile = o.logFile
	}
	if flags.Changed("ignore") {
		cfg.IgnoredNames = o.ignoredNames
	}
	if flags.Changed("separator") {
		cfg.SeparatorPattern = o.pattern
	}
	if flags.Changed("tokenizer") {
		cfg.Tokenizer = o.tokenizerKind
	}
	if flags.Changed("ignore-file") {
		cfg.IgnoreFile = o.ignoreFile
	}
	if flags.Changed("workers") {
		cfg.Workers = o.workers
	}
	if flags.Changed("queue-size") {
		cfg.QueueSize = o.queueSize
	}
	if flags.Changed("read-timeout") {
		cfg.ReadLockTimeout = o.readLockTimeout
	}
	if flags.Changed("debounce") {
		cfg.Debounce = o.debounce
	}
	if flags.Changed("cache-size") {
		cfg.CacheSize = o.cacheSize
	}
	if flags.Changed("index-wait") {
		cfg.IndexWaitTimeout = o.indexWait
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupLogger creates an slog.Logger writing to stderr or a file.
func setupLogger(level string, logFile string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var writer *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot open log file %s: %v, falling back to stderr\n", logFile, err)
			writer = os.Stderr
		} else {
			writer = f
		}
	} else {
		writer = os.Stderr
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler)
}
