package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lexandro/tokenindex-mcp/indexer"
	"github.com/lexandro/tokenindex-mcp/tools"
	"github.com/spf13/cobra"
)

func newQueryCommand(opts *options) *cobra.Command {
	var (
		wait     time.Duration
		maxFiles int
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "query <token> [paths...]",
		Short: "Index the paths once and print the occurrences of a token",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.LogLevel, cfg.LogFile)

			ix, err := indexer.New(cfg.IndexerConfig(logger))
			if err != nil {
				return err
			}
			defer ix.Close()

			ix.Index(args[1:])

			waitCtx, cancel := context.WithTimeout(cmd.Context(), wait)
			defer cancel()
			if err := ix.WaitIdle(waitCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if pending := ix.Status().Pending; pending > 0 {
				logger.Warn("tokenization still in progress, result is partial", "pending", pending)
			}

			result, err := ix.QueryToken(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("querying %q: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(result)
			}
			_, err = fmt.Fprintln(out, strings.TrimRight(tools.FormatQueryResult(result, maxFiles), "\n"))
			return err
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 2*time.Second, "Maximum wait for tokenization before querying")
	cmd.Flags().IntVar(&maxFiles, "max-files", 0, "Maximum number of files to print (default: all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}
