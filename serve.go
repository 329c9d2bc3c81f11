package main

import (
	"context"
	"fmt"
	"time"

	"github.com/lexandro/tokenindex-mcp/indexer"
	"github.com/lexandro/tokenindex-mcp/server"
	"github.com/lexandro/tokenindex-mcp/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

// reindexTimeout bounds how long a reindex request waits for tokenization.
const reindexTimeout = 5 * time.Minute

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve [paths...]",
		Short: "Index the paths and serve the MCP tools on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts, args)
		},
	}
}

func runServe(cmd *cobra.Command, opts *options, paths []string) error {
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}

	// Setup logger (always to file or stderr, never to stdout - stdout is for MCP stdio)
	logger := setupLogger(cfg.LogLevel, cfg.LogFile)
	logger.Info("starting tokenindex-mcp",
		"paths", len(paths),
		"tokenizer", cfg.Tokenizer,
		"workers", cfg.Workers,
	)

	ix, err := indexer.New(cfg.IndexerConfig(logger))
	if err != nil {
		logger.Error("failed to create indexer", "error", err)
		return err
	}
	defer func() {
		if err := ix.Close(); err != nil {
			logger.Warn("closing indexer", "error", err)
		}
	}()

	ix.Index(paths)

	handlers := server.Handlers{
		Index: &tools.IndexHandler{
			Indexer:     ix,
			WaitTimeout: cfg.IndexWaitTimeout,
			Logger:      logger,
		},
		Query:  &tools.QueryHandler{Indexer: ix, Logger: logger},
		Files:  &tools.FilesHandler{Indexer: ix, Logger: logger},
		Status: &tools.StatusHandler{Indexer: ix, Logger: logger},
		Reindex: &tools.ReindexHandler{
			Logger:    logger,
			DoReindex: reindexFunc(ix),
		},
	}
	mcpServer := server.Setup(handlers)

	logger.Info("MCP server starting on stdio")
	if err := mcpServer.Run(cmd.Context(), &mcp.StdioTransport{}); err != nil && cmd.Context().Err() == nil {
		logger.Error("MCP server error", "error", err)
		return err
	}
	return nil
}

func reindexFunc(ix *indexer.Indexer) tools.ReindexFunc {
	return func(ctx context.Context) (int, int, string, error) {
		start := time.Now()
		roots := ix.Reindex()

		waitCtx, cancel := context.WithTimeout(ctx, reindexTimeout)
		defer cancel()
		if err := ix.WaitIdle(waitCtx); err != nil {
			return roots, 0, "", fmt.Errorf("waiting for tokenization: %w", err)
		}

		elapsed := time.Since(start).Round(time.Millisecond).String()
		return roots, ix.Status().Files, elapsed, nil
	}
}
