package tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/lexandro/tokenindex-mcp/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// FormatQueryResult formats token occurrences as human-readable text, files
// with the most occurrences first. At most maxFiles files are listed.
func FormatQueryResult(result index.QueryResult, maxFiles int) string {
	if len(result.Occurrences) == 0 {
		return fmt.Sprintf("No occurrences of %q found.", result.Token)
	}

	paths := result.Paths()
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Found %d occurrences of %q in %d files:\n\n",
		result.Total, result.Token, len(paths)))

	width := len(fmt.Sprintf("%d", result.Occurrences[paths[0]]))
	for i, path := range paths {
		if maxFiles > 0 && i >= maxFiles {
			builder.WriteString(fmt.Sprintf("  ... %d more files\n", len(paths)-maxFiles))
			break
		}
		builder.WriteString(fmt.Sprintf("  %*d  %s\n", width, result.Occurrences[path], path))
	}

	return builder.String()
}

// FormatFileResults formats indexed files as human-readable text.
func FormatFileResults(files []*index.IndexedFile, nameOnly bool) string {
	if len(files) == 0 {
		return "No files matched."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Found %d files:\n\n", len(files)))

	for _, file := range files {
		if nameOnly {
			builder.WriteString(file.Path)
			builder.WriteString("\n")
		} else {
			builder.WriteString(fmt.Sprintf("  %s  (%s, %d distinct tokens",
				file.Path,
				formatFileSize(file.SizeBytes),
				file.DistinctTokens(),
			))
			if !file.ModTime.IsZero() {
				builder.WriteString(", modified " + file.ModTime.Format(time.DateTime))
			}
			builder.WriteString(")\n")
		}
	}

	return builder.String()
}

// formatFileSize converts bytes to a human-readable string.
func formatFileSize(bytes int64) string {
	switch {
	case bytes >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	case bytes >= 1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// errorResult is the tool result for a failed call.
func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
