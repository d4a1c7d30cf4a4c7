package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matsen/qarag/internal/semantic"
)

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexInfoCmd)
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect the embedding index",
}

// IndexInfoResult is the response for the index info command.
type IndexInfoResult struct {
	Path       string `json:"path"`
	Entries    int    `json:"entries"`
	Dimensions int    `json:"dimensions"`
	SizeBytes  int64  `json:"size_bytes"`
	ModifiedAt string `json:"modified_at"`
}

var indexInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show entry count, dimensions, and size of the index",
	Args:  cobra.NoArgs,
	RunE:  runIndexInfo,
}

func runIndexInfo(cmd *cobra.Command, args []string) error {
	if !semantic.Exists(cfg.IndexPath) {
		exitWithError(ExitIndexNotFound, "index not found at %s\n\nRun 'qarag build' to create the index.", cfg.IndexPath)
	}
	idx, err := semantic.Load(cfg.IndexPath)
	if err != nil {
		exitWithError(ExitError, "loading index: %v", err)
	}

	result := IndexInfoResult{
		Path:       cfg.IndexPath,
		Entries:    idx.Len(),
		Dimensions: idx.Dimensions(),
	}
	if info, err := os.Stat(cfg.IndexPath); err == nil {
		result.SizeBytes = info.Size()
		result.ModifiedAt = info.ModTime().Format(time.RFC3339)
	}

	if humanOutput {
		fmt.Printf("Index: %s\n", result.Path)
		fmt.Printf("  Entries: %d\n", result.Entries)
		fmt.Printf("  Dimensions: %d\n", result.Dimensions)
		fmt.Printf("  Size: %s\n", formatBytes(result.SizeBytes))
		fmt.Printf("  Modified: %s\n", result.ModifiedAt)
		return nil
	}
	return outputJSON(result)
}
