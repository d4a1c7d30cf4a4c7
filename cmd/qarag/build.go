package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matsen/qarag/internal/corpus"
	"github.com/matsen/qarag/internal/logger"
	"github.com/matsen/qarag/internal/semantic"
)

var (
	buildCorpus string
	buildOut    string
	noProgress  bool
)

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVar(&buildCorpus, "corpus", "", "Corpus JSONL path (default from config)")
	buildCmd.Flags().StringVar(&buildOut, "out", "", "Index output path (default from config)")
	buildCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Suppress progress output")
}

// BuildResult is the response for the build command.
type BuildResult struct {
	Status          string   `json:"status"`
	Records         int      `json:"records"`
	Indexed         int      `json:"indexed"`
	Skipped         int      `json:"skipped"`
	Diagnostics     []string `json:"diagnostics,omitempty"`
	Chunks          int      `json:"chunks"`
	Dimensions      int      `json:"dimensions"`
	DurationSeconds float64  `json:"duration_seconds"`
	Model           string   `json:"model"`
	IndexPath       string   `json:"index_path"`
	IndexSizeBytes  int64    `json:"index_size_bytes"`
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the embedding index from the QA corpus",
	Long: `Build the embedding index from the QA corpus.

Reads line-delimited JSON records, keeps those with a usable question and
answer, embeds every question in chunks of 100, and writes the index
artifact atomically. Malformed records are reported and skipped.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

// outputBuildResults outputs the build statistics in the appropriate format.
func outputBuildResults(stats *semantic.BuildStats, indexPath string) {
	if humanOutput {
		fmt.Printf("\nBuild complete:\n")
		fmt.Printf("  Records read: %d\n", stats.Records)
		fmt.Printf("  QA pairs indexed: %d\n", stats.Indexed)
		fmt.Printf("  Records skipped: %d\n", stats.Skipped)
		fmt.Printf("  Dimensions: %d\n", stats.Dimensions)
		fmt.Printf("  Time elapsed: %s\n", formatDuration(stats.Duration))
		fmt.Printf("  Index: %s (%s)\n", indexPath, formatBytes(stats.IndexSizeBytes))
		fmt.Printf("  Model: %s\n", stats.Model)
		return
	}
	outputJSON(BuildResult{
		Status:          "complete",
		Records:         stats.Records,
		Indexed:         stats.Indexed,
		Skipped:         stats.Skipped,
		Diagnostics:     stats.Diagnostics,
		Chunks:          stats.Chunks,
		Dimensions:      stats.Dimensions,
		DurationSeconds: stats.Duration.Seconds(),
		Model:           stats.Model,
		IndexPath:       indexPath,
		IndexSizeBytes:  stats.IndexSizeBytes,
	})
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if buildCorpus != "" {
		cfg.CorpusPath = buildCorpus
	}
	if buildOut != "" {
		cfg.IndexPath = buildOut
	}
	if err := cfg.ValidateBuild(); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	records, err := corpus.ReadJSONL(cfg.CorpusPath)
	if err != nil {
		exitWithError(ExitDataError, "reading corpus: %v", err)
	}

	provider := newEmbeddingProvider(cfg)
	mustValidateOllama(ctx, provider)

	builder := semantic.NewBuilder(newEmbeddingClient(cfg, provider))
	builder.SetBatchSize(cfg.BatchSize)
	showProgress := !noProgress && humanOutput && !logger.IsVerbose()
	if showProgress {
		builder.SetProgressReporter(semantic.ProgressFunc(printProgress))
		fmt.Fprintf(os.Stderr, "Building index from %s...\n", cfg.CorpusPath)
	}

	idx, stats, err := builder.Build(ctx, records)
	if showProgress {
		clearProgress()
	}
	exitOnError(err, "building index")

	if err := idx.Save(cfg.IndexPath); err != nil {
		exitWithError(ExitError, "saving index: %v", err)
	}

	// Get index size (non-fatal if it fails)
	if size, err := semantic.IndexSize(cfg.IndexPath); err == nil {
		stats.IndexSizeBytes = size
	} else if humanOutput {
		fmt.Fprintf(os.Stderr, "Warning: could not determine index size: %v\n", err)
	}

	outputBuildResults(stats, cfg.IndexPath)
	return nil
}
