// Package main provides the qarag CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/matsen/qarag/internal/config"
	"github.com/matsen/qarag/internal/logger"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	verbose     bool
	configPath  string

	// cfg is loaded once per invocation by the root PersistentPreRunE.
	cfg *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "qarag",
	Short: "Retrieval-backed FAQ answering service",
	Long: `qarag answers questions from a curated QA corpus.

Offline, 'qarag build' embeds every question in the corpus and writes an
index artifact. Online, 'qarag serve' answers questions by embedding the
query, ranking stored questions by cosine similarity, and returning the
best stored answer when it clears the confidence threshold.

Configuration comes from qarag.yml, the environment, and a .env file.
All commands output JSON by default; use --human for readable output.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ./qarag.yml)")
	rootCmd.Version = Version
}

func loadConfig(cmd *cobra.Command, args []string) error {
	logger.SetVerbose(verbose)

	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	c, err := config.Load(configPath)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	cfg = c
	return nil
}
