package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/qarag/internal/storage"
)

var missesLimit int

func init() {
	rootCmd.AddCommand(missesCmd)

	missesCmd.Flags().IntVarP(&missesLimit, "limit", "l", DefaultMissesLimit, "Maximum number of questions to list (0 for all)")
}

// MissesResponse is the response for the misses command.
type MissesResponse struct {
	Stats  storage.AskStats `json:"stats"`
	Misses []storage.Miss   `json:"misses"`
}

var missesCmd = &cobra.Command{
	Use:   "misses",
	Short: "List questions the service could not answer",
	Long: `List questions the service could not answer, most frequent first.

Reads the ask log written by 'qarag serve' when ask_log_path is set.
Use it to find gaps in the corpus.`,
	Args: cobra.NoArgs,
	RunE: runMisses,
}

func runMisses(cmd *cobra.Command, args []string) error {
	if cfg.AskLogPath == "" {
		exitWithError(ExitConfigError, "ask log is disabled\n\nSet ask_log_path in qarag.yml or ASK_LOG_PATH.")
	}

	db, err := storage.OpenDB(cfg.AskLogPath)
	if err != nil {
		exitWithError(ExitError, "opening ask log: %v", err)
	}
	defer db.Close()

	stats, err := db.Stats()
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	misses, err := db.ListMisses(missesLimit)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if misses == nil {
		misses = []storage.Miss{}
	}

	if humanOutput {
		fmt.Printf("%d asks, %d answered, %d unanswered\n\n", stats.Total, stats.Answered, stats.Missed)
		for i, m := range misses {
			fmt.Printf("%2d. (%dx, best %.3f) %s\n", i+1, m.Count, m.BestScore, truncateString(m.Question, QuestionMaxLen))
		}
		return nil
	}
	return outputJSON(MissesResponse{Stats: stats, Misses: misses})
}
