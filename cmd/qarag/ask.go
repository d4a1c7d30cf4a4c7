package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/qarag/internal/clipboard"
	"github.com/matsen/qarag/internal/logger"
	"github.com/matsen/qarag/internal/qa"
	"github.com/matsen/qarag/internal/semantic"
	"github.com/matsen/qarag/internal/storage"
)

var (
	askRewrite bool
	askTopK    int
	askLog     bool
	askCopy    bool
)

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().BoolVar(&askRewrite, "rewrite", false, "Polish the answer with the chat model")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "Number of hits to return (default from config)")
	askCmd.Flags().BoolVar(&askLog, "log", false, "Record the question in the ask log")
	askCmd.Flags().BoolVar(&askCopy, "copy", false, "Copy the answer to the clipboard")
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question against the local index",
	Long: `Answer one question against the local index.

Runs the same pipeline as POST /ask: the question is normalized, embedded,
compared against every stored question, and the best stored answer is
returned when its score clears the threshold.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	question := strings.TrimSpace(args[0])

	if question == "" {
		exitWithError(ExitError, "question cannot be empty")
	}
	if askTopK > 0 {
		cfg.TopK = askTopK
	}
	if err := cfg.ValidateQuery(); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	idx, err := semantic.Load(cfg.IndexPath)
	if err != nil {
		if err == semantic.ErrIndexNotFound {
			exitWithError(ExitIndexNotFound, "index not found at %s\n\nRun 'qarag build' to create the index.", cfg.IndexPath)
		}
		exitWithError(ExitError, "loading index: %v", err)
	}
	store := semantic.NewStore()
	store.Swap(idx)

	var recorder qa.AskRecorder
	if askLog && cfg.AskLogPath != "" {
		db, err := storage.OpenDB(cfg.AskLogPath)
		if err != nil {
			exitWithError(ExitError, "opening ask log: %v", err)
		}
		defer db.Close()
		recorder = db
	}

	asker := newAsker(cfg, store, newEmbeddingClient(cfg, newEmbeddingProvider(cfg)), recorder)
	resp, err := asker.Ask(ctx, qa.Request{Question: question, Rewrite: askRewrite})
	exitOnError(err, "answering")

	if askCopy {
		copyAnswer(resp.Answer)
	}

	if humanOutput {
		printAnswerHuman(resp, asker.Threshold())
		return nil
	}
	return outputJSON(resp)
}

func printAnswerHuman(resp *qa.Response, threshold float64) {
	fmt.Printf("%s\n\n", resp.Answer)
	status := "answered"
	if !resp.Found {
		status = "no match"
	}
	fmt.Printf("[%s] best score %.3f (threshold %.2f)\n", status, resp.BestScore, threshold)
	if resp.Normalized != "" {
		fmt.Printf("normalized query: %s\n", resp.Normalized)
	}
	if len(resp.Hits) == 0 {
		return
	}
	fmt.Println()
	for i, h := range resp.Hits {
		fmt.Printf("%2d. [%.3f] %s\n", i+1, h.Score, truncateString(h.Question, QuestionMaxLen))
		fmt.Printf("    %s\n", truncateString(h.Answer, AnswerMaxLen))
	}
}

// copyAnswer copies the answer; a missing clipboard is a warning, not a failure.
func copyAnswer(answer string) {
	if err := clipboard.New().Copy(answer); err != nil {
		logger.Warn("could not copy answer: %v", err)
	}
}
