package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/matsen/qarag/internal/embedding"
)

// Constants for output formatting.
const (
	DefaultMissesLimit = 20 // Default limit for the misses command

	AnswerMaxLen   = 70 // Answer truncation in hit listings
	QuestionMaxLen = 60 // Question truncation in hit and miss listings

	// progressBarWidth is the number of characters inside the brackets.
	progressBarWidth = 30

	// progressLineClearWidth is the width needed to clear the entire progress line.
	progressLineClearWidth = 60
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// exitOnError exits with the code mapped from err, if err is non-nil.
func exitOnError(err error, format string, args ...any) {
	if err == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if embedding.IsAuthError(err) {
		exitWithError(ExitConfigError, "%s: %v\n\nThe embedding service rejected the credentials; check OPENAI_API_KEY.", msg, err)
	}
	exitWithError(exitCodeFor(err), "%s: %v", msg, err)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// truncateString shortens s to maxLen runes, adding "..." when cut.
func truncateString(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}

// formatBytes formats bytes in a human-readable way.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// buildProgressBar creates a progress bar string of the given width.
// Returns a string like "[=====>    ]" showing progress.
func buildProgressBar(current, total, width int) string {
	if total == 0 {
		return strings.Repeat(" ", width)
	}
	filled := (width * current) / total
	if filled >= width {
		return strings.Repeat("=", width)
	}
	return strings.Repeat("=", filled) + ">" + strings.Repeat(" ", width-filled-1)
}

// printProgress prints a progress bar to stderr.
func printProgress(current, total int) {
	if total == 0 {
		return
	}
	pct := float64(current) / float64(total) * 100
	bar := buildProgressBar(current, total, progressBarWidth)
	fmt.Fprintf(os.Stderr, "\r[%s] %d/%d (%.0f%%)", bar, current, total, pct)
}

// clearProgress erases the progress line.
func clearProgress() {
	fmt.Fprintf(os.Stderr, "\r%*s\r", progressLineClearWidth, "")
}
