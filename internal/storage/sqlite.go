// Package storage keeps a SQLite log of answered and unanswered questions.
package storage

import (
	"crypto/sha256"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// AskRecord is one resolved question.
type AskRecord struct {
	RequestID  string
	AskedAt    time.Time
	Question   string
	Normalized string
	BestScore  float64
	Found      bool
	Rewrite    bool
}

// Miss is an unanswered question and how often it was asked.
type Miss struct {
	Question  string    `json:"question"`
	Count     int       `json:"count"`
	BestScore float64   `json:"best_score"`
	LastAsked time.Time `json:"last_asked"`
}

// AskStats summarizes the log.
type AskStats struct {
	Total    int `json:"total"`
	Answered int `json:"answered"`
	Missed   int `json:"missed"`
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS asks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT,
			asked_at INTEGER NOT NULL,
			question TEXT NOT NULL,
			question_hash TEXT NOT NULL,
			normalized TEXT,
			best_score REAL NOT NULL,
			found INTEGER NOT NULL,
			rewrite INTEGER NOT NULL
		);

		-- Grouping unanswered questions
		CREATE INDEX IF NOT EXISTS idx_asks_misses ON asks(found, question_hash);
	`

	_, err := db.Exec(schema)
	return err
}

// RecordAsk appends one record. A zero AskedAt is stamped with the current time.
func (d *DB) RecordAsk(rec AskRecord) error {
	if rec.AskedAt.IsZero() {
		rec.AskedAt = time.Now()
	}

	_, err := d.db.Exec(`
		INSERT INTO asks (request_id, asked_at, question, question_hash, normalized, best_score, found, rewrite)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(rec.RequestID),
		rec.AskedAt.UnixMilli(),
		rec.Question,
		hashQuestion(rec.Question),
		nullableString(rec.Normalized),
		rec.BestScore,
		boolInt(rec.Found),
		boolInt(rec.Rewrite),
	)
	if err != nil {
		return fmt.Errorf("recording ask: %w", err)
	}
	return nil
}

// ListMisses returns unanswered questions, most frequently asked first.
// Questions differing only in case or spacing are grouped together.
func (d *DB) ListMisses(limit int) ([]Miss, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := d.db.Query(`
		SELECT MIN(question), COUNT(*), MAX(best_score), MAX(asked_at)
		FROM asks
		WHERE found = 0
		GROUP BY question_hash
		ORDER BY COUNT(*) DESC, MAX(asked_at) DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing misses: %w", err)
	}
	defer rows.Close()

	var misses []Miss
	for rows.Next() {
		var m Miss
		var last int64
		if err := rows.Scan(&m.Question, &m.Count, &m.BestScore, &last); err != nil {
			return nil, fmt.Errorf("scanning miss: %w", err)
		}
		m.LastAsked = time.UnixMilli(last)
		misses = append(misses, m)
	}
	return misses, rows.Err()
}

// Count returns the total number of recorded asks.
func (d *DB) Count() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM asks").Scan(&count)
	return count, err
}

// Stats returns answered and unanswered totals.
func (d *DB) Stats() (AskStats, error) {
	var s AskStats
	err := d.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(found), 0)
		FROM asks`).Scan(&s.Total, &s.Answered)
	if err != nil {
		return AskStats{}, fmt.Errorf("reading stats: %w", err)
	}
	s.Missed = s.Total - s.Answered
	return s, nil
}

// hashQuestion computes a SHA256 hash of the question with case and
// whitespace folded.
func hashQuestion(q string) string {
	h := sha256.New()
	io.WriteString(h, strings.ToLower(strings.Join(strings.Fields(q), " ")))
	return fmt.Sprintf("%x", h.Sum(nil))
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
