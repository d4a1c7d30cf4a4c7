// Package semantic builds, persists, and searches the QA embedding index.
package semantic

import "time"

// Entry is one indexed QA pair. The JSON keys match the on-disk artifact.
type Entry struct {
	Question  string    `json:"q"`
	Answer    string    `json:"a"`
	Embedding []float32 `json:"e"`
}

// Index is an ordered collection of entries. Order is the corpus order and
// breaks score ties during retrieval.
type Index struct {
	Entries []Entry
}

// NewIndex wraps entries in an Index.
func NewIndex(entries []Entry) *Index {
	return &Index{Entries: entries}
}

// Len returns the number of entries. Safe on a nil index.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.Entries)
}

// Dimensions returns the vector length of the first entry, or 0 when empty.
func (idx *Index) Dimensions() int {
	if idx.Len() == 0 {
		return 0
	}
	return len(idx.Entries[0].Embedding)
}

// Hit is a scored entry returned by Retrieve.
type Hit struct {
	Question string  `json:"q"`
	Answer   string  `json:"a"`
	Score    float64 `json:"score"`
}

// BuildStats contains statistics from index building.
type BuildStats struct {
	Records        int           `json:"records"`
	Indexed        int           `json:"indexed"`
	Skipped        int           `json:"skipped"`
	Diagnostics    []string      `json:"diagnostics"`
	Chunks         int           `json:"chunks"`
	Dimensions     int           `json:"dimensions"`
	Model          string        `json:"model"`
	Duration       time.Duration `json:"duration"`
	IndexSizeBytes int64         `json:"index_size_bytes"`
}
