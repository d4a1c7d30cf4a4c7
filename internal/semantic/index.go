package semantic

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrIndexNotFound is returned when the index artifact does not exist.
var ErrIndexNotFound = errors.New("index not found")

// Save writes the index as a JSON array to path. The file is written to a
// temp file in the same directory and renamed over path, so readers see
// either the old artifact or the new one, never a partial write.
func (idx *Index) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	f, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := f.Name()

	entries := idx.Entries
	if entries == nil {
		entries = []Entry{}
	}
	if err := json.NewEncoder(f).Encode(entries); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("encoding index: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("closing file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// Load reads an index artifact from path.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrIndexNotFound
		}
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	var entries []Entry
	if err := json.NewDecoder(f).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding index: %w", err)
	}

	return NewIndex(entries), nil
}

// IndexSize returns the size of the index file in bytes.
func IndexSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrIndexNotFound
		}
		return 0, err
	}
	return info.Size(), nil
}

// Exists checks if the index file exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
