package semantic

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIndex_LenAndDimensions(t *testing.T) {
	var nilIdx *Index
	if nilIdx.Len() != 0 || nilIdx.Dimensions() != 0 {
		t.Error("nil index should have zero length and dimensions")
	}

	idx := NewIndex([]Entry{{Question: "q", Answer: "a", Embedding: []float32{1, 2, 3}}})
	if idx.Len() != 1 {
		t.Errorf("Len() = %d, want 1", idx.Len())
	}
	if idx.Dimensions() != 3 {
		t.Errorf("Dimensions() = %d, want 3", idx.Dimensions())
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "embeddings.json")

	idx := NewIndex([]Entry{
		{Question: "영업시간은?", Answer: "9시부터 6시", Embedding: []float32{0.1, 0.2}},
		{Question: "위치는?", Answer: "서울", Embedding: []float32{0.3, 0.4}},
	})
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", loaded.Len())
	}
	if loaded.Entries[0].Question != "영업시간은?" || loaded.Entries[1].Answer != "서울" {
		t.Errorf("entries not preserved in order: %+v", loaded.Entries)
	}
	if loaded.Entries[1].Embedding[1] != 0.4 {
		t.Errorf("embedding not preserved: %v", loaded.Entries[1].Embedding)
	}
}

func TestSave_ArtifactFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.json")
	idx := NewIndex([]Entry{{Question: "q", Answer: "a", Embedding: []float32{1, 0}}})
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := strings.TrimSpace(string(data))
	want := `[{"q":"q","a":"a","e":[1,0]}]`
	if got != want {
		t.Errorf("artifact = %s, want %s", got, want)
	}
}

func TestSave_EmptyIndexWritesArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.json")
	if err := NewIndex(nil).Save(path); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("empty index should be written as [], got %s", data)
	}
}

func TestSave_ReplacesAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "embeddings.json")

	first := NewIndex([]Entry{{Question: "old", Answer: "a", Embedding: []float32{1}}})
	second := NewIndex([]Entry{
		{Question: "new1", Answer: "a", Embedding: []float32{1}},
		{Question: "new2", Answer: "b", Embedding: []float32{1}},
	})
	if err := first.Save(path); err != nil {
		t.Fatal(err)
	}
	if err := second.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != 2 || loaded.Entries[0].Question != "new1" {
		t.Errorf("expected second index, got %+v", loaded.Entries)
	}

	files, _ := os.ReadDir(dir)
	if len(files) != 1 {
		names := make([]string, len(files))
		for i, f := range files {
			names[i] = f.Name()
		}
		t.Errorf("expected only the artifact in dir, got %v", names)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.json"))
		if !errors.Is(err, ErrIndexNotFound) {
			t.Errorf("expected ErrIndexNotFound, got %v", err)
		}
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		os.WriteFile(path, []byte(`{"not":"an array"`), 0644)
		_, err := Load(path)
		if err == nil || errors.Is(err, ErrIndexNotFound) {
			t.Errorf("expected decode error, got %v", err)
		}
	})
}

func TestIndexSizeAndExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.json")

	if Exists(path) {
		t.Error("Exists() should be false before save")
	}
	if _, err := IndexSize(path); !errors.Is(err, ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}

	NewIndex([]Entry{{Question: "q", Answer: "a", Embedding: []float32{1}}}).Save(path)

	if !Exists(path) {
		t.Error("Exists() should be true after save")
	}
	size, err := IndexSize(path)
	if err != nil {
		t.Fatal(err)
	}
	if size == 0 {
		t.Error("expected non-zero size")
	}
}
