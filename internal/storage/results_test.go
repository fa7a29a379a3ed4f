// v1
// internal/storage/results_test.go
package storage

import (
	"path/filepath"
	"testing"
)

type rec struct {
	Total float64 `json:"total_score"`
	Mode  string  `json:"mode"`
}

func TestAppendAndReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results", "eval.jsonl")
	if err := Append(path, rec{Total: 12.5, Mode: "direct"}); err != nil {
		t.Fatal(err)
	}
	if err := Append(path, rec{Total: 30.0, Mode: "networked"}); err != nil {
		t.Fatal(err)
	}
	got, err := ReadAll[rec](path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].Total != 12.5 || got[1].Mode != "networked" {
		t.Fatalf("unexpected records %+v", got)
	}
}

func TestReadAllMissingFile(t *testing.T) {
	if _, err := ReadAll[rec](filepath.Join(t.TempDir(), "absent.jsonl")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
