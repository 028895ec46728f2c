package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/sectionkit/internal/models"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()

	f1 := filepath.Join(dir, "f1.txt")
	if err := os.WriteFile(f1, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "a"), []byte("ab"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b"), []byte("c"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"single file", []string{f1}, 5},
		{"directory", []string{sub}, 3},
		{"file and directory", []string{f1, sub}, 8},
		{"missing path skipped", []string{f1, filepath.Join(dir, "nonexistent"), sub}, 8},
		{"empty path skipped", []string{"", f1}, 5},
	}
	for _, tt := range tests {
		got, err := DiskUsageBytes(tt.paths...)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: got %d bytes, want %d", tt.name, got, tt.want)
		}
	}
}

func TestDatabaseFiles(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pages.db")
	files := DatabaseFiles(dbPath)
	if len(files) != 3 || files[0] != dbPath || files[1] != dbPath+"-wal" || files[2] != dbPath+"-shm" {
		t.Fatalf("DatabaseFiles = %v", files)
	}

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if _, err := store.SavePage(context.Background(), &models.Page{ID: "home", Title: "Home"}); err != nil {
		t.Fatal(err)
	}

	got, err := DiskUsageBytes(DatabaseFiles(dbPath)...)
	if err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if got < info.Size() || got == 0 {
		t.Errorf("disk usage %d should cover the database file (%d bytes)", got, info.Size())
	}
}
