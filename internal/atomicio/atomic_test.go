package atomicio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileReplacesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.csv")

	if err := WriteFile(path, []byte("one"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := WriteFile(path, []byte("two"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != "two" {
		t.Fatalf("unexpected content %q %v", got, err)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestWriteFileFailureKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	if err := WriteFile(path, []byte("keep"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	// A regular file as the parent directory makes the write fail.
	blocked := filepath.Join(path, "child.csv")
	if err := WriteFile(blocked, []byte("x"), 0o644); err == nil {
		t.Fatal("expected error writing below a regular file")
	}

	got, _ := os.ReadFile(path)
	if string(got) != "keep" {
		t.Fatalf("original modified: %q", got)
	}
}

func TestEncodeCSVQuotes(t *testing.T) {
	data, err := EncodeCSV([]string{"a", "b"}, [][]string{{"x,y", `say "hi"`}})
	if err != nil {
		t.Fatalf("EncodeCSV: %v", err)
	}
	want := "a,b\n\"x,y\",\"say \"\"hi\"\"\"\n"
	if string(data) != want {
		t.Fatalf("got %q want %q", data, want)
	}
	if !strings.HasPrefix(string(data), "a,b") {
		t.Fatal("missing header")
	}
}
