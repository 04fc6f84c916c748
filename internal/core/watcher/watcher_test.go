package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil, nil)
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func waitFor(t *testing.T, changed <-chan []string, want string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case paths := <-changed:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()

	changed := make(chan []string, 8)
	w, err := NewWatcher(50*time.Millisecond, []string{"__pycache__"}, []string{"scratch_*.py"}, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch(tmpDir); err != nil {
		t.Fatal(err)
	}

	submission := filepath.Join(tmpDir, "calc.py")
	if err := os.WriteFile(submission, []byte("def main():\n    pass\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, submission)

	for _, name := range []string{"notes.txt", "scratch_1.py"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	select {
	case paths := <-changed:
		t.Errorf("excluded files triggered a change: %v", paths)
	case <-time.After(300 * time.Millisecond):
	}

	subdir := filepath.Join(tmpDir, "pkg")
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(subdir, "helpers.py")
	if err := os.WriteFile(nested, []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, nested)
}

func TestWatcher_ShouldExcludeFile(t *testing.T) {
	w, err := NewWatcher(time.Millisecond, nil, []string{"*_draft.py"}, func([]string) {})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Also("*.csv"); err != nil {
		t.Fatal(err)
	}

	tests := map[string]bool{
		"main.py":       false,
		"MAIN.PY":       false,
		"main_draft.py": true,
		"main.pyc":      true,
		"README.md":     true,
		"scores.csv":    false,
	}
	for name, want := range tests {
		if got := w.shouldExcludeFile(filepath.Join("sub", name)); got != want {
			t.Errorf("shouldExcludeFile(%q) = %v, want %v", name, got, want)
		}
	}
}
