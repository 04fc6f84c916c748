package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gradecheck/internal/core/errors"
)

const rubric = `
submission_dir = "./submissions"
expected_files = ["calc.py", "README.md"]

[expected_functions]
"calc.py" = ["main", "add"]

[scoring]
points_per_error = 2
max_points_deducted = 6

[watch]
debounce = "1s"

[[checks]]
name = "no-loops"
kind = "construct"
file = "calc.py"
function = "add"
construct = "for_loop"
forbid = true

[[checks]]
kind = "pattern"
file = "calc.py"
function = "main"
pattern = "print\\("
points_per_error = 5

[[checks]]
kind = "files_closed"
file = "calc.py"
`

func writeRubric(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rubric.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeRubric(t, strings.Replace(rubric, `kind = "files_closed"`, "kind = \"files_closed\"\nscope = \"file\"", 1)))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.SubmissionDir != "./submissions" {
		t.Errorf("Expected submission_dir ./submissions, got %s", cfg.SubmissionDir)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("Expected debounce 1s, got %v", cfg.Watch.Debounce)
	}
	if cfg.Python != "python3" {
		t.Errorf("Expected default python3, got %s", cfg.Python)
	}
	if len(cfg.Checks) != 3 {
		t.Fatalf("Expected 3 checks, got %d", len(cfg.Checks))
	}

	loops := cfg.Checks[0]
	if loops.Name != "no-loops" || !loops.Forbid {
		t.Errorf("Unexpected first check: %+v", loops)
	}
	if loops.PointsPerError != 2 || loops.MaxPointsDeducted != 6 {
		t.Errorf("Expected scoring defaults 2/6, got %d/%d", loops.PointsPerError, loops.MaxPointsDeducted)
	}

	pattern := cfg.Checks[1]
	if pattern.Name != "pattern:main" {
		t.Errorf("Expected derived name pattern:main, got %q", pattern.Name)
	}
	if pattern.PointsPerError != 5 {
		t.Errorf("Expected explicit points 5, got %d", pattern.PointsPerError)
	}

	if got := cfg.ExpectedPython(); len(got) != 1 || got[0] != "calc.py" {
		t.Errorf("Unexpected ExpectedPython: %v", got)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "unknown kind",
			content: "[[checks]]\nkind = \"telepathy\"\n",
			want:    "unknown kind",
		},
		{
			name:    "bad pattern",
			content: "[[checks]]\nkind = \"pattern\"\nfile = \"a.py\"\nfunction = \"f\"\npattern = \"(\"\n",
			want:    "invalid pattern",
		},
		{
			name:    "unknown construct",
			content: "[[checks]]\nkind = \"construct\"\nfile = \"a.py\"\nfunction = \"f\"\nconstruct = \"goto\"\n",
			want:    "unknown construct",
		},
		{
			name:    "missing function",
			content: "[[checks]]\nkind = \"one_liner\"\nfile = \"a.py\"\n",
			want:    "function must not be empty",
		},
		{
			name:    "function scope without function",
			content: "[[checks]]\nkind = \"files_closed\"\nfile = \"a.py\"\n",
			want:    "function scope requires function",
		},
		{
			name:    "unqualified candidate",
			content: "[[checks]]\nkind = \"calls\"\nfile = \"a.py\"\nfunction = \"f\"\ncandidates = [\"sqrt\"]\n",
			want:    "module.function",
		},
		{
			name:    "non python expected functions",
			content: "[expected_functions]\n\"notes.txt\" = [\"main\"]\n",
			want:    "python modules",
		},
		{
			name:    "duplicate names",
			content: "[[checks]]\nkind = \"style\"\n[[checks]]\nkind = \"style\"\n",
			want:    "duplicate check name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeRubric(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.IsCode(err, errors.CodeValidationError) {
				t.Errorf("expected VALIDATION_ERROR, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeRubric(t, "")
	if err := os.WriteFile(filepath.Join(filepath.Dir(path), ".env"), []byte("GRADECHECK_PYTHON=/opt/py/bin/python3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GRADECHECK_DB_PATH", "custom.db")
	t.Setenv("GRADECHECK_WATCH_DEBOUNCE", "250ms")
	t.Cleanup(func() { os.Unsetenv("GRADECHECK_PYTHON") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DB.Path != "custom.db" {
		t.Errorf("Expected db path custom.db, got %s", cfg.DB.Path)
	}
	if cfg.Watch.Debounce != 250*time.Millisecond {
		t.Errorf("Expected debounce 250ms, got %v", cfg.Watch.Debounce)
	}
	if cfg.Python != "/opt/py/bin/python3" {
		t.Errorf("Expected python from .env, got %s", cfg.Python)
	}
}

func TestResolvePaths(t *testing.T) {
	state := t.TempDir()
	t.Setenv("XDG_STATE_HOME", state)

	path := writeRubric(t, "submission_dir = \"subs\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	resolved, err := ResolvePaths(cfg, path)
	if err != nil {
		t.Fatalf("ResolvePaths failed: %v", err)
	}

	if want := filepath.Join(filepath.Dir(path), "subs"); resolved.SubmissionDir != want {
		t.Errorf("Expected submission dir %s, got %s", want, resolved.SubmissionDir)
	}
	if want := filepath.Join(state, "gradecheck", "gradecheck.db"); resolved.DBPath != want {
		t.Errorf("Expected db path %s, got %s", want, resolved.DBPath)
	}
}

func TestExpectedPython(t *testing.T) {
	cfg := &Config{
		ExpectedFiles:     []string{"b.py", "*.py", "notes.txt", "a.py"},
		ExpectedFunctions: map[string][]string{"c.py": {"main"}, "a.py": {"helper"}},
	}
	got := cfg.ExpectedPython()
	want := []string{"b.py", "a.py", "c.py"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestWatcher_ReloadsRubric(t *testing.T) {
	path := writeRubric(t, rubric)

	reloaded := make(chan *Config, 1)
	w := NewWatcher(path, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	updated := strings.Replace(rubric, `debounce = "1s"`, `debounce = "2s"`, 1)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Watch.Debounce != 2*time.Second {
			t.Errorf("Expected reloaded debounce 2s, got %v", cfg.Watch.Debounce)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for rubric reload")
	}
	w.Stop()
}
