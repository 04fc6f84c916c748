package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolvedPaths are the rubric locations made absolute.
type ResolvedPaths struct {
	RubricDir     string
	SubmissionDir string
	StateDir      string
	DBPath        string
}

// ResolvePaths anchors relative submission paths at the rubric's directory and
// the database under the user state directory.
func ResolvePaths(cfg *Config, rubricPath string) (ResolvedPaths, error) {
	abs, err := filepath.Abs(rubricPath)
	if err != nil {
		return ResolvedPaths{}, err
	}
	rubricDir := filepath.Dir(abs)

	stateDir, err := StateDir()
	if err != nil {
		return ResolvedPaths{}, err
	}

	return ResolvedPaths{
		RubricDir:     rubricDir,
		SubmissionDir: ResolveRelative(rubricDir, cfg.SubmissionDir),
		StateDir:      stateDir,
		DBPath:        ResolveRelative(stateDir, cfg.DB.Path),
	}, nil
}

// StateDir is $XDG_STATE_HOME/gradecheck, or ~/.local/state/gradecheck.
func StateDir() (string, error) {
	base := strings.TrimSpace(os.Getenv("XDG_STATE_HOME"))
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "gradecheck"), nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}
