package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gradecheck/internal/core/errors"
	"gradecheck/internal/shared/util"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads the rubric at path. A .env file next to it is loaded into the
// process environment first, then GRADECHECK_* overrides are applied on top of
// the file values.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "read rubric"), errors.CtxPath, path)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "decode rubric"), errors.CtxPath, path)
	}

	ApplyEnvOverrides(&cfg)
	normalize(&cfg)
	applyDefaults(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validateExpected(&cfg); err != nil {
		return nil, err
	}
	if err := validateExclude(&cfg); err != nil {
		return nil, err
	}
	if err := validateChecks(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDotEnv never overrides variables that are already set.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	slog.Debug("loaded environment file", "path", path)
	return nil
}

func normalize(cfg *Config) {
	cfg.SubmissionDir = strings.TrimSpace(cfg.SubmissionDir)
	cfg.Python = strings.TrimSpace(cfg.Python)
	for i := range cfg.ExpectedFiles {
		cfg.ExpectedFiles[i] = filepath.ToSlash(strings.TrimSpace(cfg.ExpectedFiles[i]))
	}
	for i := range cfg.Checks {
		check := &cfg.Checks[i]
		check.Name = strings.TrimSpace(check.Name)
		check.Kind = strings.ToLower(strings.TrimSpace(check.Kind))
		check.File = filepath.ToSlash(strings.TrimSpace(check.File))
		check.Function = strings.TrimSpace(check.Function)
		check.Construct = strings.ToLower(strings.TrimSpace(check.Construct))
		check.Scope = strings.ToLower(strings.TrimSpace(check.Scope))
	}
}

// ExpectedPython returns the expected files with a .py suffix, in rubric order,
// followed by any file named only in expected_functions. Glob patterns are
// skipped.
func (c *Config) ExpectedPython() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(file string) {
		if strings.HasSuffix(file, ".py") && !isPattern(file) && !seen[file] {
			seen[file] = true
			out = append(out, file)
		}
	}
	for _, file := range c.ExpectedFiles {
		add(file)
	}
	for _, file := range util.SortedStringKeys(c.ExpectedFunctions) {
		add(file)
	}
	return out
}

func isPattern(file string) bool {
	return strings.ContainsAny(file, "*?[{")
}
