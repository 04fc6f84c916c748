package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"gradecheck/internal/core/errors"

	"github.com/gobwas/glob"
)

// Config is a grading rubric: which files a submission must contain and the
// checks run against them.
type Config struct {
	Version           int                 `toml:"version"`
	SubmissionDir     string              `toml:"submission_dir"`
	Python            string              `toml:"python"`
	ExpectedFiles     []string            `toml:"expected_files"`
	ExpectedFunctions map[string][]string `toml:"expected_functions"`
	Style             Style               `toml:"style"`
	Scoring           Scoring             `toml:"scoring"`
	Registry          Registry            `toml:"registry"`
	DB                Database            `toml:"db"`
	Exclude           Exclude             `toml:"exclude"`
	Watch             Watch               `toml:"watch"`
	Observability     Observability       `toml:"observability"`
	Checks            []Check             `toml:"checks"`
}

type Style struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

// Scoring holds the defaults for checks that set neither value.
type Scoring struct {
	PointsPerError    int `toml:"points_per_error"`
	MaxPointsDeducted int `toml:"max_points_deducted"`
}

type Registry struct {
	Size int `toml:"size"`
}

type Database struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	// RegradeRate is the number of regrades allowed per second.
	RegradeRate float64 `toml:"regrade_rate"`
}

type Observability struct {
	MetricsPort   int    `toml:"metrics_port"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	EnableTracing bool   `toml:"enable_tracing"`
}

// Check is one rubric entry. Which fields apply depends on Kind.
type Check struct {
	Name     string `toml:"name"`
	Kind     string `toml:"kind"`
	File     string `toml:"file"`
	Function string `toml:"function"`

	// Construct names a built-in pattern for KindConstruct; Pattern is a regular
	// expression for KindPattern.
	Construct string `toml:"construct"`
	Pattern   string `toml:"pattern"`
	// Forbid fails construct and pattern checks when the code is found rather
	// than when it is missing.
	Forbid bool `toml:"forbid"`
	// Scope is "function" or "file" for KindFilesClosed.
	Scope string `toml:"scope"`

	Imports    []string `toml:"imports"`
	Candidates []string `toml:"candidates"`
	Inputs     []string `toml:"inputs"`
	Expected   string   `toml:"expected"`

	Message           string `toml:"message"`
	PointsPerError    int    `toml:"points_per_error"`
	MaxPointsDeducted int    `toml:"max_points_deducted"`
}

const (
	KindMissingFiles          = "missing_files"
	KindMissingFunctions      = "missing_functions"
	KindStyle                 = "style"
	KindNameEqMain            = "name_eq_main"
	KindMainExists            = "main_exists"
	KindMainLast              = "main_last"
	KindDocstrings            = "docstrings"
	KindDoubleQuoteDocstrings = "double_quote_docstrings"
	KindBuiltinsNotShadowed   = "builtins_not_shadowed"
	KindOneLiner              = "one_liner"
	KindImports               = "imports"
	KindTestAsserts           = "test_asserts"
	KindConstruct             = "construct"
	KindPattern               = "pattern"
	KindFilesClosed           = "files_closed"
	KindCalls                 = "calls"
	KindIO                    = "io"
)

// Constructs accepted by KindConstruct checks.
var Constructs = []string{
	"input", "lambda", "for_loop", "while_loop", "with_open",
	"absolute_path", "list_comprehension", "global",
}

type requirement struct {
	file, function bool
}

var checkKinds = map[string]requirement{
	KindMissingFiles:          {},
	KindMissingFunctions:      {},
	KindStyle:                 {},
	KindNameEqMain:            {file: true},
	KindMainExists:            {file: true},
	KindMainLast:              {file: true},
	KindDocstrings:            {},
	KindDoubleQuoteDocstrings: {},
	KindBuiltinsNotShadowed:   {file: true, function: true},
	KindOneLiner:              {file: true, function: true},
	KindImports:               {file: true},
	KindTestAsserts:           {file: true},
	KindConstruct:             {file: true, function: true},
	KindPattern:               {file: true, function: true},
	KindFilesClosed:           {file: true},
	KindCalls:                 {file: true, function: true},
	KindIO:                    {file: true},
}

// IsKnownKind reports whether kind names a check the grader can run.
func IsKnownKind(kind string) bool {
	_, ok := checkKinds[kind]
	return ok
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.SubmissionDir) == "" {
		cfg.SubmissionDir = "."
	}
	if strings.TrimSpace(cfg.Python) == "" {
		cfg.Python = "python3"
	}
	if strings.TrimSpace(cfg.Style.Command) == "" {
		cfg.Style.Command = "pycodestyle"
	}

	if cfg.Scoring.PointsPerError <= 0 {
		cfg.Scoring.PointsPerError = 1
	}
	if cfg.Scoring.MaxPointsDeducted <= 0 {
		cfg.Scoring.MaxPointsDeducted = 10
	}
	if cfg.Registry.Size <= 0 {
		cfg.Registry.Size = 64
	}

	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = "gradecheck.db"
	}
	if cfg.DB.BusyTimeout <= 0 {
		cfg.DB.BusyTimeout = 5 * time.Second
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.RegradeRate <= 0 {
		cfg.Watch.RegradeRate = 1
	}
	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{"__pycache__", ".git", ".venv"}
	}

	for i := range cfg.Checks {
		check := &cfg.Checks[i]
		if check.PointsPerError <= 0 {
			check.PointsPerError = cfg.Scoring.PointsPerError
		}
		if check.MaxPointsDeducted <= 0 {
			check.MaxPointsDeducted = cfg.Scoring.MaxPointsDeducted
		}
		if check.Kind == KindFilesClosed && check.Scope == "" {
			check.Scope = "function"
		}
		if check.Name == "" {
			check.Name = check.Kind
			if check.Function != "" {
				check.Name += ":" + check.Function
			}
		}
	}
}

func invalid(format string, args ...interface{}) error {
	return errors.New(errors.CodeValidationError, fmt.Sprintf(format, args...))
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return invalid("unsupported rubric version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateExpected(cfg *Config) error {
	for _, file := range cfg.ExpectedFiles {
		if strings.TrimSpace(file) == "" {
			return invalid("expected_files must not include empty values")
		}
		if isPattern(file) {
			if _, err := glob.Compile(file, '/'); err != nil {
				return invalid("expected_files: invalid pattern %q: %v", file, err)
			}
		}
	}
	for file, functions := range cfg.ExpectedFunctions {
		if !strings.HasSuffix(file, ".py") {
			return invalid("expected_functions.%q: functions can only be checked in python modules", file)
		}
		for _, fn := range functions {
			if strings.TrimSpace(fn) == "" {
				return invalid("expected_functions.%q must not include empty names", file)
			}
		}
	}
	return nil
}

func validateExclude(cfg *Config) error {
	for _, pattern := range append(append([]string(nil), cfg.Exclude.Dirs...), cfg.Exclude.Files...) {
		if _, err := glob.Compile(pattern); err != nil {
			return errors.Wrap(err, errors.CodeValidationError, fmt.Sprintf("exclude pattern %q", pattern))
		}
	}
	return nil
}

func validateChecks(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Checks))
	for i, check := range cfg.Checks {
		ref := fmt.Sprintf("checks[%d]", i)
		req, ok := checkKinds[check.Kind]
		if !ok {
			return invalid("%s: unknown kind %q", ref, check.Kind)
		}
		if seen[check.Name] {
			return invalid("duplicate check name %q", check.Name)
		}
		seen[check.Name] = true

		if req.file && !strings.HasSuffix(check.File, ".py") {
			return invalid("%s (%s): file must name a .py file, got %q", ref, check.Name, check.File)
		}
		if req.function && strings.TrimSpace(check.Function) == "" {
			return invalid("%s (%s): function must not be empty", ref, check.Name)
		}
		if check.MaxPointsDeducted < 0 || check.PointsPerError < 0 {
			return invalid("%s (%s): points must not be negative", ref, check.Name)
		}

		switch check.Kind {
		case KindPattern:
			if _, err := regexp.Compile(check.Pattern); err != nil {
				return errors.Wrap(err, errors.CodeValidationError, fmt.Sprintf("%s (%s): invalid pattern %q", ref, check.Name, check.Pattern))
			}
		case KindConstruct:
			if !isConstruct(check.Construct) {
				return invalid("%s (%s): unknown construct %q; expected one of: %s", ref, check.Name, check.Construct, strings.Join(Constructs, ", "))
			}
		case KindFilesClosed:
			switch check.Scope {
			case "function":
				if strings.TrimSpace(check.Function) == "" {
					return invalid("%s (%s): function scope requires function", ref, check.Name)
				}
			case "file":
			default:
				return invalid("%s (%s): scope must be one of: function, file", ref, check.Name)
			}
		case KindImports:
			if len(check.Imports) == 0 {
				return invalid("%s (%s): imports must not be empty", ref, check.Name)
			}
		case KindCalls:
			if len(check.Candidates) == 0 {
				return invalid("%s (%s): candidates must not be empty", ref, check.Name)
			}
			for _, c := range check.Candidates {
				if !strings.Contains(c, ".") {
					return invalid("%s (%s): candidate %q must be module.function", ref, check.Name, c)
				}
			}
		}
	}
	return nil
}

func isConstruct(name string) bool {
	for _, c := range Constructs {
		if c == name {
			return true
		}
	}
	return false
}
