package grading

import (
	"context"
	"io"
	"testing"

	"gradecheck/internal/core/config"
	"gradecheck/internal/core/errors"
	"gradecheck/internal/data/history"
	"gradecheck/internal/engine/interp"
	"gradecheck/internal/engine/style"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calcSource = `"""Calculator."""


def add(a, b):
    """Add."""
    return a + b


def main():
    """Greet."""
    name = input("Name: ")
    print("Hello, " + name)
    add(1, 2)


if __name__ == "__main__":
    main()
`

type recorder struct {
	records []history.Record
}

func (r *recorder) SaveRun(records []history.Record) error {
	r.records = append(r.records, records...)
	return nil
}

// fakePython answers harness runs with a fixed call record and program runs
// with a greeting built from stdin.
func fakePython(ctx context.Context, stdin io.Reader, _ string, args ...string) ([]byte, error) {
	if len(args) > 0 && args[0] == "-c" {
		return []byte(`{"called": {"calc.add": true}, "raised": ""}` + "\n"), nil
	}
	in, err := io.ReadAll(stdin)
	if err != nil {
		return nil, err
	}
	return []byte("Name: Hello, " + string(in)), nil
}

func newTestRunner(t *testing.T, cfg *config.Config, files map[string]string, opts ...Option) *Runner {
	t.Helper()
	base := []Option{
		WithStyleChecker(fakeStyle{
			"/sub/calc.py": {{Row: 3, Col: 1, Code: "E302", Message: "expected 2 blank lines, found 1"}},
		}),
		WithInterpreter(interp.NewWithRunner("python3", fakePython)),
	}
	return NewRunner(cfg, newRegistry(t, files), append(base, opts...)...)
}

func check(kind string, mutate ...func(*config.Check)) config.Check {
	c := config.Check{Name: kind, Kind: kind, PointsPerError: 1, MaxPointsDeducted: 10}
	for _, m := range mutate {
		m(&c)
	}
	return c
}

func TestRunner_Run(t *testing.T) {
	cfg := &config.Config{
		ExpectedFiles:     []string{"calc.py", "README.md"},
		ExpectedFunctions: map[string][]string{"calc.py": {"main", "add", "mul"}},
		Checks: []config.Check{
			check(config.KindMissingFiles),
			check(config.KindMissingFunctions, func(c *config.Check) {
				c.Message = "Use the function names from the assignment."
			}),
			check(config.KindStyle, func(c *config.Check) {
				c.PointsPerError, c.MaxPointsDeducted = 2, 3
			}),
			check(config.KindMainLast, func(c *config.Check) { c.File = "calc.py" }),
			check(config.KindNameEqMain, func(c *config.Check) { c.File = "calc.py" }),
			check(config.KindDocstrings),
			check(config.KindConstruct, func(c *config.Check) {
				c.Name, c.File, c.Function, c.Construct, c.Forbid = "no loops", "calc.py", "add", "for_loop", true
			}),
			check(config.KindCalls, func(c *config.Check) {
				c.File, c.Function, c.Candidates = "calc.py", "main", []string{"calc.add"}
			}),
			check(config.KindIO, func(c *config.Check) {
				c.File, c.Inputs, c.Expected = "calc.py", []string{"Ada"}, "Name: Hello, Ada"
			}),
		},
	}
	rec := &recorder{}
	runner := newTestRunner(t, cfg, map[string]string{"calc.py": calcSource}, WithRecorder(rec))

	report, err := runner.Run(context.Background(), "alice", "/sub")
	require.NoError(t, err)
	require.Len(t, report.Results, len(cfg.Checks))
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "alice", report.Submission)

	fails := report.Failed()
	require.Len(t, fails, 3)

	assert.Equal(t, config.KindMissingFiles, fails[0].Check.Kind)
	assert.Equal(t, []string{"README.md"}, fails[0].Problems)
	assert.Equal(t, Feedback{
		Feedback:       "The name for the following submitted file(s) are wrong: README.md",
		PointsDeducted: 1,
	}, fails[0].Feedback)

	assert.Equal(t, []string{"mul"}, fails[1].Problems)
	assert.Equal(t, "Use the function names from the assignment.", fails[1].Feedback.Feedback)

	assert.Equal(t, "calc.py - Row 3: Col 1: E302 expected 2 blank lines, found 1", fails[2].Feedback.Feedback)
	assert.Equal(t, 2, fails[2].Feedback.PointsDeducted)

	assert.Equal(t, 4, report.PointsDeducted)

	require.Len(t, rec.records, len(cfg.Checks))
	for _, r := range rec.records {
		assert.Equal(t, report.RunID, r.RunID)
		assert.Equal(t, "alice", r.Submission)
	}
}

func TestRunner_SubmissionFaultsFailChecks(t *testing.T) {
	cfg := &config.Config{
		Checks: []config.Check{
			check(config.KindMainExists, func(c *config.Check) { c.File = "broken.py" }),
			check(config.KindOneLiner, func(c *config.Check) { c.File, c.Function = "calc.py", "absent" }),
			check(config.KindConstruct, func(c *config.Check) {
				c.File, c.Function, c.Construct = "calc.py", "absent", "lambda"
			}),
		},
	}
	runner := newTestRunner(t, cfg, map[string]string{
		"broken.py": "def main(:\n",
		"calc.py":   calcSource,
	})

	report, err := runner.Run(context.Background(), "bob", "/sub")
	require.NoError(t, err)
	require.Len(t, report.Failed(), 3)
	assert.Equal(t, "broken.py could not be loaded", report.Results[0].Feedback.Feedback)
	assert.Equal(t, "absent is not a one-line function", report.Results[1].Feedback.Feedback)
	assert.Equal(t, "The name for the following function(s) are wrong: absent", report.Results[2].Feedback.Feedback)
}

func TestRunner_ConfigurationErrorsAbortRun(t *testing.T) {
	files := map[string]string{"calc.py": calcSource}

	t.Run("bad pattern", func(t *testing.T) {
		cfg := &config.Config{Checks: []config.Check{
			check(config.KindPattern, func(c *config.Check) {
				c.File, c.Function, c.Pattern = "calc.py", "main", "([unclosed"
			}),
		}}
		_, err := newTestRunner(t, cfg, files).Run(context.Background(), "carol", "/sub")
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodePattern))
	})

	t.Run("unknown kind", func(t *testing.T) {
		cfg := &config.Config{Checks: []config.Check{check("telepathy")}}
		_, err := newTestRunner(t, cfg, files).Run(context.Background(), "carol", "/sub")
		assert.ErrorContains(t, err, "telepathy")
	})
}

func TestRunner_SetConfig(t *testing.T) {
	files := map[string]string{"calc.py": calcSource}
	runner := newTestRunner(t, &config.Config{}, files)

	report, err := runner.Run(context.Background(), "dave", "/sub")
	require.NoError(t, err)
	assert.Empty(t, report.Results)

	runner.SetConfig(&config.Config{Checks: []config.Check{
		check(config.KindMainExists, func(c *config.Check) { c.File = "calc.py" }),
	}})
	report, err = runner.Run(context.Background(), "dave", "/sub")
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.True(t, report.Results[0].Passed)
}

var _ style.Checker = fakeStyle{}
