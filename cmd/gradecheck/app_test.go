package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gradecheck/internal/core/config"
	"gradecheck/internal/grading"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calcSource = `def add(a, b):
    """Add two numbers."""
    # plain sum
    return a + b


def helper():
    return 1


def main():
    print(add(1, 2))
`

func newTestApp(t *testing.T, checks ...config.Check) *App {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "alice")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "calc.py"), []byte(calcSource), 0o644))

	cfg := &config.Config{
		ExpectedFiles: []string{"calc.py", "README.md"},
		Registry:      config.Registry{Size: 8},
		DB:            config.Database{Enabled: true},
		Checks:        checks,
	}
	paths := config.ResolvedPaths{
		SubmissionDir: dir,
		DBPath:        filepath.Join(t.TempDir(), "history.db"),
	}

	app, err := NewApp(cfg, paths)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app
}

func rubricCheck(kind string, mutate ...func(*config.Check)) config.Check {
	c := config.Check{Name: kind, Kind: kind, PointsPerError: 1, MaxPointsDeducted: 5}
	for _, m := range mutate {
		m(&c)
	}
	return c
}

func TestApp_GradeAndPrint(t *testing.T) {
	app := newTestApp(t,
		rubricCheck(config.KindMissingFiles),
		rubricCheck(config.KindMainLast, func(c *config.Check) { c.File = "calc.py" }),
		rubricCheck(config.KindDocstrings),
	)
	assert.Equal(t, "alice", app.SubmissionID())

	report, err := app.Grade(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 3)
	assert.False(t, report.Results[0].Passed)
	assert.True(t, report.Results[1].Passed)
	assert.False(t, report.Results[2].Passed)

	var out bytes.Buffer
	app.PrintReport(&out, report)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `{"feedback":"The name for the following submitted file(s) are wrong: README.md","points_deducted":1} `+grading.EndMarker, lines[0])
	assert.Contains(t, lines[1], "helper")
	assert.Contains(t, lines[2], "3 checks, 2 failed, 2 points deducted")

	out.Reset()
	require.NoError(t, app.PrintHistory(&out))
	assert.Contains(t, out.String(), report.RunID)
	assert.Contains(t, out.String(), "2/3 failed")
}

func TestApp_HandleChangesRegrades(t *testing.T) {
	app := newTestApp(t, rubricCheck(config.KindMainExists, func(c *config.Check) { c.File = "calc.py" }))
	var out bytes.Buffer
	app.out = &out

	_, err := app.Grade(context.Background())
	require.NoError(t, err)

	path := filepath.Join(app.Paths.SubmissionDir, "calc.py")
	require.NoError(t, os.WriteFile(path, []byte("def helper():\n    pass\n"), 0o644))
	app.HandleChanges([]string{path})

	assert.Contains(t, out.String(), "calc.py has no main function")
	assert.Contains(t, out.String(), "1 failed")
}

func TestApp_ReloadConfig(t *testing.T) {
	app := newTestApp(t)
	var out bytes.Buffer
	app.out = &out

	cfg := *app.Config
	cfg.Checks = []config.Check{rubricCheck(config.KindNameEqMain, func(c *config.Check) { c.File = "calc.py" })}
	app.ReloadConfig(&cfg)

	assert.Contains(t, out.String(), `calc.py has no if __name__ == \"__main__\" statement`)
}

func TestApp_PrintOrderAndClean(t *testing.T) {
	app := newTestApp(t)

	var out bytes.Buffer
	require.NoError(t, app.PrintOrder(&out, "calc.py"))
	assert.Equal(t, "add\nhelper\nmain\n", out.String())

	out.Reset()
	require.NoError(t, app.PrintClean(&out, "calc.py:add"))
	assert.Equal(t, "  1  def add(a, b):\n  2      return a + b\n", out.String())

	assert.Error(t, app.PrintClean(&out, "calc.py"))
	assert.Error(t, app.PrintClean(&out, "calc.py:absent"))
	assert.Error(t, app.PrintOrder(&out, "absent.py"))
}

func TestApp_HistoryDisabled(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.store.Close())
	app.store = nil

	assert.Error(t, app.PrintHistory(&bytes.Buffer{}))
	assert.NoError(t, app.health(context.Background()))
}

func TestModel_Update(t *testing.T) {
	m := initialModel("alice")
	assert.Contains(t, m.View(), "grading...")

	report := &grading.Report{
		Submission:     "alice",
		PointsDeducted: 2,
		Results: []grading.Result{
			{Check: config.Check{Name: "style"}, Feedback: grading.Feedback{Feedback: "calc.py - E501", PointsDeducted: 2}},
			{Check: config.Check{Name: "main_last"}, Passed: true},
		},
	}
	updated, _ := m.Update(updateMsg{report: report})
	m = updated.(model)

	require.Len(t, m.list.Items(), 1)
	assert.Equal(t, "style (-2)", m.list.Items()[0].(failedCheck).Title())
	assert.Contains(t, m.View(), "1/2 Failed")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
