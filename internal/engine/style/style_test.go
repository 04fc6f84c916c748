package style

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViolation_String(t *testing.T) {
	v := Violation{Row: 9, Col: 30, Code: "E201", Message: "whitespace after '('"}
	assert.Equal(t, "Row 9: Col 30: E201 whitespace after '('", v.String())
}

func TestPycodestyle_GroupsByFile(t *testing.T) {
	reports := map[string]string{
		"a.py": "a.py:1:1: E302 expected 2 blank lines, found 1\na.py:3:80: E501 line too long (88 > 79 characters)\n",
		"b.py": "",
	}
	var calls [][]string
	checker := NewPycodestyleWithRunner("", func(_ context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, append([]string{name}, args...))
		file := args[len(args)-1]
		if reports[file] != "" {
			return []byte(reports[file]), errors.New("exit status 1")
		}
		return nil, nil
	}, "--max-line-length=79")

	got, err := checker.Check(context.Background(), []string{"a.py", "b.py"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []Violation{
		{Row: 1, Col: 1, Code: "E302", Message: "expected 2 blank lines, found 1"},
		{Row: 3, Col: 80, Code: "E501", Message: "line too long (88 > 79 characters)"},
	}, got["a.py"])

	assert.Equal(t, [][]string{
		{"pycodestyle", "--max-line-length=79", "a.py"},
		{"pycodestyle", "--max-line-length=79", "b.py"},
	}, calls)

	assert.Equal(t, map[string][]string{"a.py": {
		"Row 1: Col 1: E302 expected 2 blank lines, found 1",
		"Row 3: Col 80: E501 line too long (88 > 79 characters)",
	}}, Messages(got))
}

func TestPycodestyle_FailureWithoutReport(t *testing.T) {
	checker := NewPycodestyleWithRunner("", func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("executable file not found")
	})
	_, err := checker.Check(context.Background(), []string{"a.py"})
	assert.Error(t, err)
}

func TestPycodestyle_Real(t *testing.T) {
	if _, err := exec.LookPath("pycodestyle"); err != nil {
		t.Skip("pycodestyle not on PATH")
	}
	dir := t.TempDir()
	clean := filepath.Join(dir, "clean.py")
	messy := filepath.Join(dir, "messy.py")
	require.NoError(t, os.WriteFile(clean, []byte("x = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(messy, []byte("x=1\n"), 0o644))

	got, err := NewPycodestyle("").Check(context.Background(), []string{clean, messy})
	require.NoError(t, err)
	assert.NotContains(t, got, clean)
	require.NotEmpty(t, got[messy])
	assert.Equal(t, "E225", got[messy][0].Code)
}
