package lifecycle

import (
	"testing"

	"gradecheck/internal/engine/parser"
	"gradecheck/internal/engine/source"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadUnit(t *testing.T, code string) *source.Unit {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "files.py", []byte(code), 0o644))
	p, err := parser.NewPythonParser()
	require.NoError(t, err)
	unit, err := source.NewLoader(fs, p).Load("files.py")
	require.NoError(t, err)
	return unit
}

func TestAllClosed(t *testing.T) {
	tests := []struct {
		name string
		code string
		want bool
	}{
		{
			name: "opened never closed",
			code: "def f():\n    f = open(\"x\")\n    return f.read()\n",
			want: false,
		},
		{
			name: "closed on later line",
			code: "def f():\n    f = open(\"x\")\n    data = f.read()\n    f.close()\n    return data\n",
			want: true,
		},
		{
			name: "no open calls",
			code: "def f():\n    return 1\n",
			want: true,
		},
		{
			name: "close before open",
			code: "def f(g):\n    g.close()\n    g = open(\"x\")\n",
			want: false,
		},
		{
			name: "different variable closed",
			code: "def f():\n    a = open(\"x\")\n    b.close()\n",
			want: false,
		},
		{
			name: "with block not tracked",
			code: "def f():\n    with open(\"x\") as fh:\n        return fh.read()\n",
			want: true,
		},
		{
			name: "close inside docstring ignored",
			code: "def f():\n    f = open(\"x\")\n    \"\"\"\n    f.close()\n    \"\"\"\n",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := loadUnit(t, tt.code).Lookup("f")
			require.NoError(t, err)
			assert.Equal(t, tt.want, AllClosed(def))
		})
	}
}

func TestUnclosed_ReportsHandles(t *testing.T) {
	unit := loadUnit(t, "def f():\n    a = open(\"a\")\n    b = open(\"b\")\n    a.close()\n")
	def, err := unit.Lookup("f")
	require.NoError(t, err)

	got := Unclosed(def)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Name)
	assert.Equal(t, 3, got[0].Line)
	assert.Same(t, def, got[0].Definition)
}

func TestAllClosedInUnit(t *testing.T) {
	unit := loadUnit(t, `def opener():
    handle = open("x")
    return handle


def closer():
    handle.close()
`)
	opener, err := unit.Lookup("opener")
	require.NoError(t, err)

	assert.False(t, AllClosed(opener), "function scope sees no close")
	assert.True(t, AllClosedInUnit(unit), "file scope pairs across functions")

	reversed := loadUnit(t, `def closer():
    handle.close()


def opener():
    handle = open("x")
`)
	assert.False(t, AllClosedInUnit(reversed))
	require.Len(t, UnclosedInUnit(reversed), 1)
}
