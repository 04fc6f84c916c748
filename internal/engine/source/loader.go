package source

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gradecheck/internal/core/errors"
	"gradecheck/internal/engine/parser"
	"gradecheck/internal/shared/observability"

	"github.com/spf13/afero"
)

const pySuffix = ".py"

// Loader turns a file path into a Unit by parsing it. Submission code is never
// executed here; see package interp for the one check that needs a live
// interpreter.
type Loader struct {
	fs     afero.Fs
	parser *parser.Parser
}

func NewLoader(fs afero.Fs, p *parser.Parser) *Loader {
	return &Loader{fs: fs, parser: p}
}

// NewOSLoader loads from the real filesystem with the Python grammar.
func NewOSLoader() (*Loader, error) {
	p, err := parser.NewPythonParser()
	if err != nil {
		return nil, err
	}
	return NewLoader(afero.NewOsFs(), p), nil
}

func (l *Loader) Fs() afero.Fs {
	return l.fs
}

// Load reads and parses path. A missing file or a syntax error is a LoadError;
// a path without the ".py" suffix is a validation error in the caller.
func (l *Loader) Load(path string) (*Unit, error) {
	if !strings.HasSuffix(path, pySuffix) {
		return nil, errors.New(errors.CodeValidationError, fmt.Sprintf("can only load python modules, got %q", path))
	}

	start := time.Now()
	unit, err := l.load(path)
	observability.LoadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.LoadFailuresTotal.Inc()
		slog.Debug("load failed", "path", path, "error", err)
		return nil, err
	}
	return unit, nil
}

func (l *Loader) load(path string) (*Unit, error) {
	content, err := afero.ReadFile(l.fs, path)
	if err != nil {
		msg := "cannot read module"
		if os.IsNotExist(err) {
			msg = "module not found"
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeLoad, msg), errors.CtxPath, path)
	}

	file, err := l.parser.ParseFile(path, content)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeLoad, "cannot parse module"), errors.CtxPath, path)
	}
	if file.SyntaxError != nil {
		de := &errors.DomainError{Code: errors.CodeLoad, Message: "invalid syntax"}
		return nil, de.WithContext(errors.CtxPath, path).WithContext(errors.CtxLine, file.SyntaxError.Line)
	}

	return newUnit(path, file), nil
}
