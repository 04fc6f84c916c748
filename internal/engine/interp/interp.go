// Package interp runs submitted code in a Python interpreter. It is the only
// part of gradecheck that executes submissions; everything else reads the parse
// tree.
package interp

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"gradecheck/internal/core/errors"
	"gradecheck/internal/engine/source"
	"gradecheck/internal/shared/observability"
)

//go:embed harness.py
var harness string

// RunFunc executes name with args, feeding stdin, and returns standard output.
type RunFunc func(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error)

type Interpreter struct {
	// Path is the interpreter executable, "python3" when empty.
	Path string
	run  RunFunc
}

func New(path string) *Interpreter {
	return NewWithRunner(path, execRun)
}

// NewWithRunner replaces process execution, mainly for tests.
func NewWithRunner(path string, run RunFunc) *Interpreter {
	if path == "" {
		path = "python3"
	}
	return &Interpreter{Path: path, run: run}
}

// Available reports whether the interpreter can be found.
func (i *Interpreter) Available() bool {
	_, err := exec.LookPath(i.Path)
	return err == nil
}

type calledResult struct {
	Called  map[string]bool `json:"called"`
	Raised  string          `json:"raised"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// CalledDuring invokes def once with no arguments and reports, for each
// candidate "module.function", whether it was called while def ran. Calls are
// recorded by identity of the called object, so aliases such as
// "from math import sqrt as root" are still seen. The recording hook is removed
// whether or not def raises.
func (i *Interpreter) CalledDuring(ctx context.Context, def *source.Definition, candidates []string) (map[string]bool, error) {
	ctx, span := observability.Tracer.Start(ctx, "interp.CalledDuring")
	defer span.End()

	if len(candidates) == 0 {
		return map[string]bool{}, nil
	}
	path := def.Unit().Path

	args := append([]string{"-c", harness, "called", path, def.Name}, candidates...)
	observability.InterpreterRunsTotal.WithLabelValues("called").Inc()
	out, err := i.run(ctx, strings.NewReader(""), i.Path, args...)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "interpreter failed"), errors.CtxPath, path)
	}

	var res calledResult
	if err := json.Unmarshal(lastLine(out), &res); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "unreadable harness output")
	}

	switch res.Error {
	case "":
	case "load":
		return nil, (&errors.DomainError{Code: errors.CodeLoad, Message: res.Message}).WithContext(errors.CtxPath, path)
	case "missing":
		return nil, (&errors.DomainError{Code: errors.CodeMissingAttribute, Message: res.Message}).
			WithContext(errors.CtxPath, path).WithContext(errors.CtxSymbol, def.Name)
	case "unresolved":
		return nil, errors.New(errors.CodeUnresolvedCallTarget, res.Message)
	default:
		return nil, errors.New(errors.CodeInternal, res.Message)
	}

	if res.Raised != "" {
		span.AddEvent("function raised")
	}
	called := make(map[string]bool, len(candidates))
	for _, name := range candidates {
		called[name] = res.Called[name]
	}
	return called, nil
}

// Simulate runs the program at path as __main__ with inputs fed to stdin, one
// per line in their default format, and returns what it printed. A program that exits with an error
// still returns the output produced up to that point.
func (i *Interpreter) Simulate(ctx context.Context, path string, inputs ...any) (string, error) {
	ctx, span := observability.Tracer.Start(ctx, "interp.Simulate")
	defer span.End()

	var stdin strings.Builder
	for _, in := range inputs {
		fmt.Fprintln(&stdin, in)
	}

	observability.InterpreterRunsTotal.WithLabelValues("simulate").Inc()
	out, err := i.run(ctx, strings.NewReader(stdin.String()), i.Path, path)
	if err != nil {
		return string(out), fmt.Errorf("run %s: %w", path, err)
	}
	return string(out), nil
}

func lastLine(out []byte) []byte {
	out = bytes.TrimRight(out, "\r\n")
	if idx := bytes.LastIndexByte(out, '\n'); idx >= 0 {
		return out[idx+1:]
	}
	return out
}

func execRun(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%w: %s", err, msg)
		}
		return out, err
	}
	return out, nil
}
