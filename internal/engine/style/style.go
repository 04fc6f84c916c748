// Package style wraps an external PEP 8 checker.
package style

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"

	"gradecheck/internal/core/errors"
	"gradecheck/internal/shared/observability"
)

// Violation is one reported style problem.
type Violation struct {
	Row     int
	Col     int
	Code    string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("Row %d: Col %d: %s %s", v.Row, v.Col, v.Code, v.Message)
}

// Checker reports style violations per file. Files without violations are
// absent from the result.
type Checker interface {
	Check(ctx context.Context, files []string) (map[string][]Violation, error)
}

var lineRegex = regexp.MustCompile(`^(.*):(\d+):(\d+): ([A-Z]\d+) (.*)$`)

// RunFunc executes name with args and returns its standard output.
type RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Pycodestyle runs the pycodestyle command line tool once per file so every
// violation maps to the file it came from.
type Pycodestyle struct {
	Command string
	Args    []string
	run     RunFunc
}

func NewPycodestyle(command string, args ...string) *Pycodestyle {
	return NewPycodestyleWithRunner(command, execRun, args...)
}

func NewPycodestyleWithRunner(command string, run RunFunc, args ...string) *Pycodestyle {
	if command == "" {
		command = "pycodestyle"
	}
	return &Pycodestyle{Command: command, Args: args, run: run}
}

func (p *Pycodestyle) Check(ctx context.Context, files []string) (map[string][]Violation, error) {
	ctx, span := observability.Tracer.Start(ctx, "style.Check")
	defer span.End()

	out := make(map[string][]Violation)
	for _, file := range files {
		args := append(append([]string{}, p.Args...), file)
		stdout, runErr := p.run(ctx, p.Command, args...)

		violations, err := parse(bytes.NewReader(stdout))
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "read style report")
		}
		// pycodestyle exits 1 when it found something to report.
		if runErr != nil && len(violations) == 0 {
			return nil, errors.AddContext(errors.Wrap(runErr, errors.CodeInternal, "style checker failed"), errors.CtxPath, file)
		}
		if len(violations) > 0 {
			out[file] = violations
		}
	}
	return out, nil
}

// Messages renders every violation with Violation.String, grouped by file.
func Messages(report map[string][]Violation) map[string][]string {
	out := make(map[string][]string, len(report))
	for file, violations := range report {
		for _, v := range violations {
			out[file] = append(out[file], v.String())
		}
	}
	return out
}

func parse(r io.Reader) ([]Violation, error) {
	var out []Violation
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		m := lineRegex.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		row, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		out = append(out, Violation{Row: row, Col: col, Code: m[4], Message: m[5]})
	}
	return out, scanner.Err()
}

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}
