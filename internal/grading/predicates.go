package grading

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"gradecheck/internal/core/errors"
	"gradecheck/internal/engine/audit"
	"gradecheck/internal/engine/clean"
	"gradecheck/internal/engine/interp"
	"gradecheck/internal/engine/lifecycle"
	"gradecheck/internal/engine/match"
	"gradecheck/internal/engine/source"
	"gradecheck/internal/engine/style"
	"gradecheck/internal/shared/util"
)

//go:embed builtins.txt
var builtinsText string

// Builtins are the lowercase names of Python's builtins module.
var Builtins = strings.Fields(builtinsText)

// MissingFiles returns the expected files the submission lacks. A Python file
// that does not parse counts as missing. A glob pattern is satisfied by any
// matching file.
func MissingFiles(sub *Submission, files []string) ([]string, error) {
	var missing []string
	for _, file := range files {
		if IsGlob(file) {
			matches, err := sub.Glob(file)
			if err != nil {
				return nil, err
			}
			if len(matches) == 0 {
				missing = append(missing, file)
			}
			continue
		}
		if !strings.HasSuffix(file, ".py") {
			if !sub.Exists(file) {
				missing = append(missing, file)
			}
			continue
		}
		if _, err := sub.Load(file); err != nil {
			if !errors.IsSubmissionFault(err) {
				return nil, err
			}
			missing = append(missing, file)
		}
	}
	return missing, nil
}

// MissingFunctions returns, file by file in name order, the expected names not
// declared in each file. Every name expected from an unloadable file is missing.
func MissingFunctions(sub *Submission, expected map[string][]string) ([]string, error) {
	var missing []string
	for _, file := range util.SortedStringKeys(expected) {
		if !strings.HasSuffix(file, ".py") {
			return nil, errors.New(errors.CodeValidationError, fmt.Sprintf("functions can only be checked in python modules, got %q", file))
		}
		unit, err := sub.Load(file)
		if err != nil {
			if !errors.IsSubmissionFault(err) {
				return nil, err
			}
			missing = append(missing, expected[file]...)
			continue
		}
		for _, name := range expected[file] {
			if !unit.Has(name) {
				missing = append(missing, name)
			}
		}
	}
	return missing, nil
}

// StyleConformance returns the rendered violations of each file that has any,
// keyed by the file name as given, and the total number of violations.
func StyleConformance(ctx context.Context, checker style.Checker, sub *Submission, files []string) (map[string][]string, int, error) {
	paths := make([]string, len(files))
	byPath := make(map[string]string, len(files))
	for i, file := range files {
		paths[i] = sub.Path(file)
		byPath[paths[i]] = file
	}

	report, err := checker.Check(ctx, paths)
	if err != nil {
		return nil, 0, err
	}

	out := make(map[string][]string, len(report))
	total := 0
	for path, messages := range style.Messages(report) {
		out[byPath[path]] = messages
		total += len(messages)
	}
	return out, total, nil
}

func ContainsNameEqMain(unit *source.Unit) bool {
	return match.NameEqMain.MatchString(unit.Text)
}

func ContainsMain(unit *source.Unit) bool {
	return unit.Has("main")
}

// IsMainLast reports whether the textually last top-level def is main.
func IsMainLast(unit *source.Unit) bool {
	order := source.ExtractOrder(unit.Text)
	return len(order) > 0 && order[len(order)-1] == "main"
}

// MissingDocstrings returns the functions other than main without a docstring.
func MissingDocstrings(units []*source.Unit) []string {
	var out []string
	for _, unit := range units {
		for _, def := range unit.Functions() {
			if def.Name != "main" && def.Docstring == "" {
				out = append(out, def.Name)
			}
		}
	}
	return out
}

// SingleQuoteDocstrings returns the functions other than main whose docstring
// is not written with triple double quotes.
func SingleQuoteDocstrings(units []*source.Unit) []string {
	var out []string
	for _, unit := range units {
		for _, def := range unit.Functions() {
			if def.Name == "main" || def.Docstring == "" {
				continue
			}
			if !match.DoubleQuoteDocstring.MatchString(def.Source()) {
				out = append(out, def.Name)
			}
		}
	}
	return out
}

// ShadowedBuiltins returns the builtins def assigns to or takes as parameters.
func ShadowedBuiltins(def *source.Definition) []string {
	lines := clean.Clean(def)
	var out []string
	for _, name := range Builtins {
		if match.MatchesLines(match.ShadowedName(def.Name, name), lines) {
			out = append(out, name)
		}
	}
	return out
}

func BuiltinsNotUsedAsVariable(def *source.Definition) bool {
	return len(ShadowedBuiltins(def)) == 0
}

func ContainsGlobalVariable(def *source.Definition) bool {
	return match.Matches(match.GlobalDecl, def)
}

// IsOneLiner reports whether the function called name has exactly one cleaned
// line after its header.
func IsOneLiner(unit *source.Unit, name string) bool {
	def, err := unit.Lookup(name)
	if err != nil {
		return false
	}
	return len(clean.Clean(def)) == 2
}

func CorrectImports(unit *source.Unit, required []string) bool {
	return len(audit.MissingImports(unit, required)) == 0
}

// TestFunctionHasAsserts reports whether unit declares a function called test
// containing an assert statement.
func TestFunctionHasAsserts(unit *source.Unit) bool {
	def, err := unit.Lookup("test")
	if err != nil || !def.IsFunction() {
		return false
	}
	return match.Matches(match.Assert, def)
}

// constructs maps rubric construct names to their patterns.
var constructs = map[string]match.Pattern{
	"input":              match.InputCall,
	"lambda":             match.Lambda,
	"for_loop":           match.ForLoop,
	"while_loop":         match.WhileLoop,
	"with_open":          match.WithOpen,
	"absolute_path":      match.AbsolutePath,
	"list_comprehension": match.ListComprehension,
	"global":             match.GlobalDecl,
}

// ContainsConstruct reports whether def contains the named construct.
func ContainsConstruct(def *source.Definition, construct string) (bool, error) {
	p, ok := constructs[construct]
	if !ok {
		return false, errors.New(errors.CodeValidationError, fmt.Sprintf("unknown construct %q", construct))
	}
	return match.Matches(p, def), nil
}

func ContainsInput(def *source.Definition) bool { return match.Matches(match.InputCall, def) }
func ContainsLambda(def *source.Definition) bool { return match.Matches(match.Lambda, def) }
func ContainsForLoop(def *source.Definition) bool { return match.Matches(match.ForLoop, def) }
func ContainsWhileLoop(def *source.Definition) bool { return match.Matches(match.WhileLoop, def) }
func ContainsWithOpen(def *source.Definition) bool { return match.Matches(match.WithOpen, def) }

func ContainsAbsolutePaths(def *source.Definition) bool {
	return match.Matches(match.AbsolutePath, def)
}

func ContainsListComprehension(def *source.Definition) bool {
	return match.Matches(match.ListComprehension, def)
}

func EveryOpenedFileIsClosed(def *source.Definition) bool {
	return lifecycle.AllClosed(def)
}

// CallsFunctions reports which candidates def calls when run once.
func CallsFunctions(ctx context.Context, in *interp.Interpreter, def *source.Definition, candidates []string) (map[string]bool, error) {
	return in.CalledDuring(ctx, def, candidates)
}
