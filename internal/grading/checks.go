package grading

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gradecheck/internal/core/config"
	"gradecheck/internal/core/errors"
	"gradecheck/internal/engine/audit"
	"gradecheck/internal/engine/interp"
	"gradecheck/internal/engine/lifecycle"
	"gradecheck/internal/engine/match"
	"gradecheck/internal/engine/source"
	"gradecheck/internal/engine/style"
)

// Env is what checks run against.
type Env struct {
	Submission        *Submission
	Style             style.Checker
	Interp            *interp.Interpreter
	ExpectedFiles     []string
	ExpectedFunctions map[string][]string
	// PythonFiles is the default file set for checks that span files.
	PythonFiles []string
}

// outcome lists what a check found wrong. An empty outcome passes.
type outcome struct {
	problems []string
	text     string
}

func failed(text string, problems ...string) outcome {
	if len(problems) == 0 {
		problems = []string{text}
	}
	return outcome{problems: problems, text: text}
}

type evaluator func(ctx context.Context, env *Env, check config.Check) (outcome, error)

var evaluators = map[string]evaluator{
	config.KindMissingFiles:          evalMissingFiles,
	config.KindMissingFunctions:      evalMissingFunctions,
	config.KindStyle:                 evalStyle,
	config.KindNameEqMain:            unitCheck(ContainsNameEqMain, "%s has no if __name__ == \"__main__\" statement"),
	config.KindMainExists:            unitCheck(ContainsMain, "%s has no main function"),
	config.KindMainLast:              unitCheck(IsMainLast, "main is not the last function in %s"),
	config.KindDocstrings:            evalDocstrings,
	config.KindDoubleQuoteDocstrings: evalDoubleQuoteDocstrings,
	config.KindBuiltinsNotShadowed:   evalBuiltins,
	config.KindOneLiner:              evalOneLiner,
	config.KindImports:               evalImports,
	config.KindTestAsserts:           unitCheck(TestFunctionHasAsserts, "%s has no test function using assert"),
	config.KindConstruct:             evalConstruct,
	config.KindPattern:               evalPattern,
	config.KindFilesClosed:           evalFilesClosed,
	config.KindCalls:                 evalCalls,
	config.KindIO:                    evalIO,
}

func evalMissingFiles(_ context.Context, env *Env, _ config.Check) (outcome, error) {
	missing, err := MissingFiles(env.Submission, env.ExpectedFiles)
	if err != nil || len(missing) == 0 {
		return outcome{}, err
	}
	return failed("The name for the following submitted file(s) are wrong: "+strings.Join(missing, ", "), missing...), nil
}

func evalMissingFunctions(_ context.Context, env *Env, _ config.Check) (outcome, error) {
	missing, err := MissingFunctions(env.Submission, env.ExpectedFunctions)
	if err != nil || len(missing) == 0 {
		return outcome{}, err
	}
	return failed("The name for the following function(s) are wrong: "+strings.Join(missing, ", "), missing...), nil
}

func evalStyle(ctx context.Context, env *Env, check config.Check) (outcome, error) {
	report, total, err := StyleConformance(ctx, env.Style, env.Submission, filesFor(env, check))
	if err != nil || total == 0 {
		return outcome{}, err
	}

	files := make([]string, 0, len(report))
	for file := range report {
		files = append(files, file)
	}
	sort.Strings(files)

	var parts, problems []string
	for _, file := range files {
		parts = append(parts, file+" - "+strings.Join(report[file], ", "))
		problems = append(problems, report[file]...)
	}
	return failed(strings.Join(parts, "; "), problems...), nil
}

func unitCheck(pred func(*source.Unit) bool, format string) evaluator {
	return func(_ context.Context, env *Env, check config.Check) (outcome, error) {
		unit, out, err := load(env, check.File)
		if unit == nil {
			return out, err
		}
		if pred(unit) {
			return outcome{}, nil
		}
		return failed(fmt.Sprintf(format, check.File)), nil
	}
}

func evalDocstrings(_ context.Context, env *Env, check config.Check) (outcome, error) {
	units, out, err := loadAll(env, filesFor(env, check))
	if units == nil {
		return out, err
	}
	if missing := MissingDocstrings(units); len(missing) > 0 {
		return failed("The following function(s) have no docstring: "+strings.Join(missing, ", "), missing...), nil
	}
	return outcome{}, nil
}

func evalDoubleQuoteDocstrings(_ context.Context, env *Env, check config.Check) (outcome, error) {
	units, out, err := loadAll(env, filesFor(env, check))
	if units == nil {
		return out, err
	}
	if single := SingleQuoteDocstrings(units); len(single) > 0 {
		return failed(`The following function(s) do not use """ for their docstring: `+strings.Join(single, ", "), single...), nil
	}
	return outcome{}, nil
}

func evalBuiltins(_ context.Context, env *Env, check config.Check) (outcome, error) {
	def, out, err := lookup(env, check)
	if def == nil {
		return out, err
	}
	if shadowed := ShadowedBuiltins(def); len(shadowed) > 0 {
		return failed(fmt.Sprintf("%s uses builtin name(s) as variables: %s", check.Function, strings.Join(shadowed, ", ")), shadowed...), nil
	}
	return outcome{}, nil
}

func evalOneLiner(_ context.Context, env *Env, check config.Check) (outcome, error) {
	unit, out, err := load(env, check.File)
	if unit == nil {
		return out, err
	}
	if IsOneLiner(unit, check.Function) {
		return outcome{}, nil
	}
	return failed(fmt.Sprintf("%s is not a one-line function", check.Function)), nil
}

func evalImports(_ context.Context, env *Env, check config.Check) (outcome, error) {
	unit, out, err := load(env, check.File)
	if unit == nil {
		return out, err
	}
	if missing := audit.MissingImports(unit, check.Imports); len(missing) > 0 {
		return failed(fmt.Sprintf("%s does not import: %s", check.File, strings.Join(missing, ", ")), missing...), nil
	}
	return outcome{}, nil
}

func evalConstruct(_ context.Context, env *Env, check config.Check) (outcome, error) {
	def, out, err := lookup(env, check)
	if def == nil {
		return out, err
	}
	found, err := ContainsConstruct(def, check.Construct)
	if err != nil {
		return outcome{}, err
	}
	return presence(found, check, strings.ReplaceAll(check.Construct, "_", " ")), nil
}

func evalPattern(_ context.Context, env *Env, check config.Check) (outcome, error) {
	re, err := match.Compile(check.Pattern)
	if err != nil {
		return outcome{}, err
	}
	def, out, err := lookup(env, check)
	if def == nil {
		return out, err
	}
	return presence(match.Matches(re, def), check, fmt.Sprintf("code matching %q", check.Pattern)), nil
}

// presence turns a found/not found answer into an outcome, honouring Forbid.
func presence(found bool, check config.Check, what string) outcome {
	switch {
	case check.Forbid && found:
		return failed(fmt.Sprintf("%s must not use %s", check.Function, what))
	case !check.Forbid && !found:
		return failed(fmt.Sprintf("%s must use %s", check.Function, what))
	}
	return outcome{}
}

func evalFilesClosed(_ context.Context, env *Env, check config.Check) (outcome, error) {
	var handles []lifecycle.Handle
	if check.Scope == "file" {
		unit, out, err := load(env, check.File)
		if unit == nil {
			return out, err
		}
		handles = lifecycle.UnclosedInUnit(unit)
	} else {
		def, out, err := lookup(env, check)
		if def == nil {
			return out, err
		}
		handles = lifecycle.Unclosed(def)
	}
	if len(handles) == 0 {
		return outcome{}, nil
	}

	problems := make([]string, len(handles))
	for i, h := range handles {
		problems[i] = fmt.Sprintf("%s opened in %s is never closed", h.Name, h.Definition.Name)
	}
	return failed("Not every opened file is closed: "+strings.Join(problems, "; "), problems...), nil
}

func evalCalls(ctx context.Context, env *Env, check config.Check) (outcome, error) {
	def, out, err := lookup(env, check)
	if def == nil {
		return out, err
	}
	called, err := CallsFunctions(ctx, env.Interp, def, check.Candidates)
	if err != nil {
		if errors.IsSubmissionFault(err) {
			return failed(fmt.Sprintf("%s could not be run: %v", check.Function, err)), nil
		}
		return outcome{}, err
	}

	var problems []string
	for _, name := range check.Candidates {
		if called[name] == check.Forbid {
			problems = append(problems, name)
		}
	}
	if len(problems) == 0 {
		return outcome{}, nil
	}
	verb := "must call"
	if check.Forbid {
		verb = "must not call"
	}
	return failed(fmt.Sprintf("%s %s: %s", check.Function, verb, strings.Join(problems, ", ")), problems...), nil
}

func evalIO(ctx context.Context, env *Env, check config.Check) (outcome, error) {
	inputs := make([]any, len(check.Inputs))
	for i, in := range check.Inputs {
		inputs[i] = in
	}
	got, err := env.Interp.Simulate(ctx, env.Submission.Path(check.File), inputs...)
	if err != nil {
		return failed(fmt.Sprintf("%s exited with an error: %v", check.File, err)), nil
	}
	if strings.TrimSpace(got) != strings.TrimSpace(check.Expected) {
		return failed(fmt.Sprintf("%s printed %q, expected %q", check.File, strings.TrimSpace(got), strings.TrimSpace(check.Expected))), nil
	}
	return outcome{}, nil
}

// load returns either the unit or, when the submission is at fault, a failed
// outcome. Other errors are returned as is.
func load(env *Env, file string) (*source.Unit, outcome, error) {
	unit, err := env.Submission.Load(file)
	if err == nil {
		return unit, outcome{}, nil
	}
	if errors.IsSubmissionFault(err) {
		return nil, failed(fmt.Sprintf("%s could not be loaded", file)), nil
	}
	return nil, outcome{}, err
}

func loadAll(env *Env, files []string) ([]*source.Unit, outcome, error) {
	units := make([]*source.Unit, 0, len(files))
	for _, file := range files {
		unit, out, err := load(env, file)
		if unit == nil {
			return nil, out, err
		}
		units = append(units, unit)
	}
	return units, outcome{}, nil
}

func lookup(env *Env, check config.Check) (*source.Definition, outcome, error) {
	unit, out, err := load(env, check.File)
	if unit == nil {
		return nil, out, err
	}
	def, err := unit.Lookup(check.Function)
	if err != nil {
		return nil, failed(fmt.Sprintf("The name for the following function(s) are wrong: %s", check.Function)), nil
	}
	return def, outcome{}, nil
}

func filesFor(env *Env, check config.Check) []string {
	if check.File != "" {
		return []string{check.File}
	}
	return env.PythonFiles
}
