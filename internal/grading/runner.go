// Package grading runs rubric checks against a submission and turns their
// findings into scored feedback.
package grading

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gradecheck/internal/core/config"
	"gradecheck/internal/data/history"
	"gradecheck/internal/engine/interp"
	"gradecheck/internal/engine/source"
	"gradecheck/internal/engine/style"
	"gradecheck/internal/shared/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Recorder persists the results of a run.
type Recorder interface {
	SaveRun(records []history.Record) error
}

// Result is the outcome of one check.
type Result struct {
	Check    config.Check
	Passed   bool
	Problems []string
	Feedback Feedback
	Duration time.Duration
}

// Report is the outcome of one grading run.
type Report struct {
	RunID          string
	Submission     string
	Results        []Result
	PointsDeducted int
	Finished       time.Time
}

// Failed returns the results of failed checks in rubric order.
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

type Runner struct {
	mu       sync.Mutex
	cfg      *config.Config
	registry *source.Registry
	style    style.Checker
	interp   *interp.Interpreter
	recorder Recorder
}

type Option func(*Runner)

func WithStyleChecker(c style.Checker) Option {
	return func(r *Runner) { r.style = c }
}

func WithInterpreter(i *interp.Interpreter) Option {
	return func(r *Runner) { r.interp = i }
}

func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// NewRunner builds a runner for cfg. Without options it runs the configured
// pycodestyle command and Python interpreter.
func NewRunner(cfg *config.Config, registry *source.Registry, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, registry: registry}
	for _, opt := range opts {
		opt(r)
	}
	if r.style == nil {
		r.style = style.NewPycodestyle(cfg.Style.Command, cfg.Style.Args...)
	}
	if r.interp == nil {
		r.interp = interp.New(cfg.Python)
	}
	return r
}

// SetConfig replaces the rubric used by later runs.
func (r *Runner) SetConfig(cfg *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
}

func (r *Runner) Config() *config.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// Run evaluates every check of the rubric against the submission in dir.
// Problems in the submission become failed results; an error means the rubric
// or the environment is broken and the run was abandoned.
func (r *Runner) Run(ctx context.Context, submissionID, dir string) (*Report, error) {
	cfg := r.Config()

	ctx, span := observability.Tracer.Start(ctx, "grading.Run")
	defer span.End()
	span.SetAttributes(attribute.String("submission", submissionID))

	env := &Env{
		Submission:        NewSubmission(submissionID, dir, r.registry),
		Style:             r.style,
		Interp:            r.interp,
		ExpectedFiles:     cfg.ExpectedFiles,
		ExpectedFunctions: cfg.ExpectedFunctions,
		PythonFiles:       cfg.ExpectedPython(),
	}
	report := &Report{RunID: uuid.NewString(), Submission: submissionID}

	for _, check := range cfg.Checks {
		res, err := r.evaluate(ctx, env, check)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "check failed to run")
			return nil, fmt.Errorf("check %q: %w", check.Name, err)
		}
		report.Results = append(report.Results, res)
		report.PointsDeducted += res.Feedback.PointsDeducted
	}
	report.Finished = time.Now().UTC()
	observability.PointsDeductedTotal.Add(float64(report.PointsDeducted))

	slog.Info("graded submission",
		"submission", submissionID,
		"run", report.RunID,
		"checks", len(report.Results),
		"failed", len(report.Failed()),
		"points_deducted", report.PointsDeducted,
	)

	if r.recorder != nil {
		if err := r.recorder.SaveRun(records(report)); err != nil {
			slog.Warn("failed to save grading history", "run", report.RunID, "error", err)
		}
	}
	return report, nil
}

func (r *Runner) evaluate(ctx context.Context, env *Env, check config.Check) (Result, error) {
	ctx, span := observability.Tracer.Start(ctx, "grading.check")
	defer span.End()
	span.SetAttributes(attribute.String("check", check.Name), attribute.String("kind", check.Kind))

	eval, ok := evaluators[check.Kind]
	if !ok {
		observability.ChecksTotal.WithLabelValues(check.Kind, "error").Inc()
		return Result{}, fmt.Errorf("unknown check kind %q", check.Kind)
	}

	start := time.Now()
	out, err := eval(ctx, env, check)
	elapsed := time.Since(start)
	observability.CheckDuration.WithLabelValues(check.Kind).Observe(elapsed.Seconds())
	if err != nil {
		observability.ChecksTotal.WithLabelValues(check.Kind, "error").Inc()
		return Result{}, err
	}

	res := Result{Check: check, Passed: len(out.problems) == 0, Problems: out.problems, Duration: elapsed}
	if !res.Passed {
		text := out.text
		if check.Message != "" {
			text = check.Message
		}
		res.Feedback = NewFeedback(text, check.PointsPerError, check.MaxPointsDeducted, len(out.problems))
		observability.ChecksTotal.WithLabelValues(check.Kind, "failed").Inc()
		slog.Debug("check failed", "check", check.Name, "problems", len(out.problems))
	} else {
		observability.ChecksTotal.WithLabelValues(check.Kind, "passed").Inc()
	}
	return res, nil
}

func records(report *Report) []history.Record {
	out := make([]history.Record, len(report.Results))
	for i, res := range report.Results {
		out[i] = history.Record{
			RunID:          report.RunID,
			Submission:     report.Submission,
			Check:          res.Check.Name,
			Kind:           res.Check.Kind,
			Passed:         res.Passed,
			PointsDeducted: res.Feedback.PointsDeducted,
			Feedback:       res.Feedback.Feedback,
			Timestamp:      report.Finished,
		}
	}
	return out
}
