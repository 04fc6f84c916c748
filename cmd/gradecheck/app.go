package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gradecheck/internal/core/config"
	"gradecheck/internal/core/watcher"
	"gradecheck/internal/data/history"
	"gradecheck/internal/engine/clean"
	"gradecheck/internal/engine/source"
	"gradecheck/internal/grading"
	"gradecheck/internal/shared/observability"
	"gradecheck/internal/shared/util"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/afero"
)

var (
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true)
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
)

type App struct {
	Config   *config.Config
	Paths    config.ResolvedPaths
	Registry *source.Registry
	Runner   *grading.Runner

	store      *history.Store
	limiter    *util.Limiter
	server     *observability.Server
	teaProgram *tea.Program
	out        io.Writer

	gradeMu  sync.Mutex // one regrade at a time
	mu       sync.Mutex
	last     *grading.Report
	watchers []func()
}

// NewApp wires the registry, runner and optional history store for cfg.
// opts are passed to the runner after the recorder.
func NewApp(cfg *config.Config, paths config.ResolvedPaths, opts ...grading.Option) (*App, error) {
	loader, err := source.NewOSLoader()
	if err != nil {
		return nil, err
	}
	registry, err := source.NewRegistry(loader, cfg.Registry.Size)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Paths:    paths,
		Registry: registry,
		limiter:  util.NewLimiter(cfg.Watch.RegradeRate, 1),
		out:      os.Stdout,
	}

	if cfg.DB.Enabled {
		store, err := history.Open(paths.DBPath, cfg.DB.BusyTimeout)
		if err != nil {
			return nil, err
		}
		a.store = store
		opts = append([]grading.Option{grading.WithRecorder(store)}, opts...)
	}

	a.Runner = grading.NewRunner(cfg, registry, opts...)
	return a, nil
}

// SubmissionID names the submission after its directory.
func (a *App) SubmissionID() string {
	return filepath.Base(a.Paths.SubmissionDir)
}

func (a *App) Close() error {
	a.mu.Lock()
	stops := a.watchers
	a.watchers = nil
	a.mu.Unlock()
	for _, stop := range stops {
		stop()
	}

	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := a.server.Stop(ctx); err != nil {
			slog.Warn("failed to stop observability server", "error", err)
		}
	}
	return a.store.Close()
}

// Grade runs the rubric once against the submission.
func (a *App) Grade(ctx context.Context) (*grading.Report, error) {
	report, err := a.Runner.Run(ctx, a.SubmissionID(), a.Paths.SubmissionDir)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.last = report
	program := a.teaProgram
	a.mu.Unlock()

	if program != nil {
		program.Send(updateMsg{report: report})
	}
	return report, nil
}

// PrintReport writes one feedback record per failed check, then a summary.
func (a *App) PrintReport(w io.Writer, report *grading.Report) {
	failed := report.Failed()
	for _, res := range failed {
		fmt.Fprintln(w, res.Feedback.String())
	}

	summary := fmt.Sprintf("%s: %d checks, %d failed, %d points deducted",
		report.Submission, len(report.Results), len(failed), report.PointsDeducted)
	if len(failed) == 0 {
		fmt.Fprintln(w, passStyle.Render("✅ "+summary))
	} else {
		fmt.Fprintln(w, failStyle.Render("⚠️  "+summary))
	}
}

// HandleChanges regrades after files of the submission changed.
func (a *App) HandleChanges(paths []string) {
	slog.Info("detected changes", "count", len(paths))
	a.Registry.Evict(paths...)
	a.regrade(context.Background())
}

// ReloadConfig switches to a rubric that changed on disk and regrades.
func (a *App) ReloadConfig(cfg *config.Config) {
	if cfg.SubmissionDir != a.Config.SubmissionDir {
		slog.Warn("submission_dir changes need a restart", "current", a.Paths.SubmissionDir)
	}
	a.Runner.SetConfig(cfg)
	slog.Info("rubric reloaded", "checks", len(cfg.Checks))
	a.regrade(context.Background())
}

func (a *App) regrade(ctx context.Context) {
	a.gradeMu.Lock()
	defer a.gradeMu.Unlock()

	if err := a.limiter.Wait(ctx, 1); err != nil {
		slog.Warn("regrade skipped", "error", err)
		return
	}

	start := time.Now()
	report, err := a.Grade(ctx)
	if err != nil {
		slog.Error("regrade failed", "error", err)
		return
	}
	slog.Debug("regraded", "duration", time.Since(start))

	a.mu.Lock()
	inUI := a.teaProgram != nil
	a.mu.Unlock()
	if !inUI {
		a.PrintReport(a.out, report)
	}
}

// StartWatcher regrades when submission files or the rubric at rubricPath
// change. Watchers stop when ctx is done or the app is closed.
func (a *App) StartWatcher(ctx context.Context, rubricPath string) error {
	w, err := watcher.NewWatcher(
		a.Config.Watch.Debounce,
		a.Config.Exclude.Dirs,
		a.Config.Exclude.Files,
		a.HandleChanges,
	)
	if err != nil {
		return err
	}
	if err := w.Also(trackedFiles(a.Config.ExpectedFiles)...); err != nil {
		w.Close()
		return err
	}
	if err := w.Watch(a.Paths.SubmissionDir); err != nil {
		w.Close()
		return err
	}

	rubric := config.NewWatcher(rubricPath, a.ReloadConfig)
	if err := rubric.Start(ctx); err != nil {
		w.Close()
		return err
	}

	a.mu.Lock()
	a.watchers = append(a.watchers, func() { w.Close() }, rubric.Stop)
	a.mu.Unlock()
	return nil
}

// trackedFiles are the base-name patterns of expected files the watcher would
// otherwise ignore.
func trackedFiles(expected []string) []string {
	var out []string
	for _, file := range expected {
		if strings.HasSuffix(file, ".py") {
			continue
		}
		out = append(out, path.Base(util.NormalizePatternPath(file)))
	}
	return out
}

// StartServer exposes metrics and health when a metrics port is configured.
func (a *App) StartServer() {
	port := a.Config.Observability.MetricsPort
	if port <= 0 {
		return
	}
	a.server = observability.NewServer(fmt.Sprintf(":%d", port), a.health)
	a.server.Start()
}

func (a *App) health(ctx context.Context) error {
	if a.store == nil {
		return nil
	}
	return a.store.Ping(ctx)
}

func (a *App) RunUI() error {
	m := initialModel(a.SubmissionID())
	p := tea.NewProgram(m, tea.WithAltScreen())

	a.mu.Lock()
	a.teaProgram = p
	last := a.last
	a.mu.Unlock()

	if last != nil {
		go p.Send(updateMsg{report: last})
	}

	_, err := p.Run()

	a.mu.Lock()
	a.teaProgram = nil
	a.mu.Unlock()
	return err
}

func (a *App) submission() *grading.Submission {
	return grading.NewSubmission(a.SubmissionID(), a.Paths.SubmissionDir, a.Registry)
}

// PrintOrder writes the top-level function names of file in textual order.
func (a *App) PrintOrder(w io.Writer, file string) error {
	content, err := afero.ReadFile(a.Registry.Fs(), a.submission().Path(file))
	if err != nil {
		return err
	}
	for _, name := range source.ExtractOrder(string(content)) {
		fmt.Fprintln(w, name)
	}
	return nil
}

// PrintClean writes the cleaned lines of the function named by target, given
// as FILE:FUNC.
func (a *App) PrintClean(w io.Writer, target string) error {
	idx := strings.LastIndex(target, ":")
	if idx <= 0 || idx == len(target)-1 {
		return fmt.Errorf("expected FILE:FUNC, got %q", target)
	}
	file, name := target[:idx], target[idx+1:]

	unit, err := a.submission().Load(file)
	if err != nil {
		return err
	}
	def, err := unit.Lookup(name)
	if err != nil {
		return err
	}
	for _, line := range clean.Clean(def) {
		fmt.Fprintf(w, "%3d  %s\n", line.Number, line.Text)
	}
	return nil
}

// PrintHistory writes a line per stored run of the submission, newest last.
func (a *App) PrintHistory(w io.Writer) error {
	if a.store == nil {
		return fmt.Errorf("history is disabled; set [db] enabled = true in the rubric")
	}
	runs, err := a.store.LoadRuns(a.SubmissionID(), time.Time{})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintf(w, "no runs recorded for %s\n", a.SubmissionID())
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  %d/%d failed  %d points\n",
			r.Timestamp.Local().Format("2006-01-02 15:04:05"), r.RunID, r.Failed, r.Checks, r.PointsDeducted)
	}
	return nil
}
