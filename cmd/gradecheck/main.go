package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gradecheck/internal/core/config"
	"gradecheck/internal/shared/observability"
)

var (
	configPath = flag.String("config", "./gradecheck.toml", "Path to rubric file")
	submission = flag.String("submission", "", "Submission directory, overrides submission_dir")
	once       = flag.Bool("once", false, "Grade once and exit")
	ui         = flag.Bool("ui", false, "Enable terminal UI mode")
	order      = flag.String("order", "", "Print the top-level functions of FILE in textual order")
	cleanFunc  = flag.String("clean", "", "Print the cleaned body of FILE:FUNC")
	showRuns   = flag.Bool("history", false, "Print previous grading runs of the submission")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "0.3.0"

func main() {
	flag.Parse()
	os.Exit(start())
}

// start sets up logging, the rubric and the app, then runs the selected mode.
// Deferred cleanup runs before main exits with the returned code.
func start() int {
	if *version {
		fmt.Printf("gradecheck v%s\n", VERSION)
		return 0
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}

	output := os.Stderr
	if *ui {
		// In UI mode, avoid terminal logs corrupting the TUI.
		if f, err := openLogFile(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		} else {
			defer f.Close()
			output = f
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load rubric", "path", *configPath, "error", err)
		return 2
	}
	if *submission != "" {
		cfg.SubmissionDir = *submission
	}

	paths, err := config.ResolvePaths(cfg, *configPath)
	if err != nil {
		slog.Error("failed to resolve paths", "error", err)
		return 2
	}
	if *submission != "" {
		if abs, err := filepath.Abs(*submission); err == nil {
			paths.SubmissionDir = abs
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Observability.EnableTracing && cfg.Observability.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint)
		if err != nil {
			slog.Warn("tracing disabled", "error", err)
		} else {
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(flushCtx)
			}()
		}
	}

	app, err := NewApp(cfg, paths)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return 2
	}
	defer app.Close()

	return run(ctx, app)
}

// run executes the selected mode and returns the process exit code: 0 when
// every check passed, 1 when a check failed and 2 when grading itself failed.
func run(ctx context.Context, app *App) int {
	switch {
	case *order != "":
		return exitOn(app.PrintOrder(os.Stdout, *order))
	case *cleanFunc != "":
		return exitOn(app.PrintClean(os.Stdout, *cleanFunc))
	case *showRuns:
		return exitOn(app.PrintHistory(os.Stdout))
	}

	report, err := app.Grade(ctx)
	if err != nil {
		slog.Error("grading failed", "error", err)
		return 2
	}
	if !*ui {
		app.PrintReport(os.Stdout, report)
	}

	if *once {
		if len(report.Failed()) > 0 {
			return 1
		}
		return 0
	}

	if err := app.StartWatcher(ctx, *configPath); err != nil {
		slog.Error("failed to start watcher", "error", err)
		return 2
	}
	app.StartServer()

	if *ui {
		if err := app.RunUI(); err != nil {
			slog.Error("failed to run UI", "error", err)
			return 2
		}
		return 0
	}

	<-ctx.Done()
	return 0
}

func exitOn(err error) int {
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 2
	}
	return 0
}

func openLogFile() (*os.File, error) {
	stateDir, err := config.StateDir()
	if err != nil {
		return nil, fmt.Errorf("resolve log dir: %w", err)
	}
	logPath := filepath.Join(stateDir, "gradecheck.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
		return nil, fmt.Errorf("create log dir for %s: %w", logPath, err)
	}
	if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
		return nil, fmt.Errorf("refusing to write logs to symlink path %s", logPath)
	}
	return os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
}
