package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	level  slog.Level
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= lr.level
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		level:  lr.level,
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		level:  lr.level,
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

func newConsoleHandler(w io.Writer, level slog.Level, color bool) slog.Handler {
	if color {
		return tint.NewHandler(w, &tint.Options{Level: level, TimeFormat: time.DateTime})
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}

// setupLogger configures structured logging. INFO/WARN go to stdout, ERROR goes
// to stderr. If logPath is non-empty, all levels are also written to that file
// without colour. Returns a cleanup function that closes the log file (if opened).
func setupLogger(logPath string, level slog.Level, color bool) (func(), error) {
	var stdoutH, stderrH slog.Handler = newConsoleHandler(os.Stdout, level, color), newConsoleHandler(os.Stderr, level, color)
	var cleanup func()

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		fileH := slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})
		stdoutH = &teeHandler{stdoutH, fileH}
		stderrH = &teeHandler{stderrH, fileH}
	}

	slog.SetDefault(slog.New(&levelRouter{level: level, stdout: stdoutH, stderr: stderrH}))
	return cleanup, nil
}

// teeHandler writes every record to both handlers.
type teeHandler struct {
	a, b slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return t.a.Enabled(ctx, level) || t.b.Enabled(ctx, level)
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	errA := t.a.Handle(ctx, r.Clone())
	errB := t.b.Handle(ctx, r)
	if errA != nil {
		return errA
	}
	return errB
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{t.a.WithAttrs(attrs), t.b.WithAttrs(attrs)}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{t.a.WithGroup(name), t.b.WithGroup(name)}
}

const usage = `Usage: vodnik [command] [flags]

Commands:
  serve      run the HTTP server (default)
  useradd    create a user in the configured backend

Run 'vodnik <command> -h' for command flags.
`

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = cmdServe(args)
	case "useradd":
		err = cmdUserAdd(args)
	case "help":
		fmt.Fprint(os.Stdout, usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	if err != nil {
		if err == errHelp {
			os.Exit(0)
		}
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
