// Package launch is the process-launch collaborator: it turns a descriptor
// and an export file into a running external editor.
package launch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"notelaunch/internal/config"
	"notelaunch/internal/domain"
	"notelaunch/internal/export"
	"notelaunch/internal/queue"
	"notelaunch/internal/tooling"
)

var (
	// ErrNoDefaultTool is returned by ResolveDefault when neither the user
	// prefs nor the config name a default tool.
	ErrNoDefaultTool = errors.New("no default tool defined")
	// ErrNoExportFile is returned when Open is called with an empty path.
	ErrNoExportFile = errors.New("export file path is empty")
)

// ExitError reports an editor that ran but exited non-zero.
type ExitError struct {
	Tool   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Tool, e.Code)
	if line := firstLine(e.Stderr); line != "" {
		msg += ": " + line
	}
	return msg
}

// ExitCode lets the CLI propagate the editor's status.
func (e *ExitError) ExitCode() int { return e.Code }

// Outcome describes one launch attempt.
type Outcome struct {
	Tool      string
	Argv      []string
	Export    export.Info
	Result    Result
	StartedAt time.Time
	Duration  time.Duration
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithRunner replaces the process runner (default ExecRunner).
func WithRunner(r Runner) Option {
	return func(l *Launcher) { l.runner = r }
}

// WithHistory records every launch in h. Recording failures are logged only.
func WithHistory(h domain.LaunchHistory) Option {
	return func(l *Launcher) { l.history = h }
}

// WithQueue shares a lane queue between launchers. A launcher without one
// creates its own and closes it in Close.
func WithQueue(q *queue.LaneQueue) Option {
	return func(l *Launcher) { l.queue = q }
}

// WithLogger sets the logger; nil uses slog.Default().
func WithLogger(lg *slog.Logger) Option {
	return func(l *Launcher) { l.logger = lg }
}

// WithClock replaces time.Now for deterministic records.
func WithClock(now func() time.Time) Option {
	return func(l *Launcher) { l.now = now }
}

// WithInspector replaces export.Inspect. Passing nil skips inspection.
func WithInspector(fn func(string) (export.Info, error)) Option {
	return func(l *Launcher) {
		if fn == nil {
			fn = func(p string) (export.Info, error) { return export.Info{Path: p}, nil }
		}
		l.inspect = fn
	}
}

// Launcher opens export files in external tools. It is safe for concurrent
// use; launches of the same tool run one after another.
type Launcher struct {
	cfg       *domain.Config
	runner    Runner
	history   domain.LaunchHistory
	queue     *queue.LaneQueue
	ownsQueue bool
	logger    *slog.Logger
	now       func() time.Time
	inspect   func(string) (export.Info, error)
}

// New returns a Launcher governed by cfg's launch settings. cfg may be nil.
func New(cfg *domain.Config, opts ...Option) *Launcher {
	if cfg == nil {
		cfg = &domain.Config{}
	}
	l := &Launcher{
		cfg:     cfg,
		runner:  ExecRunner{},
		now:     time.Now,
		inspect: export.Inspect,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.queue == nil {
		l.queue = queue.NewLaneQueue()
		l.ownsQueue = true
	}
	return l
}

func (l *Launcher) log() *slog.Logger {
	if l.logger != nil {
		return l.logger
	}
	return slog.Default()
}

// Close releases the launcher's own lane queue, waiting for running launches.
func (l *Launcher) Close() {
	if l.ownsQueue {
		l.queue.Close()
	}
}

// DryRun returns the argv Open would run, without inspecting or launching.
func (l *Launcher) DryRun(d domain.Descriptor, exportPath string) []string {
	return d.BuildArguments(exportPath)
}

// Open inspects exportPath, checks the executable against the allowlist,
// builds argv from d, and runs it in d's lane. The returned Outcome is
// non-nil whenever the process was attempted, even on error.
func (l *Launcher) Open(ctx context.Context, d domain.Descriptor, exportPath string) (*Outcome, error) {
	if exportPath == "" {
		return nil, ErrNoExportFile
	}
	info, err := l.inspect(exportPath)
	if err != nil {
		return nil, fmt.Errorf("open in %s: %w", d.Title, err)
	}
	if err := config.ValidateExecutable(l.cfg, d.ExecutablePath); err != nil {
		return nil, fmt.Errorf("open in %s: %w: %q", d.Title, err, d.ExecutablePath)
	}

	argv := d.BuildArguments(exportPath)
	// The runner gets its own copy so the recorded argv cannot be altered by it.
	out := &Outcome{Tool: d.Title, Argv: slices.Clone(argv), Export: info}
	// Do may return on ctx cancellation while the job is still finishing, so
	// the job publishes into run under mu and out only takes a copy.
	var (
		mu  sync.Mutex
		run Outcome
	)
	runErr := l.queue.Do(ctx, d.Title, func(ctx context.Context) error {
		if t := l.cfg.Launch.TimeoutSec; t > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(t)*time.Second)
			defer cancel()
		}
		started := l.now()
		res, err := l.runner.Run(ctx, argv)
		mu.Lock()
		run.StartedAt, run.Duration, run.Result = started, l.now().Sub(started), res
		mu.Unlock()
		return err
	})
	mu.Lock()
	out.StartedAt, out.Duration, out.Result = run.StartedAt, run.Duration, run.Result
	mu.Unlock()

	err = l.classify(d, out, runErr)
	l.record(ctx, out, err)
	if err != nil {
		l.log().Warn("tool launch failed", "tool", d.Title, "export", exportPath, "error", err)
		return out, err
	}
	l.log().Info("tool exited", "tool", d.Title, "export", exportPath, "kind", string(info.Kind), "duration", out.Duration)
	return out, nil
}

// classify turns a runner error or a non-zero exit into the error Open returns.
func (l *Launcher) classify(d domain.Descriptor, out *Outcome, runErr error) error {
	switch {
	case runErr == nil && out.Result.ExitCode == 0:
		return nil
	case runErr == nil:
		return &ExitError{Tool: d.Title, Code: out.Result.ExitCode, Stderr: out.Result.Stderr}
	case errors.Is(runErr, context.DeadlineExceeded) && l.cfg.Launch.TimeoutSec > 0:
		out.Result.ExitCode = -1
		return fmt.Errorf("launch %s: timed out after %ds: %w", d.Title, l.cfg.Launch.TimeoutSec, runErr)
	default:
		out.Result.ExitCode = -1
		return fmt.Errorf("launch %s: %w", d.Title, runErr)
	}
}

func (l *Launcher) record(ctx context.Context, out *Outcome, err error) {
	if l.history == nil {
		return
	}
	rec := domain.LaunchRecord{
		Tool:      out.Tool,
		Argv:      out.Argv,
		ExitCode:  out.Result.ExitCode,
		StartedAt: out.StartedAt,
		Duration:  out.Duration,
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = l.now()
	}
	if err != nil {
		rec.Error = err.Error()
	}
	// The launch already happened; do not let a cancelled caller drop the row.
	if recErr := l.history.Record(context.WithoutCancel(ctx), rec); recErr != nil {
		l.log().Warn("launch history write failed", "tool", out.Tool, "error", recErr)
	}
}

// ResolveDefault picks the default tool: the user's preference first, then
// cfg's defaultTool. A name that is set but unknown is an error rather than a
// silent fallback.
func ResolveDefault(reg *tooling.Registry, prefDefault string, cfg *domain.Config) (domain.Descriptor, error) {
	name := strings.TrimSpace(prefDefault)
	if name == "" && cfg != nil {
		name = strings.TrimSpace(cfg.DefaultTool)
	}
	if name == "" {
		return domain.Descriptor{}, ErrNoDefaultTool
	}
	return reg.Get(name)
}

// OpenDefault resolves the default tool and opens exportPath in it.
func (l *Launcher) OpenDefault(ctx context.Context, reg *tooling.Registry, prefDefault, exportPath string) (*Outcome, error) {
	d, err := ResolveDefault(reg, prefDefault, l.cfg)
	if err != nil {
		if errors.Is(err, ErrNoDefaultTool) {
			l.log().Warn("no default tool defined")
		}
		return nil, err
	}
	return l.Open(ctx, d, exportPath)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
