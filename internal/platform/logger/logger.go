// Package logger holds the zerolog root for firewatch binaries. C(ctx) adds
// the job name and run id of the pass a log line belongs to
package logger

import (
	"context"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"

	"firewatch/internal/platform/config/raw"
)

// Logger is zerolog's logger; callers name it through this package
type Logger = zerolog.Logger

// Options configures a logger
type Options struct {
	Level       string
	Format      string // console or json
	Service     string
	Component   string
	Writer      io.Writer
	WithCaller  bool
	SampleEvery int
	Fields      map[string]string
}

// FromEnv reads LOG_LEVEL, LOG_FORMAT, LOG_SERVICE, LOG_COMPONENT, LOG_CALLER and LOG_SAMPLE_EVERY
func FromEnv() Options {
	env := raw.Prefix("LOG_")
	return Options{
		Level:       env.String("LEVEL", "info"),
		Format:      strings.ToLower(env.String("FORMAT", "console")),
		Service:     env.String("SERVICE", "firewatch"),
		Component:   env.String("COMPONENT", ""),
		WithCaller:  env.Bool("CALLER", false),
		SampleEvery: env.Int("SAMPLE_EVERY", 0),
	}
}

// New builds a logger from opt without touching the process root
func New(opt Options) Logger {
	w := opt.Writer
	if w == nil {
		w = os.Stdout
	}
	if opt.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	c := zerolog.New(w).Level(level(opt.Level)).With().Timestamp()
	if opt.Service != "" {
		c = c.Str("service", opt.Service)
	}
	if opt.Component != "" {
		c = c.Str("component", opt.Component)
	}
	for _, k := range slices.Sorted(maps.Keys(opt.Fields)) {
		c = c.Str(k, opt.Fields[k])
	}
	if opt.WithCaller {
		c = c.Caller()
	}

	l := c.Logger()
	if opt.SampleEvery > 1 {
		l = l.Sample(&zerolog.BasicSampler{N: uint32(opt.SampleEvery)})
	}
	return l
}

func level(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

var (
	root     atomic.Pointer[Logger]
	rootOnce sync.Once
)

// Init installs the process root logger; later calls are ignored
func Init(opt Options) {
	rootOnce.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano
		l := New(opt)
		root.Store(&l)
	})
}

// Get returns the root logger, initializing it from the environment on first use
func Get() *Logger {
	if l := root.Load(); l != nil {
		return l
	}
	Init(FromEnv())
	return root.Load()
}

// Named returns a child of the root tagged with component
func Named(component string) *Logger {
	l := Get().With().Str("component", component).Logger()
	return &l
}

// Nop discards everything
func Nop() *Logger {
	l := zerolog.Nop()
	return &l
}

type runKey struct{}

type run struct{ job, id string }

// WithRun tags ctx with the job and run id of the current pass
func WithRun(ctx context.Context, job, runID string) context.Context {
	return context.WithValue(ctx, runKey{}, run{job: job, id: runID})
}

// RunID is the run id set by WithRun, or ""
func RunID(ctx context.Context) string {
	r, _ := ctx.Value(runKey{}).(run)
	return r.id
}

// C returns the root logger with the job and run_id carried by ctx
func C(ctx context.Context) *Logger {
	r, ok := ctx.Value(runKey{}).(run)
	if !ok {
		return Get()
	}
	c := Get().With()
	if r.job != "" {
		c = c.Str("job", r.job)
	}
	if r.id != "" {
		c = c.Str("run_id", r.id)
	}
	l := c.Logger()
	return &l
}
