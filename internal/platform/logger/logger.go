// Package logger wraps zerolog for the pipeline: one process-wide root logger,
// per-component children, and run-scoped fields (run id, source) carried in a context.
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/config/raw"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Logger is the project-wide logging type
type Logger = zerolog.Logger

// Options configures a logger
type Options struct {
	Level        string
	Format       string // console or json
	Service      string
	Component    string
	Writer       io.Writer
	WithCaller   bool
	SampleEvery  int
	StaticFields map[string]string
}

// FromEnv reads LOG_LEVEL, LOG_FORMAT, LOG_SERVICE, LOG_COMPONENT, LOG_CALLER,
// LOG_SAMPLE_EVERY and LOG_FIELDS ("k=v,k2=v2")
func FromEnv() Options {
	rc := raw.New().Prefix("LOG_")
	return Options{
		Level:        strings.ToLower(rc.Get("LEVEL", "info")),
		Format:       strings.ToLower(rc.Get("FORMAT", "console")),
		Service:      rc.Get("SERVICE", "actos"),
		Component:    rc.Get("COMPONENT", ""),
		WithCaller:   rc.GetBool("CALLER", false),
		SampleEvery:  rc.GetInt("SAMPLE_EVERY", 0),
		StaticFields: rc.GetPairs("FIELDS"),
	}
}

var levels = map[string]zerolog.Level{
	"trace":    zerolog.TraceLevel,
	"debug":    zerolog.DebugLevel,
	"info":     zerolog.InfoLevel,
	"warn":     zerolog.WarnLevel,
	"warning":  zerolog.WarnLevel,
	"error":    zerolog.ErrorLevel,
	"fatal":    zerolog.FatalLevel,
	"panic":    zerolog.PanicLevel,
	"disabled": zerolog.Disabled,
	"off":      zerolog.Disabled,
}

// parseLevel falls back to info for anything unknown
func parseLevel(s string) zerolog.Level {
	if l, ok := levels[strings.ToLower(strings.TrimSpace(s))]; ok {
		return l
	}
	return zerolog.InfoLevel
}

// New builds a standalone logger from opt without touching the root
func New(opt Options) *Logger {
	var w io.Writer = os.Stderr
	if opt.Writer != nil {
		w = opt.Writer
	}
	if opt.Format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp()
	if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
		ctx = ctx.Str("go_version", bi.GoVersion)
	}
	if opt.Service != "" {
		ctx = ctx.Str("service", opt.Service)
	}
	if opt.Component != "" {
		ctx = ctx.Str("component", opt.Component)
	}
	for k, v := range opt.StaticFields {
		ctx = ctx.Str(k, v)
	}
	if opt.WithCaller {
		ctx = ctx.Caller()
	}

	l := ctx.Logger()
	if opt.SampleEvery > 1 {
		l = l.Sample(&zerolog.BasicSampler{N: uint32(opt.SampleEvery)})
	}
	return &l
}

var (
	once sync.Once
	root atomic.Pointer[Logger]
)

// Init installs the root logger; only the first call has an effect
func Init(opt Options) {
	once.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano
		root.Store(New(opt))
	})
}

// Get returns the root logger, initialising it from the environment on first use
func Get() *Logger {
	if l := root.Load(); l != nil {
		return l
	}
	Init(FromEnv())
	return root.Load()
}

type ctxKey struct{ name string }

var (
	keyRunID  = ctxKey{"run_id"}
	keySource = ctxKey{"source"}
)

// WithRun annotates ctx with the pipeline run id and the source being processed
func WithRun(ctx context.Context, runID, source string) context.Context {
	if runID != "" {
		ctx = context.WithValue(ctx, keyRunID, runID)
	}
	if source != "" {
		ctx = context.WithValue(ctx, keySource, source)
	}
	return ctx
}

// C is From applied to the root logger
func C(ctx context.Context) *Logger {
	return From(ctx, Get())
}

// From enriches base with the run-scoped fields carried by ctx
func From(ctx context.Context, base *Logger) *Logger {
	b := base.With()
	if s, ok := ctx.Value(keyRunID).(string); ok && s != "" {
		b = b.Str("run_id", s)
	}
	if s, ok := ctx.Value(keySource).(string); ok && s != "" {
		b = b.Str("source", s)
	}
	l := b.Logger()
	return &l
}

// Named returns a child of the root logger tagged with component
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}

// Nop returns a disabled logger
func Nop() *Logger {
	l := zerolog.Nop()
	return &l
}
