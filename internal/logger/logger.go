// Package logger owns the process-wide slog logger.
//
// The root logger carries the configured component name; Component derives
// per-subsystem loggers ("kyonomi.store", "kyonomi.grpc") from it.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/takumayoshiokadotcom/kyonomi/internal/config"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// textTimeLayout is used for the time attribute of text output.
const textTimeLayout = "2006-01-02 15:04:05"

type Config struct {
	Level      string
	Format     Format
	Component  string
	WithSource bool
	// Output defaults to os.Stdout.
	Output io.Writer
	// Location renders text timestamps; nil means UTC.
	Location *time.Location
}

var (
	mu     sync.RWMutex
	root   *slog.Logger // no component attribute
	logger *slog.Logger
	cfg    = Config{Level: "info", Format: FormatText}
)

// InitFromConfig initializes global logger from app config.
func InitFromConfig(c *config.Config) {
	if c == nil {
		Init(nil)
		return
	}
	var out io.Writer = os.Stdout
	if strings.EqualFold(c.Log.Output, "stderr") {
		out = os.Stderr
	}
	Init(&Config{
		Level:      c.Log.Level,
		Format:     Format(strings.ToLower(c.Log.Format)),
		Component:  c.Log.Component,
		WithSource: c.Log.Source,
		Output:     out,
		Location:   c.Location(),
	})
}

// Init sets up the global logger. Safe to call multiple times.
func Init(c *Config) {
	mu.Lock()
	defer mu.Unlock()

	if c != nil {
		cfg = *c
	}
	root = slog.New(newHandler(cfg))
	logger = root
	if cfg.Component != "" {
		logger = root.With("component", cfg.Component)
	}
}

func newHandler(c Config) slog.Handler {
	out := c.Output
	if out == nil {
		out = os.Stdout
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}

	opts := &slog.HandlerOptions{
		Level:     parseLevel(c.Level),
		AddSource: c.WithSource,
	}
	if c.Format == FormatJSON {
		return slog.NewJSONHandler(out, opts)
	}

	opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey && len(groups) == 0 {
			return slog.String(slog.TimeKey, a.Value.Time().In(loc).Format(textTimeLayout))
		}
		return a
	}
	return slog.NewTextHandler(out, opts)
}

// L returns the global logger. Always returns a non-nil instance.
func L() *slog.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		return l
	}

	// initialize default logger if not set
	Init(nil)
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Component returns a child logger for one subsystem. The name is nested
// under the configured component, e.g. "kyonomi.store".
func Component(name string) *slog.Logger {
	L()
	mu.RLock()
	defer mu.RUnlock()
	if cfg.Component != "" {
		name = cfg.Component + "." + name
	}
	return root.With("component", name)
}

// Discard returns a logger that drops everything. Tests use it.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// With creates a child logger with additional attributes.
func With(args ...any) *slog.Logger { return L().With(args...) }

func Debug(msg string, args ...any) { L().Debug(msg, args...) }
func Info(msg string, args ...any)  { L().Info(msg, args...) }
func Warn(msg string, args ...any)  { L().Warn(msg, args...) }
func Error(msg string, args ...any) { L().Error(msg, args...) }

func parseLevel(s string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
