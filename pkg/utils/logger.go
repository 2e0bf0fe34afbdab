package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string // debug, info, warn, error
	OutputPath string // stdout, stderr, or file path
	Format     string // json or console

	// Service is stamped on every entry when set
	Service string
	// Levels overrides Level per named logger ("http", "service", "dispatcher").
	// A name also covers its children, so "service" applies to "service.notifier".
	Levels map[string]string
}

// NewLogger creates the service logger. Components derive their own
// loggers with Named and inherit any level override configured for that name.
func NewLogger(cfg LoggerConfig) (*zap.Logger, error) {
	var fallback zapcore.Level
	if err := fallback.UnmarshalText([]byte(cfg.Level)); err != nil {
		fallback = zapcore.InfoLevel
	}

	overrides := make(map[string]zapcore.Level, len(cfg.Levels))
	floor := fallback
	for name, raw := range cfg.Levels {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(raw)); err != nil {
			return nil, fmt.Errorf("logger level for %q: %w", name, err)
		}
		overrides[name] = lvl
		if lvl < floor {
			floor = lvl
		}
	}

	sink, err := openSink(cfg.OutputPath)
	if err != nil {
		return nil, err
	}

	var core zapcore.Core = zapcore.NewCore(newEncoder(cfg.Format), sink, floor)
	if len(overrides) > 0 {
		core = &namedLevelCore{Core: core, fallback: fallback, levels: overrides}
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Service != "" {
		opts = append(opts, zap.Fields(zap.String("service", cfg.Service)))
	}
	return zap.New(core, opts...), nil
}

func newEncoder(format string) zapcore.Encoder {
	if format == "json" {
		ec := zap.NewProductionEncoderConfig()
		ec.TimeKey = "timestamp"
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(ec)
	}

	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	ec.TimeKey = "timestamp"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewConsoleEncoder(ec)
}

func openSink(outputPath string) (zapcore.WriteSyncer, error) {
	switch outputPath {
	case "stdout", "":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}
	file, err := os.OpenFile(outputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return zapcore.AddSync(file), nil
}

// namedLevelCore filters entries by the level configured for their logger name.
// The wrapped core runs at the lowest configured level.
type namedLevelCore struct {
	zapcore.Core
	fallback zapcore.Level
	levels   map[string]zapcore.Level
}

func (c *namedLevelCore) With(fields []zapcore.Field) zapcore.Core {
	return &namedLevelCore{Core: c.Core.With(fields), fallback: c.fallback, levels: c.levels}
}

func (c *namedLevelCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.levelFor(ent.LoggerName).Enabled(ent.Level) {
		return ce
	}
	return c.Core.Check(ent, ce)
}

// levelFor walks from the full dotted name up to its root component
func (c *namedLevelCore) levelFor(name string) zapcore.Level {
	for name != "" {
		if lvl, ok := c.levels[name]; ok {
			return lvl
		}
		i := strings.LastIndexByte(name, '.')
		if i < 0 {
			break
		}
		name = name[:i]
	}
	return c.fallback
}
