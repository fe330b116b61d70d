// Package zap adapts go.uber.org/zap to the logger.Logger interface, with
// optional file rotation via lumberjack.
package zap

import (
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jacklowrie/chordnet/internal/logger"
)

// Config carries the subset of logging configuration the adapter needs.
type Config struct {
	Active     bool
	Level      string // debug, info, warn, error
	OutputPath string // "" or "stdout" logs to stdout; anything else rotates via lumberjack
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds a *zap.Logger from cfg. When OutputPath names a file, writes
// are routed through lumberjack for size/age-based rotation.
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	_ = level.Set(cfg.Level) // falls back to Info on an unrecognized level string

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var writer zapcore.WriteSyncer
	if cfg.OutputPath == "" || cfg.OutputPath == "stdout" {
		writer = zapcore.Lock(os.Stdout)
	} else {
		writer = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.OutputPath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		})
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), writer, level)
	return zap.New(core, zap.AddCaller()), nil
}

// Adapter wraps a *zap.Logger to satisfy logger.Logger.
type Adapter struct {
	l *zap.Logger
}

// NewAdapter wraps an existing *zap.Logger.
func NewAdapter(l *zap.Logger) *Adapter {
	return &Adapter{l: l}
}

func toZapFields(fields []logger.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

func (a *Adapter) Debug(msg string, fields ...logger.Field) { a.l.Debug(msg, toZapFields(fields)...) }
func (a *Adapter) Info(msg string, fields ...logger.Field)  { a.l.Info(msg, toZapFields(fields)...) }
func (a *Adapter) Warn(msg string, fields ...logger.Field)  { a.l.Warn(msg, toZapFields(fields)...) }
func (a *Adapter) Error(msg string, fields ...logger.Field) { a.l.Error(msg, toZapFields(fields)...) }

func (a *Adapter) Named(name string) logger.Logger {
	return &Adapter{l: a.l.Named(name)}
}

func (a *Adapter) With(fields ...logger.Field) logger.Logger {
	return &Adapter{l: a.l.With(toZapFields(fields)...)}
}

// Sync flushes any buffered log entries.
func (a *Adapter) Sync() error { return a.l.Sync() }
