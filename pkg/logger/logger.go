// Package logger provides structured logging for the connection pool.
package logger

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nebulapool/connpool/pkg/config"
)

var (
	globalLogger *zap.Logger
	once         sync.Once
)

type contextKey string

const (
	// PoolKey is the context key for a pool's name/identity.
	PoolKey contextKey = "pool"
	// PartitionKey is the context key for a partition index.
	PartitionKey contextKey = "partition"
	// LoopKey is the context key for the background loop emitting the log
	// line (poolwatch, tester, releasehelper) — the Go equivalent of
	// BoneCP's named background threads.
	LoopKey contextKey = "loop"
)

// Init initializes the global logger from cfg. Safe to call multiple
// times; only the first call takes effect.
func Init(cfg config.LoggingConfig) error {
	var err error
	once.Do(func() {
		globalLogger, err = newLogger(cfg)
	})
	return err
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	if cfg.Development {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	outputPaths := cfg.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stdout"}
	}

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Development,
		Encoding:         cfg.Encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	built, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	if cfg.Development {
		built = built.WithOptions(zap.AddStacktrace(zapcore.ErrorLevel))
	}

	return built, nil
}

// Get returns the global logger, lazily initializing a sane default (JSON,
// info level) if Init was never called.
func Get() *zap.Logger {
	if globalLogger == nil {
		cfg := config.LoggingConfig{Level: "info", Development: false, Encoding: "json"}
		if err := Init(cfg); err != nil {
			built, _ := zap.NewProduction()
			globalLogger = built
		}
	}
	return globalLogger
}

// WithContext returns a logger annotated with any pool/partition/loop
// values found on ctx.
func WithContext(ctx context.Context) *zap.Logger {
	l := Get()
	if pool, ok := ctx.Value(PoolKey).(string); ok {
		l = l.With(zap.String("pool", pool))
	}
	if partition, ok := ctx.Value(PartitionKey).(int); ok {
		l = l.With(zap.Int("partition", partition))
	}
	if loop, ok := ctx.Value(LoopKey).(string); ok {
		l = l.With(zap.String("loop", loop))
	}
	return l
}

// Named returns a child logger tagged with a component name.
func Named(name string) *zap.Logger {
	return Get().Named(name)
}

// Sync flushes any buffered log entries.
func Sync() error {
	if globalLogger != nil {
		return globalLogger.Sync()
	}
	return nil
}

// Discard returns a logger that drops everything. Components constructed
// without an explicit logger fall back to Get, not to Discard.
func Discard() *zap.Logger {
	return zap.NewNop()
}
