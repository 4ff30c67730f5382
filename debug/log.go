package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level names accepted in Config.Level
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Config controls where log output goes
type Config struct {
	Level      string `json:"level,omitempty"`
	Path       string `json:"path,omitempty"`    // rotated log file, empty = none
	Console    bool   `json:"console,omitempty"` // also write to stderr
	MaxSize    int    `json:"maxSize,omitempty"` // megabytes
	MaxBackups int    `json:"maxBackups,omitempty"`
	MaxAge     int    `json:"maxAge,omitempty"` // days
	Compress   bool   `json:"compress,omitempty"`
}

var (
	mu       sync.RWMutex
	logger   *zap.Logger
	counters = make(map[string]int)
)

func parseLevel(s string) zapcore.Level {
	switch s {
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	}
	return zapcore.DebugLevel
}

// Init (re)configures logging. With neither a path nor console output,
// logging stays disabled.
func Init(cfg Config) error {
	level := parseLevel(cfg.Level)
	enc := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "cat",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("15:04:05.000"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var cores []zapcore.Core
	if cfg.Console {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(enc),
			zapcore.Lock(os.Stderr),
			level,
		))
	}
	if cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(enc),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   cfg.Path,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   cfg.Compress,
			}),
			level,
		))
	}

	var l *zap.Logger
	if len(cores) > 0 {
		l = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	}

	mu.Lock()
	old := logger
	logger = l
	mu.Unlock()

	if old != nil {
		_ = old.Sync()
	}
	if l != nil {
		l.Named("debug").Info("=== logging started ===")
	}
	return nil
}

// Disable stops logging and flushes what is buffered
func Disable() {
	mu.Lock()
	old := logger
	logger = nil
	mu.Unlock()
	if old != nil {
		_ = old.Sync()
	}
}

func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Log writes a debug message under a category
func Log(category, format string, args ...any) {
	l := current()
	if l == nil {
		return
	}
	l.Named(category).Debug(fmt.Sprintf(format, args...))
}

// LogEvery logs only every N calls
// (use for high-frequency events); n <= 1 logs every call
func LogEvery(n int, category, format string, args ...any) {
	if n <= 1 {
		Log(category, format, args...)
		return
	}
	mu.Lock()
	key := category + format
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if count%n == 0 {
		Log(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}

func Info(msg string, fields ...zap.Field) {
	if l := current(); l != nil {
		l.Info(msg, fields...)
	}
}

func Warn(msg string, fields ...zap.Field) {
	if l := current(); l != nil {
		l.Warn(msg, fields...)
	}
}

func Error(msg string, fields ...zap.Field) {
	if l := current(); l != nil {
		l.Error(msg, fields...)
	}
}
