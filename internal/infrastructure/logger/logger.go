package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Log is nil until Init; the package-level helpers are no-ops until then.
	Log *zap.Logger
	// pkgLog reports the caller of Info/Warn/... rather than this file.
	pkgLog *zap.Logger
)

// Init builds the process logger. Production writes JSON to stdout;
// development writes colored console lines. Unknown levels mean info.
func Init(env, level string) error {
	lvl := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil && level != "" {
		lvl = parsed
	}

	dev := env == "development"
	enc := zapcore.EncoderConfig{
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
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	encoding := "json"
	if dev {
		encoding = "console"
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Development:      dev,
		Encoding:         encoding,
		EncoderConfig:    enc,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		InitialFields:    map[string]any{"env": env},
	}

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	Log = l
	pkgLog = l.WithOptions(zap.AddCallerSkip(1))
	zap.ReplaceGlobals(l)
	return nil
}

func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}

func Debug(msg string, fields ...zap.Field) {
	if pkgLog != nil {
		pkgLog.Debug(msg, fields...)
	}
}

func Info(msg string, fields ...zap.Field) {
	if pkgLog != nil {
		pkgLog.Info(msg, fields...)
	}
}

func Warn(msg string, fields ...zap.Field) {
	if pkgLog != nil {
		pkgLog.Warn(msg, fields...)
	}
}

func Error(msg string, fields ...zap.Field) {
	if pkgLog != nil {
		pkgLog.Error(msg, fields...)
	}
}

// Fatal logs and exits with status 1, even before Init.
func Fatal(msg string, fields ...zap.Field) {
	if pkgLog == nil {
		fmt.Fprintln(os.Stderr, "fatal:", msg)
		os.Exit(1)
	}
	pkgLog.Fatal(msg, fields...)
}
