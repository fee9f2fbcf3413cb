// Package logger provides leveled printf-style logging backed by zap.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var sugar = zap.NewNop().Sugar()

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Init initializes the default logger with the specified level and format
// ("json" or "console").
func Init(level string, format string) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if strings.ToLower(format) == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), ParseLevel(level))
	sugar = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

// Sync flushes buffered entries.
func Sync() { _ = sugar.Sync() }

func Debug(format string, args ...interface{}) { sugar.Debugf(format, args...) }

func Info(format string, args ...interface{}) { sugar.Infof(format, args...) }

func Warn(format string, args ...interface{}) { sugar.Warnf(format, args...) }

func Error(format string, args ...interface{}) { sugar.Errorf(format, args...) }

// Fatal logs the message and exits the process.
func Fatal(format string, args ...interface{}) { sugar.Fatalf(format, args...) }
