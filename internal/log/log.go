// Package log is a thin printf-style front for a global zap logger.
package log

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var level = zap.NewAtomicLevelAt(zap.InfoLevel)

func init() {
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}

	zap.ReplaceGlobals(logger)
}

func Debug(format string, args ...interface{}) {
	zap.S().Debugf(format, args...)
}

func Info(format string, args ...interface{}) {
	zap.S().Infof(format, args...)
}

func Warn(format string, args ...interface{}) {
	zap.S().Warnf(format, args...)
}

func Error(format string, args ...interface{}) {
	zap.S().Errorf(format, args...)
}

func Fatal(format string, args ...interface{}) {
	zap.S().Fatalf(format, args...)
}

// SetLevel changes the minimum level of the global logger. Accepted values
// are zap's level names: debug, info, warn, error.
func SetLevel(name string) error {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return errors.Wrapf(err, "log level %q", name)
	}

	level.SetLevel(l)
	return nil
}

// Level returns the current minimum level.
func Level() string {
	return level.Level().String()
}

// Sync flushes buffered log entries.
func Sync() {
	_ = zap.L().Sync()
}
