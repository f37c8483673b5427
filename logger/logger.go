// Package logger holds the process-wide zap logger used by the concerto
// command and the long-running loaders.
package logger

import (
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the global logger. It discards everything until Initialize
	// is called.
	Logger *zap.SugaredLogger
	// JSONOutput records whether Initialize selected JSON output.
	JSONOutput bool
)

func init() {
	Logger = zap.NewNop().Sugar()
}

// Initialize replaces the global logger. jsonOutput selects structured JSON
// for machines; otherwise a console encoder writes to stderr. level is a zap
// level name such as "debug" or "warn".
func Initialize(jsonOutput bool, level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "logger: invalid level %q", level)
	}
	var zl *zap.Logger
	if jsonOutput {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(lvl)
		if zl, err = config.Build(); err != nil {
			return errors.Wrap(err, "logger: build")
		}
	} else {
		encoder := zap.NewDevelopmentEncoderConfig()
		encoder.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder.TimeKey = ""
		zl = zap.New(zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoder),
			zapcore.AddSync(os.Stderr),
			lvl,
		))
	}
	JSONOutput = jsonOutput
	Logger = zl.Sugar()
	return nil
}

// Set replaces the global logger with l, typically an observer in tests.
func Set(l *zap.Logger) {
	Logger = l.Sugar()
}

// L returns the global logger without the sugar.
func L() *zap.Logger {
	return Logger.Desugar()
}

// Named returns a child logger tagged with a component name.
func Named(component string) *zap.Logger {
	return L().With(zap.String(FieldComponent, component))
}

// Cleanup flushes any buffered log entries.
func Cleanup() {
	_ = Logger.Sync()
}

// Debugw logs a debug message with structured fields.
func Debugw(msg string, keysAndValues ...any) {
	Logger.Debugw(msg, keysAndValues...)
}

// Infow logs an info message with structured fields.
func Infow(msg string, keysAndValues ...any) {
	Logger.Infow(msg, keysAndValues...)
}

// Warnw logs a warning with structured fields.
func Warnw(msg string, keysAndValues ...any) {
	Logger.Warnw(msg, keysAndValues...)
}

// Errorw logs an error message with structured fields.
func Errorw(msg string, keysAndValues ...any) {
	Logger.Errorw(msg, keysAndValues...)
}
