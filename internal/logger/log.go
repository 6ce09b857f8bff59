package logger

import (
	"fmt"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var current atomic.Pointer[zap.Logger]

// init installs a console logger at info level so packages can log before
// Init is called (tests, library use).
func init() {
	current.Store(newLogger(zapcore.InfoLevel, false))
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          "logger",
		CallerKey:        "caller",
		MessageKey:       "msg",
		StacktraceKey:    "stacktrace",
		ConsoleSeparator: " ",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.LowercaseLevelEncoder,
		EncodeTime:       zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000"),
		EncodeDuration:   zapcore.SecondsDurationEncoder,
	}
}

// newLogger writes to stderr so command output on stdout stays clean.
func newLogger(level zapcore.Level, development bool) *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig()),
		zapcore.AddSync(os.Stderr),
		zap.NewAtomicLevelAt(level),
	)
	opts := []zap.Option{}
	if development {
		opts = append(opts, zap.AddCaller(), zap.Development())
	}
	return zap.New(core, opts...)
}

// Init replaces the package logger. level is a zap level name
// (debug, info, warn, error); empty means info.
func Init(level string, development bool) error {
	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return fmt.Errorf("parsing log level %q: %w", level, err)
		}
	}
	current.Store(newLogger(lvl, development))
	return nil
}

// L returns the structured logger.
func L() *zap.Logger {
	return current.Load()
}

// S returns the sugared logger.
func S() *zap.SugaredLogger {
	return current.Load().Sugar()
}

// Sync flushes buffered log entries.
func Sync() {
	_ = current.Load().Sync()
}

// Debugz logs msg with structured fields at debug level.
func Debugz(msg string, fields ...zap.Field) {
	current.Load().Debug(msg, fields...)
}

// Infoz logs msg with structured fields at info level.
func Infoz(msg string, fields ...zap.Field) {
	current.Load().Info(msg, fields...)
}

// Warnz logs msg with structured fields at warn level.
func Warnz(msg string, fields ...zap.Field) {
	current.Load().Warn(msg, fields...)
}

// Errorz logs msg with structured fields at error level.
func Errorz(msg string, fields ...zap.Field) {
	current.Load().Error(msg, fields...)
}

// Infow logs msg with loosely typed key/value pairs at info level.
func Infow(msg string, keyAndValues ...interface{}) {
	S().Infow(msg, keyAndValues...)
}

// Warnw logs msg with loosely typed key/value pairs at warn level.
func Warnw(msg string, keyAndValues ...interface{}) {
	S().Warnw(msg, keyAndValues...)
}
