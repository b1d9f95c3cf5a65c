package logging

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents the severity of a log line, ordered so that higher values are more severe.
type Level int8

const (
	// DEBUG is the lowest severity; useful for diagnostics not normally wanted in production.
	DEBUG Level = iota
	// INFO is the default severity for ordinary operational messages.
	INFO
	// WARN indicates an unexpected but recoverable condition.
	WARN
	// ERROR indicates a condition that likely needs attention.
	ERROR
)

// DefaultTimeFormatStr is the timestamp layout used when rendering log lines for humans.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

// String returns the canonical capitalized name of the level, e.g. "Info".
func (level Level) String() string {
	switch level {
	case DEBUG:
		return "Debug"
	case INFO:
		return "Info"
	case WARN:
		return "Warn"
	case ERROR:
		return "Error"
	default:
		return fmt.Sprintf("Level(%d)", int8(level))
	}
}

// AsZap converts a Level to the equivalent zapcore.Level.
func (level Level) AsZap() zapcore.Level {
	switch level {
	case DEBUG:
		return zapcore.DebugLevel
	case INFO:
		return zapcore.InfoLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// LevelFromString parses a level name into a Level. Each name is accepted in lower-case,
// capitalized or upper-case spelling (e.g. "warn", "Warn", "WARN"); the empty string parses as
// INFO. Other spellings are rejected.
func LevelFromString(name string) (Level, error) {
	switch name {
	case "Debug", "debug", "DEBUG":
		return DEBUG, nil
	case "Info", "info", "INFO", "":
		return INFO, nil
	case "Warn", "warn", "WARN":
		return WARN, nil
	case "Error", "error", "ERROR":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level %q", name)
	}
}

// AtomicLevel is a Level that may be read and written concurrently.
type AtomicLevel struct {
	value atomic.Int32
}

// NewAtomicLevelAt returns an AtomicLevel initialized to the given Level.
func NewAtomicLevelAt(level Level) AtomicLevel {
	var atomicLevel AtomicLevel
	atomicLevel.value.Store(int32(level))
	return atomicLevel
}

// Get returns the current Level.
func (al *AtomicLevel) Get() Level {
	return Level(al.value.Load())
}

// Set updates the current Level.
func (al *AtomicLevel) Set(level Level) {
	al.value.Store(int32(level))
}

// Logger is the structured, leveled logger used throughout this module. impl is its only
// implementation; the interface exists so collaborators can accept a Logger without depending
// on zap directly.
type Logger interface {
	Sublogger(subname string) Logger
	Named(name string) *zap.SugaredLogger
	Sync() error
	With(args ...interface{}) *zap.SugaredLogger
	WithOptions(opts ...zap.Option) *zap.SugaredLogger
	AsZap() *zap.SugaredLogger
	Desugar() *zap.Logger

	AddAppender(appender Appender)
	SetLevel(level Level)
	GetLevel() Level
	Level() zapcore.Level

	Debug(args ...interface{})
	CDebug(ctx context.Context, args ...interface{})
	Debugf(template string, args ...interface{})
	CDebugf(ctx context.Context, template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	CDebugw(ctx context.Context, msg string, keysAndValues ...interface{})

	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})

	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})

	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	Fatal(args ...interface{})
	Fatalf(template string, args ...interface{})
	Fatalw(msg string, keysAndValues ...interface{})
}

// GlobalLogLevel gates every logger's AsZap() output regardless of its own configured level;
// setting it to debug makes shouldLog always return true (see impl.go).
var GlobalLogLevel = zap.NewAtomicLevelAt(zap.InfoLevel)

// NewZapLoggerConfig returns the zap.Config backing AsZap()'s SugaredLogger. Its Level field
// is always overwritten with GlobalLogLevel by the caller.
func NewZapLoggerConfig() zap.Config {
	return NewLoggerConfig()
}

// Appender receives already-constructed log entries from a Logger. It is a narrow subset of
// zapcore.Core; some Appenders (e.g. the observer core used in tests) implement zapcore.Core
// in full and are upgraded to it by AsZap.
type Appender interface {
	Write(zapcore.Entry, []zapcore.Field) error
	Sync() error
}

type stdoutAppender struct {
	encoder zapcore.Encoder
}

// NewStdoutAppender returns an Appender that writes encoded log lines to stdout.
func NewStdoutAppender() Appender {
	return &stdoutAppender{zapcore.NewConsoleEncoder(NewLoggerConfig().EncoderConfig)}
}

// NewStdoutTestAppender is like NewStdoutAppender but using local time instead of UTC-oriented
// production formatting, matching the rest of the testing.go appenders.
func NewStdoutTestAppender() Appender {
	cfg := NewLoggerConfig().EncoderConfig
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout(DefaultTimeFormatStr)
	return &stdoutAppender{zapcore.NewConsoleEncoder(cfg)}
}

func (sa *stdoutAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	buf, err := sa.encoder.EncodeEntry(entry, fields)
	if err != nil {
		return err
	}
	defer buf.Free()
	fmt.Print(buf.String())
	return nil
}

func (sa *stdoutAppender) Sync() error {
	return nil
}

// callerToString renders an EntryCaller the way test log lines expect: "file:line".
func callerToString(caller *zapcore.EntryCaller) string {
	if caller == nil || !caller.Defined {
		return ""
	}
	return caller.TrimmedPath()
}
