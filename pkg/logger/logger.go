package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu           sync.RWMutex
	globalLogger *Logger
)

// Logger wraps zap.SugaredLogger so callers can attach key/value context.
type Logger struct {
	*zap.SugaredLogger
}

// Init builds the global logger. env "production" selects JSON output; any
// other value uses the colored development encoder. Unknown levels fall back
// to info.
func Init(level string, env string) error {
	var config zap.Config
	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	config.Level = zap.NewAtomicLevelAt(ParseLevel(level))

	logger, err := config.Build(
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return err
	}

	Set(&Logger{SugaredLogger: logger.Sugar()})
	return nil
}

// ParseLevel maps a textual level to zap, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel
	}
	return zapLevel
}

// Set replaces the global logger. Tests use it with zaptest/observer.
func Set(l *Logger) {
	mu.Lock()
	globalLogger = l
	mu.Unlock()
}

// Get returns the global logger, creating a development one on first use.
func Get() *Logger {
	mu.RLock()
	l := globalLogger
	mu.RUnlock()
	if l != nil {
		return l
	}

	logger, _ := zap.NewDevelopment()
	l = &Logger{SugaredLogger: logger.Sugar()}
	Set(l)
	return l
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// With creates a child logger with additional fields
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(args...)}
}

// Named adds a component name to the logger.
func (l *Logger) Named(name string) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.Named(name)}
}

func Debugf(template string, args ...interface{}) { Get().Debugf(template, args...) }
func Infof(template string, args ...interface{})  { Get().Infof(template, args...) }
func Warnf(template string, args ...interface{})  { Get().Warnf(template, args...) }
func Errorf(template string, args ...interface{}) { Get().Errorf(template, args...) }
func Fatalf(template string, args ...interface{}) { Get().Fatalf(template, args...) }

// Sync flushes any buffered log entries
func Sync() error {
	mu.RLock()
	l := globalLogger
	mu.RUnlock()
	if l != nil {
		return l.Sync()
	}
	return nil
}
