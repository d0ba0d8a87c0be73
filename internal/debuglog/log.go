// Package debuglog is the process-wide file logger. The terminal belongs to
// the TUI, so everything goes to a rotating log file and nothing to stderr.
package debuglog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelOff // Disables all logging
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// ParseLogLevel parses a string into a LogLevel. Unknown input maps to INFO.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "OFF":
		return LevelOff
	default:
		return LevelInfo
	}
}

// Rotation controls lumberjack's file rotation. Zero values use
// lumberjack's own defaults.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	mu           sync.RWMutex
	currentLevel LogLevel = LevelOff
	atomicLevel           = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	logger       *zap.SugaredLogger
	sink         *lumberjack.Logger
)

// Setup configures the logging system with the specified level and optional file path.
// If filePath is empty, defaults to ~/.headlines/headlines.log.
func Setup(level LogLevel, filePath ...string) error {
	path := ""
	if len(filePath) > 0 {
		path = filePath[0]
	}
	return SetupRotating(level, path, Rotation{})
}

// SetupRotating is Setup with explicit rotation limits.
func SetupRotating(level LogLevel, path string, rot Rotation) error {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()
	currentLevel = level

	if level == LevelOff {
		return nil
	}

	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, ".headlines", "headlines.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	// lumberjack opens lazily; open once now so a bad path fails Setup
	// rather than the first write.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	_ = f.Close()

	sink = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rot.MaxSizeMB,
		MaxBackups: rot.MaxBackups,
		MaxAge:     rot.MaxAgeDays,
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	atomicLevel.SetLevel(level.zapLevel())
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(sink), atomicLevel)
	logger = zap.New(core).Named("headlines").Sugar()
	return nil
}

// SetupWithBool enables INFO logging to the default file, or disables logging.
func SetupWithBool(enabled bool) {
	if enabled {
		_ = Setup(LevelInfo)
	} else {
		_ = Setup(LevelOff)
	}
}

// SetLevel changes the current logging level
func SetLevel(level LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = level
	if level != LevelOff {
		atomicLevel.SetLevel(level.zapLevel())
	}
}

func GetLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return currentLevel
}

// Close flushes and closes the log file if open
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	return closeLocked()
}

func closeLocked() error {
	if logger == nil {
		return nil
	}
	_ = logger.Sync()
	err := sink.Close()
	logger = nil
	sink = nil
	return err
}

func active(level LogLevel) *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	if currentLevel == LevelOff || level < currentLevel {
		return nil
	}
	return logger
}

func Debugf(format string, args ...any) {
	if l := active(LevelDebug); l != nil {
		l.Debugf(format, args...)
	}
}

func Infof(format string, args ...any) {
	if l := active(LevelInfo); l != nil {
		l.Infof(format, args...)
	}
}

func Warnf(format string, args ...any) {
	if l := active(LevelWarn); l != nil {
		l.Warnf(format, args...)
	}
}

func Errorf(format string, args ...any) {
	if l := active(LevelError); l != nil {
		l.Errorf(format, args...)
	}
}

// FieldLogger attaches key/value context to every message.
type FieldLogger struct {
	fields []any
}

// WithFields returns a new logger with the specified fields. Keys are
// sorted so output is stable.
func WithFields(fields map[string]interface{}) *FieldLogger {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kv := make([]any, 0, len(fields)*2)
	for _, k := range keys {
		kv = append(kv, k, fields[k])
	}
	return &FieldLogger{fields: kv}
}

func (fl *FieldLogger) Debugf(format string, args ...any) {
	if l := active(LevelDebug); l != nil {
		l.Debugw(fmt.Sprintf(format, args...), fl.fields...)
	}
}

func (fl *FieldLogger) Infof(format string, args ...any) {
	if l := active(LevelInfo); l != nil {
		l.Infow(fmt.Sprintf(format, args...), fl.fields...)
	}
}

func (fl *FieldLogger) Warnf(format string, args ...any) {
	if l := active(LevelWarn); l != nil {
		l.Warnw(fmt.Sprintf(format, args...), fl.fields...)
	}
}

func (fl *FieldLogger) Errorf(format string, args ...any) {
	if l := active(LevelError); l != nil {
		l.Errorw(fmt.Sprintf(format, args...), fl.fields...)
	}
}
