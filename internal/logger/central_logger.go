package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// traceLevel sits below zap's debug level.
const traceLevel = zapcore.DebugLevel - 1

const moduleKey = "module"

// CentralLogger owns the zap cores and hands out module-scoped loggers.
type CentralLogger struct {
	config       *LoggingConfig
	base         *zap.Logger
	file         *os.File
	moduleLevels map[string]zapcore.Level
	mu           sync.RWMutex
}

// NewCentralLogger creates a logger writing to stderr and, when enabled, a JSON file.
func NewCentralLogger(cfg *LoggingConfig) (*CentralLogger, error) {
	return newCentralLogger(cfg, zapcore.Lock(os.Stderr))
}

func newCentralLogger(cfg *LoggingConfig, console zapcore.WriteSyncer) (*CentralLogger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging config cannot be nil")
	}
	applyConfigDefaults(cfg)

	tz, err := loadTimezone(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	cl := &CentralLogger{
		config:       cfg,
		moduleLevels: make(map[string]zapcore.Level, len(cfg.ModuleLevels)),
	}
	for module, level := range cfg.ModuleLevels {
		cl.moduleLevels[module] = parseLogLevel(level)
	}

	var cores []zapcore.Core
	if cfg.Console.Enabled {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig(tz, false)),
			console,
			zap.NewAtomicLevelAt(parseLogLevel(cfg.Console.Level)),
		))
	}

	if cfg.FileOutput != nil && cfg.FileOutput.Enabled {
		if err := ensureFileDirectory(cfg.FileOutput.Path); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.FileOutput.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		cl.file = f
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig(tz, true)),
			zapcore.AddSync(f),
			zap.NewAtomicLevelAt(parseLogLevel(cfg.FileOutput.Level)),
		))
	}

	if len(cores) == 0 {
		cl.base = zap.NewNop()
	} else {
		cl.base = zap.New(zapcore.NewTee(cores...))
	}
	return cl, nil
}

// Module returns a logger scoped to a specific module
func (cl *CentralLogger) Module(name string) Logger {
	if cl == nil {
		return nil
	}
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	return &moduleLogger{
		module: name,
		zl:     cl.base,
		level:  cl.levelFor(name),
	}
}

func (cl *CentralLogger) levelFor(module string) zapcore.Level {
	if level, ok := cl.moduleLevels[module]; ok {
		return level
	}
	return parseLogLevel(cl.config.DefaultLevel)
}

// Flush writes buffered entries
func (cl *CentralLogger) Flush() error {
	if cl == nil {
		return nil
	}
	if err := cl.base.Sync(); err != nil && !isInvalidSync(err) {
		return err
	}
	return nil
}

// Close flushes and closes the log file
func (cl *CentralLogger) Close() error {
	if cl == nil {
		return nil
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()

	errs := []error{cl.Flush()}
	if cl.file != nil {
		errs = append(errs, cl.file.Close())
		cl.file = nil
	}
	return errors.Join(errs...)
}

// isInvalidSync reports the EINVAL returned when syncing a terminal.
func isInvalidSync(err error) bool {
	var pathErr *os.PathError
	return errors.As(err, &pathErr)
}

func encoderConfig(tz *time.Location, withTime bool) zapcore.EncoderConfig {
	cfg := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		NameKey:        "logger",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    encodeLevel,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	if withTime {
		cfg.TimeKey = "time"
		cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.In(tz).Format(time.RFC3339))
		}
	}
	return cfg
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l == traceLevel {
		enc.AppendString("TRACE")
		return
	}
	zapcore.CapitalLevelEncoder(l, enc)
}

func loadTimezone(name string) (*time.Location, error) {
	switch name {
	case "", "Local":
		return time.Local, nil
	default:
		tz, err := time.LoadLocation(name)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %s: %w", name, err)
		}
		return tz, nil
	}
}

func ensureFileDirectory(filePath string) error {
	dir := filepath.Dir(filePath)
	if dir == "." || dir == filePath {
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// parseLogLevel converts a level name to a zap level, defaulting to info.
func parseLogLevel(level string) zapcore.Level {
	switch LogLevel(level) {
	case LogLevelTrace:
		return traceLevel
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// moduleLogger implements Logger for a specific module
type moduleLogger struct {
	module string
	zl     *zap.Logger
	level  zapcore.Level
	fields []Field
}

// Module creates a sub-module logger with its own copy of the fields.
func (m *moduleLogger) Module(name string) Logger {
	if m == nil {
		return nil
	}
	module := name
	if m.module != "" {
		module = m.module + "." + name
	}
	return &moduleLogger{
		module: module,
		zl:     m.zl,
		level:  m.level,
		fields: slices.Clone(m.fields),
	}
}

func (m *moduleLogger) Trace(msg string, fields ...Field) { m.log(traceLevel, msg, fields) }
func (m *moduleLogger) Debug(msg string, fields ...Field) { m.log(zapcore.DebugLevel, msg, fields) }
func (m *moduleLogger) Info(msg string, fields ...Field)  { m.log(zapcore.InfoLevel, msg, fields) }
func (m *moduleLogger) Warn(msg string, fields ...Field)  { m.log(zapcore.WarnLevel, msg, fields) }
func (m *moduleLogger) Error(msg string, fields ...Field) { m.log(zapcore.ErrorLevel, msg, fields) }

// Log logs a message with explicit level
func (m *moduleLogger) Log(level LogLevel, msg string, fields ...Field) {
	m.log(parseLogLevel(string(level)), msg, fields)
}

// With returns a new logger with accumulated fields
func (m *moduleLogger) With(fields ...Field) Logger {
	if m == nil {
		return nil
	}
	return &moduleLogger{
		module: m.module,
		zl:     m.zl,
		level:  m.level,
		fields: slices.Concat(m.fields, fields),
	}
}

// WithContext returns a logger carrying the context's trace ID, if any
func (m *moduleLogger) WithContext(ctx context.Context) Logger {
	if m == nil {
		return nil
	}
	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		return m
	}
	return m.With(String("trace_id", traceID))
}

// Flush ensures all buffered logs are written
func (m *moduleLogger) Flush() error {
	if m == nil {
		return nil
	}
	if err := m.zl.Sync(); err != nil && !isInvalidSync(err) {
		return err
	}
	return nil
}

func (m *moduleLogger) log(level zapcore.Level, msg string, fields []Field) {
	if m == nil || level < m.level {
		return
	}
	ce := m.zl.Check(level, msg)
	if ce == nil {
		return
	}

	zfields := make([]zap.Field, 0, len(m.fields)+len(fields)+1)
	if m.module != "" {
		zfields = append(zfields, zap.String(moduleKey, m.module))
	}
	for _, f := range m.fields {
		zfields = append(zfields, toZapField(f))
	}
	for _, f := range fields {
		zfields = append(zfields, toZapField(f))
	}
	ce.Write(zfields...)
}

func toZapField(f Field) zap.Field {
	if f.Value == nil {
		return zap.Skip()
	}
	return zap.Any(f.Key, f.Value)
}

// NewBufferLogger returns a logger writing JSON lines to w at the given level.
func NewBufferLogger(w io.Writer, level LogLevel) Logger {
	zl := zap.New(zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig(time.UTC, false)),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(traceLevel),
	))
	return &moduleLogger{zl: zl, level: parseLogLevel(string(level))}
}

// NewDiscardLogger returns a logger that drops everything.
func NewDiscardLogger() Logger {
	return &moduleLogger{zl: zap.NewNop(), level: zapcore.FatalLevel}
}
