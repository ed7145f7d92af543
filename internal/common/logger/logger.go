package logger

import (
	"os"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger writes one JSON line per action. Fields are flattened into the entry
// next to service, action and hostname.
type Logger struct {
	service string
	z       *zap.Logger
}

func New(service string) *Logger {
	return NewWithLevel(service, "info")
}

func NewWithLevel(service, level string) *Logger {
	lvl := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(os.Stdout), lvl)
	z := zap.New(core).With(
		zap.String("service", service),
		zap.String("hostname", hostname()),
	)
	return &Logger{service: service, z: z}
}

// Nop discards everything; used by tests and optional collaborators.
func Nop() *Logger { return &Logger{service: "nop", z: zap.NewNop()} }

// Named returns a logger for a sub-component sharing the same sink.
func (l *Logger) Named(service string) *Logger {
	if l == nil {
		return Nop()
	}
	return &Logger{service: service, z: l.z.With(zap.String("component", service))}
}

func (l *Logger) Info(action string, fields map[string]any) {
	l.log(zapcore.InfoLevel, action, fields, nil)
}

func (l *Logger) Debug(action string, fields map[string]any) {
	l.log(zapcore.DebugLevel, action, fields, nil)
}

func (l *Logger) Warn(action string, fields map[string]any) {
	l.log(zapcore.WarnLevel, action, fields, nil)
}

func (l *Logger) Error(action string, err error, fields map[string]any) {
	l.log(zapcore.ErrorLevel, action, fields, err)
}

func (l *Logger) Sync() { _ = l.z.Sync() }

func (l *Logger) log(level zapcore.Level, action string, fields map[string]any, err error) {
	if l == nil || l.z == nil {
		return
	}
	ce := l.z.Check(level, action)
	if ce == nil {
		return
	}
	zf := make([]zap.Field, 0, len(fields)+2)
	zf = append(zf, zap.String("action", action))
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		zf = append(zf, zap.Any(k, fields[k]))
	}
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	ce.Write(zf...)
}

func hostname() string { h, _ := os.Hostname(); return h }
