// Package logger is the project's key/value logging facade over zap.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const service = "equiplend"

type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// New 按 LOG_MODE 构建：prod/production 为 JSON、info 起步、ISO8601 时间；
// 其余为彩色控制台、debug 起步。每条日志带 service 字段。
func New(mode string) (*Logger, error) {
	z, err := configFor(mode).Build(zap.Fields(zap.String("service", service)))
	if err != nil {
		return nil, err
	}
	return wrap(z.Sugar()), nil
}

func configFor(mode string) zap.Config {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg
}

func wrap(s *zap.SugaredLogger) *Logger { return &Logger{SugaredLogger: s} }

// Nop discards everything; used by tests.
func Nop() *Logger { return wrap(zap.NewNop().Sugar()) }

func (l *Logger) Sync() { _ = l.SugaredLogger.Sync() }

// With 返回带固定字段的子 logger；没有字段时返回 l 本身
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if len(keysAndValues) == 0 {
		return l
	}
	return wrap(l.SugaredLogger.With(keysAndValues...))
}

// Component tags every entry with the subsystem that wrote it.
func (l *Logger) Component(name string) *Logger {
	return wrap(l.SugaredLogger.Named(name).With("component", name))
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.SugaredLogger.Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.SugaredLogger.Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.SugaredLogger.Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.SugaredLogger.Errorw(msg, kv...) }

// Fatal logs and exits the process.
func (l *Logger) Fatal(msg string, kv ...interface{}) { l.SugaredLogger.Fatalw(msg, kv...) }
