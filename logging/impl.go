package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging interface handed to every component. It is a sugared zap logger with a
// per-logger level that can be changed at runtime.
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})

	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})

	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// Sublogger returns a logger named "<parent>.<subname>" that writes to the same outputs and
	// starts at the parent's current level.
	Sublogger(subname string) Logger
	SetLevel(level Level)
	GetLevel() Level
	Sync() error
	AsZap() *zap.SugaredLogger
}

type impl struct {
	*zap.SugaredLogger
	name  string
	level zap.AtomicLevel
	base  zapcore.Core
}

func newImpl(name string, level Level, base zapcore.Core) *impl {
	atomicLevel := zap.NewAtomicLevelAt(level.AsZap())
	// The base cores are built at debug level, so the filter can only ever raise it.
	core, err := zapcore.NewIncreaseLevelCore(base, atomicLevel)
	if err != nil {
		core = base
	}
	sugared := zap.New(core, zap.AddCaller()).Sugar()
	if name != "" {
		sugared = sugared.Named(name)
	}
	return &impl{SugaredLogger: sugared, name: name, level: atomicLevel, base: base}
}

func (imp *impl) Sublogger(subname string) Logger {
	newName := subname
	if imp.name != "" {
		newName = fmt.Sprintf("%s.%s", imp.name, subname)
	}
	return newImpl(newName, imp.GetLevel(), imp.base)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.SetLevel(level.AsZap())
}

func (imp *impl) GetLevel() Level {
	switch imp.level.Level() {
	case zapcore.DebugLevel:
		return DEBUG
	case zapcore.InfoLevel:
		return INFO
	case zapcore.WarnLevel:
		return WARN
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel,
		zapcore.InvalidLevel:
		return ERROR
	}
	return INFO
}

func (imp *impl) AsZap() *zap.SugaredLogger {
	return imp.SugaredLogger
}
