package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EarlyLog reports problems that happen before the configured logger
// exists, such as a missing or invalid config file.
type EarlyLog struct {
	log *zap.SugaredLogger
}

func NewEarlyLog() *EarlyLog {
	encoder := zap.NewProductionEncoderConfig()
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoder), zapcore.Lock(os.Stderr), zapcore.InfoLevel)
	return &EarlyLog{log: zap.New(core).Sugar()}
}

func (l *EarlyLog) Error(msg string, args ...interface{}) {
	l.log.Errorf(msg, args...)
}

func (l *EarlyLog) Warn(msg string, args ...interface{}) {
	l.log.Warnf(msg, args...)
}

func (l *EarlyLog) Info(msg string, args ...interface{}) {
	l.log.Infof(msg, args...)
}
