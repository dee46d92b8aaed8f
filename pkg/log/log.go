package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
)

// InitLogger configures the package logger. When file is empty logs go to
// stderr, otherwise to a rotated file so they do not fight the TUI for the
// terminal.
func InitLogger(debug bool, file string) {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	var (
		sink    zapcore.WriteSyncer
		encoder zapcore.Encoder
	)
	if file == "" {
		sink = zapcore.Lock(os.Stderr)
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   file,
			MaxSize:    5, // megabytes
			MaxBackups: 3,
			MaxAge:     14,
		})
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	SetLogger(zap.New(zapcore.NewCore(encoder, sink, level), zap.AddCaller(), zap.AddCallerSkip(1)))
}

// SetLogger replaces the package logger.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

func Logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debug(msg string, fields ...zap.Field) {
	Logger().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	Logger().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	Logger().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	Logger().Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	Logger().Fatal(msg, fields...)
}

// Sync flushes buffered entries.
func Sync() {
	_ = Logger().Sync()
}
