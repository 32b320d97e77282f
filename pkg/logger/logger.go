package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu         sync.RWMutex
	baseLogger *zap.Logger
	atomicLVL  zap.AtomicLevel
)

func init() {
	atomicLVL = zap.NewAtomicLevelAt(parseLevel(getEnv("CHAT_LOG_LEVEL", "info")))
	l, err := build(getEnv("CHAT_LOG_ENCODING", "json"))
	if err != nil {
		l = zap.NewNop()
	}
	baseLogger = l
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func build(encoding string) (*zap.Logger, error) {
	encoding = strings.ToLower(strings.TrimSpace(encoding))
	if encoding != "json" && encoding != "console" {
		return nil, fmt.Errorf("unsupported log encoding %q", encoding)
	}
	cfg := zap.Config{
		Level:            atomicLVL,
		Development:      false,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build(zap.AddCaller())
}

// L 返回进程级 logger
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return baseLogger
}

// Init 按配置重建 logger，encoding 支持 json | console
func Init(level, encoding string) error {
	atomicLVL.SetLevel(parseLevel(level))
	l, err := build(encoding)
	if err != nil {
		return err
	}
	mu.Lock()
	old := baseLogger
	baseLogger = l
	mu.Unlock()
	_ = old.Sync()
	return nil
}

// Replace 替换底层 logger，主要用于测试捕获日志
func Replace(l *zap.Logger) (restore func()) {
	mu.Lock()
	old := baseLogger
	baseLogger = l
	mu.Unlock()
	return func() {
		mu.Lock()
		baseLogger = old
		mu.Unlock()
	}
}

func SetLevel(level string) { atomicLVL.SetLevel(parseLevel(level)) }

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
