package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config 日志配置
type Config struct {
	Level       string // debug / info / warn / error
	Development bool   // 开发模式输出彩色可读日志，生产模式输出 JSON
}

var (
	mu  sync.RWMutex
	log = zap.NewNop()
)

// InitLogger 初始化全局日志
func InitLogger(cfg Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}
	zc.Level.SetLevel(level)

	l, err := zc.Build()
	if err != nil {
		return nil, err
	}

	SetLogger(l)
	zap.ReplaceGlobals(l)
	return l, nil
}

// SetLogger 替换全局日志（测试中可注入 zaptest / observer）
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l
}

// GetLogger 获取全局日志，未初始化时返回 Nop
func GetLogger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Sync 刷新缓冲
func Sync() {
	_ = GetLogger().Sync()
}
