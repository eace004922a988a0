package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Logger *zap.Logger

// InitLogger 初始化全局日志系统
// 环境变量ENV=development时输出彩色控制台日志，LOG_LEVEL=debug时开启调试级别
func InitLogger() error {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if os.Getenv("ENV") == "development" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level := zapcore.InfoLevel
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	built, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	Logger = built.Named("contractqa")
	zap.ReplaceGlobals(Logger)
	return nil
}

// GetLogger 获取Logger实例，未初始化时回退到默认配置
func GetLogger() *zap.Logger {
	if Logger == nil {
		Logger, _ = zap.NewProduction()
	}
	return Logger
}

// Sync 同步日志缓冲区
func Sync() {
	if Logger != nil {
		Logger.Sync()
	}
}

// Debug 记录Debug级别日志
func Debug(msg string, fields ...zap.Field) { GetLogger().Debug(msg, fields...) }

// Info 记录Info级别日志
func Info(msg string, fields ...zap.Field) { GetLogger().Info(msg, fields...) }

// Warn 记录Warn级别日志
func Warn(msg string, fields ...zap.Field) { GetLogger().Warn(msg, fields...) }

// Error 记录Error级别日志
func Error(msg string, fields ...zap.Field) { GetLogger().Error(msg, fields...) }

// Fatal 记录Fatal级别日志并退出程序
func Fatal(msg string, fields ...zap.Field) { GetLogger().Fatal(msg, fields...) }
