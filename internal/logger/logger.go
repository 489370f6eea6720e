package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New 创建带模块标记的结构化日志器
func New(module string, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("module", module).
		Logger()

	return logger.Level(ParseLevel(level))
}

// ParseLevel 解析日志级别，未知值回退info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
