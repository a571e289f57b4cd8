package observability

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/support-portal/internal/config"
)

// NewLogger creates the portal's structured JSON logger.
func NewLogger(cfg config.LoggerConfig, service string) (*zap.Logger, error) {
	zapCfg := baseConfig(cfg.Level)
	zapCfg.Encoding = "json"
	zapCfg.OutputPaths = []string{"stdout"}
	zapCfg.InitialFields = map[string]interface{}{"service": service}
	return zapCfg.Build()
}

// NewConsoleLogger creates a human-readable logger on stderr so stdout stays
// free for command output.
func NewConsoleLogger(cfg config.LoggerConfig) (*zap.Logger, error) {
	zapCfg := baseConfig(cfg.Level)
	zapCfg.Encoding = "console"
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapCfg.Build()
}

func baseConfig(levelName string) zap.Config {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(levelName)); err != nil {
		level = zapcore.InfoLevel
	}
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey: "message",
			LevelKey:   "level",
			TimeKey:    "ts",
			NameKey:    "logger",
			EncodeLevel: func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
				enc.AppendString(l.String())
			},
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		},
		ErrorOutputPaths: []string{"stderr"},
	}
}
