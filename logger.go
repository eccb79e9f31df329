package openpose

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap logger with ISO8601 timestamps, console friendly
// when development is set and JSON otherwise
func NewLogger(development bool) (*zap.Logger, error) {

	cfg := zap.NewProductionConfig()

	if development {
		cfg = zap.NewDevelopmentConfig()
	}

	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
