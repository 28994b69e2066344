package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.Logger

// InitLogger initializes the global structured logger. Environment selects
// the encoder: "production" emits JSON, anything else a colored console.
func InitLogger(environment string) error {
	var config zap.Config

	if environment == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	built, err := config.Build()
	if err != nil {
		return err
	}
	log = built

	return nil
}

// Logger returns the global logger instance
func Logger() *zap.Logger {
	if log == nil {
		// Fallback to a basic logger if InitLogger wasn't called
		log, _ = zap.NewDevelopment()
	}
	return log
}

// Sync flushes buffered log entries; call on shutdown
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}
