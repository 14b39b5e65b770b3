package logging

import (
	"github.com/canopy-network/queuescaler/pkg/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the zap level and encoding.
type Options struct {
	Level    string
	Encoding string
}

// OptionsFromEnv reads LOG_LEVEL (default info) and LOG_ENCODING (default json).
func OptionsFromEnv() Options {
	return Options{
		Level:    utils.Env("LOG_LEVEL", "info"),
		Encoding: utils.Env("LOG_ENCODING", "json"),
	}
}

// Build returns the logger together with its level handle, which can be
// changed at runtime (it is served on /log/level). Unknown levels fall back
// to info.
func Build(opts Options) (*zap.Logger, zap.AtomicLevel, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	atom := zap.NewAtomicLevelAt(level)

	cfg := zap.NewProductionConfig()
	cfg.Encoding = opts.Encoding
	cfg.Level = atom
	cfg.Development = level == zapcore.DebugLevel
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return nil, atom, err
	}
	return l, atom, nil
}
