// Package logger builds the process logger and holds shared structured field helpers.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultOutput = "stderr"

// Options control the process-wide logger.
type Options struct {
	JSON  bool
	Debug bool
	// Output is a zap sink such as "stderr" or a file path. Command results go to stdout,
	// so logs default to stderr.
	Output string
}

func (o Options) level() zapcore.Level {
	if o.Debug {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

func (o Options) encoding() string {
	if o.JSON {
		return "json"
	}
	return "console"
}

func (o Options) output() string {
	if o.Output == "" {
		return defaultOutput
	}
	return o.Output
}

// New builds a logger whose entries use "step" as the message key.
func New(opts Options) (*zap.Logger, error) {
	cfg := zap.Config{
		Encoding:          opts.encoding(),
		Level:             zap.NewAtomicLevelAt(opts.level()),
		OutputPaths:       []string{opts.output()},
		ErrorOutputPaths:  []string{defaultOutput},
		DisableStacktrace: !opts.Debug,
		EncoderConfig:     encoderConfig(),
	}

	return cfg.Build()
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey: "step",

		LevelKey:    "level",
		EncodeLevel: zapcore.LowercaseLevelEncoder,

		TimeKey:    "time",
		EncodeTime: zapcore.RFC3339TimeEncoder,

		CallerKey:    "caller",
		EncodeCaller: zapcore.ShortCallerEncoder,

		EncodeDuration: zapcore.StringDurationEncoder,
	}
}
