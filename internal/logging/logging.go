// Package logging builds the zap logger shared by the command and the
// layout packages.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON logger at info level, or a console logger at debug level
// when debug is set. Output goes to stderr unless paths are given.
func New(debug bool, paths ...string) (*zap.Logger, error) {
	if len(paths) == 0 {
		paths = []string{"stderr"}
	}

	level := zap.InfoLevel
	encoding := "json"
	encoderConfig := zap.NewProductionEncoderConfig()
	if debug {
		level = zap.DebugLevel
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	config := zap.Config{
		Level:       zap.NewAtomicLevelAt(level),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      paths,
		ErrorOutputPaths: []string{"stderr"},
		DisableCaller:    true,
	}
	if debug {
		// keep every resolution step
		config.Sampling = nil
	}

	return config.Build()
}
