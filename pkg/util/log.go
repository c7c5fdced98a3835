// Package util holds the process-level logger constructor for the host
// driver and the live engine orchestrator. The core packages (decimal,
// types, state, margin, risk, apply) never log; anything that wants a
// *zap.Logger sits above them.
package util

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the engine's structured logger. logPath is the
// host config's log_file_path: when empty, log lines go to stdout
// only; otherwise they are teed to the file as well, with parent
// directories created as needed. Both sinks use JSON encoding with
// ISO8601 timestamps so a log shipped from a replay host parses the
// same as one from a live ingester.
func NewLogger(logPath string) (*zap.Logger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(os.Stdout), zap.InfoLevel),
	}
	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(f), zap.InfoLevel))
	}
	return zap.New(zapcore.NewTee(cores...)), nil
}
