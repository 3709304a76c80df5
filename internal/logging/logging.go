// Package logging builds the zap loggers used across the service. Every
// entry is one JSON object per line with an RFC3339 timestamp in the
// configured location.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON logger writing to stdout at the given level.
func New(level string, loc *time.Location) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	return build(zapcore.Lock(os.Stdout), lvl, loc), nil
}

// NewWithWriter returns a JSON logger writing to w at info level.
func NewWithWriter(w io.Writer, loc *time.Location) *zap.Logger {
	return build(zapcore.AddSync(w), zapcore.InfoLevel, loc)
}

func build(ws zapcore.WriteSyncer, lvl zapcore.Level, loc *time.Location) *zap.Logger {
	if loc == nil {
		loc = time.UTC
	}
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.MessageKey = "msg"
	enc.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(t.In(loc).Format(time.RFC3339Nano))
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), ws, lvl)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}
