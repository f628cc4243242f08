// Package obs builds the injected zap.Logger used throughout h2pool.
// Grounded on packetd's logger.Options (level/output selection), adapted
// from a package-level global logger to one constructed once in main and
// passed down explicitly, per the pack's streammgr/hpack preference for
// injected loggers over ambient globals.
package obs

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures the process-wide logger.
type Options struct {
	Level     string // "debug", "info", "warn", or "error"
	Format    string // "console" or "json"
	Verbose   bool   // adds caller info when true
}

func parseLevel(s string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// New builds a zap.Logger from Options. It never returns nil: an empty
// Options produces an info-level console logger writing to stderr.
func New(opts Options) *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if opts.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), parseLevel(opts.Level))
	zopts := []zap.Option{}
	if opts.Verbose {
		zopts = append(zopts, zap.AddCaller())
	}
	return zap.New(core, zopts...)
}
