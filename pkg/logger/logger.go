package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// Logger is an alias for zap.Logger for consistency across the module.
type Logger = *zap.Logger

// Options configures NewLogger. The backtest driver's sampled hot-path
// logging (spec §4.7 step 8) wants a cheaper console encoder writing
// straight to a caller-owned sink rather than the CLI's default
// JSON-to-stdout sink, so both are parameters instead of NewLogger's
// former hardcoded os.Stdout JSON core.
type Options struct {
	Level string
	// Encoding is "json" (default) or "console".
	Encoding string
	// Writer defaults to os.Stdout.
	Writer io.Writer
}

// NewLogger creates the process-wide structured logger. It is constructed
// once at startup and passed by reference into the backtest driver, which
// hands it to its order book; the driver logs rejected book updates
// through it at debug level. There is no intermediate sample buffer.
func NewLogger(opts Options) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch opts.Level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if opts.Encoding == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	sink := opts.Writer
	if sink == nil {
		sink = os.Stdout
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(sink), zapLevel)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger, nil
}

// NewSampledLogger wraps a logger with zap's built-in sampler, capping log
// volume to the first entries per second and every thereafter-th entry
// after that. Nothing in this repository calls it; the backtest driver
// logs through the unsampled logger it is given.
func NewSampledLogger(base *zap.Logger, first, thereafter int) *zap.Logger {
	sampled := zapcore.NewSamplerWithOptions(base.Core(), time.Second, first, thereafter)
	return base.WithOptions(zap.WrapCore(func(zapcore.Core) zapcore.Core {
		return sampled
	}))
}

// Slog bridges l onto a log/slog.Logger facade via zap's zapslog adapter
// (SPEC_FULL.md §4.10), for callers in the pack's dependency surface that
// expect the standard library's logging interface instead of *zap.Logger.
func Slog(l *zap.Logger) *slog.Logger {
	return slog.New(zapslog.NewHandler(l.Core()))
}
