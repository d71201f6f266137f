// Package log provides structured logging for the ingestion pipeline.
// Entries are JSON lines tagged with the daemon endpoint and, while a
// connection is live, its session ID.
package log

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pithecene-io/radar/types"
)

// Logger provides structured logging with endpoint context.
// All methods are nil-receiver safe so components may run without a logger.
type Logger struct {
	zap *zap.Logger
}

// Options configures a Logger.
type Options struct {
	// Level is the minimum enabled level. Defaults to info.
	Level zapcore.Level
	// Output is the destination. Defaults to os.Stderr.
	Output io.Writer
}

// NewLogger creates a logger tagged with the daemon endpoint.
// Output defaults to os.Stderr at info level.
func NewLogger(endpoint types.Endpoint, opts Options) *Logger {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	return &Logger{zap: zap.New(newCore(opts.Output, opts.Level)).With(
		zap.String("endpoint", endpoint.String()),
	)}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// ParseLevel parses a level name (debug, info, warn, error).
func ParseLevel(name string) (zapcore.Level, error) {
	if name == "" {
		return zapcore.InfoLevel, nil
	}
	return zapcore.ParseLevel(name)
}

func newCore(w io.Writer, level zapcore.Level) zapcore.Core {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
	return zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		level,
	)
}

// WithSession returns a logger that tags entries with a connection session ID.
func (l *Logger) WithSession(sessionID string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{zap: l.zap.With(zap.String("session_id", sessionID))}
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, fields map[string]any) {
	if l == nil {
		return
	}
	l.zap.Debug(message, zap.Any("fields", fields))
}

// Info logs an info message.
func (l *Logger) Info(message string, fields map[string]any) {
	if l == nil {
		return
	}
	l.zap.Info(message, zap.Any("fields", fields))
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields map[string]any) {
	if l == nil {
		return
	}
	l.zap.Warn(message, zap.Any("fields", fields))
}

// Error logs an error message.
func (l *Logger) Error(message string, fields map[string]any) {
	if l == nil {
		return
	}
	l.zap.Error(message, zap.Any("fields", fields))
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	return l.zap.Sync()
}
