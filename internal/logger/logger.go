package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the zap logger shared by the engine components. Embedding keeps
// the zap field API available to callers.
type Logger struct {
	*zap.Logger
}

// NewLogger builds the production logger: JSON to stdout, errors to stderr,
// info level. Engine log lines carry run and bar fields; the strategy-visible
// log sink mirrors into this logger.
func NewLogger() (*Logger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	zapLogger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger: zapLogger,
	}, nil
}

// NewNopLogger returns a logger that discards all output. Used by tests and
// benchmarks that exercise the engine without caring about log output.
func NewNopLogger() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Sync flushes any buffered entries. Safe on a zero logger.
func (l *Logger) Sync() error {
	if l.Logger != nil {
		return l.Logger.Sync()
	}

	return nil
}
