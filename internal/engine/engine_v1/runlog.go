package engine

import (
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/runtime"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// runLogger captures strategy log lines into the run result and mirrors them
// to the engine logger. Records carry the simulation bar time, not the wall
// clock, so replays of the same config stay byte-identical.
type runLogger struct {
	log      *logger.Logger
	barIndex int
	barTime  time.Time
	records  []types.LogRecord
}

var _ runtime.StrategyLogger = (*runLogger)(nil)

func newRunLogger(log *logger.Logger) *runLogger {
	return &runLogger{log: log}
}

func (l *runLogger) Debug(message string) {
	l.append(types.LogLevelDebug, message)
	l.log.Debug(message)
}

func (l *runLogger) Info(message string) {
	l.append(types.LogLevelInfo, message)
	l.log.Info(message)
}

func (l *runLogger) Warn(message string) {
	l.append(types.LogLevelWarn, message)
	l.log.Warn(message)
}

func (l *runLogger) Error(message string) {
	l.append(types.LogLevelError, message)
	l.log.Error(message)
}

func (l *runLogger) append(level types.LogLevel, message string) {
	l.records = append(l.records, types.LogRecord{
		Time:     l.barTime,
		BarIndex: l.barIndex,
		Level:    level,
		Message:  message,
	})
}
