package status

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/autoskip/internal/domain"
)

// LogSink mirrors status events into the service log.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a log mirror.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("status")}
}

// Publish writes ev at a level matching its kind.
func (s *LogSink) Publish(ev domain.StatusEvent) {
	s.logger.Check(levelFor(ev.Kind), ev.Message).Write(
		zap.String("kind", string(ev.Kind)),
		zap.Time("event_time", ev.Time),
	)
}

// Consume mirrors events until events is closed.
func (s *LogSink) Consume(events <-chan domain.StatusEvent) {
	for ev := range events {
		s.Publish(ev)
	}
}

func levelFor(kind domain.StatusKind) zapcore.Level {
	switch kind {
	case domain.StatusCycleError:
		return zapcore.ErrorLevel
	case domain.StatusCaptureError, domain.StatusTemplate:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

var _ domain.StatusSink = (*LogSink)(nil)
