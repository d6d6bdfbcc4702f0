package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSink only records the notification. It is the default when no broker
// is configured.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("notify")}
}

func (s *LogSink) Send(_ context.Context, n Notification) error {
	s.logger.Info("notification sent",
		zap.String("task_id", n.TaskID),
		zap.String("to", n.To),
		zap.String("subject", n.Subject),
	)
	return nil
}

func (s *LogSink) Close() error {
	return nil
}
