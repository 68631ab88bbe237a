package logging

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// CronLogger routes robfig/cron's internal messages into l.
// Info messages from cron (schedule, wake, run) go to debug level.
func CronLogger(l *slog.Logger) cron.Logger {
	return cronLogger{l: l.With("component", "cron")}
}

type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append([]interface{}{"err", err}, keysAndValues...)...)
}
