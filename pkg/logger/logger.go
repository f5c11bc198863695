// Package logger adapts slog to third-party logging interfaces.
package logger

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Cron adapts a *slog.Logger to cron.Logger so scheduler events land in the
// same structured log as everything else.
type Cron struct {
	log *slog.Logger
}

var _ cron.Logger = (*Cron)(nil)

// NewCron returns a cron logger tagged with component=scheduler.
func NewCron(log *slog.Logger) *Cron {
	if log == nil {
		log = slog.Default()
	}
	return &Cron{log: log.With("component", "scheduler")}
}

// Info logs routine cron messages at debug level; cron is chatty.
func (c *Cron) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug(msg, keysAndValues...)
}

// Error logs cron failures, including recovered job panics.
func (c *Cron) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
