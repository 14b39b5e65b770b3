package logging

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CronAdapter routes robfig/cron logs into zap.
type CronAdapter struct{ *zap.SugaredLogger }

var _ cron.Logger = (*CronAdapter)(nil)

// NewCronAdapter wraps logger; cron passes keyvals, so the sugared API is used.
func NewCronAdapter(logger *zap.Logger) *CronAdapter {
	return &CronAdapter{logger.Sugar()}
}

// Info is demoted to debug: cron logs every wake-up at info.
func (c *CronAdapter) Info(msg string, keysAndValues ...interface{}) {
	c.Debugw(msg, keysAndValues...)
}

func (c *CronAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	c.Errorw(msg, append(keysAndValues, "error", err)...)
}
