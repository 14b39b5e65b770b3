package logging

import (
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
)

// TemporalAdapter lets the Temporal SDK log through zap. The SDK passes
// keyvals, so it wraps the sugared logger.
type TemporalAdapter struct{ s *zap.SugaredLogger }

var (
	_ log.Logger     = (*TemporalAdapter)(nil)
	_ log.WithLogger = (*TemporalAdapter)(nil)
)

// NewTemporalAdapter tags every SDK entry with source=temporal_sdk.
func NewTemporalAdapter(logger *zap.Logger) *TemporalAdapter {
	return &TemporalAdapter{logger.Sugar().With("source", "temporal_sdk")}
}

func (t *TemporalAdapter) Debug(msg string, keyvals ...interface{}) { t.s.Debugw(msg, keyvals...) }
func (t *TemporalAdapter) Info(msg string, keyvals ...interface{})  { t.s.Infow(msg, keyvals...) }
func (t *TemporalAdapter) Warn(msg string, keyvals ...interface{})  { t.s.Warnw(msg, keyvals...) }
func (t *TemporalAdapter) Error(msg string, keyvals ...interface{}) { t.s.Errorw(msg, keyvals...) }

// With returns an adapter carrying keyvals on every entry.
func (t *TemporalAdapter) With(keyvals ...interface{}) log.Logger {
	return &TemporalAdapter{t.s.With(keyvals...)}
}
