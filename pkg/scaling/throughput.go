package scaling

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// ThroughputEstimator tracks the backlog's rate of change in messages per
// minute. It feeds metrics only and is never consulted by Decide.
type ThroughputEstimator struct {
	mu        sync.Mutex
	lastCount int64
	lastTime  time.Time

	// float64 bits of the latest rate, read by metric scrapers
	rate atomic.Uint64
}

// NewThroughputEstimator starts with a zero count observed at now.
func NewThroughputEstimator(now time.Time) *ThroughputEstimator {
	return &ThroughputEstimator{lastTime: now}
}

// Update records count at now and returns the rate since the previous update.
// A non-positive elapsed time yields 0. State advances either way.
func (e *ThroughputEstimator) Update(count int64, now time.Time) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	elapsedMinutes := now.Sub(e.lastTime).Minutes()
	rate := 0.0
	if elapsedMinutes > 0 {
		rate = float64(count-e.lastCount) / elapsedMinutes
	}

	e.lastCount = count
	e.lastTime = now
	e.rate.Store(math.Float64bits(rate))
	return rate
}

// Rate returns the most recently computed rate.
func (e *ThroughputEstimator) Rate() float64 {
	return math.Float64frombits(e.rate.Load())
}
