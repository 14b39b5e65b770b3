package scaling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestThroughputEstimator(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	est := NewThroughputEstimator(start)

	t.Run("zero elapsed returns zero", func(t *testing.T) {
		require.Equal(t, 0.0, est.Update(500, start))
		require.Equal(t, 0.0, est.Rate())
	})

	t.Run("rate per minute", func(t *testing.T) {
		require.InDelta(t, 150.0, est.Update(800, start.Add(2*time.Minute)), 1e-9)
		require.InDelta(t, 150.0, est.Rate(), 1e-9)
	})

	t.Run("draining backlog is negative", func(t *testing.T) {
		require.InDelta(t, -400.0, est.Update(600, start.Add(2*time.Minute+30*time.Second)), 1e-9)
	})

	t.Run("duplicate timestamp still advances state", func(t *testing.T) {
		at := start.Add(3 * time.Minute)
		est.Update(1000, at)
		require.Equal(t, 0.0, est.Update(2000, at))
		require.InDelta(t, 60.0, est.Update(2060, at.Add(time.Minute)), 1e-9)
	})

	t.Run("clock going backwards returns zero", func(t *testing.T) {
		require.Equal(t, 0.0, est.Update(10, start))
	})
}
