package scaling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(minR, maxR int32) Config {
	cfg := DefaultConfig()
	cfg.MinReplicas = minR
	cfg.MaxReplicas = maxR
	return cfg
}

func TestDecideScenarios(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Minute)
	stale := now.Add(-10 * time.Minute)

	tests := []struct {
		name          string
		cfg           Config
		depth         int64
		lastScaleDown time.Time
		wantRaw       int64
		wantDesired   int32
		wantReason    Reason
	}{
		{
			name:          "empty queue keeps one replica",
			cfg:           testConfig(1, 10),
			depth:         0,
			lastScaleDown: recent,
			wantRaw:       1,
			wantDesired:   1,
			wantReason:    ReasonWithinBounds,
		},
		{
			name:          "raw above floor is used as-is",
			cfg:           testConfig(2, 10),
			depth:         25,
			lastScaleDown: recent,
			wantRaw:       3,
			wantDesired:   3,
			wantReason:    ReasonWithinBounds,
		},
		{
			name:          "floor held while ttl has not elapsed",
			cfg:           testConfig(5, 10),
			depth:         5,
			lastScaleDown: recent,
			wantRaw:       1,
			wantDesired:   5,
			wantReason:    ReasonFloorHold,
		},
		{
			name:          "drops below floor once ttl elapsed",
			cfg:           testConfig(5, 10),
			depth:         5,
			lastScaleDown: stale,
			wantRaw:       1,
			wantDesired:   1,
			wantReason:    ReasonBelowFloor,
		},
		{
			name:          "large backlog is capped at max",
			cfg:           testConfig(1, 10),
			depth:         1000,
			lastScaleDown: recent,
			wantRaw:       101,
			wantDesired:   10,
			wantReason:    ReasonCapped,
		},
		{
			name:          "ttl boundary is exclusive",
			cfg:           testConfig(5, 10),
			depth:         0,
			lastScaleDown: now.Add(-300 * time.Second),
			wantRaw:       1,
			wantDesired:   5,
			wantReason:    ReasonFloorHold,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decide(tt.depth, now, tt.lastScaleDown, tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRaw, got.Raw)
			assert.Equal(t, tt.wantDesired, got.Desired)
			assert.Equal(t, tt.wantReason, got.Reason)
		})
	}
}

func TestDecideBelowFloorWithPinnedBounds(t *testing.T) {
	cfg := testConfig(10, 10)
	cfg.MessagesPerPod = 100
	now := time.Now()

	got, err := Decide(50, now, now.Add(-time.Hour), cfg)
	require.NoError(t, err)
	require.Equal(t, int32(1), got.Desired)
	require.True(t, got.BelowFloor(cfg))
}

func TestDecideStaysInBounds(t *testing.T) {
	now := time.Now()
	configs := []Config{testConfig(0, 0), testConfig(0, 3), testConfig(1, 10), testConfig(4, 4), testConfig(7, 20)}

	for _, cfg := range configs {
		for _, last := range []time.Time{now, now.Add(-time.Hour)} {
			for depth := int64(0); depth <= 500; depth += 7 {
				got, err := Decide(depth, now, last, cfg)
				require.NoError(t, err)
				require.GreaterOrEqual(t, got.Desired, int32(0))
				require.LessOrEqual(t, got.Desired, cfg.MaxReplicas)

				if got.Raw >= int64(cfg.MinReplicas) {
					require.Equal(t, min(got.Raw, int64(cfg.MaxReplicas)), int64(got.Desired),
						"raw above floor ignores lastScaleDown")
				}
			}
		}
	}
}

func TestDecideIsIdempotent(t *testing.T) {
	cfg := testConfig(3, 8)
	now := time.Now()
	last := now.Add(-2 * time.Minute)

	first, err := Decide(12, now, last, cfg)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Decide(12, now, last, cfg)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestDecideRejectsBadInput(t *testing.T) {
	now := time.Now()

	_, err := Decide(-1, now, now, DefaultConfig())
	require.ErrorIs(t, err, ErrInvalidObservation)

	_, err = Decide(10, now, now, testConfig(5, 2))
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestDecideHugeBacklogDoesNotOverflow(t *testing.T) {
	got, err := Decide(1<<62, time.Now(), time.Now(), testConfig(1, 10))
	require.NoError(t, err)
	require.Equal(t, int32(10), got.Desired)
}
