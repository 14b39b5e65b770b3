package queue

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/canopy-network/queuescaler/pkg/scaling"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// seedGroup creates stream "jobs" with five entries and group "workers",
// two of which have been delivered but not acknowledged.
func seedGroup(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	require.NoError(t, rdb.XGroupCreateMkStream(ctx, "jobs", "workers", "0").Err())
	for i := 0; i < 5; i++ {
		require.NoError(t, rdb.XAdd(ctx, &redis.XAddArgs{Stream: "jobs", Values: map[string]any{"n": fmt.Sprint(i)}}).Err())
	}
	_, err := rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    "workers",
		Consumer: "w1",
		Streams:  []string{"jobs", ">"},
		Count:    2,
	}).Result()
	require.NoError(t, err)
	return mr, rdb
}

func TestRedisGroupBacklog(t *testing.T) {
	mr, rdb := seedGroup(t)
	ctx := context.Background()

	groups, err := rdb.XInfoGroups(ctx, "jobs").Result()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, int64(2), groups[0].Pending)

	q := NewRedis(zaptest.NewLogger(t), RedisOptions{Addr: mr.Addr(), Stream: "jobs", Group: "workers"})
	t.Cleanup(func() { _ = q.Close() })

	n, err := q.Length(ctx)
	require.NoError(t, err)
	require.Equal(t, max(groups[0].Lag, 0)+groups[0].Pending, n)
	require.GreaterOrEqual(t, n, int64(2), "unacknowledged entries always count")
}

func TestRedisGroupBacklogErrors(t *testing.T) {
	mr, _ := seedGroup(t)

	tests := []struct {
		name   string
		stream string
		group  string
	}{
		{name: "unknown group", stream: "jobs", group: "nobody"},
		{name: "missing stream", stream: "absent", group: "workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewRedis(zaptest.NewLogger(t), RedisOptions{Addr: mr.Addr(), Stream: tt.stream, Group: tt.group})
			t.Cleanup(func() { _ = q.Close() })

			_, err := q.Length(context.Background())
			require.ErrorIs(t, err, scaling.ErrConnectivity)
		})
	}
}
