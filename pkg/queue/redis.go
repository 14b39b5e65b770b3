package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisOptions configures the Redis Streams backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	// Group, when set, switches the depth from XLEN to the group's backlog.
	Group string
}

// Redis reads backlog depth from a Redis stream.
type Redis struct {
	client *redis.Client
	logger *zap.Logger
	stream string
	group  string
}

var _ LengthProvider = (*Redis)(nil)

// NewRedis creates the client. The connection pool dials on first use.
func NewRedis(logger *zap.Logger, opts RedisOptions) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,

		// Connection pool
		PoolSize:     4,
		MinIdleConns: 1,

		// Timeouts
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	log := logger.With(zap.String("component", "redis_queue"), zap.String("stream", opts.Stream))
	log.Info("redis queue configured",
		zap.String("addr", opts.Addr),
		zap.Int("db", opts.DB),
		zap.String("group", opts.Group))

	return &Redis{client: rdb, logger: log, stream: opts.Stream, group: opts.Group}
}

// Ping checks the Redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return connectivityErr("redis ping", err)
	}
	return nil
}

// Length returns XLEN of the stream, or, with a consumer group, the entries
// not yet delivered to it (lag) plus those delivered but not acknowledged.
func (r *Redis) Length(ctx context.Context) (int64, error) {
	if r.group == "" {
		n, err := r.client.XLen(ctx, r.stream).Result()
		if err != nil {
			return 0, connectivityErr("redis xlen", err)
		}
		return n, nil
	}

	groups, err := r.client.XInfoGroups(ctx, r.stream).Result()
	if err != nil {
		return 0, connectivityErr("redis xinfo groups", err)
	}
	for _, g := range groups {
		if g.Name != r.group {
			continue
		}
		r.logger.Debug("redis group backlog",
			zap.Int64("lag", g.Lag),
			zap.Int64("pending", g.Pending))
		return max(g.Lag, 0) + g.Pending, nil
	}
	return 0, connectivityErr("redis xinfo groups", fmt.Errorf("group %q not found on stream %q", r.group, r.stream))
}

// Close closes the Redis connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
