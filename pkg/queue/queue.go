// Package queue reads the backlog depth of the work queue the managed
// deployment consumes from.
package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/canopy-network/queuescaler/pkg/scaling"
	"go.uber.org/zap"
)

// LengthProvider reports the current backlog depth. Failures wrap
// scaling.ErrConnectivity.
type LengthProvider interface {
	// Length returns the number of unconsumed items, always >= 0 on success.
	Length(ctx context.Context) (int64, error)
	// Ping checks connectivity only; it is used as the queue health probe.
	Ping(ctx context.Context) error
	// Close releases connections.
	Close() error
}

// Backend names accepted by New.
const (
	BackendKafka    = "kafka"
	BackendRedis    = "redis"
	BackendTemporal = "temporal"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	// Addr is the bootstrap address: comma-separated brokers for Kafka,
	// host:port for Redis and Temporal.
	Addr string
	// Name is the topic, stream or task queue.
	Name string

	// Group is the Redis consumer group whose lag is reported. Empty means
	// the whole stream length.
	Group         string
	RedisPassword string
	RedisDB       int

	TemporalNamespace string
}

// New builds the provider for opts.Backend. It does not contact the queue;
// connectivity is established lazily and checked through Ping.
func New(logger *zap.Logger, opts Options) (LengthProvider, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("%w: queue name is required", scaling.ErrInvalidConfiguration)
	}
	switch strings.ToLower(opts.Backend) {
	case BackendKafka:
		return NewKafka(logger, splitBrokers(opts.Addr), opts.Name)
	case BackendRedis:
		return NewRedis(logger, RedisOptions{
			Addr:     opts.Addr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
			Stream:   opts.Name,
			Group:    opts.Group,
		}), nil
	case BackendTemporal:
		return NewTemporal(logger, opts.Addr, opts.TemporalNamespace, opts.Name)
	default:
		return nil, fmt.Errorf("%w: unknown queue backend %q (expected kafka, redis or temporal)",
			scaling.ErrInvalidConfiguration, opts.Backend)
	}
}

func splitBrokers(addr string) []string {
	var out []string
	for _, b := range strings.Split(addr, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func connectivityErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", scaling.ErrConnectivity, op, err)
}
