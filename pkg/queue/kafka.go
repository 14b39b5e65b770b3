package queue

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/canopy-network/queuescaler/pkg/scaling"
	"github.com/segmentio/kafka-go"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Kafka reports the number of messages retained in a topic, summed over
// partitions (last offset minus first offset).
type Kafka struct {
	logger  *zap.Logger
	dialer  *kafka.Dialer
	brokers []string
	topic   string
}

var _ LengthProvider = (*Kafka)(nil)

// NewKafka creates a provider for topic using the given bootstrap brokers.
func NewKafka(logger *zap.Logger, brokers []string, topic string) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("%w: at least one kafka bootstrap broker is required", scaling.ErrInvalidConfiguration)
	}
	log := logger.With(zap.String("component", "kafka_queue"), zap.String("topic", topic))
	log.Info("kafka queue configured", zap.Strings("brokers", brokers))
	return &Kafka{
		logger:  log,
		dialer:  &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true},
		brokers: brokers,
		topic:   topic,
	}, nil
}

// Ping dials a bootstrap broker and fetches cluster metadata.
func (k *Kafka) Ping(ctx context.Context) error {
	conn, err := k.dialAny(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.Brokers(); err != nil {
		return connectivityErr("kafka metadata", err)
	}
	return nil
}

// Length sums the retained message count of every partition of the topic.
func (k *Kafka) Length(ctx context.Context) (int64, error) {
	conn, err := k.dialAny(ctx)
	if err != nil {
		return 0, err
	}
	partitions, err := conn.ReadPartitions(k.topic)
	_ = conn.Close()
	if err != nil {
		return 0, connectivityErr("kafka read partitions", err)
	}
	if len(partitions) == 0 {
		return 0, connectivityErr("kafka read partitions", fmt.Errorf("topic %q has no partitions", k.topic))
	}

	var total int64
	for _, p := range partitions {
		n, err := k.partitionLength(ctx, p)
		if err != nil {
			return 0, err
		}
		total += n
	}
	k.logger.Debug("kafka topic length", zap.Int("partitions", len(partitions)), zap.Int64("messages", total))
	return total, nil
}

// Close is a no-op; connections are opened per call.
func (k *Kafka) Close() error { return nil }

func (k *Kafka) partitionLength(ctx context.Context, p kafka.Partition) (int64, error) {
	leader := net.JoinHostPort(p.Leader.Host, strconv.Itoa(p.Leader.Port))
	conn, err := k.dialer.DialLeader(ctx, "tcp", leader, k.topic, p.ID)
	if err != nil {
		return 0, connectivityErr(fmt.Sprintf("kafka dial leader partition=%d", p.ID), err)
	}
	defer func() { _ = conn.Close() }()
	applyDeadline(ctx, conn)

	first, last, err := conn.ReadOffsets()
	if err != nil {
		return 0, connectivityErr(fmt.Sprintf("kafka read offsets partition=%d", p.ID), err)
	}
	return max(last-first, 0), nil
}

func (k *Kafka) dialAny(ctx context.Context) (*kafka.Conn, error) {
	var errs []error
	for _, b := range k.brokers {
		conn, err := k.dialer.DialContext(ctx, "tcp", b)
		if err == nil {
			applyDeadline(ctx, conn)
			return conn, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", b, err))
	}
	return nil, connectivityErr("kafka dial", multierr.Combine(errs...))
}

func applyDeadline(ctx context.Context, conn *kafka.Conn) {
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
}
