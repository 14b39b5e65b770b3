package queue

import (
	"context"

	"github.com/canopy-network/queuescaler/pkg/logging"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
)

// Temporal reports the approximate backlog of a Temporal task queue.
type Temporal struct {
	client    client.Client
	logger    *zap.Logger
	taskQueue string
}

var _ LengthProvider = (*Temporal)(nil)

// NewTemporal creates a lazily connecting Temporal client.
func NewTemporal(logger *zap.Logger, hostPort, namespace, taskQueue string) (*Temporal, error) {
	log := logger.With(zap.String("component", "temporal_queue"), zap.String("task_queue", taskQueue))
	c, err := client.NewLazyClient(client.Options{
		HostPort:  hostPort,
		Namespace: namespace,
		Logger:    logging.NewTemporalAdapter(log),
	})
	if err != nil {
		return nil, connectivityErr("temporal client", err)
	}
	log.Info("temporal queue configured", zap.String("host", hostPort), zap.String("namespace", namespace))
	return &Temporal{client: c, logger: log, taskQueue: taskQueue}, nil
}

// Ping runs the frontend health check.
func (t *Temporal) Ping(ctx context.Context) error {
	if _, err := t.client.CheckHealth(ctx, &client.CheckHealthRequest{}); err != nil {
		return connectivityErr("temporal health", err)
	}
	return nil
}

// Length sums ApproximateBacklogCount over the workflow and activity task
// queue types.
func (t *Temporal) Length(ctx context.Context) (int64, error) {
	desc, err := t.client.DescribeTaskQueueEnhanced(ctx, client.DescribeTaskQueueEnhancedOptions{
		TaskQueue: t.taskQueue,
		TaskQueueTypes: []client.TaskQueueType{
			client.TaskQueueTypeWorkflow,
			client.TaskQueueTypeActivity,
		},
		ReportStats: true,
	})
	if err != nil {
		return 0, connectivityErr("temporal describe task queue", err)
	}

	var backlog int64
	//nolint:staticcheck // VersionsInfo is the only place stats are reported per type today
	for _, versionInfo := range desc.VersionsInfo {
		for _, typ := range []client.TaskQueueType{client.TaskQueueTypeWorkflow, client.TaskQueueTypeActivity} {
			if info, ok := versionInfo.TypesInfo[typ]; ok && info.Stats != nil {
				backlog += info.Stats.ApproximateBacklogCount
			}
		}
	}
	t.logger.Debug("temporal task queue backlog", zap.Int64("backlog", backlog))
	return backlog, nil
}

// Close closes the Temporal client.
func (t *Temporal) Close() error {
	t.client.Close()
	return nil
}
