package scaler

import (
	"fmt"
	"strings"
	"time"

	"github.com/canopy-network/queuescaler/pkg/queue"
	"github.com/canopy-network/queuescaler/pkg/scaling"
	"github.com/canopy-network/queuescaler/pkg/utils"
	"go.uber.org/multierr"
)

const (
	OrchestratorK8s  = "k8s"
	OrchestratorFake = "fake"
)

// Settings is the whole process configuration, read once from the environment.
type Settings struct {
	Scaling scaling.Config
	Queue   queue.Options

	Orchestrator string
	Namespace    string
	Deployment   string

	HealthPort  int32
	CallTimeout time.Duration
}

// LoadSettings reads the environment. Every malformed or out-of-range value
// is reported in one error wrapping scaling.ErrInvalidConfiguration.
func LoadSettings() (Settings, error) {
	def := scaling.DefaultConfig()
	var errs error
	collect := func(err error) { errs = multierr.Append(errs, err) }

	var s Settings
	var err error

	s.Scaling.MessagesPerPod, err = utils.ParseEnvInt64("MESSAGES_PER_POD", def.MessagesPerPod)
	collect(err)
	s.Scaling.MinReplicas, err = utils.ParseEnvInt32("MIN_REPLICAS", def.MinReplicas)
	collect(err)
	s.Scaling.MaxReplicas, err = utils.ParseEnvInt32("MAX_REPLICAS", def.MaxReplicas)
	collect(err)
	s.Scaling.MessageThreshold, err = utils.ParseEnvInt64("MESSAGE_COUNT_THRESHOLD", def.MessageThreshold)
	collect(err)
	s.Scaling.MinTTL, err = utils.ParseEnvSeconds("MIN_TTL_SECONDS", def.MinTTL)
	collect(err)
	s.Scaling.ScaleInterval, err = utils.ParseEnvSeconds("SCALE_INTERVAL_SECONDS", def.ScaleInterval)
	collect(err)

	s.HealthPort, err = utils.ParseEnvInt32("HEALTH_CHECK_PORT", 8000)
	collect(err)
	if err == nil && (s.HealthPort < 1 || s.HealthPort > 65535) {
		collect(fmt.Errorf("HEALTH_CHECK_PORT must be in 1..65535, got %d", s.HealthPort))
	}
	s.CallTimeout, err = utils.ParseEnvSeconds("CALL_TIMEOUT_SECONDS", 10*time.Second)
	collect(err)
	if err == nil && s.CallTimeout <= 0 {
		collect(fmt.Errorf("CALL_TIMEOUT_SECONDS must be > 0, got %s", s.CallTimeout))
	}

	redisDB, err := utils.ParseEnvInt32("REDIS_DB", 0)
	collect(err)
	s.Queue = queue.Options{
		Backend:           strings.ToLower(utils.Env("QUEUE_BACKEND", queue.BackendKafka)),
		Addr:              utils.EnvFirst("localhost:9092", "QUEUE_ADDR", "KAFKA_BOOTSTRAP_SERVERS"),
		Name:              utils.EnvFirst("my_topic", "QUEUE_NAME", "KAFKA_TOPIC"),
		Group:             utils.Env("QUEUE_GROUP", ""),
		RedisPassword:     utils.Env("REDIS_PASSWORD", ""),
		RedisDB:           int(redisDB),
		TemporalNamespace: utils.Env("TEMPORAL_NAMESPACE", "default"),
	}

	switch s.Queue.Backend {
	case queue.BackendKafka, queue.BackendRedis, queue.BackendTemporal:
	default:
		collect(fmt.Errorf("QUEUE_BACKEND must be %q, %q or %q, got %q",
			queue.BackendKafka, queue.BackendRedis, queue.BackendTemporal, s.Queue.Backend))
	}

	s.Orchestrator = strings.ToLower(utils.Env("ORCHESTRATOR", OrchestratorK8s))
	if s.Orchestrator != OrchestratorK8s && s.Orchestrator != OrchestratorFake {
		collect(fmt.Errorf("ORCHESTRATOR must be %q or %q, got %q", OrchestratorK8s, OrchestratorFake, s.Orchestrator))
	}
	s.Namespace = utils.Env("NAMESPACE", "default")
	s.Deployment = utils.Env("DEPLOYMENT_NAME", "my-deployment")

	if errs == nil {
		// range checks only make sense once everything parsed
		if err := s.Scaling.Validate(); err != nil {
			return Settings{}, err
		}
		return s, nil
	}
	return Settings{}, fmt.Errorf("%w: %w", scaling.ErrInvalidConfiguration, errs)
}
