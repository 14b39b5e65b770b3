package scaler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/canopy-network/queuescaler/pkg/scaling"
	"go.uber.org/zap"
	meta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// probeTimeoutSeconds is the server-side timeout sent with the health list call.
const probeTimeoutSeconds int64 = 10

// K8sProvider scales a single Deployment.
type K8sProvider struct {
	Logger     *zap.Logger
	client     kubernetes.Interface
	ns         string
	deployment string
}

var _ Provider = (*K8sProvider)(nil)

// NewK8sProvider builds a client from the in-cluster config, falling back to
// KUBECONFIG or ~/.kube/config.
func NewK8sProvider(logger *zap.Logger, namespace, deployment string) (*K8sProvider, error) {
	log := logger.With(zap.String("component", "k8s_provider"))

	var (
		cfg *rest.Config
		err error
		src string
	)

	if cfg, err = rest.InClusterConfig(); err == nil {
		src = "in_cluster"
	} else {
		kubeconfig := os.Getenv("KUBECONFIG")
		if kubeconfig == "" {
			kubeconfig = clientcmd.RecommendedHomeFile
		}
		cfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			log.Error("kube config build failed", zap.Error(err))
			return nil, fmt.Errorf("build kube config: %w", err)
		}
		src = "kubeconfig"
	}

	cs, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		log.Error("k8s client init failed", zap.Error(err))
		return nil, fmt.Errorf("k8s client: %w", err)
	}

	log.Info("provider initialized",
		zap.String("config_source", src),
		zap.String("namespace", namespace),
		zap.String("deployment", deployment),
	)
	return NewK8sProviderWithClient(log, cs, namespace, deployment), nil
}

// NewK8sProviderWithClient wraps an existing clientset.
func NewK8sProviderWithClient(logger *zap.Logger, client kubernetes.Interface, namespace, deployment string) *K8sProvider {
	return &K8sProvider{Logger: logger, client: client, ns: namespace, deployment: deployment}
}

// CurrentReplicas returns status.replicas of the deployment.
func (p *K8sProvider) CurrentReplicas(ctx context.Context) (int32, error) {
	d, err := p.client.AppsV1().Deployments(p.ns).Get(ctx, p.deployment, meta.GetOptions{})
	if err != nil {
		return 0, fmt.Errorf("%w: get deployment %s/%s: %w", scaling.ErrAPI, p.ns, p.deployment, err)
	}
	return d.Status.Replicas, nil
}

// SetReplicas writes spec.replicas, skipping the update when it already matches.
func (p *K8sProvider) SetReplicas(ctx context.Context, n int32) error {
	if n < 0 {
		return fmt.Errorf("%w: negative replica count %d", scaling.ErrAPI, n)
	}
	start := time.Now()

	deploy, err := p.client.AppsV1().Deployments(p.ns).Get(ctx, p.deployment, meta.GetOptions{})
	if err != nil {
		p.Logger.Error("deployment get failed on scale", zap.String("deployment", p.deployment), zap.Error(err))
		return fmt.Errorf("%w: get deployment: %w", scaling.ErrAPI, err)
	}

	if deploy.Spec.Replicas != nil && *deploy.Spec.Replicas == n {
		p.Logger.Debug("deployment already at desired replicas",
			zap.String("deployment", p.deployment),
			zap.Int32("replicas", n))
		return nil
	}

	var from int32
	if deploy.Spec.Replicas != nil {
		from = *deploy.Spec.Replicas
	}
	deploy.Spec.Replicas = int32Ptr(n)
	if _, err := p.client.AppsV1().Deployments(p.ns).Update(ctx, deploy, meta.UpdateOptions{}); err != nil {
		p.Logger.Error("deployment scale failed", zap.String("deployment", p.deployment), zap.Error(err))
		return fmt.Errorf("%w: update deployment: %w", scaling.ErrAPI, err)
	}

	p.Logger.Info("deployment scaled",
		zap.String("deployment", p.deployment),
		zap.Int32("from", from),
		zap.Int32("to", n),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Ping lists at most one deployment in the namespace.
func (p *K8sProvider) Ping(ctx context.Context) error {
	timeout := probeTimeoutSeconds
	_, err := p.client.AppsV1().Deployments(p.ns).List(ctx, meta.ListOptions{Limit: 1, TimeoutSeconds: &timeout})
	if err != nil {
		return fmt.Errorf("%w: list deployments: %w", scaling.ErrConnectivity, err)
	}
	return nil
}

// Close releases resources associated with the provider.
func (p *K8sProvider) Close() error {
	p.Logger.Info("provider closed")
	return nil
}

// int32Ptr returns a pointer to the given int32.
func int32Ptr(i int32) *int32 { return &i }
