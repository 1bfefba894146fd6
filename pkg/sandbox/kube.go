package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"
)

// KubeBackend runs workflows as single isolated pods with hard resource
// limits. Pod names embed the run label and a random suffix so concurrent
// validations never share an instance.
type KubeBackend struct {
	clientset     kubernetes.Interface
	metricsClient metricsv.Interface // optional, enables memory-peak sampling
	namespace     string
	image         string
	pollInterval  time.Duration
	timeout       time.Duration
	logger        *slog.Logger
}

// NewKubeBackend creates a pod-based sandbox backend. metricsClient may be nil
// when the cluster has no metrics server; memory sampling is then skipped.
func NewKubeBackend(clientset kubernetes.Interface, metricsClient metricsv.Interface, namespace, image string, logger *slog.Logger) *KubeBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &KubeBackend{
		clientset:     clientset,
		metricsClient: metricsClient,
		namespace:     namespace,
		image:         image,
		pollInterval:  2 * time.Second,
		timeout:       10 * time.Minute,
		logger:        logger,
	}
}

// Execute creates the sandbox pod, waits for it to finish, and returns its
// output. The pod is deleted on every exit path, including cancellation and
// resource-limit kills. On abnormal termination the returned error is an
// *ExecutionError carrying whatever logs were recoverable.
func (b *KubeBackend) Execute(ctx context.Context, spec RunSpec) (Result, error) {
	name := podName(spec.Label)

	pod, err := b.podSpec(name, spec)
	if err != nil {
		return Result{}, err
	}

	if _, err := b.clientset.CoreV1().Pods(b.namespace).Create(ctx, pod, metav1.CreateOptions{}); err != nil {
		return Result{}, &ExecutionError{Label: spec.Label, Err: fmt.Errorf("create pod: %w", err)}
	}
	// Teardown must survive caller cancellation.
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := b.clientset.CoreV1().Pods(b.namespace).Delete(cleanupCtx, name, metav1.DeleteOptions{}); err != nil {
			b.logger.Warn("sandbox pod cleanup failed", "pod", name, "error", err)
		}
	}()

	phase, memPeak, err := b.waitForCompletion(ctx, name)
	if err != nil {
		partial, _ := b.podLogs(context.WithoutCancel(ctx), name)
		return Result{}, &ExecutionError{Label: spec.Label, Partial: partial, Err: err}
	}

	logs, logErr := b.podLogs(ctx, name)
	if phase == corev1.PodFailed {
		// Resource-limit kills and workload crashes land here. Partial output
		// is still worth parsing.
		return Result{}, &ExecutionError{
			Label:   spec.Label,
			Partial: logs,
			Err:     fmt.Errorf("pod %s exited with phase %s", name, phase),
		}
	}
	if logErr != nil {
		return Result{}, &ExecutionError{Label: spec.Label, Err: fmt.Errorf("read logs: %w", logErr)}
	}

	return Result{Output: logs, ObservedMemoryPeakMB: memPeak}, nil
}

func (b *KubeBackend) podSpec(name string, spec RunSpec) (*corev1.Pod, error) {
	workflowJSON, err := json.Marshal(spec.Workflow)
	if err != nil {
		return nil, fmt.Errorf("marshal workflow: %w", err)
	}
	scenariosJSON, err := json.Marshal(spec.Scenarios)
	if err != nil {
		return nil, fmt.Errorf("marshal scenarios: %w", err)
	}

	limits := spec.Limits
	if limits == (ResourceLimits{}) {
		limits = DefaultLimits()
	}
	mem, err := resource.ParseQuantity(limits.Memory)
	if err != nil {
		return nil, fmt.Errorf("parse memory limit %q: %w", limits.Memory, err)
	}
	cpuReq, err := resource.ParseQuantity(limits.CPURequest)
	if err != nil {
		return nil, fmt.Errorf("parse cpu request %q: %w", limits.CPURequest, err)
	}
	cpuLim, err := resource.ParseQuantity(limits.CPULimit)
	if err != nil {
		return nil, fmt.Errorf("parse cpu limit %q: %w", limits.CPULimit, err)
	}

	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: b.namespace,
			Labels: map[string]string{
				"app.kubernetes.io/name":   "evogate-sandbox",
				"evogate.agentops.dev/run": sanitizeLabel(spec.Label),
			},
		},
		Spec: corev1.PodSpec{
			RestartPolicy: corev1.RestartPolicyNever,
			Containers: []corev1.Container{{
				Name:    "workflow",
				Image:   b.image,
				Command: []string{"run_workflow"},
				Args:    []string{string(workflowJSON), string(scenariosJSON)},
				Env: []corev1.EnvVar{
					{Name: "RUN_ID", Value: spec.Label},
					{Name: "SANDBOX_MODE", Value: "true"},
				},
				Resources: corev1.ResourceRequirements{
					Requests: corev1.ResourceList{
						corev1.ResourceCPU:    cpuReq,
						corev1.ResourceMemory: mem,
					},
					Limits: corev1.ResourceList{
						corev1.ResourceCPU:    cpuLim,
						corev1.ResourceMemory: mem,
					},
				},
			}},
		},
	}, nil
}

// waitForCompletion polls the pod until it reaches a terminal phase, sampling
// memory usage along the way when a metrics client is configured.
func (b *KubeBackend) waitForCompletion(ctx context.Context, name string) (corev1.PodPhase, float64, error) {
	deadline := time.Now().Add(b.timeout)
	var memPeak float64

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		pod, err := b.clientset.CoreV1().Pods(b.namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return "", memPeak, fmt.Errorf("get pod: %w", err)
		}
		switch pod.Status.Phase {
		case corev1.PodSucceeded, corev1.PodFailed:
			return pod.Status.Phase, memPeak, nil
		}

		if sample := b.sampleMemoryMB(ctx, name); sample > memPeak {
			memPeak = sample
		}

		if time.Now().After(deadline) {
			return "", memPeak, fmt.Errorf("pod %s did not complete within %s", name, b.timeout)
		}
		select {
		case <-ctx.Done():
			return "", memPeak, ctx.Err()
		case <-ticker.C:
		}
	}
}

// sampleMemoryMB reads the pod's current working set from the metrics API.
// Best effort: the metrics server lags pod startup, so failures return 0.
func (b *KubeBackend) sampleMemoryMB(ctx context.Context, name string) float64 {
	if b.metricsClient == nil {
		return 0
	}
	pm, err := b.metricsClient.MetricsV1beta1().PodMetricses(b.namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return 0
	}
	var total int64
	for _, c := range pm.Containers {
		mem := c.Usage[corev1.ResourceMemory]
		total += mem.Value()
	}
	return float64(total) / (1024 * 1024)
}

func (b *KubeBackend) podLogs(ctx context.Context, name string) ([]byte, error) {
	req := b.clientset.CoreV1().Pods(b.namespace).GetLogs(name, &corev1.PodLogOptions{})
	return req.Do(ctx).Raw()
}

func podName(label string) string {
	return fmt.Sprintf("evogate-sandbox-%s-%s", sanitizeLabel(label), uuid.New().String()[:8])
}

// sanitizeLabel makes a run label safe for pod names and label values.
func sanitizeLabel(label string) string {
	s := strings.ToLower(label)
	var out strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			out.WriteRune(r)
		} else {
			out.WriteRune('-')
		}
	}
	return strings.Trim(out.String(), "-")
}
