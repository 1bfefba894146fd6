package datasource

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"github.com/agentops/evogate/pkg/dimension"
)

// PrometheusSource reads dimension values from an agent runtime's Prometheus
// metrics. Each dimension maps to one PromQL expression; dimensions whose
// query returns no samples are omitted from the reading.
type PrometheusSource struct {
	client v1.API
	url    string
	job    string
	logger *slog.Logger
}

func NewPrometheusSource(url, job string, logger *slog.Logger) (*PrometheusSource, error) {
	client, err := api.NewClient(api.Config{
		Address: url,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PrometheusSource{
		client: v1.NewAPI(client),
		url:    url,
		job:    job,
		logger: logger,
	}, nil
}

// queries returns the PromQL expression per dimension name. The job label
// selects the agent runtime being observed.
func (p *PrometheusSource) queries() map[string]string {
	sel := fmt.Sprintf(`job="%s"`, p.job)
	return map[string]string{
		dimension.Throughput: fmt.Sprintf(`sum(rate(agent_tasks_completed_total{%s}[5m]))`, sel),
		dimension.Latency:    fmt.Sprintf(`histogram_quantile(0.95, sum(rate(agent_task_duration_seconds_bucket{%s}[5m])) by (le))`, sel),
		dimension.Cost:       fmt.Sprintf(`sum(rate(agent_cost_usd_total{%s}[5m])) / sum(rate(agent_tasks_completed_total{%s}[5m])) * 1000`, sel, sel),
		dimension.ErrorRate:  fmt.Sprintf(`sum(rate(agent_tasks_failed_total{%s}[5m])) / sum(rate(agent_tasks_total{%s}[5m]))`, sel, sel),
		dimension.TokenUsage: fmt.Sprintf(`sum(rate(agent_tokens_used_total{%s}[5m])) * 60`, sel),
		dimension.Memory:     fmt.Sprintf(`max(process_resident_memory_bytes{%s}) / 1024 / 1024`, sel),
	}
}

// ReadDimensions queries each dimension and returns the values that resolved.
// A dimension with no data is skipped rather than reported as zero; a zero
// reading would look like a healthy error rate or an idle workload.
func (p *PrometheusSource) ReadDimensions(ctx context.Context) (map[string]float64, error) {
	values := make(map[string]float64)
	for name, query := range p.queries() {
		v, err := p.querySingle(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.logger.Debug("dimension query returned no data", "dimension", name, "error", err)
			continue
		}
		values[name] = v
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no dimension data from %s", p.url)
	}
	return values, nil
}

func (p *PrometheusSource) querySingle(ctx context.Context, query string) (float64, error) {
	result, warnings, err := p.client.Query(ctx, query, time.Now())
	if err != nil {
		return 0, fmt.Errorf("query failed: %w", err)
	}

	if len(warnings) > 0 {
		p.logger.Warn("prometheus query warnings", "warnings", warnings)
	}

	vector, ok := result.(model.Vector)
	if !ok || len(vector) == 0 {
		return 0, fmt.Errorf("no data for query: %s", query)
	}

	sum := 0.0
	for _, sample := range vector {
		sum += float64(sample.Value)
	}

	return sum, nil
}

func (p *PrometheusSource) IsAvailable(ctx context.Context) bool {
	_, _, err := p.client.Query(ctx, "up", time.Now())
	return err == nil
}

func (p *PrometheusSource) Name() string {
	return "Prometheus"
}
