package runner

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/agentops/evogate/pkg/models"
)

// ErrMalformedOutput means the sandbox produced output that is not in the
// expected structured shape. Callers treat it the same as a failed run:
// fall back to zero-valued metrics.
var ErrMalformedOutput = errors.New("malformed metrics output")

type runOutput struct {
	Metrics *models.PerformanceMetrics `json:"metrics"`
}

// ParseOutput extracts structured metrics from raw sandbox output. Unknown or
// missing fields default to zero, because sandbox images evolve independently
// of the validator. Output that interleaves log lines with the metrics object
// is handled by scanning lines from the end; partial output from an aborted
// run often still contains a complete metrics line.
//
// The measured wall-clock duration always overrides whatever the sandbox
// self-reported.
func ParseOutput(raw []byte, duration time.Duration) (models.PerformanceMetrics, error) {
	if m, ok := decodeMetrics(bytes.TrimSpace(raw)); ok {
		m.Duration = duration.Seconds()
		return m, nil
	}

	for _, line := range reverseLines(raw) {
		if m, ok := decodeMetrics(line); ok {
			m.Duration = duration.Seconds()
			return m, nil
		}
	}

	return models.ZeroMetrics(duration), ErrMalformedOutput
}

func decodeMetrics(data []byte) (models.PerformanceMetrics, bool) {
	if len(data) == 0 || data[0] != '{' {
		return models.PerformanceMetrics{}, false
	}
	var out runOutput
	if err := json.Unmarshal(data, &out); err != nil || out.Metrics == nil {
		return models.PerformanceMetrics{}, false
	}
	return *out.Metrics, true
}

func reverseLines(raw []byte) [][]byte {
	lines := bytes.Split(raw, []byte("\n"))
	out := make([][]byte, 0, len(lines))
	for i := len(lines) - 1; i >= 0; i-- {
		line := bytes.TrimSpace(lines[i])
		if len(line) > 0 {
			out = append(out, line)
		}
	}
	return out
}
