package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/agentops/evogate/pkg/models"
)

// LoadDocument reads a workflow document from a YAML (or JSON) file.
func LoadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow %s: %w", path, err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse workflow %s: %w", path, err)
	}
	return normalizeMap(raw), nil
}

// LoadScenarios reads a scenario list from a YAML (or JSON) file.
func LoadScenarios(path string) ([]models.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenarios %s: %w", path, err)
	}
	var raw []map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse scenarios %s: %w", path, err)
	}
	scenarios := make([]models.Scenario, len(raw))
	for i, m := range raw {
		scenarios[i] = models.Scenario(normalizeMap(m))
	}
	return scenarios, nil
}

// normalizeMap rewrites yaml.v3's map[any]any nesting into map[string]any so
// documents round-trip through encoding/json.
func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return normalizeMap(t)
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeValue(val)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = normalizeValue(e)
		}
		return t
	default:
		return v
	}
}
