package datasource

import (
	"context"
	"time"
)

// Source defines the interface for collecting live dimension readings
type Source interface {
	// ReadDimensions returns the current value per dimension name. Dimensions
	// with no data are omitted from the map.
	ReadDimensions(ctx context.Context) (map[string]float64, error)
	IsAvailable(ctx context.Context) bool
	Name() string
}

type Config struct {
	PrometheusURL string
	Job           string
	Timeout       time.Duration
}
