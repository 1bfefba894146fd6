package storage

import (
	"context"
	"errors"
	"time"

	"github.com/agentops/evogate/pkg/models"
)

// ErrNotFound is returned when no stored value matches the key.
var ErrNotFound = errors.New("not found")

// Channel is the publish channel validation verdicts go out on.
const Channel = "sandbox_validations"

// Store persists validation results with a bounded retention window, caches
// per-run metrics snapshots, and publishes verdicts to subscribers. Writes are
// append-only: a stored result is never mutated. Publish is fire-and-forget;
// the gate does not wait for acknowledgement.
type Store interface {
	PutResult(ctx context.Context, res *models.ValidationResult, ttl time.Duration) error
	GetResult(ctx context.Context, proposalID string) (*models.ValidationResult, error)
	ListResults(ctx context.Context, limit int) ([]*models.ValidationResult, error)

	Publish(ctx context.Context, channel string, payload []byte) error

	CacheMetrics(ctx context.Context, key string, m models.PerformanceMetrics, ttl time.Duration) error
	GetCachedMetrics(ctx context.Context, key string) (models.PerformanceMetrics, error)

	Ping(ctx context.Context) error
	Close() error
}
