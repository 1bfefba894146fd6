package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/agentops/evogate/pkg/models"
)

//go:embed migrations/*.sql
var postgresFS embed.FS

// PostgresStore implements Store using PostgreSQL. Verdicts publish via
// pg_notify, so a deployment controller can LISTEN on the channel without any
// extra broker.
type PostgresStore struct {
	db  *sql.DB
	dsn string
}

// NewPostgresStore opens a connection pool and runs migrations.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db, dsn: dsn}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) migrate() error {
	schema, err := postgresFS.ReadFile("migrations/001_postgres_schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// PutResult appends a validation result with the given retention window.
// Results are never updated in place.
func (s *PostgresStore) PutResult(ctx context.Context, res *models.ValidationResult, ttl time.Duration) error {
	improvement, err := json.Marshal(res.Improvements)
	if err != nil {
		return fmt.Errorf("marshal improvements: %w", err)
	}
	regressions, err := json.Marshal(res.Regressions)
	if err != nil {
		return fmt.Errorf("marshal regressions: %w", err)
	}
	baseline, err := json.Marshal(res.Metrics.Baseline)
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}
	candidate, err := json.Marshal(res.Metrics.Candidate)
	if err != nil {
		return fmt.Errorf("marshal candidate: %w", err)
	}
	scaleJSON, err := json.Marshal(res.Scale)
	if err != nil {
		return fmt.Errorf("marshal scale: %w", err)
	}

	var reason *string
	if res.Reason != "" {
		reason = &res.Reason
	}

	query := `
		INSERT INTO validation_results (
			id, proposal_id, approved, improvement, regressions,
			confidence, reason, baseline, candidate, scale,
			created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.New().String(), res.ProposalID, res.Approved,
		improvement, regressions, res.Confidence, reason,
		baseline, candidate, scaleJSON,
		res.Timestamp, res.Timestamp.Add(ttl),
	)
	return err
}

// GetResult returns the most recent unexpired result for a proposal.
func (s *PostgresStore) GetResult(ctx context.Context, proposalID string) (*models.ValidationResult, error) {
	query := `
		SELECT proposal_id, approved, improvement, regressions,
			confidence, reason, baseline, candidate, scale, created_at
		FROM validation_results
		WHERE proposal_id = $1 AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT 1
	`
	res, err := scanResult(s.db.QueryRowContext(ctx, query, proposalID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("validation result for %s: %w", proposalID, ErrNotFound)
	}
	return res, err
}

// ListResults returns the most recent unexpired results.
func (s *PostgresStore) ListResults(ctx context.Context, limit int) ([]*models.ValidationResult, error) {
	query := `
		SELECT proposal_id, approved, improvement, regressions,
			confidence, reason, baseline, candidate, scale, created_at
		FROM validation_results
		WHERE expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*models.ValidationResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (*models.ValidationResult, error) {
	var res models.ValidationResult
	var improvement, regressions, baseline, candidate, scaleJSON []byte
	var reason sql.NullString

	err := row.Scan(
		&res.ProposalID, &res.Approved, &improvement, &regressions,
		&res.Confidence, &reason, &baseline, &candidate, &scaleJSON,
		&res.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(improvement, &res.Improvements); err != nil {
		return nil, fmt.Errorf("unmarshal improvements: %w", err)
	}
	if err := json.Unmarshal(regressions, &res.Regressions); err != nil {
		return nil, fmt.Errorf("unmarshal regressions: %w", err)
	}
	if err := json.Unmarshal(baseline, &res.Metrics.Baseline); err != nil {
		return nil, fmt.Errorf("unmarshal baseline: %w", err)
	}
	if err := json.Unmarshal(candidate, &res.Metrics.Candidate); err != nil {
		return nil, fmt.Errorf("unmarshal candidate: %w", err)
	}
	if err := json.Unmarshal(scaleJSON, &res.Scale); err != nil {
		return nil, fmt.Errorf("unmarshal scale: %w", err)
	}
	if reason.Valid {
		res.Reason = reason.String
	}
	return &res, nil
}

// Publish notifies LISTENing subscribers on the channel. No acknowledgement
// is required or awaited.
func (s *PostgresStore) Publish(ctx context.Context, channel string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, channel, string(payload))
	return err
}

// CacheMetrics upserts a metrics snapshot under a cache key with a TTL.
func (s *PostgresStore) CacheMetrics(ctx context.Context, key string, m models.PerformanceMetrics, ttl time.Duration) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	query := `
		INSERT INTO metrics_cache (cache_key, metrics, collected_at, expires_at)
		VALUES ($1, $2, NOW(), $3)
		ON CONFLICT (cache_key) DO UPDATE SET
			metrics = EXCLUDED.metrics,
			collected_at = EXCLUDED.collected_at,
			expires_at = EXCLUDED.expires_at
	`
	_, err = s.db.ExecContext(ctx, query, key, payload, time.Now().Add(ttl))
	return err
}

// GetCachedMetrics retrieves an unexpired cached snapshot.
func (s *PostgresStore) GetCachedMetrics(ctx context.Context, key string) (models.PerformanceMetrics, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT metrics FROM metrics_cache WHERE cache_key = $1 AND expires_at > NOW()`,
		key,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return models.PerformanceMetrics{}, fmt.Errorf("cached metrics %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return models.PerformanceMetrics{}, err
	}
	var m models.PerformanceMetrics
	if err := json.Unmarshal(payload, &m); err != nil {
		return models.PerformanceMetrics{}, fmt.Errorf("unmarshal metrics: %w", err)
	}
	return m, nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
