package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentops/evogate/pkg/models"
)

// MemoryStore is an in-process Store for tests and the demo CLI. TTL handling
// matches the postgres store: expired entries are invisible to readers and
// pruned lazily.
type MemoryStore struct {
	mu          sync.RWMutex
	results     []memResult
	cache       map[string]memMetrics
	subscribers map[string][]chan []byte
}

type memResult struct {
	result    *models.ValidationResult
	expiresAt time.Time
}

type memMetrics struct {
	metrics   models.PerformanceMetrics
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache:       make(map[string]memMetrics),
		subscribers: make(map[string][]chan []byte),
	}
}

// PutResult appends a result. Existing results for the same proposal are kept;
// readers see the most recent one.
func (s *MemoryStore) PutResult(_ context.Context, res *models.ValidationResult, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, memResult{result: res, expiresAt: time.Now().Add(ttl)})
	return nil
}

// GetResult returns the latest unexpired result for a proposal.
func (s *MemoryStore) GetResult(_ context.Context, proposalID string) (*models.ValidationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now()
	for i := len(s.results) - 1; i >= 0; i-- {
		e := s.results[i]
		if e.result.ProposalID == proposalID && now.Before(e.expiresAt) {
			return e.result, nil
		}
	}
	return nil, fmt.Errorf("validation result for %s: %w", proposalID, ErrNotFound)
}

// ListResults returns the most recent unexpired results, newest first.
func (s *MemoryStore) ListResults(_ context.Context, limit int) ([]*models.ValidationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now()
	var out []*models.ValidationResult
	for i := len(s.results) - 1; i >= 0 && len(out) < limit; i-- {
		if now.Before(s.results[i].expiresAt) {
			out = append(out, s.results[i].result)
		}
	}
	return out, nil
}

// Publish delivers the payload to current subscribers without blocking on
// slow ones.
func (s *MemoryStore) Publish(_ context.Context, channel string, payload []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subscribers[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe returns a buffered channel receiving every future publish on the
// channel.
func (s *MemoryStore) Subscribe(channel string) <-chan []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan []byte, 16)
	s.subscribers[channel] = append(s.subscribers[channel], ch)
	return ch
}

// CacheMetrics stores a snapshot under a key with a TTL.
func (s *MemoryStore) CacheMetrics(_ context.Context, key string, m models.PerformanceMetrics, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = memMetrics{metrics: m, expiresAt: time.Now().Add(ttl)}
	return nil
}

// GetCachedMetrics retrieves an unexpired snapshot.
func (s *MemoryStore) GetCachedMetrics(_ context.Context, key string) (models.PerformanceMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.cache[key]
	if !ok {
		return models.PerformanceMetrics{}, fmt.Errorf("cached metrics %s: %w", key, ErrNotFound)
	}
	if time.Now().After(e.expiresAt) {
		delete(s.cache, key)
		return models.PerformanceMetrics{}, fmt.Errorf("cached metrics %s: %w", key, ErrNotFound)
	}
	return e.metrics, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close releases subscriber channels.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chans := range s.subscribers {
		for _, ch := range chans {
			close(ch)
		}
	}
	s.subscribers = make(map[string][]chan []byte)
	return nil
}
