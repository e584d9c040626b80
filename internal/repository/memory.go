package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/variant-curation-server/internal/domain"
)

type memoryRecord struct {
	document []byte
	version  int64
}

// MemoryStore implements domain.AggregateStore in process. Aggregates are kept as encoded
// documents so callers never share state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]memoryRecord)}
}

// Find retrieves the aggregate for a canonical variant
func (s *MemoryStore) Find(ctx context.Context, variant domain.CanonicalVariant) (*domain.VariantAggregate, error) {
	s.mu.RLock()
	record, ok := s.records[variant.Key()]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("variant %s: %w", variant.Key(), domain.ErrNotFound)
	}
	return decodeAggregate(record.document, record.version)
}

// Insert stores a new aggregate and sets its version to 1
func (s *MemoryStore) Insert(ctx context.Context, aggregate *domain.VariantAggregate) error {
	key := aggregate.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[key]; exists {
		return fmt.Errorf("variant %s: %w", key, domain.ErrAlreadyExists)
	}

	aggregate.Version = 1
	document, err := encodeAggregate(aggregate)
	if err != nil {
		aggregate.Version = 0
		return err
	}

	s.records[key] = memoryRecord{document: document, version: 1}
	return nil
}

// Update replaces the stored aggregate if its version still matches
func (s *MemoryStore) Update(ctx context.Context, aggregate *domain.VariantAggregate) (bool, error) {
	key := aggregate.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[key]
	if !ok || record.version != aggregate.Version {
		return false, nil
	}

	next := aggregate.Version + 1
	aggregate.Version = next
	document, err := encodeAggregate(aggregate)
	if err != nil {
		aggregate.Version = next - 1
		return false, err
	}

	s.records[key] = memoryRecord{document: document, version: next}
	return true, nil
}

// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close releases nothing
func (s *MemoryStore) Close() error {
	return nil
}

// Len returns the number of stored aggregates.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
