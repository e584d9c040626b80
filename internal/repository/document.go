// Package repository persists variant aggregates.
package repository

import (
	"encoding/json"
	"fmt"

	"github.com/variant-curation-server/internal/domain"
)

// encodeAggregate serializes the aggregate document stored alongside the key columns.
func encodeAggregate(aggregate *domain.VariantAggregate) ([]byte, error) {
	data, err := json.Marshal(aggregate)
	if err != nil {
		return nil, fmt.Errorf("encoding aggregate %s: %w", aggregate.Key(), err)
	}
	return data, nil
}

// decodeAggregate restores an aggregate document. The version column is authoritative.
func decodeAggregate(data []byte, version int64) (*domain.VariantAggregate, error) {
	var aggregate domain.VariantAggregate
	if err := json.Unmarshal(data, &aggregate); err != nil {
		return nil, fmt.Errorf("decoding aggregate: %w", err)
	}
	aggregate.Version = version
	if aggregate.CurationEntries == nil {
		aggregate.CurationEntries = []domain.CurationEntry{}
	}
	if aggregate.EvidenceEntries == nil {
		aggregate.EvidenceEntries = []domain.EvidenceEntry{}
	}
	return &aggregate, nil
}
