package domain

import (
	"context"
)

// Normalizer turns caller-supplied coordinates into the canonical identity of a variant
type Normalizer interface {
	Normalize(raw RawVariant) (CanonicalVariant, error)
}

// Annotator resolves the transcripts a variant overlaps
type Annotator interface {
	Annotate(ctx context.Context, variant CanonicalVariant) (AnnotationResult, error)
}

// AggregateStore persists variant aggregates keyed by their canonical variant.
//
// Find returns ErrNotFound when no aggregate exists. Insert returns ErrAlreadyExists when the
// key is taken. Update is a compare-and-swap on Version: it returns false when the stored
// version no longer matches, and on success it advances aggregate.Version.
type AggregateStore interface {
	Find(ctx context.Context, variant CanonicalVariant) (*VariantAggregate, error)
	Insert(ctx context.Context, aggregate *VariantAggregate) error
	Update(ctx context.Context, aggregate *VariantAggregate) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// SubmissionLedger keeps an append-only record of accepted submissions
type SubmissionLedger interface {
	Record(ctx context.Context, submission *Submission) error
	ListByVariant(ctx context.Context, variantKey string, limit, offset int) ([]*Submission, error)
	ListBySubmitter(ctx context.Context, submitter string, limit, offset int) ([]*Submission, error)
	Close() error
}

// ConfigManager gives components read access to the loaded configuration
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetStoreConfig() *StoreConfig
	GetDatabaseConfig() *DatabaseConfig
	GetAnnotationConfig() *AnnotationConfig
	GetCacheConfig() *CacheConfig
	GetRedisConnectionString() string
	IsProduction() bool
}
