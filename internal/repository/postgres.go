package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/variant-curation-server/internal/domain"
)

const uniqueViolation = "23505"

// PostgresStore implements domain.AggregateStore on PostgreSQL. Each aggregate is one row
// holding a JSONB document and a version counter used for compare-and-swap updates.
type PostgresStore struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewPostgresStore creates a new PostgreSQL aggregate store
func NewPostgresStore(db *pgxpool.Pool, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{
		db:  db,
		log: logger,
	}
}

// Find retrieves the aggregate for a canonical variant
func (s *PostgresStore) Find(ctx context.Context, variant domain.CanonicalVariant) (*domain.VariantAggregate, error) {
	query := `
		SELECT document, version
		FROM variant_aggregates
		WHERE variant_key = $1`

	var document []byte
	var version int64

	err := s.db.QueryRow(ctx, query, variant.Key()).Scan(&document, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("variant %s: %w", variant.Key(), domain.ErrNotFound)
		}
		s.log.WithFields(logrus.Fields{
			"variant": variant.Key(),
			"error":   err,
		}).Error("Failed to find variant aggregate")
		return nil, fmt.Errorf("finding variant aggregate: %w", err)
	}

	return decodeAggregate(document, version)
}

// Insert stores a new aggregate and sets its version to 1
func (s *PostgresStore) Insert(ctx context.Context, aggregate *domain.VariantAggregate) error {
	aggregate.Version = 1
	document, err := encodeAggregate(aggregate)
	if err != nil {
		aggregate.Version = 0
		return err
	}

	query := `
		INSERT INTO variant_aggregates (
			variant_key, chromosome, position, reference, alternate,
			document, version, created_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err = s.db.Exec(ctx, query,
		aggregate.Key(),
		aggregate.Variant.Chromosome,
		aggregate.Variant.Position,
		aggregate.Variant.Reference,
		aggregate.Variant.Alternate,
		document,
		aggregate.Version,
		aggregate.CreatedBy,
		aggregate.CreatedAt,
		aggregate.UpdatedAt,
	)
	if err != nil {
		aggregate.Version = 0
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("variant %s: %w", aggregate.Key(), domain.ErrAlreadyExists)
		}
		s.log.WithFields(logrus.Fields{
			"variant": aggregate.Key(),
			"error":   err,
		}).Error("Failed to insert variant aggregate")
		return fmt.Errorf("inserting variant aggregate: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"variant":    aggregate.Key(),
		"created_by": aggregate.CreatedBy,
	}).Info("Variant aggregate created")

	return nil
}

// Update replaces the stored aggregate if its version still matches
func (s *PostgresStore) Update(ctx context.Context, aggregate *domain.VariantAggregate) (bool, error) {
	expected := aggregate.Version
	aggregate.Version = expected + 1
	document, err := encodeAggregate(aggregate)
	aggregate.Version = expected
	if err != nil {
		return false, err
	}

	query := `
		UPDATE variant_aggregates
		SET document = $1, version = version + 1, updated_at = $2
		WHERE variant_key = $3 AND version = $4`

	tag, err := s.db.Exec(ctx, query, document, updatedAt(aggregate), aggregate.Key(), expected)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"variant": aggregate.Key(),
			"version": expected,
			"error":   err,
		}).Error("Failed to update variant aggregate")
		return false, fmt.Errorf("updating variant aggregate: %w", err)
	}

	if tag.RowsAffected() == 0 {
		s.log.WithFields(logrus.Fields{
			"variant": aggregate.Key(),
			"version": expected,
		}).Debug("Variant aggregate version mismatch")
		return false, nil
	}

	aggregate.Version = expected + 1
	return true, nil
}

// Ping checks the database connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close is a no-op: the pool is owned by the caller that created it.
func (s *PostgresStore) Close() error {
	return nil
}

func updatedAt(aggregate *domain.VariantAggregate) time.Time {
	if aggregate.UpdatedAt.IsZero() {
		return time.Now().UTC()
	}
	return aggregate.UpdatedAt
}
