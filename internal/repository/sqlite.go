package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/variant-curation-server/internal/domain"
)

// SQLiteStore implements domain.AggregateStore using SQLite. It backs the standalone MCP
// server, where no PostgreSQL instance is available.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	log    *logrus.Logger
}

// NewSQLiteStore opens (or creates) the database file and its schema.
func NewSQLiteStore(dbPath string, logger *logrus.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serializes writers so compare-and-swap never sees SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.WithField("path", dbPath).Info("SQLite aggregate store opened")

	return &SQLiteStore{db: db, dbPath: dbPath, log: logger}, nil
}

// newSQLiteStoreWithDB wraps an already prepared handle.
func newSQLiteStoreWithDB(db *sql.DB, logger *logrus.Logger) *SQLiteStore {
	return &SQLiteStore{db: db, log: logger}
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS variant_aggregates (
		variant_key TEXT PRIMARY KEY,
		chromosome TEXT NOT NULL,
		position INTEGER NOT NULL,
		reference TEXT NOT NULL,
		alternate TEXT NOT NULL,
		document TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_by TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_variant_aggregates_locus ON variant_aggregates(chromosome, position);
	`

	_, err := db.Exec(schema)
	return err
}

// DB exposes the handle so the submission ledger can share the file.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Find retrieves the aggregate for a canonical variant
func (s *SQLiteStore) Find(ctx context.Context, variant domain.CanonicalVariant) (*domain.VariantAggregate, error) {
	var document string
	var version int64

	err := s.db.QueryRowContext(ctx,
		"SELECT document, version FROM variant_aggregates WHERE variant_key = ?",
		variant.Key(),
	).Scan(&document, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("variant %s: %w", variant.Key(), domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find variant aggregate: %w", err)
	}

	return decodeAggregate([]byte(document), version)
}

// Insert stores a new aggregate and sets its version to 1
func (s *SQLiteStore) Insert(ctx context.Context, aggregate *domain.VariantAggregate) error {
	aggregate.Version = 1
	document, err := encodeAggregate(aggregate)
	if err != nil {
		aggregate.Version = 0
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO variant_aggregates (
			variant_key, chromosome, position, reference, alternate,
			document, version, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(variant_key) DO NOTHING
	`,
		aggregate.Key(),
		aggregate.Variant.Chromosome,
		aggregate.Variant.Position,
		aggregate.Variant.Reference,
		aggregate.Variant.Alternate,
		string(document),
		aggregate.Version,
		aggregate.CreatedBy,
		aggregate.CreatedAt,
		aggregate.UpdatedAt,
	)
	if err != nil {
		aggregate.Version = 0
		return fmt.Errorf("failed to insert variant aggregate: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		aggregate.Version = 0
		return fmt.Errorf("failed to read insert result: %w", err)
	}
	if rows == 0 {
		aggregate.Version = 0
		return fmt.Errorf("variant %s: %w", aggregate.Key(), domain.ErrAlreadyExists)
	}

	s.log.WithFields(logrus.Fields{
		"variant":    aggregate.Key(),
		"created_by": aggregate.CreatedBy,
	}).Info("Variant aggregate created")

	return nil
}

// Update replaces the stored aggregate if its version still matches
func (s *SQLiteStore) Update(ctx context.Context, aggregate *domain.VariantAggregate) (bool, error) {
	expected := aggregate.Version
	aggregate.Version = expected + 1
	document, err := encodeAggregate(aggregate)
	aggregate.Version = expected
	if err != nil {
		return false, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE variant_aggregates
		SET document = ?, version = version + 1, updated_at = ?
		WHERE variant_key = ? AND version = ?
	`, string(document), updatedAt(aggregate), aggregate.Key(), expected)
	if err != nil {
		return false, fmt.Errorf("failed to update variant aggregate: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	aggregate.Version = expected + 1
	return true, nil
}

// Ping checks the database connection
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
