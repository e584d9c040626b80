package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"

	"github.com/variant-curation-server/internal/domain"
)

const selectColumns = "id, variant_key, kind, submitter, phenotype, summary, payload, created_at"

// PostgresLedger implements Ledger using PostgreSQL through database/sql.
// It expects the submissions table to exist (created via migrations).
type PostgresLedger struct {
	db *sql.DB
}

// NewPostgresLedger wraps an open connection.
func NewPostgresLedger(db *sql.DB) (*PostgresLedger, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &PostgresLedger{db: db}, nil
}

// NewPostgresLedgerFromDSN opens a connection and verifies it.
func NewPostgresLedgerFromDSN(ctx context.Context, dsn string) (*PostgresLedger, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresLedger{db: db}, nil
}

// Record appends a submission.
func (l *PostgresLedger) Record(ctx context.Context, submission *domain.Submission) error {
	if err := prepare(submission); err != nil {
		return err
	}

	var payload interface{}
	if len(submission.Payload) > 0 {
		payload = string(submission.Payload)
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO submissions (id, variant_key, kind, submitter, phenotype, summary, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		submission.ID,
		submission.VariantKey,
		string(submission.Kind),
		submission.Submitter,
		submission.Phenotype,
		submission.Summary,
		payload,
		submission.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record submission: %w", err)
	}
	return nil
}

// ListByVariant returns the submissions for a variant, newest first.
func (l *PostgresLedger) ListByVariant(ctx context.Context, variantKey string, limit, offset int) ([]*domain.Submission, error) {
	limit, offset = page(limit, offset)
	return l.list(ctx, `
		SELECT `+selectColumns+` FROM submissions
		WHERE variant_key = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, variantKey, limit, offset)
}

// ListBySubmitter returns the submissions made by one curator or submitter, newest first.
func (l *PostgresLedger) ListBySubmitter(ctx context.Context, submitter string, limit, offset int) ([]*domain.Submission, error) {
	limit, offset = page(limit, offset)
	return l.list(ctx, `
		SELECT `+selectColumns+` FROM submissions
		WHERE submitter = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, submitter, limit, offset)
}

// Count returns the total number of recorded submissions.
func (l *PostgresLedger) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM submissions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return count, nil
}

// ExportJSON writes every submission, oldest first.
func (l *PostgresLedger) ExportJSON(ctx context.Context, writer io.Writer) error {
	submissions, err := l.list(ctx, `SELECT `+selectColumns+` FROM submissions ORDER BY created_at, id`)
	if err != nil {
		return err
	}
	return exportJSON(writer, submissions)
}

// Close closes the database connection.
func (l *PostgresLedger) Close() error {
	return l.db.Close()
}

func (l *PostgresLedger) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Submission, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var submissions []*domain.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		submissions = append(submissions, sub)
	}
	return submissions, rows.Err()
}
