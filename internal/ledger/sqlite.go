package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/variant-curation-server/internal/domain"
)

// SQLiteLedger implements Ledger on a SQLite database. The connection is usually shared
// with the SQLite aggregate store, so Close leaves it open unless the ledger owns it.
type SQLiteLedger struct {
	db     *sql.DB
	ownsDB bool
}

// NewSQLiteLedger creates the submissions table on db if needed.
func NewSQLiteLedger(db *sql.DB) (*SQLiteLedger, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

// createSchema creates the submissions table and its indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		variant_key TEXT NOT NULL,
		kind TEXT NOT NULL,
		submitter TEXT NOT NULL,
		phenotype TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		payload BLOB,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_submissions_variant ON submissions(variant_key, created_at);
	CREATE INDEX IF NOT EXISTS idx_submissions_submitter ON submissions(submitter, created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Record appends a submission.
func (l *SQLiteLedger) Record(ctx context.Context, submission *domain.Submission) error {
	if err := prepare(submission); err != nil {
		return err
	}

	var payload interface{}
	if len(submission.Payload) > 0 {
		payload = string(submission.Payload)
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO submissions (id, variant_key, kind, submitter, phenotype, summary, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		submission.ID,
		submission.VariantKey,
		string(submission.Kind),
		submission.Submitter,
		submission.Phenotype,
		submission.Summary,
		payload,
		submission.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record submission: %w", err)
	}
	return nil
}

// ListByVariant returns the submissions for a variant, newest first.
func (l *SQLiteLedger) ListByVariant(ctx context.Context, variantKey string, limit, offset int) ([]*domain.Submission, error) {
	limit, offset = page(limit, offset)
	return l.list(ctx, `
		SELECT `+selectColumns+` FROM submissions
		WHERE variant_key = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, variantKey, limit, offset)
}

// ListBySubmitter returns the submissions made by one curator or submitter, newest first.
func (l *SQLiteLedger) ListBySubmitter(ctx context.Context, submitter string, limit, offset int) ([]*domain.Submission, error) {
	limit, offset = page(limit, offset)
	return l.list(ctx, `
		SELECT `+selectColumns+` FROM submissions
		WHERE submitter = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, submitter, limit, offset)
}

// Count returns the total number of recorded submissions.
func (l *SQLiteLedger) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM submissions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return count, nil
}

// ExportJSON writes every submission, oldest first.
func (l *SQLiteLedger) ExportJSON(ctx context.Context, writer io.Writer) error {
	submissions, err := l.list(ctx, `SELECT `+selectColumns+` FROM submissions ORDER BY created_at, id`)
	if err != nil {
		return err
	}
	return exportJSON(writer, submissions)
}

// Close closes the database only when the ledger opened it.
func (l *SQLiteLedger) Close() error {
	if l.ownsDB {
		return l.db.Close()
	}
	return nil
}

func (l *SQLiteLedger) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Submission, error) {
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
