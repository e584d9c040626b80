// Package ledger keeps an append-only record of accepted submissions: who registered,
// curated or submitted evidence for which variant, and when.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/variant-curation-server/internal/domain"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Ledger is a domain.SubmissionLedger that can also be exported.
type Ledger interface {
	domain.SubmissionLedger

	// Count returns the total number of recorded submissions.
	Count(ctx context.Context) (int64, error)

	// ExportJSON writes every submission, oldest first, as a JSON array.
	ExportJSON(ctx context.Context, writer io.Writer) error
}

// prepare validates a submission and fills its ID and timestamp.
func prepare(submission *domain.Submission) error {
	if submission.VariantKey == "" {
		return domain.NewValidationError("variant_key", "must not be empty", nil)
	}
	if !submission.Kind.IsValid() {
		return domain.NewValidationError("kind", "unknown submission kind", submission.Kind)
	}
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = time.Now().UTC()
	}
	return nil
}

// page clamps pagination arguments.
func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// exportJSON streams submissions to writer as an indented JSON array.
func exportJSON(writer io.Writer, submissions []*domain.Submission) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if submissions == nil {
		submissions = []*domain.Submission{}
	}
	if err := encoder.Encode(submissions); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmission(s scanner) (*domain.Submission, error) {
	sub := &domain.Submission{}
	var kind string
	var payload []byte

	if err := s.Scan(&sub.ID, &sub.VariantKey, &kind, &sub.Submitter, &sub.Phenotype,
		&sub.Summary, &payload, &sub.CreatedAt); err != nil {
		return nil, err
	}

	sub.Kind = domain.SubmissionKind(kind)
	if len(payload) > 0 {
		sub.Payload = json.RawMessage(payload)
	}
	return sub, nil
}
