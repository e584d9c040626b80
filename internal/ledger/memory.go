package ledger

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/variant-curation-server/internal/domain"
)

// MemoryLedger keeps submissions in process memory. It backs the memory store driver.
type MemoryLedger struct {
	mu          sync.RWMutex
	submissions []*domain.Submission
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

// Record appends a copy of the submission.
func (l *MemoryLedger) Record(_ context.Context, submission *domain.Submission) error {
	if err := prepare(submission); err != nil {
		return err
	}

	stored := *submission
	l.mu.Lock()
	l.submissions = append(l.submissions, &stored)
	l.mu.Unlock()
	return nil
}

// ListByVariant returns the submissions for a variant, newest first.
func (l *MemoryLedger) ListByVariant(_ context.Context, variantKey string, limit, offset int) ([]*domain.Submission, error) {
	return l.filter(func(s *domain.Submission) bool { return s.VariantKey == variantKey }, limit, offset), nil
}

// ListBySubmitter returns the submissions made by one curator or submitter, newest first.
func (l *MemoryLedger) ListBySubmitter(_ context.Context, submitter string, limit, offset int) ([]*domain.Submission, error) {
	return l.filter(func(s *domain.Submission) bool { return s.Submitter == submitter }, limit, offset), nil
}

// Count returns the total number of recorded submissions.
func (l *MemoryLedger) Count(_ context.Context) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return int64(len(l.submissions)), nil
}

// ExportJSON writes every submission, oldest first.
func (l *MemoryLedger) ExportJSON(_ context.Context, writer io.Writer) error {
	l.mu.RLock()
	all := make([]*domain.Submission, len(l.submissions))
	copy(all, l.submissions)
	l.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return exportJSON(writer, all)
}

// Close is a no-op.
func (l *MemoryLedger) Close() error {
	return nil
}

func (l *MemoryLedger) filter(match func(*domain.Submission) bool, limit, offset int) []*domain.Submission {
	limit, offset = page(limit, offset)

	l.mu.RLock()
	var matched []*domain.Submission
	for i := len(l.submissions) - 1; i >= 0; i-- {
		if match(l.submissions[i]) {
			copied := *l.submissions[i]
			matched = append(matched, &copied)
		}
	}
	l.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	if offset >= len(matched) {
		return []*domain.Submission{}
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end]
}
