package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/variant-curation-server/internal/domain"
)

func TestPostgresLedger_RecordError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l, err := NewPostgresLedger(db)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO submissions").WillReturnError(errors.New("connection reset"))

	err = l.Record(context.Background(), submission("1-5-A-G", domain.SubmissionCuration, "bob", 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record submission")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedger_ListByVariant(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l, err := NewPostgresLedger(db)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"id", "variant_key", "kind", "submitter", "phenotype", "summary", "payload", "created_at"}).
		AddRow("s-1", "1-5-A-G", "evidence", "alice", "MONDO:0007254", "evidence", []byte(`{"a":1}`), ledgerStart)

	mock.ExpectQuery("SELECT (.+) FROM submissions").
		WithArgs("1-5-A-G", defaultLimit, 0).
		WillReturnRows(rows)

	subs, err := l.ListByVariant(context.Background(), "1-5-A-G", 0, 0)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, domain.SubmissionEvidence, subs[0].Kind)
	assert.Equal(t, "MONDO:0007254", subs[0].Phenotype)
	assert.NoError(t, mock.ExpectationsWereMet())
}
