package repository

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/variant-curation-server/internal/database/dbtest"
	"github.com/variant-curation-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

var apoe = domain.CanonicalVariant{Chromosome: "19", Position: 44908684, Reference: "T", Alternate: "C"}

func newAggregate(t *testing.T) *domain.VariantAggregate {
	t.Helper()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	agg, err := domain.NewVariantAggregate(apoe, "curator-1", now)
	require.NoError(t, err)
	agg.ApplyAnnotation(domain.AnnotationResult{Transcripts: []string{"ENST00000252486"}}, nil, now)
	return agg
}

// runStoreContract exercises the behavior every AggregateStore must share.
func runStoreContract(t *testing.T, store domain.AggregateStore) {
	ctx := context.Background()

	t.Run("Find_Missing", func(t *testing.T) {
		_, err := store.Find(ctx, domain.CanonicalVariant{Chromosome: "1", Position: 1, Reference: "A", Alternate: "G"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Insert_Find_Update", func(t *testing.T) {
		agg := newAggregate(t)
		require.NoError(t, store.Insert(ctx, agg))
		assert.Equal(t, int64(1), agg.Version)

		dup := newAggregate(t)
		err := store.Insert(ctx, dup)
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)

		loaded, err := store.Find(ctx, apoe)
		require.NoError(t, err)
		assert.Equal(t, int64(1), loaded.Version)
		assert.Equal(t, []string{"ENST00000252486"}, loaded.Transcripts())
		assert.Equal(t, "curator-1", loaded.CreatedBy)

		// the reloaded transcript set still drives validation
		_, err = loaded.AddCuration(domain.CurationSubmission{
			Curator:            "curator-1",
			HeritablePhenotype: domain.HeritablePhenotype{Phenotype: "HPO:000001"},
			Transcript:         "ENST99999999999",
			Classification:     domain.BenignVariant,
		}, time.Now())
		assert.ErrorIs(t, err, domain.ErrTranscriptNotFound)

		_, err = loaded.AddCuration(domain.CurationSubmission{
			Curator:            "curator-1",
			HeritablePhenotype: domain.HeritablePhenotype{Phenotype: "HPO:000001"},
			Classification:     domain.BenignVariant,
		}, time.Now())
		require.NoError(t, err)

		ok, err := store.Update(ctx, loaded)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(2), loaded.Version)

		reloaded, err := store.Find(ctx, apoe)
		require.NoError(t, err)
		assert.Equal(t, int64(2), reloaded.Version)
		require.Len(t, reloaded.CurationEntries, 1)
		assert.Equal(t, domain.Consensus, reloaded.CurationEntries[0].Curation.ConsistencyStatus)
		require.Len(t, reloaded.CurationEntries[0].History, 1)
		assert.Nil(t, reloaded.CurationEntries[0].History[0].Previous)
	})

	t.Run("Update_StaleVersion", func(t *testing.T) {
		first, err := store.Find(ctx, apoe)
		require.NoError(t, err)
		second, err := store.Find(ctx, apoe)
		require.NoError(t, err)

		ok, err := store.Update(ctx, first)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Update(ctx, second)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, first.Version-1, second.Version)
	})

	t.Run("Update_ConcurrentWritersOneWins", func(t *testing.T) {
		var wins int32
		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			agg, err := store.Find(ctx, apoe)
			require.NoError(t, err)
			wg.Add(1)
			go func(agg *domain.VariantAggregate) {
				defer wg.Done()
				ok, err := store.Update(ctx, agg)
				assert.NoError(t, err)
				if ok {
					atomic.AddInt32(&wins, 1)
				}
			}(agg)
		}
		wg.Wait()
		assert.Equal(t, int32(1), atomic.LoadInt32(&wins))
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	runStoreContract(t, store)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	agg := newAggregate(t)
	require.NoError(t, store.Insert(ctx, agg))

	loaded, err := store.Find(ctx, apoe)
	require.NoError(t, err)
	loaded.CreatedBy = "someone-else"

	again, err := store.Find(ctx, apoe)
	require.NoError(t, err)
	assert.Equal(t, "curator-1", again.CreatedBy)
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "curation.db"), testLogger())
	require.NoError(t, err)
	defer store.Close()

	runStoreContract(t, store)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "curation.db")

	store, err := NewSQLiteStore(path, testLogger())
	require.NoError(t, err)
	require.NoError(t, store.Insert(ctx, newAggregate(t)))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path, testLogger())
	require.NoError(t, err)
	defer reopened.Close()

	agg, err := reopened.Find(ctx, apoe)
	require.NoError(t, err)
	assert.Equal(t, apoe, agg.Variant)
}

func TestPostgresStore(t *testing.T) {
	pg := dbtest.StartPostgres(t)

	store := NewPostgresStore(pg.DB.Pool, testLogger())
	defer store.Close()

	runStoreContract(t, store)
}
