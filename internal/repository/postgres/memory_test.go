package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/domain/analysis"
	"nexus/internal/domain/memory"
	pgrepo "nexus/internal/repository/postgres"
	"nexus/internal/testsupport"
	"nexus/pkg/errors"
)

// These tests need a Postgres with the pgvector extension and the
// analysis_memories migration applied; they skip otherwise.

func setupRepo(t *testing.T) (*pgrepo.MemoryRepository, func(ids ...uuid.UUID)) {
	t.Helper()

	cfgs := testsupport.LoadDatabaseConfigsFromEnv(t)
	helper := testsupport.NewPostgresTestHelper(t, cfgs.Postgres)
	repo := pgrepo.NewMemoryRepository(helper.DB())

	cleanup := func(ids ...uuid.UUID) {
		for _, id := range ids {
			_, _ = helper.DB().Exec(`DELETE FROM analysis_memories WHERE id = $1`, id)
		}
	}
	return repo, cleanup
}

func testRecord(ticker string) *memory.Record {
	vec := make([]float32, 1536)
	vec[0] = 1
	return &memory.Record{
		ID:                  uuid.New(),
		Ticker:              ticker,
		Situation:           "integration test situation",
		Decision:            analysis.SignalBuy,
		Rationale:           "test",
		Embedding:           pgvector.NewVector(vec),
		EmbeddingModel:      "test",
		EmbeddingDimensions: 1536,
		OutcomeStatus:       memory.OutcomePending,
		CreatedAt:           time.Now().UTC(),
	}
}

func TestMemoryRepository_InsertAndGet(t *testing.T) {
	repo, cleanup := setupRepo(t)
	ctx := context.Background()

	rec := testRecord("NVDA")
	require.NoError(t, repo.Insert(ctx, rec))
	t.Cleanup(func() { cleanup(rec.ID) })

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Ticker, got.Ticker)
	assert.Equal(t, memory.OutcomePending, got.OutcomeStatus)
}

func TestMemoryRepository_SearchSimilarOrdersByDistance(t *testing.T) {
	repo, cleanup := setupRepo(t)
	ctx := context.Background()

	near := testRecord("NEAR")
	far := testRecord("FAR")
	farVec := make([]float32, 1536)
	farVec[1] = 1
	far.Embedding = pgvector.NewVector(farVec)

	require.NoError(t, repo.Insert(ctx, near))
	require.NoError(t, repo.Insert(ctx, far))
	t.Cleanup(func() { cleanup(near.ID, far.ID) })

	recs, err := repo.SearchSimilar(ctx, near.Embedding, 2)
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	assert.Equal(t, near.ID, recs[0].ID)
	assert.Greater(t, recs[0].Similarity, 0.99)
}

func TestMemoryRepository_UpdateOutcome(t *testing.T) {
	repo, cleanup := setupRepo(t)
	ctx := context.Background()

	rec := testRecord("NVDA")
	require.NoError(t, repo.Insert(ctx, rec))
	t.Cleanup(func() { cleanup(rec.ID) })

	outcome := memory.Outcome{Label: "horizon reached", PnLPct: 4.2, Lesson: "held up"}
	require.NoError(t, repo.UpdateOutcome(ctx, rec.ID, outcome))

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, memory.OutcomeRealized, got.OutcomeStatus)
	require.NotNil(t, got.OutcomePnLPct)
	assert.InDelta(t, 4.2, *got.OutcomePnLPct, 0.001)

	err = repo.UpdateOutcome(ctx, uuid.New(), outcome)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
