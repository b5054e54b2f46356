package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/domain/analysis"
	"nexus/internal/domain/memory"
	"nexus/internal/metrics"
	"nexus/internal/testsupport"
)

func newService(t *testing.T) (*memory.Service, *testsupport.MemoryRepo) {
	t.Helper()
	repo := testsupport.NewMemoryRepo()
	return memory.NewService(repo, testsupport.NewHashEmbedder()), repo
}

func TestService_StoreAndRecallRoundTrip(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	id, err := svc.Store(ctx, memory.StoreRequest{
		Ticker:    "NVDA",
		Situation: "Ticker NVDA with strong momentum and rich valuation near all time highs",
		Decision:  analysis.SignalBuy,
		Rationale: "Momentum and fundamentals aligned.",
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, 1, repo.Len())

	require.NoError(t, svc.UpdateOutcome(ctx, id, memory.Outcome{
		Label:  "win",
		PnLPct: 11.4,
		Lesson: "Momentum entries near highs worked in strong tape.",
	}))

	recs := svc.Similar(ctx, "NVDA strong momentum rich valuation all time highs", 1)
	require.Len(t, recs, 1)
	assert.Equal(t, id, recs[0].ID)
	assert.Equal(t, memory.OutcomeRealized, recs[0].OutcomeStatus)
	require.NotNil(t, recs[0].OutcomePnLPct)
	assert.InDelta(t, 11.4, *recs[0].OutcomePnLPct, 0.001)
	require.NotNil(t, recs[0].OutcomeLesson)
	assert.Contains(t, *recs[0].OutcomeLesson, "Momentum entries")
	assert.Greater(t, recs[0].Similarity, 0.5)
}

func TestService_StoreValidatesInput(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Store(ctx, memory.StoreRequest{Ticker: "NVDA", Decision: analysis.SignalBuy})
	assert.Error(t, err, "missing situation")

	_, err = svc.Store(ctx, memory.StoreRequest{Ticker: "NVDA", Situation: "x", Decision: "MAYBE"})
	assert.Error(t, err, "invalid decision")
}

func TestService_MistakesAndSuccesses(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	outcomes := []struct {
		ticker string
		pnl    float64
	}{
		{"AAA", -12.0},
		{"BBB", -4.5},
		{"CCC", 3.0},
		{"DDD", 18.0},
	}
	for _, o := range outcomes {
		id, err := svc.Store(ctx, memory.StoreRequest{
			Ticker:    o.ticker,
			Situation: "situation for " + o.ticker,
			Decision:  analysis.SignalBuy,
			Rationale: "test",
		})
		require.NoError(t, err)
		require.NoError(t, svc.UpdateOutcome(ctx, id, memory.Outcome{Label: "done", PnLPct: o.pnl}))
	}

	mistakes := svc.Mistakes(ctx, -2.0, 10)
	require.Len(t, mistakes, 2)
	assert.Equal(t, "AAA", mistakes[0].Ticker, "worst first")

	successes := svc.Successes(ctx, 2.0, 10)
	require.Len(t, successes, 2)
	assert.Equal(t, "DDD", successes[0].Ticker, "best first")
}

// failingRepo simulates a memory store outage.
type failingRepo struct{ *testsupport.MemoryRepo }

func (r *failingRepo) SearchSimilar(ctx context.Context, embedding pgvector.Vector, k int) ([]*memory.Record, error) {
	return nil, errors.New("connection refused")
}

func (r *failingRepo) Mistakes(ctx context.Context, maxPnLPct float64, limit int) ([]*memory.Record, error) {
	return nil, errors.New("connection refused")
}

func TestService_QueryFailuresDegradeToEmpty(t *testing.T) {
	repo := &failingRepo{MemoryRepo: testsupport.NewMemoryRepo()}
	svc := memory.NewService(repo, testsupport.NewHashEmbedder())
	ctx := context.Background()

	similarBefore := testutil.ToFloat64(metrics.MemoryQueries.WithLabelValues("similar", "degraded"))
	mistakesBefore := testutil.ToFloat64(metrics.MemoryQueries.WithLabelValues("mistakes", "degraded"))

	assert.Empty(t, svc.Similar(ctx, "anything", 3))
	assert.Empty(t, svc.Mistakes(ctx, -2.0, 3))

	assert.Equal(t, similarBefore+1, testutil.ToFloat64(metrics.MemoryQueries.WithLabelValues("similar", "degraded")))
	assert.Equal(t, mistakesBefore+1, testutil.ToFloat64(metrics.MemoryQueries.WithLabelValues("mistakes", "degraded")))
}

func TestService_QueriesCounted(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	similarBefore := testutil.ToFloat64(metrics.MemoryQueries.WithLabelValues("similar", "ok"))
	successesBefore := testutil.ToFloat64(metrics.MemoryQueries.WithLabelValues("successes", "ok"))

	svc.Similar(ctx, "anything", 3)
	svc.Successes(ctx, 2.0, 3)

	assert.Equal(t, similarBefore+1, testutil.ToFloat64(metrics.MemoryQueries.WithLabelValues("similar", "ok")))
	assert.Equal(t, successesBefore+1, testutil.ToFloat64(metrics.MemoryQueries.WithLabelValues("successes", "ok")))
}

func TestService_UpdateOutcomeUnknownID(t *testing.T) {
	svc, _ := newService(t)
	err := svc.UpdateOutcome(context.Background(), uuid.New(), memory.Outcome{Label: "win", PnLPct: 1})
	assert.Error(t, err)
}

func TestService_Statistics(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	id1, err := svc.Store(ctx, memory.StoreRequest{Ticker: "AAA", Situation: "a", Decision: analysis.SignalBuy, Rationale: "r"})
	require.NoError(t, err)
	_, err = svc.Store(ctx, memory.StoreRequest{Ticker: "BBB", Situation: "b", Decision: analysis.SignalSell, Rationale: "r"})
	require.NoError(t, err)
	require.NoError(t, svc.UpdateOutcome(ctx, id1, memory.Outcome{Label: "win", PnLPct: 5}))

	stats, err := svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Wins)
	assert.InDelta(t, 1.0, stats.WinRate, 0.001)
}
