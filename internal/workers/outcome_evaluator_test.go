package workers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/adapters/ai"
	"nexus/internal/domain/analysis"
	"nexus/internal/domain/memory"
	"nexus/internal/testsupport"
	"nexus/internal/tools"
)

func pendingRecord(t *testing.T, repo *testsupport.MemoryRepo, ticker string, decision analysis.Signal, age time.Duration) uuid.UUID {
	t.Helper()

	rec := &memory.Record{
		ID:            uuid.New(),
		Ticker:        ticker,
		Situation:     "situation for " + ticker,
		Decision:      decision,
		Rationale:     "test rationale",
		OutcomeStatus: memory.OutcomePending,
		CreatedAt:     time.Now().Add(-age),
	}
	require.NoError(t, repo.Insert(context.Background(), rec))
	return rec.ID
}

// flatThenUpSeries rises from 100 to 110 across the window so a BUY taken
// 40 days ago realizes +10%.
func flatThenUpSeries(ticker string) *tools.PriceSeries {
	now := time.Now().UTC()
	series := &tools.PriceSeries{Ticker: ticker, AsOf: now}
	for i := 45; i >= 0; i-- {
		price := 100.0
		if i == 0 {
			price = 110.0
		}
		series.Bars = append(series.Bars, tools.Bar{
			Date:  now.AddDate(0, 0, -i),
			Close: price,
		})
	}
	return series
}

func TestOutcomeEvaluator_BackfillsMaturedRecords(t *testing.T) {
	repo := testsupport.NewMemoryRepo()
	svc := memory.NewService(repo, testsupport.NewHashEmbedder())

	buyID := pendingRecord(t, repo, "NVDA", analysis.SignalBuy, 40*24*time.Hour)
	sellID := pendingRecord(t, repo, "AAPL", analysis.SignalSell, 40*24*time.Hour)
	freshID := pendingRecord(t, repo, "MSFT", analysis.SignalBuy, 2*24*time.Hour)

	data := &testsupport.StaticData{Series: map[string]*tools.PriceSeries{
		"NVDA": flatThenUpSeries("NVDA"),
		"AAPL": flatThenUpSeries("AAPL"),
	}}

	w := NewOutcomeEvaluator(svc, data, nil, analysis.HorizonMedium, time.Hour, true)
	require.NoError(t, w.Run(context.Background()))

	buy, err := repo.GetByID(context.Background(), buyID)
	require.NoError(t, err)
	assert.Equal(t, memory.OutcomeRealized, buy.OutcomeStatus)
	require.NotNil(t, buy.OutcomePnLPct)
	assert.InDelta(t, 10.0, *buy.OutcomePnLPct, 0.01)
	require.NotNil(t, buy.OutcomeLesson)
	assert.Contains(t, *buy.OutcomeLesson, "thesis held")

	sell, err := repo.GetByID(context.Background(), sellID)
	require.NoError(t, err)
	require.NotNil(t, sell.OutcomePnLPct)
	assert.InDelta(t, -10.0, *sell.OutcomePnLPct, 0.01, "a SELL loses when the price rises")

	fresh, err := repo.GetByID(context.Background(), freshID)
	require.NoError(t, err)
	assert.Equal(t, memory.OutcomePending, fresh.OutcomeStatus, "records inside the horizon stay pending")
}

func TestOutcomeEvaluator_HoldRealizesZero(t *testing.T) {
	repo := testsupport.NewMemoryRepo()
	svc := memory.NewService(repo, testsupport.NewHashEmbedder())

	holdID := pendingRecord(t, repo, "NVDA", analysis.SignalHold, 40*24*time.Hour)

	// No price data needed for a HOLD.
	w := NewOutcomeEvaluator(svc, &testsupport.StaticData{}, nil, analysis.HorizonMedium, time.Hour, true)
	require.NoError(t, w.Run(context.Background()))

	rec, err := repo.GetByID(context.Background(), holdID)
	require.NoError(t, err)
	assert.Equal(t, memory.OutcomeRealized, rec.OutcomeStatus)
	require.NotNil(t, rec.OutcomePnLPct)
	assert.Zero(t, *rec.OutcomePnLPct)
	require.NotNil(t, rec.OutcomeLabel)
	assert.Equal(t, "no position taken", *rec.OutcomeLabel)
}

func TestOutcomeEvaluator_MissingPricesSkipsRecord(t *testing.T) {
	repo := testsupport.NewMemoryRepo()
	svc := memory.NewService(repo, testsupport.NewHashEmbedder())

	id := pendingRecord(t, repo, "ZZZZ", analysis.SignalBuy, 40*24*time.Hour)

	w := NewOutcomeEvaluator(svc, &testsupport.StaticData{}, nil, analysis.HorizonMedium, time.Hour, true)
	require.NoError(t, w.Run(context.Background()), "per-record failures do not fail the iteration")

	rec, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, memory.OutcomePending, rec.OutcomeStatus, "retried next iteration")
}

func TestOutcomeEvaluator_ModelWrittenLesson(t *testing.T) {
	repo := testsupport.NewMemoryRepo()
	svc := memory.NewService(repo, testsupport.NewHashEmbedder())

	id := pendingRecord(t, repo, "NVDA", analysis.SignalBuy, 40*24*time.Hour)

	chat := testsupport.NewScriptedChat()
	chat.Route("You are a trading coach", "Momentum entries worked; keep sizing disciplined.")
	invoker := ai.NewInvoker(chat, ai.InvokerConfig{Model: "test-model"}, nil)

	data := &testsupport.StaticData{Series: map[string]*tools.PriceSeries{
		"NVDA": flatThenUpSeries("NVDA"),
	}}

	w := NewOutcomeEvaluator(svc, data, invoker, analysis.HorizonMedium, time.Hour, true)
	require.NoError(t, w.Run(context.Background()))

	rec, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, rec.OutcomeLesson)
	assert.Equal(t, "Momentum entries worked; keep sizing disciplined.", *rec.OutcomeLesson)
}
