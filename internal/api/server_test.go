package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/adapters/ai"
	"nexus/internal/agents"
	"nexus/internal/cache"
	"nexus/internal/domain/analysis"
	"nexus/internal/domain/memory"
	"nexus/internal/engine"
	"nexus/internal/testsupport"
	"nexus/internal/tools"
)

var testAsOf = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func scriptedOrchestrator(t *testing.T, finalAction string, mem *memory.Service) *engine.Orchestrator {
	t.Helper()

	chat := testsupport.NewScriptedChat()
	chat.Route("Conduct a fundamental analysis", "Fundamentally strong.")
	chat.Route("Perform technical analysis", "Bullish setup.")
	chat.Route("Analyze recent news coverage", "Positive coverage.")
	chat.Route("Analyze social media sentiment", "Bullish chatter.")
	chat.Route("You are the Bull Researcher", "Bull Researcher: growth justifies buying.")
	chat.Route("You are the Bear Researcher", "Bear Researcher: valuation is stretched.")
	chat.Route("You are the Research Manager", "Recommendation: "+finalAction+".")
	chat.Route("Create an actionable trading strategy",
		`{"action": "`+finalAction+`", "entry_price": 182.5, "take_profit": 205.0, "stop_loss": 170.0, "position_size_pct": 10, "rationale": "Momentum."}`)
	chat.Route("trading signal classifier", finalAction)

	invoker := ai.NewInvoker(chat, ai.InvokerConfig{Model: "test-model"}, nil)
	data := testsupport.RichStaticData("NVDA", testAsOf)
	toolkit := tools.NewToolkit(data, data, data, data, cache.NewMemoryCache(), tools.DefaultToolkitConfig())
	extractor := agents.NewSignalExtractor(invoker)

	var reader agents.MemoryReader
	if mem != nil {
		reader = mem
	}

	eng := engine.NewEngine(
		agents.NewAnalystTeam(invoker, toolkit),
		agents.NewResearchTeam(invoker, reader),
		agents.NewTrader(invoker, extractor),
		agents.NewRiskTeam(invoker, extractor),
		extractor,
	)
	return engine.NewOrchestrator(eng, mem, analysis.RunConfig{MaxDebateRounds: 1, SocialOn: true})
}

// sseEvents parses "data: {...}" frames from an SSE body.
func sseEvents(t *testing.T, body string) []engine.Event {
	t.Helper()

	var events []engine.Event
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var e engine.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &e))
		events = append(events, e)
	}
	return events
}

func TestAnalyzeHandler_StreamsRunEvents(t *testing.T) {
	h := NewAnalyzeHandler(scriptedOrchestrator(t, "BUY", nil))

	req := httptest.NewRequest(http.MethodGet, "/api/analyze?ticker=nvda&date=2024-03-15", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := sseEvents(t, rec.Body.String())
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	require.Equal(t, engine.EventComplete, last.Type)
	require.NotNil(t, last.Result)
	assert.Equal(t, "NVDA", last.Result.Ticker)
	assert.Equal(t, analysis.SignalBuy, last.Result.Strategy.Action)

	assert.Equal(t, engine.EventProcessing, events[0].Type)
	assert.NotZero(t, events[0].Total)
}

func TestAnalyzeHandler_AcceptsPostBody(t *testing.T) {
	h := NewAnalyzeHandler(scriptedOrchestrator(t, "HOLD", nil))

	body := strings.NewReader(`{"ticker": "NVDA", "date": "2024-03-15", "config": {"max_debate_rounds": 1}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	events := sseEvents(t, rec.Body.String())
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, engine.EventComplete, last.Type)
	assert.Equal(t, analysis.SignalHold, last.Result.Strategy.Action)
}

func TestAnalyzeHandler_RejectsBadDate(t *testing.T) {
	h := NewAnalyzeHandler(scriptedOrchestrator(t, "BUY", nil))

	req := httptest.NewRequest(http.MethodGet, "/api/analyze?ticker=NVDA&date=not-a-date", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeHandler_StreamsErrorEvent(t *testing.T) {
	h := NewAnalyzeHandler(scriptedOrchestrator(t, "BUY", nil))

	req := httptest.NewRequest(http.MethodGet, "/api/analyze?ticker=", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	// Validation failures surface on the stream, not as HTTP errors.
	assert.Equal(t, http.StatusOK, rec.Code)
	events := sseEvents(t, rec.Body.String())
	require.Len(t, events, 1)
	assert.Equal(t, engine.EventError, events[0].Type)
	assert.NotEmpty(t, events[0].Message)
}

func seededMemory(t *testing.T) *memory.Service {
	t.Helper()

	svc := memory.NewService(testsupport.NewMemoryRepo(), testsupport.NewHashEmbedder())
	ctx := context.Background()

	id, err := svc.Store(ctx, memory.StoreRequest{
		Ticker:    "NVDA",
		Situation: "strong momentum into earnings",
		Decision:  analysis.SignalBuy,
		Rationale: "momentum",
	})
	require.NoError(t, err)
	require.NoError(t, svc.UpdateOutcome(ctx, id, memory.Outcome{Label: "win", PnLPct: 8.2, Lesson: "ride momentum"}))

	_, err = svc.Store(ctx, memory.StoreRequest{
		Ticker:    "AAPL",
		Situation: "range bound, weak volume",
		Decision:  analysis.SignalHold,
		Rationale: "no edge",
	})
	require.NoError(t, err)
	return svc
}

func TestHistoryHandler_ListsRecentDecisions(t *testing.T) {
	h := NewHistoryHandler(seededMemory(t))

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	h.HandleHistory(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Count   int           `json:"count"`
		History []historyItem `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)

	// Newest first.
	assert.Equal(t, "AAPL", resp.History[0].Ticker)
	assert.Equal(t, "pending", resp.History[0].Outcome)
	assert.Equal(t, "NVDA", resp.History[1].Ticker)
	assert.Equal(t, "realized", resp.History[1].Outcome)
	require.NotNil(t, resp.History[1].PnLPct)
	assert.InDelta(t, 8.2, *resp.History[1].PnLPct, 0.001)
	assert.NotEmpty(t, resp.History[1].Age)
}

func TestHistoryHandler_FiltersByTicker(t *testing.T) {
	h := NewHistoryHandler(seededMemory(t))

	req := httptest.NewRequest(http.MethodGet, "/api/history?ticker=NVDA", nil)
	rec := httptest.NewRecorder()
	h.HandleHistory(rec, req)

	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
}

func TestHistoryHandler_Stats(t *testing.T) {
	h := NewHistoryHandler(seededMemory(t))

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	h.HandleStats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var stats memory.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Wins)
}

func TestHistoryHandler_NoStoreConfigured(t *testing.T) {
	h := NewHistoryHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	h.HandleHistory(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
