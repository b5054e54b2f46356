package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"

	"nexus/internal/domain/memory"
	"nexus/pkg/errors"
	"nexus/pkg/logger"
)

// HistoryHandler exposes the analysis memory read-only: past decisions and
// aggregate outcome statistics.
type HistoryHandler struct {
	memory *memory.Service
	log    *logger.Logger
}

// NewHistoryHandler creates the history endpoint handler.
func NewHistoryHandler(mem *memory.Service) *HistoryHandler {
	return &HistoryHandler{
		memory: mem,
		log:    logger.Get().With("component", "api.history"),
	}
}

type historyItem struct {
	ID        string   `json:"id"`
	Ticker    string   `json:"ticker"`
	Decision  string   `json:"decision"`
	Rationale string   `json:"rationale"`
	Outcome   string   `json:"outcome"`
	PnLPct    *float64 `json:"pnl_pct,omitempty"`
	Lesson    string   `json:"lesson,omitempty"`
	CreatedAt string   `json:"created_at"`
	Age       string   `json:"age"`
}

// HandleHistory lists stored analyses, newest first. Optional query
// parameters: ticker, limit.
func (h *HistoryHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if h.memory == nil {
		writeError(w, http.StatusServiceUnavailable, errors.ErrMemoryUnavailable.Error())
		return
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	recs, err := h.memory.Recent(r.Context(), q.Get("ticker"), limit)
	if err != nil {
		h.log.Errorw("history query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}

	items := make([]historyItem, 0, len(recs))
	for _, rec := range recs {
		item := historyItem{
			ID:        rec.ID.String(),
			Ticker:    rec.Ticker,
			Decision:  string(rec.Decision),
			Rationale: rec.Rationale,
			Outcome:   string(rec.OutcomeStatus),
			PnLPct:    rec.OutcomePnLPct,
			CreatedAt: rec.CreatedAt.Format("2006-01-02 15:04:05"),
			Age:       humanize.Time(rec.CreatedAt),
		}
		if rec.OutcomeLesson != nil {
			item.Lesson = *rec.OutcomeLesson
		}
		items = append(items, item)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"count":   len(items),
		"history": items,
	})
}

// HandleStats reports aggregate outcome statistics over the memory corpus.
func (h *HistoryHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if h.memory == nil {
		writeError(w, http.StatusServiceUnavailable, errors.ErrMemoryUnavailable.Error())
		return
	}

	stats, err := h.memory.Statistics(r.Context())
	if err != nil {
		h.log.Errorw("stats query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}
