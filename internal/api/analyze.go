package api

import (
	"encoding/json"
	"net/http"
	"time"

	"nexus/internal/domain/analysis"
	"nexus/internal/engine"
	"nexus/pkg/logger"
)

// AnalyzeHandler streams analysis runs over Server-Sent Events. GET carries
// the request in query parameters, POST as a JSON body; both produce the
// same event stream.
type AnalyzeHandler struct {
	orch *engine.Orchestrator
	log  *logger.Logger
}

// NewAnalyzeHandler creates the analyze endpoint handler.
func NewAnalyzeHandler(orch *engine.Orchestrator) *AnalyzeHandler {
	return &AnalyzeHandler{
		orch: orch,
		log:  logger.Get().With("component", "api.analyze"),
	}
}

type analyzeRequest struct {
	Ticker string              `json:"ticker"`
	Date   string              `json:"date,omitempty"` // YYYY-MM-DD, defaults to today
	Config *analysis.RunConfig `json:"config,omitempty"`
}

func (h *AnalyzeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	enc := json.NewEncoder(w)
	sink := engine.Sink(func(e engine.Event) {
		if _, werr := w.Write([]byte("data: ")); werr != nil {
			return
		}
		if werr := enc.Encode(e); werr != nil {
			h.log.Warnw("event encode failed", "error", werr)
			return
		}
		// Encode already wrote one trailing newline.
		_, _ = w.Write([]byte("\n"))
		flusher.Flush()
	})

	// Run errors are already streamed as terminal error events.
	if _, err := h.orch.Run(r.Context(), req, sink); err != nil {
		h.log.Warnw("analysis request failed", "ticker", req.Ticker, "error", err)
	}
}

func (h *AnalyzeHandler) parseRequest(r *http.Request) (engine.RunRequest, error) {
	var body analyzeRequest

	switch r.Method {
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return engine.RunRequest{}, err
		}
	default:
		q := r.URL.Query()
		body.Ticker = q.Get("ticker")
		body.Date = q.Get("date")
	}

	req := engine.RunRequest{Ticker: body.Ticker, Config: body.Config}
	if body.Date != "" {
		asOf, err := time.Parse("2006-01-02", body.Date)
		if err != nil {
			return engine.RunRequest{}, err
		}
		req.AsOf = asOf
	}
	return req, nil
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
