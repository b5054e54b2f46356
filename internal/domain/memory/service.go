package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"nexus/internal/adapters/embeddings"
	"nexus/internal/domain/analysis"
	"nexus/internal/metrics"
	"nexus/pkg/errors"
	"nexus/pkg/logger"
)

// Service provides in-context learning over past analyses. Query failures
// degrade to empty results: the debate proceeds without historical context
// rather than aborting a run over an unavailable memory store.
type Service struct {
	repo     Repository
	embedder embeddings.Provider
	log      *logger.Logger
}

// NewService constructs a memory service.
func NewService(repo Repository, embedder embeddings.Provider) *Service {
	return &Service{
		repo:     repo,
		embedder: embedder,
		log:      logger.Get().With("component", "memory"),
	}
}

// StoreRequest carries everything needed to persist a completed analysis.
type StoreRequest struct {
	Ticker    string
	Situation string
	Decision  analysis.Signal
	Rationale string
}

// Store appends a record with a pending outcome and returns its id.
// Unlike queries, a store failure is returned to the caller: the
// orchestrator decides whether losing the record is acceptable.
func (s *Service) Store(ctx context.Context, req StoreRequest) (uuid.UUID, error) {
	if req.Situation == "" || req.Ticker == "" {
		return uuid.Nil, errors.Wrap(errors.ErrInvalidInput, "situation and ticker are required")
	}
	if !req.Decision.Valid() {
		return uuid.Nil, errors.Wrapf(errors.ErrInvalidInput, "invalid decision %q", req.Decision)
	}

	vec, err := s.embedder.GenerateEmbedding(ctx, req.Situation)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "embed situation")
	}

	rec := &Record{
		ID:                  uuid.New(),
		Ticker:              req.Ticker,
		Situation:           req.Situation,
		Decision:            req.Decision,
		Rationale:           req.Rationale,
		Embedding:           pgvector.NewVector(vec),
		EmbeddingModel:      s.embedder.Name(),
		EmbeddingDimensions: s.embedder.Dimensions(),
		OutcomeStatus:       OutcomePending,
		CreatedAt:           time.Now(),
	}

	if err := s.repo.Insert(ctx, rec); err != nil {
		return uuid.Nil, errors.Wrap(err, "insert memory record")
	}

	s.log.Infow("Stored analysis memory", "id", rec.ID, "ticker", rec.Ticker, "decision", rec.Decision)
	return rec.ID, nil
}

// Similar returns up to k past situations nearest to the query text, most
// similar first. Any failure is logged and swallowed: callers always get a
// usable (possibly empty) slice.
func (s *Service) Similar(ctx context.Context, query string, k int) []*Record {
	if query == "" || k <= 0 {
		return nil
	}

	vec, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		metrics.MemoryQueries.WithLabelValues("similar", "degraded").Inc()
		s.log.Warnw("Memory unavailable: embedding failed", "err", err)
		return nil
	}

	recs, err := s.repo.SearchSimilar(ctx, pgvector.NewVector(vec), k)
	if err != nil {
		metrics.MemoryQueries.WithLabelValues("similar", "degraded").Inc()
		s.log.Warnw("Memory unavailable: similarity search failed", "err", err)
		return nil
	}
	metrics.MemoryQueries.WithLabelValues("similar", "ok").Inc()
	return recs
}

// UpdateOutcome back-fills the realized outcome of a stored record.
func (s *Service) UpdateOutcome(ctx context.Context, id uuid.UUID, outcome Outcome) error {
	if id == uuid.Nil {
		return errors.ErrInvalidInput
	}
	if err := s.repo.UpdateOutcome(ctx, id, outcome); err != nil {
		return errors.Wrap(err, "update outcome")
	}
	s.log.Infow("Updated memory outcome", "id", id, "pnl_pct", outcome.PnLPct)
	return nil
}

// Mistakes returns past losing decisions (pnl <= maxLossPct, worst first),
// used to bias debate prompts toward specific lessons. Degrades to empty.
func (s *Service) Mistakes(ctx context.Context, maxLossPct float64, limit int) []*Record {
	recs, err := s.repo.Mistakes(ctx, maxLossPct, limit)
	if err != nil {
		metrics.MemoryQueries.WithLabelValues("mistakes", "degraded").Inc()
		s.log.Warnw("Memory unavailable: mistakes query failed", "err", err)
		return nil
	}
	metrics.MemoryQueries.WithLabelValues("mistakes", "ok").Inc()
	return recs
}

// Successes returns past winning decisions (pnl >= minGainPct, best first).
// Degrades to empty.
func (s *Service) Successes(ctx context.Context, minGainPct float64, limit int) []*Record {
	recs, err := s.repo.Successes(ctx, minGainPct, limit)
	if err != nil {
		metrics.MemoryQueries.WithLabelValues("successes", "degraded").Inc()
		s.log.Warnw("Memory unavailable: successes query failed", "err", err)
		return nil
	}
	metrics.MemoryQueries.WithLabelValues("successes", "ok").Inc()
	return recs
}

// Recent lists stored analyses newest first for the history surface.
func (s *Service) Recent(ctx context.Context, ticker string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 20
	}
	recs, err := s.repo.Recent(ctx, ticker, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list recent memories")
	}
	return recs, nil
}

// Statistics summarizes the corpus (win rate, average pnl, pending counts).
func (s *Service) Statistics(ctx context.Context) (*Stats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "memory stats")
	}
	return stats, nil
}
