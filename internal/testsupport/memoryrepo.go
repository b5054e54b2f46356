package testsupport

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"nexus/internal/domain/memory"
	"nexus/pkg/errors"
)

// MemoryRepo is an in-memory memory.Repository with brute-force cosine
// search, a stand-in for the pgvector-backed repository in tests.
type MemoryRepo struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*memory.Record
	order   []uuid.UUID
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{records: make(map[uuid.UUID]*memory.Record)}
}

func (r *MemoryRepo) Insert(ctx context.Context, rec *memory.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *rec
	r.records[rec.ID] = &cp
	r.order = append(r.order, rec.ID)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*memory.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "memory record %s", id)
	}
	cp := *rec
	return &cp, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func (r *MemoryRepo) SearchSimilar(ctx context.Context, embedding pgvector.Vector, k int) ([]*memory.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := embedding.Slice()
	out := make([]*memory.Record, 0, len(r.records))
	for _, rec := range r.records {
		cp := *rec
		cp.Similarity = cosine(query, rec.Embedding.Slice())
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (r *MemoryRepo) UpdateOutcome(ctx context.Context, id uuid.UUID, outcome memory.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "memory record %s", id)
	}
	rec.OutcomeStatus = memory.OutcomeRealized
	pnl := outcome.PnLPct
	label := outcome.Label
	lesson := outcome.Lesson
	rec.OutcomePnLPct = &pnl
	rec.OutcomeLabel = &label
	rec.OutcomeLesson = &lesson
	now := time.Now()
	rec.UpdatedAt = &now
	return nil
}

func (r *MemoryRepo) Mistakes(ctx context.Context, maxPnLPct float64, limit int) ([]*memory.Record, error) {
	return r.realized(limit, func(pnl float64) bool { return pnl <= maxPnLPct }, true)
}

func (r *MemoryRepo) Successes(ctx context.Context, minPnLPct float64, limit int) ([]*memory.Record, error) {
	return r.realized(limit, func(pnl float64) bool { return pnl >= minPnLPct }, false)
}

func (r *MemoryRepo) realized(limit int, keep func(float64) bool, ascending bool) ([]*memory.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*memory.Record, 0)
	for _, rec := range r.records {
		if rec.OutcomeStatus != memory.OutcomeRealized || rec.OutcomePnLPct == nil {
			continue
		}
		if keep(*rec.OutcomePnLPct) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if ascending {
			return *out[i].OutcomePnLPct < *out[j].OutcomePnLPct
		}
		return *out[i].OutcomePnLPct > *out[j].OutcomePnLPct
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) Recent(ctx context.Context, ticker string, limit int) ([]*memory.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*memory.Record, 0)
	for i := len(r.order) - 1; i >= 0; i-- {
		rec := r.records[r.order[i]]
		if ticker != "" && rec.Ticker != ticker {
			continue
		}
		cp := *rec
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryRepo) Stats(ctx context.Context) (*memory.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &memory.Stats{}
	for _, rec := range r.records {
		stats.Total++
		if rec.OutcomeStatus != memory.OutcomeRealized {
			stats.Pending++
			continue
		}
		stats.Completed++
		if rec.OutcomePnLPct != nil {
			if *rec.OutcomePnLPct > 0 {
				stats.Wins++
			} else {
				stats.Losses++
			}
			stats.AvgPnLPct += *rec.OutcomePnLPct
		}
	}
	if stats.Completed > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.Completed)
		stats.AvgPnLPct /= float64(stats.Completed)
	}
	return stats, nil
}

// Len returns the number of stored records.
func (r *MemoryRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
