package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Repository is the persistence contract for the analysis memory corpus.
// The corpus is append-only: records are inserted once, their outcome is
// mutated at most once per back-fill, and nothing is ever deleted.
type Repository interface {
	Insert(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)

	// SearchSimilar returns up to k records ordered by descending cosine
	// similarity to the query embedding. An empty corpus yields an empty
	// slice, not an error.
	SearchSimilar(ctx context.Context, embedding pgvector.Vector, k int) ([]*Record, error)

	// UpdateOutcome back-fills the realized outcome of a record.
	// Last write wins; calling twice with the same value is idempotent.
	UpdateOutcome(ctx context.Context, id uuid.UUID, outcome Outcome) error

	// Mistakes returns realized records with pnl <= maxPnLPct, worst first.
	Mistakes(ctx context.Context, maxPnLPct float64, limit int) ([]*Record, error)

	// Successes returns realized records with pnl >= minPnLPct, best first.
	Successes(ctx context.Context, minPnLPct float64, limit int) ([]*Record, error)

	// Recent lists records newest first, optionally filtered by ticker.
	Recent(ctx context.Context, ticker string, limit int) ([]*Record, error)

	Stats(ctx context.Context) (*Stats, error)
}
