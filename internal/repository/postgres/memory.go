package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"nexus/internal/domain/memory"
	"nexus/pkg/errors"
)

// Compile-time check
var _ memory.Repository = (*MemoryRepository)(nil)

// MemoryRepository implements memory.Repository using sqlx and pgvector.
// The analysis_memories table is append-only: inserts and outcome updates
// only, never deletes.
type MemoryRepository struct {
	db *sqlx.DB
}

// NewMemoryRepository creates a new memory repository
func NewMemoryRepository(db *sqlx.DB) *MemoryRepository {
	return &MemoryRepository{db: db}
}

// Insert appends a new record
func (r *MemoryRepository) Insert(ctx context.Context, rec *memory.Record) error {
	query := `
		INSERT INTO analysis_memories (
			id, ticker, situation, decision, rationale,
			embedding, embedding_model, embedding_dimensions,
			outcome_status, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Ticker, rec.Situation, rec.Decision, rec.Rationale,
		rec.Embedding, rec.EmbeddingModel, rec.EmbeddingDimensions,
		rec.OutcomeStatus, rec.CreatedAt,
	)
	return err
}

// GetByID retrieves a single record
func (r *MemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*memory.Record, error) {
	var rec memory.Record
	err := r.db.GetContext(ctx, &rec, `SELECT *, 0.0 AS similarity FROM analysis_memories WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SearchSimilar performs semantic search using pgvector cosine similarity
func (r *MemoryRepository) SearchSimilar(ctx context.Context, embedding pgvector.Vector, k int) ([]*memory.Record, error) {
	var recs []*memory.Record

	query := `
		SELECT *, 1 - (embedding <=> $1) AS similarity
		FROM analysis_memories
		ORDER BY embedding <=> $1
		LIMIT $2`

	if err := r.db.SelectContext(ctx, &recs, query, embedding, k); err != nil {
		return nil, err
	}
	return recs, nil
}

// UpdateOutcome back-fills the realized outcome. Last write wins.
func (r *MemoryRepository) UpdateOutcome(ctx context.Context, id uuid.UUID, outcome memory.Outcome) error {
	query := `
		UPDATE analysis_memories
		SET outcome_status = $2,
		    outcome_pnl_pct = $3,
		    outcome_label = $4,
		    outcome_lesson = $5,
		    updated_at = $6
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		id, memory.OutcomeRealized, outcome.PnLPct, outcome.Label, outcome.Lesson, time.Now(),
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// Mistakes returns realized losers, worst first
func (r *MemoryRepository) Mistakes(ctx context.Context, maxPnLPct float64, limit int) ([]*memory.Record, error) {
	var recs []*memory.Record

	query := `
		SELECT *, 0.0 AS similarity FROM analysis_memories
		WHERE outcome_status = $1 AND outcome_pnl_pct <= $2
		ORDER BY outcome_pnl_pct ASC
		LIMIT $3`

	if err := r.db.SelectContext(ctx, &recs, query, memory.OutcomeRealized, maxPnLPct, limit); err != nil {
		return nil, err
	}
	return recs, nil
}

// Successes returns realized winners, best first
func (r *MemoryRepository) Successes(ctx context.Context, minPnLPct float64, limit int) ([]*memory.Record, error) {
	var recs []*memory.Record

	query := `
		SELECT *, 0.0 AS similarity FROM analysis_memories
		WHERE outcome_status = $1 AND outcome_pnl_pct >= $2
		ORDER BY outcome_pnl_pct DESC
		LIMIT $3`

	if err := r.db.SelectContext(ctx, &recs, query, memory.OutcomeRealized, minPnLPct, limit); err != nil {
		return nil, err
	}
	return recs, nil
}

// Recent lists records newest first, optionally filtered by ticker
func (r *MemoryRepository) Recent(ctx context.Context, ticker string, limit int) ([]*memory.Record, error) {
	var recs []*memory.Record

	if ticker != "" {
		query := `
			SELECT *, 0.0 AS similarity FROM analysis_memories
			WHERE ticker = $1
			ORDER BY created_at DESC
			LIMIT $2`
		if err := r.db.SelectContext(ctx, &recs, query, ticker, limit); err != nil {
			return nil, err
		}
		return recs, nil
	}

	query := `
		SELECT *, 0.0 AS similarity FROM analysis_memories
		ORDER BY created_at DESC
		LIMIT $1`
	if err := r.db.SelectContext(ctx, &recs, query, limit); err != nil {
		return nil, err
	}
	return recs, nil
}

// Stats aggregates corpus-level outcome statistics
func (r *MemoryRepository) Stats(ctx context.Context) (*memory.Stats, error) {
	var row struct {
		Total     int             `db:"total"`
		Completed int             `db:"completed"`
		Wins      int             `db:"wins"`
		AvgPnLPct sql.NullFloat64 `db:"avg_pnl_pct"`
	}

	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE outcome_status = $1) AS completed,
			COUNT(*) FILTER (WHERE outcome_status = $1 AND outcome_pnl_pct > 0) AS wins,
			AVG(outcome_pnl_pct) FILTER (WHERE outcome_status = $1) AS avg_pnl_pct
		FROM analysis_memories`

	if err := r.db.GetContext(ctx, &row, query, memory.OutcomeRealized); err != nil {
		return nil, err
	}

	stats := &memory.Stats{}
	stats.Total = row.Total
	stats.Completed = row.Completed
	stats.Pending = row.Total - row.Completed
	stats.Wins = row.Wins
	stats.Losses = row.Completed - row.Wins
	if row.Completed > 0 {
		stats.WinRate = float64(row.Wins) / float64(row.Completed)
	}
	if row.AvgPnLPct.Valid {
		stats.AvgPnLPct = row.AvgPnLPct.Float64
	}
	return stats, nil
}
