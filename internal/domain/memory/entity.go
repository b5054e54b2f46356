package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"nexus/internal/domain/analysis"
)

// OutcomeStatus tracks whether a stored analysis has been back-filled with
// its realized result.
type OutcomeStatus string

const (
	OutcomePending  OutcomeStatus = "pending"
	OutcomeRealized OutcomeStatus = "realized"
)

// Outcome is the realized result of a past decision, back-filled once.
type Outcome struct {
	Label  string  // what happened, e.g. "hit take profit", "stopped out"
	PnLPct float64 // realized profit/loss in percent
	Lesson string  // what went right or wrong
}

// Record is one entry in the append-only analysis memory. The situation
// text is what gets embedded and searched; records are never deleted.
type Record struct {
	ID        uuid.UUID       `db:"id"`
	Ticker    string          `db:"ticker"`
	Situation string          `db:"situation"`
	Decision  analysis.Signal `db:"decision"`
	Rationale string          `db:"rationale"`

	Embedding           pgvector.Vector `db:"embedding"`
	EmbeddingModel      string          `db:"embedding_model"`
	EmbeddingDimensions int             `db:"embedding_dimensions"`

	OutcomeStatus OutcomeStatus `db:"outcome_status"`
	OutcomePnLPct *float64      `db:"outcome_pnl_pct"`
	OutcomeLabel  *string       `db:"outcome_label"`
	OutcomeLesson *string       `db:"outcome_lesson"`

	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt *time.Time `db:"updated_at"`

	// Similarity is populated by vector search results only.
	Similarity float64 `db:"similarity"`
}

// Realized reports whether the outcome has been back-filled.
func (r *Record) Realized() bool {
	return r.OutcomeStatus == OutcomeRealized && r.OutcomePnLPct != nil
}

// Stats summarizes the memory corpus.
type Stats struct {
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	Pending   int     `json:"pending"`
	Wins      int     `json:"wins"`
	Losses    int     `json:"losses"`
	WinRate   float64 `json:"win_rate"`
	AvgPnLPct float64 `json:"avg_pnl_pct"`
}
