package engine

import (
	"nexus/internal/domain/analysis"
)

// EventType orders the progress stream: any number of processing events,
// one executing event, then exactly one of complete or error. An error
// event is terminal.
type EventType string

const (
	EventProcessing EventType = "processing"
	EventExecuting  EventType = "executing"
	EventComplete   EventType = "complete"
	EventError      EventType = "error"
)

// Event is one progress update of a running analysis.
type Event struct {
	Type    EventType        `json:"type"`
	Agent   string           `json:"agent,omitempty"`
	Step    int              `json:"step,omitempty"`
	Total   int              `json:"total,omitempty"`
	Message string           `json:"message,omitempty"`
	Result  *analysis.Result `json:"result,omitempty"`
}

// Sink receives progress events. A nil sink discards them.
type Sink func(Event)

func (s Sink) emit(e Event) {
	if s != nil {
		s(e)
	}
}
