package types

import "time"

// ProcessState describes where an extraction process is in its lifecycle.
type ProcessState string

const (
	// StateUnrequested means extraction has never been triggered for the book.
	StateUnrequested ProcessState = "unrequested"
	// StateRequested means extraction was triggered but no part has completed yet.
	StateRequested ProcessState = "requested"
	// StateInProgress means at least one part has been extracted.
	StateInProgress ProcessState = "in_progress"
	// StateComplete means every eligible part has been extracted. Terminal.
	StateComplete ProcessState = "complete"
)

// ExtractionProcess is the per-book status record for the server-side
// entity-extraction job. The server is authoritative for every field;
// the client only ever reads it.
type ExtractionProcess struct {
	BookID        string     `json:"book_id"`
	IsRequested   bool       `json:"is_requested"`
	EstimatedCost float64    `json:"estimated_cost"`
	RequestedAt   *time.Time `json:"requested_at,omitempty"`
	Completeness  *float64   `json:"completeness,omitempty"`
}

// State derives the lifecycle state from the record.
func (p ExtractionProcess) State() ProcessState {
	if !p.IsRequested {
		return StateUnrequested
	}
	c := p.CompletenessValue()
	switch {
	case c >= 1:
		return StateComplete
	case c > 0:
		return StateInProgress
	default:
		return StateRequested
	}
}

// CompletenessValue returns the completeness fraction, zero if unset.
func (p ExtractionProcess) CompletenessValue() float64 {
	if p.Completeness == nil {
		return 0
	}
	return *p.Completeness
}
