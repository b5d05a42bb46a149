package session

import (
	"strings"
	"time"
)

// Fixed user-facing replies for the failure paths.
const (
	GenerationFailedAnswer = "I apologize, but I'm having technical difficulties processing your request. Please try again later."
	EngineFailedAnswer     = "I apologize, but I encountered an error processing your request."
)

// Confidence scores assigned by the responder.
const (
	ConfidenceWithContext    = 0.9
	ConfidenceWithoutContext = 0.3
	ConfidenceRetrievalError = 0.1
	ConfidenceFailed         = 0.0
)

// Document is one retrieved piece of product context.
type Document struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    float64        `json:"relevance_score"`
}

// State is the record for one query. It is created fresh per request and
// only changed by applying node updates.
type State struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
	Intent    Intent `json:"intent"`

	Context        string     `json:"context"`
	Documents      []Document `json:"retrieved_docs"`
	NumRetrieved   int        `json:"num_retrieved"`
	RetrievalError string     `json:"retrieval_error,omitempty"`

	Answer               string  `json:"answer"`
	Confidence           float64 `json:"confidence_score"`
	ProcessingError      string  `json:"processing_error,omitempty"`
	ProcessingSuccessful bool    `json:"processing_successful"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
}

// New returns the initial state for a request. Documents is non-nil.
func New(sessionID, query string) State {
	return State{
		SessionID: sessionID,
		Query:     query,
		Documents: []Document{},
		StartedAt: time.Now().UTC(),
	}
}

// IsBlank reports whether the query has no non-whitespace characters.
func (s State) IsBlank() bool {
	return strings.TrimSpace(s.Query) == ""
}

// HasContext reports whether retrieval produced any usable context text.
func (s State) HasContext() bool {
	return strings.TrimSpace(s.Context) != ""
}

// ConfidenceFor scores an answer from the retrieval outcome alone.
// A retrieval error outranks everything; otherwise context presence decides.
func ConfidenceFor(s State) float64 {
	switch {
	case s.RetrievalError != "":
		return ConfidenceRetrievalError
	case s.HasContext():
		return ConfidenceWithContext
	default:
		return ConfidenceWithoutContext
	}
}

// ErrorState is the envelope returned when the engine itself fails.
// It carries no retrieval results and is never checkpointed.
func ErrorState(sessionID, query string, err error) State {
	s := New(sessionID, query)
	s.Intent = IntentError
	s.Answer = EngineFailedAnswer
	s.Confidence = ConfidenceFailed
	s.ProcessingSuccessful = false
	if err != nil {
		s.ProcessingError = err.Error()
	}
	s.CompletedAt = time.Now().UTC()
	return s
}
