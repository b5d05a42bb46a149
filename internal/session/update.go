package session

import "time"

// Update is the partial output of one workflow step.
// Nil fields are left untouched by Apply; set fields overwrite.
type Update struct {
	Intent               *Intent
	Context              *string
	Documents            *[]Document
	NumRetrieved         *int
	RetrievalError       *string
	Answer               *string
	Confidence           *float64
	ProcessingError      *string
	ProcessingSuccessful *bool
	CompletedAt          *time.Time
}

// Apply returns s with every non-nil field of u assigned.
// A Documents update of nil is stored as an empty slice.
func (s State) Apply(u Update) State {
	if u.Intent != nil {
		s.Intent = *u.Intent
	}
	if u.Context != nil {
		s.Context = *u.Context
	}
	if u.Documents != nil {
		docs := *u.Documents
		if docs == nil {
			docs = []Document{}
		}
		s.Documents = docs
	}
	if u.NumRetrieved != nil {
		s.NumRetrieved = *u.NumRetrieved
	}
	if u.RetrievalError != nil {
		s.RetrievalError = *u.RetrievalError
	}
	if u.Answer != nil {
		s.Answer = *u.Answer
	}
	if u.Confidence != nil {
		s.Confidence = *u.Confidence
	}
	if u.ProcessingError != nil {
		s.ProcessingError = *u.ProcessingError
	}
	if u.ProcessingSuccessful != nil {
		s.ProcessingSuccessful = *u.ProcessingSuccessful
	}
	if u.CompletedAt != nil {
		s.CompletedAt = *u.CompletedAt
	}
	return s
}

// Ptr returns a pointer to v, for building updates.
func Ptr[T any](v T) *T {
	return &v
}
