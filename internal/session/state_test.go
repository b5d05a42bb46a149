package session

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntent(t *testing.T) {
	for _, i := range []Intent{IntentProductQuery, IntentGeneralConversation, IntentEmptyQuery, IntentError} {
		assert.True(t, i.Valid(), i)
		parsed, err := ParseIntent(string(i))
		require.NoError(t, err)
		assert.Equal(t, i, parsed)
	}

	var unset Intent
	assert.False(t, unset.Valid())
	assert.Equal(t, "UNSET", unset.String())

	_, err := ParseIntent("product_query")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	s := New("user-1", "hello")

	assert.Equal(t, "user-1", s.SessionID)
	assert.Equal(t, "hello", s.Query)
	assert.Equal(t, Intent(""), s.Intent)
	assert.NotNil(t, s.Documents)
	assert.Empty(t, s.Documents)
	assert.False(t, s.StartedAt.IsZero())
}

func TestIsBlank(t *testing.T) {
	assert.True(t, New("s", "").IsBlank())
	assert.True(t, New("s", " \t\n ").IsBlank())
	assert.False(t, New("s", " hi ").IsBlank())
}

func TestConfidenceFor(t *testing.T) {
	tests := []struct {
		name    string
		context string
		retErr  string
		want    float64
	}{
		{"context present", "Document 1: shoes", "", 0.9},
		{"context empty", "", "", 0.3},
		{"context whitespace", "  \n ", "", 0.3},
		{"retrieval error", "", "index offline", 0.1},
		{"retrieval error wins over context", "Document 1: shoes", "partial", 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := State{Context: tt.context, RetrievalError: tt.retErr}
			assert.Equal(t, tt.want, ConfidenceFor(s))
		})
	}
}

func TestApply_OnlyAssignsSetFields(t *testing.T) {
	s := New("s", "q")
	s.Intent = IntentProductQuery
	s.Answer = "old"

	s = s.Apply(Update{
		Context:      Ptr("Document 1: x"),
		NumRetrieved: Ptr(1),
	})

	assert.Equal(t, IntentProductQuery, s.Intent, "untouched")
	assert.Equal(t, "old", s.Answer, "untouched")
	assert.Equal(t, "Document 1: x", s.Context)
	assert.Equal(t, 1, s.NumRetrieved)
}

func TestApply_LastWriterWins(t *testing.T) {
	s := New("s", "q").
		Apply(Update{Answer: Ptr("first"), Confidence: Ptr(0.3)}).
		Apply(Update{Answer: Ptr("second")})

	assert.Equal(t, "second", s.Answer)
	assert.Equal(t, 0.3, s.Confidence)
}

func TestApply_ZeroValuesOverwrite(t *testing.T) {
	s := New("s", "q")
	s.ProcessingSuccessful = true
	s.Context = "something"

	s = s.Apply(Update{ProcessingSuccessful: Ptr(false), Context: Ptr("")})

	assert.False(t, s.ProcessingSuccessful)
	assert.Empty(t, s.Context)
}

func TestApply_NilDocumentsBecomeEmpty(t *testing.T) {
	var docs []Document
	s := New("s", "q").Apply(Update{Documents: &docs})

	assert.NotNil(t, s.Documents)
	assert.Empty(t, s.Documents)
}

func TestApply_DoesNotMutateReceiver(t *testing.T) {
	orig := New("s", "q")
	_ = orig.Apply(Update{Answer: Ptr("changed")})
	assert.Empty(t, orig.Answer)
}

func TestErrorState(t *testing.T) {
	s := ErrorState("s", "q", errors.New("router panicked"))

	assert.Equal(t, IntentError, s.Intent)
	assert.Equal(t, EngineFailedAnswer, s.Answer)
	assert.Equal(t, 0.0, s.Confidence)
	assert.False(t, s.ProcessingSuccessful)
	assert.Equal(t, "router panicked", s.ProcessingError)
	assert.NotNil(t, s.Documents)
	assert.Empty(t, s.Documents)
	assert.False(t, s.CompletedAt.IsZero())
}

func TestState_JSONShape(t *testing.T) {
	s := New("s", "q").Apply(Update{
		Intent:    Ptr(IntentProductQuery),
		Documents: &[]Document{{Content: "Nike", Metadata: map[string]any{"source": "product_1"}, Score: 0.5}},
	})

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "PRODUCT_QUERY", m["intent"])
	assert.Contains(t, m, "retrieved_docs")
	assert.Contains(t, m, "confidence_score")
	assert.NotContains(t, m, "retrieval_error")
	assert.NotContains(t, m, "completed_at")

	docs := m["retrieved_docs"].([]any)
	require.Len(t, docs, 1)
	assert.Equal(t, 0.5, docs[0].(map[string]any)["relevance_score"])
}
