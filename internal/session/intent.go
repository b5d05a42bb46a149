// Package session defines the per-request state threaded through the
// query workflow and the rules for merging node output into it.
package session

import "fmt"

// Intent is the routing tag recorded on a session.
// The zero value means no decision has been made yet.
type Intent string

const (
	// IntentProductQuery routes through document retrieval first.
	IntentProductQuery Intent = "PRODUCT_QUERY"
	// IntentGeneralConversation goes straight to the responder.
	IntentGeneralConversation Intent = "GENERAL_CONVERSATION"
	// IntentEmptyQuery marks a blank query; only the responder runs.
	IntentEmptyQuery Intent = "EMPTY_QUERY"
	// IntentError marks a request the engine failed to process.
	IntentError Intent = "ERROR"
)

// Valid reports whether i is one of the declared intents.
// The unset zero value is not valid.
func (i Intent) Valid() bool {
	switch i {
	case IntentProductQuery, IntentGeneralConversation, IntentEmptyQuery, IntentError:
		return true
	default:
		return false
	}
}

func (i Intent) String() string {
	if i == "" {
		return "UNSET"
	}
	return string(i)
}

// ParseIntent converts a stored tag back to an Intent.
func ParseIntent(s string) (Intent, error) {
	i := Intent(s)
	if !i.Valid() {
		return "", fmt.Errorf("unknown intent %q", s)
	}
	return i, nil
}
