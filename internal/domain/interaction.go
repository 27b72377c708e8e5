package domain

import "time"

// TimestampLayout is the ISO-8601 layout used for the persisted timestamp column.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Interaction is one request/response exchange queued for persistence.
// It is built on the caller's goroutine and handed to the persistence worker,
// which consumes it exactly once.
type Interaction struct {
	// ID is the primary key: the response's own id, or a generated one
	ID string `json:"interaction_id" db:"interaction_id"`

	// Timestamp is captured when the record is built, not when it is written
	Timestamp time.Time `json:"timestamp" db:"-"`

	// Model is the model name reported by the response
	Model string `json:"model" db:"model"`

	// RequestData is the canonical JSON encoding of the request payload
	RequestData string `json:"request_data" db:"request_data"`

	// ResponseData is the canonical JSON encoding of the response payload
	ResponseData string `json:"response_data" db:"response_data"`

	// Usage holds token counters extracted from the response
	Usage Usage `json:"usage" db:"-"`
}

// TimestampString renders Timestamp in UTC using TimestampLayout.
func (i *Interaction) TimestampString() string {
	return i.Timestamp.UTC().Format(TimestampLayout)
}

// Usage holds token accounting for an interaction. Nil fields were not
// reported by the provider and could not be derived.
type Usage struct {
	PromptTokens     *int `json:"prompt_tokens,omitempty"`
	CompletionTokens *int `json:"completion_tokens,omitempty"`
	TotalTokens      *int `json:"total_tokens,omitempty"`

	// Estimated is set when PromptTokens was computed locally rather than
	// reported in the response.
	Estimated bool `json:"estimated,omitempty"`
}

// IsZero reports whether no counter is set.
func (u Usage) IsZero() bool {
	return u.PromptTokens == nil && u.CompletionTokens == nil && u.TotalTokens == nil
}
