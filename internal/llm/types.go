package llm

import (
	"context"
	"errors"
	"fmt"
)

// Message roles understood by every backend
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message sent to the model
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// CompletionRequest describes one completion call
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	Stream      bool

	// APIKey overrides the backend's default key for this call
	APIKey string
	// MaxTokens caps the reply length; zero leaves it to the backend
	MaxTokens int
}

// Completion is the handle returned by a backend: Text when the request was
// not streamed, Stream otherwise.
type Completion struct {
	Text   string
	Stream Stream
}

// Stream is a lazy, finite, non-restartable sequence of text fragments.
// Next blocks until a fragment arrives or the sequence ends.
type Stream interface {
	Next() bool
	Fragment() string
	Err() error
	Close() error
}

// Completer creates completions against a language-model service
type Completer interface {
	CreateCompletion(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// ModelLister is implemented by backends that can enumerate their models
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

var (
	// ErrUnknownProvider is returned by New for an unsupported provider name
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrNoChoices is returned when a response carries no completion text
	ErrNoChoices = errors.New("response contained no choices")
)

// APIError is a non-success response from the remote service
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s returned status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Message)
}
