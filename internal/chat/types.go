package chat

import (
	"errors"

	"chatterm/internal/history"
)

// Settings is the per-message configuration read by the Controller
type Settings struct {
	APIKey       string
	ModelName    string
	Temperature  float64
	SystemPrompt string
	Streaming    bool
	MaxTokens    int

	// RemoteAvailable is resolved once at startup: true when a remote
	// backend could be constructed.
	RemoteAvailable bool
}

// Remote reports whether the settings select the remote strategy
func (s Settings) Remote() bool {
	return s.APIKey != ""
}

// Store is the conversation history the Controller reads and appends to
type Store interface {
	Append(turn history.Turn)
	Snapshot() []history.Turn
	Clear()
}

// Display renders conversation output
type Display interface {
	// ShowTurn renders a complete chat entry
	ShowTurn(role history.Role, text string)
	// ShowLive replaces the in-progress reply with text
	ShowLive(text string)
	// FinishLive ends the in-progress reply; text is the final content
	FinishLive(text string)
	// ShowError renders an error entry, visually distinct from replies
	ShowError(text string)
	// ShowReset clears what was shown of the previous conversation
	ShowReset()
}

type nopDisplay struct{}

func (nopDisplay) ShowTurn(history.Role, string) {}
func (nopDisplay) ShowLive(string)               {}
func (nopDisplay) FinishLive(string)             {}
func (nopDisplay) ShowError(string)              {}
func (nopDisplay) ShowReset()                    {}

// ErrorKind classifies reply failures
type ErrorKind int

const (
	KindMissingCapability ErrorKind = iota + 1
	KindMissingCredential
	KindRemoteCall
)

func (k ErrorKind) String() string {
	switch k {
	case KindMissingCapability:
		return "missing_capability"
	case KindMissingCredential:
		return "missing_credential"
	case KindRemoteCall:
		return "remote_call"
	default:
		return "unknown"
	}
}

var (
	// ErrMissingCapability means no remote backend is available
	ErrMissingCapability = errors.New("remote completion backend is not available")
	// ErrMissingCredential means the remote strategy ran without an API key
	ErrMissingCredential = errors.New("no API key configured")
)

// ReplyError is a failure of the remote strategy
type ReplyError struct {
	Kind ErrorKind
	Err  error
}

func (e *ReplyError) Error() string {
	return e.Err.Error()
}

func (e *ReplyError) Unwrap() error {
	return e.Err
}

// Outcome is the result of handling one user message. Text is the content of
// the recorded assistant turn; on failure it is the user-facing error text.
type Outcome struct {
	Text string
	Err  error
}

// Failed reports whether the reply ended in an error
func (o Outcome) Failed() bool {
	return o.Err != nil
}
