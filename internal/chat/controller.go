package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chatterm/internal/history"
	"chatterm/internal/llm"
	"chatterm/internal/observability"
	"chatterm/internal/offline"
)

// ErrorPrefix starts every user-facing error reply
const ErrorPrefix = "An error occurred: "

// Controller decides how each user message is answered
type Controller struct {
	completer llm.Completer
	responder *offline.Responder
	display   Display
}

// NewController creates a controller. completer may be nil when no remote
// backend is available; display may be nil to discard output.
func NewController(completer llm.Completer, responder *offline.Responder, display Display) *Controller {
	if responder == nil {
		responder = offline.NewResponder()
	}
	if display == nil {
		display = nopDisplay{}
	}
	return &Controller{
		completer: completer,
		responder: responder,
		display:   display,
	}
}

// HandleUserMessage records text as a user turn, produces a reply and records
// it as an assistant turn. Callers are expected to skip empty input.
func (c *Controller) HandleUserMessage(ctx context.Context, text string, settings Settings, store Store) Outcome {
	log := observability.LoggerFromContext(ctx).With(
		"remote", settings.Remote(),
		"streaming", settings.Streaming,
	)

	store.Append(history.Turn{Role: history.RoleUser, Content: text})
	c.display.ShowTurn(history.RoleUser, text)

	if !settings.Remote() {
		reply := c.responder.Reply(text)
		log.Debug("offline reply", "rule", offline.Match(text))

		store.Append(history.Turn{Role: history.RoleAssistant, Content: reply})
		c.display.ShowTurn(history.RoleAssistant, reply)
		return Outcome{Text: reply}
	}

	reply, err := c.remoteReply(ctx, settings, store)
	if err != nil {
		msg := ErrorPrefix + err.Error()

		var replyErr *ReplyError
		if errors.As(err, &replyErr) {
			log = log.With("kind", replyErr.Kind.String())
		}
		log.Warn("reply failed", "error", err)

		store.Append(history.Turn{Role: history.RoleAssistant, Content: msg})
		c.display.ShowError(msg)
		return Outcome{Text: msg, Err: err}
	}

	log.Info("reply completed", "chars", len(reply))
	store.Append(history.Turn{Role: history.RoleAssistant, Content: reply})
	return Outcome{Text: reply}
}

// Reset empties the conversation history and clears the display
func (c *Controller) Reset(ctx context.Context, store Store) {
	store.Clear()
	c.display.ShowReset()
	observability.LoggerFromContext(ctx).Info("conversation reset")
}

// remoteReply runs the remote strategy. Streamed text rendered before a
// failure is not kept; only the error is reported.
func (c *Controller) remoteReply(ctx context.Context, settings Settings, store Store) (string, error) {
	if !settings.RemoteAvailable || c.completer == nil {
		return "", &ReplyError{Kind: KindMissingCapability, Err: ErrMissingCapability}
	}
	if settings.APIKey == "" {
		return "", &ReplyError{Kind: KindMissingCredential, Err: ErrMissingCredential}
	}

	req := llm.CompletionRequest{
		Model:       settings.ModelName,
		Messages:    BuildPrompt(settings.SystemPrompt, store.Snapshot()),
		Temperature: settings.Temperature,
		Stream:      settings.Streaming,
		APIKey:      settings.APIKey,
		MaxTokens:   settings.MaxTokens,
	}

	completion, err := c.completer.CreateCompletion(ctx, req)
	if err != nil {
		return "", &ReplyError{Kind: KindRemoteCall, Err: err}
	}

	if completion.Stream == nil {
		c.display.ShowTurn(history.RoleAssistant, completion.Text)
		return completion.Text, nil
	}

	text, err := c.consume(completion.Stream)
	if err != nil {
		return "", &ReplyError{Kind: KindRemoteCall, Err: err}
	}
	c.display.FinishLive(text)
	return text, nil
}

// consume reads the stream to its end, re-rendering the accumulated text
// after every fragment.
func (c *Controller) consume(stream llm.Stream) (string, error) {
	defer stream.Close()

	var acc strings.Builder
	for stream.Next() {
		acc.WriteString(stream.Fragment())
		c.display.ShowLive(acc.String())
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("stream interrupted: %w", err)
	}
	return acc.String(), nil
}

// BuildPrompt returns the system prompt followed by the whole history.
// The history already ends with the message being answered.
func BuildPrompt(systemPrompt string, turns []history.Turn) []llm.Message {
	messages := make([]llm.Message, 0, len(turns)+1)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: systemPrompt,
	})
	for _, t := range turns {
		messages = append(messages, llm.Message{
			Role:    string(t.Role),
			Content: t.Content,
		})
	}
	return messages
}
