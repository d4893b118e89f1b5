package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"chatterm/internal/history"
)

func newTestDisplay() (*Display, *bytes.Buffer) {
	var buf bytes.Buffer
	d := NewDisplay(&buf, false)
	d.now = func() time.Time { return time.Date(2024, 1, 1, 10, 20, 30, 0, time.UTC) }
	return d, &buf
}

func TestShowTurn(t *testing.T) {
	d, buf := newTestDisplay()

	d.ShowTurn(history.RoleUser, "hello\nworld")
	d.ShowTurn(history.RoleAssistant, "hi")

	out := buf.String()
	assert.Contains(t, out, "You")
	assert.Contains(t, out, "10:20:30")
	assert.Contains(t, out, "│ hello\n│ world\n")
	assert.Contains(t, out, "Assistant")
	assert.Contains(t, out, "│ hi\n")
}

func TestShowLive_WritesOnlyNewSuffix(t *testing.T) {
	d, buf := newTestDisplay()

	d.ShowLive("Hel")
	d.ShowLive("Hello!")
	d.FinishLive("Hello!")

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "Hel"), "cumulative text is not re-printed")
	assert.Contains(t, out, "Hello!")
	assert.Contains(t, out, "~1 words")
	assert.False(t, d.liveActive)
}

func TestShowLive_RedrawsWhenTextDiverges(t *testing.T) {
	d, buf := newTestDisplay()

	d.ShowLive("abc")
	d.ShowLive("xyz")

	out := buf.String()
	assert.Contains(t, out, "\r\033[2K")
	assert.Contains(t, out, "xyz")
	assert.Equal(t, "xyz", d.live)
}

func TestFinishLive_WithoutLiveShowsTurn(t *testing.T) {
	d, buf := newTestDisplay()

	d.FinishLive("complete")
	assert.Contains(t, buf.String(), "│ complete\n")
}

func TestShowError_ClosesLiveReply(t *testing.T) {
	d, buf := newTestDisplay()

	d.ShowLive("partial")
	d.ShowError("An error occurred: boom")

	out := buf.String()
	assert.Contains(t, out, "✗ An error occurred: boom")
	assert.False(t, d.liveActive)
	assert.Empty(t, d.live)
}

func TestPrintHistory(t *testing.T) {
	d, buf := newTestDisplay()

	d.PrintHistory(nil)
	assert.Contains(t, buf.String(), "No conversation history yet")

	buf.Reset()
	stamp := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	d.PrintHistory([]history.Turn{
		{Role: history.RoleUser, Content: "q", Timestamp: stamp},
		{Role: history.RoleAssistant, Content: "a", Timestamp: stamp},
	})
	out := buf.String()
	assert.Contains(t, out, "[08:00:00] You:\nq")
	assert.Contains(t, out, "[08:00:00] Assistant:\na")
}

func TestPrintWelcome_Modes(t *testing.T) {
	d, buf := newTestDisplay()

	d.PrintWelcome("gpt-4o-mini", false)
	assert.Contains(t, buf.String(), "demo")

	buf.Reset()
	d.PrintWelcome("gpt-4o-mini", true)
	assert.Contains(t, buf.String(), "remote · gpt-4o-mini")
}

func TestShowReset_RedrawsBannerWithCurrentMode(t *testing.T) {
	d, buf := newTestDisplay()
	d.PrintWelcome("gpt-4o-mini", true)
	d.SetMode("gpt-4o", true)

	buf.Reset()
	d.ShowReset()

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\033[2J\033[H"))
	assert.Contains(t, out, "remote · gpt-4o\n")
	assert.Contains(t, out, "Conversation cleared")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", formatDuration(250*time.Millisecond))
	assert.Equal(t, "1.5s", formatDuration(1500*time.Millisecond))
}

func TestTerminalWidth_NonTerminal(t *testing.T) {
	assert.Equal(t, 80, terminalWidth(&bytes.Buffer{}))
}
