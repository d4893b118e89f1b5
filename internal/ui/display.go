package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"chatterm/internal/history"
)

// Display renders the conversation to a terminal
type Display struct {
	out      io.Writer
	width    int
	renderer *glamour.TermRenderer
	now      func() time.Time

	// banner state, redrawn on reset
	model  string
	remote bool

	// live reply state
	live       string
	liveActive bool
	startTime  time.Time
}

// NewDisplay creates a display writing to out. Markdown rendering is used
// for assistant replies when markdown is true.
func NewDisplay(out io.Writer, markdown bool) *Display {
	width := terminalWidth(out)

	d := &Display{
		out:   out,
		width: width,
		now:   time.Now,
	}

	if markdown {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(max(width-10, 20)),
		)
		if err == nil {
			d.renderer = renderer
		}
	}
	return d
}

// ClearScreen clears the terminal
func (d *Display) ClearScreen() {
	fmt.Fprint(d.out, "\033[2J\033[H")
}

// PrintWelcome displays the banner and current mode
func (d *Display) PrintWelcome(modelName string, remote bool) {
	d.SetMode(modelName, remote)
	d.printBanner()
}

// SetMode records the model and mode shown by the banner
func (d *Display) SetMode(modelName string, remote bool) {
	d.model = modelName
	d.remote = remote
}

// ShowReset clears the screen and redraws the banner for a new conversation
func (d *Display) ShowReset() {
	d.endLive()
	d.ClearScreen()
	d.printBanner()
	d.PrintInfo("Conversation cleared")
}

func (d *Display) printBanner() {
	fmt.Fprintln(d.out, bannerStyle.Render("chatterm · terminal chatbot"))

	mode := "demo (offline replies, no API key)"
	if d.remote {
		mode = "remote · " + d.model
	}
	fmt.Fprintf(d.out, "\n%s %s\n", dimStyle.Render("Mode:"), mode)
	fmt.Fprintf(d.out, "%s /reset | /history | /model | /key | /help | /exit\n\n", dimStyle.Render("Commands:"))
}

// PrintPrompt displays the user input prompt
func (d *Display) PrintPrompt() {
	fmt.Fprintf(d.out, "\n%s ", promptStyle.Render("❯"))
}

// ShowTurn renders a complete chat entry
func (d *Display) ShowTurn(role history.Role, text string) {
	d.endLive()

	fmt.Fprintf(d.out, "\n%s\n", d.header(role))
	body := text
	if role == history.RoleAssistant {
		body = d.renderMarkdown(text)
	}
	d.writeBody(body)
	fmt.Fprintln(d.out, dimStyle.Render("└"))
}

// ShowLive replaces the in-progress reply with text. When text extends what
// is already on screen only the new suffix is written.
func (d *Display) ShowLive(text string) {
	if !d.liveActive {
		d.liveActive = true
		d.live = ""
		d.startTime = d.now()
		fmt.Fprintf(d.out, "\n%s\n%s ", d.header(history.RoleAssistant), dimStyle.Render("│"))
	}

	if strings.HasPrefix(text, d.live) {
		d.writeLive(text[len(d.live):])
	} else {
		// Redraw from the start of the current line
		fmt.Fprintf(d.out, "\r\033[2K%s ", dimStyle.Render("│"))
		d.writeLive(text)
	}
	d.live = text
}

// FinishLive ends the in-progress reply and shows the rendered result
func (d *Display) FinishLive(text string) {
	if !d.liveActive {
		d.ShowTurn(history.RoleAssistant, text)
		return
	}
	duration := d.now().Sub(d.startTime)
	fmt.Fprintln(d.out)

	if d.renderer != nil && strings.TrimSpace(text) != "" {
		fmt.Fprintln(d.out, dimStyle.Render("│ Rendered:"))
		d.writeBody(d.renderMarkdown(text))
	}

	fmt.Fprintln(d.out, dimStyle.Render(fmt.Sprintf("│ ⏱ %s · ~%d words", formatDuration(duration), len(strings.Fields(text)))))
	fmt.Fprintln(d.out, dimStyle.Render("└"))
	d.liveActive = false
	d.live = ""
}

// ShowError renders an error entry
func (d *Display) ShowError(text string) {
	if d.liveActive {
		fmt.Fprintln(d.out)
		d.liveActive = false
		d.live = ""
	}
	fmt.Fprintf(d.out, "\n%s\n", d.header(history.RoleAssistant))
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(d.out, "%s %s\n", dimStyle.Render("│"), errorStyle.Render("✗ "+line))
	}
	fmt.Fprintln(d.out, dimStyle.Render("└"))
}

// PrintHistory shows all turns of the current session
func (d *Display) PrintHistory(turns []history.Turn) {
	if len(turns) == 0 {
		d.PrintInfo("No conversation history yet")
		return
	}

	d.PrintSeparator()
	for _, t := range turns {
		fmt.Fprintf(d.out, "[%s] %s\n%s\n\n", t.Timestamp.Format("15:04:05"), roleLabel(t.Role), t.Content)
	}
	d.PrintSeparator()
}

// PrintModels lists model identifiers
func (d *Display) PrintModels(models []string) {
	d.PrintInfo("Available models:")
	for _, m := range models {
		fmt.Fprintf(d.out, "  - %s\n", m)
	}
}

// PrintSeparator prints a visual separator
func (d *Display) PrintSeparator() {
	fmt.Fprintln(d.out, dimStyle.Render(strings.Repeat("─", min(d.width, 80))))
}

// PrintInfo displays info message
func (d *Display) PrintInfo(msg string) {
	fmt.Fprintln(d.out, infoStyle.Render("ℹ "+msg))
}

// PrintWarning displays warning message
func (d *Display) PrintWarning(msg string) {
	fmt.Fprintln(d.out, warningStyle.Render("⚠ "+msg))
}

// PrintGoodbye displays goodbye message
func (d *Display) PrintGoodbye() {
	fmt.Fprintf(d.out, "\n%s\n", infoStyle.Render("Goodbye! 👋"))
}

func (d *Display) header(role history.Role) string {
	stamp := d.now().Format("15:04:05")
	if role == history.RoleUser {
		return dimStyle.Render("┌─ ") + userStyle.Render("You") + dimStyle.Render(" · "+stamp)
	}
	return dimStyle.Render("┌─ ") + botStyle.Render("Assistant") + dimStyle.Render(" · "+stamp)
}

// writeBody prints text with each line indented under the entry bar
func (d *Display) writeBody(text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintf(d.out, "%s %s\n", dimStyle.Render("│"), line)
	}
}

// writeLive prints streamed text, keeping the entry bar on new lines
func (d *Display) writeLive(text string) {
	fmt.Fprint(d.out, strings.ReplaceAll(text, "\n", "\n"+dimStyle.Render("│")+" "))
}

// endLive closes a live reply left open by an interrupted stream
func (d *Display) endLive() {
	if d.liveActive {
		fmt.Fprintln(d.out)
		d.liveActive = false
		d.live = ""
	}
}

func (d *Display) renderMarkdown(text string) string {
	if d.renderer == nil {
		return text
	}
	rendered, err := d.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(rendered, "\n")
}

func roleLabel(role history.Role) string {
	if role == history.RoleUser {
		return "You:"
	}
	return "Assistant:"
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// terminalWidth returns the width of out when it is a terminal, else 80
func terminalWidth(out io.Writer) int {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 80
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}
