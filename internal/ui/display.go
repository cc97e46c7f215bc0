// Package ui prints the interactive chat to a terminal.
package ui

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"techchat/internal/chat"
	"techchat/internal/export"
	"techchat/internal/format"
	"techchat/internal/history"
	"techchat/internal/render"
	"techchat/internal/terminal"
)

// Display provides a styled terminal UI for one chat
type Display struct {
	out     io.Writer
	width   int
	md      *glamour.TermRenderer
	content *render.Terminal
	spinner *Spinner

	title   lipgloss.Style
	muted   lipgloss.Style
	user    lipgloss.Style
	bot     lipgloss.Style
	info    lipgloss.Style
	warn    lipgloss.Style
	failure lipgloss.Style
	success lipgloss.Style
}

// NewDisplay creates a display writing to out
func NewDisplay(out io.Writer) *Display {
	width := terminalWidth(out)

	// Markdown renderer for whole-session views
	md, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	)

	accent := lipgloss.Color("86")
	d := &Display{
		out:     out,
		width:   width,
		md:      md,
		content: render.NewTerminal(width - 2),
		title:   lipgloss.NewStyle().Bold(true).Foreground(accent),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		user:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		bot:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		info:    lipgloss.NewStyle().Foreground(accent),
		warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
	d.spinner = NewSpinner(out, d.info)
	return d
}

// Width returns the usable terminal width
func (d *Display) Width() int {
	return d.width
}

// ClearScreen clears the terminal
func (d *Display) ClearScreen() {
	fmt.Fprint(d.out, "\033[2J\033[H")
}

// PrintWelcome displays the welcome banner
func (d *Display) PrintWelcome(provider, model string) {
	banner := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("86")).
		Padding(0, 2).
		Render(d.title.Render("techchat") + "\n" + d.muted.Render("Technical answers, explained your way"))
	fmt.Fprintln(d.out, banner)
	fmt.Fprintf(d.out, "%s %s/%s\n", d.muted.Render("Model:"), provider, model)
	fmt.Fprintln(d.out, d.muted.Render("Type a question, or /help for commands"))
	fmt.Fprintln(d.out)
}

// PrintCategories lists the topic categories with their quick suggestions
func (d *Display) PrintCategories() {
	fmt.Fprintln(d.out, d.title.Render("Topics"))
	for _, c := range chat.Catalog() {
		fmt.Fprintf(d.out, "  %s\n", c.Name)
		for _, s := range c.Suggestions {
			fmt.Fprintf(d.out, "    %s\n", d.muted.Render("· "+s))
		}
	}
	fmt.Fprintln(d.out)
}

// PrintSuggestions shows the quick questions for one category
func (d *Display) PrintSuggestions(category string, suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	fmt.Fprintf(d.out, "%s\n", d.title.Render(category))
	for i, s := range suggestions {
		fmt.Fprintf(d.out, "  %d. %s\n", i+1, s)
	}
	fmt.Fprintln(d.out)
}

// PrintMessage displays one transcript message. Assistant answers are
// formatted and their code blocks numbered.
func (d *Display) PrintMessage(msg history.Message) {
	if msg.Role == history.RoleUser {
		fmt.Fprintf(d.out, "\n%s\n%s\n", d.user.Render("You"), msg.Content)
		return
	}
	fmt.Fprintf(d.out, "\n%s\n%s\n", d.bot.Render("Assistant"), d.content.Render(format.Format(msg.Content)))
}

// PrintTranscript displays every message of a transcript
func (d *Display) PrintTranscript(messages []history.Message) {
	for _, msg := range messages {
		d.PrintMessage(msg)
	}
}

// PrintHistory lists saved sessions numbered from 1, marking the active one
func (d *Display) PrintHistory(sessions []history.Session, activeID string) {
	if len(sessions) == 0 {
		d.PrintInfo("No saved chats yet")
		return
	}
	fmt.Fprintln(d.out, d.title.Render("Chat history"))
	for i, s := range sessions {
		marker := " "
		if s.ID == activeID {
			marker = "*"
		}
		fmt.Fprintf(d.out, "%s %2d. %s  %s\n", marker, i+1, s.Title, d.muted.Render(formatWhen(s.Time())))
	}
}

// RenderSession renders a whole session as markdown through glamour
func (d *Display) RenderSession(sess history.Session) (string, error) {
	var buf bytes.Buffer
	if err := (&export.MarkdownExporter{}).Export(sess, &buf); err != nil {
		return "", err
	}
	if d.md == nil {
		return buf.String(), nil
	}
	return d.md.Render(buf.String())
}

// PrintSession displays a whole session
func (d *Display) PrintSession(sess history.Session) error {
	out, err := d.RenderSession(sess)
	if err != nil {
		return err
	}
	fmt.Fprint(d.out, out)
	return nil
}

// PrintHelp lists the REPL commands
func (d *Display) PrintHelp() {
	fmt.Fprintln(d.out, d.title.Render("Commands"))
	for _, c := range terminal.Commands {
		fmt.Fprintf(d.out, "  %-16s %s\n", c.Usage, d.muted.Render(c.Help))
	}
}

// StartWaiting shows the spinner while an answer is pending
func (d *Display) StartWaiting(simplify bool) {
	msg := "Thinking"
	if simplify {
		msg = "Thinking of a simple explanation"
	}
	d.spinner.Start(msg + "...")
}

// StopWaiting clears the spinner
func (d *Display) StopWaiting() {
	d.spinner.Stop()
}

// PrintInfo displays info message
func (d *Display) PrintInfo(msg string) {
	fmt.Fprintln(d.out, d.info.Render("ℹ "+msg))
}

// PrintWarning displays warning message
func (d *Display) PrintWarning(msg string) {
	fmt.Fprintln(d.out, d.warn.Render("⚠ "+msg))
}

// PrintError displays error message
func (d *Display) PrintError(err error) {
	fmt.Fprintln(d.out, d.failure.Render(fmt.Sprintf("✗ Error: %v", err)))
}

// PrintSuccess displays success message
func (d *Display) PrintSuccess(msg string) {
	fmt.Fprintln(d.out, d.success.Render("✓ "+msg))
}

// PrintGoodbye displays goodbye message
func (d *Display) PrintGoodbye() {
	fmt.Fprintln(d.out, d.title.Render("\nGoodbye!"))
}

// Prompt returns the plain input prompt; liner does not measure ANSI codes
func Prompt(simplify bool) string {
	if simplify {
		return "simple> "
	}
	return "> "
}

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("Jan 2 15:04")
}

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
