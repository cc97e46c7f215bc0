package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/atotto/clipboard"

	"techchat/internal/chat"
	"techchat/internal/export"
	"techchat/internal/format"
	"techchat/internal/history"
	"techchat/internal/terminal"
	"techchat/internal/ui"
)

// repl maps typed lines onto controller actions and prints the results
type repl struct {
	ctrl    *chat.Controller
	display *ui.Display

	provider string
	model    string

	// copy puts text on the system clipboard
	copy func(text string) error
}

func newREPL(ctrl *chat.Controller, display *ui.Display) *repl {
	return &repl{
		ctrl:    ctrl,
		display: display,
		copy:    clipboard.WriteAll,
	}
}

func (r *repl) welcome(provider, model string) {
	r.provider, r.model = provider, model
	r.display.PrintWelcome(provider, model)

	category := r.ctrl.Snapshot().Category
	if category != "" {
		r.display.PrintSuggestions(category, chat.Suggestions(category))
		return
	}
	r.display.PrintCategories()
}

// handle runs one input line and reports whether the user asked to quit
func (r *repl) handle(ctx context.Context, line string) bool {
	cmd, ok := terminal.ParseCommand(line)
	if !ok {
		r.ask(ctx, line)
		return false
	}

	switch cmd.Name {
	case "/exit", "/quit":
		return true
	case "/new":
		r.ctrl.StartNew()
		r.display.PrintInfo("Started a new chat")
	case "/history":
		st := r.ctrl.Snapshot()
		r.display.PrintHistory(st.History, st.ActiveID)
	case "/open":
		r.open(cmd)
	case "/delete":
		r.delete(cmd)
	case "/simple":
		if r.ctrl.ToggleSimplifyMode() {
			r.display.PrintInfo("Simple explanations on")
		} else {
			r.display.PrintInfo("Simple explanations off")
		}
	case "/copy":
		r.copyCode(cmd)
	case "/export":
		r.export(cmd)
	case "/clear":
		r.display.ClearScreen()
		r.display.PrintWelcome(r.provider, r.model)
	case "/help":
		r.display.PrintHelp()
	default:
		r.display.PrintWarning(fmt.Sprintf("Unknown command %s, try /help", cmd.Name))
	}
	return false
}

func (r *repl) ask(ctx context.Context, text string) {
	r.display.StartWaiting(r.ctrl.Snapshot().SimplifyMode)
	err := r.ctrl.Submit(ctx, text)
	r.display.StopWaiting()

	switch {
	case errors.Is(err, chat.ErrEmptyInput):
		return
	case err != nil:
		r.display.PrintError(err)
		return
	}

	if msg, ok := lastAnswer(r.ctrl.Snapshot().Messages); ok {
		r.display.PrintMessage(msg)
	}
}

func (r *repl) open(cmd terminal.Command) {
	sessions := r.ctrl.Snapshot().History
	idx, err := cmd.Index(0, len(sessions))
	if err != nil {
		r.display.PrintError(err)
		return
	}
	if err := r.ctrl.SelectSession(sessions[idx].ID); err != nil {
		r.display.PrintError(err)
		return
	}
	r.display.PrintInfo("Opened: " + sessions[idx].Title)
	r.display.PrintTranscript(r.ctrl.Snapshot().Messages)
}

func (r *repl) delete(cmd terminal.Command) {
	sessions := r.ctrl.Snapshot().History
	idx, err := cmd.Index(0, len(sessions))
	if err != nil {
		r.display.PrintError(err)
		return
	}
	if err := r.ctrl.DeleteSession(sessions[idx].ID); err != nil {
		r.display.PrintError(err)
		return
	}
	r.display.PrintSuccess("Deleted: " + sessions[idx].Title)
}

func (r *repl) copyCode(cmd terminal.Command) {
	msg, ok := lastAnswer(r.ctrl.Snapshot().Messages)
	if !ok {
		r.display.PrintWarning("No answer to copy from yet")
		return
	}
	blocks := format.Format(msg.Content).CodeBlocks()
	if len(blocks) == 0 {
		r.display.PrintWarning("The last answer has no code blocks")
		return
	}
	idx := 0
	if len(cmd.Args) > 0 {
		var err error
		if idx, err = cmd.Index(0, len(blocks)); err != nil {
			r.display.PrintError(err)
			return
		}
	}
	if err := r.copy(blocks[idx].Code); err != nil {
		r.display.PrintError(fmt.Errorf("failed to copy: %w", err))
		return
	}
	r.display.PrintSuccess(fmt.Sprintf("Copied code block %d", idx+1))
}

func (r *repl) export(cmd terminal.Command) {
	sessions := r.ctrl.Snapshot().History
	idx, err := cmd.Index(0, len(sessions))
	if err != nil {
		r.display.PrintError(err)
		return
	}
	if len(cmd.Args) < 2 {
		r.display.PrintError(errors.New("usage: /export N FILE"))
		return
	}
	path := cmd.Args[1]
	if err := exportToFile(sessions[idx], path); err != nil {
		r.display.PrintError(err)
		return
	}
	r.display.PrintSuccess("Exported to " + path)
}

// exportToFile writes sess to path in the format named by its extension
func exportToFile(sess history.Session, path string) error {
	exporter, err := export.ForPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := exporter.Export(sess, f); err != nil {
		f.Close()
		return fmt.Errorf("failed to export: %w", err)
	}
	return f.Close()
}

func lastAnswer(messages []history.Message) (history.Message, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == history.RoleAssistant {
			return messages[i], true
		}
	}
	return history.Message{}, false
}
