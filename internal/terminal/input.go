package terminal

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
)

// ErrAborted is returned by ReadLine when the user presses Ctrl+C
var ErrAborted = errors.New("input aborted")

// Input reads prompt lines with editing and an input history that survives
// restarts
type Input struct {
	line        *liner.State
	historyFile string
}

// NewInput creates a line reader. historyFile may be empty to keep input
// history in memory only.
func NewInput(historyFile string) *Input {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completeCommand)

	in := &Input{
		line:        line,
		historyFile: historyFile,
	}
	in.loadHistory()
	return in
}

func (in *Input) loadHistory() {
	if in.historyFile == "" {
		return
	}
	if f, err := os.Open(in.historyFile); err == nil {
		_, _ = in.line.ReadHistory(f)
		f.Close()
	}
}

// ReadLine reads a line of input from the user. Ctrl+C yields ErrAborted and
// Ctrl+D yields io.EOF.
func (in *Input) ReadLine(prompt string) (string, error) {
	text, err := in.line.Prompt(prompt)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", ErrAborted
		}
		return "", err
	}

	if strings.TrimSpace(text) != "" {
		in.line.AppendHistory(text)
	}
	return text, nil
}

// Close saves the input history and restores the terminal
func (in *Input) Close() error {
	if in.historyFile != "" {
		if err := os.MkdirAll(filepath.Dir(in.historyFile), 0o755); err == nil {
			if f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
				_, _ = in.line.WriteHistory(f)
				f.Close()
			}
		}
	}
	return in.line.Close()
}

// IsEOF reports whether err means the input stream has ended
func IsEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
