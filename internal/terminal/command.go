// Package terminal reads REPL input: edited prompt lines and slash commands.
package terminal

import (
	"fmt"
	"strconv"
	"strings"
)

// Command is a parsed slash command
type Command struct {
	Name string
	Args []string
}

// Commands lists the REPL commands with a short description, in help order
var Commands = []struct {
	Name  string
	Usage string
	Help  string
}{
	{"/new", "/new", "start a new chat"},
	{"/history", "/history", "list saved chats"},
	{"/open", "/open N", "open chat N from the list"},
	{"/delete", "/delete N", "delete chat N from the list"},
	{"/simple", "/simple", "toggle simple explanations"},
	{"/copy", "/copy N", "copy code block N of the last answer"},
	{"/export", "/export N FILE", "export chat N (.md, .json or .yaml)"},
	{"/clear", "/clear", "clear the screen"},
	{"/help", "/help", "show this help"},
	{"/exit", "/exit", "quit"},
}

// ParseCommand splits a slash command line. ok is false for ordinary input.
func ParseCommand(line string) (cmd Command, ok bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return Command{}, false
	}
	fields := strings.Fields(line)
	return Command{Name: strings.ToLower(fields[0]), Args: fields[1:]}, true
}

// Index parses argument i as a 1-based position no greater than n and
// returns it 0-based
func (c Command) Index(i, n int) (int, error) {
	if i >= len(c.Args) {
		return 0, fmt.Errorf("usage: %s", c.usage())
	}
	v, err := strconv.Atoi(c.Args[i])
	if err != nil || v < 1 || v > n {
		return 0, fmt.Errorf("%q is not a number between 1 and %d", c.Args[i], n)
	}
	return v - 1, nil
}

func (c Command) usage() string {
	for _, known := range Commands {
		if known.Name == c.Name {
			return known.Usage
		}
	}
	return c.Name
}

func completeCommand(line string) []string {
	if !strings.HasPrefix(line, "/") || strings.Contains(line, " ") {
		return nil
	}
	var out []string
	for _, known := range Commands {
		if strings.HasPrefix(known.Name, line) {
			out = append(out, known.Name)
		}
	}
	return out
}
