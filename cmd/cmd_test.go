package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techchat/internal/history"
	"techchat/internal/logger"
)

// run executes the root command against an isolated data dir
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	exportFormat, exportOut, clearYes = "md", "", false

	var out bytes.Buffer
	rootCmd.SetArgs(append(args, "--data-dir", dir, "--config", filepath.Join(dir, "config.toml"), "--storage", "file"))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	err := rootCmd.Execute()
	return out.String(), err
}

func seed(t *testing.T, dir string, sessions ...history.Session) {
	t.Helper()
	backend, err := history.NewFileBackend(dir)
	require.NoError(t, err)
	store := history.NewStore(backend, history.DefaultMaxSessions, logger.Discard())
	for i := len(sessions) - 1; i >= 0; i-- {
		require.NoError(t, store.Save(sessions[i]))
	}
}

func sampleSession(id, question string) history.Session {
	return history.Session{
		ID:        id,
		Title:     history.MakeTitle(question),
		Timestamp: "2025-03-01T12:00:00.000Z",
		Messages: []history.Message{
			{Role: history.RoleUser, Content: question},
			{Role: history.RoleAssistant, Content: "An answer about " + question},
		},
	}
}

func TestHistoryListEmpty(t *testing.T) {
	out, err := run(t, t.TempDir(), "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved chats")
}

func TestHistoryList(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, sampleSession("b", "What is recursion?"), sampleSession("a", "What is pandas?"))

	out, err := run(t, dir, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "TITLE")
	assert.Contains(t, out, "What is recursion?")
	assert.Contains(t, out, "What is pandas?")
	assert.Less(t, bytes.Index([]byte(out), []byte("recursion")), bytes.Index([]byte(out), []byte("pandas")))
}

func TestHistoryExportJSON(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, sampleSession("a", "What is pandas?"))

	out, err := run(t, dir, "history", "export", "1", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "What is pandas?"`)
}

func TestHistoryExportUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, sampleSession("a", "What is pandas?"))

	_, err := run(t, dir, "history", "export", "a", "--format", "pdf")
	assert.Error(t, err)
}

func TestHistoryShow(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, sampleSession("a", "What is pandas?"))

	out, err := run(t, dir, "history", "show", "a")
	require.NoError(t, err)
	assert.Contains(t, out, "An answer about What is pandas?")
}

func TestHistoryDelete(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, sampleSession("a", "What is pandas?"))

	out, err := run(t, dir, "history", "delete", "a")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted")

	out, err = run(t, dir, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved chats")

	_, err = run(t, dir, "history", "delete", "a")
	assert.Error(t, err)
}

func TestHistoryClear(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, sampleSession("a", "What is pandas?"))

	_, err := run(t, dir, "history", "clear")
	require.Error(t, err, "clear needs --yes")

	_, err = run(t, dir, "history", "clear", "--yes")
	require.NoError(t, err)

	out, err := run(t, dir, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved chats")
}

func TestChatRejectsUnknownCategory(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test")
	_, err := run(t, t.TempDir(), "chat", "--category", "Cooking")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown category")
	chatCategory = ""
}
