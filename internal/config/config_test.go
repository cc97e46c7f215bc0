package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, env map[string]string) {
	t.Helper()
	prev := GetEnv
	GetEnv = func(key string) string { return env[key] }
	t.Cleanup(func() { GetEnv = prev })
}

func TestNewConfigDefaults(t *testing.T) {
	withEnv(t, map[string]string{"HOME": "/home/tester"})

	cfg := NewConfig()
	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.Equal(t, 50, cfg.MaxHistorySize)
	assert.Equal(t, "/home/tester/.techchat", cfg.DataDir)
	assert.Equal(t, StorageFile, cfg.Storage)
	assert.Equal(t, "/home/tester/.techchat/chatHistory.json", cfg.HistoryPath())
}

func TestValidate(t *testing.T) {
	cfg := NewConfig()
	require.Error(t, cfg.Validate(), "gemini without key must fail")

	cfg.GeminiAPIKey = "k"
	require.NoError(t, cfg.Validate())

	cfg.Provider = "openai"
	require.Error(t, cfg.Validate())

	cfg.Provider = ProviderOllama
	cfg.GeminiAPIKey = ""
	require.NoError(t, cfg.Validate())

	cfg.Storage = "redis"
	require.Error(t, cfg.Validate())
}

func TestApplyEnv(t *testing.T) {
	withEnv(t, map[string]string{
		"HOME":              "/h",
		"TECHCHAT_PROVIDER": "OLLAMA",
		"TECHCHAT_MODEL":    "llama3",
		"OLLAMA_HOST":       "10.0.0.2:11434",
		"GEMINI_API_KEY":    "secret",
		"TECHCHAT_DATA_DIR": "~/chats",
	})

	cfg := NewConfig()
	cfg.ApplyEnv()

	assert.Equal(t, ProviderOllama, cfg.Provider)
	assert.Equal(t, "llama3", cfg.ModelName)
	assert.Equal(t, "http://10.0.0.2:11434", cfg.OllamaURL)
	assert.Equal(t, "secret", cfg.GeminiAPIKey)
	assert.Equal(t, "/h/chats", cfg.DataDir)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
provider = "ollama"
model = "qwen2.5-coder"
request_timeout = "90s"
storage = "sqlite"
simplify = true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	cfg := NewConfig()
	require.NoError(t, cfg.LoadFile(path))

	assert.Equal(t, ProviderOllama, cfg.Provider)
	assert.Equal(t, "qwen2.5-coder", cfg.ModelName)
	assert.Equal(t, 90*time.Second, cfg.RequestTimeout)
	assert.Equal(t, StorageSQLite, cfg.Storage)
	assert.True(t, cfg.SimplifyByDefault)
	assert.Equal(t, filepath.Join(cfg.DataDir, "history.db"), cfg.HistoryPath())
}

func TestLoadFileMissing(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.LoadFile(filepath.Join(t.TempDir(), "nope.toml")))
	assert.Equal(t, ProviderGemini, cfg.Provider)
}

func TestLoadFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("provider = "), 0600))

	cfg := NewConfig()
	require.Error(t, cfg.LoadFile(path))
}

func TestApplyProviderDefaults(t *testing.T) {
	cfg := NewConfig()
	cfg.ApplyProviderDefaults()
	assert.Equal(t, DefaultGeminiModel, cfg.ModelName)

	cfg.Provider = ProviderOllama
	cfg.ApplyProviderDefaults()
	assert.Equal(t, DefaultOllamaModel, cfg.ModelName)

	cfg.ModelName = "mistral"
	cfg.ApplyProviderDefaults()
	assert.Equal(t, "mistral", cfg.ModelName)
}
