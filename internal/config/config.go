package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Provider names accepted by Config.Provider
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Default models per provider
const (
	DefaultGeminiModel = "gemini-2.0-flash"
	DefaultOllamaModel = "llama3.2"
)

// Storage backends accepted by Config.Storage
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// Config holds all application configuration
type Config struct {
	// Answer provider settings
	Provider       string        `toml:"provider"`
	ModelName      string        `toml:"model"`
	RequestTimeout time.Duration `toml:"request_timeout"`

	// Ollama settings
	OllamaURL string `toml:"ollama_url"`

	// Gemini settings
	GeminiURL         string `toml:"gemini_url"`
	GeminiAPIKey      string `toml:"-"`
	RequestsPerMinute int    `toml:"requests_per_minute"`

	// History settings
	DataDir        string `toml:"data_dir"`
	Storage        string `toml:"storage"`
	MaxHistorySize int    `toml:"max_history_size"`

	// Server settings
	ListenAddr string `toml:"listen_addr"`
	AuthToken  string `toml:"auth_token"`

	// Feature flags
	SimplifyByDefault bool `toml:"simplify"`
	Verbose           bool `toml:"verbose"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Provider:       ProviderGemini,
		ModelName:      DefaultGeminiModel,
		RequestTimeout: 60 * time.Second,

		OllamaURL: "http://localhost:11434",

		GeminiURL:         "https://generativelanguage.googleapis.com",
		RequestsPerMinute: 15,

		DataDir:        expandHome("~/.techchat"),
		Storage:        StorageFile,
		MaxHistorySize: 50,

		ListenAddr: "127.0.0.1:8080",
	}
}

// DefaultPath returns the config file location inside the default data dir
func DefaultPath() string {
	return expandHome("~/.techchat/config.toml")
}

// LoadFile overlays values from a TOML file onto c. A missing file is not an error.
func (c *Config) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.DataDir = expandHome(c.DataDir)
	return nil
}

// ApplyEnv overlays values from environment variables onto c
func (c *Config) ApplyEnv() {
	if v := GetEnv("TECHCHAT_PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}
	if v := GetEnv("TECHCHAT_MODEL"); v != "" {
		c.ModelName = v
	}
	if v := GetEnv("TECHCHAT_DATA_DIR"); v != "" {
		c.DataDir = expandHome(v)
	}
	if v := GetEnv("OLLAMA_HOST"); v != "" {
		if !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
			v = "http://" + v
		}
		c.OllamaURL = v
	}
	if v := GetEnv("GEMINI_API_KEY"); v != "" {
		c.GeminiAPIKey = v
	}
}

// ApplyProviderDefaults swaps the default gemini model for the default ollama
// model when ollama was selected without naming a model
func (c *Config) ApplyProviderDefaults() {
	if c.Provider == ProviderOllama && c.ModelName == DefaultGeminiModel {
		c.ModelName = DefaultOllamaModel
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("gemini provider requires GEMINI_API_KEY")
		}
		if c.GeminiURL == "" {
			return fmt.Errorf("gemini URL cannot be empty")
		}
		if c.RequestsPerMinute < 1 {
			return fmt.Errorf("requests per minute must be at least 1")
		}
	case ProviderOllama:
		if c.OllamaURL == "" {
			return fmt.Errorf("ollama URL cannot be empty")
		}
	default:
		return fmt.Errorf("unknown provider %q (supported: %s, %s)", c.Provider, ProviderGemini, ProviderOllama)
	}
	if c.ModelName == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	return c.ValidateStorage()
}

// ValidateStorage checks only the history settings. Commands that never talk
// to the answer provider use it instead of Validate.
func (c *Config) ValidateStorage() error {
	if c.DataDir == "" {
		return fmt.Errorf("data dir cannot be empty")
	}
	if c.Storage != StorageFile && c.Storage != StorageSQLite {
		return fmt.Errorf("unknown storage %q (supported: %s, %s)", c.Storage, StorageFile, StorageSQLite)
	}
	if c.MaxHistorySize < 1 {
		return fmt.Errorf("max history size must be at least 1")
	}
	return nil
}

// HistoryPath returns the file that holds the serialized history for the
// configured storage backend
func (c *Config) HistoryPath() string {
	if c.Storage == StorageSQLite {
		return filepath.Join(c.DataDir, "history.db")
	}
	return filepath.Join(c.DataDir, "chatHistory.json")
}

// expandHome expands the ~ in file paths to the user's home directory
func expandHome(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir := getHomeDir()
		return homeDir + path[1:]
	}
	return path
}

// getHomeDir returns the user's home directory
func getHomeDir() string {
	if home := GetEnv("HOME"); home != "" {
		return home
	}
	// Fallback for Windows
	if home := GetEnv("USERPROFILE"); home != "" {
		return home
	}
	return "."
}

// GetEnv is a wrapper around os.Getenv for easier testing
var GetEnv = os.Getenv
