package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"techchat/internal/config"
	"techchat/internal/logger"
)

var (
	cfgFile     string
	verbose     bool
	dataDir     string
	storageFlag string
	provider    string
	model       string
	version     = "dev"

	cfg *config.Config
	log *slog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "techchat",
	Short: "Technical Q&A chat assistant",
	Long: `techchat answers technical questions with an AI model and keeps your
conversations so you can revisit, export or delete them.

Quick Start:
  techchat chat                          # Interactive chat
  techchat chat --category Programming   # Start with topic suggestions
  techchat serve                         # WebSocket JSON-RPC server for a browser UI
  techchat history list                  # Saved conversations

Configuration is read from ~/.techchat/config.toml, then the environment
(TECHCHAT_PROVIDER, TECHCHAT_MODEL, GEMINI_API_KEY, OLLAMA_HOST,
TECHCHAT_DATA_DIR, also from a .env file), then flags.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.techchat/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding chat history")
	rootCmd.PersistentFlags().StringVar(&storageFlag, "storage", "", "History storage backend (file, sqlite)")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "Answer provider (gemini, ollama)")
	rootCmd.PersistentFlags().StringVarP(&model, "model", "m", "", "Model name")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// loadConfig builds cfg from defaults, the config file, the environment and
// flags, in that order, and sets up logging
func loadConfig(cmd *cobra.Command) error {
	// A missing .env file is normal
	_ = godotenv.Load()

	c := config.NewConfig()
	path := cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	if err := c.LoadFile(path); err != nil {
		return err
	}
	c.ApplyEnv()

	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		c.DataDir = dataDir
	}
	if flags.Changed("storage") {
		c.Storage = storageFlag
	}
	if flags.Changed("provider") {
		c.Provider = provider
	}
	if flags.Changed("model") {
		c.ModelName = model
	}
	if verbose {
		c.Verbose = true
	}
	c.ApplyProviderDefaults()

	cfg = c
	log = logger.Setup(os.Stderr, c.Verbose)
	log.Debug("configuration loaded", "file", path, "provider", c.Provider, "model", c.ModelName, "storage", c.Storage, "dataDir", c.DataDir)
	return nil
}
