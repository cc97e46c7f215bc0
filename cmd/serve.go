package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"techchat/internal/answer"
	"techchat/internal/config"
	"techchat/internal/history"
	"techchat/internal/ws"
)

var (
	serveListen string
	serveToken  string
	serveDev    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve chats to a browser over WebSocket JSON-RPC",
	Long: `Serve chats over JSON-RPC 2.0 on a WebSocket at /ws.

Each connection gets its own chat state; all connections share the history.
GET /health returns "ok". When a token is set, the first call on a connection
must be "auth" with {"token": "..."}.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default from config, 127.0.0.1:8080)")
	serveCmd.Flags().StringVar(&serveToken, "token", "", "Shared token required by the auth call")
	serveCmd.Flags().BoolVar(&serveDev, "dev", false, "Accept WebSocket upgrades from any origin")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("listen") {
		cfg.ListenAddr = serveListen
	}
	if cmd.Flags().Changed("token") {
		cfg.AuthToken = serveToken
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	store, closeStore, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := ws.NewServer(store, answer.NewService(newGenerator(cfg), log), cfg.AuthToken, log)
	srv.SimplifyByDefault = cfg.SimplifyByDefault
	srv.InsecureSkipVerify = serveDev

	// Other processes may write the same history file
	if cfg.Storage == config.StorageFile {
		go func() {
			if err := history.Watch(ctx, cfg.HistoryPath(), srv.RefreshAll, log); err != nil {
				log.Warn("history watcher stopped", "error", err)
			}
		}()
	}

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	}()

	log.Info("server listening", "addr", cfg.ListenAddr, "provider", cfg.Provider, "model", cfg.ModelName, "auth", cfg.AuthToken != "")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}
