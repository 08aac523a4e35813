package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/BetterCallFirewall/scanportal/internal/backend"
	"github.com/BetterCallFirewall/scanportal/internal/config"
	"github.com/BetterCallFirewall/scanportal/internal/logs"
	"github.com/BetterCallFirewall/scanportal/internal/web"
	"github.com/BetterCallFirewall/scanportal/internal/websocket"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "listen address (overrides WEB_LISTEN_ADDR)")
	serveCmd.Flags().String("backend", "", "backend base URL (overrides BACKEND_URL)")
	serveCmd.Flags().String("static", "", "directory of prebuilt pages (overrides STATIC_DIR)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyServeFlags(cmd, cfg)

	logger := logs.Setup(os.Stderr, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := backend.NewClient(backend.ClientConfig{
		BaseURL: cfg.Backend.URL,
		Timeout: cfg.Backend.Timeout,
	})

	hub := websocket.NewHub(cfg.Web.AllowedOrigin, logger.With("component", "websocket"))
	go hub.Run(ctx)

	server := web.NewServer(cfg, client, hub, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if err := server.Stop(context.Background()); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("listen"); v != "" {
		cfg.Web.ListenAddr = v
	}
	if v, _ := cmd.Flags().GetString("backend"); v != "" {
		cfg.Backend.URL = v
	}
	if v, _ := cmd.Flags().GetString("static"); v != "" {
		cfg.Web.StaticDir = v
	}
	cfg.Normalize()
}
