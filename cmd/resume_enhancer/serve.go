package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/resume-enhancer/internal/server"
	"github.com/jonathan/resume-enhancer/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes REST endpoints for the analyze, confirm and
enhance cycle. Each client works in its own session; idle sessions are evicted
after SESSION_IDLE_TIMEOUT.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, closeDeps, err := newDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDeps()

	srv := server.New(server.Config{
		Port:               cfg.Port,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		SessionIdleTimeout: time.Duration(cfg.SessionIdleTimeout),
	}, session.NewStore(deps), logger)

	logger.Info("starting server", zap.Int("port", cfg.Port), zap.String("output_dir", cfg.OutputDir))
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
