package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloudpad/cloudpad"
	"github.com/cloudpad/cloudpad/config"
	cloudpadhttp "github.com/cloudpad/cloudpad/http"
	"github.com/cloudpad/cloudpad/keybackend"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the cloudpad HTTP server on the configured bucket.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8787, "HTTP server port")
	serveCmd.Flags().Int64("max-upload-size", 0, "maximum upload size in bytes, 0 for no limit")
	serveCmd.Flags().Bool("metrics", false, "expose Prometheus metrics")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	tokens, err := keybackend.NewTokenStore(cfg.Auth.TokenConfig())
	if err != nil {
		return fmt.Errorf("load access token: %w", err)
	}

	bucket, closeBucket, err := openBucket(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeBucket(); err != nil {
			slog.Warn("close bucket", "err", err)
		}
	}()

	service, err := cloudpad.NewFileService(bucket)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	handlerConfig := cloudpadhttp.HandlerConfig{
		Verifier:      tokens,
		TokenHeader:   cfg.Auth.Header,
		MaxUploadSize: cfg.Server.MaxUploadSize,
		CORS:          cfg.CORS,
	}
	if cfg.Metrics.Enabled {
		handlerConfig.Metrics = cloudpadhttp.NewMetrics()
		handlerConfig.MetricsPath = cfg.Metrics.Path
	}

	handler := cloudpadhttp.NewHandler(&handlerConfig, service)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server",
		"addr", addr,
		"bucket", cfg.Bucket.Type,
		"max_upload_size", cfg.Server.MaxUploadSize,
		"metrics", cfg.Metrics.Enabled,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
