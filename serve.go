package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"iracgo/internal/api"
	"iracgo/internal/cache"
	"iracgo/internal/config"
	"iracgo/internal/extract"
	"iracgo/internal/prompt"
	"iracgo/internal/service/ai"
)

const shutdownGrace = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := newLogger(opts.debug)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := cache.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	defer func() { _ = store.Close() }()

	extractor, err := extract.NewExtractor(ctx)
	if err != nil {
		return err
	}
	builder, err := prompt.NewBuilder(cfg.BasicConfig.PromptCharBudget)
	if err != nil {
		return err
	}
	completer, err := ai.NewCompleter(ctx, cfg)
	if err != nil {
		return err
	}

	handler := api.NewHandler(cfg, logger, extractor, builder, completer, store)
	srv := &http.Server{
		Addr:              cfg.BasicConfig.ServerAddress,
		Handler:           api.NewRouter(handler, cfg.BasicConfig.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening",
			zap.String("addr", srv.Addr),
			zap.String("provider", cfg.Completion.Provider),
			zap.String("model", cfg.Completion.Model),
			zap.String("cache", cfg.Cache.Backend),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
