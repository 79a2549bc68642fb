package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stables/internal/api"
	"stables/internal/config"
	"stables/internal/game"
	"stables/internal/store"
	"stables/internal/supabase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(); err != nil {
		slog.Error("load env file", "err", err)
		os.Exit(1)
	}
	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("store open failed", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	authClient := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.Store.SupabaseServiceKey)
	gameSvc := game.NewService(st, logger, game.Options{
		Rules:    cfg.Rules,
		Seed:     cfg.Seed,
		Admins:   cfg.Admins,
		ResetTTL: cfg.ResetTTL,
	})

	season, err := gameSvc.Season(ctx, 0)
	if err != nil {
		logger.Error("season load failed", "err", err)
		os.Exit(1)
	}

	server := api.New(logger, authClient, gameSvc)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("stables api listening", "addr", cfg.Addr, "store", string(cfg.Store.Kind), "today", season.Today.Key())
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
