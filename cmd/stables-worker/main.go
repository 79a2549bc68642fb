package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stables/internal/announce"
	"stables/internal/config"
	"stables/internal/game"
	"stables/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(); err != nil {
		slog.Error("load env file", "err", err)
		os.Exit(1)
	}
	cfg, err := config.LoadWorkerFromEnv()
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

	svc := game.NewService(st, logger, game.Options{
		Rules:    cfg.Rules,
		Seed:     cfg.Seed,
		Admins:   cfg.Admins,
		ResetTTL: cfg.ResetTTL,
	})

	announcers := announce.Multi{announce.NewLog(logger)}
	if cfg.DiscordToken != "" {
		discord, err := announce.NewDiscord(cfg.DiscordToken, cfg.DiscordChannelID, logger)
		if err != nil {
			logger.Error("discord init failed", "err", err)
			os.Exit(1)
		}
		defer discord.Close()
		announcers = append(announcers, discord)
	}

	w := &worker{svc: svc, trigger: cfg.Trigger, announcer: announcers, log: logger}

	if cfg.RunOnce {
		if err := w.check(ctx); err != nil {
			logger.Error("race check failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	ticker := time.NewTicker(cfg.CheckEvery)
	defer ticker.Stop()

	logger.Info("worker started", "trigger", cfg.TriggerSpec, "timezone", cfg.Timezone.String(), "check_every", cfg.CheckEvery.String())
	if err := w.check(ctx); err != nil {
		logger.Error("race check failed", "err", err)
	}
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			if err := w.check(ctx); err != nil {
				logger.Error("race check failed", "err", err)
			}
		}
	}
}
