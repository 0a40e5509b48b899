package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"vpn-tool-bot/internal/bot"
	"vpn-tool-bot/internal/common/config"
	"vpn-tool-bot/internal/common/logger"
	"vpn-tool-bot/internal/features/profile/service"
	"vpn-tool-bot/internal/features/profile/store"
	"vpn-tool-bot/internal/platform/installer"
	"vpn-tool-bot/internal/platform/telegram"
)

func main() {
	envFile := pflag.String("env-file", "", "load environment from this file instead of .env")
	debug := pflag.Bool("debug", false, "enable debug logging")
	pflag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("Startup error: cannot load %s: %v", *envFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		// Fatal before serving: a bot without a token or roster is useless.
		log.Fatalf("Startup error: %v", err)
	}

	logger.Init("vpn-tool-bot", cfg.Debug || *debug)
	logger.Info().
		Ints64("admin_ids", cfg.Telegram.AdminIDs).
		Str("profile_dir", cfg.Profiles.Dir).
		Msg("Starting VPN tool bot")

	if !cfg.Debug && !*debug {
		gin.SetMode(gin.ReleaseMode)
	}

	st := store.New(cfg.Profiles.Dir, cfg.Profiles.StaleAfter)
	if err := st.Bootstrap(); err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.Profiles.Dir).Msg("Failed to create profile directory")
	}

	client := telegram.NewClient(cfg.Telegram.APIKey)
	runner := installer.New(cfg.Profiles.Script, cfg.Profiles.Dir, cfg.Profiles.DNS)
	profiles := service.New(st, runner)
	gate := bot.NewGate(cfg.Telegram.AdminIDs, cfg.Telegram.UsersGroupID, client, cfg.Telegram.SilentReject)
	router := bot.NewRouter(gate, profiles, client)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Server.PublicDomain != "" {
		webhookURL := fmt.Sprintf("https://%s%s", cfg.Server.PublicDomain, telegram.WebhookPath)
		if err := client.SetWebhook(ctx, webhookURL); err != nil {
			logger.Fatal().Err(err).Str("url", webhookURL).Msg("Failed to register webhook")
		}
		logger.Info().Str("url", webhookURL).Msg("Webhook registered")

		if err := telegram.NewWebhook(router.HandleUpdate, cfg.Server.Port).Run(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Webhook server failed")
		}
	} else {
		// A lingering webhook blocks getUpdates.
		if err := client.DeleteWebhook(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to delete webhook")
		}
		telegram.NewPoller(client, router.HandleUpdate).Run(ctx)
	}

	logger.Info().Msg("Bot stopped")
}
