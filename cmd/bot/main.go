package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/do/v2"

	audioimpl "github.com/foxseedlab/tsuyaku/external/audio"
	captureimpl "github.com/foxseedlab/tsuyaku/external/capture"
	configloader "github.com/foxseedlab/tsuyaku/external/config"
	"github.com/foxseedlab/tsuyaku/external/discord"
	gatewayimpl "github.com/foxseedlab/tsuyaku/external/gateway"
	transcriberimpl "github.com/foxseedlab/tsuyaku/external/transcriber"
	webhookimpl "github.com/foxseedlab/tsuyaku/external/webhook"
	"github.com/foxseedlab/tsuyaku/internal/bot"
	"github.com/foxseedlab/tsuyaku/internal/config"
	discordpkg "github.com/foxseedlab/tsuyaku/internal/discord"
	"github.com/foxseedlab/tsuyaku/internal/session"
)

const discordConnectTimeout = 20 * time.Second

func main() {
	_ = godotenv.Load()

	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "recognizer", cfg.Recognizer, "locale", cfg.RecognitionLocale)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	slog.Info("startup: launching discord bot")
	runBot(cfg, injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err == nil {
		err = cfg.ValidateBot()
	}
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	audioimpl.RegisterDI(injector)
	discord.RegisterDI(injector)
	transcriberimpl.RegisterDI(injector)
	captureimpl.RegisterDiscordDI(injector)
	gatewayimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	session.RegisterDI(injector)
	bot.RegisterDI(injector)

	return injector
}

func runBot(cfg *config.Config, injector do.Injector) {
	dc, err := do.Invoke[discordpkg.Client](injector)
	if err != nil {
		slog.Error("failed to resolve discord client", "error", err)
		os.Exit(1)
	}
	b, err := do.Invoke[*bot.Bot](injector)
	if err != nil {
		slog.Error("failed to resolve bot", "error", err)
		os.Exit(1)
	}

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), discordConnectTimeout)
	defer cancelConnect()

	slog.Info("startup: connecting to discord gateway")
	if err := dc.Connect(connectCtx); err != nil {
		slog.Error("discord connect failed", "error", err)
		os.Exit(1)
	}
	slog.Info("startup: discord connected")
	defer func() {
		if err := dc.Close(); err != nil {
			slog.Error("discord close failed", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := b.Start(ctx); err != nil {
		slog.Error("failed to register bot commands", "error", err, "guild_id", cfg.DiscordGuildID)
		os.Exit(1)
	}

	done := make(chan struct{})
	go func() {
		slog.Info("startup: entering discord run loop")
		if err := dc.Run(ctx); err != nil {
			slog.Error("discord run failed", "error", err)
		}
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case <-done:
	}
	b.Shutdown()
}
