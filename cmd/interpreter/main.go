package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/samber/do/v2"

	audioimpl "github.com/foxseedlab/tsuyaku/external/audio"
	captureimpl "github.com/foxseedlab/tsuyaku/external/capture"
	configloader "github.com/foxseedlab/tsuyaku/external/config"
	gatewayimpl "github.com/foxseedlab/tsuyaku/external/gateway"
	"github.com/foxseedlab/tsuyaku/external/synth"
	transcriberimpl "github.com/foxseedlab/tsuyaku/external/transcriber"
	webhookimpl "github.com/foxseedlab/tsuyaku/external/webhook"
	"github.com/foxseedlab/tsuyaku/internal/config"
	"github.com/foxseedlab/tsuyaku/internal/language"
	"github.com/foxseedlab/tsuyaku/internal/session"
	"github.com/foxseedlab/tsuyaku/internal/transcription"
)

func main() {
	_ = godotenv.Load()

	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "recognizer", cfg.Recognizer, "locale", cfg.RecognitionLocale)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	runInterpreter(cfg, injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err == nil {
		err = cfg.ValidateInterpreter()
	}
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// Logs go to stderr so they do not interleave with the console on stdout.
func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	audioimpl.RegisterDI(injector)
	transcriberimpl.RegisterDI(injector)
	captureimpl.RegisterDI(injector)
	synth.RegisterDI(injector)
	gatewayimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	session.RegisterDI(injector)

	return injector
}

func runInterpreter(cfg *config.Config, injector do.Injector) {
	factory, err := do.Invoke[*session.Factory](injector)
	if err != nil {
		slog.Error("failed to resolve session factory", "error", err)
		os.Exit(1)
	}
	normalizer := do.MustInvoke[*language.Normalizer](injector)

	// Capture and speech are optional: the interpreter still translates
	// typed text without them.
	capturer, err := do.Invoke[transcription.Capturer](injector)
	if err != nil {
		slog.Warn("speech capture unavailable", "error", err)
	}
	espeak, err := do.Invoke[*synth.Espeak](injector)
	if err != nil {
		slog.Warn("speech output unavailable", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var manager *session.Manager
	if espeak != nil {
		espeak.LoadVoices(ctx)
		manager = factory.New(ctx, capturer, espeak)
	} else {
		manager = factory.New(ctx, capturer, nil)
	}
	defer manager.Close()
	manager.SetPresenter(&terminalPresenter{out: os.Stdout})
	slog.Info("startup: interpreter ready", "session_id", manager.ID())

	c := &console{ctx: ctx, manager: manager, normalizer: normalizer, defaultLocale: cfg.RecognitionLocale, out: os.Stdout}
	done := make(chan struct{})
	go func() {
		c.run(os.Stdin)
		close(done)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case <-done:
	}
}
