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

	"github.com/joho/godotenv"
	"github.com/samber/do/v2"

	configloader "github.com/foxseedlab/tsuyaku/external/config"
	openaiimpl "github.com/foxseedlab/tsuyaku/external/openai"
	repositoryimpl "github.com/foxseedlab/tsuyaku/external/repository"
	"github.com/foxseedlab/tsuyaku/external/server"
	"github.com/foxseedlab/tsuyaku/internal/config"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "addr", cfg.GatewayAddr, "model", cfg.OpenAIModel, "audit_log", cfg.DatabaseURL != "")

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	slog.Info("startup: launching translation gateway")
	runServer(injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err == nil {
		err = cfg.ValidateGateway()
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
	repositoryimpl.RegisterDI(injector)
	openaiimpl.RegisterDI(injector)
	server.RegisterDI(injector)

	return injector
}

func runServer(injector do.Injector) {
	srv, err := do.Invoke[*http.Server](injector)
	if err != nil {
		slog.Error("failed to build http server", "error", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("startup: listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case err, ok := <-errCh:
		if ok {
			slog.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}
