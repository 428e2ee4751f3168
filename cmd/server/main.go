package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/housei/dashboard/adapters/mqtt"
	"github.com/housei/dashboard/config"
	"github.com/housei/dashboard/internal/api"
	"github.com/housei/dashboard/internal/auth"
	"github.com/housei/dashboard/internal/bootstrap"
	"github.com/housei/dashboard/internal/logging"
	"github.com/housei/dashboard/internal/viewmodel"
	"github.com/housei/dashboard/internal/websocket"
	"github.com/housei/dashboard/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	flagSet := pflag.NewFlagSet("housei-server", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "housei.yaml", "path to the YAML configuration file")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Initialize logger
	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret (or JWT_SECRET) is required")
	}
	ttl, _ := cfg.TokenTTL()
	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, ttl)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize adapters
	stores, err := bootstrap.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	// Initialize usecase services
	fallback := usecase.Credentials{Email: cfg.Auth.FallbackEmail, Password: cfg.Auth.FallbackPassword}
	deviceService := usecase.NewDeviceService(stores.Devices, logger)
	adminService := usecase.NewAdminService(stores.Admins, fallback, logger)
	telemetryService := usecase.NewTelemetryService(stores.Devices, logger)

	// Shared registry for the HTTP list and dashboard reads
	registry := viewmodel.NewRegistry(stores.Devices, logger)
	if err := registry.Activate(ctx); err != nil {
		logger.Error("Dashboard registry unavailable", zap.Error(err))
	}
	defer registry.Release()

	hub := websocket.NewHub(stores.Devices, logger)
	go hub.Run(ctx)

	if cfg.MQTT.Enabled {
		client, err := mqtt.Connect(mqtt.Options{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		}, logger)
		if err != nil {
			return err
		}
		ingestor := mqtt.NewIngestor(client, telemetryService, logger)
		if err := ingestor.Start(); err != nil {
			client.Disconnect(250)
			return err
		}
		defer ingestor.Stop()

		staleAfter, interval, _ := cfg.SweepTimings()
		sweeper := usecase.NewOfflineSweeper(stores.Devices, telemetryService, staleAfter, interval, logger)
		if err := sweeper.Start(); err != nil {
			return err
		}
		defer sweeper.Stop()
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize API routes
	api.InitRoutes(e, api.Dependencies{
		Devices:    deviceService,
		Admins:     adminService,
		Tokens:     tokens,
		Hub:        hub,
		Registry:   registry,
		SetupToken: cfg.Auth.SetupToken,
		Logger:     logger,
	})

	// Graceful shutdown
	serverErr := make(chan error, 1)
	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Mode),
		zap.Bool("mqtt", cfg.MQTT.Enabled))

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		logger.Error("HTTP server failed", zap.Error(err))
		return err
	}

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server exited")
	return nil
}
