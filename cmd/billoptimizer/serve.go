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

	"github.com/bher20/billoptimizer/internal/alerting"
	"github.com/bher20/billoptimizer/internal/api"
	"github.com/bher20/billoptimizer/internal/auth"
	"github.com/bher20/billoptimizer/internal/cache"
	"github.com/bher20/billoptimizer/internal/cron"
	"github.com/bher20/billoptimizer/internal/migrate"
	"github.com/bher20/billoptimizer/internal/notification"
	"github.com/bher20/billoptimizer/internal/predict"
	"github.com/bher20/billoptimizer/internal/storage"
	"github.com/bher20/billoptimizer/internal/tariff"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	seed, err := seedTable()
	if err != nil {
		return err
	}

	if cfg.DB.AutoMigrate && cfg.DB.Driver != "memory" {
		migrate.SetLogger(logger)
		if err := migrate.Up(ctx, cfg.DB.Driver, cfg.DB.DSN); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	st, err := storage.Open(ctx, storage.Config{
		Driver: cfg.DB.Driver,
		DSN:    cfg.DB.DSN,
		Slabs:  tariff.SlabsFromTable(seed, time.Now()),
	}, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer st.Close()

	c, err := cache.New(cache.Options{
		Type:          cache.Type(cfg.Cache.Driver),
		RedisAddr:     cfg.Cache.RedisAddr,
		RedisPassword: cfg.Cache.RedisPassword,
	}, logger)
	if err != nil {
		return err
	}
	cacheTTL, err := time.ParseDuration(cfg.Cache.TTL)
	if err != nil {
		return fmt.Errorf("cache ttl: %w", err)
	}

	tariffs := tariff.NewServiceWithStorage(seed, st, c, cacheTTL, logger)

	sessionTTL, err := auth.ParseTTL(cfg.Auth.SessionTTL)
	if err != nil {
		return fmt.Errorf("session ttl: %w", err)
	}
	resetTTL, err := auth.ParseTTL(cfg.Auth.ResetTTL)
	if err != nil {
		return fmt.Errorf("reset ttl: %w", err)
	}
	mailer := notification.NewService(cfg.Email, logger)
	authSvc, err := auth.NewService(st, mailer, auth.Options{
		SessionTTL: sessionTTL,
		ResetTTL:   resetTTL,
		ResetURL:   cfg.Auth.ResetURL,
	}, logger)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if cfg.Auth.AdminEmail != "" {
		if err := authSvc.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	worker := cron.NewWorker(st, alerting.NewAlerter(cfg.Alert, logger), logger)
	go func() {
		job := cron.CleanupJob(st, time.Now)
		err := worker.Run(ctx, cfg.Cron.CleanupSchedule, job)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("cron: scheduler stopped", zap.Error(err))
		}
	}()

	mux := api.NewMux(api.Deps{
		Tariffs: tariffs,
		Predict: predict.NewService(tariffs, st, logger),
		Auth:    authSvc,
		Store:   st,
		Log:     logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("billoptimizer listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
