package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"poholowani/internal/api"
	"poholowani/internal/cleanup"
	"poholowani/internal/config"
	"poholowani/internal/db"
	"poholowani/internal/notify"
	"poholowani/internal/realtime"
	"poholowani/internal/repository/gormrepo"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	return cmd
}

// newBus returns the change feed selected by the config.
func newBus(ctx context.Context, cfg config.RealtimeConfig) (realtime.Bus, func(), error) {
	if cfg.Bus != "redis" {
		return realtime.NewMemoryBus(), func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	bus, err := realtime.NewRedisBus(ctx, rdb, cfg.Channel)
	if err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	return bus, func() { _ = rdb.Close() }, nil
}

func serve(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close(conn)

	bus, closeRedis, err := newBus(ctx, cfg.Realtime)
	if err != nil {
		return err
	}
	defer closeRedis()
	defer bus.Close()

	notifier, err := notify.FromConfig(cfg.Notify)
	if err != nil {
		return err
	}

	server := api.NewServer(gin.Default(), api.Deps{
		Config:   cfg,
		Repos:    gormrepo.New(conn),
		Bus:      bus,
		Notifier: notifier,
	})
	defer server.Close()

	if cfg.Cleanup.Schedule != "" {
		scheduler, err := cleanup.NewScheduler(cfg.Cleanup.Schedule, server.Cleanup)
		if err != nil {
			return err
		}
		scheduler.OnFailure(server.Notifications.NotifyCleanupFailed)
		scheduler.Start()
		log.Printf("[CLEANUP] Scheduled %q, next run at %s", cfg.Cleanup.Schedule, scheduler.Next().Format(time.RFC3339))
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			scheduler.Stop(stopCtx)
		}()
	}

	// No WriteTimeout: websocket connections are long-lived and set their
	// own write deadlines.
	httpServer := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           server.Engine,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting Poholowani server on %s (db: %s, bus: %s)", cfg.Server.Port, cfg.Database.Driver, cfg.Realtime.Bus)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Printf("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("serve: shutdown: %w", err)
	}
	return nil
}
