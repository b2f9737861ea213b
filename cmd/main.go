package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatrooms/backend/internal/api/handler"
	"chatrooms/backend/internal/chathub"
	"chatrooms/backend/internal/config"
	"chatrooms/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	log := cfg.Logger()
	slog.SetDefault(log)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := storage.NewMemoryStore(
		storage.WithDefaultLimit(cfg.DefaultMessageLimit),
		storage.WithLogger(log),
	)

	pump, closeMirror, err := setupMirror(ctx, cfg, log)
	if err != nil {
		log.Error("redis mirror unavailable", "addr", cfg.RedisAddr, "error", err)
		return 1
	}
	defer closeMirror()

	hub := chathub.NewManagerService(
		store,
		chathub.NewPresenceRegistry(cfg.EvictReplacedSessions, log),
		chathub.NewRoomBroadcaster(pump, log),
		chathub.GatewayOptions{
			WriteThrough:            cfg.WriteThrough,
			NotifyLeaveOnDisconnect: cfg.NotifyLeaveOnDisconnect,
		},
		log,
	)

	h := handler.NewHandler(hub, store, cfg, log)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("chat server listening", "addr", cfg.HTTPAddr, "write_through", cfg.WriteThrough)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error("http server failed", "error", err)
			return 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}
	hub.Shutdown(shutdownCtx)
	log.Info("chat server stopped")
	return 0
}

// setupMirror connects the Redis event mirror when REDIS_ADDR is set. A nil
// pump disables mirroring.
func setupMirror(ctx context.Context, cfg *config.Config, log *slog.Logger) (*chathub.MirrorPump, func(), error) {
	if cfg.RedisAddr == "" {
		return nil, func() {}, nil
	}

	rdb, err := storage.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}

	pump := chathub.NewMirrorPump(storage.NewRedisMirror(rdb, cfg.RedisChannelPrefix), cfg.SendBufferSize, log)
	go pump.Run(ctx)
	log.Info("redis event mirror enabled", "addr", cfg.RedisAddr, "prefix", cfg.RedisChannelPrefix)

	return pump, func() {
		if err := rdb.Close(); err != nil {
			log.Warn("redis close", "error", err)
		}
	}, nil
}
