package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trestle/internal/auth"
	"trestle/internal/cache"
	"trestle/internal/club"
	"trestle/internal/config"
	"trestle/internal/db"
	httpx "trestle/internal/http"
	"trestle/internal/logger"
	"trestle/internal/outbox"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.Setup(cfg.LogLevel)
	slog.SetDefault(log)

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}

	jwtSvc := auth.NewJWT(cfg.JWTSecret)

	outboxSvc := outbox.NewService(outbox.NewGormRepository(gdb))
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		outboxSvc = outboxSvc.WithSentRecorder(cache.NewRedisCache(rdb, cfg.RedisTTL))
		log.Info("sent-mail cache enabled", "addr", cfg.RedisAddr)
	}

	clubSvc := club.NewService(club.NewGormStore(gdb)).WithMailer(outboxSvc)

	r := httpx.NewRouter(cfg, gdb, jwtSvc, outboxSvc, clubSvc)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("shut down")
}
