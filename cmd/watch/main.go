// Command watch tails interaction events from Redis, for debugging.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"campusfeed/internal/cache"
	"campusfeed/internal/config"
	"campusfeed/internal/middleware"
	"campusfeed/internal/models"
	"campusfeed/internal/notifications"

	"github.com/joho/godotenv"
)

func main() {
	postID := flag.String("post", "", "Only show events for this post (default: all posts)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Ignoring .env: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.RedisURL == "" {
		log.Fatalf("REDIS_URL is not set; events are only published through Redis")
	}
	middleware.Logger = middleware.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() { _ = rdb.Close() }()

	notifier := notifications.NewNotifier(rdb)
	err = notifier.Subscribe(ctx, *postID, func(e models.InteractionEvent) {
		attrs := []any{
			slog.String("type", e.Type),
			slog.String("post_id", e.PostID),
			slog.String("target", e.Target),
			slog.String("actor_id", e.ActorID),
			slog.Uint64("version", e.Version),
		}
		if e.LikeCount != nil {
			attrs = append(attrs, slog.Int("like_count", *e.LikeCount))
		}
		middleware.Logger.Info("event", attrs...)
	})
	if err != nil {
		log.Fatalf("Subscribe failed: %v", err)
	}

	middleware.Logger.Info("watching interaction events", slog.String("post_id", *postID))
	<-ctx.Done()
}
