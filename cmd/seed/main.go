// Command seed fills the configured store with demo lost-and-found posts.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"

	"campusfeed/internal/bootstrap"
	"campusfeed/internal/config"
	"campusfeed/internal/middleware"
	"campusfeed/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	numPosts := flag.Int("posts", 20, "Number of posts to create")
	numActors := flag.Int("actors", 12, "Number of distinct actors")
	workers := flag.Int("workers", 4, "Posts seeded concurrently")
	seedValue := flag.Int64("seed", 0, "Random seed for reproducible content (0 = random)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Ignoring .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.StoreBackend == config.StoreMemory {
		log.Fatalf("STORE_BACKEND=memory would discard the seeded data; pick a persistent backend")
	}
	// Seeded likes race each other on purpose; give the loop room.
	if cfg.MaxAttempts < 25 {
		cfg.MaxAttempts = 25
	}

	middleware.Logger = middleware.NewLogger(cfg.Env)
	slog.SetDefault(middleware.Logger)

	opts := seed.Options{
		Posts:   *numPosts,
		Actors:  *numActors,
		Workers: *workers,
		Seed:    *seedValue,
	}
	if err := run(context.Background(), cfg, opts); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, opts seed.Options) error {
	rt, err := bootstrap.InitRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(ctx) }()

	sum, err := seed.NewSeeder(rt.Service, opts).Run(ctx)
	if err != nil {
		return err
	}
	log.Printf("Seeded %d posts, %d comments, %d replies, %d likes", sum.Posts, sum.Comments, sum.Replies, sum.Likes)
	return nil
}
