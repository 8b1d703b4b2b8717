// Command main seeds a development database with the founder figure and fake activity.
package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/tsamuels456/unboundedfigures/internal/config"
	"github.com/tsamuels456/unboundedfigures/internal/database"
	"github.com/tsamuels456/unboundedfigures/internal/observability"
	"github.com/tsamuels456/unboundedfigures/internal/seed"
)

func main() {
	numFigures := flag.Int("figures", 20, "Number of fake figures to create")
	numSubmissions := flag.Int("submissions", 80, "Number of fake submissions to create")
	comments := flag.Int("comments", 4, "Max comments per submission")
	views := flag.Int("views", 15, "Max views per figure")
	maxDays := flag.Int("days", 90, "Spread created_at over this many days")
	randSeed := flag.Int64("seed", 0, "Random seed (0 = random)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	if err := observability.InitLogger(observability.LogConfig{Level: cfg.LogLevel, Development: true}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer observability.Sync()
	logger := observability.L()

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() { _ = database.Close() }()

	s, err := seed.NewSeeder(db, seed.Options{
		NumFigures:            *numFigures,
		NumSubmissions:        *numSubmissions,
		CommentsPerSubmission: *comments,
		ViewsPerFigure:        *views,
		MaxDays:               *maxDays,
		FounderAuthID:         cfg.DevSeedAuthID,
		Seed:                  *randSeed,
	})
	if err != nil {
		logger.Fatal("failed to build seeder", zap.Error(err))
	}

	ctx := context.Background()
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			logger.Fatal("cleanup failed", zap.Error(err))
		}
	}

	if _, err := s.Run(ctx); err != nil {
		logger.Fatal("seeding failed", zap.Error(err))
	}
}
