package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/dom/rbac-backend/internal/auth"
	"github.com/dom/rbac-backend/internal/config"
	"github.com/dom/rbac-backend/internal/logging"
	"github.com/dom/rbac-backend/internal/repository/postgres"
	"github.com/dom/rbac-backend/internal/seed"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	path := flag.String("file", cfg.SeedFile, "path to the seed YAML file")
	flag.Parse()

	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	file, err := seed.LoadFile(*path)
	if err != nil {
		log.Fatalf("failed to read seed file: %v", err)
	}

	db, err := postgres.NewConnection(cfg.DatabaseURL, log, logging.GormLevel(log))
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get database handle: %v", err)
	}
	defer sqlDB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	seeder := seed.NewSeeder(postgres.NewRepositories(db), auth.NewBcryptHasher(auth.DefaultCost), log)
	if _, err := seeder.Apply(ctx, file); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}

	log.WithField("file", *path).Info("database seeded")
}
