package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"gorm.io/driver/postgres"

	"github.com/maxmaster/portal-server-go/pkg/config"
	"github.com/maxmaster/portal-server-go/pkg/database"
	"github.com/maxmaster/portal-server-go/pkg/database/migrations"
	"github.com/maxmaster/portal-server-go/pkg/logger"

	// Registers the feature's schema migrations.
	_ "github.com/maxmaster/portal-server-go/internal/features/company"
)

func main() {
	list := flag.Bool("list", false, "print registered migrations and exit")
	flag.Parse()

	if *list {
		for _, name := range migrations.Names() {
			fmt.Println(name)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	db, err := database.Open(postgres.Open(cfg.Database.DSN()), appLogger, false)
	if err != nil {
		appLogger.Error("database connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close(db, appLogger)

	if err := database.Ping(context.Background(), db); err != nil {
		appLogger.Error("database ping failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := database.Migrate(db, appLogger); err != nil {
		appLogger.Error("migration failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	appLogger.Info("migrations applied", slog.Int("models", len(database.Models())), slog.Int("migrations", len(migrations.Names())))
}
