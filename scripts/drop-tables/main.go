package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"gorm.io/driver/postgres"

	"github.com/maxmaster/portal-server-go/pkg/config"
	"github.com/maxmaster/portal-server-go/pkg/database"
	"github.com/maxmaster/portal-server-go/pkg/logger"
)

const confirmPhrase = "DROP ALL TABLES"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("refusing to drop tables in production")
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

	fmt.Printf("This drops every table in %s@%s/%s and cannot be undone.\n", cfg.Database.User, cfg.Database.Host, cfg.Database.Name)
	fmt.Printf("Type '%s' to confirm: ", confirmPhrase)

	confirmation, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	if strings.TrimSpace(confirmation) != confirmPhrase {
		fmt.Println("Cancelled. Database unchanged.")
		return
	}

	models := database.Models()
	if err := db.Migrator().DropTable(models...); err != nil {
		appLogger.Error("drop tables failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	appLogger.Info("tables dropped", slog.Int("count", len(models)))
}
