package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lawnchairsociety/gridquest/internal/config"
	"github.com/lawnchairsociety/gridquest/internal/database"
	"github.com/lawnchairsociety/gridquest/internal/items"
	"github.com/lawnchairsociety/gridquest/internal/logger"
	"github.com/lawnchairsociety/gridquest/internal/namefilter"
	"github.com/lawnchairsociety/gridquest/internal/server"
)

func main() {
	port := flag.Int("port", 4443, "WebSocket server port")
	serverConfigFile := flag.String("config", "data/server.yaml", "Path to server config YAML file")
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	nameFilterConfig := flag.String("namefilter", "data/name_filter.yaml", "Path to name filter config YAML file")
	importGames := flag.String("import-games", "", "Import game definitions from a YAML file and exit")
	flag.Parse()

	// Initialize logger first (before any logging)
	logConfig, _ := logger.LoadConfig(*loggingConfig)
	if err := logger.Initialize(logConfig); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	serverCfg, err := config.LoadConfig(*serverConfigFile)
	if err != nil {
		log.Fatalf("Failed to load server config: %v", err)
	}

	db, err := openDatabase(serverCfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if *importGames != "" {
		n, err := db.ImportGames(context.Background(), *importGames)
		if err != nil {
			db.Close()
			log.Fatalf("Failed to import games: %v", err)
		}
		fmt.Printf("Imported %d games from %s\n", n, *importGames)
		return
	}

	logger.Info("Starting GridQuest server")

	catalog, err := items.LoadCatalogOrDefault(serverCfg.Game.ItemsFile)
	if err != nil {
		log.Fatalf("Failed to load items: %v", err)
	}
	logger.Info("Items loaded", "count", len(catalog.IDs()), "path", serverCfg.Game.ItemsFile)

	nameCfg, err := namefilter.LoadConfig(*nameFilterConfig)
	if err != nil {
		logger.Warning("Failed to load name filter config, only width rules apply", "path", *nameFilterConfig, "error", err)
		nameCfg = nil
	} else if nameCfg.Enabled {
		logger.Info("Name filter enabled", "banned_words", len(nameCfg.BannedWords), "banned_names", len(nameCfg.BannedNames))
	}

	if len(serverCfg.WebSocket.AllowedOrigins) == 0 {
		logger.Info("WebSocket CORS policy", "mode", "same-origin")
	} else if len(serverCfg.WebSocket.AllowedOrigins) == 1 && serverCfg.WebSocket.AllowedOrigins[0] == "*" {
		logger.Warning("WebSocket CORS allows all origins (not recommended for production)")
	} else {
		logger.Info("WebSocket CORS policy", "allowed_origins", serverCfg.WebSocket.AllowedOrigins)
	}

	store := server.NewStore(db)
	srv := server.NewServer(serverCfg, server.Deps{
		Games:     store,
		Results:   store,
		Directory: store,
		Names:     namefilter.New(nameCfg),
		Catalog:   catalog,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Press Ctrl+C to shutdown")
	if err := srv.ListenAndServe(ctx, fmt.Sprintf(":%d", *port)); err != nil {
		logger.Error("Server error", "error", err)
		db.Close()
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

func openDatabase(cfg config.DatabaseConfig) (*database.Database, error) {
	dbCfg := database.DefaultConfig(cfg.SQLitePath)
	if cfg.Driver != "" {
		dbCfg.Driver = cfg.Driver
	}
	dbCfg.Postgres = database.PostgresConfig{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		Database:        cfg.Postgres.Database,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	}

	db, err := database.OpenWithConfig(dbCfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Database initialized", "driver", dbCfg.Driver)
	return db, nil
}
