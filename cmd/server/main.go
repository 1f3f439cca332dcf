package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/edhtable/edh-server-go/internal/cards"
	"github.com/edhtable/edh-server-go/internal/config"
	"github.com/edhtable/edh-server-go/internal/deck"
	"github.com/edhtable/edh-server-go/internal/game"
	"github.com/edhtable/edh-server-go/internal/notify"
	"github.com/edhtable/edh-server-go/internal/repository"
	"github.com/edhtable/edh-server-go/internal/repository/inmem"
	"github.com/edhtable/edh-server-go/internal/room"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting commander table server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var (
		roomStore room.Store
		gameStore game.Store
		decks     deck.Provider
	)
	switch cfg.Storage.Driver {
	case "postgres":
		db, err := repository.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			logger.Fatal("failed to apply schema", zap.Error(err))
		}

		stats := db.Stats()
		logger.Info("database connection pool initialized",
			zap.Int32("total_conns", stats.TotalConns()),
			zap.Int32("idle_conns", stats.IdleConns()),
		)

		roomStore = repository.NewRoomRepository(db)
		gameStore = repository.NewGameRepository(db)
		decks = repository.NewDeckRepository(db)
	case "memory":
		logger.Warn("using in-memory storage; all state is lost on restart")
		store := inmem.NewStore()
		roomStore = store
		gameStore = store
		decks = store
	}

	resolver := cards.NewClient(cards.Options{
		BaseURL:       cfg.Scryfall.BaseURL,
		Timeout:       cfg.Scryfall.Timeout,
		MaxConcurrent: cfg.Scryfall.MaxConcurrent,
		CacheTTL:      cfg.Scryfall.CacheTTL,
	}, logger)
	logger.Info("card metadata client initialized",
		zap.String("base_url", cfg.Scryfall.BaseURL),
		zap.Duration("cache_ttl", cfg.Scryfall.CacheTTL),
	)

	hub := notify.NewHub(logger)

	gameMgr := game.NewManager(gameStore, decks, resolver, logger)
	logger.Info("game manager initialized")

	roomMgr := room.NewManager(roomStore, decks, resolver, gameMgr, hub, logger)
	logger.Info("room manager initialized",
		zap.Int("min_players", room.MinPlayers),
		zap.Int("max_players", room.MaxPlayers),
	)

	// Room membership gates which event streams a connection may follow.
	go func() {
		if wsErr := notify.StartServer(cfg.Server.WebSocket.Address, hub, roomMgr, logger); wsErr != nil {
			logger.Error("websocket server error", zap.Error(wsErr))
		}
	}()

	logger.Info("commander table server initialized",
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
		zap.String("storage_driver", cfg.Storage.Driver),
	)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	cancel()

	logger.Info("commander table server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
