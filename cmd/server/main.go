package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/kontexthq/kontext/internal/config"
	"github.com/kontexthq/kontext/internal/core"
	"github.com/kontexthq/kontext/internal/llm"
	"github.com/kontexthq/kontext/internal/server"
	"github.com/kontexthq/kontext/internal/store"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "kontext"})

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using environment as-is")
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg := config.LoadWithEnv(cfgPath)
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}

	ctx := context.Background()

	primary := openPrimary(cfg, logger)
	cache := store.NewCache(cfg.Cache.MaxEntities, cfg.Cache.MaxRelationships)
	st := store.NewTieredStore(primary, cache, logger)

	client, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		logger.Fatal("failed to initialize llm client", "err", err)
	}
	if client == nil {
		logger.Info("no llm provider configured; /turn returns prompts only")
	}

	engine := core.NewEngine(st, cfg.Engine, logger)
	srv := server.New(engine, client, logger)
	r := srv.SetupRouter()

	logger.Info("starting server", "port", cfg.Server.Port, "store", cfg.Store.Backend)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("server exited", "err", err)
	}
}

// openPrimary connects the configured durable backend. A connection failure
// is not fatal: the tiered store serves from the in-memory cache until the
// backend comes back.
func openPrimary(cfg *config.Config, logger *log.Logger) store.KnowledgeStore {
	switch cfg.Store.Backend {
	case "memgraph":
		m, err := store.NewMemgraphStore(cfg.Store.URI, cfg.Store.User, cfg.Store.Password)
		if err != nil {
			logger.Warn("memgraph unavailable, running on in-memory cache", "uri", cfg.Store.URI, "err", err)
			return nil
		}
		if err := m.BuildIndices(context.Background()); err != nil {
			logger.Warn("failed to build indices", "err", err)
		}
		return m
	case "sqlite":
		s, err := store.OpenSQLite(cfg.Store.Path)
		if err != nil {
			logger.Warn("sqlite unavailable, running on in-memory cache", "path", cfg.Store.Path, "err", err)
			return nil
		}
		return s
	default:
		logger.Warn("unknown store backend, running on in-memory cache", "backend", cfg.Store.Backend)
		return nil
	}
}
