// Command statestored runs a StateStorage with an optional persistent
// leaf backend behind a read-only MCP introspection server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/morebtcg/bcos-framework/pkg/backend/badgerbackend"
	"github.com/morebtcg/bcos-framework/pkg/backend/sqlbackend"
	"github.com/morebtcg/bcos-framework/pkg/config"
	"github.com/morebtcg/bcos-framework/pkg/hashimpl"
	"github.com/morebtcg/bcos-framework/pkg/storage"
	"github.com/morebtcg/bcos-framework/pkg/workerpool"
	mcpserver "github.com/morebtcg/bcos-framework/server/mcp"
)

func newLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// selectHasher picks the table-hash implementation named by kind, falling
// back to SHA256 (the default, content-addressed digest) for an unknown
// or empty value.
func selectHasher(kind string) storage.Hasher {
	switch kind {
	case "xxhash":
		return hashimpl.XXHash{}
	default:
		return hashimpl.SHA256{}
	}
}

func buildParent(cfg config.BackendConfig, logger *slog.Logger) (storage.StorageInterface, func() error, error) {
	switch cfg.Kind {
	case "none", "":
		return nil, func() error { return nil }, nil
	case "badger":
		ds := badgerbackend.New(badgerbackend.Config{
			DataDir:  cfg.Badger.DataDir,
			InMemory: cfg.Badger.InMemory,
		})
		ds.SetLogger(logger)
		if err := ds.Connect(); err != nil {
			return nil, nil, err
		}
		return ds, ds.Close, nil
	case "sql":
		ds := sqlbackend.New(sqlbackend.Config{
			Driver: sqlbackend.Driver(cfg.SQL.Driver),
			DSN:    cfg.SQL.DSN,
		})
		ds.SetLogger(logger)
		if err := ds.Connect(context.Background()); err != nil {
			return nil, nil, err
		}
		return ds, ds.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend kind: %s", cfg.Kind)
	}
}

func main() {
	cfg := config.LoadConfigOrDefault()
	logger := newLogger(cfg.Log)

	parent, closeParent, err := buildParent(cfg.Backend, logger)
	if err != nil {
		logger.Error("failed to initialize backend", "error", err)
		os.Exit(1)
	}
	defer closeParent()

	db := storage.NewStateStorage(parent, cfg.Storage.BlockNumber, selectHasher(cfg.Storage.HashKind))
	db.SetCheckVersion(cfg.Storage.CheckVersion)
	db.SetLogger(logger)
	pool := workerpool.New(workerpool.Config{
		MaxWorkers: cfg.WorkerPool.MaxWorkers,
		QueueSize:  cfg.WorkerPool.QueueSize,
	})
	pool.SetLogger(logger)
	db.SetExecutor(pool)

	if cfg.Storage.Locale != "" {
		if err := db.SetLocale(cfg.Storage.Locale); err != nil {
			logger.Error("failed to set locale comparator, falling back to byte ordering", "locale", cfg.Storage.Locale, "error", err)
		}
	}

	logger.Info("statestored starting", "addr", cfg.ListenAddress(), "backend", cfg.Backend.Kind)

	srv := mcpserver.NewServer(db, cfg.Server.Host, cfg.Server.Port)
	srv.SetLogger(logger)
	if err := srv.Start(); err != nil {
		logger.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}
