package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/artycalc/artycalc/internal/config"
	"github.com/artycalc/artycalc/internal/database"
	"github.com/artycalc/artycalc/internal/influx"
	"github.com/artycalc/artycalc/internal/storage"
	filestore "github.com/artycalc/artycalc/internal/storage/file"
	gormstorage "github.com/artycalc/artycalc/internal/storage/gorm"
	"github.com/artycalc/artycalc/internal/storage/memory"

	"github.com/spf13/viper"
)

// initStorage creates and initializes the configured preset backend.
func initStorage() (storage.Backend, error) {
	storageCfg := config.GetStorageConfig()

	backend, err := createStorageBackend(storageCfg)
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		return nil, err
	}
	if err := backend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "error", err)
		_ = backend.Close()
		return nil, err
	}
	return backend, nil
}

func createStorageBackend(storageCfg config.StorageConfig) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		// falls back to SQLite at storage.sqlite.path when Postgres is unreachable
		dbm := database.NewManager(ZLogger, storageCfg.SQLite.Path)
		if err := dbm.Connect(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		Logger.Info("Postgres storage backend initialized", "driver", dbm.Driver, "fallback", dbm.Fallback())
		return gormstorage.New(gormstorage.Dependencies{
			DB:      dbm.DB,
			Logger:  SlogManager.Component("storage"),
			OnClose: dbm.Close,
		}), nil

	case "sqlite":
		dbm := database.NewManager(ZLogger, storageCfg.SQLite.Path)
		if err := dbm.ConnectSQLite(); err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		Logger.Info("SQLite storage backend initialized", "path", storageCfg.SQLite.Path)
		return gormstorage.New(gormstorage.Dependencies{
			DB:      dbm.DB,
			Logger:  SlogManager.Component("storage"),
			OnClose: dbm.Close,
		}), nil

	case "memory":
		Logger.Info("Memory storage backend initialized, presets are lost on exit")
		return memory.New(), nil

	case "file", "":
		Logger.Debug("File storage backend initialized", "dir", storageCfg.File.Dir)
		return filestore.New(storageCfg.File), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// initFireLog connects the InfluxDB fire-mission log. It returns nil when disabled.
func initFireLog(ctx context.Context) *influx.Manager {
	if !viper.GetBool("influx.enabled") {
		return nil
	}
	m := influx.NewManager(ZLogger, viper.GetString("influx.backupPath"))
	if err := m.Connect(ctx); err != nil {
		Logger.Warn("Fire-mission log unavailable", "error", err)
		_ = m.Close()
		return nil
	}
	return m
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
