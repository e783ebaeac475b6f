// Package store creates the snapshot store selected by configuration.
package store

import (
	"fmt"
	"log/slog"

	"github.com/HatiCode/pulseox/cmd/oximeter/config"
	"github.com/HatiCode/pulseox/pkg/storage"
)

// New returns a Redis store when cfg.Storage is "redis" and an in-memory
// store otherwise. Both expire snapshots after cfg.SnapshotTTL.
func New(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Storage {
	case "redis":
		s, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SnapshotTTL)
		if err != nil {
			return nil, fmt.Errorf("redis store: %w", err)
		}
		logger.Info("using redis snapshot store", "addr", cfg.RedisAddr, "db", cfg.RedisDB, "ttl", cfg.SnapshotTTL)
		return s, nil
	case "memory", "":
		logger.Info("using in-memory snapshot store", "ttl", cfg.SnapshotTTL)
		return storage.NewMemoryStore(cfg.SnapshotTTL), nil
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
}
