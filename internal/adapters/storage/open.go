package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// Store is a durable key-value backend with a health check and a close hook.
type Store interface {
	ports.KeyValueStore
	ports.HealthChecker
	io.Closer
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*FileStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

// Open selects the backend named by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case config.StorageSQLite:
		return OpenSQLite(ctx, cfg.Path)
	case config.StorageFile:
		return OpenFile(cfg.Path)
	case config.StorageMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
