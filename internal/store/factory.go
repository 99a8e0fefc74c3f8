package store

import (
	"fmt"
	"path/filepath"

	"github.com/atomtune/atomtune/internal/config"
	"github.com/atomtune/atomtune/internal/log"
)

// Open creates a Store based on the backend configuration. The badger backend
// places its database under dataDir unless an explicit path is configured.
func Open(cfg config.StoreConfig, dataDir string) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "badger":
		path := cfg.Path
		if path == "" {
			path = filepath.Join(dataDir, "recordcache")
		}
		return OpenBadgerStore(path)
	case "redis":
		return NewRedisStore(RedisConfig{Addr: cfg.RedisAddr}, log.WithComponent("store"))
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}
