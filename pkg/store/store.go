package store

import (
	"fmt"

	"github.com/xhad/mercury/internal/types"
)

// Backend names accepted by New.
const (
	BackendMemory   = "memory"
	BackendPgvector = "pgvector"
)

// New builds the chunk store named by config.Backend. The memory backend
// needs no external services; pgvector needs a reachable Postgres with the
// vector extension available.
func New(config types.StoreConfig) (types.ChunkStore, error) {
	switch config.Backend {
	case BackendMemory, "":
		return NewMemory(), nil
	case BackendPgvector:
		return NewPgvector(config)
	default:
		return nil, fmt.Errorf("unknown store backend: %q", config.Backend)
	}
}
