package storage

import "fmt"

// NewStore selects the backend that holds simulation runs. An empty kind
// falls back to the in-memory store, so callers that never persist across
// invocations need no configuration at all. The sqlite backend is only
// present when built with -tags sqlite; dbPath is ignored by the others.
func NewStore(kind, dbPath string) (Store, error) {
	if kind == "" || kind == "memory" {
		return NewMemoryStore(), nil
	}
	if kind == "sqlite" {
		return newSQLiteStore(dbPath)
	}
	return nil, fmt.Errorf("unknown run store %q (want memory or sqlite)", kind)
}

// CloseIfSupported releases the backend's resources. The memory store has
// none and exposes no Close, which is why the assertion is tolerated here.
func CloseIfSupported(store Store) error {
	if closer, ok := store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
