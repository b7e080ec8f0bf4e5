// Package bootstrap is the shared "open config, open store" entry sequence
// used by every hook binary and the CLI: load config, open the store, then
// carry both through a plain struct, since hook binaries have no
// persistent command tree to hang state on.
package bootstrap

import (
	"fmt"

	"github.com/Elizarfish/infinite-context/internal/config"
	"github.com/Elizarfish/infinite-context/internal/paths"
	"github.com/Elizarfish/infinite-context/internal/store"
)

// Session bundles an opened store and resolved config for one process
// invocation.
type Session struct {
	Store  *store.Store
	Config *config.Config
}

// Open resolves the data directory, loads config.json (or defaults), and
// opens the database. The caller must call Close on all exit paths.
func Open() (*Session, error) {
	if _, err := paths.Ensure(); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	cfg, err := config.Load(paths.ConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	st, err := store.Open(paths.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &Session{Store: st, Config: cfg}, nil
}

// Close releases the store handle. Safe to call on a nil Session.
func (s *Session) Close() error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.Close()
}
