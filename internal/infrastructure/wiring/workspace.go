package wiring

import (
	"fmt"

	"github.com/harvestpath/harvestpath/internal/infrastructure/config"
	"github.com/harvestpath/harvestpath/pkg/domain/catalog"
	"github.com/harvestpath/harvestpath/pkg/storage"
)

// Workspace bundles the persistence for one workspace root.
type Workspace struct {
	Root    string
	Config  *config.Config
	Catalog *catalog.Catalog
	Store   storage.Store
	Events  *storage.FileEventStore
}

// NewWorkspace loads the config and opens the configured store and event trail.
func NewWorkspace(root string) (*Workspace, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Load(cfg.CatalogPath(root))
	if err != nil {
		return nil, err
	}

	store, err := openStore(root, cfg)
	if err != nil {
		return nil, err
	}

	eventStore, err := storage.NewFileEventStore(storage.DataPath(root))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to open event trail: %w", err)
	}

	return &Workspace{
		Root:    root,
		Config:  cfg,
		Catalog: cat,
		Store:   store,
		Events:  eventStore,
	}, nil
}

// Close releases the store.
func (w *Workspace) Close() error {
	return w.Store.Close()
}

func openStore(root string, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		s, err := storage.NewSQLiteStore(cfg.DatabasePath(root))
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return s, nil
	default:
		return storage.NewFilesystemStore(root), nil
	}
}
