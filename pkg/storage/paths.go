// Package storage persists journeys, ledgers and the event trail.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harvestpath/harvestpath/pkg/domain/journey"
	"github.com/harvestpath/harvestpath/pkg/domain/ledger"
)

const (
	DataDir      = ".harvestpath"
	UsersDir     = "users"
	JourneysFile = "journeys.json"
	LedgerFile   = "ledger.json"
	EventsFile   = "events.jsonl"
	ConfigFile   = "config.yaml"
	DatabaseFile = "harvestpath.db"
)

// Store is a complete persistence backend.
type Store interface {
	journey.Repository
	ledger.Ledger
	Close() error
}

// DataPath returns <root>/.harvestpath.
func DataPath(root string) string {
	return filepath.Join(root, DataDir)
}

// ResolvePath returns the path of a per-user file and rejects anything that
// would escape the user's directory.
func ResolvePath(root, userID, filename string) (string, error) {
	if err := journey.ValidateUserID(userID); err != nil {
		return "", err
	}
	if filename == "" {
		return "", fmt.Errorf("filename cannot be empty")
	}

	userDir := filepath.Join(DataPath(root), UsersDir, userID)
	cleanPath := filepath.Clean(filepath.Join(userDir, filename))
	if !strings.HasPrefix(cleanPath, userDir+string(filepath.Separator)) || filepath.Dir(cleanPath) != userDir {
		return "", fmt.Errorf("invalid file path: %s", filename)
	}
	return cleanPath, nil
}

// writeFileAtomic writes data to a temp file in the target directory and renames it into place.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
