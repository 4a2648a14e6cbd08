package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/harvestpath/harvestpath/pkg/domain/journey"
	"github.com/harvestpath/harvestpath/pkg/domain/ledger"
)

// FilesystemStore keeps one JSON document per user and concern under
// <root>/.harvestpath/users/<user>/.
type FilesystemStore struct {
	root        string
	retryConfig retry.Config
	now         func() time.Time

	// mu serialises ledger read-modify-write cycles.
	mu sync.Mutex
}

func NewFilesystemStore(root string) *FilesystemStore {
	return &FilesystemStore{
		root: root,
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  10 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
		now: time.Now,
	}
}

// Root returns the workspace root directory.
func (s *FilesystemStore) Root() string {
	return s.root
}

// UserDir returns the directory holding a user's documents.
func (s *FilesystemStore) UserDir(userID string) (string, error) {
	path, err := ResolvePath(s.root, userID, JourneysFile)
	if err != nil {
		return "", err
	}
	return filepath.Dir(path), nil
}

func (s *FilesystemStore) LoadAll(ctx context.Context, userID string) ([]journey.Journey, error) {
	path, err := ResolvePath(s.root, userID, JourneysFile)
	if err != nil {
		return nil, err
	}

	data, err := s.readWithRetry(ctx, path)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return []journey.Journey{}, nil
	}

	if err := validateDocument(journeysSchemaLoader, "journeys", data); err != nil {
		return nil, err
	}
	var journeys []journey.Journey
	if err := json.Unmarshal(data, &journeys); err != nil {
		return nil, fmt.Errorf("failed to unmarshal journeys: %w", err)
	}
	if journeys == nil {
		journeys = []journey.Journey{}
	}
	return journeys, nil
}

func (s *FilesystemStore) SaveAll(_ context.Context, userID string, journeys []journey.Journey) error {
	path, err := ResolvePath(s.root, userID, JourneysFile)
	if err != nil {
		return err
	}
	if journeys == nil {
		journeys = []journey.Journey{}
	}
	data, err := json.MarshalIndent(journeys, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journeys: %w", err)
	}
	return writeFileAtomic(path, data)
}

func (s *FilesystemStore) Apply(ctx context.Context, g ledger.Grant) (bool, error) {
	if err := g.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.loadEntries(ctx, g.UserID)
	if err != nil {
		return false, err
	}
	if ledger.Contains(entries, g.Key) {
		return false, nil
	}

	after := ledger.Fold(g.UserID, entries).Add(g)
	entries = append(entries, ledger.Entry{
		Grant:            g,
		BalancePoints:    after.Points,
		BalanceEcoPoints: after.EcoPoints,
		Timestamp:        s.now(),
	})

	path, err := ResolvePath(s.root, g.UserID, LedgerFile)
	if err != nil {
		return false, err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return false, fmt.Errorf("failed to marshal ledger: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FilesystemStore) Balance(ctx context.Context, userID string) (ledger.Balance, error) {
	entries, err := s.Entries(ctx, userID)
	if err != nil {
		return ledger.Balance{}, err
	}
	return ledger.Fold(userID, entries), nil
}

func (s *FilesystemStore) Entries(ctx context.Context, userID string) ([]ledger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadEntries(ctx, userID)
}

func (s *FilesystemStore) Close() error {
	return nil
}

func (s *FilesystemStore) loadEntries(ctx context.Context, userID string) ([]ledger.Entry, error) {
	path, err := ResolvePath(s.root, userID, LedgerFile)
	if err != nil {
		return nil, err
	}
	data, err := s.readWithRetry(ctx, path)
	if err != nil || data == nil {
		return nil, err
	}
	if err := validateDocument(ledgerSchemaLoader, "ledger", data); err != nil {
		return nil, err
	}
	var entries []ledger.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ledger: %w", err)
	}
	return entries, nil
}

// readWithRetry returns nil data, not an error, when the file does not exist.
func (s *FilesystemStore) readWithRetry(ctx context.Context, path string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	retryer := retry.New[[]byte](s.retryConfig)
	var missing bool
	data, err := retryer.Do(ctx, func(ctx context.Context) ([]byte, error) {
		// #nosec G304 -- path is resolved and validated via ResolvePath
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			missing = true
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		missing = len(data) == 0
		return data, nil
	})
	if missing {
		return nil, nil
	}
	return data, err
}
