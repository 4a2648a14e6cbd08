package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harvestpath/harvestpath/pkg/domain/events"
)

// FileEventStore keeps a hash-chained audit trail in a JSON Lines file.
type FileEventStore struct {
	mu       sync.RWMutex
	path     string
	basePath string
	lastHash string
	chained  bool
}

// NewFileEventStore opens the trail under basePath. The directory is created
// on first append. The trail is not read until it is needed, so an unreadable
// trail only fails the calls that touch it.
func NewFileEventStore(basePath string) (*FileEventStore, error) {
	if info, err := os.Stat(basePath); err == nil && !info.IsDir() {
		return nil, fmt.Errorf("event trail path %s is not a directory", basePath)
	}
	return &FileEventStore{
		path:     filepath.Join(basePath, EventsFile),
		basePath: basePath,
	}, nil
}

// Append chains the event to the previous one and writes it.
func (s *FileEventStore) Append(event *events.BaseEvent) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.chained {
		existing, err := s.loadEvents()
		if err != nil {
			return fmt.Errorf("refusing to extend unreadable trail: %w", err)
		}
		if len(existing) > 0 {
			s.lastHash = existing[len(existing)-1].Hash
		}
		s.chained = true
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := os.MkdirAll(s.basePath, 0750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	event.PrevHash = s.lastHash
	event.Hash = event.CalculateHash()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open events file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close events file: %w", cerr)
		}
	}()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	s.lastHash = event.Hash
	return nil
}

// LoadAll returns all events in chronological order.
func (s *FileEventStore) LoadAll() ([]*events.BaseEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadEvents()
}

// LoadByAggregate returns the events of one aggregate.
func (s *FileEventStore) LoadByAggregate(aggregateType, aggregateID string) ([]*events.BaseEvent, error) {
	return s.filter(func(e *events.BaseEvent) bool {
		return e.Kind == aggregateType && e.Aggregate == aggregateID
	})
}

// LoadByUser returns the events recorded for one user.
func (s *FileEventStore) LoadByUser(userID string) ([]*events.BaseEvent, error) {
	return s.filter(func(e *events.BaseEvent) bool {
		return e.UserID == userID
	})
}

// GetLastEvent returns the most recent event.
func (s *FileEventStore) GetLastEvent() (*events.BaseEvent, error) {
	all, err := s.LoadAll()
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[len(all)-1], nil
}

// Count returns the total number of events.
func (s *FileEventStore) Count() (int, error) {
	all, err := s.LoadAll()
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

// VerifyIntegrity checks the hash chain and reports every broken link.
func (s *FileEventStore) VerifyIntegrity() ([]string, error) {
	all, err := s.LoadAll()
	if err != nil {
		return nil, err
	}

	var violations []string
	lastHash := ""
	for i, e := range all {
		if e.PrevHash != lastHash {
			violations = append(violations, fmt.Sprintf("event %d (%s): prev_hash mismatch", i, e.ID))
		}
		if e.Hash != e.CalculateHash() {
			violations = append(violations, fmt.Sprintf("event %d (%s): hash mismatch, possible tampering", i, e.ID))
		}
		lastHash = e.Hash
	}
	return violations, nil
}

func (s *FileEventStore) filter(keep func(*events.BaseEvent) bool) ([]*events.BaseEvent, error) {
	all, err := s.LoadAll()
	if err != nil {
		return nil, err
	}
	var out []*events.BaseEvent
	for _, e := range all {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *FileEventStore) loadEvents() ([]*events.BaseEvent, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open events file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	var out []*events.BaseEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event events.BaseEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		out = append(out, &event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}
	return out, nil
}
