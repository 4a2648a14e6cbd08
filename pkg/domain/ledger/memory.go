package ledger

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger keeps entries in process memory. Used by tests and the mock demo mode.
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string][]Entry
	now     func() time.Time
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		entries: make(map[string][]Entry),
		now:     time.Now,
	}
}

func (l *MemoryLedger) Apply(_ context.Context, g Grant) (bool, error) {
	if err := g.Validate(); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	existing := l.entries[g.UserID]
	if Contains(existing, g.Key) {
		return false, nil
	}

	after := Fold(g.UserID, existing).Add(g)
	l.entries[g.UserID] = append(existing, Entry{
		Grant:            g,
		BalancePoints:    after.Points,
		BalanceEcoPoints: after.EcoPoints,
		Timestamp:        l.now(),
	})
	return true, nil
}

func (l *MemoryLedger) Balance(_ context.Context, userID string) (Balance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Fold(userID, l.entries[userID]), nil
}

func (l *MemoryLedger) Entries(_ context.Context, userID string) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries[userID]...), nil
}
