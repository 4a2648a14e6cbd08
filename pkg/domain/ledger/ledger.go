// Package ledger accumulates the point balances earned by verified steps.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNegativeDelta indicates a grant tried to remove points.
	ErrNegativeDelta = errors.New("reward deltas must be non-negative")

	// ErrMissingKey indicates a grant without an idempotency key.
	ErrMissingKey = errors.New("grant key is required")
)

// Grant is one additive reward. Key identifies the step transition that earned it.
type Grant struct {
	Key       string `json:"key"`
	UserID    string `json:"user_id"`
	Points    int    `json:"points"`
	EcoPoints int    `json:"eco_points"`
	Reason    string `json:"reason,omitempty"`
	JourneyID string `json:"journey_id,omitempty"`
	StepID    string `json:"step_id,omitempty"`
}

// Validate checks a grant before it is applied.
func (g Grant) Validate() error {
	if g.Key == "" {
		return ErrMissingKey
	}
	if g.UserID == "" {
		return fmt.Errorf("grant %s has no user", g.Key)
	}
	if g.Points < 0 || g.EcoPoints < 0 {
		return fmt.Errorf("%w: %d points, %d eco points", ErrNegativeDelta, g.Points, g.EcoPoints)
	}
	return nil
}

// Entry is a recorded grant with the running totals after it.
type Entry struct {
	Grant
	BalancePoints    int       `json:"balance_points"`
	BalanceEcoPoints int       `json:"balance_eco_points"`
	Timestamp        time.Time `json:"timestamp"`
}

// Balance is a user's running totals.
type Balance struct {
	UserID    string `json:"user_id"`
	Points    int    `json:"points"`
	EcoPoints int    `json:"eco_points"`
}

// Add returns the balance after applying the grant.
func (b Balance) Add(g Grant) Balance {
	b.Points += g.Points
	b.EcoPoints += g.EcoPoints
	return b
}

// Ledger records grants. Applying a key that was already applied is a no-op
// and reports applied=false.
type Ledger interface {
	Apply(ctx context.Context, g Grant) (applied bool, err error)
	Balance(ctx context.Context, userID string) (Balance, error)
	Entries(ctx context.Context, userID string) ([]Entry, error)
}

// Fold replays entries into a balance.
func Fold(userID string, entries []Entry) Balance {
	b := Balance{UserID: userID}
	for _, e := range entries {
		b = b.Add(e.Grant)
	}
	return b
}

// Contains reports whether the key already has an entry.
func Contains(entries []Entry, key string) bool {
	for _, e := range entries {
		if e.Key == key {
			return true
		}
	}
	return false
}
