package application

import (
	"context"
	"fmt"

	"github.com/harvestpath/harvestpath/pkg/domain/journey"
	"github.com/harvestpath/harvestpath/pkg/domain/ledger"
)

// LedgerService exposes the reward ledger read side.
type LedgerService struct {
	ledger ledger.Ledger
}

func NewLedgerService(l ledger.Ledger) *LedgerService {
	return &LedgerService{ledger: l}
}

// Balance returns the user's total points.
func (s *LedgerService) Balance(ctx context.Context, userID string) (ledger.Balance, error) {
	if err := journey.ValidateUserID(userID); err != nil {
		return ledger.Balance{}, err
	}
	b, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		return ledger.Balance{}, fmt.Errorf("failed to load balance: %w", err)
	}
	return b, nil
}

// History returns the user's grants, oldest first. A positive limit keeps only the most recent entries.
func (s *LedgerService) History(ctx context.Context, userID string, limit int) ([]ledger.Entry, error) {
	if err := journey.ValidateUserID(userID); err != nil {
		return nil, err
	}
	entries, err := s.ledger.Entries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}
