package application_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/harvestpath/harvestpath/pkg/application"
	"github.com/harvestpath/harvestpath/pkg/domain/journey"
	"github.com/harvestpath/harvestpath/pkg/domain/ledger"
)

func TestLedgerService_History(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewMemoryLedger()
	for i := 0; i < 5; i++ {
		g := ledger.Grant{Key: fmt.Sprintf("j1/0/s%d", i), UserID: user, Points: 10 * (i + 1)}
		if _, err := l.Apply(ctx, g); err != nil {
			t.Fatal(err)
		}
	}
	svc := application.NewLedgerService(l)

	tests := []struct {
		name    string
		limit   int
		want    int
		lastKey string
	}{
		{"all", 0, 5, "j1/0/s4"},
		{"limited", 2, 2, "j1/0/s4"},
		{"limit above size", 10, 5, "j1/0/s4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := svc.History(ctx, user, tt.limit)
			if err != nil {
				t.Fatalf("History: %v", err)
			}
			if len(entries) != tt.want {
				t.Fatalf("got %d entries, want %d", len(entries), tt.want)
			}
			if entries[len(entries)-1].Key != tt.lastKey {
				t.Errorf("last key = %s", entries[len(entries)-1].Key)
			}
		})
	}

	b, err := svc.Balance(ctx, user)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if b.Points != 150 {
		t.Errorf("balance = %+v, want 150", b)
	}
}

func TestLedgerService_InvalidUser(t *testing.T) {
	svc := application.NewLedgerService(ledger.NewMemoryLedger())
	if _, err := svc.Balance(context.Background(), ""); !errors.Is(err, journey.ErrInvalidUser) {
		t.Errorf("expected ErrInvalidUser, got %v", err)
	}
}
