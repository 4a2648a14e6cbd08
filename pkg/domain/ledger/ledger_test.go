package ledger

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryLedger_ApplyOnce(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	g := Grant{Key: "j1/0/s1", UserID: "u1", Points: 100, EcoPoints: 50}

	applied, err := l.Apply(ctx, g)
	if err != nil || !applied {
		t.Fatalf("first apply = %v, %v", applied, err)
	}
	applied, err = l.Apply(ctx, g)
	if err != nil || applied {
		t.Fatalf("duplicate apply = %v, %v; want no-op", applied, err)
	}

	b, _ := l.Balance(ctx, "u1")
	if b.Points != 100 || b.EcoPoints != 50 {
		t.Errorf("balance = %+v, want 100/50", b)
	}

	entries, _ := l.Entries(ctx, "u1")
	if len(entries) != 1 || entries[0].BalancePoints != 100 {
		t.Errorf("entries = %+v", entries)
	}
}

func TestMemoryLedger_RunningBalance(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	_, _ = l.Apply(ctx, Grant{Key: "a", UserID: "u1", Points: 10, EcoPoints: 1})
	_, _ = l.Apply(ctx, Grant{Key: "b", UserID: "u1", Points: 20, EcoPoints: 2})
	_, _ = l.Apply(ctx, Grant{Key: "a", UserID: "u2", Points: 5})

	entries, _ := l.Entries(ctx, "u1")
	if len(entries) != 2 || entries[1].BalancePoints != 30 || entries[1].BalanceEcoPoints != 3 {
		t.Errorf("entries = %+v", entries)
	}

	b2, _ := l.Balance(ctx, "u2")
	if b2.Points != 5 {
		t.Errorf("keys are scoped per user: u2 = %+v", b2)
	}
}

func TestGrant_Validate(t *testing.T) {
	tests := []struct {
		name string
		g    Grant
		want error
	}{
		{"ok", Grant{Key: "k", UserID: "u", Points: 1}, nil},
		{"zero", Grant{Key: "k", UserID: "u"}, nil},
		{"negative points", Grant{Key: "k", UserID: "u", Points: -1}, ErrNegativeDelta},
		{"negative eco", Grant{Key: "k", UserID: "u", EcoPoints: -3}, ErrNegativeDelta},
		{"missing key", Grant{UserID: "u", Points: 1}, ErrMissingKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.g.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	if err := (Grant{Key: "k", Points: 1}).Validate(); err == nil {
		t.Error("expected error for missing user")
	}
}
