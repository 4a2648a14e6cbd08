package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harvestpath/harvestpath/pkg/domain/catalog"
	"github.com/harvestpath/harvestpath/pkg/domain/journey"
	"github.com/harvestpath/harvestpath/pkg/domain/ledger"
)

var storeNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newJourney(t *testing.T, userID string) journey.Journey {
	t.Helper()
	crop, err := catalog.FindCrop(catalog.Default(), "wheat")
	if err != nil {
		t.Fatalf("FindCrop: %v", err)
	}
	j, err := journey.New(userID, crop, storeNow)
	if err != nil {
		t.Fatalf("journey.New: %v", err)
	}
	return *j
}

func TestResolvePath(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name     string
		userID   string
		filename string
		wantErr  bool
	}{
		{"valid", "farmer1", JourneysFile, false},
		{"dotted user", "a.b-c_d", LedgerFile, false},
		{"empty user", "", JourneysFile, true},
		{"traversal user", "../etc", JourneysFile, true},
		{"slash in user", "a/b", JourneysFile, true},
		{"traversal file", "farmer1", "../other/journeys.json", true},
		{"nested file", "farmer1", "sub/journeys.json", true},
		{"empty file", "farmer1", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := ResolvePath(root, tt.userID, tt.filename)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got path %s", path)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := filepath.Join(root, DataDir, UsersDir, tt.userID, tt.filename)
			if path != want {
				t.Errorf("path = %s, want %s", path, want)
			}
		})
	}
}

func TestFilesystemStore_LoadMissingIsEmpty(t *testing.T) {
	s := NewFilesystemStore(t.TempDir())
	journeys, err := s.LoadAll(context.Background(), "farmer1")
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if journeys == nil || len(journeys) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", journeys)
	}
}

func TestFilesystemStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewFilesystemStore(t.TempDir())

	j := newJourney(t, "farmer1")
	verifiedAt := storeNow.Add(time.Hour)
	j.Steps[0] = journey.StepState{
		StepID:        "s1",
		Verified:      true,
		VerifiedAt:    &verifiedAt,
		ProofImageURL: "sha256:abc",
		AIFeedback:    "Looks good",
	}
	j.CurrentStepIndex = 1

	if err := s.SaveAll(ctx, "farmer1", []journey.Journey{j}); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	loaded, err := s.LoadAll(ctx, "farmer1")
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 journey, got %d", len(loaded))
	}
	got := loaded[0]
	if got.ID != j.ID || got.CropID != "wheat" || got.CurrentStepIndex != 1 {
		t.Errorf("unexpected journey: %+v", got)
	}
	if !got.Steps[0].Verified || got.Steps[0].VerifiedAt == nil || !got.Steps[0].VerifiedAt.Equal(verifiedAt) {
		t.Errorf("step 0 not preserved: %+v", got.Steps[0])
	}
	if got.Steps[0].AIFeedback != "Looks good" {
		t.Errorf("feedback = %q", got.Steps[0].AIFeedback)
	}

	// Other users see nothing.
	other, err := s.LoadAll(ctx, "farmer2")
	if err != nil {
		t.Fatalf("LoadAll other: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected isolation between users, got %d journeys", len(other))
	}
}

func TestFilesystemStore_SaveNilWritesEmptyArray(t *testing.T) {
	root := t.TempDir()
	s := NewFilesystemStore(root)
	if err := s.SaveAll(context.Background(), "farmer1", nil); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, DataDir, UsersDir, "farmer1", JourneysFile))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("file = %q, want []", data)
	}
}

func TestFilesystemStore_RejectsCorruptDocument(t *testing.T) {
	root := t.TempDir()
	s := NewFilesystemStore(root)

	dir := filepath.Join(root, DataDir, UsersDir, "farmer1")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	bad := `[{"id":"x","user_id":"farmer1","crop_id":"wheat","status":"growing","current_step_index":0,"steps":[]}]`
	if err := os.WriteFile(filepath.Join(dir, JourneysFile), []byte(bad), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := s.LoadAll(context.Background(), "farmer1"); err == nil {
		t.Fatal("expected schema validation error")
	}
}

func TestFilesystemStore_InvalidUser(t *testing.T) {
	s := NewFilesystemStore(t.TempDir())
	if _, err := s.LoadAll(context.Background(), "../x"); !errors.Is(err, journey.ErrInvalidUser) {
		t.Errorf("expected ErrInvalidUser, got %v", err)
	}
	if err := s.SaveAll(context.Background(), "", nil); !errors.Is(err, journey.ErrInvalidUser) {
		t.Errorf("expected ErrInvalidUser, got %v", err)
	}
}

func TestFilesystemStore_LedgerIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewFilesystemStore(t.TempDir())
	testLedgerContract(t, ctx, s)
}

func TestFilesystemStore_LedgerRejectsNegative(t *testing.T) {
	s := NewFilesystemStore(t.TempDir())
	_, err := s.Apply(context.Background(), ledger.Grant{Key: "k", UserID: "farmer1", Points: -1})
	if !errors.Is(err, ledger.ErrNegativeDelta) {
		t.Errorf("expected ErrNegativeDelta, got %v", err)
	}
}

// testLedgerContract exercises the behaviour every ledger backend shares.
func testLedgerContract(t *testing.T, ctx context.Context, l ledger.Ledger) {
	t.Helper()

	grant := ledger.Grant{Key: "j1/0/s1", UserID: "farmer1", Points: 100, EcoPoints: 50, JourneyID: "j1", StepID: "s1"}
	applied, err := l.Apply(ctx, grant)
	if err != nil || !applied {
		t.Fatalf("first Apply = %v, %v", applied, err)
	}
	applied, err = l.Apply(ctx, grant)
	if err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if applied {
		t.Error("duplicate key must not be applied twice")
	}

	if _, err := l.Apply(ctx, ledger.Grant{Key: "j1/0/s2", UserID: "farmer1", Points: 150, EcoPoints: 40}); err != nil {
		t.Fatalf("Apply s2: %v", err)
	}
	if _, err := l.Apply(ctx, ledger.Grant{Key: "j9/0/s1", UserID: "farmer2", Points: 7}); err != nil {
		t.Fatalf("Apply farmer2: %v", err)
	}

	b, err := l.Balance(ctx, "farmer1")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if b.Points != 250 || b.EcoPoints != 90 {
		t.Errorf("balance = %+v, want 250/90", b)
	}

	entries, err := l.Entries(ctx, "farmer1")
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[1].BalancePoints != 250 || entries[1].BalanceEcoPoints != 90 {
		t.Errorf("running totals = %d/%d", entries[1].BalancePoints, entries[1].BalanceEcoPoints)
	}

	empty, err := l.Balance(ctx, "nobody")
	if err != nil {
		t.Fatalf("Balance nobody: %v", err)
	}
	if empty.Points != 0 || empty.EcoPoints != 0 {
		t.Errorf("unknown user balance = %+v", empty)
	}
}
