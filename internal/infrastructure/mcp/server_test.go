package mcp

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/harvestpath/harvestpath/pkg/application"
	"github.com/harvestpath/harvestpath/pkg/domain/catalog"
	"github.com/harvestpath/harvestpath/pkg/domain/journey"
	"github.com/harvestpath/harvestpath/pkg/domain/ledger"
	"github.com/harvestpath/harvestpath/pkg/storage"
	"github.com/harvestpath/harvestpath/pkg/verifier"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := storage.NewFilesystemStore(t.TempDir())
	journeys := application.NewJourneyService(store, store, verifier.NewMockVerifier(), catalog.Default())
	return NewServerWithServices(journeys, application.NewLedgerService(store), nil)
}

func TestServer_JourneyFlow(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	started, err := s.handleStartJourney(ctx, StartJourneyArgs{UserID: "farmer1", CropID: "wheat"})
	if err != nil {
		t.Fatalf("handleStartJourney: %v", err)
	}
	j := started.(map[string]any)["journey"].(*journey.Journey)

	image := base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\nfield"))
	out, err := s.handleSubmitProof(ctx, SubmitProofArgs{UserID: "farmer1", JourneyID: j.ID, StepIndex: 0, ImageBase64: image})
	if err != nil {
		t.Fatalf("handleSubmitProof: %v", err)
	}
	resp := out.(SubmitResponse)
	if !resp.Verified || resp.CurrentStepIndex != 1 || resp.PointsEarned != 100 || resp.EcoPointsEarned != 50 {
		t.Errorf("unexpected response: %+v", resp)
	}

	bal, err := s.handleGetBalance(ctx, UserArgs{UserID: "farmer1"})
	if err != nil {
		t.Fatalf("handleGetBalance: %v", err)
	}
	if b := bal.(ledger.Balance); b.Points != 100 {
		t.Errorf("balance = %+v", b)
	}

	list, err := s.handleListJourneys(ctx, UserArgs{UserID: "farmer1"})
	if err != nil {
		t.Fatalf("handleListJourneys: %v", err)
	}
	if summaries := list.([]JourneySummary); len(summaries) != 1 || summaries[0].CompletionPercent != 25 {
		t.Errorf("summaries = %+v", summaries)
	}

	hist, err := s.handleLedgerHistory(ctx, HistoryArgs{UserID: "farmer1"})
	if err != nil {
		t.Fatalf("handleLedgerHistory: %v", err)
	}
	if entries := hist.([]ledger.Entry); len(entries) != 1 {
		t.Errorf("entries = %+v", entries)
	}
}

func TestServer_FriendlyErrors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	started, err := s.handleStartJourney(ctx, StartJourneyArgs{UserID: "farmer1", CropID: "wheat"})
	if err != nil {
		t.Fatal(err)
	}
	j := started.(map[string]any)["journey"].(*journey.Journey)
	image := base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\n"))

	tests := []struct {
		name string
		call func() error
		want string
	}{
		{"locked step", func() error {
			_, err := s.handleSubmitProof(ctx, SubmitProofArgs{UserID: "farmer1", JourneyID: j.ID, StepIndex: 3, ImageBase64: image})
			return err
		}, "locked"},
		{"bad base64", func() error {
			_, err := s.handleSubmitProof(ctx, SubmitProofArgs{UserID: "farmer1", JourneyID: j.ID, ImageBase64: "%%%"})
			return err
		}, "base64"},
		{"unknown crop", func() error {
			_, err := s.handleGetCrop(ctx, CropArgs{CropID: "mango"})
			return err
		}, "not found"},
		{"bad season", func() error {
			_, err := s.handleListCrops(ctx, ListCropsArgs{Season: "Monsoon"})
			return err
		}, "Unknown season"},
		{"invalid user", func() error {
			_, err := s.handleListJourneys(ctx, UserArgs{UserID: "../x"})
			return err
		}, "user_id"},
		{"missing journey", func() error {
			_, err := s.handleGetJourney(ctx, JourneyArgs{UserID: "farmer1", JourneyID: "nope"})
			return err
		}, "Journey not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestServer_ListCropsBySeason(t *testing.T) {
	s := newTestServer(t)
	out, err := s.handleListCrops(context.Background(), ListCropsArgs{Season: "Rabi"})
	if err != nil {
		t.Fatalf("handleListCrops: %v", err)
	}
	crops := out.([]catalog.CropDefinition)
	if len(crops) != 2 {
		t.Errorf("expected 2 Rabi crops, got %d", len(crops))
	}
}
