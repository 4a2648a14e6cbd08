package wiring

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/harvestpath/harvestpath/pkg/application"
	"github.com/harvestpath/harvestpath/pkg/domain/events"
	"github.com/harvestpath/harvestpath/pkg/domain/verify"
	"github.com/harvestpath/harvestpath/pkg/verifier"
)

// AppServices exposes the application services wired to a workspace.
type AppServices struct {
	Workspace  *Workspace
	Journeys   *application.JourneyService
	Ledger     *application.LedgerService
	Dispatcher *events.EventDispatcher
	Activity   *events.ActivityProjection
	Verifier   verify.Verifier
}

// BuildAppServices wires the services for a workspace root. When the
// configured verifier cannot be built, every proof fails as a sensor error
// and the cause is returned alongside the services.
func BuildAppServices(ctx context.Context, root string, logger *slog.Logger) (*AppServices, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ws, err := NewWorkspace(root)
	if err != nil {
		return nil, err
	}

	v, err := LoadVerifier(ctx, ws.Config)
	var loadErr error
	if err != nil {
		loadErr = fmt.Errorf("verifier unavailable, proofs will not be verified: %w", err)
		provider := ws.Config.Verifier.Provider
		if p := os.Getenv(verifier.EnvProvider); p != "" {
			provider = p
		}
		v = verifier.NewUnavailableVerifier(provider, err)
	}

	// Hydrate the activity projection from the stored trail.
	activity := events.NewActivityProjection()
	if stored, err := ws.Events.LoadAll(); err == nil {
		if err := activity.Rebuild(stored); err != nil {
			logger.Warn("failed to rebuild activity", "error", err)
		}
	} else {
		logger.Warn("failed to load event trail", "error", err)
	}

	dispatcher := events.NewEventDispatcher()
	dispatcher.ContinueOnError = true
	dispatcher.Register(events.NewLoggingHandler(logger).Registration())
	dispatcher.Register(events.NewMilestoneHandler(logger).Registration())
	dispatcher.Register(events.NewRecordingHandler(ws.Events, logger).Registration())
	dispatcher.RegisterHandler("activity", func(_ context.Context, e events.DomainEvent) error {
		return activity.Apply(e.Envelope())
	}, "*")

	journeys := application.NewJourneyService(ws.Store, ws.Store, v, ws.Catalog,
		application.WithLogger(logger),
		application.WithDispatcher(dispatcher),
	)

	return &AppServices{
		Workspace:  ws,
		Journeys:   journeys,
		Ledger:     application.NewLedgerService(ws.Store),
		Dispatcher: dispatcher,
		Activity:   activity,
		Verifier:   v,
	}, loadErr
}

// Close releases the workspace resources.
func (s *AppServices) Close() error {
	return s.Workspace.Close()
}
