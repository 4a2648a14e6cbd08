// Package application coordinates the catalog, journey engine, verifier,
// ledger and event trail behind user-scoped operations.
package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harvestpath/harvestpath/pkg/domain/catalog"
	"github.com/harvestpath/harvestpath/pkg/domain/events"
	"github.com/harvestpath/harvestpath/pkg/domain/journey"
	"github.com/harvestpath/harvestpath/pkg/domain/ledger"
	"github.com/harvestpath/harvestpath/pkg/domain/verify"
)

// StartResult is returned by StartJourney. Redirected is true when an active
// journey for the crop already existed and was returned instead of a new one.
type StartResult struct {
	Journey    *journey.Journey
	Redirected bool
}

// SubmitResult describes the outcome of a proof submission.
type SubmitResult struct {
	Journey    *journey.Journey
	Verdict    verify.Verdict
	Transition journey.Transition
	// SensorFailure is set when the verifier failed and the fallback verdict was used.
	SensorFailure bool
	// RewardApplied is false for duplicate grants and for rejected or settled submissions.
	RewardApplied bool
	// RewardPending is set when the journey was saved but the ledger could not be updated.
	RewardPending bool
}

// Overview is the read model shown for one journey.
type Overview struct {
	Journey           *journey.Journey
	Crop              catalog.CropDefinition
	Progress          float64
	CompletionPercent int
	Steps             []journey.StepView
	Session           journey.SessionStat
	Balance           ledger.Balance
}

// Option configures a JourneyService.
type Option func(*JourneyService)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *JourneyService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *JourneyService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDispatcher publishes domain events through d.
func WithDispatcher(d *events.EventDispatcher) Option {
	return func(s *JourneyService) {
		s.dispatcher = d
	}
}

// JourneyService runs the progression engine against a store, a ledger and a verifier.
// Every operation takes the user identity explicitly.
type JourneyService struct {
	repo       journey.Repository
	ledger     ledger.Ledger
	verifier   verify.Verifier
	catalog    *catalog.Catalog
	dispatcher *events.EventDispatcher
	logger     *slog.Logger
	now        func() time.Time

	// mu serialises load-modify-save cycles on the user collections.
	mu sync.Mutex
	// inFlight holds journeys with an outstanding verifier call.
	inFlight map[string]struct{}
}

func NewJourneyService(repo journey.Repository, l ledger.Ledger, v verify.Verifier, cat *catalog.Catalog, opts ...Option) *JourneyService {
	if cat == nil {
		cat = catalog.Default()
	}
	s := &JourneyService{
		repo:     repo,
		ledger:   l,
		verifier: v,
		catalog:  cat,
		logger:   slog.Default(),
		now:      time.Now,
		inFlight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the catalog the service resolves crops against.
func (s *JourneyService) Catalog() *catalog.Catalog {
	return s.catalog
}

// StartJourney creates a journey for the crop, or returns the user's active one.
func (s *JourneyService) StartJourney(ctx context.Context, userID, cropID string) (*StartResult, error) {
	crop, err := catalog.FindCrop(s.catalog, cropID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	journeys, err := s.repo.LoadAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load journeys: %w", err)
	}
	if existing := journey.FindActive(journeys, cropID); existing != nil {
		s.logger.Debug("journey already active", "user", userID, "journey", existing.ID, "crop", cropID)
		return &StartResult{Journey: existing.Clone(), Redirected: true}, nil
	}

	j, err := journey.New(userID, crop, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, userID, journey.Replace(journeys, *j)); err != nil {
		return nil, err
	}

	s.logger.Info("journey started", "user", userID, "journey", j.ID, "crop", cropID)
	s.publish(ctx, &events.JourneyStarted{
		BaseEvent: events.NewBase(events.EventTypeJourneyStarted, events.AggregateTypeJourney, j.ID, userID, j.StartDate),
		CropID:    crop.ID,
		CropName:  crop.Name,
	})
	return &StartResult{Journey: j.Clone()}, nil
}

// SubmitProof verifies a proof for one step and applies the verdict.
//
// Gating is checked before the verifier is called. A verifier error is turned
// into the sensor-failure verdict and leaves the journey untouched. Rewards are
// granted only after the journey has been saved.
func (s *JourneyService) SubmitProof(ctx context.Context, userID, journeyID string, stepIndex int, proof verify.Proof) (*SubmitResult, error) {
	if proof.IsEmpty() {
		return nil, journey.ErrEmptyProof
	}
	if err := journey.ValidateUserID(userID); err != nil {
		return nil, err
	}

	release, err := s.acquire(journeyID)
	if err != nil {
		return nil, err
	}
	defer release()

	j, step, err := s.loadForSubmit(ctx, userID, journeyID, stepIndex)
	if err != nil {
		return nil, err
	}

	if journey.IsSettled(j, stepIndex) {
		state := j.Steps[stepIndex]
		return &SubmitResult{
			Journey: j,
			Verdict: verify.Verdict{Verified: state.Verified || j.Status == journey.StatusCompleted, Reasoning: state.AIFeedback},
			Transition: journey.Transition{
				Outcome:    journey.OutcomeUnchanged,
				StepIndex:  stepIndex,
				StepID:     step.ID,
				FromCursor: j.CurrentStepIndex,
				ToCursor:   j.CurrentStepIndex,
				Completed:  j.Status == journey.StatusCompleted,
			},
		}, nil
	}

	verdict, sensorErr := s.verify(ctx, step, proof)
	if sensorErr != nil {
		s.logger.Warn("verification failed",
			"user", userID,
			"journey", journeyID,
			"step", step.ID,
			"verifier", s.verifier.ID(),
			"error", sensorErr,
		)
		s.publish(ctx, &events.StepRejected{
			BaseEvent:     events.NewBase(events.EventTypeStepRejected, events.AggregateTypeJourney, journeyID, userID, s.now()),
			StepIndex:     stepIndex,
			StepID:        step.ID,
			Reasoning:     verdict.Reasoning,
			SensorFailure: true,
		})
		return &SubmitResult{
			Journey: j,
			Verdict: verdict,
			Transition: journey.Transition{
				Outcome:    journey.OutcomeUnchanged,
				StepIndex:  stepIndex,
				StepID:     step.ID,
				FromCursor: j.CurrentStepIndex,
				ToCursor:   j.CurrentStepIndex,
			},
			SensorFailure: true,
		}, nil
	}

	return s.applyVerdict(ctx, userID, journeyID, stepIndex, step, verdict, ProofRef(proof))
}

func (s *JourneyService) loadForSubmit(ctx context.Context, userID, journeyID string, stepIndex int) (*journey.Journey, catalog.WorkflowStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.find(ctx, userID, journeyID)
	if err != nil {
		return nil, catalog.WorkflowStep{}, err
	}
	step, err := s.stepFor(j, stepIndex)
	if err != nil {
		return nil, catalog.WorkflowStep{}, err
	}
	if err := journey.CheckAttempt(j, stepIndex, step); err != nil {
		return nil, catalog.WorkflowStep{}, err
	}
	return j, step, nil
}

// verify calls the verifier. The returned error is informational: the verdict
// is always usable and is the sensor-failure fallback when err is non-nil.
func (s *JourneyService) verify(ctx context.Context, step catalog.WorkflowStep, proof verify.Proof) (verify.Verdict, error) {
	if s.verifier == nil {
		return verify.SensorFailure(), errors.New("no verifier configured")
	}
	v, err := s.verifier.Verify(ctx, verify.Request{
		TaskTitle:       step.Title,
		TaskDescription: step.Description,
		Image:           proof,
	})
	if err != nil {
		return verify.SensorFailure(), err
	}
	if v == nil {
		return verify.SensorFailure(), verify.ErrMalformedVerdict
	}
	return *v, nil
}

// applyVerdict reloads the journey so the verdict lands on the latest saved state.
func (s *JourneyService) applyVerdict(ctx context.Context, userID, journeyID string, stepIndex int, step catalog.WorkflowStep, verdict verify.Verdict, proofRef string) (*SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	journeys, err := s.repo.LoadAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load journeys: %w", err)
	}
	current := journey.Find(journeys, journeyID)
	if current == nil {
		return nil, fmt.Errorf("%w: %s", journey.ErrJourneyNotFound, journeyID)
	}
	j := current.Clone()

	now := s.now()
	t, err := journey.ApplyVerdict(j, stepIndex, step, verdict, proofRef, now)
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{Journey: j, Verdict: verdict, Transition: t}
	if !t.Mutated() {
		return result, nil
	}

	if err := s.save(ctx, userID, journey.Replace(journeys, *j)); err != nil {
		return nil, err
	}

	if t.Outcome == journey.OutcomeRejected {
		s.logger.Info("proof rejected", "user", userID, "journey", j.ID, "step", step.ID)
		s.publish(ctx, &events.StepRejected{
			BaseEvent: events.NewBase(events.EventTypeStepRejected, events.AggregateTypeJourney, j.ID, userID, now),
			StepIndex: stepIndex,
			StepID:    step.ID,
			Reasoning: verdict.Reasoning,
		})
		return result, nil
	}

	s.logger.Info("step verified", "user", userID, "journey", j.ID, "step", step.ID, "cursor", t.ToCursor)
	s.publish(ctx, &events.StepVerified{
		BaseEvent: events.NewBase(events.EventTypeStepVerified, events.AggregateTypeJourney, j.ID, userID, now),
		StepIndex: stepIndex,
		StepID:    step.ID,
		Points:    t.Reward.Points,
		EcoPoints: t.Reward.EcoPoints,
		ProofRef:  proofRef,
	})
	if t.Completed {
		s.publish(ctx, &events.JourneyCompleted{
			BaseEvent: events.NewBase(events.EventTypeJourneyCompleted, events.AggregateTypeJourney, j.ID, userID, now),
			CropID:    j.CropID,
		})
	}

	applied, err := s.grant(ctx, j, step, t.Reward, now)
	if err != nil {
		s.logger.Error("reward not recorded", "user", userID, "journey", j.ID, "step", step.ID, "error", err)
		result.RewardPending = true
		return result, nil
	}
	result.RewardApplied = applied
	return result, nil
}

func (s *JourneyService) grant(ctx context.Context, j *journey.Journey, step catalog.WorkflowStep, reward journey.Reward, now time.Time) (bool, error) {
	if s.ledger == nil || reward.IsZero() {
		return false, nil
	}
	g := ledger.Grant{
		Key:       journey.RewardKey(j.ID, j.Run, step.ID),
		UserID:    j.UserID,
		Points:    reward.Points,
		EcoPoints: reward.EcoPoints,
		Reason:    fmt.Sprintf("%s: %s", j.CropName, step.Title),
		JourneyID: j.ID,
		StepID:    step.ID,
	}
	applied, err := s.ledger.Apply(ctx, g)
	if err != nil {
		return false, err
	}
	if applied {
		s.publish(ctx, &events.RewardGranted{
			BaseEvent: events.NewBase(events.EventTypeRewardGranted, events.AggregateTypeLedger, j.UserID, j.UserID, now),
			Key:       g.Key,
			Points:    g.Points,
			EcoPoints: g.EcoPoints,
		})
	}
	return applied, nil
}

// ReconcileRewards grants any reward owed for verified steps of the current
// runs that the ledger has not recorded. It returns the number of grants applied.
func (s *JourneyService) ReconcileRewards(ctx context.Context, userID string) (int, error) {
	if s.ledger == nil {
		return 0, nil
	}
	journeys, err := s.ListJourneys(ctx, userID)
	if err != nil {
		return 0, err
	}

	applied := 0
	for i := range journeys {
		j := &journeys[i]
		crop, err := catalog.FindCrop(s.catalog, j.CropID)
		if err != nil {
			s.logger.Warn("skipping journey with unknown crop", "journey", j.ID, "crop", j.CropID)
			continue
		}
		for idx, state := range j.Steps {
			if !state.Verified || idx >= len(crop.Workflow) || crop.Workflow[idx].ID != state.StepID {
				continue
			}
			step := crop.Workflow[idx]
			ok, err := s.grant(ctx, j, step, journey.Reward{Points: step.Points, EcoPoints: step.EcoPoints}, s.now())
			if err != nil {
				return applied, err
			}
			if ok {
				applied++
			}
		}
	}
	return applied, nil
}

// ResetJourney clears all progress and starts a new run. Rewards already
// granted stay in the ledger.
func (s *JourneyService) ResetJourney(ctx context.Context, userID, journeyID string) (*journey.Journey, error) {
	release, err := s.acquire(journeyID)
	if err != nil {
		return nil, err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	journeys, err := s.repo.LoadAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load journeys: %w", err)
	}
	current := journey.Find(journeys, journeyID)
	if current == nil {
		return nil, fmt.Errorf("%w: %s", journey.ErrJourneyNotFound, journeyID)
	}
	if current.Status != journey.StatusActive {
		if other := journey.FindActive(journeys, current.CropID); other != nil {
			return nil, fmt.Errorf("crop %s already has active journey %s: %w", current.CropID, other.ID,
				&journey.TransitionError{JourneyID: current.ID, From: current.Status, To: journey.StatusActive, Event: journey.EventReset})
		}
	}

	reset, err := journey.Reset(current, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, userID, journey.Replace(journeys, *reset)); err != nil {
		return nil, err
	}

	s.logger.Info("journey reset", "user", userID, "journey", reset.ID, "run", reset.Run)
	s.publish(ctx, &events.JourneyReset{
		BaseEvent: events.NewBase(events.EventTypeJourneyReset, events.AggregateTypeJourney, reset.ID, userID, reset.UpdatedAt),
		Run:       reset.Run,
	})
	return reset, nil
}

// AdjustHealth applies an external health delta. A score of zero fails the journey.
func (s *JourneyService) AdjustHealth(ctx context.Context, userID, journeyID string, delta int) (*journey.Journey, error) {
	release, err := s.acquire(journeyID)
	if err != nil {
		return nil, err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	journeys, err := s.repo.LoadAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load journeys: %w", err)
	}
	current := journey.Find(journeys, journeyID)
	if current == nil {
		return nil, fmt.Errorf("%w: %s", journey.ErrJourneyNotFound, journeyID)
	}

	j := current.Clone()
	if err := journey.AdjustHealth(j, delta, s.now()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, userID, journey.Replace(journeys, *j)); err != nil {
		return nil, err
	}

	if j.Status == journey.StatusFailed {
		s.logger.Warn("journey failed", "user", userID, "journey", j.ID, "crop", j.CropID)
	}
	s.publish(ctx, &events.HealthAdjusted{
		BaseEvent:   events.NewBase(events.EventTypeHealthAdjusted, events.AggregateTypeJourney, j.ID, userID, j.UpdatedAt),
		Delta:       delta,
		HealthScore: j.HealthScore,
		Status:      string(j.Status),
	})
	return j, nil
}

// GetJourney returns a copy of one journey.
func (s *JourneyService) GetJourney(ctx context.Context, userID, journeyID string) (*journey.Journey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(ctx, userID, journeyID)
}

// ListJourneys returns every journey of the user.
func (s *JourneyService) ListJourneys(ctx context.Context, userID string) ([]journey.Journey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	journeys, err := s.repo.LoadAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load journeys: %w", err)
	}
	return journeys, nil
}

// Overview returns the derived views of a journey together with the user's balance.
func (s *JourneyService) Overview(ctx context.Context, userID, journeyID string) (*Overview, error) {
	j, err := s.GetJourney(ctx, userID, journeyID)
	if err != nil {
		return nil, err
	}
	crop, err := catalog.FindCrop(s.catalog, j.CropID)
	if err != nil {
		return nil, err
	}

	o := &Overview{
		Journey:           j,
		Crop:              crop,
		Progress:          journey.Progress(j),
		CompletionPercent: journey.CompletionPercent(j),
		Steps:             journey.StepViews(j),
		Session:           journey.SessionStats(j),
		Balance:           ledger.Balance{UserID: userID},
	}
	if s.ledger != nil {
		b, err := s.ledger.Balance(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load balance: %w", err)
		}
		o.Balance = b
	}
	return o, nil
}

// ProofRef returns the content digest stored in place of the raw proof image.
func ProofRef(p verify.Proof) string {
	sum := sha256.Sum256(p.Data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

func (s *JourneyService) find(ctx context.Context, userID, journeyID string) (*journey.Journey, error) {
	journeys, err := s.repo.LoadAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load journeys: %w", err)
	}
	j := journey.Find(journeys, journeyID)
	if j == nil {
		return nil, fmt.Errorf("%w: %s", journey.ErrJourneyNotFound, journeyID)
	}
	return j.Clone(), nil
}

// stepFor resolves the catalog step behind a journey step index.
func (s *JourneyService) stepFor(j *journey.Journey, stepIndex int) (catalog.WorkflowStep, error) {
	crop, err := catalog.FindCrop(s.catalog, j.CropID)
	if err != nil {
		return catalog.WorkflowStep{}, err
	}
	if stepIndex < 0 || stepIndex >= len(j.Steps) {
		return catalog.WorkflowStep{}, fmt.Errorf("%w: journey %s has no step %d", journey.ErrStepNotFound, j.ID, stepIndex)
	}
	return catalog.FindStep(crop, stepIndex)
}

func (s *JourneyService) save(ctx context.Context, userID string, journeys []journey.Journey) error {
	if err := s.repo.SaveAll(ctx, userID, journeys); err != nil {
		return fmt.Errorf("%w: %w", journey.ErrPersistence, err)
	}
	return nil
}

// acquire marks the journey busy until release is called.
func (s *JourneyService) acquire(journeyID string) (release func(), err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[journeyID]; busy {
		return nil, fmt.Errorf("%w: %s", journey.ErrVerificationInProgress, journeyID)
	}
	s.inFlight[journeyID] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inFlight, journeyID)
		s.mu.Unlock()
	}, nil
}

func (s *JourneyService) publish(ctx context.Context, event events.DomainEvent) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, event); err != nil {
		s.logger.Warn("event handler failed", "event_type", event.EventType(), "error", err)
	}
}
