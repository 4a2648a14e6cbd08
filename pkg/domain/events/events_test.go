package events

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

var at = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestBaseEvent_CalculateHash(t *testing.T) {
	event := &BaseEvent{
		ID:        "evt-1",
		Type:      EventTypeStepVerified,
		Aggregate: "j1",
		Kind:      AggregateTypeJourney,
		UserID:    "farmer-1",
		Timestamp: at,
		Metadata:  map[string]any{"step_id": "s1", "points": 100},
		PrevHash:  "abc",
	}

	hash := event.CalculateHash()
	if hash == "" || hash != event.CalculateHash() {
		t.Fatal("hash should be non-empty and deterministic")
	}

	event.UserID = "farmer-2"
	if event.CalculateHash() == hash {
		t.Error("changing the user should change the hash")
	}
}

func TestCanonicalJSON_SortsKeys(t *testing.T) {
	got := canonicalJSON(map[string]any{"zebra": 1, "apple": "a"})
	if got != `{"apple":"a","zebra":1}` {
		t.Errorf("canonicalJSON = %s", got)
	}
	if canonicalJSON(nil) != "" {
		t.Error("empty metadata should encode as empty string")
	}
}

func TestEnvelope_CarriesMetadata(t *testing.T) {
	e := &StepVerified{
		BaseEvent: NewBase(EventTypeStepVerified, AggregateTypeJourney, "j1", "farmer-1", at),
		StepIndex: 0,
		StepID:    "s1",
		Points:    100,
		EcoPoints: 50,
		ProofRef:  "sha256:ab",
	}

	env := e.Envelope()
	if env.Type != EventTypeStepVerified || env.Aggregate != "j1" || env.ID == "" {
		t.Errorf("envelope = %+v", env)
	}
	if env.Metadata["step_id"] != "s1" || env.Metadata["points"] != 100 {
		t.Errorf("metadata = %v", env.Metadata)
	}
	if e.Metadata != nil {
		t.Error("Envelope should not mutate the event")
	}

	var de DomainEvent = e
	if de.AggregateType() != AggregateTypeJourney || !de.OccurredAt().Equal(at) {
		t.Error("promoted accessors broken")
	}
}

func TestEventDispatcher_Dispatch(t *testing.T) {
	d := NewEventDispatcher()

	var order []string
	d.RegisterHandler("specific", func(context.Context, DomainEvent) error {
		order = append(order, "specific")
		return nil
	}, EventTypeJourneyReset)
	d.RegisterHandler("wildcard", func(context.Context, DomainEvent) error {
		order = append(order, "wildcard")
		return nil
	}, "*")

	if !d.HasHandlers(EventTypeJourneyStarted) {
		t.Error("wildcard should match every type")
	}

	e := &JourneyReset{BaseEvent: NewBase(EventTypeJourneyReset, AggregateTypeJourney, "j1", "u", at), Run: 1}
	if err := d.Dispatch(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	if strings.Join(order, ",") != "specific,wildcard" {
		t.Errorf("order = %v", order)
	}
}

func TestEventDispatcher_Errors(t *testing.T) {
	boom := errors.New("boom")
	failing := func(context.Context, DomainEvent) error { return boom }
	e := &JourneyCompleted{BaseEvent: NewBase(EventTypeJourneyCompleted, AggregateTypeJourney, "j1", "u", at)}

	t.Run("stop at first", func(t *testing.T) {
		d := NewEventDispatcher()
		calls := 0
		d.RegisterHandler("a", failing, "*")
		d.RegisterHandler("b", func(context.Context, DomainEvent) error { calls++; return nil }, "*")

		if err := d.Dispatch(context.Background(), e); !errors.Is(err, boom) {
			t.Errorf("got %v", err)
		}
		if calls != 0 {
			t.Error("second handler should not run")
		}
	})

	t.Run("continue on error", func(t *testing.T) {
		d := NewEventDispatcher()
		d.ContinueOnError = true
		d.RegisterHandler("a", failing, "*")
		d.RegisterHandler("b", failing, "*")

		err := d.Dispatch(context.Background(), e)
		var de *DispatchError
		if !errors.As(err, &de) || len(de.Errors) != 2 {
			t.Fatalf("got %v", err)
		}
		if !errors.Is(err, boom) {
			t.Error("DispatchError should unwrap to handler errors")
		}
	})
}

type memStore struct {
	events []*BaseEvent
	err    error
}

func (m *memStore) Append(e *BaseEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}
func (m *memStore) LoadAll() ([]*BaseEvent, error)                    { return m.events, nil }
func (m *memStore) LoadByAggregate(_, _ string) ([]*BaseEvent, error) { return m.events, nil }
func (m *memStore) LoadByUser(string) ([]*BaseEvent, error)           { return m.events, nil }
func (m *memStore) GetLastEvent() (*BaseEvent, error)                 { return nil, nil }
func (m *memStore) Count() (int, error)                               { return len(m.events), nil }

func TestRecordingHandler(t *testing.T) {
	store := &memStore{}
	h := NewRecordingHandler(store, slog.Default())

	e := &JourneyStarted{
		BaseEvent: NewBase(EventTypeJourneyStarted, AggregateTypeJourney, "j1", "u", at),
		CropID:    "wheat",
	}
	if err := h.Handle(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	if len(store.events) != 1 || store.events[0].Metadata["crop_id"] != "wheat" {
		t.Errorf("recorded = %+v", store.events)
	}

	store.err = errors.New("disk full")
	if err := h.Handle(context.Background(), e); err == nil {
		t.Error("expected store error to propagate")
	}
}

func TestMilestoneHandler_LogsSensorFailureAsWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := NewMilestoneHandler(logger)

	e := &StepRejected{
		BaseEvent:     NewBase(EventTypeStepRejected, AggregateTypeJourney, "j1", "u", at),
		StepID:        "s1",
		SensorFailure: true,
	}
	if err := h.Handle(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "level=WARN") || !strings.Contains(buf.String(), "step_id=s1") {
		t.Errorf("log output = %s", buf.String())
	}
}

func TestActivityProjection(t *testing.T) {
	p := NewActivityProjection()

	mk := func(typ string, offset time.Duration, meta map[string]any) *BaseEvent {
		b := NewBase(typ, AggregateTypeJourney, "j1", "farmer-1", at.Add(offset))
		b.Metadata = meta
		return &b
	}
	history := []*BaseEvent{
		mk(EventTypeJourneyStarted, 0, map[string]any{"crop_id": "wheat"}),
		mk(EventTypeStepRejected, time.Minute, map[string]any{"sensor_failure": true}),
		mk(EventTypeStepRejected, 2*time.Minute, map[string]any{"sensor_failure": false}),
		mk(EventTypeStepVerified, 3*time.Minute, nil),
		mk(EventTypeJourneyReset, 4*time.Minute, nil),
	}
	ledgerEvent := NewBase(EventTypeRewardGranted, AggregateTypeLedger, "farmer-1", "farmer-1", at)
	history = append(history, &ledgerEvent)

	if err := p.Rebuild(history); err != nil {
		t.Fatal(err)
	}

	a, ok := p.Get("j1")
	if !ok {
		t.Fatal("journey j1 missing")
	}
	if a.CropID != "wheat" || a.Attempts() != 3 || a.SensorFailures != 1 || a.Resets != 1 {
		t.Errorf("activity = %+v", a)
	}
	if !a.LastActivity.Equal(at.Add(4 * time.Minute)) {
		t.Errorf("last activity = %v", a.LastActivity)
	}
	if len(p.ForUser("farmer-1")) != 1 || len(p.ForUser("other")) != 0 {
		t.Error("ForUser filtering broken")
	}
	if _, ok := p.Get("farmer-1"); ok {
		t.Error("ledger events should not create journey activity")
	}
}
