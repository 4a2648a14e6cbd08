// Package events defines the journey domain events and their audit trail.
package events

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is the interface for all dispatched events.
type DomainEvent interface {
	EventType() string
	AggregateID() string
	AggregateType() string
	OccurredAt() time.Time
	// Envelope returns the persistable form of the event.
	Envelope() *BaseEvent
}

// BaseEvent carries the common fields and is the record written to the event store.
type BaseEvent struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Aggregate string         `json:"aggregate_id"`
	Kind      string         `json:"aggregate_type"`
	UserID    string         `json:"user_id"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	PrevHash  string         `json:"prev_hash,omitempty"`
	Hash      string         `json:"hash,omitempty"`
}

// NewBase stamps a new event with an id and timestamp.
func NewBase(eventType, aggregateType, aggregateID, userID string, at time.Time) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Aggregate: aggregateID,
		Kind:      aggregateType,
		UserID:    userID,
		Timestamp: at,
	}
}

func (e *BaseEvent) EventType() string     { return e.Type }
func (e *BaseEvent) AggregateID() string   { return e.Aggregate }
func (e *BaseEvent) AggregateType() string { return e.Kind }
func (e *BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e *BaseEvent) Envelope() *BaseEvent  { return e }

// CalculateHash generates a deterministic SHA256 hash of the event.
func (e *BaseEvent) CalculateHash() string {
	h := sha256.New()
	h.Write([]byte(e.PrevHash))
	h.Write([]byte(e.ID))
	h.Write([]byte(e.Timestamp.Format(time.RFC3339Nano)))
	h.Write([]byte(e.Type))
	h.Write([]byte(e.Aggregate))
	h.Write([]byte(e.UserID))
	h.Write([]byte(canonicalJSON(e.Metadata)))
	return hex.EncodeToString(h.Sum(nil))
}

// withMetadata returns a copy of the base carrying the given metadata.
func (e BaseEvent) withMetadata(m map[string]any) *BaseEvent {
	e.Metadata = m
	return &e
}

// canonicalJSON produces a deterministic JSON representation.
func canonicalJSON(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]byte, 0, 256)
	out = append(out, '{')
	for i, k := range keys {
		if i > 0 {
			out = append(out, ',')
		}
		keyJSON, _ := json.Marshal(k)
		valJSON, _ := json.Marshal(m[k])
		out = append(out, keyJSON...)
		out = append(out, ':')
		out = append(out, valJSON...)
	}
	out = append(out, '}')
	return string(out)
}

// JourneyStarted is emitted when a user starts cultivating a crop.
type JourneyStarted struct {
	BaseEvent
	CropID   string `json:"crop_id"`
	CropName string `json:"crop_name"`
}

func (e *JourneyStarted) Envelope() *BaseEvent {
	return e.withMetadata(map[string]any{"crop_id": e.CropID, "crop_name": e.CropName})
}

// StepVerified is emitted when a step moves from unverified to verified.
type StepVerified struct {
	BaseEvent
	StepIndex int    `json:"step_index"`
	StepID    string `json:"step_id"`
	Points    int    `json:"points"`
	EcoPoints int    `json:"eco_points"`
	ProofRef  string `json:"proof_ref"`
}

func (e *StepVerified) Envelope() *BaseEvent {
	return e.withMetadata(map[string]any{
		"step_index": e.StepIndex,
		"step_id":    e.StepID,
		"points":     e.Points,
		"eco_points": e.EcoPoints,
		"proof_ref":  e.ProofRef,
	})
}

// StepRejected is emitted when the verifier does not accept a proof.
type StepRejected struct {
	BaseEvent
	StepIndex     int    `json:"step_index"`
	StepID        string `json:"step_id"`
	Reasoning     string `json:"reasoning"`
	SensorFailure bool   `json:"sensor_failure,omitempty"`
}

func (e *StepRejected) Envelope() *BaseEvent {
	return e.withMetadata(map[string]any{
		"step_index":     e.StepIndex,
		"step_id":        e.StepID,
		"reasoning":      e.Reasoning,
		"sensor_failure": e.SensorFailure,
	})
}

// JourneyCompleted is emitted when the last step is verified.
type JourneyCompleted struct {
	BaseEvent
	CropID string `json:"crop_id"`
}

func (e *JourneyCompleted) Envelope() *BaseEvent {
	return e.withMetadata(map[string]any{"crop_id": e.CropID})
}

// JourneyReset is emitted when a journey's progress is cleared.
type JourneyReset struct {
	BaseEvent
	Run int `json:"run"`
}

func (e *JourneyReset) Envelope() *BaseEvent {
	return e.withMetadata(map[string]any{"run": e.Run})
}

// HealthAdjusted is emitted when the health score changes.
type HealthAdjusted struct {
	BaseEvent
	Delta       int    `json:"delta"`
	HealthScore int    `json:"health_score"`
	Status      string `json:"status"`
}

func (e *HealthAdjusted) Envelope() *BaseEvent {
	return e.withMetadata(map[string]any{
		"delta":        e.Delta,
		"health_score": e.HealthScore,
		"status":       e.Status,
	})
}

// RewardGranted is emitted when the ledger accepts a new grant.
type RewardGranted struct {
	BaseEvent
	Key       string `json:"key"`
	Points    int    `json:"points"`
	EcoPoints int    `json:"eco_points"`
}

func (e *RewardGranted) Envelope() *BaseEvent {
	return e.withMetadata(map[string]any{
		"key":        e.Key,
		"points":     e.Points,
		"eco_points": e.EcoPoints,
	})
}

const (
	EventTypeJourneyStarted   = "journey.started"
	EventTypeStepVerified     = "journey.step_verified"
	EventTypeStepRejected     = "journey.step_rejected"
	EventTypeJourneyCompleted = "journey.completed"
	EventTypeJourneyReset     = "journey.reset"
	EventTypeHealthAdjusted   = "journey.health_adjusted"
	EventTypeRewardGranted    = "ledger.reward_granted"
)

// Aggregate types.
const (
	AggregateTypeJourney = "journey"
	AggregateTypeLedger  = "ledger"
)
