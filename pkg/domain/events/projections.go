package events

import (
	"sort"
	"sync"
	"time"
)

// JourneyActivity summarises the recorded attempts on one journey.
type JourneyActivity struct {
	JourneyID      string
	UserID         string
	CropID         string
	Verifications  int
	Rejections     int
	SensorFailures int
	Resets         int
	Completions    int
	StartedAt      *time.Time
	LastActivity   time.Time
}

// Attempts returns the number of proofs judged, accepted or not.
func (a JourneyActivity) Attempts() int {
	return a.Verifications + a.Rejections
}

// ActivityProjection counts proof attempts per journey from the audit trail.
type ActivityProjection struct {
	mu       sync.RWMutex
	journeys map[string]*JourneyActivity
}

// NewActivityProjection creates an empty projection.
func NewActivityProjection() *ActivityProjection {
	return &ActivityProjection{journeys: make(map[string]*JourneyActivity)}
}

func (p *ActivityProjection) Name() string { return "journey_activity" }

func (p *ActivityProjection) Apply(event *BaseEvent) error {
	if event.Kind != AggregateTypeJourney {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	a := p.getOrCreate(event.Aggregate, event.UserID)
	switch event.Type {
	case EventTypeJourneyStarted:
		ts := event.Timestamp
		a.StartedAt = &ts
		a.CropID = getStringMetadata(event.Metadata, "crop_id")
	case EventTypeStepVerified:
		a.Verifications++
	case EventTypeStepRejected:
		a.Rejections++
		if failed, ok := event.Metadata["sensor_failure"].(bool); ok && failed {
			a.SensorFailures++
		}
	case EventTypeJourneyCompleted:
		a.Completions++
	case EventTypeJourneyReset:
		a.Resets++
	}
	if event.Timestamp.After(a.LastActivity) {
		a.LastActivity = event.Timestamp
	}
	return nil
}

func (p *ActivityProjection) Rebuild(events []*BaseEvent) error {
	if err := p.Reset(); err != nil {
		return err
	}
	for _, e := range events {
		if err := p.Apply(e); err != nil {
			return err
		}
	}
	return nil
}

func (p *ActivityProjection) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.journeys = make(map[string]*JourneyActivity)
	return nil
}

// Get returns the activity of one journey.
func (p *ActivityProjection) Get(journeyID string) (JourneyActivity, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	a, ok := p.journeys[journeyID]
	if !ok {
		return JourneyActivity{}, false
	}
	return *a, true
}

// ForUser returns the user's journeys, most recently active first.
func (p *ActivityProjection) ForUser(userID string) []JourneyActivity {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []JourneyActivity
	for _, a := range p.journeys {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out
}

func (p *ActivityProjection) getOrCreate(journeyID, userID string) *JourneyActivity {
	a, ok := p.journeys[journeyID]
	if !ok {
		a = &JourneyActivity{JourneyID: journeyID, UserID: userID}
		p.journeys[journeyID] = a
	}
	return a
}

func getStringMetadata(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
