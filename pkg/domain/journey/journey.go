// Package journey models a user's step-gated cultivation of one crop.
package journey

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harvestpath/harvestpath/pkg/domain/catalog"
)

// InitialHealth is the health score of a fresh journey.
const InitialHealth = 100

var userIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// ValidateUserID checks a user identity before it is used as a storage key.
func ValidateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidUser)
	}
	if !userIDPattern.MatchString(userID) {
		return fmt.Errorf("%w: %s", ErrInvalidUser, userID)
	}
	return nil
}

// StepState is the mutable progress of one workflow step inside a journey.
type StepState struct {
	StepID        string     `json:"step_id"`
	Verified      bool       `json:"verified"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty"`
	ProofImageURL string     `json:"proof_image_url,omitempty"`
	AIFeedback    string     `json:"ai_feedback,omitempty"`
}

// Journey is a user's attempt at cultivating one crop.
type Journey struct {
	ID               string      `json:"id"`
	UserID           string      `json:"user_id"`
	CropID           string      `json:"crop_id"`
	CropName         string      `json:"crop_name"`
	StartDate        time.Time   `json:"start_date"`
	Status           Status      `json:"status"`
	CurrentStepIndex int         `json:"current_step_index"`
	Steps            []StepState `json:"steps"`
	HealthScore      int         `json:"health_score"`
	Run              int         `json:"run"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// New creates an active journey with one unverified step per workflow step.
// The steps are a structural copy, so later catalog edits do not affect it.
func New(userID string, crop catalog.CropDefinition, now time.Time) (*Journey, error) {
	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate journey id: %w", err)
	}

	steps := make([]StepState, len(crop.Workflow))
	for i, s := range crop.Workflow {
		steps[i] = StepState{StepID: s.ID}
	}

	return &Journey{
		ID:          id.String(),
		UserID:      userID,
		CropID:      crop.ID,
		CropName:    crop.Name,
		StartDate:   now,
		Status:      StatusActive,
		Steps:       steps,
		HealthScore: InitialHealth,
		UpdatedAt:   now,
	}, nil
}

// Clone returns a deep copy.
func (j *Journey) Clone() *Journey {
	if j == nil {
		return nil
	}
	c := *j
	c.Steps = make([]StepState, len(j.Steps))
	for i, s := range j.Steps {
		if s.VerifiedAt != nil {
			t := *s.VerifiedAt
			s.VerifiedAt = &t
		}
		c.Steps[i] = s
	}
	return &c
}

// LastIndex returns the index of the final step, or -1 for an empty workflow.
func (j *Journey) LastIndex() int {
	return len(j.Steps) - 1
}

// VerifiedCount returns the number of verified steps.
func (j *Journey) VerifiedCount() int {
	n := 0
	for _, s := range j.Steps {
		if s.Verified {
			n++
		}
	}
	return n
}

// CanAttempt reports whether the step at index is unlocked.
func CanAttempt(j *Journey, stepIndex int) bool {
	return stepIndex <= j.CurrentStepIndex
}

// FindActive returns the active journey for the crop, or nil.
func FindActive(journeys []Journey, cropID string) *Journey {
	for i := range journeys {
		if journeys[i].CropID == cropID && journeys[i].Status == StatusActive {
			return &journeys[i]
		}
	}
	return nil
}

// Find returns the journey with the id, or nil.
func Find(journeys []Journey, journeyID string) *Journey {
	for i := range journeys {
		if journeys[i].ID == journeyID {
			return &journeys[i]
		}
	}
	return nil
}

// Replace swaps the journey with the same id in the collection, appending it if absent.
func Replace(journeys []Journey, j Journey) []Journey {
	for i := range journeys {
		if journeys[i].ID == j.ID {
			out := make([]Journey, len(journeys))
			copy(out, journeys)
			out[i] = j
			return out
		}
	}
	return append(append([]Journey(nil), journeys...), j)
}
