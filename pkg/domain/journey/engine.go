package journey

import (
	"fmt"
	"time"

	"github.com/harvestpath/harvestpath/pkg/domain/catalog"
	"github.com/harvestpath/harvestpath/pkg/domain/verify"
)

// Outcome classifies what a verdict did to a journey.
type Outcome string

const (
	// OutcomeRejected means the proof was recorded but the step stays unverified.
	OutcomeRejected Outcome = "rejected"
	// OutcomeVerified means the step moved from unverified to verified.
	OutcomeVerified Outcome = "verified"
	// OutcomeUnchanged means nothing changed: the step was already verified or the journey is completed.
	OutcomeUnchanged Outcome = "unchanged"
)

// Reward is the ledger delta earned by a transition.
type Reward struct {
	Points    int
	EcoPoints int
}

// IsZero reports whether the reward grants nothing.
func (r Reward) IsZero() bool {
	return r.Points == 0 && r.EcoPoints == 0
}

// Transition describes the effect of applying a verdict.
type Transition struct {
	Outcome    Outcome
	StepIndex  int
	StepID     string
	FromCursor int
	ToCursor   int
	Completed  bool
	Reward     Reward
}

// Mutated reports whether the journey needs to be saved.
func (t Transition) Mutated() bool {
	return t.Outcome != OutcomeUnchanged
}

// RewardKey identifies one unverified->verified transition of a step within one run.
func RewardKey(journeyID string, run int, stepID string) string {
	return fmt.Sprintf("%s/%d/%s", journeyID, run, stepID)
}

// CheckAttempt validates that a proof for the step may be submitted, without calling anything.
func CheckAttempt(j *Journey, stepIndex int, step catalog.WorkflowStep) error {
	if stepIndex < 0 || stepIndex >= len(j.Steps) {
		return fmt.Errorf("%w: journey %s has no step %d", ErrStepNotFound, j.ID, stepIndex)
	}
	if j.Steps[stepIndex].StepID != step.ID {
		return &StepMismatchError{JourneyID: j.ID, Index: stepIndex, JourneyStep: j.Steps[stepIndex].StepID, CatalogStep: step.ID}
	}
	if !CanAttempt(j, stepIndex) {
		return fmt.Errorf("%w: step %d is beyond cursor %d", ErrStepLocked, stepIndex, j.CurrentStepIndex)
	}
	if j.Status == StatusFailed {
		return &TransitionError{JourneyID: j.ID, From: j.Status, Event: "submit"}
	}
	if !step.VerificationType.IsImplemented() {
		return fmt.Errorf("%w: %s", ErrUnsupportedVerification, step.VerificationType)
	}
	return nil
}

// IsSettled reports whether a submission for the step cannot change anything.
func IsSettled(j *Journey, stepIndex int) bool {
	if j.Status == StatusCompleted {
		return true
	}
	return stepIndex >= 0 && stepIndex < len(j.Steps) && j.Steps[stepIndex].Verified
}

// ApplyVerdict applies the verifier's verdict for a step to j in place.
//
// A rejected verdict records the proof and feedback only. An accepted verdict
// verifies the step, moves the cursor forward (pinned at the last step) and
// completes the journey when the last step is verified. Verified steps and
// completed journeys are left untouched.
func ApplyVerdict(j *Journey, stepIndex int, step catalog.WorkflowStep, verdict verify.Verdict, proofRef string, now time.Time) (Transition, error) {
	if err := CheckAttempt(j, stepIndex, step); err != nil {
		return Transition{}, err
	}

	t := Transition{
		StepIndex:  stepIndex,
		StepID:     step.ID,
		FromCursor: j.CurrentStepIndex,
		ToCursor:   j.CurrentStepIndex,
	}

	if IsSettled(j, stepIndex) {
		t.Outcome = OutcomeUnchanged
		t.Completed = j.Status == StatusCompleted
		return t, nil
	}

	state := &j.Steps[stepIndex]
	if !verdict.Verified {
		state.ProofImageURL = proofRef
		state.AIFeedback = verdict.Reasoning
		j.UpdatedAt = now
		t.Outcome = OutcomeRejected
		return t, nil
	}

	verifiedAt := now
	*state = StepState{
		StepID:        step.ID,
		Verified:      true,
		VerifiedAt:    &verifiedAt,
		ProofImageURL: proofRef,
		AIFeedback:    verdict.Reasoning,
	}

	isLast := stepIndex == j.LastIndex()
	if isLast {
		j.CurrentStepIndex = stepIndex
		if err := fire(j, EventComplete); err != nil {
			return Transition{}, err
		}
	} else if stepIndex+1 > j.CurrentStepIndex {
		j.CurrentStepIndex = stepIndex + 1
	}
	j.UpdatedAt = now

	t.Outcome = OutcomeVerified
	t.ToCursor = j.CurrentStepIndex
	t.Completed = isLast
	t.Reward = Reward{Points: step.Points, EcoPoints: step.EcoPoints}
	return t, nil
}

// Reset returns a copy of j with all progress cleared and a new run number.
// ID, crop and start date are kept; rewards already granted are not touched.
func Reset(j *Journey, now time.Time) (*Journey, error) {
	out := j.Clone()
	if err := fire(out, EventReset); err != nil {
		return nil, err
	}
	for i := range out.Steps {
		out.Steps[i] = StepState{StepID: out.Steps[i].StepID}
	}
	out.CurrentStepIndex = 0
	out.HealthScore = InitialHealth
	out.Run++
	out.UpdatedAt = now
	return out, nil
}

// AdjustHealth applies an external delta to the health score, clamped to 0..100.
// Reaching zero fails an active journey.
func AdjustHealth(j *Journey, delta int, now time.Time) error {
	if j.Status != StatusActive {
		return &TransitionError{JourneyID: j.ID, From: j.Status, Event: "adjust health"}
	}
	score := j.HealthScore + delta
	if score < 0 {
		score = 0
	}
	if score > InitialHealth {
		score = InitialHealth
	}
	j.HealthScore = score
	j.UpdatedAt = now
	if score == 0 {
		return fire(j, EventFail)
	}
	return nil
}
