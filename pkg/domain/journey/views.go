package journey

// Display-only multipliers for session statistics. They are independent of the
// catalog rewards granted through the ledger, so the two totals can differ.
const (
	SessionXPPerStep  = 50
	SessionEcoPerStep = 20
)

// StepLock is the presentation state of a step.
type StepLock string

const (
	StepLocked   StepLock = "locked"
	StepUnlocked StepLock = "unlocked"
	StepVerified StepLock = "verified"
)

// StepView is the per-index state shown to the user.
type StepView struct {
	Index      int
	StepID     string
	Lock       StepLock
	IsCurrent  bool
	AIFeedback string
}

// SessionStat is the display-only XP derived from the verified step count.
type SessionStat struct {
	VerifiedSteps int
	XP            int
	EcoXP         int
}

// Progress returns CurrentStepIndex / len(Steps), the cursor-based ratio.
// A completed journey reports less than 1 because the cursor is pinned at the last step.
func Progress(j *Journey) float64 {
	if len(j.Steps) == 0 {
		return 0
	}
	return float64(j.CurrentStepIndex) / float64(len(j.Steps))
}

// CompletionPercent returns the share of verified steps as a whole percentage.
func CompletionPercent(j *Journey) int {
	if len(j.Steps) == 0 {
		return 0
	}
	return j.VerifiedCount() * 100 / len(j.Steps)
}

// StepViews returns the lock state of every step.
func StepViews(j *Journey) []StepView {
	views := make([]StepView, len(j.Steps))
	for i, s := range j.Steps {
		lock := StepLocked
		switch {
		case s.Verified:
			lock = StepVerified
		case CanAttempt(j, i):
			lock = StepUnlocked
		}
		views[i] = StepView{
			Index:      i,
			StepID:     s.StepID,
			Lock:       lock,
			IsCurrent:  i == j.CurrentStepIndex && j.Status == StatusActive,
			AIFeedback: s.AIFeedback,
		}
	}
	return views
}

// SessionStats returns the display-only XP totals.
func SessionStats(j *Journey) SessionStat {
	n := j.VerifiedCount()
	return SessionStat{
		VerifiedSteps: n,
		XP:            n * SessionXPPerStep,
		EcoXP:         n * SessionEcoPerStep,
	}
}
