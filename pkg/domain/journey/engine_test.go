package journey

import (
	"errors"
	"testing"
	"time"

	"github.com/harvestpath/harvestpath/pkg/domain/catalog"
	"github.com/harvestpath/harvestpath/pkg/domain/verify"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func wheat(t *testing.T) catalog.CropDefinition {
	t.Helper()
	crop, err := catalog.FindCrop(catalog.Default(), "wheat")
	if err != nil {
		t.Fatalf("wheat missing from default catalog: %v", err)
	}
	return crop
}

func newWheatJourney(t *testing.T) (*Journey, catalog.CropDefinition) {
	t.Helper()
	crop := wheat(t)
	j, err := New("farmer-1", crop, testNow)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return j, crop
}

var accepted = verify.Verdict{Verified: true, Reasoning: "looks right"}

func TestNew(t *testing.T) {
	j, crop := newWheatJourney(t)

	if j.ID == "" {
		t.Error("expected generated id")
	}
	if j.Status != StatusActive || j.CurrentStepIndex != 0 || j.HealthScore != 100 {
		t.Errorf("unexpected initial state: %+v", j)
	}
	if len(j.Steps) != len(crop.Workflow) {
		t.Fatalf("steps = %d, want %d", len(j.Steps), len(crop.Workflow))
	}
	for i, s := range j.Steps {
		if s.Verified || s.StepID != crop.Workflow[i].ID {
			t.Errorf("step %d = %+v", i, s)
		}
	}

	// Structural copy: editing the catalog afterwards does not touch the journey.
	crop.Workflow[0].ID = "changed"
	if j.Steps[0].StepID != "s1" {
		t.Error("journey steps alias the catalog workflow")
	}
}

func TestNew_RejectsBadUser(t *testing.T) {
	for _, id := range []string{"", "../etc", "a/b", " "} {
		if _, err := New(id, wheat(t), testNow); !errors.Is(err, ErrInvalidUser) {
			t.Errorf("New(%q) err = %v, want ErrInvalidUser", id, err)
		}
	}
}

func TestCanAttempt(t *testing.T) {
	j, _ := newWheatJourney(t)
	for cursor := 0; cursor < 4; cursor++ {
		j.CurrentStepIndex = cursor
		for i := -1; i < 5; i++ {
			if got, want := CanAttempt(j, i), i <= cursor; got != want {
				t.Errorf("cursor %d, CanAttempt(%d) = %v, want %v", cursor, i, got, want)
			}
		}
	}
}

func TestApplyVerdict_FirstStepVerified(t *testing.T) {
	j, crop := newWheatJourney(t)

	tr, err := ApplyVerdict(j, 0, crop.Workflow[0], accepted, "sha256:abc", testNow)
	if err != nil {
		t.Fatalf("ApplyVerdict: %v", err)
	}

	if tr.Outcome != OutcomeVerified {
		t.Errorf("outcome = %s", tr.Outcome)
	}
	if j.CurrentStepIndex != 1 || !j.Steps[0].Verified || j.Status != StatusActive {
		t.Errorf("unexpected state: cursor=%d verified=%v status=%s", j.CurrentStepIndex, j.Steps[0].Verified, j.Status)
	}
	if j.Steps[0].VerifiedAt == nil || !j.Steps[0].VerifiedAt.Equal(testNow) {
		t.Errorf("verifiedAt = %v", j.Steps[0].VerifiedAt)
	}
	if tr.Reward != (Reward{Points: 100, EcoPoints: 50}) {
		t.Errorf("reward = %+v, want 100/50", tr.Reward)
	}
}

func TestApplyVerdict_LockedStep(t *testing.T) {
	j, crop := newWheatJourney(t)

	_, err := ApplyVerdict(j, 1, crop.Workflow[1], accepted, "sha256:abc", testNow)
	if !errors.Is(err, ErrStepLocked) {
		t.Fatalf("expected ErrStepLocked, got %v", err)
	}
	if j.Steps[1].Verified || j.CurrentStepIndex != 0 {
		t.Error("locked submission mutated the journey")
	}
}

func TestApplyVerdict_Rejected(t *testing.T) {
	j, crop := newWheatJourney(t)

	verdict := verify.Verdict{Verified: false, Reasoning: "field not ploughed"}
	tr, err := ApplyVerdict(j, 0, crop.Workflow[0], verdict, "sha256:abc", testNow)
	if err != nil {
		t.Fatalf("ApplyVerdict: %v", err)
	}

	if tr.Outcome != OutcomeRejected || !tr.Reward.IsZero() {
		t.Errorf("transition = %+v", tr)
	}
	s := j.Steps[0]
	if s.Verified || s.VerifiedAt != nil {
		t.Error("rejected step should stay unverified")
	}
	if s.AIFeedback != "field not ploughed" || s.ProofImageURL != "sha256:abc" {
		t.Errorf("feedback not recorded: %+v", s)
	}
	if j.CurrentStepIndex != 0 {
		t.Errorf("cursor = %d, want 0", j.CurrentStepIndex)
	}
}

func TestApplyVerdict_LastStepCompletes(t *testing.T) {
	j, crop := newWheatJourney(t)

	for i := 0; i < 4; i++ {
		if _, err := ApplyVerdict(j, i, crop.Workflow[i], accepted, "ref", testNow); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	if j.CurrentStepIndex != 3 {
		t.Errorf("cursor = %d, want pinned at 3", j.CurrentStepIndex)
	}
	if j.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", j.Status)
	}
}

func TestApplyVerdict_CompletedIsTerminal(t *testing.T) {
	j, crop := newWheatJourney(t)
	for i := 0; i < 4; i++ {
		if _, err := ApplyVerdict(j, i, crop.Workflow[i], accepted, "ref", testNow); err != nil {
			t.Fatal(err)
		}
	}
	before := j.Clone()

	for i := 0; i < 4; i++ {
		for _, v := range []verify.Verdict{accepted, {Verified: false, Reasoning: "nope"}} {
			tr, err := ApplyVerdict(j, i, crop.Workflow[i], v, "other", testNow.Add(time.Hour))
			if err != nil {
				t.Fatalf("step %d: %v", i, err)
			}
			if tr.Mutated() || !tr.Reward.IsZero() {
				t.Errorf("step %d: completed journey changed: %+v", i, tr)
			}
		}
	}

	if j.CurrentStepIndex != before.CurrentStepIndex || j.Status != before.Status {
		t.Error("completed journey state changed")
	}
	if j.Steps[0].ProofImageURL != "ref" {
		t.Error("proof of a verified step was overwritten")
	}
}

func TestApplyVerdict_AlreadyVerifiedIsNoop(t *testing.T) {
	j, crop := newWheatJourney(t)
	if _, err := ApplyVerdict(j, 0, crop.Workflow[0], accepted, "ref", testNow); err != nil {
		t.Fatal(err)
	}

	tr, err := ApplyVerdict(j, 0, crop.Workflow[0], accepted, "ref", testNow)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Outcome != OutcomeUnchanged || !tr.Reward.IsZero() {
		t.Errorf("duplicate verdict granted a reward: %+v", tr)
	}
	if j.CurrentStepIndex != 1 {
		t.Errorf("cursor = %d, want 1", j.CurrentStepIndex)
	}
}

func TestApplyVerdict_CursorNeverDecreases(t *testing.T) {
	j, crop := newWheatJourney(t)
	verdicts := []struct {
		index   int
		verdict verify.Verdict
	}{
		{0, verify.Verdict{Reasoning: "blurry"}},
		{0, accepted},
		{0, accepted},
		{1, verify.Verdict{Reasoning: "no"}},
		{1, accepted},
		{0, verify.Verdict{Reasoning: "late"}},
		{2, accepted},
		{1, accepted},
		{3, verify.Verdict{Reasoning: "not yet"}},
		{3, accepted},
		{2, accepted},
	}

	last := j.CurrentStepIndex
	for n, v := range verdicts {
		_, _ = ApplyVerdict(j, v.index, crop.Workflow[v.index], v.verdict, "ref", testNow)
		if j.CurrentStepIndex < last {
			t.Fatalf("submission %d: cursor went from %d to %d", n, last, j.CurrentStepIndex)
		}
		last = j.CurrentStepIndex
		assertVerifiedInvariant(t, j)
	}
}

func assertVerifiedInvariant(t *testing.T, j *Journey) {
	t.Helper()
	for i, s := range j.Steps {
		if !s.Verified {
			continue
		}
		ok := i < j.CurrentStepIndex || (i == j.CurrentStepIndex && i == j.LastIndex())
		if !ok {
			t.Fatalf("step %d verified with cursor %d", i, j.CurrentStepIndex)
		}
	}
	lastVerified := len(j.Steps) > 0 && j.Steps[j.LastIndex()].Verified
	if (j.Status == StatusCompleted) != lastVerified {
		t.Fatalf("status %s but last verified = %v", j.Status, lastVerified)
	}
}

func TestApplyVerdict_OutOfRangeAndMismatch(t *testing.T) {
	j, crop := newWheatJourney(t)

	if _, err := ApplyVerdict(j, 7, crop.Workflow[0], accepted, "ref", testNow); !errors.Is(err, ErrStepNotFound) {
		t.Errorf("out of range: got %v", err)
	}
	if _, err := ApplyVerdict(j, 0, crop.Workflow[1], accepted, "ref", testNow); !errors.Is(err, ErrStepNotFound) {
		t.Errorf("mismatched step: got %v", err)
	}
	if j.Steps[0].Verified {
		t.Error("failed apply mutated journey")
	}
}

func TestApplyVerdict_UnsupportedVerification(t *testing.T) {
	crop := catalog.CropDefinition{
		ID:   "sensor-crop",
		Name: "Sensor Crop",
		Workflow: []catalog.WorkflowStep{
			{ID: "x1", Title: "Probe", VerificationType: catalog.VerificationSensor},
		},
	}
	j, err := New("farmer-1", crop, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ApplyVerdict(j, 0, crop.Workflow[0], accepted, "ref", testNow); !errors.Is(err, ErrUnsupportedVerification) {
		t.Errorf("got %v, want ErrUnsupportedVerification", err)
	}
}

func TestReset(t *testing.T) {
	j, crop := newWheatJourney(t)
	for i := 0; i < 4; i++ {
		if _, err := ApplyVerdict(j, i, crop.Workflow[i], accepted, "ref", testNow); err != nil {
			t.Fatal(err)
		}
	}

	later := testNow.Add(24 * time.Hour)
	r, err := Reset(j, later)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if r.ID != j.ID || r.CropID != j.CropID || !r.StartDate.Equal(j.StartDate) {
		t.Error("reset changed identity fields")
	}
	if r.Status != StatusActive || r.CurrentStepIndex != 0 || r.Run != 1 {
		t.Errorf("reset state = status %s cursor %d run %d", r.Status, r.CurrentStepIndex, r.Run)
	}
	for i, s := range r.Steps {
		if s.Verified || s.VerifiedAt != nil || s.ProofImageURL != "" || s.AIFeedback != "" || s.StepID != crop.Workflow[i].ID {
			t.Errorf("step %d not cleared: %+v", i, s)
		}
	}
	if j.Status != StatusCompleted {
		t.Error("Reset mutated its input")
	}
}

func TestAdjustHealth(t *testing.T) {
	j, _ := newWheatJourney(t)

	if err := AdjustHealth(j, 25, testNow); err != nil {
		t.Fatal(err)
	}
	if j.HealthScore != 100 {
		t.Errorf("health = %d, want clamped 100", j.HealthScore)
	}

	if err := AdjustHealth(j, -40, testNow); err != nil {
		t.Fatal(err)
	}
	if j.HealthScore != 60 || j.Status != StatusActive {
		t.Errorf("health = %d status = %s", j.HealthScore, j.Status)
	}

	if err := AdjustHealth(j, -500, testNow); err != nil {
		t.Fatal(err)
	}
	if j.HealthScore != 0 || j.Status != StatusFailed {
		t.Errorf("health = %d status = %s, want 0 failed", j.HealthScore, j.Status)
	}

	if err := AdjustHealth(j, 10, testNow); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("adjusting failed journey: got %v", err)
	}
}

func TestFailedJourneyRejectsProof(t *testing.T) {
	j, crop := newWheatJourney(t)
	j.Status = StatusFailed

	if _, err := ApplyVerdict(j, 0, crop.Workflow[0], accepted, "ref", testNow); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("got %v, want ErrInvalidTransition", err)
	}

	r, err := Reset(j, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != StatusActive || r.HealthScore != InitialHealth {
		t.Errorf("reset failed journey = %s/%d", r.Status, r.HealthScore)
	}
}

func TestFindActiveAndReplace(t *testing.T) {
	a, _ := newWheatJourney(t)
	b, _ := newWheatJourney(t)
	a.Status = StatusCompleted

	journeys := []Journey{*a, *b}
	if got := FindActive(journeys, "wheat"); got == nil || got.ID != b.ID {
		t.Errorf("FindActive = %v, want %s", got, b.ID)
	}
	if FindActive(journeys, "rice") != nil {
		t.Error("no rice journey expected")
	}

	b.HealthScore = 42
	updated := Replace(journeys, *b)
	if Find(updated, b.ID).HealthScore != 42 {
		t.Error("Replace did not swap journey")
	}
	if journeys[1].HealthScore != 100 {
		t.Error("Replace mutated its input")
	}

	c, _ := newWheatJourney(t)
	if len(Replace(journeys, *c)) != 3 {
		t.Error("Replace should append unknown journeys")
	}
}

func TestRewardKey(t *testing.T) {
	if got := RewardKey("j1", 2, "s3"); got != "j1/2/s3" {
		t.Errorf("RewardKey = %s", got)
	}
}
