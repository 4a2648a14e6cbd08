package journey

import (
	"errors"

	"github.com/harvestpath/harvestpath/pkg/domain/catalog"
)

// Domain errors for journey progression.
var (
	// ErrStepLocked indicates the step lies beyond the journey's cursor.
	ErrStepLocked = errors.New("step is locked")

	// ErrStepNotFound indicates the step index does not exist in the workflow.
	ErrStepNotFound = catalog.ErrStepNotFound

	// ErrCropNotFound indicates the journey references a crop missing from the catalog.
	ErrCropNotFound = catalog.ErrCropNotFound

	// ErrJourneyNotFound indicates no journey with the id exists for the user.
	ErrJourneyNotFound = errors.New("journey not found")

	// ErrUnsupportedVerification indicates the step's verification type cannot take proofs yet.
	ErrUnsupportedVerification = errors.New("verification type not supported")

	// ErrEmptyProof indicates the submitted proof has no content.
	ErrEmptyProof = errors.New("proof image is empty")

	// ErrVerificationInProgress indicates a proof for the journey is already being verified.
	ErrVerificationInProgress = errors.New("verification already in progress")

	// ErrPersistence indicates the journey could not be saved.
	ErrPersistence = errors.New("failed to persist journey")

	// ErrInvalidTransition indicates the requested status change is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidUser indicates a malformed user identity.
	ErrInvalidUser = errors.New("invalid user id")
)

// TransitionError provides details about an invalid status change.
type TransitionError struct {
	JourneyID string
	From      Status
	To        Status
	Event     string
}

func (e *TransitionError) Error() string {
	msg := "cannot " + e.Event + " journey " + e.JourneyID + " from status " + string(e.From)
	if e.To != "" {
		msg += " to " + string(e.To)
	}
	return msg
}

// Is allows errors.Is to work with TransitionError.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// StepMismatchError reports a journey step that no longer lines up with its catalog step.
type StepMismatchError struct {
	JourneyID   string
	Index       int
	JourneyStep string
	CatalogStep string
}

func (e *StepMismatchError) Error() string {
	return "journey " + e.JourneyID + " step " + e.JourneyStep + " does not match catalog step " + e.CatalogStep
}

// Is allows errors.Is to match ErrStepNotFound.
func (e *StepMismatchError) Is(target error) bool {
	return target == ErrStepNotFound
}
