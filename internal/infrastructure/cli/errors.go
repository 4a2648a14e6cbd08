package cli

import (
	"errors"
	"fmt"

	"github.com/harvestpath/harvestpath/pkg/domain/journey"
)

// CLIError wraps domain errors with user-facing messages and actionable hints.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with a default exit code of 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: 1,
	}
}

// MapError converts known domain errors into CLIErrors with actionable hints.
// Unmapped errors are returned as-is.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var transErr *journey.TransitionError
	if errors.As(err, &transErr) {
		return NewCLIError(
			transErr.Error(),
			fmt.Sprintf("Journey '%s' is '%s'. Run 'harvestpath journey reset %s' to start a new run", transErr.JourneyID, transErr.From, transErr.JourneyID),
			err,
		)
	}

	var mismatch *journey.StepMismatchError
	if errors.As(err, &mismatch) {
		return NewCLIError(
			mismatch.Error(),
			"The crop catalog changed since this journey started. Reset the journey to pick up the new workflow",
			err,
		)
	}

	switch {
	case errors.Is(err, journey.ErrInvalidUser):
		return NewCLIError("invalid user id", "Pass --user with letters, digits, '.', '_' or '-'", err)
	case errors.Is(err, journey.ErrJourneyNotFound):
		return NewCLIError("journey not found", "Run 'harvestpath journey list' to see your journeys", err)
	case errors.Is(err, journey.ErrCropNotFound):
		return NewCLIError("crop not found", "Run 'harvestpath crops list' to see available crops", err)
	case errors.Is(err, journey.ErrStepLocked):
		return NewCLIError("step is locked", "Verify the current step first; 'harvestpath journey show' marks it with ▶", err)
	case errors.Is(err, journey.ErrStepNotFound):
		return NewCLIError("step not found", "Step numbers start at 0; see 'harvestpath crops show <crop>'", err)
	case errors.Is(err, journey.ErrEmptyProof):
		return NewCLIError("proof image is empty", "Pass the path to a photo of the finished task", err)
	case errors.Is(err, journey.ErrUnsupportedVerification):
		return NewCLIError("step cannot be verified with a photo yet", "", err)
	case errors.Is(err, journey.ErrVerificationInProgress):
		return NewCLIError("a proof for this journey is already being verified", "Wait for the running verification to finish", err)
	case errors.Is(err, journey.ErrPersistence):
		return NewCLIError("progress could not be saved", "Check that the .harvestpath directory is writable, then submit again", err)
	}

	return err
}
