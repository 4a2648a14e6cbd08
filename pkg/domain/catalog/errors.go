package catalog

import "errors"

var (
	// ErrCropNotFound indicates the crop id is not in the catalog.
	ErrCropNotFound = errors.New("crop not found in catalog")

	// ErrStepNotFound indicates the step index is outside the crop's workflow.
	ErrStepNotFound = errors.New("step not found in workflow")
)
