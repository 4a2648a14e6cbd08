// Package catalog holds the static crop and workflow reference data.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// WorkflowStep is one phase of a crop's cultivation workflow.
type WorkflowStep struct {
	ID               string           `yaml:"id" json:"id" validate:"required"`
	Title            string           `yaml:"title" json:"title" validate:"required"`
	Description      string           `yaml:"description" json:"description"`
	Category         Category         `yaml:"category" json:"category" validate:"oneof=Preparation Sowing Maintenance Protection Harvest Post-Harvest"`
	Points           int              `yaml:"points" json:"points" validate:"gte=0"`
	EcoPoints        int              `yaml:"eco_points" json:"eco_points" validate:"gte=0"`
	VerificationType VerificationType `yaml:"verification_type" json:"verification_type" validate:"oneof=camera checklist sensor"`
	Tools            []string         `yaml:"tools,omitempty" json:"tools,omitempty"`
	Warnings         []string         `yaml:"warnings,omitempty" json:"warnings,omitempty"`
	Icon             string           `yaml:"icon,omitempty" json:"icon,omitempty"`
}

// CropDefinition describes a crop and its ordered workflow.
// The index of a step in Workflow is its phase number.
type CropDefinition struct {
	ID               string         `yaml:"id" json:"id" validate:"required"`
	Name             string         `yaml:"name" json:"name" validate:"required"`
	Season           Season         `yaml:"season" json:"season" validate:"oneof=Kharif Rabi Zaid"`
	WaterRequirement string         `yaml:"water_requirement" json:"water_requirement"`
	SoilSuitability  string         `yaml:"soil_suitability" json:"soil_suitability"`
	Workflow         []WorkflowStep `yaml:"workflow,omitempty" json:"workflow,omitempty" validate:"unique=ID,dive"`
}

// Catalog is the read-only set of crops a user can cultivate.
type Catalog struct {
	Crops []CropDefinition `yaml:"crops" json:"crops" validate:"unique=ID,dive"`
}

var validate = validator.New()

// Validate checks required fields, reward ranges, enum membership and id uniqueness.
func (c *Catalog) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid catalog: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid catalog: %w", err)
	}
	return nil
}

// FindCrop looks up a crop by id.
func FindCrop(c *Catalog, cropID string) (CropDefinition, error) {
	if c == nil {
		return CropDefinition{}, ErrCropNotFound
	}
	for _, crop := range c.Crops {
		if crop.ID == cropID {
			return crop, nil
		}
	}
	return CropDefinition{}, fmt.Errorf("%w: %s", ErrCropNotFound, cropID)
}

// FindStep returns the workflow step at the given phase index.
func FindStep(crop CropDefinition, stepIndex int) (WorkflowStep, error) {
	if stepIndex < 0 || stepIndex >= len(crop.Workflow) {
		return WorkflowStep{}, fmt.Errorf("%w: crop %s has no step %d", ErrStepNotFound, crop.ID, stepIndex)
	}
	return crop.Workflow[stepIndex], nil
}

// TotalRewards sums the points and eco points of the whole workflow.
func (c CropDefinition) TotalRewards() (points, ecoPoints int) {
	for _, step := range c.Workflow {
		points += step.Points
		ecoPoints += step.EcoPoints
	}
	return points, ecoPoints
}

// CropsBySeason returns the crops grown in the given season, in catalog order.
func (c *Catalog) CropsBySeason(season Season) []CropDefinition {
	var out []CropDefinition
	for _, crop := range c.Crops {
		if crop.Season == season {
			out = append(out, crop)
		}
	}
	return out
}
