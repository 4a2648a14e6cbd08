package catalog

import "fmt"

// Category groups workflow steps by farming phase.
type Category string

const (
	CategoryPreparation Category = "Preparation"
	CategorySowing      Category = "Sowing"
	CategoryMaintenance Category = "Maintenance"
	CategoryProtection  Category = "Protection"
	CategoryHarvest     Category = "Harvest"
	CategoryPostHarvest Category = "Post-Harvest"
)

// AllCategories returns the categories in cultivation order.
func AllCategories() []Category {
	return []Category{
		CategoryPreparation,
		CategorySowing,
		CategoryMaintenance,
		CategoryProtection,
		CategoryHarvest,
		CategoryPostHarvest,
	}
}

// IsValid returns true if the category is known.
func (c Category) IsValid() bool {
	for _, known := range AllCategories() {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// Season is the Indian cropping season a crop is grown in.
type Season string

const (
	SeasonKharif Season = "Kharif"
	SeasonRabi   Season = "Rabi"
	SeasonZaid   Season = "Zaid"
)

// IsValid returns true if the season is known.
func (s Season) IsValid() bool {
	switch s {
	case SeasonKharif, SeasonRabi, SeasonZaid:
		return true
	default:
		return false
	}
}

// ParseSeason parses a season name.
func ParseSeason(s string) (Season, error) {
	season := Season(s)
	if !season.IsValid() {
		return "", fmt.Errorf("invalid season: %s", s)
	}
	return season, nil
}

// VerificationType selects which proof method a step accepts.
type VerificationType string

const (
	VerificationCamera    VerificationType = "camera"
	VerificationChecklist VerificationType = "checklist"
	VerificationSensor    VerificationType = "sensor"
)

// IsValid returns true if the verification type is known.
func (v VerificationType) IsValid() bool {
	switch v {
	case VerificationCamera, VerificationChecklist, VerificationSensor:
		return true
	default:
		return false
	}
}

// IsImplemented reports whether proofs of this type can be submitted.
// Only camera proofs are wired to a verifier today.
func (v VerificationType) IsImplemented() bool {
	return v == VerificationCamera
}
