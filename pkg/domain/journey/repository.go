package journey

import "context"

// Repository persists the journey collection of each user.
// LoadAll returns an empty slice when the user has no data; SaveAll replaces the whole collection.
type Repository interface {
	LoadAll(ctx context.Context, userID string) ([]Journey, error)
	SaveAll(ctx context.Context, userID string, journeys []Journey) error
}
