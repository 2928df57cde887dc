// Package recommendation stores music recommendations and applies votes and
// selection rules to them.
package recommendation

import (
	"errors"
	"time"
)

// Sentinel errors for recommendation operations.
var (
	// ErrNotFound is returned when a recommendation does not exist, or when a
	// random draw is requested from an empty pool.
	ErrNotFound = errors.New("recommendation not found")

	// ErrDuplicateName is returned when a recommendation with the same name exists.
	ErrDuplicateName = errors.New("recommendation name already exists")

	// ErrValidation is returned when a submission is missing or has malformed fields.
	ErrValidation = errors.New("invalid recommendation")
)

// RecentLimit is the fixed page size of the recent listing.
const RecentLimit = 10

// Recommendation is a named, linked media suggestion with a popularity score.
type Recommendation struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Link      string    `json:"link"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *Recommendation) clone() *Recommendation {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
