package types

import "time"

const (
	// MinRating and MaxRating bound a review's star rating.
	MinRating = 1
	MaxRating = 5

	// MaxReviewTitleLength and MaxReviewContentLength bound review text in characters.
	MaxReviewTitleLength   = 100
	MaxReviewContentLength = 2000
)

// Review is a single account's rating and write-up for a game.
// There is at most one review per (UserID, EntryUID) pair.
type Review struct {
	// ID is the opaque, system-assigned identifier of the review.
	ID string `json:"id"`

	// EntryUID identifies the game being reviewed.
	EntryUID string `json:"entryUid"`

	// UserID identifies the reviewing account.
	UserID string `json:"userId"`

	// UserEmail is a snapshot of the reviewer's email taken at creation.
	// It is not refreshed if the account's email later changes.
	UserEmail string `json:"userEmail"`

	// Rating is the star rating, MinRating to MaxRating inclusive.
	Rating int `json:"rating"`

	Title   string `json:"title"`
	Content string `json:"content"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ReviewList is the public listing of a game's reviews with its aggregate rating.
type ReviewList struct {
	Reviews       []Review `json:"reviews"`
	Total         int      `json:"total"`
	AverageRating float64  `json:"averageRating"`
}
