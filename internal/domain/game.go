package domain

import (
	"fmt"
	"time"

	apperrors "github.com/J-Stott/RegularReviewsBackEnd/pkg/errors"
)

// DefaultCoverImage is used when the catalog has no cover for a game.
const DefaultCoverImage = "/images/no-image.png"

// Game is a catalog entry with running rating averages over its reviews.
type Game struct {
	ID          string       `json:"id"`
	IGDBID      int64        `json:"igdb_id"`
	Name        string       `json:"name"`
	LinkName    string       `json:"link_name"`
	Summary     string       `json:"summary"`
	Image       string       `json:"image"`
	ReleaseDate *time.Time   `json:"release_date,omitempty"`
	NumReviews  int          `json:"num_reviews"`
	Averages    RatingVector `json:"averages"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// AddRatings folds a new review into the averages.
func (g *Game) AddRatings(r RatingVector) {
	n := float64(g.NumReviews)
	g.Averages = zip(g.Averages, r, func(avg, v float64) float64 {
		return (avg*n + v) / (n + 1)
	})
	g.NumReviews++
}

// RemoveRatings takes a review out of the averages. When the last review is
// removed the averages are left as the unnormalized residual avg*n - r rather
// than being reset to zero; for exact inputs that residual is zero anyway.
func (g *Game) RemoveRatings(r RatingVector) error {
	if g.NumReviews <= 0 {
		return apperrors.InvariantViolation(fmt.Sprintf("game %s has no reviews to remove", g.ID))
	}
	n := float64(g.NumReviews)
	remaining := n - 1
	g.Averages = zip(g.Averages, r, func(avg, v float64) float64 {
		if remaining > 0 {
			return (avg*n - v) / remaining
		}
		return avg*n - v
	})
	g.NumReviews--
	return nil
}

// ReplaceRatings swaps one review's contribution for another in a single step
// without changing the review count.
func (g *Game) ReplaceRatings(old, updated RatingVector) error {
	if g.NumReviews <= 0 {
		return apperrors.InvariantViolation(fmt.Sprintf("game %s has no reviews to replace", g.ID))
	}
	n := float64(g.NumReviews)
	g.Averages = zip(g.Averages, zip(old, updated, func(o, u float64) float64 {
		return u - o
	}), func(avg, delta float64) float64 {
		if n > 1 {
			return (avg*n + delta) / n
		}
		return avg*n + delta
	})
	return nil
}

// Recompute sets the averages to the exact mean of ratings.
func (g *Game) Recompute(ratings []RatingVector) {
	g.NumReviews = len(ratings)
	g.Averages = RatingVector{}
	if len(ratings) == 0 {
		return
	}
	var sum RatingVector
	for _, r := range ratings {
		sum = zip(sum, r, func(a, b float64) float64 { return a + b })
	}
	n := float64(len(ratings))
	g.Averages = zip(sum, sum, func(s, _ float64) float64 { return s / n })
}

// ReleasedBefore reports whether the game was released at least d before now.
// Games with an unknown release date are always considered released.
func (g *Game) ReleasedBefore(now time.Time, d time.Duration) bool {
	if g.ReleaseDate == nil {
		return true
	}
	return !now.Before(g.ReleaseDate.Add(d))
}
