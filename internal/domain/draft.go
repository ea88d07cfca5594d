package domain

import "time"

// Draft is an unpublished review.
type Draft struct {
	ID        string       `json:"id"`
	AuthorID  string       `json:"author_id"`
	GameID    string       `json:"game_id"`
	Ratings   RatingVector `json:"ratings"`
	Title     string       `json:"title"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
