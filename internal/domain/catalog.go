package domain

import (
	"strings"
	"time"

	"github.com/J-Stott/RegularReviewsBackEnd/pkg/slug"
)

// CatalogGame is a game as described by the external catalog.
type CatalogGame struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	URL         string     `json:"url"`
	Summary     string     `json:"summary"`
	CoverURL    string     `json:"cover_url"`
	ReleaseDate *time.Time `json:"release_date,omitempty"`
}

// LinkName derives the URL-friendly name for the game: the last segment of
// the catalog URL, or a slug of the name when there is no usable URL.
func (c *CatalogGame) LinkName() string {
	if seg := slug.LastPathSegment(c.URL); seg != "" {
		return seg
	}
	return slug.Generate(c.Name)
}

// CoverImage returns the large cover variant, or the default image when the
// catalog has no cover.
func (c *CatalogGame) CoverImage() string {
	if c.CoverURL == "" {
		return DefaultCoverImage
	}
	url := strings.Replace(c.CoverURL, "t_thumb", "t_cover_big", 1)
	if strings.HasPrefix(url, "//") {
		url = "https:" + url
	}
	return url
}

// NewGame builds a fresh game with empty aggregates from a catalog entry.
func NewGame(id string, c *CatalogGame, now time.Time) *Game {
	return &Game{
		ID:          id,
		IGDBID:      c.ID,
		Name:        c.Name,
		LinkName:    c.LinkName(),
		Summary:     c.Summary,
		Image:       c.CoverImage(),
		ReleaseDate: c.ReleaseDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
