package domain

import (
	"fmt"
	"math"

	apperrors "github.com/J-Stott/RegularReviewsBackEnd/pkg/errors"
)

// Rating bounds accepted for every dimension.
const (
	MinRating = 0
	MaxRating = 10
)

// RatingVector holds one value per rated dimension. Every field is always
// populated; missing inputs are normalized to zero before any aggregate math.
type RatingVector struct {
	Gameplay float64 `json:"gameplay"`
	Visuals  float64 `json:"visuals"`
	Audio    float64 `json:"audio"`
	Story    float64 `json:"story"`
	Overall  float64 `json:"overall"`
}

// RatingInput is a partially filled rating vector as received from a client.
type RatingInput struct {
	Gameplay *float64 `json:"gameplay,omitempty"`
	Visuals  *float64 `json:"visuals,omitempty"`
	Audio    *float64 `json:"audio,omitempty"`
	Story    *float64 `json:"story,omitempty"`
	Overall  *float64 `json:"overall,omitempty"`
}

// Normalize fills absent dimensions with zero and validates the result.
func (in RatingInput) Normalize() (RatingVector, error) {
	v := RatingVector{
		Gameplay: valueOrZero(in.Gameplay),
		Visuals:  valueOrZero(in.Visuals),
		Audio:    valueOrZero(in.Audio),
		Story:    valueOrZero(in.Story),
		Overall:  valueOrZero(in.Overall),
	}
	if err := v.Validate(); err != nil {
		return RatingVector{}, err
	}
	return v, nil
}

// Validate checks every dimension is finite and within bounds.
func (v RatingVector) Validate() error {
	for _, d := range v.dimensions() {
		if math.IsNaN(d.value) || math.IsInf(d.value, 0) {
			return apperrors.InvalidInput(fmt.Sprintf("%s rating must be a finite number", d.name))
		}
		if d.value < MinRating || d.value > MaxRating {
			return apperrors.InvalidInput(fmt.Sprintf("%s rating must be between %d and %d", d.name, MinRating, MaxRating))
		}
	}
	return nil
}

// Input returns the vector as a fully populated RatingInput.
func (v RatingVector) Input() RatingInput {
	return RatingInput{
		Gameplay: ptr(v.Gameplay),
		Visuals:  ptr(v.Visuals),
		Audio:    ptr(v.Audio),
		Story:    ptr(v.Story),
		Overall:  ptr(v.Overall),
	}
}

type dimension struct {
	name  string
	value float64
}

func (v RatingVector) dimensions() []dimension {
	return []dimension{
		{"gameplay", v.Gameplay},
		{"visuals", v.Visuals},
		{"audio", v.Audio},
		{"story", v.Story},
		{"overall", v.Overall},
	}
}

// zip applies f pairwise across all five dimensions of a and b.
func zip(a, b RatingVector, f func(x, y float64) float64) RatingVector {
	return RatingVector{
		Gameplay: f(a.Gameplay, b.Gameplay),
		Visuals:  f(a.Visuals, b.Visuals),
		Audio:    f(a.Audio, b.Audio),
		Story:    f(a.Story, b.Story),
		Overall:  f(a.Overall, b.Overall),
	}
}

func valueOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func ptr(f float64) *float64 { return &f }
