package domain

import (
	"fmt"

	apperrors "github.com/J-Stott/RegularReviewsBackEnd/pkg/errors"
)

// ReactionKind is one of the three reactions a user can leave on a review.
type ReactionKind string

const (
	ReactionUp    ReactionKind = "up"
	ReactionDown  ReactionKind = "down"
	ReactionFunny ReactionKind = "funny"
)

// ParseReactionKind validates a raw reaction kind.
func ParseReactionKind(s string) (ReactionKind, error) {
	switch k := ReactionKind(s); k {
	case ReactionUp, ReactionDown, ReactionFunny:
		return k, nil
	default:
		return "", apperrors.InvalidInput(fmt.Sprintf("unknown reaction kind %q", s))
	}
}

// opposite returns the mutually exclusive partner of up/down.
func (k ReactionKind) opposite() (ReactionKind, bool) {
	switch k {
	case ReactionUp:
		return ReactionDown, true
	case ReactionDown:
		return ReactionUp, true
	default:
		return "", false
	}
}

// Tally is the aggregate count of reactions on a review.
type Tally struct {
	Up    int `json:"up"`
	Down  int `json:"down"`
	Funny int `json:"funny"`
}

// UserReaction is a single user's reaction state on a review. Up and Down are
// never both set.
type UserReaction struct {
	Up    bool `json:"up"`
	Down  bool `json:"down"`
	Funny bool `json:"funny"`
}

// IsEmpty reports whether no reaction is set.
func (u UserReaction) IsEmpty() bool {
	return !u.Up && !u.Down && !u.Funny
}

// Reaction is the tally record owned 1:1 by a review.
type Reaction struct {
	ID       string `json:"id"`
	ReviewID string `json:"review_id,omitempty"`
	Tally    Tally  `json:"tally"`
}

// ToggleResult is the outcome of a toggle.
type ToggleResult struct {
	Tally     Tally        `json:"tally"`
	UserState UserReaction `json:"user_state"`
}

// Toggle applies a reaction toggle for one user. Setting up or down clears the
// opposite kind if the user held it. Decrementing a zero count is an
// invariant violation.
func Toggle(tally Tally, state UserReaction, kind ReactionKind) (ToggleResult, error) {
	if state.has(kind) {
		if err := tally.add(kind, -1); err != nil {
			return ToggleResult{}, err
		}
		state.set(kind, false)
		return ToggleResult{Tally: tally, UserState: state}, nil
	}

	if opp, ok := kind.opposite(); ok && state.has(opp) {
		if err := tally.add(opp, -1); err != nil {
			return ToggleResult{}, err
		}
		state.set(opp, false)
	}
	if err := tally.add(kind, 1); err != nil {
		return ToggleResult{}, err
	}
	state.set(kind, true)
	return ToggleResult{Tally: tally, UserState: state}, nil
}

func (u UserReaction) has(k ReactionKind) bool {
	switch k {
	case ReactionUp:
		return u.Up
	case ReactionDown:
		return u.Down
	case ReactionFunny:
		return u.Funny
	}
	return false
}

func (u *UserReaction) set(k ReactionKind, v bool) {
	switch k {
	case ReactionUp:
		u.Up = v
	case ReactionDown:
		u.Down = v
	case ReactionFunny:
		u.Funny = v
	}
}

func (t *Tally) add(k ReactionKind, delta int) error {
	var field *int
	switch k {
	case ReactionUp:
		field = &t.Up
	case ReactionDown:
		field = &t.Down
	case ReactionFunny:
		field = &t.Funny
	default:
		return apperrors.InvalidInput(fmt.Sprintf("unknown reaction kind %q", k))
	}
	if *field+delta < 0 {
		return apperrors.InvariantViolation(fmt.Sprintf("%s tally would go negative", k))
	}
	*field += delta
	return nil
}
