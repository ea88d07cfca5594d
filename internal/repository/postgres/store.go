// Package postgres implements repository.Store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/repository"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/database"
	apperrors "github.com/J-Stott/RegularReviewsBackEnd/pkg/errors"
)

// Store is a PostgreSQL-backed repository.Store.
type Store struct {
	db   database.DBTX
	inTx bool
}

var _ repository.Store = (*Store)(nil)

// NewStore creates a store over a pool (or any DBTX).
func NewStore(db database.DBTX) *Store {
	return &Store{db: db}
}

func (s *Store) Games() repository.GameRepository             { return NewGameRepository(s.db) }
func (s *Store) Reviews() repository.ReviewRepository         { return NewReviewRepository(s.db) }
func (s *Store) Reactions() repository.ReactionRepository     { return NewReactionRepository(s.db) }
func (s *Store) Discussions() repository.DiscussionRepository { return NewDiscussionRepository(s.db) }
func (s *Store) UserStats() repository.UserStatsRepository    { return NewUserStatsRepository(s.db) }
func (s *Store) Drafts() repository.DraftRepository           { return NewDraftRepository(s.db) }

// WithTx runs fn inside one database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return database.InTx(ctx, s.db, func(tx pgx.Tx) error {
		return fn(&Store{db: tx, inTx: true})
	})
}

// Ping checks connectivity with a trivial query.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// notFound maps pgx.ErrNoRows to the shared sentinel.
func notFound(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// expectOne turns an UPDATE/DELETE that touched no rows into ErrNotFound.
func expectOne(rowsAffected int64) error {
	if rowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
