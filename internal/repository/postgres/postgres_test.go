package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
	"github.com/J-Stott/RegularReviewsBackEnd/internal/repository"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/database"
	apperrors "github.com/J-Stott/RegularReviewsBackEnd/pkg/errors"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func setupStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock := database.NewMockPool(t)
	return NewStore(mock), mock
}

var gameCols = []string{
	"id", "igdb_id", "name", "link_name", "summary", "image", "release_date", "num_reviews",
	"avg_gameplay", "avg_visuals", "avg_audio", "avg_story", "avg_overall", "created_at", "updated_at",
}

var reviewCols = []string{
	"id", "author_id", "game_id", "gameplay", "visuals", "audio", "story", "overall",
	"title", "content", "reaction_id", "discussion_id", "created_at", "edited_at",
}

var fixedTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func sampleGame() domain.Game {
	return domain.Game{
		ID:         "game-1",
		IGDBID:     1942,
		Name:       "The Witcher 3",
		LinkName:   "the-witcher-3-wild-hunt",
		Image:      domain.DefaultCoverImage,
		NumReviews: 2,
		Averages:   domain.RatingVector{Gameplay: 8, Visuals: 9, Audio: 7, Story: 10, Overall: 9},
		CreatedAt:  fixedTime,
		UpdatedAt:  fixedTime,
	}
}

func sampleReview() domain.Review {
	return domain.Review{
		ID:         "review-1",
		AuthorID:   "user-1",
		GameID:     "game-1",
		Ratings:    domain.RatingVector{Overall: 8},
		Title:      "Great",
		Content:    "Loved it",
		ReactionID: "reaction-1",
		CreatedAt:  fixedTime,
	}
}

// ---------------------------------------------------------------------------
// Games
// ---------------------------------------------------------------------------

func TestGameRepository_GetByID_Success(t *testing.T) {
	store, mock := setupStore(t)
	defer mock.Close()

	g := sampleGame()
	mock.ExpectQuery("SELECT .+ FROM games WHERE id = \\$1").
		WithArgs(g.ID).
		WillReturnRows(pgxmock.NewRows(gameCols).AddRow(
			g.ID, g.IGDBID, g.Name, g.LinkName, g.Summary, g.Image, g.ReleaseDate, g.NumReviews,
			g.Averages.Gameplay, g.Averages.Visuals, g.Averages.Audio, g.Averages.Story, g.Averages.Overall,
			g.CreatedAt, g.UpdatedAt,
		))

	got, err := store.Games().GetByID(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.LinkName, got.LinkName)
	assert.Equal(t, g.Averages, got.Averages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGameRepository_GetByID_NotFound(t *testing.T) {
	store, mock := setupStore(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM games WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Games().GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGameRepository_Create_DuplicateIGDBID(t *testing.T) {
	store, mock := setupStore(t)
	defer mock.Close()

	g := sampleGame()
	mock.ExpectExec("INSERT INTO games").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "games_igdb_id_key"})

	err := store.Games().Create(context.Background(), &g)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGameRepository_UpdateAggregates(t *testing.T) {
	store, mock := setupStore(t)
	defer mock.Close()

	g := sampleGame()
	mock.ExpectExec("UPDATE games").
		WithArgs(g.ID, g.NumReviews,
			g.Averages.Gameplay, g.Averages.Visuals, g.Averages.Audio, g.Averages.Story, g.Averages.Overall,
			g.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.Games().UpdateAggregates(context.Background(), &g))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGameRepository_UpdateAggregates_NegativeCountIsInvariantViolation(t *testing.T) {
	store, mock := setupStore(t)
	defer mock.Close()

	g := sampleGame()
	g.NumReviews = -1
	mock.ExpectExec("UPDATE games").
		WillReturnError(&pgconn.PgError{Code: "23514"})

	err := store.Games().UpdateAggregates(context.Background(), &g)
	assert.True(t, errors.Is(err, apperrors.ErrInvariantViolation))
}

func TestGameRepository_UpdateAggregates_NotFound(t *testing.T) {
	store, mock := setupStore(t)
	defer mock.Close()

	g := sampleGame()
	mock.ExpectExec("UPDATE games").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.Games().UpdateAggregates(context.Background(), &g)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

// ---------------------------------------------------------------------------
// Reviews
// ---------------------------------------------------------------------------

func TestReviewRepository_Create_DuplicateAuthorGame(t *testing.T) {
	store, mock := setupStore(t)
	defer mock.Close()

	rv := sampleReview()
	mock.ExpectExec("INSERT INTO reviews").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "reviews_author_game_key"})

	err := store.Reviews().Create(context.Background(), &rv)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_GetByAuthorAndGame(t *testing.T) {
	store, mock := setupStore(t)
	defer mock.Close()

	rv := sampleReview()
	mock.ExpectQuery("SELECT .+ FROM reviews WHERE author_id = \\$1 AND game_id = \\$2").
		WithArgs(rv.AuthorID, rv.GameID).
		WillReturnRows(pgxmock.NewRows(reviewCols).AddRow(
			rv.ID, rv.AuthorID, rv.GameID,
			rv.Ratings.Gameplay, rv.Ratings.Visuals, rv.Ratings.Audio, rv.Ratings.Story, rv.Ratings.Overall,
			rv.Title, rv.Content, rv.ReactionID, rv.DiscussionID, rv.CreatedAt, rv.EditedAt,
		))

	got, err := store.Reviews().GetByAuthorAndGame(context.Background(), rv.AuthorID, rv.GameID)
	require.NoError(t, err)
	assert.Equal(t, rv.ID, got.ID)
	assert.Equal(t, rv.Ratings, got.Ratings)
	assert.False(t, got.HasDiscussion())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_List_ByGame(t *testing.T) {
	store, mock := setupStore(t)
	defer mock.Close()

	rv := sampleReview()
	cols := append(append([]string{}, reviewCols...), "total_count")
	mock.ExpectQuery("SELECT .+ FROM reviews\\s+WHERE game_id = \\$1\\s+ORDER BY created_at DESC").
		WithArgs(rv.GameID, 10, 0).
		WillReturnRows(pgxmock.NewRows(cols).AddRow(
			rv.ID, rv.AuthorID, rv.GameID,
			rv.Ratings.Gameplay, rv.Ratings.Visuals, rv.Ratings.Audio, rv.Ratings.Story, rv.Ratings.Overall,
			rv.Title, rv.Content, rv.ReactionID, rv.DiscussionID, rv.CreatedAt, rv.EditedAt, 1,
		))

	got, total, err := store.Reviews().List(context.Background(), repository.ReviewFilter{GameID: rv.GameID}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, got, 1)
	assert.Equal(t, rv.ID, got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Reactions
// ---------------------------------------------------------------------------

func TestReactionRepository_GetUserReaction_NoneStored(t *testing.T) {
	store, mock := setupStore(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT up, down, funny FROM user_reactions").
		WithArgs("reaction-1", "user-2").
		WillReturnError(pgx.ErrNoRows)

	got, err := store.Reactions().GetUserReaction(context.Background(), "reaction-1", "user-2")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestReactionRepository_PutUserReaction_EmptyDeletesRow(t *testing.T) {
	store, mock := setupStore(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM user_reactions").
		WithArgs("reaction-1", "user-2").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, store.Reactions().PutUserReaction(context.Background(), "reaction-1", "user-2", domain.UserReaction{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReactionRepository_PutUserReaction_Upserts(t *testing.T) {
	store, mock := setupStore(t)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO user_reactions .+ ON CONFLICT").
		WithArgs("reaction-1", "user-2", true, false, true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.Reactions().PutUserReaction(context.Background(), "reaction-1", "user-2",
		domain.UserReaction{Up: true, Funny: true})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// User stats
// ---------------------------------------------------------------------------

func TestUserStatsRepository_Get_DefaultsToZero(t *testing.T) {
	store, mock := setupStore(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT num_reviews FROM user_stats").
		WithArgs("user-9").
		WillReturnError(pgx.ErrNoRows)

	got, err := store.UserStats().Get(context.Background(), "user-9")
	require.NoError(t, err)
	assert.Equal(t, &domain.UserStats{UserID: "user-9"}, got)
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

func TestStore_WithTx_Commit(t *testing.T) {
	store, mock := setupStore(t)
	defer mock.Close()

	g := sampleGame()
	rv := sampleReview()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE reviews").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE games").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(tx repository.Store) error {
		if err := tx.Reviews().Update(context.Background(), &rv); err != nil {
			return err
		}
		return tx.Games().UpdateAggregates(context.Background(), &g)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithTx_RollbackOnWriteFailure(t *testing.T) {
	store, mock := setupStore(t)
	defer mock.Close()

	g := sampleGame()
	rv := sampleReview()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE reviews").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE games").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx repository.Store) error {
		if err := tx.Reviews().Update(context.Background(), &rv); err != nil {
			return err
		}
		return tx.Games().UpdateAggregates(context.Background(), &g)
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithTx_NestedJoinsOuter(t *testing.T) {
	store, mock := setupStore(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM reviews").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(tx repository.Store) error {
		return tx.WithTx(context.Background(), func(inner repository.Store) error {
			return inner.Reviews().Delete(context.Background(), "review-1")
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Discussions
// ---------------------------------------------------------------------------

func TestDiscussionRepository_ListComments_InsertionOrder(t *testing.T) {
	store, mock := setupStore(t)
	defer mock.Close()

	cols := []string{"id", "discussion_id", "author_id", "author_roles", "text", "created_at", "edited_at", "total_count"}
	var notEdited *time.Time
	mock.ExpectQuery("SELECT .+ FROM comments\\s+WHERE discussion_id = \\$1\\s+ORDER BY seq ASC").
		WithArgs("discussion-1", 2, 0).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("comment-b", "discussion-1", "user-2", []string{"user"}, "first", fixedTime, notEdited, 3).
			AddRow("comment-a", "discussion-1", "user-3", []string{"user", "admin"}, "second", fixedTime, notEdited, 3))

	got, total, err := store.Discussions().ListComments(context.Background(), "discussion-1", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"first", "second"}, []string{got[0].Text, got[1].Text})
	assert.Equal(t, []string{"user", "admin"}, got[1].AuthorRoles)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDiscussionRepository_AddComment_StoresAuthorRoles(t *testing.T) {
	store, mock := setupStore(t)
	defer mock.Close()

	c := &domain.Comment{ID: "comment-1", DiscussionID: "discussion-1", AuthorID: "user-1", Text: "hi", CreatedAt: fixedTime}
	mock.ExpectExec("INSERT INTO comments").
		WithArgs(c.ID, c.DiscussionID, c.AuthorID, []string{}, c.Text, c.CreatedAt, c.EditedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Discussions().AddComment(context.Background(), c))
	assert.NoError(t, mock.ExpectationsWereMet())
}
