package service

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
	"github.com/J-Stott/RegularReviewsBackEnd/internal/repository/memory"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/keylock"
)

// --- Mocks ---

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) LookupGame(ctx context.Context, igdbID int64) (*domain.CatalogGame, error) {
	args := m.Called(ctx, igdbID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CatalogGame), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishReviewCreated(ctx context.Context, review *domain.Review, game *domain.Game) error {
	return m.Called(ctx, review, game).Error(0)
}

func (m *mockPublisher) PublishReviewUpdated(ctx context.Context, review *domain.Review, game *domain.Game) error {
	return m.Called(ctx, review, game).Error(0)
}

func (m *mockPublisher) PublishReviewDeleted(ctx context.Context, review *domain.Review, game *domain.Game) error {
	return m.Called(ctx, review, game).Error(0)
}

func (m *mockPublisher) PublishReactionToggled(ctx context.Context, reviewID, userID string, result domain.ToggleResult) error {
	return m.Called(ctx, reviewID, userID, result).Error(0)
}

func (m *mockPublisher) PublishCommentAdded(ctx context.Context, reviewID string, comment *domain.Comment) error {
	return m.Called(ctx, reviewID, comment).Error(0)
}

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// --- Fixture ---

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store       *memory.Store
	locks       *keylock.Mutex
	catalog     *mockCatalog
	logs        *syncBuffer
	opts        Options
	games       *GameService
	aggregates  *AggregateMaintainer
	reviews     *ReviewService
	reactions   *ReactionService
	discussions *DiscussionService
	drafts      *DraftService
	nextIGDB    int64
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithPublisher(t, nil)
}

func newFixtureWithPublisher(t *testing.T, events EventPublisher) *fixture {
	t.Helper()

	logs := &syncBuffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f := &fixture{
		store:   memory.New(),
		locks:   keylock.New(keylock.WithTimeout(5 * time.Second)),
		catalog: new(mockCatalog),
		logs:    logs,
		opts: Options{
			GracePeriod:      48 * time.Hour,
			ReviewsPageSize:  10,
			CommentsPageSize: 2,
			Now:              func() time.Time { return testNow },
		},
	}
	f.games = NewGameService(f.store, f.catalog, f.locks, logger, f.opts)
	f.aggregates = NewAggregateMaintainer(f.store, f.locks, logger, f.opts)
	f.reviews = NewReviewService(f.store, f.games, f.aggregates, f.locks, events, logger, f.opts)
	f.reactions = NewReactionService(f.store, f.locks, events, logger)
	f.discussions = NewDiscussionService(f.store, f.locks, events, logger, f.opts)
	f.drafts = NewDraftService(f.store, f.games, f.opts)
	return f
}

// seedGame inserts a game released long before testNow.
func (f *fixture) seedGame(t *testing.T, id string) *domain.Game {
	t.Helper()
	released := testNow.AddDate(-1, 0, 0)
	return f.seedGameReleased(t, id, &released)
}

func (f *fixture) seedGameReleased(t *testing.T, id string, released *time.Time) *domain.Game {
	t.Helper()
	f.nextIGDB++
	game := &domain.Game{
		ID:          id,
		IGDBID:      1000 + f.nextIGDB,
		Name:        "Game " + id,
		LinkName:    "game-" + id,
		Image:       domain.DefaultCoverImage,
		ReleaseDate: released,
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
	}
	require.NoError(t, f.store.Games().Create(context.Background(), game))
	return game
}

func (f *fixture) game(t *testing.T, id string) *domain.Game {
	t.Helper()
	g, err := f.store.Games().GetByID(context.Background(), id)
	require.NoError(t, err)
	return g
}

func (f *fixture) userReviews(t *testing.T, userID string) int {
	t.Helper()
	stats, err := f.store.UserStats().Get(context.Background(), userID)
	require.NoError(t, err)
	return stats.NumReviews
}

func (f *fixture) createReview(t *testing.T, userID, gameID string, overall float64, discussion bool) *domain.Review {
	t.Helper()
	review, err := f.reviews.Create(context.Background(), user(userID), CreateReviewInput{
		GameID:          gameID,
		Ratings:         uniform(overall),
		Title:           "Review by " + userID,
		Content:         "Thoughts on the game.",
		WantsDiscussion: discussion,
	})
	require.NoError(t, err)
	return review
}

func user(id string) *domain.Principal {
	return &domain.Principal{UserID: id, Roles: []string{domain.RoleUser}}
}

func admin(id string) *domain.Principal {
	return &domain.Principal{UserID: id, Roles: []string{domain.RoleUser, domain.RoleAdmin}}
}

func uniform(v float64) domain.RatingInput {
	return domain.RatingInput{Gameplay: &v, Visuals: &v, Audio: &v, Story: &v, Overall: &v}
}

func overallOnly(v float64) domain.RatingInput {
	return domain.RatingInput{Overall: &v}
}
