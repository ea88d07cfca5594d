package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
	apperrors "github.com/J-Stott/RegularReviewsBackEnd/pkg/errors"
)

func TestFindOrCreate_ExistingGameSkipsCatalog(t *testing.T) {
	f := newFixture(t)
	seeded := f.seedGame(t, "g1")

	game, err := f.games.FindOrCreate(context.Background(), seeded.IGDBID)
	require.NoError(t, err)
	assert.Equal(t, "g1", game.ID)
	f.catalog.AssertNotCalled(t, "LookupGame", mock.Anything, mock.Anything)
}

func TestFindOrCreate_ConcurrentFirstLookupsCreateOneRow(t *testing.T) {
	f := newFixture(t)
	released := time.Date(2017, 2, 24, 0, 0, 0, 0, time.UTC)
	f.catalog.On("LookupGame", mock.Anything, int64(26226)).Return(&domain.CatalogGame{
		ID:          26226,
		Name:        "Celeste",
		URL:         "https://www.igdb.com/games/celeste",
		Summary:     "Help Madeline survive her inner demons.",
		ReleaseDate: &released,
	}, nil).Once()

	const n = 10
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			game, err := f.games.FindOrCreate(context.Background(), 26226)
			if assert.NoError(t, err) {
				ids[i] = game.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, f.store.Counts().Games)

	game, err := f.games.GetByLinkName(context.Background(), "celeste")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCoverImage, game.Image)
	assert.Equal(t, &released, game.ReleaseDate)
	f.catalog.AssertExpectations(t)
}

func TestFindOrCreate_CatalogErrors(t *testing.T) {
	f := newFixture(t)
	f.catalog.On("LookupGame", mock.Anything, int64(1)).Return(nil, fmt.Errorf("igdb: %w", apperrors.ErrNotFound))
	f.catalog.On("LookupGame", mock.Anything, int64(2)).Return(nil, apperrors.ServiceUnavailable("catalog unavailable"))
	ctx := context.Background()

	_, err := f.games.FindOrCreate(ctx, 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.games.FindOrCreate(ctx, 2)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)

	_, err = f.games.FindOrCreate(ctx, 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	assert.Zero(t, f.store.Counts().Games)
}

func TestGetByLinkName(t *testing.T) {
	f := newFixture(t)
	f.seedGame(t, "g1")

	game, err := f.games.GetByLinkName(context.Background(), "game-g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", game.ID)

	_, err = f.games.GetByLinkName(context.Background(), "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.games.ListReviews(context.Background(), "nope", 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
