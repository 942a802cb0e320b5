package store

import (
	"context"
	"testing"
	"time"

	"github.com/pokerjest/animeshelf/internal/clock"
	"github.com/pokerjest/animeshelf/internal/db"
	"github.com/pokerjest/animeshelf/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return New(conn, clock.NewFake(epoch), time.Second)
}

func TestUpsertSeries_CreateThenUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, created, err := s.UpsertSeries(ctx, model.Series{ExternalID: 38691, Title: "Dr. Stone", CoverURL: "A"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, id)

	id2, created, err := s.UpsertSeries(ctx, model.Series{ExternalID: 38691, Title: "Dr. Stone", CoverURL: "B"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, id2)

	got, err := s.FindSeries(ctx, 38691)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "B", got.CoverURL)

	var count int64
	require.NoError(t, s.db.Model(&model.Series{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestFindSeries_Missing(t *testing.T) {
	s := newTestStore(t)
	got, err := s.FindSeries(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpsertSeason_KeyedBySeriesAndNumber(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seriesID, _, err := s.UpsertSeries(ctx, model.Series{ExternalID: 1, Title: "Overlord"})
	require.NoError(t, err)

	first, err := s.UpsertSeason(ctx, model.Season{SeriesID: seriesID, Number: 1, ExternalID: 1, TotalEpisodes: 13})
	require.NoError(t, err)
	second, err := s.UpsertSeason(ctx, model.Season{SeriesID: seriesID, Number: 2, ExternalID: 2})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	again, err := s.UpsertSeason(ctx, model.Season{SeriesID: seriesID, Number: 1, ExternalID: 1, TotalEpisodes: 14})
	require.NoError(t, err)
	assert.Equal(t, first, again)

	loaded, err := s.SeriesWithSeasons(ctx, 1)
	require.NoError(t, err)
	require.Len(t, loaded.Seasons, 2)
	assert.Equal(t, 1, loaded.Seasons[0].Number)
	assert.Equal(t, 14, loaded.Seasons[0].TotalEpisodes)
	assert.Equal(t, 2, loaded.Seasons[1].Number)
}

func TestUpsertSeason_RejectsBadKey(t *testing.T) {
	s := newTestStore(t)
	_, err := s.UpsertSeason(context.Background(), model.Season{SeriesID: 0, Number: 1})
	assert.Error(t, err)
	_, err = s.UpsertSeason(context.Background(), model.Season{SeriesID: 1, Number: 0})
	assert.Error(t, err)
}

func TestMarkEpisodesWatched_ChronologicalStamps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.MarkEpisodesWatched(ctx, 3, 1, 5))

	var marks []model.EpisodeWatch
	require.NoError(t, s.db.Order("episode_number ASC").Find(&marks).Error)
	require.Len(t, marks, 5)

	for i, m := range marks {
		assert.Equal(t, i+1, m.EpisodeNumber)
		assert.True(t, m.WatchedAt.Equal(epoch.Add(time.Duration(i)*time.Second)), "episode %d at %s", m.EpisodeNumber, m.WatchedAt)
		if i > 0 {
			assert.Equal(t, time.Second, m.WatchedAt.Sub(marks[i-1].WatchedAt))
		}
	}
}

func TestMarkEpisodesWatched_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.MarkEpisodesWatched(ctx, 3, 1, 12))
	require.NoError(t, s.MarkEpisodesWatched(ctx, 3, 1, 12))
	require.NoError(t, s.MarkEpisodesWatched(ctx, 3, 2, 2))

	var count int64
	require.NoError(t, s.db.Model(&model.EpisodeWatch{}).Where("user_id = ?", 1).Count(&count).Error)
	assert.EqualValues(t, 12, count)
	require.NoError(t, s.db.Model(&model.EpisodeWatch{}).Count(&count).Error)
	assert.EqualValues(t, 14, count)
}

func TestMarkEpisodesWatched_NoopAndValidation(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.MarkEpisodesWatched(context.Background(), 1, 1, 0))
	assert.Error(t, s.MarkEpisodesWatched(context.Background(), 1, 0, 3))
}
