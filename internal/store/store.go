// Package store is the persistence side of the import: find-or-create upserts
// for series and seasons and batched episode watch marks.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pokerjest/animeshelf/internal/clock"
	"github.com/pokerjest/animeshelf/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const markBatchSize = 100

type Store struct {
	db    *gorm.DB
	clock clock.Clock
	step  time.Duration
}

// New wraps db. step is the gap between consecutive synthetic watch
// timestamps; zero means one second.
func New(db *gorm.DB, clk clock.Clock, step time.Duration) *Store {
	if clk == nil {
		clk = clock.Real{}
	}
	if step <= 0 {
		step = time.Second
	}
	return &Store{db: db, clock: clk, step: step}
}

// FindSeries returns nil, nil when no series has externalID.
func (s *Store) FindSeries(ctx context.Context, externalID int) (*model.Series, error) {
	var series model.Series
	err := s.db.WithContext(ctx).Where("external_id = ?", externalID).First(&series).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find series %d: %w", externalID, err)
	}
	return &series, nil
}

// UpsertSeries creates the series or updates the row with the same
// external id in place. created reports which happened.
func (s *Store) UpsertSeries(ctx context.Context, series model.Series) (uint, bool, error) {
	existing, err := s.FindSeries(ctx, series.ExternalID)
	if err != nil {
		return 0, false, err
	}

	series.Seasons = nil
	db := s.db.WithContext(ctx)
	if existing == nil {
		series.ID = 0
		if err := db.Create(&series).Error; err != nil {
			return 0, false, fmt.Errorf("create series %d: %w", series.ExternalID, err)
		}
		return series.ID, true, nil
	}

	series.ID = existing.ID
	series.CreatedAt = existing.CreatedAt
	if err := db.Save(&series).Error; err != nil {
		return 0, false, fmt.Errorf("update series %d: %w", series.ExternalID, err)
	}
	return series.ID, false, nil
}

// FindSeason returns nil, nil when the series has no season with that number.
func (s *Store) FindSeason(ctx context.Context, seriesID uint, number int) (*model.Season, error) {
	var season model.Season
	err := s.db.WithContext(ctx).
		Where("series_id = ? AND number = ?", seriesID, number).
		First(&season).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find season %d of series %d: %w", number, seriesID, err)
	}
	return &season, nil
}

// UpsertSeason is keyed by (SeriesID, Number).
func (s *Store) UpsertSeason(ctx context.Context, season model.Season) (uint, error) {
	if season.SeriesID == 0 || season.Number < 1 {
		return 0, fmt.Errorf("invalid season key (series %d, number %d)", season.SeriesID, season.Number)
	}
	existing, err := s.FindSeason(ctx, season.SeriesID, season.Number)
	if err != nil {
		return 0, err
	}

	db := s.db.WithContext(ctx)
	if existing == nil {
		season.ID = 0
		if err := db.Create(&season).Error; err != nil {
			return 0, fmt.Errorf("create season %d of series %d: %w", season.Number, season.SeriesID, err)
		}
		return season.ID, nil
	}

	season.ID = existing.ID
	season.CreatedAt = existing.CreatedAt
	if err := db.Save(&season).Error; err != nil {
		return 0, fmt.Errorf("update season %d of series %d: %w", season.Number, season.SeriesID, err)
	}
	return season.ID, nil
}

// MarkEpisodesWatched writes marks for episodes 1..count. Episode i is
// stamped now + (i-1)*step so ordering by time matches episode order.
// Existing marks are refreshed, never duplicated.
func (s *Store) MarkEpisodesWatched(ctx context.Context, seasonID, userID uint, count int) error {
	if count <= 0 {
		return nil
	}
	if seasonID == 0 || userID == 0 {
		return fmt.Errorf("invalid watch mark key (season %d, user %d)", seasonID, userID)
	}

	base := s.clock.Now()
	marks := make([]model.EpisodeWatch, 0, count)
	for i := 1; i <= count; i++ {
		marks = append(marks, model.EpisodeWatch{
			SeasonID:      seasonID,
			UserID:        userID,
			EpisodeNumber: i,
			WatchedAt:     base.Add(time.Duration(i-1) * s.step),
		})
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "season_id"}, {Name: "user_id"}, {Name: "episode_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"watched_at", "updated_at"}),
		}).
		CreateInBatches(&marks, markBatchSize).Error
	if err != nil {
		return fmt.Errorf("mark %d episodes of season %d: %w", count, seasonID, err)
	}
	return nil
}

// SeriesWithSeasons loads a series and its seasons ordered by number.
func (s *Store) SeriesWithSeasons(ctx context.Context, externalID int) (*model.Series, error) {
	var series model.Series
	err := s.db.WithContext(ctx).
		Preload("Seasons", func(db *gorm.DB) *gorm.DB { return db.Order("number ASC") }).
		Where("external_id = ?", externalID).
		First(&series).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load series %d: %w", externalID, err)
	}
	return &series, nil
}
