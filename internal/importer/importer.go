// Package importer drives a watch-history import: entries are grouped into
// series, processed in fixed-size batches with a cool-down between batches,
// enriched through the metadata source and written through the store. Each
// group fails on its own; only setup problems abort a job.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pokerjest/animeshelf/internal/clock"
	"github.com/pokerjest/animeshelf/internal/config"
	"github.com/pokerjest/animeshelf/internal/grouping"
	"github.com/pokerjest/animeshelf/internal/logging"
	"github.com/pokerjest/animeshelf/internal/metrics"
	"github.com/pokerjest/animeshelf/internal/parser"
	"github.com/pokerjest/animeshelf/internal/reconcile"
	"github.com/rs/zerolog"
)

type Options struct {
	BatchSize       int
	CooldownSeconds int
	GroupDelay      time.Duration
	SeasonDelay     time.Duration
	EventBuffer     int
	ColonThreshold  int
	// Normalizer defaults to grouping.DefaultChain without overrides.
	Normalizer grouping.Normalizer
}

// OptionsFromConfig maps the import section of the configuration.
func OptionsFromConfig(cfg config.ImportConfig) Options {
	return Options{
		BatchSize:       cfg.BatchSize,
		CooldownSeconds: cfg.CooldownSeconds,
		GroupDelay:      cfg.GroupDelay,
		SeasonDelay:     cfg.SeasonDelay,
		EventBuffer:     cfg.EventBuffer,
		ColonThreshold:  cfg.ColonThreshold,
		Normalizer:      grouping.DefaultChain(cfg.TitleOverrides, cfg.ColonThreshold),
	}
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 50
	}
	if o.CooldownSeconds < 0 {
		o.CooldownSeconds = 0
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = 64
	}
	if o.ColonThreshold <= 0 {
		o.ColonThreshold = parser.DefaultColonThreshold
	}
	if o.Normalizer == nil {
		o.Normalizer = grouping.DefaultChain(nil, o.ColonThreshold)
	}
	return o
}

type Importer struct {
	store    Store
	source   MetadataSource
	registry *Registry
	clock    clock.Clock
	opts     Options
}

func New(store Store, source MetadataSource, registry *Registry, clk clock.Clock, opts Options) *Importer {
	if registry == nil {
		registry = NewRegistry(0)
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Importer{
		store:    store,
		source:   source,
		registry: registry,
		clock:    clk,
		opts:     opts.withDefaults(),
	}
}

func (im *Importer) Registry() *Registry { return im.registry }

// Start groups the entries of req and runs the job in the background. The
// job stops early when ctx is done or the handle is cancelled.
func (im *Importer) Start(ctx context.Context, req Request) (*JobHandle, error) {
	if im.store == nil || im.source == nil {
		return nil, ErrNoStore
	}
	if req.UserID == 0 {
		return nil, ErrNoUser
	}
	if len(req.Entries) == 0 {
		return nil, ErrNoEntries
	}

	groups := grouping.Group(req.Entries, im.opts.Normalizer, im.opts.ColonThreshold)

	jobCtx, cancel := context.WithCancel(ctx)
	h := newJobHandle(uuid.NewString(), req.UserID, im.clock.Now(), im.opts.EventBuffer, cancel)
	if err := im.registry.acquire(im.store, h); err != nil {
		cancel()
		return nil, err
	}

	job := &job{
		im:      im,
		handle:  h,
		userID:  req.UserID,
		groups:  groups,
		entries: len(req.Entries),
		log:     logging.With("importer").With().Str("job_id", h.ID).Logger(),
	}

	if r, ok := im.source.(cacheResetter); ok {
		r.ResetCache()
	}

	metrics.TrackJob(true)
	go func() {
		defer cancel()
		result, err := job.run(jobCtx)
		im.registry.release(im.store, h)
		metrics.TrackJob(false)
		h.finish(result, err, im.clock.Now())
	}()
	return h, nil
}

// job is the mutable state of one run. Only the run goroutine touches it.
type job struct {
	im      *Importer
	handle  *JobHandle
	userID  uint
	groups  []grouping.SeriesGroup
	entries int
	log     zerolog.Logger

	currentBatch int
	totalBatches int
	imported     int
	updated      int
	errors       []GroupError
}

func (j *job) event(phase Phase) Event {
	return Event{
		Phase:        phase,
		CurrentBatch: j.currentBatch,
		TotalBatches: j.totalBatches,
		Total:        len(j.groups),
		Imported:     j.imported,
		Updated:      j.updated,
		Errors:       len(j.errors),
	}
}

func (j *job) addError(label string, externalID int, err error) {
	j.errors = append(j.errors, GroupError{Label: label, ExternalID: externalID, Error: err.Error()})
	j.log.Warn().Err(err).Str("label", label).Int("external_id", externalID).Msg("Import error")
}

func (j *job) run(ctx context.Context) (*Result, error) {
	opts := j.im.opts
	batches := partition(j.groups, opts.BatchSize)
	j.totalBatches = len(batches)

	j.log.Info().
		Int("entries", j.entries).
		Int("groups", len(j.groups)).
		Int("batches", j.totalBatches).
		Uint("user_id", j.userID).
		Msg("Starting import")

	index := 0
	cancelled := false
outer:
	for b, batch := range batches {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		j.currentBatch = b + 1
		j.handle.reporter.emit(j.event(PhaseBatch))

		for _, g := range batch {
			if ctx.Err() != nil {
				cancelled = true
				break outer
			}
			index++
			item := j.event(PhaseItem)
			item.CurrentItemLabel = g.DisplayTitle
			item.CurrentItemIndex = index
			j.handle.reporter.emit(item)

			j.processGroup(ctx, g)

			if index < len(j.groups) {
				if err := j.im.clock.Sleep(ctx, opts.GroupDelay); err != nil {
					cancelled = true
					break outer
				}
			}
		}

		if b < len(batches)-1 {
			if err := j.cooldown(ctx); err != nil {
				cancelled = true
				break
			}
		}
	}
	if ctx.Err() != nil {
		cancelled = true
	}

	result := &Result{
		Total:     len(j.groups),
		Imported:  j.imported,
		Updated:   j.updated,
		Errors:    j.errors,
		Grouped:   j.entries - len(j.groups),
		Cancelled: cancelled,
	}
	if result.Errors == nil {
		result.Errors = []GroupError{}
	}

	final := j.event(PhaseComplete)
	final.Cancelled = cancelled
	j.handle.reporter.finish(final)

	var err error
	if cancelled {
		err = context.Canceled
	}

	j.log.Info().
		Int("imported", result.Imported).
		Int("updated", result.Updated).
		Int("errors", len(result.Errors)).
		Int("grouped", result.Grouped).
		Bool("cancelled", cancelled).
		Msg("Import finished")
	return result, err
}

func (j *job) cooldown(ctx context.Context) error {
	secs := j.im.opts.CooldownSeconds
	if secs == 0 {
		return nil
	}
	metrics.RecordCooldown()
	j.log.Info().Int("seconds", secs).Int("after_batch", j.currentBatch).Msg("Cooling down between batches")

	for remaining := secs; remaining > 0; remaining-- {
		pause := j.event(PhasePause)
		pause.RemainingPauseSeconds = remaining
		j.handle.reporter.emit(pause)
		if err := j.im.clock.Sleep(ctx, time.Second); err != nil {
			return err
		}
	}
	return nil
}

// processGroup enriches and writes one series with all its seasons. Errors
// are recorded on the job; nothing here stops the run except cancellation.
func (j *job) processGroup(ctx context.Context, g grouping.SeriesGroup) {
	im := j.im
	label := g.DisplayTitle
	if strings.TrimSpace(label) == "" || len(g.Entries) == 0 {
		j.addError(g.Key, 0, errors.New("group has no title"))
		metrics.RecordGroup("error")
		return
	}
	first := g.Entries[0]
	last := g.Entries[len(g.Entries)-1]

	seriesData, err := j.fetch(ctx, first.ExternalID, label)
	if err != nil {
		if ctx.Err() == nil {
			j.addError(label, first.ExternalID, err)
			metrics.RecordGroup("error")
		}
		return
	}

	existing, err := im.store.FindSeries(ctx, first.ExternalID)
	if err != nil {
		j.addError(label, first.ExternalID, err)
		metrics.RecordGroup("error")
		return
	}
	fields := reconcile.MergeSeries(existing, label, first, seriesData, last.Status)
	seriesID, created, err := im.store.UpsertSeries(ctx, fields)
	if err != nil {
		j.addError(label, first.ExternalID, err)
		metrics.RecordGroup("error")
		return
	}
	if created {
		j.imported++
		metrics.RecordGroup("imported")
	} else {
		j.updated++
		metrics.RecordGroup("updated")
	}

	for i, entry := range g.Entries {
		number := i + 1
		seasonLabel := fmt.Sprintf("%s (season %d)", label, number)

		fetched := seriesData
		if i > 0 {
			if err := im.clock.Sleep(ctx, im.opts.SeasonDelay); err != nil {
				return
			}
			fetched, err = j.fetch(ctx, entry.ExternalID, entry.Title)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				// the season is still written from the export alone
				j.addError(seasonLabel, entry.ExternalID, err)
				fetched = nil
			}
		}

		if err := j.writeSeason(ctx, seriesID, number, entry, fetched); err != nil {
			if ctx.Err() != nil {
				return
			}
			j.addError(seasonLabel, entry.ExternalID, err)
		}
	}

	j.log.Debug().
		Str("label", label).
		Int("seasons", len(g.Entries)).
		Bool("created", created).
		Msg("Group imported")
}

// fetch queries both providers for one entry. A primary failure is returned;
// a cover failure only loses the high resolution cover.
func (j *job) fetch(ctx context.Context, externalID int, title string) (*reconcile.Fetched, error) {
	primary, err := j.im.source.FetchPrimary(ctx, externalID)
	if err != nil {
		return nil, err
	}

	cover, err := j.im.source.FetchCoverArt(ctx, externalID, title)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		j.log.Debug().Err(err).Int("external_id", externalID).Msg("Cover art unavailable, using primary image")
		cover = nil
	}
	return reconcile.Combine(primary, cover), nil
}

func (j *job) writeSeason(ctx context.Context, seriesID uint, number int, entry parser.Entry, fetched *reconcile.Fetched) error {
	existing, err := j.im.store.FindSeason(ctx, seriesID, number)
	if err != nil {
		return err
	}
	season := reconcile.MergeSeason(existing, seriesID, number, entry, fetched)
	seasonID, err := j.im.store.UpsertSeason(ctx, season)
	if err != nil {
		return err
	}
	return j.im.store.MarkEpisodesWatched(ctx, seasonID, j.userID, reconcile.WatchedCount(entry, season.TotalEpisodes))
}

func partition(groups []grouping.SeriesGroup, size int) [][]grouping.SeriesGroup {
	var batches [][]grouping.SeriesGroup
	for start := 0; start < len(groups); start += size {
		end := min(start+size, len(groups))
		batches = append(batches, groups[start:end])
	}
	return batches
}
