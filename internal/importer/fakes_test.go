package importer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pokerjest/animeshelf/internal/anilist"
	"github.com/pokerjest/animeshelf/internal/jikan"
	"github.com/pokerjest/animeshelf/internal/model"
	"github.com/pokerjest/animeshelf/internal/parser"
	"github.com/pokerjest/animeshelf/internal/provider"
)

var epoch = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu           sync.Mutex
	primaryCalls map[int]int
	coverCalls   int
	failPrimary  map[int]error
	failCover    error
	units        map[int]int
	onPrimary    func(ctx context.Context, id int) error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		primaryCalls: make(map[int]int),
		failPrimary:  make(map[int]error),
		units:        make(map[int]int),
	}
}

func (f *fakeSource) FetchPrimary(ctx context.Context, id int) (*provider.PrimaryRecord, error) {
	f.mu.Lock()
	f.primaryCalls[id]++
	hook := f.onPrimary
	failure := f.failPrimary[id]
	units := f.units[id]
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, id); err != nil {
			return nil, err
		}
	}
	if failure != nil {
		return nil, failure
	}
	return &provider.PrimaryRecord{
		ExternalID: id,
		Title:      fmt.Sprintf("Provider title %d", id),
		Synopsis:   "synopsis",
		ImageURL:   fmt.Sprintf("https://img/%d.jpg", id),
		Units:      units,
		Year:       2020,
	}, nil
}

func (f *fakeSource) FetchCoverArt(_ context.Context, id int, _ string) (*provider.CoverRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.coverCalls++
	if f.failCover != nil {
		return nil, f.failCover
	}
	return &provider.CoverRecord{ExternalID: id, URLs: []string{fmt.Sprintf("https://cover/%d.jpg", id)}}, nil
}

// countingPrimary stands in for the primary HTTP client behind a real
// provider.Client.
type countingPrimary struct {
	mu    sync.Mutex
	calls int
}

func (p *countingPrimary) GetAnime(_ context.Context, id int) (*jikan.Anime, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return &jikan.Anime{MalID: id, Title: fmt.Sprintf("Series %03d", id)}, nil
}

func (p *countingPrimary) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type missingCover struct{}

func (missingCover) GetByMalID(context.Context, int) (*anilist.Media, error) {
	return nil, anilist.ErrNotFound
}

func (missingCover) SearchAnime(context.Context, string) (*anilist.Media, error) {
	return nil, anilist.ErrNotFound
}

type seasonKey struct {
	seriesID uint
	number   int
}

type markKey struct {
	seasonID uint
	userID   uint
	episode  int
}

// memStore keeps everything in maps.
type memStore struct {
	mu      sync.Mutex
	nextID  uint
	series  map[int]model.Series
	seasons map[seasonKey]model.Season
	marks   map[markKey]int
}

func newMemStore() *memStore {
	return &memStore{
		series:  make(map[int]model.Series),
		seasons: make(map[seasonKey]model.Season),
		marks:   make(map[markKey]int),
	}
}

func (m *memStore) FindSeries(_ context.Context, externalID int) (*model.Series, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.series[externalID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memStore) UpsertSeries(_ context.Context, s model.Series) (uint, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.series[s.ExternalID]; ok {
		s.ID = old.ID
		m.series[s.ExternalID] = s
		return s.ID, false, nil
	}
	m.nextID++
	s.ID = m.nextID
	m.series[s.ExternalID] = s
	return s.ID, true, nil
}

func (m *memStore) FindSeason(_ context.Context, seriesID uint, number int) (*model.Season, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.seasons[seasonKey{seriesID, number}]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memStore) UpsertSeason(_ context.Context, s model.Season) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := seasonKey{s.SeriesID, s.Number}
	if old, ok := m.seasons[key]; ok {
		s.ID = old.ID
	} else {
		m.nextID++
		s.ID = m.nextID
	}
	m.seasons[key] = s
	return s.ID, nil
}

func (m *memStore) MarkEpisodesWatched(_ context.Context, seasonID, userID uint, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 1; i <= count; i++ {
		m.marks[markKey{seasonID, userID, i}]++
	}
	return nil
}

func (m *memStore) seasonsOf(externalID int) []model.Season {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.series[externalID]
	if !ok {
		return nil
	}
	var out []model.Season
	for n := 1; ; n++ {
		season, ok := m.seasons[seasonKey{s.ID, n}]
		if !ok {
			return out
		}
		out = append(out, season)
	}
}

func makeEntries(n int) []parser.Entry {
	entries := make([]parser.Entry, 0, n)
	for i := 1; i <= n; i++ {
		entries = append(entries, parser.Entry{
			ExternalID:   i,
			Title:        fmt.Sprintf("Series %03d", i),
			TotalUnits:   12,
			WatchedUnits: 3,
			Status:       "Watching",
		})
	}
	return entries
}

func drain(h *JobHandle) []Event {
	var events []Event
	for e := range h.Events() {
		events = append(events, e)
	}
	return events
}

func countPhase(events []Event, phase Phase) int {
	n := 0
	for _, e := range events {
		if e.Phase == phase {
			n++
		}
	}
	return n
}
