package importer

import (
	"context"
	"errors"

	"github.com/pokerjest/animeshelf/internal/model"
	"github.com/pokerjest/animeshelf/internal/parser"
	"github.com/pokerjest/animeshelf/internal/provider"
)

var (
	ErrJobRunning = errors.New("an import is already running against this store")
	ErrNoStore    = errors.New("no storage handle available")
	ErrNoUser     = errors.New("no user given for import")
	ErrNoEntries  = errors.New("export contains no importable entries")
)

// Store is the persistence the importer writes through. Find* return nil, nil
// for a missing row.
type Store interface {
	FindSeries(ctx context.Context, externalID int) (*model.Series, error)
	UpsertSeries(ctx context.Context, series model.Series) (id uint, created bool, err error)
	FindSeason(ctx context.Context, seriesID uint, number int) (*model.Season, error)
	UpsertSeason(ctx context.Context, season model.Season) (uint, error)
	MarkEpisodesWatched(ctx context.Context, seasonID, userID uint, count int) error
}

// MetadataSource is the rate-limited provider client.
type MetadataSource interface {
	FetchPrimary(ctx context.Context, externalID int) (*provider.PrimaryRecord, error)
	FetchCoverArt(ctx context.Context, externalID int, title string) (*provider.CoverRecord, error)
}

// cacheResetter is implemented by sources that memoize lookups. The cache is
// cleared when a job starts.
type cacheResetter interface {
	ResetCache()
}

type Request struct {
	UserID  uint
	Entries []parser.Entry
}

type Phase string

const (
	PhaseBatch    Phase = "batch"
	PhaseItem     Phase = "item"
	PhasePause    Phase = "pause"
	PhaseComplete Phase = "complete"
)

// Event is one progress message. Counters are running totals.
type Event struct {
	Phase                 Phase  `json:"phase"`
	CurrentBatch          int    `json:"currentBatch"`
	TotalBatches          int    `json:"totalBatches"`
	Total                 int    `json:"total"`
	Imported              int    `json:"imported"`
	Updated               int    `json:"updated"`
	Errors                int    `json:"errors"`
	CurrentItemLabel      string `json:"currentItemLabel,omitempty"`
	CurrentItemIndex      int    `json:"currentItemIndex,omitempty"`
	RemainingPauseSeconds int    `json:"remainingPauseSeconds,omitempty"`
	Cancelled             bool   `json:"cancelled,omitempty"`
}

type GroupError struct {
	Label      string `json:"label"`
	ExternalID int    `json:"externalId,omitempty"`
	Error      string `json:"error"`
}

// Result is the final summary. Grouped counts entries folded into another
// entry's series as an extra season.
type Result struct {
	Total     int          `json:"total"`
	Imported  int          `json:"imported"`
	Updated   int          `json:"updated"`
	Errors    []GroupError `json:"errors"`
	Grouped   int          `json:"grouped"`
	Cancelled bool         `json:"cancelled,omitempty"`
}
