// Package provider wraps the two metadata providers behind one sequential,
// rate-limited client. Primary lookups are retried with a bounded attempt
// budget shared by network errors and rate-limit answers; cover-art lookups
// are single-shot and guarded by a circuit breaker since they are optional.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pokerjest/animeshelf/internal/anilist"
	"github.com/pokerjest/animeshelf/internal/clock"
	"github.com/pokerjest/animeshelf/internal/config"
	"github.com/pokerjest/animeshelf/internal/jikan"
	"github.com/pokerjest/animeshelf/internal/logging"
	"github.com/pokerjest/animeshelf/internal/metrics"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	ProviderPrimary = "jikan"
	ProviderCover   = "anilist"
)

// PrimarySource is Provider A.
type PrimarySource interface {
	GetAnime(ctx context.Context, id int) (*jikan.Anime, error)
}

// CoverSource is Provider B.
type CoverSource interface {
	GetByMalID(ctx context.Context, malID int) (*anilist.Media, error)
	SearchAnime(ctx context.Context, query string) (*anilist.Media, error)
}

// PrimaryRecord is the descriptive metadata of one entry.
type PrimaryRecord struct {
	ExternalID    int
	Title         string
	TitleEnglish  string
	TitleJapanese string
	Synonyms      []string
	Synopsis      string
	Kind          string
	AiringStatus  string
	Studios       []string
	Genres        []string
	Year          int
	AiredFrom     string
	Units         int
	ImageURL      string
}

// CoverRecord holds image URLs ordered by resolution, highest first.
type CoverRecord struct {
	ExternalID int
	URLs       []string
}

func (c *CoverRecord) Best() string {
	if c == nil || len(c.URLs) == 0 {
		return ""
	}
	return c.URLs[0]
}

type Options struct {
	MaxAttempts      int
	RetryBackoff     time.Duration
	RateLimitBackoff time.Duration
	CacheSize        int
	BreakerFailures  uint32
	BreakerTimeout   time.Duration
	PrimaryLimiter   RateLimiter
	CoverLimiter     RateLimiter
	Clock            clock.Clock
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = time.Second
	}
	if o.RateLimitBackoff <= 0 {
		o.RateLimitBackoff = 2 * time.Second
	}
	if o.BreakerFailures == 0 {
		o.BreakerFailures = 5
	}
	if o.BreakerTimeout <= 0 {
		o.BreakerTimeout = 2 * time.Minute
	}
	if o.PrimaryLimiter == nil {
		o.PrimaryLimiter = PerSecond(3)
	}
	if o.CoverLimiter == nil {
		o.CoverLimiter = PerMinute(90)
	}
	if o.Clock == nil {
		o.Clock = clock.Real{}
	}
	return o
}

// Client is safe for use by one import job at a time; limiters and the
// breaker are shared, so a second concurrent job would only slow both down.
type Client struct {
	primary PrimarySource
	cover   CoverSource
	opts    Options
	cache   *lru.Cache[int, *PrimaryRecord]
	breaker *gobreaker.CircuitBreaker[*CoverRecord]
	log     zerolog.Logger
}

func New(primary PrimarySource, cover CoverSource, opts Options) (*Client, error) {
	opts = opts.withDefaults()
	c := &Client{
		primary: primary,
		cover:   cover,
		opts:    opts,
		log:     logging.With("provider"),
	}

	if opts.CacheSize > 0 {
		cache, err := lru.New[int, *PrimaryRecord](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create primary cache: %w", err)
		}
		c.cache = cache
	}

	c.breaker = gobreaker.NewCircuitBreaker[*CoverRecord](gobreaker.Settings{
		Name:        ProviderCover,
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		// a show AniList doesn't know is an answer, not an outage
		IsSuccessful: func(err error) bool {
			return err == nil || IsKind(err, KindNotFound) || callerCancelled(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Cover-art breaker changed state")
		},
	})
	return c, nil
}

// NewFromConfig builds both HTTP clients and their limiters from cfg.
func NewFromConfig(cfg config.ProvidersConfig) (*Client, error) {
	primary := jikan.NewClient(cfg.Jikan.BaseURL, cfg.ProxyURL, cfg.Jikan.Timeout)
	cover := anilist.NewClient(cfg.AniList.Endpoint, "", cfg.ProxyURL, cfg.AniList.Timeout)

	failures := cfg.AniList.BreakerFailures
	if failures < 0 {
		failures = 0
	}
	return New(primary, cover, Options{
		MaxAttempts:      cfg.Jikan.MaxAttempts,
		RetryBackoff:     cfg.Jikan.RetryBackoff,
		RateLimitBackoff: cfg.Jikan.RateLimitBackoff,
		CacheSize:        cfg.CacheSize,
		BreakerFailures:  uint32(failures),
		BreakerTimeout:   cfg.AniList.BreakerTimeout,
		PrimaryLimiter:   PerSecond(cfg.Jikan.RequestsPerSecond),
		CoverLimiter:     PerMinute(cfg.AniList.RequestsPerMinute),
	})
}

// FetchPrimary returns the primary record for externalID. Transient failures
// are retried up to MaxAttempts; a rate-limit answer waits RateLimitBackoff
// instead of RetryBackoff but spends the same budget.
func (c *Client) FetchPrimary(ctx context.Context, externalID int) (*PrimaryRecord, error) {
	if c.cache != nil {
		if rec, ok := c.cache.Get(externalID); ok {
			metrics.ProviderCacheHits.Inc()
			return rec, nil
		}
	}

	rec, err := performWithRetry(ctx, c, externalID, func(ctx context.Context) (*PrimaryRecord, error) {
		anime, err := c.primary.GetAnime(ctx, externalID)
		if err != nil {
			return nil, err
		}
		return primaryFromAnime(anime), nil
	})
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Add(externalID, rec)
	}
	return rec, nil
}

// ResetCache drops every memoized primary record. The importer calls it at the
// start of each job so a re-import sees fresh provider data.
func (c *Client) ResetCache() {
	if c.cache != nil {
		c.cache.Purge()
	}
}

// FetchCoverArt looks the cover up by id, then by title. It never retries.
func (c *Client) FetchCoverArt(ctx context.Context, externalID int, title string) (*CoverRecord, error) {
	rec, err := c.breaker.Execute(func() (*CoverRecord, error) {
		return c.lookupCover(ctx, externalID, title)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.RecordProviderRequest(ProviderCover, string(KindCircuitOpen), 0)
		return nil, &FetchError{Provider: ProviderCover, ExternalID: externalID, Kind: KindCircuitOpen, Attempts: 0, Err: err}
	}
	return rec, err
}

func (c *Client) lookupCover(ctx context.Context, externalID int, title string) (*CoverRecord, error) {
	media, err := c.coverCall(ctx, externalID, func(ctx context.Context) (*anilist.Media, error) {
		return c.cover.GetByMalID(ctx, externalID)
	})
	if err != nil && IsKind(err, KindNotFound) && title != "" {
		media, err = c.coverCall(ctx, externalID, func(ctx context.Context) (*anilist.Media, error) {
			return c.cover.SearchAnime(ctx, title)
		})
	}
	if err != nil {
		return nil, err
	}

	rec := &CoverRecord{ExternalID: externalID}
	for _, u := range []string{media.CoverImage.ExtraLarge, media.CoverImage.Large, media.CoverImage.Medium} {
		if u != "" {
			rec.URLs = append(rec.URLs, u)
		}
	}
	if len(rec.URLs) == 0 {
		return nil, &FetchError{Provider: ProviderCover, ExternalID: externalID, Kind: KindNotFound, Attempts: 1, Err: anilist.ErrNotFound}
	}
	return rec, nil
}

func (c *Client) coverCall(ctx context.Context, externalID int, call func(context.Context) (*anilist.Media, error)) (*anilist.Media, error) {
	if err := c.opts.CoverLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	start := c.opts.Clock.Now()
	media, err := call(ctx)
	if err != nil && ctx.Err() == nil {
		fe := classify(ProviderCover, externalID, err)
		fe.Attempts = 1
		metrics.RecordProviderRequest(ProviderCover, string(fe.Kind), c.opts.Clock.Now().Sub(start))
		return nil, fe
	}
	if err != nil {
		return nil, err
	}
	metrics.RecordProviderRequest(ProviderCover, "ok", c.opts.Clock.Now().Sub(start))
	return media, nil
}

func primaryFromAnime(a *jikan.Anime) *PrimaryRecord {
	rec := &PrimaryRecord{
		ExternalID:    a.MalID,
		Title:         a.Title,
		TitleEnglish:  a.TitleEnglish,
		TitleJapanese: a.TitleJapanese,
		Synonyms:      a.TitleSynonyms,
		Synopsis:      a.Synopsis,
		Kind:          a.Type,
		AiringStatus:  a.Status,
		Studios:       a.StudioNames(),
		Genres:        a.GenreNames(),
		AiredFrom:     a.Aired.From,
		ImageURL:      a.ImageURL(),
	}
	if a.Episodes != nil {
		rec.Units = *a.Episodes
	}
	if a.Year != nil {
		rec.Year = *a.Year
	}
	return rec
}
