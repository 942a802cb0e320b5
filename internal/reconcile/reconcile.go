// Package reconcile merges freshly fetched metadata into persisted records.
// A field is only replaced by a non-empty fetched value and counters never
// go down, so re-importing can't erase data a previous run filled in.
package reconcile

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pokerjest/animeshelf/internal/model"
	"github.com/pokerjest/animeshelf/internal/parser"
	"github.com/pokerjest/animeshelf/internal/provider"
)

// Fetched is the combined provider view of one entry. It is never persisted
// as such.
type Fetched struct {
	Title         string
	TitleEnglish  string
	TitleJapanese string
	Synonyms      []string
	CoverURL      string
	Synopsis      string
	Kind          string
	AiringStatus  string
	Studios       []string
	Genres        []string
	Year          int
	Units         int
}

// Combine merges both provider answers. The cover-art provider's image wins
// over the primary provider's. Either argument may be nil.
func Combine(primary *provider.PrimaryRecord, cover *provider.CoverRecord) *Fetched {
	if primary == nil && cover == nil {
		return nil
	}
	f := &Fetched{}
	if primary != nil {
		f.Title = primary.Title
		f.TitleEnglish = primary.TitleEnglish
		f.TitleJapanese = primary.TitleJapanese
		f.Synonyms = primary.Synonyms
		f.CoverURL = primary.ImageURL
		f.Synopsis = strings.TrimSpace(primary.Synopsis)
		f.Kind = primary.Kind
		f.AiringStatus = primary.AiringStatus
		f.Studios = primary.Studios
		f.Genres = primary.Genres
		f.Year = ExtractYear(primary.Year, primary.AiredFrom)
		f.Units = primary.Units
	}
	if best := cover.Best(); best != "" {
		f.CoverURL = best
	}
	return f
}

// MergeSeries computes the series row to write. existing is nil for a new
// series and first is the group's first entry. Title and ExternalID always
// come from the group, never from the provider's (possibly season-suffixed)
// title.
func MergeSeries(existing *model.Series, displayTitle string, first parser.Entry, fetched *Fetched, status string) model.Series {
	var out model.Series
	if existing != nil {
		out = *existing
		out.Seasons = nil
	}
	out.Title = displayTitle
	out.ExternalID = first.ExternalID

	if fetched != nil {
		out.TitleEnglish = pick(fetched.TitleEnglish, out.TitleEnglish)
		out.TitleJapanese = pick(fetched.TitleJapanese, out.TitleJapanese)
		out.Synonyms = pickList(fetched.Synonyms, out.Synonyms)
		out.CoverURL = pick(fetched.CoverURL, out.CoverURL)
		out.Synopsis = pick(fetched.Synopsis, out.Synopsis)
		out.Kind = pick(fetched.Kind, out.Kind)
		out.AiringStatus = pick(fetched.AiringStatus, out.AiringStatus)
		out.Studios = pickList(fetched.Studios, out.Studios)
		out.Genres = pickList(fetched.Genres, out.Genres)
		if fetched.Year > 0 {
			out.Year = fetched.Year
		}
	}
	out.TotalEpisodes = RealUnits(out.TotalEpisodes, first.TotalUnits, fetchedUnits(fetched))

	out.WatchState = resolveState(status, out.WatchState)
	return out
}

// MergeSeason computes the season row for the entry at position number
// (1-based) of its group. fetched is nil when the per-season lookup failed;
// the row is then built from the export alone.
func MergeSeason(existing *model.Season, seriesID uint, number int, entry parser.Entry, fetched *Fetched) model.Season {
	var out model.Season
	if existing != nil {
		out = *existing
	}
	out.SeriesID = seriesID
	out.Number = number
	out.ExternalID = entry.ExternalID

	if fetched != nil {
		out.Title = pick(fetched.Title, out.Title)
		out.CoverURL = pick(fetched.CoverURL, out.CoverURL)
		out.Synopsis = pick(fetched.Synopsis, out.Synopsis)
		if fetched.Year > 0 {
			out.Year = fetched.Year
		}
	}
	out.Title = pick(out.Title, entry.Title)

	out.TotalEpisodes = RealUnits(out.TotalEpisodes, entry.TotalUnits, fetchedUnits(fetched))
	out.WatchedEpisodes = max(out.WatchedEpisodes, entry.WatchedUnits)
	out.WatchState = resolveState(entry.Status, out.WatchState)
	return out
}

// RealUnits is the largest of the declared counts; zero means unknown.
func RealUnits(counts ...int) int {
	n := 0
	for _, c := range counts {
		n = max(n, c)
	}
	return n
}

// WatchedCount is how many episode marks to write for an entry: the watched
// counter, capped by the known total.
func WatchedCount(entry parser.Entry, total int) int {
	n := entry.WatchedUnits
	if total > 0 && n > total {
		n = total
	}
	if n < 0 {
		return 0
	}
	return n
}

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// ExtractYear returns year when set, otherwise the first plausible year in
// aired ("2023-09-29T00:00:00+00:00", "Apr 3, 1998 to Apr 24, 1999").
func ExtractYear(year int, aired string) int {
	if year > 0 {
		return year
	}
	m := yearPattern.FindString(aired)
	if m == "" {
		return 0
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return y
}

func fetchedUnits(f *Fetched) int {
	if f == nil {
		return 0
	}
	return f.Units
}

func resolveState(status string, current model.WatchState) model.WatchState {
	if st, ok := TranslateStatus(status); ok {
		return st
	}
	if current != "" {
		return current
	}
	return model.StateToWatch
}

func pick(fetched, existing string) string {
	if strings.TrimSpace(fetched) != "" {
		return fetched
	}
	return existing
}

func pickList(fetched, existing []string) []string {
	if len(fetched) > 0 {
		return fetched
	}
	return existing
}
