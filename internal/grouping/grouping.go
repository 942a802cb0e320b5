// Package grouping clusters export entries into series. Each entry is keyed by
// a chain of normalizers; entries sharing a key become the seasons of one
// series, ordered as they appeared in the export.
package grouping

import (
	"strings"

	"github.com/pokerjest/animeshelf/internal/parser"
)

// SeriesGroup is one series and its seasons. Season numbers are the 1-based
// positions in Entries.
type SeriesGroup struct {
	Key          string         `json:"key"`
	DisplayTitle string         `json:"display_title"`
	Entries      []parser.Entry `json:"entries"`
}

// Normalizer derives a group key for an entry. ok=false lets the next
// normalizer in a Chain decide.
type Normalizer interface {
	Name() string
	Key(e parser.Entry) (key string, ok bool)
}

// Override pins titles to a chosen series. Both sides of the map are folded
// with parser.TitleKey, so "Kiss x Sis OVA" -> "Kiss x Sis" joins whatever the
// pattern rules produce for "Kiss x Sis".
type Override struct {
	targets map[string]string
}

func NewOverride(overrides map[string]string) Override {
	targets := make(map[string]string, len(overrides))
	for from, to := range overrides {
		k, v := parser.TitleKey(from), parser.TitleKey(to)
		if k == "" || v == "" {
			continue
		}
		targets[k] = v
	}
	return Override{targets: targets}
}

func (Override) Name() string { return "override" }

func (o Override) Key(e parser.Entry) (string, bool) {
	v, ok := o.targets[parser.TitleKey(e.Title)]
	return v, ok
}

// ExplicitGroup uses the group identifier carried by the export itself.
type ExplicitGroup struct{}

func (ExplicitGroup) Name() string { return "explicit" }

func (ExplicitGroup) Key(e parser.Entry) (string, bool) {
	id := strings.TrimSpace(e.GroupID)
	return id, id != ""
}

// Pattern strips season markers from the title.
type Pattern struct {
	ColonThreshold int
}

func (Pattern) Name() string { return "pattern" }

func (p Pattern) Key(e parser.Entry) (string, bool) {
	k := parser.TitleKey(parser.BaseTitle(e.Title, p.ColonThreshold))
	return k, k != ""
}

// Chain tries each normalizer in order.
type Chain []Normalizer

func (Chain) Name() string { return "chain" }

func (c Chain) Key(e parser.Entry) (string, bool) {
	for _, n := range c {
		if k, ok := n.Key(e); ok {
			return k, true
		}
	}
	return "", false
}

// DefaultChain is override -> explicit group id -> pattern rules.
func DefaultChain(overrides map[string]string, colonThreshold int) Chain {
	chain := Chain{}
	if len(overrides) > 0 {
		chain = append(chain, NewOverride(overrides))
	}
	return append(chain, ExplicitGroup{}, Pattern{ColonThreshold: colonThreshold})
}

// Group clusters entries in first-seen order. An entry no normalizer can key
// gets a group of its own keyed by its raw title. DisplayTitle is always the
// base title of the group's first entry.
func Group(entries []parser.Entry, n Normalizer, colonThreshold int) []SeriesGroup {
	var groups []SeriesGroup
	index := make(map[string]int)

	for _, e := range entries {
		key, ok := n.Key(e)
		if !ok {
			key = e.Title
		}

		if i, seen := index[key]; seen {
			groups[i].Entries = append(groups[i].Entries, e)
			continue
		}

		index[key] = len(groups)
		groups = append(groups, SeriesGroup{
			Key:          key,
			DisplayTitle: parser.BaseTitle(e.Title, colonThreshold),
			Entries:      []parser.Entry{e},
		})
	}
	return groups
}
