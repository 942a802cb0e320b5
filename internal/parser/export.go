package parser

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Entry is one <anime> fragment of a watch-history export.
type Entry struct {
	ExternalID   int    `json:"external_id"`
	GroupID      string `json:"group_id,omitempty"`
	Title        string `json:"title"`
	TotalUnits   int    `json:"total_units"`
	WatchedUnits int    `json:"watched_units"`
	Status       string `json:"status,omitempty"`
}

// exportAnime mirrors the MyAnimeList export layout. Every field is decoded as
// text so that one bad number only drops that fragment.
type exportAnime struct {
	ID       string `xml:"series_animedb_id"`
	Title    string `xml:"series_title"`
	Group    string `xml:"series_group"`
	Episodes string `xml:"series_episodes"`
	Watched  string `xml:"my_watched_episodes"`
	Status   string `xml:"my_status"`
}

var gzipMagic = []byte{0x1f, 0x8b}

// ParseExport streams the document and returns the accepted entries in
// document order. Fragments without a numeric id or a title are skipped.
// A syntax error stops the scan; entries read up to that point are returned
// together with the error.
func ParseExport(r io.Reader) ([]Entry, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(2); err == nil && bytes.Equal(head, gzipMagic) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open gzip export: %w", err)
		}
		defer gz.Close()
		return decodeEntries(gz)
	}
	return decodeEntries(br)
}

func decodeEntries(r io.Reader) ([]Entry, error) {
	decoder := xml.NewDecoder(r)
	decoder.Strict = false

	var entries []Entry
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return entries, fmt.Errorf("parse export: %w", err)
		}

		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != "anime" {
			continue
		}

		var raw exportAnime
		if err := decoder.DecodeElement(&raw, &start); err != nil {
			return entries, fmt.Errorf("parse export entry %d: %w", len(entries)+1, err)
		}
		if e, ok := raw.toEntry(); ok {
			entries = append(entries, e)
		}
	}
}

func (a exportAnime) toEntry() (Entry, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(a.ID))
	if err != nil || id <= 0 {
		return Entry{}, false
	}
	title := strings.TrimSpace(a.Title)
	if title == "" {
		return Entry{}, false
	}
	return Entry{
		ExternalID:   id,
		GroupID:      strings.TrimSpace(a.Group),
		Title:        title,
		TotalUnits:   atoiOrZero(a.Episodes),
		WatchedUnits: atoiOrZero(a.Watched),
		Status:       strings.TrimSpace(a.Status),
	}, true
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
