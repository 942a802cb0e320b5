package parser

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultColonThreshold is the title length above which a ": subtitle" suffix
// is treated as a season marker.
const DefaultColonThreshold = 15

var (
	// "Season 2", "Part II", "2nd Season", "Final Season", "2nd Cour" and everything after
	reSeasonMarker  = regexp.MustCompile(`(?i)[\s:\-–]*\b(?:season|part|cour)\s*(?:\d+|[ivx]+)\b.*$`)
	reOrdinalSeason = regexp.MustCompile(`(?i)[\s:\-–]*\b\d+(?:st|nd|rd|th)\s+(?:season|cour)\b.*$`)
	reFinalSeason   = regexp.MustCompile(`(?i)[\s:\-–]*\bthe\s+final(?:\s+season)?\b.*$|[\s:\-–]*\bfinal\s+season\b.*$`)
	// "Overlord III", "Danmachi IV"
	reRomanSuffix = regexp.MustCompile(`\s+(?:II|III|IV|V|VI|VII|VIII|IX|X)$`)
	// "Kaguya-sama 2"; single digit so "Mob Psycho 100" survives
	reDigitSuffix = regexp.MustCompile(`\s+[2-9]$`)

	reSpaces = regexp.MustCompile(`\s+`)
)

// BaseTitle strips season/part markers from a title so that all seasons of a
// series share one base. Colon truncation only applies to titles longer than
// colonThreshold and only at a ": " separator, which keeps "Re:Zero" and
// short colon-bearing names intact.
func BaseTitle(title string, colonThreshold int) string {
	raw := strings.TrimSpace(reSpaces.ReplaceAllString(title, " "))
	s := raw

	s = reSeasonMarker.ReplaceAllString(s, "")
	s = reOrdinalSeason.ReplaceAllString(s, "")
	s = reFinalSeason.ReplaceAllString(s, "")
	s = reRomanSuffix.ReplaceAllString(s, "")
	s = reDigitSuffix.ReplaceAllString(s, "")

	if colonThreshold <= 0 {
		colonThreshold = DefaultColonThreshold
	}
	if len([]rune(s)) > colonThreshold {
		if idx := strings.Index(s, ": "); idx > 0 {
			s = s[:idx]
		}
	}

	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, " :-–")
	if s == "" {
		return raw // Fallback if we stripped everything
	}
	return s
}

// TitleKey folds a title into a comparison key: lower case, letters and digits
// only, single spaces.
func TitleKey(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	prevSpace := true
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteRune(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}
