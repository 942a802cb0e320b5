package grouping

import (
	"testing"

	"github.com/pokerjest/animeshelf/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroup_MergesSeasonsByBaseTitle(t *testing.T) {
	entries := []parser.Entry{
		{ExternalID: 1, Title: "Dr. Stone"},
		{ExternalID: 2, Title: "Dr. Stone: New World"},
	}

	groups := Group(entries, DefaultChain(nil, parser.DefaultColonThreshold), parser.DefaultColonThreshold)

	require.Len(t, groups, 1)
	assert.Equal(t, "Dr. Stone", groups[0].DisplayTitle)
	assert.Equal(t, "dr stone", groups[0].Key)
	require.Len(t, groups[0].Entries, 2)
	assert.Equal(t, 1, groups[0].Entries[0].ExternalID)
	assert.Equal(t, 2, groups[0].Entries[1].ExternalID)
}

func TestGroup_PreservesFirstSeenOrder(t *testing.T) {
	entries := []parser.Entry{
		{ExternalID: 10, Title: "Overlord"},
		{ExternalID: 20, Title: "Cowboy Bebop"},
		{ExternalID: 11, Title: "Overlord II"},
		{ExternalID: 30, Title: "Oh! Ed"},
		{ExternalID: 12, Title: "Overlord III"},
	}

	groups := Group(entries, DefaultChain(nil, 0), 0)

	require.Len(t, groups, 3)
	assert.Equal(t, "Overlord", groups[0].DisplayTitle)
	assert.Equal(t, "Cowboy Bebop", groups[1].DisplayTitle)
	assert.Equal(t, "Oh! Ed", groups[2].DisplayTitle)

	var ids []int
	for _, e := range groups[0].Entries {
		ids = append(ids, e.ExternalID)
	}
	assert.Equal(t, []int{10, 11, 12}, ids)
}

func TestGroup_ExplicitGroupWins(t *testing.T) {
	entries := []parser.Entry{
		{ExternalID: 1, Title: "Monogatari Series: Second Season", GroupID: "monogatari"},
		{ExternalID: 2, Title: "Bakemonogatari", GroupID: "monogatari"},
		{ExternalID: 3, Title: "Bakemonogatari"},
	}

	groups := Group(entries, DefaultChain(nil, 0), 0)

	require.Len(t, groups, 2)
	assert.Equal(t, "monogatari", groups[0].Key)
	assert.Len(t, groups[0].Entries, 2)
	// display title comes from the first entry, never from the raw group id
	assert.Equal(t, "Monogatari Series", groups[0].DisplayTitle)
	assert.Equal(t, "bakemonogatari", groups[1].Key)
}

func TestGroup_OverrideJoinsPatternGroup(t *testing.T) {
	entries := []parser.Entry{
		{ExternalID: 1, Title: "Kiss x Sis"},
		{ExternalID: 2, Title: "Kiss x Sis (TV)"},
	}
	overrides := map[string]string{"kiss x sis (tv)": "Kiss x Sis"}

	without := Group(entries, DefaultChain(nil, 0), 0)
	assert.Len(t, without, 2)

	with := Group(entries, DefaultChain(overrides, 0), 0)
	require.Len(t, with, 1)
	assert.Len(t, with[0].Entries, 2)
}

func TestChain_FallsThrough(t *testing.T) {
	chain := Chain{ExplicitGroup{}}
	_, ok := chain.Key(parser.Entry{Title: "x"})
	assert.False(t, ok)

	groups := Group([]parser.Entry{{ExternalID: 1, Title: "Solo"}}, chain, 0)
	require.Len(t, groups, 1)
	assert.Equal(t, "Solo", groups[0].Key)
}

func TestNewOverride_SkipsBlankKeys(t *testing.T) {
	o := NewOverride(map[string]string{"": "x", "y": "  "})
	assert.Empty(t, o.targets)
}
