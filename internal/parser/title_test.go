package parser

import "testing"

func TestBaseTitle(t *testing.T) {
	cases := []struct {
		Title    string
		Expected string
	}{
		{Title: "Dr. Stone", Expected: "Dr. Stone"},
		{Title: "Dr. Stone: New World", Expected: "Dr. Stone"},
		{Title: "Oh! Ed", Expected: "Oh! Ed"},
		{Title: "Re:Zero kara Hajimeru Isekai Seikatsu", Expected: "Re:Zero kara Hajimeru Isekai Seikatsu"},
		{Title: "Re:Zero kara Hajimeru Isekai Seikatsu 2nd Season", Expected: "Re:Zero kara Hajimeru Isekai Seikatsu"},
		{Title: "Shingeki no Kyojin Season 3 Part 2", Expected: "Shingeki no Kyojin"},
		{Title: "Shingeki no Kyojin: The Final Season", Expected: "Shingeki no Kyojin"},
		{Title: "Overlord III", Expected: "Overlord"},
		{Title: "Mob Psycho 100", Expected: "Mob Psycho 100"},
		{Title: "Mob Psycho 100 II", Expected: "Mob Psycho 100"},
		{Title: "Kaguya-sama wa Kokurasetai 2", Expected: "Kaguya-sama wa Kokurasetai"},
		{Title: "Made in Abyss: Retsujitsu no Ougonkyou", Expected: "Made in Abyss"},
		{Title: "Steins;Gate 0", Expected: "Steins;Gate 0"},
		{Title: "  Cowboy   Bebop ", Expected: "Cowboy Bebop"},
	}

	for _, c := range cases {
		got := BaseTitle(c.Title, DefaultColonThreshold)
		if got != c.Expected {
			t.Errorf("BaseTitle(%q): expected %q, got %q", c.Title, c.Expected, got)
		}
	}
}

func TestBaseTitle_ShortColonTitleKept(t *testing.T) {
	// 14 runes with the colon well inside the threshold
	title := "Kiss x Sis: OV"
	if got := BaseTitle(title, DefaultColonThreshold); got != title {
		t.Errorf("short title truncated: %q", got)
	}
	if got := BaseTitle("Ao no Exorcist: Kyoto", 30); got != "Ao no Exorcist: Kyoto" {
		t.Errorf("custom threshold ignored: %q", got)
	}
}

func TestBaseTitle_FallsBackToRaw(t *testing.T) {
	if got := BaseTitle("Season 2", DefaultColonThreshold); got != "Season 2" {
		t.Errorf("expected raw fallback, got %q", got)
	}
}

func TestTitleKey(t *testing.T) {
	cases := map[string]string{
		"Dr. Stone":           "dr stone",
		"DR STONE":            "dr stone",
		"Re:Zero":             "re zero",
		"  Fate/stay night  ": "fate stay night",
		"葬送的芙莉莲":              "葬送的芙莉莲",
		"":                    "",
	}
	for in, want := range cases {
		if got := TitleKey(in); got != want {
			t.Errorf("TitleKey(%q): expected %q, got %q", in, want, got)
		}
	}
}
