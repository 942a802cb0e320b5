package jikan

type Named struct {
	MalID int    `json:"mal_id"`
	Name  string `json:"name"`
}

type ImageSet struct {
	ImageURL      string `json:"image_url"`
	SmallImageURL string `json:"small_image_url"`
	LargeImageURL string `json:"large_image_url"`
}

type Images struct {
	JPG  ImageSet `json:"jpg"`
	WebP ImageSet `json:"webp"`
}

type Aired struct {
	From   string `json:"from"`
	To     string `json:"to"`
	String string `json:"string"`
}

// Anime is the subset of /anime/{id} the importer reads. Episodes and Year
// are null while a show is airing or unscheduled.
type Anime struct {
	MalID         int      `json:"mal_id"`
	Title         string   `json:"title"`
	TitleEnglish  string   `json:"title_english"`
	TitleJapanese string   `json:"title_japanese"`
	TitleSynonyms []string `json:"title_synonyms"`
	Type          string   `json:"type"`
	Episodes      *int     `json:"episodes"`
	Status        string   `json:"status"`
	Synopsis      string   `json:"synopsis"`
	Year          *int     `json:"year"`
	Aired         Aired    `json:"aired"`
	Images        Images   `json:"images"`
	Studios       []Named  `json:"studios"`
	Genres        []Named  `json:"genres"`
}

// ImageURL prefers the large jpg variant.
func (a *Anime) ImageURL() string {
	for _, u := range []string{a.Images.JPG.LargeImageURL, a.Images.JPG.ImageURL, a.Images.WebP.LargeImageURL} {
		if u != "" {
			return u
		}
	}
	return ""
}

func names(in []Named) []string {
	out := make([]string, 0, len(in))
	for _, n := range in {
		if n.Name != "" {
			out = append(out, n.Name)
		}
	}
	return out
}

func (a *Anime) StudioNames() []string { return names(a.Studios) }
func (a *Anime) GenreNames() []string  { return names(a.Genres) }

type animeResponse struct {
	Data *Anime `json:"data"`
}
