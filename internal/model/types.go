package model

import (
	"time"

	"gorm.io/gorm"
)

// WatchState 观看状态，固定四种
type WatchState string

const (
	StateToWatch   WatchState = "to_watch"
	StateWatching  WatchState = "watching"
	StateCompleted WatchState = "completed"
	StateDropped   WatchState = "dropped"
)

// Label returns the display label shown in list views.
func (s WatchState) Label() string {
	switch s {
	case StateWatching:
		return "Watching"
	case StateCompleted:
		return "Completed"
	case StateDropped:
		return "Dropped"
	default:
		return "To watch"
	}
}

// Series 一部作品（可包含多季），以外部 ID 唯一标识
type Series struct {
	gorm.Model
	ExternalID    int        `json:"external_id" gorm:"uniqueIndex"` // 第一季条目的 MAL ID
	Title         string     `json:"title"`                          // 分组得到的基础标题
	TitleEnglish  string     `json:"title_english"`
	TitleJapanese string     `json:"title_japanese"`
	Synonyms      []string   `json:"synonyms" gorm:"serializer:json"`
	CoverURL      string     `json:"cover_url"`
	Synopsis      string     `json:"synopsis"`
	Kind          string     `json:"kind"`          // TV, Movie, OVA ...
	AiringStatus  string     `json:"airing_status"` // 提供方的播出状态
	Studios       []string   `json:"studios" gorm:"serializer:json"`
	Genres        []string   `json:"genres" gorm:"serializer:json"`
	Year          int        `json:"year"`
	TotalEpisodes int        `json:"total_episodes"`
	WatchState    WatchState `json:"watch_state"`
	Seasons       []Season   `json:"seasons,omitempty"`
}

// Season 属于某个 Series，(SeriesID, Number) 唯一
type Season struct {
	gorm.Model
	SeriesID        uint       `json:"series_id" gorm:"uniqueIndex:idx_season_series_number"`
	Number          int        `json:"number" gorm:"uniqueIndex:idx_season_series_number"` // 从 1 开始
	ExternalID      int        `json:"external_id" gorm:"index"`
	Title           string     `json:"title"`
	CoverURL        string     `json:"cover_url"`
	Synopsis        string     `json:"synopsis"`
	Year            int        `json:"year"`
	TotalEpisodes   int        `json:"total_episodes"`
	WatchedEpisodes int        `json:"watched_episodes"`
	WatchState      WatchState `json:"watch_state"`
}

// EpisodeWatch 单集观看记录，(SeasonID, UserID, EpisodeNumber) 唯一
type EpisodeWatch struct {
	gorm.Model
	SeasonID      uint      `json:"season_id" gorm:"uniqueIndex:idx_watch_season_user_episode"`
	UserID        uint      `json:"user_id" gorm:"uniqueIndex:idx_watch_season_user_episode"`
	EpisodeNumber int       `json:"episode_number" gorm:"uniqueIndex:idx_watch_season_user_episode"`
	WatchedAt     time.Time `json:"watched_at" gorm:"index"`
}
