package services

import "fmt"

// OsuToken is the token endpoint response for both grant types.
type OsuToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// ExternalIdentity is the verified osu! profile handed to the upsert service.
type ExternalIdentity struct {
	ExternalID  int64
	Username    string
	AvatarURL   *string
	CoverURL    *string
	CountryCode string
	PP          float64
	GlobalRank  *int64
	CountryRank *int64
}

// OsuUser mirrors the osu! API v2 user object (the fields this service reads).
type OsuUser struct {
	ID          int64          `json:"id"`
	Username    string         `json:"username"`
	AvatarURL   string         `json:"avatar_url"`
	CountryCode string         `json:"country_code"`
	Cover       *OsuCover      `json:"cover,omitempty"`
	Statistics  *OsuStatistics `json:"statistics,omitempty"`
}

type OsuCover struct {
	CustomURL *string `json:"custom_url"`
	URL       string  `json:"url"`
	ID        *string `json:"id"`
}

type OsuStatistics struct {
	PP          float64 `json:"pp"`
	GlobalRank  *int64  `json:"global_rank"`
	CountryRank *int64  `json:"country_rank"`
	RankedScore int64   `json:"ranked_score"`
	HitAccuracy float64 `json:"hit_accuracy"`
	PlayCount   int64   `json:"play_count"`
	PlayTime    int64   `json:"play_time"`
	Level       struct {
		Current  int `json:"current"`
		Progress int `json:"progress"`
	} `json:"level"`
	GradeCounts struct {
		SS  int `json:"ss"`
		SSH int `json:"ssh"`
		S   int `json:"s"`
		SH  int `json:"sh"`
		A   int `json:"a"`
	} `json:"grade_counts"`
}

// Identity maps the API shape onto ExternalIdentity. Missing statistics
// leave pp at 0 and both ranks nil.
func (u *OsuUser) Identity() ExternalIdentity {
	id := ExternalIdentity{
		ExternalID:  u.ID,
		Username:    u.Username,
		CountryCode: u.CountryCode,
	}
	if u.AvatarURL != "" {
		avatar := u.AvatarURL
		id.AvatarURL = &avatar
	}
	if u.Cover != nil && u.Cover.URL != "" {
		cover := u.Cover.URL
		id.CoverURL = &cover
	}
	if u.Statistics != nil {
		id.PP = u.Statistics.PP
		id.GlobalRank = u.Statistics.GlobalRank
		id.CountryRank = u.Statistics.CountryRank
	}
	return id
}

// Beatmap is the flattened beatmap view used by the mappool tooling.
type Beatmap struct {
	ID            int64   `json:"id"`
	BeatmapsetID  int64   `json:"beatmapset_id"`
	Title         string  `json:"title"`
	TitleUnicode  string  `json:"title_unicode"`
	Artist        string  `json:"artist"`
	ArtistUnicode string  `json:"artist_unicode"`
	Version       string  `json:"version"`
	Creator       string  `json:"creator"`
	StarRating    float64 `json:"star_rating"`
	BPM           float64 `json:"bpm"`
	TotalLength   int     `json:"total_length"`
	MaxCombo      int     `json:"max_combo"`
	AR            float64 `json:"ar"`
	CS            float64 `json:"cs"`
	OD            float64 `json:"od"`
	HP            float64 `json:"hp"`
	URL           string  `json:"url"`
	CoverURL      string  `json:"cover_url"`
}

type osuBeatmapset struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	TitleUnicode  string `json:"title_unicode"`
	Artist        string `json:"artist"`
	ArtistUnicode string `json:"artist_unicode"`
	Creator       string `json:"creator"`
	Covers        struct {
		Cover string `json:"cover"`
		Card  string `json:"card"`
	} `json:"covers"`
	Beatmaps []osuBeatmap `json:"beatmaps,omitempty"`
}

type osuBeatmap struct {
	ID               int64          `json:"id"`
	BeatmapsetID     int64          `json:"beatmapset_id"`
	Version          string         `json:"version"`
	DifficultyRating float64        `json:"difficulty_rating"`
	BPM              float64        `json:"bpm"`
	TotalLength      int            `json:"total_length"`
	MaxCombo         int            `json:"max_combo"`
	AR               float64        `json:"ar"`
	CS               float64        `json:"cs"`
	Accuracy         float64        `json:"accuracy"`
	Drain            float64        `json:"drain"`
	URL              string         `json:"url"`
	Beatmapset       *osuBeatmapset `json:"beatmapset,omitempty"`
}

func (b *osuBeatmap) flatten(set *osuBeatmapset) Beatmap {
	out := Beatmap{
		ID:           b.ID,
		BeatmapsetID: b.BeatmapsetID,
		Version:      b.Version,
		StarRating:   b.DifficultyRating,
		BPM:          b.BPM,
		TotalLength:  b.TotalLength,
		MaxCombo:     b.MaxCombo,
		AR:           b.AR,
		CS:           b.CS,
		OD:           b.Accuracy,
		HP:           b.Drain,
		URL:          b.URL,
	}
	if out.URL == "" {
		out.URL = fmt.Sprintf("https://osu.ppy.sh/beatmaps/%d", b.ID)
	}
	if set != nil {
		out.Title = set.Title
		out.TitleUnicode = firstNonEmpty(set.TitleUnicode, set.Title)
		out.Artist = set.Artist
		out.ArtistUnicode = firstNonEmpty(set.ArtistUnicode, set.Artist)
		out.Creator = set.Creator
		out.CoverURL = firstNonEmpty(set.Covers.Cover, set.Covers.Card)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
