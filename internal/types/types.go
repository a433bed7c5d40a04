package types

import (
	"encoding/json"
	"time"
)

// Profile is a cached snapshot of a user's identity-provider profile
type Profile struct {
	SteamID      string    `json:"steam_id"`
	DisplayName  string    `json:"display_name"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	ProfileURL   string    `json:"profile_url,omitempty"`
	LastSyncedAt time.Time `json:"last_synced_at"`
}

// OwnedGame is one row of a user's library snapshot
type OwnedGame struct {
	AppID           int64      `json:"app_id"`
	Name            string     `json:"name,omitempty"`
	PlaytimeForever int        `json:"playtime_forever"`
	Playtime2Weeks  int        `json:"playtime_2weeks"`
	LastPlayedAt    *int64     `json:"last_played_at,omitempty"`
	SyncedAt        time.Time  `json:"synced_at"`
}

// RankedTag is a community tag with its display ordering
type RankedTag struct {
	Tag  string `json:"tag"`
	Rank int    `json:"rank"`
}

// GameDetails is cached store-page metadata for a single game
type GameDetails struct {
	AppID            int64       `json:"app_id"`
	Name             string      `json:"name"`
	Type             string      `json:"type,omitempty"`
	ShortDescription string      `json:"short_description,omitempty"`
	HeaderImage      string      `json:"header_image,omitempty"`
	Developers       []string    `json:"developers,omitempty"`
	Publishers       []string    `json:"publishers,omitempty"`
	MetacriticScore  *int        `json:"metacritic_score,omitempty"`
	ReleaseDate      string      `json:"release_date,omitempty"`
	Price            string      `json:"price,omitempty"`
	Genres           []string    `json:"genres,omitempty"`
	Tags             []RankedTag `json:"tags,omitempty"`
	LastFetchedAt    time.Time   `json:"last_fetched_at"`
}

// RecType classifies a cached recommendation payload
type RecType string

const (
	RecTypeSimilar RecType = "similar"
	RecTypeLibrary RecType = "library"
	RecTypeGeneral RecType = "general"
)

// Recommendation is one append-only recommendation cache row
type Recommendation struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	SourceAppID *int64          `json:"source_app_id,omitempty"`
	Type        RecType         `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	ExpiresAt   time.Time       `json:"expires_at"`
}

// FeedbackAction is what a user did with a recommended game
type FeedbackAction string

const (
	ActionSaved     FeedbackAction = "saved"
	ActionDismissed FeedbackAction = "dismissed"
	ActionClicked   FeedbackAction = "clicked"
)

// GameStatus is a user-assigned label on any game
type GameStatus string

const (
	StatusPlayed        GameStatus = "played"
	StatusLiked         GameStatus = "liked"
	StatusNotInterested GameStatus = "not_interested"
)

// StatusEntry is one user/game status row
type StatusEntry struct {
	AppID     int64      `json:"app_id"`
	Name      string     `json:"name"`
	Status    GameStatus `json:"status"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// GameRef is a minimal name + id pair used in prompt summaries
type GameRef struct {
	AppID int64  `json:"app_id"`
	Name  string `json:"name"`
}

// StatusSummary groups a user's status entries for prompt building
type StatusSummary struct {
	Played        []GameRef `json:"played"`
	Liked         []GameRef `json:"liked"`
	NotInterested []GameRef `json:"not_interested"`
}

// HealthResponse is the payload for GET /healthz
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	GameCount int64  `json:"game_count"`
	UserCount int64  `json:"user_count"`
}
