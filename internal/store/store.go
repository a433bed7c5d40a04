package store

import (
	"context"
	"encoding/json"

	"github.com/playnext/playnext/internal/types"
)

// Store defines the interface contract for all cache operations.
// Read accessors report a stale or missing row as (zero, false, nil);
// a cache miss is never an error.
type Store interface {
	// Profile cache
	UpsertProfile(ctx context.Context, profile types.Profile) error
	GetProfile(ctx context.Context, steamID string) (*types.Profile, bool, error)

	// Library cache
	ReplaceLibrary(ctx context.Context, steamID string, games []types.OwnedGame) error
	GetLibrary(ctx context.Context, steamID string) ([]types.OwnedGame, bool, error)
	InvalidateUser(ctx context.Context, steamID string) error

	// Game metadata cache
	UpsertGameDetails(ctx context.Context, details types.GameDetails) error
	GetGameDetails(ctx context.Context, appID int64) (*types.GameDetails, bool, error)
	GetGameTags(ctx context.Context, appID int64) ([]types.RankedTag, error)
	DeleteGameDetails(ctx context.Context, appID int64) error

	// Recommendation cache
	PutRecommendation(ctx context.Context, steamID string, sourceAppID *int64, recType types.RecType, payload json.RawMessage, ttlHours int) (*types.Recommendation, error)
	GetRecommendation(ctx context.Context, steamID string, sourceAppID *int64, recType types.RecType) (*types.Recommendation, bool, error)
	PruneExpiredRecommendations(ctx context.Context) (int64, error)

	// Feedback / status store
	SetStatus(ctx context.Context, steamID string, appID int64, name string, status types.GameStatus) error
	RemoveStatus(ctx context.Context, steamID string, appID int64) error
	GetStatusesForUser(ctx context.Context, steamID string) ([]types.StatusEntry, error)
	GetGamesByStatus(ctx context.Context, steamID string, status types.GameStatus) ([]types.StatusEntry, error)
	RecordFeedback(ctx context.Context, steamID string, appID int64, action types.FeedbackAction) error
	GetDismissedAppIDs(ctx context.Context, steamID string) ([]int64, error)
	StatusSummary(ctx context.Context, steamID string) (*types.StatusSummary, error)

	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}

// Stats holds aggregate counts reported by the health endpoint.
type Stats struct {
	GameCount int64
	UserCount int64
}
