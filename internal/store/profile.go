package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/playnext/playnext/internal/types"
)

// UpsertProfile writes a user's profile snapshot, stamping last_synced_at
// with the current time. The row is overwritten wholesale on re-sync.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, profile types.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO user_profiles (user_id, display_name, avatar_url, profile_url, last_synced_at)
		VALUES (?, ?, ?, ?, ?)
	`, profile.SteamID, profile.DisplayName,
		nullableString(profile.AvatarURL), nullableString(profile.ProfileURL),
		formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// GetProfile returns the cached profile if it was synced less than 24h ago.
// A stale row still exists on disk but reads as a miss.
func (s *SQLiteStore) GetProfile(ctx context.Context, steamID string) (*types.Profile, bool, error) {
	var p types.Profile
	var avatarURL, profileURL sql.NullString
	var lastSyncedAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, display_name, avatar_url, profile_url, last_synced_at
		FROM user_profiles
		WHERE user_id = ?
	`, steamID).Scan(&p.SteamID, &p.DisplayName, &avatarURL, &profileURL, &lastSyncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get profile: %w", err)
	}

	p.LastSyncedAt = parseTime(lastSyncedAt)
	if time.Since(p.LastSyncedAt) >= profileTTL {
		return nil, false, nil
	}

	p.AvatarURL = avatarURL.String
	p.ProfileURL = profileURL.String
	return &p, true, nil
}
