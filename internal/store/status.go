package store

import (
	"context"
	"fmt"
	"time"

	"github.com/playnext/playnext/internal/types"
)

// SetStatus records a user-assigned status label for a game. The row is
// overwritten wholesale on change; history is not retained. Invalid status
// values are rejected by the table's CHECK constraint.
func (s *SQLiteStore) SetStatus(ctx context.Context, steamID string, appID int64, name string, status types.GameStatus) error {
	s.EnsureMigrated(ctx)
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO game_status (user_id, app_id, name, status, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, steamID, appID, name, string(status), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

// RemoveStatus clears a user's status label for a game. Removing a label
// that was never set is a no-op.
func (s *SQLiteStore) RemoveStatus(ctx context.Context, steamID string, appID int64) error {
	s.EnsureMigrated(ctx)
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM game_status WHERE user_id = ? AND app_id = ?
	`, steamID, appID)
	if err != nil {
		return fmt.Errorf("remove status: %w", err)
	}
	return nil
}

// GetStatusesForUser returns every status entry for the user.
func (s *SQLiteStore) GetStatusesForUser(ctx context.Context, steamID string) ([]types.StatusEntry, error) {
	s.EnsureMigrated(ctx)
	return s.queryStatuses(ctx, `
		SELECT app_id, name, status, updated_at
		FROM game_status
		WHERE user_id = ?
		ORDER BY updated_at DESC
	`, steamID)
}

// GetGamesByStatus returns the user's entries carrying one particular label.
func (s *SQLiteStore) GetGamesByStatus(ctx context.Context, steamID string, status types.GameStatus) ([]types.StatusEntry, error) {
	s.EnsureMigrated(ctx)
	return s.queryStatuses(ctx, `
		SELECT app_id, name, status, updated_at
		FROM game_status
		WHERE user_id = ? AND status = ?
		ORDER BY updated_at DESC
	`, steamID, string(status))
}

func (s *SQLiteStore) queryStatuses(ctx context.Context, query string, args ...any) ([]types.StatusEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query statuses: %w", err)
	}
	defer rows.Close()

	var entries []types.StatusEntry
	for rows.Next() {
		var e types.StatusEntry
		var updatedAt string
		if err := rows.Scan(&e.AppID, &e.Name, &e.Status, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan status row: %w", err)
		}
		e.UpdatedAt = parseTime(updatedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RecordFeedback records what a user did with a recommended game. The
// latest action always wins.
func (s *SQLiteStore) RecordFeedback(ctx context.Context, steamID string, appID int64, action types.FeedbackAction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO rec_feedback (user_id, app_id, action, created_at)
		VALUES (?, ?, ?, ?)
	`, steamID, appID, string(action), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("record feedback: %w", err)
	}
	return nil
}

// GetDismissedAppIDs returns games the user dismissed from recommendation
// lists, used to extend the exclusion set beyond not_interested statuses.
func (s *SQLiteStore) GetDismissedAppIDs(ctx context.Context, steamID string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT app_id FROM rec_feedback WHERE user_id = ? AND action = 'dismissed'
	`, steamID)
	if err != nil {
		return nil, fmt.Errorf("query dismissed: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan dismissed row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// StatusSummary groups the user's status entries into the three labeled
// lists fed to the prompt builder. Pure projection, no filtering.
func (s *SQLiteStore) StatusSummary(ctx context.Context, steamID string) (*types.StatusSummary, error) {
	entries, err := s.GetStatusesForUser(ctx, steamID)
	if err != nil {
		return nil, err
	}

	summary := &types.StatusSummary{}
	for _, e := range entries {
		ref := types.GameRef{AppID: e.AppID, Name: e.Name}
		switch e.Status {
		case types.StatusPlayed:
			summary.Played = append(summary.Played, ref)
		case types.StatusLiked:
			summary.Liked = append(summary.Liked, ref)
		case types.StatusNotInterested:
			summary.NotInterested = append(summary.NotInterested, ref)
		}
	}
	return summary, nil
}
