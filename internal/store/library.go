package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/playnext/playnext/internal/types"
)

// ReplaceLibrary atomically replaces a user's library snapshot: all prior
// rows for the user are deleted and the new set inserted in one transaction,
// so concurrent readers see either the old snapshot or the new one. Every
// row is stamped with the same synced_at. Unseen app ids also get a
// name-only game_details stub so lookups can render something before the
// full metadata fetch happens.
func (s *SQLiteStore) ReplaceLibrary(ctx context.Context, steamID string, games []types.OwnedGame) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_games WHERE user_id = ?`, steamID); err != nil {
		return fmt.Errorf("clear library: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO user_games (user_id, app_id, playtime_forever, playtime_2weeks, last_played_at, synced_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	syncedAt := formatTime(time.Now())

	for _, g := range games {
		var lastPlayed any
		if g.LastPlayedAt != nil {
			lastPlayed = *g.LastPlayedAt
		}
		if _, err := stmt.ExecContext(ctx, steamID, g.AppID, g.PlaytimeForever, g.Playtime2Weeks, lastPlayed, syncedAt); err != nil {
			return fmt.Errorf("insert library row %d: %w", g.AppID, err)
		}
		if err := upsertGameName(ctx, tx, g.AppID, g.Name); err != nil {
			return fmt.Errorf("stub game details %d: %w", g.AppID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// upsertGameName inserts a name-only game_details stub, or fills in a
// missing name on an existing row. A non-empty stored name is never
// overwritten by an empty one. Stub rows carry a zero fetch time so detail
// reads still register as misses.
func upsertGameName(ctx context.Context, tx *sql.Tx, appID int64, name string) error {
	var existing string
	err := tx.QueryRowContext(ctx, `SELECT name FROM game_details WHERE app_id = ?`, appID).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO game_details (app_id, name, last_fetched_at) VALUES (?, ?, ?)
		`, appID, name, formatTime(time.Time{}))
		return err
	}
	if err != nil {
		return err
	}

	if existing == "" && name != "" {
		_, err = tx.ExecContext(ctx, `UPDATE game_details SET name = ? WHERE app_id = ?`, name, appID)
		return err
	}
	return nil
}

// GetLibrary returns the user's full library snapshot if it was synced less
// than 5 minutes ago. Freshness is judged on the snapshot as a whole (the
// newest synced_at for the user), not per row; ReplaceLibrary stamps every
// row identically so the distinction only matters for empty results.
func (s *SQLiteStore) GetLibrary(ctx context.Context, steamID string) ([]types.OwnedGame, bool, error) {
	var latest sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(synced_at) FROM user_games WHERE user_id = ?
	`, steamID).Scan(&latest)
	if err != nil {
		return nil, false, fmt.Errorf("check library freshness: %w", err)
	}
	if !latest.Valid || time.Since(parseTime(latest.String)) >= libraryTTL {
		return nil, false, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT g.app_id, d.name, g.playtime_forever, g.playtime_2weeks, g.last_played_at, g.synced_at
		FROM user_games g
		LEFT JOIN game_details d ON d.app_id = g.app_id
		WHERE g.user_id = ?
		ORDER BY g.playtime_forever DESC
	`, steamID)
	if err != nil {
		return nil, false, fmt.Errorf("query library: %w", err)
	}
	defer rows.Close()

	var games []types.OwnedGame
	for rows.Next() {
		var g types.OwnedGame
		var name sql.NullString
		var lastPlayed sql.NullInt64
		var syncedAt string
		if err := rows.Scan(&g.AppID, &name, &g.PlaytimeForever, &g.Playtime2Weeks, &lastPlayed, &syncedAt); err != nil {
			return nil, false, fmt.Errorf("scan library row: %w", err)
		}
		g.Name = name.String
		if lastPlayed.Valid {
			v := lastPlayed.Int64
			g.LastPlayedAt = &v
		}
		g.SyncedAt = parseTime(syncedAt)
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate library rows: %w", err)
	}

	return games, true, nil
}

// InvalidateUser removes the user's profile and library rows to force a
// full resync. Game metadata is global and untouched, as are
// recommendation, feedback and status history.
func (s *SQLiteStore) InvalidateUser(ctx context.Context, steamID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_games WHERE user_id = ?`, steamID); err != nil {
		return fmt.Errorf("delete library: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_profiles WHERE user_id = ?`, steamID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
