package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/playnext/playnext/internal/types"
)

// UpsertGameDetails writes a game's metadata and replaces its genre set
// (and, when provided, its tag set) in a single transaction, so readers
// never see metadata from one fetch joined to relations from another.
// The stored name is protected: an empty incoming name never clobbers a
// non-empty one.
func (s *SQLiteStore) UpsertGameDetails(ctx context.Context, details types.GameDetails) error {
	developers, err := marshalStringList(details.Developers)
	if err != nil {
		return fmt.Errorf("marshal developers: %w", err)
	}
	publishers, err := marshalStringList(details.Publishers)
	if err != nil {
		return fmt.Errorf("marshal publishers: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var score any
	if details.MetacriticScore != nil {
		score = *details.MetacriticScore
	}
	fetchedAt := formatTime(time.Now())

	// Explicit read-then-branch instead of INSERT OR REPLACE: REPLACE
	// deletes the row first, which would cascade away live genre/tag
	// children, and the name merge rule is application logic.
	name := details.Name
	var existing string
	err = tx.QueryRowContext(ctx, `SELECT name FROM game_details WHERE app_id = ?`, details.AppID).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO game_details
				(app_id, name, type, short_description, header_image, developers, publishers,
				 metacritic_score, release_date, price, last_fetched_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, details.AppID, name,
			nullableString(details.Type), nullableString(details.ShortDescription),
			nullableString(details.HeaderImage), developers, publishers,
			score, nullableString(details.ReleaseDate), nullableString(details.Price),
			fetchedAt)
		if err != nil {
			return fmt.Errorf("insert game details: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read existing name: %w", err)
	default:
		if name == "" {
			name = existing
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE game_details
			SET name = ?, type = ?, short_description = ?, header_image = ?,
			    developers = ?, publishers = ?, metacritic_score = ?,
			    release_date = ?, price = ?, last_fetched_at = ?
			WHERE app_id = ?
		`, name,
			nullableString(details.Type), nullableString(details.ShortDescription),
			nullableString(details.HeaderImage), developers, publishers,
			score, nullableString(details.ReleaseDate), nullableString(details.Price),
			fetchedAt, details.AppID)
		if err != nil {
			return fmt.Errorf("update game details: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM game_genres WHERE app_id = ?`, details.AppID); err != nil {
		return fmt.Errorf("clear genres: %w", err)
	}
	for _, genre := range details.Genres {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO game_genres (app_id, genre) VALUES (?, ?)
		`, details.AppID, genre); err != nil {
			return fmt.Errorf("insert genre %q: %w", genre, err)
		}
	}

	// A nil tag slice means "no tag data in this refresh"; the existing
	// set is kept. An empty non-nil slice clears it.
	if details.Tags != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM game_tags WHERE app_id = ?`, details.AppID); err != nil {
			return fmt.Errorf("clear tags: %w", err)
		}
		for _, tag := range details.Tags {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO game_tags (app_id, tag, rank) VALUES (?, ?, ?)
			`, details.AppID, tag.Tag, tag.Rank); err != nil {
				return fmt.Errorf("insert tag %q: %w", tag.Tag, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetGameDetails returns cached metadata if it was fetched less than 7 days
// ago, with genre and rank-ordered tag sets joined in.
func (s *SQLiteStore) GetGameDetails(ctx context.Context, appID int64) (*types.GameDetails, bool, error) {
	var d types.GameDetails
	var gameType, shortDesc, headerImage, releaseDate, price sql.NullString
	var developers, publishers sql.NullString
	var score sql.NullInt64
	var lastFetchedAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT app_id, name, type, short_description, header_image, developers, publishers,
		       metacritic_score, release_date, price, last_fetched_at
		FROM game_details
		WHERE app_id = ?
	`, appID).Scan(&d.AppID, &d.Name, &gameType, &shortDesc, &headerImage,
		&developers, &publishers, &score, &releaseDate, &price, &lastFetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get game details: %w", err)
	}

	d.LastFetchedAt = parseTime(lastFetchedAt)
	if time.Since(d.LastFetchedAt) >= detailsTTL {
		return nil, false, nil
	}

	d.Type = gameType.String
	d.ShortDescription = shortDesc.String
	d.HeaderImage = headerImage.String
	d.ReleaseDate = releaseDate.String
	d.Price = price.String
	if score.Valid {
		v := int(score.Int64)
		d.MetacriticScore = &v
	}
	if d.Developers, err = unmarshalStringList(developers); err != nil {
		return nil, false, fmt.Errorf("parse developers: %w", err)
	}
	if d.Publishers, err = unmarshalStringList(publishers); err != nil {
		return nil, false, fmt.Errorf("parse publishers: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT genre FROM game_genres WHERE app_id = ? ORDER BY genre
	`, appID)
	if err != nil {
		return nil, false, fmt.Errorf("query genres: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var genre string
		if err := rows.Scan(&genre); err != nil {
			return nil, false, fmt.Errorf("scan genre: %w", err)
		}
		d.Genres = append(d.Genres, genre)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate genres: %w", err)
	}

	if d.Tags, err = s.GetGameTags(ctx, appID); err != nil {
		return nil, false, err
	}

	return &d, true, nil
}

// GetGameTags returns a game's tags ordered by ascending rank. Tags have no
// freshness predicate of their own; they live and die with the parent row.
func (s *SQLiteStore) GetGameTags(ctx context.Context, appID int64) ([]types.RankedTag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag, rank FROM game_tags WHERE app_id = ? ORDER BY rank ASC
	`, appID)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	var tags []types.RankedTag
	for rows.Next() {
		var t types.RankedTag
		if err := rows.Scan(&t.Tag, &t.Rank); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// DeleteGameDetails removes a game's metadata row; genre and tag rows
// cascade with it. Returns ErrNotFound when no such row exists.
func (s *SQLiteStore) DeleteGameDetails(ctx context.Context, appID int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM game_details WHERE app_id = ?`, appID)
	if err != nil {
		return fmt.Errorf("delete game details: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalStringList(values []string) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func unmarshalStringList(value sql.NullString) ([]string, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(value.String), &values); err != nil {
		return nil, err
	}
	return values, nil
}
