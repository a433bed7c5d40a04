package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/playnext/playnext/internal/types"
)

// PutRecommendation appends a recommendation payload to the cache. Writes
// always insert; historical rows for the same key coexist until they
// expire, which keeps concurrent regenerations from racing on an update.
func (s *SQLiteStore) PutRecommendation(ctx context.Context, steamID string, sourceAppID *int64, recType types.RecType, payload json.RawMessage, ttlHours int) (*types.Recommendation, error) {
	now := time.Now().UTC()
	rec := types.Recommendation{
		ID:          ulid.Make().String(),
		UserID:      steamID,
		SourceAppID: sourceAppID,
		Type:        recType,
		Payload:     payload,
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Duration(ttlHours) * time.Hour),
	}

	var source any
	if sourceAppID != nil {
		source = *sourceAppID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recommendations (id, user_id, source_app_id, rec_type, payload, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.UserID, source, string(rec.Type), string(payload),
		formatTime(rec.CreatedAt), formatTime(rec.ExpiresAt))
	if err != nil {
		return nil, fmt.Errorf("insert recommendation: %w", err)
	}

	return &rec, nil
}

// GetRecommendation returns the freshest non-expired payload for the exact
// (user, source, type) key. A nil source matches only rows whose source is
// NULL, so general recommendations never satisfy a per-game query or vice
// versa.
func (s *SQLiteStore) GetRecommendation(ctx context.Context, steamID string, sourceAppID *int64, recType types.RecType) (*types.Recommendation, bool, error) {
	query := `
		SELECT id, user_id, source_app_id, rec_type, payload, created_at, expires_at
		FROM recommendations
		WHERE user_id = ? AND rec_type = ? AND expires_at > ?`
	args := []any{steamID, string(recType), formatTime(time.Now())}

	if sourceAppID == nil {
		query += ` AND source_app_id IS NULL`
	} else {
		query += ` AND source_app_id = ?`
		args = append(args, *sourceAppID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT 1`

	var rec types.Recommendation
	var source sql.NullInt64
	var payload, createdAt, expiresAt string

	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&rec.ID, &rec.UserID, &source, &rec.Type, &payload, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get recommendation: %w", err)
	}

	if source.Valid {
		v := source.Int64
		rec.SourceAppID = &v
	}
	rec.Payload = json.RawMessage(payload)
	rec.CreatedAt = parseTime(createdAt)
	rec.ExpiresAt = parseTime(expiresAt)

	return &rec, true, nil
}

// PruneExpiredRecommendations deletes rows past their expiry. Reads never
// depend on this; it only keeps the append-only table from growing without
// bound.
func (s *SQLiteStore) PruneExpiredRecommendations(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM recommendations WHERE expires_at <= ?
	`, formatTime(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("prune recommendations: %w", err)
	}
	return result.RowsAffected()
}
