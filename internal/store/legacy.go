package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// legacyStatusRecord mirrors one entry of the legacy flat-file store: a
// JSON map of user id to app id to this record. The format is treated as a
// loosely-typed external document; individual records that fail validation
// are skipped, not fatal.
type legacyStatusRecord struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at"`
}

var legacyStatuses = map[string]bool{
	"played":         true,
	"liked":          true,
	"not_interested": true,
}

// EnsureMigrated imports the legacy flat-file status store into the
// game_status table, once per process. A missing file is a no-op. A corrupt
// file is logged and left in place for manual recovery; the caller never
// sees an error. On success the file is renamed with a .bak suffix so it is
// never re-processed.
func (s *SQLiteStore) EnsureMigrated(ctx context.Context) {
	s.legacyOnce.Do(func() {
		if err := s.importLegacyStatuses(ctx); err != nil {
			slog.Warn("legacy status import skipped", "path", s.legacyPath, "error", err)
		}
	})
}

func (s *SQLiteStore) importLegacyStatuses(ctx context.Context) error {
	data, err := os.ReadFile(s.legacyPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var legacy map[string]map[string]legacyStatusRecord
	if err := json.Unmarshal(data, &legacy); err != nil {
		// Leave the file untouched so it stays available for inspection.
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	imported, skipped := 0, 0
	for userID, games := range legacy {
		for appIDStr, record := range games {
			appID, err := strconv.ParseInt(appIDStr, 10, 64)
			if err != nil || userID == "" || !legacyStatuses[record.Status] {
				skipped++
				continue
			}

			updatedAt := parseTime(record.UpdatedAt)
			if updatedAt.IsZero() {
				updatedAt = time.Now()
			}

			if _, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO game_status (user_id, app_id, name, status, updated_at)
				VALUES (?, ?, ?, ?, ?)
			`, userID, appID, record.Name, record.Status, formatTime(updatedAt)); err != nil {
				slog.Warn("legacy status record rejected", "user", userID, "app", appID, "error", err)
				skipped++
				continue
			}
			imported++
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	if err := os.Rename(s.legacyPath, s.legacyPath+".bak"); err != nil {
		return err
	}

	slog.Info("legacy status store imported", "imported", imported, "skipped", skipped)
	return nil
}
