package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/playnext/playnext/internal/types"
)

func newFileStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s, dir
}

func writeLegacyFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, legacyStatusFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLegacyImport(t *testing.T) {
	s, dir := newFileStore(t)
	path := writeLegacyFile(t, dir, `{
		"76561198000000001": {
			"70":  {"name": "Half-Life", "status": "played", "updated_at": "2024-03-01T12:00:00Z"},
			"620": {"name": "Portal 2", "status": "liked", "updated_at": "2024-04-01T12:00:00Z"}
		}
	}`)

	s.EnsureMigrated(context.Background())

	entries, err := s.GetStatusesForUser(context.Background(), "76561198000000001")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 imported entries, got %d", len(entries))
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected the legacy file to be renamed away")
	}
	if _, err := os.Stat(path + ".bak"); err != nil {
		t.Errorf("expected a .bak file, got %v", err)
	}
}

func TestLegacyImport_MissingFileIsNoop(t *testing.T) {
	s, _ := newFileStore(t)

	s.EnsureMigrated(context.Background())

	entries, err := s.GetStatusesForUser(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %v", entries)
	}
}

func TestLegacyImport_CorruptFileLeftInPlace(t *testing.T) {
	s, dir := newFileStore(t)
	path := writeLegacyFile(t, dir, `{not valid json`)

	// Must not panic or surface an error to the caller.
	s.EnsureMigrated(context.Background())

	if _, err := os.Stat(path); err != nil {
		t.Errorf("corrupt file should be left untouched, got %v", err)
	}
	if _, err := os.Stat(path + ".bak"); !os.IsNotExist(err) {
		t.Error("corrupt file must not be renamed")
	}
}

func TestLegacyImport_SkipsInvalidRecords(t *testing.T) {
	s, dir := newFileStore(t)
	writeLegacyFile(t, dir, `{
		"76561198000000001": {
			"70":     {"name": "Half-Life", "status": "played", "updated_at": "2024-03-01T12:00:00Z"},
			"notnum": {"name": "Broken", "status": "played", "updated_at": ""},
			"730":    {"name": "Counter-Strike 2", "status": "loved", "updated_at": ""}
		}
	}`)

	s.EnsureMigrated(context.Background())

	entries, err := s.GetStatusesForUser(context.Background(), "76561198000000001")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].AppID != 70 {
		t.Errorf("expected only the valid record imported, got %v", entries)
	}
}

func TestLegacyImport_RunsOncePerProcess(t *testing.T) {
	s, dir := newFileStore(t)
	writeLegacyFile(t, dir, `{
		"u1": {"70": {"name": "Half-Life", "status": "played", "updated_at": ""}}
	}`)

	s.EnsureMigrated(context.Background())

	// A second file appearing later must be ignored within the same process,
	// and the imported row must not be duplicated or altered.
	writeLegacyFile(t, dir, `{
		"u1": {"70": {"name": "Half-Life", "status": "liked", "updated_at": ""}}
	}`)
	s.EnsureMigrated(context.Background())

	entries, err := s.GetStatusesForUser(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Status != types.StatusPlayed {
		t.Errorf("expected the first import to stand, got %v", entries)
	}
}
