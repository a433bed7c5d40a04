package store

import (
	"context"
	"testing"
	"time"

	"github.com/playnext/playnext/internal/types"
)

func TestLibrary_ReplaceAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	played := int64(1700000000)
	games := []types.OwnedGame{
		{AppID: 440, Name: "Team Fortress 2", PlaytimeForever: 120, Playtime2Weeks: 30, LastPlayedAt: &played},
		{AppID: 620, Name: "Portal 2", PlaytimeForever: 600},
	}
	if err := s.ReplaceLibrary(ctx, "u1", games); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.GetLibrary(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a fresh library hit")
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 games, got %d", len(got))
	}
	// Ordered by playtime descending.
	if got[0].AppID != 620 {
		t.Errorf("expected most-played first, got app %d", got[0].AppID)
	}
	if got[1].LastPlayedAt == nil || *got[1].LastPlayedAt != played {
		t.Error("expected last_played_at round-trip")
	}
	if got[0].Name != "Portal 2" {
		t.Errorf("expected stub name joined in, got %q", got[0].Name)
	}
}

func TestLibrary_SnapshotReplacedNotMerged(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceLibrary(ctx, "u1", []types.OwnedGame{{AppID: 1}, {AppID: 2}}); err != nil {
		t.Fatal(err)
	}
	// Game 2 was removed from the account; the new snapshot wins wholesale.
	if err := s.ReplaceLibrary(ctx, "u1", []types.OwnedGame{{AppID: 1}, {AppID: 3}}); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.GetLibrary(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("expected hit, err=%v", err)
	}
	ids := map[int64]bool{}
	for _, g := range got {
		ids[g.AppID] = true
	}
	if ids[2] || !ids[1] || !ids[3] {
		t.Errorf("expected snapshot {1,3}, got %v", ids)
	}
}

func TestLibrary_ReplaceIsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceLibrary(ctx, "u1", []types.OwnedGame{{AppID: 1}, {AppID: 2}}); err != nil {
		t.Fatal(err)
	}

	// A duplicate app id violates the primary key mid-batch; the whole
	// replace must roll back.
	err := s.ReplaceLibrary(ctx, "u1", []types.OwnedGame{{AppID: 3}, {AppID: 3}})
	if err == nil {
		t.Fatal("expected replace to fail on duplicate app id")
	}

	got, ok, err := s.GetLibrary(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("expected prior snapshot to survive, err=%v", err)
	}
	ids := map[int64]bool{}
	for _, g := range got {
		ids[g.AppID] = true
	}
	if !ids[1] || !ids[2] || ids[3] {
		t.Errorf("expected intact prior snapshot {1,2}, got %v", ids)
	}
}

func TestLibrary_FreshnessBoundary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceLibrary(ctx, "u1", []types.OwnedGame{{AppID: 1}}); err != nil {
		t.Fatal(err)
	}

	backdate(t, s, `UPDATE user_games SET synced_at = ? WHERE user_id = ?`,
		5*time.Minute+time.Second, "u1")
	if _, ok, _ := s.GetLibrary(ctx, "u1"); ok {
		t.Error("expected a miss past 5 minutes")
	}
}

func TestLibrary_EmptySnapshotIsMiss(t *testing.T) {
	s := newTestStore(t)

	// No rows at all: MAX(synced_at) is NULL, which reads as a miss.
	if _, ok, err := s.GetLibrary(context.Background(), "u1"); err != nil || ok {
		t.Errorf("expected miss for user with no rows, ok=%v err=%v", ok, err)
	}
}

func TestLibrary_StubNameProtection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceLibrary(ctx, "u1", []types.OwnedGame{{AppID: 70, Name: "Half-Life"}}); err != nil {
		t.Fatal(err)
	}

	// A later snapshot with no app info must not blank the stored name.
	if err := s.ReplaceLibrary(ctx, "u1", []types.OwnedGame{{AppID: 70}}); err != nil {
		t.Fatal(err)
	}

	var name string
	if err := s.db.QueryRow(`SELECT name FROM game_details WHERE app_id = 70`).Scan(&name); err != nil {
		t.Fatal(err)
	}
	if name != "Half-Life" {
		t.Errorf("expected protected name Half-Life, got %q", name)
	}
}

func TestLibrary_StubDoesNotReadAsFreshDetails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceLibrary(ctx, "u1", []types.OwnedGame{{AppID: 70, Name: "Half-Life"}}); err != nil {
		t.Fatal(err)
	}

	if _, ok, err := s.GetGameDetails(ctx, 70); err != nil || ok {
		t.Errorf("name-only stub must read as a details miss, ok=%v err=%v", ok, err)
	}
}

func TestInvalidateUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertProfile(ctx, types.Profile{SteamID: "u1", DisplayName: "gordon"}); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceLibrary(ctx, "u1", []types.OwnedGame{{AppID: 70, Name: "Half-Life"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetStatus(ctx, "u1", 70, "Half-Life", types.StatusPlayed); err != nil {
		t.Fatal(err)
	}

	if err := s.InvalidateUser(ctx, "u1"); err != nil {
		t.Fatal(err)
	}

	if _, ok, _ := s.GetProfile(ctx, "u1"); ok {
		t.Error("expected profile gone after invalidation")
	}
	if _, ok, _ := s.GetLibrary(ctx, "u1"); ok {
		t.Error("expected library gone after invalidation")
	}

	// Global metadata and user status history survive.
	var name string
	if err := s.db.QueryRow(`SELECT name FROM game_details WHERE app_id = 70`).Scan(&name); err != nil {
		t.Fatal(err)
	}
	statuses, err := s.GetStatusesForUser(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 1 {
		t.Error("expected status history to survive invalidation")
	}
}
