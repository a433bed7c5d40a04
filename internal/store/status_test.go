package store

import (
	"context"
	"testing"

	"github.com/playnext/playnext/internal/types"
)

func TestStatus_SetGetRemove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetStatus(ctx, "u1", 70, "Half-Life", types.StatusPlayed); err != nil {
		t.Fatal(err)
	}
	if err := s.SetStatus(ctx, "u1", 620, "Portal 2", types.StatusLiked); err != nil {
		t.Fatal(err)
	}

	entries, err := s.GetStatusesForUser(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	if err := s.RemoveStatus(ctx, "u1", 70); err != nil {
		t.Fatal(err)
	}
	entries, err = s.GetStatusesForUser(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].AppID != 620 {
		t.Errorf("expected only app 620 left, got %v", entries)
	}

	// Removing an unset label is a no-op.
	if err := s.RemoveStatus(ctx, "u1", 70); err != nil {
		t.Errorf("expected idempotent remove, got %v", err)
	}
}

func TestStatus_OverwriteReplacesLabel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetStatus(ctx, "u1", 70, "Half-Life", types.StatusPlayed); err != nil {
		t.Fatal(err)
	}
	if err := s.SetStatus(ctx, "u1", 70, "Half-Life", types.StatusLiked); err != nil {
		t.Fatal(err)
	}

	entries, err := s.GetStatusesForUser(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Status != types.StatusLiked {
		t.Errorf("expected single liked entry, got %v", entries)
	}
}

func TestStatus_InvalidLabelRejectedBySchema(t *testing.T) {
	s := newTestStore(t)

	err := s.SetStatus(context.Background(), "u1", 70, "Half-Life", types.GameStatus("loved"))
	if err == nil {
		t.Fatal("expected the CHECK constraint to reject an unknown label")
	}
}

func TestGetGamesByStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetStatus(ctx, "u1", 70, "Half-Life", types.StatusPlayed); err != nil {
		t.Fatal(err)
	}
	if err := s.SetStatus(ctx, "u1", 620, "Portal 2", types.StatusLiked); err != nil {
		t.Fatal(err)
	}
	if err := s.SetStatus(ctx, "u2", 70, "Half-Life", types.StatusLiked); err != nil {
		t.Fatal(err)
	}

	liked, err := s.GetGamesByStatus(ctx, "u1", types.StatusLiked)
	if err != nil {
		t.Fatal(err)
	}
	if len(liked) != 1 || liked[0].AppID != 620 {
		t.Errorf("expected only u1's liked game, got %v", liked)
	}
}

func TestFeedback_LatestActionWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.RecordFeedback(ctx, "u1", 70, types.ActionSaved); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordFeedback(ctx, "u1", 70, types.ActionDismissed); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordFeedback(ctx, "u1", 620, types.ActionClicked); err != nil {
		t.Fatal(err)
	}

	dismissed, err := s.GetDismissedAppIDs(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(dismissed) != 1 || dismissed[0] != 70 {
		t.Errorf("expected dismissed set {70}, got %v", dismissed)
	}
}

func TestStatusSummary_Grouping(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetStatus(ctx, "u1", 70, "Half-Life", types.StatusPlayed); err != nil {
		t.Fatal(err)
	}
	if err := s.SetStatus(ctx, "u1", 620, "Portal 2", types.StatusLiked); err != nil {
		t.Fatal(err)
	}
	if err := s.SetStatus(ctx, "u1", 730, "Counter-Strike 2", types.StatusNotInterested); err != nil {
		t.Fatal(err)
	}

	summary, err := s.StatusSummary(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Played) != 1 || summary.Played[0].Name != "Half-Life" {
		t.Errorf("unexpected played group %v", summary.Played)
	}
	if len(summary.Liked) != 1 || summary.Liked[0].AppID != 620 {
		t.Errorf("unexpected liked group %v", summary.Liked)
	}
	if len(summary.NotInterested) != 1 || summary.NotInterested[0].AppID != 730 {
		t.Errorf("unexpected not_interested group %v", summary.NotInterested)
	}
}
