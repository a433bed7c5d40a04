package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playnext/playnext/internal/auth"
	"github.com/playnext/playnext/internal/recommend"
	"github.com/playnext/playnext/internal/steam"
	"github.com/playnext/playnext/internal/store"
	"github.com/playnext/playnext/internal/types"
)

// SteamClient defines the upstream catalog operations handlers need.
// Implemented by steam.Client; abstracted for tests.
type SteamClient interface {
	GetPlayerSummary(ctx context.Context, steamID string) (*types.Profile, error)
	GetOwnedGames(ctx context.Context, steamID string) ([]types.OwnedGame, error)
	GetAppDetails(ctx context.Context, appID int64) (*types.GameDetails, error)
}

// Recommendation cache TTLs per category, in hours. Varying TTLs need no
// schema support; expiry is stored per row.
var recTTLHours = map[types.RecType]int{
	types.RecTypeSimilar: 24,
	types.RecTypeLibrary: 12,
	types.RecTypeGeneral: 12,
}

// Handler implements the API handlers. Every data path is cache-first:
// read accessor, on miss fetch upstream, write back, respond.
type Handler struct {
	store    store.Store
	steam    SteamClient
	rec      recommend.Generator
	openid   *auth.OpenID
	sessions *auth.Sessions
	baseURL  string
	version  string
}

// NewHandler creates a new Handler.
func NewHandler(s store.Store, sc SteamClient, gen recommend.Generator, openid *auth.OpenID, sessions *auth.Sessions, baseURL, version string) *Handler {
	return &Handler{
		store:    s,
		steam:    sc,
		rec:      gen,
		openid:   openid,
		sessions: sessions,
		baseURL:  baseURL,
		version:  version,
	}
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		GameCount: stats.GameCount,
		UserCount: stats.UserCount,
	})
}

// SteamLogin handles GET /auth/steam/login
func (h *Handler) SteamLogin(w http.ResponseWriter, r *http.Request) {
	url := h.openid.LoginURL(h.baseURL+"/auth/steam/return", h.baseURL)
	http.Redirect(w, r, url, http.StatusFound)
}

// SteamReturn handles GET /auth/steam/return, the OpenID assertion
// callback. On success it mints a session cookie and primes the profile
// cache.
func (h *Handler) SteamReturn(w http.ResponseWriter, r *http.Request) {
	steamID, err := h.openid.Verify(r.Context(), r.URL.Query())
	if err != nil {
		slog.Warn("steam sign-in rejected", "error", err)
		WriteProblem(w, r, http.StatusUnauthorized, "Steam sign-in could not be verified")
		return
	}

	token, err := h.sessions.Issue(steamID)
	if err != nil {
		slog.Error("session issue failed", "error", err)
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   strings.HasPrefix(h.baseURL, "https://"),
	})

	// Prime the profile cache; sign-in still succeeds if this fails.
	if profile, err := h.steam.GetPlayerSummary(r.Context(), steamID); err == nil {
		if err := h.store.UpsertProfile(r.Context(), *profile); err != nil {
			slog.Warn("profile cache prime failed", "steam_id", steamID, "error", err)
		}
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// Me handles GET /api/v1/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	steamID, _ := SteamIDFromContext(r.Context())

	profile, ok, err := h.store.GetProfile(r.Context(), steamID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	if !ok {
		fetched, err := h.steam.GetPlayerSummary(r.Context(), steamID)
		if err != nil {
			h.mapUpstreamError(w, r, err)
			return
		}
		if err := h.store.UpsertProfile(r.Context(), *fetched); err != nil {
			MapStoreError(w, r, err)
			return
		}
		fetched.LastSyncedAt = time.Now().UTC()
		profile = fetched
	}

	writeJSON(w, http.StatusOK, profile)
}

// Library handles GET /api/v1/library
func (h *Handler) Library(w http.ResponseWriter, r *http.Request) {
	steamID, _ := SteamIDFromContext(r.Context())

	games, ok, err := h.store.GetLibrary(r.Context(), steamID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	if !ok {
		if games, err = h.syncLibrary(r.Context(), steamID); err != nil {
			h.mapUpstreamError(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(games),
		"games": games,
	})
}

// RefreshLibrary handles POST /api/v1/library/refresh. It drops the cached
// profile and library and resyncs the library immediately.
func (h *Handler) RefreshLibrary(w http.ResponseWriter, r *http.Request) {
	steamID, _ := SteamIDFromContext(r.Context())

	if err := h.store.InvalidateUser(r.Context(), steamID); err != nil {
		MapStoreError(w, r, err)
		return
	}

	games, err := h.syncLibrary(r.Context(), steamID)
	if err != nil {
		h.mapUpstreamError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(games),
		"games": games,
	})
}

// syncLibrary fetches the user's library from Steam, replaces the cached
// snapshot, and reads the snapshot back so responses carry stored names.
func (h *Handler) syncLibrary(ctx context.Context, steamID string) ([]types.OwnedGame, error) {
	fetched, err := h.steam.GetOwnedGames(ctx, steamID)
	if err != nil {
		return nil, err
	}
	if err := h.store.ReplaceLibrary(ctx, steamID, fetched); err != nil {
		return nil, err
	}
	games, _, err := h.store.GetLibrary(ctx, steamID)
	return games, err
}

// GameDetails handles GET /api/v1/games/{appID}
func (h *Handler) GameDetails(w http.ResponseWriter, r *http.Request) {
	appID, ok := parseAppID(w, r)
	if !ok {
		return
	}

	details, hit, err := h.store.GetGameDetails(r.Context(), appID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	if !hit {
		fetched, err := h.steam.GetAppDetails(r.Context(), appID)
		if err != nil {
			h.mapUpstreamError(w, r, err)
			return
		}
		if err := h.store.UpsertGameDetails(r.Context(), *fetched); err != nil {
			MapStoreError(w, r, err)
			return
		}
		// The storefront carries no tag data; keep whatever tag set the
		// row already had.
		if fetched.Tags, err = h.store.GetGameTags(r.Context(), appID); err != nil {
			MapStoreError(w, r, err)
			return
		}
		fetched.LastFetchedAt = time.Now().UTC()
		details = fetched
	}

	writeJSON(w, http.StatusOK, details)
}

type statusRequest struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// SetGameStatus handles PUT /api/v1/games/{appID}/status
func (h *Handler) SetGameStatus(w http.ResponseWriter, r *http.Request) {
	steamID, _ := SteamIDFromContext(r.Context())
	appID, ok := parseAppID(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	status := types.GameStatus(req.Status)
	if status != types.StatusPlayed && status != types.StatusLiked && status != types.StatusNotInterested {
		WriteProblem(w, r, http.StatusBadRequest, "status must be played, liked or not_interested")
		return
	}

	if err := h.store.SetStatus(r.Context(), steamID, appID, req.Name, status); err != nil {
		MapStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveGameStatus handles DELETE /api/v1/games/{appID}/status
func (h *Handler) RemoveGameStatus(w http.ResponseWriter, r *http.Request) {
	steamID, _ := SteamIDFromContext(r.Context())
	appID, ok := parseAppID(w, r)
	if !ok {
		return
	}

	if err := h.store.RemoveStatus(r.Context(), steamID, appID); err != nil {
		MapStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Statuses handles GET /api/v1/status with an optional ?status= filter.
func (h *Handler) Statuses(w http.ResponseWriter, r *http.Request) {
	steamID, _ := SteamIDFromContext(r.Context())

	var entries []types.StatusEntry
	var err error
	if filter := r.URL.Query().Get("status"); filter != "" {
		entries, err = h.store.GetGamesByStatus(r.Context(), steamID, types.GameStatus(filter))
	} else {
		entries, err = h.store.GetStatusesForUser(r.Context(), steamID)
	}
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(entries),
		"statuses": entries,
	})
}

// Recommendations handles GET /api/v1/recommendations?type=&source=.
// Served from the cache when a fresh payload exists; otherwise generated,
// cached and returned.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	steamID, _ := SteamIDFromContext(r.Context())

	recType := types.RecType(r.URL.Query().Get("type"))
	if recType == "" {
		recType = types.RecTypeGeneral
	}
	ttl, valid := recTTLHours[recType]
	if !valid {
		WriteProblem(w, r, http.StatusBadRequest, "type must be similar, library or general")
		return
	}

	var sourceAppID *int64
	if raw := r.URL.Query().Get("source"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			WriteProblem(w, r, http.StatusBadRequest, "source must be a numeric app id")
			return
		}
		sourceAppID = &id
	}
	if recType == types.RecTypeSimilar && sourceAppID == nil {
		WriteProblem(w, r, http.StatusBadRequest, "similar recommendations require a source app id")
		return
	}

	rec, hit, err := h.store.GetRecommendation(r.Context(), steamID, sourceAppID, recType)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	if hit {
		writeJSON(w, http.StatusOK, rec)
		return
	}

	rec, err = h.generateRecommendation(r.Context(), steamID, sourceAppID, recType, ttl)
	if err != nil {
		h.mapUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// generateRecommendation gathers the prompt inputs, asks the model, and
// appends the payload to the cache.
func (h *Handler) generateRecommendation(ctx context.Context, steamID string, sourceAppID *int64, recType types.RecType, ttlHours int) (*types.Recommendation, error) {
	library, ok, err := h.store.GetLibrary(ctx, steamID)
	if err != nil {
		return nil, err
	}
	if !ok {
		if library, err = h.syncLibrary(ctx, steamID); err != nil {
			return nil, err
		}
	}

	summary, err := h.store.StatusSummary(ctx, steamID)
	if err != nil {
		return nil, err
	}

	excluded, err := h.dismissedNames(ctx, steamID, library)
	if err != nil {
		return nil, err
	}

	var source *types.GameDetails
	if sourceAppID != nil {
		source, ok, err = h.store.GetGameDetails(ctx, *sourceAppID)
		if err != nil {
			return nil, err
		}
		if !ok {
			if source, err = h.steam.GetAppDetails(ctx, *sourceAppID); err != nil {
				return nil, err
			}
			if err := h.store.UpsertGameDetails(ctx, *source); err != nil {
				return nil, err
			}
		}
	}

	payload, err := h.rec.Generate(ctx, recommend.Request{
		Type:     recType,
		Library:  library,
		Summary:  summary,
		Excluded: excluded,
		Source:   source,
	})
	if err != nil {
		return nil, err
	}

	return h.store.PutRecommendation(ctx, steamID, sourceAppID, recType, payload, ttlHours)
}

// dismissedNames resolves dismissed app ids to names where the library has
// them; ids without a known name are skipped, not guessed.
func (h *Handler) dismissedNames(ctx context.Context, steamID string, library []types.OwnedGame) ([]string, error) {
	ids, err := h.store.GetDismissedAppIDs(ctx, steamID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	byID := make(map[int64]string, len(library))
	for _, g := range library {
		byID[g.AppID] = g.Name
	}

	var names []string
	for _, id := range ids {
		if name := byID[id]; name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

type feedbackRequest struct {
	Action string `json:"action"`
}

// RecommendationFeedback handles POST /api/v1/recommendations/{appID}/feedback
func (h *Handler) RecommendationFeedback(w http.ResponseWriter, r *http.Request) {
	steamID, _ := SteamIDFromContext(r.Context())
	appID, ok := parseAppID(w, r)
	if !ok {
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	action := types.FeedbackAction(req.Action)
	if action != types.ActionSaved && action != types.ActionDismissed && action != types.ActionClicked {
		WriteProblem(w, r, http.StatusBadRequest, "action must be saved, dismissed or clicked")
		return
	}

	if err := h.store.RecordFeedback(r.Context(), steamID, appID, action); err != nil {
		MapStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// mapUpstreamError distinguishes "the upstream has nothing" from "the
// upstream is broken" before falling back to store error mapping.
func (h *Handler) mapUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, steam.ErrNotFound):
		WriteProblem(w, r, http.StatusNotFound, "Steam has no data for this resource")
	case errors.Is(err, store.ErrNotFound):
		WriteProblem(w, r, http.StatusNotFound, "Resource not found")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		WriteProblem(w, r, http.StatusBadGateway, "Upstream request timed out")
	default:
		slog.Error("upstream request failed", "path", r.URL.Path, "error", err)
		WriteProblem(w, r, http.StatusBadGateway, "Upstream request failed")
	}
}

func parseAppID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	appID, err := strconv.ParseInt(chi.URLParam(r, "appID"), 10, 64)
	if err != nil || appID <= 0 {
		WriteProblem(w, r, http.StatusBadRequest, "app id must be a positive integer")
		return 0, false
	}
	return appID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
