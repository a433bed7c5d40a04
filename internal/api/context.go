package api

import "context"

type contextKey string

const steamIDKey contextKey = "steam_id"

// withSteamID stores the authenticated steam id on the request context.
func withSteamID(ctx context.Context, steamID string) context.Context {
	return context.WithValue(ctx, steamIDKey, steamID)
}

// SteamIDFromContext returns the authenticated steam id, if any.
func SteamIDFromContext(ctx context.Context) (string, bool) {
	steamID, ok := ctx.Value(steamIDKey).(string)
	return steamID, ok && steamID != ""
}
