// Package steam is a thin typed client for the Steam Web API and the
// storefront appdetails endpoint. It only fetches; all caching happens in
// the store layer.
package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/playnext/playnext/internal/types"
)

const (
	defaultAPIBase   = "https://api.steampowered.com"
	defaultStoreBase = "https://store.steampowered.com"
)

// ErrNotFound is returned when the upstream has no data for the requested
// user or app.
var ErrNotFound = errors.New("steam: not found")

// Client calls the Steam Web API with a single API key.
type Client struct {
	apiKey     string
	apiBase    string
	storeBase  string
	httpClient *http.Client
}

// NewClient creates a Steam client with sane timeouts.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:    apiKey,
		apiBase:   defaultAPIBase,
		storeBase: defaultStoreBase,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type playerSummariesResponse struct {
	Response struct {
		Players []struct {
			SteamID     string `json:"steamid"`
			PersonaName string `json:"personaname"`
			AvatarFull  string `json:"avatarfull"`
			ProfileURL  string `json:"profileurl"`
		} `json:"players"`
	} `json:"response"`
}

// GetPlayerSummary fetches the user's public profile.
func (c *Client) GetPlayerSummary(ctx context.Context, steamID string) (*types.Profile, error) {
	query := url.Values{
		"key":      {c.apiKey},
		"steamids": {steamID},
	}

	var resp playerSummariesResponse
	if err := c.getJSON(ctx, c.apiBase+"/ISteamUser/GetPlayerSummaries/v2/?"+query.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("player summary: %w", err)
	}
	if len(resp.Response.Players) == 0 {
		return nil, ErrNotFound
	}

	p := resp.Response.Players[0]
	return &types.Profile{
		SteamID:     p.SteamID,
		DisplayName: p.PersonaName,
		AvatarURL:   p.AvatarFull,
		ProfileURL:  p.ProfileURL,
	}, nil
}

type ownedGamesResponse struct {
	Response struct {
		GameCount int `json:"game_count"`
		Games     []struct {
			AppID           int64  `json:"appid"`
			Name            string `json:"name"`
			PlaytimeForever int    `json:"playtime_forever"`
			Playtime2Weeks  int    `json:"playtime_2weeks"`
			RTimeLastPlayed int64  `json:"rtime_last_played"`
		} `json:"games"`
	} `json:"response"`
}

// GetOwnedGames fetches the user's full library with playtime minutes.
func (c *Client) GetOwnedGames(ctx context.Context, steamID string) ([]types.OwnedGame, error) {
	query := url.Values{
		"key":             {c.apiKey},
		"steamid":         {steamID},
		"include_appinfo": {"1"},
		"format":          {"json"},
	}

	var resp ownedGamesResponse
	if err := c.getJSON(ctx, c.apiBase+"/IPlayerService/GetOwnedGames/v1/?"+query.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("owned games: %w", err)
	}

	games := make([]types.OwnedGame, 0, len(resp.Response.Games))
	for _, g := range resp.Response.Games {
		game := types.OwnedGame{
			AppID:           g.AppID,
			Name:            g.Name,
			PlaytimeForever: g.PlaytimeForever,
			Playtime2Weeks:  g.Playtime2Weeks,
		}
		if g.RTimeLastPlayed > 0 {
			v := g.RTimeLastPlayed
			game.LastPlayedAt = &v
		}
		games = append(games, game)
	}
	return games, nil
}

type appDetailsEntry struct {
	Success bool `json:"success"`
	Data    struct {
		Name             string   `json:"name"`
		Type             string   `json:"type"`
		ShortDescription string   `json:"short_description"`
		HeaderImage      string   `json:"header_image"`
		Developers       []string `json:"developers"`
		Publishers       []string `json:"publishers"`
		Metacritic       *struct {
			Score int `json:"score"`
		} `json:"metacritic"`
		Genres []struct {
			Description string `json:"description"`
		} `json:"genres"`
		ReleaseDate struct {
			Date string `json:"date"`
		} `json:"release_date"`
		PriceOverview *struct {
			FinalFormatted string `json:"final_formatted"`
		} `json:"price_overview"`
	} `json:"data"`
}

// GetAppDetails fetches storefront metadata for one app. The storefront
// endpoint is unkeyed and keyed by app id in the response envelope.
func (c *Client) GetAppDetails(ctx context.Context, appID int64) (*types.GameDetails, error) {
	key := strconv.FormatInt(appID, 10)
	query := url.Values{"appids": {key}}

	var resp map[string]appDetailsEntry
	if err := c.getJSON(ctx, c.storeBase+"/api/appdetails?"+query.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("app details: %w", err)
	}

	entry, ok := resp[key]
	if !ok || !entry.Success {
		return nil, ErrNotFound
	}

	details := &types.GameDetails{
		AppID:            appID,
		Name:             entry.Data.Name,
		Type:             entry.Data.Type,
		ShortDescription: entry.Data.ShortDescription,
		HeaderImage:      entry.Data.HeaderImage,
		Developers:       entry.Data.Developers,
		Publishers:       entry.Data.Publishers,
		ReleaseDate:      entry.Data.ReleaseDate.Date,
	}
	if entry.Data.Metacritic != nil {
		score := entry.Data.Metacritic.Score
		details.MetacriticScore = &score
	}
	if entry.Data.PriceOverview != nil {
		details.Price = entry.Data.PriceOverview.FinalFormatted
	}
	for _, g := range entry.Data.Genres {
		details.Genres = append(details.Genres, g.Description)
	}
	return details, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
