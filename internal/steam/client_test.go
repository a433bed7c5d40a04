package steam

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testClient(apiBase, storeBase string) *Client {
	c := NewClient("test-key")
	c.apiBase = apiBase
	c.storeBase = storeBase
	return c
}

func TestGetPlayerSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ISteamUser/GetPlayerSummaries/v2/" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Error("expected api key in query")
		}
		w.Write([]byte(`{"response":{"players":[{
			"steamid":"76561198000000001",
			"personaname":"gordon",
			"avatarfull":"https://avatars.example/full.jpg",
			"profileurl":"https://steamcommunity.com/id/gordon"
		}]}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	p, err := c.GetPlayerSummary(context.Background(), "76561198000000001")
	if err != nil {
		t.Fatal(err)
	}
	if p.DisplayName != "gordon" || p.SteamID != "76561198000000001" {
		t.Errorf("unexpected profile %+v", p)
	}
}

func TestGetPlayerSummary_EmptyIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":{"players":[]}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	if _, err := c.GetPlayerSummary(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetOwnedGames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("include_appinfo") != "1" {
			t.Error("expected include_appinfo=1")
		}
		w.Write([]byte(`{"response":{"game_count":2,"games":[
			{"appid":440,"name":"Team Fortress 2","playtime_forever":120,"playtime_2weeks":30,"rtime_last_played":1700000000},
			{"appid":620,"name":"Portal 2","playtime_forever":600,"rtime_last_played":0}
		]}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	games, err := c.GetOwnedGames(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(games) != 2 {
		t.Fatalf("expected 2 games, got %d", len(games))
	}
	if games[0].LastPlayedAt == nil || *games[0].LastPlayedAt != 1700000000 {
		t.Error("expected last played epoch carried over")
	}
	// A zero rtime means never played; it must stay nil rather than epoch 0.
	if games[1].LastPlayedAt != nil {
		t.Error("expected nil last played for rtime 0")
	}
}

func TestGetAppDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/appdetails" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"70":{"success":true,"data":{
			"name":"Half-Life",
			"type":"game",
			"short_description":"Run. Think. Shoot. Live.",
			"header_image":"https://cdn.example/70/header.jpg",
			"developers":["Valve"],
			"publishers":["Valve"],
			"metacritic":{"score":96},
			"genres":[{"description":"Action"}],
			"release_date":{"date":"Nov 8, 1998"},
			"price_overview":{"final_formatted":"$9.99"}
		}}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	d, err := c.GetAppDetails(context.Background(), 70)
	if err != nil {
		t.Fatal(err)
	}
	if d.Name != "Half-Life" || d.Type != "game" {
		t.Errorf("unexpected details %+v", d)
	}
	if d.MetacriticScore == nil || *d.MetacriticScore != 96 {
		t.Error("expected metacritic score 96")
	}
	if d.Price != "$9.99" {
		t.Errorf("unexpected price %q", d.Price)
	}
	if len(d.Genres) != 1 || d.Genres[0] != "Action" {
		t.Errorf("unexpected genres %v", d.Genres)
	}
}

func TestGetAppDetails_FailureEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"999999":{"success":false}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	if _, err := c.GetAppDetails(context.Background(), 999999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetJSON_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	if _, err := c.GetOwnedGames(context.Background(), "u1"); err == nil {
		t.Fatal("expected an error on a 429 response")
	}
}
