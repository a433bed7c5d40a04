package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func testOpenID(endpoint string) *OpenID {
	o := NewOpenID()
	o.endpoint = endpoint
	return o
}

func TestLoginURL(t *testing.T) {
	o := testOpenID("https://steamcommunity.com/openid/login")

	raw := o.LoginURL("http://localhost:8080/auth/steam/return", "http://localhost:8080")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}

	q := u.Query()
	if q.Get("openid.mode") != "checkid_setup" {
		t.Errorf("unexpected mode %q", q.Get("openid.mode"))
	}
	if q.Get("openid.return_to") != "http://localhost:8080/auth/steam/return" {
		t.Errorf("unexpected return_to %q", q.Get("openid.return_to"))
	}
	if !strings.Contains(q.Get("openid.identity"), "identifier_select") {
		t.Error("expected identifier_select identity")
	}
}

func TestVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("openid.mode") != "check_authentication" {
			t.Errorf("expected check_authentication, got %q", r.PostForm.Get("openid.mode"))
		}
		w.Write([]byte("ns:http://specs.openid.net/auth/2.0\nis_valid:true\n"))
	}))
	defer srv.Close()

	o := testOpenID(srv.URL)
	params := url.Values{
		"openid.mode":       {"id_res"},
		"openid.claimed_id": {"https://steamcommunity.com/openid/id/76561198000000001"},
		"openid.sig":        {"abc"},
	}

	steamID, err := o.Verify(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}
	if steamID != "76561198000000001" {
		t.Errorf("expected extracted steam id, got %q", steamID)
	}
}

func TestVerify_RejectedByProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ns:http://specs.openid.net/auth/2.0\nis_valid:false\n"))
	}))
	defer srv.Close()

	o := testOpenID(srv.URL)
	params := url.Values{
		"openid.claimed_id": {"https://steamcommunity.com/openid/id/76561198000000001"},
	}

	if _, err := o.Verify(context.Background(), params); !errors.Is(err, ErrVerificationFailed) {
		t.Errorf("expected ErrVerificationFailed, got %v", err)
	}
}

func TestVerify_BadClaimedID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("is_valid:true\n"))
	}))
	defer srv.Close()

	o := testOpenID(srv.URL)
	params := url.Values{
		"openid.claimed_id": {"https://evil.example/openid/id/123"},
	}

	if _, err := o.Verify(context.Background(), params); !errors.Is(err, ErrVerificationFailed) {
		t.Errorf("expected ErrVerificationFailed for a foreign claimed id, got %v", err)
	}
}
