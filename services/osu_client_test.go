package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

const meJSON = `{
	"id": 12345,
	"username": "alice",
	"avatar_url": "https://a.ppy.sh/12345",
	"country_code": "CN",
	"cover": {"custom_url": null, "url": "https://assets.ppy.sh/covers/12345.jpg", "id": "3"},
	"statistics": {"pp": 4321.5, "global_rank": 1500, "country_rank": 80}
}`

type fakeOsu struct {
	*httptest.Server
	tokenCalls int32
	lastGrant  atomic.Value
}

func newFakeOsu(t *testing.T, api http.HandlerFunc) *fakeOsu {
	t.Helper()
	f := &fakeOsu{}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.tokenCalls, 1)
		_ = r.ParseForm()
		f.lastGrant.Store(r.PostForm.Get("grant_type"))
		if r.PostForm.Get("code") == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		if r.PostForm.Get("code") == "garbage" {
			_, _ = w.Write([]byte(`<html>oops</html>`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":86400,"token_type":"Bearer"}`))
	})
	mux.HandleFunc("/api/v2/", api)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func newTestOsuClient(f *fakeOsu) *OsuClient {
	return NewOsuClient(OsuConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURI:  "http://localhost:3000/auth/osu/callback",
		BaseURL:      f.URL,
	}, WithHTTPClient(f.Client()), WithLookupLimit(rate.NewLimiter(rate.Inf, 1)))
}

func TestAuthorizationURL(t *testing.T) {
	c := NewOsuClient(OsuConfig{ClientID: "client", ClientSecret: "secret"})
	raw, err := c.AuthorizationURL()
	if err != nil {
		t.Fatalf("AuthorizationURL: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Host != "osu.ppy.sh" || u.Path != "/oauth/authorize" {
		t.Fatalf("unexpected URL %s", raw)
	}
	q := u.Query()
	if q.Get("client_id") != "client" || q.Get("response_type") != "code" || q.Get("scope") != "public identify" ||
		q.Get("redirect_uri") != DefaultRedirectURI {
		t.Fatalf("unexpected query %v", q)
	}
}

func TestAuthorizationURLMissingCredentials(t *testing.T) {
	_, err := NewOsuClient(OsuConfig{ClientID: "client"}).AuthorizationURL()
	var ce *ConfigurationError
	if !errors.As(err, &ce) || len(ce.Missing) != 1 || ce.Missing[0] != "OSU_CLIENT_SECRET" {
		t.Fatalf("expected ConfigurationError for OSU_CLIENT_SECRET, got %v", err)
	}
}

func TestExchangeCode(t *testing.T) {
	f := newFakeOsu(t, http.NotFound)
	c := newTestOsuClient(f)
	ctx := context.Background()

	tok, err := c.ExchangeCode(ctx, "good")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if tok.AccessToken != "tok" || tok.ExpiresIn != 86400 {
		t.Fatalf("unexpected token %+v", tok)
	}
	if grant, _ := f.lastGrant.Load().(string); grant != "authorization_code" {
		t.Fatalf("unexpected grant %q", grant)
	}

	_, err = c.ExchangeCode(ctx, "bad")
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.StatusCode != http.StatusBadRequest || !strings.Contains(ue.Body, "invalid_grant") {
		t.Fatalf("expected UpstreamError 400, got %v", err)
	}

	_, err = c.ExchangeCode(ctx, "garbage")
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestFetchMe(t *testing.T) {
	f := newFakeOsu(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/me" || r.Header.Get("Authorization") != "Bearer user-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(meJSON))
	})
	c := newTestOsuClient(f)

	id, err := c.FetchMe(context.Background(), "user-token")
	if err != nil {
		t.Fatalf("FetchMe: %v", err)
	}
	if id.ExternalID != 12345 || id.Username != "alice" || id.CountryCode != "CN" || id.PP != 4321.5 {
		t.Fatalf("unexpected identity %+v", id)
	}
	if id.AvatarURL == nil || *id.AvatarURL != "https://a.ppy.sh/12345" {
		t.Fatalf("unexpected avatar %v", id.AvatarURL)
	}
	if id.CoverURL == nil || *id.CoverURL != "https://assets.ppy.sh/covers/12345.jpg" {
		t.Fatalf("unexpected cover %v", id.CoverURL)
	}
	if id.GlobalRank == nil || *id.GlobalRank != 1500 || id.CountryRank == nil || *id.CountryRank != 80 {
		t.Fatalf("unexpected ranks %v %v", id.GlobalRank, id.CountryRank)
	}

	_, err = c.FetchMe(context.Background(), "expired")
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected UpstreamError 401, got %v", err)
	}
}

func TestFetchMeWithoutStatistics(t *testing.T) {
	f := newFakeOsu(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 7, "username": "newbie", "avatar_url": "", "country_code": "FR"}`))
	})
	id, err := newTestOsuClient(f).FetchMe(context.Background(), "t")
	if err != nil {
		t.Fatalf("FetchMe: %v", err)
	}
	if id.PP != 0 || id.GlobalRank != nil || id.CountryRank != nil || id.AvatarURL != nil || id.CoverURL != nil {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestFetchUserUsesCachedClientToken(t *testing.T) {
	f := newFakeOsu(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/api/v2/users/12345":
			_, _ = w.Write([]byte(meJSON))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":null}`))
		}
	})
	c := newTestOsuClient(f)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		u, err := c.FetchUser(ctx, 12345)
		if err != nil {
			t.Fatalf("FetchUser: %v", err)
		}
		if u.Username != "alice" {
			t.Fatalf("unexpected user %+v", u)
		}
	}
	if n := atomic.LoadInt32(&f.tokenCalls); n != 1 {
		t.Fatalf("expected one client token request, got %d", n)
	}
	if grant, _ := f.lastGrant.Load().(string); grant != "client_credentials" {
		t.Fatalf("unexpected grant %q", grant)
	}

	if _, err := c.FetchUser(ctx, 999); !IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestFetchBeatmapset(t *testing.T) {
	f := newFakeOsu(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"id": 10, "title": "Song", "title_unicode": "", "artist": "Band", "creator": "mapper",
			"covers": {"cover": "https://assets.ppy.sh/beatmaps/10/covers/cover.jpg"},
			"beatmaps": [
				{"id": 100, "beatmapset_id": 10, "version": "Easy", "difficulty_rating": 2.1, "accuracy": 4, "drain": 3},
				{"id": 101, "beatmapset_id": 10, "version": "Insane", "difficulty_rating": 5.6, "accuracy": 8, "drain": 6}
			]
		}`))
	})
	maps, err := newTestOsuClient(f).FetchBeatmapset(context.Background(), 10)
	if err != nil {
		t.Fatalf("FetchBeatmapset: %v", err)
	}
	if len(maps) != 2 {
		t.Fatalf("expected 2 difficulties, got %d", len(maps))
	}
	m := maps[1]
	if m.Title != "Song" || m.TitleUnicode != "Song" || m.Version != "Insane" || m.OD != 8 || m.HP != 6 ||
		m.URL != "https://osu.ppy.sh/beatmaps/101" || m.CoverURL == "" {
		t.Fatalf("unexpected beatmap %+v", m)
	}
}

func TestLookupBreakerOpens(t *testing.T) {
	var hits int32
	f := newFakeOsu(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	c := newTestOsuClient(f)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < 5; i++ {
		if _, err := c.FetchUser(ctx, 1); err == nil {
			t.Fatalf("expected failure")
		}
	}
	_, err := c.FetchUser(ctx, 1)
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected open breaker, got %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 5 {
		t.Fatalf("expected 5 upstream hits, got %d", n)
	}
}
