// services/osu_client.go
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tournament-registration/utils"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultOsuBaseURL   = "https://osu.ppy.sh"
	DefaultRedirectURI  = "http://localhost:3000/auth/osu/callback"
	authorizationScope  = "public identify"
	clientTokenScope    = "public"
	maxUpstreamBodySize = 1 << 20
)

// OsuConfig holds the OAuth application credentials registered on osu!.
type OsuConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	BaseURL      string
}

// OsuClient talks to the osu! OAuth endpoints and API v2.
//
// Login calls (code exchange, /me) go straight to osu!. Lookups made with
// the client-credentials token are throttled and pass through a circuit
// breaker so a failing osu! API does not pile up background work.
type OsuClient struct {
	cfg        OsuConfig
	httpClient *http.Client
	tokens     *TokenCache
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

type OsuClientOption func(*OsuClient)

func WithHTTPClient(c *http.Client) OsuClientOption {
	return func(o *OsuClient) { o.httpClient = c }
}

// WithClock replaces the clock used by the client token cache.
func WithClock(now func() time.Time) OsuClientOption {
	return func(o *OsuClient) { o.tokens = NewTokenCache(o.ClientToken, now) }
}

// WithLookupLimit overrides the lookup throttle (osu! asks for at most
// 60 requests per minute).
func WithLookupLimit(l *rate.Limiter) OsuClientOption {
	return func(o *OsuClient) { o.limiter = l }
}

func NewOsuClient(cfg OsuConfig, opts ...OsuClientOption) *OsuClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOsuBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.RedirectURI == "" {
		cfg.RedirectURI = DefaultRedirectURI
	}

	c := &OsuClient{
		cfg:        cfg,
		httpClient: utils.HTTPClient,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 5),
	}
	c.tokens = NewTokenCache(c.ClientToken, time.Now)
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "osu-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsNotFound(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("[OSU] circuit breaker state changed")
		},
	})

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tokens exposes the client token cache.
func (c *OsuClient) Tokens() *TokenCache { return c.tokens }

func (c *OsuClient) requireCredentials() error {
	var missing []string
	if c.cfg.ClientID == "" {
		missing = append(missing, "OSU_CLIENT_ID")
	}
	if c.cfg.ClientSecret == "" {
		missing = append(missing, "OSU_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}

// AuthorizationURL builds the osu! authorize URL users are sent to.
func (c *OsuClient) AuthorizationURL() (string, error) {
	if err := c.requireCredentials(); err != nil {
		return "", err
	}
	params := url.Values{}
	params.Set("client_id", c.cfg.ClientID)
	params.Set("redirect_uri", c.cfg.RedirectURI)
	params.Set("response_type", "code")
	params.Set("scope", authorizationScope)
	return c.cfg.BaseURL + "/oauth/authorize?" + params.Encode(), nil
}

// ExchangeCode trades an authorization code for a user access token.
// Codes are single use, so the call is never retried.
func (c *OsuClient) ExchangeCode(ctx context.Context, code string) (*OsuToken, error) {
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", c.cfg.RedirectURI)
	return c.postToken(ctx, "exchange authorization code", form)
}

// ClientToken requests a client-credentials token.
func (c *OsuClient) ClientToken(ctx context.Context) (*OsuToken, error) {
	if err := c.requireCredentials(); err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("grant_type", "client_credentials")
	form.Set("scope", clientTokenScope)
	return c.postToken(ctx, "request client token", form)
}

// ValidClientToken returns the cached client token, refreshing it when it
// expires within the next 60 seconds.
func (c *OsuClient) ValidClientToken(ctx context.Context) (string, error) {
	return c.tokens.Get(ctx)
}

func (c *OsuClient) postToken(ctx context.Context, op string, form url.Values) (*OsuToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req, op)
	if err != nil {
		return nil, err
	}

	var tok OsuToken
	if err := json.Unmarshal(body, &tok); err != nil {
		log.Error().Err(err).Str("op", op).Str("body", truncate(string(body), 200)).Msg("[OSU] token response is not JSON")
		return nil, &DecodeError{Source: "token response", Err: err}
	}
	return &tok, nil
}

// FetchMe loads the profile of the user owning accessToken.
func (c *OsuClient) FetchMe(ctx context.Context, accessToken string) (*ExternalIdentity, error) {
	body, err := c.getJSON(ctx, "fetch profile", "/api/v2/me", accessToken)
	if err != nil {
		return nil, err
	}
	var u OsuUser
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, &DecodeError{Source: "profile response", Err: err}
	}
	identity := u.Identity()
	return &identity, nil
}

// FetchUser looks up any osu! user by id with the client token.
func (c *OsuClient) FetchUser(ctx context.Context, osuID int64) (*OsuUser, error) {
	body, err := c.lookup(ctx, "fetch user", fmt.Sprintf("/api/v2/users/%d", osuID), "user", osuID)
	if err != nil {
		return nil, err
	}
	var u OsuUser
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, &DecodeError{Source: "user response", Err: err}
	}
	return &u, nil
}

// FetchBeatmap looks up a single beatmap difficulty.
func (c *OsuClient) FetchBeatmap(ctx context.Context, beatmapID int64) (*Beatmap, error) {
	body, err := c.lookup(ctx, "fetch beatmap", fmt.Sprintf("/api/v2/beatmaps/%d", beatmapID), "beatmap", beatmapID)
	if err != nil {
		return nil, err
	}
	var b osuBeatmap
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, &DecodeError{Source: "beatmap response", Err: err}
	}
	out := b.flatten(b.Beatmapset)
	return &out, nil
}

// FetchBeatmapset returns every difficulty of a beatmapset.
func (c *OsuClient) FetchBeatmapset(ctx context.Context, beatmapsetID int64) ([]Beatmap, error) {
	body, err := c.lookup(ctx, "fetch beatmapset", fmt.Sprintf("/api/v2/beatmapsets/%d", beatmapsetID), "beatmapset", beatmapsetID)
	if err != nil {
		return nil, err
	}
	var set osuBeatmapset
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, &DecodeError{Source: "beatmapset response", Err: err}
	}
	out := make([]Beatmap, 0, len(set.Beatmaps))
	for i := range set.Beatmaps {
		out = append(out, set.Beatmaps[i].flatten(&set))
	}
	return out, nil
}

func (c *OsuClient) lookup(ctx context.Context, op, path, entity string, id int64) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	body, err := c.breaker.Execute(func() ([]byte, error) {
		token, err := c.ValidClientToken(ctx)
		if err != nil {
			return nil, err
		}
		body, err := c.getJSON(ctx, op, path, token)
		var upstream *UpstreamError
		if errors.As(err, &upstream) && upstream.StatusCode == http.StatusNotFound {
			return nil, &NotFoundError{Entity: entity, Key: fmt.Sprint(id)}
		}
		return body, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &UpstreamError{Op: op, StatusCode: http.StatusServiceUnavailable, Body: err.Error()}
	}
	return body, err
}

func (c *OsuClient) getJSON(ctx context.Context, op, path, accessToken string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	return c.do(req, op)
}

// do executes req and returns the body of a 2xx answer.
func (c *OsuClient) do(req *http.Request, op string) ([]byte, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		osuRequestDuration.WithLabelValues(op, "transport_error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBodySize))
	if err != nil {
		osuRequestDuration.WithLabelValues(op, "transport_error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		osuRequestDuration.WithLabelValues(op, "upstream_error").Observe(time.Since(start).Seconds())
		log.Error().Str("op", op).Int("status", resp.StatusCode).Str("body", truncate(string(body), 500)).
			Msg("[OSU] request failed")
		return nil, &UpstreamError{Op: op, StatusCode: resp.StatusCode, Body: truncate(string(body), 500)}
	}

	osuRequestDuration.WithLabelValues(op, "ok").Observe(time.Since(start).Seconds())
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
