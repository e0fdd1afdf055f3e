package services

import (
	"context"
	"errors"
	"testing"

	"tournament-registration/models"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeProvider struct {
	token       *OsuToken
	exchangeErr error
	identity    *ExternalIdentity
	fetchErr    error

	exchanged []string
	fetched   []string
}

func (p *fakeProvider) ExchangeCode(ctx context.Context, code string) (*OsuToken, error) {
	p.exchanged = append(p.exchanged, code)
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return p.token, nil
}

func (p *fakeProvider) FetchMe(ctx context.Context, accessToken string) (*ExternalIdentity, error) {
	p.fetched = append(p.fetched, accessToken)
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	return p.identity, nil
}

type fakeUpserter struct {
	err   error
	calls []ExternalIdentity
}

func (u *fakeUpserter) CreateOrUpdateUser(ctx context.Context, identity ExternalIdentity) (*models.User, error) {
	u.calls = append(u.calls, identity)
	if u.err != nil {
		return nil, u.err
	}
	return &models.User{ID: 1, OsuID: identity.ExternalID, Username: identity.Username}, nil
}

func happyProvider() *fakeProvider {
	id := aliceIdentity()
	return &fakeProvider{token: &OsuToken{AccessToken: "user-token", ExpiresIn: 86400}, identity: &id}
}

func TestLoginComplete(t *testing.T) {
	p := happyProvider()
	users := &fakeUpserter{}
	before := promtest.ToFloat64(loginOutcomes.WithLabelValues("success"))
	user, failure := NewLoginOrchestrator(p, users).Complete(context.Background(), CallbackParams{Code: "abc"})
	if failure != nil {
		t.Fatalf("unexpected failure %v", failure)
	}
	if user.OsuID != 12345 || user.Username != "alice" {
		t.Fatalf("unexpected user %+v", user)
	}
	if len(p.exchanged) != 1 || p.exchanged[0] != "abc" || len(p.fetched) != 1 || p.fetched[0] != "user-token" {
		t.Fatalf("unexpected provider calls %v %v", p.exchanged, p.fetched)
	}
	if got := promtest.ToFloat64(loginOutcomes.WithLabelValues("success")); got != before+1 {
		t.Fatalf("success counter = %v, want %v", got, before+1)
	}
}

func TestLoginFailures(t *testing.T) {
	upstream := &UpstreamError{Op: "exchange authorization code", StatusCode: 400, Body: "invalid_grant"}

	tests := []struct {
		name        string
		params      CallbackParams
		provider    *fakeProvider
		users       *fakeUpserter
		reason      FailureReason
		message     string
		wantUpserts int
	}{
		{
			name:     "provider error with description",
			params:   CallbackParams{Error: "access_denied", ErrorDescription: "The resource owner denied the request."},
			provider: happyProvider(),
			users:    &fakeUpserter{},
			reason:   ReasonProviderError,
			message:  "The resource owner denied the request.",
		},
		{
			name:     "provider error without description",
			params:   CallbackParams{Error: "access_denied", Code: "ignored"},
			provider: happyProvider(),
			users:    &fakeUpserter{},
			reason:   ReasonProviderError,
			message:  "access_denied",
		},
		{
			name:     "missing code",
			params:   CallbackParams{},
			provider: happyProvider(),
			users:    &fakeUpserter{},
			reason:   ReasonMissingCode,
			message:  "No authorization code provided",
		},
		{
			name:   "exchange fails",
			params: CallbackParams{Code: "used"},
			provider: func() *fakeProvider {
				p := happyProvider()
				p.exchangeErr = upstream
				return p
			}(),
			users:   &fakeUpserter{},
			reason:  ReasonTokenExchangeFailed,
			message: "Failed to process OAuth: could not exchange authorization code",
		},
		{
			name:   "profile fetch fails",
			params: CallbackParams{Code: "abc"},
			provider: func() *fakeProvider {
				p := happyProvider()
				p.fetchErr = &DecodeError{Source: "profile response", Err: errors.New("bad json")}
				return p
			}(),
			users:   &fakeUpserter{},
			reason:  ReasonProfileFetchFailed,
			message: "Failed to process OAuth: could not load osu! profile",
		},
		{
			name:        "upsert fails",
			params:      CallbackParams{Code: "abc"},
			provider:    happyProvider(),
			users:       &fakeUpserter{err: &PersistenceError{Op: "upsert user", Err: errors.New("db down")}},
			reason:      ReasonUpsertFailed,
			message:     "Failed to process OAuth: could not save user",
			wantUpserts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := promtest.ToFloat64(loginOutcomes.WithLabelValues(string(tt.reason)))
			user, failure := NewLoginOrchestrator(tt.provider, tt.users).Complete(context.Background(), tt.params)
			if user != nil {
				t.Fatalf("expected no user, got %+v", user)
			}
			if failure == nil {
				t.Fatalf("expected failure")
			}
			if failure.Reason != tt.reason || failure.Message != tt.message {
				t.Fatalf("got %s %q, want %s %q", failure.Reason, failure.Message, tt.reason, tt.message)
			}
			if len(tt.users.calls) != tt.wantUpserts {
				t.Fatalf("expected %d upserts, got %d", tt.wantUpserts, len(tt.users.calls))
			}
			if got := promtest.ToFloat64(loginOutcomes.WithLabelValues(string(tt.reason))); got != before+1 {
				t.Fatalf("%s counter = %v, want %v", tt.reason, got, before+1)
			}
		})
	}
}

func TestLoginExchangeFailureSkipsProfileFetch(t *testing.T) {
	p := happyProvider()
	p.exchangeErr = &UpstreamError{StatusCode: 401}
	_, failure := NewLoginOrchestrator(p, &fakeUpserter{}).Complete(context.Background(), CallbackParams{Code: "x"})
	if failure == nil || failure.Stage != StageCodeReceived {
		t.Fatalf("unexpected failure %+v", failure)
	}
	if len(p.fetched) != 0 {
		t.Fatalf("profile must not be fetched after a failed exchange")
	}
	var ue *UpstreamError
	if !errors.As(failure, &ue) {
		t.Fatalf("failure should unwrap to the upstream error")
	}
}
