package services

import (
	"context"

	"tournament-registration/models"

	"github.com/rs/zerolog/log"
)

// LoginStage is a step of the OAuth callback flow.
type LoginStage string

const (
	StageAwaitingCode   LoginStage = "awaiting_code"
	StageCodeReceived   LoginStage = "code_received"
	StageTokenObtained  LoginStage = "token_obtained"
	StageProfileFetched LoginStage = "profile_fetched"
	StageUserUpserted   LoginStage = "user_upserted"
	StageSessionIssued  LoginStage = "session_issued"
)

// FailureReason names why a login flow ended in Failed.
type FailureReason string

const (
	ReasonProviderError       FailureReason = "provider_error"
	ReasonMissingCode         FailureReason = "missing_code"
	ReasonTokenExchangeFailed FailureReason = "token_exchange_failed"
	ReasonProfileFetchFailed  FailureReason = "profile_fetch_failed"
	ReasonUpsertFailed        FailureReason = "upsert_failed"
)

// LoginFailure is the terminal Failed state. Message is safe to show to
// the user; Err is for logs only.
type LoginFailure struct {
	Stage   LoginStage
	Reason  FailureReason
	Message string
	Err     error
}

func (f *LoginFailure) Error() string {
	if f.Err != nil {
		return string(f.Reason) + ": " + f.Err.Error()
	}
	return string(f.Reason) + ": " + f.Message
}

func (f *LoginFailure) Unwrap() error { return f.Err }

// CallbackParams are the query parameters osu! redirects back with.
type CallbackParams struct {
	Code             string
	Error            string
	ErrorDescription string
}

// IdentityProvider is the part of the osu! client the login flow needs.
type IdentityProvider interface {
	ExchangeCode(ctx context.Context, code string) (*OsuToken, error)
	FetchMe(ctx context.Context, accessToken string) (*ExternalIdentity, error)
}

// UserUpserter persists the identity returned by the provider.
type UserUpserter interface {
	CreateOrUpdateUser(ctx context.Context, identity ExternalIdentity) (*models.User, error)
}

// LoginOrchestrator runs the callback flow once per request. No step is
// retried: authorization codes are single use.
type LoginOrchestrator struct {
	Provider IdentityProvider
	Users    UserUpserter
}

func NewLoginOrchestrator(provider IdentityProvider, users UserUpserter) *LoginOrchestrator {
	return &LoginOrchestrator{Provider: provider, Users: users}
}

// Complete drives the flow up to UserUpserted. The caller issues the
// session (the SessionIssued transition) since it owns the response.
func (o *LoginOrchestrator) Complete(ctx context.Context, p CallbackParams) (*models.User, *LoginFailure) {
	if p.Error != "" {
		msg := p.ErrorDescription
		if msg == "" {
			msg = p.Error
		}
		return nil, o.fail(&LoginFailure{Stage: StageAwaitingCode, Reason: ReasonProviderError, Message: msg})
	}
	if p.Code == "" {
		return nil, o.fail(&LoginFailure{Stage: StageAwaitingCode, Reason: ReasonMissingCode, Message: "No authorization code provided"})
	}

	token, err := o.Provider.ExchangeCode(ctx, p.Code)
	if err != nil {
		return nil, o.fail(&LoginFailure{
			Stage:   StageCodeReceived,
			Reason:  ReasonTokenExchangeFailed,
			Message: "Failed to process OAuth: could not exchange authorization code",
			Err:     err,
		})
	}

	identity, err := o.Provider.FetchMe(ctx, token.AccessToken)
	if err != nil {
		return nil, o.fail(&LoginFailure{
			Stage:   StageTokenObtained,
			Reason:  ReasonProfileFetchFailed,
			Message: "Failed to process OAuth: could not load osu! profile",
			Err:     err,
		})
	}
	log.Info().Int64("osuid", identity.ExternalID).Str("username", identity.Username).Msg("[AUTH] osu! profile fetched")

	user, err := o.Users.CreateOrUpdateUser(ctx, *identity)
	if err != nil {
		return nil, o.fail(&LoginFailure{
			Stage:   StageProfileFetched,
			Reason:  ReasonUpsertFailed,
			Message: "Failed to process OAuth: could not save user",
			Err:     err,
		})
	}

	loginOutcomes.WithLabelValues("success").Inc()
	return user, nil
}

func (o *LoginOrchestrator) fail(f *LoginFailure) *LoginFailure {
	loginOutcomes.WithLabelValues(string(f.Reason)).Inc()
	ev := log.Warn()
	if f.Err != nil {
		ev = log.Error().Err(f.Err)
	}
	ev.Str("stage", string(f.Stage)).Str("reason", string(f.Reason)).Msg("[AUTH] login failed")
	return f
}
