package services

import (
	"net/url"
	"time"

	"tournament-registration/models"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

const (
	SessionCookieName = "user_session"
	SessionMaxAge     = 7 * 24 * 60 * 60
)

// SessionUser is the identity projection stored in the session cookie.
// Only OsuID is trusted: handlers reload the user by it on every request.
type SessionUser struct {
	ID          uint   `json:"id"`
	OsuID       int64  `json:"osuid"`
	Username    string `json:"username"`
	AvatarURL   string `json:"avatar_url"`
	CountryCode string `json:"country_code"`
}

// SessionCodec turns users into user_session cookies and back.
// The payload is plain JSON and is not signed.
type SessionCodec struct {
	// Secure enables the HttpOnly and Secure attributes (production only).
	Secure bool
}

func NewSessionCodec(secure bool) *SessionCodec {
	return &SessionCodec{Secure: secure}
}

func (s *SessionCodec) Encode(u *models.User) (string, error) {
	data, err := json.Marshal(SessionUser{
		ID:          u.ID,
		OsuID:       u.OsuID,
		Username:    u.Username,
		AvatarURL:   u.AvatarURL,
		CountryCode: u.CountryCode,
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *SessionCodec) Decode(value string) (*SessionUser, error) {
	var su SessionUser
	if err := json.Unmarshal([]byte(value), &su); err != nil {
		return nil, &DecodeError{Source: "session cookie", Err: err}
	}
	if su.OsuID == 0 {
		return nil, &DecodeError{Source: "session cookie", Err: errMissingOsuID}
	}
	return &su, nil
}

// Issue attaches a fresh session cookie for u to the response.
func (s *SessionCodec) Issue(c *fiber.Ctx, u *models.User) error {
	value, err := s.Encode(u)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    url.PathEscape(value),
		Path:     "/",
		MaxAge:   SessionMaxAge,
		HTTPOnly: s.Secure,
		Secure:   s.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

// Read returns the decoded session of the request. ok is false when no
// cookie is present.
func (s *SessionCodec) Read(c *fiber.Ctx) (su *SessionUser, ok bool, err error) {
	raw := c.Cookies(SessionCookieName)
	if raw == "" {
		return nil, false, nil
	}
	value, unescapeErr := url.PathUnescape(raw)
	if unescapeErr != nil {
		value = raw
	}
	su, err = s.Decode(value)
	return su, true, err
}

// Clear expires the session cookie.
func (s *SessionCodec) Clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: s.Secure,
		Secure:   s.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
