package handlers

import (
	"net/url"
	"strconv"

	"tournament-registration/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// AuthorizationURLBuilder yields the osu! authorize URL.
type AuthorizationURLBuilder interface {
	AuthorizationURL() (string, error)
}

type AuthHandler struct {
	AuthURL     AuthorizationURLBuilder
	Login       *services.LoginOrchestrator
	Sessions    *services.SessionCodec
	LandingPath string
}

func SetupAuthRoutes(app *fiber.App, h *AuthHandler) {
	app.Get("/auth/login-url", h.LoginURL)
	app.Get("/auth/callback", h.Callback)
	// Default redirect URI registered on osu!.
	app.Get("/auth/osu/callback", h.Callback)
}

// LoginURL sends the browser to the osu! consent page.
func (h *AuthHandler) LoginURL(c *fiber.Ctx) error {
	authURL, err := h.AuthURL.AuthorizationURL()
	if err != nil {
		log.Error().Err(err).Msg("[AUTH] cannot build authorization URL")
		return c.Redirect(h.errorLocation("Failed to initialize OAuth: "+err.Error()), fiber.StatusFound)
	}
	return c.Redirect(authURL, fiber.StatusFound)
}

// Callback finishes the OAuth flow. Every outcome is a redirect to the
// landing page; a cookie is only set on success.
func (h *AuthHandler) Callback(c *fiber.Ctx) error {
	user, failure := h.Login.Complete(c.UserContext(), services.CallbackParams{
		Code:             c.Query("code"),
		Error:            c.Query("error"),
		ErrorDescription: c.Query("error_description"),
	})
	if failure != nil {
		return c.Redirect(h.errorLocation(failure.Message), fiber.StatusFound)
	}

	if err := h.Sessions.Issue(c, user); err != nil {
		log.Error().Err(err).Int64("osuid", user.OsuID).Msg("[AUTH] cannot encode session")
		return c.Redirect(h.errorLocation("Failed to process OAuth: could not create session"), fiber.StatusFound)
	}

	log.Info().Int64("osuid", user.OsuID).Str("username", user.Username).Msg("[AUTH] session issued")
	return c.Redirect(h.successLocation(user.Username, user.OsuID, user.ID), fiber.StatusFound)
}

func (h *AuthHandler) errorLocation(msg string) string {
	return h.LandingPath + "?error=" + url.QueryEscape(msg)
}

func (h *AuthHandler) successLocation(username string, osuID int64, userID uint) string {
	return h.LandingPath +
		"?success=true" +
		"&username=" + url.QueryEscape(username) +
		"&osuid=" + strconv.FormatInt(osuID, 10) +
		"&userId=" + strconv.FormatUint(uint64(userID), 10)
}
