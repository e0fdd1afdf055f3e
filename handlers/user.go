package handlers

import (
	"context"

	"tournament-registration/middleware"
	"tournament-registration/models"
	"tournament-registration/services"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// UserStore is the user persistence the HTTP layer relies on.
type UserStore interface {
	FindByExternalID(ctx context.Context, osuID int64) (*models.User, error)
	FindByUsername(ctx context.Context, name string) (*models.User, error)
	UpdateProfile(ctx context.Context, osuID int64, patch services.UserPatch) (*models.User, error)
}

type UserHandler struct {
	Users    UserStore
	Sessions *services.SessionCodec
}

func SetupUserRoutes(app *fiber.App, h *UserHandler, admin fiber.Handler) {
	user := app.Group("/user", middleware.SessionContextMiddleware(h.Sessions))
	user.Get("/me", h.Me)
	user.Delete("/me", h.Logout)
	user.Get("/search", h.Search)
	user.Post("/update", admin, h.Update)
}

// Me returns the logged-in user, reloaded from storage by osuid.
func (h *UserHandler) Me(c *fiber.Ctx) error {
	su, err := middleware.SessionFrom(c)
	if err != nil {
		h.Sessions.Clear(c)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session"})
	}
	if su == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated"})
	}

	user, err := h.Users.FindByExternalID(c.UserContext(), su.OsuID)
	if services.IsNotFound(err) {
		log.Info().Int64("osuid", su.OsuID).Msg("[USER] session references unknown user, clearing cookie")
		h.Sessions.Clear(c)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found in database"})
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// Logout clears the session cookie.
func (h *UserHandler) Logout(c *fiber.Ctx) error {
	h.Sessions.Clear(c)
	return c.JSON(fiber.Map{"success": true})
}

// Search finds one user by osuid or username.
func (h *UserHandler) Search(c *fiber.Ctx) error {
	kind := c.Query("type")
	value := c.Query("value")
	if kind == "" || value == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing type or value parameter"})
	}

	var (
		user *models.User
		err  error
	)
	switch kind {
	case "externalId", "osuid":
		osuID, parseErr := services.ParseOsuID(value)
		if parseErr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid osuid"})
		}
		user, err = h.Users.FindByExternalID(c.UserContext(), osuID)
	case "username":
		user, err = h.Users.FindByUsername(c.UserContext(), value)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": `Invalid type parameter. Use "externalId" or "username"`,
		})
	}
	if services.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

type updateRequest struct {
	OsuID      *int64 `json:"osuid"`
	ExternalID *int64 `json:"externalId"`
	services.UserPatch
}

func (r *updateRequest) id() int64 {
	if r.OsuID != nil {
		return *r.OsuID
	}
	if r.ExternalID != nil {
		return *r.ExternalID
	}
	return 0
}

// Update applies a sparse patch to a user.
func (h *UserHandler) Update(c *fiber.Ctx) error {
	var req updateRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON body"})
	}
	osuID := req.id()
	if osuID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing osuid parameter"})
	}

	user, err := h.Users.UpdateProfile(c.UserContext(), osuID, req.UserPatch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}
