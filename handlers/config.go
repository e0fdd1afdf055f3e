package handlers

import (
	"context"

	"tournament-registration/models"
	"tournament-registration/services"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

// ConfigStore reads and writes the tournament config.
type ConfigStore interface {
	Get(ctx context.Context) (*models.TournamentConfig, error)
	Put(ctx context.Context, in services.ConfigInput) (*models.TournamentConfig, error)
	Init(ctx context.Context) (*models.TournamentConfig, error)
}

type ConfigHandler struct {
	Configs ConfigStore
}

func SetupConfigRoutes(app *fiber.App, h *ConfigHandler, admin fiber.Handler) {
	app.Get("/config", h.Get)
	app.Get("/config/options", h.Options)

	staff := app.Group("/admin", admin)
	staff.Put("/config", h.Put)
	staff.Post("/init-database", h.Init)
}

func (h *ConfigHandler) Get(c *fiber.Ctx) error {
	cfg, err := h.Configs.Get(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(cfg)
}

// Options lists the season and category values with display labels.
func (h *ConfigHandler) Options(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"seasons":    models.SeasonOptions(),
		"categories": models.CategoryOptions(),
	})
}

func (h *ConfigHandler) Put(c *fiber.Ctx) error {
	var in services.ConfigInput
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON body"})
	}
	cfg, err := h.Configs.Put(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(cfg)
}

func (h *ConfigHandler) Init(c *fiber.Ctx) error {
	cfg, err := h.Configs.Init(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(cfg)
}
