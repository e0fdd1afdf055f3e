package handlers

import (
	"context"

	"tournament-registration/services"

	"github.com/gofiber/fiber/v2"
)

// Exporter publishes registration snapshots.
type Exporter interface {
	Export(ctx context.Context, approvedOnly bool) (*services.ExportResult, error)
}

// OsuLookup reads public osu! data with the client-credentials token.
type OsuLookup interface {
	FetchUser(ctx context.Context, osuID int64) (*services.OsuUser, error)
	FetchBeatmap(ctx context.Context, beatmapID int64) (*services.Beatmap, error)
	FetchBeatmapset(ctx context.Context, beatmapsetID int64) ([]services.Beatmap, error)
}

type AdminHandler struct {
	Exporter Exporter
	Lookup   OsuLookup
}

func SetupAdminRoutes(app *fiber.App, h *AdminHandler, admin fiber.Handler) {
	staff := app.Group("/admin", admin)
	staff.Post("/export", h.Export)

	osu := app.Group("/osu", admin)
	osu.Get("/users/:id", h.OsuUser)
	osu.Get("/beatmaps/:id", h.Beatmap)
	osu.Get("/beatmapsets/:id", h.Beatmapset)
}

// Export uploads a snapshot of the current season's players.
func (h *AdminHandler) Export(c *fiber.Ctx) error {
	if h.Exporter == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "export is not configured"})
	}
	res, err := h.Exporter.Export(c.UserContext(), c.QueryBool("approved", false))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *AdminHandler) OsuUser(c *fiber.Ctx) error {
	id, err := services.ParseOsuID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	u, err := h.Lookup.FetchUser(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(u)
}

func (h *AdminHandler) Beatmap(c *fiber.Ctx) error {
	id, err := services.ParseOsuID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	b, err := h.Lookup.FetchBeatmap(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(b)
}

func (h *AdminHandler) Beatmapset(c *fiber.Ctx) error {
	id, err := services.ParseOsuID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	maps, err := h.Lookup.FetchBeatmapset(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(maps)
}
