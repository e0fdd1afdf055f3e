package handlers

import (
	"strings"

	"tournament-registration/middleware"
	"tournament-registration/services"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Dependencies wires the services behind the HTTP surface.
type Dependencies struct {
	AuthURL  AuthorizationURLBuilder
	Login    *services.LoginOrchestrator
	Sessions *services.SessionCodec
	Users    UserStore
	Configs  ConfigStore
	Exporter Exporter
	Lookup   OsuLookup

	AdminToken     string
	LandingPath    string
	AllowedOrigins []string
}

// NewApp builds the fiber app with every route mounted.
func NewApp(deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "tournament-registration",
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger())
	if len(deps.AllowedOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(deps.AllowedOrigins, ","),
			AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
			AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID",
			ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
			AllowCredentials: true,
			MaxAge:           86400,
		}))
	}

	admin := middleware.AdminAuthMiddleware(deps.AdminToken)
	landing := deps.LandingPath
	if landing == "" {
		landing = "/debug"
	}

	SetupSystemRoutes(app)
	SetupAuthRoutes(app, &AuthHandler{
		AuthURL:     deps.AuthURL,
		Login:       deps.Login,
		Sessions:    deps.Sessions,
		LandingPath: landing,
	})
	SetupUserRoutes(app, &UserHandler{Users: deps.Users, Sessions: deps.Sessions}, admin)
	SetupConfigRoutes(app, &ConfigHandler{Configs: deps.Configs}, admin)
	SetupAdminRoutes(app, &AdminHandler{Exporter: deps.Exporter, Lookup: deps.Lookup}, admin)

	return app
}
