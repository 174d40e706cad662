package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/metrics"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/middleware"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/realtime"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/workflow"
)

type GoogleConfig struct {
	ClientID        string
	Secret          string
	RedirectURL     string
	FrontendBaseURL string
}

// Deps is everything the gateway needs.
type Deps struct {
	Engine *workflow.Engine
	Hub    *realtime.Hub
	DB     *gorm.DB
	Log    *zap.Logger

	JWTSecret     string
	JWTExpiresMin int
	SecureCookie  bool
	Origins       []string
	BidRatePerMin int
	Google        GoogleConfig
}

// NewApp builds the fiber app with every route mounted.
func NewApp(d Deps) *fiber.App {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Hub == nil {
		d.Hub = realtime.NewHub(nil, d.Log)
	}

	app := fiber.New(fiber.Config{
		AppName:      "platform_be_freelance",
		ErrorHandler: ErrorHandler(d.Log),
		BodyLimit:    1 << 20,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	if len(d.Origins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(d.Origins, ", "),
			AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
			AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
			ExposeHeaders:    "Content-Length",
			AllowCredentials: true, // cookie
		}))
	}
	app.Use(middleware.Access(d.Log))

	Register(app, d)
	return app
}

// Register mounts the routes on app.
func Register(app *fiber.App, d Deps) {
	authH := &AuthHandler{
		Engine:       d.Engine,
		JWTSecret:    d.JWTSecret,
		Expires:      d.JWTExpiresMin,
		SecureCookie: d.SecureCookie,
	}
	googleH := &GoogleOAuthHandler{
		Auth:            authH,
		GoogleClientID:  d.Google.ClientID,
		GoogleSecret:    d.Google.Secret,
		GoogleRedirect:  d.Google.RedirectURL,
		FrontendBaseURL: d.Google.FrontendBaseURL,
	}
	projectH := NewProjectHandler(d.Engine)
	bidH := NewBidHandler(d.Engine)
	freelancerH := NewFreelancerHandler(d.Engine)
	adminH := NewAdminHandler(d.Engine)
	chatH := NewChatHandler(d.Engine, d.Hub, d.Log)
	bidRate := d.BidRatePerMin
	if bidRate <= 0 {
		bidRate = 10
	}
	bidLimit := middleware.NewRateLimiter(bidRate)

	auth := middleware.Authenticated(d.JWTSecret)
	with := func(hs ...fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, auth...), hs...)
	}

	app.Get("/healthz", health(d.DB))
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// public
	app.Post("/register", authH.Register)
	app.Post("/login", authH.Login)
	app.Post("/logout", authH.Logout)
	app.Get("/fetch-projects", projectH.List)
	app.Get("/fetch-project/:id", projectH.Get)
	app.Get("/fetch-freelancer/:id", freelancerH.Get)
	app.Get("/api/auth/google/start", googleH.GoogleStart)
	app.Get("/api/auth/google/callback", googleH.GoogleCallback)

	// legacy paths that need a session
	app.Post("/new-project", with(middleware.RequireRoles(models.RoleClient), projectH.Create)...)
	app.Post("/update-freelancer", with(middleware.RequireRoles(models.RoleFreelancer), freelancerH.Update)...)

	api := app.Group("/api", auth...)
	api.Get("/me", authH.Me)

	api.Get("/projects/open", projectH.Open)
	api.Get("/projects/:id/history", projectH.History)
	api.Post("/projects/:id/start", projectH.Start)
	api.Post("/projects/:id/complete", projectH.Complete)
	api.Post("/projects/:id/cancel", projectH.Cancel)

	api.Post("/bids", middleware.RequireRoles(models.RoleFreelancer), bidLimit.Handler(), bidH.Submit)
	api.Get("/my-applications", bidH.Mine)
	api.Get("/projects/:id/applications", bidH.ListForProject)
	api.Post("/projects/:id/applications/:appId/accept", bidH.Accept)

	api.Get("/projects/:id/chat", chatH.GetMessages)
	api.Post("/projects/:id/chat", chatH.SendMessage)

	admin := api.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
	admin.Get("/users", adminH.Users)
	admin.Get("/projects", adminH.Projects)
	admin.Get("/applications", adminH.Applications)

	app.Get("/ws/projects/:id/chat", with(chatH.UpgradeProjectChat, websocket.New(chatH.ProjectChatSocket))...)
	app.Get("/ws/notifications", with(chatH.UpgradeNotifications, websocket.New(chatH.NotificationSocket))...)
}

func health(gdb *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if gdb == nil {
			return ok(c, "ok", nil)
		}
		sqlDB, err := gdb.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			return apperr.Wrap(err, apperr.CodeStoreUnavailable, "database unreachable")
		}
		return ok(c, "ok", nil)
	}
}
