package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bizguard/bizguard/app/controllers"
	"github.com/bizguard/bizguard/internal/pkg/constants"
	"github.com/bizguard/bizguard/internal/pkg/middleware"
	"github.com/bizguard/bizguard/internal/pkg/oauth"
	"github.com/bizguard/bizguard/internal/pkg/session"
)

type HttpRouter struct {
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	h.registerPublicRoutes(app)
	h.registerProtectedRoutes(app)
}

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get(constants.PublicRoute, controllers.HandleHome)
	app.Get(constants.PricingRoute, controllers.HandlePricing)

	// Auth
	app.Get(constants.LoginRoute, controllers.HandleAuthLogin)
	app.Post(constants.LoginRoute, controllers.HandleAuthLogin)
	app.Get(constants.RegisterRoute, controllers.HandleAuthRegister)
	app.Post(constants.RegisterRoute, controllers.HandleAuthRegister)
	app.Get(constants.LogoutRoute, controllers.HandleAuthLogout)

	// Social OAuth
	app.Get("/auth/:provider", controllers.HandleOAuthLogin)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)
}

func (h HttpRouter) registerProtectedRoutes(app *fiber.App) {
	app.Get(constants.DashboardRoute, middleware.RequireAuth, controllers.HandleDashboard)
	app.Get(constants.BillingRoute, middleware.RequireAuth, controllers.HandleBillingPage)
}
