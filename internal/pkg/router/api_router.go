package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/bizguard/bizguard/app/controllers"
	"github.com/bizguard/bizguard/internal/pkg/middleware"
)

type ApiRouter struct {
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// The provider webhook stays outside the limiter group: a burst of
	// event redeliveries must never be throttled into retry loops.
	app.Post("/api/stripe/webhook", controllers.HandleStripeWebhook)

	api := app.Group("/api", limiter.New(limiter.Config{Max: 60}))

	// Billing
	api.Post("/billing/checkout", controllers.HandleBillingCheckout)
	api.Post("/billing/portal", controllers.HandleBillingPortal)
	api.Get("/billing/plan", controllers.HandleAPIBillingPlan)

	// Profile
	api.Post("/profile/ensure", controllers.HandleAPIProfileEnsure)
	api.Get("/profile", middleware.RequireAPISessionAuth, controllers.HandleAPIProfileGet)
	api.Put("/profile", controllers.HandleAPIProfileUpdate)
	api.Post("/profile", controllers.HandleAPIProfileUpdate)

	// Dashboard records
	api.Get("/records", middleware.RequireAPISessionAuth, controllers.HandleAPIRecordsList)
	api.Post("/records", middleware.RequireAPISessionAuth, controllers.HandleAPIRecordsCreate)
	api.Put("/records/:id", middleware.RequireAPISessionAuth, controllers.HandleAPIRecordsUpdate)
	api.Delete("/records/:id", middleware.RequireAPISessionAuth, controllers.HandleAPIRecordsDelete)

	// AI gateway
	api.Post("/legal/ask", controllers.HandleLegalAsk)
	api.Post("/legal/review", controllers.HandleLegalReview)
	api.Post("/analyze-document", controllers.HandleAnalyzeDocument)
	api.Post("/ai/summarize", controllers.HandleAISummarize)
	api.Post("/tts", controllers.HandleTTS)
	api.Post("/voice/transcribe", controllers.HandleVoiceTranscribe)
}
