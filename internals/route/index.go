// file: internals/route/index.go
package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/misterVKLN/shopify-webhook/internals/configs"
	webhookController "github.com/misterVKLN/shopify-webhook/internals/features/webhooks/controller"
	webhookRoutes "github.com/misterVKLN/shopify-webhook/internals/features/webhooks/routes"
	webhookService "github.com/misterVKLN/shopify-webhook/internals/features/webhooks/service"
	"github.com/misterVKLN/shopify-webhook/internals/metrics"
	middlewares "github.com/misterVKLN/shopify-webhook/internals/middlewares"
	"github.com/misterVKLN/shopify-webhook/internals/queue"
)

type Deps struct {
	DB        *gorm.DB
	Store     *webhookService.WebhookStore
	Orders    *webhookService.OrderService
	Reconcile *webhookService.ReconcileService
	Queue     queue.Publisher
	Shopify   configs.ShopifySettings
}

func SetupRoutes(app *fiber.App, d Deps) {
	// ===================== PUBLIC (Shopify) =====================
	log.Println("[INFO] Setting up webhook routes...")
	public := app.Group("/webhooks", middlewares.WebhookRateLimiter())
	webhookRoutes.WebhookRoutes(public, webhookController.NewWebhookController(d.Store, d.Orders, d.Queue, d.Shopify))

	// ===================== ADMIN (operator) =====================
	log.Println("[INFO] Setting up admin routes (OperatorAuth)...")
	admin := app.Group("/api/a",
		middlewares.AdminRateLimiter(),
		middlewares.OperatorAuth(middlewares.OperatorAuthOpts{
			Secret: os.Getenv("JWT_SECRET"),
		}),
	)
	webhookRoutes.AdminRoutes(admin, webhookController.NewWebhookAdminController(d.DB, d.Reconcile))

	// ===================== OBSERVABILITY =====================
	app.Get("/metrics", metrics.Handler())
}
