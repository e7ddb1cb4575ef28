// file: internals/features/webhooks/routes/webhook_route.go
package routes

import (
	"github.com/gofiber/fiber/v2"

	controller "github.com/misterVKLN/shopify-webhook/internals/features/webhooks/controller"
)

// WebhookRoutes: endpoint publik yang dipanggil Shopify.
// Autentikasinya HMAC di body, bukan JWT.
func WebhookRoutes(r fiber.Router, h *controller.WebhookController) {
	gr := r.Group("/shopify/order")
	gr.Post("/create", h.OrderCreate) // POST /webhooks/shopify/order/create
	gr.Post("/cancel", h.OrderCancel) // POST /webhooks/shopify/order/cancel
}
