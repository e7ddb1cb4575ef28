// file: internals/features/webhooks/routes/admin_route.go
package routes

import (
	"github.com/gofiber/fiber/v2"

	controller "github.com/misterVKLN/shopify-webhook/internals/features/webhooks/controller"
)

// AdminRoutes: inspeksi + retry untuk operator (dipasang di group yang
// sudah dijaga OperatorAuth).
func AdminRoutes(r fiber.Router, h *controller.WebhookAdminController) {
	r.Get("/webhook-events", h.ListEvents)    // GET /api/a/webhook-events?status=&page=&limit=
	r.Get("/orders", h.ListOrders)            // GET /api/a/orders?status=&email=
	r.Get("/orders/:id/items", h.ListOrderItems)
	r.Post("/reconcile", h.TriggerReconcile)  // POST /api/a/reconcile
}
