// file: internals/features/webhooks/controller/webhook_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/misterVKLN/shopify-webhook/internals/configs"
	dto "github.com/misterVKLN/shopify-webhook/internals/features/webhooks/dto"
	model "github.com/misterVKLN/shopify-webhook/internals/features/webhooks/model"
	service "github.com/misterVKLN/shopify-webhook/internals/features/webhooks/service"
	"github.com/misterVKLN/shopify-webhook/internals/metrics"
	"github.com/misterVKLN/shopify-webhook/internals/queue"
)

const (
	headerShopDomain = "X-Shopify-Shop-Domain"
	headerHmac       = "X-Shopify-Hmac-Sha256"
)

type WebhookController struct {
	Store    *service.WebhookStore
	Orders   *service.OrderService
	Queue    queue.Publisher
	Settings configs.ShopifySettings
}

func NewWebhookController(store *service.WebhookStore, orders *service.OrderService, q queue.Publisher, settings configs.ShopifySettings) *WebhookController {
	return &WebhookController{Store: store, Orders: orders, Queue: q, Settings: settings}
}

/* =========================================================
   Checks pipeline (urutan PENTING, first fail short-circuit):
   1. body JSON valid          → 400
   2. shop domain header ada   → 400
   3. shop domain di allow-list→ 403
   4. hmac header ada          → 400
   5. hmac cocok               → 403
   Payload SELALU ke-persist duluan — delivery yang gagal checks
   tetap kebukukan sebagai raw event error.
========================================================= */

func (h *WebhookController) ingestAndVerify(c *fiber.Ctx, topic string) (*model.WebhookEventModel, error) {
	metrics.WebhooksReceived.WithLabelValues(topic).Inc()

	event, err := h.Store.Ingest(c.GetReqHeaders(), c.Body(), c.IP())
	if err != nil {
		if errors.Is(err, service.ErrMalformedPayload) {
			metrics.WebhooksRejected.WithLabelValues("malformed").Inc()
			return nil, fiber.NewError(fiber.StatusBadRequest, "malformed body")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	shopDomain := c.Get(headerShopDomain)
	if shopDomain == "" {
		log.Printf("[ERROR] request tanpa header %s", headerShopDomain)
		h.failEvent(event, "missing_header")
		return nil, fiber.NewError(fiber.StatusBadRequest, "missing shop domain header")
	}
	if !h.Settings.DomainAllowed(shopDomain) {
		log.Printf("[ERROR] shop domain tidak dikenal: %s", shopDomain)
		h.failEvent(event, "unknown_domain")
		return nil, fiber.NewError(fiber.StatusForbidden, "unknown shop domain")
	}

	signature := c.Get(headerHmac)
	if signature == "" {
		log.Printf("[ERROR] request tanpa header %s", headerHmac)
		h.failEvent(event, "missing_header")
		return nil, fiber.NewError(fiber.StatusBadRequest, "missing hmac header")
	}
	if !service.HMACValid(h.Settings.APIKey, c.Body(), signature) {
		log.Printf("[ERROR] verifikasi HMAC gagal (shop=%s)", shopDomain)
		h.failEvent(event, "bad_signature")
		return nil, fiber.NewError(fiber.StatusForbidden, "invalid signature")
	}

	return event, nil
}

func (h *WebhookController) failEvent(event *model.WebhookEventModel, reason string) {
	metrics.WebhooksRejected.WithLabelValues(reason).Inc()
	if err := h.Store.MarkFailed(event); err != nil {
		log.Printf("[ERROR] gagal tandai event %s error: %v", event.WebhookEventID, err)
	}
}

// OrderCreate: webhook orders/create.
func (h *WebhookController) OrderCreate(c *fiber.Ctx) error {
	event, err := h.ingestAndVerify(c, "order_create")
	if err != nil {
		return err
	}

	payload, derr := dto.DecodeOrderCreate(event.WebhookEventContent)
	if derr != nil {
		log.Printf("[ERROR] payload order create tidak valid: %v", derr)
		h.failEvent(event, "malformed")
		return fiber.NewError(fiber.StatusBadRequest, "invalid order payload")
	}

	// Subscription purchase tidak di-enroll — cukup ditandai selesai.
	if payload.IsSubscriptionPurchase() {
		if err := h.Store.MarkFinished(event); err != nil {
			log.Printf("[ERROR] gagal tandai event %s processed: %v", event.WebhookEventID, err)
		}
		return c.SendStatus(fiber.StatusOK)
	}

	if err := h.Store.MarkFinished(event); err != nil {
		log.Printf("[ERROR] gagal tandai event %s processed: %v", event.WebhookEventID, err)
	}

	order, created, rerr := h.Orders.RecordOrder(event, payload)
	if rerr != nil {
		log.Printf("[ERROR] record order gagal: %v", rerr)
		return fiber.NewError(fiber.StatusInternalServerError, "record order failed")
	}
	if created {
		log.Printf("[INFO] order %d dibuat", order.OrderID)
	} else {
		log.Printf("[INFO] order %d sudah ada", order.OrderID)
	}

	h.scheduleIfNew(c, order, event.WebhookEventContent)
	return c.SendStatus(fiber.StatusOK)
}

// OrderCancel: webhook subscription cancellation. Line items tidak ada di
// payload — disintesis dari purchase history customer via Admin API.
func (h *WebhookController) OrderCancel(c *fiber.Ctx) error {
	event, err := h.ingestAndVerify(c, "order_cancel")
	if err != nil {
		return err
	}

	payload, derr := dto.DecodeOrderCancel(event.WebhookEventContent)
	if derr != nil {
		log.Printf("[ERROR] payload order cancel tidak valid: %v", derr)
		h.failEvent(event, "malformed")
		return fiber.NewError(fiber.StatusBadRequest, "invalid cancel payload")
	}

	if err := h.Store.MarkFinished(event); err != nil {
		log.Printf("[ERROR] gagal tandai event %s processed: %v", event.WebhookEventID, err)
	}

	order, created, normalized, rerr := h.Orders.RecordCancellationOrder(c.UserContext(), event, payload)
	if rerr != nil {
		log.Printf("[ERROR] record cancellation order gagal: %v", rerr)
		return fiber.NewError(fiber.StatusInternalServerError, "record cancellation failed")
	}
	if created {
		log.Printf("[INFO] cancellation order %d dibuat", order.OrderID)
	} else {
		log.Printf("[INFO] cancellation order %d sudah ada", order.OrderID)
	}

	raw, _ := json.Marshal(normalized)
	h.scheduleIfNew(c, order, raw)
	return c.SendStatus(fiber.StatusOK)
}

// scheduleIfNew: enqueue async HANYA kalau order masih new — order yang sudah
// processed/error tidak dijadwalkan ulang dari path webhook (idempoten).
func (h *WebhookController) scheduleIfNew(c *fiber.Ctx, order *model.OrderModel, content []byte) {
	if order.OrderStatus != model.OrderStatusNew {
		log.Printf("[INFO] order %d sudah diproses, tidak dijadwalkan", order.OrderID)
		return
	}
	log.Printf("[INFO] order %d dijadwalkan untuk diproses", order.OrderID)
	if err := h.Queue.Publish(c.UserContext(), queue.ProcessMessage{
		Content: json.RawMessage(content),
		EventID: order.OrderWebhookEventID.String(),
		IsRetry: false,
	}); err != nil {
		// Order tinggal di status new; reconciliation tidak menyapu new,
		// tapi delivery Shopify berikutnya (at-least-once) akan menjadwalkan
		// ulang.
		log.Printf("[ERROR] gagal enqueue order %d: %v", order.OrderID, err)
	}
}
