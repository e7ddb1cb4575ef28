// file: internals/features/webhooks/controller/webhook_admin_controller.go
package controller

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	dto "github.com/misterVKLN/shopify-webhook/internals/features/webhooks/dto"
	model "github.com/misterVKLN/shopify-webhook/internals/features/webhooks/model"
	service "github.com/misterVKLN/shopify-webhook/internals/features/webhooks/service"
	helper "github.com/misterVKLN/shopify-webhook/internals/helpers"
)

/* =======================================================================
   Controller admin/operator: inspeksi raw event + order, trigger retry.
======================================================================= */

type WebhookAdminController struct {
	DB        *gorm.DB
	Reconcile *service.ReconcileService
}

func NewWebhookAdminController(db *gorm.DB, reconcile *service.ReconcileService) *WebhookAdminController {
	return &WebhookAdminController{DB: db, Reconcile: reconcile}
}

/* =======================================================================
   List webhook events (filter + pagination)
   Query params:
     - status: new|processing|processed|error
     - page (default 1), limit (default 20, max 200)
======================================================================= */

func (h *WebhookAdminController) ListEvents(c *fiber.Ctx) error {
	db := h.DB.Model(&model.WebhookEventModel{})

	if s := strings.TrimSpace(c.Query("status")); s != "" {
		db = db.Where("webhook_event_status = ?", strings.ToLower(s))
	}

	page := clampInt(queryInt(c, "page", 1), 1, 1_000_000)
	limit := clampInt(queryInt(c, "limit", 20), 1, 200)
	offset := (page - 1) * limit

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	var rows []model.WebhookEventModel
	if err := db.Order("webhook_event_received_at DESC").
		Limit(limit).Offset(offset).
		Find(&rows).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	out := make([]*dto.WebhookEventResponse, 0, len(rows))
	for i := range rows {
		out = append(out, dto.FromModelWebhookEvent(&rows[i]))
	}

	return c.JSON(fiber.Map{
		"page":  page,
		"limit": limit,
		"total": total,
		"data":  out,
	})
}

func (h *WebhookAdminController) ListOrders(c *fiber.Ctx) error {
	db := h.DB.Model(&model.OrderModel{})

	if s := strings.TrimSpace(c.Query("status")); s != "" {
		db = db.Where("order_status = ?", strings.ToLower(s))
	}
	if q := strings.TrimSpace(c.Query("email")); q != "" {
		// LOWER + LIKE, bukan ILIKE, biar jalan juga di sqlite (test).
		db = db.Where("LOWER(order_email) LIKE LOWER(?)", "%"+q+"%")
	}

	page := clampInt(queryInt(c, "page", 1), 1, 1_000_000)
	limit := clampInt(queryInt(c, "limit", 20), 1, 200)
	offset := (page - 1) * limit

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	var rows []model.OrderModel
	if err := db.Order("order_created_at DESC").
		Limit(limit).Offset(offset).
		Find(&rows).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	out := make([]*dto.OrderResponse, 0, len(rows))
	for i := range rows {
		out = append(out, dto.FromModelOrder(&rows[i]))
	}

	return c.JSON(fiber.Map{
		"page":  page,
		"limit": limit,
		"total": total,
		"data":  out,
	})
}

func (h *WebhookAdminController) ListOrderItems(c *fiber.Ctx) error {
	orderID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	var order model.OrderModel
	if err := h.DB.First(&order, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	var rows []model.OrderItemModel
	if err := h.DB.Where("order_item_order_id = ?", orderID).
		Order("order_item_created_at ASC").
		Find(&rows).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	out := make([]*dto.OrderItemResponse, 0, len(rows))
	for i := range rows {
		out = append(out, dto.FromModelOrderItem(&rows[i]))
	}

	return c.JSON(fiber.Map{
		"order": dto.FromModelOrder(&order),
		"items": out,
	})
}

// TriggerReconcile: retry eksplisit dari operator — satu-satunya jalan
// record error balik diproses.
func (h *WebhookAdminController) TriggerReconcile(c *fiber.Ctx) error {
	h.Reconcile.RetryFailed(c.UserContext())
	return helper.Success(c, "reconcile sweep dijalankan", nil)
}

/* =======================================================================
   Helpers
======================================================================= */

func queryInt(c *fiber.Ctx, key string, def int) int {
	if v := c.Query(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
