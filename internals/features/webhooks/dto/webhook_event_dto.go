// file: internals/features/webhooks/dto/webhook_event_dto.go
package dto

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	model "github.com/misterVKLN/shopify-webhook/internals/features/webhooks/model"
)

/* =========================================================
   Response admin (list / detail) — body mentah tidak ikut,
   cukup content hasil parse.
========================================================= */

type WebhookEventResponse struct {
	WebhookEventID         uuid.UUID                `json:"webhook_event_id"`
	WebhookEventContent    datatypes.JSON           `json:"webhook_event_content"`
	WebhookEventSource     *string                  `json:"webhook_event_source"`
	WebhookEventStatus     model.WebhookEventStatus `json:"webhook_event_status"`
	WebhookEventReceivedAt time.Time                `json:"webhook_event_received_at"`
}

func FromModelWebhookEvent(m *model.WebhookEventModel) *WebhookEventResponse {
	return &WebhookEventResponse{
		WebhookEventID:         m.WebhookEventID,
		WebhookEventContent:    m.WebhookEventContent,
		WebhookEventSource:     m.WebhookEventSource,
		WebhookEventStatus:     m.WebhookEventStatus,
		WebhookEventReceivedAt: m.WebhookEventReceivedAt,
	}
}

type OrderResponse struct {
	OrderID             int64             `json:"order_id"`
	OrderWebhookEventID uuid.UUID         `json:"order_webhook_event_id"`
	OrderEmail          string            `json:"order_email"`
	OrderStatus         model.OrderStatus `json:"order_status"`
	OrderCreatedAt      time.Time         `json:"order_created_at"`
}

func FromModelOrder(m *model.OrderModel) *OrderResponse {
	return &OrderResponse{
		OrderID:             m.OrderID,
		OrderWebhookEventID: m.OrderWebhookEventID,
		OrderEmail:          m.OrderEmail,
		OrderStatus:         m.OrderStatus,
		OrderCreatedAt:      m.OrderCreatedAt,
	}
}

type OrderItemResponse struct {
	OrderItemID       uuid.UUID             `json:"order_item_id"`
	OrderItemOrderID  int64                 `json:"order_item_order_id"`
	OrderItemSku      string                `json:"order_item_sku"`
	OrderItemEmail    string                `json:"order_item_email"`
	OrderItemCourseID *string               `json:"order_item_course_id"`
	OrderItemMode     *string               `json:"order_item_mode"`
	OrderItemStatus   model.OrderItemStatus `json:"order_item_status"`
}

func FromModelOrderItem(m *model.OrderItemModel) *OrderItemResponse {
	return &OrderItemResponse{
		OrderItemID:       m.OrderItemID,
		OrderItemOrderID:  m.OrderItemOrderID,
		OrderItemSku:      m.OrderItemSku,
		OrderItemEmail:    m.OrderItemEmail,
		OrderItemCourseID: m.OrderItemCourseID,
		OrderItemMode:     m.OrderItemMode,
		OrderItemStatus:   m.OrderItemStatus,
	}
}
