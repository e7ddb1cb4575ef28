// file: internals/features/webhooks/model/order_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

/*
  shopify_orders = ORDER LEVEL BISNIS
  - ID ikut id numerik dari Shopify; untuk cancellation event (payload tanpa
    order id) dipakai occurredAt dalam millisecond epoch sebagai id sintetis.
  - Get-or-create by id → duplicate delivery tidak bikin row kedua.
*/

type OrderModel struct {
	OrderID int64 `gorm:"column:order_id;primaryKey;autoIncrement:false" json:"order_id"`

	// Referensi ke webhook event yang melahirkan order ini (satu event per order)
	OrderWebhookEventID uuid.UUID `gorm:"column:order_webhook_event_id;type:uuid;not null;index" json:"order_webhook_event_id"`

	OrderEmail     string  `gorm:"column:order_email;not null" json:"order_email"`
	OrderFirstName *string `gorm:"column:order_first_name" json:"order_first_name"`
	OrderLastName  *string `gorm:"column:order_last_name" json:"order_last_name"`

	// Audit: SKU hasil lookup Admin API saat cancellation (kosong untuk create)
	OrderCancellationSkus pq.StringArray `gorm:"column:order_cancellation_skus;type:text[]" json:"order_cancellation_skus"`

	OrderStatus OrderStatus `gorm:"column:order_status;not null;default:'new';index" json:"order_status"`

	OrderCreatedAt time.Time `gorm:"column:order_created_at;not null" json:"order_created_at"`
	OrderUpdatedAt time.Time `gorm:"column:order_updated_at;not null" json:"order_updated_at"`
}

func (OrderModel) TableName() string {
	return "shopify_orders"
}

func (m *OrderModel) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().UTC()
	if m.OrderCreatedAt.IsZero() {
		m.OrderCreatedAt = now
	}
	if m.OrderUpdatedAt.IsZero() {
		m.OrderUpdatedAt = now
	}
	return nil
}
