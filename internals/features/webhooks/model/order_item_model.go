// file: internals/features/webhooks/model/order_item_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/*
  shopify_order_items = UNIT ENROLLMENT
  - Identitas unik (order, sku, email); satu item = satu aksi enroll/unenroll.
  - Dimutasi hanya oleh state machine item, tidak pernah dihapus.
*/

type OrderItemModel struct {
	OrderItemID uuid.UUID `gorm:"column:order_item_id;type:uuid;primaryKey" json:"order_item_id"`

	OrderItemOrderID int64  `gorm:"column:order_item_order_id;not null;uniqueIndex:idx_order_item_identity" json:"order_item_order_id"`
	OrderItemSku     string `gorm:"column:order_item_sku;not null;uniqueIndex:idx_order_item_identity" json:"order_item_sku"`
	OrderItemEmail   string `gorm:"column:order_item_email;not null;uniqueIndex:idx_order_item_identity" json:"order_item_email"`

	// Course id hasil resolve dari SKU; null selama belum/tidak ke-resolve
	OrderItemCourseID *string `gorm:"column:order_item_course_id" json:"order_item_course_id"`

	// variant_title dari Shopify → course mode (honor/verified/...)
	OrderItemMode *string `gorm:"column:order_item_mode" json:"order_item_mode"`

	OrderItemStatus OrderItemStatus `gorm:"column:order_item_status;not null;default:'new';index" json:"order_item_status"`

	OrderItemCreatedAt time.Time `gorm:"column:order_item_created_at;not null" json:"order_item_created_at"`
	OrderItemUpdatedAt time.Time `gorm:"column:order_item_updated_at;not null" json:"order_item_updated_at"`
}

func (OrderItemModel) TableName() string {
	return "shopify_order_items"
}

func (m *OrderItemModel) BeforeCreate(tx *gorm.DB) error {
	if m.OrderItemID == uuid.Nil {
		m.OrderItemID = uuid.New()
	}
	now := time.Now().UTC()
	if m.OrderItemCreatedAt.IsZero() {
		m.OrderItemCreatedAt = now
	}
	if m.OrderItemUpdatedAt.IsZero() {
		m.OrderItemUpdatedAt = now
	}
	return nil
}
