// file: internals/features/webhooks/model/webhook_event_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

/*
  webhook_events = LOG MENTAH WEBHOOK SHOPIFY
  - Satu row per delivery (duplikat delivery = row baru, dedup terjadi di level order).
  - Nyimpen raw headers, body, source IP, status processing (buat audit / replay).
  - Row TIDAK pernah dihapus: ini sumber data reconciliation sweep.
*/

type WebhookEventModel struct {
	WebhookEventID uuid.UUID `gorm:"column:webhook_event_id;type:uuid;primaryKey" json:"webhook_event_id"`

	// Raw data persis seperti diterima
	WebhookEventHeaders datatypes.JSON `gorm:"column:webhook_event_headers;type:jsonb" json:"webhook_event_headers"`
	WebhookEventBody    []byte         `gorm:"column:webhook_event_body" json:"webhook_event_body"`

	// Hasil parse JSON; null sampai decode sukses. Untuk cancellation event
	// isinya di-normalisasi ulang (id sintetis + line_items hasil lookup)
	// supaya replay dari reconciliation tetap jalan.
	WebhookEventContent datatypes.JSON `gorm:"column:webhook_event_content;type:jsonb" json:"webhook_event_content"`

	WebhookEventSource *string `gorm:"column:webhook_event_source" json:"webhook_event_source"`

	WebhookEventStatus WebhookEventStatus `gorm:"column:webhook_event_status;not null;default:'new'" json:"webhook_event_status"`

	WebhookEventReceivedAt time.Time `gorm:"column:webhook_event_received_at;not null" json:"webhook_event_received_at"`
	WebhookEventUpdatedAt  time.Time `gorm:"column:webhook_event_updated_at;not null" json:"webhook_event_updated_at"`
}

func (WebhookEventModel) TableName() string {
	return "webhook_events"
}

func (m *WebhookEventModel) BeforeCreate(tx *gorm.DB) error {
	if m.WebhookEventID == uuid.Nil {
		m.WebhookEventID = uuid.New()
	}
	if m.WebhookEventReceivedAt.IsZero() {
		m.WebhookEventReceivedAt = time.Now().UTC()
	}
	if m.WebhookEventUpdatedAt.IsZero() {
		m.WebhookEventUpdatedAt = time.Now().UTC()
	}
	return nil
}
