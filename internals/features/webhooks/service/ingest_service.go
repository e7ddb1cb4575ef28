// file: internals/features/webhooks/service/ingest_service.go
package service

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	model "github.com/misterVKLN/shopify-webhook/internals/features/webhooks/model"
)

// WebhookStore = raw event store. Aturan utamanya: payload masuk HARUS
// sudah ke-persist sebelum divalidasi apa pun, supaya tidak ada delivery
// yang hilang walau validasi gagal (bisa di-replay manual).
type WebhookStore struct {
	DB *gorm.DB
}

func NewWebhookStore(db *gorm.DB) *WebhookStore {
	return &WebhookStore{DB: db}
}

// Ingest: simpan row status new → transisi ke processing → decode body.
// Decode gagal → status error dicommit dulu, baru ErrMalformedPayload
// dikembalikan.
func (s *WebhookStore) Ingest(headers map[string][]string, body []byte, source string) (*model.WebhookEventModel, error) {
	headerJSON, err := json.Marshal(headers)
	if err != nil {
		headerJSON = []byte("{}")
	}

	event := &model.WebhookEventModel{
		WebhookEventHeaders:    datatypes.JSON(headerJSON),
		WebhookEventBody:       body,
		WebhookEventStatus:     model.WebhookEventStatusNew,
		WebhookEventReceivedAt: time.Now().UTC(),
	}
	if source != "" {
		event.WebhookEventSource = &source
	} else {
		log.Printf("[WARN] source IP webhook tidak kebaca")
	}
	if err := s.DB.Create(event).Error; err != nil {
		return nil, fmt.Errorf("simpan webhook event: %w", err)
	}

	if err := s.transition(event, model.WebhookEventStatusNew, model.WebhookEventStatusProcessing); err != nil {
		return event, err
	}

	// Validasi JSON tanpa interpretasi isi — interpretasi urusan state
	// machine order.
	if !json.Valid(body) {
		if err := s.MarkFailed(event); err != nil {
			log.Printf("[ERROR] gagal tandai event %s error: %v", event.WebhookEventID, err)
		}
		return event, ErrMalformedPayload
	}
	event.WebhookEventContent = datatypes.JSON(body)
	if err := s.DB.Model(&model.WebhookEventModel{}).
		Where("webhook_event_id = ?", event.WebhookEventID).
		Updates(map[string]interface{}{
			"webhook_event_content":    event.WebhookEventContent,
			"webhook_event_updated_at": time.Now().UTC(),
		}).Error; err != nil {
		return event, fmt.Errorf("simpan content webhook event: %w", err)
	}

	return event, nil
}

// MarkFailed / MarkFinished: update status tunggal, tidak ada efek samping lain.
func (s *WebhookStore) MarkFailed(event *model.WebhookEventModel) error {
	return s.setStatus(event, model.WebhookEventStatusError)
}

func (s *WebhookStore) MarkFinished(event *model.WebhookEventModel) error {
	return s.setStatus(event, model.WebhookEventStatusProcessed)
}

// ReplaceContent dipakai jalur cancellation: content dinormalisasi ulang
// (id sintetis + line_items) lalu disimpan supaya replay reconciliation
// dapat payload lengkap, bukan payload cancel mentah.
func (s *WebhookStore) ReplaceContent(event *model.WebhookEventModel, content []byte) error {
	event.WebhookEventContent = datatypes.JSON(content)
	return s.DB.Model(&model.WebhookEventModel{}).
		Where("webhook_event_id = ?", event.WebhookEventID).
		Updates(map[string]interface{}{
			"webhook_event_content":    event.WebhookEventContent,
			"webhook_event_updated_at": time.Now().UTC(),
		}).Error
}

func (s *WebhookStore) setStatus(event *model.WebhookEventModel, to model.WebhookEventStatus) error {
	if err := s.DB.Model(&model.WebhookEventModel{}).
		Where("webhook_event_id = ?", event.WebhookEventID).
		Updates(map[string]interface{}{
			"webhook_event_status":     to,
			"webhook_event_updated_at": time.Now().UTC(),
		}).Error; err != nil {
		return err
	}
	event.WebhookEventStatus = to
	return nil
}

// transition = CAS: update hanya kalau status sumber masih sesuai.
func (s *WebhookStore) transition(event *model.WebhookEventModel, from, to model.WebhookEventStatus) error {
	res := s.DB.Model(&model.WebhookEventModel{}).
		Where("webhook_event_id = ? AND webhook_event_status = ?", event.WebhookEventID, from).
		Updates(map[string]interface{}{
			"webhook_event_status":     to,
			"webhook_event_updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTransitionConflict
	}
	event.WebhookEventStatus = to
	return nil
}
