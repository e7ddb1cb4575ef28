// file: internals/features/webhooks/service/reconcile_service.go
package service

import (
	"context"
	"encoding/json"
	"log"

	"gorm.io/gorm"

	model "github.com/misterVKLN/shopify-webhook/internals/features/webhooks/model"
	"github.com/misterVKLN/shopify-webhook/internals/metrics"
	"github.com/misterVKLN/shopify-webhook/internals/queue"
)

// ReconcileService re-drive record yang nyangkut di status error.
// Idempoten: resubmit cuma enqueue ulang dengan is_retry=true, state machine
// yang menentukan apa yang masih perlu dikerjakan.
type ReconcileService struct {
	DB    *gorm.DB
	Queue queue.Publisher
}

func NewReconcileService(db *gorm.DB, q queue.Publisher) *ReconcileService {
	return &ReconcileService{DB: db, Queue: q}
}

// RetryFailed: semua webhook event error + semua order error di-enqueue ulang.
// Kegagalan per record dicatat dan sweep jalan terus — satu record busuk tidak
// boleh menghentikan sisanya.
func (s *ReconcileService) RetryFailed(ctx context.Context) {
	metrics.ReconcileRuns.Inc()

	var failedEvents []model.WebhookEventModel
	if err := s.DB.Where("webhook_event_status = ?", model.WebhookEventStatusError).
		Find(&failedEvents).Error; err != nil {
		log.Printf("[RECONCILE ERROR] ambil webhook event error: %v", err)
	} else {
		for i := range failedEvents {
			ev := &failedEvents[i]
			if len(ev.WebhookEventContent) == 0 {
				// Body-nya memang bukan JSON (malformed) — tidak bisa
				// di-replay otomatis, tunggu operator.
				log.Printf("[RECONCILE] event %s tanpa content, dilewati", ev.WebhookEventID)
				continue
			}
			if err := s.Queue.Publish(ctx, queue.ProcessMessage{
				Content: json.RawMessage(ev.WebhookEventContent),
				EventID: ev.WebhookEventID.String(),
				IsRetry: true,
			}); err != nil {
				log.Printf("[RECONCILE ERROR] enqueue event %s: %v", ev.WebhookEventID, err)
			}
		}
		log.Printf("[RECONCILE] %d webhook event error di-resubmit", len(failedEvents))
	}

	var failedOrders []model.OrderModel
	if err := s.DB.Where("order_status = ?", model.OrderStatusError).
		Find(&failedOrders).Error; err != nil {
		log.Printf("[RECONCILE ERROR] ambil order error: %v", err)
		return
	}
	for i := range failedOrders {
		o := &failedOrders[i]
		var event model.WebhookEventModel
		if err := s.DB.First(&event, "webhook_event_id = ?", o.OrderWebhookEventID).Error; err != nil {
			log.Printf("[RECONCILE ERROR] webhook event order %d tidak ketemu: %v", o.OrderID, err)
			continue
		}
		if len(event.WebhookEventContent) == 0 {
			log.Printf("[RECONCILE] order %d: event tanpa content, dilewati", o.OrderID)
			continue
		}
		if err := s.Queue.Publish(ctx, queue.ProcessMessage{
			Content: json.RawMessage(event.WebhookEventContent),
			EventID: event.WebhookEventID.String(),
			IsRetry: true,
		}); err != nil {
			log.Printf("[RECONCILE ERROR] enqueue order %d: %v", o.OrderID, err)
		}
	}
	log.Printf("[RECONCILE] %d order error di-resubmit", len(failedOrders))
}
