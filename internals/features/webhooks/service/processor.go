// file: internals/features/webhooks/service/processor.go
package service

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dto "github.com/misterVKLN/shopify-webhook/internals/features/webhooks/dto"
	model "github.com/misterVKLN/shopify-webhook/internals/features/webhooks/model"
	"github.com/misterVKLN/shopify-webhook/internals/metrics"
	"github.com/misterVKLN/shopify-webhook/internals/queue"
)

// HandleMessage = task boundary worker. Semua error berhenti di sini:
// dicatat, order ditandai error kalau perlu, sisanya urusan reconciliation.
func (s *OrderService) HandleMessage(ctx context.Context, msg queue.ProcessMessage) {
	p, err := dto.DecodeOrderProcess(msg.Content)
	if err != nil {
		// Replay event error bisa bawa payload cancel mentah (delivery yang
		// gagal checks tidak sempat dinormalisasi) — coba jalur cancel dulu.
		if msg.IsRetry {
			if cp, cerr := dto.DecodeOrderCancel(msg.Content); cerr == nil {
				s.retryCancellation(ctx, msg, cp)
				return
			}
		}
		log.Printf("[WORKER ERROR] payload tidak kebaca: %v", err)
		return
	}

	var order model.OrderModel
	if err := s.DB.First(&order, "order_id = ?", p.ID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[WORKER ERROR] ambil order %d: %v", p.ID, err)
			return
		}
		// Replay event error: order memang belum pernah ke-record (delivery
		// gagal di checks). Rekonstruksi dari event asalnya.
		if !msg.IsRetry {
			log.Printf("[WORKER ERROR] order %d tidak ditemukan", p.ID)
			return
		}
		event, ok := s.loadEvent(msg.EventID)
		if !ok {
			log.Printf("[WORKER ERROR] order %d tidak ditemukan dan event asal tidak kebaca", p.ID)
			return
		}
		rebuilt, _, rerr := s.RecordOrder(event, p)
		if rerr != nil {
			log.Printf("[WORKER ERROR] rekonstruksi order %d: %v", p.ID, rerr)
			return
		}
		order = *rebuilt
		log.Printf("[INFO] order %d direkonstruksi dari event %s", order.OrderID, event.WebhookEventID)
	}

	s.runPass(ctx, &order, p, msg.IsRetry)
}

// retryCancellation: event cancel yang nyangkut di error sebelum sempat
// dinormalisasi — ulangi normalisasi (lookup Admin API) lalu proses.
func (s *OrderService) retryCancellation(ctx context.Context, msg queue.ProcessMessage, cp *dto.OrderCancelPayload) {
	event, ok := s.loadEvent(msg.EventID)
	if !ok {
		log.Printf("[WORKER ERROR] replay cancel tanpa event asal, dilepas")
		return
	}
	order, _, normalized, err := s.RecordCancellationOrder(ctx, event, cp)
	if err != nil {
		log.Printf("[WORKER ERROR] rekonstruksi cancellation order: %v", err)
		return
	}
	s.runPass(ctx, order, normalized, msg.IsRetry)
}

func (s *OrderService) runPass(ctx context.Context, order *model.OrderModel, p *dto.OrderProcessPayload, isRetry bool) {
	if err := s.Process(ctx, order, p, isRetry); err != nil {
		if errors.Is(err, ErrTransitionConflict) {
			// Kalah race = transient; worker lain yang menang pass-nya.
			log.Printf("[WORKER WARN] order %d konflik transisi, pass dilepas", order.OrderID)
			return
		}
		log.Printf("[WORKER ERROR] order %d gagal diproses: %v", order.OrderID, err)
		metrics.OrdersFailed.Inc()
		s.MarkOrderFailed(order)
		return
	}
	metrics.OrdersProcessed.Inc()
}

func (s *OrderService) loadEvent(id string) (*model.WebhookEventModel, bool) {
	eventID, err := uuid.Parse(id)
	if err != nil {
		return nil, false
	}
	var event model.WebhookEventModel
	if err := s.DB.First(&event, "webhook_event_id = ?", eventID).Error; err != nil {
		return nil, false
	}
	return &event, true
}
