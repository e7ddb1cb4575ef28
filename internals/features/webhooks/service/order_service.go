// file: internals/features/webhooks/service/order_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	dto "github.com/misterVKLN/shopify-webhook/internals/features/webhooks/dto"
	model "github.com/misterVKLN/shopify-webhook/internals/features/webhooks/model"
)

/* =========================================================
   Kolaborator eksternal (cukup kontraknya saja di sini)
========================================================= */

// CustomerLookup: Shopify Admin API — resolve customer → email + SKU
// yang pernah dibeli (dipakai jalur cancellation saja).
type CustomerLookup interface {
	CustomerEmail(ctx context.Context, customerID string) (string, error)
	CustomerOrderSKUs(ctx context.Context, customerID string) ([]string, error)
}

// EnrollmentGateway: Open edX bulk enrollment.
type EnrollmentGateway interface {
	Enroll(ctx context.Context, courseID, email, mode string) error
	Unenroll(ctx context.Context, courseID, email string) error
}

// CourseCatalog: konfirmasi course id beneran ada di LMS.
type CourseCatalog interface {
	CourseExists(ctx context.Context, courseID string) error
}

/* =========================================================
   Order State Machine
========================================================= */

type OrderService struct {
	DB         *gorm.DB
	Store      *WebhookStore
	Commerce   CustomerLookup
	Enrollment EnrollmentGateway
	Catalog    CourseCatalog
}

func NewOrderService(db *gorm.DB, store *WebhookStore, commerce CustomerLookup, gateway EnrollmentGateway, catalog CourseCatalog) *OrderService {
	return &OrderService{
		DB:         db,
		Store:      store,
		Commerce:   commerce,
		Enrollment: gateway,
		Catalog:    catalog,
	}
}

// RecordOrder: get-or-create order dari payload orders/create.
// Duplicate delivery dengan id sama tidak bikin row kedua.
func (s *OrderService) RecordOrder(event *model.WebhookEventModel, p *dto.OrderProcessPayload) (*model.OrderModel, bool, error) {
	attrs := model.OrderModel{
		OrderWebhookEventID: event.WebhookEventID,
		OrderEmail:          p.CustomerEmail(),
		OrderStatus:         model.OrderStatusNew,
		OrderCreatedAt:      time.Now().UTC(),
		OrderUpdatedAt:      time.Now().UTC(),
	}
	if p.Customer != nil {
		if p.Customer.FirstName != "" {
			attrs.OrderFirstName = &p.Customer.FirstName
		}
		if p.Customer.LastName != "" {
			attrs.OrderLastName = &p.Customer.LastName
		}
	}

	var order model.OrderModel
	res := s.DB.Where("order_id = ?", p.ID).
		Attrs(attrs).
		FirstOrCreate(&order, model.OrderModel{OrderID: p.ID})
	if res.Error != nil {
		return nil, false, fmt.Errorf("get-or-create order %d: %w", p.ID, res.Error)
	}
	created := res.RowsAffected > 0
	return &order, created, nil
}

// RecordCancellationOrder: payload cancel tidak bawa order id maupun line
// items, jadi keduanya disintesis — id dari occurredAt (ms epoch), line items
// dari daftar SKU yang pernah dibeli customer (lookup Admin API). Content
// hasil sintesis ditulis balik ke webhook event supaya bisa di-replay.
func (s *OrderService) RecordCancellationOrder(ctx context.Context, event *model.WebhookEventModel, p *dto.OrderCancelPayload) (*model.OrderModel, bool, *dto.OrderProcessPayload, error) {
	email, err := s.Commerce.CustomerEmail(ctx, p.CustomerID)
	if err != nil {
		return nil, false, nil, fmt.Errorf("lookup email customer %s: %w", p.CustomerID, err)
	}
	if email == "" {
		return nil, false, nil, fmt.Errorf("customer %s tidak punya email di Shopify", p.CustomerID)
	}

	skus, err := s.Commerce.CustomerOrderSKUs(ctx, p.CustomerID)
	if err != nil {
		// Partial result tetap dipakai (best effort); error total → stop.
		return nil, false, nil, fmt.Errorf("lookup SKU customer %s: %w", p.CustomerID, err)
	}

	normalized := &dto.OrderProcessPayload{
		ID:                       p.OccurredAt.UnixMilli(),
		Email:                    email,
		SubscriptionCancellation: true,
	}
	for _, sku := range skus {
		normalized.LineItems = append(normalized.LineItems, dto.OrderLineItem{Sku: sku})
	}

	raw, err := json.Marshal(normalized)
	if err != nil {
		return nil, false, nil, err
	}
	if err := s.Store.ReplaceContent(event, raw); err != nil {
		return nil, false, nil, fmt.Errorf("simpan content cancellation: %w", err)
	}

	var order model.OrderModel
	res := s.DB.Where("order_id = ?", normalized.ID).
		Attrs(model.OrderModel{
			OrderWebhookEventID:   event.WebhookEventID,
			OrderEmail:            email,
			OrderCancellationSkus: skus,
			OrderStatus:           model.OrderStatusNew,
			OrderCreatedAt:        time.Now().UTC(),
			OrderUpdatedAt:        time.Now().UTC(),
		}).
		FirstOrCreate(&order, model.OrderModel{OrderID: normalized.ID})
	if res.Error != nil {
		return nil, false, nil, fmt.Errorf("get-or-create cancellation order %d: %w", normalized.ID, res.Error)
	}
	return &order, res.RowsAffected > 0, normalized, nil
}

// Process = algoritma inti (lihat urutan di bawah). isRetry true hanya dari
// reconciliation sweep / operator.
//
//  1. processed → no-op
//  2. error     → lanjut hanya kalau isRetry (reset ke new)
//  3. != processing → CAS ke processing (kalah race = abort bersih)
//  4. proses semua line item; error item menggagalkan pass tanpa set error di order
//  5. semua item beres → CAS ke processed
//  6. isRetry && raw event belum processed → tandai processed
func (s *OrderService) Process(ctx context.Context, order *model.OrderModel, p *dto.OrderProcessPayload, isRetry bool) error {
	switch order.OrderStatus {
	case model.OrderStatusProcessed:
		log.Printf("[WARN] order %d sudah processed, diabaikan", order.OrderID)
		return nil
	case model.OrderStatusError:
		if !isRetry {
			log.Printf("[WARN] order %d pernah gagal, tunggu retry eksplisit", order.OrderID)
			return nil
		}
		if err := s.transitionOrder(order, model.OrderStatusError, model.OrderStatusNew); err != nil {
			return err
		}
	}

	if order.OrderStatus == model.OrderStatusProcessing {
		log.Printf("[WARN] order %d masih processing, dilanjutkan (resume)", order.OrderID)
	} else {
		// Attempt paralel di order yang sama bakal kalah CAS di sini dan
		// abort tanpa efek samping.
		if err := s.transitionOrder(order, order.OrderStatus, model.OrderStatusProcessing); err != nil {
			return err
		}
	}

	for _, item := range p.LineItems {
		// Error dari item (gateway / konflik) dilempar ke atas supaya order
		// tetap resumable; item yang sudah processed di-skip oleh state
		// machine item sendiri.
		if _, err := s.processLineItem(ctx, order, item, p.SubscriptionCancellation); err != nil {
			return err
		}
		log.Printf("[INFO] line item sku=%q order=%d beres", item.Sku, order.OrderID)
	}

	if err := s.transitionOrder(order, model.OrderStatusProcessing, model.OrderStatusProcessed); err != nil {
		return err
	}

	if isRetry {
		var event model.WebhookEventModel
		if err := s.DB.First(&event, "webhook_event_id = ?", order.OrderWebhookEventID).Error; err == nil {
			if event.WebhookEventStatus != model.WebhookEventStatusProcessed {
				if err := s.Store.MarkFinished(&event); err != nil {
					log.Printf("[ERROR] gagal tandai webhook event %s processed: %v", event.WebhookEventID, err)
				}
			}
		}
	}
	return nil
}

func (s *OrderService) transitionOrder(order *model.OrderModel, from, to model.OrderStatus) error {
	res := s.DB.Model(&model.OrderModel{}).
		Where("order_id = ? AND order_status = ?", order.OrderID, from).
		Updates(map[string]interface{}{
			"order_status":     to,
			"order_updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		log.Printf("[WARN] transisi order %d %s→%s kalah race", order.OrderID, from, to)
		return ErrTransitionConflict
	}
	order.OrderStatus = to
	return nil
}

// MarkOrderFailed dipanggil task boundary saat pass gagal karena dependensi
// eksternal, supaya reconciliation tahu mana yang perlu diulang.
func (s *OrderService) MarkOrderFailed(order *model.OrderModel) {
	if err := s.transitionOrder(order, order.OrderStatus, model.OrderStatusError); err != nil {
		log.Printf("[ERROR] gagal tandai order %d error: %v", order.OrderID, err)
	}
}
