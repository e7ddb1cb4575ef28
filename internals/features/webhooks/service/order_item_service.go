// file: internals/features/webhooks/service/order_item_service.go
package service

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"time"

	dto "github.com/misterVKLN/shopify-webhook/internals/features/webhooks/dto"
	model "github.com/misterVKLN/shopify-webhook/internals/features/webhooks/model"
)

// SKU harus berbentuk course id Open edX supaya bisa di-enroll.
var courseIDRegex = regexp.MustCompile(`^course-v1:[^/]+`)

// lookupCourseID: resolve SKU → course id. Gagal resolve BUKAN error Go —
// hasil kosong; keputusan (error vs processed) tergantung cancellation
// atau bukan, di pemanggil.
func (s *OrderService) lookupCourseID(ctx context.Context, sku string) string {
	if sku == "" {
		log.Printf("[ERROR] line item tanpa sku; set course id yang benar sebagai sku. Abaikan kalau ini subscription purchase.")
		return ""
	}
	if !courseIDRegex.MatchString(sku) {
		log.Printf("[ERROR] sku %q bukan format course id yang valid", sku)
		return ""
	}
	if err := s.Catalog.CourseExists(ctx, sku); err != nil {
		log.Printf("[ERROR] course %q tidak ditemukan di LMS: %v", sku, err)
		return ""
	}
	return sku
}

// processLineItem: state machine per item.
//   - processed → no-op
//   - processing → warning, tetap lanjut (best-effort re-attempt pasca crash;
//     risiko at-least-once di sisi gateway diterima)
//   - selainnya → CAS ke processing dulu, BARU manggil gateway — status
//     processing harus sudah durable sebelum efek samping apa pun
func (s *OrderService) processLineItem(ctx context.Context, order *model.OrderModel, itemPayload dto.OrderLineItem, isCancellation bool) (*model.OrderItemModel, error) {
	attrs := model.OrderItemModel{
		OrderItemOrderID:   order.OrderID,
		OrderItemSku:       itemPayload.Sku,
		OrderItemEmail:     order.OrderEmail,
		OrderItemStatus:    model.OrderItemStatusNew,
		OrderItemCreatedAt: time.Now().UTC(),
		OrderItemUpdatedAt: time.Now().UTC(),
	}
	if itemPayload.VariantTitle != "" {
		attrs.OrderItemMode = &itemPayload.VariantTitle
	}

	var item model.OrderItemModel
	res := s.DB.Where(
		"order_item_order_id = ? AND order_item_sku = ? AND order_item_email = ?",
		order.OrderID, itemPayload.Sku, order.OrderEmail,
	).Attrs(attrs).FirstOrCreate(&item)
	if res.Error != nil {
		return nil, fmt.Errorf("get-or-create order item (%d,%q): %w", order.OrderID, itemPayload.Sku, res.Error)
	}

	switch item.OrderItemStatus {
	case model.OrderItemStatusProcessed:
		log.Printf("[WARN] item %s sudah processed, diabaikan", item.OrderItemID)
		return &item, nil
	case model.OrderItemStatusProcessing:
		log.Printf("[WARN] item %s masih processing, dicoba lagi", item.OrderItemID)
	default:
		if err := s.transitionItem(&item, item.OrderItemStatus, model.OrderItemStatusProcessing); err != nil {
			return nil, err
		}
	}

	courseID := s.lookupCourseID(ctx, itemPayload.Sku)

	switch {
	case courseID != "":
		if err := s.setItemCourseID(&item, courseID); err != nil {
			return nil, err
		}
		mode := ""
		if item.OrderItemMode != nil {
			mode = *item.OrderItemMode
		}
		if isCancellation {
			if err := s.Enrollment.Unenroll(ctx, courseID, item.OrderItemEmail); err != nil {
				// Error gateway dilempar ke atas SETELAH status processing
				// durable — order-level loop abort, item bisa diresume.
				return nil, err
			}
		} else {
			if err := s.Enrollment.Enroll(ctx, courseID, item.OrderItemEmail, mode); err != nil {
				return nil, err
			}
		}
		if err := s.transitionItem(&item, model.OrderItemStatusProcessing, model.OrderItemStatusProcessed); err != nil {
			return nil, err
		}

	case isCancellation:
		// Tidak ada yang perlu di-unenroll — untuk cancellation itu bukan
		// kegagalan.
		if err := s.transitionItem(&item, model.OrderItemStatusProcessing, model.OrderItemStatusProcessed); err != nil {
			return nil, err
		}

	default:
		// SKU tidak ke-resolve dan bukan cancellation: terminal error di item,
		// TANPA error return — order pass jalan terus.
		if err := s.transitionItem(&item, model.OrderItemStatusProcessing, model.OrderItemStatusError); err != nil {
			return nil, err
		}
	}

	return &item, nil
}

func (s *OrderService) transitionItem(item *model.OrderItemModel, from, to model.OrderItemStatus) error {
	res := s.DB.Model(&model.OrderItemModel{}).
		Where("order_item_id = ? AND order_item_status = ?", item.OrderItemID, from).
		Updates(map[string]interface{}{
			"order_item_status":     to,
			"order_item_updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		log.Printf("[WARN] transisi item %s %s→%s kalah race", item.OrderItemID, from, to)
		return ErrTransitionConflict
	}
	item.OrderItemStatus = to
	return nil
}

func (s *OrderService) setItemCourseID(item *model.OrderItemModel, courseID string) error {
	item.OrderItemCourseID = &courseID
	return s.DB.Model(&model.OrderItemModel{}).
		Where("order_item_id = ?", item.OrderItemID).
		Updates(map[string]interface{}{
			"order_item_course_id":  courseID,
			"order_item_updated_at": time.Now().UTC(),
		}).Error
}
