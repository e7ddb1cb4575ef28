package service

import (
	"context"
	"fmt"
	"testing"

	dto "github.com/misterVKLN/shopify-webhook/internals/features/webhooks/dto"
	model "github.com/misterVKLN/shopify-webhook/internals/features/webhooks/model"
	"github.com/misterVKLN/shopify-webhook/internals/queue"
)

// syncPublisher menjalankan handler langsung di goroutine pemanggil,
// supaya sweep bisa di-assert tanpa worker pool.
type syncPublisher struct {
	handler queue.Handler
	count   int
}

func (p *syncPublisher) Publish(ctx context.Context, msg queue.ProcessMessage) error {
	p.count++
	p.handler(ctx, msg)
	return nil
}

func TestReconcileResumesFailedOrder(t *testing.T) {
	svc, gw, _, _ := newTestService(t)
	ctx := context.Background()

	body := `{"id":4004,"customer":{"email":"f@x.com","first_name":"F","last_name":"Q"},"tags":"","line_items":[{"sku":"course-v1:Org+One+Run","variant_title":""},{"sku":"course-v1:Org+Two+Run","variant_title":""}]}`
	p := decodeCreate(t, body)
	ev := newEvent(t, svc, body)
	order, _, err := svc.RecordOrder(ev, p)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Store.MarkFinished(ev); err != nil {
		t.Fatal(err)
	}

	// Attempt pertama lewat worker: gateway item kedua down → order error.
	gw.failOn["course-v1:Org+Two+Run"] = fmt.Errorf("HTTP 502")
	svc.HandleMessage(ctx, queue.ProcessMessage{Content: []byte(body)})

	var got model.OrderModel
	svc.DB.First(&got, "order_id = ?", order.OrderID)
	if got.OrderStatus != model.OrderStatusError {
		t.Fatalf("order status = %s, mau error setelah gateway gagal", got.OrderStatus)
	}

	// Gateway pulih, sweep jalan.
	gw.failOn = map[string]error{}
	pub := &syncPublisher{handler: svc.HandleMessage}
	rec := NewReconcileService(svc.DB, pub)
	rec.RetryFailed(ctx)

	if pub.count != 1 {
		t.Fatalf("sweep enqueue %d pesan, mau 1", pub.count)
	}
	svc.DB.First(&got, "order_id = ?", order.OrderID)
	if got.OrderStatus != model.OrderStatusProcessed {
		t.Fatalf("order status = %s, mau processed setelah sweep", got.OrderStatus)
	}

	// Resume cuma ngerjain item yang belum beres: total enroll tetap 2.
	if len(gw.calls) != 2 {
		t.Fatalf("total enroll = %d, mau 2", len(gw.calls))
	}
}

func TestReconcileReplaysFailedEvent(t *testing.T) {
	svc, gw, _, _ := newTestService(t)
	ctx := context.Background()

	ev := newEvent(t, svc, createBody)
	p := decodeCreate(t, createBody)
	if _, _, err := svc.RecordOrder(ev, p); err != nil {
		t.Fatal(err)
	}
	// Event-nya sendiri nyangkut di error (mis. crash sebelum handler selesai).
	if err := svc.Store.MarkFailed(ev); err != nil {
		t.Fatal(err)
	}

	pub := &syncPublisher{handler: svc.HandleMessage}
	rec := NewReconcileService(svc.DB, pub)
	rec.RetryFailed(ctx)

	if pub.count != 1 {
		t.Fatalf("sweep enqueue %d pesan, mau 1", pub.count)
	}

	var order model.OrderModel
	svc.DB.First(&order, "order_id = ?", p.ID)
	if order.OrderStatus != model.OrderStatusProcessed {
		t.Fatalf("order status = %s, mau processed", order.OrderStatus)
	}
	if len(gw.calls) != 1 {
		t.Fatalf("enroll = %d, mau 1", len(gw.calls))
	}

	// is_retry=true → event ikut ditandai processed oleh state machine.
	var gotEv model.WebhookEventModel
	svc.DB.First(&gotEv, "webhook_event_id = ?", ev.WebhookEventID)
	if gotEv.WebhookEventStatus != model.WebhookEventStatusProcessed {
		t.Fatalf("event status = %s, mau processed", gotEv.WebhookEventStatus)
	}
}

func TestReconcileRebuildsOrderFromFailedEvent(t *testing.T) {
	svc, gw, _, _ := newTestService(t)
	ctx := context.Background()

	// Delivery gagal di checks: raw event error dengan content valid,
	// TANPA row order — satu-satunya jejak adalah event-nya.
	ev := newEvent(t, svc, createBody)
	if err := svc.Store.MarkFailed(ev); err != nil {
		t.Fatal(err)
	}

	pub := &syncPublisher{handler: svc.HandleMessage}
	rec := NewReconcileService(svc.DB, pub)
	rec.RetryFailed(ctx)

	if pub.count != 1 {
		t.Fatalf("sweep enqueue %d pesan, mau 1", pub.count)
	}

	// Order direkonstruksi dari content event, lalu diproses sampai habis.
	var order model.OrderModel
	if err := svc.DB.First(&order, "order_id = ?", 1001).Error; err != nil {
		t.Fatalf("order tidak direkonstruksi: %v", err)
	}
	if order.OrderStatus != model.OrderStatusProcessed {
		t.Fatalf("order status = %s, mau processed", order.OrderStatus)
	}
	if order.OrderWebhookEventID != ev.WebhookEventID {
		t.Fatalf("order nunjuk event %s, mau %s", order.OrderWebhookEventID, ev.WebhookEventID)
	}
	if len(gw.calls) != 1 {
		t.Fatalf("enroll = %d, mau 1", len(gw.calls))
	}

	// Event keluar dari status error — sweep berikutnya tidak mungut lagi.
	var gotEv model.WebhookEventModel
	svc.DB.First(&gotEv, "webhook_event_id = ?", ev.WebhookEventID)
	if gotEv.WebhookEventStatus != model.WebhookEventStatusProcessed {
		t.Fatalf("event status = %s, mau processed", gotEv.WebhookEventStatus)
	}

	pub.count = 0
	rec.RetryFailed(ctx)
	if pub.count != 0 {
		t.Fatalf("sweep kedua masih enqueue %d pesan", pub.count)
	}
}

func TestReconcileRebuildsCancellationFromFailedEvent(t *testing.T) {
	svc, gw, _, com := newTestService(t)
	ctx := context.Background()
	com.email = "h@x.com"
	com.skus = []string{"course-v1:Org+One+Run"}

	// Event cancel yang gagal checks: content masih payload mentah
	// (belum dinormalisasi), tidak ada order.
	cancelBody := `{"customerId":"gid://shopify/Customer/55","occurredAt":"2024-08-01T00:00:00Z"}`
	ev := newEvent(t, svc, cancelBody)
	if err := svc.Store.MarkFailed(ev); err != nil {
		t.Fatal(err)
	}

	pub := &syncPublisher{handler: svc.HandleMessage}
	rec := NewReconcileService(svc.DB, pub)
	rec.RetryFailed(ctx)

	cp, _ := dto.DecodeOrderCancel([]byte(cancelBody))
	var order model.OrderModel
	if err := svc.DB.First(&order, "order_id = ?", cp.OccurredAt.UnixMilli()).Error; err != nil {
		t.Fatalf("cancellation order tidak direkonstruksi: %v", err)
	}
	if order.OrderStatus != model.OrderStatusProcessed {
		t.Fatalf("order status = %s, mau processed", order.OrderStatus)
	}
	if len(gw.calls) != 1 || gw.calls[0].action != "unenroll" {
		t.Fatalf("calls = %+v, mau tepat satu unenroll", gw.calls)
	}

	// Normalisasi ditulis balik ke event, jadi replay berikutnya (kalau ada)
	// ambil jalur payload lengkap.
	var gotEv model.WebhookEventModel
	svc.DB.First(&gotEv, "webhook_event_id = ?", ev.WebhookEventID)
	if rp, err := dto.DecodeOrderProcess(gotEv.WebhookEventContent); err != nil || !rp.SubscriptionCancellation {
		t.Fatalf("content event tidak dinormalisasi: %v %v", rp, err)
	}
}

func TestReconcileSkipsEventWithoutContent(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	// Body bukan JSON → Ingest nandain error tanpa content.
	if _, err := svc.Store.Ingest(map[string][]string{}, []byte("rusak total"), "10.0.0.1"); err == nil {
		t.Fatal("ingest body rusak harusnya error")
	}

	pub := &syncPublisher{handler: func(context.Context, queue.ProcessMessage) {}}
	rec := NewReconcileService(svc.DB, pub)
	rec.RetryFailed(ctx)

	if pub.count != 0 {
		t.Fatalf("event tanpa content ikut di-enqueue (%d pesan)", pub.count)
	}
}

// Sanity: content hasil normalisasi cancellation harus bisa dipakai ulang
// oleh jalur worker yang sama.
func TestWorkerHandlesNormalizedCancellation(t *testing.T) {
	svc, gw, _, com := newTestService(t)
	ctx := context.Background()
	com.email = "g@x.com"
	com.skus = []string{"course-v1:Org+One+Run"}

	cancelBody := `{"customerId":"gid://shopify/Customer/99","occurredAt":"2024-07-01T00:00:00Z"}`
	ev := newEvent(t, svc, cancelBody)
	cp, _ := dto.DecodeOrderCancel([]byte(cancelBody))
	order, _, _, err := svc.RecordCancellationOrder(ctx, ev, cp)
	if err != nil {
		t.Fatal(err)
	}

	var gotEv model.WebhookEventModel
	svc.DB.First(&gotEv, "webhook_event_id = ?", ev.WebhookEventID)
	svc.HandleMessage(ctx, queue.ProcessMessage{Content: []byte(gotEv.WebhookEventContent)})

	var got model.OrderModel
	svc.DB.First(&got, "order_id = ?", order.OrderID)
	if got.OrderStatus != model.OrderStatusProcessed {
		t.Fatalf("order status = %s, mau processed", got.OrderStatus)
	}
	if len(gw.calls) != 1 || gw.calls[0].action != "unenroll" {
		t.Fatalf("calls = %+v, mau tepat satu unenroll", gw.calls)
	}
}
