package controller

import (
	"bytes"
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/misterVKLN/shopify-webhook/internals/configs"
	model "github.com/misterVKLN/shopify-webhook/internals/features/webhooks/model"
	service "github.com/misterVKLN/shopify-webhook/internals/features/webhooks/service"
	"github.com/misterVKLN/shopify-webhook/internals/queue"
)

const (
	testShopDomain = "toko-test.myshopify.com"
	testAPIKey     = "rahasia-webhook"
)

/* =========================================================
   Fixtures: fiber app lengkap di atas sqlite, queue sinkron
   (worker dijalankan inline supaya hasil akhir bisa diassert
   langsung setelah app.Test).
========================================================= */

type inlineQueue struct {
	mu      sync.Mutex
	handler queue.Handler
	n       int
}

func (q *inlineQueue) Publish(ctx context.Context, msg queue.ProcessMessage) error {
	q.mu.Lock()
	q.n++
	q.mu.Unlock()
	q.handler(ctx, msg)
	return nil
}

type noopGateway struct {
	mu    sync.Mutex
	calls []string // "action course email mode"
}

func (g *noopGateway) Enroll(_ context.Context, courseID, email, mode string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "enroll "+courseID+" "+email+" "+mode)
	return nil
}

func (g *noopGateway) Unenroll(_ context.Context, courseID, email string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "unenroll "+courseID+" "+email)
	return nil
}

type okCatalog struct{}

func (okCatalog) CourseExists(context.Context, string) error { return nil }

type staticCommerce struct {
	email string
	skus  []string
}

func (c staticCommerce) CustomerEmail(context.Context, string) (string, error) {
	return c.email, nil
}
func (c staticCommerce) CustomerOrderSKUs(context.Context, string) ([]string, error) {
	return c.skus, nil
}

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
	gw  *noopGateway
	q   *inlineQueue
}

func newTestApp(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("buka sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.WebhookEventModel{}, &model.OrderModel{}, &model.OrderItemModel{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	gw := &noopGateway{}
	store := service.NewWebhookStore(db)
	orders := service.NewOrderService(db, store,
		staticCommerce{email: "cancel@x.com", skus: []string{"course-v1:Org+Old+Run"}},
		gw, okCatalog{})
	q := &inlineQueue{handler: orders.HandleMessage}

	settings := configs.ShopifySettings{
		ShopDomains: []string{testShopDomain},
		APIKey:      testAPIKey,
	}
	h := NewWebhookController(store, orders, q, settings)

	app := fiber.New()
	gr := app.Group("/webhooks/shopify/order")
	gr.Post("/create", h.OrderCreate)
	gr.Post("/cancel", h.OrderCancel)

	return &testEnv{app: app, db: db, gw: gw, q: q}
}

func (e *testEnv) post(t *testing.T, path, body string, mutate func(r *httptestRequest)) int {
	t.Helper()
	req := &httptestRequest{
		domain:    testShopDomain,
		signature: service.ComputeHMAC(testAPIKey, []byte(body)),
	}
	if mutate != nil {
		mutate(req)
	}

	r := httptest.NewRequest(fiber.MethodPost, path, bytes.NewReader([]byte(body)))
	r.Header.Set("Content-Type", "application/json")
	if req.domain != "" {
		r.Header.Set("X-Shopify-Shop-Domain", req.domain)
	}
	if req.signature != "" {
		r.Header.Set("X-Shopify-Hmac-Sha256", req.signature)
	}

	resp, err := e.app.Test(r, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp.StatusCode
}

type httptestRequest struct {
	domain    string
	signature string
}

const createBody = `{"id":1001,"customer":{"email":"a@x.com","first_name":"A","last_name":"X"},"tags":"","line_items":[{"sku":"course-v1:Org+Course+Run","variant_title":"verified"}]}`

func TestOrderCreateHappyPath(t *testing.T) {
	e := newTestApp(t)

	code := e.post(t, "/webhooks/shopify/order/create", createBody, nil)
	if code != fiber.StatusOK {
		t.Fatalf("status = %d, mau 200", code)
	}

	var order model.OrderModel
	if err := e.db.First(&order, "order_id = ?", 1001).Error; err != nil {
		t.Fatalf("order tidak ke-record: %v", err)
	}
	if order.OrderStatus != model.OrderStatusProcessed {
		t.Fatalf("order status = %s, mau processed", order.OrderStatus)
	}
	if len(e.gw.calls) != 1 || e.gw.calls[0] != "enroll course-v1:Org+Course+Run a@x.com verified" {
		t.Fatalf("gateway calls = %v", e.gw.calls)
	}

	var event model.WebhookEventModel
	e.db.First(&event)
	if event.WebhookEventStatus != model.WebhookEventStatusProcessed {
		t.Fatalf("event status = %s, mau processed", event.WebhookEventStatus)
	}
}

func TestOrderCreateDuplicateDelivery(t *testing.T) {
	e := newTestApp(t)

	if code := e.post(t, "/webhooks/shopify/order/create", createBody, nil); code != fiber.StatusOK {
		t.Fatalf("delivery pertama: %d", code)
	}
	if code := e.post(t, "/webhooks/shopify/order/create", createBody, nil); code != fiber.StatusOK {
		t.Fatalf("delivery duplikat: %d", code)
	}

	// Order sudah processed → delivery kedua tidak enqueue ulang.
	if e.q.n != 1 {
		t.Fatalf("enqueue = %d, mau 1", e.q.n)
	}
	if len(e.gw.calls) != 1 {
		t.Fatalf("enroll = %d, mau 1", len(e.gw.calls))
	}

	// Tapi dua-duanya tetap kebukukan sebagai raw event.
	var events int64
	e.db.Model(&model.WebhookEventModel{}).Count(&events)
	if events != 2 {
		t.Fatalf("raw event = %d, mau 2", events)
	}
}

func TestOrderCreateChecksPipeline(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(r *httptestRequest)
		want   int
	}{
		{"tanpa shop domain", func(r *httptestRequest) { r.domain = "" }, fiber.StatusBadRequest},
		{"domain di luar allow-list", func(r *httptestRequest) { r.domain = "toko-lain.myshopify.com" }, fiber.StatusForbidden},
		{"tanpa signature", func(r *httptestRequest) { r.signature = "" }, fiber.StatusBadRequest},
		{"signature salah", func(r *httptestRequest) { r.signature = "AAAA" }, fiber.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestApp(t)
			code := e.post(t, "/webhooks/shopify/order/create", createBody, tc.mutate)
			if code != tc.want {
				t.Fatalf("status = %d, mau %d", code, tc.want)
			}

			// Delivery yang ditolak checks tetap ke-persist, status error,
			// dan tidak sampai bikin order.
			var event model.WebhookEventModel
			if err := e.db.First(&event).Error; err != nil {
				t.Fatalf("raw event tidak ke-persist: %v", err)
			}
			if event.WebhookEventStatus != model.WebhookEventStatusError {
				t.Fatalf("event status = %s, mau error", event.WebhookEventStatus)
			}
			var orders int64
			e.db.Model(&model.OrderModel{}).Count(&orders)
			if orders != 0 {
				t.Fatal("order ke-record padahal checks gagal")
			}
			if len(e.gw.calls) != 0 {
				t.Fatal("gateway dipanggil padahal checks gagal")
			}
		})
	}
}

func TestOrderCreateMalformedBody(t *testing.T) {
	e := newTestApp(t)
	code := e.post(t, "/webhooks/shopify/order/create", "{rusak", nil)
	if code != fiber.StatusBadRequest {
		t.Fatalf("status = %d, mau 400", code)
	}
	var event model.WebhookEventModel
	if err := e.db.First(&event).Error; err != nil {
		t.Fatalf("body rusak tetap harus ke-persist: %v", err)
	}
	if event.WebhookEventStatus != model.WebhookEventStatusError {
		t.Fatalf("event status = %s, mau error", event.WebhookEventStatus)
	}
}

func TestOrderCreateSubscriptionTagSkipsEnrollment(t *testing.T) {
	e := newTestApp(t)
	body := `{"id":5005,"customer":{"email":"s@x.com","first_name":"S","last_name":"B"},"tags":"Monthly Subscription","line_items":[{"sku":"course-v1:Org+Course+Run","variant_title":""}]}`

	code := e.post(t, "/webhooks/shopify/order/create", body, nil)
	if code != fiber.StatusOK {
		t.Fatalf("status = %d, mau 200", code)
	}

	// Raw event selesai, tapi tidak ada order / enrollment.
	var event model.WebhookEventModel
	e.db.First(&event)
	if event.WebhookEventStatus != model.WebhookEventStatusProcessed {
		t.Fatalf("event status = %s, mau processed", event.WebhookEventStatus)
	}
	var orders int64
	e.db.Model(&model.OrderModel{}).Count(&orders)
	if orders != 0 {
		t.Fatal("subscription purchase tidak boleh bikin order")
	}
	if len(e.gw.calls) != 0 {
		t.Fatal("subscription purchase tidak boleh enroll")
	}
}

func TestOrderCancelSynthesizesAndUnenrolls(t *testing.T) {
	e := newTestApp(t)
	body := `{"customerId":"gid://shopify/Customer/42","occurredAt":"2024-05-01T10:30:00Z"}`

	code := e.post(t, "/webhooks/shopify/order/cancel", body, nil)
	if code != fiber.StatusOK {
		t.Fatalf("status = %d, mau 200", code)
	}

	var order model.OrderModel
	if err := e.db.First(&order).Error; err != nil {
		t.Fatalf("cancellation order tidak ke-record: %v", err)
	}
	if order.OrderStatus != model.OrderStatusProcessed {
		t.Fatalf("order status = %s, mau processed", order.OrderStatus)
	}
	if order.OrderEmail != "cancel@x.com" {
		t.Fatalf("email = %s", order.OrderEmail)
	}
	if len(e.gw.calls) != 1 || e.gw.calls[0] != "unenroll course-v1:Org+Old+Run cancel@x.com" {
		t.Fatalf("gateway calls = %v", e.gw.calls)
	}
}

func TestOrderCancelInvalidPayload(t *testing.T) {
	e := newTestApp(t)
	// JSON valid tapi field wajib hilang.
	code := e.post(t, "/webhooks/shopify/order/cancel", `{"customerId":""}`, nil)
	if code != fiber.StatusBadRequest {
		t.Fatalf("status = %d, mau 400", code)
	}
	var event model.WebhookEventModel
	e.db.First(&event)
	if event.WebhookEventStatus != model.WebhookEventStatusError {
		t.Fatalf("event status = %s, mau error", event.WebhookEventStatus)
	}
}
