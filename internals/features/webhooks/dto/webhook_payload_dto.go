// file: internals/features/webhooks/dto/webhook_payload_dto.go
package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

/* =========================================================
   Payload order create (webhook orders/create dari Shopify)
   — decode ketat ke struct, bukan map[string]interface{},
   supaya field yang hilang ketahuan di depan.
========================================================= */

type OrderCustomer struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type OrderLineItem struct {
	Sku          string `json:"sku"`
	VariantTitle string `json:"variant_title"`
}

// OrderProcessPayload adalah bentuk yang dikonsumsi state machine order,
// baik dari event create (langsung dari Shopify) maupun dari event cancel
// (disintesis: id dari occurredAt, line_items hasil lookup Admin API).
type OrderProcessPayload struct {
	ID       int64          `json:"id" validate:"required"`
	Email    string         `json:"email"`
	Customer *OrderCustomer `json:"customer,omitempty"`
	Tags     string         `json:"tags"`

	LineItems []OrderLineItem `json:"line_items"`

	// true kalau payload ini hasil sintesis dari subscription cancellation
	SubscriptionCancellation bool `json:"subscription_cancellation"`
}

func (p *OrderProcessPayload) CustomerEmail() string {
	if p.Customer != nil && p.Customer.Email != "" {
		return p.Customer.Email
	}
	return p.Email
}

// IsSubscriptionPurchase: pembelian subscription tidak di-enroll (ditangani
// sistem lain), cukup ditandai processed di raw event.
func (p *OrderProcessPayload) IsSubscriptionPurchase() bool {
	return strings.Contains(strings.ToLower(p.Tags), "subscription")
}

func DecodeOrderCreate(raw []byte) (*OrderProcessPayload, error) {
	var p OrderProcessPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode order create: %w", err)
	}
	if err := validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("validate order create: %w", err)
	}
	return &p, nil
}

// DecodeOrderProcess dipakai worker/reconciliation: content yang sudah
// dinormalisasi (cancel) tidak punya customer, cuma email top-level.
func DecodeOrderProcess(raw []byte) (*OrderProcessPayload, error) {
	var p OrderProcessPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode process payload: %w", err)
	}
	if p.ID == 0 {
		return nil, fmt.Errorf("process payload tanpa id")
	}
	return &p, nil
}

/* =========================================================
   Payload order cancel (webhook subscription cancellation)
   — tidak bawa order id / line items, cuma identitas customer
   dan kapan kejadian.
========================================================= */

type OrderCancelPayload struct {
	CustomerID string    `json:"customerId" validate:"required"`
	OccurredAt time.Time `json:"occurredAt" validate:"required"`
}

func DecodeOrderCancel(raw []byte) (*OrderCancelPayload, error) {
	var p OrderCancelPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode order cancel: %w", err)
	}
	if err := validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("validate order cancel: %w", err)
	}
	return &p, nil
}
