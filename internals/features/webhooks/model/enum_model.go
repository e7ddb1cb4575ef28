package model

type WebhookEventStatus string
type OrderStatus string
type OrderItemStatus string

// Lifecycle sama untuk ketiga entity: new → processing → processed | error.
// Mundur cuma boleh lewat reset error → new (retry eksplisit dari operator
// atau reconciliation sweep).
const (
	WebhookEventStatusNew        WebhookEventStatus = "new"
	WebhookEventStatusProcessing WebhookEventStatus = "processing"
	WebhookEventStatusProcessed  WebhookEventStatus = "processed"
	WebhookEventStatusError      WebhookEventStatus = "error"
)

const (
	OrderStatusNew        OrderStatus = "new"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusProcessed  OrderStatus = "processed"
	OrderStatusError      OrderStatus = "error"
)

const (
	OrderItemStatusNew        OrderItemStatus = "new"
	OrderItemStatusProcessing OrderItemStatus = "processing"
	OrderItemStatusProcessed  OrderItemStatus = "processed"
	OrderItemStatusError      OrderItemStatus = "error"
)
