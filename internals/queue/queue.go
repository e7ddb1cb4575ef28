// file: internals/queue/queue.go
package queue

import (
	"context"
	"encoding/json"
)

// ProcessMessage = unit kerja async: content webhook yang sudah diparse
// plus flag retry (dipakai reconciliation supaya order ERROR boleh direset).
// EventID bawa identitas raw event asalnya, supaya worker bisa rekonstruksi
// order yang belum sempat ke-record (replay event error dari sweep).
// Delivery-nya at-least-once; idempotensi state machine yang jaga sisanya.
type ProcessMessage struct {
	Content json.RawMessage `json:"content"`
	EventID string          `json:"event_id,omitempty"`
	IsRetry bool            `json:"is_retry"`
}

type Publisher interface {
	Publish(ctx context.Context, msg ProcessMessage) error
}

// Handler dipanggil per message oleh worker. Error TIDAK dikembalikan:
// kebijakan task boundary adalah catch-log-and-leave, biar reconciliation
// sweep yang mungut record yang nyangkut di status error.
type Handler func(ctx context.Context, msg ProcessMessage)
