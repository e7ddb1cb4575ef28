// file: internals/queue/memory.go
package queue

import (
	"context"
	"errors"
	"log"
	"sync"
)

// ErrClosed dikembalikan Publish setelah queue di-Close. Caller (path webhook
// / sweep yang kebetulan balapan dengan shutdown) cukup mencatatnya — record
// tinggal di statusnya dan dipungut sweep berikutnya.
var ErrClosed = errors.New("queue sudah ditutup")

// MemoryQueue: dispatcher in-process (buffered channel + worker pool).
// Dipakai kalau KAFKA_BROKERS tidak diset — cukup untuk single instance
// dan untuk test. Semantik tetap fire-and-forget di path request.
//
// Channel-nya tidak pernah di-close; shutdown disinyalkan lewat done supaya
// Publish yang balapan dengan Close tidak kena send-on-closed-channel.
type MemoryQueue struct {
	ch   chan ProcessMessage
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewMemoryQueue(buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 256
	}
	return &MemoryQueue{
		ch:   make(chan ProcessMessage, buffer),
		done: make(chan struct{}),
	}
}

func (q *MemoryQueue) Publish(ctx context.Context, msg ProcessMessage) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case q.ch <- msg:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start jalanin n worker goroutine yang konsumsi channel sampai Close.
func (q *MemoryQueue) Start(n int, h Handler) {
	if n <= 0 {
		n = 4
	}
	for i := 0; i < n; i++ {
		q.wg.Add(1)
		go func(id int) {
			defer q.wg.Done()
			for {
				select {
				case msg := <-q.ch:
					h(context.Background(), msg)
				case <-q.done:
					// Habiskan sisa antrian dulu, baru berhenti.
					for {
						select {
						case msg := <-q.ch:
							h(context.Background(), msg)
						default:
							log.Printf("[WORKER] worker-%d berhenti", id)
							return
						}
					}
				}
			}
		}(i)
	}
}

func (q *MemoryQueue) Close() {
	q.once.Do(func() { close(q.done) })
	q.wg.Wait()
}
