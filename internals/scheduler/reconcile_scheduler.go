package scheduler

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	service "github.com/misterVKLN/shopify-webhook/internals/features/webhooks/service"
)

// StartReconcileScheduler jalanin reconciliation sweep tiap interval.
// Sweep-nya idempoten, jadi overlap dengan trigger manual operator aman.
func StartReconcileScheduler(svc *service.ReconcileService) {
	go func() {
		// Interval dari env (default: 15 menit)
		intervalMin := 15
		if val := os.Getenv("RECONCILE_INTERVAL_MINUTES"); val != "" {
			if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
				intervalMin = parsed
			}
		}

		for {
			time.Sleep(time.Duration(intervalMin) * time.Minute)

			log.Println("[RECONCILE] Menjalankan sweep record error...")
			svc.RetryFailed(context.Background())
		}
	}()
}
