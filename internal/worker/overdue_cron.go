package worker

// overdue_cron.go
// Background goroutine that periodically refreshes the overdue materialization
// on invoices whose due date has elapsed. Read paths derive overdue from the
// due date regardless — this sweep only keeps the reporting flag warm.

import (
	"context"
	"time"

	"neuriax/internal/repository"

	"github.com/rs/zerolog/log"
)

// StartOverdueSweep launches a goroutine that ticks every interval and marks
// unpaid invoices past their due date. It respects the context for graceful
// shutdown.
func StartOverdueSweep(ctx context.Context, invoices repository.InvoiceRepository, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Dur("interval", interval).Msg("overdue_sweep: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("overdue_sweep: shutting down")
				return
			case <-ticker.C:
				n, err := invoices.MarkOverdue(ctx, time.Now())
				if err != nil {
					log.Error().Err(err).Msg("overdue_sweep: mark failed")
					continue
				}
				if n > 0 {
					log.Info().Int64("marked", n).Msg("overdue_sweep: invoices flagged overdue")
				}
			}
		}
	}()
}
