package sla

import (
	"context"
	"time"

	"github.com/deskforge/servicedesk/internal/domain"
)

// Ticker re-evaluates a ticket's countdown once per second and delivers each
// result to the given callback. It stops itself as soon as the countdown
// reaches a terminal (MET) or breached state, and in any case when the
// context is cancelled, so no interval keeps running for finished tickets.
type Ticker struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartTicker begins live evaluation. The callback runs on the ticker's
// goroutine; it must not block for long.
func StartTicker(ctx context.Context, createdAt time.Time, status domain.TicketStatus, deadline *time.Time, fn func(Countdown)) *Ticker {
	ctx, cancel := context.WithCancel(ctx)
	t := &Ticker{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			c := Evaluate(createdAt, status, deadline, time.Now())
			fn(c)
			if c.Met || c.Urgency == UrgencyBreached {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return t
}

// Stop halts evaluation and waits for the goroutine to exit.
func (t *Ticker) Stop() {
	t.cancel()
	<-t.done
}
