package sla

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskforge/servicedesk/internal/domain"
)

func TestEvaluate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("default deadline is created_at plus 48h", func(t *testing.T) {
		created := now.Add(-time.Hour)
		effective, ok := EffectiveDeadline(created, nil)
		require.True(t, ok)
		assert.Equal(t, created.Add(48*time.Hour), effective)
	})

	t.Run("explicit deadline wins over derived one", func(t *testing.T) {
		created := now.Add(-time.Hour)
		deadline := now.Add(30 * time.Minute)
		effective, ok := EffectiveDeadline(created, &deadline)
		require.True(t, ok)
		assert.Equal(t, deadline, effective)
	})

	t.Run("terminal statuses always report MET", func(t *testing.T) {
		pastDeadline := now.Add(-10 * time.Hour)
		for _, status := range []domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusClosed} {
			c := Evaluate(now.Add(-100*time.Hour), status, &pastDeadline, now)
			assert.Equal(t, "MET", c.Label)
			assert.Equal(t, UrgencyNone, c.Urgency)
			assert.True(t, c.Met)
		}
	})

	t.Run("missing timestamps yield static placeholder", func(t *testing.T) {
		c := Evaluate(time.Time{}, domain.TicketStatusOpen, nil, now)
		assert.Equal(t, "48h 0m 0s", c.Label)
		assert.Equal(t, UrgencyNone, c.Urgency)
	})

	t.Run("past deadline is breached", func(t *testing.T) {
		c := Evaluate(now.Add(-49*time.Hour), domain.TicketStatusOpen, nil, now)
		assert.Equal(t, "Expired", c.Label)
		assert.Equal(t, UrgencyBreached, c.Urgency)
	})

	t.Run("urgency thresholds", func(t *testing.T) {
		cases := []struct {
			remaining time.Duration
			want      Urgency
		}{
			{30 * time.Minute, UrgencyCritical},
			{119 * time.Minute, UrgencyCritical},
			{2 * time.Hour, UrgencyWarning},
			{23*time.Hour + 59*time.Minute, UrgencyWarning},
			{24 * time.Hour, UrgencyNone},
			{40 * time.Hour, UrgencyNone},
		}
		for _, tc := range cases {
			deadline := now.Add(tc.remaining)
			c := Evaluate(now.Add(-time.Hour), domain.TicketStatusOpen, &deadline, now)
			assert.Equal(t, tc.want, c.Urgency, "remaining %s", tc.remaining)
		}
	})

	t.Run("open ticket created 46h ago is a warning near 2h", func(t *testing.T) {
		c := Evaluate(now.Add(-46*time.Hour), domain.TicketStatusOpen, nil, now)
		assert.Equal(t, UrgencyWarning, c.Urgency)
		assert.Equal(t, "2h 0m 0s", c.Label)
		assert.Regexp(t, `^\d+h \d+m \d+s$`, c.Label)
	})
}

func TestTickerStopsOnTerminalState(t *testing.T) {
	var calls atomic.Int32
	ticker := StartTicker(context.Background(), time.Now().Add(-100*time.Hour), domain.TicketStatusOpen, nil, func(c Countdown) {
		calls.Add(1)
		assert.Equal(t, UrgencyBreached, c.Urgency)
	})

	select {
	case <-ticker.done:
	case <-time.After(time.Second):
		t.Fatal("ticker did not stop after breached countdown")
	}
	assert.Equal(t, int32(1), calls.Load())
	ticker.Stop()
}

func TestTickerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ticker := StartTicker(ctx, time.Now(), domain.TicketStatusOpen, nil, func(Countdown) {})
	cancel()

	select {
	case <-ticker.done:
	case <-time.After(2 * time.Second):
		t.Fatal("ticker did not stop after cancel")
	}
}
