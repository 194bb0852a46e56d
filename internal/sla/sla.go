package sla

import (
	"fmt"
	"time"

	"github.com/deskforge/servicedesk/internal/domain"
)

// DefaultWindow is the deadline applied when a ticket carries no explicit
// SLA deadline: created_at + 48h.
const DefaultWindow = 48 * time.Hour

// Urgency buckets the remaining time for display and for the sla_risk tab.
type Urgency string

const (
	UrgencyNone     Urgency = "none"
	UrgencyWarning  Urgency = "warning"
	UrgencyCritical Urgency = "critical"
	UrgencyBreached Urgency = "breached"
)

// Countdown is the rendered SLA state for one ticket.
type Countdown struct {
	Label     string
	Urgency   Urgency
	Remaining time.Duration
	Met       bool
}

// Evaluate computes the SLA countdown for a ticket at the given instant.
//
// Resolved and closed tickets are terminal: they always report MET, even when
// the deadline already passed. Otherwise the effective deadline is the
// explicit one when present, created_at + 48h when not; with neither
// timestamp available a static 48h placeholder is returned.
func Evaluate(createdAt time.Time, status domain.TicketStatus, deadline *time.Time, now time.Time) Countdown {
	if status.IsTerminal() {
		return Countdown{Label: "MET", Urgency: UrgencyNone, Met: true}
	}

	effective, ok := EffectiveDeadline(createdAt, deadline)
	if !ok {
		return Countdown{Label: "48h 0m 0s", Urgency: UrgencyNone, Remaining: DefaultWindow}
	}

	diff := effective.Sub(now)
	if diff <= 0 {
		return Countdown{Label: "Expired", Urgency: UrgencyBreached, Remaining: diff}
	}

	hours := int(diff / time.Hour)
	minutes := int(diff/time.Minute) % 60
	seconds := int(diff/time.Second) % 60

	urgency := UrgencyNone
	switch {
	case hours < 2:
		urgency = UrgencyCritical
	case hours < 24:
		urgency = UrgencyWarning
	}

	return Countdown{
		Label:     fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds),
		Urgency:   urgency,
		Remaining: diff,
	}
}

// EffectiveDeadline resolves the deadline a countdown runs against. The
// second return is false when neither an explicit deadline nor a creation
// time is available.
func EffectiveDeadline(createdAt time.Time, deadline *time.Time) (time.Time, bool) {
	if deadline != nil && !deadline.IsZero() {
		return *deadline, true
	}
	if createdAt.IsZero() {
		return time.Time{}, false
	}
	return createdAt.Add(DefaultWindow), true
}

// AtRisk reports whether a ticket belongs in the sla_risk bucket.
func AtRisk(createdAt time.Time, status domain.TicketStatus, deadline *time.Time, now time.Time) bool {
	c := Evaluate(createdAt, status, deadline, now)
	return c.Urgency == UrgencyCritical || c.Urgency == UrgencyBreached
}
