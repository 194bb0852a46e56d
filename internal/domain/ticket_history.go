package domain

import "time"

// HistoryEventType captures the kind of a history entry.
type HistoryEventType string

const (
	HistoryEventCreated        HistoryEventType = "created"
	HistoryEventStatusChange   HistoryEventType = "status_change"
	HistoryEventComment        HistoryEventType = "comment"
	HistoryEventHold           HistoryEventType = "hold"
	HistoryEventAIAutoReply    HistoryEventType = "ai_auto_reply"
	HistoryEventDuplicateAlert HistoryEventType = "duplicate_alert"
	HistoryEventAITechGuide    HistoryEventType = "ai_tech_guide"
	HistoryEventEdit           HistoryEventType = "edit"
	HistoryEventReopened       HistoryEventType = "reopened"
)

var historyEventTypes = map[HistoryEventType]struct{}{
	HistoryEventCreated:        {},
	HistoryEventStatusChange:   {},
	HistoryEventComment:        {},
	HistoryEventHold:           {},
	HistoryEventAIAutoReply:    {},
	HistoryEventDuplicateAlert: {},
	HistoryEventAITechGuide:    {},
	HistoryEventEdit:           {},
	HistoryEventReopened:       {},
}

// ValidHistoryEventType reports whether t is a known entry type.
func ValidHistoryEventType(t HistoryEventType) bool {
	_, ok := historyEventTypes[t]
	return ok
}

// HistoryEvent is one entry of a ticket's append-only audit log. Entries are
// only ever inserted; the log is never rewritten wholesale, which keeps
// concurrent appenders from losing each other's entries.
type HistoryEvent struct {
	ID        int64
	TicketID  int64
	Type      HistoryEventType
	Actor     string
	ActorID   *int64
	Detail    string
	CreatedAt time.Time
}
