package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusRepairing  TicketStatus = "repairing"
	TicketStatusHold       TicketStatus = "hold"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
	TicketStatusReopened   TicketStatus = "reopened"
	TicketStatusPending    TicketStatus = "pending"
)

// ParseStatus normalizes a wire status value into the fixed status set.
// Matching is case-insensitive and tolerates spaces and dashes in place of
// underscores. Unknown values fall back to open.
func ParseStatus(raw string) TicketStatus {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")
	switch TicketStatus(normalized) {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusRepairing,
		TicketStatusHold, TicketStatusResolved, TicketStatusClosed,
		TicketStatusReopened, TicketStatusPending:
		return TicketStatus(normalized)
	}
	return TicketStatusOpen
}

// IsTerminal reports whether the status ends SLA tracking.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// ParsePriority normalizes a wire priority value. "normal" is accepted as an
// alias of medium. Unknown values pass through and rank as 0.
func ParsePriority(raw string) TicketPriority {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "normal" {
		return TicketPriorityMedium
	}
	return TicketPriority(normalized)
}

// Rank returns the fixed sort rank: critical=4, high=3, medium=2, low=1,
// anything else 0.
func (p TicketPriority) Rank() int {
	switch p {
	case TicketPriorityCritical:
		return 4
	case TicketPriorityHigh:
		return 3
	case TicketPriorityMedium:
		return 2
	case TicketPriorityLow:
		return 1
	}
	return 0
}

// SentimentData carries the severity flag attached by sentiment analysis.
type SentimentData struct {
	Level string  `json:"level"`
	Score float64 `json:"score,omitempty"`
}

// Ticket is the aggregate for service-desk requests. DBID is the numeric
// primary key; DisplayKey is the human-facing identifier rendered as
// "#TKT-<n>". Every operation that reaches storage resolves DisplayKey to
// DBID first.
type Ticket struct {
	DBID          int64
	DisplayKey    string
	OwnerID       *int64
	AssigneeID    *int64
	RequesterName string
	Subject       string
	Description   string
	CategoryID    *int64
	Status        TicketStatus
	Priority      TicketPriority
	Attachments   []string
	Sentiment     *SentimentData
	HoldReason    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	SLADeadline   *time.Time
	ClosedAt      *time.Time
}

// DisplayID renders the identifier the way the UI shows it.
func (t *Ticket) DisplayID() string {
	return "#" + t.DisplayKey
}

// MakeDisplayKey derives the display key for a primary key.
func MakeDisplayKey(dbID int64) string {
	return fmt.Sprintf("TKT-%d", dbID)
}

// DisplayKeyNumber extracts the numeric suffix from a display id such as
// "#TKT-123" or "TKT-123". Malformed ids yield 0.
func DisplayKeyNumber(displayID string) int64 {
	trimmed := strings.TrimPrefix(strings.TrimSpace(displayID), "#")
	idx := strings.LastIndex(trimmed, "-")
	if idx < 0 {
		n, _ := strconv.ParseInt(trimmed, 10, 64)
		return n
	}
	n, err := strconv.ParseInt(trimmed[idx+1:], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// NormalizeAttachments converts the wire representation of attachments (a
// comma-joined filename string) into an ordered list. Normalization happens
// once at the API boundary; nothing deeper branches on shape.
func NormalizeAttachments(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// JoinAttachments is the inverse of NormalizeAttachments for persistence.
func JoinAttachments(names []string) string {
	return strings.Join(names, ",")
}

// ParseSentiment decodes the optional JSON sentiment payload. Empty or
// malformed payloads yield nil rather than an error; sentiment is advisory.
func ParseSentiment(raw string) *SentimentData {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var data SentimentData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil
	}
	return &data
}
