// Package board maps kanban drag-and-drop gestures onto ticket status
// transitions. The planner decides whether a drop produces a status-update
// request at all; callers issue exactly the transitions it returns and
// refetch the list on failure rather than patching board state locally.
package board

import (
	"errors"
	"strings"

	"github.com/deskforge/servicedesk/internal/domain"
)

// ErrSameColumn signals a drop onto the column the ticket is already in;
// no request may be issued for it.
var ErrSameColumn = errors.New("ticket already in target column")

// ErrHoldReasonRequired signals a drop onto the hold column without an
// operator-supplied reason; the transition is aborted.
var ErrHoldReasonRequired = errors.New("hold transition requires a reason")

// Columns lists the board columns in display order.
var Columns = []domain.TicketStatus{
	domain.TicketStatusOpen,
	domain.TicketStatusInProgress,
	domain.TicketStatusRepairing,
	domain.TicketStatusHold,
	domain.TicketStatusResolved,
	domain.TicketStatusClosed,
}

// Transition is the single status-update request a drop produces.
type Transition struct {
	TicketDBID int64
	From       domain.TicketStatus
	To         domain.TicketStatus
	HoldReason string
}

// PlanDrop turns a drop gesture into a transition. The ticket's current
// status is normalized before comparison so wire-casing differences never
// cause a spurious update.
func PlanDrop(ticket *domain.Ticket, targetColumn string, holdReason string) (*Transition, error) {
	current := domain.ParseStatus(string(ticket.Status))
	target := domain.ParseStatus(targetColumn)

	if current == target {
		return nil, ErrSameColumn
	}
	if target == domain.TicketStatusHold && strings.TrimSpace(holdReason) == "" {
		return nil, ErrHoldReasonRequired
	}

	return &Transition{
		TicketDBID: ticket.DBID,
		From:       current,
		To:         target,
		HoldReason: strings.TrimSpace(holdReason),
	}, nil
}

// Group buckets tickets by normalized status for rendering the board. Column
// order follows Columns; tickets keep their incoming relative order.
func Group(tickets []domain.Ticket) map[domain.TicketStatus][]domain.Ticket {
	grouped := make(map[domain.TicketStatus][]domain.Ticket, len(Columns))
	for _, col := range Columns {
		grouped[col] = []domain.Ticket{}
	}
	for _, t := range tickets {
		status := domain.ParseStatus(string(t.Status))
		grouped[status] = append(grouped[status], t)
	}
	return grouped
}
