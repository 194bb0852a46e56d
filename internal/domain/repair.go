package domain

import "time"

// VisitType tags a technician assignment with its intent. The tag is stored
// and surfaced but not otherwise interpreted.
type VisitType string

const (
	VisitTypeCheck VisitType = "check"
	VisitTypeFix   VisitType = "fix"
)

// RepairDetails is the repair-dispatch sub-entity of a ticket. Its six
// timestamps form a strict sequence: each may be set only after every
// preceding one is set. Once ClosingTime is set the record is immutable.
type RepairDetails struct {
	ID              int64
	TicketID        int64
	IssueTitle      string
	ReasonForRepair string
	PickupLocation  string
	VisitingTechID  *int64
	VisitType       *VisitType
	PickupTime      *time.Time
	TechLeftTime    *time.Time
	TechReachedTime *time.Time
	ResolutionTime  *time.Time
	DeliveryTime    *time.Time
	ClosingTime     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Closed reports whether the workflow has reached its immutable final state.
func (r *RepairDetails) Closed() bool {
	return r != nil && r.ClosingTime != nil
}
