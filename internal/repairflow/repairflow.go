// Package repairflow models the six-stage repair-dispatch timeline. The
// current stage is inferred from which timestamps are null; each stage is
// gated on every preceding timestamp being set, and exactly one action is
// legal at a time.
package repairflow

import (
	"errors"
	"strings"
	"time"

	"github.com/deskforge/servicedesk/internal/domain"
)

// Stage identifies a step of the repair timeline.
type Stage string

const (
	StagePickup    Stage = "pickup"
	StageDeparture Stage = "departure"
	StageArrival   Stage = "arrival"
	StageReport    Stage = "report"
	StageDelivery  Stage = "delivery"
	StageClosed    Stage = "closed"
	// StageDone means every timestamp including closing is set; the record
	// is immutable and no action renders.
	StageDone Stage = "done"
)

// Order lists stages in workflow order.
var Order = []Stage{StagePickup, StageDeparture, StageArrival, StageReport, StageDelivery, StageClosed}

// ParseStage maps a wire value to a stage, false when unknown.
func ParseStage(raw string) (Stage, bool) {
	candidate := Stage(strings.ToLower(strings.TrimSpace(raw)))
	for _, stage := range Order {
		if stage == candidate {
			return stage, true
		}
	}
	return "", false
}

// ErrOutOfOrder is returned when a transition's predecessor timestamp is not
// yet set.
var ErrOutOfOrder = errors.New("repair stage out of order")

// ErrClosed is returned for any mutation after the closing timestamp is set.
var ErrClosed = errors.New("repair workflow already closed")

// ErrTechAssignUnavailable is returned when the technician side-branch is not
// open: the tech must have arrived and no tech may be assigned yet.
var ErrTechAssignUnavailable = errors.New("technician assignment not available")

// Action describes the single legal next step for the current stage.
type Action struct {
	Stage Stage
	Label string
}

var actionLabels = map[Stage]string{
	StagePickup:    "Confirm Pickup",
	StageDeparture: "Depart for Customer",
	StageArrival:   "Arrived at Location",
	StageReport:    "Submit Repair Report",
	StageDelivery:  "Confirm Delivery",
	StageClosed:    "Close Repair",
}

func timestamps(d *domain.RepairDetails) []*time.Time {
	return []*time.Time{
		d.PickupTime,
		d.TechLeftTime,
		d.TechReachedTime,
		d.ResolutionTime,
		d.DeliveryTime,
		d.ClosingTime,
	}
}

// CurrentStage returns the first stage whose timestamp is unset. When every
// timestamp including closing is set, the workflow is done.
func CurrentStage(d *domain.RepairDetails) Stage {
	for i, ts := range timestamps(d) {
		if ts == nil {
			return Order[i]
		}
	}
	return StageDone
}

// NextAction returns the single action button the timeline exposes, or nil
// once the closing timestamp is set.
func NextAction(d *domain.RepairDetails) *Action {
	stage := CurrentStage(d)
	if stage == StageDone {
		return nil
	}
	return &Action{Stage: stage, Label: actionLabels[stage]}
}

// Advance records the timestamp for the given stage. Only the current stage
// may advance; anything else is out of order. A closed workflow rejects all
// mutation.
func Advance(d *domain.RepairDetails, stage Stage, at time.Time) error {
	if d.Closed() {
		return ErrClosed
	}
	if CurrentStage(d) != stage {
		return ErrOutOfOrder
	}
	switch stage {
	case StagePickup:
		d.PickupTime = &at
	case StageDeparture:
		d.TechLeftTime = &at
	case StageArrival:
		d.TechReachedTime = &at
	case StageReport:
		d.ResolutionTime = &at
	case StageDelivery:
		d.DeliveryTime = &at
	case StageClosed:
		d.ClosingTime = &at
	default:
		return ErrOutOfOrder
	}
	return nil
}

// CanAssignTechnician reports whether the assignment side-branch is open:
// the technician has arrived and nobody has been assigned yet.
func CanAssignTechnician(d *domain.RepairDetails) bool {
	return !d.Closed() && d.TechReachedTime != nil && d.VisitingTechID == nil
}

// AssignTechnician records the visiting technician and the intent tag. The
// tag is stored, not interpreted.
func AssignTechnician(d *domain.RepairDetails, techID int64, visitType domain.VisitType) error {
	if !CanAssignTechnician(d) {
		return ErrTechAssignUnavailable
	}
	d.VisitingTechID = &techID
	d.VisitType = &visitType
	return nil
}
