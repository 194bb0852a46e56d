package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/deskforge/servicedesk/internal/domain"
	"github.com/deskforge/servicedesk/internal/events"
	"github.com/deskforge/servicedesk/internal/listview"
	"github.com/deskforge/servicedesk/internal/repairflow"
	"github.com/deskforge/servicedesk/internal/repository"
	apperrors "github.com/deskforge/servicedesk/pkg/util/errorutil"
)

// RepairService drives the staged on-site repair workflow of a ticket.
type RepairService struct {
	repairs    repository.RepairRepository
	tickets    repository.TicketRepository
	users      repository.UserRepository
	history    repository.TicketHistoryRepository
	cache      ListInvalidator
	dispatcher events.Dispatcher
}

// RepairDependencies bundles collaborators for the repair service.
type RepairDependencies struct {
	RepairRepo  repository.RepairRepository
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	HistoryRepo repository.TicketHistoryRepository
	Cache       ListInvalidator
	Dispatcher  events.Dispatcher
}

// NewRepairService constructs the service.
func NewRepairService(deps RepairDependencies) *RepairService {
	return &RepairService{
		repairs:    deps.RepairRepo,
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		history:    deps.HistoryRepo,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
	}
}

// RepairInitInput describes the opening details of a repair.
type RepairInitInput struct {
	IssueTitle      string
	ReasonForRepair string
	PickupLocation  string
}

// InitRepair opens the repair record for a ticket and moves the ticket into
// the repairing status. A ticket carries at most one repair record.
func (s *RepairService) InitRepair(ctx context.Context, actor events.Actor, ticketID int64, input RepairInitInput) (*domain.RepairDetails, error) {
	ticket, err := s.tickets.GetByDBID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewConflict("cannot start a repair on a closed ticket", nil)
	}
	if _, err := s.repairs.GetByTicket(ctx, ticketID); err == nil {
		return nil, apperrors.NewConflict("repair already started for this ticket", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	details := &domain.RepairDetails{
		TicketID:        ticketID,
		IssueTitle:      strings.TrimSpace(input.IssueTitle),
		ReasonForRepair: strings.TrimSpace(input.ReasonForRepair),
		PickupLocation:  strings.TrimSpace(input.PickupLocation),
	}
	if details.IssueTitle == "" {
		details.IssueTitle = ticket.Subject
	}
	if err := s.repairs.Create(ctx, details); err != nil {
		return nil, apperrors.MapError(err)
	}

	if ticket.Status != domain.TicketStatusRepairing {
		ticket.Status = domain.TicketStatusRepairing
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return nil, apperrors.MapError(err)
		}
		s.invalidate(ctx)
	}
	s.record(ctx, ticketID, actor, "repair started")
	return details, nil
}

// GetRepair returns the repair record of a ticket along with the label of
// the next pending action, empty once the repair is closed. Viewer access
// follows the owning ticket.
func (s *RepairService) GetRepair(ctx context.Context, viewer listview.Viewer, ticketID int64) (*domain.RepairDetails, string, error) {
	ticket, err := s.tickets.GetByDBID(ctx, ticketID)
	if err != nil {
		return nil, "", apperrors.MapError(err)
	}
	if !canViewTicket(viewer, ticket) {
		return nil, "", apperrors.NewForbidden("access denied")
	}
	details, err := s.repairs.GetByTicket(ctx, ticketID)
	if err != nil {
		return nil, "", apperrors.MapError(err)
	}
	label := ""
	if action := repairflow.NextAction(details); action != nil {
		label = action.Label
	}
	return details, label, nil
}

// AdvanceStage stamps the given stage with the current time. Stages must be
// completed strictly in order and a closed repair rejects further changes.
func (s *RepairService) AdvanceStage(ctx context.Context, actor events.Actor, ticketID int64, stage repairflow.Stage) (*domain.RepairDetails, error) {
	details, err := s.repairs.GetByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	now := time.Now()
	if err := repairflow.Advance(details, stage, now); err != nil {
		switch {
		case errors.Is(err, repairflow.ErrClosed):
			return nil, apperrors.NewConflict("repair is closed", nil)
		case errors.Is(err, repairflow.ErrOutOfOrder):
			return nil, apperrors.NewConflict("previous repair stage is not complete", nil)
		default:
			return nil, apperrors.MapError(err)
		}
	}
	if err := s.repairs.Update(ctx, details); err != nil {
		return nil, apperrors.MapError(err)
	}

	if stage == repairflow.StageClosed {
		if err := s.closeTicket(ctx, ticketID, now); err != nil {
			return nil, err
		}
	}
	s.record(ctx, ticketID, actor, "repair stage completed: "+string(stage))
	s.publish(ctx, actor, ticketID, string(stage))
	return details, nil
}

// SubmitReport records the repair report, stamping the resolution stage.
func (s *RepairService) SubmitReport(ctx context.Context, actor events.Actor, ticketID int64, report string) (*domain.RepairDetails, error) {
	report = strings.TrimSpace(report)
	if report == "" {
		return nil, apperrors.NewValidationError("repair report is required", nil)
	}
	details, err := s.AdvanceStage(ctx, actor, ticketID, repairflow.StageReport)
	if err != nil {
		return nil, err
	}
	s.record(ctx, ticketID, actor, report)
	return details, nil
}

// AssignTechnician books a visiting technician once the unit has arrived.
func (s *RepairService) AssignTechnician(ctx context.Context, actor events.Actor, ticketID, technicianID int64, visit domain.VisitType) (*domain.RepairDetails, error) {
	details, err := s.repairs.GetByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	technician, err := s.users.GetByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("technician", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if technician.Role != domain.RoleTechnician {
		return nil, apperrors.NewValidationError("selected user is not a technician", nil)
	}

	if err := repairflow.AssignTechnician(details, technicianID, visit); err != nil {
		if errors.Is(err, repairflow.ErrTechAssignUnavailable) {
			return nil, apperrors.NewConflict("technician assignment is not available at this stage", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if err := s.repairs.Update(ctx, details); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.record(ctx, ticketID, actor, "technician "+technician.Name+" assigned for "+string(visit))
	return details, nil
}

func (s *RepairService) closeTicket(ctx context.Context, ticketID int64, now time.Time) error {
	ticket, err := s.tickets.GetByDBID(ctx, ticketID)
	if err != nil {
		return apperrors.MapError(err)
	}
	ticket.Status = domain.TicketStatusClosed
	ticket.ClosedAt = &now
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return apperrors.MapError(err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *RepairService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

func (s *RepairService) record(ctx context.Context, ticketID int64, actor events.Actor, detail string) {
	if s.history == nil {
		return
	}
	_ = s.history.Append(ctx, &domain.HistoryEvent{
		TicketID: ticketID,
		Type:     domain.HistoryEventStatusChange,
		Actor:    actor.Name,
		ActorID:  actor.UserID,
		Detail:   detail,
	})
}

func (s *RepairService) publish(ctx context.Context, actor events.Actor, ticketID int64, stage string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		Type:      events.EventRepairAdvanced,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: time.Now(),
		Payload:   events.RepairAdvancedPayload{Stage: stage},
	})
}
