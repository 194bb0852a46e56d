package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/deskforge/servicedesk/internal/board"
	"github.com/deskforge/servicedesk/internal/domain"
	"github.com/deskforge/servicedesk/internal/events"
	"github.com/deskforge/servicedesk/internal/listview"
	"github.com/deskforge/servicedesk/internal/repository"
	apperrors "github.com/deskforge/servicedesk/pkg/util/errorutil"
)

// listCacheScope keys the cached ticket snapshot. Viewer scoping happens
// after the cache, so a single shared snapshot is enough.
const listCacheScope = "all"

// ListInvalidator drops cached ticket lists after a mutation.
type ListInvalidator interface {
	Invalidate(ctx context.Context)
}

// TicketListCache is the read-through cache in front of the ticket store.
// persistence.ListCache is the Redis-backed implementation.
type TicketListCache interface {
	Get(ctx context.Context, scopeKey string) ([]domain.Ticket, bool)
	Set(ctx context.Context, scopeKey string, tickets []domain.Ticket)
	ListInvalidator
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	users      repository.UserRepository
	categories repository.CategoryRepository
	cache      TicketListCache
	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	HistoryRepo  repository.TicketHistoryRepository
	UserRepo     repository.UserRepository
	CategoryRepo repository.CategoryRepository
	Cache        TicketListCache
	Dispatcher   events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		users:      deps.UserRepo,
		categories: deps.CategoryRepo,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject       string
	Description   string
	RequesterName string
	Priority      string
	CategoryID    *int64
	Attachments   []string
	SLADeadline   *time.Time
}

// TicketUpdateInput describes the editable fields of a ticket.
type TicketUpdateInput struct {
	Subject     *string
	Description *string
	Priority    *string
	CategoryID  *int64
	Attachments []string
	Sentiment   *domain.SentimentData
}

// CreateTicket validates and stores a new ticket.
func (s *TicketService) CreateTicket(ctx context.Context, actor events.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject is required", nil)
	}
	if input.CategoryID == nil {
		return nil, apperrors.NewValidationError("Please select a category", nil)
	}
	if s.categories != nil {
		category, err := s.categories.GetByID(ctx, *input.CategoryID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewValidationError("Please select a category", nil)
			}
			return nil, apperrors.MapError(err)
		}
		if !category.IsActive {
			return nil, apperrors.NewValidationError("Please select a category", nil)
		}
	}

	ticket := &domain.Ticket{
		OwnerID:       actor.UserID,
		RequesterName: strings.TrimSpace(input.RequesterName),
		Subject:       subject,
		Description:   strings.TrimSpace(input.Description),
		CategoryID:    input.CategoryID,
		Status:        domain.TicketStatusOpen,
		Priority:      domain.ParsePriority(input.Priority),
		Attachments:   input.Attachments,
		SLADeadline:   input.SLADeadline,
	}
	if ticket.RequesterName == "" {
		ticket.RequesterName = actor.Name
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.appendHistory(ctx, ticket.DBID, domain.HistoryEventCreated, actor, "ticket created")
	s.invalidate(ctx)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.DBID,
		Actor:    actor,
		Payload: events.TicketCreatedPayload{
			Subject:    ticket.Subject,
			Priority:   ticket.Priority,
			CategoryID: ticket.CategoryID,
		},
	})
	return ticket, nil
}

// ListTickets returns a scoped, filtered, sorted page of tickets.
func (s *TicketService) ListTickets(ctx context.Context, params listview.Params) (listview.Page, error) {
	all, err := s.loadAll(ctx)
	if err != nil {
		return listview.Page{}, apperrors.MapError(err)
	}
	if params.Now.IsZero() {
		params.Now = time.Now()
	}
	return listview.Apply(all, params), nil
}

// ListTicketsFiltered returns the whole filtered set without pagination,
// for the board view and report exports.
func (s *TicketService) ListTicketsFiltered(ctx context.Context, params listview.Params) ([]domain.Ticket, error) {
	all, err := s.loadAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if params.Now.IsZero() {
		params.Now = time.Now()
	}
	return listview.Filter(all, params), nil
}

// GetTicket fetches a ticket enforcing viewer access.
func (s *TicketService) GetTicket(ctx context.Context, viewer listview.Viewer, dbID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByDBID(ctx, dbID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !canViewTicket(viewer, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// UpdateTicket applies edits to a ticket and records an edit entry.
func (s *TicketService) UpdateTicket(ctx context.Context, actor events.Actor, dbID int64, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByDBID(ctx, dbID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	var changed []string
	if input.Subject != nil && strings.TrimSpace(*input.Subject) != "" {
		ticket.Subject = strings.TrimSpace(*input.Subject)
		changed = append(changed, "subject")
	}
	if input.Description != nil {
		ticket.Description = strings.TrimSpace(*input.Description)
		changed = append(changed, "description")
	}
	if input.Priority != nil {
		ticket.Priority = domain.ParsePriority(*input.Priority)
		changed = append(changed, "priority")
	}
	if input.CategoryID != nil {
		ticket.CategoryID = input.CategoryID
		changed = append(changed, "category")
	}
	if input.Attachments != nil {
		ticket.Attachments = input.Attachments
		changed = append(changed, "attachments")
	}
	if input.Sentiment != nil {
		ticket.Sentiment = input.Sentiment
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(changed) > 0 {
		s.appendHistory(ctx, ticket.DBID, domain.HistoryEventEdit, actor, "updated "+strings.Join(changed, ", "))
	}
	s.invalidate(ctx)
	return ticket, nil
}

// DropOnBoard applies a kanban drag between status columns.
func (s *TicketService) DropOnBoard(ctx context.Context, actor events.Actor, dbID int64, target domain.TicketStatus, holdReason string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByDBID(ctx, dbID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	transition, err := board.PlanDrop(ticket, string(target), holdReason)
	if err != nil {
		if errors.Is(err, board.ErrSameColumn) {
			return ticket, nil
		}
		if errors.Is(err, board.ErrHoldReasonRequired) {
			return nil, apperrors.NewValidationError("hold reason is required", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return s.applyStatus(ctx, actor, ticket, transition.To, transition.HoldReason)
}

// ChangeStatus moves a ticket to a new status outside the board flow.
func (s *TicketService) ChangeStatus(ctx context.Context, actor events.Actor, dbID int64, target domain.TicketStatus, holdReason string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByDBID(ctx, dbID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	target = domain.ParseStatus(string(target))
	if target == ticket.Status {
		return ticket, nil
	}
	if target == domain.TicketStatusHold && strings.TrimSpace(holdReason) == "" {
		return nil, apperrors.NewValidationError("hold reason is required", nil)
	}
	return s.applyStatus(ctx, actor, ticket, target, strings.TrimSpace(holdReason))
}

// Reopen moves a resolved or closed ticket back into circulation.
func (s *TicketService) Reopen(ctx context.Context, actor events.Actor, dbID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByDBID(ctx, dbID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !ticket.Status.IsTerminal() {
		return nil, apperrors.NewConflict("only resolved or closed tickets can be reopened", nil)
	}

	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusReopened
	ticket.ClosedAt = nil
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.appendHistory(ctx, ticket.DBID, domain.HistoryEventReopened, actor, "reopened from "+string(oldStatus))
	s.invalidate(ctx)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketReopened,
		TicketID: ticket.DBID,
		Actor:    actor,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		},
	})
	return ticket, nil
}

// AssignTickets assigns a batch of tickets to a technician.
func (s *TicketService) AssignTickets(ctx context.Context, actor events.Actor, dbIDs []int64, assigneeID int64) (int64, error) {
	if len(dbIDs) == 0 {
		return 0, apperrors.NewValidationError("no tickets selected", nil)
	}
	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.NewNotFound("technician", nil)
		}
		return 0, apperrors.MapError(err)
	}
	if assignee.Role != domain.RoleTechnician && assignee.Role != domain.RoleAdmin {
		return 0, apperrors.NewValidationError("assignee must be a technician", nil)
	}

	affected, err := s.tickets.AssignMany(ctx, dbIDs, assigneeID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	for _, id := range dbIDs {
		s.appendHistory(ctx, id, domain.HistoryEventStatusChange, actor, "assigned to "+assignee.Name)
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: id,
			Actor:    actor,
			Payload:  events.TicketAssignedPayload{AssigneeID: &assigneeID},
		})
	}
	s.invalidate(ctx)
	return affected, nil
}

// SelfAssign lets a technician pick up a ticket themselves.
func (s *TicketService) SelfAssign(ctx context.Context, actor events.Actor, dbID int64) (*domain.Ticket, error) {
	if actor.UserID == nil || (actor.Role != domain.RoleTechnician && actor.Role != domain.RoleAdmin) {
		return nil, apperrors.NewForbidden("only staff can pick up tickets")
	}
	ticket, err := s.tickets.GetByDBID(ctx, dbID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if ticket.AssigneeID != nil && *ticket.AssigneeID != *actor.UserID {
		return nil, apperrors.NewConflict("ticket is already assigned", nil)
	}

	ticket.AssigneeID = actor.UserID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.appendHistory(ctx, ticket.DBID, domain.HistoryEventStatusChange, actor, "picked up by "+actor.Name)
	s.invalidate(ctx)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.DBID,
		Actor:    actor,
		Payload:  events.TicketAssignedPayload{AssigneeID: actor.UserID},
	})
	return ticket, nil
}

// UpdateStatusBulk moves a batch of tickets to one status.
func (s *TicketService) UpdateStatusBulk(ctx context.Context, actor events.Actor, dbIDs []int64, target domain.TicketStatus) (int64, error) {
	if len(dbIDs) == 0 {
		return 0, apperrors.NewValidationError("no tickets selected", nil)
	}
	target = domain.ParseStatus(string(target))
	affected, err := s.tickets.UpdateStatusMany(ctx, dbIDs, target)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	for _, id := range dbIDs {
		s.appendHistory(ctx, id, domain.HistoryEventStatusChange, actor, "status set to "+string(target))
	}
	s.invalidate(ctx)
	return affected, nil
}

// DeleteTicket removes a single ticket.
func (s *TicketService) DeleteTicket(ctx context.Context, actor events.Actor, dbID int64) error {
	if err := s.tickets.Delete(ctx, dbID); err != nil {
		return apperrors.MapError(err)
	}
	s.invalidate(ctx)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: dbID,
		Actor:    actor,
	})
	return nil
}

// DeleteTickets removes a batch of tickets.
func (s *TicketService) DeleteTickets(ctx context.Context, actor events.Actor, dbIDs []int64) (int64, error) {
	if len(dbIDs) == 0 {
		return 0, apperrors.NewValidationError("no tickets selected", nil)
	}
	affected, err := s.tickets.DeleteMany(ctx, dbIDs)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	for _, id := range dbIDs {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketDeleted,
			TicketID: id,
			Actor:    actor,
		})
	}
	s.invalidate(ctx)
	return affected, nil
}

// AppendHistoryEvent records an activity entry for a ticket. The log is
// append-only; entries are never rewritten.
func (s *TicketService) AppendHistoryEvent(ctx context.Context, actor events.Actor, dbID int64, eventType domain.HistoryEventType, detail string) (*domain.HistoryEvent, error) {
	if !domain.ValidHistoryEventType(eventType) {
		return nil, apperrors.NewValidationError("unknown history event type", nil)
	}
	if _, err := s.tickets.GetByDBID(ctx, dbID); err != nil {
		return nil, apperrors.MapError(err)
	}

	entry := &domain.HistoryEvent{
		TicketID: dbID,
		Type:     eventType,
		Actor:    actor.Name,
		ActorID:  actor.UserID,
		Detail:   detail,
	}
	if err := s.history.Append(ctx, entry); err != nil {
		return nil, apperrors.MapError(err)
	}
	return entry, nil
}

// ListHistory returns the activity log of a ticket, oldest first.
func (s *TicketService) ListHistory(ctx context.Context, viewer listview.Viewer, dbID int64) ([]domain.HistoryEvent, error) {
	ticket, err := s.tickets.GetByDBID(ctx, dbID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !canViewTicket(viewer, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	entries, err := s.history.ListByTicket(ctx, dbID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *TicketService) applyStatus(ctx context.Context, actor events.Actor, ticket *domain.Ticket, target domain.TicketStatus, holdReason string) (*domain.Ticket, error) {
	oldStatus := ticket.Status
	ticket.Status = target
	if target == domain.TicketStatusHold {
		ticket.HoldReason = holdReason
	} else {
		ticket.HoldReason = ""
	}
	if target.IsTerminal() {
		now := time.Now()
		ticket.ClosedAt = &now
	} else {
		ticket.ClosedAt = nil
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	historyType := domain.HistoryEventStatusChange
	detail := string(oldStatus) + " -> " + string(target)
	if target == domain.TicketStatusHold {
		historyType = domain.HistoryEventHold
		detail = holdReason
	}
	s.appendHistory(ctx, ticket.DBID, historyType, actor, detail)
	s.invalidate(ctx)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.DBID,
		Actor:    actor,
		Payload: events.TicketStatusChangedPayload{
			OldStatus:  oldStatus,
			NewStatus:  target,
			HoldReason: ticket.HoldReason,
		},
	})
	return ticket, nil
}

func (s *TicketService) loadAll(ctx context.Context) ([]domain.Ticket, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, listCacheScope); ok {
			return cached, nil
		}
	}
	all, err := s.tickets.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, listCacheScope, all)
	}
	return all, nil
}

func (s *TicketService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

func (s *TicketService) appendHistory(ctx context.Context, ticketID int64, eventType domain.HistoryEventType, actor events.Actor, detail string) {
	if s.history == nil {
		return
	}
	_ = s.history.Append(ctx, &domain.HistoryEvent{
		TicketID: ticketID,
		Type:     eventType,
		Actor:    actor.Name,
		ActorID:  actor.UserID,
		Detail:   detail,
	})
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func canViewTicket(viewer listview.Viewer, ticket *domain.Ticket) bool {
	switch viewer.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleTechnician:
		return ticket.AssigneeID == nil || *ticket.AssigneeID == viewer.UserID
	default:
		return ticket.OwnerID != nil && *ticket.OwnerID == viewer.UserID
	}
}
