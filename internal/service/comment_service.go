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
	"github.com/deskforge/servicedesk/internal/repository"
	apperrors "github.com/deskforge/servicedesk/pkg/util/errorutil"
)

// CommentService manages the communication thread and CSAT feedback of a
// ticket.
type CommentService struct {
	comments   repository.CommentRepository
	feedback   repository.FeedbackRepository
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
}

// CommentDependencies bundles collaborators for the comment service.
type CommentDependencies struct {
	CommentRepo  repository.CommentRepository
	FeedbackRepo repository.FeedbackRepository
	TicketRepo   repository.TicketRepository
	HistoryRepo  repository.TicketHistoryRepository
	Dispatcher   events.Dispatcher
}

// NewCommentService constructs the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	return &CommentService{
		comments:   deps.CommentRepo,
		feedback:   deps.FeedbackRepo,
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
	}
}

// AddComment appends a comment to a ticket's thread. Internal notes are
// restricted to staff.
func (s *CommentService) AddComment(ctx context.Context, actor events.Actor, ticketID int64, body string, internal bool) (*domain.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body is required", nil)
	}
	if internal && actor.Role == domain.RoleUser {
		return nil, apperrors.NewForbidden("internal notes are limited to staff")
	}
	if _, err := s.tickets.GetByDBID(ctx, ticketID); err != nil {
		return nil, apperrors.MapError(err)
	}

	comment := &domain.Comment{
		TicketID:   ticketID,
		AuthorID:   actor.UserID,
		AuthorName: actor.Name,
		Body:       body,
		Internal:   internal,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.history != nil {
		_ = s.history.Append(ctx, &domain.HistoryEvent{
			TicketID: ticketID,
			Type:     domain.HistoryEventComment,
			Actor:    actor.Name,
			ActorID:  actor.UserID,
			Detail:   preview(body, 120),
		})
	}
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			Type:      events.EventCommentAdded,
			TicketID:  ticketID,
			Actor:     actor,
			Timestamp: time.Now(),
			Payload: events.CommentAddedPayload{
				CommentID:   comment.ID,
				Internal:    comment.Internal,
				BodyPreview: preview(body, 120),
			},
		})
	}
	return comment, nil
}

// ListComments returns a ticket's thread. End-users never see internal
// notes.
func (s *CommentService) ListComments(ctx context.Context, viewer listview.Viewer, ticketID int64) ([]domain.Comment, error) {
	ticket, err := s.tickets.GetByDBID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !canViewTicket(viewer, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}

	all, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if viewer.Role != domain.RoleUser {
		return all, nil
	}
	visible := make([]domain.Comment, 0, len(all))
	for _, comment := range all {
		if !comment.Internal {
			visible = append(visible, comment)
		}
	}
	return visible, nil
}

// SubmitFeedback records a CSAT rating for a resolved or closed ticket.
// One rating per ticket; repeats are rejected.
func (s *CommentService) SubmitFeedback(ctx context.Context, actor events.Actor, ticketID int64, rating int, comment string) (*domain.Feedback, error) {
	if rating < 1 || rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", nil)
	}
	ticket, err := s.tickets.GetByDBID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !ticket.Status.IsTerminal() {
		return nil, apperrors.NewConflict("feedback is only accepted after resolution", nil)
	}
	if actor.UserID != nil && (ticket.OwnerID == nil || *ticket.OwnerID != *actor.UserID) && actor.Role == domain.RoleUser {
		return nil, apperrors.NewForbidden("only the requester can rate this ticket")
	}
	if _, err := s.feedback.GetByTicket(ctx, ticketID); err == nil {
		return nil, apperrors.NewConflict("feedback already submitted", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	entry := &domain.Feedback{
		TicketID: ticketID,
		UserID:   actor.UserID,
		Rating:   rating,
		Comment:  strings.TrimSpace(comment),
	}
	if err := s.feedback.Create(ctx, entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			Type:      events.EventFeedbackSubmitted,
			TicketID:  ticketID,
			Actor:     actor,
			Timestamp: time.Now(),
			Payload:   events.FeedbackSubmittedPayload{Rating: rating},
		})
	}
	return entry, nil
}

// GetFeedback returns the CSAT entry of a ticket if present.
func (s *CommentService) GetFeedback(ctx context.Context, ticketID int64) (*domain.Feedback, error) {
	entry, err := s.feedback.GetByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entry, nil
}

func preview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
