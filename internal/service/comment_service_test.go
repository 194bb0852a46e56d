package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskforge/servicedesk/internal/domain"
	"github.com/deskforge/servicedesk/internal/events"
	"github.com/deskforge/servicedesk/internal/listview"
	"github.com/deskforge/servicedesk/internal/repository"
	apperrors "github.com/deskforge/servicedesk/pkg/util/errorutil"
)

type memoryCommentRepo struct {
	rows   []domain.Comment
	nextID int64
}

func (r *memoryCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.nextID++
	comment.ID = r.nextID
	r.rows = append(r.rows, *comment)
	return nil
}

func (r *memoryCommentRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.Comment, error) {
	var result []domain.Comment
	for _, comment := range r.rows {
		if comment.TicketID == ticketID {
			result = append(result, comment)
		}
	}
	return result, nil
}

type memoryFeedbackRepo struct {
	rows   map[int64]domain.Feedback
	nextID int64
}

func (r *memoryFeedbackRepo) Create(_ context.Context, feedback *domain.Feedback) error {
	r.nextID++
	feedback.ID = r.nextID
	r.rows[feedback.TicketID] = *feedback
	return nil
}

func (r *memoryFeedbackRepo) GetByTicket(_ context.Context, ticketID int64) (*domain.Feedback, error) {
	stored, ok := r.rows[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &stored, nil
}

func newCommentFixture(t *testing.T) (*CommentService, *TicketService) {
	t.Helper()
	tickets := repository.NewMemoryTicketRepository()
	history := repository.NewMemoryHistoryRepository()
	users := repository.NewMemoryUserRepository()
	dispatcher := events.NewInMemoryDispatcher()

	ticketSvc := NewTicketService(TicketDependencies{
		TicketRepo:  tickets,
		HistoryRepo: history,
		UserRepo:    users,
		Dispatcher:  dispatcher,
	})
	commentSvc := NewCommentService(CommentDependencies{
		CommentRepo:  &memoryCommentRepo{},
		FeedbackRepo: &memoryFeedbackRepo{rows: make(map[int64]domain.Feedback)},
		TicketRepo:   tickets,
		HistoryRepo:  history,
		Dispatcher:   dispatcher,
	})
	return commentSvc, ticketSvc
}

func TestAddComment(t *testing.T) {
	ctx := context.Background()
	owner := testActor(9, domain.RoleUser, "Dana")
	tech := testActor(2, domain.RoleTechnician, "Theo")
	commentSvc, ticketSvc := newCommentFixture(t)

	ticket, err := ticketSvc.CreateTicket(ctx, owner, TicketCreateInput{Subject: "Slow laptop", CategoryID: int64p(1)})
	require.NoError(t, err)

	t.Run("rejects empty body", func(t *testing.T) {
		_, err := commentSvc.AddComment(ctx, owner, ticket.DBID, "   ", false)
		require.Error(t, err)
		assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
	})

	t.Run("end-users cannot post internal notes", func(t *testing.T) {
		_, err := commentSvc.AddComment(ctx, owner, ticket.DBID, "secret", true)
		require.Error(t, err)
		assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
	})

	t.Run("internal notes are hidden from the requester", func(t *testing.T) {
		_, err := commentSvc.AddComment(ctx, owner, ticket.DBID, "it hangs on boot", false)
		require.NoError(t, err)
		_, err = commentSvc.AddComment(ctx, tech, ticket.DBID, "suspect failing disk", true)
		require.NoError(t, err)

		asOwner, err := commentSvc.ListComments(ctx, listview.Viewer{UserID: 9, Role: domain.RoleUser}, ticket.DBID)
		require.NoError(t, err)
		require.Len(t, asOwner, 1)
		assert.Equal(t, "it hangs on boot", asOwner[0].Body)

		asAdmin, err := commentSvc.ListComments(ctx, adminViewer(), ticket.DBID)
		require.NoError(t, err)
		assert.Len(t, asAdmin, 2)
	})
}

func TestSubmitFeedback(t *testing.T) {
	ctx := context.Background()
	owner := testActor(9, domain.RoleUser, "Dana")
	tech := testActor(2, domain.RoleTechnician, "Theo")
	commentSvc, ticketSvc := newCommentFixture(t)

	ticket, err := ticketSvc.CreateTicket(ctx, owner, TicketCreateInput{Subject: "Rate me", CategoryID: int64p(1)})
	require.NoError(t, err)

	t.Run("rejects ratings outside 1..5", func(t *testing.T) {
		_, err := commentSvc.SubmitFeedback(ctx, owner, ticket.DBID, 0, "")
		require.Error(t, err)
		_, err = commentSvc.SubmitFeedback(ctx, owner, ticket.DBID, 6, "")
		require.Error(t, err)
	})

	t.Run("only accepted after resolution", func(t *testing.T) {
		_, err := commentSvc.SubmitFeedback(ctx, owner, ticket.DBID, 5, "great")
		require.Error(t, err)
		assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
	})

	t.Run("stores one rating and rejects repeats", func(t *testing.T) {
		_, err := ticketSvc.ChangeStatus(ctx, tech, ticket.DBID, domain.TicketStatusResolved, "")
		require.NoError(t, err)

		entry, err := commentSvc.SubmitFeedback(ctx, owner, ticket.DBID, 4, "quick fix")
		require.NoError(t, err)
		assert.Equal(t, 4, entry.Rating)

		_, err = commentSvc.SubmitFeedback(ctx, owner, ticket.DBID, 5, "again")
		require.Error(t, err)
		assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
	})

	t.Run("only the requester can rate", func(t *testing.T) {
		other, err := ticketSvc.CreateTicket(ctx, owner, TicketCreateInput{Subject: "Another", CategoryID: int64p(1)})
		require.NoError(t, err)
		_, err = ticketSvc.ChangeStatus(ctx, tech, other.DBID, domain.TicketStatusClosed, "")
		require.NoError(t, err)

		_, err = commentSvc.SubmitFeedback(ctx, testActor(4, domain.RoleUser, "Eve"), other.DBID, 3, "")
		require.Error(t, err)
		assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
	})
}
