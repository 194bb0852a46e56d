package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskforge/servicedesk/internal/domain"
	"github.com/deskforge/servicedesk/internal/events"
	"github.com/deskforge/servicedesk/internal/listview"
	"github.com/deskforge/servicedesk/internal/repository"
	apperrors "github.com/deskforge/servicedesk/pkg/util/errorutil"
)

func newTicketFixture(t *testing.T) (*TicketService, *repository.MemoryTicketRepository, *repository.MemoryHistoryRepository, *repository.MemoryUserRepository) {
	t.Helper()
	tickets := repository.NewMemoryTicketRepository()
	history := repository.NewMemoryHistoryRepository()
	users := repository.NewMemoryUserRepository()
	svc := NewTicketService(TicketDependencies{
		TicketRepo:  tickets,
		HistoryRepo: history,
		UserRepo:    users,
		Dispatcher:  events.NewInMemoryDispatcher(),
	})
	return svc, tickets, history, users
}

func testActor(id int64, role domain.UserRole, name string) events.Actor {
	return events.Actor{UserID: &id, Role: role, Name: name}
}

func int64p(v int64) *int64 { return &v }

func TestCreateTicket(t *testing.T) {
	ctx := context.Background()
	actor := testActor(1, domain.RoleUser, "Dana")

	t.Run("requires a category", func(t *testing.T) {
		svc, _, _, _ := newTicketFixture(t)
		_, err := svc.CreateTicket(ctx, actor, TicketCreateInput{Subject: "Printer jam"})
		require.Error(t, err)
		domainErr := apperrors.ToDomainError(err)
		assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
		assert.Equal(t, "Please select a category", domainErr.Message)
	})

	t.Run("requires a subject", func(t *testing.T) {
		svc, _, _, _ := newTicketFixture(t)
		_, err := svc.CreateTicket(ctx, actor, TicketCreateInput{CategoryID: int64p(3)})
		require.Error(t, err)
		assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
	})

	t.Run("creates with defaults and records history", func(t *testing.T) {
		svc, _, history, _ := newTicketFixture(t)
		ticket, err := svc.CreateTicket(ctx, actor, TicketCreateInput{
			Subject:    "  Printer jam  ",
			Priority:   "normal",
			CategoryID: int64p(3),
		})
		require.NoError(t, err)

		assert.Equal(t, "Printer jam", ticket.Subject)
		assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
		assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
		assert.Equal(t, "#TKT-1", ticket.DisplayID())
		assert.Equal(t, "Dana", ticket.RequesterName)

		entries, err := history.ListByTicket(ctx, ticket.DBID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, domain.HistoryEventCreated, entries[0].Type)
	})
}

func TestDropOnBoard(t *testing.T) {
	ctx := context.Background()
	actor := testActor(2, domain.RoleTechnician, "Theo")

	seed := func(t *testing.T) (*TicketService, *repository.MemoryHistoryRepository, *domain.Ticket) {
		svc, _, history, _ := newTicketFixture(t)
		ticket, err := svc.CreateTicket(ctx, actor, TicketCreateInput{Subject: "VPN down", CategoryID: int64p(1)})
		require.NoError(t, err)
		return svc, history, ticket
	}

	t.Run("same column is a no-op", func(t *testing.T) {
		svc, history, ticket := seed(t)
		before, _ := history.ListByTicket(ctx, ticket.DBID)

		result, err := svc.DropOnBoard(ctx, actor, ticket.DBID, domain.TicketStatusOpen, "")
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusOpen, result.Status)

		after, _ := history.ListByTicket(ctx, ticket.DBID)
		assert.Len(t, after, len(before))
	})

	t.Run("hold requires a reason", func(t *testing.T) {
		svc, _, ticket := seed(t)
		_, err := svc.DropOnBoard(ctx, actor, ticket.DBID, domain.TicketStatusHold, "  ")
		require.Error(t, err)
		assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
	})

	t.Run("hold with reason records a hold entry", func(t *testing.T) {
		svc, history, ticket := seed(t)
		result, err := svc.DropOnBoard(ctx, actor, ticket.DBID, domain.TicketStatusHold, "waiting for parts")
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusHold, result.Status)
		assert.Equal(t, "waiting for parts", result.HoldReason)

		entries, _ := history.ListByTicket(ctx, ticket.DBID)
		last := entries[len(entries)-1]
		assert.Equal(t, domain.HistoryEventHold, last.Type)
		assert.Equal(t, "waiting for parts", last.Detail)
	})

	t.Run("terminal drop stamps closed time and leaving hold clears the reason", func(t *testing.T) {
		svc, _, ticket := seed(t)
		held, err := svc.DropOnBoard(ctx, actor, ticket.DBID, domain.TicketStatusHold, "parts")
		require.NoError(t, err)

		moved, err := svc.DropOnBoard(ctx, actor, held.DBID, domain.TicketStatusResolved, "")
		require.NoError(t, err)
		assert.Empty(t, moved.HoldReason)
		require.NotNil(t, moved.ClosedAt)
	})
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	actor := testActor(2, domain.RoleTechnician, "Theo")
	svc, _, history, _ := newTicketFixture(t)

	ticket, err := svc.CreateTicket(ctx, actor, TicketCreateInput{Subject: "Broken dock", CategoryID: int64p(1)})
	require.NoError(t, err)

	_, err = svc.Reopen(ctx, actor, ticket.DBID)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)

	_, err = svc.ChangeStatus(ctx, actor, ticket.DBID, domain.TicketStatusResolved, "")
	require.NoError(t, err)

	reopened, err := svc.Reopen(ctx, actor, ticket.DBID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusReopened, reopened.Status)
	assert.Nil(t, reopened.ClosedAt)

	entries, _ := history.ListByTicket(ctx, ticket.DBID)
	last := entries[len(entries)-1]
	assert.Equal(t, domain.HistoryEventReopened, last.Type)
}

func TestAssignTickets(t *testing.T) {
	ctx := context.Background()
	admin := testActor(1, domain.RoleAdmin, "Ada")
	svc, _, _, users := newTicketFixture(t)

	tech := &domain.User{Name: "Theo", Email: "theo@example.com", Role: domain.RoleTechnician, Active: true}
	require.NoError(t, users.Create(ctx, tech))
	enduser := &domain.User{Name: "Dana", Email: "dana@example.com", Role: domain.RoleUser, Active: true}
	require.NoError(t, users.Create(ctx, enduser))

	first, err := svc.CreateTicket(ctx, admin, TicketCreateInput{Subject: "One", CategoryID: int64p(1)})
	require.NoError(t, err)
	second, err := svc.CreateTicket(ctx, admin, TicketCreateInput{Subject: "Two", CategoryID: int64p(1)})
	require.NoError(t, err)

	t.Run("rejects non-technician assignee", func(t *testing.T) {
		_, err := svc.AssignTickets(ctx, admin, []int64{first.DBID}, enduser.ID)
		require.Error(t, err)
		assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
	})

	t.Run("assigns the batch", func(t *testing.T) {
		affected, err := svc.AssignTickets(ctx, admin, []int64{first.DBID, second.DBID}, tech.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), affected)

		got, err := svc.GetTicket(ctx, listview.Viewer{UserID: tech.ID, Role: domain.RoleTechnician}, first.DBID)
		require.NoError(t, err)
		require.NotNil(t, got.AssigneeID)
		assert.Equal(t, tech.ID, *got.AssigneeID)
	})

	t.Run("rejects empty selection", func(t *testing.T) {
		_, err := svc.AssignTickets(ctx, admin, nil, tech.ID)
		require.Error(t, err)
	})
}

func TestSelfAssign(t *testing.T) {
	ctx := context.Background()
	admin := testActor(1, domain.RoleAdmin, "Ada")
	tech := testActor(7, domain.RoleTechnician, "Theo")
	svc, _, _, _ := newTicketFixture(t)

	ticket, err := svc.CreateTicket(ctx, admin, TicketCreateInput{Subject: "Pickup me", CategoryID: int64p(1)})
	require.NoError(t, err)

	_, err = svc.SelfAssign(ctx, testActor(9, domain.RoleUser, "Dana"), ticket.DBID)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)

	picked, err := svc.SelfAssign(ctx, tech, ticket.DBID)
	require.NoError(t, err)
	require.NotNil(t, picked.AssigneeID)
	assert.Equal(t, int64(7), *picked.AssigneeID)

	_, err = svc.SelfAssign(ctx, testActor(8, domain.RoleTechnician, "Tova"), ticket.DBID)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
}

func TestAppendHistoryEvent(t *testing.T) {
	ctx := context.Background()
	actor := testActor(2, domain.RoleTechnician, "Theo")
	svc, _, _, _ := newTicketFixture(t)

	ticket, err := svc.CreateTicket(ctx, actor, TicketCreateInput{Subject: "Log me", CategoryID: int64p(1)})
	require.NoError(t, err)

	_, err = svc.AppendHistoryEvent(ctx, actor, ticket.DBID, "bogus_type", "nope")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	entry, err := svc.AppendHistoryEvent(ctx, actor, ticket.DBID, domain.HistoryEventAIAutoReply, "auto reply sent")
	require.NoError(t, err)
	assert.NotZero(t, entry.ID)

	viewer := listview.Viewer{UserID: 2, Role: domain.RoleTechnician}
	entries, err := svc.ListHistory(ctx, viewer, ticket.DBID)
	require.NoError(t, err)
	assert.Equal(t, domain.HistoryEventAIAutoReply, entries[len(entries)-1].Type)
}

func TestGetTicketAccess(t *testing.T) {
	ctx := context.Background()
	owner := testActor(9, domain.RoleUser, "Dana")
	svc, _, _, _ := newTicketFixture(t)

	ticket, err := svc.CreateTicket(ctx, owner, TicketCreateInput{Subject: "Mine", CategoryID: int64p(1)})
	require.NoError(t, err)

	_, err = svc.GetTicket(ctx, listview.Viewer{UserID: 9, Role: domain.RoleUser}, ticket.DBID)
	require.NoError(t, err)

	_, err = svc.GetTicket(ctx, listview.Viewer{UserID: 4, Role: domain.RoleUser}, ticket.DBID)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)

	_, err = svc.GetTicket(ctx, listview.Viewer{UserID: 1, Role: domain.RoleAdmin}, ticket.DBID)
	require.NoError(t, err)
}
