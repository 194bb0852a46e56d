package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskforge/servicedesk/internal/domain"
	"github.com/deskforge/servicedesk/internal/events"
	"github.com/deskforge/servicedesk/internal/listview"
	"github.com/deskforge/servicedesk/internal/repairflow"
	"github.com/deskforge/servicedesk/internal/repository"
	apperrors "github.com/deskforge/servicedesk/pkg/util/errorutil"
)

func newRepairFixture(t *testing.T) (*RepairService, *TicketService, *repository.MemoryUserRepository) {
	t.Helper()
	tickets := repository.NewMemoryTicketRepository()
	history := repository.NewMemoryHistoryRepository()
	users := repository.NewMemoryUserRepository()
	repairs := repository.NewMemoryRepairRepository()
	dispatcher := events.NewInMemoryDispatcher()

	ticketSvc := NewTicketService(TicketDependencies{
		TicketRepo:  tickets,
		HistoryRepo: history,
		UserRepo:    users,
		Dispatcher:  dispatcher,
	})
	repairSvc := NewRepairService(RepairDependencies{
		RepairRepo:  repairs,
		TicketRepo:  tickets,
		UserRepo:    users,
		HistoryRepo: history,
		Dispatcher:  dispatcher,
	})
	return repairSvc, ticketSvc, users
}

func TestInitRepair(t *testing.T) {
	ctx := context.Background()
	actor := testActor(2, domain.RoleTechnician, "Theo")
	repairSvc, ticketSvc, _ := newRepairFixture(t)

	ticket, err := ticketSvc.CreateTicket(ctx, actor, TicketCreateInput{Subject: "Dead fan", CategoryID: int64p(1)})
	require.NoError(t, err)

	details, err := repairSvc.InitRepair(ctx, actor, ticket.DBID, RepairInitInput{
		ReasonForRepair: "fan bearing worn",
		PickupLocation:  "Desk 4, Floor 2",
	})
	require.NoError(t, err)
	assert.Equal(t, "Dead fan", details.IssueTitle)

	updated, err := ticketSvc.GetTicket(ctx, adminViewer(), ticket.DBID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusRepairing, updated.Status)

	_, err = repairSvc.InitRepair(ctx, actor, ticket.DBID, RepairInitInput{})
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
}

func TestAdvanceStageOrdering(t *testing.T) {
	ctx := context.Background()
	actor := testActor(2, domain.RoleTechnician, "Theo")
	repairSvc, ticketSvc, _ := newRepairFixture(t)

	ticket, err := ticketSvc.CreateTicket(ctx, actor, TicketCreateInput{Subject: "Cracked screen", CategoryID: int64p(1)})
	require.NoError(t, err)
	_, err = repairSvc.InitRepair(ctx, actor, ticket.DBID, RepairInitInput{})
	require.NoError(t, err)

	t.Run("skipping ahead is rejected", func(t *testing.T) {
		_, err := repairSvc.AdvanceStage(ctx, actor, ticket.DBID, repairflow.StageArrival)
		require.Error(t, err)
		assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
	})

	t.Run("stages complete strictly in order", func(t *testing.T) {
		for _, stage := range []repairflow.Stage{
			repairflow.StagePickup,
			repairflow.StageDeparture,
			repairflow.StageArrival,
		} {
			details, err := repairSvc.AdvanceStage(ctx, actor, ticket.DBID, stage)
			require.NoError(t, err, "stage %s", stage)
			require.NotNil(t, details)
		}

		details, _, err := repairSvc.GetRepair(ctx, adminViewer(), ticket.DBID)
		require.NoError(t, err)
		require.NotNil(t, details.TechReachedTime)
		assert.Nil(t, details.ResolutionTime)
	})

	t.Run("report stamps the resolution stage", func(t *testing.T) {
		details, err := repairSvc.SubmitReport(ctx, actor, ticket.DBID, "replaced the panel")
		require.NoError(t, err)
		require.NotNil(t, details.ResolutionTime)
	})

	t.Run("closing the repair closes the ticket", func(t *testing.T) {
		_, err := repairSvc.AdvanceStage(ctx, actor, ticket.DBID, repairflow.StageDelivery)
		require.NoError(t, err)
		_, err = repairSvc.AdvanceStage(ctx, actor, ticket.DBID, repairflow.StageClosed)
		require.NoError(t, err)

		closed, err := ticketSvc.GetTicket(ctx, adminViewer(), ticket.DBID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusClosed, closed.Status)
		require.NotNil(t, closed.ClosedAt)
	})

	t.Run("closed repair rejects further changes", func(t *testing.T) {
		_, err := repairSvc.AdvanceStage(ctx, actor, ticket.DBID, repairflow.StageDelivery)
		require.Error(t, err)
		assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
	})
}

func TestAssignTechnicianBranch(t *testing.T) {
	ctx := context.Background()
	actor := testActor(2, domain.RoleTechnician, "Theo")
	repairSvc, ticketSvc, users := newRepairFixture(t)

	tech := &domain.User{Name: "Vera", Email: "vera@example.com", Role: domain.RoleTechnician, Active: true}
	require.NoError(t, users.Create(ctx, tech))

	ticket, err := ticketSvc.CreateTicket(ctx, actor, TicketCreateInput{Subject: "No boot", CategoryID: int64p(1)})
	require.NoError(t, err)
	_, err = repairSvc.InitRepair(ctx, actor, ticket.DBID, RepairInitInput{})
	require.NoError(t, err)

	t.Run("unavailable before arrival", func(t *testing.T) {
		_, err := repairSvc.AssignTechnician(ctx, actor, ticket.DBID, tech.ID, domain.VisitTypeCheck)
		require.Error(t, err)
		assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
	})

	t.Run("books a visiting technician after arrival", func(t *testing.T) {
		for _, stage := range []repairflow.Stage{
			repairflow.StagePickup, repairflow.StageDeparture, repairflow.StageArrival,
		} {
			_, err := repairSvc.AdvanceStage(ctx, actor, ticket.DBID, stage)
			require.NoError(t, err)
		}

		details, err := repairSvc.AssignTechnician(ctx, actor, ticket.DBID, tech.ID, domain.VisitTypeFix)
		require.NoError(t, err)
		require.NotNil(t, details.VisitingTechID)
		assert.Equal(t, tech.ID, *details.VisitingTechID)
		require.NotNil(t, details.VisitType)
		assert.Equal(t, domain.VisitTypeFix, *details.VisitType)
	})

	t.Run("second booking is rejected", func(t *testing.T) {
		_, err := repairSvc.AssignTechnician(ctx, actor, ticket.DBID, tech.ID, domain.VisitTypeCheck)
		require.Error(t, err)
	})
}

func TestGetRepairFollowsTicketAccess(t *testing.T) {
	ctx := context.Background()
	staff := testActor(2, domain.RoleTechnician, "Theo")
	repairSvc, ticketSvc, _ := newRepairFixture(t)

	requester := testActor(5, domain.RoleUser, "Rhea")
	ticket, err := ticketSvc.CreateTicket(ctx, requester, TicketCreateInput{Subject: "Bent hinge", CategoryID: int64p(1)})
	require.NoError(t, err)
	_, err = repairSvc.InitRepair(ctx, staff, ticket.DBID, RepairInitInput{})
	require.NoError(t, err)

	t.Run("the requester can read their repair record", func(t *testing.T) {
		details, _, err := repairSvc.GetRepair(ctx, listview.Viewer{UserID: 5, Role: domain.RoleUser}, ticket.DBID)
		require.NoError(t, err)
		assert.Equal(t, ticket.DBID, details.TicketID)
	})

	t.Run("another requester is rejected", func(t *testing.T) {
		_, _, err := repairSvc.GetRepair(ctx, listview.Viewer{UserID: 6, Role: domain.RoleUser}, ticket.DBID)
		require.Error(t, err)
		assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
	})
}

type memoryListCache struct {
	mu            sync.Mutex
	lists         map[string][]domain.Ticket
	invalidations int
}

func newMemoryListCache() *memoryListCache {
	return &memoryListCache{lists: make(map[string][]domain.Ticket)}
}

func (c *memoryListCache) Get(_ context.Context, scopeKey string) ([]domain.Ticket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tickets, ok := c.lists[scopeKey]
	return tickets, ok
}

func (c *memoryListCache) Set(_ context.Context, scopeKey string, tickets []domain.Ticket) {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := make([]domain.Ticket, len(tickets))
	copy(copied, tickets)
	c.lists[scopeKey] = copied
}

func (c *memoryListCache) Invalidate(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists = make(map[string][]domain.Ticket)
	c.invalidations++
}

func TestRepairMutationsInvalidateCachedLists(t *testing.T) {
	ctx := context.Background()
	actor := testActor(2, domain.RoleTechnician, "Theo")

	tickets := repository.NewMemoryTicketRepository()
	history := repository.NewMemoryHistoryRepository()
	users := repository.NewMemoryUserRepository()
	repairs := repository.NewMemoryRepairRepository()
	cache := newMemoryListCache()

	ticketSvc := NewTicketService(TicketDependencies{
		TicketRepo:  tickets,
		HistoryRepo: history,
		UserRepo:    users,
		Cache:       cache,
	})
	repairSvc := NewRepairService(RepairDependencies{
		RepairRepo:  repairs,
		TicketRepo:  tickets,
		UserRepo:    users,
		HistoryRepo: history,
		Cache:       cache,
	})

	ticket, err := ticketSvc.CreateTicket(ctx, actor, TicketCreateInput{Subject: "Coil whine", CategoryID: int64p(1)})
	require.NoError(t, err)

	list := func() listview.Page {
		page, err := ticketSvc.ListTickets(ctx, listview.Params{Viewer: adminViewer()})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		return page
	}

	page := list()
	assert.Equal(t, domain.TicketStatusOpen, page.Items[0].Status)

	_, err = repairSvc.InitRepair(ctx, actor, ticket.DBID, RepairInitInput{})
	require.NoError(t, err)
	page = list()
	assert.Equal(t, domain.TicketStatusRepairing, page.Items[0].Status, "cached list must not serve the pre-repair status")

	for _, stage := range repairflow.Order {
		_, err = repairSvc.AdvanceStage(ctx, actor, ticket.DBID, stage)
		require.NoError(t, err)
	}
	page = list()
	assert.Equal(t, domain.TicketStatusClosed, page.Items[0].Status, "cached list must not serve the pre-close status")
	require.NotNil(t, page.Items[0].ClosedAt)
	assert.GreaterOrEqual(t, cache.invalidations, 2)
}

func adminViewer() listview.Viewer {
	return listview.Viewer{UserID: 1, Role: domain.RoleAdmin}
}
