package listview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskforge/servicedesk/internal/domain"
)

func ptr(v int64) *int64 { return &v }

func fixture(now time.Time) []domain.Ticket {
	mk := func(id int64, owner, assignee *int64, subject string, status domain.TicketStatus, priority domain.TicketPriority, age time.Duration) domain.Ticket {
		return domain.Ticket{
			DBID:          id,
			DisplayKey:    domain.MakeDisplayKey(id),
			OwnerID:       owner,
			AssigneeID:    assignee,
			RequesterName: "Requester " + subject,
			Subject:       subject,
			Status:        status,
			Priority:      priority,
			CreatedAt:     now.Add(-age),
			UpdatedAt:     now.Add(-age / 2),
		}
	}
	return []domain.Ticket{
		mk(1, ptr(9), ptr(7), "VPN broken", domain.TicketStatusOpen, domain.TicketPriorityCritical, time.Hour),
		mk(2, ptr(9), nil, "Printer jam", domain.TicketStatusOpen, domain.TicketPriorityLow, 2*time.Hour),
		mk(3, ptr(5), ptr(7), "Laptop dead", domain.TicketStatusInProgress, domain.TicketPriorityHigh, 3*time.Hour),
		mk(4, ptr(5), ptr(8), "Slow wifi", domain.TicketStatusPending, domain.TicketPriorityMedium, 4*time.Hour),
		mk(5, ptr(7), ptr(8), "Email bounce", domain.TicketStatusHold, domain.TicketPriorityHigh, 5*time.Hour),
	}
}

func TestRoleScoping(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	src := fixture(now)

	t.Run("technician sees only assigned tickets", func(t *testing.T) {
		page := Apply(src, Params{Viewer: Viewer{UserID: 7, Role: domain.RoleTechnician}, Now: now})
		require.Len(t, page.Items, 2)
		for _, item := range page.Items {
			require.NotNil(t, item.AssigneeID)
			// ticket 5 is owned by 7 but assigned to 8; ownership must not leak in
			assert.EqualValues(t, 7, *item.AssigneeID)
		}
	})

	t.Run("requester sees only owned tickets", func(t *testing.T) {
		page := Apply(src, Params{Viewer: Viewer{UserID: 9, Role: domain.RoleUser}, Now: now})
		require.Len(t, page.Items, 2)
		for _, item := range page.Items {
			require.NotNil(t, item.OwnerID)
			assert.EqualValues(t, 9, *item.OwnerID)
		}
	})

	t.Run("admin sees everything", func(t *testing.T) {
		page := Apply(src, Params{Viewer: Viewer{UserID: 1, Role: domain.RoleAdmin}, Now: now})
		assert.Len(t, page.Items, 5)
	})
}

func TestSort(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	viewer := Viewer{UserID: 1, Role: domain.RoleAdmin}

	t.Run("priority descending ranks critical first", func(t *testing.T) {
		src := []domain.Ticket{
			{DBID: 1, DisplayKey: "TKT-1", Priority: domain.TicketPriorityLow, CreatedAt: now},
			{DBID: 2, DisplayKey: "TKT-2", Priority: domain.ParsePriority("Normal"), CreatedAt: now},
			{DBID: 3, DisplayKey: "TKT-3", Priority: domain.TicketPriorityCritical, CreatedAt: now},
			{DBID: 4, DisplayKey: "TKT-4", Priority: domain.TicketPriorityMedium, CreatedAt: now},
			{DBID: 5, DisplayKey: "TKT-5", Priority: domain.TicketPriority("bogus"), CreatedAt: now},
			{DBID: 6, DisplayKey: "TKT-6", Priority: domain.TicketPriorityHigh, CreatedAt: now},
		}
		page := Apply(src, Params{Viewer: viewer, Sort: SortByPriority, Dir: Descending, Now: now})
		got := make([]int64, 0, len(page.Items))
		for _, item := range page.Items {
			got = append(got, item.DBID)
		}
		// medium (2) and normal-alias (4) tie; stable sort keeps original order
		assert.Equal(t, []int64{3, 6, 2, 4, 1, 5}, got)
	})

	t.Run("id sorts on numeric suffix not lexicographically", func(t *testing.T) {
		src := []domain.Ticket{
			{DBID: 100, DisplayKey: "TKT-100", CreatedAt: now},
			{DBID: 9, DisplayKey: "TKT-9", CreatedAt: now},
			{DBID: 25, DisplayKey: "TKT-25", CreatedAt: now},
		}
		page := Apply(src, Params{Viewer: viewer, Sort: SortByID, Dir: Ascending, Now: now})
		assert.EqualValues(t, 9, page.Items[0].DBID)
		assert.EqualValues(t, 25, page.Items[1].DBID)
		assert.EqualValues(t, 100, page.Items[2].DBID)
	})
}

func TestTabs(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	src := fixture(now)
	viewer := Viewer{UserID: 7, Role: domain.RoleAdmin}

	t.Run("my_tickets matches owner or assignee", func(t *testing.T) {
		page := Apply(src, Params{Viewer: viewer, Tab: TabMyTickets, Now: now})
		assert.Len(t, page.Items, 3) // assigned 1 and 3, owns 5
	})

	t.Run("unassigned", func(t *testing.T) {
		page := Apply(src, Params{Viewer: viewer, Tab: TabUnassigned, Now: now})
		require.Len(t, page.Items, 1)
		assert.EqualValues(t, 2, page.Items[0].DBID)
	})

	t.Run("high_priority includes critical and high", func(t *testing.T) {
		page := Apply(src, Params{Viewer: viewer, Tab: TabHighPriority, Now: now})
		assert.Len(t, page.Items, 3)
	})

	t.Run("pending_approval", func(t *testing.T) {
		page := Apply(src, Params{Viewer: viewer, Tab: TabPendingApproval, Now: now})
		require.Len(t, page.Items, 1)
		assert.Equal(t, domain.TicketStatusPending, page.Items[0].Status)
	})

	t.Run("sla_risk picks breached and near-deadline tickets", func(t *testing.T) {
		deadline := now.Add(30 * time.Minute)
		src := []domain.Ticket{
			{DBID: 1, DisplayKey: "TKT-1", Status: domain.TicketStatusOpen, CreatedAt: now.Add(-49 * time.Hour)},
			{DBID: 2, DisplayKey: "TKT-2", Status: domain.TicketStatusOpen, CreatedAt: now.Add(-time.Hour), SLADeadline: &deadline},
			{DBID: 3, DisplayKey: "TKT-3", Status: domain.TicketStatusOpen, CreatedAt: now.Add(-time.Hour)},
			{DBID: 4, DisplayKey: "TKT-4", Status: domain.TicketStatusResolved, CreatedAt: now.Add(-49 * time.Hour)},
		}
		page := Apply(src, Params{Viewer: viewer, Tab: TabSLARisk, Now: now})
		require.Len(t, page.Items, 2)
		assert.EqualValues(t, 1, page.Items[0].DBID)
		assert.EqualValues(t, 2, page.Items[1].DBID)
	})
}

func TestDateRanges(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	viewer := Viewer{UserID: 1, Role: domain.RoleAdmin}
	src := []domain.Ticket{
		{DBID: 1, DisplayKey: "TKT-1", CreatedAt: now.Add(-2 * 24 * time.Hour)},
		{DBID: 2, DisplayKey: "TKT-2", CreatedAt: now.Add(-10 * 24 * time.Hour)},  // June 5
		{DBID: 3, DisplayKey: "TKT-3", CreatedAt: now.AddDate(0, -3, 0)},          // March
		{DBID: 4, DisplayKey: "TKT-4", CreatedAt: now.AddDate(-1, 0, 0)},          // last year
	}

	t.Run("weekly keeps last 7 days", func(t *testing.T) {
		page := Apply(src, Params{Viewer: viewer, Range: DateRange{Kind: RangeWeekly}, Now: now})
		require.Len(t, page.Items, 1)
		assert.EqualValues(t, 1, page.Items[0].DBID)
	})

	t.Run("monthly keeps current calendar month", func(t *testing.T) {
		page := Apply(src, Params{Viewer: viewer, Range: DateRange{Kind: RangeMonthly}, Now: now})
		assert.Len(t, page.Items, 2)
	})

	t.Run("yearly keeps current calendar year", func(t *testing.T) {
		page := Apply(src, Params{Viewer: viewer, Range: DateRange{Kind: RangeYearly}, Now: now})
		assert.Len(t, page.Items, 3)
	})

	t.Run("custom end date is inclusive through end of day", func(t *testing.T) {
		end := time.Date(2025, 6, 13, 0, 0, 0, 0, time.UTC)
		created := time.Date(2025, 6, 13, 18, 30, 0, 0, time.UTC)
		src := []domain.Ticket{{DBID: 1, DisplayKey: "TKT-1", CreatedAt: created}}
		page := Apply(src, Params{
			Viewer: viewer,
			Range:  DateRange{Kind: RangeCustom, Start: end.AddDate(0, 0, -1), End: end},
			Now:    now,
		})
		assert.Len(t, page.Items, 1)
	})
}

func TestSearch(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	src := fixture(now)
	viewer := Viewer{UserID: 1, Role: domain.RoleAdmin}

	t.Run("matches subject case-insensitively", func(t *testing.T) {
		page := Apply(src, Params{Viewer: viewer, Search: "vpn", Now: now})
		require.Len(t, page.Items, 1)
		assert.Equal(t, "VPN broken", page.Items[0].Subject)
	})

	t.Run("matches display id", func(t *testing.T) {
		page := Apply(src, Params{Viewer: viewer, Search: "#tkt-3", Now: now})
		require.Len(t, page.Items, 1)
		assert.EqualValues(t, 3, page.Items[0].DBID)
	})

	t.Run("matches requester name", func(t *testing.T) {
		page := Apply(src, Params{Viewer: viewer, Search: "requester printer", Now: now})
		require.Len(t, page.Items, 1)
		assert.EqualValues(t, 2, page.Items[0].DBID)
	})
}

func TestPagination(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	viewer := Viewer{UserID: 1, Role: domain.RoleAdmin}
	src := make([]domain.Ticket, 23)
	for i := range src {
		src[i] = domain.Ticket{DBID: int64(i + 1), DisplayKey: domain.MakeDisplayKey(int64(i + 1)), CreatedAt: now}
	}

	t.Run("last partial page holds the remainder", func(t *testing.T) {
		page := Apply(src, Params{Viewer: viewer, Page: 3, PageSize: 10, Now: now})
		assert.Len(t, page.Items, 3)
		assert.Equal(t, 23, page.TotalCount)
		assert.Equal(t, 3, page.TotalPages)
	})

	t.Run("overflow page is empty without error", func(t *testing.T) {
		page := Apply(src, Params{Viewer: viewer, Page: 9, PageSize: 10, Now: now})
		assert.Empty(t, page.Items)
		assert.Equal(t, 3, page.TotalPages)
	})

	t.Run("invalid page size falls back to 10", func(t *testing.T) {
		page := Apply(src, Params{Viewer: viewer, Page: 1, PageSize: 37, Now: now})
		assert.Len(t, page.Items, 10)
		assert.Equal(t, 10, page.PageSize)
	})
}

func TestPipelineIsDeterministicAndNonMutating(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	src := fixture(now)
	original := make([]domain.Ticket, len(src))
	copy(original, src)

	params := Params{
		Viewer:   Viewer{UserID: 7, Role: domain.RoleAdmin},
		Sort:     SortByPriority,
		Dir:      Descending,
		Tab:      TabMyTickets,
		Search:   "e",
		Page:     1,
		PageSize: 5,
		Now:      now,
	}

	first := Apply(src, params)
	second := Apply(src, params)
	assert.Equal(t, first, second)
	assert.Equal(t, original, src, "source list must not be mutated")
}
