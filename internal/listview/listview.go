// Package listview derives the ticket collection view: a deterministic
// scope -> sort -> filter -> tab -> search -> paginate chain over an
// in-memory list of tickets. The chain never mutates its source; identical
// inputs always produce identical pages.
package listview

import (
	"sort"
	"strings"
	"time"

	"github.com/deskforge/servicedesk/internal/domain"
	"github.com/deskforge/servicedesk/internal/sla"
)

// SortKey selects the comparator for the sort stage.
type SortKey string

const (
	SortByUpdated  SortKey = "updated"
	SortByCreated  SortKey = "created"
	SortByPriority SortKey = "priority"
	SortByStatus   SortKey = "status"
	SortByDue      SortKey = "due"
	SortByID       SortKey = "id"
)

// Direction controls sort order.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// RangeKind selects the date-range filter.
type RangeKind string

const (
	RangeAll     RangeKind = "all"
	RangeWeekly  RangeKind = "weekly"
	RangeMonthly RangeKind = "monthly"
	RangeYearly  RangeKind = "yearly"
	RangeCustom  RangeKind = "custom"
)

// DateRange is the creation-date filter. Start/End apply to custom ranges
// only; End is promoted to end-of-day so the bound is inclusive.
type DateRange struct {
	Kind  RangeKind
	Start time.Time
	End   time.Time
}

// Tab selects the bucket stage.
type Tab string

const (
	TabAll             Tab = "all"
	TabMyTickets       Tab = "my_tickets"
	TabUnassigned      Tab = "unassigned"
	TabHighPriority    Tab = "high_priority"
	TabSLARisk         Tab = "sla_risk"
	TabPendingApproval Tab = "pending_approval"
)

// Viewer identifies who is looking at the list; the role decides scoping.
type Viewer struct {
	UserID int64
	Role   domain.UserRole
}

// Params bundles every UI-controlled input of the pipeline. Now is passed in
// explicitly so the derivation stays referentially transparent.
type Params struct {
	Viewer   Viewer
	Sort     SortKey
	Dir      Direction
	Range    DateRange
	Tab      Tab
	Search   string
	Page     int
	PageSize int
	Now      time.Time
}

// Page is one page of the derived view plus the totals callers need to clamp
// or reset page numbers when upstream parameters change.
type Page struct {
	Items      []domain.Ticket
	Page       int
	PageSize   int
	TotalCount int
	TotalPages int
}

var allowedPageSizes = map[int]struct{}{5: {}, 10: {}, 20: {}}

// NormalizePageSize coerces a requested page size into the allowed set.
func NormalizePageSize(size int) int {
	if _, ok := allowedPageSizes[size]; ok {
		return size
	}
	return 10
}

// Apply runs the full derivation chain and returns the requested page.
func Apply(src []domain.Ticket, p Params) Page {
	return paginate(Filter(src, p), p.Page, p.PageSize)
}

// Filter runs the derivation chain without pagination, for exports and the
// board view.
func Filter(src []domain.Ticket, p Params) []domain.Ticket {
	if p.Now.IsZero() {
		p.Now = time.Now()
	}

	items := scope(src, p.Viewer)
	sortTickets(items, p.Sort, p.Dir)
	items = filterByRange(items, p.Range, p.Now)
	items = filterByTab(items, p.Tab, p.Viewer, p.Now)
	return filterBySearch(items, p.Search)
}

// scope restricts visibility by role and always copies so later stages never
// touch the caller's slice.
func scope(src []domain.Ticket, v Viewer) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(src))
	for _, t := range src {
		switch v.Role {
		case domain.RoleTechnician:
			if t.AssigneeID == nil || *t.AssigneeID != v.UserID {
				continue
			}
		case domain.RoleUser:
			if t.OwnerID == nil || *t.OwnerID != v.UserID {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

func sortTickets(items []domain.Ticket, key SortKey, dir Direction) {
	less := comparator(key)
	if less == nil {
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		if dir == Descending {
			return less(&items[j], &items[i])
		}
		return less(&items[i], &items[j])
	})
}

func comparator(key SortKey) func(a, b *domain.Ticket) bool {
	switch key {
	case SortByUpdated:
		return func(a, b *domain.Ticket) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	case SortByCreated:
		return func(a, b *domain.Ticket) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortByPriority:
		return func(a, b *domain.Ticket) bool { return a.Priority.Rank() < b.Priority.Rank() }
	case SortByStatus:
		return func(a, b *domain.Ticket) bool { return a.Status < b.Status }
	case SortByDue:
		return func(a, b *domain.Ticket) bool { return dueTime(a).Before(dueTime(b)) }
	case SortByID:
		return func(a, b *domain.Ticket) bool {
			return domain.DisplayKeyNumber(a.DisplayKey) < domain.DisplayKeyNumber(b.DisplayKey)
		}
	}
	return nil
}

func dueTime(t *domain.Ticket) time.Time {
	deadline, ok := sla.EffectiveDeadline(t.CreatedAt, t.SLADeadline)
	if !ok {
		return time.Time{}
	}
	return deadline
}

func filterByRange(items []domain.Ticket, r DateRange, now time.Time) []domain.Ticket {
	var start, end time.Time
	switch r.Kind {
	case RangeWeekly:
		start = now.AddDate(0, 0, -7)
		end = now
	case RangeMonthly:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = now
	case RangeYearly:
		start = time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		end = now
	case RangeCustom:
		if r.Start.IsZero() && r.End.IsZero() {
			return items
		}
		start = r.Start
		end = endOfDay(r.End)
	default:
		return items
	}

	out := items[:0]
	for _, t := range items {
		if !start.IsZero() && t.CreatedAt.Before(start) {
			continue
		}
		if !end.IsZero() && t.CreatedAt.After(end) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func endOfDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

func filterByTab(items []domain.Ticket, tab Tab, v Viewer, now time.Time) []domain.Ticket {
	if tab == "" || tab == TabAll {
		return items
	}
	out := items[:0]
	for _, t := range items {
		if inTab(&t, tab, v, now) {
			out = append(out, t)
		}
	}
	return out
}

func inTab(t *domain.Ticket, tab Tab, v Viewer, now time.Time) bool {
	switch tab {
	case TabMyTickets:
		if t.OwnerID != nil && *t.OwnerID == v.UserID {
			return true
		}
		return t.AssigneeID != nil && *t.AssigneeID == v.UserID
	case TabUnassigned:
		return t.AssigneeID == nil
	case TabHighPriority:
		return t.Priority == domain.TicketPriorityCritical || t.Priority == domain.TicketPriorityHigh
	case TabSLARisk:
		return sla.AtRisk(t.CreatedAt, t.Status, t.SLADeadline, now)
	case TabPendingApproval:
		return t.Status == domain.TicketStatusPending
	}
	return true
}

func filterBySearch(items []domain.Ticket, query string) []domain.Ticket {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return items
	}
	out := items[:0]
	for _, t := range items {
		if strings.Contains(strings.ToLower(t.Subject), query) ||
			strings.Contains(strings.ToLower(t.DisplayID()), query) ||
			strings.Contains(strings.ToLower(t.RequesterName), query) {
			out = append(out, t)
		}
	}
	return out
}

func paginate(items []domain.Ticket, page, size int) Page {
	size = NormalizePageSize(size)
	if page < 1 {
		page = 1
	}

	total := len(items)
	totalPages := (total + size - 1) / size
	if totalPages == 0 {
		totalPages = 1
	}

	start := (page - 1) * size
	if start >= total {
		return Page{Items: []domain.Ticket{}, Page: page, PageSize: size, TotalCount: total, TotalPages: totalPages}
	}
	end := start + size
	if end > total {
		end = total
	}

	out := make([]domain.Ticket, end-start)
	copy(out, items[start:end])
	return Page{Items: out, Page: page, PageSize: size, TotalCount: total, TotalPages: totalPages}
}
