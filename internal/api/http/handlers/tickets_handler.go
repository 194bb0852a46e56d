package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/deskforge/servicedesk/internal/api/dto"
	"github.com/deskforge/servicedesk/internal/auth"
	"github.com/deskforge/servicedesk/internal/board"
	"github.com/deskforge/servicedesk/internal/domain"
	"github.com/deskforge/servicedesk/internal/events"
	"github.com/deskforge/servicedesk/internal/listview"
	"github.com/deskforge/servicedesk/internal/service"
	"github.com/deskforge/servicedesk/internal/sla"
	apperrors "github.com/deskforge/servicedesk/pkg/util/errorutil"
)

// TicketsHandler serves ticket CRUD, listing, board and history endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), actor, service.TicketCreateInput{
		Subject:       req.Subject,
		Description:   req.Description,
		RequesterName: req.RequesterName,
		Priority:      req.Priority,
		CategoryID:    req.CategoryID,
		Attachments:   req.Attachments,
		SLADeadline:   req.SLADeadline,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket, time.Now())})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	viewer, err := requireViewer(c)
	if err != nil {
		return err
	}
	params := parseListQuery(c)
	params.Viewer = viewer

	page, err := h.service.ListTickets(c.UserContext(), params)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketPage(page)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	viewer, err := requireViewer(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), viewer, id)
	if err != nil {
		return err
	}
	history, err := h.service.ListHistory(c.UserContext(), viewer, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, history, time.Now())})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.UpdateTicket(c.UserContext(), actor, id, service.TicketUpdateInput{
		Subject:     req.Subject,
		Description: req.Description,
		Priority:    req.Priority,
		CategoryID:  req.CategoryID,
		Attachments: req.Attachments,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket, time.Now())})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTicket(c.UserContext(), actor, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ChangeStatus POST /tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.StatusChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.ChangeStatus(c.UserContext(), actor, id, domain.TicketStatus(req.Status), req.HoldReason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket, time.Now())})
}

// Reopen POST /tickets/:id/reopen.
func (h *TicketsHandler) Reopen(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Reopen(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket, time.Now())})
}

// SelfAssign POST /tickets/:id/pickup.
func (h *TicketsHandler) SelfAssign(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.SelfAssign(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket, time.Now())})
}

// BoardDrop PATCH /tickets/:id/board.
func (h *TicketsHandler) BoardDrop(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.BoardDropRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.DropOnBoard(c.UserContext(), actor, id, domain.TicketStatus(req.To), req.HoldReason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket, time.Now())})
}

// Board GET /board returns tickets grouped into kanban columns.
func (h *TicketsHandler) Board(c *fiber.Ctx) error {
	viewer, err := requireViewer(c)
	if err != nil {
		return err
	}
	params := parseListQuery(c)
	params.Viewer = viewer

	tickets, err := h.service.ListTicketsFiltered(c.UserContext(), params)
	if err != nil {
		return err
	}

	now := time.Now()
	grouped := board.Group(tickets)
	columns := make([]dto.BoardColumnResponse, 0, len(board.Columns))
	for _, status := range board.Columns {
		items := make([]dto.TicketSummary, 0, len(grouped[status]))
		for i := range grouped[status] {
			items = append(items, ticketSummary(&grouped[status][i], now))
		}
		columns = append(columns, dto.BoardColumnResponse{Status: status, Items: items})
	}
	return c.JSON(fiber.Map{"data": columns})
}

// BulkAssign POST /tickets/bulk/assign.
func (h *TicketsHandler) BulkAssign(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.BulkAssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	affected, err := h.service.AssignTickets(c.UserContext(), actor, req.TicketIDs, req.AssigneeID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.BulkResultResponse{Affected: affected}})
}

// BulkStatus POST /tickets/bulk/status.
func (h *TicketsHandler) BulkStatus(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.BulkStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	affected, err := h.service.UpdateStatusBulk(c.UserContext(), actor, req.TicketIDs, domain.TicketStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.BulkResultResponse{Affected: affected}})
}

// BulkDelete POST /tickets/bulk/delete.
func (h *TicketsHandler) BulkDelete(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.BulkDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	affected, err := h.service.DeleteTickets(c.UserContext(), actor, req.TicketIDs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.BulkResultResponse{Affected: affected}})
}

// ListHistory GET /tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	viewer, err := requireViewer(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	history, err := h.service.ListHistory(c.UserContext(), viewer, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(history)})
}

// AppendHistory POST /tickets/:id/history.
func (h *TicketsHandler) AppendHistory(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.HistoryEventRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	entry, err := h.service.AppendHistoryEvent(c.UserContext(), actor, id, domain.HistoryEventType(req.Type), req.Detail)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": historyResponse(entry)})
}

func requireActor(c *fiber.Ctx) (events.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return events.Actor{}, apperrors.NewUnauthorized("user required")
	}
	return events.Actor{
		UserID: &principal.User.ID,
		Role:   principal.User.Role,
		Name:   principal.User.Name,
	}, nil
}

func requireViewer(c *fiber.Ctx) (listview.Viewer, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return listview.Viewer{}, apperrors.NewUnauthorized("user required")
	}
	return listview.Viewer{UserID: principal.User.ID, Role: principal.User.Role}, nil
}

func ticketID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid ticket id", nil)
	}
	return id, nil
}

func parseListQuery(c *fiber.Ctx) listview.Params {
	params := listview.Params{
		Sort:     listview.SortKey(c.Query("sort", string(listview.SortByUpdated))),
		Dir:      listview.Direction(c.Query("dir", string(listview.Descending))),
		Tab:      listview.Tab(c.Query("tab", string(listview.TabAll))),
		Search:   c.Query("q"),
		Page:     parseInt(c.Query("page"), 1),
		PageSize: listview.NormalizePageSize(parseInt(c.Query("page_size"), 10)),
		Now:      time.Now(),
	}

	params.Range = listview.DateRange{Kind: listview.RangeKind(c.Query("range", string(listview.RangeAll)))}
	if params.Range.Kind == listview.RangeCustom {
		if start := parseTime(c.Query("start")); start != nil {
			params.Range.Start = *start
		}
		if end := parseTime(c.Query("end")); end != nil {
			params.Range.End = *end
		}
	}
	return params
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		if t, err = time.Parse("2006-01-02", val); err != nil {
			return nil
		}
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func slaResponse(t *domain.Ticket, now time.Time) dto.SLAResponse {
	countdown := sla.Evaluate(t.CreatedAt, t.Status, t.SLADeadline, now)
	return dto.SLAResponse{
		Label:   countdown.Label,
		Urgency: string(countdown.Urgency),
		Met:     countdown.Met,
	}
}

func ticketSummary(ticket *domain.Ticket, now time.Time) dto.TicketSummary {
	return dto.TicketSummary{
		ID:            ticket.DBID,
		DisplayID:     ticket.DisplayID(),
		Subject:       ticket.Subject,
		RequesterName: ticket.RequesterName,
		Status:        ticket.Status,
		Priority:      ticket.Priority,
		CategoryID:    ticket.CategoryID,
		AssigneeID:    ticket.AssigneeID,
		CreatedAt:     ticket.CreatedAt,
		UpdatedAt:     ticket.UpdatedAt,
		SLA:           slaResponse(ticket, now),
	}
}

func ticketDetail(ticket *domain.Ticket, history []domain.HistoryEvent, now time.Time) dto.TicketDetailResponse {
	return dto.TicketDetailResponse{
		ID:            ticket.DBID,
		DisplayID:     ticket.DisplayID(),
		Subject:       ticket.Subject,
		Description:   ticket.Description,
		RequesterName: ticket.RequesterName,
		Status:        ticket.Status,
		Priority:      ticket.Priority,
		CategoryID:    ticket.CategoryID,
		OwnerID:       ticket.OwnerID,
		AssigneeID:    ticket.AssigneeID,
		Attachments:   ticket.Attachments,
		Sentiment:     ticket.Sentiment,
		HoldReason:    ticket.HoldReason,
		CreatedAt:     ticket.CreatedAt,
		UpdatedAt:     ticket.UpdatedAt,
		ClosedAt:      ticket.ClosedAt,
		SLA:           slaResponse(ticket, now),
		History:       historyResponses(history),
	}
}

func ticketPage(page listview.Page) dto.TicketPage {
	now := time.Now()
	items := make([]dto.TicketSummary, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, ticketSummary(&page.Items[i], now))
	}
	return dto.TicketPage{
		Items:      items,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalCount: page.TotalCount,
		TotalPages: page.TotalPages,
	}
}

func historyResponse(entry *domain.HistoryEvent) dto.HistoryEventResponse {
	return dto.HistoryEventResponse{
		ID:        entry.ID,
		Type:      string(entry.Type),
		Actor:     entry.Actor,
		ActorID:   entry.ActorID,
		Detail:    entry.Detail,
		CreatedAt: entry.CreatedAt.Format(time.RFC3339),
	}
}

func historyResponses(entries []domain.HistoryEvent) []dto.HistoryEventResponse {
	resp := make([]dto.HistoryEventResponse, 0, len(entries))
	for i := range entries {
		resp = append(resp, historyResponse(&entries[i]))
	}
	return resp
}
