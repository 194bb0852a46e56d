package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/deskforge/servicedesk/internal/domain"
	"github.com/deskforge/servicedesk/internal/service"
)

// ExportHandler streams ticket reports as Excel or PDF downloads. The same
// list query parameters as GET /tickets apply; paging is widened so the
// export covers the whole filtered set.
type ExportHandler struct {
	tickets *service.TicketService
	exports *service.ExportService
}

// NewExportHandler constructs handler.
func NewExportHandler(ticketService *service.TicketService, exportService *service.ExportService) *ExportHandler {
	return &ExportHandler{tickets: ticketService, exports: exportService}
}

// Excel GET /tickets/export/excel.
func (h *ExportHandler) Excel(c *fiber.Ctx) error {
	tickets, now, err := h.collect(c)
	if err != nil {
		return err
	}
	data, err := h.exports.ExportExcel(tickets, now)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="tickets-%s.xlsx"`, now.Format("2006-01-02")))
	return c.Send(data)
}

// PDF GET /tickets/export/pdf.
func (h *ExportHandler) PDF(c *fiber.Ctx) error {
	tickets, now, err := h.collect(c)
	if err != nil {
		return err
	}
	data, err := h.exports.ExportPDF(tickets, now)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="tickets-%s.pdf"`, now.Format("2006-01-02")))
	return c.Send(data)
}

func (h *ExportHandler) collect(c *fiber.Ctx) ([]domain.Ticket, time.Time, error) {
	viewer, err := requireViewer(c)
	if err != nil {
		return nil, time.Time{}, err
	}
	params := parseListQuery(c)
	params.Viewer = viewer

	tickets, err := h.tickets.ListTicketsFiltered(c.UserContext(), params)
	if err != nil {
		return nil, time.Time{}, err
	}
	return tickets, params.Now, nil
}
