package service

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"

	"github.com/deskforge/servicedesk/internal/domain"
	"github.com/deskforge/servicedesk/internal/sla"
	apperrors "github.com/deskforge/servicedesk/pkg/util/errorutil"
)

// ExportService renders ticket lists into downloadable reports.
type ExportService struct{}

// NewExportService constructs the service.
func NewExportService() *ExportService {
	return &ExportService{}
}

var exportHeaders = []string{"ID", "Subject", "Requester", "Status", "Priority", "Created", "SLA"}

func exportRow(t *domain.Ticket, now time.Time) []string {
	countdown := sla.Evaluate(t.CreatedAt, t.Status, t.SLADeadline, now)
	return []string{
		t.DisplayID(),
		t.Subject,
		t.RequesterName,
		string(t.Status),
		string(t.Priority),
		t.CreatedAt.Format("2006-01-02 15:04"),
		countdown.Label,
	}
}

// ExportExcel renders tickets into a single-sheet workbook.
func (s *ExportService) ExportExcel(tickets []domain.Ticket, now time.Time) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	const sheet = "Tickets"
	file.SetSheetName(file.GetSheetName(0), sheet)

	for col, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if err := file.SetCellValue(sheet, cell, header); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	for row, ticket := range tickets {
		values := exportRow(&ticket, now)
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, apperrors.MapError(err)
			}
			if err := file.SetCellValue(sheet, cell, value); err != nil {
				return nil, apperrors.MapError(err)
			}
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return buf.Bytes(), nil
}

// ExportPDF renders tickets into a landscape tabular report.
func (s *ExportService) ExportPDF(tickets []domain.Ticket, now time.Time) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Ticket Report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 10, "Ticket Report - "+now.Format("2006-01-02"))
	pdf.Ln(12)

	widths := []float64{25, 85, 40, 28, 24, 38, 37}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, header := range exportHeaders {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, ticket := range tickets {
		values := exportRow(&ticket, now)
		for i, value := range values {
			pdf.CellFormat(widths[i], 7, truncateCell(value, 52), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, apperrors.MapError(err)
	}
	return buf.Bytes(), nil
}

func truncateCell(value string, max int) string {
	value = strings.TrimSpace(value)
	if len(value) <= max {
		return value
	}
	return fmt.Sprintf("%s...", value[:max-3])
}
