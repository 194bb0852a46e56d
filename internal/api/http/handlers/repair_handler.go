package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/deskforge/servicedesk/internal/api/dto"
	"github.com/deskforge/servicedesk/internal/domain"
	"github.com/deskforge/servicedesk/internal/repairflow"
	"github.com/deskforge/servicedesk/internal/service"
	apperrors "github.com/deskforge/servicedesk/pkg/util/errorutil"
)

// RepairHandler serves the staged repair workflow of a ticket.
type RepairHandler struct {
	service *service.RepairService
}

// NewRepairHandler constructs handler.
func NewRepairHandler(repairService *service.RepairService) *RepairHandler {
	return &RepairHandler{service: repairService}
}

// Init POST /tickets/:id/repair.
func (h *RepairHandler) Init(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.RepairInitRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	details, err := h.service.InitRepair(c.UserContext(), actor, id, service.RepairInitInput{
		IssueTitle:      req.IssueTitle,
		ReasonForRepair: req.ReasonForRepair,
		PickupLocation:  req.PickupLocation,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": repairResponse(details)})
}

// Get GET /tickets/:id/repair.
func (h *RepairHandler) Get(c *fiber.Ctx) error {
	viewer, err := requireViewer(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	details, _, err := h.service.GetRepair(c.UserContext(), viewer, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": repairResponse(details)})
}

// Advance POST /tickets/:id/repair/advance.
func (h *RepairHandler) Advance(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.RepairStageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	stage, ok := repairflow.ParseStage(req.Stage)
	if !ok {
		return apperrors.NewValidationError("unknown repair stage", nil)
	}

	details, err := h.service.AdvanceStage(c.UserContext(), actor, id, stage)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": repairResponse(details)})
}

// Report POST /tickets/:id/repair/report.
func (h *RepairHandler) Report(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.RepairReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	details, err := h.service.SubmitReport(c.UserContext(), actor, id, req.Report)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": repairResponse(details)})
}

// AssignTechnician POST /tickets/:id/repair/technician.
func (h *RepairHandler) AssignTechnician(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.AssignTechnicianRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	visit := domain.VisitType(strings.ToLower(strings.TrimSpace(req.VisitType)))
	if visit != domain.VisitTypeCheck && visit != domain.VisitTypeFix {
		return apperrors.NewValidationError("visit_type must be check or fix", nil)
	}

	details, err := h.service.AssignTechnician(c.UserContext(), actor, id, req.TechnicianID, visit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": repairResponse(details)})
}

func repairResponse(details *domain.RepairDetails) dto.RepairResponse {
	resp := dto.RepairResponse{
		TicketID:        details.TicketID,
		IssueTitle:      details.IssueTitle,
		ReasonForRepair: details.ReasonForRepair,
		PickupLocation:  details.PickupLocation,
		PickupTime:      details.PickupTime,
		TechLeftTime:    details.TechLeftTime,
		TechReachedTime: details.TechReachedTime,
		ResolutionTime:  details.ResolutionTime,
		DeliveryTime:    details.DeliveryTime,
		ClosingTime:     details.ClosingTime,
		VisitingTechID:  details.VisitingTechID,
		CanAssignTech:   repairflow.CanAssignTechnician(details),
	}
	if details.VisitType != nil {
		visit := string(*details.VisitType)
		resp.VisitType = &visit
	}
	if action := repairflow.NextAction(details); action != nil {
		resp.NextAction = action.Label
	}
	return resp
}
