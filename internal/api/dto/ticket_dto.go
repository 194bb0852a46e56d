package dto

import (
	"time"

	"github.com/deskforge/servicedesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject       string     `json:"subject"`
	Description   string     `json:"description"`
	RequesterName string     `json:"requester_name"`
	Priority      string     `json:"priority"`
	CategoryID    *int64     `json:"category_id"`
	Attachments   []string   `json:"attachments"`
	SLADeadline   *time.Time `json:"sla_deadline"`
}

// UpdateTicketRequest payload; nil fields are left untouched.
type UpdateTicketRequest struct {
	Subject     *string  `json:"subject"`
	Description *string  `json:"description"`
	Priority    *string  `json:"priority"`
	CategoryID  *int64   `json:"category_id"`
	Attachments []string `json:"attachments"`
}

// StatusChangeRequest payload.
type StatusChangeRequest struct {
	Status     string `json:"status"`
	HoldReason string `json:"hold_reason"`
}

// BoardDropRequest describes a kanban drag between columns.
type BoardDropRequest struct {
	To         string `json:"to"`
	HoldReason string `json:"hold_reason"`
}

// BulkAssignRequest payload.
type BulkAssignRequest struct {
	TicketIDs  []int64 `json:"ticket_ids"`
	AssigneeID int64   `json:"assignee_id"`
}

// BulkStatusRequest payload.
type BulkStatusRequest struct {
	TicketIDs []int64 `json:"ticket_ids"`
	Status    string  `json:"status"`
}

// BulkDeleteRequest payload.
type BulkDeleteRequest struct {
	TicketIDs []int64 `json:"ticket_ids"`
}

// HistoryEventRequest appends an entry to a ticket's activity log.
type HistoryEventRequest struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

// SLAResponse is the rendered countdown state of a ticket.
type SLAResponse struct {
	Label   string `json:"label"`
	Urgency string `json:"urgency"`
	Met     bool   `json:"met"`
}

// TicketSummary response.
type TicketSummary struct {
	ID            int64                 `json:"id"`
	DisplayID     string                `json:"display_id"`
	Subject       string                `json:"subject"`
	RequesterName string                `json:"requester_name"`
	Status        domain.TicketStatus   `json:"status"`
	Priority      domain.TicketPriority `json:"priority"`
	CategoryID    *int64                `json:"category_id"`
	AssigneeID    *int64                `json:"assignee_id"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
	SLA           SLAResponse           `json:"sla"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	ID            int64                  `json:"id"`
	DisplayID     string                 `json:"display_id"`
	Subject       string                 `json:"subject"`
	Description   string                 `json:"description"`
	RequesterName string                 `json:"requester_name"`
	Status        domain.TicketStatus    `json:"status"`
	Priority      domain.TicketPriority  `json:"priority"`
	CategoryID    *int64                 `json:"category_id"`
	OwnerID       *int64                 `json:"owner_id"`
	AssigneeID    *int64                 `json:"assignee_id"`
	Attachments   []string               `json:"attachments"`
	Sentiment     *domain.SentimentData  `json:"sentiment,omitempty"`
	HoldReason    string                 `json:"hold_reason,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
	ClosedAt      *time.Time             `json:"closed_at"`
	SLA           SLAResponse            `json:"sla"`
	History       []HistoryEventResponse `json:"history"`
}

// HistoryEventResponse is one entry of the activity log.
type HistoryEventResponse struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Actor     string `json:"actor"`
	ActorID   *int64 `json:"actor_id"`
	Detail    string `json:"detail"`
	CreatedAt string `json:"created_at"`
}

// TicketPage wraps one page of summaries with paging metadata.
type TicketPage struct {
	Items      []TicketSummary `json:"items"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalCount int             `json:"total_count"`
	TotalPages int             `json:"total_pages"`
}

// BulkResultResponse reports how many rows a bulk operation touched.
type BulkResultResponse struct {
	Affected int64 `json:"affected"`
}

// BoardColumnResponse is one kanban column.
type BoardColumnResponse struct {
	Status domain.TicketStatus `json:"status"`
	Items  []TicketSummary     `json:"items"`
}

// RepairInitRequest opens a repair record.
type RepairInitRequest struct {
	IssueTitle      string `json:"issue_title"`
	ReasonForRepair string `json:"reason_for_repair"`
	PickupLocation  string `json:"pickup_location"`
}

// RepairStageRequest completes one workflow stage.
type RepairStageRequest struct {
	Stage string `json:"stage"`
}

// RepairReportRequest submits the repair report.
type RepairReportRequest struct {
	Report string `json:"report"`
}

// AssignTechnicianRequest books a visiting technician.
type AssignTechnicianRequest struct {
	TechnicianID int64  `json:"technician_id"`
	VisitType    string `json:"visit_type"`
}

// RepairResponse mirrors the repair record plus the next pending action.
type RepairResponse struct {
	TicketID        int64      `json:"ticket_id"`
	IssueTitle      string     `json:"issue_title"`
	ReasonForRepair string     `json:"reason_for_repair"`
	PickupLocation  string     `json:"pickup_location"`
	PickupTime      *time.Time `json:"pickup_time"`
	TechLeftTime    *time.Time `json:"tech_left_time"`
	TechReachedTime *time.Time `json:"tech_reached_time"`
	ResolutionTime  *time.Time `json:"resolution_time"`
	DeliveryTime    *time.Time `json:"delivery_time"`
	ClosingTime     *time.Time `json:"closing_time"`
	VisitingTechID  *int64     `json:"visiting_tech_id"`
	VisitType       *string    `json:"visit_type"`
	NextAction      string     `json:"next_action,omitempty"`
	CanAssignTech   bool       `json:"can_assign_tech"`
}
