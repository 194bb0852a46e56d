package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskforge/servicedesk/internal/domain"
)

// RepairRepository persists the repair-dispatch sub-entity.
type RepairRepository interface {
	Create(ctx context.Context, details *domain.RepairDetails) error
	GetByTicket(ctx context.Context, ticketID int64) (*domain.RepairDetails, error)
	Update(ctx context.Context, details *domain.RepairDetails) error
}

type repairRepository struct {
	pool *pgxpool.Pool
}

// NewRepairRepository instantiates repository.
func NewRepairRepository(pool *pgxpool.Pool) RepairRepository {
	return &repairRepository{pool: pool}
}

func (r *repairRepository) Create(ctx context.Context, details *domain.RepairDetails) error {
	const query = `
        INSERT INTO repair_details (ticket_id, issue_title, reason_for_repair, pickup_location)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		details.TicketID,
		details.IssueTitle,
		details.ReasonForRepair,
		details.PickupLocation,
	).Scan(&details.ID, &details.CreatedAt, &details.UpdatedAt)
}

func (r *repairRepository) GetByTicket(ctx context.Context, ticketID int64) (*domain.RepairDetails, error) {
	const query = `
        SELECT id, ticket_id, issue_title, reason_for_repair, pickup_location,
               visiting_tech_id, visit_type, pickup_time, tech_left_time, tech_reached_time,
               resolution_time, delivery_time, closing_time, created_at, updated_at
        FROM repair_details WHERE ticket_id=$1`
	var details domain.RepairDetails
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(
		&details.ID,
		&details.TicketID,
		&details.IssueTitle,
		&details.ReasonForRepair,
		&details.PickupLocation,
		&details.VisitingTechID,
		&details.VisitType,
		&details.PickupTime,
		&details.TechLeftTime,
		&details.TechReachedTime,
		&details.ResolutionTime,
		&details.DeliveryTime,
		&details.ClosingTime,
		&details.CreatedAt,
		&details.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &details, nil
}

func (r *repairRepository) Update(ctx context.Context, details *domain.RepairDetails) error {
	const query = `
        UPDATE repair_details SET issue_title=$1, reason_for_repair=$2, pickup_location=$3,
            visiting_tech_id=$4, visit_type=$5, pickup_time=$6, tech_left_time=$7,
            tech_reached_time=$8, resolution_time=$9, delivery_time=$10, closing_time=$11,
            updated_at=NOW()
        WHERE id=$12`
	cmd, err := r.pool.Exec(ctx, query,
		details.IssueTitle,
		details.ReasonForRepair,
		details.PickupLocation,
		details.VisitingTechID,
		details.VisitType,
		details.PickupTime,
		details.TechLeftTime,
		details.TechReachedTime,
		details.ResolutionTime,
		details.DeliveryTime,
		details.ClosingTime,
		details.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
