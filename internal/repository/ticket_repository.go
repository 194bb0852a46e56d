package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskforge/servicedesk/internal/domain"
)

// TicketRepository encapsulates ticket persistence. Listing returns full
// scoped rows; filtering, sorting and pagination happen in the listview
// pipeline so the derivation stays deterministic and testable.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByDBID(ctx context.Context, dbID int64) (*domain.Ticket, error)
	List(ctx context.Context) ([]domain.Ticket, error)
	Delete(ctx context.Context, dbID int64) error
	DeleteMany(ctx context.Context, dbIDs []int64) (int64, error)
	AssignMany(ctx context.Context, dbIDs []int64, assigneeID int64) (int64, error)
	UpdateStatusMany(ctx context.Context, dbIDs []int64, status domain.TicketStatus) (int64, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, owner_id, assignee_id, requester_name, subject, description, category_id,
        status, priority, attachments, sentiment, hold_reason, created_at, updated_at, sla_deadline, closed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (owner_id, assignee_id, requester_name, subject, description, category_id,
            status, priority, attachments, sentiment, hold_reason, sla_deadline)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	if err := r.pool.QueryRow(ctx, query,
		ticket.OwnerID,
		ticket.AssigneeID,
		ticket.RequesterName,
		ticket.Subject,
		ticket.Description,
		ticket.CategoryID,
		ticket.Status,
		ticket.Priority,
		domain.JoinAttachments(ticket.Attachments),
		encodeSentiment(ticket.Sentiment),
		ticket.HoldReason,
		ticket.SLADeadline,
	).Scan(&ticket.DBID, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return err
	}
	ticket.DisplayKey = domain.MakeDisplayKey(ticket.DBID)
	return nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET owner_id=$1, assignee_id=$2, requester_name=$3, subject=$4, description=$5,
            category_id=$6, status=$7, priority=$8, attachments=$9, sentiment=$10, hold_reason=$11,
            sla_deadline=$12, closed_at=$13, updated_at=NOW()
        WHERE id=$14`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.OwnerID,
		ticket.AssigneeID,
		ticket.RequesterName,
		ticket.Subject,
		ticket.Description,
		ticket.CategoryID,
		ticket.Status,
		ticket.Priority,
		domain.JoinAttachments(ticket.Attachments),
		encodeSentiment(ticket.Sentiment),
		ticket.HoldReason,
		ticket.SLADeadline,
		ticket.ClosedAt,
		ticket.DBID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByDBID(ctx context.Context, dbID int64) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return scanTicket(r.pool.QueryRow(ctx, query, dbID))
}

func (r *ticketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets ORDER BY updated_at DESC`, ticketColumns)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) Delete(ctx context.Context, dbID int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, dbID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) DeleteMany(ctx context.Context, dbIDs []int64) (int64, error) {
	if len(dbIDs) == 0 {
		return 0, nil
	}
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id = ANY($1)`, dbIDs)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *ticketRepository) AssignMany(ctx context.Context, dbIDs []int64, assigneeID int64) (int64, error) {
	if len(dbIDs) == 0 {
		return 0, nil
	}
	cmd, err := r.pool.Exec(ctx,
		`UPDATE tickets SET assignee_id=$1, updated_at=NOW() WHERE id = ANY($2)`,
		assigneeID, dbIDs)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *ticketRepository) UpdateStatusMany(ctx context.Context, dbIDs []int64, status domain.TicketStatus) (int64, error) {
	if len(dbIDs) == 0 {
		return 0, nil
	}
	cmd, err := r.pool.Exec(ctx,
		`UPDATE tickets SET status=$1, updated_at=NOW() WHERE id = ANY($2)`,
		status, dbIDs)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket      domain.Ticket
		attachments string
		sentiment   string
		status      string
		priority    string
	)
	if err := row.Scan(
		&ticket.DBID,
		&ticket.OwnerID,
		&ticket.AssigneeID,
		&ticket.RequesterName,
		&ticket.Subject,
		&ticket.Description,
		&ticket.CategoryID,
		&status,
		&priority,
		&attachments,
		&sentiment,
		&ticket.HoldReason,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.SLADeadline,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	// normalize the wire shapes once, at the boundary
	ticket.DisplayKey = domain.MakeDisplayKey(ticket.DBID)
	ticket.Status = domain.ParseStatus(status)
	ticket.Priority = domain.ParsePriority(priority)
	ticket.Attachments = domain.NormalizeAttachments(attachments)
	ticket.Sentiment = domain.ParseSentiment(sentiment)
	return &ticket, nil
}

func encodeSentiment(s *domain.SentimentData) string {
	if s == nil {
		return ""
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(raw)
}
