package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskforge/servicedesk/internal/domain"
)

// TicketHistoryRepository stores the append-only audit log. Entries are only
// ever appended; the log is never rewritten as a whole, so concurrent
// appenders cannot overwrite each other.
type TicketHistoryRepository interface {
	Append(ctx context.Context, event *domain.HistoryEvent) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.HistoryEvent, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

func (r *ticketHistoryRepository) Append(ctx context.Context, event *domain.HistoryEvent) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, event_type, actor, actor_id, detail)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		event.TicketID,
		event.Type,
		event.Actor,
		event.ActorID,
		event.Detail,
	).Scan(&event.ID, &event.CreatedAt)
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.HistoryEvent, error) {
	const query = `
        SELECT id, ticket_id, event_type, actor, actor_id, detail, created_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.HistoryEvent
	for rows.Next() {
		var event domain.HistoryEvent
		if err := rows.Scan(
			&event.ID,
			&event.TicketID,
			&event.Type,
			&event.Actor,
			&event.ActorID,
			&event.Detail,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
