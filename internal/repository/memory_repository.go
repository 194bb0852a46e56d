package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/deskforge/servicedesk/internal/domain"
)

// MemoryTicketRepository is an in-memory TicketRepository used by service
// tests and local development without a database.
type MemoryTicketRepository struct {
	mu     sync.RWMutex
	rows   map[int64]*domain.Ticket
	nextID int64
}

// NewMemoryTicketRepository creates an empty repository.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{rows: make(map[int64]*domain.Ticket), nextID: 1}
}

func (r *MemoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.DBID = r.nextID
	r.nextID++
	ticket.DisplayKey = domain.MakeDisplayKey(ticket.DBID)
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	stored := *ticket
	r.rows[ticket.DBID] = &stored
	return nil
}

func (r *MemoryTicketRepository) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[ticket.DBID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	stored := *ticket
	r.rows[ticket.DBID] = &stored
	return nil
}

func (r *MemoryTicketRepository) GetByDBID(_ context.Context, dbID int64) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.rows[dbID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	result := *stored
	return &result, nil
}

func (r *MemoryTicketRepository) List(_ context.Context) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.Ticket, 0, len(r.rows))
	for _, stored := range r.rows {
		result = append(result, *stored)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DBID < result[j].DBID })
	return result, nil
}

func (r *MemoryTicketRepository) Delete(_ context.Context, dbID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[dbID]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.rows, dbID)
	return nil
}

func (r *MemoryTicketRepository) DeleteMany(_ context.Context, dbIDs []int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var affected int64
	for _, id := range dbIDs {
		if _, ok := r.rows[id]; ok {
			delete(r.rows, id)
			affected++
		}
	}
	return affected, nil
}

func (r *MemoryTicketRepository) AssignMany(_ context.Context, dbIDs []int64, assigneeID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var affected int64
	for _, id := range dbIDs {
		if stored, ok := r.rows[id]; ok {
			assignee := assigneeID
			stored.AssigneeID = &assignee
			stored.UpdatedAt = time.Now()
			affected++
		}
	}
	return affected, nil
}

func (r *MemoryTicketRepository) UpdateStatusMany(_ context.Context, dbIDs []int64, status domain.TicketStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var affected int64
	for _, id := range dbIDs {
		if stored, ok := r.rows[id]; ok {
			stored.Status = status
			stored.UpdatedAt = time.Now()
			affected++
		}
	}
	return affected, nil
}

// MemoryUserRepository is an in-memory UserRepository.
type MemoryUserRepository struct {
	mu     sync.RWMutex
	rows   map[int64]*domain.User
	nextID int64
}

// NewMemoryUserRepository creates an empty repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{rows: make(map[int64]*domain.User), nextID: 1}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = r.nextID
	r.nextID++
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	stored := *user
	r.rows[user.ID] = &stored
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	result := *stored
	return &result, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, stored := range r.rows {
		if stored.Email == email {
			result := *stored
			return &result, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *MemoryUserRepository) ListTechnicians(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.User
	for _, stored := range r.rows {
		if stored.Role == domain.RoleTechnician && stored.Active {
			result = append(result, *stored)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// MemoryHistoryRepository is an in-memory TicketHistoryRepository.
type MemoryHistoryRepository struct {
	mu     sync.RWMutex
	events []domain.HistoryEvent
	nextID int64
}

// NewMemoryHistoryRepository creates an empty repository.
func NewMemoryHistoryRepository() *MemoryHistoryRepository {
	return &MemoryHistoryRepository{nextID: 1}
}

func (r *MemoryHistoryRepository) Append(_ context.Context, event *domain.HistoryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.ID = r.nextID
	r.nextID++
	event.CreatedAt = time.Now()
	r.events = append(r.events, *event)
	return nil
}

func (r *MemoryHistoryRepository) ListByTicket(_ context.Context, ticketID int64) ([]domain.HistoryEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.HistoryEvent
	for _, event := range r.events {
		if event.TicketID == ticketID {
			result = append(result, event)
		}
	}
	return result, nil
}

// MemoryRepairRepository is an in-memory RepairRepository.
type MemoryRepairRepository struct {
	mu     sync.RWMutex
	rows   map[int64]*domain.RepairDetails // keyed by ticket id
	nextID int64
}

// NewMemoryRepairRepository creates an empty repository.
func NewMemoryRepairRepository() *MemoryRepairRepository {
	return &MemoryRepairRepository{rows: make(map[int64]*domain.RepairDetails), nextID: 1}
}

func (r *MemoryRepairRepository) Create(_ context.Context, details *domain.RepairDetails) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	details.ID = r.nextID
	r.nextID++
	now := time.Now()
	details.CreatedAt = now
	details.UpdatedAt = now
	stored := *details
	r.rows[details.TicketID] = &stored
	return nil
}

func (r *MemoryRepairRepository) GetByTicket(_ context.Context, ticketID int64) (*domain.RepairDetails, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.rows[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	result := *stored
	return &result, nil
}

func (r *MemoryRepairRepository) Update(_ context.Context, details *domain.RepairDetails) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[details.TicketID]; !ok {
		return pgx.ErrNoRows
	}
	details.UpdatedAt = time.Now()
	stored := *details
	r.rows[details.TicketID] = &stored
	return nil
}
