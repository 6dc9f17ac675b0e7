package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// memoryRepository keeps the ticket population in process memory. It
// backs the service when no Postgres DSN is configured and is the
// store used by tests. Reads return copies so callers can never alias
// stored state.
type memoryRepository struct {
	mu      sync.RWMutex
	tickets []memoryTicket
	byID    map[string]int
}

// memoryTicket pairs a ticket with its insertion sequence so ordering
// stays stable when creation timestamps collide.
type memoryTicket struct {
	domain.Ticket
	seq int
}

// NewMemoryRepository instantiates the in-memory repository.
func NewMemoryRepository() TicketRepository {
	return &memoryRepository{byID: make(map[string]int)}
}

func (r *memoryRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[ticket.ID] = len(r.tickets)
	r.tickets = append(r.tickets, memoryTicket{Ticket: *ticket, seq: len(r.tickets)})
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	ticket := r.tickets[idx].Ticket
	return &ticket, nil
}

func (r *memoryRepository) UpdateStatus(_ context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	r.tickets[idx].Status = status
	ticket := r.tickets[idx].Ticket
	return &ticket, nil
}

func (r *memoryRepository) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.mu.RLock()
	matched := make([]memoryTicket, 0, len(r.tickets))
	for _, t := range r.tickets {
		if filter.Matches(t.Ticket) {
			matched = append(matched, t)
		}
	}
	r.mu.RUnlock()

	// Newest first, insertion sequence breaking timestamp ties.
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].seq > matched[j].seq
	})

	result := make([]domain.Ticket, 0, len(matched))
	for _, t := range matched {
		result = append(result, t.Ticket)
	}
	return result, nil
}
