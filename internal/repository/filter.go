package repository

import (
	"strings"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// TicketFilter captures backlog query parameters. All predicates are
// optional and combine with AND semantics.
type TicketFilter struct {
	Category *domain.TicketCategory
	Priority *domain.TicketPriority
	Status   *domain.TicketStatus
	Search   *string
}

// Matches reports whether the ticket satisfies every supplied
// predicate. The search term is trimmed and matched as a
// case-insensitive substring of the title or the description; a hit on
// either field suffices.
func (f TicketFilter) Matches(ticket domain.Ticket) bool {
	if f.Category != nil && ticket.Category != *f.Category {
		return false
	}
	if f.Priority != nil && ticket.Priority != *f.Priority {
		return false
	}
	if f.Status != nil && ticket.Status != *f.Status {
		return false
	}
	if f.Search != nil {
		term := strings.ToLower(strings.TrimSpace(*f.Search))
		if term != "" &&
			!strings.Contains(strings.ToLower(ticket.Title), term) &&
			!strings.Contains(strings.ToLower(ticket.Description), term) {
			return false
		}
	}
	return true
}
