package dto

import (
	"time"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// ClassifyRequest payload.
type ClassifyRequest struct {
	Description string `json:"description"`
}

// ClassifyResponse carries the advisory suggestion. Absent fields are
// rendered as JSON null, meaning "no opinion".
type ClassifyResponse struct {
	SuggestedCategory *domain.TicketCategory `json:"suggested_category"`
	SuggestedPriority *domain.TicketPriority `json:"suggested_priority"`
}

// CreateTicketRequest payload. Status is never accepted from the
// client; new tickets always start open.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    domain.TicketCategory `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// TicketResponse is the wire representation of a ticket.
type TicketResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    domain.TicketCategory `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	CreatedAt   time.Time             `json:"created_at"`
}

// StatsResponse is the dashboard metrics payload. Breakdown maps carry
// every label of their axis, zero-filled.
type StatsResponse struct {
	TotalTickets      int                           `json:"total_tickets"`
	OpenTickets       int                           `json:"open_tickets"`
	AvgTicketsPerDay  float64                       `json:"avg_tickets_per_day"`
	PriorityBreakdown map[domain.TicketPriority]int `json:"priority_breakdown"`
	CategoryBreakdown map[domain.TicketCategory]int `json:"category_breakdown"`
}
