package triage

import (
	"time"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// Snapshot holds dashboard metrics computed from the ticket population.
// It is transient: recomputed on every request, never stored.
type Snapshot struct {
	TotalTickets      int
	OpenTickets       int
	AvgTicketsPerDay  float64
	PriorityBreakdown map[domain.TicketPriority]int
	CategoryBreakdown map[domain.TicketCategory]int
}

// Aggregate computes a snapshot in a single pass over the input. The
// breakdown maps always contain every label of their axis, zero-filled,
// so callers can render a complete set of bars. The input is never
// mutated.
func Aggregate(tickets []domain.Ticket) Snapshot {
	snapshot := Snapshot{
		TotalTickets:      len(tickets),
		PriorityBreakdown: make(map[domain.TicketPriority]int, 4),
		CategoryBreakdown: make(map[domain.TicketCategory]int, 4),
	}
	for _, p := range domain.Priorities() {
		snapshot.PriorityBreakdown[p] = 0
	}
	for _, c := range domain.Categories() {
		snapshot.CategoryBreakdown[c] = 0
	}

	var earliest, latest time.Time
	for i, t := range tickets {
		if t.Status == domain.TicketStatusOpen {
			snapshot.OpenTickets++
		}
		snapshot.PriorityBreakdown[t.Priority]++
		snapshot.CategoryBreakdown[t.Category]++
		if i == 0 || t.CreatedAt.Before(earliest) {
			earliest = t.CreatedAt
		}
		if i == 0 || t.CreatedAt.After(latest) {
			latest = t.CreatedAt
		}
	}

	if snapshot.TotalTickets > 0 {
		snapshot.AvgTicketsPerDay = float64(snapshot.TotalTickets) / float64(daySpan(earliest, latest))
	}
	return snapshot
}

// daySpan counts whole UTC calendar days from the earliest to the
// latest creation time, inclusive, with a floor of one day. Tickets
// created on the same date therefore span a single day.
func daySpan(earliest, latest time.Time) int {
	first := dateOnly(earliest.UTC())
	last := dateOnly(latest.UTC())
	days := int(last.Sub(first).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
