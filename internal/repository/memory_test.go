package repository

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	seed := func(t *testing.T) TicketRepository {
		t.Helper()
		repo := NewMemoryRepository()
		tickets := []domain.Ticket{
			{ID: "t1", Title: "Cannot Login", Description: "password rejected", Category: domain.TicketCategoryBilling, Priority: domain.TicketPriorityHigh, Status: domain.TicketStatusOpen, CreatedAt: base},
			{ID: "t2", Title: "Refund request", Description: "charged twice", Category: domain.TicketCategoryBilling, Priority: domain.TicketPriorityMedium, Status: domain.TicketStatusClosed, CreatedAt: base.Add(time.Hour)},
			{ID: "t3", Title: "Site is slow", Description: "pages take forever", Category: domain.TicketCategoryTechnical, Priority: domain.TicketPriorityLow, Status: domain.TicketStatusOpen, CreatedAt: base.Add(2 * time.Hour)},
		}
		for i := range tickets {
			if err := repo.Create(ctx, &tickets[i]); err != nil {
				t.Fatalf("seed ticket %s: %v", tickets[i].ID, err)
			}
		}
		return repo
	}

	t.Run("predicates combine with AND semantics", func(t *testing.T) {
		repo := seed(t)
		category := domain.TicketCategoryBilling
		status := domain.TicketStatusOpen
		result, err := repo.List(ctx, TicketFilter{Category: &category, Status: &status})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(result) != 1 || result[0].ID != "t1" {
			t.Fatalf("expected exactly t1, got %+v", result)
		}
	})

	t.Run("search is case insensitive over title and description", func(t *testing.T) {
		repo := seed(t)
		for _, term := range []string{"login", "LOGIN", "  login  "} {
			search := term
			result, err := repo.List(ctx, TicketFilter{Search: &search})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(result) != 1 || result[0].ID != "t1" {
				t.Fatalf("search %q: expected t1, got %+v", term, result)
			}
		}

		search := "charged"
		result, err := repo.List(ctx, TicketFilter{Search: &search})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(result) != 1 || result[0].ID != "t2" {
			t.Fatalf("description search: expected t2, got %+v", result)
		}
	})

	t.Run("search metacharacters match literally", func(t *testing.T) {
		repo := seed(t)
		ticket := domain.Ticket{ID: "t4", Title: "100% CPU on user_name lookup", Description: "profiler output attached", Category: domain.TicketCategoryTechnical, Priority: domain.TicketPriorityHigh, Status: domain.TicketStatusOpen, CreatedAt: base.Add(3 * time.Hour)}
		if err := repo.Create(ctx, &ticket); err != nil {
			t.Fatalf("create: %v", err)
		}
		for _, term := range []string{"100% CPU", "user_name", "_"} {
			search := term
			result, err := repo.List(ctx, TicketFilter{Search: &search})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(result) != 1 || result[0].ID != "t4" {
				t.Fatalf("search %q: expected only t4, got %+v", term, result)
			}
		}
	})

	t.Run("empty filter returns everything newest first", func(t *testing.T) {
		repo := seed(t)
		result, err := repo.List(ctx, TicketFilter{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(result) != 3 {
			t.Fatalf("expected 3 tickets, got %d", len(result))
		}
		if result[0].ID != "t3" || result[1].ID != "t2" || result[2].ID != "t1" {
			t.Fatalf("unexpected order: %s, %s, %s", result[0].ID, result[1].ID, result[2].ID)
		}
	})

	t.Run("ordering is stable across repeated calls", func(t *testing.T) {
		repo := seed(t)
		first, err := repo.List(ctx, TicketFilter{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for i := 0; i < 5; i++ {
			again, err := repo.List(ctx, TicketFilter{})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			for j := range first {
				if again[j].ID != first[j].ID {
					t.Fatalf("order changed between calls: %+v vs %+v", first, again)
				}
			}
		}
	})

	t.Run("equal timestamps keep insertion order stable", func(t *testing.T) {
		repo := NewMemoryRepository()
		for _, id := range []string{"a", "b", "c"} {
			ticket := domain.Ticket{ID: id, Title: "t", Description: "d", Category: domain.TicketCategoryGeneral, Priority: domain.TicketPriorityLow, Status: domain.TicketStatusOpen, CreatedAt: base}
			if err := repo.Create(ctx, &ticket); err != nil {
				t.Fatalf("create %s: %v", id, err)
			}
		}
		result, err := repo.List(ctx, TicketFilter{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if result[0].ID != "c" || result[1].ID != "b" || result[2].ID != "a" {
			t.Fatalf("expected latest insertion first, got %s, %s, %s", result[0].ID, result[1].ID, result[2].ID)
		}
	})

	t.Run("reads return copies", func(t *testing.T) {
		repo := seed(t)
		ticket, err := repo.GetByID(ctx, "t1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		ticket.Status = domain.TicketStatusClosed
		ticket.Title = "mutated"

		stored, err := repo.GetByID(ctx, "t1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if stored.Status != domain.TicketStatusOpen || stored.Title != "Cannot Login" {
			t.Fatalf("stored ticket was mutated through a returned copy: %+v", stored)
		}
	})

	t.Run("update status persists and missing ids fail", func(t *testing.T) {
		repo := seed(t)
		updated, err := repo.UpdateStatus(ctx, "t1", domain.TicketStatusInProgress)
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.Status != domain.TicketStatusInProgress {
			t.Fatalf("expected in_progress, got %s", updated.Status)
		}

		if _, err := repo.UpdateStatus(ctx, "missing", domain.TicketStatusClosed); err != ErrNotFound {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, err := repo.GetByID(ctx, "missing"); err != ErrNotFound {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
