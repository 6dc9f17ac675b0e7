package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/events"
	"github.com/spec-kit/ticket-triage/internal/repository"
	"github.com/spec-kit/ticket-triage/internal/triage"
	apperrors "github.com/spec-kit/ticket-triage/pkg/util/errorutil"
)

// TicketService coordinates intake, triage and lifecycle workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	classifier *triage.Classifier
	dispatcher events.Dispatcher
	cache      *suggestionCache

	// ticketLocks serializes status updates per ticket id; updates on
	// distinct tickets proceed in parallel. Entries are released when
	// a ticket reaches its terminal state.
	ticketLocks sync.Map
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	Classifier  *triage.Classifier
	Dispatcher  events.Dispatcher
	RedisClient *redis.Client
	CacheTTL    time.Duration
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Category    domain.TicketCategory
	Priority    domain.TicketPriority
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	var cache *suggestionCache
	if deps.RedisClient != nil && deps.CacheTTL > 0 {
		cache = &suggestionCache{client: deps.RedisClient, ttl: deps.CacheTTL}
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		classifier: deps.Classifier,
		dispatcher: deps.Dispatcher,
		cache:      cache,
	}
}

// Classify produces an advisory category/priority suggestion for a
// draft description. The engine is pure, so cached results are always
// identical to a fresh computation; a cache miss or unreachable Redis
// silently falls back to computing.
func (s *TicketService) Classify(ctx context.Context, description string) triage.Suggestion {
	if s.cache != nil {
		if suggestion, ok := s.cache.get(ctx, description); ok {
			return suggestion
		}
	}
	suggestion := s.classifier.Classify(description)
	if s.cache != nil {
		s.cache.set(ctx, description, suggestion)
	}
	return suggestion
}

// CreateTicket validates the input and inserts a new ticket. Status is
// always forced to open regardless of the payload.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	if description == "" {
		return nil, apperrors.NewValidationError("description required", nil)
	}
	if !input.Category.Valid() {
		return nil, apperrors.NewValidationError("invalid category", map[string]any{"category": input.Category})
	}
	if !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}

	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Category:    input.Category,
		Priority:    input.Priority,
		Status:      domain.TicketStatusOpen,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Category: ticket.Category,
			Priority: ticket.Priority,
		},
	})
	return ticket, nil
}

// ListTickets returns the backlog matching the filter, newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	return s.tickets.List(ctx, filter)
}

// UpdateStatus advances a ticket through its lifecycle. The requested
// edge must be in the allowed-transition set; on rejection the ticket
// is left unchanged. Updates on the same id are serialized.
func (s *TicketService) UpdateStatus(ctx context.Context, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": newStatus})
	}

	lock := s.lockFor(ticketID)
	lock.Lock()
	defer lock.Unlock()

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return nil, err
	}
	if !domain.CanTransition(ticket.Status, newStatus) {
		return nil, apperrors.NewInvalidTransition(string(ticket.Status), string(newStatus))
	}

	oldStatus := ticket.Status
	updated, err := s.tickets.UpdateStatus(ctx, ticketID, newStatus)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return nil, err
	}
	// closed is terminal, so its lock entry can be released; a late
	// waiter still holds the old mutex and will only read and reject.
	if updated.Status == domain.TicketStatusClosed {
		s.ticketLocks.Delete(ticketID)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: updated.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: updated.Status,
		},
	})
	return updated, nil
}

// Stats recomputes dashboard metrics from the current ticket
// population. Nothing is cached between calls.
func (s *TicketService) Stats(ctx context.Context) (triage.Snapshot, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{})
	if err != nil {
		return triage.Snapshot{}, err
	}
	return triage.Aggregate(tickets), nil
}

func (s *TicketService) lockFor(ticketID string) *sync.Mutex {
	lock, _ := s.ticketLocks.LoadOrStore(ticketID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// suggestionCache memoizes classification results in Redis keyed by
// the description digest. Best effort only: any Redis failure behaves
// like a miss.
type suggestionCache struct {
	client *redis.Client
	ttl    time.Duration
}

type cachedSuggestion struct {
	Category *domain.TicketCategory `json:"category"`
	Priority *domain.TicketPriority `json:"priority"`
}

func (c *suggestionCache) key(description string) string {
	digest := sha256.Sum256([]byte(description))
	return "triage:suggestion:" + hex.EncodeToString(digest[:])
}

func (c *suggestionCache) get(ctx context.Context, description string) (triage.Suggestion, bool) {
	raw, err := c.client.Get(ctx, c.key(description)).Bytes()
	if err != nil {
		return triage.Suggestion{}, false
	}
	var cached cachedSuggestion
	if err := json.Unmarshal(raw, &cached); err != nil {
		return triage.Suggestion{}, false
	}
	return triage.Suggestion{Category: cached.Category, Priority: cached.Priority}, true
}

func (c *suggestionCache) set(ctx context.Context, description string, suggestion triage.Suggestion) {
	raw, err := json.Marshal(cachedSuggestion{Category: suggestion.Category, Priority: suggestion.Priority})
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.key(description), raw, c.ttl).Err()
}
