package triage

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// Keyword is a single lexicon entry. Weight scales how strongly an
// occurrence of Term pulls the description toward the entry's label.
type Keyword struct {
	Term   string `json:"term"`
	Weight int    `json:"weight"`
}

// Lexicon is the scoring configuration for the classifier. The order of
// CategoryOrder and PriorityOrder doubles as the tie-break rule: when two
// labels score equally, the one listed earlier wins.
type Lexicon struct {
	CategoryOrder []domain.TicketCategory             `json:"category_order"`
	PriorityOrder []domain.TicketPriority             `json:"priority_order"`
	CategoryTerms map[domain.TicketCategory][]Keyword `json:"category_terms"`
	PriorityTerms map[domain.TicketPriority][]Keyword `json:"priority_terms"`
}

// DefaultLexicon returns the built-in scoring configuration. Single
// words carry weight 1; multi-word phrases are less ambiguous and carry
// weight 2.
func DefaultLexicon() Lexicon {
	return Lexicon{
		CategoryOrder: domain.Categories(),
		PriorityOrder: domain.Priorities(),
		CategoryTerms: map[domain.TicketCategory][]Keyword{
			domain.TicketCategoryBilling: {
				{Term: "invoice", Weight: 1},
				{Term: "charge", Weight: 1},
				{Term: "refund", Weight: 1},
				{Term: "payment", Weight: 1},
				{Term: "billing", Weight: 1},
				{Term: "subscription", Weight: 1},
				{Term: "receipt", Weight: 1},
				{Term: "credit card", Weight: 2},
			},
			domain.TicketCategoryTechnical: {
				{Term: "error", Weight: 1},
				{Term: "bug", Weight: 1},
				{Term: "crash", Weight: 1},
				{Term: "broken", Weight: 1},
				{Term: "exception", Weight: 1},
				{Term: "timeout", Weight: 1},
				{Term: "not working", Weight: 2},
				{Term: "500", Weight: 1},
			},
			domain.TicketCategoryAccount: {
				{Term: "account", Weight: 1},
				{Term: "login", Weight: 1},
				{Term: "log in", Weight: 2},
				{Term: "password", Weight: 1},
				{Term: "locked out", Weight: 2},
				{Term: "sign in", Weight: 2},
				{Term: "profile", Weight: 1},
			},
			domain.TicketCategoryGeneral: {
				{Term: "question", Weight: 1},
				{Term: "feedback", Weight: 1},
				{Term: "suggestion", Weight: 1},
				{Term: "how do i", Weight: 2},
				{Term: "feature request", Weight: 2},
			},
		},
		PriorityTerms: map[domain.TicketPriority][]Keyword{
			domain.TicketPriorityCritical: {
				{Term: "down", Weight: 1},
				{Term: "outage", Weight: 1},
				{Term: "data loss", Weight: 2},
				{Term: "security breach", Weight: 2},
				{Term: "hacked", Weight: 1},
				{Term: "production", Weight: 1},
			},
			domain.TicketPriorityHigh: {
				{Term: "urgent", Weight: 1},
				{Term: "asap", Weight: 1},
				{Term: "blocked", Weight: 1},
				{Term: "cannot", Weight: 1},
				{Term: "unable", Weight: 1},
				{Term: "charged twice", Weight: 2},
				{Term: "immediately", Weight: 1},
			},
			domain.TicketPriorityMedium: {
				{Term: "error", Weight: 1},
				{Term: "bug", Weight: 1},
				{Term: "slow", Weight: 1},
				{Term: "intermittent", Weight: 1},
				{Term: "wrong", Weight: 1},
			},
			domain.TicketPriorityLow: {
				{Term: "question", Weight: 1},
				{Term: "minor", Weight: 1},
				{Term: "typo", Weight: 1},
				{Term: "feedback", Weight: 1},
				{Term: "whenever", Weight: 1},
			},
		},
	}
}

// LoadLexicon reads a lexicon override from a JSON file. Empty order
// slices fall back to the canonical label orders so a file may specify
// terms only.
func LoadLexicon(path string) (Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("read lexicon: %w", err)
	}
	var lex Lexicon
	if err := json.Unmarshal(data, &lex); err != nil {
		return Lexicon{}, fmt.Errorf("parse lexicon %s: %w", path, err)
	}
	if len(lex.CategoryOrder) == 0 {
		lex.CategoryOrder = domain.Categories()
	}
	if len(lex.PriorityOrder) == 0 {
		lex.PriorityOrder = domain.Priorities()
	}
	if err := lex.validate(); err != nil {
		return Lexicon{}, fmt.Errorf("lexicon %s: %w", path, err)
	}
	return lex, nil
}

func (l Lexicon) validate() error {
	for _, c := range l.CategoryOrder {
		if !c.Valid() {
			return fmt.Errorf("unknown category %q", c)
		}
	}
	for _, p := range l.PriorityOrder {
		if !p.Valid() {
			return fmt.Errorf("unknown priority %q", p)
		}
	}
	for c := range l.CategoryTerms {
		if !c.Valid() {
			return fmt.Errorf("terms for unknown category %q", c)
		}
	}
	for p := range l.PriorityTerms {
		if !p.Valid() {
			return fmt.Errorf("terms for unknown priority %q", p)
		}
	}
	return nil
}
