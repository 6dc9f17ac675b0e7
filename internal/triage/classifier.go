package triage

import (
	"strings"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// Suggestion is the advisory output of classification. A nil field
// means the classifier has no opinion on that axis; it is never an
// error condition.
type Suggestion struct {
	Category *domain.TicketCategory
	Priority *domain.TicketPriority
}

// Classifier scores free-text descriptions against a keyword lexicon.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	lexicon Lexicon
}

// NewClassifier constructs a classifier over the given lexicon.
func NewClassifier(lexicon Lexicon) *Classifier {
	return &Classifier{lexicon: lexicon}
}

// Classify maps a description to a suggested category/priority pair.
// The two axes are scored independently: each keyword occurrence adds
// its weight to its label, the strictly highest total wins, and equal
// totals resolve to the label listed earlier in the lexicon order. An
// axis with no matches at all yields nil rather than a default label.
func (c *Classifier) Classify(description string) Suggestion {
	text := strings.ToLower(strings.TrimSpace(description))
	if text == "" {
		return Suggestion{}
	}

	var suggestion Suggestion
	if category, ok := bestLabel(text, c.lexicon.CategoryOrder, c.lexicon.CategoryTerms); ok {
		suggestion.Category = &category
	}
	if priority, ok := bestLabel(text, c.lexicon.PriorityOrder, c.lexicon.PriorityTerms); ok {
		suggestion.Priority = &priority
	}
	return suggestion
}

// bestLabel scores every label of one axis and picks the winner.
// Ordering of labels is the tie-break rule, so iteration follows the
// configured order and only a strictly greater score displaces the
// current leader.
func bestLabel[L ~string](text string, order []L, terms map[L][]Keyword) (L, bool) {
	var best L
	bestScore := 0
	for _, label := range order {
		score := scoreTerms(text, terms[label])
		if score > bestScore {
			best = label
			bestScore = score
		}
	}
	return best, bestScore > 0
}

// scoreTerms sums weight times non-overlapping occurrence count for
// each keyword, so a single occurrence is never counted twice.
func scoreTerms(text string, keywords []Keyword) int {
	score := 0
	for _, kw := range keywords {
		term := strings.ToLower(kw.Term)
		if term == "" {
			continue
		}
		weight := kw.Weight
		if weight <= 0 {
			weight = 1
		}
		score += weight * strings.Count(text, term)
	}
	return score
}
