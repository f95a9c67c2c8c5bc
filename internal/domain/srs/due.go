package srs

import (
	"bytes"
	"iter"
	"slices"
	"time"

	"github.com/phrazzld/scry-srs/internal/domain"
)

// SelectDue returns the cards due at asOf, most overdue first. Cards sharing a
// due time are ordered by ID so the sequence is deterministic.
//
// Selection happens each time the sequence is ranged over, so it can be
// restarted; cards is never modified. No due cards yields an empty sequence.
func SelectDue(cards []domain.Card, asOf time.Time) iter.Seq[domain.Card] {
	return func(yield func(domain.Card) bool) {
		due := make([]domain.Card, 0, len(cards))
		for _, c := range cards {
			if c.IsDue(asOf) {
				due = append(due, c)
			}
		}
		slices.SortFunc(due, compareDue)

		for _, c := range due {
			if !yield(c) {
				return
			}
		}
	}
}

// CollectDue is SelectDue materialised into a slice. It never returns nil.
func CollectDue(cards []domain.Card, asOf time.Time) []domain.Card {
	due := slices.Collect(SelectDue(cards, asOf))
	if due == nil {
		return []domain.Card{}
	}
	return due
}

// DueCount counts the cards due at asOf without ordering them.
func DueCount(cards []domain.Card, asOf time.Time) int {
	n := 0
	for _, c := range cards {
		if c.IsDue(asOf) {
			n++
		}
	}
	return n
}

func compareDue(a, b domain.Card) int {
	if c := a.NextReviewAt.Compare(b.NextReviewAt); c != 0 {
		return c
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}
