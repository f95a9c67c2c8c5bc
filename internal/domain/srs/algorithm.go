package srs

import (
	"fmt"
	"math"
	"time"

	"github.com/phrazzld/scry-srs/internal/domain"
)

// calculateNewEasiness applies the SM-2 easiness update for a passing grade:
//
//	e' = max(min, e + 0.1 - (5-g) * (0.08 + (5-g) * 0.02))
//
// The explicit float64 conversions stop the compiler from fusing the
// multiply-adds, so results are identical on every architecture.
func calculateNewEasiness(easiness float64, grade domain.Grade, params *Params) float64 {
	q := float64(domain.MaxGrade - grade)
	penalty := float64(q * float64(0.08+float64(q*0.02)))
	newEasiness := easiness + float64(0.1-penalty)
	return math.Max(params.MinEasiness, newEasiness)
}

// calculateNewInterval returns the interval, in days, following a pass that
// brings the streak to newRepetitions. Fractional days round up. Intervals
// past domain.MaxInterval cannot be stored and are reported as ErrInvalidState.
func calculateNewInterval(interval, newRepetitions int, newEasiness float64, params *Params) (int, error) {
	switch newRepetitions {
	case 1:
		return params.FirstInterval, nil
	case 2:
		return params.SecondInterval, nil
	}

	days := math.Ceil(float64(float64(interval) * newEasiness))
	if days > domain.MaxInterval {
		return 0, domain.NewValidationError("interval",
			fmt.Sprintf("next interval of %.0f days exceeds the maximum of %d", days, domain.MaxInterval),
			domain.ErrInvalidState)
	}
	return int(days), nil
}

// transition is the SM-2 state transition. It performs no validation of its
// inputs and must only be called with a valid grade and state; it fails only
// when the next interval cannot be represented.
//
// Failing grades reset the streak and interval but leave easiness unchanged;
// grades below the passing grade are not differentiated.
func transition(grade domain.Grade, state domain.SRSState, params *Params) (domain.SRSState, error) {
	if grade < params.PassingGrade {
		return domain.SRSState{
			Interval:    params.LapseInterval,
			Repetitions: 0,
			Easiness:    state.Easiness,
		}, nil
	}

	newEasiness := calculateNewEasiness(state.Easiness, grade, params)
	newRepetitions := state.Repetitions + 1

	interval, err := calculateNewInterval(state.Interval, newRepetitions, newEasiness, params)
	if err != nil {
		return domain.SRSState{}, err
	}

	return domain.SRSState{
		Interval:    interval,
		Repetitions: newRepetitions,
		Easiness:    newEasiness,
	}, nil
}

// NextReview returns the moment a card reviewed at reviewedAt becomes due
// again. Intervals are calendar days.
func NextReview(reviewedAt time.Time, interval int) time.Time {
	return reviewedAt.AddDate(0, 0, interval)
}

// scheduleCard returns a copy of card with the transition applied as of now.
// The original card is not modified and the version is left for the store to bump.
func scheduleCard(card *domain.Card, next domain.SRSState, now time.Time) *domain.Card {
	updated := *card
	updated.Interval = next.Interval
	updated.Repetitions = next.Repetitions
	updated.Easiness = next.Easiness
	updated.LastReviewedAt = now
	updated.NextReviewAt = NextReview(now, next.Interval)
	updated.UpdatedAt = now
	return &updated
}
