package srs

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/domain"
)

func TestCalculateNewEasiness(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	testCases := []struct {
		name     string
		current  float64
		grade    domain.Grade
		expected float64
	}{
		{"perfect grade adds 0.1", 2.5, 5, 2.6},
		{"good grade leaves easiness unchanged", 2.5, 4, 2.5},
		{"good grade leaves odd easiness unchanged", 1.87, 4, 1.87},
		{"borderline pass subtracts 0.14", 2.5, 3, 2.36},
		{"floor is enforced", 1.35, 3, 1.3},
		{"floor holds at the floor", 1.3, 3, 1.3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := calculateNewEasiness(tc.current, tc.grade, params)

			epsilon := 1e-9
			if got < tc.expected-epsilon || got > tc.expected+epsilon {
				t.Errorf("Expected easiness %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestCalculateNewEasinessGoodIsExact(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	for e := 1.3; e < 4.0; e += 0.013 {
		if got := calculateNewEasiness(e, 4, params); got != e {
			t.Fatalf("Expected grade 4 to leave easiness %v untouched, got %v", e, got)
		}
	}
}

func TestCalculateNewInterval(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	testCases := []struct {
		name     string
		interval int
		newReps  int
		easiness float64
		expected int
	}{
		{"first pass is one day", 1, 1, 2.6, 1},
		{"first pass ignores a large interval", 40, 1, 2.6, 1},
		{"second pass is six days", 1, 2, 1.3, 6},
		{"third pass multiplies by easiness", 6, 3, 2.5, 15},
		{"fractional days round up", 6, 3, 2.36, 15}, // 14.16
		{"exact products stay exact", 10, 4, 2.0, 20},
		{"floor easiness still grows", 1, 3, 1.3, 2}, // 1.3
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := calculateNewInterval(tc.interval, tc.newReps, tc.easiness, params)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got != tc.expected {
				t.Errorf("Expected interval %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestTransitionLapse(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	for _, grade := range []domain.Grade{1, 2} {
		for _, state := range []domain.SRSState{
			{Interval: 10, Repetitions: 3, Easiness: 2.5},
			{Interval: 400, Repetitions: 9, Easiness: 1.3},
			{Interval: 1, Repetitions: 0, Easiness: 2.9},
		} {
			got, err := transition(grade, state, params)
			if err != nil {
				t.Fatalf("grade %d on %+v: unexpected error %v", grade, state, err)
			}
			if got.Repetitions != 0 || got.Interval != 1 {
				t.Errorf("grade %d on %+v: expected reps 0 interval 1, got %+v", grade, state, got)
			}
			if got.Easiness != state.Easiness {
				t.Errorf("grade %d on %+v: expected easiness unchanged, got %v", grade, state, got.Easiness)
			}
		}
	}
}

func TestNextReview(t *testing.T) {
	t.Parallel()
	reviewedAt := time.Date(2024, 1, 31, 8, 15, 0, 0, time.UTC)

	if got := NextReview(reviewedAt, 1); !got.Equal(time.Date(2024, 2, 1, 8, 15, 0, 0, time.UTC)) {
		t.Errorf("Expected next day, got %v", got)
	}
	if got := NextReview(reviewedAt, 30); !got.Equal(time.Date(2024, 3, 1, 8, 15, 0, 0, time.UTC)) {
		t.Errorf("Expected 30 days later across a leap February, got %v", got)
	}
}

func TestScheduleCardDoesNotMutateInput(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 5, 5, 10, 0, 0, 0, time.UTC)
	card := &domain.Card{
		ID:           uuid.New(),
		Interval:     6,
		Repetitions:  2,
		Easiness:     2.5,
		NextReviewAt: now.Add(-time.Hour),
		Version:      4,
	}
	original := *card

	updated := scheduleCard(card, domain.SRSState{Interval: 15, Repetitions: 3, Easiness: 2.5}, now)

	if updated == card {
		t.Fatal("scheduleCard returned the same object, not a new one")
	}
	if *card != original {
		t.Errorf("Expected input card to be unchanged, got %+v", *card)
	}
	if !updated.NextReviewAt.Equal(now.AddDate(0, 0, 15)) {
		t.Errorf("Expected next review 15 days after now, got %v", updated.NextReviewAt)
	}
	if !updated.LastReviewedAt.Equal(now) || !updated.UpdatedAt.Equal(now) {
		t.Errorf("Expected review timestamps to equal now, got %v / %v", updated.LastReviewedAt, updated.UpdatedAt)
	}
	if updated.Version != original.Version {
		t.Errorf("Expected version to be left for the store, got %d", updated.Version)
	}
}
