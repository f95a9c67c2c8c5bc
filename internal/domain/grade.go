package domain

import "fmt"

// Grade is the learner's recall-quality signal for a single review.
// 1 and 2 are failures, 3 is a borderline pass, 4 is good and 5 is perfect.
type Grade int

// Bounds of the grade scale.
const (
	MinGrade Grade = 1
	MaxGrade Grade = 5

	// PassingGrade is the lowest grade that counts as a successful recall.
	PassingGrade Grade = 3
)

// Valid reports whether g lies within [MinGrade, MaxGrade].
func (g Grade) Valid() bool {
	return g >= MinGrade && g <= MaxGrade
}

// Passed reports whether g counts as a successful recall.
func (g Grade) Passed() bool {
	return g >= PassingGrade
}

// Validate returns ErrInvalidGrade wrapped with the offending value.
func (g Grade) Validate() error {
	if !g.Valid() {
		return fmt.Errorf("%w: %d is outside [%d,%d]", ErrInvalidGrade, int(g), MinGrade, MaxGrade)
	}
	return nil
}
