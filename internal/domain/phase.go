package domain

// Phase is a card's position in the scheduling lifecycle. It is derived from
// the scheduling fields and never stored.
type Phase string

// Lifecycle phases. There is no terminal phase: any card can lapse again.
const (
	PhaseNew       Phase = "new"
	PhaseLearning  Phase = "learning"
	PhaseReviewing Phase = "reviewing"
	PhaseLapsed    Phase = "lapsed"
)

// PhaseOf derives the phase of a scheduling state. reviewed distinguishes a
// lapsed card from one that was never studied, since both carry zero repetitions.
func PhaseOf(s SRSState, reviewed bool) Phase {
	switch {
	case s.Repetitions == 0 && reviewed:
		return PhaseLapsed
	case s.Repetitions == 0:
		return PhaseNew
	case s.Repetitions == 1:
		return PhaseLearning
	default:
		return PhaseReviewing
	}
}
