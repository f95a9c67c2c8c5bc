package srs

import (
	"errors"
	"time"

	"github.com/phrazzld/scry-srs/internal/domain"
)

// ErrNilCard is returned when Schedule is called without a card.
var ErrNilCard = errors.New("card cannot be nil")

// Service defines the interface for SRS algorithm operations.
// Implementations are stateless and safe for concurrent use.
type Service interface {
	// Transition computes the scheduling state that follows grade.
	// It returns domain.ErrInvalidGrade for grades outside [1,5] and
	// domain.ErrInvalidState for states violating the card invariants.
	Transition(grade domain.Grade, state domain.SRSState) (domain.SRSState, error)

	// Schedule returns a copy of card with the transition for grade applied
	// and its next review set relative to now.
	Schedule(card *domain.Card, grade domain.Grade, now time.Time) (*domain.Card, error)
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new SRS service with default parameters
func NewDefaultService() (Service, error) {
	return NewServiceWithParams(NewDefaultParams())
}

// NewServiceWithParams creates a new SRS service with custom parameters
func NewServiceWithParams(params *Params) (Service, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &defaultService{params: params}, nil
}

// Transition implements Service.
func (s *defaultService) Transition(grade domain.Grade, state domain.SRSState) (domain.SRSState, error) {
	if err := grade.Validate(); err != nil {
		return domain.SRSState{}, err
	}
	if err := state.Validate(); err != nil {
		return domain.SRSState{}, err
	}
	return transition(grade, state, s.params)
}

// Schedule implements Service.
func (s *defaultService) Schedule(card *domain.Card, grade domain.Grade, now time.Time) (*domain.Card, error) {
	if card == nil {
		return nil, ErrNilCard
	}

	next, err := s.Transition(grade, card.SRSState())
	if err != nil {
		return nil, err
	}

	return scheduleCard(card, next, now.UTC()), nil
}

var defaultSvc = &defaultService{params: NewDefaultParams()}

// Transition applies the default SM-2 parameters. It is a pure function:
// identical arguments always produce identical results.
func Transition(grade domain.Grade, state domain.SRSState) (domain.SRSState, error) {
	return defaultSvc.Transition(grade, state)
}
