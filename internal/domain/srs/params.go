package srs

import (
	"errors"
	"fmt"

	"github.com/phrazzld/scry-srs/internal/domain"
)

// ErrInvalidParams is returned when a Params value cannot drive the algorithm.
var ErrInvalidParams = errors.New("invalid SRS parameters")

// Params defines the constants of the SM-2 transition.
type Params struct {
	// MinEasiness is the floor applied to the easiness factor after a pass.
	MinEasiness float64

	// PassingGrade is the lowest grade treated as a successful recall.
	PassingGrade domain.Grade

	// FirstInterval and SecondInterval are the fixed intervals, in days,
	// for the first and second consecutive passes.
	FirstInterval  int
	SecondInterval int

	// LapseInterval is the interval, in days, after a failing grade.
	LapseInterval int
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance.
// Zero values keep the default.
type ParamsConfig struct {
	MinEasiness    float64
	PassingGrade   domain.Grade
	FirstInterval  int
	SecondInterval int
	LapseInterval  int
}

// NewDefaultParams creates a new Params instance with the classic SM-2 values.
func NewDefaultParams() *Params {
	return &Params{
		MinEasiness:    domain.MinEasiness,
		PassingGrade:   domain.PassingGrade,
		FirstInterval:  1,
		SecondInterval: 6,
		LapseInterval:  domain.MinInterval,
	}
}

// NewParams creates a new Params instance with custom configuration.
func NewParams(config ParamsConfig) (*Params, error) {
	params := NewDefaultParams()

	if config.MinEasiness > 0 {
		params.MinEasiness = config.MinEasiness
	}
	if config.PassingGrade != 0 {
		params.PassingGrade = config.PassingGrade
	}
	if config.FirstInterval > 0 {
		params.FirstInterval = config.FirstInterval
	}
	if config.SecondInterval > 0 {
		params.SecondInterval = config.SecondInterval
	}
	if config.LapseInterval > 0 {
		params.LapseInterval = config.LapseInterval
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}

// Validate checks that the parameters keep the card invariants intact.
func (p *Params) Validate() error {
	switch {
	case p == nil:
		return fmt.Errorf("%w: params cannot be nil", ErrInvalidParams)
	case p.MinEasiness < domain.MinEasiness:
		return fmt.Errorf("%w: minimum easiness %v is below %v", ErrInvalidParams, p.MinEasiness, domain.MinEasiness)
	case !p.PassingGrade.Valid():
		return fmt.Errorf("%w: passing grade %d is outside the grade scale", ErrInvalidParams, p.PassingGrade)
	case p.FirstInterval < domain.MinInterval,
		p.SecondInterval < domain.MinInterval,
		p.LapseInterval < domain.MinInterval:
		return fmt.Errorf("%w: intervals must be at least %d day", ErrInvalidParams, domain.MinInterval)
	}
	return nil
}
