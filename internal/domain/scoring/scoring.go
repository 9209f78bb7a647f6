// Package scoring validates score submissions before they reach the ranking engine.
package scoring

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/okian/jmscore/internal/domain/model"
)

// Field limits, in decimal digits where the game client stores numbers as text.
const (
	maxScore       = 9_999_999_999
	maxJewelCount  = 9_999
	maxLevel       = 999
	maxClass       = 999
	maxElapsedTime = 9_999_999_999_999_999
)

// Option applies a configuration option to the Validator.
type Option func(*Validator)

// WithModes restricts the accepted game modes.
func WithModes(modes ...int) Option {
	return func(v *Validator) {
		if len(modes) == 0 {
			return
		}
		v.modes = make(map[int]struct{}, len(modes))
		for _, m := range modes {
			v.modes[m] = struct{}{}
		}
	}
}

// WithMaxScore lowers the accepted score ceiling.
func WithMaxScore(limit int64) Option {
	return func(v *Validator) {
		if limit > 0 && limit < maxScore {
			v.maxScore = limit
		}
	}
}

// Validator checks submissions against the game's field limits.
type Validator struct {
	modes    map[int]struct{}
	maxScore int64
}

// NewValidator creates a Validator accepting the three game modes.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		modes: map[int]struct{}{
			model.ModeNormal: {},
			model.ModeHard:   {},
			model.ModeDeath:  {},
		},
		maxScore: maxScore,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate returns an error wrapping ErrInvalidSubmission for the first
// field that is out of range.
func (v *Validator) Validate(_ context.Context, s *model.Submission) error {
	switch {
	case utf8.RuneCountInString(s.PlayerID) > model.MaxPlayerIDLength:
		return fmt.Errorf("%w: id longer than %d characters", ErrInvalidSubmission, model.MaxPlayerIDLength)
	case !v.modeAllowed(s.Mode):
		return fmt.Errorf("%w: mode %d", ErrInvalidSubmission, s.Mode)
	case s.Score < 0 || s.Score > v.maxScore:
		return fmt.Errorf("%w: score %d", ErrInvalidSubmission, s.Score)
	case s.JewelCount < 0 || s.JewelCount > maxJewelCount:
		return fmt.Errorf("%w: jewel %d", ErrInvalidSubmission, s.JewelCount)
	case s.Level < 0 || s.Level > maxLevel:
		return fmt.Errorf("%w: level %d", ErrInvalidSubmission, s.Level)
	case s.Class < 0 || s.Class > maxClass:
		return fmt.Errorf("%w: class %d", ErrInvalidSubmission, s.Class)
	case s.ElapsedTime < 0 || s.ElapsedTime > maxElapsedTime:
		return fmt.Errorf("%w: time %d", ErrInvalidSubmission, s.ElapsedTime)
	}
	return nil
}

func (v *Validator) modeAllowed(mode int) bool {
	_, ok := v.modes[mode]
	return ok
}
