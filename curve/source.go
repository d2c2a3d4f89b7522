package curve

import (
	"github.com/phil-mansfield/goib/errs"
)

// Source is a point source (or, with negative strength, sink) of fluid
// volume bound to a marker. Its flux is injected at the marker's current
// position every step.
type Source struct {
	marker   int
	strength float64
}

// Marker returns the index of the marker the source is bound to.
func (s *Source) Marker() int { return s.marker }

// Strength returns the volumetric flux of the source.
func (s *Source) Strength() float64 { return s.strength }

// SetStrength sets the volumetric flux of the source.
func (s *Source) SetStrength(strength float64) error {
	if !finite(strength) {
		return errs.Config("fluid source strength must be finite, not %g",
			strength)
	}
	s.strength = strength
	return nil
}
