package force

import (
	"github.com/phil-mansfield/goib/curve"
	"github.com/phil-mansfield/goib/errs"
	"github.com/phil-mansfield/goib/geom"
)

// Interaction is a short range linear spring between every pair of markers
// closer than Cutoff. The force on a marker a from a marker b at separation
// d = x_b - x_a is
//
//     k (|d| - l0) d/|d|
//
// so pairs closer than the rest length repel and pairs between the rest
// length and the cutoff attract. Coincident markers exert no force on each
// other.
type Interaction struct {
	SpringConst, RestLength, Cutoff float64
	// SameCurve includes pairs of markers on the same curve. By default only
	// markers on different curves interact.
	SameCurve bool
	// Width is the width of the periodic domain used for minimum-image
	// separations. A non-positive value disables wrapping.
	Width float64
	// Workers is the number of goroutines curves are split across. A
	// non-positive value uses one per CPU.
	Workers int
}

// NewInteraction returns an interaction law after checking its parameters.
func NewInteraction(
	springConst, restLength, cutoff float64,
) (*Interaction, error) {
	if !(springConst >= 0) || !finite(springConst) {
		return nil, errs.Config(
			"interaction spring constant must be non-negative, got %g",
			springConst,
		)
	} else if !(restLength >= 0) || !finite(restLength) {
		return nil, errs.Config(
			"interaction rest length must be non-negative, got %g", restLength,
		)
	} else if !(cutoff > 0) || !finite(cutoff) {
		return nil, errs.Config(
			"interaction cutoff must be positive, got %g", cutoff,
		)
	}

	return &Interaction{
		SpringConst: springConst, RestLength: restLength, Cutoff: cutoff,
	}, nil
}

// AddForces adds interaction forces. Each curve's markers are handled by a
// single worker which loops over every potential partner, so pair forces are
// evaluated twice rather than reduced across workers.
func (in *Interaction) AddForces(curves []*curve.Curve, fs [][]geom.Vec) {
	cut2 := in.Cutoff * in.Cutoff

	eachCurve(len(curves), in.Workers, func(ci int) {
		msA := curves[ci].Markers()
		out := fs[ci]

		for cj := range curves {
			if cj == ci && !in.SameCurve {
				continue
			}
			msB := curves[cj].Markers()

			for a := range msA {
				xa := msA[a].Pos
				for b := range msB {
					if cj == ci && a == b {
						continue
					}
					d := geom.MinImage(msB[b].Pos.Sub(xa), in.Width)
					d2 := d.Norm2()
					if d2 >= cut2 || d2 == 0 {
						continue
					}
					dist := d.Norm()
					out[a].AddSelf(
						d.Scale(in.SpringConst * (dist - in.RestLength) / dist),
					)
				}
			}
		}
	})
}
