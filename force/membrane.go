package force

import (
	"github.com/phil-mansfield/goib/curve"
	"github.com/phil-mansfield/goib/errs"
	"github.com/phil-mansfield/goib/geom"
)

// Membrane models each curve as a closed chain of linear springs between
// adjacent markers. The force on marker i is
//
//     k (|e| - l0) e/|e|
//
// summed over its two edges e, each pointing away from i.
type Membrane struct {
	SpringConst float64
	// RestLength is the spring rest length. A non-positive value uses each
	// curve's AverageSpacing.
	RestLength float64
	// Workers is the number of goroutines curves are split across. A
	// non-positive value uses one per CPU.
	Workers int
}

// NewMembrane returns a membrane law after checking its parameters.
func NewMembrane(springConst, restLength float64) (*Membrane, error) {
	if !(springConst >= 0) || !finite(springConst) {
		return nil, errs.Config(
			"membrane spring constant must be non-negative, got %g",
			springConst,
		)
	} else if !finite(restLength) {
		return nil, errs.Config(
			"membrane rest length must be finite, got %g", restLength,
		)
	}
	return &Membrane{SpringConst: springConst, RestLength: restLength}, nil
}

// AddForces adds membrane tension forces for every curve.
func (m *Membrane) AddForces(curves []*curve.Curve, fs [][]geom.Vec) {
	eachCurve(len(curves), m.Workers, func(i int) {
		m.addCurveForces(curves[i], fs[i])
	})
}

func (m *Membrane) restLength(c *curve.Curve) float64 {
	if m.RestLength > 0 {
		return m.RestLength
	}
	return c.AverageSpacing()
}

func (m *Membrane) addCurveForces(c *curve.Curve, fs []geom.Vec) {
	ms := c.Markers()
	if len(ms) < 2 {
		return
	}
	l0 := m.restLength(c)

	// Each edge is visited once and its tension is applied to both ends.
	for i := range ms {
		j := c.Next(i)
		e := ms[j].Pos.Sub(ms[i].Pos)
		l := e.Norm()
		if l == 0 {
			continue
		}
		f := e.Scale(m.SpringConst * (l - l0) / l)
		fs[i].AddSelf(f)
		fs[j].AddSelf(f.Scale(-1))
	}
}
