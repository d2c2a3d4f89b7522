package force

import (
	"math"
	"testing"

	"github.com/phil-mansfield/goib/curve"
	"github.com/phil-mansfield/goib/errs"
	"github.com/phil-mansfield/goib/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func points(xs ...geom.Vec) *curve.Curve {
	c := curve.New(len(xs))
	for _, x := range xs {
		c.AddMarker(x)
	}
	return c
}

func vecAlmostEq(t *testing.T, i int, exp, got geom.Vec, eps float64) {
	t.Helper()
	if math.Abs(exp[0]-got[0]) > eps || math.Abs(exp[1]-got[1]) > eps {
		t.Errorf("%d) Expected force %v, got %v.", i, exp, got)
	}
}

func TestNewLaws(t *testing.T) {
	_, err := NewMembrane(-1, 0)
	assert.ErrorIs(t, err, errs.ErrInvalidConfiguration)
	_, err = NewMembrane(math.NaN(), 0)
	assert.ErrorIs(t, err, errs.ErrInvalidConfiguration)
	_, err = NewMembrane(1, math.Inf(1))
	assert.ErrorIs(t, err, errs.ErrInvalidConfiguration)
	m, err := NewMembrane(10, 0)
	require.NoError(t, err)
	assert.Equal(t, 10.0, m.SpringConst)

	table := []struct {
		k, r0, cut float64
		valid      bool
	}{
		{1, 1, 2, true},
		{0, 0, 1, true},
		{-1, 1, 2, false},
		{1, -1, 2, false},
		{1, 1, 0, false},
		{1, 1, math.Inf(1), false},
		{math.NaN(), 1, 1, false},
	}

	for i, test := range table {
		_, err := NewInteraction(test.k, test.r0, test.cut)
		if test.valid && err != nil {
			t.Errorf("%d) Unexpected error: %v", i, err)
		} else if !test.valid && err == nil {
			t.Errorf("%d) Expected an error for %+v.", i, test)
		}
	}
}

func TestMembraneAtRest(t *testing.T) {
	c, err := curve.Circle(geom.Vec{1, 2}, 3, 64)
	require.NoError(t, err)

	m, _ := NewMembrane(1e4, 0)
	fs := ComputeForces(m, []*curve.Curve{c})
	for i, f := range fs[0] {
		vecAlmostEq(t, i, geom.Vec{}, f, 1e-8)
	}
}

func TestMembraneStretched(t *testing.T) {
	center := geom.Vec{0.5, -0.25}
	c, err := curve.Superellipse(center, 2.4, 1.6, 2, 50)
	require.NoError(t, err)

	m, _ := NewMembrane(100, 0.01)
	fs := ComputeForces(m, []*curve.Curve{c})

	total := Total(fs)
	assert.InDelta(t, 0, total[0], 1e-9)
	assert.InDelta(t, 0, total[1], 1e-9)

	// Every spring is stretched, so a convex curve is pulled inward.
	for i, mk := range c.Markers() {
		out := mk.Pos.Sub(center)
		if fs[0][i].Dot(out) >= 0 {
			t.Errorf("%d) Force %v on marker at %v is not inward.",
				i, fs[0][i], mk.Pos)
		}
	}
}

func TestMembraneTriangle(t *testing.T) {
	// A right triangle with legs of length 3 and 4.
	c := points(geom.Vec{0, 0}, geom.Vec{3, 0}, geom.Vec{0, 4})
	m := &Membrane{SpringConst: 2, RestLength: 1, Workers: 1}
	fs := ComputeForces(m, []*curve.Curve{c})

	// Edge tensions: 0-1 is 2*(3-1) = 4, 1-2 is 2*(5-1) = 8,
	// 2-0 is 2*(4-1) = 6.
	exp := []geom.Vec{
		{4, 6},
		{-4 - 8*3.0/5, 8 * 4.0 / 5},
		{8 * 3.0 / 5, -6 - 8*4.0/5},
	}
	for i := range exp {
		vecAlmostEq(t, i, exp[i], fs[0][i], 1e-12)
	}
}

func TestMembraneRigidInvariance(t *testing.T) {
	c1, err := curve.Superellipse(geom.Vec{}, 2, 1, 3, 40)
	require.NoError(t, err)

	theta, shift := 0.7, geom.Vec{5, -3}
	xs := c1.Positions(nil)
	for i := range xs {
		xs[i] = xs[i].Rotate(theta).Add(shift)
	}
	c2, err := curve.FromPositions(xs)
	require.NoError(t, err)

	m := &Membrane{SpringConst: 50, RestLength: 0.1}
	fs1 := ComputeForces(m, []*curve.Curve{c1})
	fs2 := ComputeForces(m, []*curve.Curve{c2})

	for i := range fs1[0] {
		vecAlmostEq(t, i, fs1[0][i].Rotate(theta), fs2[0][i], 1e-9)
	}
}

// A curve at its rest spacing feels no force wherever it is moved.
func TestMembraneRestingRigidMotion(t *testing.T) {
	c, err := curve.Circle(geom.Vec{1, -2}, 2, 128)
	require.NoError(t, err)

	table := []struct {
		theta float64
		shift geom.Vec
	}{
		{0, geom.Vec{}},
		{0.7, geom.Vec{5, -3}},
		{math.Pi / 3, geom.Vec{-40, 12.5}},
		{-2.1, geom.Vec{0.25, 1e3}},
	}

	for i, test := range table {
		xs := c.Positions(nil)
		for j := range xs {
			xs[j] = xs[j].Rotate(test.theta).Add(test.shift)
		}
		moved, err := curve.FromPositions(xs)
		require.NoError(t, err)

		m := &Membrane{SpringConst: 1e7}
		fs := ComputeForces(m, []*curve.Curve{moved})
		for j := range fs[0] {
			vecAlmostEq(t, i, geom.Vec{}, fs[0][j], 1e-5)
		}
	}
}

func TestMembraneZeroLengthEdge(t *testing.T) {
	c := points(geom.Vec{0, 0}, geom.Vec{0, 0}, geom.Vec{1, 0})
	m := &Membrane{SpringConst: 1, RestLength: 0.5}
	fs := ComputeForces(m, []*curve.Curve{c})
	for i := range fs[0] {
		assert.True(t, fs[0][i].IsFinite(), "%d) force %v", i, fs[0][i])
	}
	total := Total(fs)
	assert.InDelta(t, 0, total.Norm(), 1e-12)
}

func TestInteractionPair(t *testing.T) {
	table := []struct {
		xa, xb     geom.Vec
		k, r0, cut float64
		width      float64
		fa         geom.Vec
	}{
		// Compressed pairs repel.
		{geom.Vec{0, 0}, geom.Vec{1, 0}, 2, 2, 3, 0, geom.Vec{-2, 0}},
		// Stretched pairs inside the cutoff attract.
		{geom.Vec{0, 0}, geom.Vec{0, 2.5}, 2, 2, 3, 0, geom.Vec{0, 1}},
		// Outside the cutoff.
		{geom.Vec{0, 0}, geom.Vec{3.5, 0}, 2, 2, 3, 0, geom.Vec{}},
		// Exactly at the cutoff.
		{geom.Vec{0, 0}, geom.Vec{3, 0}, 2, 2, 3, 0, geom.Vec{}},
		// Coincident.
		{geom.Vec{1, 1}, geom.Vec{1, 1}, 2, 2, 3, 0, geom.Vec{}},
		// Separated across a periodic boundary.
		{geom.Vec{0.5, 5}, geom.Vec{9.5, 5}, 1, 2, 3, 10, geom.Vec{1, 0}},
		// The same pair without wrapping is out of range.
		{geom.Vec{0.5, 5}, geom.Vec{9.5, 5}, 1, 2, 3, 0, geom.Vec{}},
	}

	for i, test := range table {
		a, b := points(test.xa), points(test.xb)
		in := &Interaction{
			SpringConst: test.k, RestLength: test.r0, Cutoff: test.cut,
			Width: test.width,
		}
		fs := ComputeForces(in, []*curve.Curve{a, b})
		vecAlmostEq(t, i, test.fa, fs[0][0], 1e-12)
		vecAlmostEq(t, i, test.fa.Scale(-1), fs[1][0], 1e-12)
	}
}

func TestInteractionSameCurve(t *testing.T) {
	c := points(geom.Vec{0, 0}, geom.Vec{1, 0}, geom.Vec{0, 1})

	in := &Interaction{SpringConst: 1, RestLength: 2, Cutoff: 3}
	fs := ComputeForces(in, []*curve.Curve{c})
	for i := range fs[0] {
		vecAlmostEq(t, i, geom.Vec{}, fs[0][i], 0)
	}

	in.SameCurve = true
	fs = ComputeForces(in, []*curve.Curve{c})
	// Marker 0 is pushed away from both neighbors.
	vecAlmostEq(t, 0, geom.Vec{-1, -1}, fs[0][0], 1e-12)
	total := Total(fs)
	assert.InDelta(t, 0, total.Norm(), 1e-12)
}

func TestInteractionMomentum(t *testing.T) {
	c1, err := curve.Circle(geom.Vec{0, 0}, 2, 64)
	require.NoError(t, err)
	c2, err := curve.Circle(geom.Vec{4.6, 0.3}, 2, 64)
	require.NoError(t, err)
	c3, err := curve.Circle(geom.Vec{2, 4}, 2, 64)
	require.NoError(t, err)
	curves := []*curve.Curve{c1, c2, c3}

	in := &Interaction{SpringConst: 1e3, RestLength: 1, Cutoff: 1.5}
	fs := ComputeForces(in, curves)

	total := Total(fs)
	assert.InDelta(t, 0, total.Norm(), 1e-8)

	nonzero := 0
	for i := range fs {
		for j := range fs[i] {
			if fs[i][j] != (geom.Vec{}) {
				nonzero++
			}
		}
	}
	assert.True(t, nonzero > 0)
}

func TestWorkersAgree(t *testing.T) {
	var curves []*curve.Curve
	for i := 0; i < 7; i++ {
		c, err := curve.Superellipse(
			geom.Vec{float64(i) * 3.9, float64(i%2) * 0.5}, 2, 1.5, 2.5, 48,
		)
		require.NoError(t, err)
		curves = append(curves, c)
	}

	law := func(workers int) Law {
		return Sum{
			&Membrane{SpringConst: 10, RestLength: 0.05, Workers: workers},
			&Interaction{
				SpringConst: 5, RestLength: 0.5, Cutoff: 1, Workers: workers,
			},
		}
	}

	serial := ComputeForces(law(1), curves)
	for _, workers := range []int{2, 3, 16, 0} {
		parallel := ComputeForces(law(workers), curves)
		assert.Equal(t, serial, parallel, "workers = %d", workers)
	}
}

func TestSum(t *testing.T) {
	c1, _ := curve.Circle(geom.Vec{0, 0}, 1, 16)
	c2, _ := curve.Circle(geom.Vec{2.2, 0}, 1, 16)
	curves := []*curve.Curve{c1, c2}

	m := &Membrane{SpringConst: 3, RestLength: 0.2}
	in := &Interaction{SpringConst: 4, RestLength: 0.3, Cutoff: 0.5}

	fm := ComputeForces(m, curves)
	fi := ComputeForces(in, curves)
	fs := ComputeForces(Sum{m, in}, curves)

	for c := range fs {
		for i := range fs[c] {
			vecAlmostEq(t, i, fm[c][i].Add(fi[c][i]), fs[c][i], 1e-12)
		}
	}

	Clear(fs)
	assert.Equal(t, geom.Vec{}, Total(fs))
}
