/*package curve represents cell membranes as closed polygons of markers.

A Curve owns its markers in a flat slice; marker indices are stable for the
lifetime of the curve and the successor of the last marker is the first.
*/
package curve

import (
	"math"

	"github.com/phil-mansfield/goib/errs"
	"github.com/phil-mansfield/goib/geom"
)

// Marker is a single Lagrangian point on a Curve.
type Marker struct {
	Pos geom.Vec
	// Fixed markers feel and spread forces but are never advected.
	Fixed bool

	source int // index into Curve.sources, or -1
}

// Source returns the index of the fluid source attached to this marker, if
// there is one.
func (m *Marker) Source() (idx int, ok bool) {
	return m.source, m.source >= 0
}

// Curve is an ordered, cyclically closed sequence of markers.
type Curve struct {
	markers []Marker
	sources []*Source

	spacing      float64
	spacingValid bool
}

// New returns an empty curve with room for n markers.
func New(n int) *Curve {
	return &Curve{markers: make([]Marker, 0, n)}
}

// AddMarker appends a marker at the given position and returns its index.
func (c *Curve) AddMarker(pos geom.Vec) int {
	c.markers = append(c.markers, Marker{Pos: pos, source: -1})
	c.spacingValid = false
	return len(c.markers) - 1
}

// Markers returns the markers in insertion order. The returned slice is the
// curve's backing storage, so callers may move markers through it.
func (c *Curve) Markers() []Marker { return c.markers }

// Len returns the number of markers on the curve.
func (c *Curve) Len() int { return len(c.markers) }

// Next returns the index of the marker after i.
func (c *Curve) Next(i int) int {
	if i == len(c.markers)-1 {
		return 0
	}
	return i + 1
}

// Prev returns the index of the marker before i.
func (c *Curve) Prev(i int) int {
	if i == 0 {
		return len(c.markers) - 1
	}
	return i - 1
}

// Positions copies marker positions into out, which is grown if needed,
// and returns it.
func (c *Curve) Positions(out []geom.Vec) []geom.Vec {
	if cap(out) < len(c.markers) {
		out = make([]geom.Vec, len(c.markers))
	}
	out = out[:len(c.markers)]
	for i := range c.markers {
		out[i] = c.markers[i].Pos
	}
	return out
}

// Perimeter returns the length of the closed polygon.
func (c *Curve) Perimeter() float64 {
	if len(c.markers) < 2 {
		return 0
	}
	sum := 0.0
	for i := range c.markers {
		sum += c.markers[c.Next(i)].Pos.Sub(c.markers[i].Pos).Norm()
	}
	return sum
}

// AverageSpacing returns the mean distance between adjacent markers. The
// value is computed on the first call after the last AddMarker and is then
// held fixed while the markers move, so it records the spacing the curve
// was built with. Use RecalculateSpacing to refresh it.
func (c *Curve) AverageSpacing() float64 {
	if !c.spacingValid {
		c.RecalculateSpacing()
	}
	return c.spacing
}

// RecalculateSpacing recomputes the cached average spacing from the current
// marker positions.
func (c *Curve) RecalculateSpacing() {
	c.spacing = 0
	if len(c.markers) > 0 {
		c.spacing = c.Perimeter() / float64(len(c.markers))
	}
	c.spacingValid = true
}

// Centroid returns the mean marker position.
func (c *Curve) Centroid() geom.Vec {
	var sum geom.Vec
	if len(c.markers) == 0 {
		return sum
	}
	for i := range c.markers {
		sum.AddSelf(c.markers[i].Pos)
	}
	return sum.Scale(1 / float64(len(c.markers)))
}

// Area returns the signed area enclosed by the curve, positive when the
// markers run counter-clockwise.
func (c *Curve) Area() float64 {
	sum := 0.0
	for i := range c.markers {
		sum += c.markers[i].Pos.Cross(c.markers[c.Next(i)].Pos)
	}
	return sum / 2
}

// AttachSource binds a fluid source of the given strength to a marker.
func (c *Curve) AttachSource(marker int, strength float64) (*Source, error) {
	if marker < 0 || marker >= len(c.markers) {
		return nil, errs.Index(
			"marker %d is out of range for a curve with %d markers",
			marker, len(c.markers),
		)
	}
	if _, ok := c.markers[marker].Source(); ok {
		return nil, errs.Index("marker %d already has a fluid source", marker)
	}

	src := &Source{marker: marker}
	if err := src.SetStrength(strength); err != nil {
		return nil, err
	}

	c.markers[marker].source = len(c.sources)
	c.sources = append(c.sources, src)
	return src, nil
}

// Sources returns the fluid sources attached to the curve, in the order
// they were attached.
func (c *Curve) Sources() []*Source { return c.sources }

// IsFinite returns true if every marker position is finite. If not, the
// index of the first bad marker is returned.
func (c *Curve) IsFinite() (bad int, ok bool) {
	for i := range c.markers {
		if !c.markers[i].Pos.IsFinite() {
			return i, false
		}
	}
	return -1, true
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
