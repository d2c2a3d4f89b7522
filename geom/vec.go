/*package geom contains the small amount of planar geometry shared by the
Lagrangian and Eulerian halves of the solver: vectors, periodic wrapping and
flat indexing into square periodic grids.
*/
package geom

import (
	"math"
)

// Vec is a point or displacement in the plane.
type Vec [2]float64

// Add returns v + w.
func (v Vec) Add(w Vec) Vec { return Vec{v[0] + w[0], v[1] + w[1]} }

// Sub returns v - w.
func (v Vec) Sub(w Vec) Vec { return Vec{v[0] - w[0], v[1] - w[1]} }

// Scale returns a * v.
func (v Vec) Scale(a float64) Vec { return Vec{a * v[0], a * v[1]} }

// Dot returns the inner product of v and w.
func (v Vec) Dot(w Vec) float64 { return v[0]*w[0] + v[1]*w[1] }

// Cross returns the z component of v x w.
func (v Vec) Cross(w Vec) float64 { return v[0]*w[1] - v[1]*w[0] }

// Norm2 returns |v|^2.
func (v Vec) Norm2() float64 { return v[0]*v[0] + v[1]*v[1] }

// Norm returns |v|.
func (v Vec) Norm() float64 { return math.Sqrt(v.Norm2()) }

// AddSelf adds w to v in place.
func (v *Vec) AddSelf(w Vec) {
	v[0] += w[0]
	v[1] += w[1]
}

// ScaleSelf multiplies v by a in place.
func (v *Vec) ScaleSelf(a float64) {
	v[0] *= a
	v[1] *= a
}

// Rotate returns v rotated counter-clockwise by theta radians about the
// origin.
func (v Vec) Rotate(theta float64) Vec {
	sin, cos := math.Sincos(theta)
	return Vec{cos*v[0] - sin*v[1], sin*v[0] + cos*v[1]}
}

// IsFinite returns true if neither component is NaN or infinite.
func (v Vec) IsFinite() bool {
	return isFinite(v[0]) && isFinite(v[1])
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// MinImage returns the shortest representative of the displacement d inside
// a periodic square of the given width. A non-positive width disables
// wrapping.
func MinImage(d Vec, width float64) Vec {
	if width <= 0 {
		return d
	}
	for i := 0; i < 2; i++ {
		d[i] -= width * math.Round(d[i]/width)
	}
	return d
}
