/*package density transfers quantities between Lagrangian markers and the
periodic Eulerian grid. Spreading distributes marker values onto nearby grid
nodes and interpolation averages grid values back onto markers, both through
the same discrete delta function.
*/
package density

import (
	"math"
	"strings"

	"github.com/phil-mansfield/goib/errs"
)

// MaxSupport is the widest kernel stencil, in grid points per dimension.
const MaxSupport = 4

// Kernel is a one dimensional discrete delta function. The two dimensional
// kernel is the tensor product of two Kernels.
type Kernel interface {
	// Support is the number of grid points touched along each axis.
	Support() int
	// Weights writes the weights of the Support() nodes starting at the
	// returned base index for a point at r, measured in grid units. The
	// weights sum to one.
	Weights(r float64, w *[MaxSupport]float64) (base int)
	// Name returns the configuration name of the kernel.
	Name() string
}

type ngp struct{}
type cic struct{}
type peskin4 struct{}
type cosine4 struct{}

// NearestGridPoint assigns everything to the closest node.
func NearestGridPoint() Kernel { return ngp{} }

// CloudInCell is the linear, two point tent kernel.
func CloudInCell() Kernel { return cic{} }

// Peskin4 is Peskin's four point kernel. It satisfies the even-odd
// condition and the first moment condition.
func Peskin4() Kernel { return peskin4{} }

// Cosine4 is the four point cosine kernel, 1/4 (1 + cos(pi r / 2)).
func Cosine4() Kernel { return cosine4{} }

// KernelNames lists the names accepted by KernelFromName.
var KernelNames = []string{"NearestGridPoint", "CloudInCell", "Peskin4", "Cosine4"}

// KernelFromName returns the kernel with the given name. The comparison
// ignores case.
func KernelFromName(name string) (Kernel, error) {
	switch strings.ToLower(name) {
	case "nearestgridpoint", "ngp":
		return NearestGridPoint(), nil
	case "cloudincell", "cic":
		return CloudInCell(), nil
	case "peskin4":
		return Peskin4(), nil
	case "cosine4", "":
		return Cosine4(), nil
	}
	return nil, errs.Config(
		"unrecognized kernel '%s', options are %s",
		name, strings.Join(KernelNames, ", "),
	)
}

func (ngp) Support() int { return 1 }
func (ngp) Name() string { return "NearestGridPoint" }
func (cic) Support() int { return 2 }
func (cic) Name() string { return "CloudInCell" }
func (peskin4) Support() int { return 4 }
func (peskin4) Name() string { return "Peskin4" }
func (cosine4) Support() int { return 4 }
func (cosine4) Name() string { return "Cosine4" }

func (ngp) Weights(r float64, w *[MaxSupport]float64) int {
	w[0] = 1
	return int(math.Floor(r + 0.5))
}

func (cic) Weights(r float64, w *[MaxSupport]float64) int {
	base := math.Floor(r)
	f := r - base
	w[0], w[1] = 1-f, f
	return int(base)
}

func (peskin4) Weights(r float64, w *[MaxSupport]float64) int {
	base := math.Floor(r) - 1
	for j := 0; j < 4; j++ {
		w[j] = peskinPhi(r - (base + float64(j)))
	}
	return int(base)
}

func (cosine4) Weights(r float64, w *[MaxSupport]float64) int {
	base := math.Floor(r) - 1
	for j := 0; j < 4; j++ {
		w[j] = cosinePhi(r - (base + float64(j)))
	}
	return int(base)
}

func peskinPhi(r float64) float64 {
	r = math.Abs(r)
	switch {
	case r < 1:
		return (3 - 2*r + math.Sqrt(1+4*r-4*r*r)) / 8
	case r < 2:
		d := -7 + 12*r - 4*r*r
		if d < 0 {
			d = 0
		}
		return (5 - 2*r - math.Sqrt(d)) / 8
	}
	return 0
}

func cosinePhi(r float64) float64 {
	r = math.Abs(r)
	if r >= 2 {
		return 0
	}
	return 0.25 * (1 + math.Cos(math.Pi*r/2))
}
