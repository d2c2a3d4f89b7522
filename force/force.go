/*package force contains the mechanical force laws which act on boundary
curves. Every law accumulates into a shared set of per-marker force
buffers, so any number of laws compose by summation.
*/
package force

import (
	"runtime"

	"github.com/phil-mansfield/goib/curve"
	"github.com/phil-mansfield/goib/geom"
)

// Law is a force law acting on a set of curves.
type Law interface {
	// AddForces adds the law's contribution to fs, where fs[c][m] is the
	// force on marker m of curves[c]. len(fs[c]) must equal curves[c].Len().
	AddForces(curves []*curve.Curve, fs [][]geom.Vec)
}

// Sum is a Law which is the sum of several other laws.
type Sum []Law

// AddForces adds the contribution of every law in the sum.
func (s Sum) AddForces(curves []*curve.Curve, fs [][]geom.Vec) {
	for _, law := range s {
		law.AddForces(curves, fs)
	}
}

// Buffers allocates a zeroed force buffer shaped like curves.
func Buffers(curves []*curve.Curve) [][]geom.Vec {
	fs := make([][]geom.Vec, len(curves))
	for i, c := range curves {
		fs[i] = make([]geom.Vec, c.Len())
	}
	return fs
}

// Clear zeroes every force in fs.
func Clear(fs [][]geom.Vec) {
	for i := range fs {
		for j := range fs[i] {
			fs[i][j] = geom.Vec{}
		}
	}
}

// ComputeForces returns the per-marker forces that law exerts on curves.
func ComputeForces(law Law, curves []*curve.Curve) [][]geom.Vec {
	fs := Buffers(curves)
	law.AddForces(curves, fs)
	return fs
}

// Total returns the sum of every force in fs.
func Total(fs [][]geom.Vec) geom.Vec {
	var sum geom.Vec
	for i := range fs {
		for j := range fs[i] {
			sum.AddSelf(fs[i][j])
		}
	}
	return sum
}

func workerCount(workers, curves int) int {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > curves {
		workers = curves
	}
	return workers
}

// eachCurve calls fn(i) for every curve index, spread across workers. Each
// index is handled by exactly one goroutine.
func eachCurve(curves, workers int, fn func(i int)) {
	workers = workerCount(workers, curves)
	if workers <= 1 {
		for i := 0; i < curves; i++ {
			fn(i)
		}
		return
	}

	out := make(chan int, workers)
	for id := 0; id < workers; id++ {
		go func(id int) {
			for i := id; i < curves; i += workers {
				fn(i)
			}
			out <- id
		}(id)
	}
	for i := 0; i < workers; i++ {
		<-out
	}
}

func finite(x float64) bool { return x-x == 0 }
