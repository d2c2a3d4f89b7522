package io

import (
	"math"

	"github.com/phil-mansfield/table"

	"github.com/phil-mansfield/goib/errs"
	"github.com/phil-mansfield/goib/geom"
)

// ReadMarkers reads a marker table written by WriteMarkers and returns the
// marker positions of each curve, indexed by the table's curve column.
func ReadMarkers(file string) ([][]geom.Vec, error) {
	cols, err := table.ReadTable(file, []int{0, 1, 2, 3}, nil)
	if err != nil {
		return nil, err
	}
	cs, ms, xs, ys := cols[0], cols[1], cols[2], cols[3]

	// Every curve has at least one row, so no valid curve index reaches the
	// number of rows.
	counts := []int{}
	for i := range cs {
		inRange := cs[i] >= 0 && cs[i] < float64(len(cs))
		if !inRange || cs[i] != math.Trunc(cs[i]) {
			return nil, errs.Index("row %d of %s has curve index %g", i, file, cs[i])
		}
		c := int(cs[i])
		for len(counts) <= c {
			counts = append(counts, 0)
		}
		counts[c]++
	}

	curves := make([][]geom.Vec, len(counts))
	seen := make([][]bool, len(counts))
	for c := range curves {
		curves[c] = make([]geom.Vec, counts[c])
		seen[c] = make([]bool, counts[c])
	}

	for i := range cs {
		c, m := int(cs[i]), int(ms[i])
		if m < 0 || m >= counts[c] || float64(m) != ms[i] || seen[c][m] {
			return nil, errs.Index(
				"row %d of %s has invalid marker index %g for curve %d",
				i, file, ms[i], c,
			)
		}
		seen[c][m] = true
		curves[c][m] = geom.Vec{xs[i], ys[i]}
	}

	return curves, nil
}
