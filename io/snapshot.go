package io

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/phil-mansfield/goib/geom"
)

// CurveMarkers is the state of one curve at a sampled step.
type CurveMarkers struct {
	Name string     `json:"name"`
	Xs   []geom.Vec `json:"xs"`
}

// Snapshot is the state of a run at a sampled step. The grid fields are only
// filled in when velocity output is requested.
type Snapshot struct {
	Step          int            `json:"step"`
	Time          float64        `json:"time"`
	Curves        []CurveMarkers `json:"curves"`
	KineticEnergy float64        `json:"kineticEnergy"`
	MaxSpeed      float64        `json:"maxSpeed"`

	Points             int     `json:"points"`
	Width              float64 `json:"width"`
	Viscosity, Density float64 `json:"-"`

	U, V, Vorticity, Divergence []float64 `json:"-"`
}

// HasVelocity returns true if the snapshot carries the velocity grid.
func (snap *Snapshot) HasVelocity() bool {
	return snap.U != nil && snap.V != nil
}

// WriteMarkers writes one "curve marker x y" row for every marker in snap.
func WriteMarkers(wr io.Writer, snap *Snapshot) error {
	bw := bufio.NewWriter(wr)
	for ci := range snap.Curves {
		for mi, x := range snap.Curves[ci].Xs {
			_, err := fmt.Fprintf(bw, "%d %d %.17g %.17g\n", ci, mi, x[0], x[1])
			if err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// SnapshotWriter writes each snapshot it observes to a directory: a marker
// table, markers_<step>.txt, and, if requested, velocity_<step>.grid,
// vorticity_<step>.grid and divergence_<step>.grid.
type SnapshotWriter struct {
	dir           string
	writeVelocity bool
}

// NewSnapshotWriter creates dir if needed and returns a writer targeting it.
func NewSnapshotWriter(dir string, writeVelocity bool) (*SnapshotWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &SnapshotWriter{dir: dir, writeVelocity: writeVelocity}, nil
}

// MarkerFile returns the name of the marker table written for step.
func (w *SnapshotWriter) MarkerFile(step int) string {
	return filepath.Join(w.dir, fmt.Sprintf("markers_%06d.txt", step))
}

// VelocityFile returns the name of the velocity grid written for step.
func (w *SnapshotWriter) VelocityFile(step int) string {
	return filepath.Join(w.dir, fmt.Sprintf("velocity_%06d.grid", step))
}

// VorticityFile returns the name of the vorticity grid written for step.
func (w *SnapshotWriter) VorticityFile(step int) string {
	return filepath.Join(w.dir, fmt.Sprintf("vorticity_%06d.grid", step))
}

// DivergenceFile returns the name of the velocity divergence grid written
// for step.
func (w *SnapshotWriter) DivergenceFile(step int) string {
	return filepath.Join(w.dir, fmt.Sprintf("divergence_%06d.grid", step))
}

// Observe writes snap to the output directory.
func (w *SnapshotWriter) Observe(snap *Snapshot) error {
	err := writeFile(w.MarkerFile(snap.Step), func(wr io.Writer) error {
		return WriteMarkers(wr, snap)
	})
	if err != nil {
		return err
	}

	if !w.writeVelocity || !snap.HasVelocity() {
		return nil
	}

	sim := SimInfo{
		Step: int64(snap.Step), Time: snap.Time,
		Viscosity: snap.Viscosity, Density: snap.Density,
	}
	loc := NewLocationInfo(snap.Points, snap.Width)

	err = writeFile(w.VelocityFile(snap.Step), func(wr io.Writer) error {
		return WriteGrid(Velocity, sim, loc, wr, snap.U, snap.V)
	})
	if err != nil {
		return err
	}

	if snap.Vorticity != nil {
		err = writeFile(w.VorticityFile(snap.Step), func(wr io.Writer) error {
			return WriteGrid(Vorticity, sim, loc, wr, snap.Vorticity)
		})
		if err != nil {
			return err
		}
	}
	if snap.Divergence == nil {
		return nil
	}
	return writeFile(w.DivergenceFile(snap.Step), func(wr io.Writer) error {
		return WriteGrid(VelocityDivergence, sim, loc, wr, snap.Divergence)
	})
}

func writeFile(file string, write func(io.Writer) error) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if err = write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
