package goib

import (
	"sort"

	"github.com/phil-mansfield/goib/curve"
	"github.com/phil-mansfield/goib/density"
	"github.com/phil-mansfield/goib/errs"
	"github.com/phil-mansfield/goib/fluid"
	"github.com/phil-mansfield/goib/force"
	"github.com/phil-mansfield/goib/geom"
	"github.com/phil-mansfield/goib/io"
)

// NewFromConfig builds a simulation from a validated run configuration.
// Curves are ordered by name. If the configuration names an output
// directory, a SnapshotWriter targeting it is registered as an observer.
func NewFromConfig(wrap *io.RunWrapper) (*Simulation, error) {
	run, fl := &wrap.Run, &wrap.Fluid

	g, err := fluid.NewGrid(fl.GridPoints, fl.DomainWidth)
	if err != nil {
		return nil, err
	}
	solver, err := fluid.NewSolver(g, fl.Viscosity, fl.Density)
	if err != nil {
		return nil, err
	}
	solver.Advection = fl.Advection

	kernel, err := density.KernelFromName(fl.Kernel)
	if err != nil {
		return nil, err
	}
	spreader, err := density.NewSpreader(kernel, g.N, g.H, run.Workers)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(wrap.Curve))
	for name := range wrap.Curve {
		names = append(names, name)
	}
	sort.Strings(names)

	curves := make([]*curve.Curve, len(names))
	byName := map[string]*curve.Curve{}
	for i, name := range names {
		if curves[i], err = buildCurve(wrap.Curve[name]); err != nil {
			return nil, err
		}
		byName[name] = curves[i]
	}

	if err := attachSources(wrap.Source, byName); err != nil {
		return nil, err
	}

	p := RunParams{
		Dt: run.Dt, EndTime: run.EndTime,
		SamplingInterval: run.SamplingInterval,
	}
	sim, err := NewSimulation(curves, solver, spreader, p)
	if err != nil {
		return nil, err
	}
	if err := sim.SetNames(names); err != nil {
		return nil, err
	}
	sim.SetLog(run.Log)
	sim.SnapshotVelocity = run.WriteVelocity

	if wrap.Membrane.Enabled() {
		m, err := force.NewMembrane(
			wrap.Membrane.SpringConstant, wrap.Membrane.RestLength,
		)
		if err != nil {
			return nil, err
		}
		m.Workers = run.Workers
		sim.AddForce(m)
	}

	if wrap.Interaction.Enabled() {
		con := &wrap.Interaction
		in, err := force.NewInteraction(
			con.SpringConstant, con.RestLength, con.Cutoff,
		)
		if err != nil {
			return nil, err
		}
		in.SameCurve = con.SameCurve
		in.Width = fl.DomainWidth
		in.Workers = run.Workers
		sim.AddForce(in)
	}

	if run.ValidOutput() {
		w, err := io.NewSnapshotWriter(run.Output, run.WriteVelocity)
		if err != nil {
			return nil, err
		}
		sim.AddObserver(w)
	}

	return sim, nil
}

func buildCurve(con *io.CurveConfig) (*curve.Curve, error) {
	var (
		c   *curve.Curve
		err error
	)
	center := geom.Vec{con.X, con.Y}

	switch con.Shape {
	case io.CircleShape:
		c, err = curve.Circle(center, con.Radius, con.Markers)
	case io.SuperellipseShape:
		c, err = curve.Superellipse(
			center, con.A, con.B, con.Exponent, con.Markers,
		)
	case io.FileShape:
		var curves [][]geom.Vec
		if curves, err = io.ReadMarkers(con.File); err != nil {
			return nil, err
		} else if con.FileCurve >= len(curves) {
			return nil, errs.Index(
				"Curve '%s' reads curve %d from %s, which has %d curves",
				con.Name, con.FileCurve, con.File, len(curves),
			)
		}
		c, err = curve.FromPositions(curves[con.FileCurve])
		if err == nil && con.Markers > 0 {
			c, err = c.Resample(con.Markers)
		}
	default:
		return nil, errs.Config(
			"Curve '%s' has unrecognized shape '%s'", con.Name, con.Shape,
		)
	}
	if err != nil {
		return nil, err
	}

	if con.Fixed {
		ms := c.Markers()
		for i := range ms {
			ms[i].Fixed = true
		}
	}
	return c, nil
}

func attachSources(
	sources map[string]*io.SourceConfig, curves map[string]*curve.Curve,
) error {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		con := sources[name]
		c, ok := curves[con.Curve]
		if !ok {
			return errs.Config(
				"Source '%s' is attached to unknown Curve '%s'", name, con.Curve,
			)
		}
		if _, err := c.AttachSource(con.Marker, con.Strength); err != nil {
			return err
		}
	}
	return nil
}
