/*package goib couples deformable boundary curves to a periodic fluid with
the immersed boundary method.

A Simulation owns a set of curves and a fluid solver. Each step computes the
forces that the registered force laws exert on the curves' markers, spreads
those forces and any fluid sources onto the grid, advances the fluid, and
moves every marker with the fluid velocity interpolated at its position.
*/
package goib

import (
	"fmt"
	"log"
	"math"
	"runtime"

	"github.com/phil-mansfield/goib/curve"
	"github.com/phil-mansfield/goib/density"
	"github.com/phil-mansfield/goib/errs"
	"github.com/phil-mansfield/goib/fluid"
	"github.com/phil-mansfield/goib/force"
	"github.com/phil-mansfield/goib/geom"
	"github.com/phil-mansfield/goib/io"
)

// State is the position of a Simulation in its run.
type State int

const (
	Idle State = iota
	Stepping
	Finished
	Diverged
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Stepping:
		return "Stepping"
	case Finished:
		return "Finished"
	case Diverged:
		return "Diverged"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Clock is the time state of a run. It is returned by every call which
// advances a Simulation and must be passed back to the next call.
type Clock struct {
	Step, Steps int
	Dt, Time    float64
}

// Done returns true if every step of the run has been taken.
func (c Clock) Done() bool { return c.Step >= c.Steps }

// RunParams are the parameters of a single run.
type RunParams struct {
	Dt, EndTime float64
	// SamplingInterval is the number of steps between snapshots.
	SamplingInterval int
}

// endTimeTolerance is the relative tolerance within which EndTime must be a
// whole number of steps.
const endTimeTolerance = 1e-9

// Steps returns the number of steps in the run. EndTime must be a whole
// number of time steps.
func (p RunParams) Steps() (int, error) {
	if !(p.Dt > 0) || math.IsInf(p.Dt, 0) {
		return 0, errs.Config("dt must be positive, got %g", p.Dt)
	} else if !(p.EndTime >= 0) || math.IsInf(p.EndTime, 0) {
		return 0, errs.Config("end time must be non-negative, got %g",
			p.EndTime)
	} else if p.SamplingInterval < 1 {
		return 0, errs.Config("sampling interval must be at least 1, got %d",
			p.SamplingInterval)
	}

	ratio := p.EndTime / p.Dt
	steps := math.Round(ratio)
	if math.Abs(ratio-steps) > endTimeTolerance*math.Max(1, ratio) {
		return 0, errs.Config(
			"end time %g is not a whole number of %g time steps",
			p.EndTime, p.Dt,
		)
	} else if steps > math.MaxInt32 {
		return 0, errs.Config("run of %g steps is too long", steps)
	}
	return int(steps), nil
}

// Observer receives the snapshots taken during a run.
type Observer interface {
	Observe(snap *io.Snapshot) error
}

// ObserverFunc lets an ordinary function act as an Observer.
type ObserverFunc func(snap *io.Snapshot) error

func (f ObserverFunc) Observe(snap *io.Snapshot) error { return f(snap) }

// Simulation is a single immersed boundary run. It is not safe for
// concurrent use; parallelism happens inside each step.
type Simulation struct {
	// SnapshotVelocity includes the velocity, vorticity and divergence grids
	// in every snapshot.
	SnapshotVelocity bool

	curves    []*curve.Curve
	names     []string
	solver    *fluid.Solver
	spreader  *density.Spreader
	laws      force.Sum
	observers []Observer

	params RunParams
	steps  int
	state  State
	clock  Clock
	err    error

	log bool
	ms  runtime.MemStats
	ws  *workspace
}

// NewSimulation returns an Idle simulation of curves immersed in the fluid
// advanced by solver. spreader must cover the same grid as solver.
func NewSimulation(
	curves []*curve.Curve, solver *fluid.Solver,
	spreader *density.Spreader, p RunParams,
) (*Simulation, error) {
	steps, err := p.Steps()
	if err != nil {
		return nil, err
	}

	if solver == nil || spreader == nil {
		return nil, errs.Config("a simulation needs a solver and a spreader")
	}
	g := solver.Grid()
	if spreader.Points() != g.N || spreader.Spacing() != g.H {
		return nil, errs.Config(
			"spreader grid (%d points, spacing %g) doesn't match fluid "+
				"grid (%d points, spacing %g)",
			spreader.Points(), spreader.Spacing(), g.N, g.H,
		)
	}

	if len(curves) == 0 {
		return nil, errs.Config("a simulation needs at least one curve")
	}
	names := make([]string, len(curves))
	for i, c := range curves {
		if c == nil || c.Len() == 0 {
			return nil, errs.Config("curve %d has no markers", i)
		} else if m, ok := c.IsFinite(); !ok {
			return nil, errs.Config(
				"marker %d of curve %d is not finite", m, i,
			)
		}
		names[i] = fmt.Sprintf("curve%d", i)
	}

	sim := &Simulation{
		curves: curves, names: names,
		solver: solver, spreader: spreader,
		params: p, steps: steps,
		state: Idle,
		clock: Clock{Steps: steps, Dt: p.Dt},
	}
	sim.ws = newWorkspace(curves, g.Area)
	return sim, nil
}

// SetNames names the curves in snapshots. By default curve i is "curve<i>".
func (sim *Simulation) SetNames(names []string) error {
	if len(names) != len(sim.curves) {
		return errs.Config("got %d names for %d curves",
			len(names), len(sim.curves))
	}
	sim.names = append([]string{}, names...)
	return nil
}

// SetLog turns progress logging on or off.
func (sim *Simulation) SetLog(flag bool) { sim.log = flag }

// AddForce registers a force law. Laws must be added before the run starts.
func (sim *Simulation) AddForce(law force.Law) { sim.laws = append(sim.laws, law) }

// AddObserver registers an observer for the run's snapshots.
func (sim *Simulation) AddObserver(obs Observer) {
	sim.observers = append(sim.observers, obs)
}

func (sim *Simulation) State() State { return sim.state }
func (sim *Simulation) Clock() Clock { return sim.clock }
func (sim *Simulation) Curves() []*curve.Curve { return sim.curves }
func (sim *Simulation) Names() []string { return sim.names }
func (sim *Simulation) Solver() *fluid.Solver { return sim.solver }
func (sim *Simulation) Params() RunParams { return sim.params }

// Forces returns the per-marker forces of the most recent step, indexed by
// curve and then marker.
func (sim *Simulation) Forces() [][]geom.Vec { return sim.ws.forces }

// Start moves an Idle simulation to Stepping, or directly to Finished if the
// run has no steps, and sends the initial snapshot to the observers.
func (sim *Simulation) Start() (Clock, error) {
	if sim.state != Idle {
		return sim.clock, errs.Config(
			"cannot start a simulation in state %s", sim.state,
		)
	}
	if len(sim.laws) == 0 && sim.log {
		log.Println("No force laws registered.")
	}

	sim.state = Stepping
	if sim.clock.Done() {
		sim.state = Finished
	}
	if sim.log {
		log.Printf("Starting run of %d steps with dt = %g.",
			sim.clock.Steps, sim.clock.Dt)
	}

	return sim.clock, sim.observe(sim.clock)
}

// Step advances the simulation by one time step and returns the new clock.
// clk must be the clock returned by the previous call. Calling Step on an
// Idle simulation starts it first. Stepping a Finished simulation does
// nothing, and stepping a Diverged one returns its error again.
//
// If the step produces a non-finite marker position or fluid velocity, the
// simulation is returned to its state before the step, moves to Diverged,
// and an *errs.DivergedError is returned.
func (sim *Simulation) Step(clk Clock) (Clock, error) {
	switch sim.state {
	case Idle:
		var err error
		if clk, err = sim.Start(); err != nil || sim.state != Stepping {
			return clk, err
		}
	case Finished:
		return sim.clock, nil
	case Diverged:
		return sim.clock, sim.err
	}

	if clk != sim.clock {
		return sim.clock, errs.Config(
			"clock at step %d doesn't match the simulation's clock at step %d",
			clk.Step, sim.clock.Step,
		)
	}

	next, err := sim.advance(clk)
	if err != nil {
		return sim.clock, err
	}

	sim.clock = next
	if next.Done() {
		sim.state = Finished
	}

	if next.Step%sim.params.SamplingInterval == 0 || sim.state == Finished {
		if sim.log {
			log.Printf(
				"Step %d/%d: t = %g, max speed = %.4g",
				next.Step, next.Steps, next.Time,
				sim.solver.Grid().MaxSpeed(),
			)
		}
		if err := sim.observe(next); err != nil {
			return next, err
		}
	}
	return next, nil
}

// Solve runs the simulation until it finishes or fails.
func (sim *Simulation) Solve() (Clock, error) {
	clk := sim.clock
	if sim.state == Idle {
		var err error
		if clk, err = sim.Start(); err != nil {
			return clk, err
		}
	}

	for sim.state == Stepping {
		var err error
		if clk, err = sim.Step(clk); err != nil {
			return clk, err
		}
	}

	if sim.log {
		runtime.ReadMemStats(&sim.ms)
		log.Printf(
			"Alloc: %5d MB, Sys: %5d MB",
			sim.ms.Alloc>>20, sim.ms.Sys>>20,
		)
	}
	return clk, sim.err
}

// advance takes one step from clk.
func (sim *Simulation) advance(clk Clock) (Clock, error) {
	g, ws := sim.solver.Grid(), sim.ws

	force.Clear(ws.forces)
	sim.laws.AddForces(sim.curves, ws.forces)

	ws.gather(sim.curves)
	ws.saveVelocity(g.U, g.V)

	g.ClearForcing()
	sim.spreader.Spread(ws.xs, ws.fs, g.Fx, g.Fy)
	if len(ws.srcXs) > 0 {
		sim.spreader.SpreadScalar(ws.srcXs, ws.srcVals, g.Src)
	}

	if err := sim.solver.Step(clk.Dt); err != nil {
		return clk, err
	}

	next := clk
	next.Step++
	next.Time = float64(next.Step) * clk.Dt

	if idx, ok := g.IsFinite(); !ok {
		x, y := g.Coords(idx)
		return clk, sim.diverge(next, fmt.Sprintf(
			"fluid velocity at node (%d, %d) is not finite", x, y,
		))
	}

	sim.spreader.Interpolate(ws.xs, g.U, g.V, ws.vs)
	ws.advect(sim.curves, clk.Dt)

	for i, c := range sim.curves {
		if m, ok := c.IsFinite(); !ok {
			return clk, sim.diverge(next, fmt.Sprintf(
				"position of marker %d on %s is not finite", m, sim.names[i],
			))
		}
	}

	return next, nil
}

// diverge restores the state from before the failed step and halts the run.
func (sim *Simulation) diverge(next Clock, what string) error {
	g := sim.solver.Grid()
	sim.ws.restore(sim.curves)
	sim.ws.restoreVelocity(g.U, g.V)

	sim.state = Diverged
	sim.err = &errs.DivergedError{Step: next.Step, Time: next.Time, What: what}
	if sim.log {
		log.Println(sim.err.Error())
	}
	return sim.err
}

// Snapshot returns a copy of the current state of the run.
func (sim *Simulation) Snapshot() *io.Snapshot {
	g := sim.solver.Grid()
	snap := &io.Snapshot{
		Step: sim.clock.Step, Time: sim.clock.Time,
		Curves:        make([]io.CurveMarkers, len(sim.curves)),
		KineticEnergy: sim.solver.KineticEnergy(),
		MaxSpeed:      g.MaxSpeed(),
		Points:        g.N, Width: g.Width,
		Viscosity: sim.solver.Viscosity(), Density: sim.solver.Density(),
	}
	for i, c := range sim.curves {
		snap.Curves[i] = io.CurveMarkers{
			Name: sim.names[i], Xs: c.Positions(nil),
		}
	}

	if sim.SnapshotVelocity {
		snap.U = append([]float64{}, g.U...)
		snap.V = append([]float64{}, g.V...)
		snap.Vorticity = sim.solver.Vorticity(nil)
		snap.Divergence = sim.solver.Divergence(nil)
	}
	return snap
}

func (sim *Simulation) observe(clk Clock) error {
	if len(sim.observers) == 0 {
		return nil
	}
	snap := sim.Snapshot()
	for _, obs := range sim.observers {
		if err := obs.Observe(snap); err != nil {
			return fmt.Errorf("observing step %d: %w", clk.Step, err)
		}
	}
	return nil
}
