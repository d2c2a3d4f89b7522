package io

import (
	"math"
	"strings"

	"gopkg.in/gcfg.v1"

	"github.com/phil-mansfield/goib/errs"
)

// RunWrapper holds every section of a run configuration file.
type RunWrapper struct {
	Run         RunConfig
	Fluid       FluidConfig
	Membrane    MembraneConfig
	Interaction InteractionConfig
	Curve       map[string]*CurveConfig
	Source      map[string]*SourceConfig
}

type RunConfig struct {
	// Required
	Dt, EndTime float64

	// Optional
	SamplingInterval int
	Output           string
	LogFile          string
	ProfileFile      string
	WriteVelocity    bool
	StreamAddress    string
	Workers          int
	Log              bool
}

type FluidConfig struct {
	GridPoints  int
	DomainWidth float64
	Viscosity   float64
	Density     float64
	Kernel      string
	Advection   bool
}

type MembraneConfig struct {
	SpringConstant, RestLength float64
}

type InteractionConfig struct {
	SpringConstant, RestLength, Cutoff float64
	SameCurve                          bool
}

type CurveConfig struct {
	// Required
	Shape string

	// Circle and Superellipse
	X, Y     float64
	Radius   float64
	A, B     float64
	Exponent float64
	Markers  int

	// File
	File      string
	FileCurve int

	Fixed bool
	Name  string
}

type SourceConfig struct {
	Curve    string
	Marker   int
	Strength float64

	Name string
}

// Shapes accepted by a [Curve] section.
const (
	CircleShape       = "Circle"
	SuperellipseShape = "Superellipse"
	FileShape         = "File"
)

func DefaultRunWrapper() *RunWrapper {
	return &RunWrapper{
		Run: RunConfig{
			Dt: -1, EndTime: -1, SamplingInterval: 1,
		},
		Fluid: FluidConfig{
			GridPoints: 64, DomainWidth: 1,
			Viscosity: 1, Density: 1,
			Kernel: "Cosine4", Advection: true,
		},
	}
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

func (con *RunConfig) ValidDt() bool { return con.Dt > 0 && finite(con.Dt) }
func (con *RunConfig) ValidEndTime() bool { return con.EndTime >= 0 && finite(con.EndTime) }
func (con *RunConfig) ValidSamplingInterval() bool { return con.SamplingInterval >= 1 }
func (con *RunConfig) ValidOutput() bool { return con.Output != "" }
func (con *RunConfig) ValidLogFile() bool { return con.LogFile != "" }
func (con *RunConfig) ValidProfileFile() bool { return con.ProfileFile != "" }
func (con *RunConfig) ValidStreamAddress() bool { return con.StreamAddress != "" }

func (con *RunConfig) CheckInit() error {
	if !con.ValidDt() {
		return errs.Config("invalid/non-existent 'Dt' value, %g", con.Dt)
	} else if !con.ValidEndTime() {
		return errs.Config(
			"invalid/non-existent 'EndTime' value, %g", con.EndTime,
		)
	} else if !con.ValidSamplingInterval() {
		return errs.Config(
			"'SamplingInterval' must be at least 1, got %d",
			con.SamplingInterval,
		)
	} else if con.Workers < 0 {
		return errs.Config("'Workers' must be non-negative, got %d",
			con.Workers)
	} else if con.WriteVelocity && !con.ValidOutput() {
		return errs.Config("'WriteVelocity' is set but 'Output' is not")
	}
	return nil
}

func (con *FluidConfig) CheckInit() error {
	if con.GridPoints < 4 {
		return errs.Config(
			"'GridPoints' must be at least 4, got %d", con.GridPoints,
		)
	} else if !(con.DomainWidth > 0) || !finite(con.DomainWidth) {
		return errs.Config(
			"'DomainWidth' must be positive, got %g", con.DomainWidth,
		)
	} else if !(con.Viscosity >= 0) || !finite(con.Viscosity) {
		return errs.Config(
			"'Viscosity' must be non-negative, got %g", con.Viscosity,
		)
	} else if !(con.Density > 0) || !finite(con.Density) {
		return errs.Config("'Density' must be positive, got %g", con.Density)
	}
	return nil
}

// Spacing returns the grid spacing implied by the fluid section.
func (con *FluidConfig) Spacing() float64 {
	return con.DomainWidth / float64(con.GridPoints)
}

// Enabled returns true if the section turns the membrane force on.
func (con *MembraneConfig) Enabled() bool { return con.SpringConstant != 0 }

func (con *MembraneConfig) CheckInit() error {
	if !(con.SpringConstant >= 0) || !finite(con.SpringConstant) {
		return errs.Config(
			"[Membrane] 'SpringConstant' must be non-negative, got %g",
			con.SpringConstant,
		)
	} else if !finite(con.RestLength) {
		return errs.Config(
			"[Membrane] 'RestLength' must be finite, got %g", con.RestLength,
		)
	}
	return nil
}

// Enabled returns true if the section turns the interaction force on.
func (con *InteractionConfig) Enabled() bool { return con.SpringConstant != 0 }

// CheckInit validates the section and fills in unset lengths relative to the
// grid spacing h: RestLength defaults to h/4 and Cutoff to 1.5 RestLength.
func (con *InteractionConfig) CheckInit(h float64) error {
	if !(con.SpringConstant >= 0) || !finite(con.SpringConstant) {
		return errs.Config(
			"[Interaction] 'SpringConstant' must be non-negative, got %g",
			con.SpringConstant,
		)
	} else if con.RestLength < 0 || !finite(con.RestLength) {
		return errs.Config(
			"[Interaction] 'RestLength' must be non-negative, got %g",
			con.RestLength,
		)
	} else if con.Cutoff < 0 || !finite(con.Cutoff) {
		return errs.Config(
			"[Interaction] 'Cutoff' must be non-negative, got %g", con.Cutoff,
		)
	}

	if con.RestLength == 0 {
		con.RestLength = h / 4
	}
	if con.Cutoff == 0 {
		con.Cutoff = 1.5 * con.RestLength
	}
	return nil
}

func (con *CurveConfig) CheckInit(name string) error {
	con.Name = name

	switch con.Shape {
	case CircleShape:
		if !(con.Radius > 0) || !finite(con.Radius) {
			return errs.Config(
				"need to specify a positive 'Radius' for Curve '%s'", name,
			)
		}
	case SuperellipseShape:
		if !(con.A > 0) || !(con.B > 0) || !finite(con.A) || !finite(con.B) {
			return errs.Config(
				"need to specify positive 'A' and 'B' for Curve '%s'", name,
			)
		}
		if con.Exponent == 0 {
			con.Exponent = 2
		} else if !(con.Exponent > 0) || !finite(con.Exponent) {
			return errs.Config(
				"Curve '%s' given a non-positive exponent, %g.",
				name, con.Exponent,
			)
		}
	case FileShape:
		if con.File == "" {
			return errs.Config(
				"need to specify a 'File' for Curve '%s'", name,
			)
		} else if con.FileCurve < 0 {
			return errs.Config(
				"Curve '%s' given a negative 'FileCurve', %d.",
				name, con.FileCurve,
			)
		} else if con.Markers != 0 && con.Markers < 3 {
			return errs.Config(
				"Curve '%s' can't be resampled to %d 'Markers'",
				name, con.Markers,
			)
		}
		return nil
	default:
		return errs.Config(
			"Curve '%s' has unrecognized 'Shape' '%s', options are %s",
			name, con.Shape, strings.Join(
				[]string{CircleShape, SuperellipseShape, FileShape}, ", ",
			),
		)
	}

	if !finite(con.X) || !finite(con.Y) {
		return errs.Config("center of Curve '%s' is not finite", name)
	} else if con.Markers < 3 {
		return errs.Config(
			"Curve '%s' needs at least 3 'Markers', got %d",
			name, con.Markers,
		)
	}
	return nil
}

func (con *SourceConfig) CheckInit(name string, curves map[string]*CurveConfig) error {
	con.Name = name

	if _, ok := curves[con.Curve]; !ok {
		return errs.Config(
			"Source '%s' is attached to unknown Curve '%s'", name, con.Curve,
		)
	} else if !finite(con.Strength) {
		return errs.Config(
			"Source '%s' given a non-finite strength, %g", name, con.Strength,
		)
	}
	return nil
}

// CheckInit validates every section of the configuration.
func (wrap *RunWrapper) CheckInit() error {
	if err := wrap.Run.CheckInit(); err != nil {
		return err
	} else if err := wrap.Fluid.CheckInit(); err != nil {
		return err
	} else if err := wrap.Membrane.CheckInit(); err != nil {
		return err
	} else if err := wrap.Interaction.CheckInit(wrap.Fluid.Spacing()); err != nil {
		return err
	}

	if len(wrap.Curve) == 0 {
		return errs.Config("need to specify at least one [Curve] section")
	}
	for name, c := range wrap.Curve {
		if err := c.CheckInit(name); err != nil {
			return err
		}
	}
	for name, s := range wrap.Source {
		if err := s.CheckInit(name, wrap.Curve); err != nil {
			return err
		}
	}
	return nil
}

// ReadRunConfig reads and validates the run configuration file fname.
func ReadRunConfig(fname string) (*RunWrapper, error) {
	wrap := DefaultRunWrapper()
	if err := gcfg.ReadFileInto(wrap, fname); err != nil {
		return nil, errs.Config("%s", err.Error())
	}
	if err := wrap.CheckInit(); err != nil {
		return nil, err
	}
	return wrap, nil
}

// ParseRunConfig reads and validates a run configuration from a string.
func ParseRunConfig(text string) (*RunWrapper, error) {
	wrap := DefaultRunWrapper()
	if err := gcfg.ReadStringInto(wrap, text); err != nil {
		return nil, errs.Config("%s", err.Error())
	}
	if err := wrap.CheckInit(); err != nil {
		return nil, err
	}
	return wrap, nil
}

const ExampleRunFile = `[Run]

#######################
# Required Parameters #
#######################

# Length of a single time step.
Dt = 0.05

# Time at which the run ends. Must be a whole number of time steps.
EndTime = 20

#######################
# Optional Parameters #
#######################

# Number of steps between snapshots. Defaults to 1.
SamplingInterval = 20

# Directory that marker tables (and velocity grids) are written to. No
# snapshots are written if this is not set.
# Output = path/to/output/dir

# Also write velocity and vorticity grids with every snapshot.
# WriteVelocity = true

# LogFile = path/to/log.txt
# ProfileFile = path/to/cpu.prof

# Address to serve snapshots over websockets from, e.g. localhost:8080.
# StreamAddress = localhost:8080

# Number of worker goroutines. Defaults to one per CPU.
# Workers = 4

# Log progress.
Log = true

[Fluid]

GridPoints = 64
DomainWidth = 32
Viscosity = 1e8
Density = 1

# One of NearestGridPoint, CloudInCell, Peskin4, Cosine4.
Kernel = Cosine4

# Advection = false

[Membrane]

SpringConstant = 1e7
# Rest length of the membrane springs. Defaults to the initial spacing of
# each curve's markers.
# RestLength = 0.1

[Interaction]

# A spring constant of zero turns interactions off.
SpringConstant = 1e6
RestLength = 5.1
Cutoff = 5.1
# SameCurve = true

[Curve "left"]

# One of Circle, Superellipse, File.
Shape = Circle
X = 11.7
Y = 16
Radius = 2
Markers = 128

[Curve "right"]

Shape = Superellipse
X = 20.3
Y = 16
A = 2
B = 2
Exponent = 2
Markers = 128

# [Curve "restart"]
# Shape = File
# File = path/to/markers_000100.txt
# FileCurve = 0
# Resample the curve to this many evenly spaced markers.
# Markers = 256

# [Source "jet"]
# Curve = left
# Marker = 0
# Strength = 0.012`
