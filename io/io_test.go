package io

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phil-mansfield/goib/errs"
	"github.com/phil-mansfield/goib/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalRun = `
[Run]
Dt = 0.1
EndTime = 1

[Curve "c"]
Shape = Circle
Radius = 0.2
X = 0.5
Y = 0.5
Markers = 16
`

func TestExampleRunFile(t *testing.T) {
	wrap, err := ParseRunConfig(ExampleRunFile)
	require.NoError(t, err)

	assert.Equal(t, 0.05, wrap.Run.Dt)
	assert.Equal(t, 20.0, wrap.Run.EndTime)
	assert.Equal(t, 1e8, wrap.Fluid.Viscosity)
	assert.Equal(t, 20, wrap.Run.SamplingInterval)
	assert.True(t, wrap.Run.Log)
	assert.False(t, wrap.Run.ValidOutput())

	assert.Equal(t, 64, wrap.Fluid.GridPoints)
	assert.Equal(t, "Cosine4", wrap.Fluid.Kernel)
	assert.True(t, wrap.Fluid.Advection)
	assert.True(t, wrap.Membrane.Enabled())
	assert.Equal(t, 5.1, wrap.Interaction.Cutoff)

	require.Len(t, wrap.Curve, 2)
	assert.Equal(t, "left", wrap.Curve["left"].Name)
	assert.Equal(t, 128, wrap.Curve["right"].Markers)
	assert.Equal(t, SuperellipseShape, wrap.Curve["right"].Shape)
	assert.Len(t, wrap.Source, 0)
}

func TestDefaults(t *testing.T) {
	wrap, err := ParseRunConfig(minimalRun)
	require.NoError(t, err)

	assert.Equal(t, 1, wrap.Run.SamplingInterval)
	assert.Equal(t, 0, wrap.Run.Workers)
	assert.Equal(t, 64, wrap.Fluid.GridPoints)
	assert.Equal(t, 1.0, wrap.Fluid.DomainWidth)
	assert.Equal(t, 1.0, wrap.Fluid.Viscosity)
	assert.True(t, wrap.Fluid.Advection)
	assert.False(t, wrap.Membrane.Enabled())
	assert.False(t, wrap.Interaction.Enabled())

	h := 1.0 / 64
	assert.InDelta(t, h/4, wrap.Interaction.RestLength, 1e-15)
	assert.InDelta(t, 1.5*h/4, wrap.Interaction.Cutoff, 1e-15)
}

func TestInvalidConfig(t *testing.T) {
	table := []struct {
		replace, with string
	}{
		{"Dt = 0.1", "Dt = 0"},
		{"Dt = 0.1", ""},
		{"EndTime = 1", "EndTime = -1"},
		{"EndTime = 1", "EndTime = 1\nSamplingInterval = 0"},
		{"EndTime = 1", "EndTime = 1\nWorkers = -2"},
		{"EndTime = 1", "EndTime = 1\nWriteVelocity = true"},
		{"[Run]", "[Fluid]\nGridPoints = 2\n[Run]"},
		{"[Run]", "[Fluid]\nDomainWidth = 0\n[Run]"},
		{"[Run]", "[Fluid]\nViscosity = -1\n[Run]"},
		{"[Run]", "[Fluid]\nDensity = 0\n[Run]"},
		{"[Run]", "[Membrane]\nSpringConstant = -3\n[Run]"},
		{"[Run]", "[Interaction]\nSpringConstant = -3\n[Run]"},
		{"[Run]", "[Interaction]\nCutoff = -1\n[Run]"},
		{"Shape = Circle", "Shape = Square"},
		{"Radius = 0.2", "Radius = 0"},
		{"Markers = 16", "Markers = 2"},
		{"Shape = Circle", "Shape = Superellipse"},
		{"Shape = Circle", "Shape = File"},
		{
			"Shape = Circle\nRadius = 0.2\nX = 0.5\nY = 0.5\nMarkers = 16",
			"Shape = File\nFile = m.txt\nMarkers = 2",
		},
		{"Markers = 16", "Markers = 16\n[Source \"s\"]\nCurve = d\nStrength = 1"},
		{"Dt = 0.1", "Dt = 0.1\nUnknownField = 3"},
		{"[Curve \"c\"]", "[Curve \"c\"]\nShape = Circle\n[Curve \"d\"]"},
	}

	for i, test := range table {
		text := strings.Replace(minimalRun, test.replace, test.with, 1)
		_, err := ParseRunConfig(text)
		if !assert.ErrorIs(t, err, errs.ErrInvalidConfiguration) {
			t.Errorf("%d) Expected an error for config:\n%s", i, text)
		}
	}

	_, err := ParseRunConfig("[Run]\nDt = 1\nEndTime = 1\n")
	assert.ErrorIs(t, err, errs.ErrInvalidConfiguration)
}

func TestValidSources(t *testing.T) {
	text := minimalRun + `
[Source "in"]
Curve = c
Marker = 3
Strength = 0.012

[Source "out"]
Curve = c
Marker = 11
Strength = -0.012
`
	wrap, err := ParseRunConfig(text)
	require.NoError(t, err)
	require.Len(t, wrap.Source, 2)
	assert.Equal(t, 3, wrap.Source["in"].Marker)
	assert.Equal(t, -0.012, wrap.Source["out"].Strength)
	assert.Equal(t, "out", wrap.Source["out"].Name)
}

func TestReadRunConfig(t *testing.T) {
	dir := t.TempDir()
	fname := filepath.Join(dir, "run.config")
	require.NoError(t, os.WriteFile(fname, []byte(minimalRun), 0644))

	wrap, err := ReadRunConfig(fname)
	require.NoError(t, err)
	assert.Equal(t, 0.1, wrap.Run.Dt)

	_, err = ReadRunConfig(filepath.Join(dir, "missing.config"))
	assert.Error(t, err)
}

func testSnapshot() *Snapshot {
	return &Snapshot{
		Step: 40, Time: 2,
		Curves: []CurveMarkers{
			{"a", []geom.Vec{{0.1, 0.2}, {0.3, 1.0 / 3}, {-5e-7, 12}}},
			{"b", []geom.Vec{{1, 2}, {3, 4}, {5, 6}, {7, 8.125}}},
		},
		Points: 4, Width: 2,
		Viscosity: 0.5, Density: 1,
		U: []float64{
			1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16,
		},
		V: []float64{
			0, -1, -2, -3, -4, -5, -6, -7, -8, -9, -10, -11, -12, -13, -14, 0.5,
		},
		Vorticity: make([]float64, 16),
		Divergence: []float64{
			0.5, 0, 0, 0, 0, -0.25, 0, 0, 0, 0, 1e-3, 0, 0, 0, 0, -0.25,
		},
	}
}

func TestMarkerTable(t *testing.T) {
	snap := testSnapshot()
	dir := t.TempDir()
	fname := filepath.Join(dir, "markers.txt")

	buf := &bytes.Buffer{}
	require.NoError(t, WriteMarkers(buf, snap))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "0 0 0.10000000000000001 0.20000000000000001", lines[0])
	assert.Equal(t, "1 3 7 8.125", lines[6])

	require.NoError(t, os.WriteFile(fname, buf.Bytes(), 0644))
	curves, err := ReadMarkers(fname)
	require.NoError(t, err)
	require.Len(t, curves, 2)
	for i := range curves {
		assert.Equal(t, snap.Curves[i].Xs, curves[i], "%d) curve", i)
	}
}

func TestMarkerTableErrors(t *testing.T) {
	dir := t.TempDir()
	table := []string{
		"0 0 1 2\n0 0 3 4\n",
		"0 0 1 2\n0 2 3 4\n",
		"-1 0 1 2\n",
		"0 0.5 1 2\n",
		"0 0 1 2\n30000000 0 1 1\n",
		"0 0 1 2\n1e300 0 1 1\n",
		"2 0 1 2\n0 0 1 1\n",
	}

	for i, text := range table {
		fname := filepath.Join(dir, "bad.txt")
		require.NoError(t, os.WriteFile(fname, []byte(text), 0644))
		_, err := ReadMarkers(fname)
		if !assert.ErrorIs(t, err, errs.ErrInvalidIndex) {
			t.Errorf("%d) Expected an index error for table:\n%s", i, text)
		}
	}
}

func TestGridRoundTrip(t *testing.T) {
	snap := testSnapshot()
	sim := SimInfo{Step: 40, Time: 2, Viscosity: 0.5, Density: 1}
	loc := NewLocationInfo(snap.Points, snap.Width)

	buf := &bytes.Buffer{}
	require.NoError(t, WriteGrid(Velocity, sim, loc, buf, snap.U, snap.V))

	hd, xs, err := ReadGrid(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, int64(-1), hd.Type.Endianness)
	assert.Equal(t, int64(1), hd.Type.IsVectorGrid)
	assert.Equal(t, sim, hd.Sim)
	assert.Equal(t, 0.5, hd.Loc.PixelWidth)
	require.Len(t, xs, 2)
	assert.Equal(t, snap.U, xs[0])
	assert.Equal(t, snap.V, xs[1])

	// Big endian files are read as well.
	big := &bytes.Buffer{}
	hdBig := *hd
	hdBig.Type.Endianness = 0
	require.NoError(t, binary.Write(big, binary.BigEndian, &hdBig))
	require.NoError(t, binary.Write(big, binary.BigEndian, snap.U))
	require.NoError(t, binary.Write(big, binary.BigEndian, snap.V))
	_, xs, err = ReadGrid(big)
	require.NoError(t, err)
	assert.Equal(t, snap.V, xs[1])
}

func TestGridErrors(t *testing.T) {
	snap := testSnapshot()
	sim := SimInfo{}
	loc := NewLocationInfo(snap.Points, snap.Width)

	assert.Error(t, WriteGrid(Velocity, sim, loc, &bytes.Buffer{}, snap.U))
	assert.Error(t, WriteGrid(Vorticity, sim, loc, &bytes.Buffer{}, snap.U[:3]))

	buf := &bytes.Buffer{}
	require.NoError(t, WriteGrid(Vorticity, sim, loc, buf, snap.Vorticity))
	data := buf.Bytes()

	_, _, err := ReadGrid(bytes.NewReader(data[:len(data)-8]))
	assert.Error(t, err)

	bad := append([]byte{}, data...)
	bad[0] = 7
	_, _, err = ReadGrid(bytes.NewReader(bad))
	assert.Error(t, err)
}

func TestSnapshotWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w, err := NewSnapshotWriter(dir, true)
	require.NoError(t, err)

	snap := testSnapshot()
	require.NoError(t, w.Observe(snap))

	curves, err := ReadMarkers(w.MarkerFile(40))
	require.NoError(t, err)
	assert.Equal(t, snap.Curves[1].Xs, curves[1])

	hd, u, v, err := ReadVelocityGrid(w.VelocityFile(40))
	require.NoError(t, err)
	assert.Equal(t, int64(40), hd.Sim.Step)
	assert.Equal(t, snap.U, u)
	assert.Equal(t, snap.V, v)

	_, _, _, err = ReadVelocityGrid(w.VorticityFile(40))
	assert.Error(t, err)

	f, err := os.Open(w.DivergenceFile(40))
	require.NoError(t, err)
	hd, xs, err := ReadGrid(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	assert.Equal(t, int64(VelocityDivergence), hd.Type.GridType)
	assert.Equal(t, int64(0), hd.Type.IsVectorGrid)
	require.Len(t, xs, 1)
	assert.Equal(t, snap.Divergence, xs[0])

	// Snapshots without a divergence field skip its file.
	snap.Step, snap.Divergence = 42, nil
	require.NoError(t, w.Observe(snap))
	_, err = os.Stat(w.VorticityFile(42))
	assert.NoError(t, err)
	_, err = os.Stat(w.DivergenceFile(42))
	assert.True(t, os.IsNotExist(err))

	// Without velocity output only the marker table is written.
	w, err = NewSnapshotWriter(dir, false)
	require.NoError(t, err)
	snap.Step = 41
	require.NoError(t, w.Observe(snap))
	_, err = os.Stat(w.MarkerFile(41))
	assert.NoError(t, err)
	_, err = os.Stat(w.VelocityFile(41))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(w.DivergenceFile(41))
	assert.True(t, os.IsNotExist(err))
}
