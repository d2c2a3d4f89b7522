package io

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"unsafe"
)

var end = binary.LittleEndian

// GridHeader is written at the start of every grid file. Its first field is
// the endianness flag, which reads the same in either byte order.
type GridHeader struct {
	Type TypeInfo
	Sim  SimInfo
	Loc  LocationInfo
}

type TypeInfo struct {
	Endianness   int64
	HeaderSize   int64
	GridType     int64
	IsVectorGrid int64
}

type SimInfo struct {
	Step               int64
	Time               float64
	Viscosity, Density float64
}

type LocationInfo struct {
	Points     int64
	Width      float64
	PixelWidth float64
}

type GridFlag int64

const (
	Velocity GridFlag = iota
	Vorticity
	VelocityDivergence
)

func (flag GridFlag) isVector() bool { return flag == Velocity }

func NewLocationInfo(points int, width float64) LocationInfo {
	return LocationInfo{
		Points: int64(points), Width: width,
		PixelWidth: width / float64(points),
	}
}

// WriteGrid writes a header followed by each component grid in xs.
func WriteGrid(
	flag GridFlag, sim SimInfo, loc LocationInfo,
	wr io.Writer, xs ...[]float64,
) error {
	components := 1
	if flag.isVector() {
		components = 2
	}
	if len(xs) != components {
		return fmt.Errorf(
			"grid type %d needs %d components, got %d",
			flag, components, len(xs),
		)
	}
	for _, x := range xs {
		if int64(len(x)) != loc.Points*loc.Points {
			return fmt.Errorf(
				"grid has %d values, but header has %d points on a side",
				len(x), loc.Points,
			)
		}
	}

	var endFlag int64
	if end == binary.LittleEndian {
		endFlag = -1
	} else {
		endFlag = 0
	}

	hd := GridHeader{}
	hd.Type.Endianness = endFlag
	hd.Type.HeaderSize = int64(unsafe.Sizeof(hd))
	hd.Type.GridType = int64(flag)
	if flag.isVector() {
		hd.Type.IsVectorGrid = 1
	}
	hd.Sim = sim
	hd.Loc = loc

	if err := binary.Write(wr, end, &hd); err != nil {
		return err
	}
	for _, x := range xs {
		if err := binary.Write(wr, end, x); err != nil {
			return err
		}
	}
	return nil
}

// endianness converts an endianness flag to a byte order.
func endianness(flag int64) (binary.ByteOrder, error) {
	switch flag {
	case -1:
		return binary.LittleEndian, nil
	case 0:
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("unrecognized endianness flag, %d", flag)
}

// ReadGrid reads a grid written by WriteGrid.
func ReadGrid(rd io.Reader) (*GridHeader, [][]float64, error) {
	buf, err := io.ReadAll(rd)
	if err != nil {
		return nil, nil, err
	}

	// The flag is symmetric, so the order doesn't matter for this read.
	var flag int64
	if err := binary.Read(bytes.NewReader(buf), end, &flag); err != nil {
		return nil, nil, err
	}
	order, err := endianness(flag)
	if err != nil {
		return nil, nil, err
	}

	r := bytes.NewReader(buf)
	hd := &GridHeader{}
	if err := binary.Read(r, order, hd); err != nil {
		return nil, nil, err
	}
	if hd.Type.HeaderSize != int64(unsafe.Sizeof(GridHeader{})) {
		return nil, nil, fmt.Errorf(
			"expected GridHeader size of %d, found %d",
			unsafe.Sizeof(GridHeader{}), hd.Type.HeaderSize,
		)
	} else if hd.Loc.Points <= 0 {
		return nil, nil, fmt.Errorf(
			"grid header has %d points on a side", hd.Loc.Points,
		)
	}

	components := 1
	if hd.Type.IsVectorGrid != 0 {
		components = 2
	}
	area := hd.Loc.Points * hd.Loc.Points
	if int64(r.Len()) != int64(components)*area*8 {
		return nil, nil, fmt.Errorf(
			"grid file holds %d bytes of data, expected %d",
			r.Len(), int64(components)*area*8,
		)
	}

	xs := make([][]float64, components)
	for i := range xs {
		xs[i] = make([]float64, area)
		if err := binary.Read(r, order, xs[i]); err != nil {
			return nil, nil, err
		}
	}
	return hd, xs, nil
}

// ReadVelocityGrid reads a velocity grid file written by a SnapshotWriter.
func ReadVelocityGrid(file string) (hd *GridHeader, u, v []float64, err error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, nil, nil, err
	}
	defer f.Close()

	hd, xs, err := ReadGrid(f)
	if err != nil {
		return nil, nil, nil, err
	}
	if GridFlag(hd.Type.GridType) != Velocity {
		return nil, nil, nil, fmt.Errorf(
			"%s holds grid type %d, not a velocity grid",
			file, hd.Type.GridType,
		)
	}
	return hd, xs[0], xs[1], nil
}
