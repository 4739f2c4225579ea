package traj

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// Extension is the on-disk extension for trajectory files.
const Extension = ".traj"

// File format: a zstd stream containing a little-endian header
// (magic, step count, state dimension) followed by the float64 payload
// in step-major order.
const codecMagic = uint32(0x544a5231) // "TJR1"

type codecHeader struct {
	Magic uint32
	Steps uint32
	Dim   uint32
}

// Encode writes t to w.
func Encode(w io.Writer, t Trajectory) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	hdr := codecHeader{
		Magic: codecMagic,
		Steps: uint32(t.Len()),
		Dim:   uint32(t.Dim()),
	}
	if err := binary.Write(zw, binary.LittleEndian, hdr); err != nil {
		zw.Close()
		return err
	}
	for i, s := range t {
		if len(s) != int(hdr.Dim) {
			zw.Close()
			return fmt.Errorf("ragged trajectory: step %d has dim %d, want %d", i, len(s), hdr.Dim)
		}
		if err := binary.Write(zw, binary.LittleEndian, []float64(s)); err != nil {
			zw.Close()
			return err
		}
	}
	return zw.Close()
}

// Decode reads one trajectory from r.
func Decode(r io.Reader) (Trajectory, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var hdr codecHeader
	if err := binary.Read(zr, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read trajectory header: %w", err)
	}
	if hdr.Magic != codecMagic {
		return nil, fmt.Errorf("bad trajectory magic %#x", hdr.Magic)
	}

	t := make(Trajectory, hdr.Steps)
	for i := range t {
		s := make(State, hdr.Dim)
		if err := binary.Read(zr, binary.LittleEndian, []float64(s)); err != nil {
			return nil, fmt.Errorf("read trajectory step %d: %w", i, err)
		}
		t[i] = s
	}
	return t, nil
}

// Save writes t to path, creating or truncating the file.
func Save(path string, t Trajectory) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads the trajectory stored at path.
func Load(path string) (Trajectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
