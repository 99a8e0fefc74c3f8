package asedb

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ASE stores per-atom arrays as raw little-endian C-order blobs: atomic
// numbers as int32, positions/cell/forces as float64, stress as a 6-component
// Voigt float64 vector.

func decodeInt32Blob(b []byte) ([]int, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("int32 blob length %d not a multiple of 4", len(b))
	}
	out := make([]int, len(b)/4)
	for i := range out {
		out[i] = int(int32(binary.LittleEndian.Uint32(b[i*4:])))
	}
	return out, nil
}

func decodeFloat64Blob(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("float64 blob length %d not a multiple of 8", len(b))
	}
	out := make([]float64, len(b)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return out, nil
}

func decodeVectors(b []byte) ([][3]float64, error) {
	vals, err := decodeFloat64Blob(b)
	if err != nil {
		return nil, err
	}
	if len(vals)%3 != 0 {
		return nil, fmt.Errorf("vector blob holds %d values, not a multiple of 3", len(vals))
	}
	out := make([][3]float64, len(vals)/3)
	for i := range out {
		out[i] = [3]float64{vals[i*3], vals[i*3+1], vals[i*3+2]}
	}
	return out, nil
}

func decodeCell(b []byte) ([3][3]float64, error) {
	var cell [3][3]float64
	vals, err := decodeFloat64Blob(b)
	if err != nil {
		return cell, err
	}
	if len(vals) != 9 {
		return cell, fmt.Errorf("cell blob holds %d values, want 9", len(vals))
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			cell[r][c] = vals[r*3+c]
		}
	}
	return cell, nil
}

// decodePBC unpacks the ASE periodic-boundary bit flags (x=1, y=2, z=4).
func decodePBC(v int64) [3]bool {
	return [3]bool{v&1 != 0, v&2 != 0, v&4 != 0}
}

func encodeInt32Blob(vals []int) []byte {
	out := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(int32(v))) // #nosec G115 -- atomic numbers fit in int32
	}
	return out
}

func encodeFloat64Blob(vals []float64) []byte {
	out := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(v))
	}
	return out
}
