// Package xyz reads extended XYZ files: a per-frame atom count, a comment
// line carrying Lattice/Properties/target attributes, then one line per atom.
package xyz

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/atomtune/atomtune/internal/atoms"
)

// Options maps frame attributes to target properties. Zero values select the
// conventional keys.
type Options struct {
	EnergyKey string // default "energy"
	ForcesKey string // default "forces"
	StressKey string // default "stress"
}

func (o Options) withDefaults() Options {
	if o.EnergyKey == "" {
		o.EnergyKey = "energy"
	}
	if o.ForcesKey == "" {
		o.ForcesKey = "forces"
	}
	if o.StressKey == "" {
		o.StressKey = "stress"
	}
	return o
}

// openReader opens path, transparently decompressing gzip input. Gzip is
// detected by the 1F 8B magic bytes, not the file extension.
func openReader(path string) (io.ReadCloser, error) {
	fh, err := os.Open(path) // #nosec G304 -- path comes from dataset config
	if err != nil {
		return nil, err
	}
	var sig [2]byte
	n, _ := fh.Read(sig[:])
	if _, err := fh.Seek(0, io.SeekStart); err != nil {
		_ = fh.Close()
		return nil, err
	}
	if n == 2 && sig[0] == 0x1f && sig[1] == 0x8b {
		gz, err := gzip.NewReader(fh)
		if err != nil {
			_ = fh.Close()
			return nil, err
		}
		return &gzipReadCloser{gz: gz, file: fh}, nil
	}
	return fh, nil
}

type gzipReadCloser struct {
	gz   *gzip.Reader
	file *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g *gzipReadCloser) Close() error {
	gerr := g.gz.Close()
	ferr := g.file.Close()
	if gerr != nil {
		return gerr
	}
	return ferr
}

// ReadFile parses every frame of the file at path.
func ReadFile(ctx context.Context, path string, opts Options) ([]*atoms.Atoms, error) {
	rc, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	var frames []*atoms.Atoms
	err = Stream(ctx, rc, opts, func(a *atoms.Atoms) error {
		frames = append(frames, a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return frames, nil
}

// Stream parses frames from r and hands each to emit. It is cancelable
// between frames via ctx.
func Stream(ctx context.Context, r io.Reader, opts Options, emit func(*atoms.Atoms) error) error {
	opts = opts.withDefaults()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	frame := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		natoms, err := strconv.Atoi(line)
		if err != nil || natoms < 0 {
			return fmt.Errorf("frame %d: bad atom count line %q", frame, line)
		}
		if !sc.Scan() {
			return fmt.Errorf("frame %d: missing comment line", frame)
		}
		a, err := parseFrame(sc, natoms, sc.Text(), opts)
		if err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		if err := a.Validate(); err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		if err := emit(a); err != nil {
			return err
		}
		frame++

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return sc.Err()
}

func parseFrame(sc *bufio.Scanner, natoms int, comment string, opts Options) (*atoms.Atoms, error) {
	attrs := splitComment(comment)

	a := &atoms.Atoms{
		Numbers:   make([]int, 0, natoms),
		Positions: make([][3]float64, 0, natoms),
	}

	if lat, ok := attrs["Lattice"]; ok {
		cell, err := parseLattice(lat)
		if err != nil {
			return nil, err
		}
		a.Cell = cell
		a.PBC = [3]bool{true, true, true}
	}
	if raw, ok := attrs["pbc"]; ok {
		pbc, err := parsePBC(raw)
		if err != nil {
			return nil, err
		}
		a.PBC = pbc
	}
	if raw, ok := attrs[opts.EnergyKey]; ok {
		e, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", opts.EnergyKey, err)
		}
		a.Energy = &e
	}
	if raw, ok := attrs[opts.StressKey]; ok {
		vals, err := parseFloats(raw, 9)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", opts.StressKey, err)
		}
		var s [3][3]float64
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				s[r][c] = vals[r*3+c]
			}
		}
		a.Stress = &s
	}

	schema := "species:S:1:pos:R:3"
	if raw, ok := attrs["Properties"]; ok {
		schema = raw
	}
	cols, err := parseProperties(schema)
	if err != nil {
		return nil, err
	}

	var forces [][3]float64
	for i := 0; i < natoms; i++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("truncated frame: %d of %d atom lines", i, natoms)
		}
		fields := strings.Fields(sc.Text())
		if err := parseAtomLine(a, &forces, cols, fields, opts); err != nil {
			return nil, fmt.Errorf("atom %d: %w", i, err)
		}
	}
	if forces != nil {
		a.Forces = forces
	}
	return a, nil
}

func parseAtomLine(a *atoms.Atoms, forces *[][3]float64, cols []column, fields []string, opts Options) error {
	idx := 0
	for _, col := range cols {
		if idx+col.width > len(fields) {
			return fmt.Errorf("short line: %d fields for schema column %s", len(fields), col.name)
		}
		switch {
		case col.name == "species":
			z, err := atoms.NumberForSymbol(fields[idx])
			if err != nil {
				return err
			}
			a.Numbers = append(a.Numbers, z)
		case col.name == "Z":
			z, err := strconv.Atoi(fields[idx])
			if err != nil {
				return fmt.Errorf("Z: %w", err)
			}
			a.Numbers = append(a.Numbers, z)
		case col.name == "pos":
			var p [3]float64
			for k := 0; k < 3; k++ {
				v, err := strconv.ParseFloat(fields[idx+k], 64)
				if err != nil {
					return fmt.Errorf("pos: %w", err)
				}
				p[k] = v
			}
			a.Positions = append(a.Positions, p)
		case col.name == opts.ForcesKey:
			var f [3]float64
			for k := 0; k < 3; k++ {
				v, err := strconv.ParseFloat(fields[idx+k], 64)
				if err != nil {
					return fmt.Errorf("forces: %w", err)
				}
				f[k] = v
			}
			*forces = append(*forces, f)
		}
		idx += col.width
	}
	return nil
}
