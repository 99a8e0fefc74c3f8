package xyz

import (
	"fmt"
	"strconv"
	"strings"
)

// splitComment tokenizes an extxyz comment line into key=value pairs.
// Values may be double-quoted to contain spaces.
func splitComment(line string) map[string]string {
	out := map[string]string{}
	i := 0
	n := len(line)
	for i < n {
		for i < n && line[i] == ' ' {
			i++
		}
		start := i
		for i < n && line[i] != '=' && line[i] != ' ' {
			i++
		}
		if i >= n || line[i] != '=' {
			continue // bare token without a value
		}
		key := line[start:i]
		i++ // skip '='
		var val string
		if i < n && line[i] == '"' {
			i++
			vstart := i
			for i < n && line[i] != '"' {
				i++
			}
			val = line[vstart:i]
			if i < n {
				i++ // closing quote
			}
		} else {
			vstart := i
			for i < n && line[i] != ' ' {
				i++
			}
			val = line[vstart:i]
		}
		out[key] = val
	}
	return out
}

// parseFloats parses a whitespace-separated list of exactly want floats.
func parseFloats(s string, want int) ([]float64, error) {
	fields := strings.Fields(s)
	if len(fields) != want {
		return nil, fmt.Errorf("want %d values, got %d in %q", want, len(fields), s)
	}
	out := make([]float64, want)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", f, err)
		}
		out[i] = v
	}
	return out, nil
}

// parseLattice reads the 9-value row-major Lattice attribute into lattice rows.
func parseLattice(s string) ([3][3]float64, error) {
	var cell [3][3]float64
	vals, err := parseFloats(s, 9)
	if err != nil {
		return cell, fmt.Errorf("lattice: %w", err)
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			cell[r][c] = vals[r*3+c]
		}
	}
	return cell, nil
}

// parsePBC reads the pbc attribute ("T T F" style flags).
func parsePBC(s string) ([3]bool, error) {
	var pbc [3]bool
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return pbc, fmt.Errorf("pbc: want 3 flags, got %d in %q", len(fields), s)
	}
	for i, f := range fields {
		switch strings.ToUpper(f) {
		case "T", "TRUE", "1":
			pbc[i] = true
		case "F", "FALSE", "0":
			pbc[i] = false
		default:
			return pbc, fmt.Errorf("pbc: unknown flag %q", f)
		}
	}
	return pbc, nil
}

// column describes one field of the Properties= schema.
type column struct {
	name  string
	kind  byte // S, R, I, L
	width int
}

// parseProperties reads a Properties=species:S:1:pos:R:3:... schema.
func parseProperties(s string) ([]column, error) {
	parts := strings.Split(s, ":")
	if len(parts)%3 != 0 {
		return nil, fmt.Errorf("properties: malformed schema %q", s)
	}
	cols := make([]column, 0, len(parts)/3)
	for i := 0; i < len(parts); i += 3 {
		if len(parts[i+1]) != 1 {
			return nil, fmt.Errorf("properties: bad kind %q in %q", parts[i+1], s)
		}
		width, err := strconv.Atoi(parts[i+2])
		if err != nil || width < 1 {
			return nil, fmt.Errorf("properties: bad width %q in %q", parts[i+2], s)
		}
		cols = append(cols, column{name: parts[i], kind: parts[i+1][0], width: width})
	}
	return cols, nil
}
