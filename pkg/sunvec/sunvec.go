// Package sunvec reads, writes and generates sun-vector sequences, one body
// frame vector per simulation step.
package sunvec

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kilianp07/epsim/core/eps"
)

// Parse reads one vector per line. Fields are comma separated and parsed in
// order until three values are read. Blank lines, lines with a field that is
// not a number and lines with fewer than three values are skipped.
func Parse(r io.Reader) ([]eps.SunVector, error) {
	var out []eps.SunVector
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if v, ok := parseLine(sc.Text()); ok {
			out = append(out, v)
		}
	}
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("read sun vectors: %w", err)
	}
	return out, nil
}

func parseLine(line string) (eps.SunVector, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return eps.SunVector{}, false
	}
	var vals [3]float64
	n := 0
	for _, f := range strings.Split(line, ",") {
		if n == len(vals) {
			break
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return eps.SunVector{}, false
		}
		vals[n] = v
		n++
	}
	if n < len(vals) {
		return eps.SunVector{}, false
	}
	return eps.SunVector{X: vals[0], Y: vals[1], Z: vals[2]}, true
}

// ReadFile parses the vectors stored at path. A file that cannot be opened
// or holds no valid vector yields eps.ErrInputUnavailable.
func ReadFile(path string) ([]eps.SunVector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", eps.ErrInputUnavailable, path, err)
	}
	defer func() { _ = f.Close() }()
	vecs, err := Parse(f)
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("%w: %s: no sun vectors", eps.ErrInputUnavailable, path)
	}
	return vecs, nil
}

// Write emits vecs with four decimals per component.
func Write(w io.Writer, vecs []eps.SunVector) error {
	bw := bufio.NewWriter(w)
	for _, v := range vecs {
		if _, err := fmt.Fprintf(bw, "%.4f,%.4f,%.4f\n", v.X, v.Y, v.Z); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes vecs to path, replacing any existing file.
func WriteFile(path string, vecs []eps.SunVector) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, vecs); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
