package readfiles

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"gonum.org/v1/gonum/floats"
)

// ReadProfile reads a column of x coordinates and a column of values,
// skipping blank lines, and returns them sorted by x.
func ReadProfile(r io.Reader) (x, v []float64, err error) {
	var (
		scanner = bufio.NewScanner(r)
		line    int
	)
	for scanner.Scan() {
		line++
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		if len(parts) < 2 {
			return nil, nil, fmt.Errorf("profile line %d: want two columns", line)
		}
		var xx, vv float64
		if xx, err = strconv.ParseFloat(parts[0], 64); err != nil {
			return nil, nil, fmt.Errorf("profile line %d: %w", line, err)
		}
		if vv, err = strconv.ParseFloat(parts[1], 64); err != nil {
			return nil, nil, fmt.Errorf("profile line %d: %w", line, err)
		}
		x = append(x, xx)
		v = append(v, vv)
	}
	if err = scanner.Err(); err != nil {
		return nil, nil, err
	}
	SortXY(x, v)
	return
}

// WriteProfile writes x, v as two columns.
func WriteProfile(w io.Writer, x, v []float64) (err error) {
	for i := range x {
		if _, err = fmt.Fprintf(w, "%.12g %.12g\n", x[i], v[i]); err != nil {
			return
		}
	}
	return
}

// SortXY sorts x ascending in place and permutes v to match.
func SortXY(x, v []float64) {
	inds := make([]int, len(x))
	floats.Argsort(x, inds)
	vs := make([]float64, len(v))
	for i, j := range inds {
		vs[i] = v[j]
	}
	copy(v, vs)
}

// ReadSolution reads a one dimensional solution, choosing the reader by
// file extension. The field name selects the view of a mesh file and is
// ignored for plain profiles.
func ReadSolution(fs afero.Fs, filename, field string) (x, v []float64, err error) {
	f, err := fs.Open(filename)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".msh":
		return ReadGmshNodeData(f, field)
	case ".txt", ".dat", "":
		return ReadProfile(f)
	default:
		return nil, nil, fmt.Errorf("unsupported solution format: %s", ext)
	}
}
