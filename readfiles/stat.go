package readfiles

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Stat holds a simulator statistics file: a header describing each column
// and one row of values per dump.
type Stat struct {
	columns map[string]statColumn
	Rows    [][]float64
}

type statColumn struct {
	index      int // zero based
	components int
}

type statHeader struct {
	Fields []struct {
		Column     int    `xml:"column,attr"`
		Name       string `xml:"name,attr"`
		Statistic  string `xml:"statistic,attr"`
		Phase      string `xml:"material_phase,attr"`
		Components int    `xml:"components,attr"`
	} `xml:"field"`
}

func statKey(phase, variable, statistic string) string {
	if phase == "" {
		return variable + "::" + statistic
	}
	return phase + "::" + variable + "::" + statistic
}

// ReadStat parses an ASCII statistics file.
func ReadStat(r io.Reader) (st *Stat, err error) {
	var (
		header bytes.Buffer
		hdr    statHeader
		reader = bufio.NewReader(r)
		inHdr  bool
	)
	st = &Stat{columns: make(map[string]statColumn)}
	for {
		var line string
		line, err = reader.ReadString('\n')
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "<header"):
			inHdr = true
			header.WriteString(line)
		case inHdr:
			header.WriteString(line)
			if strings.HasPrefix(trimmed, "</header") {
				inHdr = false
				if xerr := xml.Unmarshal(header.Bytes(), &hdr); xerr != nil {
					return nil, fmt.Errorf("stat header: %w", xerr)
				}
			}
		case trimmed != "":
			var row []float64
			for _, f := range strings.Fields(trimmed) {
				v, perr := strconv.ParseFloat(f, 64)
				if perr != nil {
					return nil, fmt.Errorf("stat row %d: %w", len(st.Rows)+1, perr)
				}
				row = append(row, v)
			}
			st.Rows = append(st.Rows, row)
		}
		if err == io.EOF {
			err = nil
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if len(hdr.Fields) == 0 {
		return nil, fmt.Errorf("stat file has no header")
	}
	for _, f := range hdr.Fields {
		n := f.Components
		if n == 0 {
			n = 1
		}
		st.columns[statKey(f.Phase, f.Name, f.Statistic)] = statColumn{index: f.Column - 1, components: n}
	}
	return
}

func (st *Stat) Has(phase, variable, statistic string) bool {
	_, ok := st.columns[statKey(phase, variable, statistic)]
	return ok
}

// Value looks up phase::variable::statistic at the given row; negative rows
// count back from the last one.
func (st *Stat) Value(phase, variable, statistic string, row int) (v float64, err error) {
	col, ok := st.columns[statKey(phase, variable, statistic)]
	if !ok {
		return 0, &MissingFieldError{Key: statKey(phase, variable, statistic)}
	}
	if row < 0 {
		row += len(st.Rows)
	}
	if row < 0 || row >= len(st.Rows) {
		return 0, fmt.Errorf("stat row %d out of range for %d rows", row, len(st.Rows))
	}
	if col.index >= len(st.Rows[row]) {
		return 0, fmt.Errorf("stat row %d is short of column %d", row, col.index+1)
	}
	return st.Rows[row][col.index], nil
}

// Series returns every row's value of phase::variable::statistic.
func (st *Stat) Series(phase, variable, statistic string) (vs []float64, err error) {
	vs = make([]float64, len(st.Rows))
	for i := range st.Rows {
		if vs[i], err = st.Value(phase, variable, statistic, i); err != nil {
			return nil, err
		}
	}
	return
}

// MissingFieldError reports a field that the file does not hold.
type MissingFieldError struct {
	Key string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("field %s not found", e.Key)
}
