package convergence

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ReadReport parses the lines written by a Study back into records. The
// abscissa is not part of the report and is left zero.
func ReadReport(r io.Reader) (recs []Record, err error) {
	var (
		sc   = bufio.NewScanner(r)
		line int
	)
	for sc.Scan() {
		line++
		txt := strings.TrimSpace(sc.Text())
		if txt == "" {
			continue
		}
		var rec Record
		if rec, err = parseLine(txt); err != nil {
			return nil, errors.Wrapf(err, "report line %d", line)
		}
		recs = append(recs, rec)
	}
	err = sc.Err()
	return
}

func parseLine(txt string) (rec Record, err error) {
	var (
		fields = strings.Fields(txt)
	)
	rec.Rate = math.NaN()
	if len(fields) != 3 && len(fields) != 5 {
		return rec, errors.Errorf("malformed line %q", txt)
	}
	if fields[1] != "error:" || (len(fields) == 5 && fields[3] != "rate:") {
		return rec, errors.Errorf("malformed line %q", txt)
	}
	rec.ID = fields[0]
	if rec.Error, err = strconv.ParseFloat(fields[2], 64); err != nil {
		return
	}
	if len(fields) == 5 {
		rec.Rate, err = strconv.ParseFloat(fields[4], 64)
	}
	return
}

// PrintReport writes records as an aligned table.
func PrintReport(w io.Writer, recs []Record) {
	width := len("id")
	for _, r := range recs {
		width = max(width, len(r.ID))
	}
	fmt.Fprintf(w, "%-*s  %12s  %10s\n", width, "id", "error", "rate")
	for _, r := range recs {
		rate := "-"
		if !math.IsNaN(r.Rate) {
			rate = fmt.Sprintf("%.4f", r.Rate)
		}
		fmt.Fprintf(w, "%-*s  %12.4e  %10s\n", width, r.ID, r.Error, rate)
	}
}
