package convergence

import (
	"context"
	"fmt"
	"math"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/notargets/impesconv/options"
	"github.com/notargets/impesconv/sweep"
)

// ErrorGetter measures the error of one simulation. It returns a
// *sweep.Failure when the simulator output does not hold what it needs.
type ErrorGetter interface {
	Error(ctx context.Context, o *options.Leaf) (float64, error)
}

type ErrorGetterFunc func(ctx context.Context, o *options.Leaf) (float64, error)

func (f ErrorGetterFunc) Error(ctx context.Context, o *options.Leaf) (float64, error) {
	return f(ctx, o)
}

// Recorder receives every point of the study as it is computed.
type Recorder interface {
	Record(id string, abscissa, err, rate float64) error
}

type Record struct {
	ID       string
	Abscissa float64
	Error    float64
	Rate     float64 // NaN without a predecessor
}

type state uint8

const (
	idle state = iota
	accumulating
	closed
)

// Study computes errors and convergence rates over one serial sweep. It keeps
// every point it has seen, so leaves must be visited in collapse order and
// the study must be set up again before another sweep.
type Study struct {
	AbscissaKey string
	// RefinementAxis is the axis searched for the predecessor, AbscissaKey
	// when empty.
	RefinementAxis string
	Getter         ErrorGetter
	Naming         options.Naming
	WrtResolution  bool
	// ReportPath is written with one line per point when set.
	ReportPath string
	Fs         afero.Fs
	Recorder   Recorder
	Logger     hclog.Logger

	state   state
	report  afero.File
	points  map[string]*Record
	records []*Record
}

func (s *Study) Setup() (err error) {
	if s.Fs == nil {
		s.Fs = afero.NewOsFs()
	}
	if s.Logger == nil {
		s.Logger = hclog.NewNullLogger()
	}
	s.points = make(map[string]*Record)
	s.records = nil
	if s.ReportPath != "" {
		if s.report, err = s.Fs.Create(s.ReportPath); err != nil {
			return errors.Wrap(err, "open convergence report")
		}
	}
	s.state = accumulating
	return
}

func (s *Study) Teardown() (err error) {
	if s.report != nil {
		err = s.report.Close()
		s.report = nil
	}
	s.state = closed
	return
}

func (s *Study) axis() string {
	if s.RefinementAxis != "" {
		return s.RefinementAxis
	}
	return s.AbscissaKey
}

func (s *Study) Call(ctx context.Context, o *options.Leaf) (msg string, err error) {
	var (
		rec = &Record{Rate: math.NaN()}
		e   float64
	)
	if s.state != accumulating {
		return "", errors.New("convergence study visited outside setup and teardown")
	}
	rec.ID = o.Name(s.Naming)
	if rec.Abscissa, err = o.Float(s.AbscissaKey); err != nil {
		return
	}
	if e, err = s.Getter.Error(ctx, o); err != nil {
		return
	}
	rec.Error = math.Abs(e)
	s.points[rec.ID] = rec
	s.records = append(s.records, rec)
	msg = fmt.Sprintf("error: %.3e", rec.Error)

	prevID, perr := o.RelativeName(s.Naming, map[string]int{s.axis(): -1})
	if perr == nil {
		if prev, ok := s.points[prevID]; ok {
			rec.Rate = Rate(rec.Error, prev.Error, rec.Abscissa, prev.Abscissa, s.WrtResolution)
		}
	} else if !options.IsRelativePosition(perr) {
		return "", perr
	}
	if !math.IsNaN(rec.Rate) {
		msg += fmt.Sprintf("   rate: %.6f", rec.Rate)
	}
	if s.report != nil {
		if _, err = fmt.Fprintf(s.report, "%s  %s\n", rec.ID, msg); err != nil {
			return "", errors.Wrap(err, "write convergence report")
		}
	}
	if s.Recorder != nil {
		if rerr := s.Recorder.Record(rec.ID, rec.Abscissa, rec.Error, rec.Rate); rerr != nil {
			s.Logger.Warn("history record failed", "id", rec.ID, "error", rerr)
		}
	}
	return
}

// Records returns the points in visit order.
func (s *Study) Records() (recs []Record) {
	for _, r := range s.records {
		recs = append(recs, *r)
	}
	return
}

func (s *Study) Lookup(id string) (Record, bool) {
	r, ok := s.points[id]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

var _ sweep.Functor = (*Study)(nil)
