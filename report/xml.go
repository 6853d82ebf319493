package report

import (
	"context"
	_ "embed"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/notargets/impesconv/options"
	"github.com/notargets/impesconv/sweep"
)

//go:embed templates/regressiontest.xml.tmpl
var DefaultTemplate string

// TestRecord asserts that the reported metric for Key satisfies
// value Relop Threshold.
type TestRecord struct {
	Key       string
	Metric    string // error or rate
	Relop     string // lt or gt
	Threshold float64
}

type Simulation struct {
	Name string
	Args []string
}

type Abscissa struct {
	Key   string
	Value float64
}

// XMLWriter accumulates test records over a serial sweep and renders them
// into a test harness file on teardown.
//
// Each leaf contributes an error test against max_error_norm and a rate test
// against min_convergence_rate. A test is skipped when its threshold is nil or
// absent, and the rate test is skipped at the first point of the refinement
// axis.
type XMLWriter struct {
	AbscissaKey    string
	RefinementAxis string
	Naming         options.Naming
	// TemplatePath is read from Fs; the embedded template is used when empty.
	TemplatePath string
	TargetPath   string
	ReportPath   string
	Problem      map[string]any
	Engine       Engine
	Fs           afero.Fs
	Logger       hclog.Logger

	tests       []TestRecord
	simulations []Simulation
	register    map[string]bool
	abscissae   []Abscissa
	active      bool
}

func (w *XMLWriter) Setup() error {
	if w.Fs == nil {
		w.Fs = afero.NewOsFs()
	}
	if w.Engine == nil {
		w.Engine = TemplateEngine{Passes: 1}
	}
	if w.Logger == nil {
		w.Logger = hclog.NewNullLogger()
	}
	w.tests, w.simulations, w.abscissae = nil, nil, nil
	w.register = make(map[string]bool)
	w.active = true
	return nil
}

func (w *XMLWriter) axis() string {
	if w.RefinementAxis != "" {
		return w.RefinementAxis
	}
	return w.AbscissaKey
}

func (w *XMLWriter) Call(_ context.Context, o *options.Leaf) (msg string, err error) {
	if !w.active {
		return "", errors.New("xml writer visited outside setup and teardown")
	}
	key := o.Name(w.Naming)
	if o.Has("simulation_name") {
		var (
			name string
			args []string
		)
		if name, err = o.String("simulation_name"); err != nil {
			return
		}
		if !w.register[name] {
			if o.Has("simulation_args") {
				if args, err = o.Strings("simulation_args"); err != nil {
					return
				}
			}
			w.register[name] = true
			w.simulations = append(w.simulations, Simulation{Name: name, Args: args})
			msg += "\nincluded " + name
		}
	}
	if w.AbscissaKey != "" {
		var x float64
		if x, err = o.Float(w.AbscissaKey); err != nil {
			return
		}
		w.abscissae = append(w.abscissae, Abscissa{Key: key, Value: x})
	}
	for _, ti := range []struct{ metric, relop, thresholdKey string }{
		{"error", "lt", "max_error_norm"},
		{"rate", "gt", "min_convergence_rate"},
	} {
		var (
			thr float64
			ok  bool
		)
		if thr, ok, err = threshold(o, ti.thresholdKey); err != nil {
			return
		}
		if !ok {
			continue
		}
		if ti.metric == "rate" {
			if !o.HasPredecessor(w.axis()) {
				continue
			}
		}
		w.tests = append(w.tests, TestRecord{Key: key, Metric: ti.metric, Relop: ti.relop, Threshold: thr})
		msg += fmt.Sprintf("\nwrote test: %s %s %g", ti.metric, ti.relop, thr)
	}
	return
}

func threshold(o *options.Leaf, key string) (thr float64, ok bool, err error) {
	thr, ok, err = o.OptionalFloat(key)
	if options.IsMissingDependency(err) {
		return 0, false, nil
	}
	return
}

func (w *XMLWriter) Tests() []TestRecord { return w.tests }

func (w *XMLWriter) Simulations() []Simulation { return w.simulations }

func (w *XMLWriter) Teardown() (err error) {
	var (
		text = DefaultTemplate
		out  string
	)
	w.active = false
	if w.TargetPath == "" {
		return errors.New("xml writer has no target path")
	}
	if w.TemplatePath != "" {
		var b []byte
		if b, err = afero.ReadFile(w.Fs, w.TemplatePath); err != nil {
			return errors.Wrap(err, "read xml template")
		}
		text = string(b)
	}
	problem := map[string]any{
		"name":    "",
		"user_id": "",
		"length":  "medium",
		"command": "",
	}
	for k, v := range w.Problem {
		problem[k] = v
	}
	vars := Values{
		"problem":     problem,
		"tests":       w.tests,
		"simulations": w.simulations,
		"abscissae":   w.abscissae,
		"report":      w.ReportPath,
		"run_id":      uuid.New().String(),
	}
	if out, err = w.Engine.Render(filepath.Base(w.TargetPath), text, vars); err != nil {
		return
	}
	if dir := filepath.Dir(w.TargetPath); dir != "." {
		if err = w.Fs.MkdirAll(dir, 0755); err != nil {
			return
		}
	}
	if err = afero.WriteFile(w.Fs, w.TargetPath, []byte(out), 0644); err != nil {
		return errors.Wrap(err, "write xml")
	}
	w.Logger.Info("wrote test harness file", "path", w.TargetPath, "tests", len(w.tests))
	return
}

var _ sweep.Functor = (*XMLWriter)(nil)
