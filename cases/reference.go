package cases

import (
	"bytes"
	"context"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/notargets/impesconv/buckley_leverett"
	"github.com/notargets/impesconv/darcy"
	"github.com/notargets/impesconv/options"
	"github.com/notargets/impesconv/readfiles"
	"github.com/notargets/impesconv/sweep"
)

// WriteReferenceSolution writes the analytic saturation profile of leaves
// declaring reference_generator: buckley_leverett. Leaves sharing a
// reference file are served by the first one visited, so it runs in serial.
type WriteReferenceSolution struct {
	sweep.Base
	Field  string
	Points int
	Fs     afero.Fs
	Logger hclog.Logger
}

func (w *WriteReferenceSolution) Call(_ context.Context, o *options.Leaf) (msg string, err error) {
	var (
		gen, filename string
		p             buckley_leverett.Params
		X, S          []float64
		buf           bytes.Buffer
	)
	if !o.Has("reference_generator") {
		return
	}
	if gen, err = o.String("reference_generator"); err != nil {
		return
	}
	if gen != "buckley_leverett" {
		return "", errors.Errorf("unknown reference_generator %q", gen)
	}
	if filename, err = darcy.ReferenceFilename(o, w.Field); err != nil {
		return
	}
	if ok, _ := afero.Exists(w.Fs, filename); ok {
		return
	}
	if p, err = blParams(o); err != nil {
		return
	}
	if X, S, err = buckley_leverett.Profile(p, max(w.Points, 2)); err != nil {
		return "", sweep.Failed("%s: %v", filename, err)
	}
	if err = readfiles.WriteProfile(&buf, X, S); err != nil {
		return
	}
	if err = w.Fs.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return
	}
	if err = afero.WriteFile(w.Fs, filename, buf.Bytes(), 0644); err != nil {
		return "", errors.Wrapf(err, "write %s", filename)
	}
	if w.Logger != nil {
		w.Logger.Debug("wrote reference solution", "file", filename, "front", p.FrontPosition())
	}
	return "wrote " + filename, nil
}

func blParams(o *options.Leaf) (p buckley_leverett.Params, err error) {
	var (
		exps []float64
	)
	for _, f := range []struct {
		key string
		dst *float64
		def float64
	}{
		{"VISCOSITY1", &p.Viscosities[0], -1},
		{"VISCOSITY2", &p.Viscosities[1], -1},
		{"RESIDUAL_SATURATION1", &p.ResidualSaturations[0], 0},
		{"RESIDUAL_SATURATION2", &p.ResidualSaturations[1], 0},
		{"INITIAL_SATURATION2", &p.InitialSaturation, 0},
		{"POROSITY", &p.Porosity, -1},
		{"INLET_VELOCITY", &p.DarcyVelocity, -1},
		{"finish_time", &p.Time, -1},
		{"DOMAIN_LENGTH_X", &p.Length, -1},
	} {
		if !o.Has(f.key) && f.def >= 0 {
			*f.dst = f.def
			continue
		}
		if *f.dst, err = o.Float(f.key); err != nil {
			return
		}
	}
	p.Exponents = [2]float64{2, 2}
	if o.Has("relperm_exponents") {
		if exps, err = o.Floats("relperm_exponents"); err != nil {
			return
		}
		if len(exps) != 2 {
			return p, errors.Errorf("relperm_exponents needs two values, got %v", exps)
		}
		p.Exponents = [2]float64{exps[0], exps[1]}
	}
	return
}
