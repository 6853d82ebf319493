package postprocess

import (
	"context"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/notargets/impesconv/convergence"
	"github.com/notargets/impesconv/options"
	"github.com/notargets/impesconv/readfiles"
	"github.com/notargets/impesconv/sweep"
)

// StatError reads phase_name::error_variable_name::error_aggregation from
// the statistics file of the simulation at error_timestep_index.
type StatError struct {
	Fs     afero.Fs
	Dir    string
	Logger hclog.Logger
}

func (g *StatError) Error(_ context.Context, o *options.Leaf) (e float64, err error) {
	var (
		sim, phase, variable string
		agg                  = "integral"
		index                = -1
	)
	if sim, err = o.String("simulation_name"); err != nil {
		return
	}
	if phase, err = o.String("phase_name"); err != nil {
		return
	}
	if variable, err = o.String("error_variable_name"); err != nil {
		return
	}
	if o.Has("error_aggregation") {
		if agg, err = o.String("error_aggregation"); err != nil {
			return
		}
	}
	if o.Has("error_timestep_index") {
		if index, err = o.Int("error_timestep_index"); err != nil {
			return
		}
	}
	name := filepath.Join(g.Dir, sim+".stat")
	f, err := fsOrOS(g.Fs).Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, sweep.FileNotFound(name)
		}
		return 0, sweep.Failed("%s: %v", name, err)
	}
	defer f.Close()
	st, err := readfiles.ReadStat(f)
	if err != nil {
		return 0, sweep.Failed("%s: %v", name, err)
	}
	if e, err = st.Value(phase, variable, agg, index); err != nil {
		var mf *readfiles.MissingFieldError
		if errors.As(err, &mf) {
			return 0, sweep.Failed("expected to find %s::%s in the stat file; has this been defined in the options file?",
				phase, variable)
		}
		return 0, sweep.Failed("%s: %v", name, err)
	}
	logger(g.Logger).Trace("stat error", "file", name, "value", e)
	return
}

// ProfileError integrates the absolute difference between a one dimensional
// reference_solution_filename and the field_descriptor field of
// solution_filename, assuming uniform linear elements of size EL_SIZE_X.
type ProfileError struct {
	Fs     afero.Fs
	Dir    string
	Logger hclog.Logger
}

func (g *ProfileError) Error(_ context.Context, o *options.Leaf) (e float64, err error) {
	var (
		ref, sol, field string
		dx              float64
		xa, va, xn, vn  []float64
		fs              = fsOrOS(g.Fs)
	)
	if ref, err = o.String("reference_solution_filename"); err != nil {
		return
	}
	if sol, err = o.String("solution_filename"); err != nil {
		return
	}
	if field, err = o.String("field_descriptor"); err != nil {
		return
	}
	if dx, err = o.Float("EL_SIZE_X"); err != nil {
		return
	}
	sol = filepath.Join(g.Dir, sol)
	for _, name := range []string{ref, sol} {
		if ok, _ := afero.Exists(fs, name); !ok {
			return 0, sweep.FileNotFound(name)
		}
	}
	if xa, va, err = readfiles.ReadSolution(fs, ref, ""); err != nil {
		return 0, sweep.Failed("%s: %v", ref, err)
	}
	if xn, vn, err = readfiles.ReadSolution(fs, sol, field); err != nil {
		return 0, sweep.Failed("%s: %v", sol, err)
	}
	e = L1Error(xa, va, xn, vn, dx)
	logger(g.Logger).Trace("profile error", "reference", ref, "solution", sol, "value", e)
	return
}

func fsOrOS(fs afero.Fs) afero.Fs {
	if fs == nil {
		return afero.NewOsFs()
	}
	return fs
}

func logger(l hclog.Logger) hclog.Logger {
	if l == nil {
		return hclog.NewNullLogger()
	}
	return l
}

var (
	_ convergence.ErrorGetter = (*StatError)(nil)
	_ convergence.ErrorGetter = (*ProfileError)(nil)
)
