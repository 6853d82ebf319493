package cases

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/notargets/impesconv/convergence"
	"github.com/notargets/impesconv/darcy"
	"github.com/notargets/impesconv/postprocess"
	"github.com/notargets/impesconv/report"
	"github.com/notargets/impesconv/runner"
	"github.com/notargets/impesconv/sweep"
)

type Stage string

const (
	Pre   Stage = "pre"
	XML   Stage = "xml"
	Mesh  Stage = "mesh"
	Run   Stage = "run"
	Post  Stage = "post"
	Clean Stage = "clean"
)

// StageOrder is the order stages run in, whatever order they were asked for.
var StageOrder = []Stage{Pre, XML, Mesh, Run, Post, Clean}

// StageNames lists the valid stage tokens.
func StageNames() []string {
	names := make([]string, len(StageOrder))
	for i, s := range StageOrder {
		names[i] = string(s)
	}
	return names
}

// DefaultStages is pre, run and post, with mesh added when meshing is
// separate from templating.
func DefaultStages(separateMeshing bool) []Stage {
	if separateMeshing {
		return []Stage{Pre, Mesh, Run, Post}
	}
	return []Stage{Pre, Run, Post}
}

// ParseStages validates stage tokens. No tokens gives the default stages.
func ParseStages(tokens []string, separateMeshing bool) (stages []Stage, err error) {
	if len(tokens) == 0 {
		return DefaultStages(separateMeshing), nil
	}
	for _, tok := range tokens {
		st := Stage(tok)
		if !contains(StageNames(), tok) {
			return nil, errors.Errorf("unknown stage %q, want one of %v", tok, StageNames())
		}
		stages = append(stages, st)
	}
	return
}

func (c *Case) opts() sweep.Options {
	return sweep.Options{
		Out:    c.Out,
		Logger: c.Logger,
		Naming: c.naming(),
	}
}

func (c *Case) parallelOpts() sweep.Options {
	opts := c.opts()
	opts.NProcs = c.Settings.Workers(c.Params.NProcs)
	opts.Reverse = true
	return opts
}

func (c *Case) engine() report.Engine {
	return report.SimpleEngine{Passes: c.Params.RenderPasses, Logger: c.Logger}
}

func (c *Case) reportPath() string {
	return c.Params.Name + "_report.txt"
}

// Run executes the requested stages in StageOrder. Leaf failures are
// collected in the returned summaries; only configuration and I/O errors
// stop the run.
func (c *Case) Run(ctx context.Context, stages []Stage) (sums []*sweep.Summary, err error) {
	want := make(map[Stage]bool, len(stages))
	for _, st := range stages {
		want[st] = true
	}
	for _, st := range StageOrder {
		if !want[st] {
			continue
		}
		var ss []*sweep.Summary
		switch st {
		case Pre:
			ss, err = c.pre(ctx)
		case XML:
			if want[Pre] {
				continue
			}
			ss, err = c.one(c.writeXML(ctx))
		case Mesh:
			if want[Pre] && !c.Params.SeparateMeshing {
				continue
			}
			ss, err = c.one(c.mesh(ctx))
		case Run:
			ss, err = c.one(c.run(ctx))
		case Post:
			ss, err = c.one(c.post(ctx))
		case Clean:
			ss, err = c.clean(ctx)
		}
		sums = append(sums, ss...)
		if err != nil {
			return sums, errors.Wrapf(err, "stage %s", st)
		}
		c.Logger.Info("stage done", "stage", st)
	}
	return
}

func (c *Case) one(s *sweep.Summary, err error) ([]*sweep.Summary, error) {
	if s == nil {
		return nil, err
	}
	return []*sweep.Summary{s}, err
}

func (c *Case) pre(ctx context.Context) (sums []*sweep.Summary, err error) {
	var s *sweep.Summary
	for _, dir := range []string{c.Settings.MeshDir, c.Settings.SimulationDir} {
		if err = c.Fs.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(err, "create %s", dir)
		}
	}
	if s, err = sweep.Serial(ctx, "Writing reference solutions", &WriteReferenceSolution{
		Field:  "saturation2",
		Points: 1001,
		Fs:     c.Fs,
		Logger: c.Logger,
	}, c.SimulationTree, c.opts()); err != nil {
		return
	}
	sums = append(sums, s)
	if s, err = sweep.Serial(ctx, "Expanding geometry templates", &runner.ExpandTemplate{
		TemplateKey: "geo_template_filename",
		TargetKey:   "geo_filename",
		TemplateDir: c.Settings.TemplateDir,
		TargetDir:   c.Settings.MeshDir,
		Engine:      c.engine(),
		Fs:          c.Fs,
		Fallback:    Templates(),
		Logger:      c.Logger,
	}, c.MeshTree, c.opts()); err != nil {
		return
	}
	sums = append(sums, s)
	if !c.Params.SeparateMeshing {
		if s, err = c.mesh(ctx); err != nil {
			return
		}
		sums = append(sums, s)
	}
	if s, err = sweep.Serial(ctx, "Expanding simulation options templates", &runner.ExpandTemplate{
		TemplateKey: "simulation_options_template_filename",
		TargetKey:   "simulation_options_filename",
		TemplateDir: c.Settings.TemplateDir,
		TargetDir:   c.Settings.SimulationDir,
		Engine:      c.engine(),
		Fs:          c.Fs,
		Fallback:    Templates(),
		Logger:      c.Logger,
	}, c.SimulationTree, c.opts()); err != nil {
		return
	}
	sums = append(sums, s)
	if s, err = c.writeXML(ctx); err != nil {
		return
	}
	return append(sums, s), nil
}

func (c *Case) mesh(ctx context.Context) (*sweep.Summary, error) {
	return sweep.Parallel(ctx, "Meshing", &runner.RunProgram{
		ArgsKey:          "meshing_args",
		PrerequisitesKey: "geo_filename",
		TargetNameKey:    "mesh_name",
		WorkDir:          c.Settings.MeshDir,
		Fs:               c.Fs,
		Logger:           c.Logger,
	}, c.MeshTree, c.parallelOpts())
}

func (c *Case) run(ctx context.Context) (*sweep.Summary, error) {
	return sweep.Parallel(ctx, "Running simulations", &runner.RunProgram{
		ArgsKey:          "simulation_args",
		PrerequisitesKey: "simulation_prerequisite_filenames",
		TargetNameKey:    "simulation_name",
		WorkDir:          c.Settings.SimulationDir,
		Fs:               c.Fs,
		Logger:           c.Logger,
	}, c.SimulationTree, c.parallelOpts())
}

func (c *Case) writeXML(ctx context.Context) (*sweep.Summary, error) {
	return sweep.Serial(ctx, "Writing test harness file", &report.XMLWriter{
		AbscissaKey:    c.Params.AbscissaKey,
		RefinementAxis: darcy.ResolutionAxis,
		Naming:         c.naming(),
		TargetPath:     c.Params.Name + ".xml",
		ReportPath:     c.reportPath(),
		Problem: map[string]any{
			"name":    c.Params.Name,
			"user_id": c.Params.UserID,
			"length":  c.Params.TestLength,
			"command": c.Params.CommandLine,
		},
		Fs:     c.Fs,
		Logger: c.Logger,
	}, c.TestTree, c.opts())
}

func (c *Case) getter() (convergence.ErrorGetter, error) {
	switch c.Params.ErrorGetter {
	case "stat":
		return &postprocess.StatError{Fs: c.Fs, Dir: c.Settings.SimulationDir, Logger: c.Logger}, nil
	case "profile":
		return &postprocess.ProfileError{Fs: c.Fs, Dir: c.Settings.SimulationDir, Logger: c.Logger}, nil
	}
	return nil, errors.Errorf("unknown error getter %q", c.Params.ErrorGetter)
}

func (c *Case) post(ctx context.Context) (*sweep.Summary, error) {
	g, err := c.getter()
	if err != nil {
		return nil, err
	}
	return sweep.Serial(ctx, fmt.Sprintf("Computing errors and convergence rates (%s)", c.Params.ErrorGetter),
		&convergence.Study{
			AbscissaKey:    c.Params.AbscissaKey,
			RefinementAxis: darcy.ResolutionAxis,
			Getter:         g,
			Naming:         c.naming(),
			WrtResolution:  c.Params.WithRespectToResolution,
			ReportPath:     c.reportPath(),
			Fs:             c.Fs,
			Recorder:       c.Recorder,
			Logger:         c.Logger,
		}, c.TestTree, c.opts())
}

func (c *Case) clean(ctx context.Context) (sums []*sweep.Summary, err error) {
	var s *sweep.Summary
	if s, err = sweep.Serial(ctx, "Cleaning meshes", &runner.Clean{
		PatternKeys: []string{"mesh_outputs"},
		Dir:         c.Settings.MeshDir,
		Fs:          c.Fs,
		Logger:      c.Logger,
	}, c.MeshTree, c.opts()); err != nil {
		return
	}
	sums = append(sums, s)
	if s, err = sweep.Serial(ctx, "Cleaning simulations", &runner.Clean{
		PatternKeys: []string{"simulation_outputs"},
		Dir:         c.Settings.SimulationDir,
		Fs:          c.Fs,
		Logger:      c.Logger,
	}, c.SimulationTree, c.opts()); err != nil {
		return
	}
	sums = append(sums, s)
	for _, f := range []string{c.reportPath(), c.Params.Name + ".xml"} {
		if rerr := c.Fs.Remove(filepath.Clean(f)); rerr == nil {
			fmt.Fprintf(c.Out, "    removed %s\n", f)
		}
	}
	return
}
