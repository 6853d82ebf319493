// Package cases turns a case definition into the mesh, simulation and test
// trees of a convergence study, and runs the study's stages over them.
package cases

import (
	"embed"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/notargets/impesconv/InputParameters"
	"github.com/notargets/impesconv/config"
	"github.com/notargets/impesconv/convergence"
	"github.com/notargets/impesconv/darcy"
	"github.com/notargets/impesconv/options"
)

var (
	//go:embed builtin/*.yaml
	builtin embed.FS
	//go:embed templates
	templates embed.FS
)

// Names lists the built-in cases.
func Names() (names []string) {
	entries, _ := fs.ReadDir(builtin, "builtin")
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return
}

// Builtin parses the built-in case called name.
func Builtin(name string) (*InputParameters.CaseParameters, error) {
	data, err := builtin.ReadFile(path.Join("builtin", name+".yaml"))
	if err != nil {
		return nil, errors.Errorf("no built-in case %q, have %s", name, strings.Join(Names(), ", "))
	}
	return parse(data)
}

// Load parses a case file.
func Load(afs afero.Fs, filename string) (*InputParameters.CaseParameters, error) {
	data, err := afero.ReadFile(afs, filename)
	if err != nil {
		return nil, errors.Wrap(err, "read case file")
	}
	return parse(data)
}

func parse(data []byte) (*InputParameters.CaseParameters, error) {
	cp := &InputParameters.CaseParameters{}
	if err := cp.Parse(data); err != nil {
		return nil, err
	}
	return cp, nil
}

// Templates holds the geometry and options templates shipped with the
// built-in cases, found by file name.
func Templates() afero.Fs {
	sub, err := fs.Sub(templates, "templates")
	if err != nil {
		panic(err)
	}
	return afero.FromIOFS{FS: sub}
}

// Case is a built study, ready to run.
type Case struct {
	Params   *InputParameters.CaseParameters
	Settings *config.Settings

	MeshTree       *options.Tree
	SimulationTree *options.Tree
	TestTree       *options.Tree

	Out      io.Writer
	Fs       afero.Fs
	Logger   hclog.Logger
	Recorder convergence.Recorder
}

var defaultResolutions = []int{10, 20, 40, 80}

// Build assembles the trees of a case from the darcy catalogue. The test
// tree is the simulation tree swept over the case's fields; the simulation
// tree is the mesh tree beneath the subcase and submodel axes.
func Build(cp *InputParameters.CaseParameters, s *config.Settings) (c *Case, err error) {
	var (
		dims            *options.Array
		mesh, sim, test *options.Tree
	)
	if dims, err = darcy.Dims().SliceSpec(cp.Dims); err != nil {
		return nil, errors.Wrap(err, "Dims")
	}
	for dim := range cp.Resolutions {
		if !contains(dims.Names(), dim) {
			return nil, errors.Errorf("Resolutions given for unknown or excluded dimension %s", dim)
		}
	}
	mesh = options.NewTree(dims)
	for _, ch := range mesh.Children() {
		if ch.Name() != "1d" && len(cp.MeshTypes) != 0 {
			ch.Graft(darcy.MeshTypes(cp.MeshTypes...))
		}
		res, ok := cp.Resolutions[ch.Name()]
		if !ok {
			res = defaultResolutions
		}
		ch.Graft(darcy.Resolutions(res...))
	}
	mesh.Update(darcy.Spatial())
	mesh.Update(options.Entries{
		"case":                      cp.Name,
		"domain_extents":            cp.DomainExtents,
		"reference_element_numbers": cp.ReferenceElementNumbers,
	})
	mesh.Update(cp.MeshEntries)

	sim = options.NewTree()
	for _, ax := range []*InputParameters.AxisSpec{cp.Subcases, cp.Submodels} {
		if ax != nil {
			sim.Graft(axis(ax))
		}
	}
	sim.Graft(mesh)
	sim.Update(darcy.Simulation(darcy.Simulator{
		Path:          s.SimulatorPath,
		MeshDir:       s.MeshDir,
		SimulationDir: s.SimulationDir,
	}))
	// below the subcase and submodel nodes, so those override the case
	sim.Update(cp.Entries)
	simEntries := options.Entries{
		"simulation_naming_keys": cp.SimulationNamingKeys,
		"excluded_naming_keys":   cp.ExcludedNamingKeys,
	}
	for _, f := range cp.FieldNames() {
		simEntries[darcy.ErrorSnippetKey(f)] = darcy.ErrorSnippet(f)
	}
	sim.Update(simEntries)
	if _, err = sim.Filter(allowedMeshType); err != nil {
		return nil, errors.Wrap(err, "filter simulations")
	}
	if sim.Len() == 0 {
		return nil, errors.New("case has no simulations left")
	}

	test = sim.Multiply(darcy.Fields(cp.FieldNames()...))
	test.Update(darcy.Testing())
	testEntries := options.Entries{
		"user_id":              cp.UserID,
		"nprocs":               cp.NProcs,
		"min_convergence_rate": cp.MinConvergenceRate,
		"max_error_norm":       darcy.MaxErrorNorm(darcy.ResolutionAxis, cp.Tolerances()),
	}
	if cp.ErrorAggregation != "" {
		testEntries["error_aggregation"] = cp.ErrorAggregation
	}
	test.Update(testEntries)

	c = &Case{
		Params:         cp,
		Settings:       s,
		MeshTree:       mesh,
		SimulationTree: sim,
		TestTree:       test,
		Out:            os.Stdout,
		Fs:             afero.NewOsFs(),
		Logger:         hclog.NewNullLogger(),
	}
	return
}

func axis(ax *InputParameters.AxisSpec) *options.Array {
	items := make([]any, len(ax.Nodes))
	for i, nd := range ax.Nodes {
		items[i] = options.NewNode(nd.Name, nd.Entries)
	}
	return options.NewArray(ax.Axis, items...)
}

// allowedMeshType drops simulations on mesh types their subcase does not
// ask for.
func allowedMeshType(o *options.Leaf) (bool, error) {
	if !o.Has("allowed_mesh_types") || !o.Has(darcy.MeshTypeAxis) {
		return true, nil
	}
	allowed, err := o.Strings("allowed_mesh_types")
	if err != nil {
		return false, err
	}
	mt, err := o.String(darcy.MeshTypeAxis)
	if err != nil {
		return false, err
	}
	return contains(allowed, mt), nil
}

// naming identifies simulations and test points in console output.
func (c *Case) naming() options.Naming {
	return options.Naming{Exclude: c.Params.ExcludedNamingKeys}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
