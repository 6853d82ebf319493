// Package darcy is the option catalogue shared by the Darcy IMPES test cases:
// the dimension, mesh type and resolution axes, and the dynamic entries that
// name meshes, simulations and tests from a fully assembled leaf.
package darcy

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/notargets/impesconv/options"
)

const (
	DimAxis        = "dim"
	MeshTypeAxis   = "mesh_type"
	ResolutionAxis = "mesh_res"
	FieldAxis      = "field"
)

var axisNames = []string{"X", "Y", "Z"}

// Dims is the dimension axis, 1d to 3d.
func Dims() *options.Array {
	return options.NewArray(DimAxis,
		options.NewNode("1d", options.Entries{
			"dim_number":        1,
			"geometry":          "line",
			"gravity_direction": "-1.",
			"wall_ids":          "",
			"wall_num":          0,
		}),
		options.NewNode("2d", options.Entries{
			"dim_number":        2,
			"geometry":          "rectangle",
			"gravity_direction": "-1. 0.",
			"wall_ids":          "3 4",
			"wall_num":          2,
		}),
		options.NewNode("3d", options.Entries{
			"dim_number":        3,
			"geometry":          "cuboid",
			"gravity_direction": "-1. 0. 0.",
			"wall_ids":          "3 4 5 6",
			"wall_num":          4,
		}),
	)
}

// MeshTypes is the mesh_type axis. Known types are reg, irreg and
// curved_irreg.
func MeshTypes(names ...string) *options.Array {
	items := make([]any, len(names))
	for i, n := range names {
		items[i] = n
	}
	return options.NewArray(MeshTypeAxis, items...)
}

// Resolutions is the mesh_res axis, the number of elements along x.
func Resolutions(res ...int) *options.Array {
	items := make([]any, len(res))
	for i, r := range res {
		items[i] = r
	}
	return options.NewArray(ResolutionAxis, items...)
}

// Fields is the field axis of the test tree, e.g. saturation2.
func Fields(names ...string) *options.Array {
	items := make([]any, len(names))
	for i, n := range names {
		items[i] = n
	}
	return options.NewArray(FieldAxis, items...)
}

// Spatial holds the geometry and meshing entries. The leaf must define
// mesh_res, domain_extents and reference_element_numbers (three each).
func Spatial() options.Entries {
	e := options.Entries{
		"inlet_id":  "1",
		"outlet_id": "2",
		"geo_template_name": options.Dynamic(func(o *options.Leaf) (any, error) {
			geom, err := o.String("geometry")
			if err != nil {
				return nil, err
			}
			return options.Join(geom, o.Str("geo_type", MeshTypeAxis)), nil
		}),
		"mesh_name": options.Dynamic(func(o *options.Leaf) (any, error) {
			geom, err := o.String("geometry")
			if err != nil {
				return nil, err
			}
			return options.Join(geom, o.Str("geo_type", MeshTypeAxis, ResolutionAxis)), nil
		}),
		"geo_template_filename": options.Sprintf("%s.geo.template", "geo_template_name"),
		"geo_filename":          options.Sprintf("%s.geo", "mesh_name"),
		"mesh_filename":         options.Sprintf("%s.msh", "mesh_name"),
		"meshing_args": options.Dynamic(func(o *options.Leaf) (any, error) {
			var (
				dim      int
				geo, msh string
				err      error
			)
			if dim, err = o.Int("dim_number"); err != nil {
				return nil, err
			}
			if geo, err = o.String("geo_filename"); err != nil {
				return nil, err
			}
			if msh, err = o.String("mesh_filename"); err != nil {
				return nil, err
			}
			return []string{"gmsh", fmt.Sprintf("-%d", dim), geo, "-o", msh}, nil
		}),
		"element_numbers": options.Dynamic(elementNumbers),
		"element_sizes":   options.Dynamic(elementSizes),
		"mesh_outputs": options.Dynamic(func(o *options.Leaf) (any, error) {
			name, err := o.String("mesh_name")
			if err != nil {
				return nil, err
			}
			return []string{name + ".geo", name + ".msh", name + ".err"}, nil
		}),
		"WALL_FLOW_BC_SNIPPET": options.Dynamic(func(o *options.Leaf) (any, error) {
			dim, err := o.Int("dim_number")
			if err != nil {
				return nil, err
			}
			if dim > 1 {
				return WallNoNormalFlowBC, nil
			}
			return "", nil
		}),
	}
	for i, x := range axisNames {
		e["DOMAIN_LENGTH_"+x] = component("domain_extents", i)
		e["EL_NUM_"+x] = component("element_numbers", i)
		e["EL_SIZE_"+x] = component("element_sizes", i)
	}
	capitalise(e, "dim_number", "geometry", "gravity_direction", "wall_ids",
		"wall_num", "inlet_id", "outlet_id")
	// simulations refer to the mesh by its path from the simulation directory
	e["MESH_NAME"] = options.Dynamic(func(o *options.Leaf) (any, error) {
		if o.Has("mesh_path") {
			return o.Get("mesh_path")
		}
		return o.Get("mesh_name")
	})
	for k, v := range Snippets() {
		e[k] = v
	}
	return e
}

// element numbers along each edge keep dx, dy and dz in proportion to the
// reference numbers while scaling with mesh_res
func elementNumbers(o *options.Leaf) (any, error) {
	var (
		res int
		ref []float64
		err error
	)
	if res, err = o.Int(ResolutionAxis); err != nil {
		return nil, err
	}
	if ref, err = o.Floats("reference_element_numbers"); err != nil {
		return nil, err
	}
	if len(ref) != 3 || ref[0] == 0 {
		return nil, errors.Errorf("reference_element_numbers must hold three numbers, the first nonzero: %v", ref)
	}
	nums := make([]int, 3)
	for i := range nums {
		nums[i] = int(float64(res) * ref[i] / ref[0])
	}
	return nums, nil
}

func elementSizes(o *options.Leaf) (any, error) {
	var (
		ext, nums []float64
		err       error
	)
	if ext, err = o.Floats("domain_extents"); err != nil {
		return nil, err
	}
	if nums, err = o.Floats("element_numbers"); err != nil {
		return nil, err
	}
	if len(ext) != 3 {
		return nil, errors.Errorf("domain_extents must hold three numbers: %v", ext)
	}
	sizes := make([]float64, 3)
	for i := range sizes {
		sizes[i] = ext[i] / nums[i]
	}
	return sizes, nil
}

// Simulator describes where the simulator lives and where meshes and results
// are kept.
type Simulator struct {
	Path          string
	MeshDir       string
	SimulationDir string
}

// Simulation holds the entries for expanding and running simulations. The
// leaf must define case and the simulation naming keys.
func Simulation(sim Simulator) options.Entries {
	meshFromSim, err := filepath.Rel(sim.SimulationDir, sim.MeshDir)
	if err != nil {
		meshFromSim = sim.MeshDir
	}
	e := options.Entries{
		"simulator":                    sim.Path,
		"mesh_dir":                     sim.MeshDir,
		"simulation_dir":               sim.SimulationDir,
		"simulation_options_extension": "diml",
		"gravity_magnitude":            "1.5e+06",
		"reference_timestep_number":    10,
		"simulation_options_template_filename": options.Sprintf("%s.%s.template",
			"case", "simulation_options_extension"),
		"simulation_options_filename": options.Sprintf("%s.%s",
			"simulation_name", "simulation_options_extension"),
		"simulation_name": options.Dynamic(SimulationName),
		"mesh_path": options.Dynamic(func(o *options.Leaf) (any, error) {
			name, err := o.String("mesh_name")
			if err != nil {
				return nil, err
			}
			return filepath.Join(meshFromSim, name), nil
		}),
		"simulation_prerequisite_filenames": options.Dynamic(func(o *options.Leaf) (any, error) {
			var (
				opts, mesh string
				err        error
			)
			if opts, err = o.String("simulation_options_filename"); err != nil {
				return nil, err
			}
			if mesh, err = o.String("mesh_path"); err != nil {
				return nil, err
			}
			return []string{opts, mesh + ".msh"}, nil
		}),
		"simulation_args": options.Dynamic(func(o *options.Leaf) (any, error) {
			opts, err := o.String("simulation_options_filename")
			if err != nil {
				return nil, err
			}
			return []string{sim.Path, opts}, nil
		}),
		"simulation_outputs": options.Dynamic(func(o *options.Leaf) (any, error) {
			name, err := o.String("simulation_name")
			if err != nil {
				return nil, err
			}
			return []string{name + ".*", name + "_*"}, nil
		}),
		"dump_period": options.Alias("finish_time"),
		"time_step":   options.Dynamic(timeStep),
	}
	capitalise(e, "simulation_name", "finish_time", "dump_period", "time_step",
		"gravity_magnitude")
	return e
}

// SimulationName names a simulation after the simulation_naming_keys axes,
// less any excluded_naming_keys. Every axis but field is used when no naming
// keys are given.
func SimulationName(o *options.Leaf) (any, error) {
	var (
		n   options.Naming
		err error
	)
	if o.Has("simulation_naming_keys") {
		if n.Only, err = o.Strings("simulation_naming_keys"); err != nil {
			return nil, err
		}
	}
	if o.Has("excluded_naming_keys") {
		if n.Exclude, err = o.Strings("excluded_naming_keys"); err != nil {
			return nil, err
		}
	}
	if len(n.Only) == 0 {
		n.Exclude = append(n.Exclude, FieldAxis)
	}
	return o.Name(n), nil
}

// timeStep keeps the Courant number constant across resolutions.
func timeStep(o *options.Leaf) (any, error) {
	var (
		res, finish, steps float64
		ref                []float64
		err                error
	)
	if res, err = o.Float(ResolutionAxis); err != nil {
		return nil, err
	}
	if finish, err = o.Float("finish_time"); err != nil {
		return nil, err
	}
	if steps, err = o.Float("reference_timestep_number"); err != nil {
		return nil, err
	}
	if ref, err = o.Floats("reference_element_numbers"); err != nil {
		return nil, err
	}
	if len(ref) == 0 || res == 0 || steps == 0 {
		return nil, errors.New("time step needs mesh_res, reference_timestep_number and reference_element_numbers")
	}
	return ref[0] / res * finish / steps, nil
}

var fieldPattern = regexp.MustCompile(`^(.*)([0-9])$`)

// Testing holds the entries for post-processing a field, named
// <variable><phase number> in lower case, e.g. saturation2.
func Testing() options.Entries {
	return options.Entries{
		"phase_name": options.Dynamic(func(o *options.Leaf) (any, error) {
			_, phase, err := splitField(o)
			if err != nil {
				return nil, err
			}
			return "Phase" + phase, nil
		}),
		"variable_name": options.Dynamic(func(o *options.Leaf) (any, error) {
			variable, _, err := splitField(o)
			if err != nil {
				return nil, err
			}
			if variable == "" {
				return "", nil
			}
			return strings.ToUpper(variable[:1]) + strings.ToLower(variable[1:]), nil
		}),
		"field_descriptor":     options.JoinKeys("::", "phase_name", "variable_name"),
		"error_variable_name":  options.Sprintf("%sAbsError", "variable_name"),
		"error_aggregation":    "l2norm",
		"error_timestep_index": -1,
		"vtu_filename":         options.Sprintf("%s_1.vtu", "simulation_name"),
		"solution_filename":    options.Sprintf("%s_1.msh", "simulation_name"),
		"report_filename":      options.Sprintf("%s_report.txt", "case"),
		"xml_target_filename":  options.Sprintf("%s.xml", "case"),
		"reference_solution_filename": options.Dynamic(func(o *options.Leaf) (any, error) {
			field, err := o.String(FieldAxis)
			if err != nil {
				return nil, err
			}
			return ReferenceFilename(o, field)
		}),
	}
}

func splitField(o *options.Leaf) (variable, phase string, err error) {
	var field string
	if field, err = o.String(FieldAxis); err != nil {
		return
	}
	m := fieldPattern.FindStringSubmatch(field)
	if m == nil {
		return "", "", errors.Errorf("field %q does not end in a phase number", field)
	}
	return m[1], m[2], nil
}

// ReferenceFilename is reference_solution/<subcase>_<field>.txt, relative to
// the directory the case runs in. The directory may be overridden with a
// reference_solution_dir entry.
func ReferenceFilename(o *options.Leaf, field string) (string, error) {
	var (
		dir = "reference_solution"
		sub string
		err error
	)
	if o.Has("reference_solution_dir") {
		if dir, err = o.String("reference_solution_dir"); err != nil {
			return "", err
		}
	}
	if o.Has("subcase") {
		if sub, err = o.String("subcase"); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, options.Join(sub, field)+".txt"), nil
}

// ErrorSnippet declares the analytical solution of field in the simulator
// input, read from the field's reference file, and the absolute error
// diagnostic the stat getter looks for.
func ErrorSnippet(field string) options.Dynamic {
	return func(o *options.Leaf) (any, error) {
		m := fieldPattern.FindStringSubmatch(field)
		if m == nil || m[1] == "" {
			return nil, errors.Errorf("field %q does not end in a phase number", field)
		}
		ref, err := ReferenceFilename(o, field)
		if err != nil {
			return nil, err
		}
		variable := strings.ToUpper(m[1][:1]) + strings.ToLower(m[1][1:])
		return fmt.Sprintf(errorVariable, ref, variable), nil
	}
}

// ErrorSnippetKey is the template placeholder for a field's error snippet,
// e.g. SATURATION2_ERROR_SNIPPET.
func ErrorSnippetKey(field string) string {
	return strings.ToUpper(field) + "_ERROR_SNIPPET"
}

// MaxErrorNorm tests the absolute error only where axis has no predecessor,
// since the rates are tested everywhere else. Fields without a tolerance
// are not tested.
func MaxErrorNorm(axis string, tolerances map[string]float64) options.Dynamic {
	return func(o *options.Leaf) (any, error) {
		field, err := o.String(FieldAxis)
		if err != nil {
			return nil, err
		}
		tol, ok := tolerances[field]
		if !ok || o.HasPredecessor(axis) {
			return nil, nil
		}
		return tol, nil
	}
}

func component(key string, i int) options.Dynamic {
	return func(o *options.Leaf) (any, error) {
		fs, err := o.Floats(key)
		if err != nil {
			return nil, err
		}
		if i >= len(fs) {
			return nil, errors.Errorf("%s has no component %d", key, i)
		}
		return fs[i], nil
	}
}

// capitalise duplicates keys under upper case names, the convention for
// template placeholders.
func capitalise(e options.Entries, keys ...string) {
	for _, k := range keys {
		e[strings.ToUpper(k)] = options.Alias(k)
	}
}
