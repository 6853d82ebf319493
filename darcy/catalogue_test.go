package darcy

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/impesconv/options"
)

func meshTree() *options.Tree {
	tr := options.NewTree(Dims())
	tr.Child(0).Graft(Resolutions(10, 80))
	for _, ch := range tr.Children()[1:] {
		ch.Graft(MeshTypes("reg"))
		ch.Graft(Resolutions(10, 20))
	}
	tr.Update(Spatial())
	tr.Update(options.Entries{
		"domain_extents":            []float64{1, 1.2, 0.8},
		"reference_element_numbers": []int{10, 12, 8},
	})
	return tr
}

func TestSpatialEntries(t *testing.T) {
	leaves := meshTree().Collapse()
	require.Len(t, leaves, 6)
	var names []string
	for _, lf := range leaves {
		s, err := lf.String("mesh_name")
		require.NoError(t, err)
		names = append(names, s)
	}
	want := []string{
		"line_10", "line_80",
		"rectangle_reg_10", "rectangle_reg_20",
		"cuboid_reg_10", "cuboid_reg_20",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("mesh names (-want +got):\n%s", diff)
	}
	lf := leaves[3]
	{
		s, err := lf.String("geo_template_filename")
		require.NoError(t, err)
		assert.Equal(t, "rectangle_reg.geo.template", s)
		args, err := lf.Strings("meshing_args")
		require.NoError(t, err)
		assert.Equal(t, []string{"gmsh", "-2", "rectangle_reg_20.geo", "-o", "rectangle_reg_20.msh"}, args)
	}
	// Element numbers scale with resolution, sizes follow the extents
	{
		ny, err := lf.Float("EL_NUM_Y")
		require.NoError(t, err)
		assert.Equal(t, 24., ny)
		dy, err := lf.Float("EL_SIZE_Y")
		require.NoError(t, err)
		assert.InDelta(t, 0.05, dy, 1e-12)
		lz, err := lf.Float("DOMAIN_LENGTH_Z")
		require.NoError(t, err)
		assert.Equal(t, 0.8, lz)
	}
	// Upper case aliases and the wall snippet
	{
		s, err := lf.String("WALL_IDS")
		require.NoError(t, err)
		assert.Equal(t, "3 4", s)
		s, err = lf.String("WALL_FLOW_BC_SNIPPET")
		require.NoError(t, err)
		assert.Contains(t, s, "no_normal_flow")
		s, err = leaves[0].String("WALL_FLOW_BC_SNIPPET")
		require.NoError(t, err)
		assert.Empty(t, s)
	}
	// Missing inputs surface as missing dependencies
	{
		bare := options.NewTree(Dims(), Resolutions(10)).Update(Spatial())
		_, err := bare.Collapse()[0].Get("EL_SIZE_X")
		assert.True(t, options.IsMissingDependency(err))
	}
}

func TestSimulationEntries(t *testing.T) {
	tr := options.NewTree(
		options.NewArray("subcase", "p1satdiag"),
		options.NewArray("submodel", "relpermupwind"),
	)
	tr.Graft(meshTree())
	tr.Update(Simulation(Simulator{Path: "/opt/bin/darcy_impes", MeshDir: "meshes", SimulationDir: "results"}))
	tr.Update(options.Entries{
		"case":                   "darcy_impes_p1_2phase_bl",
		"simulation_naming_keys": []string{"subcase", "submodel", "dim", "mesh_res"},
		"excluded_naming_keys":   []string{"mesh_type"},
		"finish_time":            0.2,
	})
	leaves := tr.Collapse()
	require.Len(t, leaves, 6)
	lf := leaves[1]
	name, err := lf.String("simulation_name")
	require.NoError(t, err)
	assert.Equal(t, "p1satdiag_relpermupwind_1d_80", name)
	{
		s, err := lf.String("simulation_options_template_filename")
		require.NoError(t, err)
		assert.Equal(t, "darcy_impes_p1_2phase_bl.diml.template", s)
		args, err := lf.Strings("simulation_args")
		require.NoError(t, err)
		assert.Equal(t, []string{"/opt/bin/darcy_impes", "p1satdiag_relpermupwind_1d_80.diml"}, args)
		pre, err := lf.Strings("simulation_prerequisite_filenames")
		require.NoError(t, err)
		assert.Equal(t, []string{"p1satdiag_relpermupwind_1d_80.diml", "../meshes/line_80.msh"}, pre)
		s, err = lf.String("MESH_NAME")
		require.NoError(t, err)
		assert.Equal(t, "../meshes/line_80", s)
	}
	// Constant Courant number
	{
		dt10, err := leaves[0].Float("time_step")
		require.NoError(t, err)
		dt80, err := leaves[1].Float("TIME_STEP")
		require.NoError(t, err)
		assert.InDelta(t, 0.02, dt10, 1e-12)
		assert.InDelta(t, dt10/8, dt80, 1e-12)
	}
	// Every axis names the simulation when no keys are given
	{
		bare := options.NewTree(Dims(), Resolutions(10))
		bare.Update(options.Entries{"simulation_name": options.Dynamic(SimulationName)})
		s, err := bare.Collapse()[0].String("simulation_name")
		require.NoError(t, err)
		assert.Equal(t, "1d_10", s)
	}
}

func TestTestingEntries(t *testing.T) {
	tr := options.NewTree(options.NewArray("subcase", "withgrav_updip"), Dims().Slice(0, 1),
		Resolutions(10, 20), Fields("saturation2", "pressure1"))
	tr.Update(Testing())
	tr.Update(options.Entries{
		"case":            "bl",
		"simulation_name": options.Sprintf("%v", ResolutionAxis),
		"max_error_norm":  MaxErrorNorm(ResolutionAxis, map[string]float64{"saturation2": 0.1, "pressure1": 100}),
	})
	tr.Update(options.Entries{ErrorSnippetKey("saturation2"): ErrorSnippet("saturation2")})
	leaves := tr.Collapse()
	require.Len(t, leaves, 4)
	lf := leaves[0]
	for key, want := range map[string]string{
		"phase_name":                  "Phase2",
		"variable_name":               "Saturation",
		"field_descriptor":            "Phase2::Saturation",
		"error_variable_name":         "SaturationAbsError",
		"report_filename":             "bl_report.txt",
		"vtu_filename":                "10_1.vtu",
		"reference_solution_filename": "reference_solution/withgrav_updip_saturation2.txt",
	} {
		s, err := lf.String(key)
		require.NoError(t, err, key)
		assert.Equal(t, want, s, key)
	}
	// Absolute error only tested on the coarsest mesh, for fields with a tolerance
	{
		v, err := leaves[0].Get("max_error_norm")
		require.NoError(t, err)
		assert.Equal(t, 0.1, v)
		v, err = leaves[1].Get("max_error_norm")
		require.NoError(t, err)
		assert.Equal(t, 100., v)
		v, err = leaves[2].Get("max_error_norm")
		require.NoError(t, err)
		assert.Nil(t, v)
		v, err = leaves[3].Get("max_error_norm")
		require.NoError(t, err)
		assert.Nil(t, v)
	}
	{
		s, err := lf.String("SATURATION2_ERROR_SNIPPET")
		require.NoError(t, err)
		assert.Contains(t, s, `name="SaturationAbsError"`)
		assert.Contains(t, s, "'../reference_solution/withgrav_updip_saturation2.txt'")
		assert.False(t, strings.Contains(s, "%!"))
	}
	// A field without a phase number is a configuration error
	{
		bad := options.NewTree(Fields("saturation")).Update(Testing())
		_, err := bad.Collapse()[0].Get("phase_name")
		assert.Error(t, err)
		assert.False(t, options.IsMissingDependency(err))
	}
}

func TestMaxErrorNormFiltered(t *testing.T) {
	tr := options.NewTree(Dims().Slice(0, 1), Resolutions(10, 20, 40), Fields("saturation2"))
	tr.Update(Testing())
	tr.Update(options.Entries{
		"max_error_norm": MaxErrorNorm(ResolutionAxis, map[string]float64{"saturation2": 0.1}),
	})
	removed, err := tr.Filter(func(o *options.Leaf) (bool, error) {
		n, err := o.Int(ResolutionAxis)
		return n != 10, err
	})
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	leaves := tr.Collapse()
	require.Len(t, leaves, 2)
	// the coarsest remaining mesh takes over the absolute error test
	v, err := leaves[0].Get("max_error_norm")
	require.NoError(t, err)
	assert.Equal(t, 0.1, v)
	v, err = leaves[1].Get("max_error_norm")
	require.NoError(t, err)
	assert.Nil(t, v)
}
