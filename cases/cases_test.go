package cases

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/impesconv/config"
	"github.com/notargets/impesconv/options"
	"github.com/notargets/impesconv/readfiles"
	"github.com/notargets/impesconv/sweep"
)

const (
	bl  = "darcy_impes_p1_2phase_bl"
	mms = "darcy_impes_p1_2phase_mms"
)

func testSettings() *config.Settings {
	return &config.Settings{
		Problem:       "test",
		SimulatorPath: "darcy_impes",
		MeshDir:       "meshes",
		SimulationDir: "simulations",
		TemplateDir:   "templates",
		NProcsMax:     2,
	}
}

func build(t *testing.T, name string) (c *Case, out *bytes.Buffer) {
	cp, err := Builtin(name)
	require.NoError(t, err)
	c, err = Build(cp, testSettings())
	require.NoError(t, err)
	out = new(bytes.Buffer)
	c.Out = out
	c.Fs = afero.NewMemMapFs()
	return
}

func names(tr *options.Tree, key string) (nn []string) {
	for _, lf := range tr.Collapse() {
		s, _ := lf.String(key)
		nn = append(nn, s)
	}
	return
}

func TestBuiltin(t *testing.T) {
	assert.Equal(t, []string{bl, mms}, Names())
	_, err := Builtin("nonesuch")
	assert.Error(t, err)
	cp, err := Builtin(bl)
	require.NoError(t, err)
	assert.Equal(t, bl, cp.Name)
	assert.Equal(t, []string{"saturation2"}, cp.FieldNames())
	assert.Equal(t, "subcase", cp.Subcases.Axis)
}

func TestBuildBuckleyLeverett(t *testing.T) {
	c, _ := build(t, bl)
	assert.Equal(t, 6, c.MeshTree.Len())
	// two subcases by two submodels over six meshes
	assert.Equal(t, 24, c.SimulationTree.Len())
	assert.Equal(t, 24, c.TestTree.Len())

	sims := names(c.SimulationTree, "simulation_name")
	assert.Equal(t, "p1satdiag_relpermupwind_1d_10", sims[0])
	assert.Equal(t, "p1satdiag_relpermupwind_2d_40", sims[3])
	assert.Equal(t, "withgrav_updip_modrelpermupwind_3d_20", sims[23])

	lf := c.SimulationTree.Collapse()[0]
	s, err := lf.String("MESH_NAME")
	require.NoError(t, err)
	assert.Equal(t, "../meshes/line_10", s)
	// subcase entries reach the simulation leaves
	s, err = lf.String("DENSITY2")
	require.NoError(t, err)
	assert.Equal(t, "1", s)

	tests := c.TestTree.Collapse()
	assert.Equal(t, "p1satdiag_relpermupwind_1d_10_saturation2", tests[0].Name(c.naming()))
	tol, ok, err := tests[0].OptionalFloat("max_error_norm")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0.1, tol)
	_, ok, err = tests[1].OptionalFloat("max_error_norm")
	require.NoError(t, err)
	assert.False(t, ok)
	agg, err := tests[0].String("error_aggregation")
	require.NoError(t, err)
	assert.Equal(t, "integral", agg)
}

func TestBuildFiltersMeshTypes(t *testing.T) {
	c, _ := build(t, mms)
	assert.Equal(t, 14, c.MeshTree.Len())
	assert.Equal(t, 18, c.SimulationTree.Len())
	assert.Equal(t, 36, c.TestTree.Len())
	for _, lf := range c.SimulationTree.Collapse() {
		if !lf.Has("mesh_type") {
			continue
		}
		group, err := lf.String("group")
		require.NoError(t, err)
		mt, err := lf.String("mesh_type")
		require.NoError(t, err)
		switch group {
		case "group1":
			assert.Equal(t, "reg", mt)
		case "group2":
			assert.Equal(t, "curved_irreg", mt)
		}
	}
}

func TestBuildErrors(t *testing.T) {
	cp, err := Builtin(bl)
	require.NoError(t, err)
	cp.Dims = "0:1"
	_, err = Build(cp, testSettings())
	assert.Error(t, err, "resolutions given for an excluded dimension")

	cp, err = Builtin(mms)
	require.NoError(t, err)
	cp.Dims = "1:2"
	cp.Resolutions = map[string][]int{"2d": {10}}
	cp.MeshTypes = []string{"structured"}
	_, err = Build(cp, testSettings())
	assert.Error(t, err, "every simulation filtered out")
}

func TestParseStages(t *testing.T) {
	st, err := ParseStages(nil, false)
	require.NoError(t, err)
	assert.Equal(t, []Stage{Pre, Run, Post}, st)
	st, err = ParseStages(nil, true)
	require.NoError(t, err)
	assert.Equal(t, []Stage{Pre, Mesh, Run, Post}, st)
	st, err = ParseStages([]string{"clean", "xml"}, false)
	require.NoError(t, err)
	assert.Equal(t, []Stage{Clean, XML}, st)
	_, err = ParseStages([]string{"postprocess"}, false)
	assert.Error(t, err)
}

func TestWriteReferenceSolution(t *testing.T) {
	c, out := build(t, bl)
	s, err := sweep.Serial(context.Background(), "references", &WriteReferenceSolution{
		Field:  "saturation2",
		Points: 101,
		Fs:     c.Fs,
	}, c.SimulationTree, sweep.Options{Out: out})
	require.NoError(t, err)
	assert.Equal(t, 24, s.Visited)
	assert.Zero(t, s.Failed())
	assert.Equal(t, 1, strings.Count(out.String(), "wrote reference_solution/p1satdiag_saturation2.txt"))

	f, err := c.Fs.Open("reference_solution/p1satdiag_saturation2.txt")
	require.NoError(t, err)
	defer f.Close()
	x, v, err := readfiles.ReadProfile(f)
	require.NoError(t, err)
	require.NotEmpty(t, x)
	assert.Equal(t, 0., x[0])
	assert.InDelta(t, 1., x[len(x)-1], 1e-12)
	// injected at the inlet, untouched at the outlet
	assert.InDelta(t, 1., v[0], 1e-9)
	assert.InDelta(t, 0., v[len(v)-1], 1e-9)
	ok, _ := afero.Exists(c.Fs, "reference_solution/withgrav_updip_saturation2.txt")
	assert.False(t, ok)
}

func TestRunXML(t *testing.T) {
	c, _ := build(t, bl)
	sums, err := c.Run(context.Background(), []Stage{XML})
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Zero(t, sums[0].Failed())

	b, err := afero.ReadFile(c.Fs, bl+".xml")
	require.NoError(t, err)
	xml := string(b)
	assert.Contains(t, xml, "<name>darcy_impes_p1_2phase_bl</name>")
	assert.Contains(t, xml, `open("darcy_impes_p1_2phase_bl_report.txt")`)
	// an error test at the coarsest resolution, a rate test at the finer one
	assert.Contains(t, xml, `errors["p1satdiag_relpermupwind_1d_10_saturation2"] &lt; 0.1`)
	assert.Contains(t, xml, `rates["p1satdiag_relpermupwind_1d_80_saturation2"] &gt; 0.7`)
	assert.Equal(t, 24, strings.Count(xml, "<test "))
}

func TestRunPre(t *testing.T) {
	c, _ := build(t, bl)
	// keep the mesher out of the test
	c.Params.SeparateMeshing = true
	sums, err := c.Run(context.Background(), []Stage{Pre, XML})
	require.NoError(t, err)
	// references, geometry, options and xml; xml is written once
	require.Len(t, sums, 4)
	for _, s := range sums {
		assert.Zero(t, s.Failed(), s.Description)
	}

	geo, err := afero.ReadFile(c.Fs, "meshes/line_10.geo")
	require.NoError(t, err)
	assert.NotContains(t, string(geo), "$")

	opts, err := afero.ReadFile(c.Fs, "simulations/p1satdiag_relpermupwind_1d_10.diml")
	require.NoError(t, err)
	assert.Contains(t, string(opts), "../meshes/line_10")
	assert.Contains(t, string(opts), "reference_solution/p1satdiag_saturation2.txt")
	assert.NotContains(t, string(opts), "${")

	opts, err = afero.ReadFile(c.Fs, "simulations/withgrav_updip_modrelpermupwind_2d_10.diml")
	require.NoError(t, err)
	assert.NotContains(t, string(opts), "${")

	for _, f := range []string{"reference_solution/p1satdiag_saturation2.txt", bl + ".xml"} {
		ok, _ := afero.Exists(c.Fs, f)
		assert.True(t, ok, f)
	}
}

func TestRunClean(t *testing.T) {
	c, _ := build(t, bl)
	for _, f := range []string{
		"meshes/line_10.geo", "meshes/line_10.msh", "meshes/notes.txt",
		"simulations/p1satdiag_relpermupwind_1d_10.diml",
		"simulations/p1satdiag_relpermupwind_1d_10_1.vtu",
		"simulations/p1satdiag_relpermupwind_1d_10.stat",
		bl + "_report.txt",
	} {
		require.NoError(t, afero.WriteFile(c.Fs, f, []byte("x"), 0644))
	}
	sums, err := c.Run(context.Background(), []Stage{Clean})
	require.NoError(t, err)
	assert.Len(t, sums, 2)
	for _, f := range []string{
		"meshes/line_10.geo", "meshes/line_10.msh",
		"simulations/p1satdiag_relpermupwind_1d_10.diml",
		"simulations/p1satdiag_relpermupwind_1d_10_1.vtu",
		"simulations/p1satdiag_relpermupwind_1d_10.stat",
		bl + "_report.txt",
	} {
		ok, _ := afero.Exists(c.Fs, f)
		assert.False(t, ok, f)
	}
	ok, _ := afero.Exists(c.Fs, "meshes/notes.txt")
	assert.True(t, ok)
}
