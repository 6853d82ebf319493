package report

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/impesconv/options"
	"github.com/notargets/impesconv/sweep"
)

func TestSimpleEngine(t *testing.T) {
	vars := Values{
		"MESH_NAME": "line_${MESH_RES}",
		"MESH_RES":  10,
		"WALL_IDS":  []string{"3", "4"},
	}
	{ // Two passes resolve nested placeholders
		out, err := SimpleEngine{Passes: 2}.Render("t", "mesh $MESH_NAME walls ${WALL_IDS}", vars)
		require.NoError(t, err)
		assert.Equal(t, "mesh line_10 walls 3 4", out)
	}
	{ // One pass leaves them for later
		out, err := SimpleEngine{Passes: 1}.Render("t", "mesh $MESH_NAME", vars)
		require.NoError(t, err)
		assert.Equal(t, "mesh line_${MESH_RES}", out)
	}
	{ // Unknown placeholders survive and are logged
		var logs bytes.Buffer
		logger := hclog.New(&hclog.LoggerOptions{Output: &logs, Level: hclog.Warn})
		out, err := SimpleEngine{Passes: 3, Logger: logger}.Render("bl.diml", "x=$UNKNOWN y=${MESH_RES}", vars)
		require.NoError(t, err)
		assert.Equal(t, "x=${UNKNOWN} y=10", out)
		assert.Contains(t, logs.String(), "unresolved placeholders")
		assert.Contains(t, logs.String(), "template=bl.diml")
		assert.Contains(t, logs.String(), "UNKNOWN")
		assert.NotContains(t, logs.String(), "MESH_RES")
	}
	{ // A clean render logs nothing
		var logs bytes.Buffer
		logger := hclog.New(&hclog.LoggerOptions{Output: &logs, Level: hclog.Warn})
		_, err := SimpleEngine{Passes: 2, Logger: logger}.Render("t", "mesh $MESH_NAME", vars)
		require.NoError(t, err)
		assert.Empty(t, logs.String())
	}
}

func TestTemplateEngine(t *testing.T) {
	lf := options.NewTree(
		options.NewArray("dim", "2d"),
		options.NewNode("", options.Entries{
			"mesh_name": options.Sprintf("rectangle_%v", "dim"),
			"nested":    `{{ opt "mesh_name" | upper }}`,
		}),
	).Collapse()[0]
	{
		out, err := TemplateEngine{Passes: 2}.Render("t", `{{ opt "nested" }}-{{ opt "dim" }}`, lf)
		require.NoError(t, err)
		assert.Equal(t, "RECTANGLE_2D-2d", out)
	}
	{
		_, err := TemplateEngine{}.Render("t", `{{ raise "no walls in 1d" }}`, lf)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no walls in 1d")
	}
	{
		_, err := TemplateEngine{}.Render("t", `{{ .missing }}`, Values{})
		assert.Error(t, err)
		_, err = TemplateEngine{}.Render("t", `{{ opt "missing" }}`, lf)
		assert.Error(t, err)
	}
}

func testLeaves() *options.Tree {
	tr := options.NewTree(
		options.NewArray("field", "saturation2"),
		options.NewArray("mesh_res", 10, 20),
	)
	tr.Graft(options.NewNode("", options.Entries{
		"simulation_name": options.Sprintf("bl_%v", "mesh_res"),
		"simulation_args": []string{"darcy_impes", "bl.diml"},
		"max_error_norm": options.Dynamic(func(o *options.Leaf) (any, error) {
			if o.IsFirst("mesh_res") {
				return 0.1, nil
			}
			return nil, nil
		}),
		"min_convergence_rate": 0.7,
	}))
	return tr
}

func TestXMLWriterRecords(t *testing.T) {
	var (
		fs  = afero.NewMemMapFs()
		out bytes.Buffer
	)
	w := &XMLWriter{
		AbscissaKey: "mesh_res",
		TargetPath:  "out/bl.xml",
		ReportPath:  "bl_report.txt",
		Problem:     map[string]any{"name": "bl", "user_id": "someone"},
		Fs:          fs,
	}
	_, err := sweep.Serial(context.Background(), "Writing XML", w, testLeaves(), sweep.Options{Out: &out})
	require.NoError(t, err)
	assert.Equal(t, []TestRecord{
		{Key: "saturation2_10", Metric: "error", Relop: "lt", Threshold: 0.1},
		{Key: "saturation2_20", Metric: "rate", Relop: "gt", Threshold: 0.7},
	}, w.Tests())
	assert.Equal(t, 2, len(w.Simulations()))
	assert.Contains(t, out.String(), "wrote test: error lt 0.1")

	data, err := afero.ReadFile(fs, "out/bl.xml")
	require.NoError(t, err)
	xml := string(data)
	assert.Contains(t, xml, "<name>bl</name>")
	assert.Contains(t, xml, `assert errors["saturation2_10"] &lt; 0.1`)
	assert.Contains(t, xml, `assert rates["saturation2_20"] &gt; 0.7`)
	assert.Contains(t, xml, `open("bl_report.txt")`)
	assert.Contains(t, xml, `"saturation2_20": 20,`)
	assert.Contains(t, xml, "bl_10: darcy_impes bl.diml")
	assert.Equal(t, 2, strings.Count(xml, "<test "))
}

func TestXMLWriterThresholds(t *testing.T) {
	w := &XMLWriter{AbscissaKey: "mesh_res", TargetPath: "x.xml", Fs: afero.NewMemMapFs()}
	require.NoError(t, w.Setup())
	tr := options.NewTree(options.NewArray("mesh_res", 10, 20))
	tr.Graft(options.NewNode("", options.Entries{
		"max_error_norm":       0.1,
		"min_convergence_rate": 0.7,
	}))
	leaves := tr.Collapse()
	{ // Both thresholds past the first point
		_, err := w.Call(context.Background(), leaves[1])
		require.NoError(t, err)
		require.Equal(t, 2, len(w.Tests()))
		assert.Equal(t, "lt", w.Tests()[0].Relop)
		assert.Equal(t, "gt", w.Tests()[1].Relop)
	}
	{ // No rate test at the first point regardless of threshold
		_, err := w.Call(context.Background(), leaves[0])
		require.NoError(t, err)
		require.Equal(t, 3, len(w.Tests()))
		assert.Equal(t, "error", w.Tests()[2].Metric)
	}
	{ // Absent thresholds emit nothing
		bare := options.NewTree(options.NewArray("mesh_res", 10, 20)).Collapse()
		_, err := w.Call(context.Background(), bare[1])
		require.NoError(t, err)
		assert.Equal(t, 3, len(w.Tests()))
	}
	require.NoError(t, w.Teardown())
}

func TestXMLWriterCustomTemplate(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "xml.template",
		[]byte(`{{ range .tests }}{{ .Key }} {{ .Metric }};{{ end }}`), 0644))
	w := &XMLWriter{
		AbscissaKey:  "mesh_res",
		TemplatePath: "xml.template",
		TargetPath:   "bl.xml",
		Fs:           fs,
	}
	_, err := sweep.Serial(context.Background(), "Writing XML", w, testLeaves(), sweep.Options{Out: &bytes.Buffer{}})
	require.NoError(t, err)
	data, err := afero.ReadFile(fs, "bl.xml")
	require.NoError(t, err)
	assert.Equal(t, "saturation2_10 error;saturation2_20 rate;", string(data))
}

func TestXMLWriterFilteredFirstPoint(t *testing.T) {
	tr := options.NewTree(options.NewArray("dim", "1d"), options.NewArray("mesh_res", 10, 20, 40))
	tr.Graft(options.NewNode("", options.Entries{"min_convergence_rate": 0.7}))
	_, err := tr.Filter(func(o *options.Leaf) (bool, error) {
		n, err := o.Int("mesh_res")
		return n != 10, err
	})
	require.NoError(t, err)
	w := &XMLWriter{AbscissaKey: "mesh_res", TargetPath: "x.xml", Fs: afero.NewMemMapFs()}
	_, err = sweep.Serial(context.Background(), "Writing XML", w, tr, sweep.Options{Out: &bytes.Buffer{}})
	require.NoError(t, err)
	// 1d_20 is now the coarsest point and has no rate to test
	assert.Equal(t, []TestRecord{
		{Key: "1d_40", Metric: "rate", Relop: "gt", Threshold: 0.7},
	}, w.Tests())
}
