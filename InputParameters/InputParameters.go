package InputParameters

import (
	"fmt"
	"io"
	"sort"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
)

// Parameters obtained from the YAML case file
type CaseParameters struct {
	Name                    string           `json:"Name"`
	UserID                  string           `json:"UserID"`
	NProcs                  int              `json:"NProcs"`
	TestLength              string           `json:"TestLength"`
	CommandLine             string           `json:"CommandLine"`
	AbscissaKey             string           `json:"AbscissaKey"`
	WithRespectToResolution bool             `json:"WithRespectToResolution"`
	SimulationNamingKeys    []string         `json:"SimulationNamingKeys"`
	ExcludedNamingKeys      []string         `json:"ExcludedNamingKeys"`
	ErrorGetter             string           `json:"ErrorGetter"` // stat or profile
	ErrorAggregation        string           `json:"ErrorAggregation"`
	MinConvergenceRate      float64          `json:"MinConvergenceRate"`
	SeparateMeshing         bool             `json:"SeparateMeshing"` // mesh as its own stage rather than inside pre
	RenderPasses            int              `json:"RenderPasses"`
	Dims                    string           `json:"Dims"`        // slice of 1d,2d,3d, e.g. "0:2"
	MeshTypes               []string         `json:"MeshTypes"`   // not applied to 1d
	Resolutions             map[string][]int `json:"Resolutions"` // keyed by dim name
	DomainExtents           []float64        `json:"DomainExtents"`
	ReferenceElementNumbers []float64        `json:"ReferenceElementNumbers"`
	Entries                 map[string]any   `json:"Entries"`     // simulation and test trees
	MeshEntries             map[string]any   `json:"MeshEntries"` // override the spatial entries
	Subcases                *AxisSpec        `json:"Subcases"`
	Submodels               *AxisSpec        `json:"Submodels"`
	Fields                  []FieldSpec      `json:"Fields"`
}

// AxisSpec is an axis of named nodes, each with its own entries.
type AxisSpec struct {
	Axis  string     `json:"Axis"`
	Nodes []NodeSpec `json:"Nodes"`
}

type NodeSpec struct {
	Name    string         `json:"Name"`
	Entries map[string]any `json:"Entries"`
}

// FieldSpec is a post-processed field. A nil ErrorTolerance means only the
// convergence rate is tested.
type FieldSpec struct {
	Name           string   `json:"Name"`
	ErrorTolerance *float64 `json:"ErrorTolerance"`
}

func (cp *CaseParameters) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, cp); err != nil {
		return errors.Wrap(err, "parse case")
	}
	cp.defaults()
	return cp.validate()
}

func (cp *CaseParameters) defaults() {
	if cp.AbscissaKey == "" {
		cp.AbscissaKey = "mesh_res"
	}
	if cp.ErrorGetter == "" {
		cp.ErrorGetter = "stat"
	}
	if cp.TestLength == "" {
		cp.TestLength = "short"
	}
	if cp.RenderPasses == 0 {
		cp.RenderPasses = 5
	}
	if cp.Dims == "" {
		cp.Dims = ":"
	}
	if cp.Subcases != nil && cp.Subcases.Axis == "" {
		cp.Subcases.Axis = "subcase"
	}
	if cp.Submodels != nil && cp.Submodels.Axis == "" {
		cp.Submodels.Axis = "submodel"
	}
}

func (cp *CaseParameters) validate() error {
	switch {
	case cp.Name == "":
		return errors.New("case has no Name")
	case cp.ErrorGetter != "stat" && cp.ErrorGetter != "profile":
		return errors.Errorf("unknown ErrorGetter %q, want stat or profile", cp.ErrorGetter)
	case len(cp.Fields) == 0:
		return errors.New("case has no Fields")
	case len(cp.DomainExtents) != 3:
		return errors.Errorf("DomainExtents needs three values, got %d", len(cp.DomainExtents))
	case len(cp.ReferenceElementNumbers) != 3:
		return errors.Errorf("ReferenceElementNumbers needs three values, got %d", len(cp.ReferenceElementNumbers))
	}
	for dim, res := range cp.Resolutions {
		if len(res) == 0 {
			return errors.Errorf("no resolutions for %s", dim)
		}
	}
	return nil
}

// Tolerances maps field names to their error tolerance.
func (cp *CaseParameters) Tolerances() map[string]float64 {
	tol := make(map[string]float64)
	for _, f := range cp.Fields {
		if f.ErrorTolerance != nil {
			tol[f.Name] = *f.ErrorTolerance
		}
	}
	return tol
}

func (cp *CaseParameters) FieldNames() (names []string) {
	for _, f := range cp.Fields {
		names = append(names, f.Name)
	}
	return
}

func (cp *CaseParameters) Print(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Name\n", cp.Name)
	fmt.Fprintf(w, "[%s]\t\t\t= Abscissa\n", cp.AbscissaKey)
	fmt.Fprintf(w, "[%s]\t\t\t= Error Getter\n", cp.ErrorGetter)
	fmt.Fprintf(w, "%8.5f\t\t= Min Convergence Rate\n", cp.MinConvergenceRate)
	fmt.Fprintf(w, "[%s]\t\t\t= Dims\n", cp.Dims)
	keys := make([]string, len(cp.Resolutions))
	i := 0
	for k := range cp.Resolutions {
		keys[i] = k
		i++
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(w, "Resolutions[%s] = %v\n", key, cp.Resolutions[key])
	}
	for _, f := range cp.Fields {
		if f.ErrorTolerance != nil {
			fmt.Fprintf(w, "Field[%s] tolerance = %g\n", f.Name, *f.ErrorTolerance)
		} else {
			fmt.Fprintf(w, "Field[%s]\n", f.Name)
		}
	}
}
