package darcy

// Solver input fragments substituted into .diml templates. Placeholders are
// resolved by further rendering passes, so snippets may refer to entries of
// the leaf they end up in.
const (
	WallNoNormalFlowBC = `
        <boundary_conditions name="wall_flow">
          <surface_ids>
            <integer_value shape="$WALL_NUM" rank="1">$WALL_IDS</integer_value>
          </surface_ids>
          <type name="no_normal_flow"/>
        </boundary_conditions>`

	SatFaceValueFESweby = `
        <face_value name="FiniteElement">
          <limit_face_value>
            <limiter name="Sweby"/>
          </limit_face_value>
        </face_value>`

	Gravity = `
    <gravity>
      <magnitude>
        <real_value rank="0">$GRAVITY_MAGNITUDE</real_value>
      </magnitude>
      <vector_field name="GravityDirection" rank="1">
        <prescribed>
          <mesh name="ElementWiseMesh"/>
          <value name="WholeMesh">
            <constant>
              <real_value shape="$DIM_NUMBER" dim1="dim" rank="1">$GRAVITY_DIRECTION</real_value>
            </constant>
          </value>
        </prescribed>
      </vector_field>
    </gravity>`

	CoreyRelperm = `
        <correlation name="Corey2Phase"/>`

	QuadraticRelperm = `
        <correlation name="PowerLaw">
          <exponents>
            <real_value shape="2" rank="1">2.0 2.0</real_value>
          </exponents> $RESIDUAL_SATURATION_SNIPPET
        </correlation>`

	ResidualSaturations = `
          <residual_saturations>
            <real_value shape="2" rank="1">$RESIDUAL_SATURATION1 $RESIDUAL_SATURATION2</real_value>
          </residual_saturations>`

	// errorVariable takes the reference file and the variable name.
	errorVariable = `
    <scalar_field name="LinearInterpolatedAnalytical%[2]sSolution">
      <prescribed>
        <mesh name="PressureMesh"/>
        <value name="WholeMesh">
          <python>
            <string_value lines="20" type="code" language="python">def val(X, t):
    import numpy
    data = numpy.fromfile('../%[1]s',
                          sep='\t')
    data = data.reshape((len(data)/2, 2))
    return numpy.interp(X[0], data[:,0], data[:,1])</string_value>
          </python>
        </value>
        <stat>
          <include_cv_stats/>
        </stat>
        <do_not_recalculate/>
      </prescribed>
    </scalar_field>
    <scalar_field name="%[2]sAbsError">
      <diagnostic>
        <mesh name="PressureMesh"/>
        <algorithm source_field_2_type="scalar" name="scalar_difference" source_field_1_name="%[2]s" source_field_2_name="LinearInterpolatedAnalytical%[2]sSolution" material_phase_support="single" source_field_1_type="scalar">
          <absolute_difference/>
        </algorithm>
        <stat>
          <include_cv_stats/>
        </stat>
        <consistent_interpolation/>
      </diagnostic>
    </scalar_field>`
)

// Snippets exposes the fragments to case files under lower case keys, so a
// case entry such as GRAVITY_SNIPPET: $gravity_snippet picks one by name.
func Snippets() map[string]any {
	return map[string]any{
		"wall_no_normal_flow_bc_snippet":  WallNoNormalFlowBC,
		"sat_face_value_fe_sweby_snippet": SatFaceValueFESweby,
		"gravity_snippet":                 Gravity,
		"corey_relperm_snippet":           CoreyRelperm,
		"quadratic_relperm_snippet":       QuadraticRelperm,
		"residual_saturations_snippet":    ResidualSaturations,
	}
}
