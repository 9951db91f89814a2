package mdb

func boolPtr(b bool) *bool { return &b }

func floatPtr(f float64) *float64 { return &f }

// orbitParameter /YSS/SIMULATOR/Orbit
//
//	position: float[3]
//	attitude: {q: float[2][2], mode: enum}
func orbitParameter() *Parameter {
	floatType := &Type{Name: "float", EngType: "float", Shape: Scalar{}}
	modeType := &Type{
		Name:    "mode",
		EngType: "enumeration",
		EnumValues: []EnumValue{
			{Value: 0, Label: "SAFE"},
			{Value: 1, Label: "NOMINAL"},
		},
		Shape: Scalar{},
	}
	attitude := &Type{
		Name:    "attitude",
		EngType: "aggregate",
		Shape: Aggregate{Members: []Member{
			{Name: "q", Type: &Type{EngType: "array", Shape: Array{Elem: floatType, Dimensions: []int{2, 2}}}},
			{Name: "mode", Type: modeType},
		}},
	}
	return &Parameter{
		Name:          "Orbit",
		QualifiedName: "/YSS/SIMULATOR/Orbit",
		Description:   "Orbit state",
		Type: &Type{
			Name:    "orbit",
			EngType: "aggregate",
			Shape: Aggregate{Members: []Member{
				{Name: "position", Type: &Type{EngType: "array", Shape: Array{Elem: floatType, Dimensions: []int{3}}}},
				{Name: "attitude", Type: attitude},
			}},
		},
	}
}
