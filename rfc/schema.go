package rfc

import (
	"github.com/invopop/jsonschema"
)

// InputSchema renders the function's import-side signature (import, changing
// and tables parameters) as a JSON Schema object. Diagnostic surfaces and
// gateways use it to describe what a remote function accepts without talking
// to the engine again.
func (d FunctionDescription) InputSchema() *jsonschema.Schema {
	return d.schemaFor(DirectionImport, DirectionChanging, DirectionTables)
}

// OutputSchema renders the export-side signature as a JSON Schema object.
func (d FunctionDescription) OutputSchema() *jsonschema.Schema {
	return d.schemaFor(DirectionExport, DirectionChanging, DirectionTables)
}

func (d FunctionDescription) schemaFor(dirs ...ParameterDirection) *jsonschema.Schema {
	props := jsonschema.NewProperties()
	var required []string
	for _, p := range d.Parameters {
		if !directionIn(p.Direction, dirs) {
			continue
		}
		props.Set(p.Name, parameterSchema(p))
		if !p.Optional {
			required = append(required, p.Name)
		}
	}
	return &jsonschema.Schema{
		Type:                 "object",
		Description:          d.Name,
		Properties:           props,
		Required:             required,
		AdditionalProperties: jsonschema.FalseSchema,
	}
}

func directionIn(d ParameterDirection, dirs []ParameterDirection) bool {
	for _, want := range dirs {
		if d == want {
			return true
		}
	}
	return false
}

func parameterSchema(p ParameterDescription) *jsonschema.Schema {
	s := &jsonschema.Schema{Description: p.Description}
	switch p.Type {
	case TypeInt:
		s.Type = "integer"
	case TypeFloat, TypeBCD:
		s.Type = "number"
	case TypeStructure:
		s.Type = "object"
	case TypeTable:
		s.Type = "array"
		s.Items = &jsonschema.Schema{Type: "object"}
	default:
		// CHAR, NUM, BYTE, DATE, TIME and STRING all surface as strings.
		s.Type = "string"
		if p.Length > 0 {
			n := uint64(p.Length)
			s.MaxLength = &n
		}
	}
	if p.DefaultValue != "" {
		s.Default = p.DefaultValue
	}
	return s
}
