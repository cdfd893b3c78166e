package rfc

import "testing"

func testDescription() FunctionDescription {
	return FunctionDescription{
		Name: "STFC_CONNECTION",
		Parameters: []ParameterDescription{
			{Name: "REQUTEXT", Direction: DirectionImport, Type: TypeChar, Length: 255},
			{Name: "ECHOTEXT", Direction: DirectionExport, Type: TypeChar, Length: 255},
			{Name: "RESPTEXT", Direction: DirectionExport, Type: TypeChar, Length: 255, Optional: true},
			{Name: "COUNT", Direction: DirectionImport, Type: TypeInt, Optional: true},
			{Name: "ROWS", Direction: DirectionTables, Type: TypeTable, Optional: true},
		},
	}
}

func TestInputSchema(t *testing.T) {
	s := testDescription().InputSchema()
	if s.Type != "object" {
		t.Fatalf("schema type = %q, want object", s.Type)
	}
	if _, ok := s.Properties.Get("REQUTEXT"); !ok {
		t.Fatal("import parameter missing from input schema")
	}
	if _, ok := s.Properties.Get("ECHOTEXT"); ok {
		t.Fatal("export parameter leaked into input schema")
	}
	if _, ok := s.Properties.Get("ROWS"); !ok {
		t.Fatal("tables parameter missing from input schema")
	}
	if len(s.Required) != 1 || s.Required[0] != "REQUTEXT" {
		t.Fatalf("required = %v, want [REQUTEXT]", s.Required)
	}

	req, _ := s.Properties.Get("REQUTEXT")
	if req.Type != "string" {
		t.Fatalf("CHAR parameter type = %q, want string", req.Type)
	}
	if req.MaxLength == nil || *req.MaxLength != 255 {
		t.Fatalf("CHAR length not carried into maxLength: %v", req.MaxLength)
	}

	count, _ := s.Properties.Get("COUNT")
	if count.Type != "integer" {
		t.Fatalf("INT parameter type = %q, want integer", count.Type)
	}

	rows, _ := s.Properties.Get("ROWS")
	if rows.Type != "array" || rows.Items == nil {
		t.Fatalf("TABLE parameter should be an array of objects: %+v", rows)
	}
}

func TestOutputSchema(t *testing.T) {
	s := testDescription().OutputSchema()
	if _, ok := s.Properties.Get("ECHOTEXT"); !ok {
		t.Fatal("export parameter missing from output schema")
	}
	if _, ok := s.Properties.Get("REQUTEXT"); ok {
		t.Fatal("import parameter leaked into output schema")
	}
	if len(s.Required) != 1 || s.Required[0] != "ECHOTEXT" {
		t.Fatalf("required = %v, want [ECHOTEXT]", s.Required)
	}
}

func TestParameterLookup(t *testing.T) {
	d := testDescription()
	p, ok := d.Parameter("COUNT")
	if !ok || p.Type != TypeInt {
		t.Fatalf("Parameter lookup failed: %+v ok=%v", p, ok)
	}
	if _, ok := d.Parameter("NOPE"); ok {
		t.Fatal("lookup of absent parameter succeeded")
	}
}
