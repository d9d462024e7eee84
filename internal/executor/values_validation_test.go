package executor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"

	language "github.com/hanpama/gqlexpr/internal/language"
	schema "github.com/hanpama/gqlexpr/internal/schema"
)

func filterSchema() *schema.Schema {
	sch := schema.NewSchema("")
	sch.AddType(schema.NewType("FilterInput", schema.TypeKindInputObject, "").
		AddInputField(schema.NewInputValue("required", "", schema.NonNullType(schema.NamedType("String")))).
		AddInputField(schema.NewInputValue("optional", "", schema.NamedType("Int"))))
	return sch
}

func operationWith(defs ...*ast.VariableDefinition) *language.OperationDefinition {
	return &language.OperationDefinition{Operation: language.Query, VariableDefinitions: defs}
}

func TestCoerceVariableValues(t *testing.T) {
	tests := []struct {
		name    string
		def     *ast.VariableDefinition
		vars    map[string]any
		want    map[string]any
		wantErr string
	}{
		{
			name: "input object",
			def:  &ast.VariableDefinition{Variable: "input", Type: ast.NonNullNamedType("FilterInput", nil)},
			vars: map[string]any{"input": map[string]any{"required": "x", "optional": float64(2)}},
			want: map[string]any{"input": map[string]any{"required": "x", "optional": 2}},
		},
		{
			name:    "input object missing a required field",
			def:     &ast.VariableDefinition{Variable: "input", Type: ast.NonNullNamedType("FilterInput", nil)},
			vars:    map[string]any{"input": map[string]any{"optional": 10}},
			wantErr: "FilterInput.required of required type String! was not provided",
		},
		{
			name:    "scalar type mismatch",
			def:     &ast.VariableDefinition{Variable: "count", Type: ast.NonNullNamedType("Int", nil)},
			vars:    map[string]any{"count": "42"},
			wantErr: "cannot coerce",
		},
		{
			name: "absent nullable variable is left out",
			def:  &ast.VariableDefinition{Variable: "count", Type: ast.NamedType("Int", nil)},
			want: map[string]any{},
		},
		{
			name: "explicit null for a nullable variable",
			def:  &ast.VariableDefinition{Variable: "count", Type: ast.NamedType("Int", nil)},
			vars: map[string]any{"count": nil},
			want: map[string]any{"count": nil},
		},
		{
			name: "default value",
			def: &ast.VariableDefinition{
				Variable:     "count",
				Type:         ast.NamedType("Int", nil),
				DefaultValue: &ast.Value{Kind: ast.IntValue, Raw: "7"},
			},
			want: map[string]any{"count": 7},
		},
		{
			name: "list of ids",
			def:  &ast.VariableDefinition{Variable: "ids", Type: ast.ListType(ast.NonNullNamedType("ID", nil), nil)},
			vars: map[string]any{"ids": []any{"1", float64(2)}},
			want: map[string]any{"ids": []any{"1", "2"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerceVariableValues(filterSchema(), operationWith(tt.def), tt.vars)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("coerced variables mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

type teamName string

func TestSerializeLeafValue(t *testing.T) {
	sch := schema.NewSchema("")
	status := schema.NewType("Status", schema.TypeKindEnum, "").
		AddEnumValue(schema.NewEnumValue("ACTIVE", "")).
		AddEnumValue(schema.NewEnumValue("DONE", ""))
	sch.AddType(status)
	leaf := func(name string) *schema.Type { return sch.Types[name] }

	n := 5
	tests := []struct {
		name    string
		typ     *schema.Type
		value   any
		want    any
		wantErr string
	}{
		{name: "pointer to int", typ: leaf("Int"), value: &n, want: 5},
		{name: "nil pointer", typ: leaf("Int"), value: (*int)(nil), want: nil},
		{name: "uint", typ: leaf("Int"), value: uint8(9), want: 9},
		{name: "integral float", typ: leaf("Int"), value: 4.0, want: 4},
		{name: "fractional float", typ: leaf("Int"), value: 4.5, wantErr: "non-integer"},
		{name: "int overflow", typ: leaf("Int"), value: int64(1) << 40, wantErr: "non 32-bit"},
		{name: "float from int", typ: leaf("Float"), value: 3, want: 3.0},
		{name: "named string type", typ: leaf("String"), value: teamName("core"), want: "core"},
		{name: "bytes", typ: leaf("String"), value: []byte("raw"), want: "raw"},
		{name: "boolean", typ: leaf("Boolean"), value: true, want: true},
		{name: "numeric id", typ: leaf("ID"), value: uint(12), want: "12"},
		{name: "enum value", typ: status, value: "DONE", want: "DONE"},
		{name: "unknown enum value", typ: status, value: "LOST", wantErr: `enum Status has no value "LOST"`},
		{name: "boolean from string", typ: leaf("Boolean"), value: "yes", wantErr: "Boolean cannot represent yes (string)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := serializeLeafValue(tt.typ, tt.value)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
