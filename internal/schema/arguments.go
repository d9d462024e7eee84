package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/hanpama/gqlexpr/internal/language"
)

// CoerceArguments converts the arguments of one field invocation into a
// fresh value set. Unknown arguments, and any argument on a field whose
// arguments are internal, yield a *UsageError; values that cannot be coerced
// yield an *ArgumentError.
func (f *Field) CoerceArguments(args language.ArgumentList, variables map[string]any) (map[string]any, error) {
	if f.ArgumentsAreInternal && len(args) > 0 {
		return nil, &UsageError{Field: f.Name, Message: "arguments of this field cannot be supplied"}
	}
	var s *Schema
	if f.FromType != nil {
		s = f.FromType.schema
	}
	coerced := make(map[string]any)
	var problems []string
	for _, arg := range args {
		def := f.Argument(arg.Name)
		if def == nil {
			return nil, &UsageError{Field: f.Name, Message: fmt.Sprintf("unknown argument '%s'", arg.Name)}
		}
		if arg.Value != nil && arg.Value.Kind == language.Variable {
			if _, ok := lookupVariable(variables, arg.Value.Raw); !ok {
				// an absent variable behaves like an absent argument
				continue
			}
		}
		cv, err := s.CoerceValue(ValueFromAST(arg.Value, variables), def.Type)
		if err != nil {
			problems = append(problems, fmt.Sprintf("argument '%s' cannot be coerced: %v", arg.Name, err))
			continue
		}
		coerced[arg.Name] = cv
	}
	for _, def := range f.argumentDefinitions() {
		if _, ok := coerced[def.Name]; ok {
			continue
		}
		if def.DefaultValue != nil {
			coerced[def.Name] = def.DefaultValue
		} else if IsNonNull(def.Type) {
			problems = append(problems, fmt.Sprintf("argument '%s' of required type %s was not provided", def.Name, def.Type))
		}
	}
	if len(problems) > 0 {
		return nil, &ArgumentError{Field: f.Name, Messages: problems}
	}
	return coerced, nil
}

func lookupVariable(variables map[string]any, name string) (any, bool) {
	if v, ok := variables[name]; ok {
		return v, true
	}
	v, ok := variables[strings.TrimPrefix(name, "$")]
	return v, ok
}

// ValueFromAST converts a literal to a Go value, substituting variables.
func ValueFromAST(value *language.Value, variables map[string]any) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case language.Variable:
		v, _ := lookupVariable(variables, value.Raw)
		return v
	case language.IntValue:
		iv, _ := strconv.Atoi(value.Raw)
		return iv
	case language.FloatValue:
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case language.StringValue, language.BlockValue, language.EnumValue:
		return value.Raw
	case language.BooleanValue:
		return value.Raw == "true"
	case language.ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			out[i] = ValueFromAST(c.Value, variables)
		}
		return out
	case language.ObjectValue:
		m := make(map[string]any, len(value.Children))
		for _, c := range value.Children {
			m[c.Name] = ValueFromAST(c.Value, variables)
		}
		return m
	}
	return nil
}

// CoerceValue coerces value to t. Enums and input objects are checked
// against s; a nil schema passes them through unchanged.
func (s *Schema) CoerceValue(value any, t *TypeRef) (any, error) {
	if IsNonNull(t) {
		if value == nil {
			return nil, fmt.Errorf("cannot provide null for non-null type %s", t)
		}
		return s.CoerceValue(value, Unwrap(t))
	}
	if value == nil {
		return nil, nil
	}
	if t.Kind == TypeRefKindList {
		inner := t.OfType
		if items, ok := asList(value); ok {
			out := make([]any, len(items))
			for i, item := range items {
				cv, err := s.CoerceValue(item, inner)
				if err != nil {
					return nil, fmt.Errorf("item %d: %w", i, err)
				}
				out[i] = cv
			}
			return out, nil
		}
		// a single value becomes a list of one
		cv, err := s.CoerceValue(value, inner)
		if err != nil {
			return nil, err
		}
		return []any{cv}, nil
	}

	switch t.Named {
	case "Int":
		return coerceInt(value)
	case "Float":
		return coerceFloat(value)
	case "String":
		if v, ok := value.(string); ok {
			return v, nil
		}
		return nil, fmt.Errorf("cannot coerce %v (%T) to String", value, value)
	case "Boolean":
		if v, ok := value.(bool); ok {
			return v, nil
		}
		return nil, fmt.Errorf("cannot coerce %v (%T) to Boolean", value, value)
	case "ID":
		return coerceID(value)
	}
	if s == nil {
		return value, nil
	}
	named, ok := s.Types[t.Named]
	if !ok {
		return nil, fmt.Errorf("unknown type %s", t.Named)
	}
	switch named.Kind {
	case TypeKindEnum:
		name, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("enum %s expects a name, got %T", named.Name, value)
		}
		for _, v := range named.EnumValues {
			if v.Name == name {
				return name, nil
			}
		}
		return nil, fmt.Errorf("value %q does not exist in enum %s", name, named.Name)
	case TypeKindInputObject:
		return s.coerceInputObject(value, named)
	}
	return value, nil
}

func (s *Schema) coerceInputObject(value any, t *Type) (any, error) {
	in, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("input %s expects an object, got %T", t.Name, value)
	}
	out := make(map[string]any, len(t.InputFields))
	for key := range in {
		found := false
		for _, f := range t.InputFields {
			if f.Name == key {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("field %q is not defined by input %s", key, t.Name)
		}
	}
	for _, f := range t.InputFields {
		v, present := in[f.Name]
		if !present {
			if f.DefaultValue != nil {
				out[f.Name] = f.DefaultValue
			} else if IsNonNull(f.Type) {
				return nil, fmt.Errorf("field %s.%s of required type %s was not provided", t.Name, f.Name, f.Type)
			}
			continue
		}
		cv, err := s.CoerceValue(v, f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", t.Name, f.Name, err)
		}
		out[f.Name] = cv
	}
	if t.OneOf && len(out) != 1 {
		return nil, fmt.Errorf("input %s requires exactly one field", t.Name)
	}
	return out, nil
}

func asList(value any) ([]any, bool) {
	if items, ok := value.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func coerceInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}
	case float32:
		if v == float32(int(v)) {
			return int(v), nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Int", value, value)
}

func coerceFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Float", value, value)
}

func coerceID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10), nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to ID", value, value)
}
