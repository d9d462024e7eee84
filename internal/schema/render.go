package schema

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Render produces SDL from the Schema, including types registered by field
// extensions. Type and directive names are sorted; built-in scalars and
// directives are left out.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	w := &sdlWriter{}
	w.schemaBlock(s)
	for _, name := range slices.Sorted(maps.Keys(s.Types)) {
		t := s.Types[name]
		if t.Kind == TypeKindScalar && isBuiltinScalar(name) {
			continue
		}
		w.typeDefinition(t)
	}
	for _, name := range slices.Sorted(maps.Keys(s.Directives)) {
		if isBuiltinDirective(name) {
			continue
		}
		w.directive(s.Directives[name])
	}
	return strings.TrimRight(w.String(), "\n") + "\n"
}

type sdlWriter struct {
	strings.Builder
}

func (w *sdlWriter) printf(format string, args ...any) {
	fmt.Fprintf(&w.Builder, format, args...)
}

// schemaBlock is only written when a root type has a non-default name.
func (w *sdlWriter) schemaBlock(s *Schema) {
	roots := []struct{ op, name, def string }{
		{"query", s.QueryType, "Query"},
		{"mutation", s.MutationType, "Mutation"},
		{"subscription", s.SubscriptionType, "Subscription"},
	}
	custom := s.QueryType != "Query"
	for _, r := range roots[1:] {
		custom = custom || (r.name != "" && r.name != r.def)
	}
	if !custom {
		return
	}
	w.WriteString("schema {\n")
	for _, r := range roots {
		if r.name != "" {
			w.printf("  %s: %s\n", r.op, r.name)
		}
	}
	w.WriteString("}\n\n")
}

func (w *sdlWriter) description(desc string) {
	if desc != "" {
		w.printf("\"\"\"\n%s\n\"\"\"\n", strings.ReplaceAll(desc, `"`, `\"`))
	}
}

func (w *sdlWriter) deprecation(deprecated bool, reason string) {
	switch {
	case !deprecated:
	case reason == "":
		w.WriteString(" @deprecated")
	default:
		w.printf(" @deprecated(reason: %s)", strconv.Quote(reason))
	}
}

// inputValue writes "name: Type = default" plus any deprecation.
func (w *sdlWriter) inputValue(iv *InputValue) {
	w.printf("%s: %s", iv.Name, iv.Type)
	if iv.DefaultValue != nil {
		w.printf(" = %s", RenderValue(iv.DefaultValue))
	}
	w.deprecation(iv.IsDeprecated, iv.DeprecationReason)
}

func (w *sdlWriter) arguments(args []*InputValue) {
	if len(args) == 0 {
		return
	}
	w.WriteByte('(')
	for i, arg := range args {
		if i > 0 {
			w.WriteString(", ")
		}
		w.inputValue(arg)
	}
	w.WriteByte(')')
}

func (w *sdlWriter) typeDefinition(t *Type) {
	w.description(t.Description)
	switch t.Kind {
	case TypeKindScalar:
		w.printf("scalar %s", t.Name)
		if t.SpecifiedByURL != nil {
			w.printf(" @specifiedBy(url: %q)", *t.SpecifiedByURL)
		}
		w.WriteString("\n\n")

	case TypeKindUnion:
		w.printf("union %s = %s\n\n", t.Name, strings.Join(t.PossibleTypes, " | "))

	case TypeKindEnum:
		w.printf("enum %s {\n", t.Name)
		for _, v := range t.EnumValues {
			w.description(v.Description)
			w.printf("  %s", v.Name)
			w.deprecation(v.IsDeprecated, v.DeprecationReason)
			w.WriteByte('\n')
		}
		w.WriteString("}\n\n")

	case TypeKindInputObject:
		w.printf("input %s", t.Name)
		if t.OneOf {
			w.WriteString(" @oneOf")
		}
		w.WriteString(" {\n")
		for _, f := range t.InputFields {
			w.description(f.Description)
			w.WriteString("  ")
			w.inputValue(f)
			w.WriteByte('\n')
		}
		w.WriteString("}\n\n")

	case TypeKindObject, TypeKindInterface:
		keyword := "type"
		if t.Kind == TypeKindInterface {
			keyword = "interface"
		}
		w.printf("%s %s", keyword, t.Name)
		if len(t.Interfaces) > 0 {
			w.printf(" implements %s", strings.Join(t.Interfaces, " & "))
		}
		w.WriteString(" {\n")
		for _, f := range t.Fields {
			w.description(f.Description)
			w.printf("  %s", f.Name)
			w.arguments(f.Arguments)
			w.printf(": %s", f.Type)
			w.deprecation(f.IsDeprecated, f.DeprecationReason)
			w.WriteByte('\n')
		}
		w.WriteString("}\n\n")
	}
}

func (w *sdlWriter) directive(d *Directive) {
	w.description(d.Description)
	w.printf("directive @%s", d.Name)
	w.arguments(d.Arguments)
	if d.IsRepeatable {
		w.WriteString(" repeatable")
	}
	locations := make([]string, len(d.Locations))
	for i, l := range d.Locations {
		locations[i] = string(l)
	}
	w.printf(" on %s\n\n", strings.Join(locations, " | "))
}

func renderTypeRef(t *TypeRef) string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case TypeRefKindNamed:
		return t.Named
	case TypeRefKindList:
		return "[" + renderTypeRef(t.OfType) + "]"
	case TypeRefKindNonNull:
		return renderTypeRef(t.OfType) + "!"
	}
	return ""
}

// RenderValue renders a Go value as a GraphQL literal for default values and
// directive arguments.
func RenderValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = RenderValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := slices.Sorted(maps.Keys(v))
		for i, k := range keys {
			keys[i] = k + ": " + RenderValue(v[k])
		}
		return "{" + strings.Join(keys, ", ") + "}"
	}
	return fmt.Sprint(value)
}
