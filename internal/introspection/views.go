package introspection

import (
	"context"
	"fmt"
	"sort"

	schema "github.com/hanpama/gqlexpr/internal/schema"
)

// The views below expose schema definitions to the expression evaluator as
// expr.MemberReader values. Members taking arguments are read through the
// Call expressions built in schema.go instead.

type schemaView struct {
	schema *schema.Schema
	meta   *schema.Schema
}

func (v *schemaView) String() string { return "__Schema" }

func (v *schemaView) lookup(name string) *schema.Type {
	if t, ok := v.schema.Types[name]; ok {
		return t
	}
	return v.meta.Types[name]
}

func (v *schemaView) typeView(t *schema.Type) any {
	if t == nil {
		return nil
	}
	return &typeView{root: v, def: t}
}

func (v *schemaView) ReadMember(name string) (any, bool) {
	switch name {
	case "types":
		return v.types(), true
	case "queryType":
		return v.typeView(v.schema.GetQueryType()), true
	case "mutationType":
		return v.typeView(v.schema.GetMutationType()), true
	case "subscriptionType":
		return v.typeView(v.schema.GetSubscriptionType()), true
	case "directives":
		return v.directives(), true
	case "description":
		return optional(v.schema.Description), true
	}
	return nil, false
}

func (v *schemaView) types() []any {
	seen := map[string]bool{}
	var defs []*schema.Type
	for _, s := range []*schema.Schema{v.schema, v.meta} {
		for name, t := range s.Types {
			if !seen[name] {
				seen[name] = true
				defs = append(defs, t)
			}
		}
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	out := make([]any, len(defs))
	for i, t := range defs {
		out[i] = v.typeView(t)
	}
	return out
}

func (v *schemaView) directives() []any {
	dirs := make([]*schema.Directive, 0, len(v.schema.Directives))
	for _, d := range v.schema.Directives {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })
	out := make([]any, len(dirs))
	for i, d := range dirs {
		out[i] = &directiveView{root: v, def: d}
	}
	return out
}

// typeRef returns the view of a possibly wrapped type reference.
func (v *schemaView) typeRef(ref *schema.TypeRef) any {
	if ref == nil {
		return nil
	}
	if ref.Kind == schema.TypeRefKindNamed {
		return v.typeView(v.lookup(ref.Named))
	}
	return &wrapperView{root: v, ref: ref}
}

type typeView struct {
	root *schemaView
	def  *schema.Type
}

func (v *typeView) ReadMember(name string) (any, bool) {
	t := v.def
	switch name {
	case "kind":
		return string(t.Kind), true
	case "name":
		return t.Name, true
	case "description":
		return optional(t.Description), true
	case "specifiedByURL":
		return t.SpecifiedByURL, true
	case "interfaces":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil, true
		}
		return v.named(t.Interfaces), true
	case "possibleTypes":
		if t.Kind != schema.TypeKindInterface && t.Kind != schema.TypeKindUnion {
			return nil, true
		}
		return v.named(t.PossibleTypes), true
	case "isOneOf":
		return t.OneOf, true
	case "ofType":
		return nil, true
	}
	return nil, false
}

func (v *typeView) named(names []string) []any {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	out := []any{}
	for _, name := range sorted {
		if def := v.root.lookup(name); def != nil {
			out = append(out, v.root.typeView(def))
		}
	}
	return out
}

func (v *typeView) fields(includeDeprecated bool) any {
	if v.def.Kind != schema.TypeKindObject && v.def.Kind != schema.TypeKindInterface {
		return nil
	}
	out := []any{}
	for _, f := range v.def.Fields {
		if f.IsDeprecated && !includeDeprecated {
			continue
		}
		out = append(out, &fieldView{root: v.root, def: f})
	}
	return out
}

func (v *typeView) enumValues(includeDeprecated bool) any {
	if v.def.Kind != schema.TypeKindEnum {
		return nil
	}
	out := []any{}
	for _, ev := range v.def.EnumValues {
		if ev.IsDeprecated && !includeDeprecated {
			continue
		}
		out = append(out, &enumValueView{def: ev})
	}
	return out
}

func (v *typeView) inputFields(includeDeprecated bool) any {
	if v.def.Kind != schema.TypeKindInputObject {
		return nil
	}
	return v.root.inputValues(v.def.InputFields, includeDeprecated)
}

func (v *schemaView) inputValues(values []*schema.InputValue, includeDeprecated bool) []any {
	out := []any{}
	for _, iv := range values {
		if iv.IsDeprecated && !includeDeprecated {
			continue
		}
		out = append(out, &inputValueView{root: v, def: iv})
	}
	return out
}

// wrapperView is a LIST or NON_NULL type.
type wrapperView struct {
	root *schemaView
	ref  *schema.TypeRef
}

func (v *wrapperView) ReadMember(name string) (any, bool) {
	switch name {
	case "kind":
		return string(v.ref.Kind), true
	case "ofType":
		return v.root.typeRef(v.ref.OfType), true
	case "name", "description", "specifiedByURL", "interfaces", "possibleTypes":
		return nil, true
	case "isOneOf":
		return false, true
	}
	return nil, false
}

type fieldView struct {
	root *schemaView
	def  *schema.Field
}

func (v *fieldView) ReadMember(name string) (any, bool) {
	f := v.def
	switch name {
	case "name":
		return f.Name, true
	case "description":
		return optional(f.Description), true
	case "type":
		return v.root.typeRef(f.Type), true
	case "isDeprecated":
		return f.IsDeprecated, true
	case "deprecationReason":
		return deprecation(f.IsDeprecated, f.DeprecationReason), true
	}
	return nil, false
}

type inputValueView struct {
	root *schemaView
	def  *schema.InputValue
}

func (v *inputValueView) ReadMember(name string) (any, bool) {
	iv := v.def
	switch name {
	case "name":
		return iv.Name, true
	case "description":
		return optional(iv.Description), true
	case "type":
		return v.root.typeRef(iv.Type), true
	case "defaultValue":
		if iv.DefaultValue == nil {
			return nil, true
		}
		return schema.RenderValue(iv.DefaultValue), true
	case "isDeprecated":
		return iv.IsDeprecated, true
	case "deprecationReason":
		return deprecation(iv.IsDeprecated, iv.DeprecationReason), true
	}
	return nil, false
}

type enumValueView struct {
	def *schema.EnumValue
}

func (v *enumValueView) ReadMember(name string) (any, bool) {
	switch name {
	case "name":
		return v.def.Name, true
	case "description":
		return optional(v.def.Description), true
	case "isDeprecated":
		return v.def.IsDeprecated, true
	case "deprecationReason":
		return deprecation(v.def.IsDeprecated, v.def.DeprecationReason), true
	}
	return nil, false
}

type directiveView struct {
	root *schemaView
	def  *schema.Directive
}

func (v *directiveView) ReadMember(name string) (any, bool) {
	d := v.def
	switch name {
	case "name":
		return d.Name, true
	case "description":
		return optional(d.Description), true
	case "isRepeatable":
		return d.IsRepeatable, true
	case "locations":
		locs := append([]string(nil), d.Locations...)
		sort.Strings(locs)
		return locs, true
	}
	return nil, false
}

// --- functions called by the meta schema ---

func typeFields(_ context.Context, args []any) (any, error) {
	switch v := args[0].(type) {
	case *typeView:
		return v.fields(boolArg(args[1])), nil
	case *wrapperView:
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected type value %T", args[0])
}

func typeEnumValues(_ context.Context, args []any) (any, error) {
	switch v := args[0].(type) {
	case *typeView:
		return v.enumValues(boolArg(args[1])), nil
	case *wrapperView:
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected type value %T", args[0])
}

func typeInputFields(_ context.Context, args []any) (any, error) {
	switch v := args[0].(type) {
	case *typeView:
		return v.inputFields(boolArg(args[1])), nil
	case *wrapperView:
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected type value %T", args[0])
}

func fieldArgs(_ context.Context, args []any) (any, error) {
	v, ok := args[0].(*fieldView)
	if !ok {
		return nil, fmt.Errorf("unexpected field value %T", args[0])
	}
	return v.root.inputValues(v.def.Arguments, boolArg(args[1])), nil
}

func directiveArgs(_ context.Context, args []any) (any, error) {
	v, ok := args[0].(*directiveView)
	if !ok {
		return nil, fmt.Errorf("unexpected directive value %T", args[0])
	}
	return v.root.inputValues(v.def.Arguments, boolArg(args[1])), nil
}

func lookupType(_ context.Context, args []any) (any, error) {
	root := args[0].(*schemaView)
	name, _ := args[1].(string)
	return root.typeView(root.lookup(name)), nil
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deprecation(deprecated bool, reason string) any {
	if !deprecated {
		return nil
	}
	return reason
}

func boolArg(v any) bool {
	b, _ := v.(bool)
	return b
}
