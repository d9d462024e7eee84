package schema

import (
	"fmt"
	"strings"

	"github.com/hanpama/gqlexpr/internal/language"
)

// BuildFromSDL declares the types of an SDL document. Fields resolve to the
// parent member of the same name until SetResolve or UpdateExpression gives
// them an expression. The returned schema is not frozen.
func BuildFromSDL(sdl string) (*Schema, error) {
	doc, err := language.LoadSchema("schema.graphql", sdl)
	if err != nil {
		return nil, fmt.Errorf("load sdl: %w", err)
	}
	s := NewSchema("")
	s.QueryType = ""
	if doc.Query != nil {
		s.QueryType = doc.Query.Name
	}
	if doc.Mutation != nil {
		s.MutationType = doc.Mutation.Name
	}
	if doc.Subscription != nil {
		s.SubscriptionType = doc.Subscription.Name
	}
	for name, def := range doc.Types {
		if def.BuiltIn {
			continue
		}
		t, err := buildType(def)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", name, err)
		}
		s.AddType(t)
	}
	for name, def := range doc.Directives {
		if def.Position != nil && def.Position.Src != nil && def.Position.Src.BuiltIn {
			continue
		}
		d := NewDirective(name, def.Description).SetRepeatable(def.IsRepeatable)
		for _, loc := range def.Locations {
			d.Locations = append(d.Locations, string(loc))
		}
		for _, arg := range def.Arguments {
			d.AddArgument(buildInputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue, arg.Directives))
		}
		s.AddDirective(d)
	}
	return s, nil
}

func buildType(def *language.Definition) (*Type, error) {
	switch def.Kind {
	case language.Object, language.Interface:
		kind := TypeKindObject
		if def.Kind == language.Interface {
			kind = TypeKindInterface
		}
		t := NewType(def.Name, kind, def.Description)
		for _, name := range def.Interfaces {
			t.AddInterface(name)
		}
		for _, fd := range def.Fields {
			if strings.HasPrefix(fd.Name, "__") {
				continue
			}
			f := NewField(fd.Name, fd.Description, TypeRefFromAST(fd.Type))
			if dep := fd.Directives.ForName("deprecated"); dep != nil {
				f.Deprecate(deprecationReason(dep))
			}
			for _, arg := range fd.Arguments {
				f.AddArgument(buildInputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue, arg.Directives))
			}
			t.AddField(f)
		}
		return t, nil
	case language.Union:
		t := NewType(def.Name, TypeKindUnion, def.Description)
		for _, name := range def.Types {
			t.AddPossibleType(name)
		}
		return t, nil
	case language.Enum:
		t := NewType(def.Name, TypeKindEnum, def.Description)
		for _, v := range def.EnumValues {
			ev := NewEnumValue(v.Name, v.Description)
			if dep := v.Directives.ForName("deprecated"); dep != nil {
				ev.Deprecate(deprecationReason(dep))
			}
			t.AddEnumValue(ev)
		}
		return t, nil
	case language.InputObject:
		t := NewType(def.Name, TypeKindInputObject, def.Description)
		t.SetOneOf(def.Directives.ForName("oneOf") != nil)
		for _, fd := range def.Fields {
			t.AddInputField(buildInputValue(fd.Name, fd.Description, fd.Type, fd.DefaultValue, fd.Directives))
		}
		return t, nil
	case language.Scalar:
		return NewType(def.Name, TypeKindScalar, def.Description), nil
	}
	return nil, fmt.Errorf("unsupported definition kind %s", def.Kind)
}

func buildInputValue(name, description string, t *language.Type, def *language.Value, directives language.DirectiveList) *InputValue {
	in := NewInputValue(name, description, TypeRefFromAST(t))
	if def != nil {
		in.SetDefault(ValueFromAST(def, nil))
	}
	if dep := directives.ForName("deprecated"); dep != nil {
		in.Deprecate(deprecationReason(dep))
	}
	return in
}

func deprecationReason(d *language.Directive) string {
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw
	}
	return ""
}
