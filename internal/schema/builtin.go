package schema

// scalarDescriptions holds the built-in scalars every schema starts with.
var scalarDescriptions = map[string]string{
	"String":  "The `String` scalar type represents textual data, represented as UTF-8 character sequences.",
	"Int":     "The `Int` scalar type represents non-fractional signed whole numeric values.",
	"Float":   "The `Float` scalar type represents signed double-precision fractional values.",
	"Boolean": "The `Boolean` scalar type represents `true` or `false`.",
	"ID":      "The `ID` scalar type represents a unique identifier, often used to refetch an object or as a key for caching.",
}

func isBuiltinScalar(name string) bool {
	_, ok := scalarDescriptions[name]
	return ok
}

// isBuiltinDirective reports directives the GraphQL prelude already
// declares.
func isBuiltinDirective(name string) bool {
	switch name {
	case "include", "skip", "deprecated", "specifiedBy", "oneOf":
		return true
	}
	return false
}

// addBuiltins registers fresh copies of the built-in scalars and the
// include and skip directives with s.
func addBuiltins(s *Schema) {
	for name, desc := range scalarDescriptions {
		t := NewType(name, TypeKindScalar, desc)
		t.schema = s
		s.Types[name] = t
	}
	s.Directives["include"] = selectionDirective("include",
		"Directs the executor to include this field or fragment only when the `if` argument is true.",
		"Included when true.")
	s.Directives["skip"] = selectionDirective("skip",
		"Directs the executor to skip this field or fragment when the `if` argument is true.",
		"Skipped when true.")
}

func selectionDirective(name, description, ifDescription string) *Directive {
	d := NewDirective(name, description).
		AddArgument(NewInputValue("if", ifDescription, NonNullType(NamedType("Boolean"))))
	d.Locations = []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"}
	return d
}
