// Package introspection builds the meta schema answering __schema and
// __type queries. The meta schema is handed to the executor with
// executor.WithMetaSchema; its fields read schema definitions through
// in-process views, so introspection never reaches a data source's storage.
package introspection

import (
	expr "github.com/hanpama/gqlexpr/internal/expr"
	schema "github.com/hanpama/gqlexpr/internal/schema"
)

var (
	str         = schema.NamedType("String")
	nonNullStr  = schema.NonNullType(schema.NamedType("String"))
	nonNullBool = schema.NonNullType(schema.NamedType("Boolean"))
)

func listOf(name string) *schema.TypeRef {
	return schema.ListType(schema.NonNullType(schema.NamedType(name)))
}

// NewMetaSchema returns the meta schema describing s. It is not frozen:
// gqlparser reserves the double underscore names for itself, and documents
// are validated against s, whose validation schema already knows them.
func NewMetaSchema(s *schema.Schema) *schema.Schema {
	meta := schema.NewSchema("")
	view := &schemaView{schema: s, meta: meta}

	meta.AddType(schemaType())
	meta.AddType(typeType())
	meta.AddType(fieldType())
	meta.AddType(inputValueType())
	meta.AddType(enumValueType())
	meta.AddType(directiveType())
	meta.AddType(enumType("__TypeKind", "An enum describing what kind of type a given `__Type` is.",
		"SCALAR", "OBJECT", "INTERFACE", "UNION", "ENUM", "INPUT_OBJECT", "LIST", "NON_NULL"))
	meta.AddType(enumType("__DirectiveLocation", "A Directive can be adjacent to many parts of the GraphQL language.",
		"QUERY", "MUTATION", "SUBSCRIPTION", "FIELD", "FRAGMENT_DEFINITION", "FRAGMENT_SPREAD",
		"INLINE_FRAGMENT", "VARIABLE_DEFINITION", "SCHEMA", "SCALAR", "OBJECT", "FIELD_DEFINITION",
		"ARGUMENT_DEFINITION", "INTERFACE", "UNION", "ENUM", "ENUM_VALUE", "INPUT_OBJECT",
		"INPUT_FIELD_DEFINITION"))

	meta.Query().
		AddField(schema.NewField("__schema", "Access the current type schema of this server.",
			schema.NonNullType(schema.NamedType("__Schema"))).
			SetResolve(func(_, _ *expr.Param) expr.Expr { return expr.Const(view) })).
		AddField(schema.NewField("__type", "Request the type information of a single type.",
			schema.NamedType("__Type")).
			AddArgument(schema.NewInputValue("name", "The name of the type to look up.", nonNullStr)).
			SetResolve(func(_, args *expr.Param) expr.Expr {
				return expr.Call("__type", lookupType, expr.Const(view), expr.Member(args, "name"))
			}))
	return meta
}

// withIncludeDeprecated adds the includeDeprecated argument and resolves the
// field by calling fn with the parent view and the argument value.
func withIncludeDeprecated(f *schema.Field, fn expr.Func) *schema.Field {
	return f.
		AddArgument(schema.NewInputValue("includeDeprecated", "", schema.NamedType("Boolean")).SetDefault(false)).
		SetResolve(func(src, args *expr.Param) expr.Expr {
			return expr.Call(f.Name, fn, src, expr.Member(args, "includeDeprecated"))
		})
}

func schemaType() *schema.Type {
	return schema.NewType("__Schema", schema.TypeKindObject, "A GraphQL Schema defines the capabilities of a GraphQL server.").
		AddField(schema.NewField("description", "A description of the schema.", str)).
		AddField(schema.NewField("types", "A list of all types supported by this server.", schema.NonNullType(listOf("__Type")))).
		AddField(schema.NewField("queryType", "The type that query operations will be rooted at.", schema.NonNullType(schema.NamedType("__Type")))).
		AddField(schema.NewField("mutationType", "If this server supports mutation, the type that mutation operations will be rooted at.", schema.NamedType("__Type"))).
		AddField(schema.NewField("subscriptionType", "If this server support subscription, the type that subscription operations will be rooted at.", schema.NamedType("__Type"))).
		AddField(schema.NewField("directives", "A list of all directives supported by this server.", schema.NonNullType(listOf("__Directive"))))
}

func typeType() *schema.Type {
	return schema.NewType("__Type", schema.TypeKindObject, "The fundamental unit of any GraphQL Schema is the type.").
		AddField(schema.NewField("kind", "", schema.NonNullType(schema.NamedType("__TypeKind")))).
		AddField(schema.NewField("name", "", str)).
		AddField(schema.NewField("description", "", str)).
		AddField(schema.NewField("specifiedByURL", "", str)).
		AddField(withIncludeDeprecated(schema.NewField("fields", "", listOf("__Field")), typeFields)).
		AddField(schema.NewField("interfaces", "", listOf("__Type"))).
		AddField(schema.NewField("possibleTypes", "", listOf("__Type"))).
		AddField(withIncludeDeprecated(schema.NewField("enumValues", "", listOf("__EnumValue")), typeEnumValues)).
		AddField(withIncludeDeprecated(schema.NewField("inputFields", "", listOf("__InputValue")), typeInputFields)).
		AddField(schema.NewField("ofType", "", schema.NamedType("__Type"))).
		AddField(schema.NewField("isOneOf", "", schema.NamedType("Boolean")))
}

func fieldType() *schema.Type {
	return schema.NewType("__Field", schema.TypeKindObject, "Object and Interface types are described by a list of Fields, each of which has a name, potentially a list of arguments, and a return type.").
		AddField(schema.NewField("name", "", nonNullStr)).
		AddField(schema.NewField("description", "", str)).
		AddField(withIncludeDeprecated(schema.NewField("args", "", schema.NonNullType(listOf("__InputValue"))), fieldArgs)).
		AddField(schema.NewField("type", "", schema.NonNullType(schema.NamedType("__Type")))).
		AddField(schema.NewField("isDeprecated", "", nonNullBool)).
		AddField(schema.NewField("deprecationReason", "", str))
}

func inputValueType() *schema.Type {
	return schema.NewType("__InputValue", schema.TypeKindObject, "Arguments provided to Fields or Directives and the input fields of an InputObject are represented as Input Values which describe their type and optionally a default value.").
		AddField(schema.NewField("name", "", nonNullStr)).
		AddField(schema.NewField("description", "", str)).
		AddField(schema.NewField("type", "", schema.NonNullType(schema.NamedType("__Type")))).
		AddField(schema.NewField("defaultValue", "A GraphQL-formatted string representing the default value for this input value.", str)).
		AddField(schema.NewField("isDeprecated", "", nonNullBool)).
		AddField(schema.NewField("deprecationReason", "", str))
}

func enumValueType() *schema.Type {
	return schema.NewType("__EnumValue", schema.TypeKindObject, "One possible value for a given Enum.").
		AddField(schema.NewField("name", "", nonNullStr)).
		AddField(schema.NewField("description", "", str)).
		AddField(schema.NewField("isDeprecated", "", nonNullBool)).
		AddField(schema.NewField("deprecationReason", "", str))
}

func directiveType() *schema.Type {
	return schema.NewType("__Directive", schema.TypeKindObject, "A Directive provides a way to describe alternate runtime execution and type validation behavior in a GraphQL document.").
		AddField(schema.NewField("name", "", nonNullStr)).
		AddField(schema.NewField("description", "", str)).
		AddField(schema.NewField("isRepeatable", "", nonNullBool)).
		AddField(schema.NewField("locations", "", schema.NonNullType(listOf("__DirectiveLocation")))).
		AddField(withIncludeDeprecated(schema.NewField("args", "", schema.NonNullType(listOf("__InputValue"))), directiveArgs))
}

func enumType(name, description string, values ...string) *schema.Type {
	t := schema.NewType(name, schema.TypeKindEnum, description)
	for _, v := range values {
		t.AddEnumValue(schema.NewEnumValue(v, ""))
	}
	return t
}
