package schema

import (
	"fmt"
	"sort"

	"github.com/hanpama/gqlexpr/internal/authz"
	"github.com/hanpama/gqlexpr/internal/expr"
	"github.com/hanpama/gqlexpr/internal/language"
)

// Schema represents the complete GraphQL schema
type Schema struct {
	QueryType        string
	MutationType     string
	SubscriptionType string
	Types            map[string]*Type // All named types keyed by name
	Directives       map[string]*Directive
	Description      string

	// ContextParam stands for the root data context. Root fields are
	// rebased onto it and executors bind it to the root value.
	ContextParam *expr.Param

	frozen     bool
	validation *language.Schema
}

// NewSchema creates a schema with the built-in scalars and directives and a
// root query type named "Query".
func NewSchema(description string) *Schema {
	s := &Schema{
		QueryType:    "Query",
		Types:        map[string]*Type{},
		Directives:   map[string]*Directive{},
		Description:  description,
		ContextParam: expr.NewParam("ctx"),
	}
	addBuiltins(s)
	return s
}

func (s *Schema) mutable() {
	if s.frozen {
		panic("schema: modified after Freeze")
	}
}

// AddType registers t, replacing any type of the same name.
func (s *Schema) AddType(t *Type) *Schema {
	s.mutable()
	t.schema = s
	s.Types[t.Name] = t
	return s
}

func (s *Schema) AddDirective(d *Directive) *Schema {
	s.mutable()
	s.Directives[d.Name] = d
	return s
}

// Query returns the root query type, creating it when missing.
func (s *Schema) Query() *Type { return s.rootType(&s.QueryType, "Query") }

// Mutation returns the root mutation type, creating it when missing.
func (s *Schema) Mutation() *Type { return s.rootType(&s.MutationType, "Mutation") }

func (s *Schema) rootType(name *string, def string) *Type {
	if *name == "" {
		s.mutable()
		*name = def
	}
	if t, ok := s.Types[*name]; ok {
		return t
	}
	t := NewType(*name, TypeKindObject, "")
	s.AddType(t)
	return t
}

// GetQueryType returns the root query type (may be nil if absent)
func (s *Schema) GetQueryType() *Type { return s.Types[s.QueryType] }

// GetMutationType returns the root mutation type (may be nil if absent)
func (s *Schema) GetMutationType() *Type { return s.Types[s.MutationType] }

// GetSubscriptionType returns the root subscription type (may be nil if absent)
func (s *Schema) GetSubscriptionType() *Type { return s.Types[s.SubscriptionType] }

// Freeze configures field extensions in registration order, stamps root
// field kinds and validates the rendered SDL. Afterwards the schema and its
// fields are read-only and safe to share between executions.
func (s *Schema) Freeze() error {
	if s.frozen {
		return nil
	}
	names := make([]string, 0, len(s.Types))
	for name := range s.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	s.stamp()
	// Extensions may register helper types, so iterate a snapshot.
	for _, name := range names {
		for _, f := range s.Types[name].Fields {
			for _, ext := range f.Extensions {
				if err := ext.Configure(s, f); err != nil {
					return fmt.Errorf("configure %s.%s: %w", name, f.Name, err)
				}
			}
		}
	}
	s.stamp()
	v, err := language.LoadSchema("schema.graphql", Render(s))
	if err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}
	s.validation = v
	s.frozen = true
	for _, t := range s.Types {
		for _, f := range t.Fields {
			f.frozen = true
		}
	}
	return nil
}

func (s *Schema) stamp() {
	for _, t := range s.Types {
		t.schema = s
		for _, f := range t.Fields {
			f.FromType = t
			f.FieldType = s.fieldTypeOf(t)
		}
	}
}

func (s *Schema) Frozen() bool { return s.frozen }

// ValidationSchema returns the gqlparser schema used to validate documents.
// It is nil until Freeze succeeds.
func (s *Schema) ValidationSchema() *language.Schema { return s.validation }

func (s *Schema) fieldTypeOf(t *Type) QueryFieldType {
	switch t.Name {
	case s.MutationType:
		if s.MutationType != "" {
			return FieldTypeMutation
		}
	case s.SubscriptionType:
		if s.SubscriptionType != "" {
			return FieldTypeSubscription
		}
	}
	return FieldTypeQuery
}

// Type is a named GraphQL type (object, interface, union, scalar, enum, input)
type Type struct {
	Name           string
	Kind           TypeKind
	Description    string
	Fields         []*Field      // For OBJECT and INTERFACE
	Interfaces     []string      // For OBJECT and INTERFACE (implemented/extended)
	PossibleTypes  []string      // For INTERFACE and UNION
	EnumValues     []*EnumValue  // For ENUM
	InputFields    []*InputValue // For INPUT_OBJECT
	SpecifiedByURL *string
	OneOf          bool

	// Authorization applies to every field of the type.
	Authorization *authz.RequiredAuthorization

	schema *Schema
}

func NewType(name string, kind TypeKind, description string) *Type {
	return &Type{Name: name, Kind: kind, Description: description}
}

func (t *Type) mutable() {
	if t.schema != nil {
		t.schema.mutable()
	}
}

// AddField attaches f, replacing a field of the same name.
func (t *Type) AddField(f *Field) *Type {
	t.mutable()
	f.FromType = t
	for i, existing := range t.Fields {
		if existing.Name == f.Name {
			t.Fields[i] = f
			return t
		}
	}
	t.Fields = append(t.Fields, f)
	return t
}

// Field returns the named field or nil.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (t *Type) AddInterface(name string) *Type {
	t.mutable()
	t.Interfaces = append(t.Interfaces, name)
	return t
}

func (t *Type) AddPossibleType(name string) *Type {
	t.mutable()
	t.PossibleTypes = append(t.PossibleTypes, name)
	return t
}

func (t *Type) AddEnumValue(v *EnumValue) *Type {
	t.mutable()
	t.EnumValues = append(t.EnumValues, v)
	return t
}

func (t *Type) AddInputField(v *InputValue) *Type {
	t.mutable()
	t.InputFields = append(t.InputFields, v)
	return t
}

func (t *Type) SetOneOf(oneOf bool) *Type {
	t.mutable()
	t.OneOf = oneOf
	return t
}

func (t *Type) RequiresAnyRole(roles ...string) *Type {
	t.mutable()
	t.authorization().RequireAnyRole(roles...)
	return t
}

func (t *Type) RequiresAllRoles(roles ...string) *Type {
	t.mutable()
	t.authorization().RequireAllRoles(roles...)
	return t
}

func (t *Type) authorization() *authz.RequiredAuthorization {
	if t.Authorization == nil {
		t.Authorization = &authz.RequiredAuthorization{}
	}
	return t.Authorization
}

// Implements reports whether t declares the named interface.
func (t *Type) Implements(name string) bool {
	for _, i := range t.Interfaces {
		if i == name {
			return true
		}
	}
	return false
}

func (t *Type) IsComposite() bool {
	return t.Kind == TypeKindObject || t.Kind == TypeKindInterface || t.Kind == TypeKindUnion
}

// TypeKind represents the kind of GraphQL type
type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
)

// TypeRef represents a reference to a type (can be wrapped)
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef // For List and NonNull
	Named  string   // For named types
}

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

func (t *TypeRef) IsNonNull() bool {
	return t != nil && t.Kind == TypeRefKindNonNull
}

func (t *TypeRef) IsList() bool {
	if t.Kind == TypeRefKindList {
		return true
	}
	if t.Kind == TypeRefKindNonNull && t.OfType != nil {
		return t.OfType.Kind == TypeRefKindList
	}
	return false
}

func (t *TypeRef) Unwrap() *TypeRef {
	if t.Kind == TypeRefKindNonNull || t.Kind == TypeRefKindList {
		return t.OfType
	}
	return t
}

// Nullable strips a Non-Null wrapper if present.
func (t *TypeRef) Nullable() *TypeRef {
	if t.IsNonNull() {
		return t.OfType
	}
	return t
}

func (t *TypeRef) GetNamedType() string {
	current := t
	for current != nil {
		if current.Named != "" {
			return current.Named
		}
		current = current.OfType
	}
	return ""
}

func (t *TypeRef) String() string { return renderTypeRef(t) }

type EnumValue struct {
	Name              string
	Description       string
	IsDeprecated      bool
	DeprecationReason string
}

func NewEnumValue(name, description string) *EnumValue {
	return &EnumValue{Name: name, Description: description}
}

func (v *EnumValue) Deprecate(reason string) *EnumValue {
	v.IsDeprecated = true
	v.DeprecationReason = reason
	return v
}

type InputValue struct {
	Name              string
	Description       string
	Type              *TypeRef
	DefaultValue      any
	IsDeprecated      bool
	DeprecationReason string
}

func NewInputValue(name, description string, t *TypeRef) *InputValue {
	return &InputValue{Name: name, Description: description, Type: t}
}

func (v *InputValue) SetDefault(value any) *InputValue {
	v.DefaultValue = value
	return v
}

func (v *InputValue) Deprecate(reason string) *InputValue {
	v.IsDeprecated = true
	v.DeprecationReason = reason
	return v
}

type Directive struct {
	Name         string
	Description  string
	Locations    []string
	Arguments    []*InputValue
	IsRepeatable bool
}

func NewDirective(name, description string) *Directive {
	return &Directive{Name: name, Description: description}
}

func (d *Directive) SetRepeatable(r bool) *Directive {
	d.IsRepeatable = r
	return d
}

func (d *Directive) AddArgument(v *InputValue) *Directive {
	d.Arguments = append(d.Arguments, v)
	return d
}

func NonNullType(t *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindNonNull, OfType: t} }
func ListType(t *TypeRef) *TypeRef    { return &TypeRef{Kind: TypeRefKindList, OfType: t} }
func NamedType(name string) *TypeRef  { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }

// IsNonNull reports whether the type is wrapped with Non-Null.
func IsNonNull(t *TypeRef) bool { return t != nil && t.IsNonNull() }

// IsList reports whether the type is (or is wrapped by) a list type.
func IsList(t *TypeRef) bool { return t != nil && t.IsList() }

// Unwrap removes one layer of Non-Null or List wrapping and returns the inner type.
func Unwrap(t *TypeRef) *TypeRef { return t.Unwrap() }

// GetNamedType returns the innermost named type for the given reference.
func GetNamedType(t *TypeRef) string { return t.GetNamedType() }

// TypeRefFromAST converts a parsed type reference.
func TypeRefFromAST(t *language.Type) *TypeRef {
	if t == nil {
		return nil
	}
	var out *TypeRef
	if t.Elem != nil {
		out = ListType(TypeRefFromAST(t.Elem))
	} else {
		out = NamedType(t.NamedType)
	}
	if t.NonNull {
		out = NonNullType(out)
	}
	return out
}
