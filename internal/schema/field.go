package schema

import (
	"sort"

	"github.com/hanpama/gqlexpr/internal/authz"
	"github.com/hanpama/gqlexpr/internal/expr"
)

// QueryFieldType tells which root operation a field belongs to. Fields of
// non-root types are query fields.
type QueryFieldType int

const (
	FieldTypeQuery QueryFieldType = iota
	FieldTypeMutation
	FieldTypeSubscription
)

func (t QueryFieldType) String() string {
	switch t {
	case FieldTypeMutation:
		return "mutation"
	case FieldTypeSubscription:
		return "subscription"
	}
	return "query"
}

// Field represents a field on an object or interface.
//
// A field resolves through ResolveExpression, written in terms of FieldParam
// (the parent value) and ArgumentParam (the coerced argument values). Fields
// without an expression read the member of the parent named like the field.
type Field struct {
	Name              string
	Description       string
	Type              *TypeRef // effective type, after extensions
	Arguments         []*InputValue
	IsDeprecated      bool
	DeprecationReason string

	FromType  *Type
	FieldType QueryFieldType

	FieldParam        *expr.Param
	ArgumentParam     *expr.Param
	ResolveExpression expr.Expr

	Authorization         *authz.RequiredAuthorization
	Extensions            []Extension
	Validators            []Validator
	UseArgumentsFromField *Field
	ArgumentsAreInternal  bool

	declaredType *TypeRef
	services     []string
	frozen       bool
}

func NewField(name, description string, t *TypeRef) *Field {
	return &Field{Name: name, Description: description, Type: t, declaredType: t}
}

func (f *Field) mutable() {
	if f.frozen {
		panic("schema: field " + f.Name + " modified after Freeze")
	}
}

// DeclaredType is the return type before extensions rewrote it.
func (f *Field) DeclaredType() *TypeRef {
	if f.declaredType == nil {
		return f.Type
	}
	return f.declaredType
}

// Returns sets the declared return type.
func (f *Field) Returns(t *TypeRef) *Field {
	f.mutable()
	f.Type = t
	f.declaredType = t
	return f
}

func (f *Field) Deprecate(reason string) *Field {
	f.mutable()
	f.IsDeprecated = true
	f.DeprecationReason = reason
	return f
}

func (f *Field) AddArgument(arg *InputValue) *Field {
	f.mutable()
	f.Arguments = append(f.Arguments, arg)
	return f
}

// Argument returns the argument definition used for coercion, honoring
// UseArgumentsFromField.
func (f *Field) Argument(name string) *InputValue {
	for _, a := range f.argumentDefinitions() {
		if a.Name == name {
			return a
		}
	}
	return nil
}

func (f *Field) argumentDefinitions() []*InputValue {
	if f.UseArgumentsFromField != nil {
		return f.UseArgumentsFromField.Arguments
	}
	return f.Arguments
}

// SetResolve builds the resolve expression from fresh field and argument
// parameters.
func (f *Field) SetResolve(build func(src, args *expr.Param) expr.Expr) *Field {
	f.mutable()
	f.FieldParam = expr.NewParam("src")
	f.ArgumentParam = expr.NewParam("args")
	f.ResolveExpression = build(f.FieldParam, f.ArgumentParam)
	return f
}

// UpdateExpression replaces the resolve expression, keeping the parameters it
// was built with.
func (f *Field) UpdateExpression(e expr.Expr) *Field {
	f.mutable()
	if f.FieldParam == nil {
		f.FieldParam = expr.NewParam("src")
		f.ArgumentParam = expr.NewParam("args")
	}
	f.ResolveExpression = e
	return f
}

// RequiresServices declares services the field needs beyond those its
// expression references.
func (f *Field) RequiresServices(names ...string) *Field {
	f.mutable()
	f.services = append(f.services, names...)
	return f
}

// Services returns the sorted names of every service the field depends on.
func (f *Field) Services() []string {
	seen := map[string]bool{}
	for _, s := range f.services {
		seen[s] = true
	}
	if f.ResolveExpression != nil {
		for _, s := range expr.Services(f.ResolveExpression) {
			seen[s] = true
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// AddExtension appends ext. Extensions are configured by Schema.Freeze and
// applied in registration order.
func (f *Field) AddExtension(ext Extension) *Field {
	f.mutable()
	f.Extensions = append(f.Extensions, ext)
	return f
}

func (f *Field) AddValidator(v Validator) *Field {
	f.mutable()
	f.Validators = append(f.Validators, v)
	return f
}

// UseArgumentsFrom coerces this field's arguments against other's argument
// definitions.
func (f *Field) UseArgumentsFrom(other *Field) *Field {
	f.mutable()
	f.UseArgumentsFromField = other
	return f
}

// SetArgumentsAreInternal makes the field reject user-supplied arguments.
func (f *Field) SetArgumentsAreInternal(internal bool) *Field {
	f.mutable()
	f.ArgumentsAreInternal = internal
	return f
}

func (f *Field) RequiresAllRoles(roles ...string) *Field {
	f.mutable()
	f.authorization().RequireAllRoles(roles...)
	return f
}

func (f *Field) RequiresAnyRole(roles ...string) *Field {
	f.mutable()
	f.authorization().RequireAnyRole(roles...)
	return f
}

func (f *Field) RequiresAllPolicies(policies ...string) *Field {
	f.mutable()
	f.authorization().RequireAllPolicies(policies...)
	return f
}

func (f *Field) RequiresAnyPolicy(policies ...string) *Field {
	f.mutable()
	f.authorization().RequireAnyPolicy(policies...)
	return f
}

func (f *Field) authorization() *authz.RequiredAuthorization {
	if f.Authorization == nil {
		f.Authorization = &authz.RequiredAuthorization{}
	}
	return f.Authorization
}

// RequiredAuthorization combines the requirements of the field and of its
// owning type.
func (f *Field) RequiredAuthorization() *authz.RequiredAuthorization {
	var typ *authz.RequiredAuthorization
	if f.FromType != nil {
		typ = f.FromType.Authorization
	}
	return typ.Merge(f.Authorization)
}
