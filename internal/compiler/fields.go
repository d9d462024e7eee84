package compiler

import (
	"fmt"

	language "github.com/hanpama/gqlexpr/internal/language"
	schema "github.com/hanpama/gqlexpr/internal/schema"
)

// collectedFieldMap preserves field order from the original query
type collectedFieldMap struct {
	fields []collectedField
	index  map[string]int
}

type collectedField struct {
	ResponseName string
	Fields       []*language.Field
}

func newCollectedFieldMap() *collectedFieldMap {
	return &collectedFieldMap{
		fields: make([]collectedField, 0),
		index:  make(map[string]int),
	}
}

func (cfm *collectedFieldMap) add(responseName string, field *language.Field) {
	if idx, exists := cfm.index[responseName]; exists {
		cfm.fields[idx].Fields = append(cfm.fields[idx].Fields, field)
		return
	}
	cfm.index[responseName] = len(cfm.fields)
	cfm.fields = append(cfm.fields, collectedField{
		ResponseName: responseName,
		Fields:       []*language.Field{field},
	})
}

func (cfm *collectedFieldMap) orderedFields() []collectedField {
	return cfm.fields
}

// collectFields groups the fields of a selection set by response name,
// evaluating @skip and @include and expanding fragments.
func (c *compilation) collectFields(objectType *schema.Type, selectionSet language.SelectionSet, path []any) (*collectedFieldMap, error) {
	groupedFields := newCollectedFieldMap()
	visitedFragments := make(map[string]bool)
	if err := c.collectFieldsImpl(objectType, selectionSet, groupedFields, visitedFragments, path); err != nil {
		return nil, err
	}
	return groupedFields, nil
}

func (c *compilation) collectFieldsImpl(objectType *schema.Type, selectionSet language.SelectionSet, groupedFields *collectedFieldMap, visitedFragments map[string]bool, path []any) error {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			include, err := c.shouldIncludeNode(sel.Directives, path)
			if err != nil {
				return err
			}
			if !include {
				continue
			}
			responseName := sel.Alias
			if responseName == "" {
				responseName = sel.Name
			}
			groupedFields.add(responseName, sel)

		case *language.InlineFragment:
			include, err := c.shouldIncludeNode(sel.Directives, path)
			if err != nil {
				return err
			}
			if !include {
				continue
			}
			applies, err := fragmentApplies(objectType, sel.TypeCondition, path)
			if err != nil {
				return err
			}
			if !applies {
				continue
			}
			if err := c.collectFieldsImpl(objectType, sel.SelectionSet, groupedFields, visitedFragments, path); err != nil {
				return err
			}

		case *language.FragmentSpread:
			include, err := c.shouldIncludeNode(sel.Directives, path)
			if err != nil {
				return err
			}
			if !include {
				continue
			}
			if visitedFragments[sel.Name] {
				continue
			}
			visitedFragments[sel.Name] = true

			fragmentDef := getFragmentDefinition(c.document, sel.Name)
			if fragmentDef == nil {
				return selectionErrorf(path, "unknown fragment '%s'", sel.Name)
			}
			applies, err := fragmentApplies(objectType, fragmentDef.TypeCondition, path)
			if err != nil {
				return err
			}
			if !applies {
				continue
			}
			include, err = c.shouldIncludeNode(fragmentDef.Directives, path)
			if err != nil {
				return err
			}
			if !include {
				continue
			}
			if err := c.collectFieldsImpl(objectType, fragmentDef.SelectionSet, groupedFields, visitedFragments, path); err != nil {
				return err
			}
		}
	}
	return nil
}

// fragmentApplies reports whether a fragment with the given type condition
// selects from objectType. Values of abstract types carry no runtime type
// here, so conditions naming one of their possible types are rejected.
func fragmentApplies(objectType *schema.Type, condition string, path []any) (bool, error) {
	if condition == "" || condition == objectType.Name {
		return true, nil
	}
	if objectType.Kind == schema.TypeKindObject {
		return objectType.Implements(condition), nil
	}
	return false, selectionErrorf(path, "fragments on '%s' cannot select from abstract type '%s'", condition, objectType.Name)
}

// shouldIncludeNode evaluates @skip and @include, recording each decision in
// the compile context.
func (c *compilation) shouldIncludeNode(directives language.DirectiveList, path []any) (bool, error) {
	for _, d := range directives {
		if d.Name != "skip" && d.Name != "include" {
			continue
		}
		include, ok := c.cc.DirectiveResult(d)
		if !ok {
			v, err := c.directiveCondition(d, path)
			if err != nil {
				return false, err
			}
			include = v
			if d.Name == "skip" {
				include = !v
			}
			c.cc.RecordDirective(d, include)
		}
		if !include {
			return false, nil
		}
	}
	return true, nil
}

func (c *compilation) directiveCondition(d *language.Directive, path []any) (bool, error) {
	for _, arg := range d.Arguments {
		if arg.Name != "if" {
			continue
		}
		v := schema.ValueFromAST(arg.Value, c.cc.Variables())
		b, ok := v.(bool)
		if !ok {
			return false, selectionErrorf(path, "argument 'if' of @%s must be a Boolean, got %v", d.Name, v)
		}
		return b, nil
	}
	return false, selectionErrorf(path, "@%s requires the 'if' argument", d.Name)
}

// getFragmentDefinition finds a fragment definition by name in the document
func getFragmentDefinition(document *language.QueryDocument, name string) *language.FragmentDefinition {
	if fd := document.Fragments.ForName(name); fd != nil {
		return fd
	}
	for _, f := range document.Fragments {
		if f != nil && f.Name == name {
			return f
		}
	}
	return nil
}

// GetOperation returns the operation named operationName, or the only
// operation of document when the name is empty.
func GetOperation(document *language.QueryDocument, operationName string) (*language.OperationDefinition, error) {
	if operationName == "" {
		if len(document.Operations) == 1 {
			return document.Operations[0], nil
		}
		return nil, fmt.Errorf("operation name is required when the document defines %d operations", len(document.Operations))
	}
	for _, op := range document.Operations {
		if op.Name == operationName {
			return op, nil
		}
	}
	return nil, fmt.Errorf("operation '%s' not found", operationName)
}

// mergeSelectionSets merges selection sets from multiple fields
func mergeSelectionSets(fields []*language.Field) language.SelectionSet {
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}
