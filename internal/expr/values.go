package expr

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"
	"time"
)

// MemberReader is implemented by values that expose members without
// reflection.
type MemberReader interface {
	ReadMember(name string) (any, bool)
}

// ReadMember returns the named member of v. Maps are indexed by key, structs
// are matched by `expr` tag, then `json` tag, then case-insensitive field
// name. Pointers are dereferenced and nil yields nil.
func ReadMember(v any, name string) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v[name], nil
	case MemberReader:
		if out, ok := v.ReadMember(name); ok {
			return out, nil
		}
		return nil, fmt.Errorf("no member %q on %T", name, v)
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("cannot read member %q of %s", name, rv.Type())
		}
		mv := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !mv.IsValid() {
			return nil, nil
		}
		return mv.Interface(), nil
	case reflect.Struct:
		idx, ok := fieldIndex(rv.Type(), name)
		if !ok {
			return nil, fmt.Errorf("no member %q on %s", name, rv.Type())
		}
		return rv.FieldByIndex(idx).Interface(), nil
	}
	return nil, fmt.Errorf("cannot read member %q of %T", name, v)
}

type fieldKey struct {
	t    reflect.Type
	name string
}

type fieldLookup struct {
	index []int
	ok    bool
}

var fieldCache sync.Map // fieldKey -> fieldLookup

func fieldIndex(t reflect.Type, name string) ([]int, bool) {
	key := fieldKey{t, name}
	if v, ok := fieldCache.Load(key); ok {
		l := v.(fieldLookup)
		return l.index, l.ok
	}
	l := lookupField(t, name)
	fieldCache.Store(key, l)
	return l.index, l.ok
}

func lookupField(t reflect.Type, name string) fieldLookup {
	fields := reflect.VisibleFields(t)
	for _, tag := range []string{"expr", "json"} {
		for _, f := range fields {
			if !f.IsExported() {
				continue
			}
			if n, _, _ := strings.Cut(f.Tag.Get(tag), ","); n == name {
				return fieldLookup{index: f.Index, ok: true}
			}
		}
	}
	for _, f := range fields {
		if f.IsExported() && !f.Anonymous && strings.EqualFold(f.Name, name) {
			return fieldLookup{index: f.Index, ok: true}
		}
	}
	return fieldLookup{}
}

// ToSlice converts a sequence value to []any. Nil yields nil.
func ToSlice(v any) ([]any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	case []map[string]any:
		out := make([]any, len(v))
		for i, m := range v {
			out[i] = m
		}
		return out, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected a sequence, got %T", v)
	}
	if rv.Kind() == reflect.Slice && rv.IsNil() {
		return nil, nil
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func deref(v any) any {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

// number normalizes numeric values. Integers that fit are kept exact.
func number(v any) (i int64, f float64, isInt bool, ok bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), float64(rv.Int()), true, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u <= math.MaxInt64 {
			return int64(u), float64(u), true, true
		}
		return 0, float64(u), false, true
	case reflect.Float32, reflect.Float64:
		return 0, rv.Float(), false, true
	}
	return 0, 0, false, false
}

// Compare orders two scalar values. Nil sorts before everything else.
func Compare(a, b any) (int, error) {
	a, b = deref(a), deref(b)
	switch {
	case a == nil && b == nil:
		return 0, nil
	case a == nil:
		return -1, nil
	case b == nil:
		return 1, nil
	}
	if ai, af, aInt, ok := number(a); ok {
		bi, bf, bInt, ok := number(b)
		if !ok {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		if aInt && bInt {
			return cmpOrdered(ai, bi), nil
		}
		return cmpOrdered(af, bf), nil
	}
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv), nil
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0, nil
			case !av:
				return -1, nil
			default:
				return 1, nil
			}
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv), nil
		}
	}
	if reflect.TypeOf(a) == reflect.TypeOf(b) && reflect.TypeOf(a).Comparable() && a == b {
		return 0, nil
	}
	return 0, fmt.Errorf("cannot compare %T with %T", a, b)
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func equal(a, b any) bool {
	c, err := Compare(a, b)
	if err == nil {
		return c == 0
	}
	return reflect.DeepEqual(deref(a), deref(b))
}

func truthy(v any) (bool, error) {
	switch v := deref(v).(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	}
	return false, fmt.Errorf("expected a boolean, got %T", v)
}

func arith(op BinaryOp, a, b any) (any, error) {
	a, b = deref(a), deref(b)
	if a == nil || b == nil {
		return nil, nil
	}
	ai, af, aInt, aok := number(a)
	bi, bf, bInt, bok := number(b)
	if !aok || !bok {
		return nil, fmt.Errorf("operator %s needs numbers, got %T and %T", op, a, b)
	}
	if aInt && bInt {
		if op == OpAdd {
			return ai + bi, nil
		}
		return ai - bi, nil
	}
	if op == OpAdd {
		return af + bf, nil
	}
	return af - bf, nil
}
