package processor

import (
	"reflect"
)

func mergeReflect(t reflect.Type, a, b, out reflect.Value) {
	switch t.Kind() {
	case reflect.Struct:
		for _, f := range reflect.VisibleFields(t) {
			if !f.IsExported() || len(f.Index) != 1 {
				continue
			}
			mergeReflect(f.Type, a.FieldByIndex(f.Index), b.FieldByIndex(f.Index), out.FieldByIndex(f.Index))
		}
	case reflect.Pointer:
		if a.IsNil() {
			out.Set(b)
		} else if b.IsNil() {
			out.Set(a)
		} else if t.Elem().Kind() != reflect.Struct {
			out.Set(b)
		} else {
			out.Set(reflect.New(t.Elem()))
			mergeReflect(t.Elem(), a.Elem(), b.Elem(), out.Elem())
		}
	case reflect.Slice, reflect.Map:
		// Replaced as a whole; an empty override keeps the base.
		if b.Len() == 0 {
			out.Set(a)
		} else {
			out.Set(b)
		}
	default:
		if b.IsZero() {
			out.Set(a)
		} else {
			out.Set(b)
		}
	}
}

// Merge returns a with every non-zero field of b applied on top.
// Use pointer fields where zero is a meaningful override.
func Merge[T any](a T, b T) T {
	var out T
	mergeReflect(reflect.TypeFor[T](), reflect.ValueOf(a), reflect.ValueOf(b), reflect.ValueOf(&out).Elem())
	return out
}

// WithDefault returns *p, or def if p is nil.
func WithDefault[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
