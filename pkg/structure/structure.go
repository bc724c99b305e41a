// Package structure holds reflection-adjacent helpers shared across
// adapters: iterating an arbitrary Go value as key/value pairs or as a
// list, and coercing numeric values to int.
package structure

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-reflect"
	"github.com/webbestmaster/nedb/domain"
)

// ErrNilObj is returned by [Seq] or [Seq2] when given a nil value.
var ErrNilObj = errors.New("nil object")

var documentInterfaceType = reflect.TypeOf((*domain.Document)(nil)).Elem()

// ErrNonObject is returned by [Seq2] when given a value that is neither a
// struct, a map, nor a [domain.Document].
type ErrNonObject struct {
	Type reflect.Type
}

func (e ErrNonObject) Error() string {
	return fmt.Sprintf("type %s is not a valid object", e.Type)
}

// ErrNonList is returned by [Seq] when given a value that is neither a
// slice nor an array.
type ErrNonList struct {
	Type reflect.Type
}

func (e ErrNonList) Error() string {
	return fmt.Sprintf("type %s is not a valid list", e.Type)
}

// isPrimitive reports whether obj is one of the leaf types that can never
// be iterated as an object or a list, regardless of caller.
func isPrimitive(obj any) bool {
	switch obj.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		time.Time, *regexp.Regexp, []byte:
		return true
	default:
		return false
	}
}

// Seq2 returns an iterator over obj's key/value pairs. obj may be a
// [domain.Document], a map, a struct, or a pointer chain resolving to one
// of those.
func Seq2(obj any) (iter.Seq2[string, any], int, error) {
	if obj == nil {
		return nil, 0, ErrNilObj
	}
	if isPrimitive(obj) {
		return nil, 0, ErrNonObject{Type: reflect.TypeOf(obj)}
	}
	if it, n, ok := typedMapSeq2(obj); ok {
		return it, n, nil
	}
	return reflectedSeq2(obj)
}

// typedMapSeq2 handles the concrete map/document types Seq2 can serve
// without reflection.
func typedMapSeq2(obj any) (iter.Seq2[string, any], int, bool) {
	switch t := obj.(type) {
	case domain.Document:
		return t.Iter(), t.Len(), true
	case map[string]string:
		return mapSeq2(t), len(t), true
	case map[string]bool:
		return mapSeq2(t), len(t), true
	case map[string]int:
		return mapSeq2(t), len(t), true
	case map[string]int8:
		return mapSeq2(t), len(t), true
	case map[string]int16:
		return mapSeq2(t), len(t), true
	case map[string]int32:
		return mapSeq2(t), len(t), true
	case map[string]int64:
		return mapSeq2(t), len(t), true
	case map[string]uint:
		return mapSeq2(t), len(t), true
	case map[string]uint8:
		return mapSeq2(t), len(t), true
	case map[string]uint16:
		return mapSeq2(t), len(t), true
	case map[string]uint32:
		return mapSeq2(t), len(t), true
	case map[string]uint64:
		return mapSeq2(t), len(t), true
	case map[string]float32:
		return mapSeq2(t), len(t), true
	case map[string]float64:
		return mapSeq2(t), len(t), true
	case map[string]any:
		return mapSeq2(t), len(t), true
	case map[string]time.Time:
		return mapSeq2(t), len(t), true
	case map[string]*regexp.Regexp:
		return mapSeq2(t), len(t), true
	case map[string][]byte:
		return mapSeq2(t), len(t), true
	}
	return nil, 0, false
}

// reflectedSeq2 handles struct values and any pointer chain that
// eventually resolves to a domain.Document, a supported map, or a struct.
// A reflect.Map that reached here has a key type none of the typed cases
// covered, which is unsupported.
func reflectedSeq2(obj any) (iter.Seq2[string, any], int, error) {
	v := reflect.ValueNoEscapeOf(obj)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, 0, ErrNilObj
		}
		v = v.Elem()
	}

	if v.Type().Implements(documentInterfaceType) {
		doc := v.Interface().(domain.Document)
		return doc.Iter(), doc.Len(), nil
	}

	if v.Kind() == reflect.Struct {
		it, n := structSeq2(v)
		return it, n, nil
	}

	return nil, 0, ErrNonObject{Type: v.Type()}
}

func structSeq2(v reflect.Value) (iter.Seq2[string, any], int) {
	type field struct {
		key   string
		value any
	}

	fields := make([]field, 0, v.NumField())
	for k, val := range structFields(v) {
		fields = append(fields, field{key: k, value: val})
	}

	return func(yield func(string, any) bool) {
		for _, f := range fields {
			if !yield(f.key, f.value) {
				return
			}
		}
	}, len(fields)
}

// structFields walks v's exported fields, honoring the "nedb" struct tag
// (name, omitEmpty, omitZero) the same way the decoder's mapstructure tag
// does.
func structFields(v reflect.Value) iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		typ := v.Type()
		for n := range typ.NumField() {
			field := typ.Field(n)
			if field.PkgPath != "" {
				continue
			}

			name, omitEmpty, omitZero := fieldTag(field)

			if omitZero && v.Field(n).IsZero() {
				continue
			}
			if omitEmpty && isEmptyForOmission(field.Type.Kind(), v.Field(n)) {
				continue
			}

			if !yield(name, v.Field(n).Interface()) {
				return
			}
		}
	}
}

func fieldTag(field reflect.StructField) (name string, omitEmpty, omitZero bool) {
	tag, ok := field.Tag.Lookup("nedb")
	if !ok {
		return field.Name, false, false
	}

	comma := strings.IndexRune(tag, ',')
	if comma < 0 {
		return tag, false, false
	}

	for opt := range strings.SplitSeq(tag[comma:], ",") {
		switch opt {
		case "omitEmpty":
			omitEmpty = true
		case "omitZero":
			omitZero = true
		}
	}

	name = tag[:comma]
	if name == "" {
		name = field.Name
	}
	return name, omitEmpty, omitZero
}

func isEmptyForOmission(kind reflect.Kind, v reflect.Value) bool {
	switch kind {
	case reflect.Chan, reflect.Func, reflect.Map,
		reflect.Ptr, reflect.UnsafePointer,
		reflect.Interface, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}

func mapSeq2[T any](m map[string]T) iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for k, v := range m {
			if !yield(k, v) {
				return
			}
		}
	}
}

// Seq returns an iterator over a slice, an array, or a pointer chain
// resolving to one of those.
func Seq(obj any) (iter.Seq[any], int, error) {
	if obj == nil {
		return nil, 0, ErrNilObj
	}
	if isPrimitive(obj) {
		return nil, 0, ErrNonList{Type: reflect.TypeOf(obj)}
	}
	if it, n, ok := typedSliceSeq(obj); ok {
		return it, n, nil
	}
	return reflectedSeq(obj)
}

// typedSliceSeq handles the concrete slice types Seq can serve without
// reflection.
func typedSliceSeq(obj any) (iter.Seq[any], int, bool) {
	switch t := obj.(type) {
	case []string:
		return sliceSeq(t), len(t), true
	case []bool:
		return sliceSeq(t), len(t), true
	case []int:
		return sliceSeq(t), len(t), true
	case []int8:
		return sliceSeq(t), len(t), true
	case []int16:
		return sliceSeq(t), len(t), true
	case []int32:
		return sliceSeq(t), len(t), true
	case []int64:
		return sliceSeq(t), len(t), true
	case []uint:
		return sliceSeq(t), len(t), true
	case []uint8:
		return sliceSeq(t), len(t), true
	case []uint16:
		return sliceSeq(t), len(t), true
	case []uint32:
		return sliceSeq(t), len(t), true
	case []uint64:
		return sliceSeq(t), len(t), true
	case []float32:
		return sliceSeq(t), len(t), true
	case []float64:
		return sliceSeq(t), len(t), true
	case []any:
		return sliceSeq(t), len(t), true
	case []time.Time:
		return sliceSeq(t), len(t), true
	case []*regexp.Regexp:
		return sliceSeq(t), len(t), true
	case [][]byte:
		return sliceSeq(t), len(t), true
	}
	return nil, 0, false
}

// reflectedSeq falls back to reflection for arrays (fixed-size, so never
// matched by typedSliceSeq's slice cases) and pointer chains, including
// pointers to any of the typed slices above.
func reflectedSeq(obj any) (iter.Seq[any], int, error) {
	v := reflect.ValueNoEscapeOf(obj)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, 0, ErrNilObj
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return reflectSliceSeq(v), v.Len(), nil
	}

	return nil, 0, ErrNonList{Type: v.Type()}
}

func reflectSliceSeq(v reflect.Value) iter.Seq[any] {
	return func(yield func(any) bool) {
		for i := range v.Len() {
			if !yield(v.Index(i).Interface()) {
				return
			}
		}
	}
}

func sliceSeq[T any](s []T) iter.Seq[any] {
	return func(yield func(any) bool) {
		for _, v := range s {
			if !yield(v) {
				return
			}
		}
	}
}

// AsInteger converts any built-in numeric type to int, reporting false if
// v isn't numeric or is a non-integral float.
func AsInteger(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int8:
		return int(t), true
	case int16:
		return int(t), true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case uint:
		return int(t), true
	case uint8:
		return int(t), true
	case uint16:
		return int(t), true
	case uint32:
		return int(t), true
	case uint64:
		return int(t), true
	case float32:
		return truncatedInt(float64(t))
	case float64:
		return truncatedInt(t)
	default:
		return 0, false
	}
}

func truncatedInt(f float64) (int, bool) {
	trunc := math.Trunc(f)
	if trunc != f {
		return 0, false
	}
	return int(trunc), true
}

// Contains reports whether t is present in s according to fn, propagating
// the first error fn returns.
func Contains[T any, S ~[]T](s S, t T, fn func(a, b T) (bool, error)) (bool, error) {
	for _, item := range s {
		ok, err := fn(item, t)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}
