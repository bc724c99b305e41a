// Package hasher contains a JSON-based implementation of [domain.Hasher].
// Since the store only ever hashes values that came from a
// [domain.Deserializer] or a document factory, it only needs to handle
// documents, arrays, and JSON primitives. Pointers, channels and functions
// hash by address (nil ones as nil); any other value is hashed through its
// JSON encoding.
package hasher

import (
	"bytes"
	"encoding/json"
	"hash/fnv"
	"reflect"
	"slices"
	"time"

	"github.com/webbestmaster/nedb/domain"
)

// Hasher implements [domain.Hasher].
type Hasher struct{}

// NewHasher returns a new implementation of [domain.Hasher].
func NewHasher() domain.Hasher {
	return &Hasher{}
}

// Hash implements [domain.Hasher].
func (h *Hasher) Hash(value any) (uint64, error) {
	encoded, err := json.Marshal(h.normalize(value))
	if err != nil {
		return 0, err
	}

	sum := fnv.New64a()
	_, _ = sum.Write(encoded) // fnv64a.Write never errors
	return sum.Sum64(), nil
}

// normalize reduces value to something JSON-marshalable with a
// deterministic key order, recursing into documents and arrays.
func (h *Hasher) normalize(v any) any {
	if h.isPrimitive(v) {
		return v
	}
	if doc, ok := v.(domain.Document); ok {
		return h.normalizeDoc(doc)
	}
	if arr, ok := v.([]any); ok {
		return h.normalizeArray(arr)
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return v
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Chan, reflect.Func:
		if rv.IsNil() {
			return nil
		}
		return rv.Pointer()
	default:
		return v
	}
}

func (h *Hasher) normalizeDoc(doc domain.Document) sortedFields {
	fields := make(sortedFields, doc.Len())
	var n int
	for k, v := range doc.Iter() {
		fields[n] = field{key: k, value: h.normalize(v)}
		n++
	}
	return fields
}

func (h *Hasher) normalizeArray(arr []any) []any {
	out := make([]any, len(arr))
	for i, v := range arr {
		out[i] = h.normalize(v)
	}
	return out
}

func (h *Hasher) isPrimitive(v any) bool {
	if v == nil {
		return true
	}
	switch v.(type) {
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		time.Time:
		return true
	default:
		return false
	}
}

// field is one document key/value pair awaiting sorted-key marshaling.
type field struct {
	key   string
	value any
}

// sortedFields marshals as a JSON object with keys in sorted order, so two
// documents with the same content but different insertion order hash
// identically.
type sortedFields []field

// MarshalJSON implements [json.Marshaler].
func (fs sortedFields) MarshalJSON() ([]byte, error) {
	keys := make([]string, len(fs))
	byKey := make(map[string]any, len(fs))
	for i, f := range fs {
		keys[i] = f.key
		byKey[f.key] = f.value
	}
	slices.Sort(keys)

	buf := bytes.NewBuffer(make([]byte, 0, 1024))
	buf.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodedKey, _ := json.Marshal(key)
		buf.Write(encodedKey)
		buf.WriteByte(':')
		encodedVal, err := json.Marshal(byKey[key])
		if err != nil {
			return nil, err
		}
		buf.Write(encodedVal)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
