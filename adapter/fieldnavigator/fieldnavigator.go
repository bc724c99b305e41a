package fieldnavigator

import (
	"strconv"
	"strings"

	"github.com/webbestmaster/nedb/domain"
)

// FieldNavigator implements [domain.FieldNavigator].
type FieldNavigator struct {
	newDocument func(any) (domain.Document, error)
}

// NewFieldNavigator returns a new implementation of [domain.FieldNavigator].
func NewFieldNavigator(newDocument func(any) (domain.Document, error)) domain.FieldNavigator {
	return &FieldNavigator{newDocument: newDocument}
}

// GetAddress implements [domain.FieldNavigator].
func (fn *FieldNavigator) GetAddress(field string) ([]string, error) {
	return strings.Split(field, "."), nil
}

// GetField implements [domain.FieldNavigator].
func (fn *FieldNavigator) GetField(obj any, fieldParts ...string) ([]domain.GetSetter, bool, error) {
	return fn.walk(obj, fieldParts, false)
}

// EnsureField implements [domain.FieldNavigator].
func (fn *FieldNavigator) EnsureField(obj any, fieldParts ...string) ([]domain.GetSetter, error) {
	handles, _, err := fn.walk(obj, fieldParts, true)
	return handles, err
}

// cursor is one live candidate while walking a dot path: a value plus
// whether it may still be fanned out across an array (expandable), plus
// the handle used to read/write it once the walk settles.
type cursor struct {
	value      any
	expandable bool
	handle     domain.GetSetter
}

// walk follows fieldParts through obj one path segment at a time. Every
// segment may fan a single cursor out into many (descending into a slice
// of objects widens the candidate set), which is why the algorithm tracks
// a slice of cursors rather than a single value throughout. When ensure is
// true, missing intermediate documents and array slots are created rather
// than treated as a mismatch.
func (fn *FieldNavigator) walk(obj any, fieldParts []string, ensure bool) ([]domain.GetSetter, bool, error) {
	miss := []domain.GetSetter{NewGetSetterEmpty()}
	if obj == nil || len(fieldParts) == 0 {
		return miss, false, nil
	}

	live := []cursor{{value: obj, expandable: true}}
	fannedOut := false // set once any array segment is expanded across its elements

	for depth, part := range fieldParts {
		for i := 0; i < len(live); i++ {
			c := live[i]

			switch v := c.value.(type) {
			case domain.Document:
				if !fannedOut && !v.Has(part) {
					if !ensure {
						return miss, false, nil
					}
					if depth < len(fieldParts)-1 {
						child, err := fn.newDocument(nil)
						if err != nil {
							return nil, false, err
						}
						v.Set(part, child)
					} else {
						v.Set(part, nil)
					}
				}
				live[i] = cursor{
					value:      v.Get(part),
					expandable: true,
					handle:     NewGetSetterWithDoc(v, part),
				}

			case []any:
				idx, err := strconv.Atoi(part)
				if err != nil {
					fannedOut = true

					if !c.expandable {
						live[i] = cursor{value: nil, expandable: true, handle: NewGetSetterEmpty()}
						i--
						continue
					}

					expanded := make([]cursor, len(v))
					for n, item := range v {
						expanded[n] = cursor{value: item, expandable: false, handle: NewGetSetterEmpty()}
					}

					before := live[:i]
					after := live[i+1:]
					live = append(append(before, expanded...), after...)
					i-- // re-walk from the same index; the slice just shifted under us
					continue
				}

				if idx >= 0 && (idx < len(v) || ensure) {
					if ensure && idx >= len(v) {
						grown := make([]any, idx+1)
						copy(grown, v)
						v = grown
						live[i].handle.Set(grown)
					}
					live[i] = cursor{
						value:      v[idx],
						expandable: true,
						handle:     NewGetSetterWithArrayIndex(v, idx),
					}
					continue
				}

				if fannedOut {
					live[i] = cursor{value: nil, expandable: true, handle: NewGetSetterEmpty()}
					continue
				}
				return []domain.GetSetter{NewGetSetterEmpty()}, false, nil

			default:
				live[i].value = NewGetSetterEmpty()
				if !fannedOut {
					return miss, false, nil
				}
			}
		}
	}

	handles := make([]domain.GetSetter, len(live))
	for i, c := range live {
		handles[i] = c.handle
	}
	return handles, fannedOut, nil
}

// SplitFields implements [domain.FieldNavigator].
func (fn *FieldNavigator) SplitFields(in string) ([]string, error) {
	return strings.Split(in, ","), nil
}
