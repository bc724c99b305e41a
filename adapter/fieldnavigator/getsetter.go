package fieldnavigator

import "github.com/webbestmaster/nedb/domain"

// SliceCell is a [domain.GetSetter] bound to one index of a []any.
type SliceCell struct {
	slice []any
	index int
}

// NewGetSetterWithArrayIndex returns a [domain.GetSetter] over a single
// element of an []any slice.
func NewGetSetterWithArrayIndex(slice []any, index int) domain.GetSetter {
	return &SliceCell{slice: slice, index: index}
}

func (s *SliceCell) inBounds() bool {
	return s.index >= 0 && s.index < len(s.slice)
}

// Get implements [domain.GetSetter].
func (s *SliceCell) Get() (value any, defined bool) {
	if !s.inBounds() {
		return nil, false
	}
	return s.slice[s.index], true
}

// Set implements [domain.GetSetter].
func (s *SliceCell) Set(value any) {
	if s.inBounds() {
		s.slice[s.index] = value
	}
}

// Unset implements [domain.GetSetter].
func (s *SliceCell) Unset() {
	if s.inBounds() {
		s.slice[s.index] = nil
	}
}

// DocumentField is a [domain.GetSetter] bound to a single key of a
// [domain.Document].
type DocumentField struct {
	doc domain.Document
	key string
}

// NewGetSetterWithDoc returns a [domain.GetSetter] over a single key of a
// [domain.Document].
func NewGetSetterWithDoc(doc domain.Document, key string) domain.GetSetter {
	return &DocumentField{doc: doc, key: key}
}

// Get implements [domain.GetSetter].
func (d *DocumentField) Get() (value any, defined bool) {
	return d.doc.Get(d.key), d.doc.Has(d.key)
}

// Set implements [domain.GetSetter].
func (d *DocumentField) Set(value any) {
	d.doc.Set(d.key, value)
}

// Unset implements [domain.GetSetter].
func (d *DocumentField) Unset() {
	d.doc.Unset(d.key)
}

// Constant is a read-only [domain.GetSetter]; Set and Unset are no-ops.
type Constant struct {
	value any
}

// NewReadOnlyGetSetter returns a [domain.GetSetter] that always yields v
// and ignores writes.
func NewReadOnlyGetSetter(v any) domain.GetSetter {
	return &Constant{value: v}
}

// Get implements [domain.GetSetter].
func (r *Constant) Get() (value any, defined bool) {
	return r.value, true
}

// Set implements [domain.GetSetter].
func (r *Constant) Set(any) {}

// Unset implements [domain.GetSetter].
func (r *Constant) Unset() {}

// Undefined is a [domain.GetSetter] representing a value that was never
// set; Get always reports defined=false.
type Undefined struct{}

// NewGetSetterEmpty returns a [domain.GetSetter] over an undefined value.
func NewGetSetterEmpty() domain.GetSetter {
	return &Undefined{}
}

// Get implements [domain.GetSetter].
func (u *Undefined) Get() (any, bool) { return nil, false }

// Set implements [domain.GetSetter].
func (u *Undefined) Set(any) {}

// Unset implements [domain.GetSetter].
func (u *Undefined) Unset() {}
