package comparer

import (
	"cmp"
	"math/big"
	"slices"
	"time"

	"github.com/webbestmaster/nedb/domain"
)

// Type ranks defining the total order used when two values don't share a
// concrete Go type: numbers order below strings, which order below bools,
// then time.Time, then arrays, then documents. A value of any other type
// orders after documents; two values that are both outside this set have
// no defined order and Compare returns an error for them.
const (
	rankNumber = iota
	rankString
	rankBool
	rankTime
	rankArray
	rankDoc
	rankUnknown
)

// Comparer implements domain.Comparer.
type Comparer struct{}

// NewComparer returns a new implementation of domain.Comparer.
func NewComparer() domain.Comparer {
	return &Comparer{}
}

// Comparable implements domain.Comparer.
func (c *Comparer) Comparable(a, b any) bool {
	if !c.defined(a) || !c.defined(b) {
		return false
	}
	a, b = c.unwrap(a), c.unwrap(b)

	if _, ok := c.numeric(a); ok {
		_, bIsNumber := c.numeric(b)
		return bIsNumber
	}

	switch a.(type) {
	case string:
		_, ok := b.(string)
		return ok
	case time.Time:
		_, ok := b.(time.Time)
		return ok
	default:
		return false
	}
}

// Compare implements domain.Comparer.
func (c *Comparer) Compare(a, b any) (int, error) {
	if order, ok, err := c.compareUndefined(a, b); err != nil || ok {
		return order, err
	}

	a, b = c.unwrap(a), c.unwrap(b)

	if order, ok := c.compareNil(a, b); ok {
		return order, nil
	}

	rankA, sameKindCompare := c.rank(a)
	rankB, _ := c.rank(b)

	if rankA == rankUnknown && rankB == rankUnknown {
		return 0, domain.ErrCannotCompare{A: a, B: b}
	}
	if rankA != rankB {
		return cmp.Compare(rankA, rankB), nil
	}
	return sameKindCompare(a, b)
}

// compareUndefined handles the domain.Getter "unset" case, equivalent to
// JavaScript's undefined: an unset value orders below anything set, and
// two unset values are equal.
func (c *Comparer) compareUndefined(a, b any) (int, bool, error) {
	if !c.defined(a) {
		if !c.defined(b) {
			return 0, true, nil
		}
		return -1, true, nil
	}
	if !c.defined(b) {
		return 1, true, nil
	}
	return 0, false, nil
}

func (c *Comparer) compareNil(a, b any) (int, bool) {
	if a == nil {
		if b == nil {
			return 0, true
		}
		return -1, true
	}
	if b == nil {
		return 1, true
	}
	return 0, false
}

// rank classifies v into one of the ordered kinds Compare understands and
// returns the function that compares two values of that same kind. The
// returned comparator is only meaningful when both operands share v's
// rank; Compare falls back to ordering by rank alone otherwise.
func (c *Comparer) rank(v any) (int, func(a, b any) (int, error)) {
	if _, ok := c.numeric(v); ok {
		return rankNumber, c.compareNumbers
	}
	switch v.(type) {
	case string:
		return rankString, c.compareStrings
	case bool:
		return rankBool, c.compareBools
	case time.Time:
		return rankTime, c.compareTimes
	case []any:
		return rankArray, c.compareArrays
	case domain.Document:
		return rankDoc, c.compareDocs
	default:
		return rankUnknown, nil
	}
}

func (c *Comparer) compareNumbers(a, b any) (int, error) {
	// big.Float avoids precision loss when comparing float64 against
	// int64 magnitudes near the edge of float64's exact integer range.
	na, _ := c.numeric(a)
	nb, _ := c.numeric(b)
	return na.Cmp(nb), nil
}

func (c *Comparer) compareStrings(a, b any) (int, error) {
	return cmp.Compare(a.(string), b.(string)), nil
}

func (c *Comparer) compareBools(a, b any) (int, error) {
	av, bv := a.(bool), b.(bool)
	if av == bv {
		return 0, nil
	}
	if av {
		return 1, nil
	}
	return -1, nil
}

func (c *Comparer) compareTimes(a, b any) (int, error) {
	return a.(time.Time).Compare(b.(time.Time)), nil
}

func (c *Comparer) compareArrays(a, b any) (int, error) {
	return c.compareSlices(a.([]any), b.([]any))
}

func (c *Comparer) compareSlices(a, b []any) (int, error) {
	for i := range min(len(a), len(b)) {
		order, err := c.Compare(a[i], b[i])
		if err != nil {
			return 0, err
		}
		if order != 0 {
			return order, nil
		}
	}
	// Shared prefix compared equal; the longer slice sorts after.
	return cmp.Compare(len(a), len(b)), nil
}

func (c *Comparer) compareDocs(a, b any) (int, error) {
	da, db := a.(domain.Document), b.(domain.Document)

	keysA := slices.Sorted(da.Keys())
	keysB := slices.Sorted(db.Keys())

	for i := range min(len(keysA), len(keysB)) {
		order, err := c.Compare(da.Get(keysA[i]), db.Get(keysB[i]))
		if err != nil {
			return 0, err
		}
		if order != 0 {
			return order, nil
		}
	}

	if order := cmp.Compare(da.Len(), db.Len()); order != 0 {
		return order, nil
	}

	keysAny := func(keys []string) []any {
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = k
		}
		return out
	}
	return c.compareSlices(keysAny(keysA), keysAny(keysB))
}

// numeric widens any Go numeric kind into a *big.Float so ints and floats
// of any width can be compared without truncation.
func (c *Comparer) numeric(v any) (*big.Float, bool) {
	f := new(big.Float)
	switch n := v.(type) {
	case int:
		f.SetInt64(int64(n))
	case int8:
		f.SetInt64(int64(n))
	case int16:
		f.SetInt64(int64(n))
	case int32:
		f.SetInt64(int64(n))
	case int64:
		f.SetInt64(n)
	case uint:
		f.SetUint64(uint64(n))
	case uint8:
		f.SetUint64(uint64(n))
	case uint16:
		f.SetUint64(uint64(n))
	case uint32:
		f.SetUint64(uint64(n))
	case uint64:
		f.SetUint64(n)
	case float32:
		f.SetFloat64(float64(n))
	case float64:
		f.SetFloat64(n)
	default:
		return nil, false
	}
	return f, true
}

func (c *Comparer) defined(v any) bool {
	g, ok := v.(domain.Getter)
	if !ok {
		return true
	}
	_, isSet := g.Get()
	return isSet
}

func (c *Comparer) unwrap(v any) any {
	g, ok := v.(domain.Getter)
	if !ok {
		return v
	}
	val, _ := g.Get()
	return val
}
