// Package matcher contains the default implementation of [domain.Matcher],
// evaluating Mongo-style query documents against candidate values.
package matcher

import (
	"errors"
	"fmt"
	"iter"
	"regexp"
	"slices"
	"time"

	"github.com/webbestmaster/nedb/adapter/comparer"
	"github.com/webbestmaster/nedb/adapter/data"
	"github.com/webbestmaster/nedb/adapter/fieldnavigator"
	"github.com/webbestmaster/nedb/domain"
	"github.com/webbestmaster/nedb/pkg/structure"
)

// ErrMixedOperators is returned when a query document mixes plain field
// names with `$`-prefixed operators at the same level.
var ErrMixedOperators = errors.New("cannot mix operators and normal fields")

// ErrUnknownOperator is returned when a query document uses a `$`-prefixed
// key this matcher does not recognize as a logic combinator.
type ErrUnknownOperator struct {
	Operator string
}

// Error implements [error].
func (e ErrUnknownOperator) Error() string {
	return fmt.Sprintf("unknown operator %q", e.Operator)
}

// ErrUnknownComparison is returned when a field-level operator key is not a
// recognized comparison.
type ErrUnknownComparison struct {
	Comparison string
}

// Error implements [error].
func (e ErrUnknownComparison) Error() string {
	return fmt.Sprintf("unknown comparison %q", e.Comparison)
}

// ErrCompArgType is returned when a comparison operator receives an
// argument of the wrong shape (e.g. `$regex` given a non-regex value).
type ErrCompArgType struct {
	Comp   string
	Want   string
	Actual any
}

// Error implements [error].
func (e ErrCompArgType) Error() string {
	return fmt.Sprintf(
		"%s value should be of type %s, got %T",
		e.Comp, e.Want, e.Actual,
	)
}

// Matcher implements [domain.Matcher]. A single instance is bound to one
// compiled query at a time via [Matcher.SetQuery] and reused across many
// [Matcher.Match] calls against different candidate values.
type Matcher struct {
	docFactory domain.DocumentFactory
	cmp        domain.Comparer
	nav        domain.FieldNavigator
	compiled   plan
	// scratch holds a reusable document wrapper for matching bare (non
	// -document) candidate values against a scalar query.
	scratch domain.Document
}

// NewMatcher returns a new implementation of domain.Matcher.
func NewMatcher(options ...Option) domain.Matcher {
	m := &Matcher{
		docFactory: data.NewDocument,
		cmp:        comparer.NewComparer(),
		nav:        fieldnavigator.NewFieldNavigator(data.NewDocument),
	}

	for _, option := range options {
		option(m)
	}

	return m
}

// SetQuery implements [domain.Matcher].
func (m *Matcher) SetQuery(query any) error {
	compiled, err := m.compileQuery(query)
	if err == nil {
		m.compiled = compiled
	}
	return err
}

// compileQuery turns a raw query value (typically a map) into a [plan] the
// matcher can walk repeatedly without re-inspecting the raw shape.
func (m *Matcher) compileQuery(query any) (p plan, err error) {
	if query == nil {
		return p, nil
	}

	fields, length, err := structure.Seq2(query)
	if err != nil {
		// Not iterable as key/value pairs: treat the whole query as a
		// literal to compare a wrapped candidate against.
		p = plan{scalar: true, roots: []combinator{
			{kind: combineAnd, fields: []fieldPredicate{
				{path: []string{"needAKey"}, comparisons: []comparison{
					{op: opEq, arg: query},
				}},
			}},
		}}
		return p, nil
	}

	byKey, dollarCount, err := m.splitFields(fields, length)
	if err != nil {
		return p, err
	}

	if dollarCount > 0 {
		p.roots, p.scalar, err = m.compileDollarNode(byKey, true, make([]combinator, 0, length))
		if err != nil {
			return p, err
		}
		return p, nil
	}

	p.roots = make([]combinator, 1)
	p.roots[0], err = m.compileEqualityNode(byKey)
	if err != nil {
		return p, err
	}
	m.compiled = p
	return p, nil
}

// splitFields collects a key/value sequence into a map while rejecting
// queries that mix plain field names with `$`-prefixed operator keys.
func (m *Matcher) splitFields(seq iter.Seq2[string, any], length int) (map[string]any, int, error) {
	byKey := make(map[string]any, length)
	var dollarCount, total int
	for k, v := range seq {
		total++
		if len(k) != 0 && k[0] == '$' {
			dollarCount++
		}
		if dollarCount > 0 && dollarCount != total {
			return nil, dollarCount, ErrMixedOperators
		}
		byKey[k] = v
	}
	return byKey, dollarCount, nil
}

// compileCombinator compiles the array argument of a `$and`/`$or` into a
// combinator node carrying one child per array element.
func (m *Matcher) compileCombinator(kind uint8, name string, v any) (combinator, error) {
	node := combinator{kind: kind}
	items, length, err := structure.Seq(v)
	if err != nil {
		return node, fmt.Errorf("%w: %w", ErrCompArgType{Comp: name, Want: "list", Actual: v}, err)
	}
	if length == 0 {
		return node, nil
	}
	node.children = make([]combinator, 0, length)

	var seq iter.Seq2[string, any]
	for item := range items {
		seq, length, err = structure.Seq2(item)
		if err != nil {
			return node, err
		}
		node.children, err = m.compileChild(seq, length, node.children)
		if err != nil {
			return node, err
		}
	}
	return node, nil
}

// compileChild compiles one element of a `$and`/`$or`/`$not` array into a
// combinator and appends it to sub.
func (m *Matcher) compileChild(seq iter.Seq2[string, any], length int, sub []combinator) (_ []combinator, err error) {
	byKey, dollarCount, err := m.splitFields(seq, length)
	if err != nil {
		return nil, err
	}

	if dollarCount == 0 {
		sub = append(sub, combinator{})
		sub[len(sub)-1], err = m.compileEqualityNode(byKey)
		return sub, err
	}

	sub, _, err = m.compileDollarNode(byKey, false, sub)
	return sub, err
}

// compileDollarNode handles the top-level logic operators (`$and`, `$or`,
// `$not`, `$where`) and, at the root of a query, a bare map of field
// operators applied to a synthetic field.
func (m *Matcher) compileDollarNode(byKey map[string]any, root bool, target []combinator) (_ []combinator, scalar bool, err error) {
	for key, value := range byKey {
		switch key {
		case "$and":
			node, err := m.compileCombinator(combineAnd, "$and", value)
			if err != nil {
				return nil, false, err
			}
			return append(target, node), false, nil
		case "$or":
			node, err := m.compileCombinator(combineOr, "$or", value)
			if err != nil {
				return target, false, err
			}
			return append(target, node), false, err
		case "$not":
			seq, length, err := structure.Seq2(value)
			if err != nil {
				return nil, false, err
			}
			children, err := m.compileChild(seq, length, make([]combinator, 0, 1))
			if err != nil {
				return nil, false, err
			}
			return append(target, combinator{kind: combineNot, children: children}), scalar, err
		case "$where":
			guard, ok := value.(func(any) (bool, error))
			if !ok {
				return target, false, ErrCompArgType{Comp: "$where", Want: "func(any) (bool, error)", Actual: value}
			}
			return append(target, combinator{kind: combineWhere, guard: &guard}), scalar, nil
		default:
			if !root {
				return target, false, ErrUnknownComparison{Comparison: key}
			}

			target = make([]combinator, 1)
			target[0].fields = make([]fieldPredicate, 1)
			target[0].fields[0].path = []string{"needAKey"}
			target[0].fields[0].comparisons = make([]comparison, 0, len(byKey))

			for k, v := range byKey {
				cmp, found, err := m.compileComparison(k, v)
				if !found {
					return target, false, ErrUnknownOperator{Operator: k}
				}
				if err != nil {
					return target, false, err
				}
				target[0].fields[0].comparisons = append(target[0].fields[0].comparisons, cmp)
			}
			return target, true, nil
		}
	}
	return target, scalar, err
}

// compileEqualityNode compiles a query object with no `$`-prefixed keys
// into an implicit-`$and` combinator of one predicate per field.
func (m *Matcher) compileEqualityNode(byKey map[string]any) (node combinator, err error) {
	node.fields = make([]fieldPredicate, 0, len(byKey))

	for key, value := range byKey {
		fp, err := m.compileFieldPredicate(key, value)
		if err != nil {
			return node, err
		}
		node.fields = append(node.fields, fp)
	}

	return node, nil
}

// compileFieldPredicate compiles the query value attached to a single
// field path: a literal, a regex, a timestamp, or an operator object.
func (m *Matcher) compileFieldPredicate(field string, raw any) (fp fieldPredicate, err error) {
	path, err := m.nav.GetAddress(field)
	if err != nil {
		return fp, err
	}

unwrapLoop:
	for {
		switch t := raw.(type) {
		case *regexp.Regexp:
			return fieldPredicate{path: path, comparisons: []comparison{{op: opRegex, arg: t}}}, nil
		case time.Time:
			return fieldPredicate{path: path, comparisons: []comparison{{arg: t}}}, nil
		case domain.Getter:
			if actual, ok := t.Get(); ok {
				raw = actual
				continue
			}
			return fieldPredicate{path: path, comparisons: []comparison{{arg: t}}}, nil
		default:
			break unwrapLoop
		}
	}

	seq, length, err := structure.Seq2(raw)
	if err != nil {
		return fieldPredicate{path: path, comparisons: []comparison{{arg: raw}}}, nil
	}

	if length == 0 {
		return fp, nil
	}

	byKey, dollarCount, err := m.splitFields(seq, length)
	if err != nil {
		return fp, err
	}

	if dollarCount > 0 {
		return m.compileOperatorPredicate(path, byKey)
	}

	doc, err := m.docFactory(raw)
	if err != nil {
		return fp, err
	}

	return fieldPredicate{path: path, comparisons: []comparison{{arg: doc}}}, nil
}

// compileOperatorPredicate compiles an operator object like
// {$gt: 3, $lt: 10} into one comparison per operator.
func (m *Matcher) compileOperatorPredicate(path []string, byKey map[string]any) (fp fieldPredicate, err error) {
	fp = fieldPredicate{
		path:        path,
		comparisons: make([]comparison, 0, len(byKey)),
	}

	for key, value := range byKey {
		cmp, _, err := m.compileComparison(key, value)
		if err != nil {
			return fp, err
		}
		fp.comparisons = append(fp.comparisons, cmp)
	}

	return fp, nil
}

// compileComparison compiles a single `$operator: argument` pair.
func (m *Matcher) compileComparison(key string, arg any) (cmp comparison, found bool, err error) {
	switch key {
	case "$regex":
		return m.compileRegexComparison(arg)
	case "$nin":
		return m.compileNinComparison(arg)
	case "$lt":
		return comparison{op: opLt, arg: arg}, true, nil
	case "$gte":
		return comparison{op: opGte, arg: arg}, true, nil
	case "$lte":
		return comparison{op: opLte, arg: arg}, true, nil
	case "$gt":
		return comparison{op: opGt, arg: arg}, true, nil
	case "$ne":
		return comparison{op: opNe, arg: arg}, true, nil
	case "$in":
		return m.compileInComparison(arg)
	case "$exists":
		return m.compileExistsComparison(arg)
	case "$size":
		return m.compileSizeComparison(arg)
	case "$elemMatch":
		return m.compileElemMatchComparison(arg)
	default:
		return cmp, false, ErrUnknownComparison{Comparison: key}
	}
}

func (m *Matcher) compileRegexComparison(arg any) (cmp comparison, found bool, err error) {
	if r, ok := arg.(*regexp.Regexp); ok {
		return comparison{op: opRegex, arg: r}, true, nil
	}
	return cmp, true, ErrCompArgType{Comp: "$regex", Want: "regex", Actual: arg}
}

func (m *Matcher) compileNinComparison(arg any) (cmp comparison, found bool, err error) {
	seq, length, err := structure.Seq(arg)
	if err != nil {
		return cmp, true, ErrCompArgType{Comp: "$nin", Want: "list", Actual: arg}
	}
	return comparison{op: opNin, arg: seq, length: length}, true, nil
}

func (m *Matcher) compileInComparison(arg any) (cmp comparison, found bool, err error) {
	seq, length, err := structure.Seq(arg)
	if err != nil {
		return cmp, true, ErrCompArgType{Comp: "$in", Want: "list", Actual: arg}
	}
	return comparison{op: opIn, arg: seq, length: length}, true, nil
}

func (m *Matcher) compileExistsComparison(arg any) (comparison, bool, error) {
	value, _ := m.unwrap(arg)
	if value == nil {
		return comparison{op: opExists, arg: false}, true, nil
	}
	if want, ok := value.(bool); ok {
		return comparison{op: opExists, arg: want}, true, nil
	}
	if c, err := m.cmp.Compare(value, 0); err != nil || c == 0 {
		return comparison{op: opExists, arg: c != 0}, true, err
	}
	return comparison{op: opExists, arg: true}, true, nil
}

func (m *Matcher) compileSizeComparison(arg any) (cmp comparison, found bool, err error) {
	n, ok := structure.AsInteger(arg)
	if !ok {
		return cmp, true, ErrCompArgType{Comp: "$size", Want: "integer", Actual: arg}
	}
	return comparison{op: opSize, arg: n}, true, nil
}

func (m *Matcher) compileElemMatchComparison(arg any) (cmp comparison, found bool, err error) {
	sub, err := m.compileQuery(arg)
	if err != nil {
		return cmp, true, err
	}
	return comparison{op: opElemMatch, arg: sub}, true, nil
}

// Match implements [domain.Matcher].
func (m *Matcher) Match(value any) (matches bool, err error) {
	return m.evalPlan(value, m.compiled)
}

// evalPlan evaluates a compiled plan against a candidate value, wrapping
// bare (non-document) values under a synthetic field first when needed.
func (m *Matcher) evalPlan(value any, p plan) (bool, error) {
	doc, ok := value.(domain.Document)

	var err error
	if !ok || m.compiled.scalar {
		if m.scratch == nil {
			if m.scratch, err = m.docFactory(nil); err != nil {
				return false, err
			}
		}
		doc = m.scratch
		doc.Set("needAKey", value)
	}

	for _, root := range p.roots {
		matches, err := m.evalCombinator(doc, root)
		if err != nil || !matches {
			return matches, err
		}
	}
	return true, nil
}

// evalCombinator evaluates one node of the compiled boolean tree.
func (m *Matcher) evalCombinator(doc domain.Document, node combinator) (bool, error) {
	switch node.kind {
	case combineAnd:
		for _, child := range node.children {
			matches, err := m.evalCombinator(doc, child)
			if err != nil || !matches {
				return matches, err
			}
		}
		for _, fp := range node.fields {
			matches, err := m.evalFieldPredicate(doc, fp)
			if err != nil || !matches {
				return matches, err
			}
		}
		return true, nil
	case combineOr:
		for _, child := range node.children {
			matches, err := m.evalCombinator(doc, child)
			if err != nil || matches {
				return matches, err
			}
		}
		return false, nil
	case combineNot:
		matches, err := m.evalCombinator(doc, node.children[0])
		if err != nil {
			return false, err
		}
		return !matches, nil
	case combineWhere:
		return (*node.guard)(doc)
	default:
		return false, nil
	}
}

// evalFieldPredicate evaluates every comparison attached to one field path.
func (m *Matcher) evalFieldPredicate(doc domain.Document, fp fieldPredicate) (bool, error) {
	values, expanded, err := m.nav.GetField(doc, fp.path...)
	if err != nil {
		return false, err
	}

	for _, cmp := range fp.comparisons {
		matches, err := m.evalComparison(values, expanded, &cmp)
		if err != nil || !matches {
			return matches, err
		}
	}
	return true, nil
}

// evalComparison dispatches a single comparison against the values
// resolved for a field path.
func (m *Matcher) evalComparison(values []domain.GetSetter, expanded bool, cmp *comparison) (bool, error) {
	switch cmp.op {
	case opEq:
		return m.evalEquality(values, expanded, cmp)
	case opRegex:
		return m.evalRegex(values, cmp)
	case opNin:
		return m.evalNotIn(values, cmp)
	case opLt:
		return m.evalOrdering(values, cmp, func(c int) bool { return c < 0 })
	case opGte:
		return m.evalOrdering(values, cmp, func(c int) bool { return c >= 0 })
	case opLte:
		return m.evalOrdering(values, cmp, func(c int) bool { return c <= 0 })
	case opGt:
		return m.evalOrdering(values, cmp, func(c int) bool { return c > 0 })
	case opNe:
		return m.evalOrdering(values, cmp, func(c int) bool { return c != 0 })
	case opIn:
		return m.evalIn(values, cmp)
	case opExists:
		return m.evalExists(values, cmp)
	case opSize:
		return m.evalSize(values, expanded, cmp)
	case opElemMatch:
		return m.evalElemMatch(values, cmp)
	default:
		return false, nil
	}
}

func (m *Matcher) evalEquality(values []domain.GetSetter, expanded bool, cmp *comparison) (bool, error) {
	if expanded {
		matched, done, err := m.evalEqualityExpanded(values, cmp)
		if done {
			return matched, err
		}
	}

	for _, value := range values {
		actual, ok := m.unwrap(value)
		if !ok {
			continue
		}

		if arr, isArr := actual.([]any); isArr {
			target, _ := m.unwrap(cmp.arg)
			found, err := structure.Contains(arr, target, m.equal)
			if err != nil || found {
				return found, err
			}
		}
		c, err := m.cmp.Compare(actual, cmp.arg)
		if err != nil {
			return false, err
		}
		if c == 0 {
			return true, nil
		}
	}
	return false, nil
}

// evalEqualityExpanded handles a field path that fanned out into multiple
// array-projected values (e.g. "items.name" over an array of objects):
// equality succeeds if any projected value, or any element of an array
// among them, equals the target.
func (m *Matcher) evalEqualityExpanded(values []domain.GetSetter, cmp *comparison) (bool, bool, error) {
	for _, value := range values {
		concrete, ok := m.unwrap(value)
		if !ok {
			continue
		}
		if arr, isArr := concrete.([]any); isArr {
			for _, item := range arr {
				item, ok = m.unwrap(item)
				if !ok {
					continue
				}
				if !m.cmp.Comparable(item, cmp.arg) {
					continue
				}
				c, err := m.cmp.Compare(item, cmp.arg)
				if err != nil {
					return false, true, err
				}
				if c == 0 {
					return true, true, nil
				}
			}
		}
		if !m.cmp.Comparable(concrete, cmp.arg) {
			continue
		}
		c, err := m.cmp.Compare(concrete, cmp.arg)
		if err != nil {
			return false, true, err
		}
		if c == 0 {
			return true, true, nil
		}
	}
	return false, false, nil
}

// unwrap follows a chain of [domain.Getter] values down to a concrete
// value, reporting false if any link in the chain is undefined.
func (m *Matcher) unwrap(v any) (res any, ok bool) {
	res = v
	for {
		g, isGetter := res.(domain.Getter)
		if !isGetter {
			return res, true
		}
		if res, ok = g.Get(); !ok {
			return nil, false
		}
	}
}

// equal adapts the comparer's three-way [domain.Comparer.Compare] into the
// boolean predicate [structure.Contains] expects.
func (m *Matcher) equal(a, b any) (bool, error) {
	c, err := m.cmp.Compare(a, b)
	if err != nil {
		return false, err
	}
	return c == 0, nil
}

func (m *Matcher) evalRegex(values []domain.GetSetter, cmp *comparison) (bool, error) {
	rgx := cmp.arg.(*regexp.Regexp)
	for _, value := range values {
		actual, ok := m.unwrap(value)
		if !ok {
			return false, nil
		}
		str, ok := actual.(string)
		if !ok {
			return false, nil
		}
		if !rgx.MatchString(str) {
			return false, nil
		}
	}
	return true, nil
}

func (m *Matcher) evalNotIn(values []domain.GetSetter, cmp *comparison) (bool, error) {
	m.materializeSet(cmp)

	set := cmp.arg.([]any)
	for _, value := range values {
		actual, ok := value.Get()
		if !ok {
			continue
		}
		found, err := structure.Contains(set, actual, m.equal)
		if err != nil || found {
			return false, err
		}
	}
	return true, nil
}

func (m *Matcher) evalIn(values []domain.GetSetter, cmp *comparison) (bool, error) {
	m.materializeSet(cmp)

	set := cmp.arg.([]any)
	for _, value := range values {
		actual, ok := value.Get()
		if !ok {
			continue
		}
		found, err := structure.Contains(set, actual, m.equal)
		if err != nil || !found {
			return false, err
		}
	}
	return true, nil
}

// materializeSet drains the once-only sequence backing a `$in`/`$nin`
// comparison into a reusable slice, memoizing the result on cmp itself
// since the same compiled comparison may be evaluated many times.
func (m *Matcher) materializeSet(cmp *comparison) {
	if cmp.resolved {
		return
	}
	set := make([]any, 0, cmp.length)
	set = slices.AppendSeq(set, cmp.arg.(iter.Seq[any]))
	cmp.arg = set
	cmp.resolved = true
}

// evalOrdering implements every strict/non-strict ordering comparison
// ($lt, $lte, $gt, $gte, $ne) against a shared traversal: it walks each
// resolved value (fanning into array elements when present) and succeeds
// as soon as one satisfies holds(c), where c is the three-way comparison
// result against the comparison argument.
func (m *Matcher) evalOrdering(values []domain.GetSetter, cmp *comparison, holds func(c int) bool) (bool, error) {
	for _, value := range values {
		concrete, ok := m.unwrap(value)
		if !ok {
			continue
		}
		if arr, isArr := concrete.([]any); isArr {
			for _, item := range arr {
				item, ok = m.unwrap(item)
				if !ok {
					continue
				}
				if !m.cmp.Comparable(item, cmp.arg) {
					return false, nil
				}
				c, err := m.cmp.Compare(item, cmp.arg)
				if err != nil {
					return false, err
				}
				if holds(c) {
					return true, nil
				}
			}
		}
		if !m.cmp.Comparable(concrete, cmp.arg) {
			return false, nil
		}
		c, err := m.cmp.Compare(concrete, cmp.arg)
		if err != nil {
			return false, err
		}
		if holds(c) {
			return true, nil
		}
	}
	return false, nil
}

func (m *Matcher) evalExists(values []domain.GetSetter, cmp *comparison) (bool, error) {
	exists := false
	for _, value := range values {
		if _, ok := value.Get(); ok {
			exists = true
			break
		}
	}
	return exists == cmp.arg.(bool), nil
}

func (m *Matcher) evalSize(values []domain.GetSetter, expanded bool, cmp *comparison) (bool, error) {
	want := cmp.arg.(int)
	if expanded {
		return len(values) == want, nil
	}

	actual, _ := values[0].Get()
	if actual == nil {
		return false, nil
	}

	arr, ok := actual.([]any)
	if !ok {
		return false, nil
	}

	return len(arr) == want, nil
}

func (m *Matcher) evalElemMatch(values []domain.GetSetter, cmp *comparison) (bool, error) {
	sub := cmp.arg.(plan)
	for _, value := range values {
		actual, ok := value.Get()
		if !ok {
			continue
		}
		arr, ok := actual.([]any)
		if !ok {
			arr = []any{actual}
		}
		for _, elem := range arr {
			matches, err := m.evalPlan(elem, sub)
			if err != nil || matches {
				return matches, err
			}
		}
	}
	return false, nil
}
