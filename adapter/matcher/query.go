package matcher

// Boolean combinators a compiled query tree can use to join field
// predicates or nested combinators together.
const (
	combineAnd uint8 = iota
	combineOr
	combineNot
	combineWhere
)

// Per-field comparison operators a compiled predicate can evaluate against
// a candidate value.
const (
	opEq uint8 = iota
	opNe
	opExists
	opLt
	opLte
	opGt
	opGte
	opSize
	opIn
	opNin
	opElemMatch
	opRegex
)

// plan is the compiled, typed form of a raw query document. Compiling once
// up front in [Matcher.SetQuery] means every [Matcher.Match] call walks a
// fixed tree instead of re-inspecting the raw query shape.
type plan struct {
	// scalar marks a plan compiled from a bare (non-object) query value,
	// meaning matching must wrap the candidate under a synthetic field
	// before evaluating rules against it.
	scalar bool
	roots  []combinator
}

// combinator is one node of the boolean tree: either $and/$or/$not/$where,
// or a leaf holding the field predicates that must all match.
type combinator struct {
	kind     uint8
	fields   []fieldPredicate
	children []combinator
	guard    *func(v any) (bool, error)
}

// fieldPredicate ties a dot-path address to the comparisons that must all
// hold for a document to satisfy it.
type fieldPredicate struct {
	path        []string
	comparisons []comparison
}

// comparison is a single operator/operand pair compiled from a query
// fragment such as {age: {$gt: 3}}.
type comparison struct {
	op       uint8
	arg      any
	resolved bool
	length   int
}
