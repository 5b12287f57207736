package tritium

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// Expression is a canonical, ordered sequence of terms. Its head (terms[0])
// is the predicate; the remainder are arguments. Two expressions are equal
// iff their term sequences are element-wise equal under structural
// equality — see termEqual.
//
// Expression is a value type and is never mutated after construction; all
// operations that would "change" an expression build a new one. This is the
// "listy" input form of spec §4.1: NewExpression accepts a plain variadic
// sequence and NewExpressionFromTerms an existing []Term, and both
// normalize to the same Expression value so lookups never observe
// two inequal internal representations for the same logical tuple.
type Expression struct {
	terms []Term
}

// NewExpression builds a canonical Expression from a head (predicate or tag)
// and its arguments.
func NewExpression(head Term, args ...Term) Expression {
	return NewExpressionFromTerms(append([]Term{head}, args...))
}

// NewExpressionFromTerms builds a canonical Expression from an already
// assembled term sequence (the "listy" input form). The slice is copied so
// the caller's backing array can't alias a cached Expression.
func NewExpressionFromTerms(terms []Term) Expression {
	for _, t := range terms {
		if !isValidTerm(t) {
			panic(fmt.Sprintf("tritium: invalid expression term %#v (type %T)", t, t))
		}
	}
	copied := make([]Term, len(terms))
	copy(copied, terms)
	return Expression{terms: copied}
}

// Head returns the expression's predicate/tag term.
func (e Expression) Head() Term {
	if len(e.terms) == 0 {
		return nil
	}
	return e.terms[0]
}

// Args returns the expression's argument terms (everything after the head).
func (e Expression) Args() []Term {
	if len(e.terms) <= 1 {
		return nil
	}
	return e.terms[1:]
}

// Terms returns the full term sequence, head included.
func (e Expression) Terms() []Term {
	return e.terms
}

// IsZero reports whether e is the zero Expression (no terms). Used as the
// "no deepest computing expression" sentinel by the evaluator.
func (e Expression) IsZero() bool {
	return e.terms == nil
}

// HeadPredicate returns the expression's head as a *Predicate, if it is one.
func (e Expression) HeadPredicate() (*Predicate, bool) {
	return isPredicate(e.Head())
}

func (e Expression) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, t := range e.terms {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(termString(t))
	}
	sb.WriteByte(')')
	return sb.String()
}

func termString(t Term) string {
	switch v := t.(type) {
	case *Predicate:
		return "#" + v.name
	case *Tag:
		return "@" + v.name
	case *DerivativeID:
		return "~" + v.String()
	case Expression:
		return v.String()
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// termEqual implements structural equality: functions (Predicates) by
// reference identity, Tags by reference identity, DerivativeIds by the
// structural equality of their fields, everything else by ==.
func termEqual(a, b Term) bool {
	switch av := a.(type) {
	case *Predicate:
		bv, ok := b.(*Predicate)
		return ok && av == bv
	case *Tag:
		bv, ok := b.(*Tag)
		return ok && av == bv
	case *DerivativeID:
		bv, ok := b.(*DerivativeID)
		return ok && av.Equal(bv)
	case Expression:
		bv, ok := b.(Expression)
		return ok && exprEqual(av, bv)
	default:
		return a == b
	}
}

// exprEqual implements Expression structural equality.
func exprEqual(a, b Expression) bool {
	if len(a.terms) != len(b.terms) {
		return false
	}
	for i := range a.terms {
		if !termEqual(a.terms[i], b.terms[i]) {
			return false
		}
	}
	return true
}

// termHash combines a per-term hash contribution into an FNV accumulator,
// the "hash of the term sequence combining per-term hashes" spec §9
// recommends as the grounding for a HAMT key.
func termHash(h *fnv0a, t Term) {
	switch v := t.(type) {
	case *Predicate:
		h.writeUint64(v.id)
	case *Tag:
		// Tag identity can't be captured by value alone; hash the pointer's
		// string form (equality still uses == via termEqual).
		h.writeString("tag:" + fmt.Sprintf("%p", v))
	case *DerivativeID:
		h.writeString("deriv:")
		exprHashInto(h, v.CreatingExpr)
		h.writeString(fmt.Sprintf("%v", v.UniqueKey))
	case Expression:
		h.writeString("expr:")
		exprHashInto(h, v)
	case string:
		h.writeString("s:" + v)
	case bool:
		if v {
			h.writeString("b:1")
		} else {
			h.writeString("b:0")
		}
	case nil:
		h.writeString("nil")
	default:
		h.writeString(fmt.Sprintf("n:%v", v))
	}
}

func exprHashInto(h *fnv0a, e Expression) {
	for _, t := range e.terms {
		termHash(h, t)
		h.writeByte(0x1f)
	}
}

func exprHash(e Expression) uint32 {
	h := newFNV0a()
	exprHashInto(h, e)
	return h.sum
}

// fnv0a is a tiny streaming wrapper over hash/fnv's 32-bit implementation,
// used so Expression hashing doesn't allocate an intermediate string.
type fnv0a struct {
	sum uint32
}

func newFNV0a() *fnv0a {
	f := fnv.New32a()
	return &fnv0a{sum: f.Sum32()}
}

func (h *fnv0a) writeByte(b byte) {
	const prime = 16777619
	h.sum ^= uint32(b)
	h.sum *= prime
}

func (h *fnv0a) writeString(s string) {
	for i := 0; i < len(s); i++ {
		h.writeByte(s[i])
	}
}

func (h *fnv0a) writeUint64(v uint64) {
	for i := 0; i < 8; i++ {
		h.writeByte(byte(v >> (8 * i)))
	}
}

// expressionHasher implements immutable.Hasher[Expression] for use as the
// backing HAMT's key comparator.
type expressionHasher struct{}

func (expressionHasher) Hash(e Expression) uint32 {
	return exprHash(e)
}

func (expressionHasher) Equal(a, b Expression) bool {
	return exprEqual(a, b)
}
