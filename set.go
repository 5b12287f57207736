package tritium

import "github.com/benbjohnson/immutable"

// Set is a persistent, structurally-equal-keyed set of Expressions, backed
// by the same hash-array-mapped trie as Store's indices. All operations
// return a new Set; the receiver is never mutated. This satisfies spec §6's
// External Interfaces requirement for set containers: add, remove, union,
// contains, plus iteration.
type Set struct {
	m *immutable.Map[Expression, struct{}]
}

// EmptySet is the empty Set; the zero value of Set is also valid and equal
// in behavior to EmptySet.
var EmptySet = Set{}

func (s Set) backing() *immutable.Map[Expression, struct{}] {
	if s.m == nil {
		return immutable.NewMap[Expression, struct{}](expressionHasher{})
	}
	return s.m
}

// Contains reports whether e is a member of s.
func (s Set) Contains(e Expression) bool {
	if s.m == nil {
		return false
	}
	_, ok := s.m.Get(e)
	return ok
}

// Add returns a new Set with e inserted.
func (s Set) Add(e Expression) Set {
	return Set{m: s.backing().Set(e, struct{}{})}
}

// Remove returns a new Set with e absent.
func (s Set) Remove(e Expression) Set {
	if s.m == nil {
		return s
	}
	return Set{m: s.m.Delete(e)}
}

// Union returns a new Set containing every member of s and other.
func (s Set) Union(other Set) Set {
	if other.Len() == 0 {
		return s
	}
	result := s.backing()
	itr := other.backing().Iterator()
	for !itr.Done() {
		e, _ := itr.Next()
		result = result.Set(e, struct{}{})
	}
	return Set{m: result}
}

// Len returns the number of members.
func (s Set) Len() int {
	if s.m == nil {
		return 0
	}
	return s.m.Len()
}

// Slice returns the set's members in unspecified order.
func (s Set) Slice() []Expression {
	if s.m == nil {
		return nil
	}
	out := make([]Expression, 0, s.m.Len())
	itr := s.m.Iterator()
	for !itr.Done() {
		e, _ := itr.Next()
		out = append(out, e)
	}
	return out
}

// ForEach calls fn for every member of s; iteration order is unspecified.
func (s Set) ForEach(fn func(Expression)) {
	if s.m == nil {
		return
	}
	itr := s.m.Iterator()
	for !itr.Done() {
		e, _ := itr.Next()
		fn(e)
	}
}

// NewSet builds a Set from the given expressions.
func NewSet(exprs ...Expression) Set {
	s := EmptySet
	for _, e := range exprs {
		s = s.Add(e)
	}
	return s
}
