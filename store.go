package tritium

import "github.com/benbjohnson/immutable"

// Store is the persistent (functional) map Expression -> ResultCell plus
// its two persistent indices, contributors and dependents (spec §3). Every
// method returns a new Store without mutating the receiver; Store carries no
// evaluator state (currentlyComputing, deepestComputingExpr live on the
// ephemeral evaluator instead, see evaluator.go, per spec §9's design note).
type Store struct {
	cache        *immutable.Map[Expression, ResultCell]
	contributors *immutable.Map[Expression, Set]
	dependents   *immutable.Map[Expression, Set]
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		cache:        immutable.NewMap[Expression, ResultCell](expressionHasher{}),
		contributors: immutable.NewMap[Expression, Set](expressionHasher{}),
		dependents:   immutable.NewMap[Expression, Set](expressionHasher{}),
	}
}

// Lookup returns the cached cell for e, if any.
func (s *Store) Lookup(e Expression) (ResultCell, bool) {
	return s.cache.Get(e)
}

// Contributors returns the set of expressions e consulted during its most
// recent evaluation.
func (s *Store) Contributors(e Expression) Set {
	v, ok := s.contributors.Get(e)
	if !ok {
		return EmptySet
	}
	return v
}

// Dependents returns the set of expressions that consulted e during their
// most recent evaluation — the inverse of Contributors.
func (s *Store) Dependents(e Expression) Set {
	v, ok := s.dependents.Get(e)
	if !ok {
		return EmptySet
	}
	return v
}

// ForEachCached calls fn for every expression currently holding a cache
// entry. Iteration order is unspecified; used by debug tooling (the graph
// visualizer) rather than anything on the evaluation hot path.
func (s *Store) ForEachCached(fn func(Expression, ResultCell)) {
	itr := s.cache.Iterator()
	for !itr.Done() {
		e, cell := itr.Next()
		fn(e, cell)
	}
}

func (s *Store) clone() *Store {
	cp := *s
	return &cp
}

func (s *Store) withCache(e Expression, cell ResultCell) *Store {
	ns := s.clone()
	ns.cache = s.cache.Set(e, cell)
	return ns
}

func (s *Store) withoutCache(e Expression) *Store {
	ns := s.clone()
	ns.cache = s.cache.Delete(e)
	return ns
}

func (s *Store) withContributors(e Expression, set Set) *Store {
	ns := s.clone()
	if set.Len() == 0 {
		ns.contributors = s.contributors.Delete(e)
	} else {
		ns.contributors = s.contributors.Set(e, set)
	}
	return ns
}

func (s *Store) withDependents(e Expression, set Set) *Store {
	ns := s.clone()
	if set.Len() == 0 {
		ns.dependents = s.dependents.Delete(e)
	} else {
		ns.dependents = s.dependents.Set(e, set)
	}
	return ns
}

// dependentsClosure computes the transitive closure over `dependents`
// before any deletion (spec §4.2). The walk is depth-first (a LIFO stack);
// the resulting set does not depend on visiting order. This is the persistent
// analogue of the teacher's graph.go ReactiveGraph.FindDependents, which
// walks a mutable adjacency list with an explicit stack instead of
// recursion to avoid stack overflow on deep chains; the same iterative
// shape is kept here, just reading from Store.dependents instead of
// ReactiveGraph.downstream.
func (s *Store) dependentsClosure(start Expression) Set {
	visited := NewSet(start)
	stack := []Expression{start}
	result := EmptySet

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		next := s.Dependents(current)
		for _, dep := range next.Slice() {
			if visited.Contains(dep) {
				continue
			}
			visited = visited.Add(dep)
			result = result.Add(dep)
			stack = append(stack, dep)
		}
	}

	return result
}

// addContributorEdge records the edge "dependent consulted contributor",
// i.e. contributor ∈ contributors[dependent] and dependent ∈
// dependents[contributor], maintaining invariant I1 (contributors and
// dependents are exact inverses) by construction.
func (s *Store) addContributorEdge(contributor, dependent Expression) *Store {
	ns := s.withContributors(dependent, s.Contributors(dependent).Add(contributor))
	ns = ns.withDependents(contributor, ns.Dependents(contributor).Add(dependent))
	return ns
}

// invalidate removes every expression in affected from cache and clears
// their contributor edges (spec I2: "If e is not in cache, then
// contributors[e] is empty"), symmetrically removing the cleared
// expressions from their former contributors' dependents sets.
func (s *Store) invalidate(affected Set) *Store {
	ns := s
	for _, a := range affected.Slice() {
		for _, c := range ns.Contributors(a).Slice() {
			ns = ns.withDependents(c, ns.Dependents(c).Remove(a))
		}
		ns = ns.withContributors(a, EmptySet)
		ns = ns.withoutCache(a)
	}
	return ns
}

// WithResult implements spec §4.2's withResult: compute
// affected = dependents*(e) ∪ {e} over the current dependents closure,
// invalidate every affected expression, then install cell at e. If e's head
// is a CascadingPredicate, the cascade protocol (§4.5, cascade.go) runs
// afterward and its consequences are unioned into the returned affected set
// without themselves being invalidated by this call's invalidation step.
func (s *Store) WithResult(e Expression, cell ResultCell) (*Store, Set) {
	affected := s.dependentsClosure(e).Add(e)
	ns := s.invalidate(affected)
	ns = ns.withCache(e, cell)

	if pred, ok := e.HeadPredicate(); ok && pred.isCascading() {
		if v, isValue := cell.Value(); isValue {
			var cascadeAffected Set
			ns, cascadeAffected = runCascade(ns, pred, e, v)
			affected = affected.Union(cascadeAffected)
		}
	}

	return ns, affected
}

// With is withResult(e, Value(v)).store.
func (s *Store) With(e Expression, v any) *Store {
	ns, _ := s.WithResult(e, ValueCell(v))
	return ns
}

// WithError is withResult(e, Thrown(err)).store.
func (s *Store) WithError(e Expression, err error) *Store {
	ns, _ := s.WithResult(e, ThrownCell(err))
	return ns
}

// setDerivative performs withResult(d, Value(v)) and additionally records
// d as a dependent of creator (spec §4.4: "records d ∈ dependents
// [deepestComputingExpr]"), so invalidating creator also invalidates every
// derivative it set. Returns the new store and the affected set of the
// underlying write (derivative writes are not cascading, so no cascade
// bookkeeping is needed here).
func (s *Store) setDerivative(d Expression, v any, creator Expression) (*Store, Set) {
	ns, affected := s.WithResult(d, ValueCell(v))
	ns = ns.addContributorEdge(creator, d)
	return ns, affected
}
