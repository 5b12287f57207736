package tritium

// cellKind discriminates the two ResultCell variants.
type cellKind uint8

const (
	cellValue cellKind = iota
	cellThrown
)

// ResultCell is the tagged union { Value(v) | Thrown(e) } spec §3 defines:
// the captured outcome of a successful return or a thrown failure during a
// prior evaluation. Both variants are cached identically so failures
// participate in invalidation the same way values do (spec §4.3 "Failure
// propagation").
type ResultCell struct {
	kind  cellKind
	value any
	err   error
}

// ValueCell wraps a successful result.
func ValueCell(v any) ResultCell {
	return ResultCell{kind: cellValue, value: v}
}

// ThrownCell wraps a predicate failure.
func ThrownCell(err error) ResultCell {
	return ResultCell{kind: cellThrown, err: err}
}

// IsValue reports whether the cell holds a successful value.
func (c ResultCell) IsValue() bool {
	return c.kind == cellValue
}

// IsThrown reports whether the cell holds a captured failure.
func (c ResultCell) IsThrown() bool {
	return c.kind == cellThrown
}

// Value returns the held value and ok=true if the cell is a value cell.
func (c ResultCell) Value() (any, bool) {
	if c.kind != cellValue {
		return nil, false
	}
	return c.value, true
}

// Err returns the held error and ok=true if the cell is a thrown cell.
func (c ResultCell) Err() (error, bool) {
	if c.kind != cellThrown {
		return nil, false
	}
	return c.err, true
}

// Resolve returns (value, nil) for a value cell or (nil, err) for a thrown
// cell — the shape every reader (Evaluator.Get, Accessor.Get, ...)
// ultimately wants.
func (c ResultCell) Resolve() (any, error) {
	if c.kind == cellThrown {
		return nil, c.err
	}
	return c.value, nil
}
