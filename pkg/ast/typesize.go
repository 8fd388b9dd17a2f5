package ast

// TypeSize reports a type's size in data-store words (spec §3, §4.3):
// every simple type and pointer occupies one word; an array is the
// product of its dimension lengths and its element size; a record is the
// sum of its fields' sizes.
func TypeSize(t *Node) int {
	if t == nil {
		return 1
	}
	switch t.Kind {
	case KindArrayType:
		sz := TypeSize(t.ElemType)
		for _, rng := range t.Ranges {
			sz *= RangeLen(rng)
		}
		return sz
	case KindRecordType:
		sz := 0
		for _, f := range t.Fields {
			sz += TypeSize(f.ElemType)
		}
		return sz
	default:
		return 1
	}
}

// RangeLen returns a constant range's element count (high-low+1).
func RangeLen(rng *Node) int {
	lo, loErr := EvalConstInt(rng.Low)
	hi, hiErr := EvalConstInt(rng.High)
	if loErr != nil || hiErr != nil || hi < lo {
		return 0
	}
	return int(hi-lo) + 1
}

// EvalConstInt evaluates a constant integer expression: a literal, a
// reference to a previously resolved untyped integer constant, or a
// unary minus/plus of either. Used for array bounds and stride
// arithmetic, which must be known at parse/compile time.
func EvalConstInt(n *Node) (int64, error) {
	if n == nil {
		return 0, errNotConstInt
	}
	switch n.Kind {
	case KindNumber:
		if n.IsReal {
			return 0, errNotConstInt
		}
		return n.Int, nil
	case KindIdentifier:
		if n.SymbolLookup != nil && n.SymbolLookup.Symbol.Value != nil {
			return EvalConstInt(n.SymbolLookup.Symbol.Value)
		}
		return 0, errNotConstInt
	case KindUnary:
		v, err := EvalConstInt(n.Right)
		if err != nil {
			return 0, err
		}
		switch n.Operator {
		case OpNegate:
			return -v, nil
		case OpPlus:
			return v, nil
		}
	}
	return 0, errNotConstInt
}

type constIntError string

func (e constIntError) Error() string { return string(e) }

var errNotConstInt = constIntError("not a constant integer expression")

// FieldOffset returns the word offset of the field named name within the
// record type rec, and the field's declared type.
func FieldOffset(rec *Node, name string) (int, *Node, bool) {
	offset := 0
	for _, f := range rec.Fields {
		if equalFoldASCII(f.Name, name) {
			return offset, f.ElemType, true
		}
		offset += TypeSize(f.ElemType)
	}
	return 0, nil, false
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// StrideFor returns the IXA stride for dimension dim of an array type:
// the product of the element size and the sizes of the inner dimensions
// (spec §4.4's lvalue walker).
func StrideFor(arrType *Node, dim int) int {
	stride := TypeSize(arrType.ElemType)
	for j := dim + 1; j < len(arrType.Ranges); j++ {
		stride *= RangeLen(arrType.Ranges[j])
	}
	return stride
}
