package bytecode

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ops := []Op{OpCUP, OpLDA, OpADI, OpSTP, OpIXA}
	operand1s := []int{0, 1, MaxOperand1, 42}
	operand2s := []int{0, 1, MaxOperand2, 1000}

	for _, op := range ops {
		for _, o1 := range operand1s {
			for _, o2 := range operand2s {
				word := Encode(op, o1, o2)
				got := Decode(word)
				if got.Op != op || got.Operand1 != o1 || got.Operand2 != o2 {
					t.Fatalf("round trip failed for (%v,%d,%d): got %v", op, o1, o2, got)
				}
			}
		}
	}
}

func TestCheckOperandRangeRejectsOutOfRange(t *testing.T) {
	if err := CheckOperandRange(-1, 0); err == nil {
		t.Fatal("expected error for negative operand1")
	}
	if err := CheckOperandRange(0, MaxOperand2+1); err == nil {
		t.Fatal("expected error for oversized operand2")
	}
	if err := CheckOperandRange(MaxOperand1, MaxOperand2); err != nil {
		t.Fatalf("expected max operands to be accepted, got %v", err)
	}
}

func TestConstantPoolDeduplicates(t *testing.T) {
	b := New()
	i1 := b.InternInt(42)
	i2 := b.InternInt(42)
	i3 := b.InternInt(43)
	if i1 != i2 {
		t.Fatalf("expected duplicate int constants to share an index, got %d and %d", i1, i2)
	}
	if i1 == i3 {
		t.Fatal("expected distinct int constants to get distinct indices")
	}
	s1 := b.InternString("hi")
	s2 := b.InternString("hi")
	if s1 != s2 {
		t.Fatalf("expected duplicate string constants to share an index, got %d and %d", s1, s2)
	}
}
