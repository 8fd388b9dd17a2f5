package ast

import "testing"

type noNatives struct{}

func (noNatives) Lookup(name string) (*NativeProcedureInfo, bool) { return nil, false }

func TestParametersAddressedBeforeVariables(t *testing.T) {
	root := NewRootSymbolTable(noNatives{})
	fn := NewChildSymbolTable(root)

	intType := &Node{Kind: KindSimpleType, SimpleCode: TInteger}
	p := fn.DefineParameter("a", intType, false, 1)
	if p.Address != MarkSize {
		t.Fatalf("first parameter should sit right after the mark, got %d", p.Address)
	}

	v := fn.DefineVariable("x", intType, 1)
	if v.Address != MarkSize+1 {
		t.Fatalf("variable should be addressed after all parameters, got %d", v.Address)
	}
}

func TestByRefParameterOccupiesOneWordRegardlessOfSize(t *testing.T) {
	root := NewRootSymbolTable(noNatives{})
	fn := NewChildSymbolTable(root)
	bigType := &Node{Kind: KindArrayType}
	fn.DefineParameter("buf", bigType, true, 100)
	if fn.TotalParameterSize != 1 {
		t.Fatalf("by-reference parameter should cost one word, got %d", fn.TotalParameterSize)
	}
}

func TestLookupWalksParentScopesAndCountsLevel(t *testing.T) {
	root := NewRootSymbolTable(noNatives{})
	root.DefineVariable("g", &Node{Kind: KindSimpleType, SimpleCode: TInteger}, 1)

	outer := NewChildSymbolTable(root)
	outer.DefineVariable("o", &Node{Kind: KindSimpleType, SimpleCode: TInteger}, 1)

	inner := NewChildSymbolTable(outer)
	inner.DefineVariable("i", &Node{Kind: KindSimpleType, SimpleCode: TInteger}, 1)

	if lk, ok := inner.Lookup("i"); !ok || lk.Level != 0 {
		t.Fatalf("local lookup should be level 0, got %v ok=%v", lk, ok)
	}
	if lk, ok := inner.Lookup("o"); !ok || lk.Level != 1 {
		t.Fatalf("one-parent-up lookup should be level 1, got %v ok=%v", lk, ok)
	}
	if lk, ok := inner.Lookup("g"); !ok || lk.Level != 2 {
		t.Fatalf("root lookup should be level 2, got %v ok=%v", lk, ok)
	}
	if _, ok := inner.Lookup("missing"); ok {
		t.Fatal("expected lookup miss for undeclared name")
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	root := NewRootSymbolTable(noNatives{})
	root.DefineVariable("Count", &Node{Kind: KindSimpleType, SimpleCode: TInteger}, 1)
	if _, ok := root.Lookup("COUNT"); !ok {
		t.Fatal("expected case-insensitive lookup to find Count")
	}
}
