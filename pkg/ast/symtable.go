package ast

import "strings"

// MarkSize is the fixed 5-word activation-frame header: return value,
// static link, dynamic link, saved extreme pointer, return address.
const MarkSize = 5

// NativeProcedureInfo is what a NativeRegistry hands back for a registered
// native name: its call-site index and its signature, so the parser can
// type-check call sites the same way it type-checks user subprogram calls.
type NativeProcedureInfo struct {
	Address     int
	ReturnType  *Node
	ParamTypes  []*Node
	ParamByRef  []bool
}

// NativeRegistry is the interface SymbolTable needs from a native
// procedure registry (package native's *Registry implements it). Declared
// here, consumer-side, so package ast never imports package native.
type NativeRegistry interface {
	Lookup(name string) (*NativeProcedureInfo, bool)
}

// SymbolTable is a lexically scoped table of value and type symbols, with
// a parent link for resolving enclosing scopes. Keys are lower-cased on
// insertion and lookup (identifier comparisons are case-insensitive).
type SymbolTable struct {
	parent *SymbolTable
	values map[string]*Symbol
	types  map[string]*Node

	natives NativeRegistry

	TotalParameterSize     int
	TotalVariableSize      int
	TotalTypedConstantsSize int
}

// NewRootSymbolTable creates the outermost table, seeded with the
// registry every descendant scope will share.
func NewRootSymbolTable(natives NativeRegistry) *SymbolTable {
	return &SymbolTable{
		values:  make(map[string]*Symbol),
		types:   make(map[string]*Node),
		natives: natives,
	}
}

// NewChildSymbolTable creates a scope nested under parent, e.g. for a
// procedure or function body. It shares the root's NativeRegistry.
func NewChildSymbolTable(parent *SymbolTable) *SymbolTable {
	return &SymbolTable{
		parent:  parent,
		values:  make(map[string]*Symbol),
		types:   make(map[string]*Node),
		natives: parent.natives,
	}
}

func key(name string) string { return strings.ToLower(name) }

// Natives returns the shared native procedure registry.
func (t *SymbolTable) Natives() NativeRegistry { return t.natives }

// DefineParameter adds a parameter; parameters are allocated before
// variables so parameter addresses remain stable regardless of how many
// variables a subprogram later declares. A by-reference parameter always
// occupies one word; a by-value parameter occupies its full type size.
func (t *SymbolTable) DefineParameter(name string, typ *Node, byRef bool, size int) *Symbol {
	word := size
	if byRef {
		word = 1
	}
	addr := MarkSize + t.TotalParameterSize
	sym := &Symbol{Name: name, Type: typ, Address: addr, ByRef: byRef}
	t.values[key(name)] = sym
	t.TotalParameterSize += word
	return sym
}

// DefineVariable adds a var or typed-const declaration, sized size words.
func (t *SymbolTable) DefineVariable(name string, typ *Node, size int) *Symbol {
	addr := MarkSize + t.TotalParameterSize + t.TotalVariableSize
	sym := &Symbol{Name: name, Type: typ, Address: addr}
	t.values[key(name)] = sym
	t.TotalVariableSize += size
	return sym
}

// DefineTypedConstant adds a typed-const declaration carrying its raw
// initializer data, sized size words.
func (t *SymbolTable) DefineTypedConstant(name string, typ *Node, size int, data *RawData) *Symbol {
	sym := t.DefineVariable(name, typ, size)
	sym.Value = &Node{Kind: KindTypedConst, Name: name, RawData: data}
	t.TotalTypedConstantsSize += size
	return sym
}

// DefineUntypedConstant adds a const declaration with no storage: its
// value is substituted at compile time wherever it's referenced.
func (t *SymbolTable) DefineUntypedConstant(name string, typ *Node, value *Node) *Symbol {
	sym := &Symbol{Name: name, Type: typ, Value: value}
	t.values[key(name)] = sym
	return sym
}

// DefineSubprogram records a user procedure/function; Address is filled
// in by the compiler once it knows the subprogram's entry instruction.
func (t *SymbolTable) DefineSubprogram(name string, typ *Node) *Symbol {
	sym := &Symbol{Name: name, Type: typ}
	t.values[key(name)] = sym
	return sym
}

// DefineType registers a type alias/definition in the local scope.
func (t *SymbolTable) DefineType(name string, typ *Node) {
	t.types[key(name)] = typ
}

// LookupType resolves a type name, walking parent scopes.
func (t *SymbolTable) LookupType(name string) (*Node, bool) {
	for s := t; s != nil; s = s.parent {
		if n, ok := s.types[key(name)]; ok {
			return n, true
		}
	}
	return nil, false
}

// Lookup resolves a value-level name (variable, constant, subprogram),
// returning the owning Symbol and the number of parent hops required to
// reach the scope that defines it (0 = local).
func (t *SymbolTable) Lookup(name string) (*SymbolLookup, bool) {
	level := 0
	for s := t; s != nil; s = s.parent {
		if sym, ok := s.values[key(name)]; ok {
			return &SymbolLookup{Symbol: sym, Level: level}, true
		}
		level++
	}
	// No NativeRegistry fallback here: every native a module wants Pascal
	// source to call is explicitly defined into a table via
	// DefineSubprogram when the module installs (see native.Module).
	// Falling back to the registry by name would let source spell names
	// (like the WriteLn desugaring's internal per-type helpers) that were
	// deliberately registered without a table entry.
	return nil, false
}

// Root walks to the outermost table.
func (t *SymbolTable) Root() *SymbolTable {
	s := t
	for s.parent != nil {
		s = s.parent
	}
	return s
}

// Parent returns the enclosing scope, or nil at the root.
func (t *SymbolTable) Parent() *SymbolTable { return t.parent }
