package ast

// Symbol records one resolved declaration: a variable, a typed constant,
// a parameter, or a subprogram (user or native).
//
// Address semantics (spec §3):
//   - variable / typed-const / parameter: offset relative to the mark
//     pointer of the owning frame.
//   - user subprogram: instruction address in the istore.
//   - native subprogram: index into the NativeRegistry.
type Symbol struct {
	Name       string
	Type       *Node // the declared/inferred type node
	Address    int
	IsNative   bool
	Value      *Node // literal value, for untyped constants
	ByRef      bool
}

// SymbolLookup is what name resolution attaches to every identifier,
// function-call, and variable designator node: which Symbol it names, and
// how many lexical parent hops (Level) separate the use site's frame from
// the frame that owns the symbol. The compiler emits Level as the
// static-link count at call/access sites.
type SymbolLookup struct {
	Symbol *Symbol
	Level  int
}
