package native

import (
	"fmt"
	"math"
	"math/rand"

	"tps3/pkg/ast"
)

func simple(code ast.SimpleTypeCode) *ast.Node {
	return &ast.Node{Kind: ast.KindSimpleType, SimpleCode: code}
}

var (
	tInteger = simple(ast.TInteger)
	tReal    = simple(ast.TReal)
	tBoolean = simple(ast.TBoolean)
	tChar    = simple(ast.TChar)
	tString  = simple(ast.TString)
	tVoid    = simple(ast.TVoid)
	tAddress = simple(ast.TAddress)
)

// internalWriteName returns the type-specific write procedure the
// parser lowers one WriteLn argument into. WriteLn itself is not a
// single native call: the p-machine's CSP args are untyped words, so
// a variadic, mixed-type WriteLn is desugared by the parser into one
// typed write call per argument followed by a newline call. This keeps
// every native Fn single-typed, at the cost of WriteLn not being a
// single call site -- recorded in DESIGN.md.
func internalWriteName(code ast.SimpleTypeCode) string {
	switch code {
	case ast.TInteger:
		return "__write_integer"
	case ast.TReal:
		return "__write_real"
	case ast.TBoolean:
		return "__write_boolean"
	case ast.TChar:
		return "__write_char"
	case ast.TString:
		return "__write_string"
	default:
		return "__write_integer"
	}
}

// InternalWriteName is the exported form internalWriteName wraps, used by
// the parser package to resolve the right native call for one WriteLn
// argument's static type.
func InternalWriteName(code ast.SimpleTypeCode) string { return internalWriteName(code) }

// InternalNewlineName is the native call the parser appends once at the
// end of every WriteLn statement.
const InternalNewlineName = "__write_newline"

type builtinModule struct{}

// NewBuiltin returns the always-available "__builtin__" module (spec §6):
// native types, Nil/True/False/Pi constants, the Sin/Cos/Round/Trunc/
// Odd/Abs/Sqrt/Ln/Sqr/Random/Randomize/Inc/Halt/Delay/New/GetMem/
// Dispose procedures, and the internal per-type write helpers the parser
// lowers WriteLn into (WriteLn itself is not installed as a procedure).
func NewBuiltin() Module { return builtinModule{} }

func (builtinModule) Name() string { return "__builtin__" }

func (builtinModule) Install(reg *Registry, table *ast.SymbolTable) {
	// Types.
	types := map[string]*ast.Node{
		"String": tString, "Integer": tInteger, "ShortInt": tInteger,
		"LongInt": tInteger, "Char": tChar, "Boolean": tBoolean,
		"Real": tReal, "Double": tReal, "Pointer": tAddress,
	}
	for name, typ := range types {
		reg.RegisterType(name, typ)
		table.DefineType(name, typ)
	}

	// Constants.
	nilNode := &ast.Node{Kind: ast.KindPointerNil, ExpressionType: tAddress}
	trueNode := &ast.Node{Kind: ast.KindBoolean, Boolean: true, ExpressionType: tBoolean}
	falseNode := &ast.Node{Kind: ast.KindBoolean, Boolean: false, ExpressionType: tBoolean}
	piNode := &ast.Node{Kind: ast.KindNumber, Real: math.Pi, IsReal: true, ExpressionType: tReal}
	for name, val := range map[string]*ast.Node{"Nil": nilNode, "True": trueNode, "False": falseNode, "Pi": piNode} {
		reg.RegisterConstant(name, val)
		table.DefineUntypedConstant(name, val.ExpressionType, val)
	}

	installedFns := []*Procedure{
		{Name: "Sin", ReturnType: tReal, Params: []Parameter{{Name: "x", Type: tReal}}, Fn: unaryRealFn(math.Sin)},
		{Name: "Cos", ReturnType: tReal, Params: []Parameter{{Name: "x", Type: tReal}}, Fn: unaryRealFn(math.Cos)},
		{Name: "Sqrt", ReturnType: tReal, Params: []Parameter{{Name: "x", Type: tReal}}, Fn: unaryRealFn(math.Sqrt)},
		{Name: "Ln", ReturnType: tReal, Params: []Parameter{{Name: "x", Type: tReal}}, Fn: unaryRealFn(math.Log)},
		{Name: "Sqr", ReturnType: tReal, Params: []Parameter{{Name: "x", Type: tReal}}, Fn: func(ctl ControlHandle, args []Word) Word {
			v := WordToReal(args[0])
			return RealToWord(v * v)
		}},
		{Name: "Round", ReturnType: tInteger, Params: []Parameter{{Name: "x", Type: tReal}}, Fn: func(ctl ControlHandle, args []Word) Word {
			return Word(math.Round(WordToReal(args[0])))
		}},
		{Name: "Trunc", ReturnType: tInteger, Params: []Parameter{{Name: "x", Type: tReal}}, Fn: func(ctl ControlHandle, args []Word) Word {
			return Word(math.Trunc(WordToReal(args[0])))
		}},
		{Name: "Odd", ReturnType: tBoolean, Params: []Parameter{{Name: "x", Type: tInteger}}, Fn: func(ctl ControlHandle, args []Word) Word {
			return BoolToWord(args[0]%2 != 0)
		}},
		// Abs always computes in real bits; an integer call site's argument
		// is cast up to real before this call and the parser wraps the call
		// in a compensating real->integer cast afterward (spec §4.2:
		// "integer in, integer out"), so this Fn never needs to know which
		// static type the caller used.
		{Name: "Abs", ReturnType: tReal, Params: []Parameter{{Name: "x", Type: tReal}}, Fn: func(ctl ControlHandle, args []Word) Word {
			return RealToWord(math.Abs(WordToReal(args[0])))
		}},
		// Random is declared with zero parameters (real result); the
		// parser rewrites a one-argument call site's result type to
		// integer (spec §4.2). The Fn below handles both arities.
		{Name: "Random", ReturnType: tReal, Params: nil, Fn: func(ctl ControlHandle, args []Word) Word {
			if len(args) == 0 {
				return RealToWord(rand.Float64())
			}
			n := args[0]
			if n <= 0 {
				return 0
			}
			return Word(rand.Int63n(n))
		}},
		{Name: "Randomize", ReturnType: tVoid, Fn: func(ctl ControlHandle, args []Word) Word {
			// No-op: the RNG is host-seeded (spec §9 open question).
			return 0
		}},
		{Name: "Inc", ReturnType: tVoid, Params: []Parameter{
			{Name: "x", Type: tInteger, ByRef: true},
			{Name: "delta", Type: tInteger},
		}, Fn: func(ctl ControlHandle, args []Word) Word {
			addr := int(args[0])
			delta := Word(1)
			if len(args) > 1 {
				delta = args[1]
			}
			ctl.WriteDstore(addr, ctl.ReadDstore(addr)+delta)
			return 0
		}},
		{Name: "Halt", ReturnType: tVoid, Fn: func(ctl ControlHandle, args []Word) Word {
			ctl.Stop()
			return 0
		}},
		{Name: "Delay", ReturnType: tVoid, Params: []Parameter{{Name: "ms", Type: tInteger}}, Fn: func(ctl ControlHandle, args []Word) Word {
			ctl.Delay(int(args[0]))
			return 0
		}},
		// New(var p) -- the parser inserts a hidden second argument
		// holding the pointee size in words (spec §4.2).
		{Name: "New", ReturnType: tVoid, Params: []Parameter{
			{Name: "p", Type: tAddress, ByRef: true},
			{Name: "size", Type: tInteger},
		}, Fn: newOrGetMem},
		{Name: "GetMem", ReturnType: tVoid, Params: []Parameter{
			{Name: "p", Type: tAddress, ByRef: true},
			{Name: "size", Type: tInteger},
		}, Fn: newOrGetMem},
		{Name: "Dispose", ReturnType: tVoid, Params: []Parameter{{Name: "p", Type: tAddress, ByRef: true}}, Fn: func(ctl ControlHandle, args []Word) Word {
			addr := int(args[0])
			ctl.Free(int(ctl.ReadDstore(addr)))
			ctl.WriteDstore(addr, 0)
			return 0
		}},
	}

	for _, p := range installedFns {
		installOne(reg, table, p)
	}

	// Internal, per-type WriteLn helpers. These are registered (so they
	// get a CSP index the compiler can target) but never defined in a
	// symbol table, so no Pascal source can spell their name and call
	// them directly.
	internalFns := []*Procedure{
		{Name: internalWriteName(ast.TInteger), ReturnType: tVoid, Params: []Parameter{{Name: "v", Type: tInteger}}, Fn: func(ctl ControlHandle, args []Word) Word {
			ctl.Write(fmt.Sprintf("%d", args[0]))
			return 0
		}},
		{Name: internalWriteName(ast.TReal), ReturnType: tVoid, Params: []Parameter{{Name: "v", Type: tReal}}, Fn: func(ctl ControlHandle, args []Word) Word {
			ctl.Write(fmt.Sprintf("%g", WordToReal(args[0])))
			return 0
		}},
		{Name: internalWriteName(ast.TBoolean), ReturnType: tVoid, Params: []Parameter{{Name: "v", Type: tBoolean}}, Fn: func(ctl ControlHandle, args []Word) Word {
			ctl.Write(fmt.Sprintf("%t", WordToBool(args[0])))
			return 0
		}},
		{Name: internalWriteName(ast.TChar), ReturnType: tVoid, Params: []Parameter{{Name: "v", Type: tChar}}, Fn: func(ctl ControlHandle, args []Word) Word {
			ctl.Write(string(WordToChar(args[0])))
			return 0
		}},
		{Name: internalWriteName(ast.TString), ReturnType: tVoid, Params: []Parameter{{Name: "v", Type: tString}}, Fn: func(ctl ControlHandle, args []Word) Word {
			ctl.Write(ctl.ResolveString(int(args[0])))
			return 0
		}},
		{Name: InternalNewlineName, ReturnType: tVoid, Fn: func(ctl ControlHandle, args []Word) Word {
			ctl.WriteLn("")
			return 0
		}},
	}
	for _, p := range internalFns {
		reg.Register(p)
	}
}

func installOne(reg *Registry, table *ast.SymbolTable, p *Procedure) {
	idx := reg.Register(p)
	subType := subprogramType(p)
	sym := table.DefineSubprogram(p.Name, subType)
	sym.IsNative = true
	sym.Address = idx
}

func subprogramType(p *Procedure) *ast.Node {
	n := &ast.Node{Kind: ast.KindSubprogramType, RetType: p.ReturnType}
	for _, param := range p.Params {
		n.Params = append(n.Params, &ast.Node{Kind: ast.KindParameter, Name: param.Name, ElemType: param.Type, ByRef: param.ByRef})
	}
	return n
}

func unaryRealFn(f func(float64) float64) Fn {
	return func(ctl ControlHandle, args []Word) Word {
		return RealToWord(f(WordToReal(args[0])))
	}
}

func newOrGetMem(ctl ControlHandle, args []Word) Word {
	addr := int(args[0])
	size := int(args[1])
	if size < 1 {
		size = 1
	}
	block, err := ctl.Malloc(size)
	if err != nil {
		return 0
	}
	ctl.WriteDstore(addr, Word(block))
	return 0
}
