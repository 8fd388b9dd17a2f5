package native

import (
	"strings"

	"tps3/pkg/ast"
)

// Fn is a native procedure's implementation. args holds the already-popped
// call arguments in source order, each either a plain value Word or (for a
// by-reference parameter) the address of the argument in the data store;
// ByRef on the matching Parameter tells the Fn which it got.
type Fn func(ctl ControlHandle, args []Word) Word

// Procedure is one registered native callable: its signature (for the
// parser's type checker) and its implementation (for the p-machine's CSP
// instruction).
type Procedure struct {
	Name       string
	ReturnType *ast.Node // nil/void-typed for procedures
	Params     []Parameter
	Fn         Fn
}

// Parameter describes one native procedure parameter; ByRef is post-set
// the way spec §6 describes ("a parameter's byReference flag is post-set
// on the subprogram-type parameter node") so the parser/compiler pass the
// address instead of the value at call sites.
type Parameter struct {
	Name  string
	Type  *ast.Node
	ByRef bool
}

// Registry is the ordered table of host-provided callables; a procedure's
// index in the table is the operand the compiler emits at CSP call sites,
// and the address stored on its Symbol.
type Registry struct {
	procs []*Procedure
	byKey map[string]int
	types map[string]*ast.Node
	consts map[string]*ast.Node
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]int), types: make(map[string]*ast.Node), consts: make(map[string]*ast.Node)}
}

func key(name string) string { return strings.ToLower(name) }

// Register adds p to the table and returns its call-site index.
func (r *Registry) Register(p *Procedure) int {
	idx := len(r.procs)
	r.procs = append(r.procs, p)
	r.byKey[key(p.Name)] = idx
	return idx
}

// RegisterType exposes a native type name (e.g. "Integer", "Pointer") so
// `uses`-imported modules can reference it from a type position.
func (r *Registry) RegisterType(name string, typ *ast.Node) {
	r.types[key(name)] = typ
}

// RegisterConstant exposes a native constant (e.g. Pi, True, Nil).
func (r *Registry) RegisterConstant(name string, value *ast.Node) {
	r.consts[key(name)] = value
}

// LookupType resolves a native type name.
func (r *Registry) LookupType(name string) (*ast.Node, bool) {
	n, ok := r.types[key(name)]
	return n, ok
}

// LookupConstant resolves a native constant name.
func (r *Registry) LookupConstant(name string) (*ast.Node, bool) {
	n, ok := r.consts[key(name)]
	return n, ok
}

// At returns the procedure registered at call-site index idx.
func (r *Registry) At(idx int) *Procedure {
	if idx < 0 || idx >= len(r.procs) {
		return nil
	}
	return r.procs[idx]
}

// Lookup implements ast.NativeRegistry.
func (r *Registry) Lookup(name string) (*ast.NativeProcedureInfo, bool) {
	idx, ok := r.byKey[key(name)]
	if !ok {
		return nil, false
	}
	p := r.procs[idx]
	info := &ast.NativeProcedureInfo{Address: idx, ReturnType: p.ReturnType}
	for _, param := range p.Params {
		info.ParamTypes = append(info.ParamTypes, param.Type)
		info.ParamByRef = append(info.ParamByRef, param.ByRef)
	}
	return info, true
}

// Procedure returns the registered procedure by name, for callers (the
// parser) that want the full Parameter list rather than the flattened
// NativeProcedureInfo.
func (r *Registry) Procedure(name string) (*Procedure, bool) {
	idx, ok := r.byKey[key(name)]
	if !ok {
		return nil, false
	}
	return r.procs[idx], true
}
