// Package crt implements the pluggable "crt" native module: cursor
// addressing and colour attributes over a fixed-size text grid, the
// pluggable-module analogue of the teacher's pkg/cpu text-VRAM overlay
// (pkg/cpu/video.go's TextVRAM/TextResolutionMode), generalized from a
// CPU-owned field into a self-contained native.Module a program opts into
// with `uses crt`. Outside the core per spec §1; wired here so
// native.Registry and the host control handle are exercised end-to-end.
package crt

import (
	"tps3/pkg/ast"
	"tps3/pkg/native"
)

const (
	Cols = 80
	Rows = 25
)

func simple(code ast.SimpleTypeCode) *ast.Node {
	return &ast.Node{Kind: ast.KindSimpleType, SimpleCode: code}
}

var (
	tInteger = simple(ast.TInteger)
	tVoid    = simple(ast.TVoid)
)

// Cell is one character position: its rune and its EGA-style 4-bit
// foreground/background colour indices.
type Cell struct {
	Ch         rune
	Fg, Bg     int
}

// Module is the "crt" native module: a Cols×Rows text grid plus a cursor
// position and current attribute, mutated only through its registered
// native procedures and read only through the accessors below (a host
// renderer calls Cell/CursorX/CursorY once per frame).
type Module struct {
	grid       [Rows * Cols]Cell
	cursorX    int
	cursorY    int
	fg, bg     int
}

// New returns a fresh crt module: white-on-black, cursor at the origin.
func New() *Module {
	m := &Module{fg: 7, bg: 0}
	m.clear()
	return m
}

func (m *Module) Name() string { return "crt" }

func (m *Module) clear() {
	for i := range m.grid {
		m.grid[i] = Cell{Ch: ' ', Fg: m.fg, Bg: m.bg}
	}
	m.cursorX, m.cursorY = 0, 0
}

func (m *Module) putChar(r rune) {
	if r == '\n' {
		m.cursorX = 0
		m.cursorY++
	} else {
		if m.cursorY < Rows && m.cursorX < Cols {
			m.grid[m.cursorY*Cols+m.cursorX] = Cell{Ch: r, Fg: m.fg, Bg: m.bg}
		}
		m.cursorX++
		if m.cursorX >= Cols {
			m.cursorX = 0
			m.cursorY++
		}
	}
	if m.cursorY >= Rows {
		m.scroll()
		m.cursorY = Rows - 1
	}
}

func (m *Module) scroll() {
	copy(m.grid[:], m.grid[Cols:])
	for i := (Rows - 1) * Cols; i < Rows*Cols; i++ {
		m.grid[i] = Cell{Ch: ' ', Fg: m.fg, Bg: m.bg}
	}
}

// WriteString feeds host-observed program output into the text grid, the
// way a real crt-aware terminal echoes WriteLn output onto the active
// text page instead of a plain stdout stream. A host wires this as the
// machine's output callback when the program `uses crt`.
func (m *Module) WriteString(s string) {
	for _, r := range s {
		m.putChar(r)
	}
}

// Cell reports the character grid contents for a host renderer.
func (m *Module) Cell(x, y int) Cell {
	if x < 0 || x >= Cols || y < 0 || y >= Rows {
		return Cell{Ch: ' '}
	}
	return m.grid[y*Cols+x]
}

func (m *Module) CursorX() int { return m.cursorX }
func (m *Module) CursorY() int { return m.cursorY }

func (m *Module) Install(reg *native.Registry, table *ast.SymbolTable) {
	procs := []*native.Procedure{
		{Name: "ClrScr", ReturnType: tVoid, Fn: func(ctl native.ControlHandle, args []native.Word) native.Word {
			m.clear()
			return 0
		}},
		{Name: "GotoXY", ReturnType: tVoid, Params: []native.Parameter{
			{Name: "x", Type: tInteger}, {Name: "y", Type: tInteger},
		}, Fn: func(ctl native.ControlHandle, args []native.Word) native.Word {
			m.cursorX = int(args[0]) - 1
			m.cursorY = int(args[1]) - 1
			return 0
		}},
		{Name: "WhereX", ReturnType: tInteger, Fn: func(ctl native.ControlHandle, args []native.Word) native.Word {
			return native.Word(m.cursorX + 1)
		}},
		{Name: "WhereY", ReturnType: tInteger, Fn: func(ctl native.ControlHandle, args []native.Word) native.Word {
			return native.Word(m.cursorY + 1)
		}},
		{Name: "TextColor", ReturnType: tVoid, Params: []native.Parameter{{Name: "c", Type: tInteger}},
			Fn: func(ctl native.ControlHandle, args []native.Word) native.Word {
				m.fg = int(args[0])
				return 0
			}},
		{Name: "TextBackground", ReturnType: tVoid, Params: []native.Parameter{{Name: "c", Type: tInteger}},
			Fn: func(ctl native.ControlHandle, args []native.Word) native.Word {
				m.bg = int(args[0])
				return 0
			}},
	}
	for _, p := range procs {
		idx := reg.Register(p)
		sym := table.DefineSubprogram(p.Name, subprogramType(p))
		sym.IsNative = true
		sym.Address = idx
	}
}

func subprogramType(p *native.Procedure) *ast.Node {
	n := &ast.Node{Kind: ast.KindSubprogramType, RetType: p.ReturnType}
	for _, param := range p.Params {
		n.Params = append(n.Params, &ast.Node{Kind: ast.KindParameter, Name: param.Name, ElemType: param.Type, ByRef: param.ByRef})
	}
	return n
}

var _ native.Module = (*Module)(nil)
