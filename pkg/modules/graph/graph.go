// Package graph implements the pluggable "graph" native module: a
// fixed-size indexed-colour pixel framebuffer and drawing primitives,
// generalized from the teacher's pkg/cpu.CPU graphics banks
// (GraphicsBanks/GetFramebufferRGBA, pkg/cpu/video.go) into a
// self-contained native.Module a program opts into with `uses graph`.
// Outside the core per spec §1; wired here so a host renderer (see
// cmd/tpsdesktop) can exercise it against a real window.
package graph

import (
	"tps3/pkg/ast"
	"tps3/pkg/native"
)

const (
	Width  = 320
	Height = 200
)

func simple(code ast.SimpleTypeCode) *ast.Node {
	return &ast.Node{Kind: ast.KindSimpleType, SimpleCode: code}
}

var (
	tInteger = simple(ast.TInteger)
	tVoid    = simple(ast.TVoid)
)

// palette is a 16-colour EGA-style table, RGB565-packed the way the
// teacher's CPU.Palette is, decoded through the same bit-expansion the
// teacher's rgb565ToRGBA uses.
var palette = [16]uint16{
	0x0000, 0x0015, 0x0540, 0x0555, 0xA800, 0xA815, 0xA540, 0xAD55,
	0x52AA, 0x52BF, 0x57EA, 0x57FF, 0xFAAA, 0xFABF, 0xFFEA, 0xFFFF,
}

func rgb565ToRGBA(val uint16) (r, g, b, a byte) {
	r5 := byte((val >> 11) & 0x1F)
	g6 := byte((val >> 5) & 0x3F)
	b5 := byte(val & 0x1F)
	r = (r5 << 3) | (r5 >> 2)
	g = (g6 << 2) | (g6 >> 4)
	b = (b5 << 3) | (b5 >> 2)
	a = 0xFF
	return
}

// Module is the "graph" native module: a Width×Height indexed-colour
// pixel buffer plus a current drawing colour, mutated only through its
// registered native procedures.
type Module struct {
	pixels [Width * Height]uint8
	color  int
}

// New returns a fresh graph module: a black canvas, drawing colour white.
func New() *Module {
	return &Module{color: 15}
}

func (m *Module) Name() string { return "graph" }

func (m *Module) putPixel(x, y, c int) {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return
	}
	m.pixels[y*Width+x] = uint8(c & 0xF)
}

func (m *Module) getPixel(x, y int) int {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return 0
	}
	return int(m.pixels[y*Width+x])
}

// line draws with Bresenham's algorithm, the standard integer-only line
// rasterizer -- there is no floating point in the p-machine's graphics
// path.
func (m *Module) line(x0, y0, x1, y1, c int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		m.putPixel(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// FramebufferRGBA decodes the current pixel buffer into a Width*Height*4
// RGBA8888 byte slice, the graph analogue of the teacher's
// CPU.GetFramebufferRGBA.
func (m *Module) FramebufferRGBA() []byte {
	out := make([]byte, Width*Height*4)
	for i, idx := range m.pixels {
		r, g, b, a := rgb565ToRGBA(palette[idx])
		out[i*4+0] = r
		out[i*4+1] = g
		out[i*4+2] = b
		out[i*4+3] = a
	}
	return out
}

func (m *Module) Install(reg *native.Registry, table *ast.SymbolTable) {
	procs := []*native.Procedure{
		{Name: "InitGraph", ReturnType: tVoid, Fn: func(ctl native.ControlHandle, args []native.Word) native.Word {
			*m = Module{color: 15}
			return 0
		}},
		{Name: "GetMaxX", ReturnType: tInteger, Fn: func(ctl native.ControlHandle, args []native.Word) native.Word {
			return Word(Width - 1)
		}},
		{Name: "GetMaxY", ReturnType: tInteger, Fn: func(ctl native.ControlHandle, args []native.Word) native.Word {
			return Word(Height - 1)
		}},
		{Name: "SetColor", ReturnType: tVoid, Params: []native.Parameter{{Name: "c", Type: tInteger}},
			Fn: func(ctl native.ControlHandle, args []native.Word) native.Word {
				m.color = int(args[0])
				return 0
			}},
		{Name: "PutPixel", ReturnType: tVoid, Params: []native.Parameter{
			{Name: "x", Type: tInteger}, {Name: "y", Type: tInteger}, {Name: "c", Type: tInteger},
		}, Fn: func(ctl native.ControlHandle, args []native.Word) native.Word {
			m.putPixel(int(args[0]), int(args[1]), int(args[2]))
			return 0
		}},
		{Name: "GetPixel", ReturnType: tInteger, Params: []native.Parameter{
			{Name: "x", Type: tInteger}, {Name: "y", Type: tInteger},
		}, Fn: func(ctl native.ControlHandle, args []native.Word) native.Word {
			return Word(m.getPixel(int(args[0]), int(args[1])))
		}},
		{Name: "Line", ReturnType: tVoid, Params: []native.Parameter{
			{Name: "x0", Type: tInteger}, {Name: "y0", Type: tInteger},
			{Name: "x1", Type: tInteger}, {Name: "y1", Type: tInteger},
		}, Fn: func(ctl native.ControlHandle, args []native.Word) native.Word {
			m.line(int(args[0]), int(args[1]), int(args[2]), int(args[3]), m.color)
			return 0
		}},
		{Name: "ClearDevice", ReturnType: tVoid, Fn: func(ctl native.ControlHandle, args []native.Word) native.Word {
			for i := range m.pixels {
				m.pixels[i] = 0
			}
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

// Word is a local alias so Install's literals above read naturally
// without importing native.Word under a second name.
type Word = native.Word

var _ native.Module = (*Module)(nil)
