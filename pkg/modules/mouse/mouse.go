// Package mouse implements the pluggable "mouse" native module: cursor
// position and button state, grounded in the teacher's message-bus device
// pattern (pkg/cpu/message_device.go, pkg/devices/navigation.go) applied
// to a pointer device instead of a message channel. Outside the core per
// spec §1; wired here so a host (cmd/tpsdesktop) can feed real pointer
// events through native.Registry into a running program.
package mouse

import (
	"tps3/pkg/ast"
	"tps3/pkg/native"
)

func simple(code ast.SimpleTypeCode) *ast.Node {
	return &ast.Node{Kind: ast.KindSimpleType, SimpleCode: code}
}

var (
	tInteger = simple(ast.TInteger)
	tBoolean = simple(ast.TBoolean)
	tVoid    = simple(ast.TVoid)
)

// Module is the "mouse" native module: the host pushes position/button
// updates via SetPosition/SetButton once per frame; native procedures
// read that state.
type Module struct {
	x, y    int
	buttons [3]bool
}

// New returns a mouse module parked at the origin with no buttons held.
func New() *Module { return &Module{} }

func (m *Module) Name() string { return "mouse" }

// SetPosition is called by the host once per frame with the pointer's
// current window coordinates.
func (m *Module) SetPosition(x, y int) { m.x, m.y = x, y }

// SetButton is called by the host when a button's pressed state changes;
// button 0 = left, 1 = right, 2 = middle.
func (m *Module) SetButton(button int, down bool) {
	if button >= 0 && button < len(m.buttons) {
		m.buttons[button] = down
	}
}

func (m *Module) Install(reg *native.Registry, table *ast.SymbolTable) {
	procs := []*native.Procedure{
		{Name: "InitMouse", ReturnType: tBoolean, Fn: func(ctl native.ControlHandle, args []native.Word) native.Word {
			return native.BoolToWord(true)
		}},
		{Name: "GetMouseX", ReturnType: tInteger, Fn: func(ctl native.ControlHandle, args []native.Word) native.Word {
			return native.Word(m.x)
		}},
		{Name: "GetMouseY", ReturnType: tInteger, Fn: func(ctl native.ControlHandle, args []native.Word) native.Word {
			return native.Word(m.y)
		}},
		{Name: "MouseButtonPressed", ReturnType: tBoolean, Params: []native.Parameter{{Name: "button", Type: tInteger}},
			Fn: func(ctl native.ControlHandle, args []native.Word) native.Word {
				b := int(args[0])
				if b < 0 || b >= len(m.buttons) {
					return native.BoolToWord(false)
				}
				return native.BoolToWord(m.buttons[b])
			}},
		{Name: "ShowMouse", ReturnType: tVoid, Fn: func(ctl native.ControlHandle, args []native.Word) native.Word {
			return 0
		}},
		{Name: "HideMouse", ReturnType: tVoid, Fn: func(ctl native.ControlHandle, args []native.Word) native.Word {
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
