package compiler

import (
	"tps3/pkg/ast"
	"tps3/pkg/bytecode"
)

// compileExpr emits code that leaves one value on the stack.
func (c *Compiler) compileExpr(n *ast.Node) error {
	switch n.Kind {
	case ast.KindNumber:
		if n.IsReal {
			k := c.bc.InternReal(n.Real)
			_, err := c.bc.Emit(bytecode.OpLDC, int(ast.TReal), k)
			return err
		}
		k := c.bc.InternInt(n.Int)
		_, err := c.bc.Emit(bytecode.OpLDC, int(ast.TInteger), k)
		return err
	case ast.KindString:
		k := c.bc.InternString(n.Text)
		_, err := c.bc.Emit(bytecode.OpLDC, int(ast.TString), k)
		return err
	case ast.KindBoolean:
		b := 0
		if n.Boolean {
			b = 1
		}
		_, err := c.bc.Emit(bytecode.OpLDC, int(ast.TBoolean), b)
		return err
	case ast.KindPointerNil:
		k := c.bc.InternInt(0)
		_, err := c.bc.Emit(bytecode.OpLDC, int(ast.TAddress), k)
		return err
	case ast.KindIdentifier:
		return c.compileIdentifierLoad(n)
	case ast.KindUnary:
		return c.compileUnary(n)
	case ast.KindBinary:
		return c.compileBinaryExpr(n)
	case ast.KindCast:
		return c.compileCast(n)
	case ast.KindFunctionCall:
		_, err := c.compileCall(n)
		return err
	case ast.KindIndex, ast.KindFieldDesignator, ast.KindDereference:
		if err := c.compileLvalue(n); err != nil {
			return err
		}
		_, err := c.bc.Emit(bytecode.OpLDI, 0, 0)
		return err
	case ast.KindAddressOf:
		return c.compileLvalue(n.Array)
	default:
		return errAt(n.Line, "cannot compile expression of kind %s", n.Kind)
	}
}

func (c *Compiler) compileUnary(n *ast.Node) error {
	if err := c.compileExpr(n.Right); err != nil {
		return err
	}
	switch n.Operator {
	case ast.OpPlus:
		return nil
	case ast.OpNegate:
		op := bytecode.OpNGI
		if isRealType(n.ExpressionType) {
			op = bytecode.OpNGR
		}
		_, err := c.bc.Emit(op, 0, 0)
		return err
	case ast.OpNot:
		_, err := c.bc.Emit(bytecode.OpNOTB, 0, 0)
		return err
	default:
		return errAt(n.Line, "unknown unary operator %q", n.Operator)
	}
}

func (c *Compiler) compileBinaryExpr(n *ast.Node) error {
	if err := c.compileExpr(n.Left); err != nil {
		return err
	}
	if err := c.compileExpr(n.Right); err != nil {
		return err
	}
	real := isRealType(n.Left.ExpressionType)
	var op bytecode.Op
	operand1 := 0
	switch n.Operator {
	case ast.OpAdd:
		op = pick(real, bytecode.OpADR, bytecode.OpADI)
	case ast.OpSub:
		op = pick(real, bytecode.OpSBR, bytecode.OpSBI)
	case ast.OpMul:
		op = pick(real, bytecode.OpMPR, bytecode.OpMPI)
	case ast.OpDiv:
		op = bytecode.OpDVR
	case ast.OpIDiv:
		op = bytecode.OpDVI
	case ast.OpMod:
		op = bytecode.OpMOD
	case ast.OpAnd:
		op = bytecode.OpAND
	case ast.OpOr:
		op = bytecode.OpIOR
	case ast.OpEq, ast.OpNeq, ast.OpLt, ast.OpGt, ast.OpLeq, ast.OpGeq:
		op = comparisonOp(n.Operator)
		operand1 = int(compareTypeCode(n.Left.ExpressionType))
	default:
		return errAt(n.Line, "unknown binary operator %q", n.Operator)
	}
	_, err := c.bc.Emit(op, operand1, 0)
	return err
}

func comparisonOp(op ast.Op) bytecode.Op {
	switch op {
	case ast.OpEq:
		return bytecode.OpEQU
	case ast.OpNeq:
		return bytecode.OpNEQ
	case ast.OpLt:
		return bytecode.OpLES
	case ast.OpGt:
		return bytecode.OpGRT
	case ast.OpLeq:
		return bytecode.OpLEQ
	default:
		return bytecode.OpGEQ
	}
}

func compareTypeCode(t *ast.Node) ast.SimpleTypeCode {
	if t != nil && t.Kind == ast.KindSimpleType {
		return t.SimpleCode
	}
	return ast.TAddress
}

func pick(real bool, r, i bytecode.Op) bytecode.Op {
	if real {
		return r
	}
	return i
}

func isRealType(t *ast.Node) bool {
	return t != nil && t.Kind == ast.KindSimpleType && t.SimpleCode == ast.TReal
}

// compileCast lowers an implicit-cast node: integer->real widening is a
// real FLT conversion, real->integer narrowing (Abs(integer)'s post-call
// truncation back from the native's real-valued result, spec §4.2) is a
// TRC conversion; every other cast the parser inserts (char->string,
// pointer widening/narrowing, nil->pointer) is a representational no-op.
func (c *Compiler) compileCast(n *ast.Node) error {
	if err := c.compileExpr(n.Right); err != nil {
		return err
	}
	src := n.Right.ExpressionType
	if src != nil && src.Kind == ast.KindSimpleType && src.SimpleCode == ast.TInteger &&
		n.ElemType != nil && n.ElemType.Kind == ast.KindSimpleType && n.ElemType.SimpleCode == ast.TReal {
		_, err := c.bc.Emit(bytecode.OpFLT, 0, 0)
		return err
	}
	if src != nil && src.Kind == ast.KindSimpleType && src.SimpleCode == ast.TReal &&
		n.ElemType != nil && n.ElemType.Kind == ast.KindSimpleType && n.ElemType.SimpleCode == ast.TInteger {
		_, err := c.bc.Emit(bytecode.OpTRC, 0, 0)
		return err
	}
	return nil
}

// compileIdentifierLoad loads a variable/parameter/constant's value
// (spec §4.4): a by-reference parameter loads its address then
// dereferences it; a by-value simple-type variable uses the LV* family
// keyed by type code; a compound by-value variable loads word-by-word.
func (c *Compiler) compileIdentifierLoad(n *ast.Node) error {
	sym := n.SymbolLookup.Symbol
	if sym.Value != nil && !sym.IsNative && sym.Value.Kind != ast.KindTypedConst {
		return c.compileExpr(sym.Value)
	}
	level := n.SymbolLookup.Level
	if sym.ByRef {
		if _, err := c.bc.Emit(bytecode.OpLVA, level, sym.Address); err != nil {
			return err
		}
		_, err := c.bc.Emit(bytecode.OpLDI, 0, 0)
		return err
	}
	typ := n.ExpressionType
	if typ != nil && typ.Kind == ast.KindSimpleType {
		op := loadOpForCode(typ.SimpleCode)
		_, err := c.bc.Emit(op, level, sym.Address)
		return err
	}
	if typ != nil && typ.Kind == ast.KindPointerType {
		_, err := c.bc.Emit(bytecode.OpLVI, level, sym.Address)
		return err
	}
	size := ast.TypeSize(typ)
	for i := 0; i < size; i++ {
		if _, err := c.bc.Emit(bytecode.OpLVI, level, sym.Address+i); err != nil {
			return err
		}
	}
	return nil
}

func loadOpForCode(code ast.SimpleTypeCode) bytecode.Op {
	switch code {
	case ast.TBoolean:
		return bytecode.OpLVB
	case ast.TChar:
		return bytecode.OpLVC
	case ast.TReal:
		return bytecode.OpLVR
	default:
		return bytecode.OpLVI
	}
}

// compileLvalue pushes the address of a designator (spec §4.4's lvalue
// walker): identifiers via LDA/LVA, fields via a constant-offset ADI,
// array elements via per-dimension IXA, pointer dereferences by simply
// evaluating the pointer value itself.
func (c *Compiler) compileLvalue(n *ast.Node) error {
	switch n.Kind {
	case ast.KindIdentifier:
		sym := n.SymbolLookup.Symbol
		level := n.SymbolLookup.Level
		op := bytecode.OpLDA
		if sym.ByRef {
			op = bytecode.OpLVA
		}
		_, err := c.bc.Emit(op, level, sym.Address)
		return err

	case ast.KindFieldDesignator:
		if err := c.compileLvalue(n.Array); err != nil {
			return err
		}
		recType := n.Array.ExpressionType
		offset, _, ok := ast.FieldOffset(recType, n.Field)
		if !ok || offset == 0 {
			return nil
		}
		k := c.bc.InternInt(int64(offset))
		if _, err := c.bc.Emit(bytecode.OpLDC, int(ast.TInteger), k); err != nil {
			return err
		}
		_, err := c.bc.Emit(bytecode.OpADI, 0, 0)
		return err

	case ast.KindIndex:
		if err := c.compileLvalue(n.Array); err != nil {
			return err
		}
		arrType := n.Array.ExpressionType
		for i, idxExpr := range n.Indices {
			rng := arrType.Ranges[i]
			lo, err := ast.EvalConstInt(rng.Low)
			if err != nil {
				return err
			}
			if err := c.compileExpr(idxExpr); err != nil {
				return err
			}
			k := c.bc.InternInt(lo)
			if _, err := c.bc.Emit(bytecode.OpLDC, int(ast.TInteger), k); err != nil {
				return err
			}
			if _, err := c.bc.Emit(bytecode.OpSBI, 0, 0); err != nil {
				return err
			}
			stride := ast.StrideFor(arrType, i)
			if _, err := c.bc.Emit(bytecode.OpIXA, 0, stride); err != nil {
				return err
			}
		}
		return nil

	case ast.KindDereference:
		return c.compileExpr(n.Array)

	default:
		return errAt(n.Line, "%s is not addressable", n.Kind)
	}
}
