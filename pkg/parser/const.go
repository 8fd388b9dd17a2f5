package parser

import "tps3/pkg/ast"

// parseTypedConstInitializer parses a typed constant's initializer
// according to its declared type (spec §4.2):
//   - simple type: a single constant expression,
//   - array type: nested parenthesized lists, one pair of parens per
//     dimension, in row-major order; element counts must match exactly,
//   - record type: unsupported, surfaced as an error.
func (p *Parser) parseTypedConstInitializer(typ *ast.Node) (*ast.RawData, error) {
	data := &ast.RawData{}
	if err := p.parseInitInto(data, typ); err != nil {
		return nil, err
	}
	return data, nil
}

func (p *Parser) parseInitInto(data *ast.RawData, typ *ast.Node) error {
	switch typ.Kind {
	case ast.KindRecordType:
		tok, _ := p.peek()
		return p.errorAt(tok, "record typed-constant initializers are not supported")

	case ast.KindArrayType:
		return p.parseArrayInitInto(data, typ, 0)

	default:
		expr, err := p.parseExpression()
		if err != nil {
			return err
		}
		casted, err := implicitCast(expr, typ)
		if err != nil {
			return err
		}
		val, code, err := evalConstScalar(casted)
		if err != nil {
			return err
		}
		data.Append(val, code)
		return nil
	}
}

// parseArrayInitInto parses one dimension of a (possibly multi-dimensional)
// array initializer: a parenthesized, comma-separated list, one entry per
// element of that dimension, recursing into the next dimension (or the
// element type on the last) for each entry.
func (p *Parser) parseArrayInitInto(data *ast.RawData, typ *ast.Node, dim int) error {
	if _, err := p.expectSymbol("("); err != nil {
		return err
	}
	want := rangeLen(typ.Ranges[dim])
	got := 0
	for {
		if dim+1 < len(typ.Ranges) {
			if err := p.parseArrayInitInto(data, typ, dim+1); err != nil {
				return err
			}
		} else if err := p.parseInitInto(data, typ.ElemType); err != nil {
			return err
		}
		got++
		if p.atSymbol(",") {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expectSymbol(")"); err != nil {
		return err
	}
	if got != want {
		tok, _ := p.peek()
		return p.errorAt(tok, "array initializer has %d elements, expected %d", got, want)
	}
	return nil
}

// evalConstScalar reduces a (already type-checked) constant expression
// node to the raw value/type-code pair RawData stores.
func evalConstScalar(n *ast.Node) (any, ast.SimpleTypeCode, error) {
	switch n.Kind {
	case ast.KindNumber:
		if n.IsReal {
			return n.Real, ast.TReal, nil
		}
		return n.Int, ast.TInteger, nil
	case ast.KindString:
		return n.Text, ast.TString, nil
	case ast.KindBoolean:
		return n.Boolean, ast.TBoolean, nil
	case ast.KindPointerNil:
		return int64(0), ast.TAddress, nil
	case ast.KindIdentifier:
		if n.SymbolLookup != nil && n.SymbolLookup.Symbol.Value != nil {
			return evalConstScalar(n.SymbolLookup.Symbol.Value)
		}
	case ast.KindCast:
		val, code, err := evalConstScalar(n.Right)
		if err != nil {
			return nil, 0, err
		}
		if iv, ok := val.(int64); ok && n.ElemType != nil && n.ElemType.Kind == ast.KindSimpleType && n.ElemType.SimpleCode == ast.TReal {
			return float64(iv), ast.TReal, nil
		}
		return val, code, nil
	case ast.KindUnary:
		val, code, err := evalConstScalar(n.Right)
		if err != nil {
			return nil, 0, err
		}
		if n.Operator == ast.OpNegate {
			switch v := val.(type) {
			case int64:
				return -v, code, nil
			case float64:
				return -v, code, nil
			}
		}
		return val, code, nil
	}
	return nil, 0, errNotConst
}
