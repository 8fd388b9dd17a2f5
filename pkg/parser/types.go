package parser

import (
	"tps3/pkg/ast"
)

func simpleType(code ast.SimpleTypeCode) *ast.Node {
	return &ast.Node{Kind: ast.KindSimpleType, SimpleCode: code}
}

var (
	tInteger = simpleType(ast.TInteger)
	tReal    = simpleType(ast.TReal)
	tBoolean = simpleType(ast.TBoolean)
	tChar    = simpleType(ast.TChar)
	tString  = simpleType(ast.TString)
	tVoid    = simpleType(ast.TVoid)
	tAddress = simpleType(ast.TAddress)
)

// parseTypeExpr parses one of the supported type forms (spec §4.2):
// identifier alias, `array [R1, R2, ...] of T`, `record F; ... end`, or
// `^Name` pointer.
func (p *Parser) parseTypeExpr() (*ast.Node, error) {
	switch {
	case p.atReserved("array"):
		return p.parseArrayType()
	case p.atReserved("record"):
		return p.parseRecordType()
	case p.atSymbol("^"):
		return p.parsePointerType()
	default:
		return p.parseNamedType()
	}
}

func (p *Parser) parseNamedType() (*ast.Node, error) {
	tok, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	typ, ok := p.table.LookupType(tok.Text)
	if !ok {
		return nil, p.errorAt(tok, "unknown type %q", tok.Text)
	}
	return typ, nil
}

func (p *Parser) parseArrayType() (*ast.Node, error) {
	p.next() // "array"
	if _, err := p.expectSymbol("["); err != nil {
		return nil, err
	}
	var ranges []*ast.Node
	for {
		rng, err := p.parseRange()
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, rng)
		if p.atSymbol(",") {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expectSymbol("]"); err != nil {
		return nil, err
	}
	if _, err := p.expectReserved("of"); err != nil {
		return nil, err
	}
	elem, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.KindArrayType, Ranges: ranges, ElemType: elem}, nil
}

// parseRange parses one constant `low..high` dimension bound.
func (p *Parser) parseRange() (*ast.Node, error) {
	low, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectSymbol(".."); err != nil {
		return nil, err
	}
	high, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.KindRange, Low: low, High: high}, nil
}

func (p *Parser) parseRecordType() (*ast.Node, error) {
	p.next() // "record"
	var fields []*ast.Node
	for p.startsIdentifierList() {
		names, err := p.parseNameList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectSymbol(":"); err != nil {
			return nil, err
		}
		typ, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		for _, nameTok := range names {
			fields = append(fields, &ast.Node{Kind: ast.KindField, Name: nameTok.Text, ElemType: typ, Line: nameTok.Line})
		}
		if p.atSymbol(";") {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expectReserved("end"); err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.KindRecordType, Fields: fields}, nil
}

// parsePointerType parses `^Name`. If Name hasn't been declared yet within
// the enclosing type section, the node is queued for back-patching at
// section end (spec §4.2, §9).
func (p *Parser) parsePointerType() (*ast.Node, error) {
	p.next() // "^"
	nameTok, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	n := &ast.Node{Kind: ast.KindPointerType, PointeeName: nameTok.Text, Line: nameTok.Line}
	if typ, ok := p.table.LookupType(nameTok.Text); ok {
		n.ElemType = typ
		return n, nil
	}
	p.pendingPointers = append(p.pendingPointers, n)
	return n, nil
}

// fieldOffset returns the word offset of field named name within rec, and
// the field's type. Delegates to ast.FieldOffset, which the compiler
// package also uses for the same record layout.
func fieldOffset(rec *ast.Node, name string) (int, *ast.Node, bool) {
	return ast.FieldOffset(rec, name)
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// typeSize reports a type's size in data-store words; delegates to
// ast.TypeSize, shared with the compiler's frame and stride arithmetic.
func typeSize(t *ast.Node) int {
	return ast.TypeSize(t)
}

// rangeLen returns a constant range's element count (high-low+1).
func rangeLen(rng *ast.Node) int {
	return ast.RangeLen(rng)
}

// evalConstInt evaluates a constant integer expression: a literal, a
// reference to a previously declared untyped integer constant, or a
// unary-minus/plus of either.
func evalConstInt(n *ast.Node) (int64, error) {
	return ast.EvalConstInt(n)
}

var errNotConst = constError("not a constant expression")

type constError string

func (e constError) Error() string { return string(e) }
