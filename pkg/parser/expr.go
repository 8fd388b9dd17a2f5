package parser

import (
	"fmt"
	"strconv"
	"strings"

	"tps3/pkg/ast"
	"tps3/pkg/lexer"
	"tps3/pkg/toolchain"
)

// parseExpression is the grammar's entry point; relational operators bind
// loosest (spec §4.2's precedence table, low to high).
func (p *Parser) parseExpression() (*ast.Node, error) {
	return p.parseRelational()
}

func (p *Parser) parseRelational() (*ast.Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		var op ast.Op
		switch {
		case isSymbolText(tok, "="):
			op = ast.OpEq
		case isSymbolText(tok, "<>"):
			op = ast.OpNeq
		case isSymbolText(tok, "<"):
			op = ast.OpLt
		case isSymbolText(tok, ">"):
			op = ast.OpGt
		case isSymbolText(tok, "<="):
			op = ast.OpLeq
		case isSymbolText(tok, ">="):
			op = ast.OpGeq
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left, err = p.combineBinary(tok, op, left, right)
		if err != nil {
			return nil, err
		}
	}
}

func (p *Parser) parseAdditive() (*ast.Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		var op ast.Op
		switch {
		case isSymbolText(tok, "+"):
			op = ast.OpAdd
		case isSymbolText(tok, "-"):
			op = ast.OpSub
		case isReservedWord(tok, "or"):
			op = ast.OpOr
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left, err = p.combineBinary(tok, op, left, right)
		if err != nil {
			return nil, err
		}
	}
}

func (p *Parser) parseMultiplicative() (*ast.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		var op ast.Op
		switch {
		case isSymbolText(tok, "*"):
			op = ast.OpMul
		case isSymbolText(tok, "/"):
			op = ast.OpDiv
		case isReservedWord(tok, "div"):
			op = ast.OpIDiv
		case isReservedWord(tok, "mod"):
			op = ast.OpMod
		case isReservedWord(tok, "and"):
			op = ast.OpAnd
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left, err = p.combineBinary(tok, op, left, right)
		if err != nil {
			return nil, err
		}
	}
}

func (p *Parser) parseUnary() (*ast.Node, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	switch {
	case isSymbolText(tok, "-"):
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if !isNumeric(operand.ExpressionType) {
			return nil, p.errorAt(tok, "unary - requires a numeric operand")
		}
		return &ast.Node{Kind: ast.KindUnary, Operator: ast.OpNegate, Right: operand, ExpressionType: operand.ExpressionType, Line: tok.Line}, nil
	case isSymbolText(tok, "+"):
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if !isNumeric(operand.ExpressionType) {
			return nil, p.errorAt(tok, "unary + requires a numeric operand")
		}
		return &ast.Node{Kind: ast.KindUnary, Operator: ast.OpPlus, Right: operand, ExpressionType: operand.ExpressionType, Line: tok.Line}, nil
	case isReservedWord(tok, "not"):
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		casted, err := implicitCast(operand, tBoolean)
		if err != nil {
			return nil, p.errorAt(tok, "not: %v", err)
		}
		return &ast.Node{Kind: ast.KindUnary, Operator: ast.OpNot, Right: casted, ExpressionType: tBoolean, Line: tok.Line}, nil
	default:
		return p.parsePrimary()
	}
}

func (p *Parser) parsePrimary() (*ast.Node, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	switch {
	case tok.Kind == lexer.Number:
		return parseNumberLiteral(tok)
	case tok.Kind == lexer.String:
		return &ast.Node{Kind: ast.KindString, Text: tok.Text, ExpressionType: tString, Line: tok.Line}, nil
	case isReservedWord(tok, "true"):
		return &ast.Node{Kind: ast.KindBoolean, Boolean: true, ExpressionType: tBoolean, Line: tok.Line}, nil
	case isReservedWord(tok, "false"):
		return &ast.Node{Kind: ast.KindBoolean, Boolean: false, ExpressionType: tBoolean, Line: tok.Line}, nil
	case isReservedWord(tok, "nil"):
		return &ast.Node{Kind: ast.KindPointerNil, ExpressionType: tAddress, Line: tok.Line}, nil
	case isSymbolText(tok, "("):
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return expr, nil
	case isSymbolText(tok, "@"):
		operandTok, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}
		operand, err := p.parseCallOrVariable(operandTok)
		if err != nil {
			return nil, err
		}
		operand, err = p.parsePostfix(operand)
		if err != nil {
			return nil, err
		}
		if !isAddressable(operand) {
			return nil, p.errorAt(tok, "@ requires a variable")
		}
		return &ast.Node{Kind: ast.KindAddressOf, Array: operand, ExpressionType: tAddress, Line: tok.Line}, nil
	case tok.Kind == lexer.Identifier:
		base, err := p.parseCallOrVariable(tok)
		if err != nil {
			return nil, err
		}
		return p.parsePostfix(base)
	default:
		return nil, p.errorAt(tok, "unexpected token %q", tok.Text)
	}
}

func parseNumberLiteral(tok lexer.Token) (*ast.Node, error) {
	if strings.Contains(tok.Text, ".") {
		v, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, toolchain.NewAt(toolchain.StageParse, tok.Text, tok.Line, "invalid number literal %q", tok.Text)
		}
		return &ast.Node{Kind: ast.KindNumber, Real: v, IsReal: true, ExpressionType: tReal, Line: tok.Line}, nil
	}
	v, err := strconv.ParseInt(tok.Text, 10, 64)
	if err != nil {
		return nil, toolchain.NewAt(toolchain.StageParse, tok.Text, tok.Line, "invalid number literal %q", tok.Text)
	}
	return &ast.Node{Kind: ast.KindNumber, Int: v, ExpressionType: tInteger, Line: tok.Line}, nil
}

// parsePostfix attaches any run of `[...]`, `.field`, `^` designators
// following a resolved base (spec §4.2).
func (p *Parser) parsePostfix(base *ast.Node) (*ast.Node, error) {
	for {
		switch {
		case p.atSymbol("["):
			p.next()
			arrType := base.ExpressionType
			if arrType == nil || arrType.Kind != ast.KindArrayType {
				tok, _ := p.peek()
				return nil, p.errorAt(tok, "[] applied to a non-array value")
			}
			var indices []*ast.Node
			for {
				idx, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				casted, err := implicitCast(idx, tInteger)
				if err != nil {
					tok, _ := p.peek()
					return nil, p.errorAt(tok, "array index: %v", err)
				}
				indices = append(indices, casted)
				if p.atSymbol(",") {
					p.next()
					continue
				}
				break
			}
			if _, err := p.expectSymbol("]"); err != nil {
				return nil, err
			}
			if len(indices) != len(arrType.Ranges) {
				tok, _ := p.peek()
				return nil, p.errorAt(tok, "array has %d dimension(s), got %d index expression(s)", len(arrType.Ranges), len(indices))
			}
			base = &ast.Node{Kind: ast.KindIndex, Array: base, Indices: indices, ExpressionType: arrType.ElemType, Line: base.Line}

		case p.atSymbol("."):
			p.next()
			fieldTok, err := p.expectIdentifier()
			if err != nil {
				return nil, err
			}
			recType := base.ExpressionType
			if recType == nil || recType.Kind != ast.KindRecordType {
				return nil, p.errorAt(fieldTok, "field access on a non-record value")
			}
			_, fieldType, ok := fieldOffset(recType, fieldTok.Text)
			if !ok {
				return nil, p.errorAt(fieldTok, "unknown field %q", fieldTok.Text)
			}
			base = &ast.Node{Kind: ast.KindFieldDesignator, Array: base, Field: fieldTok.Text, ExpressionType: fieldType, Line: fieldTok.Line}

		case p.atSymbol("^"):
			tok, _ := p.next()
			ptrType := base.ExpressionType
			if ptrType == nil || ptrType.Kind != ast.KindPointerType {
				return nil, p.errorAt(tok, "^ applied to a non-pointer value")
			}
			base = &ast.Node{Kind: ast.KindDereference, Array: base, ExpressionType: ptrType.ElemType, Line: tok.Line}

		default:
			return base, nil
		}
	}
}

func isAddressable(n *ast.Node) bool {
	switch n.Kind {
	case ast.KindIdentifier, ast.KindIndex, ast.KindFieldDesignator, ast.KindDereference:
		return true
	}
	return false
}

func isNumeric(t *ast.Node) bool {
	return t != nil && t.Kind == ast.KindSimpleType && (t.SimpleCode == ast.TInteger || t.SimpleCode == ast.TReal)
}

// parseCallOrVariable resolves an already-consumed identifier token to
// either a function/procedure call (when its symbol is a subprogram) or a
// plain variable/constant reference.
func (p *Parser) parseCallOrVariable(tok lexer.Token) (*ast.Node, error) {
	// The innermost enclosing function's bare name, used without a call,
	// denotes its return-value slot rather than a recursive call.
	if n := len(p.funcStack); n > 0 {
		fr := p.funcStack[n-1]
		if strings.EqualFold(fr.name, tok.Text) && !p.atSymbol("(") {
			sym := &ast.Symbol{Name: fr.name, Type: fr.retType, Address: 0}
			return &ast.Node{Kind: ast.KindIdentifier, Text: tok.Text, ExpressionType: fr.retType, Line: tok.Line, SymbolLookup: &ast.SymbolLookup{Symbol: sym, Level: 0}}, nil
		}
	}

	lookup, ok := p.table.Lookup(tok.Text)
	if !ok {
		return nil, p.errorAt(tok, "unknown identifier %q", tok.Text)
	}
	sym := lookup.Symbol
	if sym.Type != nil && sym.Type.Kind == ast.KindSubprogramType {
		return p.parseCall(tok, lookup)
	}

	exprType := sym.Type
	if sym.Value != nil && !sym.IsNative && sym.Value.ExpressionType != nil {
		exprType = sym.Value.ExpressionType
	}
	return &ast.Node{Kind: ast.KindIdentifier, Text: tok.Text, ExpressionType: exprType, Line: tok.Line, SymbolLookup: lookup}, nil
}

// parseCall parses an optional argument list and type-checks it against
// the resolved subprogram's signature, applying the Random/Abs/New
// idiosyncrasies spec §4.2 calls out.
func (p *Parser) parseCall(tok lexer.Token, lookup *ast.SymbolLookup) (*ast.Node, error) {
	subType := lookup.Symbol.Type
	var args []*ast.Node
	var err error
	if p.atSymbol("(") {
		args, err = p.parseArgList()
		if err != nil {
			return nil, err
		}
	}
	args, retType, err := p.checkCallArgs(tok, subType, args)
	if err != nil {
		return nil, err
	}
	n := &ast.Node{Kind: ast.KindFunctionCall, Callee: tok.Text, Args: args, ExpressionType: retType, Line: tok.Line, SymbolLookup: lookup}
	if retType == nil || (retType.Kind == ast.KindSimpleType && retType.SimpleCode == ast.TVoid) {
		n.Kind = ast.KindProcedureCall
		n.ExpressionType = tVoid
		return n, nil
	}
	// Abs(x) with an integer argument: the argument was cast to real above
	// to match the native's single real-valued signature, so the native
	// call itself returns real bits. Truncate back to a genuine integer
	// word here rather than just relabeling the call's static type (spec
	// §4.2: "integer in, integer out").
	if strings.ToLower(tok.Text) == "abs" && len(args) == 1 && args[0].Kind == ast.KindCast {
		origType := args[0].Right.ExpressionType
		return &ast.Node{Kind: ast.KindCast, ElemType: origType, Right: n, ExpressionType: origType, Line: tok.Line}, nil
	}
	return n, nil
}

func (p *Parser) parseArgList() ([]*ast.Node, error) {
	p.next() // "("
	var args []*ast.Node
	if p.atSymbol(")") {
		p.next()
		return args, nil
	}
	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.atSymbol(",") {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) checkCallArgs(tok lexer.Token, subType *ast.Node, args []*ast.Node) ([]*ast.Node, *ast.Node, error) {
	name := strings.ToLower(tok.Text)
	switch name {
	case "random":
		return p.checkRandomArgs(tok, args)
	case "new":
		return p.checkNewArgs(tok, args)
	case "inc":
		if len(args) == 1 {
			args = append(args, &ast.Node{Kind: ast.KindNumber, Int: 1, ExpressionType: tInteger, Line: tok.Line})
		}
	}

	if len(args) != len(subType.Params) {
		return nil, nil, p.errorAt(tok, "%q expects %d argument(s), got %d", tok.Text, len(subType.Params), len(args))
	}
	out := make([]*ast.Node, len(args))
	for i, param := range subType.Params {
		arg := args[i]
		if param.ByRef {
			if !isAddressable(arg) {
				return nil, nil, p.errorAt(tok, "argument %d to %q must be a variable", i+1, tok.Text)
			}
			if !typesIdentical(arg.ExpressionType, param.ElemType) && !(isGenericPointer(param.ElemType) && isPointerish(arg.ExpressionType)) {
				return nil, nil, p.errorAt(tok, "argument %d to %q has the wrong type", i+1, tok.Text)
			}
			out[i] = arg
			continue
		}
		casted, err := implicitCast(arg, param.ElemType)
		if err != nil {
			return nil, nil, p.errorAt(tok, "argument %d to %q: %v", i+1, tok.Text, err)
		}
		out[i] = casted
	}
	retType := subType.RetType
	if retType == nil {
		retType = tVoid
	}
	return out, retType, nil
}

func (p *Parser) checkRandomArgs(tok lexer.Token, args []*ast.Node) ([]*ast.Node, *ast.Node, error) {
	switch len(args) {
	case 0:
		return args, tReal, nil
	case 1:
		casted, err := implicitCast(args[0], tInteger)
		if err != nil {
			return nil, nil, p.errorAt(tok, "Random: %v", err)
		}
		return []*ast.Node{casted}, tInteger, nil
	default:
		return nil, nil, p.errorAt(tok, "Random expects 0 or 1 argument(s), got %d", len(args))
	}
}

// checkNewArgs inserts New's hidden second argument: the pointee type's
// size in words (spec §4.2).
func (p *Parser) checkNewArgs(tok lexer.Token, args []*ast.Node) ([]*ast.Node, *ast.Node, error) {
	if len(args) != 1 {
		return nil, nil, p.errorAt(tok, "New expects 1 argument, got %d", len(args))
	}
	arg := args[0]
	if !isAddressable(arg) {
		return nil, nil, p.errorAt(tok, "argument to New must be a variable")
	}
	pt := arg.ExpressionType
	if pt == nil || pt.Kind != ast.KindPointerType {
		return nil, nil, p.errorAt(tok, "argument to New must be a pointer variable")
	}
	size := typeSize(pt.ElemType)
	sizeArg := &ast.Node{Kind: ast.KindNumber, Int: int64(size), ExpressionType: tInteger, Line: tok.Line}
	return []*ast.Node{arg, sizeArg}, tVoid, nil
}

// combineBinary applies the common-type rule (spec §4.2) for one binary
// operator, inserting casts where the rule allows them, and reports the
// resulting expression type.
func (p *Parser) combineBinary(tok lexer.Token, op ast.Op, left, right *ast.Node) (*ast.Node, error) {
	switch op {
	case ast.OpEq, ast.OpNeq, ast.OpLt, ast.OpGt, ast.OpLeq, ast.OpGeq:
		l, r, _, err := commonSimpleType(left, right)
		if err != nil {
			return nil, p.errorAt(tok, "%v", err)
		}
		return &ast.Node{Kind: ast.KindBinary, Operator: op, Left: l, Right: r, ExpressionType: tBoolean, Line: tok.Line}, nil

	case ast.OpOr, ast.OpAnd:
		l, err := implicitCast(left, tBoolean)
		if err != nil {
			return nil, p.errorAt(tok, "%q: %v", op, err)
		}
		r, err := implicitCast(right, tBoolean)
		if err != nil {
			return nil, p.errorAt(tok, "%q: %v", op, err)
		}
		return &ast.Node{Kind: ast.KindBinary, Operator: op, Left: l, Right: r, ExpressionType: tBoolean, Line: tok.Line}, nil

	case ast.OpDiv:
		l, err := implicitCast(left, tReal)
		if err != nil {
			return nil, p.errorAt(tok, "/: %v", err)
		}
		r, err := implicitCast(right, tReal)
		if err != nil {
			return nil, p.errorAt(tok, "/: %v", err)
		}
		return &ast.Node{Kind: ast.KindBinary, Operator: op, Left: l, Right: r, ExpressionType: tReal, Line: tok.Line}, nil

	case ast.OpIDiv, ast.OpMod:
		if !isIntegerType(left.ExpressionType) || !isIntegerType(right.ExpressionType) {
			return nil, p.errorAt(tok, "%q requires integer operands", op)
		}
		return &ast.Node{Kind: ast.KindBinary, Operator: op, Left: left, Right: right, ExpressionType: tInteger, Line: tok.Line}, nil

	default: // +, -, *
		l, r, resultType, err := commonSimpleType(left, right)
		if err != nil {
			return nil, p.errorAt(tok, "%v", err)
		}
		return &ast.Node{Kind: ast.KindBinary, Operator: op, Left: l, Right: r, ExpressionType: resultType, Line: tok.Line}, nil
	}
}

func isIntegerType(t *ast.Node) bool {
	return t != nil && t.Kind == ast.KindSimpleType && t.SimpleCode == ast.TInteger
}

// commonSimpleType implements the common-type rule: operands must share a
// node kind; for simple types, a code mismatch is resolved by widening the
// integer side to real, and any other mismatch is a hard error.
func commonSimpleType(left, right *ast.Node) (*ast.Node, *ast.Node, *ast.Node, error) {
	lt, rt := left.ExpressionType, right.ExpressionType
	if lt == nil || rt == nil {
		return nil, nil, nil, fmt.Errorf("operand has no type")
	}
	if lt.Kind != rt.Kind {
		return nil, nil, nil, fmt.Errorf("incompatible operand types")
	}
	if lt.Kind != ast.KindSimpleType {
		return left, right, lt, nil
	}
	if lt.SimpleCode == rt.SimpleCode {
		return left, right, lt, nil
	}
	if lt.SimpleCode == ast.TInteger && rt.SimpleCode == ast.TReal {
		nl, err := implicitCast(left, tReal)
		if err != nil {
			return nil, nil, nil, err
		}
		return nl, right, tReal, nil
	}
	if lt.SimpleCode == ast.TReal && rt.SimpleCode == ast.TInteger {
		nr, err := implicitCast(right, tReal)
		if err != nil {
			return nil, nil, nil, err
		}
		return left, nr, tReal, nil
	}
	return nil, nil, nil, fmt.Errorf("incompatible operand types %s and %s", lt.SimpleCode, rt.SimpleCode)
}

// implicitCast applies the cast rule of spec §4.2: a no-op when identical,
// legal integer->real widening, legal char->string, legal between pointer
// types when one side is nil/the generic Pointer or the pointee types
// match; anything else is an error.
func implicitCast(n *ast.Node, target *ast.Node) (*ast.Node, error) {
	src := n.ExpressionType
	if typesIdentical(src, target) {
		return n, nil
	}
	if n.Kind == ast.KindPointerNil && isPointerish(target) {
		return &ast.Node{Kind: ast.KindCast, ElemType: target, Right: n, ExpressionType: target, Line: n.Line}, nil
	}
	if isPointerish(src) && isPointerish(target) {
		if isGenericPointer(src) || isGenericPointer(target) || pointeeNamesMatch(src, target) {
			return &ast.Node{Kind: ast.KindCast, ElemType: target, Right: n, ExpressionType: target, Line: n.Line}, nil
		}
		return nil, fmt.Errorf("incompatible pointer types")
	}
	if src != nil && target != nil && src.Kind == ast.KindSimpleType && target.Kind == ast.KindSimpleType {
		if src.SimpleCode == ast.TInteger && target.SimpleCode == ast.TReal {
			return &ast.Node{Kind: ast.KindCast, ElemType: target, Right: n, ExpressionType: target, Line: n.Line}, nil
		}
		if src.SimpleCode == ast.TChar && target.SimpleCode == ast.TString {
			return &ast.Node{Kind: ast.KindCast, ElemType: target, Right: n, ExpressionType: target, Line: n.Line}, nil
		}
	}
	return nil, fmt.Errorf("cannot cast %s to %s", typeName(src), typeName(target))
}

func typesIdentical(a, b *ast.Node) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ast.KindSimpleType:
		return a.SimpleCode == b.SimpleCode
	case ast.KindPointerType:
		return typesIdentical(a.ElemType, b.ElemType)
	default:
		return a == b
	}
}

func isPointerish(t *ast.Node) bool {
	return t != nil && (t.Kind == ast.KindPointerType || (t.Kind == ast.KindSimpleType && t.SimpleCode == ast.TAddress))
}

func isGenericPointer(t *ast.Node) bool {
	return t != nil && t.Kind == ast.KindSimpleType && t.SimpleCode == ast.TAddress
}

func pointeeNamesMatch(a, b *ast.Node) bool {
	if a.Kind != ast.KindPointerType || b.Kind != ast.KindPointerType {
		return true // one side already established as generic by the caller
	}
	if a.PointeeName != "" && b.PointeeName != "" {
		return equalFold(a.PointeeName, b.PointeeName)
	}
	return typesIdentical(a.ElemType, b.ElemType)
}

func typeName(t *ast.Node) string {
	if t == nil {
		return "<untyped>"
	}
	switch t.Kind {
	case ast.KindSimpleType:
		return t.SimpleCode.String()
	case ast.KindPointerType:
		return "^" + t.PointeeName
	default:
		return t.Kind.String()
	}
}
