package parser

import (
	"strings"

	"tps3/pkg/ast"
	"tps3/pkg/lexer"
	"tps3/pkg/native"
)

// parseBlock parses `begin <stmts> end`.
func (p *Parser) parseBlock() (*ast.Node, error) {
	tok, err := p.expectReserved("begin")
	if err != nil {
		return nil, err
	}
	stmts, err := p.parseStatementList(func() bool { return p.atReserved("end") })
	if err != nil {
		return nil, err
	}
	if _, err := p.expectReserved("end"); err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.KindBlock, Stmts: stmts, Line: tok.Line}, nil
}

// parseStatementList parses `;`-separated statements until stop reports
// true; a trailing `;` before the terminator and empty statements (two
// consecutive `;`, or none at all) are both allowed (spec §4.2).
func (p *Parser) parseStatementList(stop func() bool) ([]*ast.Node, error) {
	var stmts []*ast.Node
	for {
		if stop() {
			return stmts, nil
		}
		if p.atSymbol(";") {
			p.next()
			continue
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		if p.atSymbol(";") {
			p.next()
			continue
		}
		if stop() {
			return stmts, nil
		}
		tok, _ := p.peek()
		return nil, p.errorAt(tok, "expected ';' or a block terminator, got %q", tok.Text)
	}
}

func (p *Parser) parseStatement() (*ast.Node, error) {
	switch {
	case p.atReserved("if"):
		return p.parseIf()
	case p.atReserved("while"):
		return p.parseWhile()
	case p.atReserved("repeat"):
		return p.parseRepeat()
	case p.atReserved("for"):
		return p.parseFor()
	case p.atReserved("begin"):
		return p.parseBlock()
	case p.atReserved("exit"):
		return p.parseExit()
	case p.atWriteKeyword():
		return p.parseWriteStatement()
	default:
		return p.parseAssignmentOrCall()
	}
}

// atWriteKeyword reports whether the next token spells Write/WriteLn. They
// are handled as a dedicated statement form rather than an ordinary call
// because the p-machine's native Fn is single-typed (builtin.go's
// internalWriteName comment): a variadic, mixed-type WriteLn is desugared
// here into one typed write call per argument.
func (p *Parser) atWriteKeyword() bool {
	tok, err := p.peek()
	if err != nil || tok.Kind != lexer.Identifier {
		return false
	}
	return strings.EqualFold(tok.Text, "write") || strings.EqualFold(tok.Text, "writeln")
}

// parseWriteStatement desugars `Write(a, b, ...)` / `WriteLn(a, b, ...)`
// into a block of one call per argument to the matching internal
// per-type write helper, followed (for WriteLn) by a trailing newline
// call (spec §4.2, builtin.go).
func (p *Parser) parseWriteStatement() (*ast.Node, error) {
	tok, _ := p.next()
	isLn := strings.EqualFold(tok.Text, "writeln")
	var args []*ast.Node
	if p.atSymbol("(") {
		var err error
		args, err = p.parseArgList()
		if err != nil {
			return nil, err
		}
	}
	var calls []*ast.Node
	for _, arg := range args {
		code, ok := writeArgCode(arg.ExpressionType)
		if !ok {
			return nil, p.errorAt(tok, "cannot write a value of type %s", typeName(arg.ExpressionType))
		}
		call, err := p.internalCall(tok, native.InternalWriteName(code), []*ast.Node{arg})
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	if isLn {
		call, err := p.internalCall(tok, native.InternalNewlineName, nil)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	return &ast.Node{Kind: ast.KindBlock, Stmts: calls, Line: tok.Line}, nil
}

func writeArgCode(t *ast.Node) (ast.SimpleTypeCode, bool) {
	if t == nil || t.Kind != ast.KindSimpleType {
		return 0, false
	}
	switch t.SimpleCode {
	case ast.TInteger, ast.TReal, ast.TBoolean, ast.TChar, ast.TString:
		return t.SimpleCode, true
	}
	return 0, false
}

// internalCall builds a KindProcedureCall to a native helper that was
// registered directly with the registry (not defined in any symbol
// table), resolving its call-site index by name.
func (p *Parser) internalCall(tok lexer.Token, name string, args []*ast.Node) (*ast.Node, error) {
	info, ok := p.reg.Lookup(name)
	if !ok {
		return nil, p.errorAt(tok, "internal: missing native helper %q", name)
	}
	subType := &ast.Node{Kind: ast.KindSubprogramType, RetType: info.ReturnType}
	for i, pt := range info.ParamTypes {
		subType.Params = append(subType.Params, &ast.Node{Kind: ast.KindParameter, ElemType: pt, ByRef: info.ParamByRef[i]})
	}
	sym := &ast.Symbol{Name: name, Type: subType, Address: info.Address, IsNative: true}
	return &ast.Node{
		Kind: ast.KindProcedureCall, Callee: name, Args: args,
		ExpressionType: tVoid, Line: tok.Line,
		SymbolLookup: &ast.SymbolLookup{Symbol: sym, Level: 0},
	}, nil
}

func (p *Parser) parseIf() (*ast.Node, error) {
	tok, _ := p.next()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	cond, err = implicitCast(cond, tBoolean)
	if err != nil {
		return nil, p.errorAt(tok, "if condition: %v", err)
	}
	if _, err := p.expectReserved("then"); err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	var elseStmt *ast.Node
	if p.atReserved("else") {
		p.next()
		elseStmt, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
	}
	return &ast.Node{Kind: ast.KindIf, Cond: cond, Then: then, Else: elseStmt, Line: tok.Line}, nil
}

func (p *Parser) parseWhile() (*ast.Node, error) {
	tok, _ := p.next()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	cond, err = implicitCast(cond, tBoolean)
	if err != nil {
		return nil, p.errorAt(tok, "while condition: %v", err)
	}
	if _, err := p.expectReserved("do"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.KindWhile, Cond: cond, Then: body, Line: tok.Line}, nil
}

func (p *Parser) parseRepeat() (*ast.Node, error) {
	tok, _ := p.next()
	stmts, err := p.parseStatementList(func() bool { return p.atReserved("until") })
	if err != nil {
		return nil, err
	}
	if _, err := p.expectReserved("until"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	cond, err = implicitCast(cond, tBoolean)
	if err != nil {
		return nil, p.errorAt(tok, "until condition: %v", err)
	}
	return &ast.Node{Kind: ast.KindRepeat, Stmts: stmts, Cond: cond, Line: tok.Line}, nil
}

func (p *Parser) parseFor() (*ast.Node, error) {
	tok, _ := p.next()
	varTok, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	loopVar, err := p.parseCallOrVariable(varTok)
	if err != nil {
		return nil, err
	}
	if loopVar.Kind != ast.KindIdentifier {
		return nil, p.errorAt(varTok, "for-loop control variable must be a simple variable")
	}
	if _, err := p.expectSymbol(":="); err != nil {
		return nil, err
	}
	start, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	start, err = implicitCast(start, loopVar.ExpressionType)
	if err != nil {
		return nil, p.errorAt(tok, "for start value: %v", err)
	}
	downto := false
	if p.atReserved("downto") {
		p.next()
		downto = true
	} else if _, err := p.expectReserved("to"); err != nil {
		return nil, err
	}
	high, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	high, err = implicitCast(high, loopVar.ExpressionType)
	if err != nil {
		return nil, p.errorAt(tok, "for bound: %v", err)
	}
	if _, err := p.expectReserved("do"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.KindFor, LoopVar: loopVar, Start: start, High: high, Downto: downto, Then: body, Line: tok.Line}, nil
}

func (p *Parser) parseExit() (*ast.Node, error) {
	tok, _ := p.next()
	return &ast.Node{Kind: ast.KindExit, Line: tok.Line}, nil
}

// parseAssignmentOrCall parses either `designator := expr` or a bare
// procedure-call statement; the callee must resolve to a void-returning
// subprogram in the latter case (spec §4.2).
func (p *Parser) parseAssignmentOrCall() (*ast.Node, error) {
	tok, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	base, err := p.parseCallOrVariable(tok)
	if err != nil {
		return nil, err
	}
	base, err = p.parsePostfix(base)
	if err != nil {
		return nil, err
	}
	if p.atSymbol(":=") {
		p.next()
		if !isAddressable(base) {
			return nil, p.errorAt(tok, "cannot assign to this expression")
		}
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		casted, err := implicitCast(value, base.ExpressionType)
		if err != nil {
			return nil, p.errorAt(tok, "assignment: %v", err)
		}
		return &ast.Node{Kind: ast.KindAssignment, Target: base, Value: casted, Line: tok.Line}, nil
	}
	if base.Kind != ast.KindProcedureCall {
		return nil, p.errorAt(tok, "%q is not a procedure", tok.Text)
	}
	return base, nil
}
