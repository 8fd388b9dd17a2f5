package parser

import (
	"tps3/pkg/ast"
	"tps3/pkg/lexer"
	"tps3/pkg/toolchain"
)

// parseUses parses `uses Name;`, installing the named module's procedures,
// types and constants into the current scope.
func (p *Parser) parseUses() (*ast.Node, error) {
	tok, _ := p.next() // "uses"
	nameTok, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectSymbol(";"); err != nil {
		return nil, err
	}
	mod, ok := p.modules.Get(nameTok.Text)
	if !ok {
		return nil, p.errorAt(nameTok, "unknown module %q", nameTok.Text)
	}
	mod.Install(p.reg, p.table)
	return &ast.Node{Kind: ast.KindUses, Uses: nameTok.Text, Line: tok.Line}, nil
}

// parseVarSection parses one `var` section: one or more `name, name: Type;`
// groups, stopping at the next section keyword or `begin`.
func (p *Parser) parseVarSection() ([]*ast.Node, error) {
	if _, err := p.expectReserved("var"); err != nil {
		return nil, err
	}
	var decls []*ast.Node
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
		if _, err := p.expectSymbol(";"); err != nil {
			return nil, err
		}
		for _, nameTok := range names {
			sym := p.table.DefineVariable(nameTok.Text, typ, typeSize(typ))
			_ = sym
		}
		decls = append(decls, &ast.Node{Kind: ast.KindVar, Names: tokensText(names), ElemType: typ, Line: names[0].Line})
	}
	return decls, nil
}

// parseNameList parses a comma-separated identifier list.
func (p *Parser) parseNameList() ([]lexer.Token, error) {
	var names []lexer.Token
	tok, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	names = append(names, tok)
	for p.atSymbol(",") {
		p.next()
		tok, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}
		names = append(names, tok)
	}
	return names, nil
}

func (p *Parser) startsIdentifierList() bool {
	tok, err := p.peek()
	return err == nil && tok.Kind == lexer.Identifier
}

func tokensText(toks []lexer.Token) []string {
	names := make([]string, len(toks))
	for i, t := range toks {
		names[i] = t.Text
	}
	return names
}

// parseConstSection parses one `const` section: each item is either an
// untyped constant `name = expr;` or a typed constant `name: Type = init;`.
func (p *Parser) parseConstSection() ([]*ast.Node, error) {
	if _, err := p.expectReserved("const"); err != nil {
		return nil, err
	}
	var decls []*ast.Node
	for p.startsIdentifierList() {
		nameTok, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}
		if p.atSymbol(":") {
			p.next()
			typ, err := p.parseTypeExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectSymbol("="); err != nil {
				return nil, err
			}
			data, err := p.parseTypedConstInitializer(typ)
			if err != nil {
				return nil, err
			}
			if _, err := p.expectSymbol(";"); err != nil {
				return nil, err
			}
			p.table.DefineTypedConstant(nameTok.Text, typ, typeSize(typ), data)
			decls = append(decls, &ast.Node{Kind: ast.KindTypedConst, Name: nameTok.Text, ElemType: typ, RawData: data, Line: nameTok.Line})
			continue
		}
		if _, err := p.expectSymbol("="); err != nil {
			return nil, err
		}
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectSymbol(";"); err != nil {
			return nil, err
		}
		p.table.DefineUntypedConstant(nameTok.Text, value.ExpressionType, value)
		decls = append(decls, &ast.Node{Kind: ast.KindConst, Name: nameTok.Text, Value: value, ExpressionType: value.ExpressionType, Line: nameTok.Line})
	}
	return decls, nil
}

// parseTypeSection parses one `type` section: `Name = TypeExpr;` entries.
// `^Name` forward references within the section are back-patched once the
// whole section has been read (spec §4.2, §9).
func (p *Parser) parseTypeSection() ([]*ast.Node, error) {
	if _, err := p.expectReserved("type"); err != nil {
		return nil, err
	}
	p.pendingPointers = nil
	var decls []*ast.Node
	for p.startsIdentifierList() {
		nameTok, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectSymbol("="); err != nil {
			return nil, err
		}
		typ, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectSymbol(";"); err != nil {
			return nil, err
		}
		p.table.DefineType(nameTok.Text, typ)
		decls = append(decls, &ast.Node{Kind: ast.KindTypeDecl, Name: nameTok.Text, ElemType: typ, Line: nameTok.Line})
	}
	if err := p.resolvePendingPointers(); err != nil {
		return nil, err
	}
	return decls, nil
}

// resolvePendingPointers back-patches every ^Name type node recorded
// during the section just parsed.
func (p *Parser) resolvePendingPointers() error {
	for _, ptr := range p.pendingPointers {
		typ, ok := p.table.LookupType(ptr.PointeeName)
		if !ok {
			return toolchain.New(toolchain.StageParse, "unresolved forward pointer type %q", ptr.PointeeName)
		}
		ptr.ElemType = typ
	}
	p.pendingPointers = nil
	return nil
}

// parseParams parses a procedure/function's parenthesized parameter list.
// Each `var` group is by-reference; groups share their declared type the
// same way a var-section item does.
func (p *Parser) parseParams() ([]*ast.Node, error) {
	var params []*ast.Node
	if !p.atSymbol("(") {
		return params, nil
	}
	p.next()
	if p.atSymbol(")") {
		p.next()
		return params, nil
	}
	for {
		byRef := false
		if p.atReserved("var") {
			p.next()
			byRef = true
		}
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
			sz := typeSize(typ)
			p.table.DefineParameter(nameTok.Text, typ, byRef, sz)
			params = append(params, &ast.Node{Kind: ast.KindParameter, Name: nameTok.Text, ElemType: typ, ByRef: byRef, Line: nameTok.Line})
		}
		if p.atSymbol(";") {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return params, nil
}

// parseProcedure parses `procedure Name(params); <decls> begin <stmts> end;`.
func (p *Parser) parseProcedure() (*ast.Node, error) {
	tok, _ := p.next() // "procedure"
	nameTok, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}

	sym := p.table.DefineSubprogram(nameTok.Text, nil) // address bound by the compiler; placeholder type until params known

	child := ast.NewChildSymbolTable(p.table)
	parent := p.table
	p.table = child

	params, err := p.parseParams()
	if err != nil {
		p.table = parent
		return nil, err
	}
	subType := &ast.Node{Kind: ast.KindSubprogramType, Params: params}
	sym.Type = subType

	if _, err := p.expectSymbol(";"); err != nil {
		p.table = parent
		return nil, err
	}

	locals, err := p.parseDeclarations()
	if err != nil {
		p.table = parent
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		p.table = parent
		return nil, err
	}
	if _, err := p.expectSymbol(";"); err != nil {
		p.table = parent
		return nil, err
	}

	n := &ast.Node{Kind: ast.KindProcedure, Name: nameTok.Text, Params: params, Locals: locals, Body: body, Scope: child, Line: tok.Line}
	p.table = parent
	return n, nil
}

// parseFunction parses `function Name(params): RetType; <decls> begin
// <stmts> end;`. While the body is parsed the function sits on funcStack,
// so a bare `Name` on the left of `:=` resolves to the return-value slot
// (spec example #3).
func (p *Parser) parseFunction() (*ast.Node, error) {
	tok, _ := p.next() // "function"
	nameTok, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}

	sym := p.table.DefineSubprogram(nameTok.Text, nil)

	child := ast.NewChildSymbolTable(p.table)
	parent := p.table
	p.table = child

	params, err := p.parseParams()
	if err != nil {
		p.table = parent
		return nil, err
	}
	if _, err := p.expectSymbol(":"); err != nil {
		p.table = parent
		return nil, err
	}
	retType, err := p.parseTypeExpr()
	if err != nil {
		p.table = parent
		return nil, err
	}
	subType := &ast.Node{Kind: ast.KindSubprogramType, Params: params, RetType: retType}
	sym.Type = subType

	if _, err := p.expectSymbol(";"); err != nil {
		p.table = parent
		return nil, err
	}

	// Inside its own body, the function's bare name (not followed by a
	// call) denotes the return-value slot at address 0 of its own frame
	// (spec §3 mark layout); parseAssignmentOrCall recognizes this via
	// funcStack before falling back to ordinary identifier resolution, so
	// a recursive call `F(n-1)` still resolves F as the enclosing
	// subprogram symbol.
	p.funcStack = append(p.funcStack, funcFrame{name: nameTok.Text, retType: retType})

	locals, err := p.parseDeclarations()
	if err != nil {
		p.table = parent
		return nil, err
	}
	body, err := p.parseBlock()
	p.funcStack = p.funcStack[:len(p.funcStack)-1]
	if err != nil {
		p.table = parent
		return nil, err
	}
	if _, err := p.expectSymbol(";"); err != nil {
		p.table = parent
		return nil, err
	}

	n := &ast.Node{Kind: ast.KindFunction, Name: nameTok.Text, Params: params, Locals: locals, RetType: retType, Body: body, Scope: child, Line: tok.Line}
	p.table = parent
	return n, nil
}
