// Package parser implements the recursive-descent parser of spec §4.2: a
// single pass that builds the AST, enters and leaves lexical scopes, and
// performs type checking and implicit-cast insertion as it goes.
package parser

import (
	"strings"

	"tps3/pkg/ast"
	"tps3/pkg/lexer"
	"tps3/pkg/native"
	"tps3/pkg/toolchain"
)

// Parser drives a CommentStripper-wrapped Lexer over source text, building
// the program's AST against a chain of SymbolTables rooted at root.
type Parser struct {
	lex     *lexer.CommentStripper
	reg     *native.Registry
	modules native.ModuleRegistry
	table   *ast.SymbolTable

	pendingPointers []*ast.Node // unresolved ^Name nodes, live only within a type section
	funcStack       []funcFrame // enclosing function(s), for the bare-name return-value assignment
}

// funcFrame records one enclosing function's name and return type, so the
// statement parser can recognize `Name := expr` as an assignment to the
// return-value slot rather than a call.
type funcFrame struct {
	name    string
	retType *ast.Node
}

// New creates a Parser over src. reg is the shared native-procedure
// registry every `uses` clause installs into; modules resolves a `uses`
// name to an installable module; root is the program's top-level scope,
// normally seeded beforehand with the __builtin__ module.
func New(src string, reg *native.Registry, modules native.ModuleRegistry, root *ast.SymbolTable) *Parser {
	return &Parser{
		lex:     lexer.Strip(lexer.New(src)),
		reg:     reg,
		modules: modules,
		table:   root,
	}
}

// Parse parses the whole program. Per spec §7 there is no error recovery:
// the first error aborts.
func (p *Parser) Parse() (*ast.Node, error) {
	return p.parseProgram()
}

func (p *Parser) peek() (lexer.Token, error) { return p.lex.Peek() }
func (p *Parser) next() (lexer.Token, error) { return p.lex.Next() }

func (p *Parser) errorAt(tok lexer.Token, format string, args ...any) error {
	return toolchain.NewAt(toolchain.StageParse, tok.Text, tok.Line, format, args...)
}

func isReservedWord(tok lexer.Token, word string) bool {
	return tok.Kind == lexer.ReservedWord && strings.EqualFold(tok.Text, word)
}

func isSymbolText(tok lexer.Token, text string) bool {
	return tok.Kind == lexer.Symbol && tok.Text == text
}

func (p *Parser) expectSymbol(text string) (lexer.Token, error) {
	tok, err := p.next()
	if err != nil {
		return tok, err
	}
	if !isSymbolText(tok, text) {
		return tok, p.errorAt(tok, "expected %q, got %q", text, tok.Text)
	}
	return tok, nil
}

func (p *Parser) expectReserved(word string) (lexer.Token, error) {
	tok, err := p.next()
	if err != nil {
		return tok, err
	}
	if !isReservedWord(tok, word) {
		return tok, p.errorAt(tok, "expected %q, got %q", word, tok.Text)
	}
	return tok, nil
}

func (p *Parser) expectIdentifier() (lexer.Token, error) {
	tok, err := p.next()
	if err != nil {
		return tok, err
	}
	if tok.Kind != lexer.Identifier {
		return tok, p.errorAt(tok, "expected identifier, got %q", tok.Text)
	}
	return tok, nil
}

// atReserved peeks and reports whether the next token is the named
// reserved word, without consuming it.
func (p *Parser) atReserved(word string) bool {
	tok, err := p.peek()
	return err == nil && isReservedWord(tok, word)
}

func (p *Parser) atSymbol(text string) bool {
	tok, err := p.peek()
	return err == nil && isSymbolText(tok, text)
}

func (p *Parser) atEOF() bool {
	tok, err := p.peek()
	return err == nil && tok.Kind == lexer.EOF
}

// parseProgram parses `program Name; <decls> begin <stmts> end.`
func (p *Parser) parseProgram() (*ast.Node, error) {
	if _, err := p.expectReserved("program"); err != nil {
		return nil, err
	}
	nameTok, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectSymbol(";"); err != nil {
		return nil, err
	}

	prog := &ast.Node{Kind: ast.KindProgram, Name: nameTok.Text, Line: nameTok.Line, Scope: p.table}

	locals, err := p.parseDeclarations()
	if err != nil {
		return nil, err
	}
	prog.Locals = locals

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	prog.Body = body

	if _, err := p.expectSymbol("."); err != nil {
		return nil, err
	}
	return prog, nil
}

// parseDeclarations consumes any number of uses/var/const/type/procedure/
// function sections, in any order, until `begin`.
func (p *Parser) parseDeclarations() ([]*ast.Node, error) {
	var decls []*ast.Node
	for {
		switch {
		case p.atReserved("uses"):
			d, err := p.parseUses()
			if err != nil {
				return nil, err
			}
			decls = append(decls, d)
		case p.atReserved("var"):
			ds, err := p.parseVarSection()
			if err != nil {
				return nil, err
			}
			decls = append(decls, ds...)
		case p.atReserved("const"):
			ds, err := p.parseConstSection()
			if err != nil {
				return nil, err
			}
			decls = append(decls, ds...)
		case p.atReserved("type"):
			ds, err := p.parseTypeSection()
			if err != nil {
				return nil, err
			}
			decls = append(decls, ds...)
		case p.atReserved("procedure"):
			d, err := p.parseProcedure()
			if err != nil {
				return nil, err
			}
			decls = append(decls, d)
		case p.atReserved("function"):
			d, err := p.parseFunction()
			if err != nil {
				return nil, err
			}
			decls = append(decls, d)
		default:
			return decls, nil
		}
	}
}
