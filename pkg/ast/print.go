package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Print renders n as Pascal-flavored source text for debugging. It does
// not reproduce the original formatting, and its output does not always
// re-parse: typed-constant initializers print as <data>, implicit casts
// as (type)(expr), unary operators as (neg x)/(pos x)/(not x), and a
// statement before `else` keeps its trailing semicolon.
func Print(n *Node) string {
	var b strings.Builder
	printNode(&b, n)
	return b.String()
}

func printNode(b *strings.Builder, n *Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case KindIdentifier:
		b.WriteString(n.Text)
	case KindNumber:
		if n.IsReal {
			b.WriteString(strconv.FormatFloat(n.Real, 'g', -1, 64))
		} else {
			b.WriteString(strconv.FormatInt(n.Int, 10))
		}
	case KindString:
		b.WriteString("'")
		b.WriteString(strings.ReplaceAll(n.Text, "'", "''"))
		b.WriteString("'")
	case KindBoolean:
		if n.Boolean {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case KindPointerNil:
		b.WriteString("nil")

	case KindProgram:
		fmt.Fprintf(b, "program %s;\n", n.Name)
		printDecls(b, n.Locals)
		b.WriteString("begin\n")
		printStmtList(b, n.Body.Stmts)
		b.WriteString("end.\n")

	case KindProcedure:
		fmt.Fprintf(b, "procedure %s(%s);\n", n.Name, printParams(n.Params))
		printDecls(b, n.Locals)
		b.WriteString("begin\n")
		printStmtList(b, n.Body.Stmts)
		b.WriteString("end;\n")

	case KindFunction:
		fmt.Fprintf(b, "function %s(%s): ", n.Name, printParams(n.Params))
		printNode(b, n.RetType)
		b.WriteString(";\n")
		printDecls(b, n.Locals)
		b.WriteString("begin\n")
		printStmtList(b, n.Body.Stmts)
		b.WriteString("end;\n")

	case KindUses:
		fmt.Fprintf(b, "uses %s;\n", n.Uses)

	case KindVar:
		fmt.Fprintf(b, "var %s: ", strings.Join(n.Names, ", "))
		printNode(b, n.ElemType)
		b.WriteString(";\n")

	case KindConst:
		fmt.Fprintf(b, "const %s = ", n.Name)
		printNode(b, n.Value)
		b.WriteString(";\n")

	case KindTypedConst:
		fmt.Fprintf(b, "const %s: ", n.Name)
		printNode(b, n.ElemType)
		b.WriteString(" = <data>;\n")

	case KindTypeDecl:
		fmt.Fprintf(b, "type %s = ", n.Name)
		printNode(b, n.ElemType)
		b.WriteString(";\n")

	case KindParameter:
		if n.ByRef {
			b.WriteString("var ")
		}
		fmt.Fprintf(b, "%s: ", n.Name)
		printNode(b, n.ElemType)

	case KindField:
		fmt.Fprintf(b, "%s: ", n.Name)
		printNode(b, n.ElemType)

	case KindBlock:
		b.WriteString("begin\n")
		printStmtList(b, n.Stmts)
		b.WriteString("end")

	case KindRange:
		printNode(b, n.Low)
		b.WriteString("..")
		printNode(b, n.High)

	case KindAssignment:
		printNode(b, n.Target)
		b.WriteString(" := ")
		printNode(b, n.Value)
		b.WriteString(";\n")

	case KindProcedureCall:
		fmt.Fprintf(b, "%s(%s);\n", n.Callee, printArgs(n.Args))

	case KindIf:
		b.WriteString("if ")
		printNode(b, n.Cond)
		b.WriteString(" then\n")
		printNode(b, n.Then)
		if n.Else != nil {
			b.WriteString("\nelse\n")
			printNode(b, n.Else)
		}
		b.WriteString(";\n")

	case KindWhile:
		b.WriteString("while ")
		printNode(b, n.Cond)
		b.WriteString(" do\n")
		printNode(b, n.Then)
		b.WriteString(";\n")

	case KindRepeat:
		b.WriteString("repeat\n")
		printStmtList(b, n.Stmts)
		b.WriteString("until ")
		printNode(b, n.Cond)
		b.WriteString(";\n")

	case KindFor:
		b.WriteString("for ")
		printNode(b, n.LoopVar)
		b.WriteString(" := ")
		printNode(b, n.Start)
		if n.Downto {
			b.WriteString(" downto ")
		} else {
			b.WriteString(" to ")
		}
		printNode(b, n.High)
		b.WriteString(" do\n")
		printNode(b, n.Then)
		b.WriteString(";\n")

	case KindExit:
		b.WriteString("exit;\n")

	case KindUnary:
		fmt.Fprintf(b, "(%s ", n.Operator)
		printNode(b, n.Right)
		b.WriteString(")")

	case KindBinary:
		b.WriteString("(")
		printNode(b, n.Left)
		fmt.Fprintf(b, " %s ", n.Operator)
		printNode(b, n.Right)
		b.WriteString(")")

	case KindFunctionCall:
		fmt.Fprintf(b, "%s(%s)", n.Callee, printArgs(n.Args))

	case KindIndex:
		printNode(b, n.Array)
		b.WriteString("[")
		for i, idx := range n.Indices {
			if i > 0 {
				b.WriteString(", ")
			}
			printNode(b, idx)
		}
		b.WriteString("]")

	case KindFieldDesignator:
		printNode(b, n.Array)
		fmt.Fprintf(b, ".%s", n.Field)

	case KindAddressOf:
		b.WriteString("@")
		printNode(b, n.Array)

	case KindDereference:
		printNode(b, n.Array)
		b.WriteString("^")

	case KindCast:
		b.WriteString("(")
		printNode(b, n.ElemType)
		b.WriteString(")(")
		printNode(b, n.Right)
		b.WriteString(")")

	case KindSimpleType:
		b.WriteString(n.SimpleCode.String())

	case KindEnumType:
		fmt.Fprintf(b, "(%s)", strings.Join(n.EnumNames, ", "))

	case KindRecordType:
		b.WriteString("record ")
		for i, f := range n.Fields {
			if i > 0 {
				b.WriteString("; ")
			}
			printNode(b, f)
		}
		b.WriteString(" end")

	case KindArrayType:
		b.WriteString("array [")
		for i, r := range n.Ranges {
			if i > 0 {
				b.WriteString(", ")
			}
			printNode(b, r)
		}
		b.WriteString("] of ")
		printNode(b, n.ElemType)

	case KindSetType:
		b.WriteString("set of ")
		printNode(b, n.ElemType)

	case KindPointerType:
		b.WriteString("^")
		if n.ElemType != nil {
			printNode(b, n.ElemType)
		} else {
			b.WriteString(n.PointeeName)
		}

	case KindSubprogramType:
		fmt.Fprintf(b, "procedure(%s)", printParams(n.Params))

	default:
		fmt.Fprintf(b, "<%s>", n.Kind)
	}
}

func printDecls(b *strings.Builder, decls []*Node) {
	for _, d := range decls {
		printNode(b, d)
	}
}

func printStmtList(b *strings.Builder, stmts []*Node) {
	for _, s := range stmts {
		printNode(b, s)
	}
}

func printParams(params []*Node) string {
	var parts []string
	for _, p := range params {
		var b strings.Builder
		printNode(&b, p)
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "; ")
}

func printArgs(args []*Node) string {
	var parts []string
	for _, a := range args {
		var b strings.Builder
		printNode(&b, a)
		parts = append(parts, b.String())
	}
	return strings.Join(parts, ", ")
}
