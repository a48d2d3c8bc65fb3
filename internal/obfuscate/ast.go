package obfuscate

import (
	"errors"
	"slices"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"
)

var errSnippet = errors.New("generated snippet did not parse")

// visitor adapts a function to js.IVisitor. Returning false from enter skips the children.
type visitor func(n js.INode) bool

func (f visitor) Enter(n js.INode) js.IVisitor {
	if f(n) {
		return f
	}
	return nil
}

func (visitor) Exit(js.INode) {}

// splitDirectives separates the leading directive prologue ("use strict") from the body.
func splitDirectives(list []js.IStmt) (head, rest []js.IStmt) {
	i := 0
	for i < len(list) {
		if _, ok := list[i].(*js.DirectivePrologueStmt); !ok {
			break
		}
		i++
	}
	return list[:i:i], list[i:]
}

// renderStmt prints a single statement back to source text.
func renderStmt(s js.IStmt) string {
	var b strings.Builder
	s.JS(&b)
	return b.String()
}

// parseProgram parses generated top-level statements.
func parseProgram(src string) ([]js.IStmt, error) {
	ast, err := js.Parse(parse.NewInputString(src), js.Options{})
	if err != nil {
		return nil, errors.Join(errSnippet, err)
	}
	return ast.List, nil
}

// parseBody parses generated statements as the body of a function with the given flavor,
// so await and yield keep their meaning.
func parseBody(src string, async, generator bool) ([]js.IStmt, error) {
	head := "function"
	if async {
		head = "async function"
	}
	if generator {
		head += "*"
	}
	list, err := parseProgram(head + " _(){" + src + "}")
	if err != nil {
		return nil, err
	}
	if len(list) != 1 {
		return nil, errSnippet
	}
	fn, ok := list[0].(*js.FuncDecl)
	if !ok {
		return nil, errSnippet
	}
	return fn.Body.List, nil
}

// insertAfterDirectives returns body with stmts placed after the directive prologue.
func insertAfterDirectives(body, stmts []js.IStmt) []js.IStmt {
	head, rest := splitDirectives(body)
	return slices.Concat(head, stmts, rest)
}

// usesDynamicScope reports whether the program contains a with statement or a direct
// eval call, either of which can observe local binding names.
func usesDynamicScope(ast *js.AST) bool {
	found := false
	js.Walk(visitor(func(n js.INode) bool {
		switch n := n.(type) {
		case *js.WithStmt:
			found = true
		case *js.CallExpr:
			if v, ok := n.X.(*js.Var); ok && string(v.Data) == "eval" {
				found = true
			}
		}
		return !found
	}), &ast.BlockStmt)
	return found
}
