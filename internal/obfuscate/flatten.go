package obfuscate

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"

	"github.com/tdewolff/parse/v2/js"
)

const minFlattenStatements = 2

// flattener rewrites function bodies into a dispatcher loop:
//
//	var o="2|0|1"["split"]("|"),i=0;while(!![]){switch(o[i++]){case"0":...;continue;...}break}
//
// The case order is shuffled while the order string keeps execution order.
type flattener struct {
	rng       *rand.Rand
	names     *nameGenerator
	threshold float64
	count     int
}

func (f *flattener) run(ast *js.AST) int {
	js.Walk(visitor(func(n js.INode) bool {
		switch n := n.(type) {
		case *js.FuncDecl:
			f.flatten(&n.Body, n.Async, n.Generator)
		case *js.MethodDecl:
			f.flatten(&n.Body, n.Async, n.Generator)
		case *js.ArrowFunc:
			f.flatten(&n.Body, n.Async, false)
		}
		return true
	}), &ast.BlockStmt)
	return f.count
}

func (f *flattener) flatten(body *js.BlockStmt, async, generator bool) {
	head, stmts := splitDirectives(body.List)
	if len(stmts) < minFlattenStatements || !flattenable(stmts) {
		return
	}
	if f.rng.Float64() >= f.threshold {
		return
	}

	order, index := f.names.next(), f.names.next()
	perm := f.rng.Perm(len(stmts))
	keys := make([]string, len(stmts))
	cases := make([]string, len(stmts))
	for i, stmt := range stmts {
		key := strconv.Itoa(perm[i])
		keys[i] = key
		cases[perm[i]] = "case" + quoteJS(key, false) + ":" + renderStmt(stmt) + ";continue;"
	}
	src := fmt.Sprintf(`var %[1]s=%[3]s["split"]("|"),%[2]s=0;while(!![]){switch(%[1]s[%[2]s++]){%[4]s}break}`,
		order, index, quoteJS(strings.Join(keys, "|"), false), strings.Join(cases, ""))

	list, err := parseBody(src, async, generator)
	if err != nil {
		return
	}
	body.List = slices.Concat(head, list)
	f.count++
}

// flattenable rejects bodies whose top-level statements depend on their position:
// hoisted function declarations and block-scoped declarations.
func flattenable(stmts []js.IStmt) bool {
	for _, s := range stmts {
		switch s := s.(type) {
		case *js.FuncDecl, *js.ClassDecl:
			return false
		case *js.VarDecl:
			if s.TokenType != js.VarToken {
				return false
			}
		}
	}
	return true
}
