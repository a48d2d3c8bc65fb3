package obfuscate

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/tdewolff/parse/v2/js"
)

// deadCodeInjector adds unreachable branches guarded by comparisons of distinct
// string constants.
type deadCodeInjector struct {
	rng       *rand.Rand
	names     *nameGenerator
	threshold float64
	count     int
}

func (d *deadCodeInjector) run(ast *js.AST) int {
	js.Walk(visitor(func(n js.INode) bool {
		switch n := n.(type) {
		case *js.FuncDecl:
			d.inject(&n.Body)
		case *js.MethodDecl:
			d.inject(&n.Body)
		case *js.ArrowFunc:
			if len(n.Body.List) > 1 {
				d.inject(&n.Body)
			}
		}
		return true
	}), &ast.BlockStmt)
	return d.count
}

func (d *deadCodeInjector) inject(body *js.BlockStmt) {
	if d.rng.Float64() >= d.threshold {
		return
	}
	junk, err := parseBody(d.junk(), false, false)
	if err != nil {
		return
	}
	head, rest := splitDirectives(body.List)
	pos := d.rng.IntN(len(rest) + 1)
	body.List = slices.Concat(head, rest[:pos], junk, rest[pos:])
	d.count++
}

func (d *deadCodeInjector) junk() string {
	a := quoteJS(randomKey(d.rng, 5), false)
	b := quoteJS(randomKey(d.rng, 5), false)
	for b == a {
		b = quoteJS(randomKey(d.rng, 5), false)
	}
	v := d.names.next()
	switch d.rng.IntN(3) {
	case 0:
		return fmt.Sprintf(`if(%s===%s){var %s=%s;%s=%s["split"]("")["reverse"]()["join"]("")}`, a, b, v, a, v, v)
	case 1:
		return fmt.Sprintf(`if(%s!==%s){}else{var %s=[%s,%s];%s["push"](%s["length"])}`, a, b, v, a, b, v, v)
	default:
		return fmt.Sprintf(`if(%s==%s){var %s=0x%x;%s=%s<<0x2|%s>>>0x3}`, a, b, v, 1+d.rng.IntN(0xff), v, v, v)
	}
}
