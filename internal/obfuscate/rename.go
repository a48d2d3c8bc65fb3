package obfuscate

import "github.com/tdewolff/parse/v2/js"

// renameLocals gives every binding declared inside a function a generated name.
// Bindings whose enclosing function is the program itself are left alone, so globals
// and anything another script may reference keep their names.
func renameLocals(ast *js.AST, names *nameGenerator) int {
	seen := make(map[*js.Var]struct{})
	renamed := 0
	js.Walk(visitor(func(n js.INode) bool {
		block, ok := n.(*js.BlockStmt)
		if !ok {
			return true
		}
		scope := &block.Scope
		if scope.Parent == nil || scope.Func == nil || scope.Func.Parent == nil {
			return true
		}
		for _, v := range scope.Declared {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			if v.Decl == js.NoDecl || v.Link != nil || string(v.Data) == "arguments" {
				continue
			}
			v.Data = []byte(names.next())
			renamed++
		}
		return true
	}), &ast.BlockStmt)
	return renamed
}
