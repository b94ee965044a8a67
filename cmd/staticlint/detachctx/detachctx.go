// Package detachctx содержит анализатор, который находит горутины-литералы,
// захватывающие context.Context из окружающей функции.
//
// Фоновая работа, переживающая запрос (заполнение кэша, публикация события),
// должна получать отвязанный контекст аргументом:
//
//	taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
//	go func(ctx context.Context) { defer cancel(); ... }(taskCtx)
package detachctx

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Analyzer сообщает о захвате контекста горутиной
var Analyzer = &analysis.Analyzer{
	Name:     "detachctx",
	Doc:      "сообщает о горутинах-литералах, захватывающих context.Context окружающей функции",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	insp.Preorder([]ast.Node{(*ast.GoStmt)(nil)}, func(n ast.Node) {
		stmt := n.(*ast.GoStmt)
		if strings.HasSuffix(pass.Fset.Position(stmt.Pos()).Filename, "_test.go") {
			return
		}
		lit, ok := stmt.Call.Fun.(*ast.FuncLit)
		if !ok {
			return
		}

		reported := make(map[types.Object]bool)
		ast.Inspect(lit.Body, func(n ast.Node) bool {
			id, ok := n.(*ast.Ident)
			if !ok {
				return true
			}
			obj, ok := pass.TypesInfo.Uses[id].(*types.Var)
			if !ok || obj.IsField() || reported[obj] || !isContext(obj.Type()) {
				return true
			}
			// объявленные внутри литерала, включая его параметры, не захвачены
			if obj.Pos() >= lit.Pos() && obj.Pos() < lit.End() {
				return true
			}
			reported[obj] = true
			pass.Reportf(id.Pos(), "горутина захватывает контекст %s; передайте отвязанный контекст аргументом", obj.Name())
			return true
		})
	})
	return nil, nil
}

func isContext(t types.Type) bool {
	named, ok := types.Unalias(t).(*types.Named)
	if !ok {
		return false
	}
	obj := named.Obj()
	return obj.Pkg() != nil && obj.Pkg().Path() == "context" && obj.Name() == "Context"
}
