// Package main содержит multichecker для статического анализа кода сервиса.
//
// Multichecker объединяет следующие группы анализаторов:
//
// 1. Стандартные анализаторы из golang.org/x/tools/go/analysis/passes:
// nilness, shadow, unreachable, printf, assign, atomic, bools, buildtag,
// copylocks, lostcancel и httpresponse.
//
// 2. Все анализаторы класса SA из staticcheck.io.
//
// 3. ST1000 (комментарий пакета) и S1000 (упрощение select) из staticcheck.io.
//
// 4. errcheck: проверяет обработку возвращаемых ошибок.
//
// 5. Собственные анализаторы:
//   - noexit: запрещает прямой вызов os.Exit в функции main пакета main
//   - detachctx: находит горутины, захватывающие context.Context запроса
//
// Использование:
//
//	go run ./cmd/staticlint ./...
package main

import (
	"github.com/kisielk/errcheck/errcheck"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/assign"
	"golang.org/x/tools/go/analysis/passes/atomic"
	"golang.org/x/tools/go/analysis/passes/bools"
	"golang.org/x/tools/go/analysis/passes/buildtag"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/httpresponse"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/nilness"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/shadow"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"honnef.co/go/tools/simple"
	"honnef.co/go/tools/staticcheck"
	"honnef.co/go/tools/stylecheck"

	"github.com/tempizhere/linkgate/cmd/staticlint/detachctx"
	"github.com/tempizhere/linkgate/cmd/staticlint/noexit"
)

// extraChecks проверки staticcheck вне класса SA
var extraChecks = map[string]bool{
	"ST1000": true,
	"S1000":  true,
}

func analyzers() []*analysis.Analyzer {
	list := []*analysis.Analyzer{
		nilness.Analyzer,
		shadow.Analyzer,
		unreachable.Analyzer,
		printf.Analyzer,
		assign.Analyzer,
		atomic.Analyzer,
		bools.Analyzer,
		buildtag.Analyzer,
		copylock.Analyzer,
		lostcancel.Analyzer,
		httpresponse.Analyzer,
	}

	for _, a := range staticcheck.Analyzers {
		list = append(list, a.Analyzer)
	}
	for _, a := range stylecheck.Analyzers {
		if extraChecks[a.Analyzer.Name] {
			list = append(list, a.Analyzer)
		}
	}
	for _, a := range simple.Analyzers {
		if extraChecks[a.Analyzer.Name] {
			list = append(list, a.Analyzer)
		}
	}

	return append(list,
		errcheck.Analyzer,
		noexit.Analyzer,
		detachctx.Analyzer,
	)
}

func main() {
	multichecker.Main(analyzers()...)
}
