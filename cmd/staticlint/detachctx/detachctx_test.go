package detachctx_test

import (
	"testing"

	"github.com/tempizhere/linkgate/cmd/staticlint/detachctx"
	"golang.org/x/tools/go/analysis/analysistest"
)

func TestAnalyzer(t *testing.T) {
	analysistest.Run(t, analysistest.TestData(), detachctx.Analyzer, "detach")
}
