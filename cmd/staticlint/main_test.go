package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/analysis"
)

func TestAnalyzers(t *testing.T) {
	list := analyzers()
	require.NotEmpty(t, list)

	names := make(map[string]bool, len(list))
	for _, a := range list {
		assert.False(t, names[a.Name], "duplicate analyzer %s", a.Name)
		names[a.Name] = true
	}
	for _, name := range []string{"noexit", "detachctx", "errcheck", "ST1000", "S1000", "SA1000", "lostcancel"} {
		assert.True(t, names[name], "missing analyzer %s", name)
	}
	assert.False(t, names["ST1003"], "only selected stylecheck analyzers are enabled")

	assert.NoError(t, analysis.Validate(list))
}
