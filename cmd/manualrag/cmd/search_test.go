package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docstack/manualrag/internal/store"
)

func TestBuildFilters(t *testing.T) {
	assert.Nil(t, buildFilters(searchOptions{}))

	filters := buildFilters(searchOptions{
		module:      "fatturazione",
		contentType: "procedure",
	})
	assert.Equal(t, store.Filters{
		store.FilterModule:      "fatturazione",
		store.FilterContentType: "procedure",
	}, filters)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "breve", snippet("breve", 200))
	assert.Equal(t, "a b c", snippet("a\n b\t\tc", 200))

	long := snippet("parola parola parola", 10)
	assert.Equal(t, "parola par...", long)
}
