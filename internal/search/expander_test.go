package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandQuery_AddsSynonyms(t *testing.T) {
	expanded := ExpandQuery("impostazione iva")

	assert.True(t, strings.HasPrefix(expanded, "impostazione iva"))
	assert.Contains(t, expanded, "configurazione")
	assert.Contains(t, expanded, "aliquota")
	assert.Contains(t, expanded, "imposta")
}

func TestExpandQuery_NoDuplicates(t *testing.T) {
	// "iva" and "aliquota" are in the same group; neither re-adds the other.
	expanded := ExpandQuery("aliquota iva")

	assert.Equal(t, 1, strings.Count(expanded, "aliquota"))
	assert.Equal(t, 1, strings.Count(expanded, "imposta"))
}

func TestExpandQuery_UnknownTermsUnchanged(t *testing.T) {
	assert.Equal(t, "stampante fiscale ERR-205", ExpandQuery("stampante fiscale ERR-205"))
	assert.Equal(t, "", ExpandQuery(""))
}
