package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesFilters_Empty(t *testing.T) {
	c := &Chunk{ID: "a", Module: "fatturazione"}
	assert.True(t, MatchesFilters(c, nil))
	assert.True(t, MatchesFilters(c, Filters{}))
}

func TestMatchesFilters_Equality(t *testing.T) {
	c := &Chunk{
		ID:           "a",
		Module:       "fatturazione",
		Version:      "2024.1",
		ContentType:  ContentTypeParameter,
		Lang:         "it",
		SourceFormat: SourceFormatHTML,
		ErrorCode:    "ERR-205",
		SectionLevel: 3,
	}

	assert.True(t, MatchesFilters(c, Filters{FilterModule: "fatturazione"}))
	assert.False(t, MatchesFilters(c, Filters{FilterModule: "magazzino"}))

	assert.True(t, MatchesFilters(c, Filters{FilterContentType: "parameter"}))
	assert.False(t, MatchesFilters(c, Filters{FilterContentType: "procedure"}))

	assert.True(t, MatchesFilters(c, Filters{FilterErrorCode: "ERR-205"}))
	assert.False(t, MatchesFilters(c, Filters{FilterErrorCode: "ERR-206"}))
}

func TestMatchesFilters_SectionLevelRange(t *testing.T) {
	c := &Chunk{ID: "a", SectionLevel: 3}

	assert.True(t, MatchesFilters(c, Filters{FilterSectionLevel: 3}))
	assert.False(t, MatchesFilters(c, Filters{FilterSectionLevel: 2}))

	assert.True(t, MatchesFilters(c, Filters{FilterSectionLevelMin: 2, FilterSectionLevelMax: 4}))
	assert.False(t, MatchesFilters(c, Filters{FilterSectionLevelMin: 4}))
	assert.False(t, MatchesFilters(c, Filters{FilterSectionLevelMax: 2}))

	// JSON-decoded filter values arrive as float64.
	assert.True(t, MatchesFilters(c, Filters{FilterSectionLevel: float64(3)}))
}

func TestMatchesFilters_CombinedAllMustHold(t *testing.T) {
	c := &Chunk{ID: "a", Module: "contabilita", Lang: "it"}

	assert.True(t, MatchesFilters(c, Filters{FilterModule: "contabilita", FilterLang: "it"}))
	assert.False(t, MatchesFilters(c, Filters{FilterModule: "contabilita", FilterLang: "en"}))
}
