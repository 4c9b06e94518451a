package store

import "fmt"

// Filter keys understood by the in-process backends. Unknown keys are
// ignored rather than rejected; filter semantics belong to the backends,
// not to the retrieval engine.
const (
	FilterModule          = "module"
	FilterVersion         = "version"
	FilterContentType     = "content_type"
	FilterLang            = "lang"
	FilterSourceFormat    = "source_format"
	FilterErrorCode       = "error_code"
	FilterSectionLevel    = "section_level"
	FilterSectionLevelMin = "section_level_min"
	FilterSectionLevelMax = "section_level_max"
)

// MatchesFilters reports whether a chunk satisfies every recognized filter.
// An empty or nil filter map matches everything.
func MatchesFilters(c *Chunk, filters Filters) bool {
	if len(filters) == 0 {
		return true
	}

	for key, want := range filters {
		switch key {
		case FilterModule:
			if asString(want) != c.Module {
				return false
			}
		case FilterVersion:
			if asString(want) != c.Version {
				return false
			}
		case FilterContentType:
			if asString(want) != string(c.ContentType) {
				return false
			}
		case FilterLang:
			if asString(want) != c.Lang {
				return false
			}
		case FilterSourceFormat:
			if asString(want) != string(c.SourceFormat) {
				return false
			}
		case FilterErrorCode:
			if asString(want) != c.ErrorCode {
				return false
			}
		case FilterSectionLevel:
			if lvl, ok := asInt(want); !ok || lvl != c.SectionLevel {
				return false
			}
		case FilterSectionLevelMin:
			if lvl, ok := asInt(want); !ok || c.SectionLevel < lvl {
				return false
			}
		case FilterSectionLevelMax:
			if lvl, ok := asInt(want); !ok || c.SectionLevel > lvl {
				return false
			}
		}
	}

	return true
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
