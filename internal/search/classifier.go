package search

import (
	"regexp"
	"strings"

	"github.com/docstack/manualrag/internal/store"
)

// Classification patterns cover the Italian phrasing of the manuals plus the
// English terms that leak into support queries.
var (
	// Error-code shapes keep their case: "ERR-205", "FE012".
	errorCodePattern = regexp.MustCompile(`\b[A-Z]{2,4}-?\d{2,4}\b`)

	errorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:errore|error|avviso|warning|codice)\b`),
		regexp.MustCompile(`\bnon\s+(?:funziona|va|riesco)\b`),
	}

	parameterPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:param|impostaz|valori|predefin|default|range)`),
		regexp.MustCompile(`\bcome\s+(?:impostare|configurare|settare)\b`),
		regexp.MustCompile(`\bdove\s+(?:trovo|si trova)\b`),
		regexp.MustCompile(`\bvalori?\s+(?:ammessi|possibili|consentiti)\b`),
	}

	procedurePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bcome\s+(?:fare|eseguire|effettuare)\b`),
		regexp.MustCompile(`\b(?:procedura|processo|step|passi)\b`),
		regexp.MustCompile(`\bper\s+(?:creare|generare|stampare|inviare)\b`),
		regexp.MustCompile(`\b(?:configurare|impostare)\b`),
	}
)

// Classify maps a raw query to its intent. Error patterns are checked first:
// an explicit error code is the strongest signal and must not be shadowed by
// a co-occurring "come impostare" phrasing. Then parameter, then procedure;
// no match means GENERAL.
func Classify(query string) QueryType {
	lower := strings.ToLower(query)

	if errorCodePattern.MatchString(query) || anyMatch(errorPatterns, lower) {
		return QueryTypeError
	}
	if anyMatch(parameterPatterns, lower) {
		return QueryTypeParameter
	}
	if anyMatch(procedurePatterns, lower) {
		return QueryTypeProcedure
	}
	return QueryTypeGeneral
}

func anyMatch(patterns []*regexp.Regexp, query string) bool {
	for _, p := range patterns {
		if p.MatchString(query) {
			return true
		}
	}
	return false
}

// fanoutScale holds the per-type multipliers applied to the base kDense and
// kLexical fan-out sizes.
type fanoutScale struct {
	dense   float64
	lexical float64
}

// fanoutByType: exact codes are a keyword problem, so ERROR shifts budget to
// the lexical channel; procedures benefit from semantic paraphrase matching.
var fanoutByType = map[QueryType]fanoutScale{
	QueryTypeError:     {dense: 0.5, lexical: 2.0},
	QueryTypeParameter: {dense: 0.7, lexical: 1.3},
	QueryTypeProcedure: {dense: 1.3, lexical: 0.7},
	QueryTypeGeneral:   {dense: 1.0, lexical: 1.0},
}

// boostScale holds the per-type multipliers applied to the base field boosts.
type boostScale struct {
	title       float64
	breadcrumbs float64
	paramName   float64
	errorCode   float64
}

var boostsByType = map[QueryType]boostScale{
	QueryTypeError:     {title: 1.0, breadcrumbs: 1.0, paramName: 1.0, errorCode: 2.0},
	QueryTypeParameter: {title: 1.0, breadcrumbs: 1.0, paramName: 1.5, errorCode: 1.0},
	QueryTypeProcedure: {title: 1.3, breadcrumbs: 1.0, paramName: 1.0, errorCode: 1.0},
	QueryTypeGeneral:   {title: 1.0, breadcrumbs: 1.0, paramName: 1.0, errorCode: 1.0},
}

// adaptFanout scales the base fan-out sizes for the query type, keeping a
// floor of 1 so a channel is never skipped outright.
func adaptFanout(qt QueryType, kDense, kLexical int) (int, int) {
	scale, ok := fanoutByType[qt]
	if !ok {
		scale = fanoutByType[QueryTypeGeneral]
	}

	d := int(float64(kDense) * scale.dense)
	l := int(float64(kLexical) * scale.lexical)
	if d < 1 {
		d = 1
	}
	if l < 1 {
		l = 1
	}
	return d, l
}

// adaptBoosts scales the base field boosts for the query type.
func adaptBoosts(qt QueryType, base store.Boosts) store.Boosts {
	scale, ok := boostsByType[qt]
	if !ok {
		scale = boostsByType[QueryTypeGeneral]
	}
	return store.Boosts{
		Title:       base.Title * scale.title,
		Breadcrumbs: base.Breadcrumbs * scale.breadcrumbs,
		ParamName:   base.ParamName * scale.paramName,
		ErrorCode:   base.ErrorCode * scale.errorCode,
	}
}
