package search

import (
	"regexp"
	"strings"
)

// synonymGroups carries the gestionale-domain vocabulary: the manuals and
// the users rarely agree on a single term for the same concept. Applied
// query-side for the lexical channel only; the dense channel handles
// paraphrase on its own.
var synonymGroups = [][]string{
	{"impostazione", "settaggio", "configurazione"},
	{"parametro", "opzione", "campo"},
	{"procedura", "processo", "guida", "istruzione"},
	{"errore", "codice", "avviso"},
	{"fattura", "fatturazione", "documento"},
	{"cliente", "anagrafica", "soggetto"},
	{"articolo", "prodotto", "merce"},
	{"iva", "imposta", "aliquota"},
	{"contabilita", "contabilità", "coge"},
	{"magazzino", "giacenza", "stock"},
}

var synonymsByTerm = buildSynonymIndex()

func buildSynonymIndex() map[string][]string {
	index := make(map[string][]string)
	for _, group := range synonymGroups {
		for _, term := range group {
			for _, other := range group {
				if other != term {
					index[term] = append(index[term], other)
				}
			}
		}
	}
	return index
}

var expandTokenRegex = regexp.MustCompile(`[\p{L}\p{N}-]+`)

// ExpandQuery appends domain synonyms of recognized query terms so the
// lexical channel matches manuals written with different vocabulary.
// Each synonym is added once; the original query text always comes first.
func ExpandQuery(query string) string {
	tokens := expandTokenRegex.FindAllString(query, -1)
	if len(tokens) == 0 {
		return query
	}

	present := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		present[strings.ToLower(t)] = true
	}

	var extra []string
	for _, t := range tokens {
		for _, syn := range synonymsByTerm[strings.ToLower(t)] {
			if !present[syn] {
				present[syn] = true
				extra = append(extra, syn)
			}
		}
	}

	if len(extra) == 0 {
		return query
	}
	return query + " " + strings.Join(extra, " ")
}
