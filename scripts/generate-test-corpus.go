//go:build ignore

// Generates a synthetic manual-chunk corpus for ingest benchmarking.
// Usage: go run scripts/generate-test-corpus.go -chunks 5000 -output testdata/bench
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

var (
	numChunks = flag.Int("chunks", 5000, "Number of chunks to generate")
	perFile   = flag.Int("per-file", 500, "Chunks per output file")
	outputDir = flag.String("output", "testdata/bench", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var modules = []string{"fatturazione", "magazzino", "contabilita", "anagrafiche", "vendite"}

var contentTypes = []string{"procedure", "parameter", "concept", "faq", "error"}

var titleTemplates = []string{
	"Come impostare %s nel modulo %s",
	"Parametro %s: valori ammessi in %s",
	"Procedura di %s (%s)",
	"Errore durante %s in %s",
	"Gestione di %s nel modulo %s",
}

var topics = []string{
	"aliquota IVA", "nota di credito", "codice cliente", "giacenza articoli",
	"piano dei conti", "fattura elettronica", "listino prezzi", "scadenzario",
	"registrazione contabile", "ordine di vendita",
}

var sentences = []string{
	"Accedere al menu principale e selezionare la voce indicata.",
	"Il valore predefinito viene applicato a tutti i nuovi documenti.",
	"Verificare che il campo sia compilato prima di salvare.",
	"La modifica ha effetto dalla successiva registrazione.",
	"In caso di errore contattare l'amministratore di sistema.",
	"Il parametro accetta solo valori numerici positivi.",
	"La procedura richiede i permessi di supervisore.",
}

type chunk struct {
	ID           string   `json:"id"`
	Content      string   `json:"content"`
	Title        string   `json:"title"`
	Breadcrumbs  []string `json:"breadcrumbs,omitempty"`
	SectionLevel int      `json:"section_level"`
	SectionPath  string   `json:"section_path"`
	ContentType  string   `json:"content_type"`
	Module       string   `json:"module"`
	Version      string   `json:"version"`
	ErrorCode    string   `json:"error_code,omitempty"`
	SourceURL    string   `json:"source_url"`
	SourceFormat string   `json:"source_format"`
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
		os.Exit(1)
	}

	fileIdx := 0
	for start := 0; start < *numChunks; start += *perFile {
		count := *perFile
		if start+count > *numChunks {
			count = *numChunks - start
		}

		chunks := make([]chunk, count)
		for i := range chunks {
			chunks[i] = randomChunk(rng, start+i)
		}

		path := filepath.Join(*outputDir, fmt.Sprintf("corpus-%03d.json", fileIdx))
		data, err := json.MarshalIndent(chunks, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "marshal: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", path, err)
			os.Exit(1)
		}
		fileIdx++
	}

	fmt.Printf("Generated %d chunks in %d files under %s\n", *numChunks, fileIdx, *outputDir)
}

func randomChunk(rng *rand.Rand, n int) chunk {
	module := modules[rng.Intn(len(modules))]
	topic := topics[rng.Intn(len(topics))]
	ctype := contentTypes[rng.Intn(len(contentTypes))]
	section := rng.Intn(20)

	body := ""
	for i := 0; i < 3+rng.Intn(5); i++ {
		body += sentences[rng.Intn(len(sentences))] + " "
	}

	c := chunk{
		ID:           fmt.Sprintf("bench-%06d", n),
		Content:      body,
		Title:        fmt.Sprintf(titleTemplates[rng.Intn(len(titleTemplates))], topic, module),
		Breadcrumbs:  []string{"Manuale", module, topic},
		SectionLevel: 2 + rng.Intn(2),
		SectionPath:  fmt.Sprintf("%s/sezione-%02d", module, section),
		ContentType:  ctype,
		Module:       module,
		Version:      "2024.1",
		SourceURL:    fmt.Sprintf("https://manuali.example.it/%s/sezione-%02d", module, section),
		SourceFormat: "html",
	}
	if ctype == "error" {
		c.ErrorCode = fmt.Sprintf("ERR-%03d", rng.Intn(900)+100)
	}
	return c
}
