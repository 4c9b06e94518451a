// Package configs provides the embedded configuration template.
//
// The template is embedded at build time with go:embed so it ships in every
// distribution, source builds included. `manualrag init` writes it into the
// working directory as a commented starting point; internal/config supplies
// the same values as hardcoded defaults when no file exists.
package configs

import _ "embed"

// ConfigTemplate is the annotated example configuration written by
// `manualrag init`. Every key mirrors a default from internal/config.
//
//go:embed manualrag.example.yaml
var ConfigTemplate string
