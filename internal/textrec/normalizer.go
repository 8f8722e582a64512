package textrec

import "regexp"

// Exam chemistry notation often decodes with the nuclide mass and
// charge numbers split into interleaved script runs. normalizeNotation
// repairs those and wraps element symbols in \mathrm so downstream
// renderers keep them upright.

var (
	// ^{3}_{1}^{5}_{7}Cl -> ^{35}_{17}Cl
	splitNuclide = regexp.MustCompile(`\^\{(\d+)\}_\{(\d+)\}\^\{(\d+)\}_\{(\d+)\}\s*([A-Z][a-z]?)`)

	// ^{35}_{17}Cl -> ^{35}_{17}\mathrm{Cl}
	bareNuclide = regexp.MustCompile(`(\^\{\d+\}_\{\d+\})\s*([A-Z][a-z]?)\b`)
)

func normalizeNotation(text string) string {
	text = splitNuclide.ReplaceAllString(text, "^{$1$3}_{$2$4}$5")
	text = bareNuclide.ReplaceAllString(text, `$1\mathrm{$2}`)
	return text
}
