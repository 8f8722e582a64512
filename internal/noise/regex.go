package noise

import (
	"regexp"
	"strings"
)

// lineRule decides whether a whole line is noise. Rules run in order
// and the first match wins, so every removed line is attributable to
// exactly one rule name.
type lineRule struct {
	name  string
	match func(line string) bool
}

// RegexReport accounts for the lines a filter pass removed.
// CharsRemoved carries the source-character total behind the dropped
// lines when the caller supplied per-line counts.
type RegexReport struct {
	LinesRemoved map[string]int `json:"lines_removed"`
	TotalRemoved int            `json:"total_removed"`
	CharsRemoved int            `json:"chars_removed"`
}

// RegexFilter removes residual noise lines that survive geometric
// filtering: page numbers printed outside the confirmed bands,
// scanning codes, boilerplate, and mirrored watermark text.
type RegexFilter struct {
	rules  []lineRule
	inline []inlineRule
}

type inlineRule struct {
	re   *regexp.Regexp
	repl string
}

var (
	rePageNumber  = regexp.MustCompile(`^\s*\d+\s*$`)
	rePageCode    = regexp.MustCompile(`^\s*\*\s*\d{6,}\s*\*\s*$`)
	reDotLeader   = regexp.MustCompile(`^[\s.]*\.{6,}[\s.]*$`)
	rePunctOnly   = regexp.MustCompile(`^[^\p{L}\p{N}\s]{5,}$`)
	reBoilerplate = regexp.MustCompile(`(?i)(UCLES|Cambridge International|Cambridge Assessment|\d{4}/\d{2}/[A-Z]/[A-Z]/\d{2})`)
	reTurnOver    = regexp.MustCompile(`(?i)^\s*\[?\s*turn\s+over\s*\]?\s*$`)
	reNoiseCode   = regexp.MustCompile(`^\s*(?:DFD|DC|WW|CGW|SJF|LEG)(?:[\s/()]*(?:DFD|DC|WW|CGW|SJF|LEG|\d+))*[\s()]*$`)
	reArtifact    = regexp.MustCompile(`^\s*(?:\(cid:\d+\)\s*)+$`)

	reInlineCID       = regexp.MustCompile(`\(cid:\d+\)`)
	reInlinePageCode  = regexp.MustCompile(`\^\{\*\d{6,}\*\}`)
	reInlineEmptyMark = regexp.MustCompile(`(\^\{\}|_\{\})`)
	reInlineDots      = regexp.MustCompile(`\.{6,}`)
	reInlineSpaces    = regexp.MustCompile(`[ \t]{2,}`)
)

// mirroredTokens are watermark words printed right-to-left across the
// page gutter ("DO NOT WRITE IN THIS MARGIN" reversed).
var mirroredTokens = map[string]bool{
	"NIGRAM": true, "SIHT": true, "NI": true, "ETIRW": true,
	"TON": true, "OD": true, "KCALB": true, "EGAP": true,
	"DNA": true, "KNALB": true, "EHT": true, "NO": true,
}

// NewRegexFilter returns a filter with the standard exam-paper rules.
// Extra boilerplate patterns from configuration are appended to the
// boilerplate rule.
func NewRegexFilter(extraBoilerplate []string) *RegexFilter {
	var extras []*regexp.Regexp
	for _, p := range extraBoilerplate {
		if re, err := regexp.Compile(p); err == nil {
			extras = append(extras, re)
		}
	}

	f := &RegexFilter{
		inline: []inlineRule{
			{reInlineCID, ""},
			{reInlinePageCode, ""},
			{reInlineEmptyMark, ""},
			{reInlineDots, "..."},
			{reInlineSpaces, " "},
		},
	}
	f.rules = []lineRule{
		{"page_number", rePageNumber.MatchString},
		{"page_code", rePageCode.MatchString},
		{"boilerplate", func(line string) bool {
			if reBoilerplate.MatchString(line) {
				return true
			}
			for _, re := range extras {
				if re.MatchString(line) {
					return true
				}
			}
			return false
		}},
		{"mirrored_watermark", isMirroredWatermark},
		{"turn_over", reTurnOver.MatchString},
		{"artifact_tokens", reArtifact.MatchString},
		{"dot_leader", reDotLeader.MatchString},
		{"punctuation_only", rePunctOnly.MatchString},
		{"noise_code", reNoiseCode.MatchString},
	}
	return f
}

// RuleNames returns the rule order, mostly for reports and tests.
func (f *RegexFilter) RuleNames() []string {
	names := make([]string, len(f.rules))
	for i, r := range f.rules {
		names[i] = r.name
	}
	return names
}

// Apply filters text line by line and returns the cleaned text with a
// per-rule removal count. Runs of blank lines collapse to one.
func (f *RegexFilter) Apply(text string) (string, *RegexReport) {
	return f.ApplyLines(strings.Split(text, "\n"), nil)
}

// ApplyLines filters pre-split lines. When charCounts is non-nil it
// must align with lines; each dropped line's count is charged to the
// report so page character accounting stays exact.
func (f *RegexFilter) ApplyLines(lines []string, charCounts []int) (string, *RegexReport) {
	report := &RegexReport{LinesRemoved: map[string]int{}}
	out := make([]string, 0, len(lines))

	prevBlank := false
	for i, line := range lines {
		if rule := f.matchRule(line); rule != "" {
			report.LinesRemoved[rule]++
			report.TotalRemoved++
			if i < len(charCounts) {
				report.CharsRemoved += charCounts[i]
			}
			continue
		}
		cleaned := f.applyInline(line)
		blank := strings.TrimSpace(cleaned) == ""
		if blank && prevBlank {
			continue
		}
		prevBlank = blank
		out = append(out, cleaned)
	}

	// Trim leading and trailing blank lines left by removals.
	for len(out) > 0 && strings.TrimSpace(out[0]) == "" {
		out = out[1:]
	}
	for len(out) > 0 && strings.TrimSpace(out[len(out)-1]) == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n"), report
}

func (f *RegexFilter) matchRule(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return ""
	}
	for _, rule := range f.rules {
		if rule.match(trimmed) {
			return rule.name
		}
	}
	return ""
}

func (f *RegexFilter) applyInline(line string) string {
	for _, rule := range f.inline {
		line = rule.re.ReplaceAllString(line, rule.repl)
	}
	return strings.TrimRight(line, " \t")
}

// isMirroredWatermark matches lines where the majority of tokens are
// reversed watermark words.
func isMirroredWatermark(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	hits := 0
	for _, tok := range fields {
		if mirroredTokens[strings.ToUpper(tok)] {
			hits++
		}
	}
	return hits*2 > len(fields)
}
