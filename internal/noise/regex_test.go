package noise

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegexFilterDropsKnownNoiseLines(t *testing.T) {
	f := NewRegexFilter(nil)

	cases := []struct {
		line string
		rule string
	}{
		{"  7  ", "page_number"},
		{"* 0123456789 *", "page_code"},
		{"............................", "dot_leader"},
		{"-----", "punctuation_only"},
		{"© UCLES 2023 0610/21/M/J/23", "boilerplate"},
		{"[Turn over", "turn_over"},
		{"NIGRAM SIHT NI ETIRW TON OD", "mirrored_watermark"},
		{"(cid:3)(cid:17)(cid:9)", "artifact_tokens"},
		{"DC (WW/CGW) 123456", "noise_code"},
	}

	for _, tc := range cases {
		t.Run(tc.rule, func(t *testing.T) {
			out, report := f.Apply("keep this line\n" + tc.line + "\nand this one")
			assert.Equal(t, "keep this line\nand this one", out)
			assert.Equal(t, 1, report.TotalRemoved)
			assert.Equal(t, 1, report.LinesRemoved[tc.rule])
		})
	}
}

func TestRegexFilterFirstMatchWins(t *testing.T) {
	f := NewRegexFilter(nil)

	// A bare number is also punctuation-free boilerplate bait; it
	// must be charged to page_number only.
	_, report := f.Apply("42")
	assert.Equal(t, 1, report.LinesRemoved["page_number"])
	assert.Len(t, report.LinesRemoved, 1)
}

func TestRegexFilterAccountingIsExact(t *testing.T) {
	f := NewRegexFilter(nil)
	text := "Question 1\n12\n[Turn over\n© UCLES 2023\nAnswer below"
	out, report := f.Apply(text)

	total := 0
	for _, n := range report.LinesRemoved {
		total += n
	}
	assert.Equal(t, report.TotalRemoved, total)
	assert.Equal(t, 3, report.TotalRemoved)
	assert.Equal(t, len(strings.Split(text, "\n")), len(strings.Split(out, "\n"))+report.TotalRemoved)
}

func TestRegexFilterChargesDroppedLineChars(t *testing.T) {
	f := NewRegexFilter(nil)

	lines := []string{"Question 1", "12", "[Turn over"}
	out, report := f.ApplyLines(lines, []int{9, 2, 9})

	assert.Equal(t, "Question 1", out)
	assert.Equal(t, 2, report.TotalRemoved)
	assert.Equal(t, 11, report.CharsRemoved)

	// Without counts only the line totals are charged.
	_, report = f.ApplyLines(lines, nil)
	assert.Equal(t, 2, report.TotalRemoved)
	assert.Zero(t, report.CharsRemoved)
}

func TestRegexFilterInlineCleanup(t *testing.T) {
	f := NewRegexFilter(nil)

	out, report := f.Apply("mass = 12(cid:3) kg")
	assert.Equal(t, "mass = 12 kg", out)
	assert.Zero(t, report.TotalRemoved)

	out, _ = f.Apply("state two features ............ of the cell")
	assert.Equal(t, "state two features ... of the cell", out)

	out, _ = f.Apply("H^{}_{}O remains")
	assert.Equal(t, "HO remains", out)
}

func TestRegexFilterBlankLineCollapse(t *testing.T) {
	f := NewRegexFilter(nil)
	out, _ := f.Apply("first\n\n\n\nsecond\n\n")
	assert.Equal(t, "first\n\nsecond", out)
}

func TestRegexFilterKeepsQuestionText(t *testing.T) {
	f := NewRegexFilter(nil)
	text := "1 (a) State the function of the cell membrane.\n" +
		"The rate doubles when temperature rises by 10 °C.\n" +
		"Fig. 2.1 shows the apparatus."
	out, report := f.Apply(text)
	assert.Equal(t, text, out)
	assert.Zero(t, report.TotalRemoved)
}

func TestRegexFilterExtraBoilerplate(t *testing.T) {
	f := NewRegexFilter([]string{`(?i)Oxford AQA`})
	out, report := f.Apply("keep\nOxford AQA International 2024\nkeep too")
	assert.Equal(t, "keep\nkeep too", out)
	assert.Equal(t, 1, report.LinesRemoved["boilerplate"])
}

func TestRegexFilterIdempotent(t *testing.T) {
	f := NewRegexFilter(nil)
	text := "Question 1\n12\nsome text ......... more\n\n\nend"
	once, _ := f.Apply(text)
	twice, report := f.Apply(once)
	assert.Equal(t, once, twice)
	assert.Zero(t, report.TotalRemoved)
}

func TestRuleOrderStable(t *testing.T) {
	f := NewRegexFilter(nil)
	require.Equal(t, []string{
		"page_number", "page_code", "boilerplate",
		"mirrored_watermark", "turn_over", "artifact_tokens",
		"dot_leader", "punctuation_only", "noise_code",
	}, f.RuleNames())
}
