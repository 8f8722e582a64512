package noise

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IgnitionX7/pdf-processor-tool/internal/pdfdoc"
)

// headerPage builds a page with the given header text at the top and a
// body paragraph below it.
func headerPage(n int, header string) *pdfdoc.PageContent {
	page := &pdfdoc.PageContent{Number: n, Width: 595, Height: 842}
	x := 200.0
	for _, r := range header {
		page.Chars = append(page.Chars, pdfdoc.Char{
			Text: string(r), X: x, Top: 18, Width: 6, Height: 10, Size: 10,
		})
		x += 6
	}
	x = 60.0
	for _, r := range "The diagram shows a cell." {
		page.Chars = append(page.Chars, pdfdoc.Char{
			Text: string(r), X: x, Top: 300, Width: 6, Height: 11, Size: 11,
		})
		x += 6
	}
	return page
}

func TestSampleIndices(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, SampleIndices(3, 5))
	assert.Equal(t, []int{0, 1, 6, 11, 12}, SampleIndices(13, 5))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, SampleIndices(5, 5))
	assert.Nil(t, SampleIndices(0, 5))
}

func TestDetectSamplesLargeDocuments(t *testing.T) {
	// A 20-page paper is judged on the first two, middle, and last two
	// pages only.
	headed := map[int]bool{1: true, 2: true, 11: true, 19: true, 20: true}
	var pages []*pdfdoc.PageContent
	for i := 1; i <= 20; i++ {
		header := fmt.Sprintf("draft watermark %c", 'a'+i)
		if headed[i] {
			header = "0610/21 BIOLOGY"
		}
		pages = append(pages, headerPage(i, header))
	}

	zones := NewDetector(DefaultDetectorConfig()).Detect(pages)

	assert.Equal(t, []int{1, 2, 11, 19, 20}, zones.SampledPages)
	require.NotNil(t, zones.Header)
	assert.Contains(t, zones.Patterns[RegionHeader], "biology")
}

func TestDetectBlindToUnsampledPages(t *testing.T) {
	// A header recurring only outside the sample cannot confirm.
	sampled := map[int]bool{1: true, 2: true, 11: true, 19: true, 20: true}
	var pages []*pdfdoc.PageContent
	for i := 1; i <= 20; i++ {
		header := "CHEMISTRY 0620"
		if sampled[i] {
			header = ""
		}
		pages = append(pages, headerPage(i, header))
	}

	zones := NewDetector(DefaultDetectorConfig()).Detect(pages)
	assert.True(t, zones.IsEmpty())
}

func TestDetectConfirmsRecurringHeader(t *testing.T) {
	var pages []*pdfdoc.PageContent
	for i := 1; i <= 5; i++ {
		pages = append(pages, headerPage(i, "BIOLOGY 0610"))
	}

	d := NewDetector(DefaultDetectorConfig())
	zones := d.Detect(pages)

	require.NotNil(t, zones.Header)
	assert.Nil(t, zones.Footer)
	// Zone extends to the union of the evidence plus buffer, well
	// short of the body text.
	assert.LessOrEqual(t, zones.Header.Max, 40.0)
	assert.Greater(t, zones.Header.Max, 28.0)
	assert.NotEmpty(t, zones.Patterns[RegionHeader])
}

func TestDetectIgnoresNonRecurringText(t *testing.T) {
	var pages []*pdfdoc.PageContent
	for i := 1; i <= 5; i++ {
		pages = append(pages, headerPage(i, fmt.Sprintf("unique header %d text", i*1111)))
	}
	// Different digits normalize to the same pattern, so vary words.
	pages[0] = headerPage(1, "alpha beta")
	pages[1] = headerPage(2, "gamma delta")
	pages[2] = headerPage(3, "epsilon zeta")
	pages[3] = headerPage(4, "eta theta")
	pages[4] = headerPage(5, "iota kappa")

	d := NewDetector(DefaultDetectorConfig())
	zones := d.Detect(pages)
	assert.True(t, zones.IsEmpty())
}

func TestDetectDigitNormalization(t *testing.T) {
	// Page-specific digits inside a shared marker still confirm.
	var pages []*pdfdoc.PageContent
	for i := 1; i <= 5; i++ {
		pages = append(pages, headerPage(i, fmt.Sprintf("0610/2%d/M/J/23", i)))
	}
	d := NewDetector(DefaultDetectorConfig())
	zones := d.Detect(pages)
	require.NotNil(t, zones.Header)
}

func TestDetectMonotoneInMinFrequency(t *testing.T) {
	// Header on 3 of 5 pages: confirmed at 0.5, not at 0.9.
	pages := []*pdfdoc.PageContent{
		headerPage(1, "PHYSICS 0625"),
		headerPage(2, "PHYSICS 0625"),
		headerPage(3, "PHYSICS 0625"),
		headerPage(4, "something else"),
		headerPage(5, "another line"),
	}

	low := DefaultDetectorConfig()
	low.MinFrequency = 0.5
	high := DefaultDetectorConfig()
	high.MinFrequency = 0.9

	lowZones := NewDetector(low).Detect(pages)
	highZones := NewDetector(high).Detect(pages)

	require.NotNil(t, lowZones.Header)
	assert.Nil(t, highZones.Header)
}

func TestDetectDeterministic(t *testing.T) {
	var pages []*pdfdoc.PageContent
	for i := 1; i <= 5; i++ {
		pages = append(pages, headerPage(i, "CHEMISTRY 0620"))
	}
	d := NewDetector(DefaultDetectorConfig())
	a := d.Detect(pages)
	b := d.Detect(pages)
	require.NotNil(t, a.Header)
	require.NotNil(t, b.Header)
	assert.Equal(t, *a.Header, *b.Header)
	assert.Equal(t, a.Patterns, b.Patterns)
}

func TestFilterCharsAccounting(t *testing.T) {
	var pages []*pdfdoc.PageContent
	for i := 1; i <= 5; i++ {
		pages = append(pages, headerPage(i, "BIOLOGY 0610"))
	}
	zones := NewDetector(DefaultDetectorConfig()).Detect(pages)
	require.NotNil(t, zones.Header)

	page := pages[0]
	kept, removed := FilterChars(page.Chars, zones)

	assert.Equal(t, len(page.Chars), len(kept)+removed)
	assert.Positive(t, removed)
	// The header glyphs are gone, the body glyphs survive.
	for _, c := range kept {
		assert.Greater(t, c.Top, zones.Header.Max)
	}
}

func TestFilterCharsNoZones(t *testing.T) {
	page := headerPage(1, "BIOLOGY 0610")
	kept, removed := FilterChars(page.Chars, &Zones{})
	assert.Zero(t, removed)
	assert.Len(t, kept, len(page.Chars))
}

func TestNormalizeNoiseText(t *testing.T) {
	assert.Equal(t, "", normalizeNoiseText("12"))
	assert.Equal(t, "", normalizeNoiseText("4017"))
	assert.Equal(t, "", normalizeNoiseText("(cid:12)"))
	assert.Equal(t, "[NUM]/[NUM]/m/j/[NUM]", normalizeNoiseText("0610/21/M/J/23"))
	assert.Equal(t, "biology", normalizeNoiseText("  Biology "))
}
