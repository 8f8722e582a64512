package pdfdoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addWord(page *PageContent, text string, x, top float64) {
	for _, r := range text {
		page.Chars = append(page.Chars, Char{
			Text: string(r), X: x, Top: top, Width: 5, Height: 10, Size: 10,
		})
		x += 5
	}
}

func TestWordsOfSplitsOnGaps(t *testing.T) {
	page := &PageContent{Number: 1, Width: 595, Height: 842}
	addWord(page, "Fig.", 100, 300)
	addWord(page, "2.1", 130, 300)

	words := WordsOf(page)
	require.Len(t, words, 2)
	assert.Equal(t, "Fig.", words[0].Text)
	assert.Equal(t, "2.1", words[1].Text)
	assert.InDelta(t, 100.0, words[0].BBox.X0, 1e-9)
}

func TestWordsOfJoinsTightChars(t *testing.T) {
	page := &PageContent{Number: 1, Width: 595, Height: 842}
	addWord(page, "membrane", 60, 400)

	words := WordsOf(page)
	require.Len(t, words, 1)
	assert.Equal(t, "membrane", words[0].Text)
}

func TestWordsOfSplitsOnSpaceGlyph(t *testing.T) {
	// Some producers emit explicit space glyphs with zero gap on
	// either side; the space still ends the word.
	page := &PageContent{Number: 1, Width: 595, Height: 842}
	addWord(page, "Table 1.1", 100, 200)

	words := WordsOf(page)
	require.Len(t, words, 2)
	assert.Equal(t, "Table", words[0].Text)
	assert.Equal(t, "1.1", words[1].Text)

	lines := LinesOf(page)
	require.Len(t, lines, 1)
	assert.Equal(t, "Table 1.1", lines[0].Text)
}

func TestWordsOfSeparatesLines(t *testing.T) {
	page := &PageContent{Number: 1, Width: 595, Height: 842}
	addWord(page, "top", 60, 100)
	addWord(page, "bottom", 60, 130)

	words := WordsOf(page)
	require.Len(t, words, 2)
	assert.Equal(t, "top", words[0].Text)
	assert.Equal(t, "bottom", words[1].Text)
}

func TestLinesOfGroupsWords(t *testing.T) {
	page := &PageContent{Number: 1, Width: 595, Height: 842}
	addWord(page, "Table", 100, 200)
	addWord(page, "1.1", 140, 200)
	addWord(page, "below", 100, 240)

	lines := LinesOf(page)
	require.Len(t, lines, 2)
	assert.Equal(t, "Table 1.1", lines[0].Text)
	require.Len(t, lines[0].Words, 2)
	assert.Equal(t, "below", lines[1].Text)
}
