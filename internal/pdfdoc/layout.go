package pdfdoc

import (
	"math"
	"sort"
	"strings"

	"github.com/IgnitionX7/pdf-processor-tool/internal/geometry"
)

// Word is a whitespace-delimited run of adjacent chars on one visual
// line.
type Word struct {
	Text string
	BBox geometry.Rect
	Size float64 // dominant font size of the member chars
}

// TextLine is a row of words sharing a baseline.
type TextLine struct {
	Text  string
	BBox  geometry.Rect
	Words []Word
}

const (
	// wordLineTolerance is the vertical slack for chars to count as
	// the same visual line when grouping words.
	wordLineTolerance = 2.0
	// lineGroupTolerance is the slack for words joining a text line.
	lineGroupTolerance = 3.0
)

// WordsOf groups a page's chars into words. Chars join the current
// word while they share the line vertically and the horizontal gap
// stays under a quarter of the font size.
func WordsOf(page *PageContent) []Word {
	chars := make([]Char, len(page.Chars))
	copy(chars, page.Chars)
	sort.SliceStable(chars, func(i, j int) bool {
		if math.Abs(chars[i].Top-chars[j].Top) > wordLineTolerance {
			return chars[i].Top < chars[j].Top
		}
		return chars[i].X < chars[j].X
	})

	var out []Word
	var cur strings.Builder
	var box geometry.Rect
	var size float64
	var prev *Char

	flush := func() {
		text := strings.TrimSpace(cur.String())
		if text != "" {
			out = append(out, Word{Text: text, BBox: box, Size: size})
		}
		cur.Reset()
	}

	for i := range chars {
		c := chars[i]
		// A space glyph ends the current word even when the next char
		// lands tightly beside it.
		if strings.TrimSpace(c.Text) == "" {
			flush()
			prev = nil
			continue
		}
		startNew := prev == nil
		if !startNew {
			sameLine := math.Abs(c.Top-prev.Top) <= wordLineTolerance
			gap := c.X - (prev.X + prev.Width)
			maxGap := c.Size * 0.25
			if maxGap <= 0 {
				maxGap = 1.0
			}
			startNew = !sameLine || gap > maxGap || gap < -1.0
		}
		if startNew {
			flush()
			box = c.Rect()
			size = c.Size
		} else {
			box = box.Union(c.Rect())
			if c.Size > size {
				size = c.Size
			}
		}
		cur.WriteString(c.Text)
		prev = &chars[i]
	}
	flush()
	return out
}

// LinesOf groups the page's words into visual lines ordered top to
// bottom, words left to right.
func LinesOf(page *PageContent) []TextLine {
	words := WordsOf(page)
	sort.SliceStable(words, func(i, j int) bool {
		if math.Abs(words[i].BBox.Y0-words[j].BBox.Y0) > lineGroupTolerance {
			return words[i].BBox.Y0 < words[j].BBox.Y0
		}
		return words[i].BBox.X0 < words[j].BBox.X0
	})

	var out []TextLine
	for _, w := range words {
		if n := len(out); n > 0 && math.Abs(w.BBox.Y0-out[n-1].BBox.Y0) <= lineGroupTolerance {
			line := &out[n-1]
			line.Words = append(line.Words, w)
			line.BBox = line.BBox.Union(w.BBox)
			line.Text += " " + w.Text
			continue
		}
		out = append(out, TextLine{Text: w.Text, BBox: w.BBox, Words: []Word{w}})
	}
	return out
}
