package pipeline

import (
	"strconv"

	"github.com/IgnitionX7/pdf-processor-tool/internal/pdfdoc"
)

// Question numbers in exam papers sit alone in the left margin at the
// start of each question. A word qualifies when it is a bare integer
// inside the margin column and continues the running sequence, which
// keeps stray digits in body text from starting phantom questions.
const questionMarginX = 72.0

type questionMark struct {
	page int
	top  float64
	num  int
}

// attributeQuestions assigns each element the number of the question
// whose start precedes the element's box in reading order.
func (p *Pipeline) attributeQuestions(works []*pageWork) {
	var marks []questionMark
	next := 1
	for _, w := range works {
		if w.page == nil || w.stats.Skipped {
			continue
		}
		// Scan the noise-filtered chars so page codes in the margin
		// bands cannot masquerade as question numbers.
		scratch := &pdfdoc.PageContent{
			Width:  w.page.Width,
			Height: w.page.Height,
			Chars:  w.kept,
		}
		for _, word := range pdfdoc.WordsOf(scratch) {
			if word.BBox.X0 > questionMarginX {
				continue
			}
			n, err := strconv.Atoi(word.Text)
			if err != nil || n != next {
				continue
			}
			marks = append(marks, questionMark{page: w.stats.Page, top: word.BBox.Y0, num: n})
			next = n + 1
		}
	}
	if len(marks) == 0 {
		return
	}

	for _, w := range works {
		for i := range w.elements {
			el := &w.elements[i]
			current := 0
			for _, m := range marks {
				if m.page > el.Page {
					break
				}
				if m.page == el.Page && m.top > el.BBox.Y0 {
					break
				}
				current = m.num
			}
			el.Question = current
		}
	}
}
