// Package textrec rebuilds reading-order text from filtered page
// characters, marking subscripts and superscripts, restoring chemical
// reaction arrows drawn as vector strokes, and emitting both an
// annotated and a plain variant.
package textrec

import (
	"math"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/IgnitionX7/pdf-processor-tool/internal/pdfdoc"
)

// Config tunes script detection and line assembly.
type Config struct {
	// SizeRatio is the size fraction under which a glyph is script
	// material rather than body text.
	SizeRatio float64 `json:"size_ratio"`
	// OffsetTolerance is the minimum baseline shift, in points, for
	// a small glyph to count as sub/superscript.
	OffsetTolerance float64 `json:"offset_tolerance"`
	// SameLineTolerance groups chars whose tops are this close.
	SameLineTolerance float64 `json:"same_line_tolerance"`
	// SmallOffsetFactor lets small glyphs join a line when shifted
	// by up to this fraction of the line size.
	SmallOffsetFactor float64 `json:"small_offset_factor"`
	// WordGapFactor inserts a space when the horizontal gap exceeds
	// this fraction of the dominant size.
	WordGapFactor float64 `json:"word_gap_factor"`
	// ParagraphGap inserts a blank line between distant lines.
	ParagraphGap float64 `json:"paragraph_gap"`
}

// DefaultConfig returns the exam-paper tuning.
func DefaultConfig() Config {
	return Config{
		SizeRatio:         0.80,
		OffsetTolerance:   0.5,
		SameLineTolerance: 3.0,
		SmallOffsetFactor: 0.8,
		WordGapFactor:     0.25,
		ParagraphGap:      15.0,
	}
}

// Result carries both output variants. LineChars holds the number of
// source characters behind each line of Annotated, blank paragraph
// separators counted as zero, so downstream line filters can keep the
// page character accounting exact.
type Result struct {
	Annotated string `json:"annotated"`
	Plain     string `json:"plain"`
	LineChars []int  `json:"-"`
}

// Reconstructor assembles page text.
type Reconstructor struct {
	cfg Config
}

// NewReconstructor returns a reconstructor with the given tuning.
func NewReconstructor(cfg Config) *Reconstructor {
	return &Reconstructor{cfg: cfg}
}

// scriptClass classifies a glyph against its line.
type scriptClass int

const (
	classNormal scriptClass = iota
	classSub
	classSuper
)

type lineBuild struct {
	chars []pdfdoc.Char
	top   float64 // running anchor top
	size  float64 // running anchor size
}

// Reconstruct rebuilds the text of one page from the given characters
// (already noise- and exclusion-filtered). The page is consulted for
// vector arrow strokes and dimensions only.
func (r *Reconstructor) Reconstruct(page *pdfdoc.PageContent, chars []pdfdoc.Char) Result {
	if len(chars) == 0 {
		return Result{}
	}

	lines := r.groupLines(chars)
	arrows := detectArrows(page)

	var annotated, plain []string
	var lineChars []int
	var prevBottom float64
	for i, line := range lines {
		dominantSize, dominantTop := lineDominants(line.chars)

		if i > 0 {
			gap := lineTop(line.chars) - prevBottom
			if gap > r.cfg.ParagraphGap {
				annotated = append(annotated, "")
				plain = append(plain, "")
				lineChars = append(lineChars, 0)
			}
		}
		prevBottom = lineBottom(line.chars)

		lineArrows := arrowsForLine(arrows, dominantTop, dominantSize)
		annotated = append(annotated, r.renderLine(line.chars, dominantSize, dominantTop, lineArrows, true))
		plain = append(plain, r.renderLine(line.chars, dominantSize, dominantTop, lineArrows, false))
		lineChars = append(lineChars, len(line.chars))
	}

	// Notation repair runs per line so the line/char alignment survives.
	for i := range annotated {
		annotated[i] = norm.NFC.String(normalizeNotation(annotated[i]))
	}
	return Result{
		Annotated: strings.Join(annotated, "\n"),
		Plain:     norm.NFC.String(stripMarkup(strings.Join(plain, "\n"))),
		LineChars: lineChars,
	}
}

// groupLines assigns chars to visual lines. Normal-size glyphs bind
// tightly to the line top; small glyphs may ride higher or lower by a
// fraction of the line size (scripts).
func (r *Reconstructor) groupLines(chars []pdfdoc.Char) []lineBuild {
	sorted := make([]pdfdoc.Char, len(chars))
	copy(sorted, chars)
	sort.SliceStable(sorted, func(i, j int) bool {
		if math.Abs(sorted[i].Top-sorted[j].Top) > 0.5 {
			return sorted[i].Top < sorted[j].Top
		}
		return sorted[i].X < sorted[j].X
	})

	var lines []lineBuild
	for _, c := range sorted {
		placed := false
		for li := len(lines) - 1; li >= 0 && li >= len(lines)-2; li-- {
			line := &lines[li]
			offset := math.Abs(c.Top - line.top)
			if offset <= r.cfg.SameLineTolerance {
				line.chars = append(line.chars, c)
				placed = true
				break
			}
			small := c.Size < r.cfg.SizeRatio*line.size
			if small && offset <= r.cfg.SmallOffsetFactor*line.size {
				line.chars = append(line.chars, c)
				placed = true
				break
			}
			// A raised script sorts before its baseline: a body-size
			// glyph near a small-anchored line claims the anchor.
			smallLine := line.size < r.cfg.SizeRatio*c.Size
			if smallLine && offset <= r.cfg.SmallOffsetFactor*c.Size {
				line.chars = append(line.chars, c)
				line.top, line.size = c.Top, c.Size
				placed = true
				break
			}
		}
		if !placed {
			lines = append(lines, lineBuild{chars: []pdfdoc.Char{c}, top: c.Top, size: c.Size})
		}
	}

	for i := range lines {
		sort.SliceStable(lines[i].chars, func(a, b int) bool {
			return lines[i].chars[a].X < lines[i].chars[b].X
		})
	}
	return lines
}

// lineDominants returns the mode font size of the line and the mode
// top among glyphs of that size class. Values are bucketed to 0.1pt
// so float noise does not split the mode.
func lineDominants(chars []pdfdoc.Char) (size, top float64) {
	size = modeValue(chars, func(c pdfdoc.Char) float64 { return c.Size })

	var bodied []pdfdoc.Char
	for _, c := range chars {
		if c.Size >= 0.8*size {
			bodied = append(bodied, c)
		}
	}
	if len(bodied) == 0 {
		bodied = chars
	}
	top = modeValue(bodied, func(c pdfdoc.Char) float64 { return c.Top })
	return size, top
}

func modeValue(chars []pdfdoc.Char, get func(pdfdoc.Char) float64) float64 {
	counts := map[int64]int{}
	best := get(chars[0])
	bestCount := 0
	for _, c := range chars {
		v := get(c)
		key := int64(math.Round(v * 10))
		counts[key]++
		// Ties go to the larger value: body glyphs over scripts.
		if counts[key] > bestCount || (counts[key] == bestCount && v > best) {
			bestCount = counts[key]
			best = v
		}
	}
	return best
}

// classify buckets one glyph against the line dominants.
func (r *Reconstructor) classify(c pdfdoc.Char, dominantSize, dominantTop float64) scriptClass {
	if c.Size >= r.cfg.SizeRatio*dominantSize {
		return classNormal
	}
	switch {
	case c.Top > dominantTop+r.cfg.OffsetTolerance:
		return classSub
	case c.Top < dominantTop-r.cfg.OffsetTolerance:
		return classSuper
	default:
		return classNormal
	}
}

// renderLine emits one line, merging script runs into _{...} / ^{...}
// markup when annotated is set, and splices vector arrows into their
// horizontal slots.
func (r *Reconstructor) renderLine(chars []pdfdoc.Char, dominantSize, dominantTop float64, lineArrows []arrow, annotated bool) string {
	var b strings.Builder
	cur := classNormal
	arrowIdx := 0

	closeRun := func() {
		if annotated && cur != classNormal {
			b.WriteString("}")
		}
		cur = classNormal
	}
	openRun := func(class scriptClass) {
		if !annotated || class == cur {
			cur = class
			return
		}
		closeRun()
		switch class {
		case classSub:
			b.WriteString("_{")
		case classSuper:
			b.WriteString("^{")
		}
		cur = class
	}

	var prev *pdfdoc.Char
	for i := range chars {
		c := chars[i]

		// Arrows that sit before this glyph horizontally go in now.
		for arrowIdx < len(lineArrows) && lineArrows[arrowIdx].midX < c.X {
			closeRun()
			if prev != nil {
				b.WriteString(" ")
			}
			b.WriteString(lineArrows[arrowIdx].token)
			b.WriteString(" ")
			prev = nil
			arrowIdx++
		}

		if prev != nil {
			gap := c.X - (prev.X + prev.Width)
			if gap > r.cfg.WordGapFactor*dominantSize {
				closeRun()
				b.WriteString(" ")
			}
		}

		class := r.classify(c, dominantSize, dominantTop)
		if class != cur {
			closeRun()
			openRun(class)
		}
		b.WriteString(replaceArrowGlyphs(c.Text))
		prev = &chars[i]
	}
	closeRun()

	for arrowIdx < len(lineArrows) {
		b.WriteString(" ")
		b.WriteString(lineArrows[arrowIdx].token)
		arrowIdx++
	}
	return strings.TrimRight(b.String(), " ")
}

func lineTop(chars []pdfdoc.Char) float64 {
	top := chars[0].Top
	for _, c := range chars[1:] {
		if c.Top < top {
			top = c.Top
		}
	}
	return top
}

func lineBottom(chars []pdfdoc.Char) float64 {
	bottom := chars[0].Bottom()
	for _, c := range chars[1:] {
		if c.Bottom() > bottom {
			bottom = c.Bottom()
		}
	}
	return bottom
}

// stripMarkup removes script markup for the plain variant.
func stripMarkup(text string) string {
	out := make([]rune, 0, len(text))
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if (runes[i] == '_' || runes[i] == '^') && i+1 < len(runes) && runes[i+1] == '{' {
			i++ // skip the brace too
			continue
		}
		if runes[i] == '}' {
			continue
		}
		out = append(out, runes[i])
	}
	return string(out)
}
