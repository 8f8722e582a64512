package extract

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/IgnitionX7/pdf-processor-tool/internal/geometry"
	"github.com/IgnitionX7/pdf-processor-tool/internal/pdfdoc"
)

// CaptionConfig tunes the caption-anchored extractor.
type CaptionConfig struct {
	// FigurePattern and TablePattern match caption markers and must
	// capture the two-part number.
	FigurePattern string `json:"figure_pattern"`
	TablePattern  string `json:"table_pattern"`

	// MaxFigureCaptionLen and MaxTableCaptionLen reject sentences
	// that merely mention a figure ("... as shown in Fig. 2.1 ...").
	MaxFigureCaptionLen int `json:"max_figure_caption_len"`
	MaxTableCaptionLen  int `json:"max_table_caption_len"`

	// MaxGap bounds how far above (figures) or below (tables) the
	// caption the element content may start, in points.
	MaxGap float64 `json:"max_gap"`

	// Margin clamps grown boxes away from the page edge, in points.
	Margin float64 `json:"margin"`

	// Padding extends the grown box past the outermost content.
	Padding float64 `json:"padding"`
}

// DefaultCaptionConfig returns the tuning used for Cambridge-style
// papers.
func DefaultCaptionConfig() CaptionConfig {
	return CaptionConfig{
		FigurePattern:       `(?i)^Fig\.\s*(\d+)\.(\d+)`,
		TablePattern:        `(?i)^Table\s+(\d+)\.(\d+)`,
		MaxFigureCaptionLen: 25,
		MaxTableCaptionLen:  30,
		MaxGap:              150,
		Margin:              36,
		Padding:             10,
	}
}

// instructionVerbs mark sentences that reference an element rather
// than caption it.
var instructionVerbs = []string{
	"shows", "shown", "sketch", "draw", "complete", "calculate",
	"state", "describe", "explain", "using", "use ", "refer",
}

const (
	clusterJoinDX     = 50.0
	clusterJoinDY     = 30.0
	clusterMinHeight  = 20.0
	clusterMinMembers = 10
	fullLineWidthFrac = 0.4
	fullLineMinWords  = 4
	lineSnapGap       = 5.0
)

// CaptionExtractor finds "Fig. n.m" and "Table n.m" captions and grows
// element boxes from them.
type CaptionExtractor struct {
	cfg      CaptionConfig
	figRe    *regexp.Regexp
	tableRe  *regexp.Regexp
	verifier *TableVerifier
}

// NewCaptionExtractor compiles the caption patterns.
func NewCaptionExtractor(cfg CaptionConfig, verifier *TableVerifier) (*CaptionExtractor, error) {
	figRe, err := regexp.Compile(cfg.FigurePattern)
	if err != nil {
		return nil, fmt.Errorf("figure pattern: %w", err)
	}
	tableRe, err := regexp.Compile(cfg.TablePattern)
	if err != nil {
		return nil, fmt.Errorf("table pattern: %w", err)
	}
	return &CaptionExtractor{cfg: cfg, figRe: figRe, tableRe: tableRe, verifier: verifier}, nil
}

// Extract returns the caption-anchored elements of a page. Each
// (page, label) pair yields at most one element.
func (e *CaptionExtractor) Extract(page *pdfdoc.PageContent) []Element {
	lines := pdfdoc.LinesOf(page)
	seen := map[string]bool{}
	var out []Element

	for i, line := range lines {
		text := strings.TrimSpace(line.Text)

		if m := e.figRe.FindStringSubmatch(text); m != nil && e.captionLike(text, e.cfg.MaxFigureCaptionLen) {
			label := fmt.Sprintf("Fig. %s.%s", m[1], m[2])
			if seen[label] {
				continue
			}
			seen[label] = true
			if bbox, ok := e.growFigureBox(page, lines, i); ok {
				el := newElement(KindFigure, SourceCaption, page.Number, bbox)
				el.Label = label
				el.Caption = text
				out = append(out, el)
			}
			continue
		}

		if m := e.tableRe.FindStringSubmatch(text); m != nil && e.captionLike(text, e.cfg.MaxTableCaptionLen) {
			label := fmt.Sprintf("Table %s.%s", m[1], m[2])
			if seen[label] {
				continue
			}
			seen[label] = true
			if bbox, ok := e.growTableBox(page, lines, i); ok {
				el := newElement(KindTable, SourceCaption, page.Number, bbox)
				el.Label = label
				el.Caption = text
				out = append(out, el)
			}
		}
	}
	return out
}

// captionLike rejects caption candidates that are too long or read
// like an instruction sentence.
func (e *CaptionExtractor) captionLike(text string, maxLen int) bool {
	if len([]rune(text)) > maxLen {
		return false
	}
	lower := strings.ToLower(text)
	for _, verb := range instructionVerbs {
		if strings.Contains(lower, verb) {
			return false
		}
	}
	return true
}

// growFigureBox grows a box upward from the caption over image
// placements and drawing clusters, snapping below the nearest full
// text line.
func (e *CaptionExtractor) growFigureBox(page *pdfdoc.PageContent, lines []pdfdoc.TextLine, captionIdx int) (geometry.Rect, bool) {
	caption := lines[captionIdx].BBox
	searchTop := math.Max(caption.Y0-e.cfg.MaxGap, 0)
	window := geometry.Rect{X0: 0, Y0: searchTop, X1: page.Width, Y1: caption.Y0}

	content, found := e.contentAbove(page, window)
	if !found {
		return geometry.Rect{}, false
	}

	top := content.Y0
	// Snap below the nearest full-width text line at or above the
	// content so running text never enters the figure box, even when
	// the drawn content reaches above that line.
	for j := captionIdx - 1; j >= 0; j-- {
		l := lines[j]
		if l.BBox.Y0 > content.Y1 {
			// Text between the drawing and its caption is part of the
			// figure, not a boundary.
			continue
		}
		if !e.isFullLine(page, l) {
			continue
		}
		if snapped := l.BBox.Y1 + lineSnapGap; snapped > top {
			top = snapped
		}
		break
	}

	bbox := geometry.Rect{
		X0: math.Max(math.Min(content.X0, caption.X0)-e.cfg.Padding, e.cfg.Margin),
		Y0: top,
		X1: math.Min(math.Max(content.X1, caption.X1)+e.cfg.Padding, page.Width-e.cfg.Margin),
		Y1: math.Min(caption.Y1+e.cfg.Padding, page.Height),
	}
	if bbox.IsEmpty() {
		return geometry.Rect{}, false
	}
	return bbox, true
}

// growTableBox grows a box downward from the caption to the ruled
// grid, falling back to drawing clusters.
func (e *CaptionExtractor) growTableBox(page *pdfdoc.PageContent, lines []pdfdoc.TextLine, captionIdx int) (geometry.Rect, bool) {
	caption := lines[captionIdx].BBox
	searchBottom := math.Min(caption.Y1+e.cfg.MaxGap, page.Height)
	window := geometry.Rect{X0: 0, Y0: caption.Y1, X1: page.Width, Y1: searchBottom}

	var content geometry.Rect
	found := false
	if e.verifier != nil {
		if grid, ok := e.verifier.GridRegion(page, window); ok {
			content = grid
			found = true
		}
	}
	if !found {
		content, found = e.contentAbove(page, window)
	}
	if !found {
		return geometry.Rect{}, false
	}

	bbox := geometry.Rect{
		X0: math.Max(content.X0-e.cfg.Padding, e.cfg.Margin),
		Y0: caption.Y0,
		X1: math.Min(content.X1+e.cfg.Padding, page.Width-e.cfg.Margin),
		Y1: math.Min(content.Y1+e.cfg.Padding, page.Height),
	}
	if bbox.IsEmpty() {
		return geometry.Rect{}, false
	}
	return bbox, true
}

// contentAbove collects image placements and qualifying drawing
// clusters inside the window and unions them.
func (e *CaptionExtractor) contentAbove(page *pdfdoc.PageContent, window geometry.Rect) (geometry.Rect, bool) {
	var union geometry.Rect
	found := false
	add := func(r geometry.Rect) {
		if !found {
			union = r
			found = true
		} else {
			union = union.Union(r)
		}
	}

	for _, img := range page.Images {
		if img.Overlaps(window) {
			// The whole placement counts even when it pokes out of
			// the search window; clipping it would truncate figures
			// taller than the gap allowance.
			add(img)
		}
	}
	for _, cl := range clusterDrawings(page, window) {
		if cl.bbox.Height() >= clusterMinHeight || cl.members >= clusterMinMembers {
			add(cl.bbox)
		}
	}
	return union, found
}

// isFullLine reports whether a text line spans the column like running
// prose: wide and with several words.
func (e *CaptionExtractor) isFullLine(page *pdfdoc.PageContent, l pdfdoc.TextLine) bool {
	return l.BBox.Width() > fullLineWidthFrac*page.Width && len(l.Words) >= fullLineMinWords
}

// drawCluster is a proximity group of vector primitives.
type drawCluster struct {
	bbox    geometry.Rect
	members int
}

// clusterDrawings groups the page's vector primitives inside window by
// proximity. Greedy single pass with merge-on-overlap keeps this
// linear-ish for typical page complexity.
func clusterDrawings(page *pdfdoc.PageContent, window geometry.Rect) []drawCluster {
	var boxes []geometry.Rect
	for _, seg := range page.Lines {
		r := seg.Rect()
		if r.Overlaps(window) || window.Contains(r) || (r.Width() == 0 && r.Height() == 0 && window.ContainsPoint(r.X0, r.Y0)) {
			boxes = append(boxes, r)
		}
	}
	for _, r := range page.Rects {
		if r.Overlaps(window) {
			boxes = append(boxes, r)
		}
	}
	if len(boxes) == 0 {
		return nil
	}

	var clusters []drawCluster
	for _, b := range boxes {
		merged := false
		for i := range clusters {
			c := &clusters[i]
			if near(c.bbox, b, clusterJoinDX, clusterJoinDY) {
				c.bbox = c.bbox.Union(b)
				c.members++
				merged = true
				break
			}
		}
		if !merged {
			clusters = append(clusters, drawCluster{bbox: b, members: 1})
		}
	}

	// One merge pass joins clusters that grew toward each other.
	for i := 0; i < len(clusters); i++ {
		for j := i + 1; j < len(clusters); {
			if near(clusters[i].bbox, clusters[j].bbox, clusterJoinDX, clusterJoinDY) {
				clusters[i].bbox = clusters[i].bbox.Union(clusters[j].bbox)
				clusters[i].members += clusters[j].members
				clusters = append(clusters[:j], clusters[j+1:]...)
			} else {
				j++
			}
		}
	}
	return clusters
}

// near reports whether two boxes are within dx horizontally and dy
// vertically of each other.
func near(a, b geometry.Rect, dx, dy float64) bool {
	gapX := math.Max(math.Max(a.X0-b.X1, b.X0-a.X1), 0)
	gapY := math.Max(math.Max(a.Y0-b.Y1, b.Y0-a.Y1), 0)
	return gapX < dx && gapY < dy
}
