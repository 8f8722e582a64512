// Package extract locates figures and tables on exam-paper pages by
// two complementary strategies: caption anchors with geometric box
// growth, and visual detection over a rasterized page with a
// glyph-clustering fallback for uncaptioned artwork.
package extract

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/IgnitionX7/pdf-processor-tool/internal/geometry"
)

// Kind classifies an extracted element.
type Kind string

const (
	KindFigure Kind = "figure"
	KindTable  Kind = "table"
)

// Source records which strategy produced an element. Downstream
// padding depends on it: caption boxes are tight and get none, visual
// boxes are deliberately oversized and get shrunk.
type Source string

const (
	SourceCaption Source = "caption"
	SourceVisual  Source = "visual"
	SourceGlyph   Source = "glyph_clustering"
)

// Element is one detected figure or table. BBox is the raw detected
// region in top-origin points; padding is applied by the exclusion
// zone builder at use time, never stored here.
type Element struct {
	ID       string        `json:"id"`
	Kind     Kind          `json:"kind"`
	Source   Source        `json:"source"`
	Page     int           `json:"page"`
	BBox     geometry.Rect `json:"bbox"`
	Label    string        `json:"label,omitempty"`   // e.g. "Fig. 2.3"
	Caption  string        `json:"caption,omitempty"` // full caption line
	Question int           `json:"question,omitempty"`
}

func newElement(kind Kind, source Source, page int, bbox geometry.Rect) Element {
	return Element{
		ID:     uuid.NewString(),
		Kind:   kind,
		Source: source,
		Page:   page,
		BBox:   bbox,
	}
}

// FileStem returns the artifact base name for the element: the label
// with separators dashed ("Fig. 2.3" becomes "Fig-2-3") or a page and
// kind based name for unlabelled elements.
func (e Element) FileStem() string {
	if e.Label != "" {
		parts := strings.FieldsFunc(e.Label, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(parts) > 0 {
			return strings.Join(parts, "-")
		}
	}
	return fmt.Sprintf("page%d_%s_%s", e.Page, e.Kind, e.ID[:8])
}
