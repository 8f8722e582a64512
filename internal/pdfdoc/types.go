// Package pdfdoc provides read access to the page-level primitives the
// extraction pipeline consumes: positioned characters with font
// metadata, vector line segments and rectangles, and embedded image
// placements. All geometry is reported in PDF points with a top-left
// origin.
package pdfdoc

import (
	"math"

	"github.com/IgnitionX7/pdf-processor-tool/internal/geometry"
)

// Char is a single positioned glyph run as reported by the text
// extractor. Short runs (often single characters) carry the font name
// and size used to detect subscripts and superscripts downstream.
type Char struct {
	Text     string  `json:"text"`
	X        float64 `json:"x"`      // left edge, points
	Top      float64 `json:"top"`    // top edge, points from page top
	Width    float64 `json:"width"`  // advance width, points
	Height   float64 `json:"height"` // glyph box height, points
	FontName string  `json:"font_name,omitempty"`
	Size     float64 `json:"size"` // font size, points
}

// Bottom returns the bottom edge of the glyph box.
func (c Char) Bottom() float64 { return c.Top + c.Height }

// Rect returns the glyph bounding box.
func (c Char) Rect() geometry.Rect {
	return geometry.Rect{X0: c.X, Y0: c.Top, X1: c.X + c.Width, Y1: c.Top + c.Height}
}

// LineSeg is a straight stroked segment from the page's vector content.
// Curve segments are reported as their endpoint chords.
type LineSeg struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Length returns the euclidean length of the segment.
func (l LineSeg) Length() float64 {
	return math.Hypot(l.X1-l.X0, l.Y1-l.Y0)
}

// IsHorizontal reports whether the segment is flat within tol points.
func (l LineSeg) IsHorizontal(tol float64) bool {
	dy := l.Y1 - l.Y0
	if dy < 0 {
		dy = -dy
	}
	return dy <= tol
}

// Rect returns the segment's bounding box.
func (l LineSeg) Rect() geometry.Rect {
	return geometry.NewRect(l.X0, l.Y0, l.X1, l.Y1)
}

// PageContent holds everything the pipeline needs from one page.
type PageContent struct {
	Number int     `json:"number"` // 1-based
	Width  float64 `json:"width"`  // points
	Height float64 `json:"height"` // points

	Chars  []Char          `json:"chars"`
	Lines  []LineSeg       `json:"lines"`
	Rects  []geometry.Rect `json:"rects"`
	Images []geometry.Rect `json:"images"` // embedded image placements

	// VectorScanError notes a content-stream scan failure. The page is
	// still usable for text; figure detection runs on whatever vector
	// content was recovered.
	VectorScanError string `json:"vector_scan_error,omitempty"`
}

// Document is the read-side interface the pipeline works against.
// The concrete implementation wraps ledongthuc/pdf for content and
// pdfcpu for structural validation; tests substitute fixtures.
type Document interface {
	// Path returns the source file path.
	Path() string
	// PageCount returns the number of pages.
	PageCount() int
	// Page loads the content of the 1-based page number.
	Page(n int) (*PageContent, error)
	// Close releases the underlying file handle.
	Close() error
}
