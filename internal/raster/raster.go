// Package raster renders a page's structural content onto a grayscale
// image for the visual detection stage. Glyphs are drawn as their
// bounding boxes and strokes as thin quads: detection reasons about
// edges, line grids, and ink clusters, not about glyph shapes, so box
// rendering is sufficient and keeps the renderer dependency-free of
// any native PDF rasterizer.
package raster

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/vector"

	"github.com/IgnitionX7/pdf-processor-tool/internal/geometry"
	"github.com/IgnitionX7/pdf-processor-tool/internal/pdfdoc"
)

const (
	// strokeWidth is the painted width of vector strokes in points.
	strokeWidth = 1.0
	// maxPixels guards against absurd media boxes blowing memory.
	maxPixels = 64 << 20
)

// Renderer rasterizes page content at a fixed DPI.
type Renderer struct {
	dpi float64
}

// NewRenderer returns a renderer for the given DPI.
func NewRenderer(dpi float64) *Renderer {
	if dpi <= 0 {
		dpi = 300
	}
	return &Renderer{dpi: dpi}
}

// DPI returns the configured render density.
func (r *Renderer) DPI() float64 { return r.dpi }

// Scale returns pixels per point.
func (r *Renderer) Scale() float64 { return r.dpi / geometry.PointsPerInch }

// Render draws the page's characters, line segments, rectangles and
// image placements as ink (255) on a black background. Coordinates in
// the returned image are the PIXEL space of the page at the renderer's
// DPI.
func (r *Renderer) Render(page *pdfdoc.PageContent) *image.Gray {
	s := r.Scale()
	w := int(math.Ceil(page.Width * s))
	h := int(math.Ceil(page.Height * s))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if w*h > maxPixels {
		// Degrade to 72 DPI rather than refuse the page.
		s = 1.0
		w = int(math.Ceil(page.Width))
		h = int(math.Ceil(page.Height))
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	ink := image.NewUniform(color.Gray{Y: 255})

	rz := vector.NewRasterizer(w, h)
	for _, c := range page.Chars {
		rect := c.Rect()
		if rect.IsEmpty() {
			continue
		}
		fillRect(rz, rect, s)
	}
	for _, rect := range page.Rects {
		strokeRectOutline(rz, rect, s)
	}
	for _, img := range page.Images {
		fillRect(rz, img, s)
	}
	for _, seg := range page.Lines {
		strokeSegment(rz, seg, s)
	}
	rz.Draw(dst, dst.Bounds(), ink, image.Point{})
	return dst
}

// fillRect adds a filled axis-aligned quad to the rasterizer.
func fillRect(rz *vector.Rasterizer, rect geometry.Rect, s float64) {
	x0, y0 := float32(rect.X0*s), float32(rect.Y0*s)
	x1, y1 := float32(rect.X1*s), float32(rect.Y1*s)
	rz.MoveTo(x0, y0)
	rz.LineTo(x1, y0)
	rz.LineTo(x1, y1)
	rz.LineTo(x0, y1)
	rz.ClosePath()
}

// strokeRectOutline paints the four edges of a rectangle; the interior
// stays empty so the detector sees a frame, not a blob.
func strokeRectOutline(rz *vector.Rasterizer, rect geometry.Rect, s float64) {
	strokeSegment(rz, pdfdoc.LineSeg{X0: rect.X0, Y0: rect.Y0, X1: rect.X1, Y1: rect.Y0}, s)
	strokeSegment(rz, pdfdoc.LineSeg{X0: rect.X1, Y0: rect.Y0, X1: rect.X1, Y1: rect.Y1}, s)
	strokeSegment(rz, pdfdoc.LineSeg{X0: rect.X1, Y0: rect.Y1, X1: rect.X0, Y1: rect.Y1}, s)
	strokeSegment(rz, pdfdoc.LineSeg{X0: rect.X0, Y0: rect.Y1, X1: rect.X0, Y1: rect.Y0}, s)
}

// strokeSegment adds a thin quad along the segment.
func strokeSegment(rz *vector.Rasterizer, seg pdfdoc.LineSeg, s float64) {
	dx := seg.X1 - seg.X0
	dy := seg.Y1 - seg.Y0
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	// Half-width normal, at least one pixel wide after scaling.
	half := strokeWidth / 2
	if half*s < 0.5 {
		half = 0.5 / s
	}
	nx := -dy / length * half
	ny := dx / length * half

	rz.MoveTo(float32((seg.X0+nx)*s), float32((seg.Y0+ny)*s))
	rz.LineTo(float32((seg.X1+nx)*s), float32((seg.Y1+ny)*s))
	rz.LineTo(float32((seg.X1-nx)*s), float32((seg.Y1-ny)*s))
	rz.LineTo(float32((seg.X0-nx)*s), float32((seg.Y0-ny)*s))
	rz.ClosePath()
}

// Crop returns the sub-image of src covered by rect (given in PDF_TOP
// points), scaled to the renderer's DPI. Used to persist per-element
// snapshots.
func (r *Renderer) Crop(src *image.Gray, rect geometry.Rect) *image.Gray {
	s := r.Scale()
	bounds := image.Rect(
		int(math.Floor(rect.X0*s)), int(math.Floor(rect.Y0*s)),
		int(math.Ceil(rect.X1*s)), int(math.Ceil(rect.Y1*s)),
	).Intersect(src.Bounds())
	out := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			out.SetGray(x-bounds.Min.X, y-bounds.Min.Y, src.GrayAt(x, y))
		}
	}
	return out
}
