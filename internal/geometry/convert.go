package geometry

import (
	"errors"
	"fmt"
)

// Space identifies a coordinate system for page geometry.
type Space int

const (
	// Pixel is a top-left origin raster space scaled by DPI/72.
	Pixel Space = iota
	// PDFTop is a top-left origin space in PDF points.
	PDFTop
	// PDFBottom is the native PDF space: bottom-left origin, points.
	PDFBottom
)

// String returns the space name used in reports and error messages.
func (s Space) String() string {
	switch s {
	case Pixel:
		return "PIXEL"
	case PDFTop:
		return "PDF_TOP"
	case PDFBottom:
		return "PDF_BOTTOM"
	default:
		return "UNKNOWN"
	}
}

// ErrInvalidGeometry is returned when a conversion is asked to operate
// on a degenerate page or rectangle.
var ErrInvalidGeometry = errors.New("invalid geometry")

// PointsPerInch is the PDF unit density.
const PointsPerInch = 72.0

// Converter converts rectangles between the three page coordinate
// spaces. It is stateless; the page height and DPI are fixed at
// construction so a converter is only valid for one page rendering.
type Converter struct {
	pageHeight float64 // points
	dpi        float64
}

// NewConverter returns a converter for a page of the given height in
// points rendered at the given DPI.
func NewConverter(pageHeight, dpi float64) (*Converter, error) {
	if pageHeight <= 0 {
		return nil, fmt.Errorf("%w: page height %.2f", ErrInvalidGeometry, pageHeight)
	}
	if dpi <= 0 {
		return nil, fmt.Errorf("%w: dpi %.2f", ErrInvalidGeometry, dpi)
	}
	return &Converter{pageHeight: pageHeight, dpi: dpi}, nil
}

// Scale returns the pixel-per-point factor for this converter.
func (c *Converter) Scale() float64 { return c.dpi / PointsPerInch }

// Convert maps r from one coordinate space to another. Conversions are
// exact up to floating point: converting there and back reproduces the
// input within 0.01pt. Degenerate rectangles (zero or negative extent)
// are rejected.
func (c *Converter) Convert(r Rect, from, to Space) (Rect, error) {
	if r.Width() <= 0 || r.Height() <= 0 {
		return Rect{}, fmt.Errorf("%w: degenerate rect %+v", ErrInvalidGeometry, r)
	}
	if from == to {
		return r, nil
	}

	// Normalize to PDFTop, then project to the target space.
	top, err := c.toPDFTop(r, from)
	if err != nil {
		return Rect{}, err
	}
	return c.fromPDFTop(top, to)
}

func (c *Converter) toPDFTop(r Rect, from Space) (Rect, error) {
	switch from {
	case PDFTop:
		return r, nil
	case Pixel:
		s := c.Scale()
		return Rect{X0: r.X0 / s, Y0: r.Y0 / s, X1: r.X1 / s, Y1: r.Y1 / s}, nil
	case PDFBottom:
		// Flip the vertical axis; the lower edge in bottom-origin
		// space becomes the upper edge in top-origin space.
		return Rect{X0: r.X0, Y0: c.pageHeight - r.Y1, X1: r.X1, Y1: c.pageHeight - r.Y0}, nil
	default:
		return Rect{}, fmt.Errorf("%w: unknown source space %d", ErrInvalidGeometry, from)
	}
}

func (c *Converter) fromPDFTop(r Rect, to Space) (Rect, error) {
	switch to {
	case PDFTop:
		return r, nil
	case Pixel:
		s := c.Scale()
		return Rect{X0: r.X0 * s, Y0: r.Y0 * s, X1: r.X1 * s, Y1: r.Y1 * s}, nil
	case PDFBottom:
		return Rect{X0: r.X0, Y0: c.pageHeight - r.Y1, X1: r.X1, Y1: c.pageHeight - r.Y0}, nil
	default:
		return Rect{}, fmt.Errorf("%w: unknown target space %d", ErrInvalidGeometry, to)
	}
}
