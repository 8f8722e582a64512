// Package geometry provides the shared rectangle type and coordinate
// space conversions used across the extraction pipeline.
package geometry

import "math"

// Rect is an axis-aligned rectangle. X0,Y0 is the corner closest to the
// origin of whatever coordinate space the rectangle lives in, X1,Y1 the
// opposite corner. All values are in the units of that space (points or
// pixels).
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// NewRect returns a normalized rectangle with X0 <= X1 and Y0 <= Y1.
func NewRect(x0, y0, x1, y1 float64) Rect {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Area returns the area of the rectangle, zero for degenerate rects.
func (r Rect) Area() float64 {
	if r.X1 <= r.X0 || r.Y1 <= r.Y0 {
		return 0
	}
	return r.Width() * r.Height()
}

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool { return r.X1 <= r.X0 || r.Y1 <= r.Y0 }

// Union returns the smallest rectangle containing both r and other.
func (r Rect) Union(other Rect) Rect {
	return Rect{
		X0: math.Min(r.X0, other.X0),
		Y0: math.Min(r.Y0, other.Y0),
		X1: math.Max(r.X1, other.X1),
		Y1: math.Max(r.Y1, other.Y1),
	}
}

// Intersect returns the overlapping region of r and other. The result
// is empty when the rectangles do not overlap.
func (r Rect) Intersect(other Rect) Rect {
	out := Rect{
		X0: math.Max(r.X0, other.X0),
		Y0: math.Max(r.Y0, other.Y0),
		X1: math.Min(r.X1, other.X1),
		Y1: math.Min(r.Y1, other.Y1),
	}
	if out.X1 < out.X0 {
		out.X1 = out.X0
	}
	if out.Y1 < out.Y0 {
		out.Y1 = out.Y0
	}
	return out
}

// Overlaps reports whether r and other share any area.
func (r Rect) Overlaps(other Rect) bool {
	return r.X0 < other.X1 && other.X0 < r.X1 && r.Y0 < other.Y1 && other.Y0 < r.Y1
}

// Contains reports whether other lies entirely inside r.
func (r Rect) Contains(other Rect) bool {
	return other.X0 >= r.X0 && other.Y0 >= r.Y0 && other.X1 <= r.X1 && other.Y1 <= r.Y1
}

// ContainsPoint reports whether the point (x, y) lies inside r.
func (r Rect) ContainsPoint(x, y float64) bool {
	return x >= r.X0 && x <= r.X1 && y >= r.Y0 && y <= r.Y1
}

// OverlapRatio returns the intersection area divided by the area of the
// smaller rectangle. Zero when either rectangle is degenerate.
func (r Rect) OverlapRatio(other Rect) float64 {
	inter := r.Intersect(other).Area()
	if inter == 0 {
		return 0
	}
	smaller := math.Min(r.Area(), other.Area())
	if smaller == 0 {
		return 0
	}
	return inter / smaller
}

// Inset shrinks the rectangle by d on every side. Sides that would
// cross collapse to the center, so the result never inverts.
func (r Rect) Inset(d float64) Rect {
	out := Rect{X0: r.X0 + d, Y0: r.Y0 + d, X1: r.X1 - d, Y1: r.Y1 - d}
	if out.X1 < out.X0 {
		mid := (r.X0 + r.X1) / 2
		out.X0, out.X1 = mid, mid
	}
	if out.Y1 < out.Y0 {
		mid := (r.Y0 + r.Y1) / 2
		out.Y0, out.Y1 = mid, mid
	}
	return out
}

// Expand grows the rectangle by d on every side.
func (r Rect) Expand(d float64) Rect {
	return Rect{X0: r.X0 - d, Y0: r.Y0 - d, X1: r.X1 + d, Y1: r.Y1 + d}
}

// ClampTo restricts the rectangle to the given bounds.
func (r Rect) ClampTo(bounds Rect) Rect {
	return r.Intersect(bounds)
}

// CenterX returns the horizontal center of the rectangle.
func (r Rect) CenterX() float64 { return (r.X0 + r.X1) / 2 }

// CenterY returns the vertical center of the rectangle.
func (r Rect) CenterY() float64 { return (r.Y0 + r.Y1) / 2 }
