package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRectBasics(t *testing.T) {
	r := NewRect(10, 20, 110, 70)
	assert.Equal(t, 100.0, r.Width())
	assert.Equal(t, 50.0, r.Height())
	assert.Equal(t, 5000.0, r.Area())
	assert.False(t, r.IsEmpty())

	// NewRect normalizes swapped corners.
	swapped := NewRect(110, 70, 10, 20)
	assert.Equal(t, r, swapped)
}

func TestRectUnionIntersect(t *testing.T) {
	a := NewRect(0, 0, 10, 10)
	b := NewRect(5, 5, 20, 20)

	u := a.Union(b)
	assert.Equal(t, NewRect(0, 0, 20, 20), u)

	i := a.Intersect(b)
	assert.Equal(t, NewRect(5, 5, 10, 10), i)

	disjoint := NewRect(50, 50, 60, 60)
	assert.True(t, a.Intersect(disjoint).IsEmpty())
	assert.False(t, a.Overlaps(disjoint))
	assert.True(t, a.Overlaps(b))
}

func TestRectContains(t *testing.T) {
	outer := NewRect(0, 0, 100, 100)
	inner := NewRect(10, 10, 90, 90)
	assert.True(t, outer.Contains(inner))
	assert.False(t, inner.Contains(outer))
	assert.True(t, outer.ContainsPoint(50, 50))
	assert.False(t, outer.ContainsPoint(150, 50))
}

func TestRectOverlapRatio(t *testing.T) {
	a := NewRect(0, 0, 10, 10)
	b := NewRect(5, 0, 15, 10)
	// Half of each overlaps; both have the same area.
	assert.InDelta(t, 0.5, a.OverlapRatio(b), 1e-9)

	c := NewRect(0, 0, 2, 2)
	// c sits fully inside a, so the ratio against the smaller is 1.
	assert.InDelta(t, 1.0, a.OverlapRatio(c), 1e-9)
}

func TestRectInsetCollapsesInsteadOfInverting(t *testing.T) {
	r := NewRect(0, 0, 30, 100)
	shrunk := r.Inset(20)
	// 30pt wide minus 2x20pt would invert; width clamps to zero.
	assert.Equal(t, 0.0, shrunk.Width())
	assert.Equal(t, 60.0, shrunk.Height())
	assert.Equal(t, 15.0, shrunk.CenterX())
}

func TestConverterRejectsDegenerateInput(t *testing.T) {
	_, err := NewConverter(0, 300)
	require.ErrorIs(t, err, ErrInvalidGeometry)

	_, err = NewConverter(842, -1)
	require.ErrorIs(t, err, ErrInvalidGeometry)

	c, err := NewConverter(842, 300)
	require.NoError(t, err)

	_, err = c.Convert(Rect{X0: 10, Y0: 10, X1: 10, Y1: 20}, PDFTop, Pixel)
	assert.ErrorIs(t, err, ErrInvalidGeometry)
}

func TestConverterRoundTrip(t *testing.T) {
	c, err := NewConverter(841.89, 300)
	require.NoError(t, err)

	rects := []Rect{
		NewRect(36, 50, 559, 780),
		NewRect(100.25, 200.5, 500.75, 350.125),
		NewRect(0.5, 0.5, 1.5, 841),
	}
	spaces := []Space{Pixel, PDFTop, PDFBottom}

	for _, r := range rects {
		for _, from := range spaces {
			for _, to := range spaces {
				got, err := c.Convert(r, from, to)
				require.NoError(t, err)
				back, err := c.Convert(got, to, from)
				require.NoError(t, err)

				assert.InDelta(t, r.X0, back.X0, 0.01)
				assert.InDelta(t, r.Y0, back.Y0, 0.01)
				assert.InDelta(t, r.X1, back.X1, 0.01)
				assert.InDelta(t, r.Y1, back.Y1, 0.01)
			}
		}
	}
}

func TestConverterPixelScale(t *testing.T) {
	c, err := NewConverter(842, 300)
	require.NoError(t, err)
	assert.InDelta(t, 300.0/72.0, c.Scale(), 1e-12)

	got, err := c.Convert(NewRect(72, 72, 144, 144), PDFTop, Pixel)
	require.NoError(t, err)
	assert.InDelta(t, 300, got.X0, 1e-9)
	assert.InDelta(t, 600, got.X1, 1e-9)
}

func TestConverterVerticalFlip(t *testing.T) {
	c, err := NewConverter(842, 300)
	require.NoError(t, err)

	// A rect near the top of the page in top-origin space sits near
	// the page height in bottom-origin space.
	got, err := c.Convert(NewRect(100, 30, 500, 60), PDFTop, PDFBottom)
	require.NoError(t, err)
	assert.InDelta(t, 842-60, got.Y0, 1e-9)
	assert.InDelta(t, 842-30, got.Y1, 1e-9)
	assert.True(t, got.Y0 < got.Y1)
}

func TestConverterIdentity(t *testing.T) {
	c, err := NewConverter(842, 150)
	require.NoError(t, err)

	r := NewRect(10, 20, 30, 40)
	for _, s := range []Space{Pixel, PDFTop, PDFBottom} {
		got, err := c.Convert(r, s, s)
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
}

func TestSpaceString(t *testing.T) {
	assert.Equal(t, "PIXEL", Pixel.String())
	assert.Equal(t, "PDF_TOP", PDFTop.String())
	assert.Equal(t, "PDF_BOTTOM", PDFBottom.String())
	assert.Equal(t, "UNKNOWN", Space(99).String())
	assert.False(t, math.IsNaN(PointsPerInch))
}
