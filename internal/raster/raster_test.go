package raster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IgnitionX7/pdf-processor-tool/internal/geometry"
	"github.com/IgnitionX7/pdf-processor-tool/internal/pdfdoc"
)

func TestRenderDimensions(t *testing.T) {
	r := NewRenderer(150)
	page := &pdfdoc.PageContent{Number: 1, Width: 595, Height: 842}
	img := r.Render(page)

	// 150 DPI doubles the point size and change.
	assert.Equal(t, 1240, img.Bounds().Dx())
	assert.Equal(t, 1755, img.Bounds().Dy())
}

func TestRenderHorizontalLineLeavesInk(t *testing.T) {
	r := NewRenderer(72) // 1px per point keeps the math direct
	page := &pdfdoc.PageContent{
		Number: 1, Width: 200, Height: 200,
		Lines: []pdfdoc.LineSeg{{X0: 50, Y0: 100, X1: 150, Y1: 100}},
	}
	img := r.Render(page)

	assert.NotZero(t, img.GrayAt(100, 100).Y)
	assert.Zero(t, img.GrayAt(100, 50).Y)
}

func TestRenderRectOutlineKeepsInteriorEmpty(t *testing.T) {
	r := NewRenderer(72)
	page := &pdfdoc.PageContent{
		Number: 1, Width: 200, Height: 200,
		Rects: []geometry.Rect{geometry.NewRect(40, 40, 160, 160)},
	}
	img := r.Render(page)

	assert.NotZero(t, img.GrayAt(100, 40).Y)  // top edge
	assert.NotZero(t, img.GrayAt(40, 100).Y)  // left edge
	assert.Zero(t, img.GrayAt(100, 100).Y)    // interior
}

func TestRenderCharBoxFilled(t *testing.T) {
	r := NewRenderer(72)
	page := &pdfdoc.PageContent{
		Number: 1, Width: 200, Height: 200,
		Chars: []pdfdoc.Char{{Text: "A", X: 20, Top: 20, Width: 10, Height: 12, Size: 12}},
	}
	img := r.Render(page)
	assert.NotZero(t, img.GrayAt(25, 26).Y)
}

func TestCrop(t *testing.T) {
	r := NewRenderer(72)
	page := &pdfdoc.PageContent{
		Number: 1, Width: 100, Height: 100,
		Images: []geometry.Rect{geometry.NewRect(10, 10, 50, 50)},
	}
	img := r.Render(page)

	crop := r.Crop(img, geometry.NewRect(10, 10, 50, 50))
	require.Equal(t, 40, crop.Bounds().Dx())
	require.Equal(t, 40, crop.Bounds().Dy())
	assert.NotZero(t, crop.GrayAt(20, 20).Y)
}
