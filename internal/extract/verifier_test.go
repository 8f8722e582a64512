package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IgnitionX7/pdf-processor-tool/internal/geometry"
	"github.com/IgnitionX7/pdf-processor-tool/internal/pdfdoc"
)

// gridPage builds a page with a ruled grid spanning the given box with
// the given number of horizontal and vertical rules.
func gridPage(box geometry.Rect, hRules, vRules int) *pdfdoc.PageContent {
	page := &pdfdoc.PageContent{Number: 1, Width: 595, Height: 842}
	for i := 0; i < hRules; i++ {
		y := box.Y0 + box.Height()*float64(i)/float64(hRules-1)
		page.Lines = append(page.Lines, pdfdoc.LineSeg{X0: box.X0, Y0: y, X1: box.X1, Y1: y})
	}
	for i := 0; i < vRules; i++ {
		x := box.X0 + box.Width()*float64(i)/float64(vRules-1)
		page.Lines = append(page.Lines, pdfdoc.LineSeg{X0: x, Y0: box.Y0, X1: x, Y1: box.Y1})
	}
	return page
}

func TestVerifierAcceptsRegularGrid(t *testing.T) {
	// An uncaptioned grid with three row dividers and two column
	// dividers qualifies, and its region is the raw rule extent.
	box := geometry.NewRect(100, 200, 500, 350)
	page := gridPage(box, 3, 2)

	v := NewTableVerifier(DefaultVerifierConfig())
	grids := v.DetectGrids(page)
	require.Len(t, grids, 1)

	g := grids[0]
	assert.Equal(t, 3, g.RowDividers)
	assert.Equal(t, 2, g.ColDividers)
	assert.InDelta(t, 100.0, g.BBox.X0, 0.01)
	assert.InDelta(t, 200.0, g.BBox.Y0, 0.01)
	assert.InDelta(t, 500.0, g.BBox.X1, 0.01)
	assert.InDelta(t, 350.0, g.BBox.Y1, 0.01)
}

func TestVerifierRejectsSparseRuling(t *testing.T) {
	// A single underline plus one side rule is not a table.
	page := &pdfdoc.PageContent{Number: 1, Width: 595, Height: 842}
	page.Lines = append(page.Lines,
		pdfdoc.LineSeg{X0: 100, Y0: 300, X1: 500, Y1: 300},
		pdfdoc.LineSeg{X0: 100, Y0: 300, X1: 100, Y1: 400},
	)
	v := NewTableVerifier(DefaultVerifierConfig())
	assert.Empty(t, v.DetectGrids(page))
}

func TestVerifierCellCountFallback(t *testing.T) {
	// One row divider shy of the rule, but enough implied cells.
	cfg := DefaultVerifierConfig()
	cfg.MinRowDividers = 4
	box := geometry.NewRect(100, 200, 500, 350)
	page := gridPage(box, 3, 4) // 2x3 = 6 cells >= 4

	v := NewTableVerifier(cfg)
	assert.Len(t, v.DetectGrids(page), 1)
}

func TestVerifierRectOutlinesCountAsRules(t *testing.T) {
	// A table drawn as one cell rect per cell still verifies.
	page := &pdfdoc.PageContent{Number: 1, Width: 595, Height: 842}
	for row := 0; row < 2; row++ {
		for col := 0; col < 2; col++ {
			page.Rects = append(page.Rects, geometry.NewRect(
				100+float64(col)*150, 200+float64(row)*60,
				250+float64(col)*150, 260+float64(row)*60,
			))
		}
	}
	v := NewTableVerifier(DefaultVerifierConfig())
	grids := v.DetectGrids(page)
	require.Len(t, grids, 1)
	assert.GreaterOrEqual(t, grids[0].RowDividers, 3)
	assert.GreaterOrEqual(t, grids[0].ColDividers, 3)
}

func TestVerifierSeparatesDistantGrids(t *testing.T) {
	page := gridPage(geometry.NewRect(100, 100, 400, 200), 3, 3)
	lower := gridPage(geometry.NewRect(100, 500, 400, 600), 3, 3)
	page.Lines = append(page.Lines, lower.Lines...)

	v := NewTableVerifier(DefaultVerifierConfig())
	grids := v.DetectGrids(page)
	assert.Len(t, grids, 2)
}

func TestVerifyCandidateOverlap(t *testing.T) {
	box := geometry.NewRect(100, 200, 500, 350)
	page := gridPage(box, 3, 3)
	v := NewTableVerifier(DefaultVerifierConfig())

	grid, ok := v.Verify(page, geometry.NewRect(90, 190, 510, 360))
	require.True(t, ok)
	assert.InDelta(t, 100.0, grid.BBox.X0, 0.01)

	_, ok = v.Verify(page, geometry.NewRect(100, 600, 500, 700))
	assert.False(t, ok)
}

func TestGridCells(t *testing.T) {
	assert.Equal(t, 6, Grid{RowDividers: 4, ColDividers: 3}.Cells())
	assert.Equal(t, 0, Grid{RowDividers: 1, ColDividers: 5}.Cells())
}
