package extract

import (
	"math"
	"sort"

	"github.com/IgnitionX7/pdf-processor-tool/internal/geometry"
	"github.com/IgnitionX7/pdf-processor-tool/internal/pdfdoc"
)

// VerifierConfig tunes grid verification.
type VerifierConfig struct {
	// MinRowDividers and MinColDividers are the ruling counts a
	// region must show to verify as a table.
	MinRowDividers int `json:"min_row_dividers"`
	MinColDividers int `json:"min_col_dividers"`
	// MinCells verifies regions whose divider product implies at
	// least this many cells even when one axis is short.
	MinCells int `json:"min_cells"`
	// MinOverlap is the overlap ratio between a candidate box and
	// the detected grid for the candidate to count as that grid.
	MinOverlap float64 `json:"min_overlap"`
}

// DefaultVerifierConfig returns the standard grid-regularity rule.
func DefaultVerifierConfig() VerifierConfig {
	return VerifierConfig{
		MinRowDividers: 2,
		MinColDividers: 2,
		MinCells:       4,
		MinOverlap:     0.3,
	}
}

const (
	dividerTolerance = 3.0  // segments within this distance merge into one divider
	dividerMinLength = 30.0 // shorter rules are underlines, not dividers
	flatTolerance    = 2.0  // max rise of a "horizontal" segment
)

// Grid is a verified ruled region.
type Grid struct {
	BBox        geometry.Rect `json:"bbox"`
	RowDividers int           `json:"row_dividers"`
	ColDividers int           `json:"col_dividers"`
}

// Cells returns the implied cell count of the grid.
func (g Grid) Cells() int {
	rows := g.RowDividers - 1
	cols := g.ColDividers - 1
	if rows < 1 || cols < 1 {
		return 0
	}
	return rows * cols
}

// TableVerifier decides whether a region shows enough ruling
// regularity to be a table.
type TableVerifier struct {
	cfg VerifierConfig
}

// NewTableVerifier returns a verifier with the given thresholds.
func NewTableVerifier(cfg VerifierConfig) *TableVerifier {
	return &TableVerifier{cfg: cfg}
}

// qualifies applies the regularity rule to divider counts.
func (v *TableVerifier) qualifies(g Grid) bool {
	if g.RowDividers >= v.cfg.MinRowDividers && g.ColDividers >= v.cfg.MinColDividers {
		return true
	}
	return g.Cells() >= v.cfg.MinCells
}

// DetectGrids finds all ruled grid regions on the page.
func (v *TableVerifier) DetectGrids(page *pdfdoc.PageContent) []Grid {
	h, vert := rulingSegments(page)
	groups := groupRulings(append(h, vert...))

	var out []Grid
	for _, group := range groups {
		grid := measureGrid(group)
		if v.qualifies(grid) {
			out = append(out, grid)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BBox.Y0 < out[j].BBox.Y0 })
	return out
}

// GridRegion returns the bounding box of a verified grid inside the
// window, if any.
func (v *TableVerifier) GridRegion(page *pdfdoc.PageContent, window geometry.Rect) (geometry.Rect, bool) {
	for _, g := range v.DetectGrids(page) {
		if g.BBox.Overlaps(window) {
			return g.BBox, true
		}
	}
	return geometry.Rect{}, false
}

// Verify reports whether candidate overlaps a verified grid strongly
// enough to be that table, returning the grid when it does.
func (v *TableVerifier) Verify(page *pdfdoc.PageContent, candidate geometry.Rect) (Grid, bool) {
	for _, g := range v.DetectGrids(page) {
		if candidate.OverlapRatio(g.BBox) >= v.cfg.MinOverlap {
			return g, true
		}
	}
	return Grid{}, false
}

// rulingSegments splits the page's straight strokes into horizontal
// and vertical rulings, unfolding rectangle outlines into their edges.
func rulingSegments(page *pdfdoc.PageContent) (horizontal, vertical []pdfdoc.LineSeg) {
	consider := func(seg pdfdoc.LineSeg) {
		switch {
		case seg.IsHorizontal(flatTolerance) && seg.Length() >= dividerMinLength:
			horizontal = append(horizontal, seg)
		case math.Abs(seg.X1-seg.X0) <= flatTolerance && seg.Length() >= dividerMinLength:
			vertical = append(vertical, seg)
		}
	}
	for _, seg := range page.Lines {
		consider(seg)
	}
	for _, r := range page.Rects {
		consider(pdfdoc.LineSeg{X0: r.X0, Y0: r.Y0, X1: r.X1, Y1: r.Y0})
		consider(pdfdoc.LineSeg{X0: r.X0, Y0: r.Y1, X1: r.X1, Y1: r.Y1})
		consider(pdfdoc.LineSeg{X0: r.X0, Y0: r.Y0, X1: r.X0, Y1: r.Y1})
		consider(pdfdoc.LineSeg{X0: r.X1, Y0: r.Y0, X1: r.X1, Y1: r.Y1})
	}
	return horizontal, vertical
}

// groupRulings clusters rulings into spatially connected groups so two
// tables on one page verify independently.
func groupRulings(segs []pdfdoc.LineSeg) [][]pdfdoc.LineSeg {
	n := len(segs)
	if n == 0 {
		return nil
	}
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) { parent[find(a)] = find(b) }

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if near(segs[i].Rect(), segs[j].Rect(), dividerTolerance*2, dividerTolerance*2) {
				union(i, j)
			}
		}
	}

	byRoot := map[int][]pdfdoc.LineSeg{}
	for i, seg := range segs {
		root := find(i)
		byRoot[root] = append(byRoot[root], seg)
	}
	out := make([][]pdfdoc.LineSeg, 0, len(byRoot))
	for _, group := range byRoot {
		out = append(out, group)
	}
	return out
}

// measureGrid counts distinct row and column dividers in a ruling
// group. Collinear segments within tolerance merge into one divider.
func measureGrid(segs []pdfdoc.LineSeg) Grid {
	var rows, cols []float64
	bbox := segs[0].Rect()
	for _, seg := range segs {
		bbox = bbox.Union(seg.Rect())
		if seg.IsHorizontal(flatTolerance) {
			rows = mergeCoord(rows, (seg.Y0+seg.Y1)/2)
		} else {
			cols = mergeCoord(cols, (seg.X0+seg.X1)/2)
		}
	}
	return Grid{BBox: bbox, RowDividers: len(rows), ColDividers: len(cols)}
}

func mergeCoord(coords []float64, v float64) []float64 {
	for _, c := range coords {
		if math.Abs(c-v) <= dividerTolerance {
			return coords
		}
	}
	return append(coords, v)
}
