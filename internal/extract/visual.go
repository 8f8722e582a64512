package extract

import (
	"context"
	"image"
	"math"

	"github.com/IgnitionX7/pdf-processor-tool/internal/geometry"
	"github.com/IgnitionX7/pdf-processor-tool/internal/pdfdoc"
	"github.com/IgnitionX7/pdf-processor-tool/internal/raster"
	"github.com/IgnitionX7/pdf-processor-tool/internal/vision"
)

// VisualConfig tunes raster-side detection. Pixel thresholds assume
// the configured DPI; defaults are tuned at 300.
type VisualConfig struct {
	DPI float64 `json:"dpi"`

	// Candidate filters.
	MinAreaPx      float64 `json:"min_area_px"`
	MinAreaRatio   float64 `json:"min_area_ratio"`
	MaxAreaRatio   float64 `json:"max_area_ratio"`
	MinAspect      float64 `json:"min_aspect"`
	MaxAspect      float64 `json:"max_aspect"`
	MinEdgeDensity float64 `json:"min_edge_density"`

	// Edge extraction.
	EdgeThreshold int `json:"edge_threshold"`
	DilateKernel  int `json:"dilate_kernel"`

	// Region merging.
	MergeGapXPx float64 `json:"merge_gap_x_px"`
	MergeGapYPx float64 `json:"merge_gap_y_px"`
	RowBandFrac float64 `json:"row_band_frac"`

	// Overlap suppression against already-claimed regions.
	DuplicateOverlap float64 `json:"duplicate_overlap"`

	// Classification.
	LineRunMinPx     int     `json:"line_run_min_px"`
	LineInkThreshold int     `json:"line_ink_threshold"`
	WideAspect       float64 `json:"wide_aspect"`
	WideInkThreshold int     `json:"wide_ink_threshold"`
	LabelExpansion   float64 `json:"label_expansion"` // points
}

// DefaultVisualConfig returns the 300 DPI tuning.
func DefaultVisualConfig() VisualConfig {
	return VisualConfig{
		DPI:              300,
		MinAreaPx:        5000,
		MinAreaRatio:     0.01,
		MaxAreaRatio:     0.70,
		MinAspect:        0.2,
		MaxAspect:        5.0,
		MinEdgeDensity:   0.01,
		EdgeThreshold:    100,
		DilateKernel:     20,
		MergeGapXPx:      200,
		MergeGapYPx:      100,
		RowBandFrac:      0.08,
		DuplicateOverlap: 0.5,
		LineRunMinPx:     60,
		LineInkThreshold: 1000,
		WideAspect:       3.5,
		WideInkThreshold: 2000,
		LabelExpansion:   20,
	}
}

// VisualDetector finds uncaptioned figures and tables by rasterizing
// the page and segmenting its ink.
type VisualDetector struct {
	cfg      VisualConfig
	renderer *raster.Renderer
	verifier *TableVerifier
}

// NewVisualDetector wires the renderer and grid verifier.
func NewVisualDetector(cfg VisualConfig, verifier *TableVerifier) *VisualDetector {
	return &VisualDetector{
		cfg:      cfg,
		renderer: raster.NewRenderer(cfg.DPI),
		verifier: verifier,
	}
}

// Detect returns visually detected elements, skipping regions already
// claimed by the caption extractor. The context is checked between
// stages so a page timeout aborts promptly.
func (d *VisualDetector) Detect(ctx context.Context, page *pdfdoc.PageContent, claimed []geometry.Rect) ([]Element, error) {
	conv, err := geometry.NewConverter(page.Height, d.cfg.DPI)
	if err != nil {
		return nil, err
	}

	var out []Element

	// Vector grid pass first: ruled tables verify directly and keep
	// their raw grid box.
	taken := append([]geometry.Rect(nil), claimed...)
	for _, grid := range d.verifier.DetectGrids(page) {
		if isDuplicate(grid.BBox, taken, d.cfg.DuplicateOverlap) {
			continue
		}
		el := newElement(KindTable, SourceVisual, page.Number, grid.BBox)
		out = append(out, el)
		taken = append(taken, grid.BBox)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img := d.renderer.Render(page)
	edges := vision.EdgeMap(img, d.cfg.EdgeThreshold)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dilated := vision.Dilate(edges, d.cfg.DilateKernel, d.cfg.DilateKernel)
	boxes := vision.Components(dilated)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pageArea := float64(img.Bounds().Dx() * img.Bounds().Dy())
	candidates := d.filterCandidates(boxes, pageArea, edges)
	candidates = d.mergeNearby(candidates, float64(img.Bounds().Dy()))

	for _, box := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pdfBox, err := conv.Convert(geometry.NewRect(
			float64(box.Min.X), float64(box.Min.Y),
			float64(box.Max.X), float64(box.Max.Y),
		), geometry.Pixel, geometry.PDFTop)
		if err != nil {
			continue
		}

		if isDuplicate(pdfBox, taken, d.cfg.DuplicateOverlap) {
			continue
		}
		if isTextRegion(page, pdfBox) {
			continue
		}

		kind := d.classify(img, box, pdfBox)
		if kind == KindTable {
			// Tables must survive grid verification; an unruled
			// "table" is artwork.
			if grid, ok := d.verifier.Verify(page, pdfBox); ok {
				pdfBox = grid.BBox
			} else {
				kind = KindFigure
			}
		}

		if kind == KindFigure {
			// Oversize figures so stray axis labels stay inside; the
			// exclusion builder shrinks visual boxes back.
			pdfBox = pdfBox.Expand(d.cfg.LabelExpansion).
				ClampTo(geometry.Rect{X0: 0, Y0: 0, X1: page.Width, Y1: page.Height})
		}

		el := newElement(kind, SourceVisual, page.Number, pdfBox)
		out = append(out, el)
		taken = append(taken, pdfBox)
	}
	return out, nil
}

// filterCandidates applies the area, aspect, and edge-density gates.
func (d *VisualDetector) filterCandidates(boxes []image.Rectangle, pageArea float64, edges *image.Gray) []image.Rectangle {
	var out []image.Rectangle
	for _, b := range boxes {
		area := float64(b.Dx() * b.Dy())
		if area < d.cfg.MinAreaPx {
			continue
		}
		ratio := area / pageArea
		if ratio < d.cfg.MinAreaRatio || ratio > d.cfg.MaxAreaRatio {
			continue
		}
		aspect := float64(b.Dx()) / float64(b.Dy())
		if aspect < d.cfg.MinAspect || aspect > d.cfg.MaxAspect {
			continue
		}
		if vision.Density(edges, b) < d.cfg.MinEdgeDensity {
			continue
		}
		out = append(out, b)
	}
	return out
}

// mergeNearby joins candidate boxes that belong to one diagram:
// close horizontally and vertically, with centers in the same row
// band.
func (d *VisualDetector) mergeNearby(boxes []image.Rectangle, pageHeightPx float64) []image.Rectangle {
	rowBand := d.cfg.RowBandFrac * pageHeightPx
	merged := true
	for merged {
		merged = false
		for i := 0; i < len(boxes); i++ {
			for j := i + 1; j < len(boxes); j++ {
				if !d.shouldMerge(boxes[i], boxes[j], rowBand) {
					continue
				}
				boxes[i] = boxes[i].Union(boxes[j])
				boxes = append(boxes[:j], boxes[j+1:]...)
				merged = true
				j--
			}
		}
	}
	return boxes
}

func (d *VisualDetector) shouldMerge(a, b image.Rectangle, rowBand float64) bool {
	gapX := math.Max(float64(max(a.Min.X, b.Min.X)-min(a.Max.X, b.Max.X)), 0)
	gapY := math.Max(float64(max(a.Min.Y, b.Min.Y)-min(a.Max.Y, b.Max.Y)), 0)
	if gapX >= d.cfg.MergeGapXPx || gapY >= d.cfg.MergeGapYPx {
		return false
	}
	centerDY := math.Abs(float64(a.Min.Y+a.Max.Y)/2 - float64(b.Min.Y+b.Max.Y)/2)
	return centerDY <= rowBand || gapY == 0
}

// classify decides table vs figure from straight-run ink profiles.
func (d *VisualDetector) classify(img *image.Gray, box image.Rectangle, pdfBox geometry.Rect) Kind {
	h, v := vision.RunProfile(img, box, d.cfg.LineRunMinPx)
	if h > d.cfg.LineInkThreshold && v > d.cfg.LineInkThreshold {
		return KindTable
	}
	aspect := pdfBox.Width() / math.Max(pdfBox.Height(), 1e-6)
	if aspect > d.cfg.WideAspect && h > d.cfg.WideInkThreshold {
		return KindTable
	}
	return KindFigure
}

// isDuplicate reports whether box overlaps any taken region by more
// than the threshold fraction of the smaller box.
func isDuplicate(box geometry.Rect, taken []geometry.Rect, threshold float64) bool {
	for _, t := range taken {
		if box.OverlapRatio(t) > threshold {
			return true
		}
	}
	return false
}

// isTextRegion rejects candidates that are really blocks of running
// text: few long lines, or one column of long lines.
func isTextRegion(page *pdfdoc.PageContent, box geometry.Rect) bool {
	var lines []pdfdoc.TextLine
	for _, l := range pdfdoc.LinesOf(page) {
		if box.ContainsPoint(l.BBox.CenterX(), l.BBox.CenterY()) {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return false
	}
	total := 0
	for _, l := range lines {
		total += len(l.Text)
	}
	avg := float64(total) / float64(len(lines))
	if len(lines) <= 2 && avg > 50 {
		return true
	}
	return singleColumn(lines) && avg > 40
}

// singleColumn reports whether the lines share one left edge.
func singleColumn(lines []pdfdoc.TextLine) bool {
	if len(lines) < 2 {
		return true
	}
	left := lines[0].BBox.X0
	for _, l := range lines[1:] {
		if math.Abs(l.BBox.X0-left) > 10 {
			return false
		}
	}
	return true
}
