package extract

import (
	"github.com/tidwall/rtree"

	"github.com/IgnitionX7/pdf-processor-tool/internal/geometry"
	"github.com/IgnitionX7/pdf-processor-tool/internal/pdfdoc"
)

// GlyphConfig tunes the clustering fallback that catches line-art
// figures the raster pass misses (unboxed apparatus drawings built
// from many short strokes).
type GlyphConfig struct {
	// JoinDistance is the proximity, in points, at which primitives
	// join a cluster.
	JoinDistance float64 `json:"join_distance"`
	// MinMembers and MinStructural gate cluster acceptance;
	// structural members are strokes and rects as opposed to stray
	// characters.
	MinMembers    int `json:"min_members"`
	MinStructural int `json:"min_structural"`
	// MaxAnswerLineAspect rejects clusters shaped like ruled answer
	// lines: extremely wide and short.
	MaxAnswerLineAspect float64 `json:"max_answer_line_aspect"`
	MinClusterHeight    float64 `json:"min_cluster_height"`
	// DuplicateOverlap matches the visual detector's suppression.
	DuplicateOverlap float64 `json:"duplicate_overlap"`
}

// DefaultGlyphConfig returns the standard fallback tuning.
func DefaultGlyphConfig() GlyphConfig {
	return GlyphConfig{
		JoinDistance:        50,
		MinMembers:          25,
		MinStructural:       15,
		MaxAnswerLineAspect: 20,
		MinClusterHeight:    15,
		DuplicateOverlap:    0.5,
	}
}

// dotLength is the maximum length of a stroke treated as an answer
// dot rather than artwork.
const dotLength = 2.5

// GlyphClusterer groups vector primitives into figure candidates.
type GlyphClusterer struct {
	cfg GlyphConfig
}

// NewGlyphClusterer returns a clusterer with the given tuning.
func NewGlyphClusterer(cfg GlyphConfig) *GlyphClusterer {
	return &GlyphClusterer{cfg: cfg}
}

// primitive is one clusterable item.
type primitive struct {
	bbox       geometry.Rect
	structural bool
}

// Detect returns glyph-cluster figures not already claimed by earlier
// strategies. Neighbor lookups run against an R-tree of primitive
// boxes so dense pages stay tractable.
func (g *GlyphClusterer) Detect(page *pdfdoc.PageContent, claimed []geometry.Rect) []Element {
	prims := g.collectPrimitives(page)
	if len(prims) == 0 {
		return nil
	}

	var tr rtree.RTreeG[int]
	for i, p := range prims {
		tr.Insert(
			[2]float64{p.bbox.X0, p.bbox.Y0},
			[2]float64{p.bbox.X1, p.bbox.Y1},
			i,
		)
	}

	// Union-find over R-tree neighborhoods.
	parent := make([]int, len(prims))
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

	for i, p := range prims {
		search := p.bbox.Expand(g.cfg.JoinDistance)
		tr.Search(
			[2]float64{search.X0, search.Y0},
			[2]float64{search.X1, search.Y1},
			func(_, _ [2]float64, j int) bool {
				if j != i {
					parent[find(i)] = find(j)
				}
				return true
			},
		)
	}

	type cluster struct {
		bbox       geometry.Rect
		members    int
		structural int
	}
	clusters := map[int]*cluster{}
	for i, p := range prims {
		root := find(i)
		c := clusters[root]
		if c == nil {
			clusters[root] = &cluster{bbox: p.bbox, members: 1}
			c = clusters[root]
		} else {
			c.bbox = c.bbox.Union(p.bbox)
			c.members++
		}
		if p.structural {
			c.structural++
		}
	}

	var out []Element
	for _, c := range clusters {
		if c.members < g.cfg.MinMembers || c.structural < g.cfg.MinStructural {
			continue
		}
		if g.looksLikeAnswerLines(c.bbox, page) {
			continue
		}
		if isDuplicate(c.bbox, claimed, g.cfg.DuplicateOverlap) {
			continue
		}
		out = append(out, newElement(KindFigure, SourceGlyph, page.Number, c.bbox))
		claimed = append(claimed, c.bbox)
	}
	return out
}

// collectPrimitives gathers clusterable items: strokes (minus answer
// dots), rect outlines, and characters detached from text lines.
func (g *GlyphClusterer) collectPrimitives(page *pdfdoc.PageContent) []primitive {
	var prims []primitive
	for _, seg := range page.Lines {
		if seg.Length() < dotLength {
			continue
		}
		prims = append(prims, primitive{bbox: seg.Rect(), structural: true})
	}
	for _, r := range page.Rects {
		prims = append(prims, primitive{bbox: r, structural: true})
	}

	// Characters off any multi-word text line are likely figure
	// labels; they help the cluster cover its annotations.
	lines := pdfdoc.LinesOf(page)
	for _, c := range page.Chars {
		if c.Text == " " {
			continue
		}
		inProse := false
		for _, l := range lines {
			if len(l.Words) >= 4 && l.BBox.Overlaps(c.Rect()) {
				inProse = true
				break
			}
		}
		if !inProse {
			prims = append(prims, primitive{bbox: c.Rect()})
		}
	}
	return prims
}

// looksLikeAnswerLines rejects wide, short, stroke-only clusters
// (ruled answer lines and right-margin mark boxes).
func (g *GlyphClusterer) looksLikeAnswerLines(bbox geometry.Rect, page *pdfdoc.PageContent) bool {
	h := bbox.Height()
	if h < g.cfg.MinClusterHeight {
		return true
	}
	if h > 0 && bbox.Width()/h > g.cfg.MaxAnswerLineAspect {
		return true
	}
	// Small boxes hugging the right margin are examiner mark boxes.
	if bbox.X0 > 0.8*page.Width && bbox.Area() < 2000 {
		return true
	}
	return false
}
