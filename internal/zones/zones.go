// Package zones turns extracted elements into per-page exclusion
// zones and filters page characters against them. The effective zone
// box is a pure function of the element's kind and source: caption
// boxes are already tight and get caption padding (zero by default),
// oversized visual figure boxes shrink by the visual padding, and
// table boxes pass through unchanged so cell text is always excluded.
package zones

import (
	"github.com/tidwall/rtree"

	"github.com/IgnitionX7/pdf-processor-tool/internal/extract"
	"github.com/IgnitionX7/pdf-processor-tool/internal/geometry"
	"github.com/IgnitionX7/pdf-processor-tool/internal/pdfdoc"
)

// Config carries the padding table.
type Config struct {
	CaptionPadding float64 `json:"caption_padding"`
	VisualPadding  float64 `json:"visual_padding"`
}

// DefaultConfig matches the detection strategies' box biases.
func DefaultConfig() Config {
	return Config{CaptionPadding: 0, VisualPadding: 20}
}

// Zone is one exclusion region on a page.
type Zone struct {
	ElementID string        `json:"element_id"`
	Kind      extract.Kind  `json:"kind"`
	Source    extract.Source `json:"source"`
	BBox      geometry.Rect `json:"bbox"` // effective, clamped to page
}

// PageZones indexes a page's zones for character filtering.
type PageZones struct {
	zones []Zone
	tr    rtree.RTreeG[int]
}

// Builder derives effective zones from elements.
type Builder struct {
	cfg Config
}

// NewBuilder returns a builder with the given padding table.
func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg}
}

// EffectiveBBox applies the padding rule for one element. Padding is
// applied here, at use time; the element's stored box stays raw.
func (b *Builder) EffectiveBBox(el extract.Element, pageW, pageH float64) geometry.Rect {
	box := el.BBox
	switch {
	case el.Kind == extract.KindTable:
		// Tables keep the raw box regardless of source.
	case el.Source == extract.SourceCaption:
		box = box.Inset(b.cfg.CaptionPadding)
	default:
		// Visual and glyph-cluster figures are deliberately
		// oversized; shrink them back.
		box = box.Inset(b.cfg.VisualPadding)
	}
	return box.ClampTo(geometry.Rect{X0: 0, Y0: 0, X1: pageW, Y1: pageH})
}

// Build indexes the elements of one page.
func (b *Builder) Build(els []extract.Element, pageW, pageH float64) *PageZones {
	pz := &PageZones{}
	for _, el := range els {
		box := b.EffectiveBBox(el, pageW, pageH)
		if box.IsEmpty() {
			continue
		}
		pz.zones = append(pz.zones, Zone{
			ElementID: el.ID,
			Kind:      el.Kind,
			Source:    el.Source,
			BBox:      box,
		})
	}
	for i, z := range pz.zones {
		pz.tr.Insert(
			[2]float64{z.BBox.X0, z.BBox.Y0},
			[2]float64{z.BBox.X1, z.BBox.Y1},
			i,
		)
	}
	return pz
}

// Zones returns the effective zones in element order.
func (p *PageZones) Zones() []Zone {
	return p.zones
}

// Covers reports whether the rect overlaps any zone, and which.
func (p *PageZones) Covers(r geometry.Rect) (Zone, bool) {
	var hit Zone
	found := false
	p.tr.Search(
		[2]float64{r.X0, r.Y0},
		[2]float64{r.X1, r.Y1},
		func(_, _ [2]float64, i int) bool {
			if p.zones[i].BBox.Overlaps(r) {
				hit = p.zones[i]
				found = true
				return false
			}
			return true
		},
	)
	return hit, found
}

// FilterChars drops characters overlapping any zone. Every dropped
// character is charged to exactly one zone (the first hit), so the
// per-zone counts sum to the removed total.
func (p *PageZones) FilterChars(chars []pdfdoc.Char) (kept []pdfdoc.Char, removed int, byZone map[string]int) {
	byZone = map[string]int{}
	if len(p.zones) == 0 {
		return chars, 0, byZone
	}
	kept = make([]pdfdoc.Char, 0, len(chars))
	for _, c := range chars {
		if z, ok := p.Covers(c.Rect()); ok {
			removed++
			byZone[z.ElementID]++
			continue
		}
		kept = append(kept, c)
	}
	return kept, removed, byZone
}
