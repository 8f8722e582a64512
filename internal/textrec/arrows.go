package textrec

import (
	"math"
	"sort"
	"strings"

	"github.com/IgnitionX7/pdf-processor-tool/internal/pdfdoc"
)

// Reaction arrows in exam papers are usually drawn as short horizontal
// vector strokes rather than arrow glyphs. Strokes between 8 and 30
// points long inside the content band (10%..90% of the page height)
// qualify; two near-coincident opposite strokes form an equilibrium
// arrow.
const (
	arrowMinLen = 8.0
	arrowMaxLen = 30.0

	arrowBandTop    = 0.10
	arrowBandBottom = 0.90

	equilibriumYTol   = 5.0
	equilibriumMidTol = 10.0

	arrowFlatTol = 1.5
)

type arrow struct {
	token string
	midX  float64
	y     float64
}

// detectArrows finds arrow strokes on the page and pairs equilibrium
// halves. Returned arrows are sorted by vertical then horizontal
// position.
func detectArrows(page *pdfdoc.PageContent) []arrow {
	if page == nil {
		return nil
	}
	type stroke struct {
		seg  pdfdoc.LineSeg
		used bool
	}
	var strokes []stroke
	bandTop := arrowBandTop * page.Height
	bandBottom := arrowBandBottom * page.Height
	for _, seg := range page.Lines {
		if !seg.IsHorizontal(arrowFlatTol) {
			continue
		}
		length := seg.Length()
		if length < arrowMinLen || length > arrowMaxLen {
			continue
		}
		y := (seg.Y0 + seg.Y1) / 2
		if y < bandTop || y > bandBottom {
			continue
		}
		strokes = append(strokes, stroke{seg: seg})
	}

	var arrows []arrow
	for i := range strokes {
		if strokes[i].used {
			continue
		}
		a := strokes[i].seg
		aMid := (a.X0 + a.X1) / 2
		aY := (a.Y0 + a.Y1) / 2

		paired := false
		for j := i + 1; j < len(strokes); j++ {
			if strokes[j].used {
				continue
			}
			b := strokes[j].seg
			bMid := (b.X0 + b.X1) / 2
			bY := (b.Y0 + b.Y1) / 2
			if math.Abs(aY-bY) < equilibriumYTol &&
				math.Abs(aMid-bMid) < equilibriumMidTol &&
				pointsRight(a) != pointsRight(b) {
				strokes[j].used = true
				arrows = append(arrows, arrow{token: "<=>", midX: (aMid + bMid) / 2, y: (aY + bY) / 2})
				paired = true
				break
			}
		}
		if paired {
			continue
		}
		token := "->"
		if !pointsRight(a) {
			token = "<-"
		}
		arrows = append(arrows, arrow{token: token, midX: aMid, y: aY})
	}

	sort.Slice(arrows, func(i, j int) bool {
		if arrows[i].y != arrows[j].y {
			return arrows[i].y < arrows[j].y
		}
		return arrows[i].midX < arrows[j].midX
	})
	return arrows
}

// pointsRight uses the stroke direction as drawn: the second endpoint
// is the arrowhead end.
func pointsRight(seg pdfdoc.LineSeg) bool {
	return seg.X1 >= seg.X0
}

// arrowsForLine returns the arrows whose vertical position falls in
// this text line's band, in left-to-right order.
func arrowsForLine(arrows []arrow, lineTop, lineSize float64) []arrow {
	if len(arrows) == 0 {
		return nil
	}
	height := lineSize
	if height <= 0 {
		height = 12
	}
	var out []arrow
	for _, a := range arrows {
		if a.y >= lineTop-2 && a.y <= lineTop+height+2 {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].midX < out[j].midX })
	return out
}

var arrowGlyphs = strings.NewReplacer(
	"→", "->",
	"⟶", "->",
	"←", "<-",
	"⟵", "<-",
	"⇌", "<=>",
	"⇋", "<=>",
	"⇄", "<=>",
	"⇒", "=>",
)

// replaceArrowGlyphs maps unicode arrow characters that sometimes
// survive font decoding to their ASCII tokens.
func replaceArrowGlyphs(s string) string {
	return arrowGlyphs.Replace(s)
}
