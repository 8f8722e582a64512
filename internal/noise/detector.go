// Package noise finds and removes recurring page furniture: headers,
// footers, margin codes, and boilerplate lines that would otherwise
// leak into extracted question text.
package noise

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/IgnitionX7/pdf-processor-tool/internal/geometry"
	"github.com/IgnitionX7/pdf-processor-tool/internal/pdfdoc"
)

// Region names the four page bands the detector watches.
type Region string

const (
	RegionHeader Region = "header"
	RegionFooter Region = "footer"
	RegionLeft   Region = "left"
	RegionRight  Region = "right"
)

// DetectorConfig carries the band thresholds and confirmation rule.
// Thresholds are absolute page coordinates in points: a word is a
// header candidate when its top is above HeaderThreshold, a footer
// candidate when its top is below FooterThreshold, and so on.
type DetectorConfig struct {
	HeaderThreshold float64 `json:"header_threshold"`
	FooterThreshold float64 `json:"footer_threshold"`
	LeftThreshold   float64 `json:"left_threshold"`
	RightThreshold  float64 `json:"right_threshold"`
	MinFrequency    float64 `json:"min_frequency"`
	SampleSize      int     `json:"sample_size"`
}

// DefaultDetectorConfig returns thresholds tuned on A4 exam papers.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		HeaderThreshold: 30,
		FooterThreshold: 780,
		LeftThreshold:   40,
		RightThreshold:  570,
		MinFrequency:    0.5,
		SampleSize:      5,
	}
}

// zoneBuffer pads a confirmed zone beyond the union of its evidence.
const zoneBuffer = 5.0

// Band is a half-open coordinate range along one axis.
type Band struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies inside the band.
func (b Band) Contains(v float64) bool { return v >= b.Min && v <= b.Max }

// Extent returns the band size.
func (b Band) Extent() float64 { return b.Max - b.Min }

// Zones is the immutable detection result handed to the filters.
// A nil band means nothing recurring was confirmed in that region.
type Zones struct {
	Header *Band `json:"header,omitempty"`
	Footer *Band `json:"footer,omitempty"`
	Left   *Band `json:"left,omitempty"`
	Right  *Band `json:"right,omitempty"`

	// Patterns lists the normalized text confirmed per region,
	// sorted, for the detection report.
	Patterns map[Region][]string `json:"patterns,omitempty"`

	// SampledPages records which 1-based pages supported detection.
	SampledPages []int `json:"sampled_pages,omitempty"`
}

// IsEmpty reports whether no zone was confirmed.
func (z *Zones) IsEmpty() bool {
	return z == nil || (z.Header == nil && z.Footer == nil && z.Left == nil && z.Right == nil)
}

// Detector confirms recurring noise zones over a page sample.
type Detector struct {
	cfg DetectorConfig
}

// NewDetector returns a detector with the given configuration.
func NewDetector(cfg DetectorConfig) *Detector {
	return &Detector{cfg: cfg}
}

// SampleIndices picks the 0-based pages to inspect: the first two, the
// middle, and the last two, or every page when the document is small.
func SampleIndices(pageCount, sampleSize int) []int {
	if pageCount <= 0 {
		return nil
	}
	if sampleSize <= 0 || pageCount <= sampleSize {
		out := make([]int, pageCount)
		for i := range out {
			out[i] = i
		}
		return out
	}
	seen := map[int]bool{}
	var out []int
	for _, i := range []int{0, 1, pageCount / 2, pageCount - 2, pageCount - 1} {
		if i >= 0 && i < pageCount && !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

// candidate is one normalized word observation inside a band.
type candidate struct {
	pages map[int]bool
	bbox  geometry.Rect
	seen  bool
}

// Detect inspects the sampled pages and returns the confirmed zones.
// The same input always produces the same zones, and raising
// MinFrequency can only remove zones, never add them.
func (d *Detector) Detect(pages []*pdfdoc.PageContent) *Zones {
	zones := &Zones{Patterns: map[Region][]string{}}
	if len(pages) == 0 {
		return zones
	}

	sampled := make([]*pdfdoc.PageContent, 0, d.cfg.SampleSize)
	for _, i := range SampleIndices(len(pages), d.cfg.SampleSize) {
		sampled = append(sampled, pages[i])
	}
	pages = sampled
	for _, p := range pages {
		zones.SampledPages = append(zones.SampledPages, p.Number)
	}

	minOccurrences := int(float64(len(pages)) * d.cfg.MinFrequency)
	if minOccurrences < 2 {
		minOccurrences = 2
	}

	pageW := pages[0].Width
	pageH := pages[0].Height

	type regionSpec struct {
		region Region
		inBand func(w pdfdoc.Word) bool
	}
	specs := []regionSpec{
		{RegionHeader, func(w pdfdoc.Word) bool { return w.BBox.Y0 <= d.cfg.HeaderThreshold }},
		{RegionFooter, func(w pdfdoc.Word) bool { return w.BBox.Y0 >= d.cfg.FooterThreshold }},
		{RegionLeft, func(w pdfdoc.Word) bool { return w.BBox.X0 <= d.cfg.LeftThreshold }},
		{RegionRight, func(w pdfdoc.Word) bool { return w.BBox.X1 >= d.cfg.RightThreshold }},
	}

	for _, spec := range specs {
		counts := map[string]*candidate{}
		for _, page := range pages {
			for _, w := range pdfdoc.WordsOf(page) {
				if !spec.inBand(w) {
					continue
				}
				norm := normalizeNoiseText(w.Text)
				if norm == "" {
					continue
				}
				c := counts[norm]
				if c == nil {
					c = &candidate{pages: map[int]bool{}}
					counts[norm] = c
				}
				if !c.seen {
					c.bbox = w.BBox
					c.seen = true
				} else {
					c.bbox = c.bbox.Union(w.BBox)
				}
				c.pages[page.Number] = true
			}
		}

		var confirmed []string
		var union geometry.Rect
		first := true
		for norm, c := range counts {
			if len(c.pages) < minOccurrences {
				continue
			}
			confirmed = append(confirmed, norm)
			if first {
				union = c.bbox
				first = false
			} else {
				union = union.Union(c.bbox)
			}
		}
		if len(confirmed) == 0 {
			continue
		}
		sort.Strings(confirmed)
		zones.Patterns[spec.region] = confirmed

		// The zone extent follows the evidence, not the threshold.
		switch spec.region {
		case RegionHeader:
			zones.Header = &Band{Min: 0, Max: math.Min(union.Y1+zoneBuffer, pageH)}
		case RegionFooter:
			zones.Footer = &Band{Min: math.Max(union.Y0-zoneBuffer, 0), Max: pageH}
		case RegionLeft:
			zones.Left = &Band{Min: 0, Max: math.Min(union.X1+zoneBuffer, pageW)}
		case RegionRight:
			zones.Right = &Band{Min: math.Max(union.X0-zoneBuffer, 0), Max: pageW}
		}
	}
	return zones
}

// normalizeNoiseText canonicalizes a word so the same header matches
// across pages even when it embeds page-specific digits. Returns ""
// for words too short or too generic to be evidence.
func normalizeNoiseText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len([]rune(text)) < 3 {
		return ""
	}
	if strings.Contains(text, "cid:") {
		return ""
	}
	digitsOnly := true
	hasDigit := false
	for _, r := range text {
		if unicode.IsDigit(r) {
			hasDigit = true
		} else if !unicode.IsSpace(r) {
			digitsOnly = false
		}
	}
	if digitsOnly {
		return ""
	}
	text = strings.ToLower(text)
	if hasDigit {
		// Collapse digit runs so "0610/21" and "0610/22" confirm the
		// same pattern.
		var b strings.Builder
		inRun := false
		for _, r := range text {
			if unicode.IsDigit(r) {
				if !inRun {
					b.WriteString("[NUM]")
					inRun = true
				}
				continue
			}
			inRun = false
			b.WriteRune(r)
		}
		text = b.String()
	}
	return text
}
