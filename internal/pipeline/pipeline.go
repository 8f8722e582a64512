// Package pipeline orchestrates the per-document extraction flow:
// page loading, noise zone detection, element extraction, exclusion
// zone filtering and text reconstruction, with page-local failure
// tolerance and exact character accounting.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/IgnitionX7/pdf-processor-tool/internal/extract"
	"github.com/IgnitionX7/pdf-processor-tool/internal/geometry"
	"github.com/IgnitionX7/pdf-processor-tool/internal/noise"
	"github.com/IgnitionX7/pdf-processor-tool/internal/pdfdoc"
	"github.com/IgnitionX7/pdf-processor-tool/internal/textrec"
	"github.com/IgnitionX7/pdf-processor-tool/internal/zones"
)

// Config aggregates the stage configurations plus pipeline-level
// switches.
type Config struct {
	DPI           float64       `json:"dpi"`
	SkipFirstPage bool          `json:"skip_first_page"`
	NoiseRemoval  bool          `json:"noise_removal"`
	PageTimeout   time.Duration `json:"page_timeout"`

	// ExtraBoilerplate adds board-specific phrases to the regex
	// filter's boilerplate rule.
	ExtraBoilerplate []string `json:"extra_boilerplate,omitempty"`

	Noise    noise.DetectorConfig   `json:"noise"`
	Caption  extract.CaptionConfig  `json:"caption"`
	Visual   extract.VisualConfig   `json:"visual"`
	Glyph    extract.GlyphConfig    `json:"glyph"`
	Verifier extract.VerifierConfig `json:"verifier"`
	Zones    zones.Config           `json:"zones"`
	Text     textrec.Config         `json:"text"`
}

// DefaultConfig returns the exam-paper defaults for every stage.
func DefaultConfig() Config {
	return Config{
		DPI:          300,
		NoiseRemoval: true,
		PageTimeout:  30 * time.Second,
		Noise:        noise.DefaultDetectorConfig(),
		Caption:      extract.DefaultCaptionConfig(),
		Visual:       extract.DefaultVisualConfig(),
		Glyph:        extract.DefaultGlyphConfig(),
		Verifier:     extract.DefaultVerifierConfig(),
		Zones:        zones.DefaultConfig(),
		Text:         textrec.DefaultConfig(),
	}
}

// Validate rejects configurations the stages cannot run with.
func (c Config) Validate() error {
	if c.DPI <= 0 {
		return fmt.Errorf("dpi must be positive, got %v", c.DPI)
	}
	if c.PageTimeout <= 0 {
		return fmt.Errorf("page timeout must be positive, got %v", c.PageTimeout)
	}
	if c.Noise.SampleSize < 1 {
		return fmt.Errorf("noise sample size must be at least 1, got %d", c.Noise.SampleSize)
	}
	if c.Noise.MinFrequency <= 0 || c.Noise.MinFrequency > 1 {
		return fmt.Errorf("noise min frequency must be in (0,1], got %v", c.Noise.MinFrequency)
	}
	return nil
}

// PageStats accounts for one page. For processed pages CharsBefore
// always equals CharsAfter + NoiseRemoved + ExclusionRemoved +
// RegexRemoved, so every dropped character is attributable to exactly
// one filter stage.
type PageStats struct {
	Page             int    `json:"page"`
	Skipped          bool   `json:"skipped,omitempty"`
	Failed           bool   `json:"failed,omitempty"`
	Error            string `json:"error,omitempty"`
	CharsBefore      int    `json:"chars_before"`
	NoiseRemoved     int    `json:"noise_removed"`
	ExclusionRemoved int    `json:"exclusion_removed"`
	RegexRemoved     int    `json:"regex_removed"`
	CharsAfter       int    `json:"chars_after"`
	Elements         int    `json:"elements"`
}

// Report summarizes one document run for the report artifact.
type Report struct {
	Path  string       `json:"path"`
	Pages int          `json:"pages"`
	State State        `json:"state"`
	Noise *noise.Zones `json:"noise,omitempty"`

	// RegexLines counts regex-dropped lines per rule; the per-page
	// stats carry the character-level accounting.
	RegexLines map[string]int `json:"regex_lines_removed,omitempty"`
	PageStats    []PageStats    `json:"page_stats"`
	ElementCount int            `json:"element_count"`
	DurationMS   int64          `json:"duration_ms"`
}

// Result is the full output for one document.
type Result struct {
	Annotated string            `json:"annotated"`
	Plain     string            `json:"plain"`
	Elements  []extract.Element `json:"elements"`
	Report    Report            `json:"report"`

	// pages are retained for artifact rendering.
	pages []*pdfdoc.PageContent
}

// pageWork carries one page through the stages.
type pageWork struct {
	page      *pdfdoc.PageContent
	stats     PageStats
	kept      []pdfdoc.Char
	elements  []extract.Element
	annotated string
	plain     string
}

// Pipeline wires the stages together.
type Pipeline struct {
	cfg    Config
	logger *log.Logger

	noise   *noise.Detector
	regex   *noise.RegexFilter
	caption *extract.CaptionExtractor
	visual  *extract.VisualDetector
	glyph   *extract.GlyphClusterer
	zones   *zones.Builder
	text    *textrec.Reconstructor
}

// New builds a pipeline, validating the configuration first.
func New(cfg Config, logger *log.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, NewConfigError(err)
	}
	if logger == nil {
		logger = log.Default()
	}
	verifier := extract.NewTableVerifier(cfg.Verifier)
	caption, err := extract.NewCaptionExtractor(cfg.Caption, verifier)
	if err != nil {
		return nil, NewConfigError(err)
	}
	visualCfg := cfg.Visual
	visualCfg.DPI = cfg.DPI
	return &Pipeline{
		cfg:     cfg,
		logger:  logger,
		noise:   noise.NewDetector(cfg.Noise),
		regex:   noise.NewRegexFilter(cfg.ExtraBoilerplate),
		caption: caption,
		visual:  extract.NewVisualDetector(visualCfg, verifier),
		glyph:   extract.NewGlyphClusterer(cfg.Glyph),
		zones:   zones.NewBuilder(cfg.Zones),
		text:    textrec.NewReconstructor(cfg.Text),
	}, nil
}

// Process runs the full pipeline over one document. Page failures are
// reported in the result and skipped; a document with no readable
// pages fails outright.
func (p *Pipeline) Process(ctx context.Context, doc pdfdoc.Document) (*Result, error) {
	start := time.Now()
	state := StateInit

	works, loaded := p.loadPages(ctx, doc)
	if len(loaded) == 0 {
		return nil, NewDocumentError(doc.Path(), errors.New("no readable pages"))
	}

	var nz *noise.Zones
	if p.cfg.NoiseRemoval {
		nz = p.noise.Detect(loaded)
		var err error
		if state, err = advance(state, StateNoiseDetected); err != nil {
			return nil, NewDocumentError(doc.Path(), err)
		}
		if !nz.IsEmpty() {
			p.logger.Printf("noise zones confirmed on %s: pages %v", doc.Path(), nz.SampledPages)
		}
	}

	p.extractElements(ctx, works, nz)
	state, err := advance(state, StateElementsExtracted)
	if err != nil {
		return nil, NewDocumentError(doc.Path(), err)
	}

	p.attributeQuestions(works)

	p.buildZones(works)
	if state, err = advance(state, StateZonesBuilt); err != nil {
		return nil, NewDocumentError(doc.Path(), err)
	}

	regexRemoved := p.reconstructText(works)
	if state, err = advance(state, StateTextExtracted); err != nil {
		return nil, NewDocumentError(doc.Path(), err)
	}

	res := p.assemble(doc, works, nz, regexRemoved, start)
	if cerr := ctx.Err(); cerr != nil {
		// Interrupted: hand back everything completed so far so the
		// caller can persist partial artifacts.
		state, _ = advance(state, StateError)
		res.Report.State = state
		return res, cerr
	}
	if state, err = advance(state, StateDone); err != nil {
		return nil, NewDocumentError(doc.Path(), err)
	}
	res.Report.State = state
	return res, nil
}

// loadPages reads every page, tolerating per-page read failures.
// Cancellation stops reading between pages; the pages already read
// carry on through the pipeline.
func (p *Pipeline) loadPages(ctx context.Context, doc pdfdoc.Document) ([]*pageWork, []*pdfdoc.PageContent) {
	var works []*pageWork
	var loaded []*pdfdoc.PageContent
	for n := 1; n <= doc.PageCount(); n++ {
		w := &pageWork{stats: PageStats{Page: n}}
		if err := ctx.Err(); err != nil {
			w.stats.Failed = true
			w.stats.Error = err.Error()
			works = append(works, w)
			continue
		}
		page, err := doc.Page(n)
		if err != nil {
			perr := NewPageReadError(n, err)
			p.logger.Printf("%s: %v", doc.Path(), perr)
			w.stats.Failed = true
			w.stats.Error = perr.Error()
		} else {
			if page.VectorScanError != "" {
				p.logger.Printf("%s: %s; detection degraded", doc.Path(), page.VectorScanError)
			}
			w.page = page
			w.stats.CharsBefore = len(page.Chars)
			loaded = append(loaded, page)
		}
		works = append(works, w)
	}
	return works, loaded
}

// extractElements runs noise filtering and the three detection
// strategies over every readable page. The visual stage runs under the
// page timeout; on expiry, cancellation, or a visual failure the page
// keeps its caption results only.
func (p *Pipeline) extractElements(ctx context.Context, works []*pageWork, nz *noise.Zones) {
	for _, w := range works {
		if w.page == nil {
			continue
		}
		if p.cfg.SkipFirstPage && w.stats.Page == 1 {
			w.stats.Skipped = true
			w.kept = nil
			w.stats.NoiseRemoved = 0
			w.stats.CharsAfter = 0
			continue
		}

		w.kept, w.stats.NoiseRemoved = noise.FilterChars(w.page.Chars, nz)

		els := p.caption.Extract(w.page)
		claimed := make([]geometry.Rect, 0, len(els))
		for _, el := range els {
			claimed = append(claimed, el.BBox)
		}

		pctx, cancel := context.WithTimeout(ctx, p.cfg.PageTimeout)
		visualEls, err := p.visual.Detect(pctx, w.page, claimed)
		cancel()
		switch {
		case err == nil:
			els = append(els, visualEls...)
			for _, el := range visualEls {
				claimed = append(claimed, el.BBox)
			}
			els = append(els, p.glyph.Detect(w.page, claimed)...)
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			perr := NewDetectionTimeoutError(w.stats.Page)
			p.logger.Printf("%v: falling back to caption detection", perr)
			w.stats.Error = perr.Error()
		case ctx.Err() != nil:
			// Run cancelled: earlier pages keep their full results,
			// this one settles for caption detection.
			w.stats.Error = fmt.Sprintf("page %d: visual detection canceled", w.stats.Page)
		default:
			p.logger.Printf("page %d: visual detection failed: %v; keeping caption results", w.stats.Page, err)
			w.stats.Error = err.Error()
		}

		w.elements = els
		w.stats.Elements = len(els)
	}
}

// buildZones derives exclusion zones per page and filters the
// noise-filtered characters against them.
func (p *Pipeline) buildZones(works []*pageWork) {
	for _, w := range works {
		if w.page == nil || w.stats.Skipped {
			continue
		}
		pz := p.zones.Build(w.elements, w.page.Width, w.page.Height)
		var removed int
		w.kept, removed, _ = pz.FilterChars(w.kept)
		w.stats.ExclusionRemoved = removed
		w.stats.CharsAfter = len(w.kept)
	}
}

// reconstructText rebuilds each page's text and applies the residual
// regex filter, returning the aggregated per-rule removal counts.
func (p *Pipeline) reconstructText(works []*pageWork) map[string]int {
	totals := map[string]int{}
	for _, w := range works {
		if w.page == nil || w.stats.Skipped {
			continue
		}
		out := p.text.Reconstruct(w.page, w.kept)

		var rep *noise.RegexReport
		w.annotated, rep = p.regex.ApplyLines(strings.Split(out.Annotated, "\n"), out.LineChars)
		for rule, n := range rep.LinesRemoved {
			totals[rule] += n
		}
		w.stats.RegexRemoved = rep.CharsRemoved
		w.stats.CharsAfter -= rep.CharsRemoved
		w.plain, _ = p.regex.Apply(out.Plain)
	}
	return totals
}

// assemble stitches the per-page outputs into the document result.
func (p *Pipeline) assemble(doc pdfdoc.Document, works []*pageWork, nz *noise.Zones, regexRemoved map[string]int, start time.Time) *Result {
	res := &Result{
		Report: Report{
			Path:       doc.Path(),
			Pages:      doc.PageCount(),
			Noise:      nz,
			RegexLines: regexRemoved,
		},
	}
	var annotated, plain []string
	for _, w := range works {
		res.Report.PageStats = append(res.Report.PageStats, w.stats)
		if w.page == nil {
			continue
		}
		res.pages = append(res.pages, w.page)
		if w.stats.Skipped {
			continue
		}
		if w.annotated != "" {
			annotated = append(annotated, w.annotated)
		}
		if w.plain != "" {
			plain = append(plain, w.plain)
		}
		res.Elements = append(res.Elements, w.elements...)
	}
	res.Annotated = strings.Join(annotated, "\n\n")
	res.Plain = strings.Join(plain, "\n\n")
	res.Report.ElementCount = len(res.Elements)
	res.Report.DurationMS = time.Since(start).Milliseconds()
	return res
}
