package pipeline

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IgnitionX7/pdf-processor-tool/internal/extract"
	"github.com/IgnitionX7/pdf-processor-tool/internal/geometry"
	"github.com/IgnitionX7/pdf-processor-tool/internal/pdfdoc"
)

type fakeDoc struct {
	path   string
	pages  []*pdfdoc.PageContent
	fail   map[int]bool
	onPage func(n int)
}

func (d *fakeDoc) Path() string   { return d.path }
func (d *fakeDoc) PageCount() int { return len(d.pages) }
func (d *fakeDoc) Close() error   { return nil }

func (d *fakeDoc) Page(n int) (*pdfdoc.PageContent, error) {
	if d.onPage != nil {
		d.onPage(n)
	}
	if d.fail[n] {
		return nil, errors.New("damaged object stream")
	}
	return d.pages[n-1], nil
}

// addText lays out a string as chars starting at (x, top).
func addText(page *pdfdoc.PageContent, text string, x, top, size float64) {
	w := size * 0.5
	for _, r := range text {
		if r == ' ' {
			x += w
			continue
		}
		page.Chars = append(page.Chars, pdfdoc.Char{
			Text: string(r), X: x, Top: top, Width: w, Height: size, Size: size,
		})
		x += w
	}
}

// examPaper builds a document with a recurring header code on every
// page, body prose, and a captioned figure with a question number on
// page 2.
func examPaper(pageCount int) *fakeDoc {
	doc := &fakeDoc{path: "sample.pdf", fail: map[int]bool{}}
	for n := 1; n <= pageCount; n++ {
		page := &pdfdoc.PageContent{Number: n, Width: 595, Height: 842}
		addText(page, "0610/21", 270, 18, 8)
		addText(page, "The cell membrane regulates movement of molecules", 60, 500, 11)
		if n == 2 {
			addText(page, "1", 50, 100, 11)
			page.Images = append(page.Images, geometry.NewRect(100, 200, 400, 380))
			addText(page, "Fig. 1.1", 220, 390, 10)
		}
		doc.pages = append(doc.pages, page)
	}
	return doc
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DPI = 72
	return cfg
}

func newTestPipeline(t *testing.T, cfg Config) *Pipeline {
	t.Helper()
	p, err := New(cfg, log.New(os.Stderr, "", 0))
	require.NoError(t, err)
	return p
}

func TestProcessEndToEnd(t *testing.T) {
	p := newTestPipeline(t, testConfig())
	res, err := p.Process(context.Background(), examPaper(6))
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.Report.State)
	require.Len(t, res.Report.PageStats, 6)

	for _, ps := range res.Report.PageStats {
		assert.Equal(t, ps.CharsBefore, ps.CharsAfter+ps.NoiseRemoved+ps.ExclusionRemoved+ps.RegexRemoved,
			"accounting must balance on page %d", ps.Page)
		assert.Positive(t, ps.NoiseRemoved, "header chars removed on page %d", ps.Page)
	}

	assert.Contains(t, res.Annotated, "cell membrane")
	assert.NotContains(t, res.Annotated, "0610/21")

	require.Len(t, res.Elements, 1)
	el := res.Elements[0]
	assert.Equal(t, extract.KindFigure, el.Kind)
	assert.Equal(t, extract.SourceCaption, el.Source)
	assert.Equal(t, "Fig. 1.1", el.Label)
	assert.Equal(t, 2, el.Page)
	assert.Equal(t, 1, el.Question)
}

func TestProcessSkipFirstPage(t *testing.T) {
	cfg := testConfig()
	cfg.SkipFirstPage = true
	p := newTestPipeline(t, cfg)

	res, err := p.Process(context.Background(), examPaper(4))
	require.NoError(t, err)

	first := res.Report.PageStats[0]
	assert.True(t, first.Skipped)
	assert.Zero(t, first.CharsAfter)
	assert.Zero(t, first.Elements)
	// Later pages still contribute.
	assert.Contains(t, res.Annotated, "cell membrane")
}

func TestProcessWithoutNoiseRemoval(t *testing.T) {
	cfg := testConfig()
	cfg.NoiseRemoval = false
	p := newTestPipeline(t, cfg)

	res, err := p.Process(context.Background(), examPaper(4))
	require.NoError(t, err)

	for _, ps := range res.Report.PageStats {
		assert.Zero(t, ps.NoiseRemoved)
	}
	assert.Nil(t, res.Report.Noise)
	assert.Contains(t, res.Annotated, "0610/21")
}

func TestProcessToleratesPageReadFailure(t *testing.T) {
	doc := examPaper(5)
	doc.fail[3] = true
	p := newTestPipeline(t, testConfig())

	res, err := p.Process(context.Background(), doc)
	require.NoError(t, err)

	ps := res.Report.PageStats[2]
	assert.True(t, ps.Failed)
	assert.Contains(t, ps.Error, "PAGE_READ")
	assert.Contains(t, res.Annotated, "cell membrane")
}

func TestProcessFailsWithNoReadablePages(t *testing.T) {
	doc := examPaper(3)
	for n := 1; n <= 3; n++ {
		doc.fail[n] = true
	}
	p := newTestPipeline(t, testConfig())

	_, err := p.Process(context.Background(), doc)
	require.Error(t, err)

	var perr *ProcessError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrorTypeDocument, perr.Type)
	assert.True(t, perr.Fatal())
}

func TestProcessTimeoutKeepsCaptionElements(t *testing.T) {
	cfg := testConfig()
	cfg.PageTimeout = time.Nanosecond
	p := newTestPipeline(t, cfg)

	res, err := p.Process(context.Background(), examPaper(3))
	require.NoError(t, err)

	assert.Contains(t, res.Report.PageStats[1].Error, "DETECTION_TIMEOUT")
	require.Len(t, res.Elements, 1)
	assert.Equal(t, extract.SourceCaption, res.Elements[0].Source)
}

func TestProcessRegexCharAccounting(t *testing.T) {
	doc := examPaper(4)
	// A continuation marker in the body survives the geometric filters
	// and must be charged to the regex stage, in characters.
	addText(doc.pages[2], "[Turn over", 250, 700, 11)

	p := newTestPipeline(t, testConfig())
	res, err := p.Process(context.Background(), doc)
	require.NoError(t, err)

	ps := res.Report.PageStats[2]
	assert.Equal(t, 9, ps.RegexRemoved) // "[Turn over" minus the space glyph
	assert.Equal(t, ps.CharsBefore, ps.CharsAfter+ps.NoiseRemoved+ps.ExclusionRemoved+ps.RegexRemoved)
	assert.Positive(t, res.Report.RegexLines["turn_over"])
	assert.NotContains(t, res.Annotated, "Turn over")
}

func TestProcessCancelledPreservesCompletedPages(t *testing.T) {
	doc := examPaper(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	doc.onPage = func(n int) {
		if n == 2 {
			cancel()
		}
	}

	p := newTestPipeline(t, testConfig())
	res, err := p.Process(ctx, doc)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)

	assert.Equal(t, StateError, res.Report.State)
	require.Len(t, res.Report.PageStats, 4)
	// Pages read before the signal carry their text and elements
	// through; the rest are marked failed.
	assert.False(t, res.Report.PageStats[0].Failed)
	assert.False(t, res.Report.PageStats[1].Failed)
	assert.True(t, res.Report.PageStats[2].Failed)
	assert.True(t, res.Report.PageStats[3].Failed)
	assert.Contains(t, res.Plain, "cell membrane")
	assert.NotEmpty(t, res.Elements)
}

func TestProcessKeepsTextWhenVectorScanDegraded(t *testing.T) {
	doc := examPaper(3)
	doc.pages[1].VectorScanError = "page 2: vector content: unbalanced graphics state"

	p := newTestPipeline(t, testConfig())
	res, err := p.Process(context.Background(), doc)
	require.NoError(t, err)

	ps := res.Report.PageStats[1]
	assert.False(t, ps.Failed)
	assert.Contains(t, res.Plain, "cell membrane")
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.DPI = 0

	_, err := New(cfg, nil)
	require.Error(t, err)

	var perr *ProcessError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrorTypeConfig, perr.Type)
	assert.True(t, perr.Fatal())
}

func TestStateTransitions(t *testing.T) {
	path := []State{StateNoiseDetected, StateElementsExtracted, StateZonesBuilt, StateTextExtracted, StateDone}
	s := StateInit
	var err error
	for _, next := range path {
		s, err = advance(s, next)
		require.NoError(t, err)
	}
	assert.Equal(t, StateDone, s)
}

func TestStateSkipsNoiseDetection(t *testing.T) {
	s, err := advance(StateInit, StateElementsExtracted)
	require.NoError(t, err)
	assert.Equal(t, StateElementsExtracted, s)
}

func TestStateRejectsIllegalJump(t *testing.T) {
	_, err := advance(StateInit, StateDone)
	assert.Error(t, err)

	s, err := advance(StateZonesBuilt, StateError)
	require.NoError(t, err)
	assert.Equal(t, StateError, s)
}

func TestWriteArtifacts(t *testing.T) {
	p := newTestPipeline(t, testConfig())
	res, err := p.Process(context.Background(), examPaper(4))
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, p.WriteArtifacts(res, dir))

	for _, name := range []string{
		"sample_annotated.txt", "sample_plain.txt",
		"sample_elements.json", "sample_report.json",
		"Fig-1-1.png",
	} {
		_, statErr := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, statErr, name)
	}
}

func TestProcessIdempotent(t *testing.T) {
	p := newTestPipeline(t, testConfig())
	doc := examPaper(4)

	first, err := p.Process(context.Background(), doc)
	require.NoError(t, err)
	second, err := p.Process(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, first.Annotated, second.Annotated)
	assert.Equal(t, first.Plain, second.Plain)
	require.Equal(t, len(first.Elements), len(second.Elements))
	for i := range first.Elements {
		assert.Equal(t, first.Elements[i].BBox, second.Elements[i].BBox)
		assert.Equal(t, first.Elements[i].Label, second.Elements[i].Label)
	}
}

func TestQuestionAttributionSequence(t *testing.T) {
	doc := examPaper(4)
	// A second question with its own figure further down page 3.
	page := doc.pages[2]
	addText(page, "2", 50, 150, 11)
	page.Images = append(page.Images, geometry.NewRect(100, 250, 400, 420))
	addText(page, "Fig. 2.1", 220, 430, 10)
	// A stray digit in the body must not start a phantom question.
	addText(page, "7", 300, 600, 11)

	p := newTestPipeline(t, testConfig())
	res, err := p.Process(context.Background(), doc)
	require.NoError(t, err)

	byLabel := map[string]extract.Element{}
	for _, el := range res.Elements {
		byLabel[el.Label] = el
	}
	require.Contains(t, byLabel, "Fig. 1.1")
	require.Contains(t, byLabel, "Fig. 2.1")
	assert.Equal(t, 1, byLabel["Fig. 1.1"].Question)
	assert.Equal(t, 2, byLabel["Fig. 2.1"].Question)
}
