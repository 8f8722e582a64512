package pdfdoc

import (
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/IgnitionX7/pdf-processor-tool/internal/geometry"
)

// FileDocument reads page content with ledongthuc/pdf after validating
// the file structure with pdfcpu. Page geometry comes from the page's
// MediaBox; pdfcpu's dimensions are used when the MediaBox is absent.
type FileDocument struct {
	path      string
	file      *os.File
	reader    *pdf.Reader
	pageCount int
	dims      []pageDim
}

type pageDim struct {
	width  float64
	height float64
}

const (
	defaultPageWidth  = 595.0 // A4 portrait, points
	defaultPageHeight = 842.0
)

// Open validates and opens the PDF at path.
func Open(path string) (*FileDocument, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, conf); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	doc := &FileDocument{
		path:      path,
		file:      f,
		reader:    reader,
		pageCount: reader.NumPage(),
	}
	doc.dims = doc.readPageDims(conf)
	return doc, nil
}

// readPageDims collects per-page media box sizes, preferring pdfcpu's
// resolved dimensions and falling back to A4.
func (d *FileDocument) readPageDims(conf *model.Configuration) []pageDim {
	dims := make([]pageDim, d.pageCount)
	for i := range dims {
		dims[i] = pageDim{width: defaultPageWidth, height: defaultPageHeight}
	}

	if resolved, err := api.PageDimsFile(d.path); err == nil {
		for i, dim := range resolved {
			if i >= len(dims) {
				break
			}
			if dim.Width > 0 && dim.Height > 0 {
				dims[i] = pageDim{width: dim.Width, height: dim.Height}
			}
		}
	}

	// MediaBox entries on individual pages override the document-level
	// defaults.
	for i := 0; i < d.pageCount; i++ {
		page := d.reader.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		box := page.V.Key("MediaBox")
		if box.Len() == 4 {
			w := box.Index(2).Float64() - box.Index(0).Float64()
			h := box.Index(3).Float64() - box.Index(1).Float64()
			if w > 0 && h > 0 {
				dims[i] = pageDim{width: w, height: h}
			}
		}
	}
	return dims
}

// Path returns the source file path.
func (d *FileDocument) Path() string { return d.path }

// PageCount returns the number of pages in the document.
func (d *FileDocument) PageCount() int { return d.pageCount }

// Close releases the underlying file handle.
func (d *FileDocument) Close() error {
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

// Page loads the full content of the 1-based page n: characters with
// font metadata, stroked vector segments, rectangles, and image
// placements, all converted to top-left origin points.
func (d *FileDocument) Page(n int) (*PageContent, error) {
	if n < 1 || n > d.pageCount {
		return nil, fmt.Errorf("page %d out of range (document has %d pages)", n, d.pageCount)
	}

	page := d.reader.Page(n)
	if page.V.IsNull() {
		return nil, fmt.Errorf("page %d: null page object", n)
	}

	dim := d.dims[n-1]
	content := &PageContent{
		Number: n,
		Width:  dim.width,
		Height: dim.height,
	}

	d.collectChars(page, content)
	d.collectFilledRects(page, content)
	if err := d.collectVectorContent(page, content); err != nil {
		// Vector scanning failure degrades detection quality but text
		// extraction still proceeds with the chars collected above.
		content.VectorScanError = fmt.Sprintf("page %d: vector content: %v", n, err)
	}
	return content, nil
}

// collectChars converts the library's bottom-origin text runs into
// top-origin Chars.
func (d *FileDocument) collectChars(page pdf.Page, out *PageContent) {
	texts := page.Content().Text
	out.Chars = make([]Char, 0, len(texts))
	for _, t := range texts {
		height := t.FontSize
		if height <= 0 {
			height = 12.0
		}
		// t.Y is the baseline in bottom-origin coordinates; the glyph
		// box extends one font size above it.
		top := out.Height - t.Y - height
		out.Chars = append(out.Chars, Char{
			Text:     t.S,
			X:        t.X,
			Top:      top,
			Width:    t.W,
			Height:   height,
			FontName: t.Font,
			Size:     t.FontSize,
		})
	}
}

// collectFilledRects carries over the filled rectangles the text
// library already parses (rules, table strokes drawn as thin fills).
func (d *FileDocument) collectFilledRects(page pdf.Page, out *PageContent) {
	for _, r := range page.Content().Rect {
		rect := geometry.NewRect(
			r.Min.X, out.Height-r.Max.Y,
			r.Max.X, out.Height-r.Min.Y,
		)
		if rect.Width() <= 0 && rect.Height() <= 0 {
			continue
		}
		// Hairline fills behave like line segments downstream.
		if rect.Height() <= 1.0 && rect.Width() > 1.0 {
			out.Lines = append(out.Lines, LineSeg{
				X0: rect.X0, Y0: rect.CenterY(),
				X1: rect.X1, Y1: rect.CenterY(),
			})
			continue
		}
		if rect.Width() <= 1.0 && rect.Height() > 1.0 {
			out.Lines = append(out.Lines, LineSeg{
				X0: rect.CenterX(), Y0: rect.Y0,
				X1: rect.CenterX(), Y1: rect.Y1,
			})
			continue
		}
		out.Rects = append(out.Rects, rect)
	}
}

// collectVectorContent scans the raw content stream for stroked paths
// and image placements that the text library does not surface.
func (d *FileDocument) collectVectorContent(page pdf.Page, out *PageContent) error {
	streams, err := pageContentStreams(page)
	if err != nil {
		return err
	}
	imageNames := pageImageXObjects(page)

	scanner := newContentScanner(out.Height, imageNames)
	for _, data := range streams {
		scanner.scan(data)
	}

	out.Lines = append(out.Lines, scanner.lines...)
	out.Rects = append(out.Rects, scanner.rects...)
	out.Images = append(out.Images, scanner.images...)
	return nil
}

// pageContentStreams returns the decoded content stream(s) of a page.
func pageContentStreams(page pdf.Page) ([][]byte, error) {
	contents := page.V.Key("Contents")
	if contents.IsNull() {
		return nil, nil
	}

	var streams [][]byte
	appendStream := func(v pdf.Value) {
		defer func() {
			// The underlying reader panics on malformed streams;
			// treat those as absent content.
			_ = recover()
		}()
		rd := v.Reader()
		if rd == nil {
			return
		}
		defer rd.Close()
		buf := make([]byte, 0, 4096)
		tmp := make([]byte, 4096)
		for {
			n, err := rd.Read(tmp)
			if n > 0 {
				buf = append(buf, tmp[:n]...)
			}
			if err != nil {
				break
			}
		}
		if len(buf) > 0 {
			streams = append(streams, buf)
		}
	}

	if contents.Kind() == pdf.Array {
		for i := 0; i < contents.Len(); i++ {
			appendStream(contents.Index(i))
		}
	} else {
		appendStream(contents)
	}
	return streams, nil
}

// pageImageXObjects returns the names of XObjects with an Image
// subtype so Do operators can be classified.
func pageImageXObjects(page pdf.Page) map[string]bool {
	names := make(map[string]bool)
	xobjs := page.Resources().Key("XObject")
	if xobjs.IsNull() {
		return names
	}
	for _, key := range xobjs.Keys() {
		if xobjs.Key(key).Key("Subtype").Name() == "Image" {
			names[key] = true
		}
	}
	return names
}
