package pipeline

import (
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/IgnitionX7/pdf-processor-tool/internal/pdfdoc"
	"github.com/IgnitionX7/pdf-processor-tool/internal/raster"
)

// WriteArtifacts persists the result next to dir/<stem>_*: the
// annotated and plain text variants, the element inventory, the run
// report, and a PNG snapshot per element.
func (p *Pipeline) WriteArtifacts(res *Result, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return NewArtifactError(dir, err)
	}
	stem := docStem(res.Report.Path)

	if err := writeText(filepath.Join(dir, stem+"_annotated.txt"), res.Annotated); err != nil {
		return err
	}
	if err := writeText(filepath.Join(dir, stem+"_plain.txt"), res.Plain); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, stem+"_elements.json"), res.Elements); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, stem+"_report.json"), res.Report); err != nil {
		return err
	}
	return p.writeElementCrops(res, dir)
}

// writeElementCrops renders each element's page once and saves the
// element's box as a PNG named after its label.
func (p *Pipeline) writeElementCrops(res *Result, dir string) error {
	if len(res.Elements) == 0 {
		return nil
	}
	byNumber := map[int]*pdfdoc.PageContent{}
	for _, page := range res.pages {
		byNumber[page.Number] = page
	}

	renderer := raster.NewRenderer(p.cfg.DPI)
	rendered := map[int]*image.Gray{}

	seen := map[string]int{}
	for _, el := range res.Elements {
		img, ok := rendered[el.Page]
		if !ok {
			page, have := byNumber[el.Page]
			if !have {
				continue
			}
			img = renderer.Render(page)
			rendered[el.Page] = img
		}
		if img == nil {
			continue
		}
		crop := renderer.Crop(img, el.BBox)
		if crop.Bounds().Empty() {
			continue
		}

		name := el.FileStem()
		if n := seen[name]; n > 0 {
			name = fmt.Sprintf("%s_%d", name, n+1)
		}
		seen[el.FileStem()]++

		path := filepath.Join(dir, name+".png")
		f, err := os.Create(path)
		if err != nil {
			return NewArtifactError(path, err)
		}
		if err := png.Encode(f, crop); err != nil {
			f.Close()
			return NewArtifactError(path, err)
		}
		if err := f.Close(); err != nil {
			return NewArtifactError(path, err)
		}
	}
	return nil
}

// docStem strips the directory and extension from the source path.
func docStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func writeText(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return NewArtifactError(path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return NewArtifactError(path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return NewArtifactError(path, err)
	}
	return nil
}
