package report

import (
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// Renderer turns a layout and a merge context into a document.
type Renderer interface {
	Render(layout *Layout, mc MergeContext) ([]byte, error)
}

const (
	gridSize    = 12
	fieldHeight = 6
	imageHeight = 55
)

var (
	titleProps   = props.Text{Size: 15, Style: fontstyle.Bold, Align: align.Center}
	headingProps = props.Text{Size: 11, Style: fontstyle.Bold, Top: 3}
	labelProps   = props.Text{Size: 9, Style: fontstyle.Bold}
	valueProps   = props.Text{Size: 9}
	captionProps = props.Text{Size: 8, Align: align.Center}
	imageProps   = props.Rect{Center: true, Percent: 90}
)

// PDFRenderer renders reports with maroto.
type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

func (PDFRenderer) Render(layout *Layout, mc MergeContext) ([]byte, error) {
	cfg := config.NewBuilder().
		WithLeftMargin(layout.Margins.Left).
		WithTopMargin(layout.Margins.Top).
		WithRightMargin(layout.Margins.Right).
		Build()
	m := maroto.New(cfg)

	m.AddRows(text.NewRow(10, Expand(layout.Title, mc), titleProps))
	if layout.Subtitle != "" {
		m.AddRows(text.NewRow(7, Expand(layout.Subtitle, mc), props.Text{Size: 10, Align: align.Center}))
	}

	for _, section := range layout.Sections {
		m.AddRows(text.NewRow(9, section.Heading, headingProps))
		switch {
		case len(section.Fields) > 0:
			addFields(m, section.Fields, mc)
		case section.Checklist:
			addChecklist(m, mc.Checklist)
		default:
			addImages(m, section.Images, mc.Images)
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func valueOrDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

func addFields(m core.Maroto, fields []FieldRef, mc MergeContext) {
	for _, f := range fields {
		v, _ := mc.Value(f.Key)
		label := f.Label
		if label == "" {
			label = f.Key
		}
		m.AddRow(fieldHeight,
			text.NewCol(4, label, labelProps),
			text.NewCol(8, valueOrDash(v), valueProps),
		)
	}
}

func addChecklist(m core.Maroto, lines []ChecklistLine) {
	if len(lines) == 0 {
		m.AddRows(text.NewRow(fieldHeight, "No checklist recorded", valueProps))
		return
	}
	for _, line := range lines {
		m.AddRow(fieldHeight,
			text.NewCol(8, line.Label, valueProps),
			text.NewCol(4, line.Answer, labelProps),
		)
	}
}

func imageExtension(ext string) extension.Type {
	if ext == "png" {
		return extension.Png
	}
	return extension.Jpg
}

// addImages lays out present images two per row; absent keys are skipped.
func addImages(m core.Maroto, keys []string, images map[string]Image) {
	var present []string
	for _, k := range keys {
		if _, ok := images[k]; ok {
			present = append(present, k)
		}
	}
	if len(present) == 0 {
		m.AddRows(text.NewRow(fieldHeight, "No images", valueProps))
		return
	}

	const perRow = 2
	size := gridSize / perRow
	for i := 0; i < len(present); i += perRow {
		var pics, captions []core.Col
		for j := i; j < i+perRow; j++ {
			if j >= len(present) {
				pics = append(pics, col.New(size))
				captions = append(captions, col.New(size))
				continue
			}
			img := images[present[j]]
			pics = append(pics, image.NewFromBytesCol(size, img.Content, imageExtension(img.Extension), imageProps))
			captions = append(captions, text.NewCol(size, present[j], captionProps))
		}
		m.AddRow(imageHeight, pics...)
		m.AddRow(5, captions...)
	}
}
