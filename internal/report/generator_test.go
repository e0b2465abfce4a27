package report_test

import (
	"bytes"
	"context"
	"errors"

	"github.com/frahmantamala/tracker-workorders/internal"
	"github.com/frahmantamala/tracker-workorders/internal/report"
	"github.com/frahmantamala/tracker-workorders/internal/workorder"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingRenderer struct {
	layout *report.Layout
	mc     report.MergeContext
	err    error
}

func (r *recordingRenderer) Render(layout *report.Layout, mc report.MergeContext) ([]byte, error) {
	r.layout, r.mc = layout, mc
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-fake"), nil
}

var _ = Describe("Generator", func() {
	var (
		ctx      context.Context
		assets   assetMap
		renderer *recordingRenderer
	)

	BeforeEach(func() {
		ctx = context.Background()
		assets = assetMap{"ref://plate": tinyPNG()}
		renderer = &recordingRenderer{}
	})

	It("names the document after plate and id", func() {
		doc, err := report.NewGenerator(assets, renderer, "", quietLogger()).Generate(ctx, finishedOrder())
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Filename).To(Equal("OS_ABC-1234_4f1c2d3e.pdf"))
		Expect(doc.ContentType).To(Equal("application/pdf"))
		Expect(renderer.mc.Images).To(HaveLen(1))
	})

	It("refuses orders whose field work is not done", func() {
		wo := finishedOrder()
		wo.Status = workorder.StatusInProgress
		_, err := report.NewGenerator(assets, renderer, "", quietLogger()).Generate(ctx, wo)
		Expect(internal.IsType(err, internal.ErrorTypeInvalidState)).To(BeTrue())
		Expect(renderer.layout).To(BeNil())
	})

	It("fails with a generation error when the layout is missing", func() {
		_, err := report.NewGenerator(assets, renderer, "/nonexistent/layout.yml", quietLogger()).Generate(ctx, finishedOrder())
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Type).To(Equal(internal.ErrorTypeGeneration))
		Expect(appErr.Code).To(Equal(internal.ErrCodeLayoutUnavailable))
	})

	It("wraps renderer failures", func() {
		renderer.err = errors.New("font missing")
		_, err := report.NewGenerator(assets, renderer, "", quietLogger()).Generate(ctx, finishedOrder())
		Expect(internal.IsType(err, internal.ErrorTypeGeneration)).To(BeTrue())
	})

	It("renders a real PDF even when some images are gone", func() {
		doc, err := report.NewGenerator(assets, report.NewPDFRenderer(), "", quietLogger()).Generate(ctx, finishedOrder())
		Expect(err).NotTo(HaveOccurred())
		Expect(bytes.HasPrefix(doc.Content, []byte("%PDF"))).To(BeTrue())
	})
})
