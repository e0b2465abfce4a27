package report_test

import (
	"os"
	"path/filepath"

	"github.com/frahmantamala/tracker-workorders/internal/report"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Layout", func() {
	It("ships a valid default layout", func() {
		layout, err := report.LoadLayout("")
		Expect(err).NotTo(HaveOccurred())
		Expect(layout.Title).NotTo(BeEmpty())

		var checklistSections int
		for _, s := range layout.Sections {
			if s.Checklist {
				checklistSections++
			}
		}
		Expect(checklistSections).To(Equal(1))
	})

	It("rejects unknown keys", func() {
		_, err := report.ParseLayout([]byte("title: X\ncolour: red\nsections:\n  - heading: A\n    checklist: true\n"))
		Expect(err).To(HaveOccurred())
	})

	It("rejects sections mixing content kinds", func() {
		_, err := report.ParseLayout([]byte("title: X\nsections:\n  - heading: A\n    checklist: true\n    images: [photo_plate]\n"))
		Expect(err).To(MatchError(ContainSubstring("exactly one")))
	})

	It("rejects a layout without sections", func() {
		_, err := report.ParseLayout([]byte("title: X\n"))
		Expect(err).To(HaveOccurred())
	})

	It("reads a layout from disk", func() {
		path := filepath.Join(GinkgoT().TempDir(), "layout.yml")
		Expect(os.WriteFile(path, []byte("title: Custom\nsections:\n  - heading: Plate\n    fields:\n      - {label: Plate, key: vehicle_plate}\n"), 0o600)).To(Succeed())

		layout, err := report.LoadLayout(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(layout.Sections[0].Fields[0].Key).To(Equal("vehicle_plate"))
	})

	It("expands placeholders from the merge context", func() {
		mc := report.MergeContext{Fields: map[string]string{"vehicle_plate": "ABC-1234"}}
		Expect(report.Expand("Plate {{ vehicle_plate }} / {{missing}}", mc)).To(Equal("Plate ABC-1234 / "))
	})
})
