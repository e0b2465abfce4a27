package checklist_test

import (
	"github.com/frahmantamala/tracker-workorders/internal"
	"github.com/frahmantamala/tracker-workorders/internal/checklist"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Label tokens", func() {
	DescribeTable("NormalizeLabel",
		func(label, token string) {
			Expect(checklist.NormalizeLabel(label)).To(Equal(token))
		},
		Entry("spaces", "Luzes de Freio", "luzes_de_freio"),
		Entry("punctuation", "Pneus/Estepe", "pneus_estepe"),
		Entry("accents and padding", "  Câmera Ré  ", "camera_re"),
		Entry("runs of separators", "Óleo --- nível", "oleo_nivel"),
		Entry("digits", "100% OK", "100_ok"),
		Entry("nothing usable", "***", ""),
	)

	It("accepts labels with distinct tokens", func() {
		Expect(checklist.CheckLabelTokens("items", []string{"Luzes de Freio", "Pneus/Estepe"})).To(BeNil())
	})

	It("names both labels when they collide", func() {
		err := checklist.CheckLabelTokens("items", []string{"Câmera Ré", "camera re"})
		Expect(err).NotTo(BeNil())
		Expect(err.Type).To(Equal(internal.ErrorTypeValidation))
		Expect(err.Error()).To(ContainSubstring(`"Câmera Ré"`))
		Expect(err.Error()).To(ContainSubstring(`"camera re"`))
	})
})
