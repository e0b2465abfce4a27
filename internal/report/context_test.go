package report_test

import (
	"context"

	"github.com/frahmantamala/tracker-workorders/internal/report"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Merge context", func() {
	It("merges fields, checklist tokens and fetchable images", func() {
		png := tinyPNG()
		assets := assetMap{"ref://plate": png, "ref://client": png}

		mc := report.BuildContext(context.Background(), finishedOrder(), assets, quietLogger())

		Expect(mc.Fields).To(HaveKeyWithValue("vehicle_plate", "ABC-1234"))
		Expect(mc.Fields).To(HaveKeyWithValue("short_id", "4f1c2d3e"))
		Expect(mc.Fields).To(HaveKeyWithValue("tracker_types", "gprs, camera"))
		Expect(mc.Fields).To(HaveKeyWithValue("lock_installed", "yes"))
		Expect(mc.Fields).To(HaveKeyWithValue("finalized_at", "2024-03-05 14:30"))
		Expect(mc.Fields).To(HaveKeyWithValue("closed_at", ""))
		Expect(mc.Fields).To(HaveKeyWithValue("checklist_luzes_de_freio", "intact"))
		Expect(mc.Fields).To(HaveKeyWithValue("checklist_pneus_estepe", "defective"))

		Expect(mc.Checklist).To(HaveLen(2))
		Expect(mc.Checklist[0].Label).To(Equal("Luzes de Freio"))

		Expect(mc.Images).To(HaveKey("photo_plate"))
		Expect(mc.Images).To(HaveKey("signature_client"))
		Expect(mc.Images).NotTo(HaveKey("photo_location"))
	})
})
