package report_test

import (
	"time"

	"github.com/frahmantamala/tracker-workorders/internal/report"
	"github.com/frahmantamala/tracker-workorders/internal/workorder"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"
)

var _ = Describe("Export", func() {
	It("names the file after the date range", func() {
		from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)
		Expect(report.ExportFilename(from, to)).To(Equal("work_orders_20240301_20240331.xlsx"))
	})

	It("writes a header and one row per order without checklist or image columns", func() {
		wo := finishedOrder()
		wo.Status = workorder.StatusFinalized

		buf, err := report.ExportWorkbook([]*workorder.WorkOrder{wo})
		Expect(err).NotTo(HaveOccurred())

		f, err := excelize.OpenReader(buf)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		rows, err := f.GetRows("Work orders")
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(2))
		Expect(rows[0][0]).To(Equal("ID"))
		for _, h := range rows[0] {
			Expect(h).NotTo(ContainSubstring("Checklist"))
			Expect(h).NotTo(ContainSubstring("Photo"))
			Expect(h).NotTo(ContainSubstring("Signature"))
		}
		Expect(rows[1][0]).To(Equal(wo.ID))
		Expect(rows[1]).To(ContainElement("ABC-1234"))
		Expect(rows[1]).To(ContainElement("finalized"))
	})

	It("summarizes by technician and service type", func() {
		a, b, c := finishedOrder(), finishedOrder(), finishedOrder()
		b.TechnicianName = "Yara Tech"
		c.ServiceType = workorder.ServiceMaintenance

		s := report.Summarize([]*workorder.WorkOrder{a, b, c}, time.Time{}, time.Time{})
		Expect(s.Total).To(Equal(3))
		Expect(s.ByTechnician).To(Equal([]report.Count{{Name: "Xavier Tech", Count: 2}, {Name: "Yara Tech", Count: 1}}))
		Expect(s.ByServiceType[0]).To(Equal(report.Count{Name: workorder.ServiceInstallation, Count: 2}))
	})
})
