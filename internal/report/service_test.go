package report_test

import (
	"context"
	"fmt"
	"time"

	"github.com/frahmantamala/tracker-workorders/internal"
	"github.com/frahmantamala/tracker-workorders/internal/auth"
	"github.com/frahmantamala/tracker-workorders/internal/report"
	"github.com/frahmantamala/tracker-workorders/internal/user"
	"github.com/frahmantamala/tracker-workorders/internal/workorder"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type orderList struct {
	orders  []*workorder.WorkOrder
	filters []workorder.QueryFilter
}

func (o *orderList) Get(_ context.Context, _ *auth.Session, id string) (*workorder.WorkOrder, error) {
	for _, wo := range o.orders {
		if wo.ID == id {
			return wo, nil
		}
	}
	return nil, internal.ErrWorkOrderNotFound()
}

func (o *orderList) Query(_ context.Context, _ *auth.Session, f workorder.QueryFilter) ([]*workorder.WorkOrder, error) {
	o.filters = append(o.filters, f)
	if f.Offset >= len(o.orders) {
		return []*workorder.WorkOrder{}, nil
	}
	end := f.Offset + f.Limit
	if end > len(o.orders) {
		end = len(o.orders)
	}
	return o.orders[f.Offset:end], nil
}

var _ = Describe("Report Service", func() {
	var (
		ctx     context.Context
		orders  *orderList
		service *report.Service
		from    time.Time
		to      time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		orders = &orderList{orders: []*workorder.WorkOrder{finishedOrder()}}
		gate := auth.NewGate(userMap{
			"tech-1": {ID: "tech-1", Role: user.RoleTechnician, IsActive: true},
			"sup-1":  {ID: "sup-1", Role: user.RoleSupport, IsActive: true},
			"mgr-1":  {ID: "mgr-1", Role: user.RoleManager, IsActive: true},
		}, quietLogger())
		generator := report.NewGenerator(assetMap{}, &recordingRenderer{}, "", quietLogger())
		service = report.NewService(orders, gate, generator, quietLogger())
		from = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		to = time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)
	})

	It("lets support download an order report", func() {
		doc, err := service.OrderReport(ctx, &auth.Session{UserID: "sup-1"}, finishedOrder().ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Filename).To(HavePrefix("OS_ABC-1234_"))
	})

	It("keeps order reports from technicians", func() {
		_, err := service.OrderReport(ctx, &auth.Session{UserID: "tech-1"}, finishedOrder().ID)
		Expect(internal.IsType(err, internal.ErrorTypeAuthorization)).To(BeTrue())
	})

	It("keeps range reports to managers and admins", func() {
		_, err := service.Summary(ctx, &auth.Session{UserID: "sup-1"}, from, to)
		Expect(internal.IsType(err, internal.ErrorTypeAuthorization)).To(BeTrue())
	})

	It("rejects inverted ranges", func() {
		_, err := service.Export(ctx, &auth.Session{UserID: "mgr-1"}, to, from)
		Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
	})

	It("pages through every finalized order in the range", func() {
		orders.orders = nil
		for i := 0; i < 230; i++ {
			wo := finishedOrder()
			wo.ID = fmt.Sprintf("order-%03d", i)
			orders.orders = append(orders.orders, wo)
		}

		summary, err := service.Summary(ctx, &auth.Session{UserID: "mgr-1"}, from, to)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Total).To(Equal(230))
		Expect(orders.filters).To(HaveLen(3))
		Expect(orders.filters[0].Status).To(Equal(workorder.StatusFinalized))
		Expect(*orders.filters[0].FinalizedFrom).To(Equal(from))
	})

	It("exports a spreadsheet named after the range", func() {
		doc, err := service.Export(ctx, &auth.Session{UserID: "mgr-1"}, from, to)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Filename).To(Equal("work_orders_20240301_20240331.xlsx"))
		Expect(doc.ContentType).To(Equal(report.XLSXContentType))
		Expect(doc.Content).NotTo(BeEmpty())
	})
})
