package workorder_test

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/tracker-workorders/internal"
	"github.com/frahmantamala/tracker-workorders/internal/asset"
	"github.com/frahmantamala/tracker-workorders/internal/auth"
	"github.com/frahmantamala/tracker-workorders/internal/checklist"
	"github.com/frahmantamala/tracker-workorders/internal/core/events"
	"github.com/frahmantamala/tracker-workorders/internal/user"
	"github.com/frahmantamala/tracker-workorders/internal/workorder"
	workorderPostgres "github.com/frahmantamala/tracker-workorders/internal/workorder/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nimage-bytes")

func expectErrorType(err error, t internal.ErrorType) {
	GinkgoHelper()
	Expect(err).To(HaveOccurred())
	Expect(internal.IsType(err, t)).To(BeTrue(), "expected %s, got %v", t, err)
}

var _ = Describe("WorkOrder Service", func() {
	var (
		ctx       context.Context
		service   *workorder.Service
		users     userMap
		assets    *fakeAssets
		published *recordingPublisher

		support, manager, techX, techY *auth.Session
	)

	newDraft := func() workorder.CreateWorkOrderDTO {
		return workorder.CreateWorkOrderDTO{
			TechnicianID:    "tech-x",
			ClientName:      "Acme Logistics",
			ClientAddress:   "12 Harbor Road",
			VehicleModel:    "Hilux",
			VehiclePlate:    " abc-1234 ",
			VehicleCategory: " Car ",
			TrackerTypes:    []string{"gprs"},
		}
	}

	fullChecklist := func() map[string]checklist.Answer {
		return map[string]checklist.Answer{"Lights": checklist.AnswerIntact, "Tires": checklist.AnswerDefective}
	}

	createStarted := func() *workorder.WorkOrder {
		wo, err := service.Create(ctx, support, newDraft())
		Expect(err).NotTo(HaveOccurred())
		wo, err = service.Start(ctx, techX, wo.ID)
		Expect(err).NotTo(HaveOccurred())
		return wo
	}

	BeforeEach(func() {
		ctx = context.Background()
		users = userMap{
			"sup-1":   {ID: "sup-1", Name: "Sam Support", Role: user.RoleSupport, IsActive: true},
			"mgr-1":   {ID: "mgr-1", Name: "Max Manager", Role: user.RoleManager, IsActive: true},
			"tech-x":  {ID: "tech-x", Name: "Xavier Tech", Role: user.RoleTechnician, IsActive: true},
			"tech-y":  {ID: "tech-y", Name: "Yara Tech", Role: user.RoleTechnician, IsActive: true},
			"tech-zz": {ID: "tech-zz", Name: "Zed Gone", Role: user.RoleTechnician, IsActive: false},
		}
		assets = &fakeAssets{}
		published = &recordingPublisher{}

		gate := auth.NewGate(users, quietLogger())
		templates := templateMap{"car": {"Lights", "Tires"}}
		repo := workorderPostgres.NewWorkOrderRepository(openTestDB(), 0)
		service = workorder.NewService(repo, gate, templates, users, assets, published, quietLogger())

		support = &auth.Session{UserID: "sup-1"}
		manager = &auth.Session{UserID: "mgr-1"}
		techX = &auth.Session{UserID: "tech-x"}
		techY = &auth.Session{UserID: "tech-y"}
	})

	Describe("Create", func() {
		It("creates a pending order with normalized fields", func() {
			wo, err := service.Create(ctx, support, newDraft())
			Expect(err).NotTo(HaveOccurred())

			Expect(wo.ID).NotTo(BeEmpty())
			Expect(wo.Status).To(Equal(workorder.StatusPending))
			Expect(wo.VehiclePlate).To(Equal("ABC-1234"))
			Expect(wo.VehicleCategory).To(Equal("car"))
			Expect(wo.ServiceType).To(Equal(workorder.ServiceInstallation))
			Expect(wo.TechnicianName).To(Equal("Xavier Tech"))
			Expect(wo.CreatedByID).To(Equal("sup-1"))
			Expect(wo.CreatedAt).NotTo(BeZero())
			Expect(wo.FinalizedAt).To(BeNil())
		})

		It("requires a technician", func() {
			draft := newDraft()
			draft.TechnicianID = ""
			_, err := service.Create(ctx, support, draft)
			expectErrorType(err, internal.ErrorTypeValidation)
			Expect(err.Error()).To(ContainSubstring("technician_id is required"))
		})

		It("reports every missing required field", func() {
			_, err := service.Create(ctx, support, workorder.CreateWorkOrderDTO{TechnicianID: "tech-x"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			details := appErr.Details.(internal.ValidationErrors)
			fields := []string{}
			for _, e := range details.Errors {
				fields = append(fields, e.Field)
			}
			Expect(fields).To(ConsistOf("vehicle_plate", "vehicle_model", "client_name", "client_address"))
		})

		DescribeTable("rejects assignees that are not active technicians",
			func(technicianID string) {
				draft := newDraft()
				draft.TechnicianID = technicianID
				_, err := service.Create(ctx, support, draft)
				expectErrorType(err, internal.ErrorTypeValidation)
				Expect(err.Error()).To(ContainSubstring("active technician"))
			},
			Entry("unknown user", "nobody"),
			Entry("support user", "sup-1"),
			Entry("deactivated technician", "tech-zz"),
		)

		It("does not let technicians create orders", func() {
			_, err := service.Create(ctx, techX, newDraft())
			expectErrorType(err, internal.ErrorTypeAuthorization)
		})

		It("forces camera_count to zero without a camera tracker", func() {
			draft := newDraft()
			draft.CameraCount = 3
			wo, err := service.Create(ctx, support, draft)
			Expect(err).NotTo(HaveOccurred())
			Expect(wo.CameraCount).To(BeZero())
		})

		It("requires at least one camera when the camera tracker is selected", func() {
			draft := newDraft()
			draft.TrackerTypes = []string{"camera", "GPRS", "camera"}
			_, err := service.Create(ctx, support, draft)
			expectErrorType(err, internal.ErrorTypeValidation)

			draft.CameraCount = 2
			wo, err := service.Create(ctx, support, draft)
			Expect(err).NotTo(HaveOccurred())
			Expect(wo.TrackerTypes).To(Equal([]string{"camera", "gprs"}))
			Expect(wo.CameraCount).To(Equal(2))
		})

		It("rejects unknown service and tracker types", func() {
			draft := newDraft()
			draft.ServiceType = "repair"
			_, err := service.Create(ctx, support, draft)
			expectErrorType(err, internal.ErrorTypeValidation)

			draft = newDraft()
			draft.TrackerTypes = []string{"sonar"}
			_, err = service.Create(ctx, support, draft)
			expectErrorType(err, internal.ErrorTypeValidation)
		})
	})

	Describe("Start", func() {
		It("lets only the assignee start, leaving state unchanged otherwise", func() {
			wo, err := service.Create(ctx, support, newDraft())
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Start(ctx, techY, wo.ID)
			expectErrorType(err, internal.ErrorTypeAuthorization)
			_, err = service.Start(ctx, support, wo.ID)
			expectErrorType(err, internal.ErrorTypeAuthorization)

			current, err := service.Get(ctx, support, wo.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(current.Status).To(Equal(workorder.StatusPending))
		})

		It("fails the second start with an invalid state error", func() {
			wo := createStarted()
			Expect(wo.Status).To(Equal(workorder.StatusInProgress))

			_, err := service.Start(ctx, techX, wo.ID)
			expectErrorType(err, internal.ErrorTypeInvalidState)
		})

		It("checks the assignee before the state", func() {
			wo := createStarted()
			_, err := service.Start(ctx, techY, wo.ID)
			expectErrorType(err, internal.ErrorTypeAuthorization)
		})

		It("returns not found for unknown orders", func() {
			_, err := service.Start(ctx, techX, "00000000-0000-0000-0000-000000000000")
			expectErrorType(err, internal.ErrorTypeNotFound)
		})

		It("stops a technician deactivated after assignment", func() {
			wo, err := service.Create(ctx, support, newDraft())
			Expect(err).NotTo(HaveOccurred())
			users["tech-x"].IsActive = false

			_, err = service.Start(ctx, techX, wo.ID)
			expectErrorType(err, internal.ErrorTypeAuthentication)
		})

		It("stops an assignee whose role changed away from technician", func() {
			wo := createStarted()
			users["tech-x"].Role = user.RoleSupport

			_, err := service.CompleteFieldWork(ctx, techX, wo.ID, workorder.FieldCompletionDTO{ChecklistResponses: fullChecklist()})
			expectErrorType(err, internal.ErrorTypeAuthorization)

			current, err := service.Get(ctx, manager, wo.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(current.Status).To(Equal(workorder.StatusInProgress))
		})
	})

	Describe("CompleteFieldWork", func() {
		It("rejects a checklist missing a template item without uploading anything", func() {
			wo := createStarted()
			_, err := service.CompleteFieldWork(ctx, techX, wo.ID, workorder.FieldCompletionDTO{
				ChecklistResponses: map[string]checklist.Answer{"Lights": checklist.AnswerIntact},
				Photos:             map[string]workorder.Attachment{"plate": {Content: pngBytes, ContentType: "image/png"}},
			})
			expectErrorType(err, internal.ErrorTypeValidation)
			Expect(err.Error()).To(ContainSubstring("Tires"))
			Expect(assets.stored).To(BeEmpty())

			current, err := service.Get(ctx, techX, wo.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(current.Status).To(Equal(workorder.StatusInProgress))
		})

		It("rejects labels outside a non-empty template", func() {
			wo := createStarted()
			answers := fullChecklist()
			answers["Horn"] = checklist.AnswerIntact
			_, err := service.CompleteFieldWork(ctx, techX, wo.ID, workorder.FieldCompletionDTO{ChecklistResponses: answers})
			expectErrorType(err, internal.ErrorTypeValidation)
		})

		It("rejects answers other than intact or defective", func() {
			wo := createStarted()
			answers := fullChecklist()
			answers["Tires"] = "maybe"
			_, err := service.CompleteFieldWork(ctx, techX, wo.ID, workorder.FieldCompletionDTO{ChecklistResponses: answers})
			expectErrorType(err, internal.ErrorTypeValidation)
		})

		It("rejects unknown attachment slots and non-image content", func() {
			wo := createStarted()
			_, err := service.CompleteFieldWork(ctx, techX, wo.ID, workorder.FieldCompletionDTO{
				ChecklistResponses: fullChecklist(),
				Photos:             map[string]workorder.Attachment{"selfie": {Content: pngBytes, ContentType: "image/png"}},
			})
			expectErrorType(err, internal.ErrorTypeValidation)

			_, err = service.CompleteFieldWork(ctx, techX, wo.ID, workorder.FieldCompletionDTO{
				ChecklistResponses: fullChecklist(),
				Signatures:         map[string]workorder.Attachment{"client": {Content: []byte("%PDF-1.4"), ContentType: "application/pdf"}},
			})
			expectErrorType(err, internal.ErrorTypeValidation)
			Expect(assets.stored).To(BeEmpty())
		})

		It("accepts an empty checklist when no template exists", func() {
			draft := newDraft()
			draft.VehicleCategory = "machine"
			wo, err := service.Create(ctx, support, draft)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Start(ctx, techX, wo.ID)
			Expect(err).NotTo(HaveOccurred())

			done, err := service.CompleteFieldWork(ctx, techX, wo.ID, workorder.FieldCompletionDTO{})
			Expect(err).NotTo(HaveOccurred())
			Expect(done.Status).To(Equal(workorder.StatusAwaitingSupport))
		})

		It("rejects free-form labels that share a report token", func() {
			draft := newDraft()
			draft.VehicleCategory = "machine"
			wo, err := service.Create(ctx, support, draft)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Start(ctx, techX, wo.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CompleteFieldWork(ctx, techX, wo.ID, workorder.FieldCompletionDTO{
				ChecklistResponses: map[string]checklist.Answer{"Luzes": checklist.AnswerIntact, "luzes": checklist.AnswerDefective},
			})
			expectErrorType(err, internal.ErrorTypeValidation)
		})

		It("aborts before writing when an upload fails", func() {
			wo := createStarted()
			assets.failing = true
			_, err := service.CompleteFieldWork(ctx, techX, wo.ID, workorder.FieldCompletionDTO{
				ChecklistResponses: fullChecklist(),
				Photos:             map[string]workorder.Attachment{"plate": {Content: pngBytes, ContentType: "image/png"}},
			})
			Expect(err).To(HaveOccurred())

			current, err := service.Get(ctx, techX, wo.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(current.Status).To(Equal(workorder.StatusInProgress))
			Expect(current.FinalizedAt).To(BeNil())
		})

		It("cannot complete an order that was never started", func() {
			wo, err := service.Create(ctx, support, newDraft())
			Expect(err).NotTo(HaveOccurred())
			_, err = service.CompleteFieldWork(ctx, techX, wo.ID, workorder.FieldCompletionDTO{ChecklistResponses: fullChecklist()})
			expectErrorType(err, internal.ErrorTypeInvalidState)
		})

		It("persists the field report and references", func() {
			wo := createStarted()
			done, err := service.CompleteFieldWork(ctx, techX, wo.ID, workorder.FieldCompletionDTO{
				ChecklistResponses: map[string]checklist.Answer{" Lights ": "INTACT", "Tires": checklist.AnswerDefective},
				TrackerSerialID:    " SN-0042 ",
				Notes:              "antenna under dashboard",
				LockInstalled:      true,
				Photos:             map[string]workorder.Attachment{"plate": {Content: pngBytes, ContentType: "image/png"}},
				Signatures:         map[string]workorder.Attachment{"client": {Content: pngBytes, ContentType: "image/png"}},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(done.Status).To(Equal(workorder.StatusAwaitingSupport))

			stored, err := service.Get(ctx, manager, wo.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.ChecklistResponses).To(Equal(map[string]checklist.Answer{"Lights": checklist.AnswerIntact, "Tires": checklist.AnswerDefective}))
			Expect(stored.TrackerSerialID).To(Equal("SN-0042"))
			Expect(stored.LockInstalled).To(BeTrue())
			Expect(stored.PhotoRefs).To(HaveKeyWithValue("plate", "https://files.test/photo/"+wo.ID+"/plate"))
			Expect(stored.SignatureRefs).To(HaveKey("client"))
			Expect(stored.FinalizedAt).NotTo(BeNil())
		})
	})

	Describe("concurrent field completion", func() {
		It("leaves the winner's attachments intact when a duplicate submission loses", func() {
			bucket := newMemoryBucket()
			uploader := asset.NewUploader(bucket, asset.Config{
				PublicURL:       "http://files",
				PhotoBucket:     "photos",
				SignatureBucket: "signatures",
			}, quietLogger())
			templates := &interleavingTemplates{templateMap: templateMap{"car": {"Lights", "Tires"}}}
			gate := auth.NewGate(users, quietLogger())
			racing := workorder.NewService(workorderPostgres.NewWorkOrderRepository(openTestDB(), 0), gate,
				templates, users, uploader, published, quietLogger())

			wo, err := racing.Create(ctx, support, newDraft())
			Expect(err).NotTo(HaveOccurred())
			_, err = racing.Start(ctx, techX, wo.ID)
			Expect(err).NotTo(HaveOccurred())

			photo := func(marker string) workorder.FieldCompletionDTO {
				return workorder.FieldCompletionDTO{
					ChecklistResponses: fullChecklist(),
					Photos: map[string]workorder.Attachment{
						"plate": {Content: append(append([]byte{}, pngBytes...), marker...), ContentType: "image/png"},
					},
				}
			}

			var winnerErr error
			templates.mu.Lock()
			templates.beforeLookup = func() {
				_, winnerErr = racing.CompleteFieldWork(ctx, techX, wo.ID, photo("FIRST"))
			}
			templates.mu.Unlock()
			_, loserErr := racing.CompleteFieldWork(ctx, techX, wo.ID, photo("SECOND"))
			Expect(winnerErr).NotTo(HaveOccurred())
			expectErrorType(loserErr, internal.ErrorTypeInvalidState)

			committed, err := racing.Get(ctx, manager, wo.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(committed.Status).To(Equal(workorder.StatusAwaitingSupport))
			content, _, err := uploader.Fetch(ctx, committed.PhotoRefs["plate"])
			Expect(err).NotTo(HaveOccurred())
			Expect(string(content)).To(HaveSuffix("FIRST"))
		})
	})

	Describe("query timeout", func() {
		It("reports a stalled database as a storage error", func() {
			db := openTestDB()
			stallQueries(db)
			slow := workorder.NewService(workorderPostgres.NewWorkOrderRepository(db, 50*time.Millisecond),
				auth.NewGate(users, quietLogger()), templateMap{}, users, assets, published, quietLogger())

			started := time.Now()
			_, err := slow.Get(ctx, support, "00000000-0000-0000-0000-000000000000")
			expectErrorType(err, internal.ErrorTypeStorage)
			Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
			Expect(time.Since(started)).To(BeNumerically("<", time.Second))
		})
	})

	Describe("FinalizeAdministratively", func() {
		It("is reserved for back-office roles", func() {
			wo := createStarted()
			_, err := service.CompleteFieldWork(ctx, techX, wo.ID, workorder.FieldCompletionDTO{ChecklistResponses: fullChecklist()})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.FinalizeAdministratively(ctx, techX, wo.ID)
			expectErrorType(err, internal.ErrorTypeAuthorization)
		})

		It("only closes orders awaiting support", func() {
			wo := createStarted()
			_, err := service.FinalizeAdministratively(ctx, support, wo.ID)
			expectErrorType(err, internal.ErrorTypeInvalidState)
		})
	})

	It("runs the full lifecycle and records every step", func() {
		draft := newDraft()
		draft.TechnicianID = ""
		_, err := service.Create(ctx, support, draft)
		expectErrorType(err, internal.ErrorTypeValidation)

		wo, err := service.Create(ctx, support, newDraft())
		Expect(err).NotTo(HaveOccurred())
		Expect(wo.Status).To(Equal(workorder.StatusPending))

		wo, err = service.Start(ctx, techX, wo.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(wo.Status).To(Equal(workorder.StatusInProgress))

		wo, err = service.CompleteFieldWork(ctx, techX, wo.ID, workorder.FieldCompletionDTO{ChecklistResponses: fullChecklist()})
		Expect(err).NotTo(HaveOccurred())
		Expect(wo.Status).To(Equal(workorder.StatusAwaitingSupport))
		Expect(wo.FinalizedAt).NotTo(BeNil())
		finalizedAt := *wo.FinalizedAt

		wo, err = service.FinalizeAdministratively(ctx, support, wo.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(wo.Status).To(Equal(workorder.StatusFinalized))
		Expect(wo.ClosedAt).NotTo(BeNil())

		_, err = service.FinalizeAdministratively(ctx, support, wo.ID)
		expectErrorType(err, internal.ErrorTypeInvalidState)

		stored, err := service.Get(ctx, support, wo.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.FinalizedAt.Equal(finalizedAt)).To(BeTrue())

		history, err := service.History(ctx, support, wo.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(history).To(HaveLen(4))
		Expect(history[0].FromStatus).To(Equal(workorder.Status("")))
		Expect(history[3].ToStatus).To(Equal(workorder.StatusFinalized))
		Expect(history[3].ActorID).To(Equal("sup-1"))

		Expect(published.Types()).To(Equal(events.WorkOrderEventTypes))
	})

	Describe("Query", func() {
		It("scopes technicians to their own orders", func() {
			_, err := service.Create(ctx, support, newDraft())
			Expect(err).NotTo(HaveOccurred())
			other := newDraft()
			other.TechnicianID = "tech-y"
			_, err = service.Create(ctx, support, other)
			Expect(err).NotTo(HaveOccurred())

			mine, err := service.Query(ctx, techX, workorder.QueryFilter{TechnicianID: "tech-y"})
			Expect(err).NotTo(HaveOccurred())
			Expect(mine).To(HaveLen(1))
			Expect(mine[0].TechnicianID).To(Equal("tech-x"))

			all, err := service.Query(ctx, support, workorder.QueryFilter{Status: workorder.StatusPending})
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))
		})

		It("orders queues by creation and paginates stably", func() {
			var ids []string
			for i := 0; i < 3; i++ {
				wo, err := service.Create(ctx, support, newDraft())
				Expect(err).NotTo(HaveOccurred())
				ids = append(ids, wo.ID)
			}

			first, err := service.Query(ctx, support, workorder.QueryFilter{Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			second, err := service.Query(ctx, support, workorder.QueryFilter{Limit: 2, Offset: 2})
			Expect(err).NotTo(HaveOccurred())

			Expect([]string{first[0].ID, first[1].ID, second[0].ID}).To(Equal(ids))
		})

		It("filters finalized orders by finalization date", func() {
			wo := createStarted()
			_, err := service.CompleteFieldWork(ctx, techX, wo.ID, workorder.FieldCompletionDTO{ChecklistResponses: fullChecklist()})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.FinalizeAdministratively(ctx, support, wo.ID)
			Expect(err).NotTo(HaveOccurred())

			from := time.Now().UTC().Add(-time.Hour)
			to := time.Now().UTC().Add(time.Hour)
			found, err := service.Query(ctx, manager, workorder.QueryFilter{Status: workorder.StatusFinalized, FinalizedFrom: &from, FinalizedTo: &to})
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(1))

			past := from.Add(-48 * time.Hour)
			found, err = service.Query(ctx, manager, workorder.QueryFilter{Status: workorder.StatusFinalized, FinalizedFrom: &past, FinalizedTo: &from})
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeEmpty())
		})

		It("rejects inverted date ranges and unknown statuses", func() {
			from := time.Now()
			to := from.Add(-time.Hour)
			_, err := service.Query(ctx, manager, workorder.QueryFilter{FinalizedFrom: &from, FinalizedTo: &to})
			expectErrorType(err, internal.ErrorTypeValidation)

			_, err = service.Query(ctx, manager, workorder.QueryFilter{Status: "cancelled"})
			expectErrorType(err, internal.ErrorTypeValidation)
		})
	})

	It("hides orders from technicians they are not assigned to", func() {
		wo, err := service.Create(ctx, support, newDraft())
		Expect(err).NotTo(HaveOccurred())
		_, err = service.Get(ctx, techY, wo.ID)
		expectErrorType(err, internal.ErrorTypeAuthorization)
	})
})
