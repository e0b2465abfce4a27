package user_test

import (
	"context"
	"io"
	"log/slog"

	"github.com/frahmantamala/tracker-workorders/internal"
	userDatamodel "github.com/frahmantamala/tracker-workorders/internal/core/datamodel/user"
	"github.com/frahmantamala/tracker-workorders/internal/user"
	userPostgres "github.com/frahmantamala/tracker-workorders/internal/user/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ = Describe("User Service", func() {
	var (
		ctx     context.Context
		service *user.Service
	)

	create := func(name, email, role string) *user.User {
		u, err := service.CreateUser(ctx, user.CreateUserDTO{Name: name, Email: email, Password: "s3cret-pass", Role: role})
		Expect(err).NotTo(HaveOccurred())
		return u
	}

	BeforeEach(func() {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&userDatamodel.User{})).To(Succeed())

		ctx = context.Background()
		service = user.NewService(userPostgres.NewUserRepository(db, 0), bcrypt.MinCost, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	Describe("CreateUser", func() {
		It("normalizes the email and hashes the password", func() {
			u := create("  Tina Tech ", " Tina@Example.COM ", "technician")

			Expect(u.Email).To(Equal("tina@example.com"))
			Expect(u.Name).To(Equal("Tina Tech"))
			Expect(u.IsActive).To(BeTrue())
			Expect(bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret-pass"))).To(Succeed())
		})

		It("rejects a duplicate email", func() {
			create("Tina", "tina@example.com", "technician")
			_, err := service.CreateUser(ctx, user.CreateUserDTO{Name: "Other", Email: "TINA@example.com", Password: "another-pass", Role: "support"})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			Expect(appErr.Details.(internal.ValidationErrors).Errors[0].Code).To(Equal(string(internal.ErrCodeEmailTaken)))
		})

		DescribeTable("validates input",
			func(dto user.CreateUserDTO) {
				_, err := service.CreateUser(ctx, dto)
				Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
			},
			Entry("unknown role", user.CreateUserDTO{Name: "A", Email: "a@example.com", Password: "longenough", Role: "owner"}),
			Entry("bad email", user.CreateUserDTO{Name: "A", Email: "not-an-email", Password: "longenough", Role: "support"}),
			Entry("short password", user.CreateUserDTO{Name: "A", Email: "a@example.com", Password: "short", Role: "support"}),
			Entry("missing name", user.CreateUserDTO{Email: "a@example.com", Password: "longenough", Role: "support"}),
		)
	})

	Describe("ListTechnicians", func() {
		It("returns only active technicians", func() {
			active := create("Alex", "alex@example.com", "technician")
			gone := create("Blake", "blake@example.com", "technician")
			create("Casey", "casey@example.com", "support")

			off := false
			Expect(service.SetActive(ctx, "admin-1", gone.ID, user.SetActiveDTO{IsActive: &off})).To(Succeed())

			techs, err := service.ListTechnicians(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(techs).To(Equal([]user.TechnicianResponse{{ID: active.ID, Name: "Alex"}}))
		})
	})

	Describe("SetActive", func() {
		It("refuses self-deactivation", func() {
			admin := create("Ada", "ada@example.com", "admin")
			off := false
			err := service.SetActive(ctx, admin.ID, admin.ID, user.SetActiveDTO{IsActive: &off})
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})

		It("reports unknown users", func() {
			on := true
			err := service.SetActive(ctx, "admin-1", "missing", user.SetActiveDTO{IsActive: &on})
			Expect(internal.IsType(err, internal.ErrorTypeNotFound)).To(BeTrue())
		})

		It("requires the flag", func() {
			err := service.SetActive(ctx, "admin-1", "someone", user.SetActiveDTO{})
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})

		It("restores a deactivated user", func() {
			u := create("Dana", "dana@example.com", "technician")
			off, on := false, true
			Expect(service.SetActive(ctx, "admin-1", u.ID, user.SetActiveDTO{IsActive: &off})).To(Succeed())
			Expect(service.SetActive(ctx, "admin-1", u.ID, user.SetActiveDTO{IsActive: &on})).To(Succeed())

			found, err := service.GetByID(ctx, u.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found.CanBeAssigned()).To(BeTrue())
		})
	})

	It("maps a missing user to not found", func() {
		_, err := service.GetByID(ctx, "missing")
		Expect(internal.IsType(err, internal.ErrorTypeNotFound)).To(BeTrue())
	})
})
