package auth

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/tracker-workorders/internal"
	"github.com/frahmantamala/tracker-workorders/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Gate", func() {
	var (
		gate  *Gate
		users *mockUserRepository
		ctx   context.Context
	)

	session := func(id string) *Session {
		return &Session{UserID: id, ExpiresAt: time.Now().Add(time.Hour)}
	}

	BeforeEach(func() {
		ctx = context.Background()
		users = newMockUserRepository()
		gate = NewGate(users, discardLogger())
	})

	It("admits any active user when no roles are required", func() {
		u, err := gate.Authorize(ctx, session("u-tech"))
		Expect(err).ToNot(HaveOccurred())
		Expect(u.ID).To(Equal("u-tech"))
	})

	It("requires a session", func() {
		_, err := gate.Authorize(ctx, nil, user.RoleAdmin)
		expectAppError(err, internal.ErrorTypeAuthentication, internal.ErrCodeMissingSession)
	})

	It("rejects a session past its expiry", func() {
		s := &Session{UserID: "u-admin", ExpiresAt: time.Now().Add(-time.Minute)}
		_, err := gate.Authorize(ctx, s)
		expectAppError(err, internal.ErrorTypeAuthentication, internal.ErrCodeTokenExpired)
	})

	It("returns an authorization error for a role mismatch", func() {
		_, err := gate.Authorize(ctx, session("u-tech"), user.BackOffice...)
		expectAppError(err, internal.ErrorTypeAuthorization, internal.ErrCodeRoleNotAllowed)
	})

	It("applies deactivation to sessions issued before it", func() {
		s := session("u-support")
		_, err := gate.Authorize(ctx, s, user.BackOffice...)
		Expect(err).ToNot(HaveOccurred())

		users.byID["u-support"].IsActive = false

		_, err = gate.Authorize(ctx, s, user.BackOffice...)
		expectAppError(err, internal.ErrorTypeAuthentication, internal.ErrCodeUserInactive)
	})

	It("uses the stored role rather than the one in the session", func() {
		s := session("u-manager")
		s.Role = user.RoleAdmin

		_, err := gate.Can(ctx, s, ActionManageUsers)
		expectAppError(err, internal.ErrorTypeAuthorization, internal.ErrCodeRoleNotAllowed)
	})

	It("treats an unknown user as an invalid token", func() {
		_, err := gate.Authorize(ctx, session("u-missing"))
		expectAppError(err, internal.ErrorTypeAuthentication, internal.ErrCodeInvalidToken)
	})

	It("surfaces store failures as storage errors", func() {
		users.errorToReturn = errors.New("db down")
		_, err := gate.Authorize(ctx, session("u-admin"))
		expectAppError(err, internal.ErrorTypeStorage, internal.ErrCodeStorageUnavailable)
	})

	DescribeTable("action policy",
		func(action Action, role user.Role, allowed bool) {
			Expect(RoleCan(role, action)).To(Equal(allowed))
		},
		Entry("support creates work orders", ActionCreateWorkOrder, user.RoleSupport, true),
		Entry("technician cannot create work orders", ActionCreateWorkOrder, user.RoleTechnician, false),
		Entry("manager finalizes", ActionFinalizeWorkOrder, user.RoleManager, true),
		Entry("support cannot view reports", ActionViewReports, user.RoleSupport, false),
		Entry("manager views reports", ActionViewReports, user.RoleManager, true),
		Entry("only admin manages templates", ActionManageTemplates, user.RoleManager, false),
		Entry("admin manages users", ActionManageUsers, user.RoleAdmin, true),
		Entry("technician does field work", ActionExecuteFieldWork, user.RoleTechnician, true),
		Entry("unknown actions are admin-only", Action("something.else"), user.RoleManager, false),
	)
})
