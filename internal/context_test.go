package internal_test

import (
	"context"
	"time"

	"github.com/frahmantamala/tracker-workorders/internal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Context helpers", func() {
	It("round-trips the actor", func() {
		ctx := internal.ContextWithActor(context.Background(), internal.Actor{UserID: "u-1", Role: "support"})

		actor, ok := internal.ActorFromContext(ctx)
		Expect(ok).To(BeTrue())
		Expect(actor.UserID).To(Equal("u-1"))
		Expect(actor.Role).To(Equal("support"))

		_, ok = internal.ActorFromContext(context.Background())
		Expect(ok).To(BeFalse())
	})

	It("defaults non-positive timeouts", func() {
		ctx, cancel := internal.WithTimeout(context.Background(), 0)
		defer cancel()

		deadline, ok := ctx.Deadline()
		Expect(ok).To(BeTrue())
		Expect(time.Until(deadline)).To(BeNumerically("~", 5*time.Second, time.Second))
	})
})
