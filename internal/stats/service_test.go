package stats_test

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/tracker-workorders/internal"
	"github.com/frahmantamala/tracker-workorders/internal/auth"
	"github.com/frahmantamala/tracker-workorders/internal/core/events"
	"github.com/frahmantamala/tracker-workorders/internal/stats"
	"github.com/frahmantamala/tracker-workorders/internal/user"
	"github.com/frahmantamala/tracker-workorders/internal/workorder"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
)

var _ = Describe("Stats Service", func() {
	var (
		ctx     context.Context
		counter *fakeCounter
		cache   *mapCache
		gate    *auth.Gate
		service *stats.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		counter = &fakeCounter{
			perTechnician: map[string]int{"tech-1": 3},
			byStatus:      map[workorder.Status]int{workorder.StatusAwaitingSupport: 7},
		}
		cache = newMapCache()
		gate = auth.NewGate(userMap{
			"tech-1": {ID: "tech-1", Role: user.RoleTechnician, IsActive: true},
			"tech-2": {ID: "tech-2", Role: user.RoleTechnician, IsActive: true},
			"sup-1":  {ID: "sup-1", Role: user.RoleSupport, IsActive: true},
			"mgr-1":  {ID: "mgr-1", Role: user.RoleManager, IsActive: true},
		}, quietLogger())
		service = stats.NewService(counter, cache, gate, 30*time.Second, quietLogger())
	})

	It("counts a technician's own pending orders", func() {
		result, err := service.GetStats(ctx, &auth.Session{UserID: "tech-1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Status).To(Equal(workorder.StatusPending))
		Expect(result.Count).To(Equal(3))
		Expect(result.Cached).To(BeFalse())
	})

	It("returns zero when nothing matches", func() {
		result, err := service.GetStats(ctx, &auth.Session{UserID: "tech-2"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Count).To(BeZero())
	})

	DescribeTable("counts the awaiting-support queue for back office",
		func(userID string) {
			result, err := service.GetStats(ctx, &auth.Session{UserID: userID})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(workorder.StatusAwaitingSupport))
			Expect(result.Count).To(Equal(7))
		},
		Entry("support", "sup-1"),
		Entry("manager", "mgr-1"),
	)

	It("serves repeated reads from the cache until invalidated", func() {
		_, err := service.GetStats(ctx, &auth.Session{UserID: "sup-1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(cache.ttls[stats.AwaitingSupportKey()]).To(Equal(30 * time.Second))

		counter.byStatus[workorder.StatusAwaitingSupport] = 8
		result, err := service.GetStats(ctx, &auth.Session{UserID: "sup-1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Cached).To(BeTrue())
		Expect(result.Count).To(Equal(7))
		Expect(counter.calls).To(Equal(1))

		event := events.NewWorkOrderEvent(events.EventTypeWorkOrderFieldCompleted, "wo-1", "tech-1", "tech-1", "in_progress", "awaiting_support")
		Expect(service.HandleEvent(ctx, event)).To(Succeed())
		Expect(cache.deleted).To(ConsistOf(stats.AwaitingSupportKey(), stats.PendingKey("tech-1")))

		result, err = service.GetStats(ctx, &auth.Session{UserID: "sup-1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Count).To(Equal(8))
	})

	It("falls back to a direct count when the cache is down", func() {
		cache.broken = true
		result, err := service.GetStats(ctx, &auth.Session{UserID: "tech-1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Count).To(Equal(3))
		Expect(result.Cached).To(BeFalse())
	})

	It("degrades with an unreachable redis server", func() {
		client := redis.NewClient(&redis.Options{
			Addr:        "127.0.0.1:1",
			DialTimeout: 50 * time.Millisecond,
			MaxRetries:  -1,
		})
		defer client.Close()

		service = stats.NewService(counter, stats.NewRedisCache(client), gate, time.Minute, quietLogger())
		result, err := service.GetStats(ctx, &auth.Session{UserID: "tech-1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Count).To(Equal(3))
	})

	It("surfaces counting failures as storage errors", func() {
		counter.err = errors.New("connection refused")
		_, err := service.GetStats(ctx, &auth.Session{UserID: "sup-1"})
		Expect(internal.IsType(err, internal.ErrorTypeStorage)).To(BeTrue())
	})

	It("requires a session", func() {
		_, err := service.GetStats(ctx, nil)
		Expect(internal.IsType(err, internal.ErrorTypeAuthentication)).To(BeTrue())
	})

	It("invalidates through the event bus", func() {
		bus := events.NewEventBus(quietLogger())
		bus.SubscribeMany(events.WorkOrderEventTypes, service.HandleEvent)

		Expect(bus.Publish(ctx, events.NewWorkOrderEvent(events.EventTypeWorkOrderCreated, "wo-1", "tech-2", "sup-1", "", "pending"))).To(Succeed())
		bus.Wait()
		Expect(cache.deleted).To(ContainElement(stats.PendingKey("tech-2")))
	})
})
