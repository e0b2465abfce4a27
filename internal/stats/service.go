package stats

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/tracker-workorders/internal"
	"github.com/frahmantamala/tracker-workorders/internal/auth"
	"github.com/frahmantamala/tracker-workorders/internal/core/events"
	"github.com/frahmantamala/tracker-workorders/internal/user"
	"github.com/frahmantamala/tracker-workorders/internal/workorder"
)

const DefaultTTL = time.Minute

type Counter interface {
	CountForTechnician(ctx context.Context, technicianID string, status workorder.Status) (int, error)
	CountByStatus(ctx context.Context, status workorder.Status) (int, error)
}

type Service struct {
	counter Counter
	cache   Cache
	gate    auth.Authorizer
	ttl     time.Duration
	logger  *slog.Logger
}

func NewService(counter Counter, cache Cache, gate auth.Authorizer, ttl time.Duration, logger *slog.Logger) *Service {
	if cache == nil {
		cache = NoopCache{}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{counter: counter, cache: cache, gate: gate, ttl: ttl, logger: logger}
}

// GetStats returns the technician's pending queue, or the awaiting-support queue
// for back-office roles.
func (s *Service) GetStats(ctx context.Context, session *auth.Session) (*Stats, error) {
	actor, err := s.gate.Authorize(ctx, session)
	if err != nil {
		return nil, err
	}

	var (
		key    string
		status workorder.Status
		count  func() (int, error)
	)
	if actor.Role == user.RoleTechnician {
		key, status = PendingKey(actor.ID), workorder.StatusPending
		count = func() (int, error) { return s.counter.CountForTechnician(ctx, actor.ID, status) }
	} else {
		key, status = AwaitingSupportKey(), workorder.StatusAwaitingSupport
		count = func() (int, error) { return s.counter.CountByStatus(ctx, status) }
	}

	result := &Stats{Role: actor.Role, Status: status}

	cached, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("stats cache read failed, counting directly", "key", key, "error", err)
	} else if hit {
		result.Count, result.Cached = cached, true
		return result, nil
	}

	n, err := count()
	if err != nil {
		s.logger.Error("failed to count work orders", "error", err, "status", status)
		return nil, internal.NewStorageError("failed to count work orders", err)
	}
	result.Count = n

	if err := s.cache.Set(ctx, key, n, s.ttl); err != nil {
		s.logger.Warn("stats cache write failed", "key", key, "error", err)
	}
	return result, nil
}

// Invalidate drops the counters a transition of technicianID's order can change.
func (s *Service) Invalidate(ctx context.Context, technicianID string) error {
	keys := []string{AwaitingSupportKey()}
	if technicianID != "" {
		keys = append(keys, PendingKey(technicianID))
	}
	return s.cache.Delete(ctx, keys...)
}

// HandleEvent is an events.Handler for the work-order event types.
func (s *Service) HandleEvent(ctx context.Context, e events.Event) error {
	technicianID := events.TechnicianOf(e)
	if err := s.Invalidate(ctx, technicianID); err != nil {
		s.logger.Warn("stats cache invalidation failed",
			"event_type", e.EventType(),
			"technician_id", technicianID,
			"error", err)
		return err
	}
	s.logger.Debug("stats cache invalidated", "event_type", e.EventType(), "technician_id", technicianID)
	return nil
}
