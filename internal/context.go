package internal

import (
	"context"
	"time"
)

type ctxKey string

const actorKey ctxKey = "actor"

// Actor is the authenticated caller as seen by packages that cannot import auth.
type Actor struct {
	UserID string
	Role   string
}

func ContextWithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	a, ok := ctx.Value(actorKey).(Actor)
	return a, ok
}

// WithTimeout bounds a call to a backing service; zero or negative means 5s.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
