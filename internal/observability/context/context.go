package context

import (
	"context"
	"strings"
)

type requestIDKey struct{}

type actorKey struct{}

type actor struct {
	kind string
	id   string
}

const (
	ActorStaff    = "staff"
	ActorCustomer = "customer"
	ActorSystem   = "system"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// WithActor records who is performing the request.
func WithActor(ctx context.Context, kind, id string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor{kind: strings.TrimSpace(kind), id: strings.TrimSpace(id)})
}

// ActorFromContext returns the actor kind and id, defaulting to the system actor.
func ActorFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return ActorSystem, ""
	}
	if a, ok := ctx.Value(actorKey{}).(actor); ok && a.kind != "" {
		return a.kind, a.id
	}
	return ActorSystem, ""
}
