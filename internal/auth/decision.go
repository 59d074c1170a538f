package auth

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/rainbowtourguides/backend/internal/domain"
)

// Decision is the outcome of an authorization check. It is exactly one of
// Authorized, Unauthenticated or Forbidden.
type Decision interface {
	decision()
}

// Authorized carries the verified caller.
type Authorized struct {
	Actor domain.Actor
}

// Unauthenticated means no usable credentials were presented (HTTP 401).
type Unauthenticated struct {
	Reason string
}

// Forbidden means the caller is known but lacks the required role (HTTP 403).
type Forbidden struct {
	Actor  domain.Actor
	Reason string
}

func (Authorized) decision()      {}
func (Unauthenticated) decision() {}
func (Forbidden) decision()       {}

// Verifier turns a bearer token into an actor.
type Verifier interface {
	Verify(token string) (domain.Actor, error)
}

// Authorize inspects the Authorization header and checks the caller's role
// against roles. An empty roles list admits any authenticated caller.
func Authorize(r *http.Request, v Verifier, roles ...domain.Role) Decision {
	h := r.Header.Get("Authorization")
	if h == "" {
		return Unauthenticated{Reason: "missing Authorization header"}
	}
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return Unauthenticated{Reason: "Authorization header must be a bearer token"}
	}

	actor, err := v.Verify(strings.TrimSpace(token))
	if err != nil {
		return Unauthenticated{Reason: "invalid or expired token"}
	}

	if len(roles) > 0 && !actor.IsAdmin() && !slices.Contains(roles, actor.Role) {
		return Forbidden{Actor: actor, Reason: "role " + string(actor.Role) + " may not perform this action"}
	}
	return Authorized{Actor: actor}
}

type actorKey struct{}

// WithActor stores the authorized actor in ctx.
func WithActor(ctx context.Context, a domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the actor stored by WithActor.
func ActorFrom(ctx context.Context) (domain.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(domain.Actor)
	return a, ok
}
