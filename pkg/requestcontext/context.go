// Package requestcontext provides HTTP-independent accessors for
// request-scoped values. Middleware sets them; services read them. Keeping
// this package free of net/http lets services stay transport-agnostic, and
// lets tests inject a fixed clock without a clock interface.
package requestcontext

import (
	"context"
	"time"

	"sipro/pkg/domain"
)

type (
	userIDKey      struct{}
	roleKey        struct{}
	sectorIDKey    struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// WithUserID stores the authenticated user ID in context.
func WithUserID(ctx context.Context, id domain.UserID) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserID returns the authenticated user ID, or the zero value when absent.
func UserID(ctx context.Context) domain.UserID {
	id, _ := ctx.Value(userIDKey{}).(domain.UserID)
	return id
}

// WithRole stores the caller's role in context.
func WithRole(ctx context.Context, role domain.Role) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

// Role returns the caller's role, or the empty role when absent.
func Role(ctx context.Context) domain.Role {
	role, _ := ctx.Value(roleKey{}).(domain.Role)
	return role
}

// WithSectorID stores the caller's sector in context.
func WithSectorID(ctx context.Context, id domain.SectorID) context.Context {
	return context.WithValue(ctx, sectorIDKey{}, id)
}

// SectorID returns the caller's sector, or the zero value when absent.
func SectorID(ctx context.Context) domain.SectorID {
	id, _ := ctx.Value(sectorIDKey{}).(domain.SectorID)
	return id
}

// WithRequestID stores the request correlation ID in context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request correlation ID, or "" when absent.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithTime pins the request time. Tests use this to make timestamps
// deterministic.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Now returns the pinned request time, falling back to the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}
