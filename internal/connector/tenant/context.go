// Package tenant carries the active tenant group through a request's
// context. It is deliberately not a process-wide value: two concurrent
// requests for different tenants must never observe each other's group.
package tenant

import "context"

type ctxKey struct{}

// WithGroup returns a context scoped to the given tenant group. An empty
// group id is equivalent to no group (single-tenant deployments).
func WithGroup(ctx context.Context, groupID string) context.Context {
	if groupID == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, groupID)
}

// GroupFrom returns the active tenant group id, or "" when none is set.
func GroupFrom(ctx context.Context) string {
	g, _ := ctx.Value(ctxKey{}).(string)
	return g
}
