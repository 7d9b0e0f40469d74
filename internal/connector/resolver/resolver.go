// Package resolver answers which company correlation ids the system
// currently recognizes. Strategies are pluggable and chainable; the choice
// is made once at startup by the factory.
package resolver

import "context"

// Resolver reports the known company correlation ids. All and Has take the
// request context so record-backed strategies can honor the active tenant
// group.
type Resolver interface {
	All(ctx context.Context) ([]string, error)
	Has(ctx context.Context, qbCompanyID string) (bool, error)
}
