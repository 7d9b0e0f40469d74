package resolver

import "context"

// Chain combines resolvers in order. All() is the de-duplicated union of
// the members, preserving first-seen order; Has() short-circuits on the
// first member that recognizes the id.
type Chain struct {
	members []Resolver
}

func NewChain(members ...Resolver) *Chain {
	return &Chain{members: members}
}

func (c *Chain) All(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string

	for _, m := range c.members {
		ids, err := m.All(ctx)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out, nil
}

func (c *Chain) Has(ctx context.Context, qbCompanyID string) (bool, error) {
	for _, m := range c.members {
		ok, err := m.Has(ctx, qbCompanyID)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
