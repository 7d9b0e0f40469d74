package resolver

import (
	"context"
	"strings"
)

// Static resolves against a fixed list supplied at construction.
type Static struct {
	companies []string
}

func NewStatic(companies []string) *Static {
	return &Static{companies: cleanList(companies)}
}

func (s *Static) All(ctx context.Context) ([]string, error) {
	out := make([]string, len(s.companies))
	copy(out, s.companies)
	return out, nil
}

func (s *Static) Has(ctx context.Context, qbCompanyID string) (bool, error) {
	for _, id := range s.companies {
		if id == qbCompanyID {
			return true, nil
		}
	}
	return false, nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, id := range in {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
