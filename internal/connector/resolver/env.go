package resolver

import (
	"context"
	"os"
	"strings"
)

// EnvVarCompanies declares the known company ids as a comma-separated list.
const EnvVarCompanies = "QB_COMPANIES"

// Env resolves against a comma-separated environment variable. The value is
// re-read on every call, not cached, so configuration changes take effect
// without a restart.
type Env struct {
	// Var overrides the environment variable name (tests).
	Var string
}

func NewEnv() *Env {
	return &Env{Var: EnvVarCompanies}
}

func (e *Env) All(ctx context.Context) ([]string, error) {
	name := e.Var
	if name == "" {
		name = EnvVarCompanies
	}
	return cleanList(strings.Split(os.Getenv(name), ",")), nil
}

func (e *Env) Has(ctx context.Context, qbCompanyID string) (bool, error) {
	all, err := e.All(ctx)
	if err != nil {
		return false, err
	}
	for _, id := range all {
		if id == qbCompanyID {
			return true, nil
		}
	}
	return false, nil
}
