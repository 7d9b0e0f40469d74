package resolver

import (
	"fmt"
	"strings"

	"github.com/ledgerlink/qbconnect/internal/connector/store"
)

// Driver selects the resolver strategy.
type Driver string

const (
	DriverStatic Driver = "static"
	DriverEnv    Driver = "env"
	DriverRecord Driver = "record"
	DriverChain  Driver = "chain"
)

// Config carries everything the factory may need. Unused fields are ignored
// by drivers that don't need them.
type Config struct {
	Companies  []string // static list
	Store      store.Store
	OnlyActive bool     // record: restrict to active bindings
	ChainOf    []string // chain: ordered member driver names
}

// New builds the configured resolver. Unknown driver names fail here, at
// startup, not at first use.
func New(driver string, cfg Config) (Resolver, error) {
	switch Driver(strings.ToLower(strings.TrimSpace(driver))) {
	case DriverStatic:
		return NewStatic(cfg.Companies), nil
	case DriverEnv:
		return NewEnv(), nil
	case DriverRecord:
		if cfg.Store == nil {
			return nil, fmt.Errorf("record resolver requires a store")
		}
		return NewRecord(cfg.Store, cfg.OnlyActive), nil
	case DriverChain:
		if len(cfg.ChainOf) == 0 {
			return nil, fmt.Errorf("chain resolver requires at least one member")
		}
		members := make([]Resolver, 0, len(cfg.ChainOf))
		for _, name := range cfg.ChainOf {
			if Driver(name) == DriverChain {
				return nil, fmt.Errorf("chain resolver cannot contain itself")
			}
			m, err := New(name, cfg)
			if err != nil {
				return nil, err
			}
			members = append(members, m)
		}
		return NewChain(members...), nil
	default:
		return nil, fmt.Errorf("unknown company resolver driver %q", driver)
	}
}
