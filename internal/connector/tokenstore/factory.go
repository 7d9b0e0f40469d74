package tokenstore

import (
	"fmt"
	"strings"

	"github.com/ledgerlink/qbconnect/internal/connector/store"
)

// Driver selects the token store implementation.
type Driver string

const (
	DriverDatabase Driver = "database"
	DriverTenant   Driver = "tenant"
	DriverCache    Driver = "cache"
)

// ParseDriver validates a configured driver name. Unknown names are an
// error so a misconfigured deployment fails at startup, not at first use.
func ParseDriver(s string) (Driver, error) {
	switch Driver(strings.ToLower(strings.TrimSpace(s))) {
	case DriverDatabase:
		return DriverDatabase, nil
	case DriverTenant:
		return DriverTenant, nil
	case DriverCache:
		return DriverCache, nil
	default:
		return "", fmt.Errorf("unknown token store driver %q", s)
	}
}

// New builds the configured token store. The durable store is required for
// the database and tenant drivers; cache options are required for cache.
func New(driver Driver, st store.Store, cache CacheOptions) (Store, error) {
	switch driver {
	case DriverDatabase:
		return NewDatabase(st), nil
	case DriverTenant:
		return NewTenant(st), nil
	case DriverCache:
		return NewCacheFromOptions(cache)
	default:
		return nil, fmt.Errorf("unknown token store driver %q", driver)
	}
}
