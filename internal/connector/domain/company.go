package domain

import "time"

// Environment selects which provider host a company's API calls target.
const (
	EnvironmentProduction = "production"
	EnvironmentSandbox    = "sandbox"
)

// Company is the bridge record binding an external source record to a
// QuickBooks connection. QBCompanyID is the opaque correlation id callers
// use everywhere; RealmID is assigned by the provider at callback time.
//
// Lifecycle: registered -> connected (realm set, ConnectedAt set) ->
// refresh cycles -> disconnected (DisconnectedAt set, realm kept for
// history) -> may reconnect (DisconnectedAt cleared).
type Company struct {
	ID             string // ULID row id
	QBCompanyID    string // opaque correlation id (UUID at registration)
	TenantGroupID  string // empty when the deployment is single-tenant
	SourceType     string
	SourceID       string
	DisplayName    string
	RealmID        string
	Environment    string
	IsActive       bool
	ConnectedAt    *time.Time
	DisconnectedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Connected reports whether the company has completed an OAuth callback at
// some point. A disconnected company still reports true here; use the token
// store to decide whether calls can currently be made.
func (c Company) Connected() bool {
	return c.RealmID != ""
}
