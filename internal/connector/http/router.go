// Package http exposes the connector over a small operational HTTP
// surface: starting authorization flows, receiving the provider callback,
// registering companies and reporting connection status.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ledgerlink/qbconnect/internal/connector/service"
	"github.com/ledgerlink/qbconnect/internal/connector/store"
	"github.com/ledgerlink/qbconnect/internal/connector/tenant"
	"github.com/ledgerlink/qbconnect/pkg/httpx"
	"github.com/ledgerlink/qbconnect/pkg/slogx"
)

// TenantGroupHeader carries the caller's tenant group. An absent header
// means the unscoped (single tenant) view.
const TenantGroupHeader = "X-Tenant-Group"

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store     store.Store
	Manager   *service.Manager
	Registrar *service.Registrar
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		tenantGroupMiddleware,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerConnect()
	r.registerCompanies()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerConnect() {
	connectHandler := &ConnectHandler{Manager: r.Manager}
	callbackHandler := &CallbackHandler{Manager: r.Manager}

	// GET /connect/{id} - strict limit, each hit mints a signed state
	r.Mux.Handle("GET /v1/connect/{id}",
		httpx.Chain(connectHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// GET /callback - the provider redirects the user's browser here
	r.Mux.Handle("GET /v1/callback",
		httpx.Chain(callbackHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerCompanies() {
	h := &CompaniesHandler{Manager: r.Manager, Registrar: r.Registrar}

	r.Mux.Handle("POST /v1/companies",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("GET /v1/companies/status",
		httpx.Chain(http.HandlerFunc(h.HandleStatus),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/companies/{id}/connection",
		httpx.Chain(http.HandlerFunc(h.HandleDisconnect),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

// tenantGroupMiddleware scopes the request to the caller's tenant group so
// record-backed resolvers and tenant-scoped token stores see only their own
// companies.
func tenantGroupMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if group := req.Header.Get(TenantGroupHeader); group != "" {
			req = req.WithContext(tenant.WithGroup(req.Context(), group))
		}
		next.ServeHTTP(w, req)
	})
}
