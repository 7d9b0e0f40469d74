package http

import (
	"errors"
	"net/http"

	"github.com/ledgerlink/qbconnect/internal/connector/domain"
	"github.com/ledgerlink/qbconnect/internal/connector/service"
	"github.com/ledgerlink/qbconnect/pkg/httpx"
	"github.com/ledgerlink/qbconnect/pkg/slogx"
)

// ConnectHandler serves GET /v1/connect/{id}. It redirects the caller's
// browser to the provider's consent screen with a freshly signed state for
// the company.
type ConnectHandler struct {
	Manager *service.Manager
}

func (h *ConnectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	qbCompanyID := r.PathValue("id")
	if qbCompanyID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "company id is required")
		return
	}

	authURL, err := h.Manager.AuthorizationURL(ctx, qbCompanyID)
	if err != nil {
		if errors.Is(err, domain.ErrCompanyNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "company_not_found", err.Error())
			return
		}
		log.Error("building authorization url failed", "qb_company_id", qbCompanyID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "could not start authorization")
		return
	}

	httpx.NoCache(w)
	http.Redirect(w, r, authURL, http.StatusFound)
}
