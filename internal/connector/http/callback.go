package http

import (
	"errors"
	"net/http"

	"github.com/ledgerlink/qbconnect/internal/connector/domain"
	"github.com/ledgerlink/qbconnect/internal/connector/service"
	"github.com/ledgerlink/qbconnect/pkg/httpx"
	"github.com/ledgerlink/qbconnect/pkg/slogx"
)

// CallbackHandler serves GET /v1/callback, the redirect target registered
// with the provider. The query carries code, state and realmId.
type CallbackHandler struct {
	Manager *service.Manager
}

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	q := r.URL.Query()
	code := q.Get("code")
	state := q.Get("state")
	realmID := q.Get("realmId")

	if code == "" || state == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "code and state are required")
		return
	}

	qbCompanyID, err := h.Manager.HandleCallback(ctx, code, state, realmID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidStateSignature),
			errors.Is(err, domain.ErrInvalidState),
			errors.Is(err, domain.ErrMissingCompanyID):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_state", err.Error())
		case errors.Is(err, domain.ErrCompanyNotFound):
			httpx.WriteError(w, http.StatusNotFound, "company_not_found", err.Error())
		case errors.Is(err, domain.ErrAuthentication):
			// The provider rejected the code exchange.
			log.Warn("code exchange failed", "err", err)
			httpx.WriteError(w, http.StatusBadGateway, "exchange_failed", "token exchange with provider failed")
		default:
			log.Error("callback processing failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "could not complete authorization")
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"qb_company_id": qbCompanyID,
		"connected":     true,
	})
}
