package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ledgerlink/qbconnect/internal/connector/domain"
	"github.com/ledgerlink/qbconnect/internal/connector/service"
	"github.com/ledgerlink/qbconnect/pkg/httpx"
	"github.com/ledgerlink/qbconnect/pkg/slogx"
)

// CompaniesHandler groups the company registration and lifecycle endpoints.
type CompaniesHandler struct {
	Manager   *service.Manager
	Registrar *service.Registrar
}

type registerRequest struct {
	SourceType  string `json:"source_type"`
	SourceID    string `json:"source_id"`
	DisplayName string `json:"display_name"`
}

type registerResponse struct {
	QBCompanyID string `json:"qb_company_id"`
	DisplayName string `json:"display_name,omitempty"`
	Connected   bool   `json:"connected"`
}

// HandleRegister serves POST /v1/companies. Registering the same source
// record twice returns the existing binding with 200 instead of 201.
func (h *CompaniesHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.SourceType == "" || req.SourceID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "source_type and source_id are required")
		return
	}

	company, created, err := h.Registrar.Register(ctx, service.RegisterInput{
		SourceType:  req.SourceType,
		SourceID:    req.SourceID,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		log.Error("company registration failed", "source_type", req.SourceType, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "could not register company")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpx.WriteJSON(w, status, registerResponse{
		QBCompanyID: company.QBCompanyID,
		DisplayName: company.DisplayName,
		Connected:   company.Connected(),
	})
}

// HandleStatus serves GET /v1/companies/status with a summary of every
// company the resolver knows about.
func (h *CompaniesHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	statuses, err := h.Manager.ConnectionStatus(ctx)
	if err != nil {
		log.Error("connection status failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "could not list companies")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"companies": statuses})
}

// HandleDisconnect serves DELETE /v1/companies/{id}/connection. The
// disconnect is soft: tokens are removed but the binding and its realm id
// remain.
func (h *CompaniesHandler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	qbCompanyID := r.PathValue("id")
	if qbCompanyID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "company id is required")
		return
	}

	if err := h.Manager.Disconnect(ctx, qbCompanyID); err != nil {
		if errors.Is(err, domain.ErrCompanyNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "company_not_found", err.Error())
			return
		}
		log.Error("disconnect failed", "qb_company_id", qbCompanyID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "could not disconnect company")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
