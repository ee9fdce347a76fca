package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lanebridge/authcore/internal/auth"
)

// tenantRequest is the request body for creating or updating a tenant.
type tenantRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// listResponse is the paginated collection envelope.
type listResponse struct {
	Data    any `json:"data"`
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"perPage"`
}

// handleListTenants returns one page of tenants, optionally filtered by a
// substring match on name or address. Public: registration flows let the
// user pick their organisation before they have an account.
func (s *Server) handleListTenants(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagination(r)
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	tenants, total, err := s.tenantRepo.List(r.Context(), page, perPage, query)
	if err != nil {
		s.logger.Error("listing tenants", "error", err)
		writeInternalError(w, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Data:    tenants,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	})
}

// handleCreateTenant creates a tenant. ADMIN only.
func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var req tenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		writeValidationError(w, "name", "name is required")
		return
	}
	if strings.TrimSpace(req.Address) == "" {
		writeValidationError(w, "address", "address is required")
		return
	}

	tenant := &auth.Tenant{
		Name:    strings.TrimSpace(req.Name),
		Address: strings.TrimSpace(req.Address),
	}
	if err := s.tenantRepo.Create(r.Context(), tenant); err != nil {
		s.logger.Error("creating tenant", "error", err)
		writeInternalError(w, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, tenant)
}

// handleGetTenant returns a single tenant by id. ADMIN only.
func (s *Server) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	tenant, err := s.tenantRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrTenantNotFound) {
			writeNotFound(w, "tenant not found")
			return
		}
		s.logger.Error("getting tenant", "error", err, "tenant_id", id)
		writeInternalError(w, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, tenant)
}

// handleUpdateTenant modifies a tenant's name and address. ADMIN only.
// Omitted fields keep their current value.
func (s *Server) handleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	tenant, err := s.tenantRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrTenantNotFound) {
			writeNotFound(w, "tenant not found")
			return
		}
		s.logger.Error("getting tenant", "error", err, "tenant_id", id)
		writeInternalError(w, "internal server error")
		return
	}

	var req tenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if v := strings.TrimSpace(req.Name); v != "" {
		tenant.Name = v
	}
	if v := strings.TrimSpace(req.Address); v != "" {
		tenant.Address = v
	}

	if err := s.tenantRepo.Update(r.Context(), tenant); err != nil {
		s.logger.Error("updating tenant", "error", err, "tenant_id", id)
		writeInternalError(w, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, tenant)
}

// handleDeleteTenant removes a tenant. Member accounts survive with their
// tenant association cleared. ADMIN only.
func (s *Server) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.tenantRepo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrTenantNotFound) {
			writeNotFound(w, "tenant not found")
			return
		}
		s.logger.Error("deleting tenant", "error", err, "tenant_id", id)
		writeInternalError(w, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// pathID parses the {id} route parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeBadRequest(w, "invalid id")
		return 0, false
	}
	return id, true
}

// pagination parses page and per_page query parameters with defaults.
func pagination(r *http.Request) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))          //nolint:errcheck // zero falls through to default
	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))   //nolint:errcheck // zero falls through to default
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}
	return page, perPage
}
