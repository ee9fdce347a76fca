package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/lanebridge/authcore/internal/auth"
)

// createUserRequest is the request body for the administrative user create.
// Unlike self-service registration it may set any role and tenant.
type createUserRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Age       int    `json:"age"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	TenantID  *int64 `json:"tenantId"`
}

// updateUserRequest is the request body for the administrative user update.
// Nil pointers leave the field unchanged; passwords are not updatable here.
type updateUserRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
	Age       *int    `json:"age"`
	Role      *string `json:"role"`
	TenantID  *int64  `json:"tenantId"`
}

// handleListUsers returns one page of user accounts. ADMIN only.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagination(r)

	users, total, err := s.userRepo.List(r.Context(), page, perPage)
	if err != nil {
		s.logger.Error("listing users", "error", err)
		writeInternalError(w, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Data:    users,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	})
}

// handleCreateUser creates a user account with an explicit role and optional
// tenant assignment. ADMIN only.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if field, msg := validateCreateUser(&req); field != "" {
		writeValidationError(w, field, msg)
		return
	}

	if req.TenantID != nil {
		if _, err := s.tenantRepo.GetByID(r.Context(), *req.TenantID); err != nil {
			if errors.Is(err, auth.ErrTenantNotFound) {
				writeValidationError(w, "tenantId", "tenant does not exist")
				return
			}
			s.logger.Error("checking tenant", "error", err, "tenant_id", *req.TenantID)
			writeInternalError(w, "internal server error")
			return
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hashing password", "error", err)
		writeInternalError(w, "internal server error")
		return
	}

	user := &auth.User{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Age:          req.Age,
		PasswordHash: hash,
		Role:         auth.Role(req.Role),
		TenantID:     req.TenantID,
	}

	if err := s.userRepo.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeBadRequest(w, "user with this email already exists")
			return
		}
		s.logger.Error("creating user", "error", err)
		writeInternalError(w, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// handleGetUser returns a single user account by id. ADMIN only.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	user, err := s.userRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("getting user", "error", err, "user_id", id)
		writeInternalError(w, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// handleUpdateUser modifies a user's profile, role, or tenant. ADMIN only.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	user, err := s.userRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("getting user", "error", err, "user_id", id)
		writeInternalError(w, "internal server error")
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			writeValidationError(w, "email", "a valid email address is required")
			return
		}
		user.Email = email
	}
	if req.Age != nil {
		if *req.Age < 0 {
			writeValidationError(w, "age", "age cannot be negative")
			return
		}
		user.Age = *req.Age
	}
	if req.Role != nil {
		role := auth.Role(*req.Role)
		if !auth.IsValidRole(role) {
			writeValidationError(w, "role", "role must be one of ADMIN, MANAGER, CUSTOMER")
			return
		}
		user.Role = role
	}
	if req.TenantID != nil {
		if _, err := s.tenantRepo.GetByID(r.Context(), *req.TenantID); err != nil {
			if errors.Is(err, auth.ErrTenantNotFound) {
				writeValidationError(w, "tenantId", "tenant does not exist")
				return
			}
			s.logger.Error("checking tenant", "error", err, "tenant_id", *req.TenantID)
			writeInternalError(w, "internal server error")
			return
		}
		user.TenantID = req.TenantID
	}

	if err := s.userRepo.Update(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeBadRequest(w, "user with this email already exists")
			return
		}
		s.logger.Error("updating user", "error", err, "user_id", id)
		writeInternalError(w, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// handleDeleteUser removes a user account. The account's refresh token
// records cascade, revoking every outstanding session. ADMIN only.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.userRepo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("deleting user", "error", err, "user_id", id)
		writeInternalError(w, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// validateCreateUser checks required fields for the administrative create.
// Returns the offending field name and message, or "" when valid.
func validateCreateUser(req *createUserRequest) (string, string) {
	if strings.TrimSpace(req.FirstName) == "" {
		return "firstName", "first name is required"
	}
	if strings.TrimSpace(req.LastName) == "" {
		return "lastName", "last name is required"
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil {
		return "email", "a valid email address is required"
	}
	if req.Age < 0 {
		return "age", "age cannot be negative"
	}
	if len(req.Password) < minPasswordLength {
		return "password", "password must be at least 8 characters"
	}
	if !auth.IsValidRole(auth.Role(req.Role)) {
		return "role", "role must be one of ADMIN, MANAGER, CUSTOMER"
	}
	return "", ""
}
