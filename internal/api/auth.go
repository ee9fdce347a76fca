package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/lanebridge/authcore/internal/auth"
)

// registerRequest is the request body for POST /auth/register.
type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Age       int    `json:"age"`
	Password  string `json:"password"`
}

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse identifies the account a session was granted for. The
// tokens themselves travel in cookies, never in the body.
type sessionResponse struct {
	ID int64 `json:"id"`
}

// minPasswordLength is the minimum accepted password length.
const minPasswordLength = 8

// handleRegister creates a CUSTOMER account and grants it a session.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if field, msg := validateRegistration(&req); field != "" {
		writeValidationError(w, field, msg)
		return
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
		Role:         auth.RoleCustomer,
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

	session, err := s.tokens.IssueSession(r.Context(), user)
	if err != nil {
		s.logger.Error("issuing session", "error", err, "user_id", user.ID)
		writeInternalError(w, "internal server error")
		return
	}

	s.metrics.registrations.Inc()
	s.setSessionCookies(w, session)
	writeJSON(w, http.StatusCreated, sessionResponse{ID: user.ID})
}

// handleLogin verifies credentials and grants a session. An unknown email
// and a wrong password produce the identical error so the response does not
// reveal which emails are registered.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	user, err := s.userRepo.GetByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			s.metrics.loginFailures.Inc()
			writeBadRequest(w, auth.ErrInvalidCredentials.Error())
			return
		}
		s.logger.Error("looking up user", "error", err)
		writeInternalError(w, "internal server error")
		return
	}

	if !auth.VerifyPassword(req.Password, user.PasswordHash) {
		s.metrics.loginFailures.Inc()
		writeBadRequest(w, auth.ErrInvalidCredentials.Error())
		return
	}

	session, err := s.tokens.IssueSession(r.Context(), user)
	if err != nil {
		s.logger.Error("issuing session", "error", err, "user_id", user.ID)
		writeInternalError(w, "internal server error")
		return
	}

	s.metrics.logins.Inc()
	s.setSessionCookies(w, session)
	writeJSON(w, http.StatusOK, sessionResponse{ID: user.ID})
}

// handleRefresh rotates the presented refresh token: a fresh pair is issued
// and the old record deleted, so each refresh token works exactly once.
// Runs behind authenticateRefresh.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	claims := refreshClaimsFrom(r.Context())
	if claims == nil {
		writeUnauthorized(w, "credentials required")
		return
	}

	userID, err := claims.UserID()
	if err != nil {
		writeUnauthorized(w, "invalid or expired token")
		return
	}

	user, err := s.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeUnauthorized(w, "token has been revoked")
			return
		}
		s.logger.Error("looking up user", "error", err, "user_id", userID)
		writeInternalError(w, "internal server error")
		return
	}

	session, err := s.tokens.RotateSession(r.Context(), user, claims.RecordID)
	if err != nil {
		s.logger.Error("rotating session", "error", err, "user_id", userID)
		writeInternalError(w, "internal server error")
		return
	}

	s.metrics.refreshes.Inc()
	s.setSessionCookies(w, session)
	writeJSON(w, http.StatusOK, sessionResponse{ID: user.ID})
}

// handleLogout revokes the presented refresh token's record and clears the
// session cookies. Runs behind authenticateAccess and parseRefresh; deleting
// an already-gone record is not an error, so logout is idempotent even when
// the session was revoked elsewhere.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := refreshClaimsFrom(r.Context())
	if claims == nil {
		writeUnauthorized(w, "credentials required")
		return
	}

	if err := s.tokens.DeleteRefreshToken(r.Context(), claims.RecordID); err != nil {
		s.logger.Error("revoking refresh token", "error", err, "record_id", claims.RecordID)
		writeInternalError(w, "internal server error")
		return
	}

	s.clearSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleSelf returns the authenticated user's own account.
// Runs behind authenticateAccess.
func (s *Server) handleSelf(w http.ResponseWriter, r *http.Request) {
	claims := accessClaimsFrom(r.Context())
	if claims == nil {
		writeUnauthorized(w, "credentials required")
		return
	}

	userID, err := claims.UserID()
	if err != nil {
		writeUnauthorized(w, "invalid or expired token")
		return
	}

	user, err := s.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("looking up user", "error", err, "user_id", userID)
		writeInternalError(w, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// setSessionCookies attaches the token pair as HttpOnly cookies scoped to
// the configured domain. Lifetimes mirror the token expiries.
func (s *Server) setSessionCookies(w http.ResponseWriter, session *auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    session.AccessToken,
		Domain:   s.secCfg.JWT.CookieDomain,
		Path:     "/",
		MaxAge:   int(s.secCfg.JWT.AccessTokenLifetime().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    session.RefreshToken,
		Domain:   s.secCfg.JWT.CookieDomain,
		Path:     "/",
		MaxAge:   int(s.secCfg.JWT.RefreshTokenLifetime().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearSessionCookies expires both token cookies.
func (s *Server) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{accessCookieName, refreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Domain:   s.secCfg.JWT.CookieDomain,
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

// validateRegistration checks required registration fields.
// Returns the offending field name and message, or "" when valid.
func validateRegistration(req *registerRequest) (string, string) {
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
	return "", ""
}
