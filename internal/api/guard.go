package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/lanebridge/authcore/internal/auth"
)

// Cookie names for the token pair.
const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"
)

// bearerPrefix is stripped from Authorization header values.
const bearerPrefix = "Bearer "

// undefinedToken is the literal some browser clients send after the prefix
// when their stored token variable is unset. It is treated the same as an
// absent header so the cookie fallback still applies.
const undefinedToken = "undefined"

// extractToken pulls a bearer token from the Authorization header, falling
// back to the named cookie when the header is absent, carries no token, uses
// a different scheme, or holds the known placeholder.
func extractToken(r *http.Request, cookieName string) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, bearerPrefix); ok && token != "" && token != undefinedToken {
		return token
	}
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// authenticateAccess validates the access token on protected routes and
// stores its claims in the request context. Verification is by signature
// only; no database hit.
func (s *Server) authenticateAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractToken(r, accessCookieName)
		if tokenString == "" {
			writeUnauthorized(w, "credentials required")
			return
		}

		claims, err := auth.ParseAccessToken(tokenString, s.accessKeyfunc, s.secCfg.JWT.Issuer)
		if err != nil {
			writeUnauthorized(w, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(withAccessClaims(r.Context(), claims)))
	})
}

// parseRefresh validates the refresh token's signature and claims and stores
// them in the request context, without consulting the token store. Used on
// logout, where the record id is needed but a revoked record must not block
// the call.
func (s *Server) parseRefresh(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractToken(r, refreshCookieName)
		if tokenString == "" {
			writeUnauthorized(w, "credentials required")
			return
		}

		claims, err := auth.ParseRefreshToken(tokenString, s.secCfg.JWT.RefreshSecret, s.secCfg.JWT.Issuer)
		if err != nil {
			writeUnauthorized(w, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(withRefreshClaims(r.Context(), claims)))
	})
}

// authenticateRefresh validates the refresh token on the refresh route:
// signature first, then existence of the backing record. A missing record
// means the token was revoked; a store failure is treated the same way so
// verification fails closed.
func (s *Server) authenticateRefresh(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractToken(r, refreshCookieName)
		if tokenString == "" {
			writeUnauthorized(w, "credentials required")
			return
		}

		claims, err := auth.ParseRefreshToken(tokenString, s.secCfg.JWT.RefreshSecret, s.secCfg.JWT.Issuer)
		if err != nil {
			writeUnauthorized(w, "invalid or expired token")
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			writeUnauthorized(w, "invalid or expired token")
			return
		}

		if _, err := s.tokenRepo.FindActive(r.Context(), claims.RecordID, userID); err != nil {
			s.logger.Debug("refresh token rejected",
				"record_id", claims.RecordID,
				"user_id", userID,
				"reason", err,
			)
			writeUnauthorized(w, "token has been revoked")
			return
		}

		next.ServeHTTP(w, r.WithContext(withRefreshClaims(r.Context(), claims)))
	})
}

// requireRoles restricts a route to callers whose access token carries one
// of the allowed roles. Must run after authenticateAccess.
func (s *Server) requireRoles(allowed ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := accessClaimsFrom(r.Context())
			if claims == nil {
				writeUnauthorized(w, "credentials required")
				return
			}

			for _, role := range allowed {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeForbidden(w, "insufficient permissions")
		})
	}
}

// withAccessClaims stores validated access token claims in the context.
func withAccessClaims(ctx context.Context, claims *auth.AccessClaims) context.Context {
	return context.WithValue(ctx, ctxKeyAccessClaims, claims)
}

// accessClaimsFrom retrieves access token claims, or nil if the request
// did not pass authenticateAccess.
func accessClaimsFrom(ctx context.Context) *auth.AccessClaims {
	claims, _ := ctx.Value(ctxKeyAccessClaims).(*auth.AccessClaims)
	return claims
}

// withRefreshClaims stores validated refresh token claims in the context.
func withRefreshClaims(ctx context.Context, claims *auth.RefreshClaims) context.Context {
	return context.WithValue(ctx, ctxKeyRefreshClaims, claims)
}

// refreshClaimsFrom retrieves refresh token claims, or nil if the request
// did not pass authenticateRefresh.
func refreshClaimsFrom(ctx context.Context) *auth.RefreshClaims {
	claims, _ := ctx.Value(ctxKeyRefreshClaims).(*auth.RefreshClaims)
	return claims
}
