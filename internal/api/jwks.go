package api

import (
	"net/http"
)

// jwksCacheControl allows verifiers to cache the key set briefly; keys
// change only on redeploy.
const jwksCacheControl = "public, max-age=300"

// handleJWKS publishes the access token verification keys as a JSON Web Key
// Set. Only public key material is ever serialized.
func (s *Server) handleJWKS(w http.ResponseWriter, _ *http.Request) {
	doc, err := s.keys.JWKS()
	if err != nil {
		s.logger.Error("serving key set", "error", err)
		writeInternalError(w, "signing key unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", jwksCacheControl)
	w.WriteHeader(http.StatusOK)
	w.Write(doc) //nolint:errcheck // Best-effort write to response
}
