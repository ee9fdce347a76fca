// Package api provides the HTTP REST API for authcore.
//
// It exposes registration, login, token refresh, and logout, plus tenant
// and user administration guarded by role checks, and publishes the access
// token verification keys at /.well-known/jwks.json.
//
// The server follows the standard lifecycle pattern:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: all methods are safe for concurrent use from multiple goroutines.
package api
