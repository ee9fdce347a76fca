// Package auth implements the identity core: users, tenants, credential
// hashing, signing key material, and the two-token session model.
//
// Access tokens are short-lived RS256 JWTs verified against the published
// JWKS. Refresh tokens are long-lived HS256 JWTs whose validity is bound to
// a persisted record; deleting the record revokes the token regardless of
// its cryptographic validity. Every refresh rotates the pair: a new record
// is created before the presented one is deleted.
package auth
