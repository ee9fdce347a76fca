package auth

import (
	"crypto"
	"crypto/rsa"
	_ "crypto/sha256" // registers SHA-256 for JWK thumbprints
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"
	"sync"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

// KeyProvider loads the RSA private key used to sign access tokens and
// publishes its public half as a JSON Web Key Set.
//
// The key is read and parsed once on first use and cached for the process
// lifetime. A missing or unparsable key is a deployment fault, not a
// transient one: every accessor returns an ErrKeyUnavailable-wrapped error
// and nothing is retried.
//
// Thread Safety: all methods are safe for concurrent use.
type KeyProvider struct {
	path string

	once sync.Once
	key  *rsa.PrivateKey
	kid  string
	jwks []byte
	err  error
}

// NewKeyProvider creates a provider for the PEM-encoded RSA private key at path.
// The key is not read until first use.
func NewKeyProvider(path string) *KeyProvider {
	return &KeyProvider{path: path}
}

// PrivateKey returns the cached signing key.
func (p *KeyProvider) PrivateKey() (*rsa.PrivateKey, error) {
	p.once.Do(p.load)
	if p.err != nil {
		return nil, p.err
	}
	return p.key, nil
}

// PublicKey returns the public half of the signing key.
func (p *KeyProvider) PublicKey() (*rsa.PublicKey, error) {
	key, err := p.PrivateKey()
	if err != nil {
		return nil, err
	}
	return &key.PublicKey, nil
}

// KeyID returns the RFC 7638 thumbprint used as the kid header on
// access tokens and in the published key set.
func (p *KeyProvider) KeyID() (string, error) {
	p.once.Do(p.load)
	if p.err != nil {
		return "", p.err
	}
	return p.kid, nil
}

// JWKS returns the serialized JSON Web Key Set document containing the
// public key. The document is built once and reused.
func (p *KeyProvider) JWKS() ([]byte, error) {
	p.once.Do(p.load)
	if p.err != nil {
		return nil, p.err
	}
	return p.jwks, nil
}

// Keyfunc returns a jwt.Keyfunc that resolves the local public key,
// for verifying access tokens minted by this process.
func (p *KeyProvider) Keyfunc() jwt.Keyfunc {
	return func(_ *jwt.Token) (any, error) {
		return p.PublicKey()
	}
}

// load reads and parses the private key and precomputes the JWKS document.
func (p *KeyProvider) load() {
	data, err := os.ReadFile(p.path)
	if err != nil {
		p.err = fmt.Errorf("%w: reading %s: %w", ErrKeyUnavailable, p.path, err)
		return
	}

	block, _ := pem.Decode(data)
	if block == nil {
		p.err = fmt.Errorf("%w: no PEM block in %s", ErrKeyUnavailable, p.path)
		return
	}

	key, err := parseRSAPrivateKey(block)
	if err != nil {
		p.err = fmt.Errorf("%w: parsing %s: %w", ErrKeyUnavailable, p.path, err)
		return
	}

	pub := jose.JSONWebKey{
		Key:       &key.PublicKey,
		Use:       "sig",
		Algorithm: "RS256",
	}

	thumb, err := pub.Thumbprint(crypto.SHA256)
	if err != nil {
		p.err = fmt.Errorf("%w: computing key thumbprint: %w", ErrKeyUnavailable, err)
		return
	}
	pub.KeyID = base64.RawURLEncoding.EncodeToString(thumb)

	jwks, err := json.Marshal(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{pub}})
	if err != nil {
		p.err = fmt.Errorf("%w: serializing key set: %w", ErrKeyUnavailable, err)
		return
	}

	p.key = key
	p.kid = pub.KeyID
	p.jwks = jwks
}

// parseRSAPrivateKey parses a PEM block as PKCS#1 or PKCS#8 RSA key material.
func parseRSAPrivateKey(block *pem.Block) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("not a PKCS#1 or PKCS#8 private key: %w", err)
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is %T, want *rsa.PrivateKey", parsed)
	}
	return key, nil
}
