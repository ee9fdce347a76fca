package auth

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestKeyProviderLoad(t *testing.T) {
	provider := testKeyProvider(t)

	key, err := provider.PrivateKey()
	if err != nil {
		t.Fatalf("PrivateKey: %v", err)
	}
	if key == nil {
		t.Fatal("PrivateKey returned nil key")
	}

	pub, err := provider.PublicKey()
	if err != nil {
		t.Fatalf("PublicKey: %v", err)
	}
	if pub.N.Cmp(key.PublicKey.N) != 0 {
		t.Error("public key does not match private key")
	}

	kid, err := provider.KeyID()
	if err != nil {
		t.Fatalf("KeyID: %v", err)
	}
	if kid == "" {
		t.Error("KeyID is empty")
	}

	// KeyID is deterministic for the same key
	kid2, _ := provider.KeyID()
	if kid != kid2 {
		t.Errorf("KeyID changed between calls: %q != %q", kid, kid2)
	}
}

func TestKeyProviderJWKS(t *testing.T) {
	provider := testKeyProvider(t)

	raw, err := provider.JWKS()
	if err != nil {
		t.Fatalf("JWKS: %v", err)
	}

	var doc struct {
		Keys []map[string]any `json:"keys"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshalling JWKS: %v", err)
	}

	if len(doc.Keys) != 1 {
		t.Fatalf("JWKS has %d keys, want 1", len(doc.Keys))
	}

	key := doc.Keys[0]
	kid, _ := provider.KeyID()
	checks := map[string]string{
		"kty": "RSA",
		"use": "sig",
		"alg": "RS256",
		"kid": kid,
	}
	for field, want := range checks {
		if got, _ := key[field].(string); got != want {
			t.Errorf("JWKS key %s = %q, want %q", field, got, want)
		}
	}
	for _, field := range []string{"n", "e"} {
		if v, _ := key[field].(string); v == "" {
			t.Errorf("JWKS key missing %s component", field)
		}
	}
	for _, field := range []string{"d", "p", "q"} {
		if _, present := key[field]; present {
			t.Errorf("JWKS key leaks private component %s", field)
		}
	}
}

func TestKeyProviderMissingFile(t *testing.T) {
	provider := NewKeyProvider("/nonexistent/private.pem")

	if _, err := provider.PrivateKey(); !errors.Is(err, ErrKeyUnavailable) {
		t.Errorf("PrivateKey error = %v, want ErrKeyUnavailable", err)
	}
	if _, err := provider.KeyID(); !errors.Is(err, ErrKeyUnavailable) {
		t.Errorf("KeyID error = %v, want ErrKeyUnavailable", err)
	}
	if _, err := provider.JWKS(); !errors.Is(err, ErrKeyUnavailable) {
		t.Errorf("JWKS error = %v, want ErrKeyUnavailable", err)
	}
}
