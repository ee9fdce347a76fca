package api

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"database/sql"
	"encoding/json"
	"encoding/pem"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lanebridge/authcore/internal/auth"
	"github.com/lanebridge/authcore/internal/infrastructure/config"
	"github.com/lanebridge/authcore/internal/infrastructure/logging"
)

// testEnv bundles a running test server with direct repository access for
// seeding and verification.
type testEnv struct {
	ts     *httptest.Server
	db     *sql.DB
	users  auth.UserRepository
	tokens auth.TokenRepository
	srv    *Server
}

// newTestEnv spins up an API server over a temp SQLite database and a fresh
// RSA key, returning handles for requests and direct data access.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	userRepo := auth.NewUserRepository(db)
	tenantRepo := auth.NewTenantRepository(db)
	tokenRepo := auth.NewTokenRepository(db)

	secCfg := config.SecurityConfig{
		JWT: config.JWTConfig{
			Issuer:          "auth-service",
			AccessTokenTTL:  60,
			RefreshTokenTTL: 365,
			RefreshSecret:   "test-refresh-secret-at-least-32-chars!",
			CookieDomain:    "localhost",
		},
	}

	keys := testKeyProvider(t)
	tokens := auth.NewTokenService(keys, tokenRepo, secCfg.JWT)

	logger := &logging.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	srv, err := New(Deps{
		Security:   secCfg,
		Logger:     logger,
		Keys:       keys,
		Tokens:     tokens,
		UserRepo:   userRepo,
		TenantRepo: tenantRepo,
		TokenRepo:  tokenRepo,
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}

	if err := srv.resolveKeyfunc(t.Context()); err != nil {
		t.Fatalf("resolving keyfunc: %v", err)
	}

	ts := httptest.NewServer(srv.buildRouter())
	t.Cleanup(ts.Close)

	return &testEnv{
		ts:     ts,
		db:     db,
		users:  userRepo,
		tokens: tokenRepo,
		srv:    srv,
	}
}

// newRemoteVerifyEnv builds a second server over the same database that
// verifies access tokens against the upstream server's published key set
// instead of its own key. Its own key still signs the tokens it mints, so
// those are foreign to the remote set.
func newRemoteVerifyEnv(t *testing.T, upstream *testEnv) *testEnv {
	t.Helper()

	db := upstream.db
	userRepo := auth.NewUserRepository(db)
	tenantRepo := auth.NewTenantRepository(db)
	tokenRepo := auth.NewTokenRepository(db)

	secCfg := config.SecurityConfig{
		JWT: config.JWTConfig{
			Issuer:          "auth-service",
			AccessTokenTTL:  60,
			RefreshTokenTTL: 365,
			RefreshSecret:   "test-refresh-secret-at-least-32-chars!",
			CookieDomain:    "localhost",
			JWKSURL:         upstream.ts.URL + "/.well-known/jwks.json",
		},
	}

	keys := testKeyProvider(t)
	tokens := auth.NewTokenService(keys, tokenRepo, secCfg.JWT)

	logger := &logging.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	srv, err := New(Deps{
		Security:   secCfg,
		Logger:     logger,
		Keys:       keys,
		Tokens:     tokens,
		UserRepo:   userRepo,
		TenantRepo: tenantRepo,
		TokenRepo:  tokenRepo,
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}

	if err := srv.resolveKeyfunc(t.Context()); err != nil {
		t.Fatalf("resolving remote keyfunc: %v", err)
	}

	ts := httptest.NewServer(srv.buildRouter())
	t.Cleanup(ts.Close)

	return &testEnv{
		ts:     ts,
		db:     db,
		users:  userRepo,
		tokens: tokenRepo,
		srv:    srv,
	}
}

// testDB creates a temporary SQLite database with the identity schema applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "api-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schemaSQL := `
		CREATE TABLE tenants (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			address TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			age INTEGER NOT NULL DEFAULT 0,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'CUSTOMER',
			tenant_id INTEGER,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			FOREIGN KEY (tenant_id) REFERENCES tenants(id) ON DELETE SET NULL
		) STRICT;

		CREATE TABLE refresh_tokens (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			expires_at TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		) STRICT;
	`
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("applying identity schema: %v", err)
	}

	return db
}

// testKeyProvider writes a fresh RSA private key to a temp PEM file and
// returns a provider over it.
func testKeyProvider(t *testing.T) *auth.KeyProvider {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating test key: %v", err)
	}

	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	path := filepath.Join(t.TempDir(), "private.pem")
	if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
		t.Fatalf("writing test key: %v", err)
	}

	return auth.NewKeyProvider(path)
}

// seedUser creates a user with the given role and password "test-password".
func (e *testEnv) seedUser(t *testing.T, email string, role auth.Role) *auth.User {
	t.Helper()

	hash, err := auth.HashPassword("test-password")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	user := &auth.User{
		FirstName:    "Test",
		LastName:     "User",
		Email:        email,
		Age:          30,
		PasswordHash: hash,
		Role:         role,
	}
	if err := e.users.Create(t.Context(), user); err != nil {
		t.Fatalf("creating test user %s: %v", email, err)
	}
	return user
}

// do performs an HTTP request against the test server with optional cookies.
func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshalling request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(t.Context(), method, e.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// login authenticates the user and returns the session cookies.
func (e *testEnv) login(t *testing.T, email, password string) []*http.Cookie {
	t.Helper()

	resp := e.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status %d", email, resp.StatusCode)
	}
	return resp.Cookies()
}

// decodeBody unmarshals a JSON response body into v.
func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
}

// findCookie returns the named cookie or nil.
func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
