package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"database/sql"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lanebridge/authcore/internal/infrastructure/config"
)

// testDB creates a temporary SQLite database with the identity schema applied.
// The database file is cleaned up when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	// Use a temp file so WAL mode works (in-memory doesn't support it)
	f, err := os.CreateTemp("", "auth-test-*.db")
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

		CREATE INDEX idx_users_role ON users(role);
		CREATE INDEX idx_users_tenant ON users(tenant_id);

		CREATE TABLE refresh_tokens (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			expires_at TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		) STRICT;

		CREATE INDEX idx_refresh_tokens_user ON refresh_tokens(user_id);
		CREATE INDEX idx_refresh_tokens_expires ON refresh_tokens(expires_at);
	`
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("applying identity schema: %v", err)
	}

	return db
}

// seedTestUser inserts a test user and returns it.
func seedTestUser(t *testing.T, db *sql.DB, email string, role Role) *User {
	t.Helper()

	hash, err := HashPassword("test-password")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	repo := NewUserRepository(db)
	user := &User{
		FirstName:    "Test",
		LastName:     "User",
		Email:        email,
		Age:          30,
		PasswordHash: hash,
		Role:         role,
	}
	if err := repo.Create(t.Context(), user); err != nil {
		t.Fatalf("creating test user %s: %v", email, err)
	}
	return user
}

// seedTestTenant inserts a test tenant and returns it.
func seedTestTenant(t *testing.T, db *sql.DB, name string) *Tenant {
	t.Helper()

	repo := NewTenantRepository(db)
	tenant := &Tenant{Name: name, Address: "1 Test Street"}
	if err := repo.Create(t.Context(), tenant); err != nil {
		t.Fatalf("creating test tenant %s: %v", name, err)
	}
	return tenant
}

// testKeyProvider writes a fresh RSA private key to a temp PEM file and
// returns a provider over it.
func testKeyProvider(t *testing.T) *KeyProvider {
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

	return NewKeyProvider(path)
}

// testJWTConfig returns token issuance settings suitable for tests.
func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Issuer:          "auth-service",
		AccessTokenTTL:  60,
		RefreshTokenTTL: 365,
		RefreshSecret:   "test-refresh-secret-at-least-32-chars!",
	}
}

// testTokenService wires a token service over a test database and key.
func testTokenService(t *testing.T, db *sql.DB) *TokenService {
	t.Helper()
	return NewTokenService(testKeyProvider(t), NewTokenRepository(db), testJWTConfig())
}

// within reports whether a time is inside the window around the expected
// instant, absorbing test scheduling jitter.
func within(got, want time.Time, window time.Duration) bool {
	diff := got.Sub(want)
	if diff < 0 {
		diff = -diff
	}
	return diff <= window
}
