package auth

import (
	"io"
	"log/slog"
	"testing"
)

func TestSeedAdminCreatesInitialAccount(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	password, err := SeedAdmin(t.Context(), repo, logger)
	if err != nil {
		t.Fatalf("SeedAdmin: %v", err)
	}
	if password == "" {
		t.Fatal("no password generated")
	}

	admin, err := repo.GetByEmail(t.Context(), "admin@localhost")
	if err != nil {
		t.Fatalf("seed admin not found: %v", err)
	}
	if admin.Role != RoleAdmin {
		t.Errorf("role = %q, want %q", admin.Role, RoleAdmin)
	}
	if !VerifyPassword(password, admin.PasswordHash) {
		t.Error("generated password does not verify against stored hash")
	}
}

func TestSeedAdminSkipsWhenUsersExist(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	seedTestUser(t, db, "existing@example.com", RoleCustomer)

	password, err := SeedAdmin(t.Context(), repo, logger)
	if err != nil {
		t.Fatalf("SeedAdmin: %v", err)
	}
	if password != "" {
		t.Error("seeding ran despite existing users")
	}

	count, err := repo.Count(t.Context())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("user count = %d, want 1", count)
	}
}
