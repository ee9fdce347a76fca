package auth

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAccessToken(t *testing.T) {
	db := testDB(t)
	svc := testTokenService(t, db)
	user := seedTestUser(t, db, "alice@example.com", RoleManager)

	tokenString, err := svc.GenerateAccessToken(user)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	if parts := strings.Split(tokenString, "."); len(parts) != 3 {
		t.Fatalf("token has %d segments, want 3", len(parts))
	}

	claims, err := ParseAccessToken(tokenString, svc.keys.Keyfunc(), "auth-service")
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}

	userID, err := claims.UserID()
	if err != nil {
		t.Fatalf("UserID: %v", err)
	}
	if userID != user.ID {
		t.Errorf("subject user id = %d, want %d", userID, user.ID)
	}
	if claims.Role != RoleManager {
		t.Errorf("role = %q, want %q", claims.Role, RoleManager)
	}
	if claims.Issuer != "auth-service" {
		t.Errorf("issuer = %q, want auth-service", claims.Issuer)
	}

	wantExpiry := time.Now().Add(time.Hour)
	if !within(claims.ExpiresAt.Time, wantExpiry, 5*time.Second) {
		t.Errorf("expiry = %v, want ~%v", claims.ExpiresAt.Time, wantExpiry)
	}

	// kid header must reference the published key
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, &AccessClaims{})
	if err != nil {
		t.Fatalf("parsing header: %v", err)
	}
	kid, _ := svc.keys.KeyID()
	if token.Header["kid"] != kid {
		t.Errorf("kid header = %v, want %q", token.Header["kid"], kid)
	}
}

func TestGenerateAccessTokenKeyUnavailable(t *testing.T) {
	db := testDB(t)
	svc := NewTokenService(NewKeyProvider("/nonexistent/key.pem"), NewTokenRepository(db), testJWTConfig())
	user := seedTestUser(t, db, "bob@example.com", RoleCustomer)

	if _, err := svc.GenerateAccessToken(user); !errors.Is(err, ErrKeyUnavailable) {
		t.Errorf("error = %v, want ErrKeyUnavailable", err)
	}
}

func TestIssueSession(t *testing.T) {
	db := testDB(t)
	svc := testTokenService(t, db)
	user := seedTestUser(t, db, "carol@example.com", RoleCustomer)

	session, err := svc.IssueSession(t.Context(), user)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Fatal("session returned empty token(s)")
	}
	if session.Record == nil || session.Record.ID == 0 {
		t.Fatal("session has no backing record")
	}

	claims, err := ParseRefreshToken(session.RefreshToken, testJWTConfig().RefreshSecret, "auth-service")
	if err != nil {
		t.Fatalf("ParseRefreshToken: %v", err)
	}

	// Record id is stamped as both jti and the id claim
	if claims.RecordID != session.Record.ID {
		t.Errorf("id claim = %d, want record id %d", claims.RecordID, session.Record.ID)
	}
	if claims.ID != strconv.FormatInt(session.Record.ID, 10) {
		t.Errorf("jti = %q, want %d", claims.ID, session.Record.ID)
	}

	userID, err := claims.UserID()
	if err != nil {
		t.Fatalf("UserID: %v", err)
	}
	if userID != user.ID {
		t.Errorf("subject user id = %d, want %d", userID, user.ID)
	}

	wantExpiry := time.Now().Add(365 * 24 * time.Hour)
	if !within(claims.ExpiresAt.Time, wantExpiry, 5*time.Second) {
		t.Errorf("expiry = %v, want ~%v", claims.ExpiresAt.Time, wantExpiry)
	}

	// The record must be findable for this user
	repo := NewTokenRepository(db)
	if _, err := repo.FindActive(t.Context(), session.Record.ID, user.ID); err != nil {
		t.Errorf("FindActive on freshly issued record: %v", err)
	}
}

func TestRotateSession(t *testing.T) {
	db := testDB(t)
	svc := testTokenService(t, db)
	user := seedTestUser(t, db, "dave@example.com", RoleCustomer)
	repo := NewTokenRepository(db)

	first, err := svc.IssueSession(t.Context(), user)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	second, err := svc.RotateSession(t.Context(), user, first.Record.ID)
	if err != nil {
		t.Fatalf("RotateSession: %v", err)
	}

	if second.Record.ID == first.Record.ID {
		t.Error("rotation reused the old record id")
	}
	if second.RefreshToken == first.RefreshToken {
		t.Error("rotation returned the same refresh token")
	}

	// Old record revoked, new record live
	if _, err := repo.FindActive(t.Context(), first.Record.ID, user.ID); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("old record after rotation: err = %v, want ErrTokenNotFound", err)
	}
	if _, err := repo.FindActive(t.Context(), second.Record.ID, user.ID); err != nil {
		t.Errorf("new record after rotation: %v", err)
	}
}

func TestRefreshTokenWrongSecret(t *testing.T) {
	db := testDB(t)
	svc := testTokenService(t, db)
	user := seedTestUser(t, db, "eve@example.com", RoleCustomer)

	session, err := svc.IssueSession(t.Context(), user)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	if _, err := ParseRefreshToken(session.RefreshToken, "a-different-secret-also-32-chars-long", "auth-service"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("error = %v, want ErrTokenInvalid", err)
	}
}

func TestAccessTokenRejectsRefreshToken(t *testing.T) {
	// A refresh token (HS256) presented where an access token is expected
	// must fail the algorithm check, never verify.
	db := testDB(t)
	svc := testTokenService(t, db)
	user := seedTestUser(t, db, "frank@example.com", RoleCustomer)

	session, err := svc.IssueSession(t.Context(), user)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	if _, err := ParseAccessToken(session.RefreshToken, svc.keys.Keyfunc(), "auth-service"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("error = %v, want ErrTokenInvalid", err)
	}
}

func TestAccessTokenWrongIssuer(t *testing.T) {
	db := testDB(t)
	svc := testTokenService(t, db)
	user := seedTestUser(t, db, "grace@example.com", RoleCustomer)

	tokenString, err := svc.GenerateAccessToken(user)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	if _, err := ParseAccessToken(tokenString, svc.keys.Keyfunc(), "some-other-issuer"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("error = %v, want ErrTokenInvalid", err)
	}
}
