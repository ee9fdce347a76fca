package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lanebridge/authcore/internal/infrastructure/config"
)

// TokenService issues access tokens (RS256, short-lived) and refresh tokens
// (HS256, long-lived, bound to a persisted record), and orchestrates
// refresh token rotation.
type TokenService struct {
	keys   *KeyProvider
	tokens TokenRepository
	cfg    config.JWTConfig
}

// Session is one issued access/refresh token pair together with the record
// backing the refresh token. Tokens are only ever returned as a pair; a
// failure anywhere aborts the whole issuance.
type Session struct {
	AccessToken  string
	RefreshToken string
	Record       *RefreshTokenRecord
}

// NewTokenService creates a token service over the given key material and
// refresh token store.
func NewTokenService(keys *KeyProvider, tokens TokenRepository, cfg config.JWTConfig) *TokenService {
	return &TokenService{
		keys:   keys,
		tokens: tokens,
		cfg:    cfg,
	}
}

// GenerateAccessToken creates a signed RS256 access token for a user.
// Fails with an ErrKeyUnavailable-wrapped error if the signing key cannot
// be obtained; the caller must surface this as an internal fault.
func (s *TokenService) GenerateAccessToken(user *User) (string, error) {
	key, err := s.keys.PrivateKey()
	if err != nil {
		return "", err
	}

	kid, err := s.keys.KeyID()
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenLifetime())),
		},
		Role: user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// GenerateRefreshToken creates a signed HS256 refresh token bound to the
// given record. The record id is stamped as both the jti and the id claim.
func (s *TokenService) GenerateRefreshToken(user *User, record *RefreshTokenRecord) (string, error) {
	now := time.Now()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.RefreshTokenLifetime())),
			ID:        strconv.FormatInt(record.ID, 10),
		},
		Role:     user.Role,
		RecordID: record.ID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.RefreshSecret))
	if err != nil {
		return "", fmt.Errorf("signing refresh token: %w", err)
	}
	return signed, nil
}

// PersistRefreshToken creates the persisted record backing a refresh token.
// This is the unit of "a session was granted".
func (s *TokenService) PersistRefreshToken(ctx context.Context, user *User) (*RefreshTokenRecord, error) {
	record, err := s.tokens.Create(ctx, user.ID, s.cfg.RefreshTokenLifetime())
	if err != nil {
		return nil, fmt.Errorf("persisting refresh token: %w", err)
	}
	return record, nil
}

// DeleteRefreshToken removes the record backing a refresh token, revoking it.
func (s *TokenService) DeleteRefreshToken(ctx context.Context, id int64) error {
	return s.tokens.Delete(ctx, id)
}

// IssueSession mints an access token, persists a new refresh token record,
// and mints the refresh token embedding the record's id. Used identically
// by registration, login, and refresh.
func (s *TokenService) IssueSession(ctx context.Context, user *User) (*Session, error) {
	accessToken, err := s.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}

	record, err := s.PersistRefreshToken(ctx, user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.GenerateRefreshToken(user, record)
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Record:       record,
	}, nil
}

// RotateSession issues a fresh session and then deletes the record backing
// the presented refresh token. The new record is created before the old one
// is deleted so a crash in between never strands the user with zero valid
// sessions; the cost is a transiently doubled record.
func (s *TokenService) RotateSession(ctx context.Context, user *User, oldRecordID int64) (*Session, error) {
	session, err := s.IssueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.DeleteRefreshToken(ctx, oldRecordID); err != nil {
		return nil, fmt.Errorf("deleting rotated refresh token %d: %w", oldRecordID, err)
	}

	return session, nil
}
