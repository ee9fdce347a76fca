package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// TokenRepository defines the interface for refresh token record persistence.
//
// FindActive distinguishes a missing record (ErrTokenNotFound) from an
// operational failure; callers on the revocation path treat both as revoked
// but must be able to log them apart.
type TokenRepository interface {
	Create(ctx context.Context, userID int64, ttl time.Duration) (*RefreshTokenRecord, error)
	Delete(ctx context.Context, id int64) error
	FindActive(ctx context.Context, id, userID int64) (*RefreshTokenRecord, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// SQLiteTokenRepository implements TokenRepository using SQLite.
type SQLiteTokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new SQLite-backed refresh token repository.
func NewTokenRepository(db *sql.DB) *SQLiteTokenRepository {
	return &SQLiteTokenRepository{db: db}
}

// Create inserts a new refresh token record for the user, expiring after ttl.
// The generated row id becomes the JWT ID of the token minted against it.
func (r *SQLiteTokenRepository) Create(ctx context.Context, userID int64, ttl time.Duration) (*RefreshTokenRecord, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, expires_at, created_at) VALUES (?, ?, ?)`,
		userID,
		expiresAt.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("creating refresh token record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading refresh token record id: %w", err)
	}

	return &RefreshTokenRecord{
		ID:        id,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}, nil
}

// Delete removes a refresh token record, revoking the token minted against it.
// Deleting a non-existent id is not an error (logout is idempotent).
func (r *SQLiteTokenRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting refresh token record: %w", err)
	}
	return nil
}

// FindActive retrieves a live, unexpired record by id and owner.
// Returns ErrTokenNotFound when no such record exists; any other error
// is an operational failure.
func (r *SQLiteTokenRepository) FindActive(ctx context.Context, id, userID int64) (*RefreshTokenRecord, error) {
	var rec RefreshTokenRecord
	var expiresAt, createdAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, expires_at, created_at
		 FROM refresh_tokens WHERE id = ? AND user_id = ? AND expires_at > ?`,
		id, userID, time.Now().UTC().Format(time.RFC3339),
	).Scan(&rec.ID, &rec.UserID, &expiresAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("finding refresh token record: %w", err)
	}

	rec.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt) //nolint:errcheck // format is controlled
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &rec, nil
}

// DeleteExpired removes records whose expiry has passed, freeing storage.
// Returns the number of deleted rows.
func (r *SQLiteTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE expires_at <= ?",
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("deleting expired refresh token records: %w", err)
	}

	count, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return count, nil
}
