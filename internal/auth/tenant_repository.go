package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// TenantRepository defines the interface for tenant persistence.
type TenantRepository interface {
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id int64) (*Tenant, error)
	List(ctx context.Context, page, perPage int, query string) ([]Tenant, int, error)
	Update(ctx context.Context, tenant *Tenant) error
	Delete(ctx context.Context, id int64) error
}

// SQLiteTenantRepository implements TenantRepository using SQLite.
type SQLiteTenantRepository struct {
	db *sql.DB
}

// NewTenantRepository creates a new SQLite-backed tenant repository.
func NewTenantRepository(db *sql.DB) *SQLiteTenantRepository {
	return &SQLiteTenantRepository{db: db}
}

// Create inserts a new tenant and assigns its generated id.
func (r *SQLiteTenantRepository) Create(ctx context.Context, tenant *Tenant) error {
	now := time.Now().UTC()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO tenants (name, address, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		tenant.Name, tenant.Address, now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating tenant: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading tenant id: %w", err)
	}
	tenant.ID = id

	return nil
}

// GetByID retrieves a tenant by its unique id.
func (r *SQLiteTenantRepository) GetByID(ctx context.Context, id int64) (*Tenant, error) {
	var t Tenant
	var createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, address, created_at, updated_at FROM tenants WHERE id = ?", id,
	).Scan(&t.ID, &t.Name, &t.Address, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("getting tenant: %w", err)
	}

	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &t, nil
}

// List returns one page of tenants plus the total count. A non-empty query
// filters by substring match on name or address.
func (r *SQLiteTenantRepository) List(ctx context.Context, page, perPage int, query string) ([]Tenant, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}

	where := ""
	args := []any{}
	if query != "" {
		where = " WHERE name LIKE ? OR address LIKE ?"
		pattern := "%" + query + "%"
		args = append(args, pattern, pattern)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tenants"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting tenants: %w", err)
	}

	args = append(args, perPage, (page-1)*perPage)
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, address, created_at, updated_at FROM tenants"+where+" ORDER BY id ASC LIMIT ? OFFSET ?",
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	tenants := []Tenant{}
	for rows.Next() {
		var t Tenant
		var createdAt, updatedAt string
		if err := rows.Scan(&t.ID, &t.Name, &t.Address, &createdAt, &updatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning tenant: %w", err)
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
		t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating tenants: %w", err)
	}

	return tenants, total, nil
}

// Update modifies a tenant's name and address.
func (r *SQLiteTenantRepository) Update(ctx context.Context, tenant *Tenant) error {
	now := time.Now().UTC()
	tenant.UpdatedAt = now

	result, err := r.db.ExecContext(ctx,
		"UPDATE tenants SET name = ?, address = ?, updated_at = ? WHERE id = ?",
		tenant.Name, tenant.Address, now.Format(time.RFC3339), tenant.ID,
	)
	if err != nil {
		return fmt.Errorf("updating tenant: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// Delete removes a tenant by id. Users keep their accounts; their
// tenant association is cleared by the schema's ON DELETE SET NULL.
func (r *SQLiteTenantRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM tenants WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting tenant: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrTenantNotFound
	}
	return nil
}
