package auth

import (
	"errors"
	"testing"
)

func TestTenantRepositoryCreateAndGet(t *testing.T) {
	db := testDB(t)
	repo := NewTenantRepository(db)

	tenant := &Tenant{Name: "Globex", Address: "100 Industrial Way"}
	if err := repo.Create(t.Context(), tenant); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tenant.ID == 0 {
		t.Error("tenant id not assigned")
	}

	got, err := repo.GetByID(t.Context(), tenant.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Globex" || got.Address != "100 Industrial Way" {
		t.Errorf("got %+v", got)
	}

	if _, err := repo.GetByID(t.Context(), 99999); !errors.Is(err, ErrTenantNotFound) {
		t.Errorf("err = %v, want ErrTenantNotFound", err)
	}
}

func TestTenantRepositoryList(t *testing.T) {
	db := testDB(t)
	repo := NewTenantRepository(db)
	seedTestTenant(t, db, "Acme Corp")
	seedTestTenant(t, db, "Globex")
	seedTestTenant(t, db, "Acme Labs")

	t.Run("all", func(t *testing.T) {
		tenants, total, err := repo.List(t.Context(), 1, 10, "")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if total != 3 || len(tenants) != 3 {
			t.Errorf("got %d/%d tenants, want 3/3", len(tenants), total)
		}
	})

	t.Run("filtered by name", func(t *testing.T) {
		tenants, total, err := repo.List(t.Context(), 1, 10, "Acme")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if total != 2 || len(tenants) != 2 {
			t.Errorf("got %d/%d tenants, want 2/2", len(tenants), total)
		}
	})

	t.Run("paged", func(t *testing.T) {
		tenants, total, err := repo.List(t.Context(), 2, 2, "")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if total != 3 {
			t.Errorf("total = %d, want 3", total)
		}
		if len(tenants) != 1 {
			t.Errorf("page 2 has %d tenants, want 1", len(tenants))
		}
	})

	t.Run("no match", func(t *testing.T) {
		tenants, total, err := repo.List(t.Context(), 1, 10, "zzz")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if total != 0 || len(tenants) != 0 {
			t.Errorf("got %d/%d tenants, want none", len(tenants), total)
		}
	})
}

func TestTenantRepositoryUpdate(t *testing.T) {
	db := testDB(t)
	repo := NewTenantRepository(db)
	tenant := seedTestTenant(t, db, "Before")

	tenant.Name = "After"
	tenant.Address = "2 New Road"
	if err := repo.Update(t.Context(), tenant); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := repo.GetByID(t.Context(), tenant.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "After" || got.Address != "2 New Road" {
		t.Errorf("got %+v", got)
	}

	ghost := &Tenant{ID: 99999, Name: "Ghost", Address: "Nowhere"}
	if err := repo.Update(t.Context(), ghost); !errors.Is(err, ErrTenantNotFound) {
		t.Errorf("err = %v, want ErrTenantNotFound", err)
	}
}

func TestTenantRepositoryDelete(t *testing.T) {
	db := testDB(t)
	repo := NewTenantRepository(db)
	tenant := seedTestTenant(t, db, "Doomed")

	if err := repo.Delete(t.Context(), tenant.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(t.Context(), tenant.ID); !errors.Is(err, ErrTenantNotFound) {
		t.Errorf("tenant still present after delete: err = %v", err)
	}
	if err := repo.Delete(t.Context(), tenant.ID); !errors.Is(err, ErrTenantNotFound) {
		t.Errorf("second delete: err = %v, want ErrTenantNotFound", err)
	}
}
