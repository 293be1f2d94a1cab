package postgres

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/fastprodman/perlas-wallet/internal/infra/pgtestutil"
	"github.com/fastprodman/perlas-wallet/internal/infra/pgutils"
	"github.com/fastprodman/perlas-wallet/internal/repos/users"
)

func TestUsers_Lookup_Table(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	_, err := db.Exec(`INSERT INTO users (id, username, display_name) VALUES (42, 'Marina', 'Marina P')`)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	repo := New(db)

	tests := []struct {
		name     string
		username string
		wantID   uint64
		wantErr  error
	}{
		{name: "exact", username: "Marina", wantID: 42},
		{name: "case_insensitive", username: "marina", wantID: 42},
		{name: "missing", username: "nobody", wantErr: users.ErrUserNotFound},
		{name: "platform_seeded", username: "platform", wantID: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := repo.GetByUsername(t.Context(), tt.username)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("get by username: %v", err)
			}
			if u.ID != tt.wantID {
				t.Fatalf("id = %d, want %d", u.ID, tt.wantID)
			}
		})
	}
}

func TestUsers_Exists(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)

	err := pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
		return repo.Exists(tx, 1)
	})
	if err != nil {
		t.Fatalf("platform user must exist: %v", err)
	}

	err = pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
		return repo.Exists(tx, 123_456)
	})
	if !errors.Is(err, users.ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
}
