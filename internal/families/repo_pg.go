package families

import (
	"context"
	"database/sql"
	"errors"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, fam Family) error {
	_, err := r.DB.ExecContext(ctx, `
INSERT INTO families (id, name, created_at) VALUES ($1, $2, $3)`,
		fam.ID, fam.Name, fam.CreatedAt)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, familyID string) (Family, error) {
	var fam Family
	err := r.DB.QueryRowContext(ctx, `
SELECT id, name, created_at FROM families WHERE id = $1 LIMIT 1`, familyID).
		Scan(&fam.ID, &fam.Name, &fam.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Family{}, ErrNotFound
		}
		return Family{}, err
	}
	return fam, nil
}

func (r *PGRepo) Rename(ctx context.Context, familyID, name string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE families SET name = $1 WHERE id = $2`, name, familyID)
	if err != nil {
		return err
	}
	updated, _ := res.RowsAffected()
	if updated == 0 {
		return ErrNotFound
	}
	return nil
}
