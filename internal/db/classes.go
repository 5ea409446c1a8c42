package db

import (
	"context"
	"database/sql"

	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/models"
)

func CreateClass(ctx context.Context, database *sql.DB, c models.Class) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO classes (name, branch, display_order, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, c.Name, c.Branch, c.DisplayOrder, c.IsActive).Scan(&id)
	return id, err
}

func GetClassByID(ctx context.Context, database *sql.DB, id int64) (*models.Class, error) {
	row := database.QueryRowContext(ctx, `
		SELECT id, name, branch, display_order, is_active FROM classes WHERE id = $1
	`, id)
	var c models.Class
	if err := row.Scan(&c.ID, &c.Name, &c.Branch, &c.DisplayOrder, &c.IsActive); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// ListClasses returns classes in display order; branch filters when
// non-empty, inactive classes are kept only when includeInactive is set.
func ListClasses(ctx context.Context, database *sql.DB, branch models.Branch, includeInactive bool) ([]models.Class, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT id, name, branch, display_order, is_active
		FROM classes
		WHERE ($1 = '' OR branch = $1)
		  AND (is_active OR $2)
		ORDER BY display_order, name
	`, string(branch), includeInactive)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Class
	for rows.Next() {
		var c models.Class
		if err := rows.Scan(&c.ID, &c.Name, &c.Branch, &c.DisplayOrder, &c.IsActive); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func SetClassStatus(ctx context.Context, database *sql.DB, id int64, active bool) error {
	res, err := database.ExecContext(ctx, `UPDATE classes SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
