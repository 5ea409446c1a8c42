package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/models"
)

// YearStart returns the start of the catechism year containing t
// (1 September, 00:00:00 local).
func YearStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	startYear := y
	if m < time.September {
		startYear = y - 1
	}
	return time.Date(startYear, time.September, 1, 0, 0, 0, 0, t.Location())
}

// YearStartYear returns the starting calendar year of the catechism year
// containing t (e.g. 2025-03-01 → 2024).
func YearStartYear(t time.Time) int {
	if t.Month() < time.September {
		return t.Year() - 1
	}
	return t.Year()
}

// YearLabel formats a school-year name: "2025–2026".
func YearLabel(startYear int) string {
	return fmt.Sprintf("%d–%d", startYear, startYear+1)
}

// WeeksBetween counts 7-day intervals in [from, to] starting at from,
// a partial trailing interval counting as a full week. 0 for a reversed
// range.
func WeeksBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	days := int(to.Sub(from).Hours()/24) + 1
	weeks := days / 7
	if days%7 != 0 {
		weeks++
	}
	return weeks
}

// GetCurrentSchoolYear returns the year flagged current, or nil when none
// is configured; callers fall back to scoring.DefaultTotalWeeks.
func GetCurrentSchoolYear(ctx context.Context, database *sql.DB) (*models.SchoolYear, error) {
	row := database.QueryRowContext(ctx, `
		SELECT id, name, start_date, end_date, total_weeks, parish_name, is_current
		FROM school_years
		WHERE is_current
		LIMIT 1
	`)
	var y models.SchoolYear
	if err := row.Scan(&y.ID, &y.Name, &y.StartDate, &y.EndDate, &y.TotalWeeks, &y.ParishName, &y.IsCurrent); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &y, nil
}

func CreateSchoolYear(ctx context.Context, database *sql.DB, y models.SchoolYear) (int64, error) {
	if !y.StartDate.Before(y.EndDate) {
		return 0, fmt.Errorf("school year %q: end date must come after start date", y.Name)
	}
	if y.TotalWeeks <= 0 {
		y.TotalWeeks = WeeksBetween(y.StartDate, y.EndDate)
	}
	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO school_years (name, start_date, end_date, total_weeks, parish_name, is_current)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		RETURNING id
	`, y.Name, y.StartDate, y.EndDate, y.TotalWeeks, y.ParishName).Scan(&id)
	return id, err
}

// SetCurrentSchoolYear flips the is_current flag to the given year inside
// one transaction; the partial unique index keeps the flag a singleton.
func SetCurrentSchoolYear(ctx context.Context, database *sql.DB, id int64) error {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE school_years SET is_current = FALSE WHERE is_current`); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE school_years SET is_current = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}

func ListSchoolYears(ctx context.Context, database *sql.DB) ([]models.SchoolYear, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT id, name, start_date, end_date, total_weeks, parish_name, is_current
		FROM school_years
		ORDER BY start_date DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.SchoolYear
	for rows.Next() {
		var y models.SchoolYear
		if err := rows.Scan(&y.ID, &y.Name, &y.StartDate, &y.EndDate, &y.TotalWeeks, &y.ParishName, &y.IsCurrent); err != nil {
			return nil, err
		}
		out = append(out, y)
	}
	return out, rows.Err()
}
