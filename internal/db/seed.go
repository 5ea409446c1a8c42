package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/models"
)

// Seed creates the current school year when none exists yet, so a fresh
// install can take attendance immediately. Sep 1 through the end of May.
func Seed(ctx context.Context, database *sql.DB, parishName string, now time.Time) error {
	cur, err := GetCurrentSchoolYear(ctx, database)
	if err != nil {
		return err
	}
	if cur != nil {
		return nil
	}

	startYear := YearStartYear(now)
	start := time.Date(startYear, time.September, 1, 0, 0, 0, 0, now.Location())
	end := time.Date(startYear+1, time.May, 31, 0, 0, 0, 0, now.Location())

	id, err := CreateSchoolYear(ctx, database, models.SchoolYear{
		Name:       YearLabel(startYear),
		StartDate:  start,
		EndDate:    end,
		TotalWeeks: WeeksBetween(start, end),
		ParishName: parishName,
	})
	if err != nil {
		return err
	}
	return SetCurrentSchoolYear(ctx, database, id)
}
