package jobs

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/ctxutil"
	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/db"
	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/observability"
)

// ReconcileTallies rebuilds every student's derived attendance counters
// from attendance_records. Normal writes keep them in sync; this guards
// against drift after manual data fixes.
func ReconcileTallies(database *sql.DB, log *zap.Logger) Job {
	return func(ctx context.Context) error {
		ctx, cancel := ctxutil.WithDBTimeout(ctx)
		defer cancel()

		fixed, err := db.RecomputeAllTallies(ctx, database)
		if err != nil {
			observability.CaptureErr(err)
			return err
		}
		if fixed > 0 {
			log.Warn("attendance tallies drifted", zap.Int64("students_fixed", fixed))
		}
		return nil
	}
}

// SchoolYearRollover flags an overdue school year: the current year ended
// but nothing replaced it, so attendance rates are being computed against
// stale week counts.
func SchoolYearRollover(database *sql.DB, log *zap.Logger, now func() time.Time) Job {
	return func(ctx context.Context) error {
		ctx, cancel := ctxutil.WithDBTimeout(ctx)
		defer cancel()

		year, err := db.GetCurrentSchoolYear(ctx, database)
		if err != nil {
			observability.CaptureErr(err)
			return err
		}
		if year == nil {
			log.Warn("no current school year configured; using default week count")
			return nil
		}
		if now().After(year.EndDate.AddDate(0, 0, 1)) {
			log.Warn("current school year has ended",
				zap.String("year", year.Name),
				zap.Time("ended", year.EndDate))
			observability.CaptureMsg("school year " + year.Name + " ended but is still current")
		}
		return nil
	}
}
