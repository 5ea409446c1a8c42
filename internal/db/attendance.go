package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/models"
)

const attendanceColumns = `
	id, student_id, class_id, attendance_date, day_type, status,
	checked_at, method, created_by, is_compensatory, compensated_for_date`

func scanAttendance(row interface{ Scan(...any) error }) (models.AttendanceRecord, error) {
	var r models.AttendanceRecord
	err := row.Scan(
		&r.ID, &r.StudentID, &r.ClassID, &r.AttendanceDate, &r.DayType, &r.Status,
		&r.CheckedAt, &r.Method, &r.CreatedBy, &r.IsCompensatory, &r.CompensatedForDate,
	)
	return r, err
}

// UpsertRegularAttendance writes a regular check-in; re-checking the same
// (student, date, session) overwrites status, time and method in place.
func UpsertRegularAttendance(ctx context.Context, database *sql.DB, r models.AttendanceRecord) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO attendance_records
			(student_id, class_id, attendance_date, day_type, status, checked_at, method, created_by, is_compensatory)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE)
		ON CONFLICT (student_id, attendance_date, day_type) WHERE NOT is_compensatory
		DO UPDATE SET status = EXCLUDED.status, checked_at = EXCLUDED.checked_at, method = EXCLUDED.method
		RETURNING id
	`, r.StudentID, r.ClassID, r.AttendanceDate, r.DayType, r.Status, r.CheckedAt, r.Method, r.CreatedBy).Scan(&id)
	return id, err
}

// InsertCompensatoryAttendance inserts a make-up credit. No upsert: the
// partial unique index on (student, compensated_for_date) makes the loser
// of a race fail with a duplicate-key error.
func InsertCompensatoryAttendance(ctx context.Context, database *sql.DB, r models.AttendanceRecord) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO attendance_records
			(student_id, class_id, attendance_date, day_type, status, checked_at, method, created_by, is_compensatory, compensated_for_date)
		VALUES ($1, $2, $3, 'thu5', 'present', $4, $5, $6, TRUE, $7)
		RETURNING id
	`, r.StudentID, r.ClassID, r.AttendanceDate, r.CheckedAt, r.Method, r.CreatedBy, r.CompensatedForDate).Scan(&id)
	return id, err
}

func GetAttendanceByID(ctx context.Context, database *sql.DB, id int64) (*models.AttendanceRecord, error) {
	row := database.QueryRowContext(ctx,
		`SELECT`+attendanceColumns+` FROM attendance_records WHERE id = $1`, id)
	r, err := scanAttendance(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

func DeleteAttendance(ctx context.Context, database *sql.DB, id int64) error {
	res, err := database.ExecContext(ctx, `DELETE FROM attendance_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetRegularAttendance returns the non-compensatory record for the natural
// key, or nil.
func GetRegularAttendance(ctx context.Context, database *sql.DB, studentID int64, date time.Time, dayType models.SessionType) (*models.AttendanceRecord, error) {
	row := database.QueryRowContext(ctx,
		`SELECT`+attendanceColumns+`
		FROM attendance_records
		WHERE student_id = $1 AND attendance_date = $2 AND day_type = $3 AND NOT is_compensatory`,
		studentID, date, dayType)
	r, err := scanAttendance(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// GetCompensatoryCredit returns the present make-up record substituting for
// the given anchor Thursday, or nil.
func GetCompensatoryCredit(ctx context.Context, database *sql.DB, studentID int64, anchor time.Time) (*models.AttendanceRecord, error) {
	row := database.QueryRowContext(ctx,
		`SELECT`+attendanceColumns+`
		FROM attendance_records
		WHERE student_id = $1 AND compensated_for_date = $2
		  AND is_compensatory AND status = 'present'`,
		studentID, anchor)
	r, err := scanAttendance(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// ListClassAttendanceOn returns every record of a class dated to one day,
// regular and compensatory alike (compensatory rows are dated to their
// anchor).
func ListClassAttendanceOn(ctx context.Context, database *sql.DB, classID int64, date time.Time) ([]models.AttendanceRecord, error) {
	rows, err := database.QueryContext(ctx,
		`SELECT`+attendanceColumns+`
		FROM attendance_records
		WHERE class_id = $1 AND attendance_date = $2
		ORDER BY student_id, is_compensatory`,
		classID, date)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.AttendanceRecord
	for rows.Next() {
		r, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
