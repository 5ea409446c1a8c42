package db

import (
	"context"
	"database/sql"

	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/models"
)

const studentColumns = `
	id, saint_name, full_name, code, class_id, is_active,
	score_45_hk1, score_exam_hk1, score_45_hk2, score_exam_hk2,
	attendance_thu5, attendance_cn, created_at`

func scanStudent(row interface{ Scan(...any) error }) (models.Student, error) {
	var s models.Student
	err := row.Scan(
		&s.ID, &s.SaintName, &s.FullName, &s.Code, &s.ClassID, &s.IsActive,
		&s.Score45HK1, &s.ScoreExamT1, &s.Score45HK2, &s.ScoreExamT2,
		&s.CountThu5, &s.CountCN, &s.CreatedAt,
	)
	return s, err
}

func CreateStudent(ctx context.Context, database *sql.DB, s models.Student) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO students (saint_name, full_name, code, class_id, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, s.SaintName, s.FullName, s.Code, s.ClassID, s.IsActive).Scan(&id)
	return id, err
}

func GetStudentByID(ctx context.Context, database *sql.DB, id int64) (*models.Student, error) {
	row := database.QueryRowContext(ctx,
		`SELECT`+studentColumns+` FROM students WHERE id = $1`, id)
	s, err := scanStudent(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ListStudentsByClass returns the class roster ordered by name; inactive
// students are included only when includeInactive is set (they are never
// eligible for attendance actions).
func ListStudentsByClass(ctx context.Context, database *sql.DB, classID int64, includeInactive bool) ([]models.Student, error) {
	rows, err := database.QueryContext(ctx,
		`SELECT`+studentColumns+`
		FROM students
		WHERE class_id = $1 AND (is_active OR $2)
		ORDER BY full_name`, classID, includeInactive)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SetStudentScores writes the four raw score slots; nil clears a slot back
// to "not yet scored".
func SetStudentScores(ctx context.Context, database *sql.DB, id int64, s45t1, sexT1, s45t2, sexT2 *float64) error {
	res, err := database.ExecContext(ctx, `
		UPDATE students
		SET score_45_hk1 = $2, score_exam_hk1 = $3, score_45_hk2 = $4, score_exam_hk2 = $5
		WHERE id = $1
	`, id, s45t1, sexT1, s45t2, sexT2)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func SetStudentStatus(ctx context.Context, database *sql.DB, id int64, active bool) error {
	res, err := database.ExecContext(ctx, `UPDATE students SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RecomputeStudentTallies rebuilds the derived attendance counters from
// attendance_records. Compensatory records are dated to their anchor
// Thursday with day_type 'thu5', so a plain per-type count credits them.
func RecomputeStudentTallies(ctx context.Context, database *sql.DB, studentID int64) error {
	_, err := database.ExecContext(ctx, `
		UPDATE students SET
			attendance_thu5 = (
				SELECT COUNT(*) FROM attendance_records
				WHERE student_id = $1 AND day_type = 'thu5' AND status = 'present'
			),
			attendance_cn = (
				SELECT COUNT(*) FROM attendance_records
				WHERE student_id = $1 AND day_type = 'cn' AND status = 'present'
			)
		WHERE id = $1
	`, studentID)
	return err
}

// RecomputeAllTallies is the bulk variant used by the nightly
// reconciliation job.
func RecomputeAllTallies(ctx context.Context, database *sql.DB) (int64, error) {
	res, err := database.ExecContext(ctx, `
		UPDATE students s SET
			attendance_thu5 = c.thu5,
			attendance_cn = c.cn
		FROM (
			SELECT st.id,
				COUNT(ar.id) FILTER (WHERE ar.day_type = 'thu5' AND ar.status = 'present') AS thu5,
				COUNT(ar.id) FILTER (WHERE ar.day_type = 'cn' AND ar.status = 'present') AS cn
			FROM students st
			LEFT JOIN attendance_records ar ON ar.student_id = st.id
			GROUP BY st.id
		) c
		WHERE s.id = c.id
		  AND (s.attendance_thu5 <> c.thu5 OR s.attendance_cn <> c.cn)
	`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
