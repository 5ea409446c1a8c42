// Package attendance enforces the weekly check-in rules: one Thursday
// credit per student per week, earned either on the Thursday itself or by a
// make-up on another weekday, never both.
package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/calendar"
	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/db"
	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/metrics"
	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/models"
)

// Validation rejections. All are user-facing and leave state unchanged.
var (
	ErrNotSessionDay      = errors.New("no regular session on this date")
	ErrWrongSessionDay    = errors.New("session type does not match this date")
	ErrNotCompensableDay  = errors.New("make-up check-ins are only allowed on non-session weekdays")
	ErrAlreadyAttended    = errors.New("already attended Thursday this week")
	ErrAlreadyCompensated = errors.New("already compensated this week")
	ErrAlreadyRecorded    = errors.New("a record already exists")
	ErrStudentInactive    = errors.New("student is not active")
	ErrStudentNotFound    = errors.New("student not found")
	ErrRecordNotFound     = errors.New("attendance record not found")
)

// IsValidation reports whether err is one of the rejection errors above,
// as opposed to a backend failure.
func IsValidation(err error) bool {
	for _, e := range []error{
		ErrNotSessionDay, ErrWrongSessionDay, ErrNotCompensableDay,
		ErrAlreadyAttended, ErrAlreadyCompensated, ErrAlreadyRecorded,
		ErrStudentInactive, ErrStudentNotFound, ErrRecordNotFound,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

type Service struct {
	database *sql.DB
	locks    *studentLimiter
	now      func() time.Time
}

func NewService(database *sql.DB) *Service {
	return &Service{
		database: database,
		locks:    newStudentLimiter(),
		now:      time.Now,
	}
}

func (s *Service) activeStudent(ctx context.Context, studentID int64) (*models.Student, error) {
	st, err := db.GetStudentByID(ctx, s.database, studentID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, ErrStudentNotFound
	}
	if !st.IsActive {
		return nil, ErrStudentInactive
	}
	return st, nil
}

// MarkRegular records a present/absent mark for the regular session held on
// date. For the Thursday session an existing make-up credit for the same
// week blocks the write; otherwise the mark upserts over the natural key,
// so re-checking overwrites status and time.
func (s *Service) MarkRegular(ctx context.Context, studentID int64, date time.Time, sessionType models.SessionType, status models.RecordStatus, method string, createdBy *int64) (*models.AttendanceRecord, error) {
	actual, ok := calendar.SessionTypeFor(date)
	if !ok {
		return nil, ErrNotSessionDay
	}
	if actual != sessionType {
		return nil, ErrWrongSessionDay
	}

	unlock := s.locks.lock(studentID)
	defer unlock()

	st, err := s.activeStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	date = calendar.Midnight(date)
	if sessionType == models.SessionThursday {
		credit, err := db.GetCompensatoryCredit(ctx, s.database, studentID, date)
		if err != nil {
			return nil, err
		}
		if credit != nil {
			metrics.CheckinRejected("already_compensated")
			return nil, ErrAlreadyCompensated
		}
	}

	rec := models.AttendanceRecord{
		StudentID:      studentID,
		ClassID:        st.ClassID,
		AttendanceDate: date,
		DayType:        sessionType,
		Status:         status,
		CheckedAt:      s.now(),
		Method:         method,
		CreatedBy:      createdBy,
	}
	id, err := db.UpsertRegularAttendance(ctx, s.database, rec)
	if err != nil {
		if db.IsDuplicate(err) {
			metrics.CheckinRejected("duplicate")
			return nil, ErrAlreadyRecorded
		}
		return nil, err
	}
	rec.ID = id

	if err := db.RecomputeStudentTallies(ctx, s.database, studentID); err != nil {
		return nil, err
	}
	metrics.CheckinRecorded("regular")
	return &rec, nil
}

// MarkCompensatory records a make-up credit for the week of date. The
// record is stored against the anchor Thursday, not the physical check-in
// day, so all Thursday credit lands on one date for tallying.
func (s *Service) MarkCompensatory(ctx context.Context, studentID int64, date time.Time, method string, createdBy *int64) (*models.AttendanceRecord, error) {
	if !calendar.IsCompensableWeekday(date) {
		return nil, ErrNotCompensableDay
	}
	anchor := calendar.AnchorThursday(date)

	unlock := s.locks.lock(studentID)
	defer unlock()

	st, err := s.activeStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	regular, err := db.GetRegularAttendance(ctx, s.database, studentID, anchor, models.SessionThursday)
	if err != nil {
		return nil, err
	}
	if regular != nil && regular.Status == models.StatusPresent {
		metrics.CheckinRejected("already_attended")
		return nil, ErrAlreadyAttended
	}

	credit, err := db.GetCompensatoryCredit(ctx, s.database, studentID, anchor)
	if err != nil {
		return nil, err
	}
	if credit != nil {
		metrics.CheckinRejected("already_compensated")
		return nil, ErrAlreadyCompensated
	}

	rec := models.AttendanceRecord{
		StudentID:          studentID,
		ClassID:            st.ClassID,
		AttendanceDate:     anchor,
		DayType:            models.SessionThursday,
		Status:             models.StatusPresent,
		CheckedAt:          s.now(),
		Method:             method,
		CreatedBy:          createdBy,
		IsCompensatory:     true,
		CompensatedForDate: &anchor,
	}
	id, err := db.InsertCompensatoryAttendance(ctx, s.database, rec)
	if err != nil {
		// Lost a cross-process race; the unique index is the backstop.
		if db.IsDuplicate(err) {
			metrics.CheckinRejected("duplicate")
			return nil, ErrAlreadyRecorded
		}
		return nil, err
	}
	rec.ID = id

	if err := db.RecomputeStudentTallies(ctx, s.database, studentID); err != nil {
		return nil, err
	}
	metrics.CheckinRecorded("compensatory")
	return &rec, nil
}

// Clear deletes one attendance record and recomputes the owner's tallies,
// since the stored counters are derived.
func (s *Service) Clear(ctx context.Context, recordID int64) error {
	rec, err := db.GetAttendanceByID(ctx, s.database, recordID)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrRecordNotFound
	}

	unlock := s.locks.lock(rec.StudentID)
	defer unlock()

	if err := db.DeleteAttendance(ctx, s.database, recordID); err != nil {
		if err == sql.ErrNoRows {
			return ErrRecordNotFound
		}
		return err
	}
	return db.RecomputeStudentTallies(ctx, s.database, rec.StudentID)
}

// WeekStatus resolves the Thursday-slot state for the week containing date.
// Check order: regular present, then make-up credit, then explicit absent.
func (s *Service) WeekStatus(ctx context.Context, studentID int64, date time.Time) (models.WeekState, error) {
	anchor := calendar.AnchorThursday(date)

	regular, err := db.GetRegularAttendance(ctx, s.database, studentID, anchor, models.SessionThursday)
	if err != nil {
		return "", err
	}
	if regular != nil && regular.Status == models.StatusPresent {
		return models.WeekRegularPresent, nil
	}

	credit, err := db.GetCompensatoryCredit(ctx, s.database, studentID, anchor)
	if err != nil {
		return "", err
	}
	if credit != nil {
		return models.WeekCompensatedPresent, nil
	}

	if regular != nil && regular.Status == models.StatusAbsent {
		return models.WeekAbsent, nil
	}
	return models.WeekUnmarked, nil
}

// ClassWeekView builds the roster rows for the week of date: every active
// student of the class with their resolved Thursday-slot state.
func (s *Service) ClassWeekView(ctx context.Context, classID int64, date time.Time) ([]models.StudentAttendanceView, error) {
	anchor := calendar.AnchorThursday(date)

	students, err := db.ListStudentsByClass(ctx, s.database, classID, false)
	if err != nil {
		return nil, err
	}
	records, err := db.ListClassAttendanceOn(ctx, s.database, classID, anchor)
	if err != nil {
		return nil, err
	}

	type slot struct {
		regular *models.AttendanceRecord
		credit  *models.AttendanceRecord
	}
	byStudent := make(map[int64]*slot, len(records))
	for i := range records {
		r := &records[i]
		if r.DayType != models.SessionThursday {
			continue
		}
		sl, ok := byStudent[r.StudentID]
		if !ok {
			sl = &slot{}
			byStudent[r.StudentID] = sl
		}
		if r.IsCompensatory {
			if r.Status == models.StatusPresent {
				sl.credit = r
			}
		} else {
			sl.regular = r
		}
	}

	out := make([]models.StudentAttendanceView, 0, len(students))
	for _, st := range students {
		view := models.StudentAttendanceView{Student: st, Anchor: anchor, State: models.WeekUnmarked}
		if sl, ok := byStudent[st.ID]; ok {
			switch {
			case sl.regular != nil && sl.regular.Status == models.StatusPresent:
				view.State = models.WeekRegularPresent
				view.RecordID = &sl.regular.ID
			case sl.credit != nil:
				view.State = models.WeekCompensatedPresent
				view.RecordID = &sl.credit.ID
			case sl.regular != nil:
				view.State = models.WeekAbsent
				view.RecordID = &sl.regular.ID
			}
		}
		out = append(out, view)
	}
	return out, nil
}
