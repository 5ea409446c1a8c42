package models

import "time"

// SessionType identifies one of the two recurring weekly sessions.
type SessionType string

const (
	SessionThursday SessionType = "thu5" // weekly catechism class
	SessionSunday   SessionType = "cn"   // Sunday mass
)

func (s SessionType) Valid() bool {
	return s == SessionThursday || s == SessionSunday
}

// Branch is the age/program tier a class belongs to.
type Branch string

const (
	BranchChien  Branch = "chien"
	BranchAu     Branch = "au"
	BranchThieu  Branch = "thieu"
	BranchNghia  Branch = "nghia"
	BranchHiepSi Branch = "hiepsi"
)

func (b Branch) Valid() bool {
	switch b {
	case BranchChien, BranchAu, BranchThieu, BranchNghia, BranchHiepSi:
		return true
	default:
		return false
	}
}

type RecordStatus string

const (
	StatusPresent RecordStatus = "present"
	StatusAbsent  RecordStatus = "absent"
)

type Class struct {
	ID           int64  `db:"id"`
	Name         string `db:"name"`
	Branch       Branch `db:"branch"`
	DisplayOrder int    `db:"display_order"`
	IsActive     bool   `db:"is_active"`
}

// Student raw scores are pointers: nil means "not yet scored" in the UI,
// arithmetic coalesces them to 0.
type Student struct {
	ID          int64     `db:"id"`
	SaintName   *string   `db:"saint_name"`
	FullName    string    `db:"full_name"`
	Code        *string   `db:"code"`
	ClassID     int64     `db:"class_id"`
	IsActive    bool      `db:"is_active"`
	Score45HK1  *float64  `db:"score_45_hk1"`
	ScoreExamT1 *float64  `db:"score_exam_hk1"`
	Score45HK2  *float64  `db:"score_45_hk2"`
	ScoreExamT2 *float64  `db:"score_exam_hk2"`
	CountThu5   int       `db:"attendance_thu5"`
	CountCN     int       `db:"attendance_cn"`
	CreatedAt   time.Time `db:"created_at"`
}

type SchoolYear struct {
	ID         int64     `db:"id"`
	Name       string    `db:"name"`
	StartDate  time.Time `db:"start_date"`
	EndDate    time.Time `db:"end_date"`
	TotalWeeks int       `db:"total_weeks"`
	ParishName string    `db:"parish_name"`
	IsCurrent  bool      `db:"is_current"`
}

type AttendanceRecord struct {
	ID                 int64        `db:"id"`
	StudentID          int64        `db:"student_id"`
	ClassID            int64        `db:"class_id"`
	AttendanceDate     time.Time    `db:"attendance_date"`
	DayType            SessionType  `db:"day_type"`
	Status             RecordStatus `db:"status"`
	CheckedAt          time.Time    `db:"checked_at"`
	Method             string       `db:"method"`
	CreatedBy          *int64       `db:"created_by"`
	IsCompensatory     bool         `db:"is_compensatory"`
	CompensatedForDate *time.Time   `db:"compensated_for_date"`
}

// WeekState is the per-(student, week) state over the Thursday slot.
// RegularPresent and CompensatedPresent are mutually exclusive.
type WeekState string

const (
	WeekUnmarked           WeekState = "UNMARKED"
	WeekRegularPresent     WeekState = "REGULAR_PRESENT"
	WeekCompensatedPresent WeekState = "COMPENSATED_PRESENT"
	WeekAbsent             WeekState = "ABSENT"
)

// Credited reports whether the week already carries a Thursday credit.
func (s WeekState) Credited() bool {
	return s == WeekRegularPresent || s == WeekCompensatedPresent
}

// StudentAttendanceView is the read-only row the roster renders: the student
// plus their resolved state for one week. Derived, never persisted.
type StudentAttendanceView struct {
	Student  Student
	Anchor   time.Time
	State    WeekState
	RecordID *int64 // the record backing the state, when one exists
}
