//go:build testutil
// +build testutil

package attendance_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/attendance"
	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/db"
	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/models"
	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/testutil/testdb"
)

var (
	wednesday = time.Date(2025, 11, 12, 0, 0, 0, 0, time.UTC)
	thursday  = time.Date(2025, 11, 13, 0, 0, 0, 0, time.UTC)
	sunday    = time.Date(2025, 11, 16, 0, 0, 0, 0, time.UTC)
)

func mustSeedClass(t *testing.T, database *sql.DB) int64 {
	t.Helper()
	id, err := db.CreateClass(context.Background(), database, models.Class{
		Name: "Thiếu Nhi 1", Branch: models.BranchThieu, IsActive: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func mustSeedStudent(t *testing.T, database *sql.DB, classID int64, name string) int64 {
	t.Helper()
	id, err := db.CreateStudent(context.Background(), database, models.Student{
		FullName: name, ClassID: classID, IsActive: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func tallies(t *testing.T, database *sql.DB, studentID int64) (int, int) {
	t.Helper()
	st, err := db.GetStudentByID(context.Background(), database, studentID)
	if err != nil || st == nil {
		t.Fatalf("student %d: %v", studentID, err)
	}
	return st.CountThu5, st.CountCN
}

func TestCompensateThenRegular_Rejected(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	ctx := context.Background()

	svc := attendance.NewService(h.DB)
	classID := mustSeedClass(t, h.DB)
	stID := mustSeedStudent(t, h.DB, classID, "Phêrô Nguyễn Văn An")

	// Make-up on Wednesday lands on the anchor Thursday.
	rec, err := svc.MarkCompensatory(ctx, stID, wednesday, "manual", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !rec.AttendanceDate.Equal(thursday) || !rec.IsCompensatory {
		t.Fatalf("record not normalized to anchor: %+v", rec)
	}
	if rec.CompensatedForDate == nil || !rec.CompensatedForDate.Equal(thursday) {
		t.Fatalf("compensated_for_date = %v", rec.CompensatedForDate)
	}

	state, err := svc.WeekStatus(ctx, stID, wednesday)
	if err != nil {
		t.Fatal(err)
	}
	if state != models.WeekCompensatedPresent {
		t.Fatalf("state = %s, want COMPENSATED_PRESENT", state)
	}

	// The regular Thursday check-in for the same week must now fail.
	_, err = svc.MarkRegular(ctx, stID, thursday, models.SessionThursday, models.StatusPresent, "manual", nil)
	if !errors.Is(err, attendance.ErrAlreadyCompensated) {
		t.Fatalf("err = %v, want ErrAlreadyCompensated", err)
	}

	if thu5, _ := tallies(t, h.DB, stID); thu5 != 1 {
		t.Fatalf("thu5 tally = %d, want 1", thu5)
	}
}

func TestRegularThenCompensate_Rejected(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	ctx := context.Background()

	svc := attendance.NewService(h.DB)
	classID := mustSeedClass(t, h.DB)
	stID := mustSeedStudent(t, h.DB, classID, "Maria Trần Thị Bình")

	if _, err := svc.MarkRegular(ctx, stID, thursday, models.SessionThursday, models.StatusPresent, "qr", nil); err != nil {
		t.Fatal(err)
	}

	_, err = svc.MarkCompensatory(ctx, stID, wednesday, "manual", nil)
	if !errors.Is(err, attendance.ErrAlreadyAttended) {
		t.Fatalf("err = %v, want ErrAlreadyAttended", err)
	}

	state, err := svc.WeekStatus(ctx, stID, sunday)
	if err != nil {
		t.Fatal(err)
	}
	if state != models.WeekRegularPresent {
		t.Fatalf("state = %s, want REGULAR_PRESENT", state)
	}
}

func TestMarkRegular_UpsertOverwrites(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	ctx := context.Background()

	svc := attendance.NewService(h.DB)
	classID := mustSeedClass(t, h.DB)
	stID := mustSeedStudent(t, h.DB, classID, "Giuse Lê Văn Cường")

	first, err := svc.MarkRegular(ctx, stID, thursday, models.SessionThursday, models.StatusAbsent, "manual", nil)
	if err != nil {
		t.Fatal(err)
	}
	if state, _ := svc.WeekStatus(ctx, stID, thursday); state != models.WeekAbsent {
		t.Fatalf("state after absent mark = %s", state)
	}

	second, err := svc.MarkRegular(ctx, stID, thursday, models.SessionThursday, models.StatusPresent, "qr", nil)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert created a second row: %d then %d", first.ID, second.ID)
	}
	if state, _ := svc.WeekStatus(ctx, stID, thursday); state != models.WeekRegularPresent {
		t.Fatalf("state after re-check-in = %s", state)
	}

	// An absent record never blocked the make-up path, a present one does.
	_, err = svc.MarkCompensatory(ctx, stID, wednesday, "manual", nil)
	if !errors.Is(err, attendance.ErrAlreadyAttended) {
		t.Fatalf("err = %v, want ErrAlreadyAttended", err)
	}
}

func TestClearThenRemark_RoundTrip(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	ctx := context.Background()

	svc := attendance.NewService(h.DB)
	classID := mustSeedClass(t, h.DB)
	stID := mustSeedStudent(t, h.DB, classID, "Anna Phạm Thị Dung")

	rec, err := svc.MarkCompensatory(ctx, stID, wednesday, "manual", nil)
	if err != nil {
		t.Fatal(err)
	}
	if thu5, _ := tallies(t, h.DB, stID); thu5 != 1 {
		t.Fatalf("thu5 tally = %d, want 1", thu5)
	}

	if err := svc.Clear(ctx, rec.ID); err != nil {
		t.Fatal(err)
	}
	if state, _ := svc.WeekStatus(ctx, stID, wednesday); state != models.WeekUnmarked {
		t.Fatalf("state after clear = %s", state)
	}
	if thu5, _ := tallies(t, h.DB, stID); thu5 != 0 {
		t.Fatalf("thu5 tally after clear = %d, want 0", thu5)
	}

	// Clearing twice reports the record gone.
	if err := svc.Clear(ctx, rec.ID); !errors.Is(err, attendance.ErrRecordNotFound) {
		t.Fatalf("second clear: %v", err)
	}

	// Re-marking reproduces the credited state.
	if _, err := svc.MarkCompensatory(ctx, stID, wednesday, "manual", nil); err != nil {
		t.Fatal(err)
	}
	if state, _ := svc.WeekStatus(ctx, stID, wednesday); state != models.WeekCompensatedPresent {
		t.Fatalf("state after re-mark = %s", state)
	}
}

func TestMarkRules_DateValidation(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	ctx := context.Background()

	svc := attendance.NewService(h.DB)
	classID := mustSeedClass(t, h.DB)
	stID := mustSeedStudent(t, h.DB, classID, "Đaminh Hoàng Văn Em")

	// No regular session on a Wednesday.
	if _, err := svc.MarkRegular(ctx, stID, wednesday, models.SessionThursday, models.StatusPresent, "manual", nil); !errors.Is(err, attendance.ErrNotSessionDay) {
		t.Fatalf("wednesday regular: %v", err)
	}
	// Thursday is not a Sunday session.
	if _, err := svc.MarkRegular(ctx, stID, thursday, models.SessionSunday, models.StatusPresent, "manual", nil); !errors.Is(err, attendance.ErrWrongSessionDay) {
		t.Fatalf("mismatched session: %v", err)
	}
	// No make-ups on session days.
	if _, err := svc.MarkCompensatory(ctx, stID, thursday, "manual", nil); !errors.Is(err, attendance.ErrNotCompensableDay) {
		t.Fatalf("thursday make-up: %v", err)
	}
	if _, err := svc.MarkCompensatory(ctx, stID, sunday, "manual", nil); !errors.Is(err, attendance.ErrNotCompensableDay) {
		t.Fatalf("sunday make-up: %v", err)
	}

	// Inactive students take no attendance actions.
	if err := db.SetStudentStatus(ctx, h.DB, stID, false); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.MarkRegular(ctx, stID, thursday, models.SessionThursday, models.StatusPresent, "manual", nil); !errors.Is(err, attendance.ErrStudentInactive) {
		t.Fatalf("inactive regular: %v", err)
	}
}

func TestSundaySession_IndependentOfThursday(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	ctx := context.Background()

	svc := attendance.NewService(h.DB)
	classID := mustSeedClass(t, h.DB)
	stID := mustSeedStudent(t, h.DB, classID, "Têrêsa Vũ Thị Hoa")

	if _, err := svc.MarkCompensatory(ctx, stID, wednesday, "manual", nil); err != nil {
		t.Fatal(err)
	}
	// A make-up credits Thursday only; Sunday still needs its own mark.
	if _, err := svc.MarkRegular(ctx, stID, sunday, models.SessionSunday, models.StatusPresent, "manual", nil); err != nil {
		t.Fatal(err)
	}

	thu5, cn := tallies(t, h.DB, stID)
	if thu5 != 1 || cn != 1 {
		t.Fatalf("tallies = (%d, %d), want (1, 1)", thu5, cn)
	}
}

func TestMarkCompensatory_Concurrent(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	ctx := context.Background()

	svc := attendance.NewService(h.DB)
	classID := mustSeedClass(t, h.DB)
	stID := mustSeedStudent(t, h.DB, classID, "Gioan Đỗ Văn Khang")

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.MarkCompensatory(ctx, stID, wednesday, "manual", nil)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, attendance.ErrAlreadyCompensated), errors.Is(err, attendance.ErrAlreadyRecorded):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("%d make-ups succeeded, want exactly 1", ok)
	}
	if thu5, _ := tallies(t, h.DB, stID); thu5 != 1 {
		t.Fatalf("thu5 tally = %d, want 1", thu5)
	}
}

func TestClassWeekView(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	ctx := context.Background()

	svc := attendance.NewService(h.DB)
	classID := mustSeedClass(t, h.DB)
	present := mustSeedStudent(t, h.DB, classID, "An")
	comped := mustSeedStudent(t, h.DB, classID, "Bình")
	absent := mustSeedStudent(t, h.DB, classID, "Cường")
	unmarked := mustSeedStudent(t, h.DB, classID, "Dung")

	if _, err := svc.MarkRegular(ctx, present, thursday, models.SessionThursday, models.StatusPresent, "manual", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.MarkCompensatory(ctx, comped, wednesday, "manual", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.MarkRegular(ctx, absent, thursday, models.SessionThursday, models.StatusAbsent, "manual", nil); err != nil {
		t.Fatal(err)
	}

	views, err := svc.ClassWeekView(ctx, classID, sunday)
	if err != nil {
		t.Fatal(err)
	}
	want := map[int64]models.WeekState{
		present:  models.WeekRegularPresent,
		comped:   models.WeekCompensatedPresent,
		absent:   models.WeekAbsent,
		unmarked: models.WeekUnmarked,
	}
	if len(views) != len(want) {
		t.Fatalf("got %d rows, want %d", len(views), len(want))
	}
	for _, v := range views {
		if v.State != want[v.Student.ID] {
			t.Errorf("student %s: state = %s, want %s", v.Student.FullName, v.State, want[v.Student.ID])
		}
		if !v.Anchor.Equal(thursday) {
			t.Errorf("anchor = %s, want %s", v.Anchor, thursday)
		}
		if v.State.Credited() && v.RecordID == nil {
			t.Errorf("credited state without a backing record id")
		}
	}
}
