package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/attendance"
	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/ctxutil"
	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/db"
	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/export"
	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/metrics"
	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/models"
	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/observability"
	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/scoring"
)

const dateLayout = "2006-01-02"

type API struct {
	database     *sql.DB
	att          *attendance.Service
	log          *zap.Logger
	loc          *time.Location
	defaultWeeks int
	parishName   string
}

func NewAPI(database *sql.DB, att *attendance.Service, log *zap.Logger, loc *time.Location, defaultWeeks int, parishName string) *API {
	return &API{
		database:     database,
		att:          att,
		log:          log,
		loc:          loc,
		defaultWeeks: defaultWeeks,
		parishName:   parishName,
	}
}

func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/attendance/checkin", a.handleCheckin)
	mux.HandleFunc("POST /api/attendance/compensate", a.handleCompensate)
	mux.HandleFunc("DELETE /api/attendance/{id}", a.handleClearAttendance)
	mux.HandleFunc("GET /api/attendance/week", a.handleWeekView)

	mux.HandleFunc("GET /api/students", a.handleListStudents)
	mux.HandleFunc("POST /api/students", a.handleCreateStudent)
	mux.HandleFunc("PUT /api/students/{id}/scores", a.handleSetScores)
	mux.HandleFunc("PUT /api/students/{id}/status", a.handleStudentStatus)

	mux.HandleFunc("GET /api/classes", a.handleListClasses)
	mux.HandleFunc("POST /api/classes", a.handleCreateClass)

	mux.HandleFunc("GET /api/school-years", a.handleListSchoolYears)
	mux.HandleFunc("GET /api/school-years/current", a.handleCurrentSchoolYear)
	mux.HandleFunc("POST /api/school-years", a.handleCreateSchoolYear)
	mux.HandleFunc("PUT /api/school-years/{id}/current", a.handleSetCurrentSchoolYear)

	mux.HandleFunc("GET /api/dashboard", a.handleDashboard)
	mux.HandleFunc("GET /api/export/roster", a.handleExportRoster)
}

// ---- attendance ----

type checkinRequest struct {
	StudentID   int64  `json:"student_id"`
	Date        string `json:"date"`
	SessionType string `json:"session_type"`
	Status      string `json:"status"`
	Method      string `json:"method"`
}

func (a *API) handleCheckin(w http.ResponseWriter, r *http.Request) {
	var req checkinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.badRequest(w, "invalid json body")
		return
	}
	date, err := time.ParseInLocation(dateLayout, req.Date, a.loc)
	if err != nil {
		a.badRequest(w, "date must be YYYY-MM-DD")
		return
	}
	st := models.SessionType(req.SessionType)
	if !st.Valid() {
		a.badRequest(w, "session_type must be thu5 or cn")
		return
	}
	status := models.RecordStatus(req.Status)
	if status != models.StatusPresent && status != models.StatusAbsent {
		a.badRequest(w, "status must be present or absent")
		return
	}

	ctx, cancel := a.requestContext(r, "checkin")
	defer cancel()
	rec, err := a.att.MarkRegular(ctx, req.StudentID, date, st, status, method(req.Method), catechistRef(ctx))
	if err != nil {
		a.fail(ctx, w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, rec)
}

type compensateRequest struct {
	StudentID int64  `json:"student_id"`
	Date      string `json:"date"`
	Method    string `json:"method"`
}

func (a *API) handleCompensate(w http.ResponseWriter, r *http.Request) {
	var req compensateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.badRequest(w, "invalid json body")
		return
	}
	date, err := time.ParseInLocation(dateLayout, req.Date, a.loc)
	if err != nil {
		a.badRequest(w, "date must be YYYY-MM-DD")
		return
	}

	ctx, cancel := a.requestContext(r, "compensate")
	defer cancel()
	rec, err := a.att.MarkCompensatory(ctx, req.StudentID, date, method(req.Method), catechistRef(ctx))
	if err != nil {
		a.fail(ctx, w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, rec)
}

func (a *API) handleClearAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		a.badRequest(w, "bad record id")
		return
	}
	ctx, cancel := a.requestContext(r, "clear_attendance")
	defer cancel()
	if err := a.att.Clear(ctx, id); err != nil {
		a.fail(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type weekRow struct {
	StudentID int64            `json:"student_id"`
	FullName  string           `json:"full_name"`
	SaintName *string          `json:"saint_name"`
	Anchor    string           `json:"anchor"`
	State     models.WeekState `json:"state"`
	RecordID  *int64           `json:"record_id,omitempty"`
}

func (a *API) handleWeekView(w http.ResponseWriter, r *http.Request) {
	classID, err := queryID(r.URL.Query(), "class_id")
	if err != nil {
		a.badRequest(w, "class_id is required")
		return
	}
	date, err := queryDate(r.URL.Query(), "date", a.loc)
	if err != nil {
		a.badRequest(w, "date must be YYYY-MM-DD")
		return
	}

	ctx, cancel := a.requestContext(r, "week_view")
	defer cancel()
	views, err := a.att.ClassWeekView(ctx, classID, date)
	if err != nil {
		a.fail(ctx, w, err)
		return
	}

	rows := make([]weekRow, 0, len(views))
	for _, v := range views {
		rows = append(rows, weekRow{
			StudentID: v.Student.ID,
			FullName:  v.Student.FullName,
			SaintName: v.Student.SaintName,
			Anchor:    v.Anchor.Format(dateLayout),
			State:     v.State,
			RecordID:  v.RecordID,
		})
	}
	a.writeJSON(w, http.StatusOK, rows)
}

// ---- students ----

type studentRow struct {
	models.Student
	Metrics scoring.StudentMetrics `json:"metrics"`
}

func (a *API) handleListStudents(w http.ResponseWriter, r *http.Request) {
	classID, err := queryID(r.URL.Query(), "class_id")
	if err != nil {
		a.badRequest(w, "class_id is required")
		return
	}
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	ctx, cancel := a.requestContext(r, "list_students")
	defer cancel()
	students, err := db.ListStudentsByClass(ctx, a.database, classID, includeInactive)
	if err != nil {
		a.fail(ctx, w, err)
		return
	}
	weeks, err := a.totalWeeks(ctx)
	if err != nil {
		a.fail(ctx, w, err)
		return
	}

	rows := make([]studentRow, 0, len(students))
	for _, st := range students {
		rows = append(rows, studentRow{
			Student: st,
			Metrics: scoring.Compute(st.Score45HK1, st.ScoreExamT1, st.Score45HK2, st.ScoreExamT2, st.CountThu5, st.CountCN, weeks),
		})
	}
	a.writeJSON(w, http.StatusOK, rows)
}

type createStudentRequest struct {
	SaintName *string `json:"saint_name"`
	FullName  string  `json:"full_name"`
	Code      *string `json:"code"`
	ClassID   int64   `json:"class_id"`
}

func (a *API) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.badRequest(w, "invalid json body")
		return
	}
	if req.FullName == "" || req.ClassID == 0 {
		a.badRequest(w, "full_name and class_id are required")
		return
	}

	ctx, cancel := a.requestContext(r, "create_student")
	defer cancel()
	class, err := db.GetClassByID(ctx, a.database, req.ClassID)
	if err != nil {
		a.fail(ctx, w, err)
		return
	}
	if class == nil {
		a.errorJSON(w, http.StatusNotFound, "class not found")
		return
	}

	id, err := db.CreateStudent(ctx, a.database, models.Student{
		SaintName: req.SaintName,
		FullName:  req.FullName,
		Code:      req.Code,
		ClassID:   req.ClassID,
		IsActive:  true,
	})
	if err != nil {
		if db.IsDuplicate(err) {
			a.errorJSON(w, http.StatusConflict, "student code already in use")
			return
		}
		a.fail(ctx, w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

type scoresRequest struct {
	Score45HK1  *float64 `json:"score_45_hk1"`
	ScoreExamT1 *float64 `json:"score_exam_hk1"`
	Score45HK2  *float64 `json:"score_45_hk2"`
	ScoreExamT2 *float64 `json:"score_exam_hk2"`
}

func (a *API) handleSetScores(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		a.badRequest(w, "bad student id")
		return
	}
	var req scoresRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.badRequest(w, "invalid json body")
		return
	}
	for _, p := range []*float64{req.Score45HK1, req.ScoreExamT1, req.Score45HK2, req.ScoreExamT2} {
		if p != nil && (*p < 0 || *p > 10) {
			a.badRequest(w, "scores must be between 0 and 10")
			return
		}
	}

	ctx, cancel := a.requestContext(r, "set_scores")
	defer cancel()
	if err := db.SetStudentScores(ctx, a.database, id, req.Score45HK1, req.ScoreExamT1, req.Score45HK2, req.ScoreExamT2); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			a.errorJSON(w, http.StatusNotFound, "student not found")
			return
		}
		a.fail(ctx, w, err)
		return
	}

	st, err := db.GetStudentByID(ctx, a.database, id)
	if err != nil {
		a.fail(ctx, w, err)
		return
	}
	if st == nil {
		a.errorJSON(w, http.StatusNotFound, "student not found")
		return
	}
	weeks, err := a.totalWeeks(ctx)
	if err != nil {
		a.fail(ctx, w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, studentRow{
		Student: *st,
		Metrics: scoring.Compute(st.Score45HK1, st.ScoreExamT1, st.Score45HK2, st.ScoreExamT2, st.CountThu5, st.CountCN, weeks),
	})
}

func (a *API) handleStudentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		a.badRequest(w, "bad student id")
		return
	}
	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.badRequest(w, "invalid json body")
		return
	}
	ctx, cancel := a.requestContext(r, "student_status")
	defer cancel()
	if err := db.SetStudentStatus(ctx, a.database, id, req.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			a.errorJSON(w, http.StatusNotFound, "student not found")
			return
		}
		a.fail(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- classes ----

func (a *API) handleListClasses(w http.ResponseWriter, r *http.Request) {
	branch := models.Branch(r.URL.Query().Get("branch"))
	if branch != "" && !branch.Valid() {
		a.badRequest(w, "unknown branch")
		return
	}
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	ctx, cancel := a.requestContext(r, "list_classes")
	defer cancel()
	classes, err := db.ListClasses(ctx, a.database, branch, includeInactive)
	if err != nil {
		a.fail(ctx, w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, classes)
}

type createClassRequest struct {
	Name         string `json:"name"`
	Branch       string `json:"branch"`
	DisplayOrder int    `json:"display_order"`
}

func (a *API) handleCreateClass(w http.ResponseWriter, r *http.Request) {
	var req createClassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.badRequest(w, "invalid json body")
		return
	}
	branch := models.Branch(req.Branch)
	if req.Name == "" || !branch.Valid() {
		a.badRequest(w, "name and a valid branch are required")
		return
	}

	ctx, cancel := a.requestContext(r, "create_class")
	defer cancel()
	id, err := db.CreateClass(ctx, a.database, models.Class{
		Name:         req.Name,
		Branch:       branch,
		DisplayOrder: req.DisplayOrder,
		IsActive:     true,
	})
	if err != nil {
		a.fail(ctx, w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// ---- school years ----

func (a *API) handleListSchoolYears(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.requestContext(r, "list_school_years")
	defer cancel()
	years, err := db.ListSchoolYears(ctx, a.database)
	if err != nil {
		a.fail(ctx, w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, years)
}

func (a *API) handleCurrentSchoolYear(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.requestContext(r, "current_school_year")
	defer cancel()
	year, err := db.GetCurrentSchoolYear(ctx, a.database)
	if err != nil {
		a.fail(ctx, w, err)
		return
	}
	if year == nil {
		a.errorJSON(w, http.StatusNotFound, "no current school year")
		return
	}
	a.writeJSON(w, http.StatusOK, year)
}

type createSchoolYearRequest struct {
	Name        string `json:"name"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	TotalWeeks  int    `json:"total_weeks"`
	MakeCurrent bool   `json:"make_current"`
}

func (a *API) handleCreateSchoolYear(w http.ResponseWriter, r *http.Request) {
	var req createSchoolYearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.badRequest(w, "invalid json body")
		return
	}
	start, err := time.ParseInLocation(dateLayout, req.StartDate, a.loc)
	if err != nil {
		a.badRequest(w, "start_date must be YYYY-MM-DD")
		return
	}
	end, err := time.ParseInLocation(dateLayout, req.EndDate, a.loc)
	if err != nil {
		a.badRequest(w, "end_date must be YYYY-MM-DD")
		return
	}
	name := req.Name
	if name == "" {
		name = db.YearLabel(start.Year())
	}

	ctx, cancel := a.requestContext(r, "create_school_year")
	defer cancel()
	id, err := db.CreateSchoolYear(ctx, a.database, models.SchoolYear{
		Name:       name,
		StartDate:  start,
		EndDate:    end,
		TotalWeeks: req.TotalWeeks,
		ParishName: a.parishName,
	})
	if err != nil {
		a.fail(ctx, w, err)
		return
	}
	if req.MakeCurrent {
		if err := db.SetCurrentSchoolYear(ctx, a.database, id); err != nil {
			a.fail(ctx, w, err)
			return
		}
	}
	a.writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (a *API) handleSetCurrentSchoolYear(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		a.badRequest(w, "bad school year id")
		return
	}
	ctx, cancel := a.requestContext(r, "set_current_school_year")
	defer cancel()
	if err := db.SetCurrentSchoolYear(ctx, a.database, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			a.errorJSON(w, http.StatusNotFound, "school year not found")
			return
		}
		a.fail(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- dashboard / export ----

type dashboardResponse struct {
	ClassID         int64                          `json:"class_id"`
	Students        int                            `json:"students"`
	AvgYear         float64                        `json:"avg_year_average"`
	AvgAttendance   float64                        `json:"avg_attendance_rate"`
	Classifications map[scoring.Classification]int `json:"classifications"`
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	classID, err := queryID(r.URL.Query(), "class_id")
	if err != nil {
		a.badRequest(w, "class_id is required")
		return
	}

	ctx, cancel := a.requestContext(r, "dashboard")
	defer cancel()
	students, err := db.ListStudentsByClass(ctx, a.database, classID, false)
	if err != nil {
		a.fail(ctx, w, err)
		return
	}
	weeks, err := a.totalWeeks(ctx)
	if err != nil {
		a.fail(ctx, w, err)
		return
	}

	resp := dashboardResponse{
		ClassID:         classID,
		Students:        len(students),
		Classifications: map[scoring.Classification]int{},
	}
	var sumYear, sumRate float64
	for _, st := range students {
		m := scoring.Compute(st.Score45HK1, st.ScoreExamT1, st.Score45HK2, st.ScoreExamT2, st.CountThu5, st.CountCN, weeks)
		sumYear += m.YearAverage
		sumRate += m.AttendanceRate
		resp.Classifications[m.Class]++
	}
	if len(students) > 0 {
		resp.AvgYear = scoring.Round2(sumYear / float64(len(students)))
		resp.AvgAttendance = scoring.Round2(sumRate / float64(len(students)))
	}
	a.writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleExportRoster(w http.ResponseWriter, r *http.Request) {
	classID, err := queryID(r.URL.Query(), "class_id")
	if err != nil {
		a.badRequest(w, "class_id is required")
		return
	}

	ctx, cancel := a.requestContext(r, "export_roster")
	defer cancel()
	class, err := db.GetClassByID(ctx, a.database, classID)
	if err != nil {
		a.fail(ctx, w, err)
		return
	}
	if class == nil {
		a.errorJSON(w, http.StatusNotFound, "class not found")
		return
	}
	students, err := db.ListStudentsByClass(ctx, a.database, classID, true)
	if err != nil {
		a.fail(ctx, w, err)
		return
	}
	year, err := db.GetCurrentSchoolYear(ctx, a.database)
	if err != nil {
		a.fail(ctx, w, err)
		return
	}
	weeks := a.defaultWeeks
	yearName := ""
	if year != nil {
		weeks = year.TotalWeeks
		yearName = year.Name
	}

	f, err := export.RosterWorkbook(*class, students, weeks)
	if err != nil {
		a.fail(ctx, w, err)
		return
	}
	name := export.RosterFilename(class.Name, a.parishName, yearName)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := f.Write(w); err != nil {
		a.log.Error("write roster workbook", zap.Error(err))
	}
}

// ---- helpers ----

// totalWeeks resolves the current school year's week count, falling back
// to the configured default when no year is flagged current.
func (a *API) totalWeeks(ctx context.Context) (int, error) {
	year, err := db.GetCurrentSchoolYear(ctx, a.database)
	if err != nil {
		return 0, err
	}
	if year == nil || year.TotalWeeks <= 0 {
		return a.defaultWeeks, nil
	}
	return year.TotalWeeks, nil
}

// requestContext tags the request context with the operation name and the
// acting catechist (X-Catechist-ID header, set by the frontend after
// login), then caps it at the standard DB timeout.
func (a *API) requestContext(r *http.Request, op string) (context.Context, context.CancelFunc) {
	ctx := ctxutil.WithOp(r.Context(), op)
	if id, err := strconv.ParseInt(r.Header.Get("X-Catechist-ID"), 10, 64); err == nil {
		ctx = ctxutil.WithCatechistID(ctx, id)
	}
	return ctxutil.WithDBTimeout(ctx)
}

// catechistRef yields the created_by reference for writes, nil when the
// request carried no catechist identity.
func catechistRef(ctx context.Context) *int64 {
	if id, ok := ctxutil.CatechistID(ctx); ok {
		return &id
	}
	return nil
}

func method(m string) string {
	if m == "" {
		return "manual"
	}
	return m
}

func queryID(q url.Values, key string) (int64, error) {
	return strconv.ParseInt(q.Get(key), 10, 64)
}

func queryDate(q url.Values, key string, loc *time.Location) (time.Time, error) {
	s := q.Get(key)
	if s == "" {
		return time.Now().In(loc), nil
	}
	return time.ParseInLocation(dateLayout, s, loc)
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error("encode response", zap.Error(err))
	}
}

func (a *API) errorJSON(w http.ResponseWriter, status int, msg string) {
	a.writeJSON(w, status, map[string]string{"error": msg})
}

func (a *API) badRequest(w http.ResponseWriter, msg string) {
	a.errorJSON(w, http.StatusBadRequest, msg)
}

// fail maps service errors onto response codes: conflicts 409, other
// rule rejections 422, missing rows 404, anything else 500 + sentry.
func (a *API) fail(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, attendance.ErrAlreadyAttended),
		errors.Is(err, attendance.ErrAlreadyCompensated),
		errors.Is(err, attendance.ErrAlreadyRecorded):
		a.errorJSON(w, http.StatusConflict, err.Error())
	case errors.Is(err, attendance.ErrStudentNotFound),
		errors.Is(err, attendance.ErrRecordNotFound):
		a.errorJSON(w, http.StatusNotFound, err.Error())
	case attendance.IsValidation(err):
		a.errorJSON(w, http.StatusUnprocessableEntity, err.Error())
	default:
		metrics.HandlerErrors.Inc()
		observability.CaptureErr(err)
		fields := []zap.Field{zap.Error(err)}
		if op, ok := ctxutil.Op(ctx); ok {
			fields = append(fields, zap.String("op", op))
		}
		a.log.Error("handler failure", fields...)
		a.errorJSON(w, http.StatusInternalServerError, "internal error")
	}
}
