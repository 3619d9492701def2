package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SORA112117/At00-sub000/internal/dto"
	"github.com/SORA112117/At00-sub000/internal/service"
	apperrors "github.com/SORA112117/At00-sub000/pkg/errors"
	"github.com/SORA112117/At00-sub000/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock SemesterService ──

type mockSemesterService struct {
	listResult   []dto.SemesterResponse
	listErr      error
	getResult    *dto.SemesterResponse
	getErr       error
	createResult *dto.SemesterResponse
	createErr    error
	updateErr    error
	activateErr  error
	activatedID  string
	resetResult  *dto.ResetSemesterResponse
	resetErr     error
	syncResult   *dto.SyncResponse
}

func (m *mockSemesterService) Create(_ context.Context, _ *dto.CreateSemesterRequest) (*dto.SemesterResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockSemesterService) GetByID(_ context.Context, _ string) (*dto.SemesterResponse, error) {
	return m.getResult, m.getErr
}
func (m *mockSemesterService) GetCurrent(_ context.Context) (*dto.SemesterResponse, error) {
	return m.getResult, m.getErr
}
func (m *mockSemesterService) List(_ context.Context) ([]dto.SemesterResponse, error) {
	return m.listResult, m.listErr
}
func (m *mockSemesterService) Update(_ context.Context, _ string, _ *dto.UpdateSemesterRequest) (*dto.SemesterResponse, error) {
	return m.getResult, m.updateErr
}
func (m *mockSemesterService) Activate(_ context.Context, id string) error {
	m.activatedID = id
	return m.activateErr
}
func (m *mockSemesterService) Reset(_ context.Context, _ string) (*dto.ResetSemesterResponse, error) {
	return m.resetResult, m.resetErr
}
func (m *mockSemesterService) Sync(_ context.Context) (*dto.SyncResponse, error) {
	return m.syncResult, nil
}
func (m *mockSemesterService) Bootstrap(_ context.Context, _ time.Time) (bool, error) {
	return false, nil
}

// ── Mock CourseService ──

type mockCourseService struct {
	courseResult    *dto.CourseResponse
	courseErr       error
	deleteResult    *dto.DeleteCourseResponse
	deleteErr       error
	timetableResult *dto.TimetableResponse
	timetableErr    error
	lastSemesterID  string
	lastID          uint64
}

func (m *mockCourseService) Create(_ context.Context, _ *dto.CreateCourseRequest) (*dto.CourseResponse, error) {
	return m.courseResult, m.courseErr
}
func (m *mockCourseService) GetByID(_ context.Context, id uint64) (*dto.CourseResponse, error) {
	m.lastID = id
	return m.courseResult, m.courseErr
}
func (m *mockCourseService) Update(_ context.Context, id uint64, _ *dto.UpdateCourseRequest) (*dto.CourseResponse, error) {
	m.lastID = id
	return m.courseResult, m.courseErr
}
func (m *mockCourseService) AssignExisting(_ context.Context, id uint64, _ *dto.SlotRequest) (*dto.CourseResponse, error) {
	m.lastID = id
	return m.courseResult, m.courseErr
}
func (m *mockCourseService) Move(_ context.Context, id uint64, _ *dto.SlotRequest) (*dto.CourseResponse, error) {
	m.lastID = id
	return m.courseResult, m.courseErr
}
func (m *mockCourseService) Delete(_ context.Context, id uint64) (*dto.DeleteCourseResponse, error) {
	m.lastID = id
	return m.deleteResult, m.deleteErr
}
func (m *mockCourseService) DeleteAllWithSameName(_ context.Context, id uint64) (*dto.DeleteCourseResponse, error) {
	m.lastID = id
	return m.deleteResult, m.deleteErr
}
func (m *mockCourseService) Timetable(_ context.Context, semesterID string) (*dto.TimetableResponse, error) {
	m.lastSemesterID = semesterID
	return m.timetableResult, m.timetableErr
}

// ── Mock AttendanceService ──

type mockAttendanceService struct {
	recordResult    *dto.RecordAttendanceResponse
	recordErr       error
	undoResult      *dto.UndoResponse
	undoErr         error
	remainingResult *dto.RemainingResponse
	listResult      []dto.AttendanceRecordResponse
	deleteErr       error
	statsResult     []dto.StatisticsResponse
	alertsResult    []dto.AlertResponse
}

func (m *mockAttendanceService) Record(_ context.Context, _ uint64, _ *dto.RecordAttendanceRequest) (*dto.RecordAttendanceResponse, error) {
	return m.recordResult, m.recordErr
}
func (m *mockAttendanceService) Undo(_ context.Context, _ uint64) (*dto.UndoResponse, error) {
	return m.undoResult, m.undoErr
}
func (m *mockAttendanceService) Remaining(_ context.Context, _ uint64) (*dto.RemainingResponse, error) {
	return m.remainingResult, nil
}
func (m *mockAttendanceService) ListRecords(_ context.Context, _ uint64) ([]dto.AttendanceRecordResponse, error) {
	return m.listResult, nil
}
func (m *mockAttendanceService) DeleteRecord(_ context.Context, _ uint64) error {
	return m.deleteErr
}
func (m *mockAttendanceService) Statistics(_ context.Context, _ string) ([]dto.StatisticsResponse, error) {
	return m.statsResult, nil
}
func (m *mockAttendanceService) Alerts(_ context.Context) ([]dto.AlertResponse, error) {
	return m.alertsResult, nil
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func serve(method, path, route string, h gin.HandlerFunc, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r := gin.New()
	r.Handle(method, route, h)
	r.ServeHTTP(w, req)
	return w
}

// ═══════════════════════════════════════════════════════════
// SemesterHandler Tests
// ═══════════════════════════════════════════════════════════

func TestSemesterHandler_List(t *testing.T) {
	mock := &mockSemesterService{listResult: []dto.SemesterResponse{{ID: "s1", Name: "2025学年 前期"}}}
	h := NewSemesterHandler(mock)

	w := serve("GET", "/semesters", "/semesters", h.ListSemesters, nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
}

func TestSemesterHandler_GetCurrent_None(t *testing.T) {
	mock := &mockSemesterService{getErr: service.ErrNoCurrentSemester}
	h := NewSemesterHandler(mock)

	w := serve("GET", "/semesters/current", "/semesters/current", h.GetCurrentSemester, nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != CodeNoCurrentSemester {
		t.Errorf("expected code %d, got %d", CodeNoCurrentSemester, resp.Code)
	}
}

func TestSemesterHandler_Create_Success(t *testing.T) {
	mock := &mockSemesterService{createResult: &dto.SemesterResponse{ID: "s1"}}
	h := NewSemesterHandler(mock)

	w := serve("POST", "/semesters", "/semesters", h.CreateSemester, jsonBody(dto.CreateSemesterRequest{
		Name: "2026前期", Kind: "first_half", StartDate: "2026-04-01", EndDate: "2026-09-30",
	}))

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestSemesterHandler_Create_BadKind(t *testing.T) {
	h := NewSemesterHandler(&mockSemesterService{})

	w := serve("POST", "/semesters", "/semesters", h.CreateSemester, jsonBody(map[string]string{
		"name": "x", "kind": "summer", "start_date": "2026-04-01", "end_date": "2026-09-30",
	}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestSemesterHandler_Update_DateInvalid(t *testing.T) {
	mock := &mockSemesterService{updateErr: service.ErrSemesterDateInvalid}
	h := NewSemesterHandler(mock)

	w := serve("PUT", "/semesters/s1", "/semesters/:id", h.UpdateSemester, jsonBody(map[string]string{"end_date": "2020-01-01"}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != CodeSemesterDateInvalid {
		t.Errorf("expected code %d, got %d", CodeSemesterDateInvalid, resp.Code)
	}
}

func TestSemesterHandler_Activate(t *testing.T) {
	mock := &mockSemesterService{}
	h := NewSemesterHandler(mock)

	w := serve("PUT", "/semesters/s2/activate", "/semesters/:id/activate", h.ActivateSemester, nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.activatedID != "s2" {
		t.Errorf("expected s2, got %q", mock.activatedID)
	}
}

func TestSemesterHandler_Reset_NotFound(t *testing.T) {
	mock := &mockSemesterService{resetErr: service.ErrSemesterNotFound}
	h := NewSemesterHandler(mock)

	w := serve("POST", "/semesters/x/reset", "/semesters/:id/reset", h.ResetSemester, nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// CourseHandler Tests
// ═══════════════════════════════════════════════════════════

func TestCourseHandler_Timetable_PassesSemesterQuery(t *testing.T) {
	mock := &mockCourseService{timetableResult: &dto.TimetableResponse{Periods: 5}}
	h := NewCourseHandler(mock)

	w := serve("GET", "/timetable?semester_id=s2", "/timetable", h.GetTimetable, nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.lastSemesterID != "s2" {
		t.Errorf("expected semester s2, got %q", mock.lastSemesterID)
	}
}

func TestCourseHandler_Create_ConflictCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"当前学期占用", service.ErrCurrentSlotOccupied, CodeCurrentSlotOccupied},
		{"配对学期占用", service.ErrOtherSemesterSlotOccupied, CodeOtherSemesterSlotOccupied},
		{"两边都占用", service.ErrBothSlotsOccupied, CodeBothSlotsOccupied},
		{"本学期重名", service.ErrDuplicateNameInSemester, CodeDuplicateNameInSemester},
		{"其他学期重名", service.ErrDuplicateNameAcrossSemesters, CodeDuplicateNameAcrossSemester},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCourseHandler(&mockCourseService{courseErr: tt.err})
			w := serve("POST", "/courses", "/courses", h.CreateCourse, jsonBody(dto.CreateCourseRequest{
				Name: "算法", DayOfWeek: 1, Period: 1, TotalSessions: 15, MaxAbsences: 5,
			}))

			if w.Code != http.StatusConflict {
				t.Errorf("expected 409, got %d", w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.code {
				t.Errorf("expected code %d, got %d", tt.code, resp.Code)
			}
		})
	}
}

func TestCourseHandler_Create_Validation(t *testing.T) {
	h := NewCourseHandler(&mockCourseService{})

	w := serve("POST", "/courses", "/courses", h.CreateCourse, jsonBody(map[string]interface{}{
		"name": "算法", "day_of_week": 9, "period": 1, "total_sessions": 15,
	}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestCourseHandler_InvalidID(t *testing.T) {
	h := NewCourseHandler(&mockCourseService{})

	w := serve("GET", "/courses/abc", "/courses/:id", h.GetCourse, nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestCourseHandler_DeleteAll(t *testing.T) {
	mock := &mockCourseService{deleteResult: &dto.DeleteCourseResponse{DeletedCourses: 3, DeletedRecords: 4}}
	h := NewCourseHandler(mock)

	w := serve("DELETE", "/courses/7/all", "/courses/:id/all", h.DeleteAllWithSameName, nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.lastID != 7 {
		t.Errorf("expected id 7, got %d", mock.lastID)
	}
}

func TestCourseHandler_StorageFailure(t *testing.T) {
	mock := &mockCourseService{courseErr: apperrors.Storage("course.create_paired", errors.New("database is locked"))}
	h := NewCourseHandler(mock)

	w := serve("PUT", "/courses/1/move", "/courses/:id/move", h.MoveCourse, jsonBody(dto.SlotRequest{DayOfWeek: 2, Period: 3}))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != CodeStorageUnavailable {
		t.Errorf("expected code %d, got %d", CodeStorageUnavailable, resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// AttendanceHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAttendanceHandler_Record_Success(t *testing.T) {
	mock := &mockAttendanceService{recordResult: &dto.RecordAttendanceResponse{Outcome: "success", Absences: 1, Remaining: 4}}
	h := NewAttendanceHandler(mock)

	w := serve("POST", "/courses/1/attendance", "/courses/:id/attendance", h.RecordAttendance,
		jsonBody(dto.RecordAttendanceRequest{Type: "absent", Date: "2025-05-12"}))

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestAttendanceHandler_Record_DailyLimit(t *testing.T) {
	mock := &mockAttendanceService{recordResult: &dto.RecordAttendanceResponse{Outcome: "daily_limit_reached", Absences: 5}}
	h := NewAttendanceHandler(mock)

	w := serve("POST", "/courses/1/attendance", "/courses/:id/attendance", h.RecordAttendance,
		jsonBody(dto.RecordAttendanceRequest{Type: "absent"}))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != CodeDailyLimitReached {
		t.Errorf("expected code %d, got %d", CodeDailyLimitReached, resp.Code)
	}
	if resp.Data == nil {
		t.Error("expected current counts in data")
	}
}

func TestAttendanceHandler_Record_BadType(t *testing.T) {
	h := NewAttendanceHandler(&mockAttendanceService{})

	w := serve("POST", "/courses/1/attendance", "/courses/:id/attendance", h.RecordAttendance,
		jsonBody(map[string]string{"type": "sleep"}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAttendanceHandler_Record_InvalidDate(t *testing.T) {
	h := NewAttendanceHandler(&mockAttendanceService{recordErr: service.ErrInvalidDate})

	w := serve("POST", "/courses/1/attendance", "/courses/:id/attendance", h.RecordAttendance,
		jsonBody(dto.RecordAttendanceRequest{Type: "absent", Date: "05/12"}))

	if resp := parseResponse(w); resp.Code != CodeInvalidDate {
		t.Errorf("expected code %d, got %d", CodeInvalidDate, resp.Code)
	}
}

func TestAttendanceHandler_Undo_CourseNotFound(t *testing.T) {
	h := NewAttendanceHandler(&mockAttendanceService{undoErr: service.ErrCourseNotFound})

	w := serve("POST", "/courses/9/attendance/undo", "/courses/:id/attendance/undo", h.UndoAttendance, nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestAttendanceHandler_DeleteRecord_NotFound(t *testing.T) {
	h := NewAttendanceHandler(&mockAttendanceService{deleteErr: service.ErrRecordNotFound})

	w := serve("DELETE", "/records/3", "/records/:id", h.DeleteRecord, nil)

	if resp := parseResponse(w); resp.Code != CodeRecordNotFound {
		t.Errorf("expected code %d, got %d", CodeRecordNotFound, resp.Code)
	}
}

func TestAttendanceHandler_Statistics(t *testing.T) {
	mock := &mockAttendanceService{statsResult: []dto.StatisticsResponse{{Name: "物理", Absences: 2}}}
	h := NewAttendanceHandler(mock)

	w := serve("GET", "/statistics", "/statistics", h.GetStatistics, nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}
