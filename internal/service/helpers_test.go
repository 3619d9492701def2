package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/SORA112117/At00-sub000/config"
	"github.com/SORA112117/At00-sub000/internal/model"
	"github.com/SORA112117/At00-sub000/internal/repository"
	"github.com/SORA112117/At00-sub000/pkg/notify"
)

// ── 测试辅助 ──

var testNow = time.Date(2025, 5, 12, 8, 0, 0, 0, time.UTC) // 周一

func testConfig() *config.Config {
	return &config.Config{
		Attendance: config.AttendanceConfig{
			NotifyDebounce:         100 * time.Millisecond,
			WarnThreshold:          2,
			AcademicYearStartMonth: 4,
			ReminderLead:           10 * time.Minute,
			PeriodStarts:           []string{"09:00", "10:40", "13:00", "14:40", "16:20"},
			Timezone:               "UTC",
		},
	}
}

type harness struct {
	svc      *Service
	repo     *repository.Repository
	mocks    *mockRepos
	notifier *mockNotifier
	first    *model.Semester
	second   *model.Semester
}

// newHarness 基于 mock 仓库的完整服务；预置 2025 学年前期（当前）与后期
func newHarness(t *testing.T) *harness {
	t.Helper()
	repo, mocks := newMockRepos()
	h := &harness{repo: repo, mocks: mocks, notifier: &mockNotifier{}}
	h.svc = NewService(testConfig(), repo, h.notifier, nil, zap.NewNop())
	h.svc.Ledger.now = func() time.Time { return testNow }
	h.svc.Alerts.now = func() time.Time { return testNow }

	h.first = h.addSemester(t, "2025前期", model.SemesterFirstHalf,
		date(2025, 4, 1), date(2025, 9, 30), true)
	h.second = h.addSemester(t, "2025后期", model.SemesterSecondHalf,
		date(2025, 10, 1), date(2026, 3, 31), false)
	return h
}

func (h *harness) addSemester(t *testing.T, name string, kind model.SemesterKind, start, end time.Time, active bool) *model.Semester {
	t.Helper()
	s := &model.Semester{Name: name, Kind: kind, StartDate: start, EndDate: end, IsActive: active}
	if err := h.mocks.semester.Create(context.Background(), s); err != nil {
		t.Fatalf("预置学期失败: %v", err)
	}
	if err := h.svc.Pairing.RefreshSemesters(context.Background()); err != nil {
		t.Fatalf("刷新学期失败: %v", err)
	}
	return s
}

func (h *harness) createCourse(t *testing.T, name string, semesterID string, day, period int, fullYear bool) *model.Course {
	t.Helper()
	c, err := h.svc.Pairing.CreatePaired(context.Background(), &CourseDraft{
		Name:                name,
		DayOfWeek:           day,
		Period:              period,
		TotalSessions:       15,
		MaxAbsences:         5,
		IsFullYear:          fullYear,
		NotificationEnabled: true,
	}, semesterID)
	if err != nil {
		t.Fatalf("新建课程 %s 失败: %v", name, err)
	}
	return c
}

func (h *harness) record(t *testing.T, courseID uint64, day time.Time) *RecordResult {
	t.Helper()
	r, err := h.svc.Ledger.RecordAbsence(context.Background(), courseID, model.AttendanceAbsent, "", day)
	if err != nil {
		t.Fatalf("记录缺勤失败: %v", err)
	}
	return r
}

func (h *harness) coursesNamed(name string) []model.Course {
	out, _ := h.mocks.course.ListByName(context.Background(), name)
	return out
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func countKind(kinds []notify.Kind, k notify.Kind) int {
	n := 0
	for _, x := range kinds {
		if x == k {
			n++
		}
	}
	return n
}
