package service

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/SORA112117/At00-sub000/internal/model"
	"github.com/SORA112117/At00-sub000/internal/repository"
	"github.com/SORA112117/At00-sub000/pkg/notify"
	"github.com/SORA112117/At00-sub000/pkg/timeutil"
)

// ── Mock SemesterRepository ──

type mockSemesterRepo struct {
	semesters map[string]*model.Semester
	seq       int
	err       error
}

func newMockSemesterRepo() *mockSemesterRepo {
	return &mockSemesterRepo{semesters: make(map[string]*model.Semester)}
}

func (m *mockSemesterRepo) Create(_ context.Context, semester *model.Semester) error {
	if m.err != nil {
		return m.err
	}
	if semester.SemesterID == "" {
		semester.SemesterID = "sem-" + semester.Name
	}
	m.seq++
	semester.CreatedAt = time.Date(2025, 1, 1, 0, 0, m.seq, 0, time.UTC)
	cp := *semester
	m.semesters[semester.SemesterID] = &cp
	return nil
}

func (m *mockSemesterRepo) GetByID(_ context.Context, id string) (*model.Semester, error) {
	if m.err != nil {
		return nil, m.err
	}
	if s, ok := m.semesters[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSemesterRepo) GetCurrent(_ context.Context) (*model.Semester, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, s := range m.semesters {
		if s.IsActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSemesterRepo) List(_ context.Context) ([]model.Semester, error) {
	if m.err != nil {
		return nil, m.err
	}
	result := make([]model.Semester, 0, len(m.semesters))
	for _, s := range m.semesters {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartDate.Equal(result[j].StartDate) {
			return result[i].StartDate.Before(result[j].StartDate)
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *mockSemesterRepo) Count(_ context.Context) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return int64(len(m.semesters)), nil
}

func (m *mockSemesterRepo) Update(_ context.Context, semester *model.Semester) error {
	if m.err != nil {
		return m.err
	}
	cp := *semester
	m.semesters[semester.SemesterID] = &cp
	return nil
}

func (m *mockSemesterRepo) ClearActive(_ context.Context) error {
	if m.err != nil {
		return m.err
	}
	for _, s := range m.semesters {
		s.IsActive = false
	}
	return nil
}

// ── Mock CourseRepository ──

type mockCourseRepo struct {
	courses map[uint64]*model.Course
	nextID  uint64
	err     error
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: make(map[uint64]*model.Course)}
}

func (m *mockCourseRepo) sorted(match func(c *model.Course) bool) []model.Course {
	result := make([]model.Course, 0)
	for _, c := range m.courses {
		if match(c) {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CourseID < result[j].CourseID })
	return result
}

func (m *mockCourseRepo) Create(_ context.Context, course *model.Course) error {
	if m.err != nil {
		return m.err
	}
	for _, c := range m.courses {
		if c.SemesterID == course.SemesterID && c.DayOfWeek == course.DayOfWeek && c.Period == course.Period {
			return gorm.ErrDuplicatedKey
		}
	}
	m.nextID++
	course.CourseID = m.nextID
	cp := *course
	m.courses[course.CourseID] = &cp
	return nil
}

func (m *mockCourseRepo) GetByID(_ context.Context, id uint64) (*model.Course, error) {
	if m.err != nil {
		return nil, m.err
	}
	if c, ok := m.courses[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) ListByName(_ context.Context, name string) ([]model.Course, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.sorted(func(c *model.Course) bool { return c.Name == name }), nil
}

func (m *mockCourseRepo) ListByNames(_ context.Context, names []string) ([]model.Course, error) {
	if m.err != nil {
		return nil, m.err
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return m.sorted(func(c *model.Course) bool { return set[c.Name] }), nil
}

func (m *mockCourseRepo) ListBySemester(_ context.Context, semesterID string) ([]model.Course, error) {
	if m.err != nil {
		return nil, m.err
	}
	result := m.sorted(func(c *model.Course) bool { return c.SemesterID == semesterID })
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].DayOfWeek != result[j].DayOfWeek {
			return result[i].DayOfWeek < result[j].DayOfWeek
		}
		return result[i].Period < result[j].Period
	})
	return result, nil
}

func (m *mockCourseRepo) ListFullYear(_ context.Context) ([]model.Course, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.sorted(func(c *model.Course) bool { return c.IsFullYear }), nil
}

func (m *mockCourseRepo) FindBySlot(_ context.Context, semesterID string, day, period int) (*model.Course, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, c := range m.sorted(func(c *model.Course) bool {
		return c.SemesterID == semesterID && c.DayOfWeek == day && c.Period == period
	}) {
		cp := c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) CountByName(_ context.Context, name string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return int64(len(m.sorted(func(c *model.Course) bool { return c.Name == name }))), nil
}

func (m *mockCourseRepo) CountByNameInSemester(_ context.Context, name, semesterID string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return int64(len(m.sorted(func(c *model.Course) bool {
		return c.Name == name && c.SemesterID == semesterID
	}))), nil
}

func (m *mockCourseRepo) DistinctNamesBySemester(_ context.Context, semesterID string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	seen := make(map[string]bool)
	var names []string
	for _, c := range m.courses {
		if c.SemesterID == semesterID && !seen[c.Name] {
			seen[c.Name] = true
			names = append(names, c.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *mockCourseRepo) Update(_ context.Context, course *model.Course) error {
	if m.err != nil {
		return m.err
	}
	cp := *course
	m.courses[course.CourseID] = &cp
	return nil
}

func (m *mockCourseRepo) Delete(_ context.Context, ids ...uint64) error {
	if m.err != nil {
		return m.err
	}
	for _, id := range ids {
		delete(m.courses, id)
	}
	return nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	records map[uint64]*model.AttendanceRecord
	courses *mockCourseRepo
	nextID  uint64
	err     error
}

func newMockAttendanceRepo(courses *mockCourseRepo) *mockAttendanceRepo {
	return &mockAttendanceRepo{records: make(map[uint64]*model.AttendanceRecord), courses: courses}
}

func (m *mockAttendanceRepo) filter(courseIDs []uint64, types []model.AttendanceType) []model.AttendanceRecord {
	ids := make(map[uint64]bool, len(courseIDs))
	for _, id := range courseIDs {
		ids[id] = true
	}
	ts := make(map[model.AttendanceType]bool, len(types))
	for _, t := range types {
		ts[t] = true
	}
	var result []model.AttendanceRecord
	for _, r := range m.records {
		if !ids[r.CourseID] {
			continue
		}
		if len(ts) > 0 && !ts[r.Type] {
			continue
		}
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].RecordID > result[j].RecordID
	})
	return result
}

func (m *mockAttendanceRepo) preload(r *model.AttendanceRecord) {
	if c, ok := m.courses.courses[r.CourseID]; ok {
		cp := *c
		r.Course = &cp
	}
}

func (m *mockAttendanceRepo) Create(_ context.Context, record *model.AttendanceRecord) error {
	if m.err != nil {
		return m.err
	}
	m.nextID++
	record.RecordID = m.nextID
	record.CreatedAt = time.Now()
	cp := *record
	m.records[record.RecordID] = &cp
	return nil
}

func (m *mockAttendanceRepo) GetByID(_ context.Context, id uint64) (*model.AttendanceRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	m.preload(&cp)
	return &cp, nil
}

func (m *mockAttendanceRepo) Delete(_ context.Context, ids ...uint64) error {
	if m.err != nil {
		return m.err
	}
	for _, id := range ids {
		delete(m.records, id)
	}
	return nil
}

func (m *mockAttendanceRepo) DeleteByCourseIDs(_ context.Context, courseIDs []uint64) error {
	if m.err != nil {
		return m.err
	}
	for _, r := range m.filter(courseIDs, nil) {
		delete(m.records, r.RecordID)
	}
	return nil
}

func (m *mockAttendanceRepo) ReassignCourse(_ context.Context, fromIDs []uint64, toID uint64) error {
	if m.err != nil {
		return m.err
	}
	for _, r := range m.filter(fromIDs, nil) {
		m.records[r.RecordID].CourseID = toID
	}
	return nil
}

func (m *mockAttendanceRepo) CountByCourseIDs(_ context.Context, courseIDs []uint64, types []model.AttendanceType) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return int64(len(m.filter(courseIDs, types))), nil
}

func (m *mockAttendanceRepo) CountOnDate(_ context.Context, courseIDs []uint64, day time.Time) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for _, r := range m.filter(courseIDs, nil) {
		if timeutil.SameDay(r.Date, day) {
			n++
		}
	}
	return n, nil
}

func (m *mockAttendanceRepo) Latest(_ context.Context, courseIDs []uint64, types []model.AttendanceType) (*model.AttendanceRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	result := m.filter(courseIDs, types)
	if len(result) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &result[0], nil
}

func (m *mockAttendanceRepo) ListOnDate(_ context.Context, courseID uint64, day time.Time, types []model.AttendanceType) ([]model.AttendanceRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []model.AttendanceRecord
	for _, r := range m.filter([]uint64{courseID}, types) {
		if timeutil.SameDay(r.Date, day) {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *mockAttendanceRepo) ListByCourseIDs(_ context.Context, courseIDs []uint64, types []model.AttendanceType) ([]model.AttendanceRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	result := m.filter(courseIDs, types)
	for i := range result {
		m.preload(&result[i])
	}
	return result, nil
}

// ── Mock AlertRepository ──

type mockAlertRepo struct {
	alerts map[string]*model.LocalAlert
	err    error
}

func newMockAlertRepo() *mockAlertRepo {
	return &mockAlertRepo{alerts: make(map[string]*model.LocalAlert)}
}

func (m *mockAlertRepo) Upsert(_ context.Context, alert *model.LocalAlert) error {
	if m.err != nil {
		return m.err
	}
	cp := *alert
	m.alerts[alert.AlertID] = &cp
	return nil
}

func (m *mockAlertRepo) Delete(_ context.Context, ids []string) error {
	if m.err != nil {
		return m.err
	}
	for _, id := range ids {
		delete(m.alerts, id)
	}
	return nil
}

func (m *mockAlertRepo) DeleteAll(_ context.Context) error {
	if m.err != nil {
		return m.err
	}
	m.alerts = make(map[string]*model.LocalAlert)
	return nil
}

func (m *mockAlertRepo) List(_ context.Context) ([]model.LocalAlert, error) {
	if m.err != nil {
		return nil, m.err
	}
	result := make([]model.LocalAlert, 0, len(m.alerts))
	for _, a := range m.alerts {
		result = append(result, *a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TriggerAt.Before(result[j].TriggerAt) })
	return result, nil
}

// ── Mock ChangeNotifier ──

type mockNotifier struct {
	scheduled []notify.Kind
	emitted   []notify.Kind
}

func (m *mockNotifier) Schedule(kind notify.Kind) { m.scheduled = append(m.scheduled, kind) }

func (m *mockNotifier) Emit(kinds ...notify.Kind) { m.emitted = append(m.emitted, kinds...) }

func (m *mockNotifier) reset() {
	m.scheduled = nil
	m.emitted = nil
}

// ── 聚合 ──

type mockRepos struct {
	semester   *mockSemesterRepo
	course     *mockCourseRepo
	attendance *mockAttendanceRepo
	alert      *mockAlertRepo
}

func newMockRepos() (*repository.Repository, *mockRepos) {
	m := &mockRepos{
		semester: newMockSemesterRepo(),
		course:   newMockCourseRepo(),
		alert:    newMockAlertRepo(),
	}
	m.attendance = newMockAttendanceRepo(m.course)
	repo := &repository.Repository{
		Semester:   m.semester,
		Course:     m.course,
		Attendance: m.attendance,
		Alert:      m.alert,
	}
	return repo, m
}
