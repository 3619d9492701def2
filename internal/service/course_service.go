package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/SORA112117/At00-sub000/internal/dto"
	"github.com/SORA112117/At00-sub000/internal/model"
	"github.com/SORA112117/At00-sub000/internal/repository"
	apperrors "github.com/SORA112117/At00-sub000/pkg/errors"
)

// ── CourseService ───────────────────────────────────────────

// CourseService 课程与课表业务接口
type CourseService interface {
	Create(ctx context.Context, req *dto.CreateCourseRequest) (*dto.CourseResponse, error)
	GetByID(ctx context.Context, id uint64) (*dto.CourseResponse, error)
	Update(ctx context.Context, id uint64, req *dto.UpdateCourseRequest) (*dto.CourseResponse, error)
	AssignExisting(ctx context.Context, id uint64, req *dto.SlotRequest) (*dto.CourseResponse, error)
	Move(ctx context.Context, id uint64, req *dto.SlotRequest) (*dto.CourseResponse, error)
	Delete(ctx context.Context, id uint64) (*dto.DeleteCourseResponse, error)
	DeleteAllWithSameName(ctx context.Context, id uint64) (*dto.DeleteCourseResponse, error)
	// Timetable 学期课表；同时以课表中的课程名整体刷新缺勤缓存
	Timetable(ctx context.Context, semesterID string) (*dto.TimetableResponse, error)
}

type courseService struct {
	repo       *repository.Repository
	pairing    *PairingSynchronizer
	ledger     *AbsenceLedger
	cache      *AbsenceCache
	alerts     *AlertService
	periods    int
	startMonth int
	logger     *zap.Logger
}

// NewCourseService 创建 CourseService 实例
func NewCourseService(
	repo *repository.Repository,
	pairing *PairingSynchronizer,
	ledger *AbsenceLedger,
	cache *AbsenceCache,
	alerts *AlertService,
	periods, startMonth int,
	logger *zap.Logger,
) CourseService {
	return &courseService{
		repo:       repo,
		pairing:    pairing,
		ledger:     ledger,
		cache:      cache,
		alerts:     alerts,
		periods:    periods,
		startMonth: startMonth,
		logger:     logger,
	}
}

func (s *courseService) Create(ctx context.Context, req *dto.CreateCourseRequest) (*dto.CourseResponse, error) {
	semester, err := resolveSemester(ctx, s.repo, req.SemesterID)
	if err != nil {
		return nil, err
	}
	course, err := s.pairing.CreatePaired(ctx, &CourseDraft{
		Name:                req.Name,
		DayOfWeek:           req.DayOfWeek,
		Period:              req.Period,
		TotalSessions:       req.TotalSessions,
		MaxAbsences:         req.MaxAbsences,
		ColorIndex:          req.ColorIndex,
		IsFullYear:          req.IsFullYear,
		NotificationEnabled: req.NotificationEnabled,
	}, semester.SemesterID)
	if err != nil {
		return nil, err
	}
	s.alerts.ScheduleClassReminder(ctx, course)
	return toCourseResponse(course), nil
}

func (s *courseService) GetByID(ctx context.Context, id uint64) (*dto.CourseResponse, error) {
	course, err := s.ledger.getCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	return toCourseResponse(course), nil
}

func (s *courseService) Update(ctx context.Context, id uint64, req *dto.UpdateCourseRequest) (*dto.CourseResponse, error) {
	course, err := s.pairing.UpdatePaired(ctx, id, &CoursePatch{
		Name:                req.Name,
		TotalSessions:       req.TotalSessions,
		MaxAbsences:         req.MaxAbsences,
		ColorIndex:          req.ColorIndex,
		NotificationEnabled: req.NotificationEnabled,
	})
	if err != nil {
		return nil, err
	}
	s.alerts.ScheduleClassReminder(ctx, course)
	return toCourseResponse(course), nil
}

func (s *courseService) AssignExisting(ctx context.Context, id uint64, req *dto.SlotRequest) (*dto.CourseResponse, error) {
	semester, err := resolveSemester(ctx, s.repo, req.SemesterID)
	if err != nil {
		return nil, err
	}
	course, err := s.pairing.AssignExistingToSlot(ctx, id, semester.SemesterID, req.DayOfWeek, req.Period)
	if err != nil {
		return nil, err
	}
	s.alerts.ScheduleClassReminder(ctx, course)
	return toCourseResponse(course), nil
}

func (s *courseService) Move(ctx context.Context, id uint64, req *dto.SlotRequest) (*dto.CourseResponse, error) {
	course, err := s.pairing.MoveToSlot(ctx, id, req.DayOfWeek, req.Period)
	if err != nil {
		return nil, err
	}
	s.alerts.ScheduleClassReminder(ctx, course)
	return toCourseResponse(course), nil
}

func (s *courseService) Delete(ctx context.Context, id uint64) (*dto.DeleteCourseResponse, error) {
	n, err := s.ledger.DeleteCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.DeleteCourseResponse{DeletedCourses: n}, nil
}

func (s *courseService) DeleteAllWithSameName(ctx context.Context, id uint64) (*dto.DeleteCourseResponse, error) {
	result, err := s.ledger.DeleteAllWithSameName(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.DeleteCourseResponse{DeletedCourses: result.Courses, DeletedRecords: result.Records}, nil
}

func (s *courseService) Timetable(ctx context.Context, semesterID string) (*dto.TimetableResponse, error) {
	semester, err := resolveSemester(ctx, s.repo, semesterID)
	if err != nil {
		return nil, err
	}
	courses, err := s.repo.Course.ListBySemester(ctx, semester.SemesterID)
	if err != nil {
		s.logger.Error("加载课表失败", zap.String("semester_id", semester.SemesterID), zap.Error(err))
		return nil, apperrors.Storage("course.list_by_semester", err)
	}
	if err := s.cache.RefreshAll(ctx, courses); err != nil {
		return nil, err
	}

	cells := make([]dto.TimetableCell, 0, len(courses))
	for i := range courses {
		c := &courses[i]
		n, err := s.cache.Get(ctx, c)
		if err != nil {
			return nil, err
		}
		cells = append(cells, dto.TimetableCell{
			Course:    *toCourseResponse(c),
			Absences:  n,
			Remaining: max(0, c.MaxAbsences-n),
		})
	}
	return &dto.TimetableResponse{
		Semester: *toSemesterResponse(semester, s.startMonth),
		Periods:  s.periods,
		Cells:    cells,
	}, nil
}

// ── 内部辅助方法 ──

func toCourseResponse(c *model.Course) *dto.CourseResponse {
	return &dto.CourseResponse{
		ID:                  c.CourseID,
		SemesterID:          c.SemesterID,
		Name:                c.Name,
		DayOfWeek:           c.DayOfWeek,
		Period:              c.Period,
		TotalSessions:       c.TotalSessions,
		MaxAbsences:         c.MaxAbsences,
		ColorIndex:          c.ColorIndex,
		IsFullYear:          c.IsFullYear,
		NotificationEnabled: c.NotificationEnabled,
	}
}

func toRecordResponse(r *model.AttendanceRecord) *dto.AttendanceRecordResponse {
	resp := &dto.AttendanceRecordResponse{
		ID:        r.RecordID,
		CourseID:  r.CourseID,
		Date:      dto.FormatDate(r.Date),
		Type:      string(r.Type),
		Memo:      r.Memo,
		CreatedAt: dto.FormatTimestamp(r.CreatedAt),
	}
	if r.Course != nil {
		resp.CourseName = r.Course.Name
	}
	return resp
}
