package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SORA112117/At00-sub000/internal/dto"
	"github.com/SORA112117/At00-sub000/internal/model"
	"github.com/SORA112117/At00-sub000/internal/repository"
	apperrors "github.com/SORA112117/At00-sub000/pkg/errors"
	"github.com/SORA112117/At00-sub000/pkg/notify"
	"github.com/SORA112117/At00-sub000/pkg/timeutil"
)

// ── 学期模块业务错误 ──

var (
	ErrSemesterNotFound    = errors.New("学期不存在")
	ErrNoCurrentSemester   = errors.New("尚未选择当前学期")
	ErrSemesterDateInvalid = errors.New("学期结束日期必须晚于开始日期")
	ErrSemesterKindInvalid = errors.New("无效的学期种类")
)

// SemesterService 学期业务接口
type SemesterService interface {
	Create(ctx context.Context, req *dto.CreateSemesterRequest) (*dto.SemesterResponse, error)
	GetByID(ctx context.Context, id string) (*dto.SemesterResponse, error)
	GetCurrent(ctx context.Context) (*dto.SemesterResponse, error)
	List(ctx context.Context) ([]dto.SemesterResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateSemesterRequest) (*dto.SemesterResponse, error)
	Activate(ctx context.Context, id string) error
	Reset(ctx context.Context, id string) (*dto.ResetSemesterResponse, error)
	Sync(ctx context.Context) (*dto.SyncResponse, error)
	// Bootstrap 后台初始化：没有任何学期时创建当前学年的前期 / 后期
	Bootstrap(ctx context.Context, now time.Time) (bool, error)
}

type semesterService struct {
	repo       *repository.Repository
	pairing    *PairingSynchronizer
	ledger     *AbsenceLedger
	cache      *AbsenceCache
	alerts     *AlertService
	notifier   ChangeNotifier
	startMonth int
	loc        *time.Location
	logger     *zap.Logger
}

// NewSemesterService 创建 SemesterService 实例
func NewSemesterService(
	repo *repository.Repository,
	pairing *PairingSynchronizer,
	ledger *AbsenceLedger,
	cache *AbsenceCache,
	alerts *AlertService,
	notifier ChangeNotifier,
	startMonth int,
	loc *time.Location,
	logger *zap.Logger,
) SemesterService {
	return &semesterService{
		repo:       repo,
		pairing:    pairing,
		ledger:     ledger,
		cache:      cache,
		alerts:     alerts,
		notifier:   notifier,
		startMonth: startMonth,
		loc:        loc,
		logger:     logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *semesterService) Create(ctx context.Context, req *dto.CreateSemesterRequest) (*dto.SemesterResponse, error) {
	kind := model.SemesterKind(req.Kind)
	if !kind.Valid() {
		return nil, ErrSemesterKindInvalid
	}
	startDate, err := time.Parse(dto.DateLayout, req.StartDate)
	if err != nil {
		return nil, ErrSemesterDateInvalid
	}
	endDate, err := time.Parse(dto.DateLayout, req.EndDate)
	if err != nil {
		return nil, ErrSemesterDateInvalid
	}
	if !endDate.After(startDate) {
		return nil, ErrSemesterDateInvalid
	}

	semester := &model.Semester{
		Name:      req.Name,
		Kind:      kind,
		StartDate: startDate,
		EndDate:   endDate,
	}
	if err := s.repo.Semester.Create(ctx, semester); err != nil {
		s.logger.Error("创建学期失败", zap.Error(err))
		return nil, apperrors.Storage("semester.create", err)
	}

	s.reloadDerived(ctx)
	s.notifier.Emit(notify.CourseData)
	return s.toSemesterResponse(semester), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *semesterService) GetByID(ctx context.Context, id string) (*dto.SemesterResponse, error) {
	semester, err := s.getSemester(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toSemesterResponse(semester), nil
}

// ────────────────────── GetCurrent ──────────────────────

func (s *semesterService) GetCurrent(ctx context.Context) (*dto.SemesterResponse, error) {
	semester, err := currentSemester(ctx, s.repo)
	if err != nil {
		if !errors.Is(err, ErrNoCurrentSemester) {
			s.logger.Error("查询当前学期失败", zap.Error(err))
		}
		return nil, err
	}
	return s.toSemesterResponse(semester), nil
}

// ────────────────────── List ──────────────────────

func (s *semesterService) List(ctx context.Context) ([]dto.SemesterResponse, error) {
	semesters, err := s.repo.Semester.List(ctx)
	if err != nil {
		s.logger.Error("列出学期失败", zap.Error(err))
		return nil, apperrors.Storage("semester.list", err)
	}

	result := make([]dto.SemesterResponse, 0, len(semesters))
	for i := range semesters {
		result = append(result, *s.toSemesterResponse(&semesters[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

// Update 修改名称与日期
// 前期结束日期移到后期开始日期当天或之后时，后期开始日期顺延到次日；
// 后期开始日期移到前期结束日期当天或之前时，前期结束日期提前到前一天
func (s *semesterService) Update(ctx context.Context, id string, req *dto.UpdateSemesterRequest) (*dto.SemesterResponse, error) {
	semester, err := s.getSemester(ctx, id)
	if err != nil {
		return nil, err
	}
	paired := s.pairing.PairedSemester(semester)

	if req.Name != nil {
		semester.Name = *req.Name
	}
	if req.StartDate != nil {
		startDate, err := time.Parse(dto.DateLayout, *req.StartDate)
		if err != nil {
			return nil, ErrSemesterDateInvalid
		}
		semester.StartDate = startDate
	}
	if req.EndDate != nil {
		endDate, err := time.Parse(dto.DateLayout, *req.EndDate)
		if err != nil {
			return nil, ErrSemesterDateInvalid
		}
		semester.EndDate = endDate
	}
	if !semester.EndDate.After(semester.StartDate) {
		return nil, ErrSemesterDateInvalid
	}

	cascaded := cascadeDates(semester, paired)
	if cascaded != nil && !cascaded.EndDate.After(cascaded.StartDate) {
		return nil, ErrSemesterDateInvalid
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Semester.Update(ctx, semester); err != nil {
			return err
		}
		if cascaded != nil {
			return tx.Semester.Update(ctx, cascaded)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("更新学期失败", zap.String("id", id), zap.Error(err))
		return nil, apperrors.Storage("semester.update", err)
	}

	if cascaded != nil {
		s.logger.Info("联动调整配对学期日期",
			zap.String("id", id),
			zap.String("paired_id", cascaded.SemesterID),
			zap.Time("start_date", cascaded.StartDate),
			zap.Time("end_date", cascaded.EndDate),
		)
	}
	s.reloadDerived(ctx)
	s.notifier.Emit(notify.CourseData)
	return s.toSemesterResponse(semester), nil
}

// cascadeDates 返回需要联动修改的配对学期；不需要时返回 nil
func cascadeDates(semester, paired *model.Semester) *model.Semester {
	if paired == nil {
		return nil
	}
	switch semester.Kind {
	case model.SemesterFirstHalf:
		if semester.EndDate.Before(paired.StartDate) {
			return nil
		}
		paired.StartDate = semester.EndDate.AddDate(0, 0, 1)
	case model.SemesterSecondHalf:
		if semester.StartDate.After(paired.EndDate) {
			return nil
		}
		paired.EndDate = semester.StartDate.AddDate(0, 0, -1)
	default:
		return nil
	}
	return paired
}

// ────────────────────── Activate ──────────────────────

// Activate 切换当前学期：清空其余学期的选中标记，重置缓存并立即通知
func (s *semesterService) Activate(ctx context.Context, id string) error {
	semester, err := s.getSemester(ctx, id)
	if err != nil {
		return err
	}

	// 使用事务保证 ClearActive + Update 的原子性
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Semester.ClearActive(ctx); err != nil {
			return err
		}
		semester.IsActive = true
		return tx.Semester.Update(ctx, semester)
	})
	if err != nil {
		s.logger.Error("切换学期失败", zap.String("id", id), zap.Error(err))
		return apperrors.Storage("semester.activate", err)
	}

	s.reloadDerived(ctx)
	s.cache.Reset()
	if err := s.alerts.RescheduleSemester(ctx, id); err != nil {
		s.logger.Warn("重新安排上课提醒失败", zap.String("id", id), zap.Error(err))
	}
	s.notifier.Emit(notify.CourseData, notify.AttendanceData, notify.StatisticsData)

	s.logger.Info("切换当前学期", zap.String("id", id), zap.String("name", semester.Name))
	return nil
}

// ────────────────────── Reset / Sync ──────────────────────

func (s *semesterService) Reset(ctx context.Context, id string) (*dto.ResetSemesterResponse, error) {
	if _, err := s.getSemester(ctx, id); err != nil {
		return nil, err
	}
	result, err := s.ledger.ResetSemester(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.ResetSemesterResponse{
		DeletedCourses: result.Courses,
		DeletedRecords: result.Records,
	}, nil
}

func (s *semesterService) Sync(ctx context.Context) (*dto.SyncResponse, error) {
	created, err := s.pairing.SyncAll(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.SyncResponse{Created: created}, nil
}

// ────────────────────── Bootstrap ──────────────────────

// Bootstrap 只写存储，不触碰内存中的派生状态；完成后由前台加载
func (s *semesterService) Bootstrap(ctx context.Context, now time.Time) (bool, error) {
	n, err := s.repo.Semester.Count(ctx)
	if err != nil {
		return false, apperrors.Storage("semester.count", err)
	}
	if n > 0 {
		return false, nil
	}

	first, second := defaultSemesters(now, s.startMonth, s.loc)
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Semester.Create(ctx, first); err != nil {
			return err
		}
		return tx.Semester.Create(ctx, second)
	})
	if err != nil {
		s.logger.Error("初始化学期失败", zap.Error(err))
		return false, apperrors.Storage("semester.bootstrap", err)
	}

	s.logger.Info("已创建默认学期",
		zap.String("first_half", first.SemesterID),
		zap.String("second_half", second.SemesterID),
		zap.Bool("first_half_active", first.IsActive),
	)
	return true, nil
}

// defaultSemesters 当前学年的前期（起始月起 6 个月）与后期（其后 6 个月），选中包含 now 的一张
func defaultSemesters(now time.Time, startMonth int, loc *time.Location) (*model.Semester, *model.Semester) {
	if startMonth < 1 || startMonth > 12 {
		startMonth = 4
	}
	today := timeutil.CalendarDay(now, loc)
	year := timeutil.AcademicYear(today, startMonth)
	start := time.Date(year, time.Month(startMonth), 1, 0, 0, 0, 0, time.UTC)
	mid := start.AddDate(0, 6, 0)
	end := start.AddDate(1, 0, 0)

	first := &model.Semester{
		Name:      fmt.Sprintf("%d学年 前期", year),
		Kind:      model.SemesterFirstHalf,
		StartDate: start,
		EndDate:   mid.AddDate(0, 0, -1),
	}
	second := &model.Semester{
		Name:      fmt.Sprintf("%d学年 后期", year),
		Kind:      model.SemesterSecondHalf,
		StartDate: mid,
		EndDate:   end.AddDate(0, 0, -1),
	}
	if today.Before(mid) {
		first.IsActive = true
	} else {
		second.IsActive = true
	}
	return first, second
}

// ── 内部辅助方法 ──

func (s *semesterService) getSemester(ctx context.Context, id string) (*model.Semester, error) {
	semester, err := s.repo.Semester.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		s.logger.Error("查询学期失败", zap.String("id", id), zap.Error(err))
		return nil, apperrors.Storage("semester.get", err)
	}
	return semester, nil
}

// reloadDerived 学期变化后刷新可用学期列表与配对索引
func (s *semesterService) reloadDerived(ctx context.Context) {
	if err := s.pairing.RefreshSemesters(ctx); err != nil {
		s.logger.Warn("刷新可用学期失败", zap.Error(err))
		return
	}
	if err := s.pairing.Reload(ctx); err != nil {
		s.logger.Warn("重建配对索引失败", zap.Error(err))
	}
}

// currentSemester 当前选中的学期
func currentSemester(ctx context.Context, repo *repository.Repository) (*model.Semester, error) {
	semester, err := repo.Semester.GetCurrent(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoCurrentSemester
		}
		return nil, apperrors.Storage("semester.get_current", err)
	}
	return semester, nil
}

// resolveSemester id 为空时取当前学期
func resolveSemester(ctx context.Context, repo *repository.Repository, id string) (*model.Semester, error) {
	if id == "" {
		return currentSemester(ctx, repo)
	}
	semester, err := repo.Semester.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		return nil, apperrors.Storage("semester.get", err)
	}
	return semester, nil
}

func (s *semesterService) toSemesterResponse(semester *model.Semester) *dto.SemesterResponse {
	return toSemesterResponse(semester, s.startMonth)
}

func toSemesterResponse(semester *model.Semester, startMonth int) *dto.SemesterResponse {
	return &dto.SemesterResponse{
		ID:           semester.SemesterID,
		Name:         semester.Name,
		Kind:         string(semester.Kind),
		AcademicYear: timeutil.AcademicYear(semester.StartDate, startMonth),
		StartDate:    dto.FormatDate(semester.StartDate),
		EndDate:      dto.FormatDate(semester.EndDate),
		IsActive:     semester.IsActive,
		CreatedAt:    dto.FormatTimestamp(semester.CreatedAt),
		UpdatedAt:    dto.FormatTimestamp(semester.UpdatedAt),
	}
}
