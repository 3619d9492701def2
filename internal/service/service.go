package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/SORA112117/At00-sub000/config"
	"github.com/SORA112117/At00-sub000/internal/repository"
	"github.com/SORA112117/At00-sub000/pkg/logger"
	"github.com/SORA112117/At00-sub000/pkg/notify"
)

// ChangeNotifier 变更信号出口（*notify.Coordinator 实现）
type ChangeNotifier interface {
	Schedule(kind notify.Kind)
	Emit(kinds ...notify.Kind)
}

// Service 所有 Service 的聚合入口
type Service struct {
	Semester   SemesterService
	Course     CourseService
	Attendance AttendanceService

	Identity *IdentityResolver
	Pairing  *PairingSynchronizer
	Ledger   *AbsenceLedger
	Cache    *AbsenceCache
	Alerts   *AlertService

	logger *zap.Logger
}

// NewService 创建 Service 聚合；sink 为 nil 时提醒保存到 local_alerts
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	notifier ChangeNotifier,
	sink AlertSink,
	log *zap.Logger,
) *Service {
	att := &cfg.Attendance
	loc := att.Location()
	periods := len(att.PeriodStarts)

	if sink == nil {
		sink = NewStoreAlertSink(repo, logger.Component(log, "alert_sink"))
	}

	identity := NewIdentityResolver(repo, logger.Component(log, "identity"))
	pairing := NewPairingSynchronizer(repo, identity, notifier, att.AcademicYearStartMonth, periods, logger.Component(log, "pairing"))
	cache := NewAbsenceCache(repo, logger.Component(log, "absence_cache"))
	alerts := NewAlertService(att, repo, sink, logger.Component(log, "alerts"))
	ledger := NewAbsenceLedger(repo, identity, pairing, cache, alerts, notifier, loc, logger.Component(log, "ledger"))

	return &Service{
		Semester:   NewSemesterService(repo, pairing, ledger, cache, alerts, notifier, att.AcademicYearStartMonth, loc, log),
		Course:     NewCourseService(repo, pairing, ledger, cache, alerts, periods, att.AcademicYearStartMonth, log),
		Attendance: NewAttendanceService(repo, ledger, alerts, loc, log),
		Identity:   identity,
		Pairing:    pairing,
		Ledger:     ledger,
		Cache:      cache,
		Alerts:     alerts,
		logger:     log,
	}
}

// Load 前台加载派生状态：可用学期、配对索引、通年同步、当前学期课表的缓存
// 必须在后台初始化（Bootstrap）完成之后调用
func (s *Service) Load(ctx context.Context) error {
	if err := s.Pairing.RefreshSemesters(ctx); err != nil {
		return err
	}
	if err := s.Pairing.Reload(ctx); err != nil {
		return err
	}
	created, err := s.Pairing.SyncAll(ctx)
	if err != nil {
		return err
	}

	s.Cache.Reset()
	timetable, err := s.Course.Timetable(ctx, "")
	switch {
	case errors.Is(err, ErrNoCurrentSemester):
		s.logger.Info("尚未选择当前学期，跳过课表加载")
	case err != nil:
		return err
	default:
		s.logger.Info("派生状态加载完成",
			zap.String("semester", timetable.Semester.Name),
			zap.Int("courses", len(timetable.Cells)),
			zap.Int("synced", created),
		)
	}
	return nil
}
