package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SORA112117/At00-sub000/config"
	"github.com/SORA112117/At00-sub000/internal/model"
	"github.com/SORA112117/At00-sub000/internal/repository"
	apperrors "github.com/SORA112117/At00-sub000/pkg/errors"
	"github.com/SORA112117/At00-sub000/pkg/timeutil"
)

// 本地提醒种类
const (
	AlertAbsenceWarning = "absence_warning"
	AlertAbsenceLimit   = "absence_limit"
	AlertClassReminder  = "class_reminder"
)

// AlertSink 本地提醒投递接口（系统推送服务的抽象）
// 同一 id 重复调度时覆盖之前的提醒
type AlertSink interface {
	ScheduleLocal(ctx context.Context, id, title, body string, triggerAt time.Time, repeats bool, payload map[string]string) error
	Cancel(ctx context.Context, ids ...string) error
	CancelAll(ctx context.Context) error
}

// ── StoreAlertSink ──────────────────────────────────────────

// StoreAlertSink 把待投递的提醒保存到 local_alerts，由外部推送进程读取投递
type StoreAlertSink struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewStoreAlertSink 创建基于数据库的提醒投递
func NewStoreAlertSink(repo *repository.Repository, logger *zap.Logger) *StoreAlertSink {
	return &StoreAlertSink{repo: repo, logger: logger}
}

func (s *StoreAlertSink) ScheduleLocal(ctx context.Context, id, title, body string, triggerAt time.Time, repeats bool, payload map[string]string) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化提醒负载失败: %w", err)
	}
	alert := &model.LocalAlert{
		AlertID:   id,
		Kind:      payload["kind"],
		Title:     title,
		Body:      body,
		TriggerAt: triggerAt.UTC(),
		Repeats:   repeats,
		Payload:   string(raw),
	}
	if err := s.repo.Alert.Upsert(ctx, alert); err != nil {
		s.logger.Error("保存本地提醒失败", zap.String("alert_id", id), zap.Error(err))
		return apperrors.Storage("alert.upsert", err)
	}
	return nil
}

func (s *StoreAlertSink) Cancel(ctx context.Context, ids ...string) error {
	if err := s.repo.Alert.Delete(ctx, ids); err != nil {
		s.logger.Error("取消本地提醒失败", zap.Strings("alert_ids", ids), zap.Error(err))
		return apperrors.Storage("alert.delete", err)
	}
	return nil
}

func (s *StoreAlertSink) CancelAll(ctx context.Context) error {
	if err := s.repo.Alert.DeleteAll(ctx); err != nil {
		s.logger.Error("清空本地提醒失败", zap.Error(err))
		return apperrors.Storage("alert.delete_all", err)
	}
	return nil
}

// ── AlertService ────────────────────────────────────────────

// AlertService 缺勤上限提醒与上课提醒
// 提醒投递失败只记录日志，不影响出欠记录本身
type AlertService struct {
	repo          *repository.Repository
	sink          AlertSink
	warnThreshold int
	lead          time.Duration
	periodStarts  [][2]int
	loc           *time.Location
	now           func() time.Time
	logger        *zap.Logger
}

// NewAlertService 创建提醒服务；无法解析的节次时间会被跳过
func NewAlertService(cfg *config.AttendanceConfig, repo *repository.Repository, sink AlertSink, logger *zap.Logger) *AlertService {
	starts := make([][2]int, 0, len(cfg.PeriodStarts))
	for _, s := range cfg.PeriodStarts {
		h, m, err := timeutil.ParseClock(s)
		if err != nil {
			logger.Warn("忽略无效的节次开始时间", zap.String("value", s), zap.Error(err))
			starts = append(starts, [2]int{-1, -1})
			continue
		}
		starts = append(starts, [2]int{h, m})
	}
	return &AlertService{
		repo:          repo,
		sink:          sink,
		warnThreshold: cfg.WarnThreshold,
		lead:          cfg.ReminderLead,
		periodStarts:  starts,
		loc:           cfg.Location(),
		now:           time.Now,
		logger:        logger,
	}
}

// AbsenceAlertID 缺勤提醒 id（按课程名）
func AbsenceAlertID(name string) string { return "absence-" + name }

// ClassReminderID 上课提醒 id（按课程行）
func ClassReminderID(courseID uint64) string { return "class-" + strconv.FormatUint(courseID, 10) }

// AbsenceRecorded 记录一次计入上限的缺勤后调用
// 本次之前剩余次数 ≤ warnThreshold 时发出预警，剩余次数归零时发出上限提醒
// 返回发出的提醒种类，未发出时为空
func (a *AlertService) AbsenceRecorded(ctx context.Context, course *model.Course, countBefore, countAfter int) string {
	if !course.NotificationEnabled {
		return ""
	}
	before := max(0, course.MaxAbsences-countBefore)
	after := max(0, course.MaxAbsences-countAfter)

	var kind, title, body string
	switch {
	case after == 0:
		kind = AlertAbsenceLimit
		title = course.Name + " 已达到缺勤上限"
		body = fmt.Sprintf("已缺勤 %d 次，上限 %d 次，不能再缺勤了", countAfter, course.MaxAbsences)
	case before <= a.warnThreshold:
		kind = AlertAbsenceWarning
		title = course.Name + " 即将达到缺勤上限"
		body = fmt.Sprintf("已缺勤 %d 次，还可以缺勤 %d 次", countAfter, after)
	default:
		return ""
	}

	payload := map[string]string{
		"kind":      kind,
		"name":      course.Name,
		"course_id": strconv.FormatUint(course.CourseID, 10),
		"remaining": strconv.Itoa(after),
	}
	if err := a.sink.ScheduleLocal(ctx, AbsenceAlertID(course.Name), title, body, a.now(), false, payload); err != nil {
		a.logger.Warn("发送缺勤提醒失败", zap.String("name", course.Name), zap.Error(err))
		return ""
	}
	a.logger.Info("发送缺勤提醒", zap.String("name", course.Name), zap.String("kind", kind), zap.Int("remaining", after))
	return kind
}

// CancelAbsenceAlerts 取消课程名对应的缺勤提醒
func (a *AlertService) CancelAbsenceAlerts(ctx context.Context, names ...string) {
	ids := make([]string, 0, len(names))
	for _, n := range names {
		ids = append(ids, AbsenceAlertID(n))
	}
	if err := a.sink.Cancel(ctx, ids...); err != nil {
		a.logger.Warn("取消缺勤提醒失败", zap.Strings("names", names), zap.Error(err))
	}
}

// ScheduleClassReminder 为开启提醒的课程安排每周重复的上课提醒
// 只对当前选中学期的课程生效，其余情况取消已有提醒
func (a *AlertService) ScheduleClassReminder(ctx context.Context, course *model.Course) {
	id := ClassReminderID(course.CourseID)
	active, err := a.inActiveSemester(ctx, course)
	if err != nil {
		a.logger.Warn("查询课程所属学期失败", zap.Uint64("course_id", course.CourseID), zap.Error(err))
		return
	}
	if !course.NotificationEnabled || !active {
		a.CancelClassReminders(ctx, course.CourseID)
		return
	}

	trigger, ok := a.nextReminder(course)
	if !ok {
		a.logger.Debug("节次没有配置开始时间，跳过上课提醒", zap.Int("period", course.Period))
		return
	}
	payload := map[string]string{
		"kind":      AlertClassReminder,
		"course_id": strconv.FormatUint(course.CourseID, 10),
		"name":      course.Name,
	}
	body := fmt.Sprintf("第 %d 节课将在 %d 分钟后开始", course.Period, int(a.lead.Minutes()))
	if err := a.sink.ScheduleLocal(ctx, id, course.Name, body, trigger, true, payload); err != nil {
		a.logger.Warn("安排上课提醒失败", zap.Uint64("course_id", course.CourseID), zap.Error(err))
	}
}

// CancelClassReminders 取消课程行对应的上课提醒
func (a *AlertService) CancelClassReminders(ctx context.Context, courseIDs ...uint64) {
	if len(courseIDs) == 0 {
		return
	}
	ids := make([]string, 0, len(courseIDs))
	for _, id := range courseIDs {
		ids = append(ids, ClassReminderID(id))
	}
	if err := a.sink.Cancel(ctx, ids...); err != nil {
		a.logger.Warn("取消上课提醒失败", zap.Error(err))
	}
}

// RescheduleSemester 切换学期后清空全部提醒，再为该学期的课程重新安排
func (a *AlertService) RescheduleSemester(ctx context.Context, semesterID string) error {
	if err := a.sink.CancelAll(ctx); err != nil {
		return err
	}
	courses, err := a.repo.Course.ListBySemester(ctx, semesterID)
	if err != nil {
		return apperrors.Storage("course.list_by_semester", err)
	}
	for i := range courses {
		if courses[i].NotificationEnabled {
			a.ScheduleClassReminder(ctx, &courses[i])
		}
	}
	return nil
}

// List 返回待投递的提醒
func (a *AlertService) List(ctx context.Context) ([]model.LocalAlert, error) {
	alerts, err := a.repo.Alert.List(ctx)
	if err != nil {
		a.logger.Error("查询本地提醒失败", zap.Error(err))
		return nil, apperrors.Storage("alert.list", err)
	}
	return alerts, nil
}

// nextReminder 下一次上课开始时间减去提前量，严格晚于当前时间
func (a *AlertService) nextReminder(course *model.Course) (time.Time, bool) {
	idx := course.Period - 1
	if idx < 0 || idx >= len(a.periodStarts) || a.periodStarts[idx][0] < 0 {
		return time.Time{}, false
	}
	hm := a.periodStarts[idx]
	start := timeutil.NextWeekly(a.now().Add(a.lead), course.DayOfWeek, hm[0], hm[1], a.loc)
	return start.Add(-a.lead), true
}

func (a *AlertService) inActiveSemester(ctx context.Context, course *model.Course) (bool, error) {
	semester, err := a.repo.Semester.GetByID(ctx, course.SemesterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return semester.IsActive, nil
}
