package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SORA112117/At00-sub000/internal/model"
	"github.com/SORA112117/At00-sub000/internal/repository"
	apperrors "github.com/SORA112117/At00-sub000/pkg/errors"
	"github.com/SORA112117/At00-sub000/pkg/notify"
	"github.com/SORA112117/At00-sub000/pkg/timeutil"
)

// ── 出欠模块业务错误 ──

var (
	ErrRecordNotFound        = errors.New("出欠记录不存在")
	ErrInvalidAttendanceType = errors.New("无效的出欠类型")
)

// RecordOutcome 记录缺勤的结果；达到每日上限是预期结果，不是错误
type RecordOutcome string

const (
	RecordSuccess           RecordOutcome = "success"
	RecordDailyLimitReached RecordOutcome = "daily_limit_reached"
)

// RecordResult RecordAbsence 的返回值
type RecordResult struct {
	Outcome   RecordOutcome
	Record    *model.AttendanceRecord
	Count     int    // 记录后该课程名的缺勤次数
	Remaining int    // 按被点击课程的上限计算
	Alert     string // 发出的提醒种类，未发出时为空
}

// DeleteResult 批量删除的行数
type DeleteResult struct {
	Courses int
	Records int
}

// NameStatistics 一个课程名的出欠统计
type NameStatistics struct {
	Name          string
	TotalSessions int
	MaxAbsences   int
	Counts        map[model.AttendanceType]int
	Absences      int
	Remaining     int
}

// AbsenceLedger 出欠账本
//
// 同名课程的全部记录都挂在代表课程上，计数总是覆盖全部同名课程。
// 每日上限 = 被点击课程所在学期中同名课程的行数（每个物理时间格每天一次）。
type AbsenceLedger struct {
	repo     *repository.Repository
	identity *IdentityResolver
	pairing  *PairingSynchronizer
	cache    *AbsenceCache
	alerts   *AlertService
	notifier ChangeNotifier
	loc      *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// NewAbsenceLedger 创建账本，并把自身注册为缓存未命中时的回退计算
func NewAbsenceLedger(
	repo *repository.Repository,
	identity *IdentityResolver,
	pairing *PairingSynchronizer,
	cache *AbsenceCache,
	alerts *AlertService,
	notifier ChangeNotifier,
	loc *time.Location,
	logger *zap.Logger,
) *AbsenceLedger {
	if loc == nil {
		loc = time.UTC
	}
	l := &AbsenceLedger{
		repo:     repo,
		identity: identity,
		pairing:  pairing,
		cache:    cache,
		alerts:   alerts,
		notifier: notifier,
		loc:      loc,
		now:      time.Now,
		logger:   logger,
	}
	cache.fallback = l.countForName
	return l
}

// ────────────────────── RecordAbsence ──────────────────────

// RecordAbsence 记录一次出欠事件；date 为零值时使用今天
func (l *AbsenceLedger) RecordAbsence(ctx context.Context, courseID uint64, typ model.AttendanceType, memo string, date time.Time) (*RecordResult, error) {
	if !typ.Valid() {
		return nil, ErrInvalidAttendanceType
	}
	course, err := l.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if date.IsZero() {
		date = l.now()
	}
	day := timeutil.CalendarDay(date, l.loc)

	ids, err := l.identity.CourseIDs(ctx, course.Name)
	if err != nil {
		return nil, err
	}
	slots, err := l.repo.Course.CountByNameInSemester(ctx, course.Name, course.SemesterID)
	if err != nil {
		return nil, apperrors.Storage("course.count_in_semester", err)
	}
	today, err := l.repo.Attendance.CountOnDate(ctx, ids, day)
	if err != nil {
		return nil, apperrors.Storage("attendance.count_on_date", err)
	}
	before, err := l.countByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	if today >= slots {
		l.logger.Info("已达到当日记录上限",
			zap.String("name", course.Name),
			zap.Time("date", day),
			zap.Int64("today", today),
			zap.Int64("slots", slots),
		)
		return &RecordResult{
			Outcome:   RecordDailyLimitReached,
			Count:     before,
			Remaining: max(0, course.MaxAbsences-before),
		}, nil
	}

	record := &model.AttendanceRecord{
		CourseID: ids[0],
		Date:     day,
		Type:     typ,
		Memo:     memo,
	}
	err = l.repo.Transaction(ctx, func(tx *repository.Repository) error {
		return tx.Attendance.Create(ctx, record)
	})
	if err != nil {
		l.logger.Error("记录出欠失败", zap.Uint64("course_id", courseID), zap.Error(err))
		return nil, apperrors.Storage("attendance.create", err)
	}

	after := before
	result := &RecordResult{Outcome: RecordSuccess, Record: record}
	if typ.AffectsCredit() {
		after++
		l.cache.Patch(course.Name, 1)
		result.Alert = l.alerts.AbsenceRecorded(ctx, course, before, after)
	}
	result.Count = after
	result.Remaining = max(0, course.MaxAbsences-after)

	l.notifier.Schedule(notify.AttendanceData)
	l.notifier.Schedule(notify.StatisticsData)

	l.logger.Info("记录出欠",
		zap.Uint64("record_id", record.RecordID),
		zap.String("name", course.Name),
		zap.String("type", string(typ)),
		zap.Int("count", after),
	)
	return result, nil
}

// ────────────────────── UndoLastRecord ──────────────────────

// UndoLastRecord 撤销该课程名最近一条计入上限的记录（date DESC, record_id DESC）
// 记录所属课程为通年课程时，同时撤销配对课程同一日期的记录。返回删除的条数，没有记录时为 0
func (l *AbsenceLedger) UndoLastRecord(ctx context.Context, courseID uint64) (int, error) {
	course, err := l.getCourse(ctx, courseID)
	if err != nil {
		return 0, err
	}
	ids, err := l.identity.CourseIDs(ctx, course.Name)
	if err != nil {
		return 0, err
	}

	latest, err := l.repo.Attendance.Latest(ctx, ids, model.CreditAffectingTypes())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.logger.Info("没有可撤销的记录", zap.String("name", course.Name))
			return 0, nil
		}
		return 0, apperrors.Storage("attendance.latest", err)
	}

	targets := []uint64{latest.RecordID}
	owner, err := l.repo.Course.GetByID(ctx, latest.CourseID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apperrors.Storage("course.get", err)
	}
	if owner != nil && owner.IsFullYear {
		twin, err := l.pairing.FindTwin(ctx, owner)
		if err != nil {
			return 0, err
		}
		if twin != nil && twin.CourseID != owner.CourseID {
			mirrored, err := l.repo.Attendance.ListOnDate(ctx, twin.CourseID, latest.Date, model.CreditAffectingTypes())
			if err != nil {
				return 0, apperrors.Storage("attendance.list_on_date", err)
			}
			if len(mirrored) > 0 {
				targets = append(targets, mirrored[0].RecordID)
			}
		}
	}

	err = l.repo.Transaction(ctx, func(tx *repository.Repository) error {
		return tx.Attendance.Delete(ctx, targets...)
	})
	if err != nil {
		l.logger.Error("撤销记录失败", zap.Uint64("course_id", courseID), zap.Error(err))
		return 0, apperrors.Storage("attendance.delete", err)
	}

	l.cache.Patch(course.Name, -len(targets))
	l.notifier.Schedule(notify.AttendanceData)
	l.notifier.Schedule(notify.StatisticsData)

	l.logger.Info("撤销出欠记录", zap.String("name", course.Name), zap.Int("deleted", len(targets)))
	return len(targets), nil
}

// ────────────────────── 计数 ──────────────────────

// GetAbsenceCount 该课程名的缺勤次数（覆盖全部同名课程）
func (l *AbsenceLedger) GetAbsenceCount(ctx context.Context, courseID uint64) (int, error) {
	course, err := l.getCourse(ctx, courseID)
	if err != nil {
		return 0, err
	}
	return l.countForName(ctx, course.Name)
}

// GetRemainingAbsences max(0, 上限 - 缺勤次数)，上限取被查询课程行的设置
func (l *AbsenceLedger) GetRemainingAbsences(ctx context.Context, courseID uint64) (int, error) {
	course, err := l.getCourse(ctx, courseID)
	if err != nil {
		return 0, err
	}
	n, err := l.countForName(ctx, course.Name)
	if err != nil {
		return 0, err
	}
	return max(0, course.MaxAbsences-n), nil
}

func (l *AbsenceLedger) countForName(ctx context.Context, name string) (int, error) {
	ids, err := l.identity.CourseIDs(ctx, name)
	if err != nil {
		return 0, err
	}
	return l.countByIDs(ctx, ids)
}

func (l *AbsenceLedger) countByIDs(ctx context.Context, ids []uint64) (int, error) {
	n, err := l.repo.Attendance.CountByCourseIDs(ctx, ids, model.CreditAffectingTypes())
	if err != nil {
		return 0, apperrors.Storage("attendance.count", err)
	}
	return int(n), nil
}

// ────────────────────── 删除 ──────────────────────

// ResetSemester 清空学期课表
// 按名称作用：学期内出现的每个课程名，删除其在所有学期中的课程行与出欠记录
func (l *AbsenceLedger) ResetSemester(ctx context.Context, semesterID string) (*DeleteResult, error) {
	names, err := l.repo.Course.DistinctNamesBySemester(ctx, semesterID)
	if err != nil {
		return nil, apperrors.Storage("course.distinct_names", err)
	}
	result, err := l.deleteNames(ctx, names)
	if err != nil {
		return nil, err
	}
	l.logger.Info("清空学期课表",
		zap.String("semester_id", semesterID),
		zap.Int("names", len(names)),
		zap.Int("courses", result.Courses),
		zap.Int("records", result.Records),
	)
	return result, nil
}

// DeleteAllWithSameName 删除该课程名在所有学期中的课程行与出欠记录
func (l *AbsenceLedger) DeleteAllWithSameName(ctx context.Context, courseID uint64) (*DeleteResult, error) {
	course, err := l.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return l.deleteNames(ctx, []string{course.Name})
}

func (l *AbsenceLedger) deleteNames(ctx context.Context, names []string) (*DeleteResult, error) {
	if len(names) == 0 {
		return &DeleteResult{}, nil
	}
	courses, err := l.repo.Course.ListByNames(ctx, names)
	if err != nil {
		return nil, apperrors.Storage("course.list_by_names", err)
	}
	ids := courseIDs(courses)
	records, err := l.repo.Attendance.CountByCourseIDs(ctx, ids, nil)
	if err != nil {
		return nil, apperrors.Storage("attendance.count", err)
	}

	err = l.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Attendance.DeleteByCourseIDs(ctx, ids); err != nil {
			return err
		}
		return tx.Course.Delete(ctx, ids...)
	})
	if err != nil {
		l.logger.Error("批量删除课程失败", zap.Strings("names", names), zap.Error(err))
		return nil, apperrors.Storage("course.delete_names", err)
	}

	for i := range courses {
		l.pairing.indexRemove(&courses[i])
	}
	l.cache.Invalidate(names...)
	l.alerts.CancelAbsenceAlerts(ctx, names...)
	l.alerts.CancelClassReminders(ctx, ids...)
	l.notifier.Emit(notify.CourseData, notify.AttendanceData, notify.StatisticsData)

	return &DeleteResult{Courses: len(courses), Records: int(records)}, nil
}

// DeleteCourse 只删除被点击的课程行（及其通年配对行）
// 其他时间格的同名课程和共享的出欠记录保持不变
func (l *AbsenceLedger) DeleteCourse(ctx context.Context, courseID uint64) (int, error) {
	deleted, err := l.pairing.deletePaired(ctx, courseID)
	if err != nil {
		return 0, err
	}
	name := deleted[0].Name

	l.alerts.CancelClassReminders(ctx, courseIDs(deleted)...)
	survivors, err := l.identity.AllCoursesNamed(ctx, name)
	if err == nil && len(survivors) == 0 {
		l.cache.Invalidate(name)
		l.alerts.CancelAbsenceAlerts(ctx, name)
	}
	l.notifier.Emit(notify.CourseData, notify.StatisticsData)
	return len(deleted), nil
}

// DeleteRecord 删除单条出欠记录（课程详情编辑）
func (l *AbsenceLedger) DeleteRecord(ctx context.Context, recordID uint64) error {
	record, err := l.repo.Attendance.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRecordNotFound
		}
		return apperrors.Storage("attendance.get", err)
	}

	err = l.repo.Transaction(ctx, func(tx *repository.Repository) error {
		return tx.Attendance.Delete(ctx, recordID)
	})
	if err != nil {
		l.logger.Error("删除出欠记录失败", zap.Uint64("record_id", recordID), zap.Error(err))
		return apperrors.Storage("attendance.delete", err)
	}

	if record.Type.AffectsCredit() && record.Course != nil {
		l.cache.Patch(record.Course.Name, -1)
	}
	l.notifier.Schedule(notify.AttendanceData)
	l.notifier.Schedule(notify.StatisticsData)
	return nil
}

// ────────────────────── 查询 ──────────────────────

// ListRecords 该课程名的全部出欠记录，最新在前
func (l *AbsenceLedger) ListRecords(ctx context.Context, courseID uint64) ([]model.AttendanceRecord, error) {
	course, err := l.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	ids, err := l.identity.CourseIDs(ctx, course.Name)
	if err != nil {
		return nil, err
	}
	records, err := l.repo.Attendance.ListByCourseIDs(ctx, ids, nil)
	if err != nil {
		return nil, apperrors.Storage("attendance.list_by_courses", err)
	}
	return records, nil
}

// Statistics 学期内每个课程名按出欠类型的统计，按名称排序
func (l *AbsenceLedger) Statistics(ctx context.Context, semesterID string) ([]NameStatistics, error) {
	inSemester, err := l.repo.Course.ListBySemester(ctx, semesterID)
	if err != nil {
		return nil, apperrors.Storage("course.list_by_semester", err)
	}
	names := distinctNames(inSemester)
	if len(names) == 0 {
		return []NameStatistics{}, nil
	}
	courses, err := l.repo.Course.ListByNames(ctx, names)
	if err != nil {
		return nil, apperrors.Storage("course.list_by_names", err)
	}
	records, err := l.repo.Attendance.ListByCourseIDs(ctx, courseIDs(courses), nil)
	if err != nil {
		return nil, apperrors.Storage("attendance.list_by_courses", err)
	}

	stats := make(map[string]*NameStatistics, len(names))
	for i := range inSemester {
		c := &inSemester[i]
		if _, ok := stats[c.Name]; ok {
			continue
		}
		stats[c.Name] = &NameStatistics{
			Name:          c.Name,
			TotalSessions: c.TotalSessions,
			MaxAbsences:   c.MaxAbsences,
			Counts:        make(map[model.AttendanceType]int, len(model.AttendanceTypes)),
		}
	}
	for i := range records {
		r := &records[i]
		if r.Course == nil {
			continue
		}
		s, ok := stats[r.Course.Name]
		if !ok {
			continue
		}
		s.Counts[r.Type]++
		if r.Type.AffectsCredit() {
			s.Absences++
		}
	}

	out := make([]NameStatistics, 0, len(names))
	for _, n := range names {
		s := stats[n]
		s.Remaining = max(0, s.MaxAbsences-s.Absences)
		out = append(out, *s)
	}
	return out, nil
}

// ── 内部辅助方法 ──

func (l *AbsenceLedger) getCourse(ctx context.Context, id uint64) (*model.Course, error) {
	course, err := l.repo.Course.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		l.logger.Error("查询课程失败", zap.Uint64("course_id", id), zap.Error(err))
		return nil, apperrors.Storage("course.get", err)
	}
	return course, nil
}
