package service

import (
	"context"
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SORA112117/At00-sub000/internal/model"
	"github.com/SORA112117/At00-sub000/internal/repository"
	apperrors "github.com/SORA112117/At00-sub000/pkg/errors"
	"github.com/SORA112117/At00-sub000/pkg/notify"
	"github.com/SORA112117/At00-sub000/pkg/timeutil"
)

// ── 课程模块业务错误 ──

var (
	ErrCourseNotFound               = errors.New("课程不存在")
	ErrInvalidCourseDraft           = errors.New("课程信息不合法")
	ErrSlotOccupied                 = errors.New("该时间格已有课程")
	ErrCurrentSlotOccupied          = errors.New("当前学期该时间格已有课程")
	ErrOtherSemesterSlotOccupied    = errors.New("配对学期该时间格已有课程")
	ErrBothSlotsOccupied            = errors.New("当前学期与配对学期该时间格均已有课程")
	ErrDuplicateNameInSemester      = errors.New("本学期已有同名课程")
	ErrDuplicateNameAcrossSemesters = errors.New("其他学期已有同名课程，请使用已有课程分配时间格")
)

// CourseDraft 新建课程的输入
type CourseDraft struct {
	Name                string `validate:"required,max=100"`
	DayOfWeek           int    `validate:"min=1,max=7"`
	Period              int    `validate:"min=1"`
	TotalSessions       int    `validate:"min=1"`
	MaxAbsences         int    `validate:"min=0,ltefield=TotalSessions"`
	ColorIndex          int    `validate:"min=0"`
	IsFullYear          bool
	NotificationEnabled bool
}

// CoursePatch 课程编辑；nil 字段保持不变
type CoursePatch struct {
	Name                *string
	TotalSessions       *int
	MaxAbsences         *int
	ColorIndex          *int
	NotificationEnabled *bool
}

// pairKey 通年课程配对索引键
type pairKey struct {
	name   string
	year   int
	day    int
	period int
}

// pairEntry 前期 / 后期两行的 course_id，0 表示缺失
type pairEntry struct {
	firstHalf  uint64
	secondHalf uint64
}

func (e *pairEntry) get(kind model.SemesterKind) uint64 {
	if kind == model.SemesterFirstHalf {
		return e.firstHalf
	}
	return e.secondHalf
}

func (e *pairEntry) set(kind model.SemesterKind, id uint64) {
	if kind == model.SemesterFirstHalf {
		e.firstHalf = id
		return
	}
	e.secondHalf = id
}

// PairingSynchronizer 通年课程前期 / 后期两行的同步器
//
// 两行之间不存外键，而是按 (名称, 学年, 星期, 节次) 隐式配对。
// 这里维护一份内存索引，加载时重建、每次变更时修补；索引未命中时回退到存储查询，
// 仍找不到时只记录 PairingInconsistency，不让操作失败，由 SyncAll 事后修复。
type PairingSynchronizer struct {
	repo       *repository.Repository
	identity   *IdentityResolver
	notifier   ChangeNotifier
	validate   *validator.Validate
	startMonth int
	periods    int
	logger     *zap.Logger

	mu        sync.RWMutex
	semesters []model.Semester
	index     map[pairKey]*pairEntry
}

// NewPairingSynchronizer 创建同步器；periods<=0 时不限制节次上限
func NewPairingSynchronizer(
	repo *repository.Repository,
	identity *IdentityResolver,
	notifier ChangeNotifier,
	startMonth, periods int,
	logger *zap.Logger,
) *PairingSynchronizer {
	return &PairingSynchronizer{
		repo:       repo,
		identity:   identity,
		notifier:   notifier,
		validate:   validator.New(),
		startMonth: startMonth,
		periods:    periods,
		logger:     logger,
		index:      make(map[pairKey]*pairEntry),
	}
}

// ────────────────────── 可用学期 / 配对索引 ──────────────────────

// RefreshSemesters 重新加载可用学期列表（初始化、新建学期、切换学期、修改日期后调用）
func (p *PairingSynchronizer) RefreshSemesters(ctx context.Context) error {
	semesters, err := p.repo.Semester.List(ctx)
	if err != nil {
		p.logger.Error("加载学期列表失败", zap.Error(err))
		return apperrors.Storage("semester.list", err)
	}
	p.mu.Lock()
	p.semesters = semesters
	p.mu.Unlock()
	return nil
}

// AvailableSemesters 返回可用学期快照
func (p *PairingSynchronizer) AvailableSemesters() []model.Semester {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]model.Semester, len(p.semesters))
	copy(out, p.semesters)
	return out
}

// Reload 从存储重建配对索引
func (p *PairingSynchronizer) Reload(ctx context.Context) error {
	courses, err := p.repo.Course.ListFullYear(ctx)
	if err != nil {
		p.logger.Error("加载通年课程失败", zap.Error(err))
		return apperrors.Storage("course.list_full_year", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.index = make(map[pairKey]*pairEntry, len(courses))
	for i := range courses {
		p.putLocked(&courses[i])
	}
	return nil
}

// PairedSemester 返回同一学年、相反种类的学期；未加载时返回 nil
// 同一学年存在多张相反种类的学期表时，优先当前选中的一张，其次按列表顺序取第一张
func (p *PairingSynchronizer) PairedSemester(semester *model.Semester) *model.Semester {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pairedLocked(semester)
}

func (p *PairingSynchronizer) pairedLocked(semester *model.Semester) *model.Semester {
	if semester == nil {
		return nil
	}
	year := timeutil.AcademicYear(semester.StartDate, p.startMonth)
	want := semester.Kind.Opposite()

	var found *model.Semester
	for i := range p.semesters {
		s := &p.semesters[i]
		if s.SemesterID == semester.SemesterID || s.Kind != want {
			continue
		}
		if timeutil.AcademicYear(s.StartDate, p.startMonth) != year {
			continue
		}
		if s.IsActive {
			cp := *s
			return &cp
		}
		if found == nil {
			found = s
		}
	}
	if found == nil {
		return nil
	}
	cp := *found
	return &cp
}

// semesterOf 先查可用学期列表，未命中时回退到存储
func (p *PairingSynchronizer) semesterOf(ctx context.Context, id string) (*model.Semester, error) {
	p.mu.RLock()
	for i := range p.semesters {
		if p.semesters[i].SemesterID == id {
			cp := p.semesters[i]
			p.mu.RUnlock()
			return &cp, nil
		}
	}
	p.mu.RUnlock()

	semester, err := p.repo.Semester.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		p.logger.Error("查询学期失败", zap.String("semester_id", id), zap.Error(err))
		return nil, apperrors.Storage("semester.get", err)
	}
	return semester, nil
}

func (p *PairingSynchronizer) keyLocked(c *model.Course) (pairKey, model.SemesterKind, bool) {
	for i := range p.semesters {
		s := &p.semesters[i]
		if s.SemesterID == c.SemesterID {
			return pairKey{
				name:   c.Name,
				year:   timeutil.AcademicYear(s.StartDate, p.startMonth),
				day:    c.DayOfWeek,
				period: c.Period,
			}, s.Kind, true
		}
	}
	return pairKey{}, "", false
}

func (p *PairingSynchronizer) putLocked(c *model.Course) {
	if !c.IsFullYear {
		return
	}
	key, kind, ok := p.keyLocked(c)
	if !ok {
		return
	}
	entry := p.index[key]
	if entry == nil {
		entry = &pairEntry{}
		p.index[key] = entry
	}
	entry.set(kind, c.CourseID)
}

func (p *PairingSynchronizer) removeLocked(c *model.Course) {
	key, kind, ok := p.keyLocked(c)
	if !ok {
		return
	}
	entry := p.index[key]
	if entry == nil || entry.get(kind) != c.CourseID {
		return
	}
	entry.set(kind, 0)
	if entry.firstHalf == 0 && entry.secondHalf == 0 {
		delete(p.index, key)
	}
}

func (p *PairingSynchronizer) indexPut(courses ...*model.Course) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range courses {
		if c != nil {
			p.putLocked(c)
		}
	}
}

func (p *PairingSynchronizer) indexRemove(courses ...*model.Course) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range courses {
		if c != nil {
			p.removeLocked(c)
		}
	}
}

// ────────────────────── FindTwin ──────────────────────

// FindTwin 查找通年课程在配对学期中的另一行
// 找不到时返回 nil, nil 并记录 PairingInconsistency
func (p *PairingSynchronizer) FindTwin(ctx context.Context, course *model.Course) (*model.Course, error) {
	return p.findTwin(ctx, p.repo, course)
}

func (p *PairingSynchronizer) findTwin(ctx context.Context, repo *repository.Repository, course *model.Course) (*model.Course, error) {
	if course == nil || !course.IsFullYear {
		return nil, nil
	}
	semester, err := p.semesterOf(ctx, course.SemesterID)
	if err != nil {
		return nil, err
	}
	paired := p.PairedSemester(semester)
	if paired == nil {
		p.logger.Debug("通年课程没有已加载的配对学期",
			zap.Uint64("course_id", course.CourseID),
			zap.String("semester_id", course.SemesterID),
		)
		return nil, nil
	}

	// 索引
	p.mu.RLock()
	var twinID uint64
	if key, _, ok := p.keyLocked(course); ok {
		if entry := p.index[key]; entry != nil {
			twinID = entry.get(paired.Kind)
		}
	}
	p.mu.RUnlock()

	if twinID != 0 {
		twin, err := repo.Course.GetByID(ctx, twinID)
		if err == nil && twin.SemesterID == paired.SemesterID && twin.Name == course.Name {
			return twin, nil
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Storage("course.get", err)
		}
	}

	// 回退：按时间格查询
	twin, err := repo.Course.FindBySlot(ctx, paired.SemesterID, course.DayOfWeek, course.Period)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		p.logger.Error("查询配对课程失败", zap.Uint64("course_id", course.CourseID), zap.Error(err))
		return nil, apperrors.Storage("course.find_by_slot", err)
	}
	if err == nil && twin.Name == course.Name {
		if twin.IsFullYear {
			p.indexPut(course, twin)
		}
		return twin, nil
	}

	p.logInconsistency(course, paired)
	return nil, nil
}

func (p *PairingSynchronizer) logInconsistency(course *model.Course, paired *model.Semester) {
	p.logger.Warn("通年课程配对缺失",
		zap.Error(apperrors.ErrPairingInconsistency),
		zap.Uint64("course_id", course.CourseID),
		zap.String("name", course.Name),
		zap.String("semester_id", course.SemesterID),
		zap.String("paired_semester_id", paired.SemesterID),
		zap.Int("day_of_week", course.DayOfWeek),
		zap.Int("period", course.Period),
	)
}

// ────────────────────── CreatePaired ──────────────────────

// CreatePaired 在学期内新建课程；通年课程同时在配对学期建立另一行
// 先检查两个时间格，全部空闲后才在同一事务中写入
func (p *PairingSynchronizer) CreatePaired(ctx context.Context, draft *CourseDraft, semesterID string) (*model.Course, error) {
	if err := p.validateDraft(draft); err != nil {
		return nil, err
	}
	semester, err := p.semesterOf(ctx, semesterID)
	if err != nil {
		return nil, err
	}

	inSemester, err := p.identity.ExistsInSemester(ctx, draft.Name, semesterID)
	if err != nil {
		return nil, err
	}
	if inSemester {
		return nil, ErrDuplicateNameInSemester
	}
	anywhere, err := p.identity.ExistsAnywhere(ctx, draft.Name)
	if err != nil {
		return nil, err
	}
	if anywhere {
		return nil, ErrDuplicateNameAcrossSemesters
	}

	var paired *model.Semester
	if draft.IsFullYear {
		paired = p.PairedSemester(semester)
	}
	if err := p.checkSlots(ctx, semester.SemesterID, paired, draft.DayOfWeek, draft.Period, 0, 0); err != nil {
		return nil, err
	}

	course := draftToCourse(draft, semester.SemesterID)
	var twin *model.Course
	err = p.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Course.Create(ctx, course); err != nil {
			return err
		}
		if paired != nil {
			twin = copyCourse(course, paired.SemesterID)
			return tx.Course.Create(ctx, twin)
		}
		return nil
	})
	if err != nil {
		p.logger.Error("新建课程失败", zap.String("name", draft.Name), zap.Error(err))
		return nil, apperrors.Storage("course.create_paired", err)
	}

	if draft.IsFullYear && paired == nil {
		p.logger.Warn("通年课程暂无配对学期，仅创建一行",
			zap.Error(apperrors.ErrPairingInconsistency),
			zap.Uint64("course_id", course.CourseID),
			zap.String("semester_id", semesterID),
		)
	}
	p.indexPut(course, twin)
	p.notifier.Emit(notify.CourseData)

	p.logger.Info("新建课程",
		zap.Uint64("course_id", course.CourseID),
		zap.String("name", course.Name),
		zap.Bool("full_year", course.IsFullYear),
		zap.Bool("twin_created", twin != nil),
	)
	return course, nil
}

// checkSlots 两阶段时间格检查；ignore* 为允许占用的课程（移动自身时）
func (p *PairingSynchronizer) checkSlots(ctx context.Context, semesterID string, paired *model.Semester, day, period int, ignoreCurrent, ignoreOther uint64) error {
	current, err := p.slotTaken(ctx, semesterID, day, period, ignoreCurrent)
	if err != nil {
		return err
	}
	other := false
	if paired != nil {
		if other, err = p.slotTaken(ctx, paired.SemesterID, day, period, ignoreOther); err != nil {
			return err
		}
	}
	switch {
	case current && other:
		return ErrBothSlotsOccupied
	case current:
		return ErrCurrentSlotOccupied
	case other:
		return ErrOtherSemesterSlotOccupied
	}
	return nil
}

func (p *PairingSynchronizer) slotTaken(ctx context.Context, semesterID string, day, period int, ignore uint64) (bool, error) {
	c, err := p.repo.Course.FindBySlot(ctx, semesterID, day, period)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		p.logger.Error("查询时间格失败", zap.String("semester_id", semesterID), zap.Error(err))
		return false, apperrors.Storage("course.find_by_slot", err)
	}
	return c.CourseID != ignore, nil
}

func (p *PairingSynchronizer) validateDraft(d *CourseDraft) error {
	if d == nil {
		return ErrInvalidCourseDraft
	}
	if err := p.validate.Struct(d); err != nil {
		p.logger.Debug("课程信息校验失败", zap.Error(err))
		return ErrInvalidCourseDraft
	}
	return p.validateSlot(d.DayOfWeek, d.Period)
}

func (p *PairingSynchronizer) validateSlot(day, period int) error {
	if day < 1 || day > 7 || period < 1 {
		return ErrInvalidCourseDraft
	}
	if p.periods > 0 && period > p.periods {
		return ErrInvalidCourseDraft
	}
	return nil
}

// ────────────────────── AssignExistingToSlot ──────────────────────

// AssignExistingToSlot 把已有课程放入新的时间格
// 不移动原课程，而是新建同名的一行，通过名称共享出欠记录
func (p *PairingSynchronizer) AssignExistingToSlot(ctx context.Context, sourceID uint64, semesterID string, day, period int) (*model.Course, error) {
	if err := p.validateSlot(day, period); err != nil {
		return nil, err
	}
	source, err := p.repo.Course.GetByID(ctx, sourceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, apperrors.Storage("course.get", err)
	}
	target, err := p.semesterOf(ctx, semesterID)
	if err != nil {
		return nil, err
	}

	taken, err := p.slotTaken(ctx, target.SemesterID, day, period, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSlotOccupied
	}

	// 跨学期来源：只允许来自配对学期，其余视为重名
	crossSemester := false
	if source.SemesterID != target.SemesterID {
		paired := p.PairedSemester(target)
		if paired == nil || paired.SemesterID != source.SemesterID {
			return nil, ErrDuplicateNameAcrossSemesters
		}
		exists, err := p.identity.ExistsInSemester(ctx, source.Name, target.SemesterID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrDuplicateNameInSemester
		}
		crossSemester = true
	}
	// 通年来源跨学期分配时新行沿用通年标记；半年课程只复制同名的一行，不改动来源
	repair := crossSemester && source.IsFullYear

	created := copyCourse(source, target.SemesterID)
	created.DayOfWeek = day
	created.Period = period

	var twin *model.Course
	err = p.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Course.Create(ctx, created); err != nil {
			return err
		}
		if created.IsFullYear && !crossSemester {
			var err error
			twin, err = p.createTwinIfFree(ctx, tx, created, target)
			return err
		}
		return nil
	})
	if err != nil {
		p.logger.Error("分配课程到时间格失败", zap.Uint64("source_id", sourceID), zap.Error(err))
		return nil, apperrors.Storage("course.assign_existing", err)
	}

	if repair {
		p.logger.Info("跨学期分配通年课程，新行标记为通年",
			zap.Uint64("source_id", source.CourseID),
			zap.Uint64("course_id", created.CourseID),
		)
	}
	p.indexPut(source, created, twin)
	p.notifier.Emit(notify.CourseData)
	return created, nil
}

// createTwinIfFree 在配对学期的同一时间格建立另一行；时间格被占用时只记录日志
func (p *PairingSynchronizer) createTwinIfFree(ctx context.Context, tx *repository.Repository, course *model.Course, semester *model.Semester) (*model.Course, error) {
	paired := p.PairedSemester(semester)
	if paired == nil {
		return nil, nil
	}
	occupant, err := tx.Course.FindBySlot(ctx, paired.SemesterID, course.DayOfWeek, course.Period)
	if err == nil {
		if occupant.Name != course.Name {
			p.logInconsistency(course, paired)
		}
		return nil, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	twin := copyCourse(course, paired.SemesterID)
	if err := tx.Course.Create(ctx, twin); err != nil {
		return nil, err
	}
	return twin, nil
}

// ────────────────────── MoveToSlot ──────────────────────

// MoveToSlot 把课程（及其通年配对行）移动到新的时间格
func (p *PairingSynchronizer) MoveToSlot(ctx context.Context, courseID uint64, day, period int) (*model.Course, error) {
	if err := p.validateSlot(day, period); err != nil {
		return nil, err
	}
	course, err := p.repo.Course.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, apperrors.Storage("course.get", err)
	}
	if course.DayOfWeek == day && course.Period == period {
		return course, nil
	}

	twin, err := p.FindTwin(ctx, course)
	if err != nil {
		return nil, err
	}
	var paired *model.Semester
	var twinID uint64
	if twin != nil {
		twinID = twin.CourseID
		paired = &model.Semester{SemesterID: twin.SemesterID}
	}
	if err := p.checkSlots(ctx, course.SemesterID, paired, day, period, course.CourseID, twinID); err != nil {
		return nil, err
	}

	before := *course
	var twinBefore model.Course
	if twin != nil {
		twinBefore = *twin
	}
	err = p.repo.Transaction(ctx, func(tx *repository.Repository) error {
		course.DayOfWeek, course.Period = day, period
		if err := tx.Course.Update(ctx, course); err != nil {
			return err
		}
		if twin != nil {
			twin.DayOfWeek, twin.Period = day, period
			return tx.Course.Update(ctx, twin)
		}
		return nil
	})
	if err != nil {
		p.logger.Error("移动课程失败", zap.Uint64("course_id", courseID), zap.Error(err))
		return nil, apperrors.Storage("course.move", err)
	}

	if twin != nil {
		p.indexRemove(&before, &twinBefore)
	} else {
		p.indexRemove(&before)
	}
	p.indexPut(course, twin)
	p.notifier.Schedule(notify.CourseData)
	return course, nil
}

// ────────────────────── UpdatePaired ──────────────────────

// UpdatePaired 编辑课程并同步到通年配对行
// 名称、总课时、缺勤上限作用于全部同名课程，出欠记录随名称一起迁移
func (p *PairingSynchronizer) UpdatePaired(ctx context.Context, courseID uint64, patch *CoursePatch) (*model.Course, error) {
	course, err := p.repo.Course.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, apperrors.Storage("course.get", err)
	}

	oldName := course.Name
	renamed := patch.Name != nil && *patch.Name != oldName
	if renamed {
		if *patch.Name == "" || len(*patch.Name) > 100 {
			return nil, ErrInvalidCourseDraft
		}
		inSemester, err := p.identity.ExistsInSemester(ctx, *patch.Name, course.SemesterID)
		if err != nil {
			return nil, err
		}
		if inSemester {
			return nil, ErrDuplicateNameInSemester
		}
		anywhere, err := p.identity.ExistsAnywhere(ctx, *patch.Name)
		if err != nil {
			return nil, err
		}
		if anywhere {
			return nil, ErrDuplicateNameAcrossSemesters
		}
	}

	total, maxAbs := course.TotalSessions, course.MaxAbsences
	if patch.TotalSessions != nil {
		total = *patch.TotalSessions
	}
	if patch.MaxAbsences != nil {
		maxAbs = *patch.MaxAbsences
	}
	if total < 1 || maxAbs < 0 || maxAbs > total {
		return nil, ErrInvalidCourseDraft
	}
	if patch.ColorIndex != nil && *patch.ColorIndex < 0 {
		return nil, ErrInvalidCourseDraft
	}

	twin, err := p.FindTwin(ctx, course)
	if err != nil {
		return nil, err
	}

	// 名称、总课时、缺勤上限对全部同名课程生效
	siblings, err := p.identity.AllCoursesNamed(ctx, oldName)
	if err != nil {
		return nil, err
	}

	err = p.repo.Transaction(ctx, func(tx *repository.Repository) error {
		course.TotalSessions, course.MaxAbsences = total, maxAbs
		if patch.ColorIndex != nil {
			course.ColorIndex = *patch.ColorIndex
		}
		if patch.NotificationEnabled != nil {
			course.NotificationEnabled = *patch.NotificationEnabled
		}
		if renamed {
			course.Name = *patch.Name
		}
		if err := tx.Course.Update(ctx, course); err != nil {
			return err
		}
		if twin != nil {
			twin.Name = course.Name
			twin.TotalSessions, twin.MaxAbsences = total, maxAbs
			if err := tx.Course.Update(ctx, twin); err != nil {
				return err
			}
		}
		for i := range siblings {
			s := &siblings[i]
			if s.CourseID == course.CourseID || (twin != nil && s.CourseID == twin.CourseID) {
				continue
			}
			if s.Name == course.Name && s.TotalSessions == total && s.MaxAbsences == maxAbs {
				continue
			}
			s.Name = course.Name
			s.TotalSessions, s.MaxAbsences = total, maxAbs
			if err := tx.Course.Update(ctx, s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		p.logger.Error("更新课程失败", zap.Uint64("course_id", courseID), zap.Error(err))
		return nil, apperrors.Storage("course.update", err)
	}

	if renamed {
		if err := p.Reload(ctx); err != nil {
			p.logger.Warn("改名后重建配对索引失败", zap.Error(err))
		}
	}
	p.notifier.Emit(notify.CourseData)
	return course, nil
}

// ────────────────────── SyncAll ──────────────────────

// SyncAll 为每个学年的前期 / 后期学期补齐缺失的通年配对行
// 幂等：第二次执行不会产生任何写入。返回新建的行数
func (p *PairingSynchronizer) SyncAll(ctx context.Context) (int, error) {
	created := 0
	for _, pair := range p.semesterPairs() {
		n, err := p.syncPair(ctx, pair[0], pair[1])
		if err != nil {
			return created, err
		}
		created += n
	}

	if created > 0 {
		if err := p.Reload(ctx); err != nil {
			return created, err
		}
		p.notifier.Schedule(notify.CourseData)
		p.logger.Info("通年课程同步完成", zap.Int("created", created))
	}
	return created, nil
}

// semesterPairs 每个学年取一组互为配对的 (前期, 后期)
func (p *PairingSynchronizer) semesterPairs() [][2]model.Semester {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var pairs [][2]model.Semester
	for i := range p.semesters {
		first := &p.semesters[i]
		if first.Kind != model.SemesterFirstHalf {
			continue
		}
		second := p.pairedLocked(first)
		if second == nil {
			continue
		}
		if back := p.pairedLocked(second); back == nil || back.SemesterID != first.SemesterID {
			continue
		}
		pairs = append(pairs, [2]model.Semester{*first, *second})
	}
	return pairs
}

func (p *PairingSynchronizer) syncPair(ctx context.Context, first, second model.Semester) (int, error) {
	created := 0
	err := p.repo.Transaction(ctx, func(tx *repository.Repository) error {
		created = 0
		firstCourses, err := tx.Course.ListBySemester(ctx, first.SemesterID)
		if err != nil {
			return err
		}
		secondCourses, err := tx.Course.ListBySemester(ctx, second.SemesterID)
		if err != nil {
			return err
		}

		firstSlots := slotMap(firstCourses)
		secondSlots := slotMap(secondCourses)

		fill := func(src []model.Course, dst map[model.Slot]string, dstSemester *model.Semester) error {
			for i := range src {
				c := &src[i]
				if !c.IsFullYear {
					continue
				}
				if occupant, ok := dst[c.Slot()]; ok {
					if occupant != c.Name {
						p.logInconsistency(c, dstSemester)
					}
					continue
				}
				twin := copyCourse(c, dstSemester.SemesterID)
				if err := tx.Course.Create(ctx, twin); err != nil {
					return err
				}
				dst[c.Slot()] = twin.Name
				created++
			}
			return nil
		}

		if err := fill(firstCourses, secondSlots, &second); err != nil {
			return err
		}
		return fill(secondCourses, firstSlots, &first)
	})
	if err != nil {
		p.logger.Error("同步通年课程失败",
			zap.String("first_half", first.SemesterID),
			zap.String("second_half", second.SemesterID),
			zap.Error(err),
		)
		return 0, apperrors.Storage("course.sync_all", err)
	}
	return created, nil
}

// ────────────────────── DeletePaired ──────────────────────

// DeletePaired 删除课程；通年课程连同配对行一起删除，配对行不存在时只删除本行
// 返回删除的行数
func (p *PairingSynchronizer) DeletePaired(ctx context.Context, courseID uint64) (int, error) {
	deleted, err := p.deletePaired(ctx, courseID)
	if err != nil {
		return 0, err
	}
	p.notifier.Emit(notify.CourseData)
	return len(deleted), nil
}

// deletePaired 删除本行及配对行，并把它们名下的出欠记录转交给剩余的同名课程
func (p *PairingSynchronizer) deletePaired(ctx context.Context, courseID uint64) ([]model.Course, error) {
	course, err := p.repo.Course.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, apperrors.Storage("course.get", err)
	}
	twin, err := p.FindTwin(ctx, course)
	if err != nil {
		return nil, err
	}

	targets := []model.Course{*course}
	if twin != nil {
		targets = append(targets, *twin)
	}

	err = p.repo.Transaction(ctx, func(tx *repository.Repository) error {
		return releaseCourses(ctx, tx, course.Name, courseIDs(targets))
	})
	if err != nil {
		p.logger.Error("删除课程失败", zap.Uint64("course_id", courseID), zap.Error(err))
		return nil, apperrors.Storage("course.delete_paired", err)
	}

	for i := range targets {
		p.indexRemove(&targets[i])
	}
	p.logger.Info("删除课程",
		zap.Uint64("course_id", courseID),
		zap.String("name", course.Name),
		zap.Int("rows", len(targets)),
	)
	return targets, nil
}

// releaseCourses 删除同名课程中的指定行
// 出欠记录改挂到剩余行中最早的一行（即新的代表课程）；没有剩余行时一并删除
func releaseCourses(ctx context.Context, tx *repository.Repository, name string, ids []uint64) error {
	all, err := tx.Course.ListByName(ctx, name)
	if err != nil {
		return err
	}
	drop := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	var heir uint64
	for i := range all {
		if _, ok := drop[all[i].CourseID]; !ok {
			heir = all[i].CourseID
			break
		}
	}

	if heir == 0 {
		if err := tx.Attendance.DeleteByCourseIDs(ctx, ids); err != nil {
			return err
		}
	} else if err := tx.Attendance.ReassignCourse(ctx, ids, heir); err != nil {
		return err
	}
	return tx.Course.Delete(ctx, ids...)
}

// ── 内部辅助方法 ──

func draftToCourse(d *CourseDraft, semesterID string) *model.Course {
	return &model.Course{
		SemesterID:          semesterID,
		Name:                d.Name,
		DayOfWeek:           d.DayOfWeek,
		Period:              d.Period,
		TotalSessions:       d.TotalSessions,
		MaxAbsences:         d.MaxAbsences,
		ColorIndex:          d.ColorIndex,
		IsFullYear:          d.IsFullYear,
		NotificationEnabled: d.NotificationEnabled,
	}
}

// copyCourse 复制课程的名称、时间格与上限，挂到 semesterID 下
func copyCourse(c *model.Course, semesterID string) *model.Course {
	return &model.Course{
		SemesterID:          semesterID,
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

func slotMap(courses []model.Course) map[model.Slot]string {
	m := make(map[model.Slot]string, len(courses))
	for i := range courses {
		m[courses[i].Slot()] = courses[i].Name
	}
	return m
}
