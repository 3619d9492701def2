package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/SORA112117/At00-sub000/internal/model"
)

// CourseRepository 课程数据访问接口
// 所有按名称返回列表的方法均按 course_id 升序（即插入顺序），保证代表课程稳定
type CourseRepository interface {
	Create(ctx context.Context, course *model.Course) error
	GetByID(ctx context.Context, id uint64) (*model.Course, error)
	ListByName(ctx context.Context, name string) ([]model.Course, error)
	ListByNames(ctx context.Context, names []string) ([]model.Course, error)
	ListBySemester(ctx context.Context, semesterID string) ([]model.Course, error)
	ListFullYear(ctx context.Context) ([]model.Course, error)
	// FindBySlot 查询学期内某时间格的课程，不存在时返回 gorm.ErrRecordNotFound
	FindBySlot(ctx context.Context, semesterID string, day, period int) (*model.Course, error)
	CountByName(ctx context.Context, name string) (int64, error)
	CountByNameInSemester(ctx context.Context, name, semesterID string) (int64, error)
	DistinctNamesBySemester(ctx context.Context, semesterID string) ([]string, error)
	Update(ctx context.Context, course *model.Course) error
	Delete(ctx context.Context, ids ...uint64) error
}

type courseRepo struct {
	db *gorm.DB
}

// NewCourseRepo 创建 CourseRepository 实例
func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) Create(ctx context.Context, course *model.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepo) GetByID(ctx context.Context, id uint64) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).
		Where("course_id = ?", id).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) ListByName(ctx context.Context, name string) ([]model.Course, error) {
	var courses []model.Course
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		Order("course_id ASC").
		Find(&courses).Error
	return courses, err
}

func (r *courseRepo) ListByNames(ctx context.Context, names []string) ([]model.Course, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var courses []model.Course
	err := r.db.WithContext(ctx).
		Where("name IN ?", names).
		Order("course_id ASC").
		Find(&courses).Error
	return courses, err
}

func (r *courseRepo) ListBySemester(ctx context.Context, semesterID string) ([]model.Course, error) {
	var courses []model.Course
	err := r.db.WithContext(ctx).
		Where("semester_id = ?", semesterID).
		Order("day_of_week ASC, period ASC").
		Find(&courses).Error
	return courses, err
}

func (r *courseRepo) ListFullYear(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	err := r.db.WithContext(ctx).
		Where("is_full_year = ?", true).
		Order("course_id ASC").
		Find(&courses).Error
	return courses, err
}

func (r *courseRepo) FindBySlot(ctx context.Context, semesterID string, day, period int) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).
		Where("semester_id = ? AND day_of_week = ? AND period = ?", semesterID, day, period).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) CountByName(ctx context.Context, name string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Course{}).
		Where("name = ?", name).
		Count(&n).Error
	return n, err
}

func (r *courseRepo) CountByNameInSemester(ctx context.Context, name, semesterID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Course{}).
		Where("name = ? AND semester_id = ?", name, semesterID).
		Count(&n).Error
	return n, err
}

func (r *courseRepo) DistinctNamesBySemester(ctx context.Context, semesterID string) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&model.Course{}).
		Where("semester_id = ?", semesterID).
		Distinct("name").
		Order("name ASC").
		Pluck("name", &names).Error
	return names, err
}

func (r *courseRepo) Update(ctx context.Context, course *model.Course) error {
	return r.db.WithContext(ctx).Save(course).Error
}

func (r *courseRepo) Delete(ctx context.Context, ids ...uint64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("course_id IN ?", ids).
		Delete(&model.Course{}).Error
}
