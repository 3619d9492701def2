package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SORA112117/At00-sub000/internal/model"
)

// AttendanceRepository 出欠记录数据访问接口
// types 为空时不按类型过滤
type AttendanceRepository interface {
	Create(ctx context.Context, record *model.AttendanceRecord) error
	GetByID(ctx context.Context, id uint64) (*model.AttendanceRecord, error)
	Delete(ctx context.Context, ids ...uint64) error
	DeleteByCourseIDs(ctx context.Context, courseIDs []uint64) error
	// ReassignCourse 将 fromIDs 名下的记录改挂到 toID（代表课程被删除时使用）
	ReassignCourse(ctx context.Context, fromIDs []uint64, toID uint64) error
	CountByCourseIDs(ctx context.Context, courseIDs []uint64, types []model.AttendanceType) (int64, error)
	// CountOnDate 统计某日历日 [day, day+1) 内的全部记录
	CountOnDate(ctx context.Context, courseIDs []uint64, day time.Time) (int64, error)
	// Latest 按 date DESC, record_id DESC 取第一条，不存在时返回 gorm.ErrRecordNotFound
	Latest(ctx context.Context, courseIDs []uint64, types []model.AttendanceType) (*model.AttendanceRecord, error)
	ListOnDate(ctx context.Context, courseID uint64, day time.Time, types []model.AttendanceType) ([]model.AttendanceRecord, error)
	// ListByCourseIDs 预加载所属课程，避免逐条回查
	ListByCourseIDs(ctx context.Context, courseIDs []uint64, types []model.AttendanceType) ([]model.AttendanceRecord, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) Create(ctx context.Context, record *model.AttendanceRecord) error {
	return r.db.WithContext(ctx).Omit("Course").Create(record).Error
}

func (r *attendanceRepo) GetByID(ctx context.Context, id uint64) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Preload("Course").
		Where("record_id = ?", id).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *attendanceRepo) Delete(ctx context.Context, ids ...uint64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("record_id IN ?", ids).
		Delete(&model.AttendanceRecord{}).Error
}

func (r *attendanceRepo) DeleteByCourseIDs(ctx context.Context, courseIDs []uint64) error {
	if len(courseIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("course_id IN ?", courseIDs).
		Delete(&model.AttendanceRecord{}).Error
}

func (r *attendanceRepo) ReassignCourse(ctx context.Context, fromIDs []uint64, toID uint64) error {
	if len(fromIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Where("course_id IN ?", fromIDs).
		Update("course_id", toID).Error
}

func (r *attendanceRepo) CountByCourseIDs(ctx context.Context, courseIDs []uint64, types []model.AttendanceType) (int64, error) {
	if len(courseIDs) == 0 {
		return 0, nil
	}
	var n int64
	err := r.scope(ctx, courseIDs, types).
		Model(&model.AttendanceRecord{}).
		Count(&n).Error
	return n, err
}

func (r *attendanceRepo) CountOnDate(ctx context.Context, courseIDs []uint64, day time.Time) (int64, error) {
	if len(courseIDs) == 0 {
		return 0, nil
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	var n int64
	err := r.scope(ctx, courseIDs, nil).
		Model(&model.AttendanceRecord{}).
		Where("date >= ? AND date < ?", start, start.AddDate(0, 0, 1)).
		Count(&n).Error
	return n, err
}

func (r *attendanceRepo) Latest(ctx context.Context, courseIDs []uint64, types []model.AttendanceType) (*model.AttendanceRecord, error) {
	if len(courseIDs) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	var record model.AttendanceRecord
	err := r.scope(ctx, courseIDs, types).
		Order("date DESC, record_id DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *attendanceRepo) ListOnDate(ctx context.Context, courseID uint64, day time.Time, types []model.AttendanceType) ([]model.AttendanceRecord, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	var records []model.AttendanceRecord
	err := r.scope(ctx, []uint64{courseID}, types).
		Where("date >= ? AND date < ?", start, start.AddDate(0, 0, 1)).
		Order("record_id DESC").
		Find(&records).Error
	return records, err
}

func (r *attendanceRepo) ListByCourseIDs(ctx context.Context, courseIDs []uint64, types []model.AttendanceType) ([]model.AttendanceRecord, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	var records []model.AttendanceRecord
	err := r.scope(ctx, courseIDs, types).
		Preload("Course").
		Order("date DESC, record_id DESC").
		Find(&records).Error
	return records, err
}

// scope 公共过滤条件：课程集合 + 可选类型集合
func (r *attendanceRepo) scope(ctx context.Context, courseIDs []uint64, types []model.AttendanceType) *gorm.DB {
	q := r.db.WithContext(ctx).Where("course_id IN ?", courseIDs)
	if len(types) > 0 {
		q = q.Where("type IN ?", types)
	}
	return q
}
