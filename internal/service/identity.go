package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/SORA112117/At00-sub000/internal/model"
	"github.com/SORA112117/At00-sub000/internal/repository"
	apperrors "github.com/SORA112117/At00-sub000/pkg/errors"
)

// ── IdentityResolver 课程身份解析 ──────────────────────────
//
// 课程以名称识别："同一门课"= 所有同名课程行（可跨时间格、跨学期）。
// 排序固定为 course_id 升序，第一行即代表课程，所有出欠记录都挂在它上面。
// 代表课程是纯计算结果，不在行上存标记：删除当前代表后，下一行自然成为代表。
// ─────────────────────────────────────────────────────────────

// IdentityResolver 课程身份解析器
type IdentityResolver struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewIdentityResolver 创建 IdentityResolver
func NewIdentityResolver(repo *repository.Repository, logger *zap.Logger) *IdentityResolver {
	return &IdentityResolver{repo: repo, logger: logger}
}

// AllCoursesNamed 返回全部同名课程（插入顺序）
// 存储失败时返回空列表和 StorageError，调用方按"不存在"处理
func (r *IdentityResolver) AllCoursesNamed(ctx context.Context, name string) ([]model.Course, error) {
	courses, err := r.repo.Course.ListByName(ctx, name)
	if err != nil {
		r.logger.Error("查询同名课程失败", zap.String("name", name), zap.Error(err))
		return []model.Course{}, apperrors.Storage("course.list_by_name", err)
	}
	return courses, nil
}

// Representative 返回代表课程；不存在时返回 nil
func (r *IdentityResolver) Representative(ctx context.Context, name string) (*model.Course, error) {
	courses, err := r.AllCoursesNamed(ctx, name)
	if len(courses) == 0 {
		return nil, err
	}
	return &courses[0], nil
}

// CourseIDs 返回同名课程的 id 集合（插入顺序）
func (r *IdentityResolver) CourseIDs(ctx context.Context, name string) ([]uint64, error) {
	courses, err := r.AllCoursesNamed(ctx, name)
	return courseIDs(courses), err
}

// ExistsInSemester 学期内是否已有同名课程
func (r *IdentityResolver) ExistsInSemester(ctx context.Context, name, semesterID string) (bool, error) {
	n, err := r.repo.Course.CountByNameInSemester(ctx, name, semesterID)
	if err != nil {
		r.logger.Error("统计学期内同名课程失败", zap.String("name", name), zap.String("semester_id", semesterID), zap.Error(err))
		return false, apperrors.Storage("course.count_in_semester", err)
	}
	return n > 0, nil
}

// ExistsAnywhere 任意学期是否已有同名课程
func (r *IdentityResolver) ExistsAnywhere(ctx context.Context, name string) (bool, error) {
	n, err := r.repo.Course.CountByName(ctx, name)
	if err != nil {
		r.logger.Error("统计同名课程失败", zap.String("name", name), zap.Error(err))
		return false, apperrors.Storage("course.count_by_name", err)
	}
	return n > 0, nil
}

func courseIDs(courses []model.Course) []uint64 {
	ids := make([]uint64, 0, len(courses))
	for i := range courses {
		ids = append(ids, courses[i].CourseID)
	}
	return ids
}
