package service

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/SORA112117/At00-sub000/internal/model"
	"github.com/SORA112117/At00-sub000/internal/repository"
	apperrors "github.com/SORA112117/At00-sub000/pkg/errors"
)

// AbsenceCache 课程名 → 缺勤次数的派生缓存
//
// RefreshAll 是唯一的事实来源：整表重建后原子替换；Patch 只是单个名称的乐观修补，
// 下一次 RefreshAll 会覆盖它。缓存不落库，随时可以丢弃重建。
type AbsenceCache struct {
	repo   *repository.Repository
	logger *zap.Logger

	mu     sync.RWMutex
	counts map[string]int
	misses atomic.Int64

	// fallback 未命中时的直接计算，由 AbsenceLedger 注入
	fallback func(ctx context.Context, name string) (int, error)
}

// NewAbsenceCache 创建缓存
func NewAbsenceCache(repo *repository.Repository, logger *zap.Logger) *AbsenceCache {
	return &AbsenceCache{
		repo:   repo,
		logger: logger,
		counts: make(map[string]int),
	}
}

// RefreshAll 按可见课程的名称整体重建
// 一次查询取出这些名称下全部计入上限的记录（预加载所属课程），在内存中按名称分组
func (c *AbsenceCache) RefreshAll(ctx context.Context, visible []model.Course) error {
	names := distinctNames(visible)
	next := make(map[string]int, len(names))
	for _, n := range names {
		next[n] = 0
	}

	if len(names) > 0 {
		courses, err := c.repo.Course.ListByNames(ctx, names)
		if err != nil {
			c.logger.Error("刷新缺勤缓存失败", zap.Error(err))
			return apperrors.Storage("course.list_by_names", err)
		}
		records, err := c.repo.Attendance.ListByCourseIDs(ctx, courseIDs(courses), model.CreditAffectingTypes())
		if err != nil {
			c.logger.Error("刷新缺勤缓存失败", zap.Error(err))
			return apperrors.Storage("attendance.list_by_courses", err)
		}
		for i := range records {
			if records[i].Course == nil {
				continue
			}
			if _, ok := next[records[i].Course.Name]; ok {
				next[records[i].Course.Name]++
			}
		}
	}

	c.mu.Lock()
	c.counts = next
	c.mu.Unlock()

	c.logger.Debug("缺勤缓存已重建", zap.Int("names", len(names)))
	return nil
}

// Lookup 只读缓存，不触发回退
func (c *AbsenceCache) Lookup(name string) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.counts[name]
	return n, ok
}

// Get 命中时直接返回；未命中时回退到账本直接计算（不写入缓存）并计数
func (c *AbsenceCache) Get(ctx context.Context, course *model.Course) (int, error) {
	if n, ok := c.Lookup(course.Name); ok {
		return n, nil
	}
	c.misses.Add(1)
	c.logger.Debug("缺勤缓存未命中，回退到直接计算", zap.String("name", course.Name))
	if c.fallback == nil {
		return 0, nil
	}
	return c.fallback(ctx, course.Name)
}

// Patch 乐观修补单个名称；名称不在缓存中时忽略，结果不小于 0
func (c *AbsenceCache) Patch(name string, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.counts[name]
	if !ok {
		return
	}
	n += delta
	if n < 0 {
		n = 0
	}
	c.counts[name] = n
}

// Invalidate 移除指定名称，下次访问回退到直接计算
func (c *AbsenceCache) Invalidate(names ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range names {
		delete(c.counts, n)
	}
}

// Reset 清空缓存（切换学期、重新加载时）
func (c *AbsenceCache) Reset() {
	c.mu.Lock()
	c.counts = make(map[string]int)
	c.mu.Unlock()
}

// Misses 回退次数；持续增长说明调用方漏掉了 RefreshAll
func (c *AbsenceCache) Misses() int64 {
	return c.misses.Load()
}

// Snapshot 返回当前缓存内容的副本
func (c *AbsenceCache) Snapshot() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

func distinctNames(courses []model.Course) []string {
	seen := make(map[string]struct{}, len(courses))
	names := make([]string, 0, len(courses))
	for i := range courses {
		if _, ok := seen[courses[i].Name]; ok {
			continue
		}
		seen[courses[i].Name] = struct{}{}
		names = append(names, courses[i].Name)
	}
	sort.Strings(names)
	return names
}
