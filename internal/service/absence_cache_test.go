package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/SORA112117/At00-sub000/internal/model"
	apperrors "github.com/SORA112117/At00-sub000/pkg/errors"
)

func seedCacheFixture(t *testing.T) (*AbsenceCache, *mockRepos, []model.Course) {
	t.Helper()
	repo, mocks := newMockRepos()
	ctx := context.Background()
	rows := []*model.Course{
		{SemesterID: "s1", Name: "物理", DayOfWeek: 2, Period: 2},
		{SemesterID: "s1", Name: "化学", DayOfWeek: 3, Period: 3},
		{SemesterID: "s2", Name: "物理", DayOfWeek: 2, Period: 2},
	}
	for _, c := range rows {
		_ = mocks.course.Create(ctx, c)
	}
	for _, r := range []*model.AttendanceRecord{
		{CourseID: rows[0].CourseID, Date: date(2025, 5, 6), Type: model.AttendanceAbsent},
		{CourseID: rows[2].CourseID, Date: date(2025, 10, 7), Type: model.AttendanceAbsent},
		{CourseID: rows[2].CourseID, Date: date(2025, 10, 14), Type: model.AttendanceOfficialAbsent},
		{CourseID: rows[0].CourseID, Date: date(2025, 5, 13), Type: model.AttendanceLate},
	} {
		_ = mocks.attendance.Create(ctx, r)
	}
	visible, _ := mocks.course.ListBySemester(ctx, "s1")
	return NewAbsenceCache(repo, zap.NewNop()), mocks, visible
}

func TestAbsenceCache_RefreshAll_GroupsByName(t *testing.T) {
	cache, _, visible := seedCacheFixture(t)

	if err := cache.RefreshAll(context.Background(), visible); err != nil {
		t.Fatalf("RefreshAll 应成功: %v", err)
	}
	snap := cache.Snapshot()
	// 其他学期同名课程的记录也计入，迟到和公假不计入
	if snap["物理"] != 2 {
		t.Errorf("物理 期望 2，实际 %d", snap["物理"])
	}
	if n, ok := snap["化学"]; !ok || n != 0 {
		t.Errorf("没有记录的课程名应缓存为 0，实际 %d (%v)", n, ok)
	}
}

func TestAbsenceCache_RefreshAll_FailureKeepsPrevious(t *testing.T) {
	cache, mocks, visible := seedCacheFixture(t)
	ctx := context.Background()
	_ = cache.RefreshAll(ctx, visible)

	mocks.attendance.err = errors.New("database is locked")
	err := cache.RefreshAll(ctx, visible)
	if !apperrors.IsStorage(err) {
		t.Fatalf("期望 StorageError，实际: %v", err)
	}
	if n, ok := cache.Lookup("物理"); !ok || n != 2 {
		t.Errorf("刷新失败时应保留旧缓存，实际 %d (%v)", n, ok)
	}
}

func TestAbsenceCache_Get_MissFallsBack(t *testing.T) {
	cache, _, _ := seedCacheFixture(t)
	calls := 0
	cache.fallback = func(_ context.Context, name string) (int, error) {
		calls++
		return 7, nil
	}

	n, err := cache.Get(context.Background(), &model.Course{Name: "物理"})
	if err != nil || n != 7 {
		t.Fatalf("未命中时应回退: n=%d err=%v", n, err)
	}
	if calls != 1 || cache.Misses() != 1 {
		t.Errorf("回退应被计数: calls=%d misses=%d", calls, cache.Misses())
	}
	if _, ok := cache.Lookup("物理"); ok {
		t.Error("回退结果不应写入缓存")
	}
}

func TestAbsenceCache_PatchAndInvalidate(t *testing.T) {
	cache, _, visible := seedCacheFixture(t)
	_ = cache.RefreshAll(context.Background(), visible)

	cache.Patch("物理", 1)
	if n, _ := cache.Lookup("物理"); n != 3 {
		t.Errorf("修补后期望 3，实际 %d", n)
	}
	cache.Patch("化学", -5)
	if n, _ := cache.Lookup("化学"); n != 0 {
		t.Errorf("修补结果不应小于 0，实际 %d", n)
	}
	cache.Patch("英语", 1)
	if _, ok := cache.Lookup("英语"); ok {
		t.Error("不在缓存中的名称不应被修补")
	}

	cache.Invalidate("物理")
	if _, ok := cache.Lookup("物理"); ok {
		t.Error("Invalidate 后应未命中")
	}
	cache.Reset()
	if len(cache.Snapshot()) != 0 {
		t.Error("Reset 后缓存应为空")
	}
}
