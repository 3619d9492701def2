package dto

import "time"

// ── 公共格式 ──

// DateLayout 日期格式
const DateLayout = "2006-01-02"

// TimestampLayout 时间戳格式
const TimestampLayout = "2006-01-02T15:04:05Z07:00"

// FormatDate 格式化日历日
func FormatDate(t time.Time) string { return t.UTC().Format(DateLayout) }

// FormatTimestamp 格式化时间戳（UTC）
func FormatTimestamp(t time.Time) string { return t.UTC().Format(TimestampLayout) }

// ── 查询参数 ──

// SemesterQuery 按学期查询；为空时使用当前学期
type SemesterQuery struct {
	SemesterID string `form:"semester_id" binding:"omitempty,max=36"`
}
